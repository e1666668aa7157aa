package signing

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"testing"
)

func pemFor(t *testing.T, pub crypto.PublicKey) string {
	t.Helper()
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		t.Fatalf("marshal public key: %v", err)
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))
}

func TestVerifyAlgorithms(t *testing.T) {
	data := []byte(`{"studyId":"a","signatureType":"TECHNICIAN_VERIFY"}`)
	digest := sha256.Sum256(data)

	edPub, edPriv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("ed25519: %v", err)
	}
	ecPriv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("ecdsa: %v", err)
	}
	ecSig, err := ecdsa.SignASN1(rand.Reader, ecPriv, digest[:])
	if err != nil {
		t.Fatalf("ecdsa sign: %v", err)
	}
	rsaPriv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("rsa: %v", err)
	}
	pkcsSig, err := rsa.SignPKCS1v15(rand.Reader, rsaPriv, crypto.SHA256, digest[:])
	if err != nil {
		t.Fatalf("rsa sign: %v", err)
	}
	pssSig, err := rsa.SignPSS(rand.Reader, rsaPriv, crypto.SHA256, digest[:], nil)
	if err != nil {
		t.Fatalf("rsa pss sign: %v", err)
	}

	cases := []struct {
		name string
		alg  string
		pub  crypto.PublicKey
		sig  []byte
	}{
		{"ed25519", "Ed25519", edPub, ed25519.Sign(edPriv, data)},
		{"ecdsa", "ECDSA-SHA256", &ecPriv.PublicKey, ecSig},
		{"rsa", "SHA256withRSA", &rsaPriv.PublicKey, pkcsSig},
		{"rsa-pss", "PS256", &rsaPriv.PublicKey, pssSig},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pubPEM := pemFor(t, tc.pub)
			sigB64 := base64.StdEncoding.EncodeToString(tc.sig)

			ok, err := Verify(tc.alg, pubPEM, data, sigB64)
			if err != nil || !ok {
				t.Fatalf("Verify: ok=%v err=%v", ok, err)
			}

			tampered := append([]byte(nil), data...)
			tampered[3] ^= 0x01
			ok, err = Verify(tc.alg, pubPEM, tampered, sigB64)
			if err != nil {
				t.Fatalf("Verify(tampered): %v", err)
			}
			if ok {
				t.Fatalf("Verify(tampered): expected invalid")
			}
		})
	}
}

func TestVerifyRejectsMalformedInput(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("ed25519: %v", err)
	}
	pubPEM := pemFor(t, pub)

	if _, err := Verify("MD5withRSA", pubPEM, []byte("x"), "AA=="); !errors.Is(err, ErrUnsupportedAlgorithm) {
		t.Fatalf("unknown algorithm: want ErrUnsupportedAlgorithm got=%v", err)
	}
	if _, err := Verify(AlgEd25519, "not pem", []byte("x"), "AA=="); err == nil {
		t.Fatalf("bad pem: expected error")
	}
	if _, err := Verify(AlgEd25519, pubPEM, []byte("x"), "%%%"); err == nil {
		t.Fatalf("bad base64: expected error")
	}
	if _, err := Verify(AlgRSASHA256, pubPEM, []byte("x"), "AA=="); err == nil {
		t.Fatalf("key type mismatch: expected error")
	}
}
