package signing

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"
)

const (
	AlgEd25519      = "Ed25519"
	AlgECDSASHA256  = "ECDSA-SHA256"
	AlgRSASHA256    = "RSA-SHA256"
	AlgRSAPSSSHA256 = "RSA-PSS-SHA256"
)

var ErrUnsupportedAlgorithm = errors.New("signing: unsupported algorithm")

// NormalizeAlgorithm maps common aliases onto the canonical names above.
func NormalizeAlgorithm(alg string) string {
	switch strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(alg), "_", "-")) {
	case "ED25519", "EDDSA":
		return AlgEd25519
	case "ECDSA-SHA256", "ES256", "SHA256WITHECDSA":
		return AlgECDSASHA256
	case "RSA-SHA256", "RS256", "SHA256WITHRSA":
		return AlgRSASHA256
	case "RSA-PSS-SHA256", "PS256", "SHA256WITHRSA/PSS":
		return AlgRSAPSSSHA256
	default:
		return ""
	}
}

// Verify checks a base64 signature over data with a PEM encoded PKIX public key.
// A signature that does not match returns (false, nil); malformed inputs return an error.
func Verify(algorithm, publicKeyPEM string, data []byte, signatureB64 string) (bool, error) {
	alg := NormalizeAlgorithm(algorithm)
	if alg == "" {
		return false, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, algorithm)
	}
	pub, err := ParsePublicKey(publicKeyPEM)
	if err != nil {
		return false, err
	}
	sig, err := base64.StdEncoding.DecodeString(strings.TrimSpace(signatureB64))
	if err != nil {
		return false, fmt.Errorf("signing: decode signature: %w", err)
	}

	switch alg {
	case AlgEd25519:
		key, ok := pub.(ed25519.PublicKey)
		if !ok {
			return false, fmt.Errorf("signing: %s requires an ed25519 key, got %T", alg, pub)
		}
		return ed25519.Verify(key, data, sig), nil
	case AlgECDSASHA256:
		key, ok := pub.(*ecdsa.PublicKey)
		if !ok {
			return false, fmt.Errorf("signing: %s requires an ecdsa key, got %T", alg, pub)
		}
		digest := sha256.Sum256(data)
		return ecdsa.VerifyASN1(key, digest[:], sig), nil
	case AlgRSASHA256:
		key, ok := pub.(*rsa.PublicKey)
		if !ok {
			return false, fmt.Errorf("signing: %s requires an rsa key, got %T", alg, pub)
		}
		digest := sha256.Sum256(data)
		return rsa.VerifyPKCS1v15(key, crypto.SHA256, digest[:], sig) == nil, nil
	case AlgRSAPSSSHA256:
		key, ok := pub.(*rsa.PublicKey)
		if !ok {
			return false, fmt.Errorf("signing: %s requires an rsa key, got %T", alg, pub)
		}
		digest := sha256.Sum256(data)
		return rsa.VerifyPSS(key, crypto.SHA256, digest[:], sig, nil) == nil, nil
	default:
		return false, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, algorithm)
	}
}

func ParsePublicKey(publicKeyPEM string) (crypto.PublicKey, error) {
	block, _ := pem.Decode([]byte(strings.TrimSpace(publicKeyPEM)))
	if block == nil {
		return nil, errors.New("signing: public key is not PEM encoded")
	}
	switch block.Type {
	case "PUBLIC KEY":
		return x509.ParsePKIXPublicKey(block.Bytes)
	case "RSA PUBLIC KEY":
		return x509.ParsePKCS1PublicKey(block.Bytes)
	case "CERTIFICATE":
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, err
		}
		return cert.PublicKey, nil
	default:
		return nil, fmt.Errorf("signing: unsupported PEM block %q", block.Type)
	}
}
