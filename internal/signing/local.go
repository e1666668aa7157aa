package signing

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/base64"
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type localKey struct {
	pinHash   []byte
	private   ed25519.PrivateKey
	publicPEM string
	serial    string
}

type localSignature struct {
	userID uuid.UUID
	result SignResult
}

// LocalSigner keeps Ed25519 keys in process. PINs are stored as bcrypt hashes.
type LocalSigner struct {
	mu          sync.Mutex
	keys        map[uuid.UUID]*localKey
	signatures  map[string]localSignature
	idempotency map[string]string
	bcryptCost  int
}

var _ Signer = (*LocalSigner)(nil)

func NewLocalSigner() *LocalSigner {
	return &LocalSigner{
		keys:        map[uuid.UUID]*localKey{},
		signatures:  map[string]localSignature{},
		idempotency: map[string]string{},
		bcryptCost:  bcrypt.DefaultCost,
	}
}

// WithBcryptCost lowers hashing cost, for tests.
func (s *LocalSigner) WithBcryptCost(cost int) *LocalSigner {
	s.bcryptCost = cost
	return s
}

// Provision creates (or replaces) the signing key for userID.
func (s *LocalSigner) Provision(userID uuid.UUID, pin string) (KeyInfo, error) {
	if userID == uuid.Nil || strings.TrimSpace(pin) == "" {
		return KeyInfo{}, fmt.Errorf("%w: user id and pin required", ErrRejected)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), s.bcryptCost)
	if err != nil {
		return KeyInfo{}, err
	}
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return KeyInfo{}, err
	}
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return KeyInfo{}, err
	}
	serial := make([]byte, 16)
	if _, err := rand.Read(serial); err != nil {
		return KeyInfo{}, err
	}
	key := &localKey{
		pinHash:   hash,
		private:   priv,
		publicPEM: string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})),
		serial:    strings.ToUpper(hex.EncodeToString(serial)),
	}

	s.mu.Lock()
	s.keys[userID] = key
	s.mu.Unlock()
	return KeyInfo{CertificateSerial: key.serial, Algorithm: AlgEd25519}, nil
}

func (s *LocalSigner) Sign(ctx context.Context, req SignRequest) (SignResult, error) {
	if err := ctx.Err(); err != nil {
		return SignResult{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	s.mu.Lock()
	key := s.keys[req.UserID]
	s.mu.Unlock()
	if key == nil {
		return SignResult{}, ErrKeyNotFound
	}
	if err := bcrypt.CompareHashAndPassword(key.pinHash, []byte(req.PIN)); err != nil {
		return SignResult{}, ErrInvalidPIN
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idemKey := ""
	if req.IdempotencyKey != "" {
		idemKey = req.UserID.String() + ":" + req.IdempotencyKey
		if id, ok := s.idempotency[idemKey]; ok {
			return s.signatures[id].result, nil
		}
	}

	sig := ed25519.Sign(key.private, req.Payload)
	res := SignResult{
		SignatureID: uuid.NewString(),
		Signature:   base64.StdEncoding.EncodeToString(sig),
		PublicKey:   key.publicPEM,
		Payload:     append([]byte(nil), req.Payload...),
	}
	s.signatures[res.SignatureID] = localSignature{userID: req.UserID, result: res}
	if idemKey != "" {
		s.idempotency[idemKey] = res.SignatureID
	}
	return res, nil
}

func (s *LocalSigner) GetSignature(ctx context.Context, signatureID string) (KeyInfo, error) {
	if err := ctx.Err(); err != nil {
		return KeyInfo{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.signatures[signatureID]
	if !ok {
		return KeyInfo{}, ErrKeyNotFound
	}
	key := s.keys[rec.userID]
	if key == nil {
		return KeyInfo{}, ErrKeyNotFound
	}
	return KeyInfo{CertificateSerial: key.serial, Algorithm: AlgEd25519}, nil
}
