// Package signing models the external key-custody service that produces
// clinical signatures, plus the verification primitives for stored ones.
package signing

import (
	"context"

	"github.com/google/uuid"
)

type SignRequest struct {
	UserID  uuid.UUID
	PIN     string
	Payload []byte
	// IdempotencyKey lets the service return the original signature when a
	// request is replayed after a lost response.
	IdempotencyKey string
}

type SignResult struct {
	SignatureID string
	// Signature is base64 encoded.
	Signature string
	// PublicKey is a PEM encoded PKIX public key.
	PublicKey string
	// Payload is the document the signature covers. A replayed request
	// returns the originally signed payload, which may differ from the
	// request's.
	Payload []byte
}

type KeyInfo struct {
	CertificateSerial string
	Algorithm         string
}

// Signer is the signing capability. Implementations return errors that
// match ErrInvalidPIN, ErrKeyNotFound, ErrUnavailable or ErrRejected.
type Signer interface {
	Sign(ctx context.Context, req SignRequest) (SignResult, error)
	GetSignature(ctx context.Context, signatureID string) (KeyInfo, error)
}
