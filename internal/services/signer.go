package services

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/yungbote/radflow-backend/internal/observability"
	"github.com/yungbote/radflow-backend/internal/signing"
)

type instrumentedSigner struct {
	inner   signing.Signer
	metrics *observability.Metrics
}

// NewInstrumentedSigner wraps inner with spans and call metrics.
func NewInstrumentedSigner(inner signing.Signer, metrics *observability.Metrics) signing.Signer {
	return &instrumentedSigner{inner: inner, metrics: metrics}
}

func (s *instrumentedSigner) Sign(ctx context.Context, req signing.SignRequest) (out signing.SignResult, err error) {
	ctx, span := observability.StartSpan(ctx, "signing.sign", attribute.String("user_id", req.UserID.String()))
	start := time.Now()
	defer func() {
		s.metrics.ObserveSigningCall("sign", signingStatus(err), time.Since(start))
		observability.EndSpan(span, err)
	}()
	return s.inner.Sign(ctx, req)
}

func (s *instrumentedSigner) GetSignature(ctx context.Context, signatureID string) (out signing.KeyInfo, err error) {
	ctx, span := observability.StartSpan(ctx, "signing.get_signature", attribute.String("signature_id", signatureID))
	start := time.Now()
	defer func() {
		s.metrics.ObserveSigningCall("get_signature", signingStatus(err), time.Since(start))
		observability.EndSpan(span, err)
	}()
	return s.inner.GetSignature(ctx, signatureID)
}

func signingStatus(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, signing.ErrInvalidPIN):
		return "invalid_pin"
	case errors.Is(err, signing.ErrKeyNotFound):
		return "key_not_found"
	case errors.Is(err, signing.ErrUnavailable), errors.Is(err, context.DeadlineExceeded):
		return "unavailable"
	default:
		return "error"
	}
}
