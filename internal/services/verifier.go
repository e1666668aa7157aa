package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/radflow-backend/internal/data/repos"
	types "github.com/yungbote/radflow-backend/internal/domain"
	domainagg "github.com/yungbote/radflow-backend/internal/domain/aggregates"
	"github.com/yungbote/radflow-backend/internal/observability"
	"github.com/yungbote/radflow-backend/internal/platform/dbctx"
	"github.com/yungbote/radflow-backend/internal/platform/logger"
	"github.com/yungbote/radflow-backend/internal/signing"
)

type VerificationResult struct {
	StudyID           uuid.UUID           `json:"study_id"`
	SignatureType     types.SignatureType `json:"signature_type"`
	Valid             bool                `json:"valid"`
	SignedAt          time.Time           `json:"signed_at"`
	UserID            uuid.UUID           `json:"user_id"`
	CertificateSerial string              `json:"certificate_serial"`
	Algorithm         string              `json:"algorithm"`
	// Reason explains an invalid result that came from an unusable key or algorithm.
	Reason string `json:"reason,omitempty"`
}

// SignatureVerifier re-checks stored signatures. It never writes.
type SignatureVerifier interface {
	Verify(ctx context.Context, studyID uuid.UUID, signatureType types.SignatureType) (VerificationResult, error)
	VerifyStudy(ctx context.Context, studyID uuid.UUID) ([]VerificationResult, error)
}

type signatureVerifier struct {
	log        *logger.Logger
	studies    repos.StudyRepo
	signatures repos.StudySignatureRepo
	metrics    *observability.Metrics
}

func NewSignatureVerifier(baseLog *logger.Logger, studies repos.StudyRepo, signatures repos.StudySignatureRepo, metrics *observability.Metrics) SignatureVerifier {
	return &signatureVerifier{
		log:        baseLog.With("service", "SignatureVerifier"),
		studies:    studies,
		signatures: signatures,
		metrics:    metrics,
	}
}

func (v *signatureVerifier) Verify(ctx context.Context, studyID uuid.UUID, signatureType types.SignatureType) (VerificationResult, error) {
	const op = "services.verify"
	sig, err := v.signatures.GetByStudyAndType(dbctx.Context{Ctx: ctx}, studyID, signatureType)
	if err != nil {
		return VerificationResult{}, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	if sig == nil {
		return VerificationResult{}, domainagg.Fail(domainagg.CodeNotFound, op, domainagg.ErrSignatureNotFound, string(signatureType))
	}
	return v.check(sig), nil
}

// VerifyStudy verifies every stored signature of the study concurrently,
// ordered by signing time.
func (v *signatureVerifier) VerifyStudy(ctx context.Context, studyID uuid.UUID) ([]VerificationResult, error) {
	const op = "services.verify_study"
	dbc := dbctx.Context{Ctx: ctx}
	study, err := v.studies.GetByID(dbc, studyID)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	if study == nil {
		return nil, domainagg.Fail(domainagg.CodeNotFound, op, domainagg.ErrStudyNotFound, studyID.String())
	}
	sigs, err := v.signatures.ListByStudy(dbc, studyID)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}

	out := make([]VerificationResult, len(sigs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, sig := range sigs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = v.check(sig)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, domainagg.Wrap(domainagg.CodeRetryable, op, err)
	}
	return out, nil
}

func (v *signatureVerifier) check(sig *types.StudySignature) VerificationResult {
	res := VerificationResult{
		StudyID:           sig.StudyID,
		SignatureType:     sig.SignatureType,
		SignedAt:          sig.SignedAt,
		UserID:            sig.UserID,
		CertificateSerial: sig.CertificateSerial,
		Algorithm:         sig.Algorithm,
	}
	ok, err := signing.Verify(sig.Algorithm, sig.PublicKey, []byte(sig.SignedData), sig.SignatureValue)
	switch {
	case err != nil:
		res.Reason = err.Error()
		v.metrics.IncVerification("error")
		v.log.Warn("Stored signature could not be verified", "signature_id", sig.ID, "algorithm", sig.Algorithm, "error", err)
	case ok:
		res.Valid = true
		v.metrics.IncVerification("valid")
	default:
		v.metrics.IncVerification("invalid")
		v.log.Warn("Stored signature does not match its data", "signature_id", sig.ID, "study_id", sig.StudyID)
	}
	return res
}
