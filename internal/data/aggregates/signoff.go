package aggregates

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/radflow-backend/internal/data/repos"
	types "github.com/yungbote/radflow-backend/internal/domain"
	domainagg "github.com/yungbote/radflow-backend/internal/domain/aggregates"
	"github.com/yungbote/radflow-backend/internal/domain/imaging"
	"github.com/yungbote/radflow-backend/internal/platform/dbctx"
	"github.com/yungbote/radflow-backend/internal/signing"
)

const defaultSignTimeout = 10 * time.Second

type SignoffDeps struct {
	Base        BaseDeps
	Studies     repos.StudyRepo
	Signatures  repos.StudySignatureRepo
	Signer      signing.Signer
	SignTimeout time.Duration
	Now         func() time.Time
}

type studySignoffAggregate struct {
	deps SignoffDeps
}

func NewStudySignoffAggregate(deps SignoffDeps) domainagg.StudySignoffAggregate {
	deps.Base = deps.Base.withDefaults()
	if deps.SignTimeout <= 0 {
		deps.SignTimeout = defaultSignTimeout
	}
	if deps.Now == nil {
		deps.Now = func() time.Time { return time.Now().UTC() }
	}
	return &studySignoffAggregate{deps: deps}
}

func (a *studySignoffAggregate) Contract() domainagg.Contract {
	return domainagg.StudySignoffAggregateContract
}

func (a *studySignoffAggregate) TechnicianVerify(ctx context.Context, in domainagg.SignoffInput) (domainagg.SignoffResult, error) {
	return a.transition(ctx, "imaging.signoff.technician_verify", imaging.TechnicianVerifyTransition, in)
}

func (a *studySignoffAggregate) RadiologistApprove(ctx context.Context, in domainagg.SignoffInput) (domainagg.SignoffResult, error) {
	return a.transition(ctx, "imaging.signoff.radiologist_approve", imaging.RadiologistApproveTransition, in)
}

// transition holds the study row lock across the remote sign call. A crash
// after the remote signature but before commit leaves an unreferenced remote
// signature and no local change. The idempotency key covers study, type,
// user and from-status, so a retry gets the original signature back and
// stores the payload it was made over.
func (a *studySignoffAggregate) transition(ctx context.Context, op string, t imaging.SignoffTransition, in domainagg.SignoffInput) (domainagg.SignoffResult, error) {
	if in.StudyID == uuid.Nil || in.UserID == uuid.Nil {
		return domainagg.SignoffResult{}, domainagg.NewError(domainagg.CodeValidation, op, "study_id and user_id are required", nil)
	}
	if strings.TrimSpace(in.PIN) == "" {
		return domainagg.SignoffResult{}, domainagg.NewError(domainagg.CodeValidation, op, "pin is required", nil)
	}

	var out domainagg.SignoffResult
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		study, err := a.deps.Studies.LockByID(dbc, in.StudyID)
		if err != nil {
			return err
		}
		if study == nil {
			return domainagg.Fail(domainagg.CodeNotFound, op, domainagg.ErrStudyNotFound, in.StudyID.String())
		}

		existing, err := a.deps.Signatures.GetByStudyAndType(dbc, study.ID, t.SignatureType)
		if err != nil {
			return err
		}
		if existing != nil {
			return domainagg.Fail(domainagg.CodeConflict, op, domainagg.ErrAlreadySigned, string(t.SignatureType))
		}
		if err := RequireTransitionFrom(op, study.Status, t); err != nil {
			return err
		}

		now := a.deps.Now()
		payload, err := signing.NewPayload(study.ID, study.StudyInstanceUID, study.PatientID, study.StudyDate, string(t.SignatureType), now).Marshal()
		if err != nil {
			return err
		}

		signCtx, cancel := context.WithTimeout(dbc.Ctx, a.deps.SignTimeout)
		defer cancel()

		signed, err := a.deps.Signer.Sign(signCtx, signing.SignRequest{
			UserID:         in.UserID,
			PIN:            in.PIN,
			Payload:        payload,
			IdempotencyKey: signing.IdempotencyKey(study.ID, string(t.SignatureType), in.UserID, string(t.From)),
		})
		if err != nil {
			return mapSignerError(op, err)
		}
		signedData, signedAt := payload, now
		if len(signed.Payload) > 0 && string(signed.Payload) != string(payload) {
			replayed, err := signing.ParsePayload(signed.Payload)
			if err != nil {
				return domainagg.NewError(domainagg.CodeRetryable, op, domainagg.ErrSigningFailed.Error()+": "+err.Error(), errors.Join(domainagg.ErrSigningFailed, err))
			}
			if replayed.StudyID != study.ID || replayed.SignatureType != string(t.SignatureType) {
				return domainagg.NewError(domainagg.CodeRetryable, op, domainagg.ErrSigningFailed.Error()+": replayed signature covers another sign-off", domainagg.ErrSigningFailed)
			}
			at, err := replayed.SignedAt()
			if err != nil {
				return domainagg.NewError(domainagg.CodeRetryable, op, domainagg.ErrSigningFailed.Error()+": "+err.Error(), errors.Join(domainagg.ErrSigningFailed, err))
			}
			signedData, signedAt = signed.Payload, at
		}
		keyInfo, err := a.deps.Signer.GetSignature(signCtx, signed.SignatureID)
		if err != nil {
			return mapSignerError(op, err)
		}

		sig, err := a.deps.Signatures.Create(dbc, &types.StudySignature{
			ID:                uuid.New(),
			StudyID:           study.ID,
			SignatureType:     t.SignatureType,
			UserID:            in.UserID,
			SignedData:        string(signedData),
			SignatureValue:    signed.Signature,
			PublicKey:         signed.PublicKey,
			CertificateSerial: keyInfo.CertificateSerial,
			Algorithm:         keyInfo.Algorithm,
			RemoteSignatureID: signed.SignatureID,
			SignedAt:          signedAt,
		})
		if err != nil {
			if isUniqueViolation(err) {
				return domainagg.Fail(domainagg.CodeConflict, op, domainagg.ErrAlreadySigned, string(t.SignatureType))
			}
			return err
		}

		ok, err := a.deps.Base.CASGuard.UpdateByStatus(dbc, types.Study{}.TableName(), study.ID, []string{string(t.From)}, map[string]any{
			"status":     string(t.To),
			t.UserColumn: in.UserID,
			"updated_at": now,
		})
		if err != nil {
			return err
		}
		if err := RequireCASSuccess(ok, "study status changed during sign-off"); err != nil {
			return err
		}

		out = domainagg.SignoffResult{
			StudyID:       study.ID,
			Status:        t.To,
			SignatureType: t.SignatureType,
			SignatureID:   sig.ID,
			SignedAt:      sig.SignedAt,
		}
		return nil
	})
	if err != nil {
		return domainagg.SignoffResult{}, err
	}
	return out, nil
}

func mapSignerError(op string, err error) error {
	switch {
	case errors.Is(err, signing.ErrInvalidPIN):
		return domainagg.Fail(domainagg.CodeUnauthenticated, op, domainagg.ErrAuthenticationFailed, "")
	case errors.Is(err, signing.ErrKeyNotFound):
		return domainagg.Fail(domainagg.CodePreconditionFailed, op, domainagg.ErrSigningKeyNotProvisioned, "")
	default:
		return domainagg.NewError(domainagg.CodeRetryable, op, domainagg.ErrSigningFailed.Error()+": "+err.Error(), errors.Join(domainagg.ErrSigningFailed, err))
	}
}
