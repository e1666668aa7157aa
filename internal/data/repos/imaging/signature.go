package imaging

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/radflow-backend/internal/domain"
	"github.com/yungbote/radflow-backend/internal/platform/dbctx"
	"github.com/yungbote/radflow-backend/internal/platform/logger"
)

type StudySignatureRepo interface {
	Create(dbc dbctx.Context, sig *types.StudySignature) (*types.StudySignature, error)
	GetByStudyAndType(dbc dbctx.Context, studyID uuid.UUID, signatureType types.SignatureType) (*types.StudySignature, error)
	ListByStudy(dbc dbctx.Context, studyID uuid.UUID) ([]*types.StudySignature, error)
}

type studySignatureRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStudySignatureRepo(db *gorm.DB, baseLog *logger.Logger) StudySignatureRepo {
	return &studySignatureRepo{
		db:  db,
		log: baseLog.With("repo", "StudySignatureRepo"),
	}
}

func (r *studySignatureRepo) Create(dbc dbctx.Context, sig *types.StudySignature) (*types.StudySignature, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if sig == nil {
		return nil, nil
	}
	if sig.ID == uuid.Nil {
		sig.ID = uuid.New()
	}
	if err := transaction.WithContext(dbc.Ctx).Create(sig).Error; err != nil {
		return nil, err
	}
	return sig, nil
}

func (r *studySignatureRepo) GetByStudyAndType(dbc dbctx.Context, studyID uuid.UUID, signatureType types.SignatureType) (*types.StudySignature, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if studyID == uuid.Nil || signatureType == "" {
		return nil, nil
	}
	var sig types.StudySignature
	if err := transaction.WithContext(dbc.Ctx).
		Where("study_id = ? AND signature_type = ?", studyID, signatureType).
		Limit(1).
		Find(&sig).Error; err != nil {
		return nil, err
	}
	if sig.ID == uuid.Nil {
		return nil, nil
	}
	return &sig, nil
}

func (r *studySignatureRepo) ListByStudy(dbc dbctx.Context, studyID uuid.UUID) ([]*types.StudySignature, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.StudySignature
	if studyID == uuid.Nil {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("study_id = ?", studyID).
		Order("signed_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
