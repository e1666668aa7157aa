package clinical

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/radflow-backend/internal/domain"
	"github.com/yungbote/radflow-backend/internal/platform/dbctx"
	"github.com/yungbote/radflow-backend/internal/platform/logger"
)

type ModalityRepo interface {
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Modality, error)
}

type modalityRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewModalityRepo(db *gorm.DB, baseLog *logger.Logger) ModalityRepo {
	return &modalityRepo{
		db:  db,
		log: baseLog.With("repo", "ModalityRepo"),
	}
}

func (r *modalityRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Modality, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var m types.Modality
	if err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&m).Error; err != nil {
		return nil, err
	}
	if m.ID == uuid.Nil {
		return nil, nil
	}
	return &m, nil
}

type MachineRepo interface {
	// GetByID returns the machine with its modality loaded. A soft-deleted
	// modality leaves Machine.Modality nil.
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Machine, error)
}

type machineRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMachineRepo(db *gorm.DB, baseLog *logger.Logger) MachineRepo {
	return &machineRepo{
		db:  db,
		log: baseLog.With("repo", "MachineRepo"),
	}
}

func (r *machineRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Machine, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var m types.Machine
	if err := transaction.WithContext(dbc.Ctx).
		Preload("Modality").
		Where("id = ?", id).
		Limit(1).
		Find(&m).Error; err != nil {
		return nil, err
	}
	if m.ID == uuid.Nil {
		return nil, nil
	}
	return &m, nil
}
