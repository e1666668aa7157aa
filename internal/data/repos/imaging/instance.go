package imaging

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/radflow-backend/internal/domain"
	"github.com/yungbote/radflow-backend/internal/platform/dbctx"
	"github.com/yungbote/radflow-backend/internal/platform/logger"
)

type InstanceRepo interface {
	Create(dbc dbctx.Context, instance *types.Instance) (*types.Instance, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Instance, error)
	ExistsBySOPUID(dbc dbctx.Context, sopInstanceUID string) (bool, error)
	ListBySeries(dbc dbctx.Context, seriesID uuid.UUID) ([]*types.Instance, error)
	CountBySeries(dbc dbctx.Context, seriesID uuid.UUID) (int64, error)
}

type instanceRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewInstanceRepo(db *gorm.DB, baseLog *logger.Logger) InstanceRepo {
	return &instanceRepo{
		db:  db,
		log: baseLog.With("repo", "InstanceRepo"),
	}
}

func (r *instanceRepo) Create(dbc dbctx.Context, instance *types.Instance) (*types.Instance, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if instance == nil {
		return nil, nil
	}
	if instance.ID == uuid.Nil {
		instance.ID = uuid.New()
	}
	if err := transaction.WithContext(dbc.Ctx).Create(instance).Error; err != nil {
		return nil, err
	}
	return instance, nil
}

func (r *instanceRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Instance, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var inst types.Instance
	if err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&inst).Error; err != nil {
		return nil, err
	}
	if inst.ID == uuid.Nil {
		return nil, nil
	}
	return &inst, nil
}

// ExistsBySOPUID includes soft-deleted rows; a SOP instance UID is never reused.
func (r *instanceRepo) ExistsBySOPUID(dbc dbctx.Context, sopInstanceUID string) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if sopInstanceUID == "" {
		return false, nil
	}
	var n int64
	if err := transaction.WithContext(dbc.Ctx).
		Unscoped().
		Model(&types.Instance{}).
		Where("sop_instance_uid = ?", sopInstanceUID).
		Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *instanceRepo) ListBySeries(dbc dbctx.Context, seriesID uuid.UUID) ([]*types.Instance, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Instance
	if seriesID == uuid.Nil {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("series_id = ?", seriesID).
		Order("instance_number ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *instanceRepo) CountBySeries(dbc dbctx.Context, seriesID uuid.UUID) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var n int64
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.Instance{}).
		Where("series_id = ?", seriesID).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}
