package imaging

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/radflow-backend/internal/domain"
	"github.com/yungbote/radflow-backend/internal/platform/dbctx"
	"github.com/yungbote/radflow-backend/internal/platform/logger"
)

type SeriesRepo interface {
	Create(dbc dbctx.Context, series *types.Series) (*types.Series, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Series, error)
	LockByUID(dbc dbctx.Context, seriesInstanceUID string) (*types.Series, error)
	GetDeletedByUID(dbc dbctx.Context, seriesInstanceUID string) (*types.Series, error)
	ListByStudy(dbc dbctx.Context, studyID uuid.UUID) ([]*types.Series, error)
	CountByStudy(dbc dbctx.Context, studyID uuid.UUID) (int64, error)
	IncrementInstanceCount(dbc dbctx.Context, id uuid.UUID) (int, error)
}

type seriesRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSeriesRepo(db *gorm.DB, baseLog *logger.Logger) SeriesRepo {
	return &seriesRepo{
		db:  db,
		log: baseLog.With("repo", "SeriesRepo"),
	}
}

func (r *seriesRepo) Create(dbc dbctx.Context, series *types.Series) (*types.Series, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if series == nil {
		return nil, nil
	}
	if series.ID == uuid.Nil {
		series.ID = uuid.New()
	}
	if err := transaction.WithContext(dbc.Ctx).Create(series).Error; err != nil {
		return nil, err
	}
	return series, nil
}

func (r *seriesRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Series, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var s types.Series
	if err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&s).Error; err != nil {
		return nil, err
	}
	if s.ID == uuid.Nil {
		return nil, nil
	}
	return &s, nil
}

func (r *seriesRepo) LockByUID(dbc dbctx.Context, seriesInstanceUID string) (*types.Series, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if seriesInstanceUID == "" {
		return nil, nil
	}
	var s types.Series
	if err := transaction.WithContext(dbc.Ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("series_instance_uid = ?", seriesInstanceUID).
		Limit(1).
		Find(&s).Error; err != nil {
		return nil, err
	}
	if s.ID == uuid.Nil {
		return nil, nil
	}
	return &s, nil
}

// GetDeletedByUID returns the soft-deleted series holding seriesInstanceUID, if any.
func (r *seriesRepo) GetDeletedByUID(dbc dbctx.Context, seriesInstanceUID string) (*types.Series, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if seriesInstanceUID == "" {
		return nil, nil
	}
	var s types.Series
	if err := transaction.WithContext(dbc.Ctx).
		Unscoped().
		Where("series_instance_uid = ? AND deleted_at IS NOT NULL", seriesInstanceUID).
		Limit(1).
		Find(&s).Error; err != nil {
		return nil, err
	}
	if s.ID == uuid.Nil {
		return nil, nil
	}
	return &s, nil
}

func (r *seriesRepo) ListByStudy(dbc dbctx.Context, studyID uuid.UUID) ([]*types.Series, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Series
	if studyID == uuid.Nil {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("study_id = ?", studyID).
		Order("series_number ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *seriesRepo) CountByStudy(dbc dbctx.Context, studyID uuid.UUID) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var n int64
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.Series{}).
		Where("study_id = ?", studyID).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

// IncrementInstanceCount atomically bumps number_of_instances and returns the new value.
func (r *seriesRepo) IncrementInstanceCount(dbc dbctx.Context, id uuid.UUID) (int, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.Series{}).
		Where("id = ?", id).
		UpdateColumns(map[string]interface{}{
			"number_of_instances": gorm.Expr("number_of_instances + 1"),
			"updated_at":          time.Now().UTC(),
		})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, gorm.ErrRecordNotFound
	}
	var counts []int
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.Series{}).
		Where("id = ?", id).
		Pluck("number_of_instances", &counts).Error; err != nil {
		return 0, err
	}
	if len(counts) == 0 {
		return 0, gorm.ErrRecordNotFound
	}
	return counts[0], nil
}
