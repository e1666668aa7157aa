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

type StudyRepo interface {
	CreateIfAbsent(dbc dbctx.Context, study *types.Study) (bool, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Study, error)
	GetByUID(dbc dbctx.Context, studyInstanceUID string) (*types.Study, error)
	GetDeletedByUID(dbc dbctx.Context, studyInstanceUID string) (*types.Study, error)
	GetWithHierarchy(dbc dbctx.Context, id uuid.UUID) (*types.Study, error)
	LockByID(dbc dbctx.Context, id uuid.UUID) (*types.Study, error)
	LockByUID(dbc dbctx.Context, studyInstanceUID string) (*types.Study, error)
	IncrementSeriesCount(dbc dbctx.Context, id uuid.UUID) (int, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
}

type studyRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStudyRepo(db *gorm.DB, baseLog *logger.Logger) StudyRepo {
	return &studyRepo{
		db:  db,
		log: baseLog.With("repo", "StudyRepo"),
	}
}

// CreateIfAbsent inserts the study unless a row with the same study_instance_uid
// exists. It reports whether this call created the row.
func (r *studyRepo) CreateIfAbsent(dbc dbctx.Context, study *types.Study) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if study == nil {
		return false, nil
	}
	if study.ID == uuid.Nil {
		study.ID = uuid.New()
	}
	res := transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "study_instance_uid"}},
			DoNothing: true,
		}).
		Create(study)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *studyRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Study, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var s types.Study
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

func (r *studyRepo) GetByUID(dbc dbctx.Context, studyInstanceUID string) (*types.Study, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if studyInstanceUID == "" {
		return nil, nil
	}
	var s types.Study
	if err := transaction.WithContext(dbc.Ctx).
		Where("study_instance_uid = ?", studyInstanceUID).
		Limit(1).
		Find(&s).Error; err != nil {
		return nil, err
	}
	if s.ID == uuid.Nil {
		return nil, nil
	}
	return &s, nil
}

// GetDeletedByUID returns the soft-deleted study holding studyInstanceUID, if any.
func (r *studyRepo) GetDeletedByUID(dbc dbctx.Context, studyInstanceUID string) (*types.Study, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if studyInstanceUID == "" {
		return nil, nil
	}
	var s types.Study
	if err := transaction.WithContext(dbc.Ctx).
		Unscoped().
		Where("study_instance_uid = ? AND deleted_at IS NOT NULL", studyInstanceUID).
		Limit(1).
		Find(&s).Error; err != nil {
		return nil, err
	}
	if s.ID == uuid.Nil {
		return nil, nil
	}
	return &s, nil
}

// GetWithHierarchy loads the study with series and instances in number order, plus signatures.
func (r *studyRepo) GetWithHierarchy(dbc dbctx.Context, id uuid.UUID) (*types.Study, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var s types.Study
	if err := transaction.WithContext(dbc.Ctx).
		Preload("Series", func(db *gorm.DB) *gorm.DB {
			return db.Order("series_number ASC")
		}).
		Preload("Series.Instances", func(db *gorm.DB) *gorm.DB {
			return db.Order("instance_number ASC")
		}).
		Preload("Signatures", func(db *gorm.DB) *gorm.DB {
			return db.Order("signed_at ASC")
		}).
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

func (r *studyRepo) LockByID(dbc dbctx.Context, id uuid.UUID) (*types.Study, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var s types.Study
	if err := transaction.WithContext(dbc.Ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
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

func (r *studyRepo) LockByUID(dbc dbctx.Context, studyInstanceUID string) (*types.Study, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if studyInstanceUID == "" {
		return nil, nil
	}
	var s types.Study
	if err := transaction.WithContext(dbc.Ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("study_instance_uid = ?", studyInstanceUID).
		Limit(1).
		Find(&s).Error; err != nil {
		return nil, err
	}
	if s.ID == uuid.Nil {
		return nil, nil
	}
	return &s, nil
}

// IncrementSeriesCount atomically bumps number_of_series and returns the new value.
// The caller must hold the study row lock for the returned value to be its own.
func (r *studyRepo) IncrementSeriesCount(dbc dbctx.Context, id uuid.UUID) (int, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.Study{}).
		Where("id = ?", id).
		UpdateColumns(map[string]interface{}{
			"number_of_series": gorm.Expr("number_of_series + 1"),
			"updated_at":       time.Now().UTC(),
		})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, gorm.ErrRecordNotFound
	}
	var counts []int
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.Study{}).
		Where("id = ?", id).
		Pluck("number_of_series", &counts).Error; err != nil {
		return 0, err
	}
	if len(counts) == 0 {
		return 0, gorm.ErrRecordNotFound
	}
	return counts[0], nil
}

func (r *studyRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.Study{}).
		Where("id = ?", id).
		Updates(updates).Error
}
