package clinical

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/radflow-backend/internal/domain"
	"github.com/yungbote/radflow-backend/internal/platform/dbctx"
	"github.com/yungbote/radflow-backend/internal/platform/logger"
)

type OrderRepo interface {
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Order, error)
	GetProcedure(dbc dbctx.Context, id uuid.UUID) (*types.Procedure, error)
}

type orderRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewOrderRepo(db *gorm.DB, baseLog *logger.Logger) OrderRepo {
	return &orderRepo{
		db:  db,
		log: baseLog.With("repo", "OrderRepo"),
	}
}

func (r *orderRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Order, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var o types.Order
	if err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&o).Error; err != nil {
		return nil, err
	}
	if o.ID == uuid.Nil {
		return nil, nil
	}
	return &o, nil
}

func (r *orderRepo) GetProcedure(dbc dbctx.Context, id uuid.UUID) (*types.Procedure, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var p types.Procedure
	if err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&p).Error; err != nil {
		return nil, err
	}
	if p.ID == uuid.Nil {
		return nil, nil
	}
	return &p, nil
}
