package aggregates

import (
	"context"

	"gorm.io/gorm"

	domainagg "github.com/yungbote/radflow-backend/internal/domain/aggregates"
	"github.com/yungbote/radflow-backend/internal/platform/dbctx"
)

// TxRunner owns the unit of work for an ingestion or a sign-off transition.
// Everything fn does through dbc.Tx commits or rolls back together, including
// the study and series row locks taken inside it.
type TxRunner interface {
	InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error
}

type gormTxRunner struct {
	db *gorm.DB
}

// NewGormTxRunner runs each unit of work in a gorm transaction. Postgres runs at its default READ COMMITTED level; ingestion and sign-off
// rely on explicit row locks rather than a stricter isolation level.
func NewGormTxRunner(db *gorm.DB) TxRunner {
	return &gormTxRunner{db: db}
}

func (r *gormTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	if fn == nil {
		return nil
	}
	if r == nil || r.db == nil {
		return domainagg.NewError(domainagg.CodeInternal, "aggregate.tx", "transaction runner has nil db", nil)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(dbctx.Context{Ctx: ctx, Tx: tx})
	})
}
