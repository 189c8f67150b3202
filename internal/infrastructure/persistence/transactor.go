package persistence

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/wastemarket-backend/internal/pkg/apperror"
	"github.com/ignatzorin/wastemarket-backend/internal/repository/common"
)

type Transactor struct {
	db *sqlx.DB
}

func NewTransactor(db *sqlx.DB) *Transactor {
	return &Transactor{db: db}
}

// WithinTransaction открывает транзакцию или переиспользует уже открытую в ctx.
func (t *Transactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := common.TxFromContext(ctx); ok {
		return fn(ctx)
	}

	err := common.WithTransaction(ctx, t.db, func(tx *sqlx.Tx) error {
		return fn(common.ContextWithTx(ctx, tx))
	})
	if err == nil {
		return nil
	}
	if apperror.CodeOf(err) != "" {
		return err
	}
	return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "transaction failed")
}
