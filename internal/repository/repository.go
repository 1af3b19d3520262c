// Package repository holds the PostgreSQL and Redis backed stores.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"mailpilot/internal/apperr"
	"mailpilot/pkg/metrics"
)

// TxManager runs functions inside a database transaction.
type TxManager struct {
	db *pgxpool.Pool
}

func NewTxManager(db *pgxpool.Pool) *TxManager {
	return &TxManager{db: db}
}

// InTx commits when fn returns nil and rolls back otherwise.
func (m *TxManager) InTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := m.db.Begin(ctx)
	if err != nil {
		return apperr.NewRepository("begin transaction", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return apperr.NewRepository("commit transaction", err)
	}
	return nil
}

// observe records the duration of one query. Use as
// defer observe("select", "rules", time.Now()).
func observe(operation, table string, start time.Time) {
	metrics.RecordDBQueryDuration(operation, table, time.Since(start))
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return apperr.NewRepository(op, err)
}
