package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is the query surface shared by *pgxpool.Pool and pgx.Tx. Repository
// methods take it explicitly so a call chain started inside a transaction
// keeps running on that same transaction; only the outermost caller opens
// and closes one.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxRunner runs a callback inside one transaction. Services depend on this
// rather than on the pool so tests can substitute a pass-through runner.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(DBTX) error) error
}

type poolRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner wraps a pool as a TxRunner.
func NewTxRunner(pool *pgxpool.Pool) TxRunner {
	return &poolRunner{pool: pool}
}

func (r *poolRunner) WithTx(ctx context.Context, fn func(DBTX) error) error {
	return WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(tx)
	})
}

// WithTx executes a function within a transaction using the RepeatableRead
// isolation level. The transaction rolls back if fn returns an error.
func WithTx(ctx context.Context, pool *pgxpool.Pool, fn func(pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return fmt.Errorf("platform/db: begin tx: %w", err)
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("platform/db: commit tx: %w", err)
	}

	return nil
}
