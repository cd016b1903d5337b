package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type contextKey string

const txKey contextKey = "db_tx"

// Queryable is the subset of pgx executed by repositories. Both *pgxpool.Pool
// and pgx.Tx satisfy it, so a repository runs inside a transaction whenever
// the caller started one via RunInTx.
type Queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// TxFromContext retrieves the active transaction from context, if any.
func TxFromContext(ctx context.Context) pgx.Tx {
	tx, _ := ctx.Value(txKey).(pgx.Tx)
	return tx
}

// WithTx returns a context carrying tx for repositories to pick up.
func WithTx(ctx context.Context, tx pgx.Tx) context.Context {
	return context.WithValue(ctx, txKey, tx)
}

// RunInTx executes fn inside a database transaction. The transaction is
// carried on the context so every repository call made by fn joins it; it is
// rolled back when fn returns an error and committed otherwise. Compound
// writes (request response + history entry, profile + role assignment) go
// through here so both mutations are observed together or not at all.
func RunInTx(ctx context.Context, pool *pgxpool.Pool, fn func(ctx context.Context) error) error {
	return NewTxRunner(pool)(ctx, fn)
}

// TxRunner is the transactional-execution seam services depend on. In
// production it is NewTxRunner(pool); tests substitute a passthrough.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

// NewTxRunner returns a TxRunner backed by pool.
func NewTxRunner(pool *pgxpool.Pool) TxRunner {
	return func(ctx context.Context, fn func(ctx context.Context) error) error {
		if TxFromContext(ctx) != nil {
			// Already inside a transaction; join it.
			return fn(ctx)
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		if err := fn(WithTx(ctx, tx)); err != nil {
			_ = tx.Rollback(ctx)
			return err
		}
		return tx.Commit(ctx)
	}
}
