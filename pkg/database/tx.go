package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// TxRunner executes a function inside a database transaction. Lifecycle
// transitions that touch several tables (payment + invoice + enrollment,
// enrollment + section counter) run through it so a crash mid-transition
// cannot leave half-applied state.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(q sqlx.ExtContext) error) error
}

// SQLTxRunner is the sqlx-backed TxRunner.
type SQLTxRunner struct {
	db *sqlx.DB
}

// NewTxRunner wraps a database handle.
func NewTxRunner(db *sqlx.DB) *SQLTxRunner {
	return &SQLTxRunner{db: db}
}

// WithinTx begins a transaction, runs fn and commits, rolling back on error
// or panic.
func (r *SQLTxRunner) WithinTx(ctx context.Context, fn func(q sqlx.ExtContext) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback tx: %v (original: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
