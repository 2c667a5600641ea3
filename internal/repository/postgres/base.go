package postgres

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/encounter-api/pkg/errors"
)

// querier is satisfied by both *sqlx.DB and *sqlx.Tx, so every repository
// works inside or outside a transaction.
type querier interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error)
}

// BaseRepository provides common functionality for all repositories
type BaseRepository struct {
	db querier
}

func NewBaseRepository(db querier) BaseRepository {
	return BaseRepository{db: db}
}

// get wraps GetContext and turns sql.ErrNoRows into NotFound.
func (r *BaseRepository) get(ctx context.Context, resource string, dest interface{}, query string, args ...interface{}) error {
	err := r.db.GetContext(ctx, dest, query, args...)
	if stderrors.Is(err, sql.ErrNoRows) {
		return errors.NotFound(resource, nil)
	}
	if err != nil {
		return fmt.Errorf("failed to get %s: %w", resource, err)
	}
	return nil
}

// execOne runs a write that must touch exactly one row.
func (r *BaseRepository) execOne(ctx context.Context, resource, query string, arg interface{}) error {
	result, err := r.db.NamedExecContext(ctx, query, arg)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", resource, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return errors.NotFound(resource, nil)
	}
	return nil
}

// WithTx executes a function within a transaction
func WithTx(ctx context.Context, db *sqlx.DB, fn func(*sqlx.Tx) error) error {
	return WithTxOptions(ctx, db, nil, fn)
}

// WithTxOptions is WithTx with explicit isolation and access mode.
func WithTxOptions(ctx context.Context, db *sqlx.DB, opts *sql.TxOptions, fn func(*sqlx.Tx) error) (err error) {
	tx, err := db.BeginTxx(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
