package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

type txKey struct{}

// TxRunner runs a unit of work in one transaction. Repositories called with the
// context handed to fn join that transaction; nested calls reuse the outer one.
type TxRunner struct {
	db *sqlx.DB
}

func NewTxRunner(db *sqlx.DB) *TxRunner {
	return &TxRunner{db: db}
}

// RunInTx commits when fn returns nil and rolls back otherwise.
func (r *TxRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return fn(ctx)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// conn picks the transaction bound to ctx, or the pool.
type conn struct {
	db *sqlx.DB
}

func (c conn) ext(ctx context.Context) sqlx.ExtContext {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return c.db
}

func (c conn) get(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return sqlx.GetContext(ctx, c.ext(ctx), dest, query, args...)
}

func (c conn) selectAll(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return sqlx.SelectContext(ctx, c.ext(ctx), dest, query, args...)
}

func (c conn) namedExec(ctx context.Context, query string, arg interface{}) error {
	_, err := sqlx.NamedExecContext(ctx, c.ext(ctx), query, arg)
	return err
}

// namedInsert runs an INSERT ... RETURNING id built with named parameters.
func (c conn) namedInsert(ctx context.Context, query string, arg interface{}) (int64, error) {
	ext := c.ext(ctx)
	bound, args, err := ext.BindNamed(query, arg)
	if err != nil {
		return 0, err
	}
	var id int64
	if err := sqlx.GetContext(ctx, ext, &id, bound, args...); err != nil {
		return 0, err
	}
	return id, nil
}
