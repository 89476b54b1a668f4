package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/pjecz/hercules/internal/models"
)

var (
	// ErrDuplicate reports a unique constraint violation.
	ErrDuplicate = errors.New("duplicate key")
	// ErrStaleState reports that a guarded update found the row in another state.
	ErrStaleState = errors.New("stale state")
)

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// wrap annotates err, mapping unique violations to ErrDuplicate and keeping sql.ErrNoRows visible.
func wrap(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return err
	case isUniqueViolation(err):
		return fmt.Errorf("%s: %w", op, ErrDuplicate)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

// setEstatus flips the lifecycle flag of one row; only estatus and modificado change.
func setEstatus(ctx context.Context, c conn, table string, id int64, estatus models.Estatus) error {
	query := fmt.Sprintf("UPDATE %s SET estatus = $2, modificado = $3 WHERE id = $1", table)
	res, err := c.ext(ctx).ExecContext(ctx, query, id, estatus, time.Now().UTC())
	if err != nil {
		return wrap("set estatus "+table, err)
	}
	return expectOne(res)
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
