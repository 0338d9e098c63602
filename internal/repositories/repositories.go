// Package repositories provides PostgreSQL-backed persistence and the SQL
// read models composed for the HTTP layer.
package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/cliphub/backend/internal/db"
)

const (
	defaultPage  = 1
	defaultLimit = 10
	maxLimit     = 100
)

// PageParams normalises 1-indexed pagination input. Out-of-range values fall
// back to the defaults; a page past the end of the data yields an empty page,
// never an error.
type PageParams struct {
	Page  int
	Limit int
}

// Normalize returns the effective page/limit and the row offset.
func (p PageParams) Normalize() (page, limit, offset int) {
	page = p.Page
	if page < 1 {
		page = defaultPage
	}
	limit = p.Limit
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return page, limit, (page - 1) * limit
}

// mapPgError converts constraint violations into the package's sentinel errors.
func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return ErrConflict
		case "23503":
			return ErrNotFound
		}
	}
	return nil
}

// execOwned runs an owner-scoped mutation and maps "nothing touched" to
// ErrNotFound, the single authorization-then-lookup path every mutating
// endpoint goes through.
func execOwned(ctx context.Context, pool db.Pool, label, sql string, args ...any) error {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, sql, args...)
	if err != nil {
		if mapped := mapPgError(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("%s: %w", label, err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}
