package shared

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/lumbung-wms/lumbung-wms/internal/platform/httpx"
)

// Postgres error codes relevant for master data writes.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// MapWriteError converts constraint violations into domain errors so handlers
// can answer with 400 instead of 500.
func MapWriteError(err error, entity string) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%w: %s code already exists", httpx.ErrDuplicate, entity)
		case pgForeignKeyViolation:
			return fmt.Errorf("%w: %s is referenced by existing records", httpx.ErrValidation, entity)
		}
	}
	return err
}
