package postgres

import (
	"errors"

	"blogapi/internal/service"
	"blogapi/pkg/tableinfo"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

var ErrBuildingQuery = errors.New("error building sql-query")

// constraintFields maps unique constraints to the payload field they guard.
var constraintFields = map[string]string{
	tableinfo.UserEmailConstraint:    "email",
	tableinfo.UserUsernameConstraint: "username",
}

// asConflict turns a unique violation on a known constraint into a
// service.ConflictError and returns nil for anything else.
func asConflict(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgerrcode.UniqueViolation {
		return nil
	}
	field, ok := constraintFields[pgErr.ConstraintName]
	if !ok {
		return nil
	}
	return &service.ConflictError{Field: field}
}
