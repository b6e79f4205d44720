package store

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// insufficientPrivilege is the SQLSTATE raised when row-level security (or a
// missing grant) rejects a statement.
const insufficientPrivilege = "42501"

// IsPermissionDenied reports whether err is a Postgres authorization-rule
// rejection, as opposed to any other database failure. Callers use this to
// decide between the local-fallback path and a hard failure.
func IsPermissionDenied(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == insufficientPrivilege
}
