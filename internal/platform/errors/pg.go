package errors

// Store-specific helpers for mapping driver errors to project ErrorCode and retry classification

import (
	"context"
	stderrs "errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE codes the read path can hit
const (
	pgErrInvalidTextRepresentation = "22P02"
	pgErrDivisionByZero            = "22012"
	pgErrSyntax                    = "42601"
	pgErrUndefinedTable            = "42P01"
	pgErrUndefinedColumn           = "42703"
	pgErrInvalidSchemaName         = "3F000"
	pgErrTooManyParams             = "54000"

	pgErrSerializationFailure = "40001"
	pgErrDeadlockDetected     = "40P01"
	pgErrLockNotAvailable     = "55P03"
	pgErrQueryCanceled        = "57014"
	pgErrAdminShutdown        = "57P01"
	pgErrCannotConnectNow     = "57P03"

	pgClassConnection = "08"
)

// ExtractPgError returns (*pgconn.PgError, true) if the root cause is a PgError
func ExtractPgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if stderrs.As(Root(err), &pgErr) {
		return pgErr, true
	}
	return nil, false
}

// IsSQLState reports whether the error is a Postgres error with the given SQLSTATE code
func IsSQLState(err error, code string) bool {
	pgErr, ok := ExtractPgError(err)
	return ok && pgErr.Code == code
}

// DBErrorCode maps a Postgres error to an ErrorCode with an ok flag
// !ok means err wasn't a PgError; caller may fall back to generic handling
func DBErrorCode(err error) (ErrorCode, bool) {
	var pgErr *pgconn.PgError
	if !stderrs.As(err, &pgErr) {
		return ErrorCodeUnknown, false
	}

	if strings.HasPrefix(pgErr.Code, pgClassConnection) {
		return ErrorCodeUnavailable, true
	}

	switch pgErr.Code {
	case pgErrInvalidSchemaName, pgErrUndefinedTable:
		// tenant not provisioned
		return ErrorCodeNotFound, true

	case pgErrInvalidTextRepresentation:
		// a filter value the column type rejects, e.g. a malformed uuid
		return ErrorCodeInvalidArgument, true

	case pgErrSyntax, pgErrUndefinedColumn, pgErrTooManyParams, pgErrDivisionByZero:
		return ErrorCodeDB, true

	case pgErrSerializationFailure, pgErrDeadlockDetected, pgErrLockNotAvailable, pgErrQueryCanceled:
		return ErrorCodeDB, true

	case pgErrAdminShutdown, pgErrCannotConnectNow:
		return ErrorCodeUnavailable, true
	}

	return ErrorCodeDB, true
}

// FromPostgres wraps a pg error with a mapped ErrorCode and message.
// If err is nil, returns nil
func FromPostgres(err error, msg string) error {
	if err == nil {
		return nil
	}
	if code, ok := DBErrorCode(err); ok {
		return Wrap(err, code, msg)
	}
	return Wrap(err, ErrorCodeDB, msg)
}

// FromStore wraps any store failure as a StoreError
// errors that already carry a project code keep it; context errors stay recognisable
func FromStore(err error, msg string) error {
	if err == nil {
		return nil
	}
	if _, ok := As(err); ok {
		return err
	}
	if _, ok := ExtractPgError(err); ok {
		return FromPostgres(err, msg)
	}
	if stderrs.Is(err, context.Canceled) || stderrs.Is(err, context.DeadlineExceeded) {
		return Wrap(err, ErrorCodeUnavailable, msg)
	}
	return Wrap(err, ErrorCodeDB, msg)
}

// IsRetryable reports whether a store error represents a transient condition
// nothing retries; the sql tracer records it so operators can tell flakes from bugs
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	if stderrs.Is(err, context.Canceled) || stderrs.Is(err, context.DeadlineExceeded) {
		return false
	}

	root := Root(err)

	var pgErr *pgconn.PgError
	if stderrs.As(root, &pgErr) {
		switch pgErr.Code {
		case pgErrSerializationFailure, pgErrDeadlockDetected, pgErrLockNotAvailable, pgErrCannotConnectNow:
			return true
		default:
			return strings.HasPrefix(pgErr.Code, pgClassConnection)
		}
	}

	s := strings.ToLower(root.Error())
	switch {
	case strings.Contains(s, "deadlock detected"),
		strings.Contains(s, "could not serialize access"),
		strings.Contains(s, "canceling statement due to lock timeout"),
		strings.Contains(s, "terminating connection due to administrator command"),
		strings.Contains(s, "connection reset by peer"):
		return true
	default:
		return false
	}
}
