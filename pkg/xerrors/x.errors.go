package xerrors

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Generic
var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrInternalServer = errors.New("internal server error")
	ErrNotFound       = errors.New("not found")
)

// Ledger. ErrAccountNotFound covers both "no such account" and, for
// mutating operations, "account exists but is closed" — callers cannot
// distinguish the two.
var (
	ErrAccountNotFound = errors.New("account not found")
)

// Postgres error codes this service reacts to.
const (
	PGCodeUniqueViolation     = "23505"
	PGCodeForeignKeyViolation = "23503"
)

func ParsePGErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code // e.g. 23505 for unique_violation
	}
	return "unknown"
}

// IsForeignKeyViolation reports whether err is the store rejecting a
// movement row that references a nonexistent account. The engine checks
// account existence first, so this is defense in depth only.
func IsForeignKeyViolation(err error) bool {
	return ParsePGErrorCode(err) == PGCodeForeignKeyViolation
}
