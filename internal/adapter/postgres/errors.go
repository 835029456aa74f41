package postgres

import (
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"github.com/koustreak/sqlbridge/internal/errs"
)

// PostgreSQL SQLSTATE error codes
// Full list: https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	StateUniqueViolation     = "23505"
	StateForeignKeyViolation = "23503"
	StateNotNullViolation    = "23502"
	StateSerialization       = "40001"
	StateDeadlock            = "40P01"
	StateSyntaxError         = "42601"
	StateUndefinedTable      = "42P01"
	StateUndefinedColumn     = "42703"
	StateConnectionFailure   = "08006"
)

// Classify converts a server-reported error from either pgx or lib/pq.
// Errors raised on the client side (dial, TLS, protocol) have no SQLSTATE
// and are not recognised.
func Classify(err error) (*errs.DatabaseError, bool) {
	switch e := err.(type) {
	case *pgconn.PgError:
		return &errs.DatabaseError{
			Kind:    errs.KindPostgres,
			State:   e.Code,
			Message: e.Message,
			Detail:  e.Detail,
			Hint:    e.Hint,
			Column:  e.ColumnName,
			Cause:   err,
		}, true
	case *pq.Error:
		return &errs.DatabaseError{
			Kind:    errs.KindPostgres,
			State:   string(e.Code),
			Message: e.Message,
			Detail:  e.Detail,
			Hint:    e.Hint,
			Column:  e.Column,
			Cause:   err,
		}, true
	}
	return nil, false
}
