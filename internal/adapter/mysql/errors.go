package mysql

import (
	gomysql "github.com/go-sql-driver/mysql"

	"github.com/koustreak/sqlbridge/internal/errs"
)

// MySQL error numbers
// Full list: https://dev.mysql.com/doc/mysql-errors/8.0/en/server-error-reference.html
const (
	ErrDuplicateEntry  = 1062
	ErrNoReferencedRow = 1452
	ErrRowIsReferenced = 1451
	ErrBadFieldError   = 1054
	ErrNoSuchTable     = 1146
	ErrParseError      = 1064
	ErrLockWaitTimeout = 1205
	ErrDeadlock        = 1213
)

// Classify converts a server-reported *mysql.MySQLError. Client-side errors
// (bad connection, packet errors) carry no number and stay fatal.
func Classify(err error) (*errs.DatabaseError, bool) {
	e, ok := err.(*gomysql.MySQLError)
	if !ok {
		return nil, false
	}
	dbErr := &errs.DatabaseError{
		Kind:    errs.KindMysql,
		Code:    int(e.Number),
		Message: e.Message,
		Cause:   err,
	}
	if e.SQLState != [5]byte{} {
		dbErr.State = string(e.SQLState[:])
	}
	return dbErr, true
}
