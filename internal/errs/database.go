package errs

import (
	"errors"
	"fmt"
)

// DatabaseKind names the engine that produced a DatabaseError.
type DatabaseKind string

const (
	KindSqlite   DatabaseKind = "Sqlite"
	KindPostgres DatabaseKind = "Postgres"
	KindMysql    DatabaseKind = "Mysql"
)

// DatabaseError is a recoverable query-level failure reported by the engine.
//
// Code is the numeric code where the engine has one: the extended result code
// for SQLite, the error number for MySQL. State is the SQLSTATE for engines
// that report one.
type DatabaseError struct {
	Kind    DatabaseKind
	Code    int
	State   string
	Message string
	Detail  string
	Hint    string
	Column  string
	Cause   error
}

func (e *DatabaseError) Error() string {
	switch {
	case e.State != "" && e.Code != 0:
		return fmt.Sprintf("%s error %d (%s): %s", e.Kind, e.Code, e.State, e.Message)
	case e.State != "":
		return fmt.Sprintf("%s error %s: %s", e.Kind, e.State, e.Message)
	default:
		return fmt.Sprintf("%s error %d: %s", e.Kind, e.Code, e.Message)
	}
}

func (e *DatabaseError) Unwrap() error {
	return e.Cause
}

// AsDatabaseError returns the *DatabaseError in err's chain, if any.
func AsDatabaseError(err error) (*DatabaseError, bool) {
	var dbErr *DatabaseError
	if errors.As(err, &dbErr) {
		return dbErr, true
	}
	return nil, false
}

// MaxCauseDepth bounds FindCause. Cause chains deeper than this are treated
// as carrying no recognisable code.
const MaxCauseDepth = 8

// FindCause walks err and its causes, at most maxDepth links deep, and
// returns the first value match accepts. A link is followed through
// Unwrap() error, Unwrap() []error (each branch in order) or, failing
// those, Cause() error.
func FindCause[T any](err error, maxDepth int, match func(error) (T, bool)) (T, bool) {
	var zero T
	if err == nil || maxDepth < 0 {
		return zero, false
	}
	if v, ok := match(err); ok {
		return v, true
	}

	switch e := err.(type) {
	case interface{ Unwrap() error }:
		return FindCause(e.Unwrap(), maxDepth-1, match)
	case interface{ Unwrap() []error }:
		for _, branch := range e.Unwrap() {
			if v, ok := FindCause(branch, maxDepth-1, match); ok {
				return v, true
			}
		}
	case interface{ Cause() error }:
		return FindCause(e.Cause(), maxDepth-1, match)
	}
	return zero, false
}
