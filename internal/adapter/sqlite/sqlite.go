// Package sqlite connects an adapter to an embedded SQLite database through
// modernc.org/sqlite.
//
// Transactions are opened with an explicit BEGIN on the adapter's pinned
// connection so the deferred, immediate and exclusive modes are all
// available. A deferred transaction does not exist on the engine side until
// its first statement, which is reported through UsePhantomQuery.
package sqlite

import (
	"context"
	"database/sql"

	_ "modernc.org/sqlite" // register "sqlite" driver

	"github.com/koustreak/sqlbridge/internal/adapter"
	"github.com/koustreak/sqlbridge/internal/adapter/sqlconn"
	"github.com/koustreak/sqlbridge/internal/errs"
)

// DriverName is the database/sql name modernc.org/sqlite registers.
const DriverName = "sqlite"

// MaxBindValues is SQLITE_MAX_VARIABLE_NUMBER for the bundled engine.
const MaxBindValues = 32766

// Dialect is the sqlconn dialect for SQLite.
var Dialect = sqlconn.Dialect{
	Provider:   adapter.ProviderSqlite,
	Classify:   Classify,
	ColumnType: ColumnType,
	Begin:      begin,
}

// Open opens dsn and pins a single connection. In-memory databases live on
// that connection only, so all work goes through it.
//
//	conn, err := sqlite.Open(ctx, "file:app.db?_pragma=foreign_keys(1)")
func Open(ctx context.Context, dsn string) (*sqlconn.Conn, error) {
	db, err := sql.Open(DriverName, dsn)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "invalid DSN", err)
	}
	db.SetMaxOpenConns(1)
	return sqlconn.Open(ctx, db, Dialect)
}

// Info describes a SQLite connection.
func Info() adapter.ConnectionInfo {
	return adapter.ConnectionInfo{SchemaName: "main", MaxBindValues: MaxBindValues}
}

func begin(ctx context.Context, c *sqlconn.Conn, mode adapter.TxMode) (adapter.TxConn, error) {
	return c.BeginStatement(ctx, beginStatement(mode), adapter.TransactionOptions{UsePhantomQuery: true})
}

func beginStatement(mode adapter.TxMode) string {
	switch mode {
	case adapter.TxModeImmediate:
		return "BEGIN IMMEDIATE"
	case adapter.TxModeExclusive:
		return "BEGIN EXCLUSIVE"
	default:
		return "BEGIN DEFERRED"
	}
}

// Primary result codes (the low byte of an extended code).
const (
	CodeBusy       = 5
	CodeLocked     = 6
	CodeReadOnly   = 8
	CodeConstraint = 19
)

// PrimaryCode strips the extended part of a result code.
func PrimaryCode(code int) int {
	return code & 0xff
}

// coder is implemented by *sqlite.Error and by libSQL-style client errors.
type coder interface {
	Code() int
}

// Classify recognises an error carrying a SQLite result code. The extended
// code is kept as reported; use PrimaryCode to compare against the primary
// codes above.
func Classify(err error) (*errs.DatabaseError, bool) {
	e, ok := err.(coder)
	if !ok {
		return nil, false
	}
	code := e.Code()
	if code == 0 {
		return nil, false
	}
	return &errs.DatabaseError{
		Kind:    errs.KindSqlite,
		Code:    code,
		Message: err.Error(),
		Cause:   err,
	}, true
}
