package adapter

import (
	"context"

	"github.com/koustreak/sqlbridge/internal/errs"
)

// RawResult is what a driver returns for a statement, before normalisation.
type RawResult struct {
	Columns []string

	// DeclaredTypes holds the driver-reported type per column.
	// ColumnTypeUnknown means the driver did not report one.
	DeclaredTypes []ColumnType

	Rows [][]any
}

// ExecResult is what a driver returns for a statement run for its effect.
type ExecResult struct {
	// RowsAffected is nil when the driver cannot report a count.
	RowsAffected *int64
}

// Executor runs one statement on a connection handle.
type Executor interface {
	Query(ctx context.Context, q Query) (*RawResult, error)
	Exec(ctx context.Context, q Query) (*ExecResult, error)
}

// Conn is the root connection handle supplied by a driver package.
// Implementations need not be safe for concurrent use.
type Conn interface {
	Executor

	Provider() Provider

	// Classify inspects a single error value (not its causes) and reports
	// whether it is a recognised engine error.
	Classify(err error) (*errs.DatabaseError, bool)

	ExecuteScript(ctx context.Context, script string) error
	Begin(ctx context.Context, mode TxMode) (TxConn, error)
	Close(ctx context.Context) error
}

// TxConn is the handle of an open transaction on a Conn.
type TxConn interface {
	Executor
	Options() TransactionOptions
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}
