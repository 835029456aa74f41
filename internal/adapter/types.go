package adapter

import "context"

// Provider identifies the database engine behind an adapter.
type Provider string

const (
	ProviderSqlite   Provider = "sqlite"
	ProviderPostgres Provider = "postgres"
	ProviderMysql    Provider = "mysql"
)

// Query is a SQL statement plus its positional arguments. Adapters never
// modify a Query they are given.
type Query struct {
	SQL  string
	Args []any
}

// ResultSet is the normalised result of QueryRaw. ColumnTypes and every row
// are aligned positionally with ColumnNames.
type ResultSet struct {
	ColumnNames []string
	ColumnTypes []ColumnType
	Rows        [][]any
}

// TxMode selects how a transaction is opened. Engines without a matching
// concept treat every mode other than TxModeReadOnly as TxModeDeferred.
type TxMode string

const (
	TxModeDeferred  TxMode = "deferred"
	TxModeImmediate TxMode = "immediate"
	TxModeExclusive TxMode = "exclusive"
	TxModeReadOnly  TxMode = "read_only"
)

// Valid reports whether m is one of the known modes.
func (m TxMode) Valid() bool {
	switch m {
	case TxModeDeferred, TxModeImmediate, TxModeExclusive, TxModeReadOnly:
		return true
	}
	return false
}

// TransactionOptions describes how the caller must drive a transaction.
type TransactionOptions struct {
	// UsePhantomQuery is set when the engine opens transactions lazily, so a
	// no-op statement is needed before the transaction exists server-side.
	UsePhantomQuery bool
}

// ConnectionInfo describes the wrapped connection to the client runtime.
type ConnectionInfo struct {
	SchemaName    string
	MaxBindValues int
}

// Queryable runs single raw statements against one connection handle.
type Queryable interface {
	Provider() Provider
	AdapterName() string

	// QueryRaw executes q and returns every row, normalised.
	QueryRaw(ctx context.Context, q Query) (*ResultSet, error)

	// ExecuteRaw executes q and returns the number of affected rows. Counts
	// above math.MaxInt32 are clamped and a warning is logged.
	ExecuteRaw(ctx context.Context, q Query) (int32, error)
}

// Transaction is an open unit of work. Exactly one of Commit or Rollback may
// be called; afterwards every method returns errs.ErrTransactionClosed.
type Transaction interface {
	Queryable
	Options() TransactionOptions
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionContext holds the connection lock until StartTransaction hands
// it to a Transaction. It can start at most one transaction.
type TransactionContext interface {
	Queryable
	StartTransaction(ctx context.Context) (Transaction, error)
}

// DriverAdapter is the contract exposed to the client runtime.
type DriverAdapter interface {
	Queryable
	TransactionContext(ctx context.Context) (TransactionContext, error)
	ExecuteScript(ctx context.Context, script string) error
	ConnectionInfo() ConnectionInfo
	Close(ctx context.Context) error
}
