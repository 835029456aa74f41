package postgres

import (
	"context"
	"database/sql"

	_ "github.com/lib/pq" // register "postgres" driver

	"github.com/koustreak/sqlbridge/internal/adapter"
	"github.com/koustreak/sqlbridge/internal/adapter/sqlconn"
	"github.com/koustreak/sqlbridge/internal/errs"
)

// PQDialect is the sqlconn dialect for PostgreSQL over lib/pq.
var PQDialect = sqlconn.Dialect{
	Provider:   adapter.ProviderPostgres,
	Classify:   Classify,
	ColumnType: ColumnTypeName,
	Begin:      beginPQ,
}

// OpenPQ connects through database/sql and lib/pq and pins one connection.
func OpenPQ(ctx context.Context, dsn string) (*sqlconn.Conn, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "invalid DSN", err)
	}
	db.SetMaxOpenConns(1)
	return sqlconn.Open(ctx, db, PQDialect)
}

func beginPQ(ctx context.Context, c *sqlconn.Conn, mode adapter.TxMode) (adapter.TxConn, error) {
	var opts *sql.TxOptions
	if mode == adapter.TxModeReadOnly {
		opts = &sql.TxOptions{ReadOnly: true}
	}
	return c.BeginTx(ctx, opts, adapter.TransactionOptions{})
}
