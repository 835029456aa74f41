// Package mysql connects an adapter to MySQL or MariaDB through
// go-sql-driver/mysql.
package mysql

import (
	"context"
	"database/sql"

	gomysql "github.com/go-sql-driver/mysql"

	"github.com/koustreak/sqlbridge/internal/adapter"
	"github.com/koustreak/sqlbridge/internal/adapter/sqlconn"
	"github.com/koustreak/sqlbridge/internal/errs"
)

// MaxBindValues is the placeholder limit of the binary protocol.
const MaxBindValues = 65535

// Dialect is the sqlconn dialect for MySQL.
var Dialect = sqlconn.Dialect{
	Provider:   adapter.ProviderMysql,
	Classify:   Classify,
	ColumnType: ColumnType,
	Begin:      begin,
}

// Open parses dsn, enables the options the adapter relies on and pins a
// single connection.
func Open(ctx context.Context, dsn string) (*sqlconn.Conn, error) {
	cfg, err := ParseDSN(dsn)
	if err != nil {
		return nil, err
	}
	connector, err := gomysql.NewConnector(cfg)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "invalid DSN", err)
	}
	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(1)
	return sqlconn.Open(ctx, db, Dialect)
}

// ParseDSN parses dsn and turns on multi-statement scripts and time parsing.
func ParseDSN(dsn string) (*gomysql.Config, error) {
	cfg, err := gomysql.ParseDSN(dsn)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "invalid DSN", err)
	}
	cfg.MultiStatements = true
	cfg.ParseTime = true
	return cfg, nil
}

// Info describes a MySQL connection to the given database.
func Info(dbName string) adapter.ConnectionInfo {
	return adapter.ConnectionInfo{SchemaName: dbName, MaxBindValues: MaxBindValues}
}

func begin(ctx context.Context, c *sqlconn.Conn, mode adapter.TxMode) (adapter.TxConn, error) {
	var opts *sql.TxOptions
	if mode == adapter.TxModeReadOnly {
		opts = &sql.TxOptions{ReadOnly: true}
	}
	return c.BeginTx(ctx, opts, adapter.TransactionOptions{})
}
