// Package sqlconn implements adapter.Conn on top of a dedicated *sql.Conn.
// Engine packages supply a Dialect for the parts that differ: error
// classification, declared-type mapping and how a transaction is opened.
package sqlconn

import (
	"context"
	"database/sql"
	"errors"

	"github.com/koustreak/sqlbridge/internal/adapter"
	"github.com/koustreak/sqlbridge/internal/errs"
)

// Dialect describes one database/sql driver.
type Dialect struct {
	Provider adapter.Provider

	// Classify recognises a single engine error value.
	Classify func(err error) (*errs.DatabaseError, bool)

	// ColumnType maps sql.ColumnType.DatabaseTypeName to a ColumnType.
	// Returning ColumnTypeUnknown leaves the column to value inference.
	ColumnType func(dbType string) adapter.ColumnType

	// Begin opens a transaction on c. Nil means BeginTx with default options.
	Begin func(ctx context.Context, c *Conn, mode adapter.TxMode) (adapter.TxConn, error)
}

// Conn is a single physical connection taken out of a *sql.DB. The pool is
// owned by Conn and closed with it.
type Conn struct {
	db      *sql.DB
	conn    *sql.Conn
	dialect Dialect
	exec    *Executor
}

var _ adapter.Conn = (*Conn)(nil)

// Open pins one connection of db and pings it. On failure db is closed.
func Open(ctx context.Context, db *sql.DB, d Dialect) (*Conn, error) {
	conn, err := db.Conn(ctx)
	if err != nil {
		_ = db.Close()
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "failed to acquire connection", err)
	}
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		_ = db.Close()
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "ping failed", err)
	}
	return &Conn{
		db:      db,
		conn:    conn,
		dialect: d,
		exec:    NewExecutor(conn, d.ColumnType),
	}, nil
}

func (c *Conn) Provider() adapter.Provider { return c.dialect.Provider }

func (c *Conn) Classify(err error) (*errs.DatabaseError, bool) {
	if c.dialect.Classify == nil {
		return nil, false
	}
	return c.dialect.Classify(err)
}

func (c *Conn) Query(ctx context.Context, q adapter.Query) (*adapter.RawResult, error) {
	return c.exec.Query(ctx, q)
}

func (c *Conn) Exec(ctx context.Context, q adapter.Query) (*adapter.ExecResult, error) {
	return c.exec.Exec(ctx, q)
}

// ExecuteScript sends script as one statement batch. The driver must accept
// multiple statements per call.
func (c *Conn) ExecuteScript(ctx context.Context, script string) error {
	_, err := c.conn.ExecContext(ctx, script)
	return err
}

func (c *Conn) Begin(ctx context.Context, mode adapter.TxMode) (adapter.TxConn, error) {
	if c.dialect.Begin != nil {
		return c.dialect.Begin(ctx, c, mode)
	}
	return c.BeginTx(ctx, nil, adapter.TransactionOptions{})
}

func (c *Conn) Close(context.Context) error {
	return errors.Join(c.conn.Close(), c.db.Close())
}

// BeginTx opens a database/sql transaction on the pinned connection.
func (c *Conn) BeginTx(ctx context.Context, opts *sql.TxOptions, txo adapter.TransactionOptions) (adapter.TxConn, error) {
	tx, err := c.conn.BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &sqlTx{
		Executor: NewExecutor(tx, c.dialect.ColumnType),
		tx:       tx,
		opts:     txo,
	}, nil
}

// BeginStatement opens a transaction by running begin on the pinned
// connection and ends it with plain COMMIT / ROLLBACK statements. Used for
// engines whose BEGIN takes a mode database/sql cannot express.
func (c *Conn) BeginStatement(ctx context.Context, begin string, txo adapter.TransactionOptions) (adapter.TxConn, error) {
	if _, err := c.conn.ExecContext(ctx, begin); err != nil {
		return nil, err
	}
	return &stmtTx{
		Executor: c.exec,
		conn:     c.conn,
		opts:     txo,
	}, nil
}

type sqlTx struct {
	*Executor
	tx   *sql.Tx
	opts adapter.TransactionOptions
}

func (t *sqlTx) Options() adapter.TransactionOptions { return t.opts }

func (t *sqlTx) Commit(context.Context) error { return t.tx.Commit() }

func (t *sqlTx) Rollback(context.Context) error { return t.tx.Rollback() }

type stmtTx struct {
	*Executor
	conn *sql.Conn
	opts adapter.TransactionOptions
}

func (t *stmtTx) Options() adapter.TransactionOptions { return t.opts }

func (t *stmtTx) Commit(ctx context.Context) error {
	_, err := t.conn.ExecContext(ctx, "COMMIT")
	return err
}

func (t *stmtTx) Rollback(ctx context.Context) error {
	_, err := t.conn.ExecContext(ctx, "ROLLBACK")
	return err
}
