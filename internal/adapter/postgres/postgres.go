// Package postgres connects an adapter to PostgreSQL. Open uses a native
// pgx connection; OpenPQ goes through database/sql and lib/pq for
// deployments that standardise on it.
package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	jsoniter "github.com/json-iterator/go"

	"github.com/koustreak/sqlbridge/internal/adapter"
	"github.com/koustreak/sqlbridge/internal/errs"
)

// MaxBindValues is the protocol limit on parameters per statement.
const MaxBindValues = 32767

// Conn is one pgx connection.
type Conn struct {
	conn *pgx.Conn
	exec *executor
}

var _ adapter.Conn = (*Conn)(nil)

// Open connects to dsn, which may be a URL or a keyword/value string.
func Open(ctx context.Context, dsn string) (*Conn, error) {
	cfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "invalid DSN", err)
	}
	conn, err := pgx.ConnectConfig(ctx, cfg)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "failed to connect", err)
	}
	return &Conn{conn: conn, exec: &executor{q: conn}}, nil
}

// Info describes a PostgreSQL connection using schema.
func Info(schema string) adapter.ConnectionInfo {
	return adapter.ConnectionInfo{SchemaName: schema, MaxBindValues: MaxBindValues}
}

func (c *Conn) Provider() adapter.Provider { return adapter.ProviderPostgres }

func (c *Conn) Classify(err error) (*errs.DatabaseError, bool) { return Classify(err) }

func (c *Conn) Query(ctx context.Context, q adapter.Query) (*adapter.RawResult, error) {
	return c.exec.Query(ctx, q)
}

func (c *Conn) Exec(ctx context.Context, q adapter.Query) (*adapter.ExecResult, error) {
	return c.exec.Exec(ctx, q)
}

// ExecuteScript runs script over the simple protocol, which accepts several
// statements in one message.
func (c *Conn) ExecuteScript(ctx context.Context, script string) error {
	_, err := c.conn.PgConn().Exec(ctx, script).ReadAll()
	return err
}

func (c *Conn) Begin(ctx context.Context, mode adapter.TxMode) (adapter.TxConn, error) {
	tx, err := c.conn.BeginTx(ctx, txOptions(mode))
	if err != nil {
		return nil, err
	}
	return &pgTx{executor: &executor{q: tx}, tx: tx}, nil
}

func (c *Conn) Close(ctx context.Context) error {
	return c.conn.Close(ctx)
}

func txOptions(mode adapter.TxMode) pgx.TxOptions {
	if mode == adapter.TxModeReadOnly {
		return pgx.TxOptions{AccessMode: pgx.ReadOnly}
	}
	return pgx.TxOptions{}
}

type pgTx struct {
	*executor
	tx pgx.Tx
}

func (t *pgTx) Options() adapter.TransactionOptions { return adapter.TransactionOptions{} }

func (t *pgTx) Commit(ctx context.Context) error { return t.tx.Commit(ctx) }

func (t *pgTx) Rollback(ctx context.Context) error { return t.tx.Rollback(ctx) }

// querier is satisfied by *pgx.Conn and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type executor struct {
	q querier
}

func (e *executor) Query(ctx context.Context, q adapter.Query) (*adapter.RawResult, error) {
	rows, err := e.q.Query(ctx, q.SQL, q.Args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	res := &adapter.RawResult{
		Columns:       make([]string, len(fields)),
		DeclaredTypes: make([]adapter.ColumnType, len(fields)),
		Rows:          [][]any{},
	}
	for i, f := range fields {
		res.Columns[i] = f.Name
		res.DeclaredTypes[i] = ColumnTypeOID(f.DataTypeOID)
	}

	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, err
		}
		for i, v := range vals {
			if v == nil || res.DeclaredTypes[i] != adapter.ColumnTypeJson {
				continue
			}
			// pgx decodes json into Go values; keep the document instead.
			raw, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(v)
			if err != nil {
				return nil, err
			}
			vals[i] = raw
		}
		res.Rows = append(res.Rows, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

func (e *executor) Exec(ctx context.Context, q adapter.Query) (*adapter.ExecResult, error) {
	tag, err := e.q.Exec(ctx, q.SQL, q.Args...)
	if err != nil {
		return nil, err
	}
	n := tag.RowsAffected()
	return &adapter.ExecResult{RowsAffected: &n}, nil
}
