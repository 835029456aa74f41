package sqlconn

import (
	"context"
	"database/sql"

	"github.com/koustreak/sqlbridge/internal/adapter"
)

// Handle is satisfied by *sql.Conn, *sql.Tx and *sql.DB.
type Handle interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Executor runs statements on a Handle and returns raw driver values.
type Executor struct {
	h          Handle
	columnType func(string) adapter.ColumnType
}

var _ adapter.Executor = (*Executor)(nil)

func NewExecutor(h Handle, columnType func(string) adapter.ColumnType) *Executor {
	return &Executor{h: h, columnType: columnType}
}

func (e *Executor) Query(ctx context.Context, q adapter.Query) (*adapter.RawResult, error) {
	rows, err := e.h.QueryContext(ctx, q.SQL, q.Args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	res := &adapter.RawResult{
		Columns:       cols,
		DeclaredTypes: make([]adapter.ColumnType, len(cols)),
		Rows:          [][]any{},
	}
	if e.columnType != nil {
		if cts, err := rows.ColumnTypes(); err == nil {
			for i, ct := range cts {
				res.DeclaredTypes[i] = e.columnType(ct.DatabaseTypeName())
			}
		}
	}

	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		res.Rows = append(res.Rows, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

func (e *Executor) Exec(ctx context.Context, q adapter.Query) (*adapter.ExecResult, error) {
	r, err := e.h.ExecContext(ctx, q.SQL, q.Args...)
	if err != nil {
		return nil, err
	}
	n, err := r.RowsAffected()
	if err != nil {
		// Driver cannot report a count.
		return &adapter.ExecResult{}, nil
	}
	return &adapter.ExecResult{RowsAffected: &n}, nil
}
