package adapter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/koustreak/sqlbridge/internal/errs"
	"github.com/koustreak/sqlbridge/internal/logger"
)

func newTestAdapter(conn *fakeConn, opts ...Option) *Adapter {
	return New(conn, opts...)
}

func errKind(t *testing.T, err error) errs.ErrKind {
	t.Helper()
	var e *errs.Error
	require.True(t, errors.As(err, &e), "expected *errs.Error, got %T", err)
	return e.Kind
}

func TestAdapter_Names(t *testing.T) {
	ad := newTestAdapter(&fakeConn{})
	assert.Equal(t, ProviderSqlite, ad.Provider())
	assert.Equal(t, "sqlbridge-sqlite", ad.AdapterName())

	named := newTestAdapter(&fakeConn{}, WithName("libsql"), WithConnectionInfo(ConnectionInfo{MaxBindValues: 999}))
	assert.Equal(t, "libsql", named.AdapterName())
	assert.Equal(t, 999, named.ConnectionInfo().MaxBindValues)
}

func TestQueryRaw_InfersColumnTypes(t *testing.T) {
	conn := &fakeConn{
		queryFn: func(context.Context, Query) (*RawResult, error) {
			return &RawResult{
				Columns:       []string{"a", "b", "c"},
				DeclaredTypes: []ColumnType{ColumnTypeUnknown, ColumnTypeText, ColumnTypeUnknown},
				Rows: rows(
					[]any{nil, "x", nil},
					[]any{nil, "y", nil},
					[]any{int64(5), nil, nil},
					[]any{nil, "z", nil},
				),
			}, nil
		},
	}
	ad := newTestAdapter(conn)

	rs, err := ad.QueryRaw(context.Background(), Query{SQL: "SELECT a, b, c FROM t"})
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "c"}, rs.ColumnNames)
	assert.Equal(t, []ColumnType{ColumnTypeInt64, ColumnTypeText, ColumnTypeUnknown}, rs.ColumnTypes)
	require.Len(t, rs.Rows, 4)
	assert.Equal(t, int64(5), rs.Rows[2][0])
	assert.Nil(t, rs.Rows[2][1])
	assert.Equal(t, "x", rs.Rows[0][1])
}

func TestQueryRaw_ConversionFailureReturnsNoRows(t *testing.T) {
	conn := &fakeConn{
		queryFn: func(context.Context, Query) (*RawResult, error) {
			return &RawResult{
				Columns:       []string{"n"},
				DeclaredTypes: []ColumnType{ColumnTypeInt32},
				Rows:          rows([]any{int64(1)}, []any{"abc"}),
			}, nil
		},
	}
	ad := newTestAdapter(conn)

	rs, err := ad.QueryRaw(context.Background(), Query{SQL: "SELECT n FROM t"})
	require.Error(t, err)
	assert.Nil(t, rs)
	assert.Equal(t, errs.ErrKindConversion, errKind(t, err))
	assert.True(t, errs.IsFatal(err))
}

func TestQueryRaw_LockHeldDuringCallAndReleasedOnError(t *testing.T) {
	var ad *Adapter
	var heldInside bool
	conn := &fakeConn{
		queryFn: func(context.Context, Query) (*RawResult, error) {
			heldInside = ad.LockStats().Held()
			return nil, errors.New("socket closed")
		},
	}
	ad = newTestAdapter(conn)

	_, err := ad.QueryRaw(context.Background(), Query{SQL: "SELECT 1"})
	require.Error(t, err)

	assert.True(t, heldInside)
	stats := ad.LockStats()
	assert.False(t, stats.Held())
	assert.Equal(t, int64(1), stats.Acquired)
	assert.Equal(t, int64(1), stats.Released)
}

func TestQueryRaw_ErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		fatal    bool
		kind     errs.ErrKind
	}{
		{
			name:     "code on error",
			err:      &engineErr{rawCode: 19, msg: "UNIQUE constraint failed: users.email"},
			wantCode: 19,
		},
		{
			name:     "code on wrapped error",
			err:      fmt.Errorf("execute: %w", &engineErr{rawCode: 19, msg: "constraint failed"}),
			wantCode: 19,
		},
		{
			name:     "code under cause",
			err:      &engineErr{msg: "SQLITE_CONSTRAINT", cause: &engineErr{rawCode: 2067, msg: "UNIQUE constraint failed"}},
			wantCode: 2067,
		},
		{
			name:  "no code anywhere",
			err:   &engineErr{msg: "hrana stream closed", cause: errors.New("EOF")},
			fatal: true,
			kind:  errs.ErrKindDriver,
		},
		{
			name:  "deadline",
			err:   fmt.Errorf("read: %w", context.DeadlineExceeded),
			fatal: true,
			kind:  errs.ErrKindTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := &fakeConn{
				execFn: func(context.Context, Query) (*ExecResult, error) { return nil, tt.err },
			}
			ad := newTestAdapter(conn)

			n, err := ad.ExecuteRaw(context.Background(), Query{SQL: "INSERT INTO users VALUES (?)", Args: []any{"a@b.c"}})
			require.Error(t, err)
			assert.Zero(t, n)

			if tt.fatal {
				assert.True(t, errs.IsFatal(err))
				_, ok := errs.AsDatabaseError(err)
				assert.False(t, ok)
				assert.Equal(t, tt.kind, errKind(t, err))
				return
			}

			dbErr, ok := errs.AsDatabaseError(err)
			require.True(t, ok)
			assert.Equal(t, errs.KindSqlite, dbErr.Kind)
			assert.Equal(t, tt.wantCode, dbErr.Code)
			assert.NotEmpty(t, dbErr.Message)
			assert.False(t, errs.IsFatal(err))
		})
	}
}

func TestExecuteRaw_AffectedRows(t *testing.T) {
	tests := []struct {
		name string
		res  *ExecResult
		want int32
	}{
		{name: "absent count", res: &ExecResult{}, want: 0},
		{name: "nil result", res: nil, want: 0},
		{name: "count", res: &ExecResult{RowsAffected: int64p(3)}, want: 3},
		{name: "narrowed", res: &ExecResult{RowsAffected: int64p(math.MaxInt32 + 10)}, want: math.MaxInt32},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := &fakeConn{
				execFn: func(context.Context, Query) (*ExecResult, error) { return tt.res, nil },
			}
			ad := newTestAdapter(conn)

			n, err := ad.ExecuteRaw(context.Background(), Query{SQL: "DELETE FROM t"})
			require.NoError(t, err)
			assert.Equal(t, tt.want, n)
		})
	}
}

func TestExecuteRaw_NarrowingIsLogged(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(&logger.Config{Level: "warn", Format: "json", Output: &buf})
	conn := &fakeConn{
		execFn: func(context.Context, Query) (*ExecResult, error) {
			return &ExecResult{RowsAffected: int64p(math.MaxInt32 + 1)}, nil
		},
	}
	ad := newTestAdapter(conn, WithLogger(log))

	_, err := ad.ExecuteRaw(context.Background(), Query{SQL: "UPDATE big SET x = 1"})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "affected row count narrowed")
	assert.Contains(t, buf.String(), `"rows_affected":2147483648`)
}

func TestQueryRaw_ConcurrentCallersAreSerialised(t *testing.T) {
	var inFlight, maxInFlight atomic.Int32
	conn := &fakeConn{
		queryFn: func(_ context.Context, q Query) (*RawResult, error) {
			n := inFlight.Add(1)
			defer inFlight.Add(-1)
			if n > maxInFlight.Load() {
				maxInFlight.Store(n)
			}
			time.Sleep(time.Millisecond)
			return &RawResult{
				Columns: []string{"q"},
				Rows:    rows([]any{q.Args[0]}, []any{q.Args[0]}),
			}, nil
		},
	}
	ad := newTestAdapter(conn)

	var g errgroup.Group
	for i := 0; i < 16; i++ {
		g.Go(func() error {
			rs, err := ad.QueryRaw(context.Background(), Query{SQL: "SELECT ?", Args: []any{int64(i)}})
			if err != nil {
				return err
			}
			for _, row := range rs.Rows {
				if row[0] != int64(i) {
					return fmt.Errorf("caller %d saw %v", i, row[0])
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int32(1), maxInFlight.Load())
	stats := ad.LockStats()
	assert.Equal(t, int64(16), stats.Acquired)
	assert.Equal(t, int64(16), stats.Released)
}

func TestQueryRaw_LockWaitHonoursContext(t *testing.T) {
	ad := newTestAdapter(&fakeConn{})

	tc, err := ad.TransactionContext(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = ad.QueryRaw(ctx, Query{SQL: "SELECT 1"})
	require.Error(t, err)
	assert.True(t, errs.IsTimeout(err))

	tx, err := tc.StartTransaction(context.Background())
	require.NoError(t, err)
	require.NoError(t, tx.Rollback(context.Background()))
}

func TestExecuteScript(t *testing.T) {
	conn := &fakeConn{}
	ad := newTestAdapter(conn)

	require.NoError(t, ad.ExecuteScript(context.Background(), "CREATE TABLE t (id INTEGER); INSERT INTO t VALUES (1);"))
	assert.Contains(t, conn.calls, "script:CREATE TABLE t (id INTEGER); INSERT INTO t VALUES (1);")

	conn.scriptErr = &engineErr{rawCode: 1, msg: "near \"CREAT\": syntax error"}
	err := ad.ExecuteScript(context.Background(), "CREAT TABLE x")
	dbErr, ok := errs.AsDatabaseError(err)
	require.True(t, ok)
	assert.Equal(t, 1, dbErr.Code)
	assert.False(t, ad.LockStats().Held())
}

func TestClose(t *testing.T) {
	conn := &fakeConn{}
	ad := newTestAdapter(conn)

	require.NoError(t, ad.Close(context.Background()))
	assert.True(t, conn.closed)
	assert.NoError(t, ad.Close(context.Background()))

	_, err := ad.QueryRaw(context.Background(), Query{SQL: "SELECT 1"})
	assert.ErrorIs(t, err, errs.ErrAdapterClosed)
	_, err = ad.ExecuteRaw(context.Background(), Query{SQL: "SELECT 1"})
	assert.ErrorIs(t, err, errs.ErrAdapterClosed)
	_, err = ad.TransactionContext(context.Background())
	assert.ErrorIs(t, err, errs.ErrAdapterClosed)
	assert.ErrorIs(t, ad.ExecuteScript(context.Background(), "SELECT 1"), errs.ErrAdapterClosed)
}

func TestClose_QueuedCallersSeeClosedAdapter(t *testing.T) {
	conn := &fakeConn{}
	ad := newTestAdapter(conn)
	tx := startTx(t, ad)

	queried := make(chan error, 1)
	go func() {
		_, err := ad.QueryRaw(context.Background(), Query{SQL: "SELECT 1"})
		queried <- err
	}()
	time.Sleep(20 * time.Millisecond)

	closed := make(chan error, 1)
	go func() { closed <- ad.Close(context.Background()) }()
	time.Sleep(20 * time.Millisecond)

	require.NoError(t, tx.Commit(context.Background()))

	select {
	case err := <-queried:
		assert.ErrorIs(t, err, errs.ErrAdapterClosed)
	case <-time.After(time.Second):
		t.Fatal("queued query did not return")
	}
	select {
	case err := <-closed:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Close did not return")
	}
	assert.NotContains(t, conn.calls, "query:SELECT 1")
}

func TestClose_WaitsForOpenTransaction(t *testing.T) {
	conn := &fakeConn{}
	ad := newTestAdapter(conn)

	tc, err := ad.TransactionContext(context.Background())
	require.NoError(t, err)
	tx, err := tc.StartTransaction(context.Background())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- ad.Close(context.Background()) }()

	select {
	case <-done:
		t.Fatal("Close returned while a transaction held the connection")
	case <-time.After(30 * time.Millisecond):
	}

	require.NoError(t, tx.Commit(context.Background()))
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Close did not return after commit")
	}
	assert.True(t, conn.closed)
}
