package adapter

import (
	"context"
	"sync"

	"github.com/koustreak/sqlbridge/internal/errs"
)

// engineErr mimics a driver error that carries a raw result code and may
// nest the interesting error under a cause field.
type engineErr struct {
	rawCode int
	msg     string
	cause   error
}

func (e *engineErr) Error() string { return e.msg }
func (e *engineErr) Cause() error  { return e.cause }

// fakeConn is a scripted Conn. Hooks run while the adapter holds its lock.
type fakeConn struct {
	mu sync.Mutex

	queryFn func(ctx context.Context, q Query) (*RawResult, error)
	execFn  func(ctx context.Context, q Query) (*ExecResult, error)

	beginErr    error
	commitErr   error
	rollbackErr error
	scriptErr   error
	closeErr    error

	calls     []string
	begins    int
	commits   int
	rollbacks int
	closed    bool
	endCtxErr error // ctx.Err() seen by the last Commit or Rollback
}

func (c *fakeConn) record(call string) {
	c.mu.Lock()
	c.calls = append(c.calls, call)
	c.mu.Unlock()
}

func (c *fakeConn) Provider() Provider { return ProviderSqlite }

func (c *fakeConn) Classify(err error) (*errs.DatabaseError, bool) {
	e, ok := err.(*engineErr)
	if !ok || e.rawCode == 0 {
		return nil, false
	}
	return &errs.DatabaseError{
		Kind:    errs.KindSqlite,
		Code:    e.rawCode,
		Message: e.msg,
		Cause:   e,
	}, true
}

func (c *fakeConn) Query(ctx context.Context, q Query) (*RawResult, error) {
	c.record("query:" + q.SQL)
	if c.queryFn != nil {
		return c.queryFn(ctx, q)
	}
	return &RawResult{}, nil
}

func (c *fakeConn) Exec(ctx context.Context, q Query) (*ExecResult, error) {
	c.record("exec:" + q.SQL)
	if c.execFn != nil {
		return c.execFn(ctx, q)
	}
	return &ExecResult{}, nil
}

func (c *fakeConn) ExecuteScript(_ context.Context, script string) error {
	c.record("script:" + script)
	return c.scriptErr
}

func (c *fakeConn) Begin(_ context.Context, mode TxMode) (TxConn, error) {
	c.mu.Lock()
	c.begins++
	c.mu.Unlock()
	c.record("begin:" + string(mode))
	if c.beginErr != nil {
		return nil, c.beginErr
	}
	return &fakeTx{conn: c}, nil
}

func (c *fakeConn) Close(context.Context) error {
	c.closed = true
	return c.closeErr
}

type fakeTx struct {
	conn *fakeConn
}

func (t *fakeTx) Query(ctx context.Context, q Query) (*RawResult, error) {
	return t.conn.Query(ctx, q)
}

func (t *fakeTx) Exec(ctx context.Context, q Query) (*ExecResult, error) {
	return t.conn.Exec(ctx, q)
}

func (t *fakeTx) Options() TransactionOptions {
	return TransactionOptions{UsePhantomQuery: true}
}

func (t *fakeTx) Commit(ctx context.Context) error {
	t.conn.mu.Lock()
	t.conn.endCtxErr = ctx.Err()
	t.conn.commits++
	t.conn.mu.Unlock()
	t.conn.record("commit")
	return t.conn.commitErr
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	t.conn.mu.Lock()
	t.conn.endCtxErr = ctx.Err()
	t.conn.rollbacks++
	t.conn.mu.Unlock()
	t.conn.record("rollback")
	return t.conn.rollbackErr
}

func rows(r ...[]any) [][]any { return r }

func int64p(n int64) *int64 { return &n }
