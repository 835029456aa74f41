// Package adapter is the query/transaction layer that sits between a
// generated client and a concrete database connection.
//
// One Adapter wraps exactly one physical connection. Every round-trip on that
// connection is serialised by a single Lock owned by the Adapter:
//
//	ad := adapter.New(conn, adapter.WithLogger(log))
//
//	rs, err := ad.QueryRaw(ctx, adapter.Query{SQL: "SELECT id FROM users"})
//
//	tc, err := ad.TransactionContext(ctx) // lock acquired here
//	tx, err := tc.StartTransaction(ctx)   // lock ownership moves to tx
//	_, err = tx.ExecuteRaw(ctx, q)
//	err = tx.Commit(ctx)                  // lock released here
//
// Query-level failures reported by the engine come back as
// *errs.DatabaseError; anything else is a fatal *errs.Error.
package adapter

import (
	"context"
	"sync/atomic"

	"github.com/koustreak/sqlbridge/internal/errs"
)

// Adapter is the root Queryable for one physical connection. It is safe for
// concurrent use; calls are executed one at a time in lock order.
type Adapter struct {
	*queryable
	connLock *Lock
	conn     Conn
	info     ConnectionInfo
	txMode   TxMode
	closed   atomic.Bool
}

var _ DriverAdapter = (*Adapter)(nil)

// New wraps conn. The caller hands ownership of conn to the Adapter; it must
// not be used directly afterwards.
func New(conn Conn, opts ...Option) *Adapter {
	o := defaultOptions(conn)
	for _, opt := range opts {
		opt(&o)
	}

	lock := NewLock()
	log := o.logger.With().
		Str("adapter", o.name).
		Str("provider", string(conn.Provider())).
		Logger()

	a := &Adapter{
		queryable: newQueryable(conn, conn, lock, o.name, log),
		connLock:  lock,
		conn:      conn,
		info:      o.info,
		txMode:    o.txMode,
	}
	a.guard = a.checkOpen
	return a
}

// TransactionContext acquires the connection lock and returns a one-shot
// factory for a single Transaction. The lock stays held until that
// transaction ends, or until StartTransaction fails.
func (a *Adapter) TransactionContext(ctx context.Context) (TransactionContext, error) {
	if a.closed.Load() {
		return nil, errs.ErrAdapterClosed
	}
	release, err := a.connLock.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	if err := a.checkOpen(); err != nil {
		release()
		return nil, err
	}
	tc := &txContext{
		queryable: newQueryable(a.conn, a.conn, NewLock(), a.name, a.log),
		conn:      a.conn,
		mode:      a.txMode,
		release:   release,
	}
	tc.guard = tc.checkOpen
	return tc, nil
}

// ExecuteScript runs a multi-statement script under the connection lock.
func (a *Adapter) ExecuteScript(ctx context.Context, script string) error {
	if a.closed.Load() {
		return errs.ErrAdapterClosed
	}
	a.log.Query("execute_script", script, nil)

	release, err := a.lock.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	if err := a.checkOpen(); err != nil {
		return err
	}
	if err := a.conn.ExecuteScript(ctx, script); err != nil {
		return a.mapError(err, "script failed")
	}
	return nil
}

// checkOpen is repeated once the lock is held: callers queued behind Close
// must not reach the closed connection.
func (a *Adapter) checkOpen() error {
	if a.closed.Load() {
		return errs.ErrAdapterClosed
	}
	return nil
}

// ConnectionInfo describes the connection the adapter wraps.
func (a *Adapter) ConnectionInfo() ConnectionInfo {
	return a.info
}

// LockStats reports the connection lock's counters.
func (a *Adapter) LockStats() LockStats {
	return a.connLock.Stats()
}

// Close waits for the connection lock, so in-flight work and any open
// transaction finish first, then closes the physical connection.
func (a *Adapter) Close(ctx context.Context) error {
	if !a.closed.CompareAndSwap(false, true) {
		return nil
	}
	release, err := a.connLock.Acquire(ctx)
	if err != nil {
		a.closed.Store(false)
		return err
	}
	defer release()

	a.log.Debug("closing connection")
	if err := a.conn.Close(ctx); err != nil {
		return errs.Wrap(errs.ErrKindDriver, "close failed", err)
	}
	return nil
}

// QueryRaw executes q on the root connection.
func (a *Adapter) QueryRaw(ctx context.Context, q Query) (*ResultSet, error) {
	if a.closed.Load() {
		return nil, errs.ErrAdapterClosed
	}
	return a.queryable.QueryRaw(ctx, q)
}

// ExecuteRaw executes q on the root connection and returns the affected row count.
func (a *Adapter) ExecuteRaw(ctx context.Context, q Query) (int32, error) {
	if a.closed.Load() {
		return 0, errs.ErrAdapterClosed
	}
	return a.queryable.ExecuteRaw(ctx, q)
}
