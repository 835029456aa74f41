package adapter

import (
	"context"
	"sync/atomic"

	"github.com/koustreak/sqlbridge/internal/errs"
)

// txContext owns the connection lock from Adapter.TransactionContext until
// StartTransaction either hands release to a transaction or calls it.
type txContext struct {
	*queryable
	conn     Conn
	mode     TxMode
	release  Release
	consumed atomic.Bool
}

var _ TransactionContext = (*txContext)(nil)

// checkOpen rejects queries once StartTransaction has handed the
// connection lock on or given it back.
func (c *txContext) checkOpen() error {
	if c.consumed.Load() {
		return errs.ErrContextConsumed
	}
	return nil
}

func (c *txContext) StartTransaction(ctx context.Context) (Transaction, error) {
	if !c.consumed.CompareAndSwap(false, true) {
		return nil, errs.ErrContextConsumed
	}
	c.log.With().Str("mode", string(c.mode)).Logger().Debug("start_transaction")

	hold, err := c.lock.Acquire(ctx)
	if err != nil {
		c.release()
		return nil, err
	}
	defer hold()

	txc, err := c.conn.Begin(ctx, c.mode)
	if err != nil {
		// Only a failed begin gives the lock back here; on success it must
		// stay held until the transaction ends.
		c.release()
		return nil, errs.Wrap(errs.ErrKindDriver, "failed to start transaction", err)
	}

	tx := &transaction{
		queryable: newQueryable(txc, c.conn, NewLock(), c.name, c.log),
		txc:       txc,
		release:   c.release,
	}
	tx.guard = tx.checkOpen
	c.log.With().Any("options", txc.Options()).Logger().Debug("transaction started")
	return tx, nil
}

// Transaction states.
const (
	txOpen int32 = iota
	txCommitted
	txRolledBack
)

type transaction struct {
	*queryable
	txc     TxConn
	release Release
	state   atomic.Int32
}

var _ Transaction = (*transaction)(nil)

func (t *transaction) Options() TransactionOptions {
	return t.txc.Options()
}

func (t *transaction) QueryRaw(ctx context.Context, q Query) (*ResultSet, error) {
	if t.state.Load() != txOpen {
		return nil, errs.ErrTransactionClosed
	}
	return t.queryable.QueryRaw(ctx, q)
}

func (t *transaction) ExecuteRaw(ctx context.Context, q Query) (int32, error) {
	if t.state.Load() != txOpen {
		return 0, errs.ErrTransactionClosed
	}
	return t.queryable.ExecuteRaw(ctx, q)
}

// checkOpen runs under the handle lock, after a concurrent Commit or
// Rollback may have ended the transaction.
func (t *transaction) checkOpen() error {
	if t.state.Load() != txOpen {
		return errs.ErrTransactionClosed
	}
	return nil
}

// Commit commits the transaction. The connection lock is released whether
// or not the commit succeeds. The engine call is detached from ctx: giving
// the lock back while the engine transaction is still open would leave the
// connection inside it.
func (t *transaction) Commit(ctx context.Context) error {
	if !t.state.CompareAndSwap(txOpen, txCommitted) {
		return errs.ErrTransactionClosed
	}
	t.log.Debug("commit")
	defer t.release()

	ctx = context.WithoutCancel(ctx)
	release, err := t.lock.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	if err := t.txc.Commit(ctx); err != nil {
		// Some engines keep the transaction open after a failed COMMIT.
		if rbErr := t.txc.Rollback(ctx); rbErr != nil {
			t.log.DebugWith("rollback after failed commit", rbErr, nil)
		}
		return t.mapError(err, "commit failed")
	}
	return nil
}

// Rollback rolls the transaction back. A failing rollback is logged and
// swallowed; the connection lock is always released. Like Commit, the engine
// call does not observe cancellation of ctx.
func (t *transaction) Rollback(ctx context.Context) error {
	if !t.state.CompareAndSwap(txOpen, txRolledBack) {
		return errs.ErrTransactionClosed
	}
	t.log.Debug("rollback")
	defer t.release()

	ctx = context.WithoutCancel(ctx)
	release, err := t.lock.Acquire(ctx)
	if err != nil {
		t.log.WarnWith("rollback failed", err, nil)
		return nil
	}
	defer release()

	if err := t.txc.Rollback(ctx); err != nil {
		t.log.WarnWith("rollback failed", err, nil)
	}
	return nil
}
