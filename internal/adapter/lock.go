package adapter

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"github.com/koustreak/sqlbridge/internal/errs"
)

// Release gives a held Lock back. Only the first call has an effect, so the
// token can be passed to whichever component ends up responsible for it.
type Release func()

// Lock is a single-holder lock over one physical connection. Waiters are
// served in FIFO order.
type Lock struct {
	sem      *semaphore.Weighted
	acquired atomic.Int64
	released atomic.Int64
}

// LockStats is a snapshot of a Lock's counters.
type LockStats struct {
	Acquired int64 `json:"acquired"`
	Released int64 `json:"released"`
}

// Held reports whether the lock was held when the snapshot was taken.
func (s LockStats) Held() bool {
	return s.Acquired > s.Released
}

func NewLock() *Lock {
	return &Lock{sem: semaphore.NewWeighted(1)}
}

// Acquire blocks until the lock is free or ctx is done.
func (l *Lock) Acquire(ctx context.Context) (Release, error) {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		kind := errs.ErrKindTimeout
		if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			kind = errs.ErrKindUnknown
		}
		return nil, errs.Wrap(kind, "waiting for connection lock", err)
	}
	l.acquired.Add(1)

	var once sync.Once
	return func() {
		once.Do(func() {
			l.released.Add(1)
			l.sem.Release(1)
		})
	}, nil
}

func (l *Lock) Stats() LockStats {
	return LockStats{
		Acquired: l.acquired.Load(),
		Released: l.released.Load(),
	}
}
