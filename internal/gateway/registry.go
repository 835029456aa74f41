package gateway

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/koustreak/sqlbridge/internal/adapter"
	"github.com/koustreak/sqlbridge/internal/errs"
)

var errUnknownTx = errs.New(errs.ErrKindNotFound, "unknown transaction")

type txEntry struct {
	tx       adapter.Transaction
	opened   time.Time
	lastUsed time.Time
}

// registry tracks transactions that outlive the request that opened them.
type registry struct {
	mu  sync.Mutex
	txs map[string]*txEntry
	now func() time.Time
}

func newRegistry() *registry {
	return &registry{txs: make(map[string]*txEntry), now: time.Now}
}

func (r *registry) add(tx adapter.Transaction) string {
	id := uuid.NewString()
	now := r.now()

	r.mu.Lock()
	r.txs[id] = &txEntry{tx: tx, opened: now, lastUsed: now}
	r.mu.Unlock()
	return id
}

// get returns the transaction for id and marks it as used.
func (r *registry) get(id string) (adapter.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.txs[id]
	if !ok {
		return nil, errUnknownTx
	}
	e.lastUsed = r.now()
	return e.tx, nil
}

// take removes id so that exactly one caller gets to end the transaction.
func (r *registry) take(id string) (adapter.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.txs[id]
	if !ok {
		return nil, errUnknownTx
	}
	delete(r.txs, id)
	return e.tx, nil
}

// expired removes and returns every transaction idle since before cutoff.
func (r *registry) expired(cutoff time.Time) map[string]adapter.Transaction {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]adapter.Transaction)
	for id, e := range r.txs {
		if e.lastUsed.Before(cutoff) {
			out[id] = e.tx
			delete(r.txs, id)
		}
	}
	return out
}

// drain removes and returns every transaction.
func (r *registry) drain() map[string]adapter.Transaction {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]adapter.Transaction, len(r.txs))
	for id, e := range r.txs {
		out[id] = e.tx
	}
	r.txs = make(map[string]*txEntry)
	return out
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.txs)
}
