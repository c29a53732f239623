// Package cache keeps a short-lived copy of a slow transaction source so
// every dashboard request does not hit the remote API.
package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"ledger/internal/core"
	"ledger/internal/sources"
)

var _ sources.TransactionStore = (*Store)(nil)

const flightKey = "transactions"

// Store is a read-through cache in front of another TransactionStore.
// Concurrent misses share a single upstream call. A successful append
// invalidates the cached list; a read that was already in flight when the
// list was invalidated is returned to its caller but never cached.
type Store struct {
	next sources.TransactionStore
	ttl  time.Duration
	now  func() time.Time

	group singleflight.Group

	mu        sync.Mutex
	items     []core.Transaction
	expiresAt time.Time
	// gen increments on every Invalidate.
	gen       uint64
	hits      int64
	misses    int64
}

func NewStore(next sources.TransactionStore, ttl time.Duration) *Store {
	return &Store{next: next, ttl: ttl, now: time.Now}
}

func (s *Store) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	if txs, ok := s.cached(); ok {
		return txs, nil
	}

	v, err, _ := s.group.Do(flightKey, func() (any, error) {
		s.mu.Lock()
		gen := s.gen
		s.mu.Unlock()

		txs, err := s.next.ListTransactions(ctx)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		if s.gen == gen {
			s.items = txs
			s.expiresAt = s.now().Add(s.ttl)
		}
		s.mu.Unlock()
		return txs, nil
	})
	if err != nil {
		return nil, err
	}
	return clone(v.([]core.Transaction)), nil
}

func (s *Store) AppendTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	saved, err := s.next.AppendTransaction(ctx, tx)
	if err != nil {
		return saved, err
	}
	s.Invalidate()
	return saved, nil
}

// Invalidate drops the cached list.
func (s *Store) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
	s.expiresAt = time.Time{}
	s.gen++
	s.group.Forget(flightKey)
}

// Stats returns the hit and miss counts since creation.
func (s *Store) Stats() (hits, misses int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits, s.misses
}

func (s *Store) cached() ([]core.Transaction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.items == nil || !s.now().Before(s.expiresAt) {
		s.misses++
		return nil, false
	}
	s.hits++
	return clone(s.items), true
}

func clone(txs []core.Transaction) []core.Transaction {
	return append([]core.Transaction(nil), txs...)
}
