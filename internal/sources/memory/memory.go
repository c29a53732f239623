package memory

import (
	"context"
	"sync"

	"ledger/internal/core"
	"ledger/internal/sources"
)

var _ sources.TransactionStore = (*Store)(nil)

type Store struct {
	mu     sync.RWMutex
	items  []core.Transaction
	nextID int64
}

// New returns a store holding a copy of seed.
func New(seed []core.Transaction) *Store {
	s := &Store{items: append([]core.Transaction(nil), seed...)}
	for _, tx := range s.items {
		if tx.ID > s.nextID {
			s.nextID = tx.ID
		}
	}
	return s
}

// NewSeeded returns a store holding the sample ledger.
func NewSeeded() *Store {
	return New(core.SampleTransactions())
}

func (s *Store) ListTransactions(_ context.Context) ([]core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.Transaction(nil), s.items...), nil
}

// AppendTransaction validates tx and stores it with the next free ID.
func (s *Store) AppendTransaction(_ context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	tx.ID = s.nextID
	s.items = append(s.items, tx)
	return tx, nil
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
