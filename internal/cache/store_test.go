package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger/internal/core"
	"ledger/internal/sources/memory"
)

type countingStore struct {
	*memory.Store
	lists atomic.Int32
	err   error
}

func (c *countingStore) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	c.lists.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return c.Store.ListTransactions(ctx)
}

func newCached(t *testing.T, ttl time.Duration) (*Store, *countingStore, *time.Time) {
	t.Helper()
	upstream := &countingStore{Store: memory.NewSeeded()}
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewStore(upstream, ttl)
	s.now = func() time.Time { return now }
	return s, upstream, &now
}

func TestStore_ServesFromCacheUntilExpiry(t *testing.T) {
	s, upstream, now := newCached(t, time.Minute)
	ctx := context.Background()

	first, err := s.ListTransactions(ctx)
	require.NoError(t, err)
	second, err := s.ListTransactions(ctx)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), upstream.lists.Load())

	*now = now.Add(time.Minute)
	_, err = s.ListTransactions(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), upstream.lists.Load())

	hits, misses := s.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(2), misses)
}

func TestStore_AppendInvalidates(t *testing.T) {
	s, upstream, _ := newCached(t, time.Hour)
	ctx := context.Background()

	before, err := s.ListTransactions(ctx)
	require.NoError(t, err)

	_, err = s.AppendTransaction(ctx, core.Transaction{
		Description: "Books",
		Amount:      decimal.RequireFromString("20"),
		Category:    "education",
		Date:        core.NewDate(2023, 6, 7),
	})
	require.NoError(t, err)

	after, err := s.ListTransactions(ctx)
	require.NoError(t, err)
	assert.Len(t, after, len(before)+1)
	assert.Equal(t, int32(2), upstream.lists.Load())
}

func TestStore_ErrorsAreNotCached(t *testing.T) {
	s, upstream, _ := newCached(t, time.Hour)
	upstream.err = errors.New("quota exceeded")

	_, err := s.ListTransactions(context.Background())
	require.Error(t, err)

	upstream.err = nil
	txs, err := s.ListTransactions(context.Background())
	require.NoError(t, err)
	assert.Len(t, txs, 10)
}

func TestStore_ReturnsCopies(t *testing.T) {
	s, _, _ := newCached(t, time.Hour)

	txs, err := s.ListTransactions(context.Background())
	require.NoError(t, err)
	txs[0].Description = "mutated"

	again, err := s.ListTransactions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Salary", again[0].Description)
}

// slowStore snapshots the list, then blocks the first read until released.
type slowStore struct {
	*memory.Store
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (s *slowStore) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	txs, err := s.Store.ListTransactions(ctx)
	s.once.Do(func() {
		close(s.entered)
		<-s.release
	})
	return txs, err
}

func TestStore_InFlightReadDoesNotOutliveAppend(t *testing.T) {
	upstream := &slowStore{
		Store:   memory.NewSeeded(),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	s := NewStore(upstream, time.Hour)
	ctx := context.Background()

	done := make(chan []core.Transaction)
	go func() {
		txs, _ := s.ListTransactions(ctx)
		done <- txs
	}()
	<-upstream.entered

	_, err := s.AppendTransaction(ctx, core.Transaction{
		Description: "Books",
		Amount:      decimal.RequireFromString("20"),
		Category:    "education",
		Date:        core.NewDate(2023, 6, 7),
	})
	require.NoError(t, err)

	close(upstream.release)
	assert.Len(t, <-done, 10, "the in-flight read returns its own snapshot")

	txs, err := s.ListTransactions(ctx)
	require.NoError(t, err)
	assert.Len(t, txs, 11)
}
