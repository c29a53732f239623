// Package sources defines where the dashboard reads its transactions from.
package sources

import (
	"context"
	"errors"

	"ledger/internal/core"
)

// ErrReadOnly is returned by sources that cannot store new transactions.
var ErrReadOnly = errors.New("transaction source is read-only")

// Ports for outbound adapters.
type (
	TransactionLister interface {
		// ListTransactions returns every transaction in source order.
		ListTransactions(ctx context.Context) ([]core.Transaction, error)
	}

	// TransactionWriter stores a validated transaction and returns it with
	// its assigned ID.
	TransactionWriter interface {
		AppendTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error)
	}

	TransactionStore interface {
		TransactionLister
		TransactionWriter
	}
)
