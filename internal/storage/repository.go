package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"ledger/internal/contact"
	"ledger/internal/core"
	"ledger/internal/sources"

	_ "modernc.org/sqlite"
)

var ErrSubmissionNotFound = errors.New("contact submission not found")

var (
	_ sources.TransactionStore   = (*SQLiteRepository)(nil)
	_ contact.SubmissionRecorder = (*SQLiteRepository)(nil)
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time keeps SQLite from returning SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		now:     time.Now,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.queries.ListTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	out := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		tx, err := toDomain(row)
		if err != nil {
			return nil, fmt.Errorf("transaction %d: %w", row.ID, err)
		}
		out = append(out, tx)
	}
	return out, nil
}

func (r *SQLiteRepository) AppendTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	row, err := r.queries.CreateTransaction(ctx, fromDomain(tx))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", row.ID,
		"description", row.Description,
		"amount", row.Amount,
		"category", row.Category,
		"date", row.Date)

	tx.ID = row.ID
	return tx, nil
}

// SeedIfEmpty inserts txs when the transactions table is empty and returns
// how many rows were written.
func (r *SQLiteRepository) SeedIfEmpty(ctx context.Context, txs []core.Transaction) (int, error) {
	count, err := r.queries.CountTransactions(ctx)
	if err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	if count > 0 {
		return 0, nil
	}

	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin seed: %w", err)
	}
	defer dbTx.Rollback()

	q := r.queries.WithTx(dbTx)
	for _, tx := range txs {
		if _, err := q.CreateTransaction(ctx, fromDomain(tx)); err != nil {
			return 0, fmt.Errorf("seed %q: %w", tx.Description, err)
		}
	}
	if err := dbTx.Commit(); err != nil {
		return 0, fmt.Errorf("commit seed: %w", err)
	}
	slog.InfoContext(ctx, "Seeded transactions", "count", len(txs))
	return len(txs), nil
}

// RecordSubmission implements contact.SubmissionRecorder
func (r *SQLiteRepository) RecordSubmission(ctx context.Context, id string, s contact.Submission, receivedAt time.Time) error {
	err := r.queries.CreateContactSubmission(ctx, CreateContactSubmissionParams{
		ID:         id,
		Name:       s.Name,
		Email:      s.Email,
		Subject:    s.Subject,
		Message:    s.Message,
		ReceivedAt: receivedAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("record submission %s: %w", id, err)
	}
	return nil
}

// MarkSubmission implements contact.SubmissionRecorder
func (r *SQLiteRepository) MarkSubmission(ctx context.Context, id string, status contact.Status, detail string) error {
	n, err := r.queries.UpdateContactSubmissionStatus(ctx, UpdateContactSubmissionStatusParams{
		Status:    string(status),
		Detail:    detail,
		UpdatedAt: r.now().UTC().Format(time.RFC3339),
		ID:        id,
	})
	if err != nil {
		return fmt.Errorf("mark submission %s as %s: %w", id, status, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrSubmissionNotFound, id)
	}
	return nil
}

func (r *SQLiteRepository) GetSubmission(ctx context.Context, id string) (ContactSubmission, error) {
	row, err := r.queries.GetContactSubmission(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return ContactSubmission{}, fmt.Errorf("%w: %s", ErrSubmissionNotFound, id)
	}
	if err != nil {
		return ContactSubmission{}, fmt.Errorf("get submission %s: %w", id, err)
	}
	return row, nil
}

func (r *SQLiteRepository) CountSubmissions(ctx context.Context, status contact.Status) (int64, error) {
	return r.queries.CountContactSubmissionsByStatus(ctx, string(status))
}

func fromDomain(tx core.Transaction) CreateTransactionParams {
	return CreateTransactionParams{
		Description: tx.Description,
		Amount:      tx.Amount.String(),
		Category:    tx.Category,
		Date:        tx.Date.String(),
	}
}

func toDomain(row Transaction) (core.Transaction, error) {
	amount, err := decimal.NewFromString(row.Amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("amount %q: %w", row.Amount, err)
	}
	date, err := core.ParseDate(row.Date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("date %q: %w", row.Date, err)
	}
	return core.Transaction{
		ID:          row.ID,
		Description: row.Description,
		Amount:      amount,
		Category:    row.Category,
		Date:        date,
	}, nil
}
