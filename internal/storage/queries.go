package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type Transaction struct {
	ID          int64
	Description string
	Amount      string
	Category    string
	Date        string
}

type ContactSubmission struct {
	ID         string
	Name       string
	Email      string
	Subject    string
	Message    string
	Status     string
	Detail     string
	ReceivedAt string
	UpdatedAt  string
}

const createTransaction = `
INSERT INTO transactions (description, amount, category, date)
VALUES (?, ?, ?, ?)
RETURNING id, description, amount, category, date`

type CreateTransactionParams struct {
	Description string
	Amount      string
	Category    string
	Date        string
}

func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) (Transaction, error) {
	row := q.db.QueryRowContext(ctx, createTransaction, arg.Description, arg.Amount, arg.Category, arg.Date)
	var i Transaction
	err := row.Scan(&i.ID, &i.Description, &i.Amount, &i.Category, &i.Date)
	return i, err
}

const listTransactions = `
SELECT id, description, amount, category, date
FROM transactions
ORDER BY id`

func (q *Queries) ListTransactions(ctx context.Context) ([]Transaction, error) {
	rows, err := q.db.QueryContext(ctx, listTransactions)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Transaction{}
	for rows.Next() {
		var i Transaction
		if err := rows.Scan(&i.ID, &i.Description, &i.Amount, &i.Category, &i.Date); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countTransactions = `SELECT COUNT(*) FROM transactions`

func (q *Queries) CountTransactions(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countTransactions)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const createContactSubmission = `
INSERT INTO contact_submissions (id, name, email, subject, message, status, received_at, updated_at)
VALUES (?, ?, ?, ?, ?, 'pending', ?, ?)`

type CreateContactSubmissionParams struct {
	ID         string
	Name       string
	Email      string
	Subject    string
	Message    string
	ReceivedAt string
}

func (q *Queries) CreateContactSubmission(ctx context.Context, arg CreateContactSubmissionParams) error {
	_, err := q.db.ExecContext(ctx, createContactSubmission,
		arg.ID, arg.Name, arg.Email, arg.Subject, arg.Message, arg.ReceivedAt, arg.ReceivedAt)
	return err
}

const updateContactSubmissionStatus = `
UPDATE contact_submissions
SET status = ?, detail = ?, updated_at = ?
WHERE id = ?`

type UpdateContactSubmissionStatusParams struct {
	Status    string
	Detail    string
	UpdatedAt string
	ID        string
}

func (q *Queries) UpdateContactSubmissionStatus(ctx context.Context, arg UpdateContactSubmissionStatusParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateContactSubmissionStatus, arg.Status, arg.Detail, arg.UpdatedAt, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const getContactSubmission = `
SELECT id, name, email, subject, message, status, detail, received_at, updated_at
FROM contact_submissions
WHERE id = ?`

func (q *Queries) GetContactSubmission(ctx context.Context, id string) (ContactSubmission, error) {
	row := q.db.QueryRowContext(ctx, getContactSubmission, id)
	var i ContactSubmission
	err := row.Scan(&i.ID, &i.Name, &i.Email, &i.Subject, &i.Message, &i.Status, &i.Detail, &i.ReceivedAt, &i.UpdatedAt)
	return i, err
}

const countContactSubmissionsByStatus = `
SELECT COUNT(*) FROM contact_submissions WHERE status = ?`

func (q *Queries) CountContactSubmissionsByStatus(ctx context.Context, status string) (int64, error) {
	row := q.db.QueryRowContext(ctx, countContactSubmissionsByStatus, status)
	var count int64
	err := row.Scan(&count)
	return count, err
}
