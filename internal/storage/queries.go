package storage

import (
	"context"
	"database/sql"
	"time"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so the same queries can
// run standalone or inside an atomic unit.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx binds the queries to an open transaction.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// timeLayout is the canonical storage format for timestamps. UTC, second
// precision, compatible with SQLite's date and strftime functions.
const timeLayout = "2006-01-02 15:04:05"

func fmtTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

type AccountRow struct {
	ID           string
	BalanceCents int64
	CreatedAt    string
}

type TransactionRow struct {
	ID            string
	OwnerID       string
	Kind          string
	AmountCents   int64
	Category      string
	Description   string
	PaymentMethod string
	Status        string
	Currency      string
	Tags          string
	Location      string
	OccurredAt    string
	CreatedAt     string
	UpdatedAt     string
}

const createAccount = `
INSERT INTO accounts (id, balance_cents, created_at) VALUES (?, 0, ?)
`

func (q *Queries) CreateAccount(ctx context.Context, id string, createdAt time.Time) error {
	_, err := q.db.ExecContext(ctx, createAccount, id, fmtTime(createdAt))
	return err
}

const getAccount = `
SELECT id, balance_cents, created_at FROM accounts WHERE id = ?
`

func (q *Queries) GetAccount(ctx context.Context, id string) (AccountRow, error) {
	var row AccountRow
	err := q.db.QueryRowContext(ctx, getAccount, id).
		Scan(&row.ID, &row.BalanceCents, &row.CreatedAt)
	return row, err
}

const adjustBalance = `
UPDATE accounts SET balance_cents = balance_cents + ? WHERE id = ?
`

// AdjustBalance applies a relative delta to the account balance and
// reports how many accounts matched. Zero means the account is missing.
func (q *Queries) AdjustBalance(ctx context.Context, id string, deltaCents int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, adjustBalance, deltaCents, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const insertTransaction = `
INSERT INTO transactions (
    id, owner_id, kind, amount_cents, category, description,
    payment_method, status, currency, tags, location,
    occurred_at, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

func (q *Queries) InsertTransaction(ctx context.Context, row TransactionRow) error {
	_, err := q.db.ExecContext(ctx, insertTransaction,
		row.ID, row.OwnerID, row.Kind, row.AmountCents, row.Category,
		row.Description, row.PaymentMethod, row.Status, row.Currency,
		row.Tags, row.Location, row.OccurredAt, row.CreatedAt, row.UpdatedAt)
	return err
}

const getTransaction = `
SELECT id, owner_id, kind, amount_cents, category, description,
       payment_method, status, currency, tags, location,
       occurred_at, created_at, updated_at
FROM transactions WHERE id = ?
`

func (q *Queries) GetTransaction(ctx context.Context, id string) (TransactionRow, error) {
	var row TransactionRow
	err := q.db.QueryRowContext(ctx, getTransaction, id).Scan(
		&row.ID, &row.OwnerID, &row.Kind, &row.AmountCents, &row.Category,
		&row.Description, &row.PaymentMethod, &row.Status, &row.Currency,
		&row.Tags, &row.Location, &row.OccurredAt, &row.CreatedAt, &row.UpdatedAt)
	return row, err
}

const updateTransaction = `
UPDATE transactions SET
    kind = ?, amount_cents = ?, category = ?, description = ?,
    payment_method = ?, status = ?, currency = ?, tags = ?, location = ?,
    occurred_at = ?, updated_at = ?
WHERE id = ?
`

func (q *Queries) UpdateTransaction(ctx context.Context, row TransactionRow) error {
	_, err := q.db.ExecContext(ctx, updateTransaction,
		row.Kind, row.AmountCents, row.Category, row.Description,
		row.PaymentMethod, row.Status, row.Currency, row.Tags, row.Location,
		row.OccurredAt, row.UpdatedAt, row.ID)
	return err
}

const deleteTransaction = `
DELETE FROM transactions WHERE id = ?
`

func (q *Queries) DeleteTransaction(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, deleteTransaction, id)
	return err
}

type KindTotalRow struct {
	Kind       string
	TotalCents int64
}

const kindTotals = `
SELECT kind, COALESCE(SUM(amount_cents), 0) AS total
FROM transactions
WHERE owner_id = ? AND occurred_at >= ? AND occurred_at <= ?
GROUP BY kind
`

func (q *Queries) KindTotals(ctx context.Context, ownerID string, from, to time.Time) ([]KindTotalRow, error) {
	rows, err := q.db.QueryContext(ctx, kindTotals, ownerID, fmtTime(from), fmtTime(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []KindTotalRow
	for rows.Next() {
		var r KindTotalRow
		if err := rows.Scan(&r.Kind, &r.TotalCents); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type CategoryTotalRow struct {
	Category   string
	TotalCents int64
}

const categoryTotals = `
SELECT category, COALESCE(SUM(amount_cents), 0) AS total
FROM transactions
WHERE owner_id = ? AND kind = 'expense' AND occurred_at >= ? AND occurred_at <= ?
GROUP BY category
ORDER BY total DESC
`

func (q *Queries) CategoryTotals(ctx context.Context, ownerID string, from, to time.Time) ([]CategoryTotalRow, error) {
	rows, err := q.db.QueryContext(ctx, categoryTotals, ownerID, fmtTime(from), fmtTime(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CategoryTotalRow
	for rows.Next() {
		var r CategoryTotalRow
		if err := rows.Scan(&r.Category, &r.TotalCents); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type SeriesRow struct {
	Bucket     string
	Kind       string
	TotalCents int64
}

const seriesTotals = `
SELECT strftime(?, occurred_at) AS bucket, kind, COALESCE(SUM(amount_cents), 0) AS total
FROM transactions
WHERE owner_id = ? AND kind IN ('income', 'expense')
  AND occurred_at >= ? AND occurred_at <= ?
GROUP BY bucket, kind
ORDER BY bucket ASC, kind ASC
`

// SeriesTotals groups income and expense amounts by the given strftime
// bucket format ("%Y-%m-%d" for days, "%Y-%m" for months).
func (q *Queries) SeriesTotals(ctx context.Context, ownerID, bucketFormat string, from, to time.Time) ([]SeriesRow, error) {
	rows, err := q.db.QueryContext(ctx, seriesTotals, bucketFormat, ownerID, fmtTime(from), fmtTime(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SeriesRow
	for rows.Next() {
		var r SeriesRow
		if err := rows.Scan(&r.Bucket, &r.Kind, &r.TotalCents); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
