package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"finay/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteRepository persists accounts and transactions. Every mutating
// lifecycle event commits the transaction row and the balance adjustment
// as one database transaction; callers never observe one without the
// other.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := "file:" + dbPath + "?_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	// A single connection serializes units of work at the pool level,
	// so two concurrent mutations of the same account can never lose an
	// adjustment.
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
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// inTx runs fn inside a database transaction, committing on nil error
// and rolling back otherwise.
func (r *SQLiteRepository) inTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(r.queries.WithTx(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.ErrorContext(ctx, "Rollback failed", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// CreateAccount opens a new account with a zero balance.
func (r *SQLiteRepository) CreateAccount(ctx context.Context) (core.Account, error) {
	acct := core.Account{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	if err := r.queries.CreateAccount(ctx, acct.ID, acct.CreatedAt); err != nil {
		return core.Account{}, fmt.Errorf("create account: %w", err)
	}

	slog.InfoContext(ctx, "Account opened", "account_id", acct.ID)
	return acct, nil
}

// GetAccount returns the account with its current derived balance.
func (r *SQLiteRepository) GetAccount(ctx context.Context, id string) (core.Account, error) {
	row, err := r.queries.GetAccount(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, core.ErrAccountNotFound
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("get account: %w", err)
	}
	return core.Account{
		ID:        row.ID,
		Balance:   core.Money{Cents: row.BalanceCents},
		CreatedAt: parseTime(row.CreatedAt),
	}, nil
}

// CreateTransaction inserts the record and applies its balance delta in
// one unit. A missing owner account aborts the whole unit.
func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	now := time.Now().UTC().Truncate(time.Second)
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.CreatedAt = now
	t.UpdatedAt = now

	err := r.inTx(ctx, func(q *Queries) error {
		// The adjustment goes first: a missing owner account must
		// surface as ErrAccountNotFound, not as the insert tripping the
		// owner_id foreign key.
		if err := applyDelta(ctx, q, t.OwnerID, t.Delta()); err != nil {
			return err
		}
		if err := q.InsertTransaction(ctx, transactionToRow(t)); err != nil {
			return fmt.Errorf("insert transaction: %w", err)
		}
		return nil
	})
	if err != nil {
		return core.Transaction{}, err
	}

	slog.InfoContext(ctx, "Transaction created",
		"id", t.ID,
		"owner_id", t.OwnerID,
		"kind", string(t.Kind),
		"amount_cents", t.Amount.Cents,
		"category", string(t.Category))

	return t, nil
}

// UpdateTransaction amends a record. The reversal of the old delta and
// the new delta are applied to the balance as a single adjustment inside
// the same unit as the record write.
func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, id, ownerID string, patch core.Patch) (core.Transaction, error) {
	var updated core.Transaction

	err := r.inTx(ctx, func(q *Queries) error {
		old, err := readOwned(ctx, q, id, ownerID)
		if err != nil {
			return err
		}

		updated = patch.Apply(old)
		updated.UpdatedAt = time.Now().UTC().Truncate(time.Second)
		if err := updated.Validate(); err != nil {
			return err
		}

		if err := q.UpdateTransaction(ctx, transactionToRow(updated)); err != nil {
			return fmt.Errorf("update transaction: %w", err)
		}

		adjustment := old.Delta().Neg().Add(updated.Delta())
		return applyDelta(ctx, q, ownerID, adjustment)
	})
	if err != nil {
		return core.Transaction{}, err
	}

	slog.InfoContext(ctx, "Transaction updated",
		"id", id,
		"owner_id", ownerID,
		"kind", string(updated.Kind),
		"amount_cents", updated.Amount.Cents)

	return updated, nil
}

// DeleteTransaction removes a record and reverses its balance delta in
// one unit.
func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id, ownerID string) error {
	err := r.inTx(ctx, func(q *Queries) error {
		old, err := readOwned(ctx, q, id, ownerID)
		if err != nil {
			return err
		}
		if err := q.DeleteTransaction(ctx, id); err != nil {
			return fmt.Errorf("delete transaction: %w", err)
		}
		return applyDelta(ctx, q, ownerID, old.Delta().Neg())
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Transaction deleted", "id", id, "owner_id", ownerID)
	return nil
}

// GetTransaction returns a single owned record.
func (r *SQLiteRepository) GetTransaction(ctx context.Context, id, ownerID string) (core.Transaction, error) {
	return readOwned(ctx, r.queries, id, ownerID)
}

// sortColumns whitelists the sortable fields; anything else never
// reaches the SQL string.
var sortColumns = map[core.SortField]string{
	core.SortByOccurredAt: "occurred_at",
	core.SortByAmount:     "amount_cents",
	core.SortByCategory:   "category",
	core.SortByKind:       "kind",
	core.SortByCreatedAt:  "created_at",
}

// ListTransactions returns one page of an owner's records plus the total
// count for the same filter.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, ownerID string, filter core.Filter, page core.Page, sort core.Sort) (core.TransactionPage, error) {
	where := []string{"owner_id = ?"}
	args := []any{ownerID}

	if !filter.From.IsZero() {
		where = append(where, "occurred_at >= ?")
		args = append(args, fmtTime(filter.From))
	}
	if !filter.To.IsZero() {
		where = append(where, "occurred_at <= ?")
		args = append(args, fmtTime(filter.To))
	}
	if filter.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, string(filter.Kind))
	}
	if filter.Category != "" {
		where = append(where, "category = ?")
		args = append(args, string(filter.Category))
	}
	if filter.MinAmount != nil {
		where = append(where, "amount_cents >= ?")
		args = append(args, *filter.MinAmount)
	}
	if filter.MaxAmount != nil {
		where = append(where, "amount_cents <= ?")
		args = append(args, *filter.MaxAmount)
	}

	whereClause := strings.Join(where, " AND ")

	var total int64
	countQuery := "SELECT COUNT(*) FROM transactions WHERE " + whereClause
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return core.TransactionPage{}, fmt.Errorf("count transactions: %w", err)
	}

	column, ok := sortColumns[sort.Field]
	if !ok {
		return core.TransactionPage{}, core.ErrInvalidSort
	}
	direction := "DESC"
	if sort.Direction == core.SortAsc {
		direction = "ASC"
	}

	page = page.Normalize()
	listQuery := `SELECT id, owner_id, kind, amount_cents, category, description,
       payment_method, status, currency, tags, location,
       occurred_at, created_at, updated_at
FROM transactions WHERE ` + whereClause +
		" ORDER BY " + column + " " + direction + " LIMIT ? OFFSET ?"
	args = append(args, page.Size, page.Offset())

	rows, err := r.db.QueryContext(ctx, listQuery, args...)
	if err != nil {
		return core.TransactionPage{}, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	result := core.TransactionPage{TotalCount: total, Items: []core.Transaction{}}
	for rows.Next() {
		var row TransactionRow
		if err := rows.Scan(
			&row.ID, &row.OwnerID, &row.Kind, &row.AmountCents, &row.Category,
			&row.Description, &row.PaymentMethod, &row.Status, &row.Currency,
			&row.Tags, &row.Location, &row.OccurredAt, &row.CreatedAt, &row.UpdatedAt); err != nil {
			return core.TransactionPage{}, fmt.Errorf("scan transaction: %w", err)
		}
		result.Items = append(result.Items, rowToTransaction(row))
	}
	if err := rows.Err(); err != nil {
		return core.TransactionPage{}, fmt.Errorf("list transactions: %w", err)
	}

	return result, nil
}

// IncomeExpenseTotals sums income and expense amounts within the range.
func (r *SQLiteRepository) IncomeExpenseTotals(ctx context.Context, ownerID string, rng core.Range) (income, expense core.Money, err error) {
	rows, err := r.queries.KindTotals(ctx, ownerID, rng.From, rng.To)
	if err != nil {
		return core.Money{}, core.Money{}, fmt.Errorf("kind totals: %w", err)
	}
	for _, row := range rows {
		switch core.Kind(row.Kind) {
		case core.KindIncome:
			income = core.Money{Cents: row.TotalCents}
		case core.KindExpense:
			expense = core.Money{Cents: row.TotalCents}
		}
	}
	return income, expense, nil
}

// ExpenseByCategory sums expense amounts per category, largest first.
func (r *SQLiteRepository) ExpenseByCategory(ctx context.Context, ownerID string, rng core.Range) ([]core.CategoryAmount, error) {
	rows, err := r.queries.CategoryTotals(ctx, ownerID, rng.From, rng.To)
	if err != nil {
		return nil, fmt.Errorf("category totals: %w", err)
	}
	out := make([]core.CategoryAmount, 0, len(rows))
	for _, row := range rows {
		cat := core.Category(row.Category)
		out = append(out, core.CategoryAmount{
			Category: cat,
			Amount:   core.Money{Cents: row.TotalCents},
			Color:    cat.Color(),
		})
	}
	return out, nil
}

// TimeSeries groups income and expense amounts into day or month buckets
// depending on the range span.
func (r *SQLiteRepository) TimeSeries(ctx context.Context, ownerID string, rng core.Range) ([]core.SeriesPoint, error) {
	bucket := rng.BucketFor()
	format := "%Y-%m"
	layout := "2006-01"
	if bucket == core.BucketDay {
		format = "%Y-%m-%d"
		layout = "2006-01-02"
	}

	rows, err := r.queries.SeriesTotals(ctx, ownerID, format, rng.From, rng.To)
	if err != nil {
		return nil, fmt.Errorf("series totals: %w", err)
	}

	out := make([]core.SeriesPoint, 0, len(rows))
	for _, row := range rows {
		at, err := time.Parse(layout, row.Bucket)
		if err != nil {
			return nil, fmt.Errorf("parse series bucket %q: %w", row.Bucket, err)
		}
		out = append(out, core.SeriesPoint{
			Label:  bucket.Label(at),
			Kind:   core.Kind(row.Kind),
			Amount: core.Money{Cents: row.TotalCents},
		})
	}
	return out, nil
}

// readOwned loads a record and enforces ownership, distinguishing a
// missing record from one owned by someone else.
func readOwned(ctx context.Context, q *Queries, id, ownerID string) (core.Transaction, error) {
	row, err := q.GetTransaction(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	if row.OwnerID != ownerID {
		return core.Transaction{}, core.ErrForbidden
	}
	return rowToTransaction(row), nil
}

// applyDelta adjusts the owner's balance inside the open unit. A zero
// match count means the owning account is gone, which is corruption and
// aborts the unit.
func applyDelta(ctx context.Context, q *Queries, ownerID string, delta core.Money) error {
	affected, err := q.AdjustBalance(ctx, ownerID, delta.Cents)
	if err != nil {
		return fmt.Errorf("adjust balance: %w", err)
	}
	if affected == 0 {
		return core.ErrAccountNotFound
	}
	return nil
}

func transactionToRow(t core.Transaction) TransactionRow {
	return TransactionRow{
		ID:            t.ID,
		OwnerID:       t.OwnerID,
		Kind:          string(t.Kind),
		AmountCents:   t.Amount.Cents,
		Category:      string(t.Category),
		Description:   t.Description,
		PaymentMethod: string(t.PaymentMethod),
		Status:        string(t.Status),
		Currency:      t.Currency,
		Tags:          strings.Join(t.Tags, ","),
		Location:      t.Location,
		OccurredAt:    fmtTime(t.OccurredAt),
		CreatedAt:     fmtTime(t.CreatedAt),
		UpdatedAt:     fmtTime(t.UpdatedAt),
	}
}

func rowToTransaction(row TransactionRow) core.Transaction {
	var tags []string
	if row.Tags != "" {
		tags = strings.Split(row.Tags, ",")
	}
	return core.Transaction{
		ID:            row.ID,
		OwnerID:       row.OwnerID,
		Kind:          core.Kind(row.Kind),
		Amount:        core.Money{Cents: row.AmountCents},
		Category:      core.Category(row.Category),
		Description:   row.Description,
		PaymentMethod: core.PaymentMethod(row.PaymentMethod),
		Status:        core.Status(row.Status),
		Currency:      row.Currency,
		Tags:          tags,
		Location:      row.Location,
		OccurredAt:    parseTime(row.OccurredAt),
		CreatedAt:     parseTime(row.CreatedAt),
		UpdatedAt:     parseTime(row.UpdatedAt),
	}
}
