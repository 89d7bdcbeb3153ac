package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"finay/internal/core"
	"finay/internal/storage"
)

func newTestSummary(t *testing.T) (*SummaryService, *storage.SQLiteRepository) {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return NewSummaryService(repo), repo
}

func seedSummaryData(t *testing.T, repo *storage.SQLiteRepository, base time.Time) string {
	t.Helper()
	ctx := context.Background()
	acct, err := repo.CreateAccount(ctx)
	if err != nil {
		t.Fatalf("create account: %v", err)
	}

	seed := []core.Transaction{
		{OwnerID: acct.ID, Kind: core.KindIncome, Amount: core.Money{Cents: 50000}, Category: core.CategorySalary, OccurredAt: base},
		{OwnerID: acct.ID, Kind: core.KindExpense, Amount: core.Money{Cents: 1200}, Category: core.CategoryFood, OccurredAt: base.AddDate(0, 0, 1)},
		{OwnerID: acct.ID, Kind: core.KindExpense, Amount: core.Money{Cents: 3000}, Category: core.CategoryHousing, OccurredAt: base.AddDate(0, 0, 2)},
	}
	for i, tx := range seed {
		tx.ApplyDefaults(base)
		if _, err := repo.CreateTransaction(ctx, tx); err != nil {
			t.Fatalf("seed %d: %v", i, err)
		}
	}
	return acct.ID
}

func TestSummarizeExplicitRange(t *testing.T) {
	svc, repo := newTestSummary(t)
	base := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	owner := seedSummaryData(t, repo, base)

	rng := &core.Range{From: base.AddDate(0, 0, -1), To: base.AddDate(0, 0, 3)}
	summary, err := svc.Summarize(context.Background(), owner, core.PeriodMonth, rng)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}

	if summary.IncomeTotal.Cents != 50000 {
		t.Fatalf("income expected 50000, got %d", summary.IncomeTotal.Cents)
	}
	if summary.ExpenseTotal.Cents != 4200 {
		t.Fatalf("expense expected 4200, got %d", summary.ExpenseTotal.Cents)
	}
	if summary.Savings.Cents != 45800 {
		t.Fatalf("savings expected 45800, got %d", summary.Savings.Cents)
	}
	if len(summary.ByCategory) != 2 || summary.ByCategory[0].Category != core.CategoryHousing {
		t.Fatalf("bad category breakdown: %+v", summary.ByCategory)
	}
	if len(summary.TimeSeries) == 0 {
		t.Fatalf("expected time series points")
	}
	if !summary.Range.From.Equal(rng.From) || !summary.Range.To.Equal(rng.To) {
		t.Fatalf("explicit range not echoed: %+v", summary.Range)
	}
}

func TestSummarizeNamedPeriod(t *testing.T) {
	svc, repo := newTestSummary(t)
	owner := seedSummaryData(t, repo, time.Now().UTC().AddDate(0, 0, -3))

	summary, err := svc.Summarize(context.Background(), owner, core.PeriodWeek, nil)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if summary.IncomeTotal.Cents != 50000 || summary.ExpenseTotal.Cents != 4200 {
		t.Fatalf("week window missed seeded data: %+v", summary)
	}
}

func TestSummarizeEmptyWindow(t *testing.T) {
	svc, repo := newTestSummary(t)
	ctx := context.Background()
	acct, err := repo.CreateAccount(ctx)
	if err != nil {
		t.Fatalf("create account: %v", err)
	}

	summary, err := svc.Summarize(ctx, acct.ID, core.PeriodMonth, nil)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if summary.IncomeTotal.Cents != 0 || summary.ExpenseTotal.Cents != 0 || summary.Savings.Cents != 0 {
		t.Fatalf("expected zero totals, got %+v", summary)
	}
	if summary.ByCategory == nil || summary.TimeSeries == nil {
		t.Fatalf("expected empty slices, not nil")
	}
}

func TestSummarizeRejectsBadPeriod(t *testing.T) {
	svc, _ := newTestSummary(t)
	if _, err := svc.Summarize(context.Background(), "owner", "quarter", nil); !errors.Is(err, core.ErrInvalidPeriod) {
		t.Fatalf("expected ErrInvalidPeriod, got %v", err)
	}
}
