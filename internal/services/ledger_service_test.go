package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"finay/internal/amqp"
	"finay/internal/core"
	"finay/internal/storage"
)

// recordingPublisher captures events; when fail is set it errors on
// every publish.
type recordingPublisher struct {
	events []*amqp.TransactionEvent
	fail   bool
}

func (p *recordingPublisher) PublishTransactionEvent(ctx context.Context, event *amqp.TransactionEvent) error {
	if p.fail {
		return errors.New("broker unavailable")
	}
	p.events = append(p.events, event)
	return nil
}

func newTestLedger(t *testing.T, publisher EventPublisher) *LedgerService {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return NewLedgerService(repo, publisher)
}

func TestCreateTransactionAppliesDefaultsAndPublishes(t *testing.T) {
	publisher := &recordingPublisher{}
	ledger := newTestLedger(t, publisher)
	ctx := context.Background()

	acct, err := ledger.OpenAccount(ctx)
	if err != nil {
		t.Fatalf("open account: %v", err)
	}

	created, err := ledger.CreateTransaction(ctx, core.Transaction{
		OwnerID:  acct.ID,
		Kind:     core.KindExpense,
		Amount:   core.Money{Cents: 4050},
		Category: core.CategoryFood,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if created.ID == "" {
		t.Fatalf("expected generated id")
	}
	if created.PaymentMethod != core.PaymentOther || created.Status != core.StatusCompleted {
		t.Fatalf("defaults not applied: %+v", created)
	}
	if created.Currency != core.DefaultCurrency {
		t.Fatalf("expected default currency, got %q", created.Currency)
	}
	if created.OccurredAt.IsZero() {
		t.Fatalf("expected occurredAt default")
	}

	if len(publisher.events) != 1 {
		t.Fatalf("expected one event, got %d", len(publisher.events))
	}
	if publisher.events[0].ID != created.ID || publisher.events[0].AmountCents != 4050 {
		t.Fatalf("bad event: %+v", publisher.events[0])
	}

	got, err := ledger.GetAccount(ctx, acct.ID)
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if got.Balance.Cents != -4050 {
		t.Fatalf("expected balance -4050, got %d", got.Balance.Cents)
	}
}

func TestCreateTransactionSurvivesPublisherFailure(t *testing.T) {
	ledger := newTestLedger(t, &recordingPublisher{fail: true})
	ctx := context.Background()

	acct, err := ledger.OpenAccount(ctx)
	if err != nil {
		t.Fatalf("open account: %v", err)
	}

	created, err := ledger.CreateTransaction(ctx, core.Transaction{
		OwnerID:  acct.ID,
		Kind:     core.KindIncome,
		Amount:   core.Money{Cents: 1000},
		Category: core.CategorySalary,
	})
	if err != nil {
		t.Fatalf("create must succeed despite publish failure: %v", err)
	}

	got, err := ledger.GetTransaction(ctx, created.ID, acct.ID)
	if err != nil || got.Amount.Cents != 1000 {
		t.Fatalf("record missing after publish failure: %+v err=%v", got, err)
	}
}

func TestCreateTransactionWithNilPublisher(t *testing.T) {
	ledger := newTestLedger(t, nil)
	ctx := context.Background()

	acct, err := ledger.OpenAccount(ctx)
	if err != nil {
		t.Fatalf("open account: %v", err)
	}
	if _, err := ledger.CreateTransaction(ctx, core.Transaction{
		OwnerID:  acct.ID,
		Kind:     core.KindIncome,
		Amount:   core.Money{Cents: 500},
		Category: core.CategorySalary,
	}); err != nil {
		t.Fatalf("create with nil publisher: %v", err)
	}
}

func TestCreateTransactionRejectsInvalid(t *testing.T) {
	ledger := newTestLedger(t, nil)
	ctx := context.Background()

	acct, err := ledger.OpenAccount(ctx)
	if err != nil {
		t.Fatalf("open account: %v", err)
	}

	cases := []struct {
		name string
		tx   core.Transaction
		want error
	}{
		{"bad kind", core.Transaction{OwnerID: acct.ID, Kind: "loan", Amount: core.Money{Cents: 1}, Category: core.CategoryFood}, core.ErrInvalidKind},
		{"zero amount", core.Transaction{OwnerID: acct.ID, Kind: core.KindExpense, Category: core.CategoryFood}, core.ErrInvalidAmount},
		{"bad category", core.Transaction{OwnerID: acct.ID, Kind: core.KindExpense, Amount: core.Money{Cents: 1}, Category: "Groceries"}, core.ErrInvalidCategory},
		{"missing owner", core.Transaction{Kind: core.KindExpense, Amount: core.Money{Cents: 1}, Category: core.CategoryFood}, core.ErrMissingOwner},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ledger.CreateTransaction(ctx, tc.tx); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestUpdateTransactionValidatesPatchFirst(t *testing.T) {
	ledger := newTestLedger(t, nil)
	ctx := context.Background()

	acct, err := ledger.OpenAccount(ctx)
	if err != nil {
		t.Fatalf("open account: %v", err)
	}
	created, err := ledger.CreateTransaction(ctx, core.Transaction{
		OwnerID:  acct.ID,
		Kind:     core.KindExpense,
		Amount:   core.Money{Cents: 100},
		Category: core.CategoryFood,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	badKind := core.Kind("loan")
	if _, err := ledger.UpdateTransaction(ctx, created.ID, acct.ID, core.Patch{Kind: &badKind}); !errors.Is(err, core.ErrInvalidKind) {
		t.Fatalf("expected ErrInvalidKind, got %v", err)
	}
	zero := int64(0)
	if _, err := ledger.UpdateTransaction(ctx, created.ID, acct.ID, core.Patch{AmountCents: &zero}); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}

	cents := int64(40)
	updated, err := ledger.UpdateTransaction(ctx, created.ID, acct.ID, core.Patch{AmountCents: &cents})
	if err != nil || updated.Amount.Cents != 40 {
		t.Fatalf("valid update failed: %+v err=%v", updated, err)
	}
}

func TestListTransactionsValidatesInput(t *testing.T) {
	ledger := newTestLedger(t, nil)
	ctx := context.Background()

	acct, err := ledger.OpenAccount(ctx)
	if err != nil {
		t.Fatalf("open account: %v", err)
	}

	if _, err := ledger.ListTransactions(ctx, acct.ID, core.Filter{Kind: "loan"}, core.DefaultPage(), core.DefaultSort()); !errors.Is(err, core.ErrInvalidKind) {
		t.Fatalf("expected ErrInvalidKind, got %v", err)
	}
	if _, err := ledger.ListTransactions(ctx, acct.ID, core.Filter{}, core.DefaultPage(), core.Sort{Field: "balance"}); !errors.Is(err, core.ErrInvalidSort) {
		t.Fatalf("expected ErrInvalidSort, got %v", err)
	}

	// Empty sort falls back to the default.
	page, err := ledger.ListTransactions(ctx, acct.ID, core.Filter{}, core.DefaultPage(), core.Sort{})
	if err != nil {
		t.Fatalf("list with empty sort: %v", err)
	}
	if page.TotalCount != 0 {
		t.Fatalf("expected empty page, got %d", page.TotalCount)
	}
}
