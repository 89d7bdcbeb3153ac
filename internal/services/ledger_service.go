package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"finay/internal/amqp"
	"finay/internal/core"
	"finay/internal/storage"
)

// EventPublisher emits committed-transaction events to an external
// notification collaborator. Emission is best-effort: a failure is
// logged and swallowed, never surfaced to the caller of a ledger
// operation.
type EventPublisher interface {
	PublishTransactionEvent(ctx context.Context, event *amqp.TransactionEvent) error
}

// LedgerService orchestrates ledger mutations. Validation happens before
// storage is touched; the record write and the balance adjustment commit
// inside storage as one unit.
type LedgerService struct {
	storage   *storage.SQLiteRepository
	publisher EventPublisher
}

func NewLedgerService(storage *storage.SQLiteRepository, publisher EventPublisher) *LedgerService {
	return &LedgerService{
		storage:   storage,
		publisher: publisher,
	}
}

// OpenAccount creates a new account with a zero balance.
func (s *LedgerService) OpenAccount(ctx context.Context) (core.Account, error) {
	return s.storage.CreateAccount(ctx)
}

// GetAccount returns the account with its current balance.
func (s *LedgerService) GetAccount(ctx context.Context, ownerID string) (core.Account, error) {
	return s.storage.GetAccount(ctx, ownerID)
}

// CreateTransaction validates, persists and balance-adjusts a new entry,
// then emits a best-effort event describing it.
func (s *LedgerService) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	t.ApplyDefaults(time.Now().UTC())
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}

	created, err := s.storage.CreateTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	s.publishEvent(ctx, created)
	return created, nil
}

// GetTransaction returns a single owned entry.
func (s *LedgerService) GetTransaction(ctx context.Context, id, ownerID string) (core.Transaction, error) {
	return s.storage.GetTransaction(ctx, id, ownerID)
}

// UpdateTransaction amends an owned entry. The old delta's reversal and
// the new delta are applied to the balance as one adjustment.
func (s *LedgerService) UpdateTransaction(ctx context.Context, id, ownerID string, patch core.Patch) (core.Transaction, error) {
	if err := validatePatch(patch); err != nil {
		return core.Transaction{}, err
	}

	updated, err := s.storage.UpdateTransaction(ctx, id, ownerID, patch)
	if err != nil {
		return core.Transaction{}, err
	}
	return updated, nil
}

// DeleteTransaction removes an owned entry and reverses its delta.
func (s *LedgerService) DeleteTransaction(ctx context.Context, id, ownerID string) error {
	return s.storage.DeleteTransaction(ctx, id, ownerID)
}

// ListTransactions returns one filtered, sorted page of entries.
func (s *LedgerService) ListTransactions(ctx context.Context, ownerID string, filter core.Filter, page core.Page, sort core.Sort) (core.TransactionPage, error) {
	if err := filter.Validate(); err != nil {
		return core.TransactionPage{}, err
	}
	if sort.Field == "" {
		sort = core.DefaultSort()
	}
	if err := sort.Field.Validate(); err != nil {
		return core.TransactionPage{}, err
	}
	return s.storage.ListTransactions(ctx, ownerID, filter, page, sort)
}

// validatePatch rejects amendments whose set fields fall outside the
// closed sets, before any storage work starts.
func validatePatch(p core.Patch) error {
	if p.Kind != nil {
		if err := p.Kind.Validate(); err != nil {
			return err
		}
	}
	if p.AmountCents != nil && *p.AmountCents <= 0 {
		return core.ErrInvalidAmount
	}
	if p.Category != nil {
		if err := p.Category.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (s *LedgerService) publishEvent(ctx context.Context, t core.Transaction) {
	if s.publisher == nil {
		slog.WarnContext(ctx, "Event publisher not available, skipping transaction event")
		return
	}

	event := amqp.NewTransactionEvent(t.ID, t.OwnerID, string(t.Kind), t.Amount.Cents, string(t.Category))
	if err := s.publisher.PublishTransactionEvent(ctx, event); err != nil {
		// The ledger mutation has committed; emission is best-effort.
		slog.ErrorContext(ctx, "Failed to publish transaction event",
			"id", t.ID, "error", err)
	}
}

// Close releases the underlying storage.
func (s *LedgerService) Close() error {
	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			return fmt.Errorf("close ledger service: %w", err)
		}
	}
	return nil
}
