// Package notify defines the notification delivery collaborator. The
// ledger only emits; how a notification reaches the user (push, in-app,
// email) is owned by whatever implements Notifier.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"finay/internal/core"
)

// Notification is what the ledger hands to a delivery backend.
type Notification struct {
	OwnerID string
	Title   string
	Body    string
}

// Notifier delivers a notification. Implementations must not assume the
// delivery is retried; the worker requeues on error.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// LogNotifier is the default delivery backend: it records the
// notification in the structured log and nothing else. Real delivery
// backends replace it at wiring time.
type LogNotifier struct{}

func (LogNotifier) Notify(ctx context.Context, n Notification) error {
	slog.InfoContext(ctx, "Notification delivered",
		"owner_id", n.OwnerID,
		"title", n.Title,
		"body", n.Body)
	return nil
}

// ForTransaction builds the user-facing notification for a committed
// transaction.
func ForTransaction(t core.Transaction) Notification {
	var body string
	switch t.Kind {
	case core.KindIncome:
		body = fmt.Sprintf("Income of %.2f %s (%s) was added to your account.",
			t.Amount.Units(), t.Currency, t.Category)
	case core.KindExpense:
		body = fmt.Sprintf("Expense of %.2f %s (%s) was deducted from your account.",
			t.Amount.Units(), t.Currency, t.Category)
	default:
		body = fmt.Sprintf("Transfer of %.2f %s was recorded.",
			t.Amount.Units(), t.Currency)
	}

	return Notification{
		OwnerID: t.OwnerID,
		Title:   "Transaction recorded",
		Body:    body,
	}
}
