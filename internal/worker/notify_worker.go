package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"finay/internal/amqp"
	"finay/internal/core"
	"finay/internal/notify"
	"finay/internal/storage"
)

// NotifyWorker turns committed-transaction events into notifications.
// It runs outside the ledger's atomic unit: a delivery failure requeues
// the event and never touches the ledger itself.
type NotifyWorker struct {
	storage  *storage.SQLiteRepository
	notifier notify.Notifier
}

func NewNotifyWorker(storage *storage.SQLiteRepository, notifier notify.Notifier) *NotifyWorker {
	return &NotifyWorker{
		storage:  storage,
		notifier: notifier,
	}
}

// HandleTransactionEvent processes a single event from the queue. The
// record is re-read so the notification reflects the committed state,
// not the event payload. A record deleted between commit and delivery is
// acknowledged without a notification.
func (w *NotifyWorker) HandleTransactionEvent(ctx context.Context, event *amqp.TransactionEvent) error {
	slog.InfoContext(ctx, "Processing transaction event",
		"id", event.ID,
		"owner_id", event.OwnerID)

	t, err := w.storage.GetTransaction(ctx, event.ID, event.OwnerID)
	if errors.Is(err, core.ErrNotFound) {
		slog.WarnContext(ctx, "Transaction gone before notification, dropping event", "id", event.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get transaction for event: %w", err)
	}

	if err := w.notifier.Notify(ctx, notify.ForTransaction(t)); err != nil {
		return fmt.Errorf("deliver notification: %w", err)
	}

	return nil
}
