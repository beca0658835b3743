package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jbprestor/Finance-Tracker-App/internal/amqp"
	"github.com/jbprestor/Finance-Tracker-App/internal/ledger"
	"github.com/jbprestor/Finance-Tracker-App/internal/storage"
)

// Worker appends committed transactions to the export sheet. The broker feed
// is the fast path; a periodic scan over unexported rows recovers from lost
// messages and worker downtime.
type Worker struct {
	storage   *storage.SQLiteRepository
	sheet     SheetAppender
	batchSize int
}

func NewWorker(storage *storage.SQLiteRepository, sheet SheetAppender, batchSize int) *Worker {
	return &Worker{
		storage:   storage,
		sheet:     sheet,
		batchSize: batchSize,
	}
}

// HandleTransactionMessage exports the transaction referenced by a broker
// message. Already-exported rows are skipped so redeliveries stay harmless.
func (w *Worker) HandleTransactionMessage(ctx context.Context, msg *amqp.TransactionRecordedMessage) error {
	slog.InfoContext(ctx, "Processing transaction event",
		"transaction_id", msg.TransactionID, "user_id", msg.UserID)

	rec, err := w.storage.GetExportRecord(ctx, msg.TransactionID)
	if ledger.IsNotFound(err) {
		// The local database lags behind the broker; the periodic pass will
		// pick the row up once it lands.
		slog.WarnContext(ctx, "Transaction not in local storage yet",
			"transaction_id", msg.TransactionID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get transaction from storage: %w", err)
	}
	if rec.Exported {
		return nil
	}

	return w.export(ctx, rec)
}

// ProcessPending exports any rows the message path missed.
func (w *Worker) ProcessPending(ctx context.Context) error {
	pending, err := w.storage.PendingExports(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending exports: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending exports", "count", len(pending))
	for _, rec := range pending {
		if err := w.export(ctx, rec); err != nil {
			slog.ErrorContext(ctx, "Failed to export transaction",
				"transaction_id", rec.Transaction.ID, "error", err)
			continue
		}
	}
	return nil
}

// Run drives the periodic catch-up pass until the context ends.
func (w *Worker) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.ProcessPending(ctx); err != nil {
				slog.ErrorContext(ctx, "Periodic export pass failed", "error", err)
			}
		}
	}
}

func (w *Worker) export(ctx context.Context, rec storage.ExportRecord) error {
	if err := w.sheet.AppendTransaction(ctx, rec); err != nil {
		return fmt.Errorf("append transaction %s: %w", rec.Transaction.ID, err)
	}
	if err := w.storage.MarkExported(ctx, rec.Transaction.ID); err != nil {
		return fmt.Errorf("mark transaction %s exported: %w", rec.Transaction.ID, err)
	}
	slog.InfoContext(ctx, "Transaction exported",
		"transaction_id", rec.Transaction.ID,
		"type", string(rec.Transaction.Type),
		"amount_cents", rec.Transaction.Amount.Cents)
	return nil
}
