// Package ledger implements the balance-consistency transaction engine. It
// owns the invariant that a user's aggregate totals always equal the sum of
// that user's committed transaction history, enforced by an atomic
// read-modify-write on every insert.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jbprestor/Finance-Tracker-App/internal/core"
	"github.com/jbprestor/Finance-Tracker-App/internal/notify"
	"github.com/jbprestor/Finance-Tracker-App/internal/stats"
	"github.com/jbprestor/Finance-Tracker-App/internal/storage"
)

// DefaultRecentLimit is used when a caller asks for recent transactions
// without a count.
const DefaultRecentLimit = 10

// Publisher propagates committed transactions to other processes. A publish
// failure never fails the already-committed ledger operation.
type Publisher interface {
	PublishTransactionRecorded(ctx context.Context, userID string, tx core.Transaction) error
}

// TransactionInput is the caller-supplied part of a new ledger entry.
type TransactionInput struct {
	Amount     core.Money
	Category   string
	Note       string
	Date       time.Time // user-assignable, may differ from creation time
	Type       core.TransactionType
	WalletID   string
	ReceiptRef string
}

type Engine struct {
	store     storage.Store
	hub       *notify.Hub
	publisher Publisher
}

// New creates the engine. hub must be non-nil; publisher may be nil when no
// cross-process propagation is configured.
func New(store storage.Store, hub *notify.Hub, publisher Publisher) *Engine {
	return &Engine{store: store, hub: hub, publisher: publisher}
}

// CreateUser registers a new aggregate record with all totals at zero. The id
// is the opaque identifier issued by the auth provider.
func (e *Engine) CreateUser(ctx context.Context, id, email string) (core.UserAccount, error) {
	if strings.TrimSpace(id) == "" || strings.TrimSpace(email) == "" {
		return core.UserAccount{}, fmt.Errorf("create user: %w", core.ErrEmptyName)
	}
	u := core.UserAccount{
		ID:        id,
		Email:     email,
		CreatedAt: time.Now(),
	}
	if err := e.store.CreateUser(ctx, u); err != nil {
		return core.UserAccount{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

func (e *Engine) GetUser(ctx context.Context, id string) (core.UserAccount, error) {
	return e.store.GetUser(ctx, id)
}

// UpdateProfile changes the user's editable profile fields. Nil fields stay
// untouched; the totals are never writable through this path.
func (e *Engine) UpdateProfile(ctx context.Context, id string, p storage.ProfileUpdate) error {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return fmt.Errorf("update profile: %w", core.ErrEmptyName)
	}
	if err := e.store.UpdateProfile(ctx, id, p); err != nil {
		return fmt.Errorf("update profile for %s: %w", id, err)
	}
	return nil
}

// Subscribe registers fn for the user's committed aggregate changes and
// returns the unsubscribe function.
func (e *Engine) Subscribe(userID string, fn func(core.UserAccount)) func() {
	return e.hub.Subscribe(userID, fn)
}

// RecordTransaction inserts a ledger entry and recomputes the user's totals
// as one atomic unit: read the current aggregates (failing with
// core.ErrNotFound if the user record is absent, never self-healing), derive
// the new totals, persist the entry with a server-assigned creation
// timestamp, persist the totals. Either all effects are visible or none.
//
// Under concurrent writers every attempt re-reads the latest totals inside
// the atomic unit, so the final aggregate equals the sum of all committed
// transactions; conflict retries belong to the store, not this engine.
func (e *Engine) RecordTransaction(ctx context.Context, userID string, in TransactionInput) (core.Transaction, error) {
	tx := core.Transaction{
		ID:         uuid.NewString(),
		Amount:     in.Amount,
		Category:   strings.TrimSpace(in.Category),
		Note:       strings.TrimSpace(in.Note),
		Date:       in.Date,
		Type:       in.Type,
		WalletID:   in.WalletID,
		ReceiptRef: in.ReceiptRef,
		CreatedAt:  time.Now(),
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, fmt.Errorf("record transaction: %w", err)
	}

	var updated core.UserAccount
	err := e.store.RunUserTransaction(ctx, userID, func(atx storage.AtomicTx) error {
		u, err := atx.User(ctx)
		if err != nil {
			return err
		}

		balance, income, expenses := u.TotalBalance, u.TotalIncome, u.TotalExpenses
		if tx.Type == core.Income {
			income = income.Add(tx.Amount)
			balance = balance.Add(tx.Amount)
		} else {
			expenses = expenses.Add(tx.Amount)
			balance = balance.Sub(tx.Amount)
		}

		if err := atx.InsertTransaction(ctx, tx); err != nil {
			return err
		}
		if err := atx.UpdateTotals(ctx, balance, income, expenses); err != nil {
			return err
		}

		updated = u
		updated.TotalBalance = balance
		updated.TotalIncome = income
		updated.TotalExpenses = expenses
		return nil
	})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("record transaction for %s: %w", userID, err)
	}

	slog.InfoContext(ctx, "Transaction recorded",
		"user_id", userID,
		"transaction_id", tx.ID,
		"type", string(tx.Type),
		"amount_cents", tx.Amount.Cents,
		"balance_cents", updated.TotalBalance.Cents)

	e.hub.Publish(updated)

	if e.publisher != nil {
		if err := e.publisher.PublishTransactionRecorded(ctx, userID, tx); err != nil {
			// The ledger write is committed; propagation catches up later.
			slog.ErrorContext(ctx, "Failed to publish transaction event",
				"user_id", userID, "transaction_id", tx.ID, "error", err)
		}
	}

	return tx, nil
}

// RecentTransactions returns the count most recent entries by date
// descending. An empty history yields an empty slice; store errors propagate.
func (e *Engine) RecentTransactions(ctx context.Context, userID string, count int) ([]core.Transaction, error) {
	if count <= 0 {
		count = DefaultRecentLimit
	}
	txs, err := e.store.RecentTransactions(ctx, userID, count)
	if err != nil {
		return nil, fmt.Errorf("recent transactions for %s: %w", userID, err)
	}
	return txs, nil
}

// TransactionsInRange returns entries with date in [start, end] sorted
// descending by date.
func (e *Engine) TransactionsInRange(ctx context.Context, userID string, start, end time.Time) ([]core.Transaction, error) {
	txs, err := e.store.TransactionsInRange(ctx, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("transactions in range for %s: %w", userID, err)
	}
	return txs, nil
}

// Statistics fetches the period's transactions and runs the pure aggregation
// against the same reference instant used to compute the fetch window.
func (e *Engine) Statistics(ctx context.Context, userID string, period stats.Period, now time.Time) (stats.Report, error) {
	start, end := stats.PeriodRange(period, now)
	txs, err := e.TransactionsInRange(ctx, userID, start, end)
	if err != nil {
		return stats.Report{}, err
	}
	return stats.Aggregate(txs, period, now), nil
}

// IsNotFound reports whether err is the engine's not-found failure.
func IsNotFound(err error) bool {
	return errors.Is(err, core.ErrNotFound)
}
