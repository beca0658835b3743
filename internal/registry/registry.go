// Package registry covers the secondary mutation paths: the embedded wallets
// list on the user record and the append-only bills collection. These are
// direct single-document operations that deliberately do not participate in
// the ledger engine's atomic unit; a wallet balance edit and a transaction
// insert referencing that wallet can race with no ordering guarantee.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jbprestor/Finance-Tracker-App/internal/core"
	"github.com/jbprestor/Finance-Tracker-App/internal/storage"
)

// DeletedWalletName is the display fallback for transactions that still
// reference a wallet removed from the list.
const DeletedWalletName = "Deleted wallet"

type Registry struct {
	store storage.Store
}

func New(store storage.Store) *Registry {
	return &Registry{store: store}
}

// WalletInput carries the user-editable wallet fields. Balance is a
// user-declared figure, never derived from transactions.
type WalletInput struct {
	Name    string
	Icon    core.Icon
	Balance core.Money
}

// AddWallet appends a new wallet with a time-based id to the user's list.
func (r *Registry) AddWallet(ctx context.Context, userID string, in WalletInput) (core.Wallet, error) {
	w := core.Wallet{
		ID:        fmt.Sprintf("wallet_%d", time.Now().UnixMilli()),
		Name:      strings.TrimSpace(in.Name),
		Icon:      in.Icon,
		Balance:   in.Balance,
		CreatedAt: time.Now(),
	}
	if err := w.Validate(); err != nil {
		return core.Wallet{}, fmt.Errorf("add wallet: %w", err)
	}
	if err := r.store.AppendWallet(ctx, userID, w); err != nil {
		return core.Wallet{}, fmt.Errorf("add wallet for %s: %w", userID, err)
	}
	slog.InfoContext(ctx, "Wallet added", "user_id", userID, "wallet_id", w.ID)
	return w, nil
}

// UpdateWallet replaces the matching entry in place, keeping its id and
// creation time.
func (r *Registry) UpdateWallet(ctx context.Context, userID, walletID string, in WalletInput) (core.Wallet, error) {
	u, err := r.store.GetUser(ctx, userID)
	if err != nil {
		return core.Wallet{}, fmt.Errorf("update wallet: %w", err)
	}

	idx := -1
	for i, w := range u.Wallets {
		if w.ID == walletID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return core.Wallet{}, fmt.Errorf("wallet %s: %w", walletID, core.ErrNotFound)
	}

	updated := u.Wallets[idx]
	updated.Name = strings.TrimSpace(in.Name)
	updated.Icon = in.Icon
	updated.Balance = in.Balance
	if err := updated.Validate(); err != nil {
		return core.Wallet{}, fmt.Errorf("update wallet: %w", err)
	}

	wallets := append([]core.Wallet(nil), u.Wallets...)
	wallets[idx] = updated
	if err := r.store.ReplaceWallets(ctx, userID, wallets); err != nil {
		return core.Wallet{}, fmt.Errorf("update wallet for %s: %w", userID, err)
	}
	return updated, nil
}

// DeleteWallet removes the entry by filtered rewrite. Transactions that
// reference the wallet keep their dangling id; readers fall back to
// DeletedWalletName instead of failing.
func (r *Registry) DeleteWallet(ctx context.Context, userID, walletID string) error {
	u, err := r.store.GetUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("delete wallet: %w", err)
	}

	wallets := make([]core.Wallet, 0, len(u.Wallets))
	found := false
	for _, w := range u.Wallets {
		if w.ID == walletID {
			found = true
			continue
		}
		wallets = append(wallets, w)
	}
	if !found {
		return fmt.Errorf("wallet %s: %w", walletID, core.ErrNotFound)
	}
	if err := r.store.ReplaceWallets(ctx, userID, wallets); err != nil {
		return fmt.Errorf("delete wallet for %s: %w", userID, err)
	}
	slog.InfoContext(ctx, "Wallet deleted", "user_id", userID, "wallet_id", walletID)
	return nil
}

// Wallets returns the user's current wallet list.
func (r *Registry) Wallets(ctx context.Context, userID string) ([]core.Wallet, error) {
	u, err := r.store.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list wallets: %w", err)
	}
	return u.Wallets, nil
}

// WalletName resolves a transaction's wallet reference for display. There is
// no referential integrity between transactions and wallets, so a dangling
// id resolves to the deleted-wallet fallback.
func WalletName(wallets []core.Wallet, walletID string) string {
	if walletID == "" {
		return ""
	}
	for _, w := range wallets {
		if w.ID == walletID {
			return w.Name
		}
	}
	return DeletedWalletName
}

// BillInput carries the new-bill form fields. The due date is derived once
// from the day of month; it is never regenerated after the period elapses.
type BillInput struct {
	Name       string
	Amount     core.Money
	DayOfMonth int
	Frequency  core.BillFrequency
	Category   string
}

// AddBill validates the input, computes the first due date and appends the
// bill. All validation happens before any store call.
func (r *Registry) AddBill(ctx context.Context, userID string, in BillInput) (core.Bill, error) {
	if in.DayOfMonth < 1 || in.DayOfMonth > 31 {
		return core.Bill{}, fmt.Errorf("add bill: %w", core.ErrInvalidDayOfMonth)
	}
	b := core.Bill{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(in.Name),
		Amount:    in.Amount,
		DueDate:   NextDueDate(time.Now(), in.DayOfMonth),
		Frequency: in.Frequency,
		Category:  strings.TrimSpace(in.Category),
		CreatedAt: time.Now(),
	}
	if err := b.Validate(); err != nil {
		return core.Bill{}, fmt.Errorf("add bill: %w", err)
	}
	if err := r.store.AddBill(ctx, userID, b); err != nil {
		return core.Bill{}, fmt.Errorf("add bill for %s: %w", userID, err)
	}
	slog.InfoContext(ctx, "Bill added",
		"user_id", userID, "bill_id", b.ID, "due_date", b.DueDate.Format("2006-01-02"))
	return b, nil
}

// UpcomingBills lists the user's bills sorted by ascending due date.
func (r *Registry) UpcomingBills(ctx context.Context, userID string) ([]core.Bill, error) {
	bills, err := r.store.UpcomingBills(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("upcoming bills for %s: %w", userID, err)
	}
	return bills, nil
}

// NextDueDate places the due day in the current month, rolling to the next
// month when that instant is already past. Out-of-range days normalize the
// way the calendar does (Jan 32 becomes Feb 1).
func NextDueDate(now time.Time, dayOfMonth int) time.Time {
	due := time.Date(now.Year(), now.Month(), dayOfMonth, 0, 0, 0, 0, now.Location())
	if due.Before(now) {
		due = due.AddDate(0, 1, 0)
	}
	return due
}
