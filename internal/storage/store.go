// Package storage defines the document-store contract consumed by the ledger
// engine and the wallet/bill registry, plus the SQLite implementation.
package storage

import (
	"context"
	"time"

	"github.com/jbprestor/Finance-Tracker-App/internal/core"
)

// AtomicTx is the read-modify-write handle passed to RunUserTransaction
// callbacks. Reads see the transaction's snapshot; writes are staged and only
// become visible when the whole unit commits.
type AtomicTx interface {
	// User returns the aggregate record inside the atomic unit. Wraps
	// core.ErrNotFound when the user record does not exist.
	User(ctx context.Context) (core.UserAccount, error)
	// InsertTransaction stages a new immutable ledger entry.
	InsertTransaction(ctx context.Context, tx core.Transaction) error
	// UpdateTotals stages the recomputed aggregate fields.
	UpdateTotals(ctx context.Context, balance, income, expenses core.Money) error
}

// ProfileUpdate carries the optional profile fields; nil means unchanged.
type ProfileUpdate struct {
	Name     *string
	Phone    *string
	PhotoURL *string
}

// Store is the backing document store. The user aggregate record is the
// single shared mutable resource: it must only ever change through
// RunUserTransaction, never through a blind field overwrite. Wallet and bill
// mutations are individually atomic single-document operations that do not
// coordinate with the ledger's atomic unit.
type Store interface {
	CreateUser(ctx context.Context, u core.UserAccount) error
	GetUser(ctx context.Context, id string) (core.UserAccount, error)
	UpdateProfile(ctx context.Context, id string, p ProfileUpdate) error

	// RunUserTransaction applies fn as one atomic unit against the user's
	// document partition: either every staged write becomes visible or none.
	// A commit lost to a concurrent writer is retried by the store and, when
	// retries are exhausted, surfaces wrapped core.ErrConflict.
	RunUserTransaction(ctx context.Context, userID string, fn func(tx AtomicTx) error) error

	// The transaction reads never fail on a missing user: an unknown id
	// yields an empty slice, same as a user with no records.
	RecentTransactions(ctx context.Context, userID string, limit int) ([]core.Transaction, error)
	TransactionsInRange(ctx context.Context, userID string, start, end time.Time) ([]core.Transaction, error)

	AppendWallet(ctx context.Context, userID string, w core.Wallet) error
	ReplaceWallets(ctx context.Context, userID string, wallets []core.Wallet) error

	AddBill(ctx context.Context, userID string, b core.Bill) error
	UpcomingBills(ctx context.Context, userID string) ([]core.Bill, error)

	Close() error
}
