// Package memory provides a mutex-guarded in-memory implementation of the
// storage contract. It is the default backend for local development and the
// substrate for engine tests, including simulated commit failures.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jbprestor/Finance-Tracker-App/internal/core"
	"github.com/jbprestor/Finance-Tracker-App/internal/storage"
)

type userRecord struct {
	user  core.UserAccount
	txs   []core.Transaction
	bills []core.Bill
}

type Store struct {
	mu    sync.Mutex
	users map[string]*userRecord

	// commitHook, when set, runs after the callback has staged its writes and
	// before they are applied. A non-nil return aborts the unit with no
	// visible effect. Tests use it to simulate backing-store aborts.
	commitHook func() error
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{users: make(map[string]*userRecord)}
}

// SetCommitHook installs a pre-apply failure hook for atomicity tests.
func (s *Store) SetCommitHook(fn func() error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commitHook = fn
}

func (s *Store) Close() error { return nil }

func (s *Store) CreateUser(_ context.Context, u core.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; ok {
		return fmt.Errorf("user %s already exists", u.ID)
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	s.users[u.ID] = &userRecord{user: u}
	return nil
}

func (s *Store) GetUser(_ context.Context, id string) (core.UserAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.users[id]
	if !ok {
		return core.UserAccount{}, fmt.Errorf("user %s: %w", id, core.ErrNotFound)
	}
	return cloneUser(rec.user), nil
}

func (s *Store) UpdateProfile(_ context.Context, id string, p storage.ProfileUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.users[id]
	if !ok {
		return fmt.Errorf("user %s: %w", id, core.ErrNotFound)
	}
	if p.Name != nil {
		rec.user.Name = *p.Name
	}
	if p.Phone != nil {
		rec.user.Phone = *p.Phone
	}
	if p.PhotoURL != nil {
		rec.user.PhotoURL = *p.PhotoURL
	}
	return nil
}

// memTx stages writes until the unit commits.
type memTx struct {
	store  *Store
	userID string

	stagedTxs    []core.Transaction
	stagedTotals *[3]core.Money // balance, income, expenses
}

func (t *memTx) User(_ context.Context) (core.UserAccount, error) {
	rec, ok := t.store.users[t.userID]
	if !ok {
		return core.UserAccount{}, fmt.Errorf("user %s: %w", t.userID, core.ErrNotFound)
	}
	return cloneUser(rec.user), nil
}

func (t *memTx) InsertTransaction(_ context.Context, tx core.Transaction) error {
	t.stagedTxs = append(t.stagedTxs, tx)
	return nil
}

func (t *memTx) UpdateTotals(_ context.Context, balance, income, expenses core.Money) error {
	t.stagedTotals = &[3]core.Money{balance, income, expenses}
	return nil
}

// RunUserTransaction serializes atomic units behind the store mutex, so every
// callback reads the latest committed totals. Staged writes apply only when
// both the callback and the commit hook succeed.
func (s *Store) RunUserTransaction(ctx context.Context, userID string, fn func(tx storage.AtomicTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{store: s, userID: userID}
	if err := fn(tx); err != nil {
		return err
	}
	if s.commitHook != nil {
		if err := s.commitHook(); err != nil {
			return err
		}
	}

	rec, ok := s.users[userID]
	if !ok {
		return fmt.Errorf("user %s: %w", userID, core.ErrNotFound)
	}
	rec.txs = append(rec.txs, tx.stagedTxs...)
	if tx.stagedTotals != nil {
		rec.user.TotalBalance = tx.stagedTotals[0]
		rec.user.TotalIncome = tx.stagedTotals[1]
		rec.user.TotalExpenses = tx.stagedTotals[2]
	}
	return nil
}

// RecentTransactions yields an empty slice for an unknown user. Read paths
// degrade to "no records" instead of failing, matching the SQLite backend.
func (s *Store) RecentTransactions(_ context.Context, userID string, limit int) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.users[userID]
	if !ok {
		return []core.Transaction{}, nil
	}
	txs := sortedByDateDesc(rec.txs)
	if limit > 0 && len(txs) > limit {
		txs = txs[:limit]
	}
	return txs, nil
}

func (s *Store) TransactionsInRange(_ context.Context, userID string, start, end time.Time) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.users[userID]
	if !ok {
		return []core.Transaction{}, nil
	}
	var filtered []core.Transaction
	for _, tx := range rec.txs {
		if tx.Date.Before(start) || tx.Date.After(end) {
			continue
		}
		filtered = append(filtered, tx)
	}
	return sortedByDateDesc(filtered), nil
}

func (s *Store) AppendWallet(_ context.Context, userID string, w core.Wallet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.users[userID]
	if !ok {
		return fmt.Errorf("user %s: %w", userID, core.ErrNotFound)
	}
	rec.user.Wallets = append(rec.user.Wallets, w)
	return nil
}

func (s *Store) ReplaceWallets(_ context.Context, userID string, wallets []core.Wallet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.users[userID]
	if !ok {
		return fmt.Errorf("user %s: %w", userID, core.ErrNotFound)
	}
	rec.user.Wallets = append([]core.Wallet(nil), wallets...)
	return nil
}

func (s *Store) AddBill(_ context.Context, userID string, b core.Bill) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.users[userID]
	if !ok {
		return fmt.Errorf("user %s: %w", userID, core.ErrNotFound)
	}
	rec.bills = append(rec.bills, b)
	return nil
}

func (s *Store) UpcomingBills(_ context.Context, userID string) ([]core.Bill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.users[userID]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", userID, core.ErrNotFound)
	}
	bills := append([]core.Bill(nil), rec.bills...)
	sort.SliceStable(bills, func(i, j int) bool {
		return bills[i].DueDate.Before(bills[j].DueDate)
	})
	return bills, nil
}

func cloneUser(u core.UserAccount) core.UserAccount {
	u.Wallets = append([]core.Wallet(nil), u.Wallets...)
	return u
}

func sortedByDateDesc(txs []core.Transaction) []core.Transaction {
	out := append([]core.Transaction(nil), txs...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.After(out[j].Date)
	})
	return out
}
