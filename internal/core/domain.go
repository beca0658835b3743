package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

const (
	Weekly  BillFrequency = "Weekly"
	Monthly BillFrequency = "Monthly"
	Yearly  BillFrequency = "Yearly"
)

type (
	TransactionType string

	BillFrequency string

	// Transaction is a single immutable ledger entry. There is no update or
	// delete path: the user-level aggregates are only ever adjusted by
	// inserts, so editing a committed transaction would break them.
	Transaction struct {
		ID         string
		Amount     Money
		Category   string
		Note       string
		Date       time.Time // user-assignable, may differ from CreatedAt
		Type       TransactionType
		WalletID   string // optional, no referential integrity with Wallets
		ReceiptRef string // optional opaque image reference
		CreatedAt  time.Time
	}

	// Wallet is an embedded entry of UserAccount.Wallets. Balance is
	// user-declared and not derived from transactions tagged with the
	// wallet id, unlike the user-level aggregates.
	Wallet struct {
		ID        string
		Name      string
		Icon      Icon
		Balance   Money
		CreatedAt time.Time
	}

	// Bill is an append-only record of a recurring payment. Due dates are
	// computed once at creation; IsPaid is never toggled by any code path.
	Bill struct {
		ID        string
		Name      string
		Amount    Money
		DueDate   time.Time
		Frequency BillFrequency
		IsPaid    bool
		Category  string
		CreatedAt time.Time
	}

	// UserAccount is the per-user aggregate record. The totals are derived
	// exclusively through ledger inserts and must satisfy
	// TotalBalance == TotalIncome - TotalExpenses after every commit.
	UserAccount struct {
		ID            string
		Email         string
		Name          string
		Phone         string
		PhotoURL      string
		TotalBalance  Money
		TotalIncome   Money
		TotalExpenses Money
		Wallets       []Wallet
		CreatedAt     time.Time
	}
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrConflict          = errors.New("transaction conflict")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidType       = errors.New("invalid transaction type")
	ErrInvalidDate       = errors.New("invalid date")
	ErrEmptyCategory     = errors.New("empty category")
	ErrEmptyName         = errors.New("empty name")
	ErrInvalidFrequency  = errors.New("invalid bill frequency")
	ErrInvalidDayOfMonth = errors.New("day of month must be between 1 and 31")
)

func (t TransactionType) Validate() error {
	switch t {
	case Income, Expense:
		return nil
	}
	return ErrInvalidType
}

func (f BillFrequency) Validate() error {
	switch f {
	case Weekly, Monthly, Yearly:
		return nil
	}
	return ErrInvalidFrequency
}

func (tx Transaction) Validate() error {
	if err := tx.Amount.Validate(); err != nil {
		return err
	}
	if err := tx.Type.Validate(); err != nil {
		return err
	}
	if tx.Date.IsZero() {
		return ErrInvalidDate
	}
	if strings.TrimSpace(tx.Category) == "" {
		return ErrEmptyCategory
	}
	return nil
}

func (w Wallet) Validate() error {
	if strings.TrimSpace(w.Name) == "" {
		return ErrEmptyName
	}
	// Balance is user-declared and may legitimately be zero.
	if w.Balance.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (b Bill) Validate() error {
	if strings.TrimSpace(b.Name) == "" {
		return ErrEmptyName
	}
	if err := b.Amount.Validate(); err != nil {
		return err
	}
	if b.DueDate.IsZero() {
		return ErrInvalidDate
	}
	if err := b.Frequency.Validate(); err != nil {
		return err
	}
	return nil
}

// TotalsConsistent reports whether the aggregate fields satisfy the ledger
// invariant TotalBalance == TotalIncome - TotalExpenses.
func (u UserAccount) TotalsConsistent() bool {
	return u.TotalBalance.Cents == u.TotalIncome.Cents-u.TotalExpenses.Cents
}
