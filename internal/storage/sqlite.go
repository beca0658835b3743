package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jbprestor/Finance-Tracker-App/internal/core"

	_ "modernc.org/sqlite"
)

// How many times a conflicting atomic unit is retried before the failure
// surfaces as core.ErrConflict.
const maxTxAttempts = 5

type SQLiteRepository struct {
	db *sql.DB
}

var _ Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) CreateUser(ctx context.Context, u core.UserAccount) error {
	wallets, err := encodeWallets(u.Wallets)
	if err != nil {
		return fmt.Errorf("encode wallets: %w", err)
	}
	createdAt := u.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO users (id, email, name, phone, photo_url,
			total_balance_cents, total_income_cents, total_expenses_cents,
			wallets_json, created_at_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.Name, u.Phone, u.PhotoURL,
		u.TotalBalance.Cents, u.TotalIncome.Cents, u.TotalExpenses.Cents,
		wallets, timeToMS(createdAt))
	if err != nil {
		return fmt.Errorf("create user %s: %w", u.ID, err)
	}

	slog.InfoContext(ctx, "User record created", "user_id", u.ID)
	return nil
}

func (r *SQLiteRepository) GetUser(ctx context.Context, id string) (core.UserAccount, error) {
	return scanUser(r.db.QueryRowContext(ctx, `
		SELECT id, email, name, phone, photo_url,
			total_balance_cents, total_income_cents, total_expenses_cents,
			wallets_json, created_at_ms
		FROM users WHERE id = ?`, id), id)
}

func (r *SQLiteRepository) UpdateProfile(ctx context.Context, id string, p ProfileUpdate) error {
	sets := []string{"updated_at_ms = ?"}
	args := []any{timeToMS(time.Now())}
	if p.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *p.Name)
	}
	if p.Phone != nil {
		sets = append(sets, "phone = ?")
		args = append(args, *p.Phone)
	}
	if p.PhotoURL != nil {
		sets = append(sets, "photo_url = ?")
		args = append(args, *p.PhotoURL)
	}
	args = append(args, id)

	res, err := r.db.ExecContext(ctx,
		"UPDATE users SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return fmt.Errorf("update profile %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("user %s: %w", id, core.ErrNotFound)
	}
	return nil
}

// RunUserTransaction runs fn inside a database transaction, retrying the
// whole unit on busy/locked commit failures before giving up with
// core.ErrConflict. fn re-reads the latest totals on every attempt, so no
// committed transaction is ever lost to a concurrent writer.
func (r *SQLiteRepository) RunUserTransaction(ctx context.Context, userID string, fn func(tx AtomicTx) error) error {
	var lastErr error
	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * 10 * time.Millisecond):
			}
		}

		lastErr = r.runUserTxOnce(ctx, userID, fn)
		if lastErr == nil {
			return nil
		}
		if !isBusy(lastErr) {
			return lastErr
		}
		slog.WarnContext(ctx, "Atomic unit hit a conflicting writer, retrying",
			"user_id", userID, "attempt", attempt+1)
	}
	return fmt.Errorf("atomic unit for user %s after %d attempts: %w (%v)",
		userID, maxTxAttempts, core.ErrConflict, lastErr)
}

func (r *SQLiteRepository) runUserTxOnce(ctx context.Context, userID string, fn func(tx AtomicTx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&sqliteTx{tx: tx, userID: userID}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

type sqliteTx struct {
	tx     *sql.Tx
	userID string
}

func (s *sqliteTx) User(ctx context.Context) (core.UserAccount, error) {
	return scanUser(s.tx.QueryRowContext(ctx, `
		SELECT id, email, name, phone, photo_url,
			total_balance_cents, total_income_cents, total_expenses_cents,
			wallets_json, created_at_ms
		FROM users WHERE id = ?`, s.userID), s.userID)
}

func (s *sqliteTx) InsertTransaction(ctx context.Context, txn core.Transaction) error {
	_, err := s.tx.ExecContext(ctx, `
		INSERT INTO transactions (id, user_id, amount_cents, category, note,
			tx_date_ms, tx_type, wallet_id, receipt_ref, created_at_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		txn.ID, s.userID, txn.Amount.Cents, txn.Category, txn.Note,
		timeToMS(txn.Date), string(txn.Type), txn.WalletID, txn.ReceiptRef,
		timeToMS(txn.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert transaction %s: %w", txn.ID, err)
	}
	return nil
}

func (s *sqliteTx) UpdateTotals(ctx context.Context, balance, income, expenses core.Money) error {
	res, err := s.tx.ExecContext(ctx, `
		UPDATE users
		SET total_balance_cents = ?, total_income_cents = ?, total_expenses_cents = ?,
			updated_at_ms = ?
		WHERE id = ?`,
		balance.Cents, income.Cents, expenses.Cents, timeToMS(time.Now()), s.userID)
	if err != nil {
		return fmt.Errorf("update totals for %s: %w", s.userID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("user %s: %w", s.userID, core.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) RecentTransactions(ctx context.Context, userID string, limit int) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, amount_cents, category, note, tx_date_ms, tx_type,
			wallet_id, receipt_ref, created_at_ms
		FROM transactions
		WHERE user_id = ?
		ORDER BY tx_date_ms DESC
		LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent transactions: %w", err)
	}
	defer rows.Close()
	return scanTransactions(rows)
}

func (r *SQLiteRepository) TransactionsInRange(ctx context.Context, userID string, start, end time.Time) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, amount_cents, category, note, tx_date_ms, tx_type,
			wallet_id, receipt_ref, created_at_ms
		FROM transactions
		WHERE user_id = ? AND tx_date_ms >= ? AND tx_date_ms <= ?
		ORDER BY tx_date_ms DESC`, userID, timeToMS(start), timeToMS(end))
	if err != nil {
		return nil, fmt.Errorf("query transactions in range: %w", err)
	}
	defer rows.Close()
	return scanTransactions(rows)
}

// AppendWallet appends to the embedded wallets list as one single-document
// mutation. Not coordinated with the ledger's atomic unit.
func (r *SQLiteRepository) AppendWallet(ctx context.Context, userID string, w core.Wallet) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin wallet append: %w", err)
	}
	defer tx.Rollback()

	var walletsJSON string
	err = tx.QueryRowContext(ctx, "SELECT wallets_json FROM users WHERE id = ?", userID).Scan(&walletsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("user %s: %w", userID, core.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("read wallets for %s: %w", userID, err)
	}

	wallets, err := decodeWallets(walletsJSON)
	if err != nil {
		return fmt.Errorf("decode wallets for %s: %w", userID, err)
	}
	encoded, err := encodeWallets(append(wallets, w))
	if err != nil {
		return fmt.Errorf("encode wallets: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE users SET wallets_json = ?, updated_at_ms = ? WHERE id = ?",
		encoded, timeToMS(time.Now()), userID); err != nil {
		return fmt.Errorf("append wallet for %s: %w", userID, err)
	}
	return tx.Commit()
}

// ReplaceWallets blindly overwrites the embedded wallets list. Callers read,
// filter and write back; a racing append can be lost, which matches the
// registry's documented consistency gap.
func (r *SQLiteRepository) ReplaceWallets(ctx context.Context, userID string, wallets []core.Wallet) error {
	encoded, err := encodeWallets(wallets)
	if err != nil {
		return fmt.Errorf("encode wallets: %w", err)
	}
	res, err := r.db.ExecContext(ctx,
		"UPDATE users SET wallets_json = ?, updated_at_ms = ? WHERE id = ?",
		encoded, timeToMS(time.Now()), userID)
	if err != nil {
		return fmt.Errorf("replace wallets for %s: %w", userID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("user %s: %w", userID, core.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) AddBill(ctx context.Context, userID string, b core.Bill) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO bills (id, user_id, name, amount_cents, due_date_ms,
			frequency, is_paid, category, created_at_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, userID, b.Name, b.Amount.Cents, timeToMS(b.DueDate),
		string(b.Frequency), boolToInt(b.IsPaid), b.Category, timeToMS(b.CreatedAt))
	if err != nil {
		return fmt.Errorf("add bill for %s: %w", userID, err)
	}
	return nil
}

func (r *SQLiteRepository) UpcomingBills(ctx context.Context, userID string) ([]core.Bill, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, amount_cents, due_date_ms, frequency, is_paid,
			category, created_at_ms
		FROM bills
		WHERE user_id = ?
		ORDER BY due_date_ms ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query bills: %w", err)
	}
	defer rows.Close()

	var bills []core.Bill
	for rows.Next() {
		var (
			b               core.Bill
			dueMS, createMS int64
			isPaid          int
			freq            string
		)
		if err := rows.Scan(&b.ID, &b.Name, &b.Amount.Cents, &dueMS, &freq,
			&isPaid, &b.Category, &createMS); err != nil {
			return nil, fmt.Errorf("scan bill: %w", err)
		}
		b.DueDate = msToTime(dueMS)
		b.CreatedAt = msToTime(createMS)
		b.Frequency = core.BillFrequency(freq)
		b.IsPaid = isPaid != 0
		bills = append(bills, b)
	}
	return bills, rows.Err()
}

// ExportRecord ties a committed transaction to its owner for the sheet
// export worker.
type ExportRecord struct {
	UserID      string
	Transaction core.Transaction
	Exported    bool
}

// PendingExports returns transactions not yet appended to the export sheet,
// oldest first. Backup path for lost broker messages.
func (r *SQLiteRepository) PendingExports(ctx context.Context, limit int) ([]ExportRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id, id, amount_cents, category, note, tx_date_ms, tx_type,
			wallet_id, receipt_ref, created_at_ms
		FROM transactions
		WHERE exported = 0
		ORDER BY created_at_ms ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query pending exports: %w", err)
	}
	defer rows.Close()

	var records []ExportRecord
	for rows.Next() {
		var (
			rec              ExportRecord
			dateMS, createMS int64
			txType           string
		)
		t := &rec.Transaction
		if err := rows.Scan(&rec.UserID, &t.ID, &t.Amount.Cents, &t.Category,
			&t.Note, &dateMS, &txType, &t.WalletID, &t.ReceiptRef, &createMS); err != nil {
			return nil, fmt.Errorf("scan pending export: %w", err)
		}
		t.Date = msToTime(dateMS)
		t.CreatedAt = msToTime(createMS)
		t.Type = core.TransactionType(txType)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// GetExportRecord loads a single transaction by id for message-driven export.
func (r *SQLiteRepository) GetExportRecord(ctx context.Context, txID string) (ExportRecord, error) {
	var (
		rec              ExportRecord
		dateMS, createMS int64
		txType           string
		exported         int
	)
	t := &rec.Transaction
	err := r.db.QueryRowContext(ctx, `
		SELECT user_id, id, amount_cents, category, note, tx_date_ms, tx_type,
			wallet_id, receipt_ref, created_at_ms, exported
		FROM transactions WHERE id = ?`, txID).
		Scan(&rec.UserID, &t.ID, &t.Amount.Cents, &t.Category, &t.Note,
			&dateMS, &txType, &t.WalletID, &t.ReceiptRef, &createMS, &exported)
	if errors.Is(err, sql.ErrNoRows) {
		return ExportRecord{}, fmt.Errorf("transaction %s: %w", txID, core.ErrNotFound)
	}
	if err != nil {
		return ExportRecord{}, fmt.Errorf("get transaction %s: %w", txID, err)
	}
	t.Date = msToTime(dateMS)
	t.CreatedAt = msToTime(createMS)
	t.Type = core.TransactionType(txType)
	rec.Exported = exported != 0
	return rec, nil
}

func (r *SQLiteRepository) MarkExported(ctx context.Context, txID string) error {
	if _, err := r.db.ExecContext(ctx,
		"UPDATE transactions SET exported = 1 WHERE id = ?", txID); err != nil {
		return fmt.Errorf("mark transaction %s exported: %w", txID, err)
	}
	return nil
}

// walletDoc is the persisted shape of an embedded wallet entry. The icon
// stays a single string in the document; the tagged variant exists only in Go.
type walletDoc struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Icon         core.Icon `json:"icon"`
	BalanceCents int64     `json:"balanceCents"`
	CreatedAtMS  int64     `json:"createdAt"`
}

func encodeWallets(wallets []core.Wallet) (string, error) {
	docs := make([]walletDoc, len(wallets))
	for i, w := range wallets {
		docs[i] = walletDoc{
			ID:           w.ID,
			Name:         w.Name,
			Icon:         w.Icon,
			BalanceCents: w.Balance.Cents,
			CreatedAtMS:  timeToMS(w.CreatedAt),
		}
	}
	out, err := json.Marshal(docs)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func decodeWallets(s string) ([]core.Wallet, error) {
	if s == "" || s == "[]" {
		return nil, nil
	}
	var docs []walletDoc
	if err := json.Unmarshal([]byte(s), &docs); err != nil {
		return nil, err
	}
	wallets := make([]core.Wallet, len(docs))
	for i, d := range docs {
		wallets[i] = core.Wallet{
			ID:        d.ID,
			Name:      d.Name,
			Icon:      d.Icon,
			Balance:   core.Money{Cents: d.BalanceCents},
			CreatedAt: msToTime(d.CreatedAtMS),
		}
	}
	return wallets, nil
}

func scanUser(row *sql.Row, id string) (core.UserAccount, error) {
	var (
		u           core.UserAccount
		walletsJSON string
		createdMS   int64
	)
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Phone, &u.PhotoURL,
		&u.TotalBalance.Cents, &u.TotalIncome.Cents, &u.TotalExpenses.Cents,
		&walletsJSON, &createdMS)
	if errors.Is(err, sql.ErrNoRows) {
		return core.UserAccount{}, fmt.Errorf("user %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.UserAccount{}, fmt.Errorf("get user %s: %w", id, err)
	}
	u.CreatedAt = msToTime(createdMS)
	if u.Wallets, err = decodeWallets(walletsJSON); err != nil {
		return core.UserAccount{}, fmt.Errorf("decode wallets for %s: %w", id, err)
	}
	return u, nil
}

func scanTransactions(rows *sql.Rows) ([]core.Transaction, error) {
	var txs []core.Transaction
	for rows.Next() {
		var (
			t                core.Transaction
			dateMS, createMS int64
			txType           string
		)
		if err := rows.Scan(&t.ID, &t.Amount.Cents, &t.Category, &t.Note,
			&dateMS, &txType, &t.WalletID, &t.ReceiptRef, &createMS); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.Date = msToTime(dateMS)
		t.CreatedAt = msToTime(createMS)
		t.Type = core.TransactionType(txType)
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked")
}

func timeToMS(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func msToTime(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
