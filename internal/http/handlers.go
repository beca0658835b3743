package http

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jbprestor/Finance-Tracker-App/internal/core"
	"github.com/jbprestor/Finance-Tracker-App/internal/ledger"
	"github.com/jbprestor/Finance-Tracker-App/internal/registry"
	"github.com/jbprestor/Finance-Tracker-App/internal/stats"
	"github.com/jbprestor/Finance-Tracker-App/internal/storage"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.engine == nil {
		checks["ledger"] = "not_configured"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["ledger"] = "ok"
	}
	if s.registry == nil {
		checks["registry"] = "not_configured"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["registry"] = "ok"
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

type createUserRequest struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type userResponse struct {
	ID            string           `json:"id"`
	Email         string           `json:"email"`
	Name          string           `json:"name,omitempty"`
	Phone         string           `json:"phone,omitempty"`
	PhotoURL      string           `json:"photo_url,omitempty"`
	TotalBalance  string           `json:"total_balance"`
	TotalIncome   string           `json:"total_income"`
	TotalExpenses string           `json:"total_expenses"`
	Wallets       []walletResponse `json:"wallets"`
	CreatedAt     time.Time        `json:"created_at"`
}

func toUserResponse(u core.UserAccount) userResponse {
	wallets := make([]walletResponse, 0, len(u.Wallets))
	for _, w := range u.Wallets {
		wallets = append(wallets, toWalletResponse(w))
	}
	return userResponse{
		ID:            u.ID,
		Email:         u.Email,
		Name:          u.Name,
		Phone:         u.Phone,
		PhotoURL:      u.PhotoURL,
		TotalBalance:  u.TotalBalance.String(),
		TotalIncome:   u.TotalIncome.String(),
		TotalExpenses: u.TotalExpenses.String(),
		Wallets:       wallets,
		CreatedAt:     u.CreatedAt,
	}
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body: "+err.Error())
		return
	}

	u, err := s.engine.CreateUser(r.Context(), req.ID, req.Email)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserResponse(u))
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	u, err := s.engine.GetUser(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(u))
}

type updateProfileRequest struct {
	Name     *string `json:"name"`
	Phone    *string `json:"phone"`
	PhotoURL *string `json:"photo_url"`
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body: "+err.Error())
		return
	}

	userID := r.PathValue("id")
	update := storage.ProfileUpdate{Name: req.Name, Phone: req.Phone, PhotoURL: req.PhotoURL}
	if err := s.engine.UpdateProfile(r.Context(), userID, update); err != nil {
		writeError(w, err)
		return
	}

	u, err := s.engine.GetUser(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(u))
}

type recordTransactionRequest struct {
	Amount     string `json:"amount"`
	Category   string `json:"category"`
	Note       string `json:"note"`
	Date       string `json:"date"` // RFC 3339 or YYYY-MM-DD
	Type       string `json:"type"`
	WalletID   string `json:"wallet_id"`
	ReceiptRef string `json:"receipt_ref"`
}

type transactionResponse struct {
	ID         string    `json:"id"`
	Amount     string    `json:"amount"`
	Category   string    `json:"category"`
	Note       string    `json:"note,omitempty"`
	Date       time.Time `json:"date"`
	Type       string    `json:"type"`
	WalletID   string    `json:"wallet_id,omitempty"`
	WalletName string    `json:"wallet_name,omitempty"`
	ReceiptRef string    `json:"receipt_ref,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// toTransactionResponse resolves the wallet reference against the caller's
// current wallet list; a dangling id shows the deleted-wallet fallback.
func toTransactionResponse(tx core.Transaction, wallets []core.Wallet) transactionResponse {
	return transactionResponse{
		ID:         tx.ID,
		Amount:     tx.Amount.String(),
		Category:   tx.Category,
		Note:       tx.Note,
		Date:       tx.Date,
		Type:       string(tx.Type),
		WalletID:   tx.WalletID,
		WalletName: registry.WalletName(wallets, tx.WalletID),
		ReceiptRef: tx.ReceiptRef,
		CreatedAt:  tx.CreatedAt,
	}
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

func (s *Server) handleRecordTransaction(w http.ResponseWriter, r *http.Request) {
	var req recordTransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body: "+err.Error())
		return
	}

	cents, err := core.ParseAmountToCents(req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeError(w, fmt.Errorf("%w: %q", core.ErrInvalidDate, req.Date))
		return
	}

	tx, err := s.engine.RecordTransaction(r.Context(), r.PathValue("id"), ledger.TransactionInput{
		Amount:     core.Money{Cents: cents},
		Category:   req.Category,
		Note:       req.Note,
		Date:       date,
		Type:       core.TransactionType(req.Type),
		WalletID:   req.WalletID,
		ReceiptRef: req.ReceiptRef,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	var wallets []core.Wallet
	if tx.WalletID != "" {
		wallets, _ = s.registry.Wallets(r.Context(), r.PathValue("id"))
	}
	writeJSON(w, http.StatusCreated, toTransactionResponse(tx, wallets))
}

// handleListTransactions serves either the recent feed (?limit=) or a
// closed date range (?from=&to=).
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	q := r.URL.Query()

	var (
		txs []core.Transaction
		err error
	)
	if from, to := q.Get("from"), q.Get("to"); from != "" || to != "" {
		start, perr := parseDate(from)
		if perr != nil {
			writeBadRequest(w, "invalid from date")
			return
		}
		end, perr := parseDate(to)
		if perr != nil {
			writeBadRequest(w, "invalid to date")
			return
		}
		txs, err = s.engine.TransactionsInRange(r.Context(), userID, start, end)
	} else {
		limit := ledger.DefaultRecentLimit
		if v := q.Get("limit"); v != "" {
			limit, err = strconv.Atoi(v)
			if err != nil || limit < 1 {
				writeBadRequest(w, "invalid limit")
				return
			}
		}
		txs, err = s.engine.RecentTransactions(r.Context(), userID, limit)
	}
	if err != nil {
		writeError(w, err)
		return
	}

	var wallets []core.Wallet
	if len(txs) > 0 {
		wallets, _ = s.registry.Wallets(r.Context(), userID)
	}
	out := make([]transactionResponse, 0, len(txs))
	for _, tx := range txs {
		out = append(out, toTransactionResponse(tx, wallets))
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": out})
}

type statisticsResponse struct {
	Period        string                `json:"period"`
	Labels        []string              `json:"labels"`
	Values        []float64             `json:"values"`
	ActiveIndex   int                   `json:"active_index"`
	TopSpending   []transactionResponse `json:"top_spending"`
	TotalExpenses string                `json:"total_expenses"`
}

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	period, err := stats.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	report, err := s.engine.Statistics(r.Context(), r.PathValue("id"), period, time.Now())
	if err != nil {
		writeError(w, err)
		return
	}

	var wallets []core.Wallet
	if len(report.TopSpending) > 0 {
		wallets, _ = s.registry.Wallets(r.Context(), r.PathValue("id"))
	}
	top := make([]transactionResponse, 0, len(report.TopSpending))
	for _, tx := range report.TopSpending {
		top = append(top, toTransactionResponse(tx, wallets))
	}
	writeJSON(w, http.StatusOK, statisticsResponse{
		Period:        string(report.Period),
		Labels:        report.Labels,
		Values:        report.Values,
		ActiveIndex:   report.ActiveIndex,
		TopSpending:   top,
		TotalExpenses: report.TotalExpenses.String(),
	})
}
