package http

import (
	"net/http"
	"time"

	"github.com/jbprestor/Finance-Tracker-App/internal/core"
	"github.com/jbprestor/Finance-Tracker-App/internal/registry"
)

type walletRequest struct {
	Name    string `json:"name"`
	Icon    string `json:"icon"`
	Balance string `json:"balance"`
}

type walletResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Icon      string    `json:"icon,omitempty"`
	Balance   string    `json:"balance"`
	CreatedAt time.Time `json:"created_at"`
}

func toWalletResponse(w core.Wallet) walletResponse {
	return walletResponse{
		ID:        w.ID,
		Name:      w.Name,
		Icon:      w.Icon.Encode(),
		Balance:   w.Balance.String(),
		CreatedAt: w.CreatedAt,
	}
}

func walletInputFromRequest(req walletRequest) (registry.WalletInput, error) {
	var balance core.Money
	if req.Balance != "" {
		cents, err := core.ParseAmountToCents(req.Balance)
		if err != nil {
			return registry.WalletInput{}, err
		}
		balance = core.Money{Cents: cents}
	}
	return registry.WalletInput{
		Name:    req.Name,
		Icon:    core.DecodeIcon(req.Icon),
		Balance: balance,
	}, nil
}

func (s *Server) handleAddWallet(w http.ResponseWriter, r *http.Request) {
	var req walletRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body: "+err.Error())
		return
	}

	in, err := walletInputFromRequest(req)
	if err != nil {
		writeError(w, err)
		return
	}
	wallet, err := s.registry.AddWallet(r.Context(), r.PathValue("id"), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toWalletResponse(wallet))
}

func (s *Server) handleListWallets(w http.ResponseWriter, r *http.Request) {
	wallets, err := s.registry.Wallets(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]walletResponse, 0, len(wallets))
	for _, wl := range wallets {
		out = append(out, toWalletResponse(wl))
	}
	writeJSON(w, http.StatusOK, map[string]any{"wallets": out})
}

func (s *Server) handleUpdateWallet(w http.ResponseWriter, r *http.Request) {
	var req walletRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body: "+err.Error())
		return
	}

	in, err := walletInputFromRequest(req)
	if err != nil {
		writeError(w, err)
		return
	}
	wallet, err := s.registry.UpdateWallet(r.Context(), r.PathValue("id"), r.PathValue("walletID"), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toWalletResponse(wallet))
}

func (s *Server) handleDeleteWallet(w http.ResponseWriter, r *http.Request) {
	err := s.registry.DeleteWallet(r.Context(), r.PathValue("id"), r.PathValue("walletID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

type billRequest struct {
	Name       string `json:"name"`
	Amount     string `json:"amount"`
	DayOfMonth int    `json:"day_of_month"`
	Frequency  string `json:"frequency"`
	Category   string `json:"category"`
}

type billResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Amount    string    `json:"amount"`
	DueDate   time.Time `json:"due_date"`
	Frequency string    `json:"frequency"`
	IsPaid    bool      `json:"is_paid"`
	Category  string    `json:"category,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func toBillResponse(b core.Bill) billResponse {
	return billResponse{
		ID:        b.ID,
		Name:      b.Name,
		Amount:    b.Amount.String(),
		DueDate:   b.DueDate,
		Frequency: string(b.Frequency),
		IsPaid:    b.IsPaid,
		Category:  b.Category,
		CreatedAt: b.CreatedAt,
	}
}

func (s *Server) handleAddBill(w http.ResponseWriter, r *http.Request) {
	var req billRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body: "+err.Error())
		return
	}

	cents, err := core.ParseAmountToCents(req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	bill, err := s.registry.AddBill(r.Context(), r.PathValue("id"), registry.BillInput{
		Name:       req.Name,
		Amount:     core.Money{Cents: cents},
		DayOfMonth: req.DayOfMonth,
		Frequency:  core.BillFrequency(req.Frequency),
		Category:   req.Category,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toBillResponse(bill))
}

func (s *Server) handleListBills(w http.ResponseWriter, r *http.Request) {
	bills, err := s.registry.UpcomingBills(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]billResponse, 0, len(bills))
	for _, b := range bills {
		out = append(out, toBillResponse(b))
	}
	writeJSON(w, http.StatusOK, map[string]any{"bills": out})
}
