package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jbprestor/Finance-Tracker-App/internal/ledger"
	"github.com/jbprestor/Finance-Tracker-App/internal/notify"
	"github.com/jbprestor/Finance-Tracker-App/internal/registry"
	"github.com/jbprestor/Finance-Tracker-App/internal/storage/memory"
)

func newTestServer() *Server {
	store := memory.New()
	engine := ledger.New(store, notify.NewHub(), nil)
	return NewServer(":0", engine, registry.New(store), nil)
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", rr.Body.String(), err)
	}
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer()
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := do(t, srv, http.MethodGet, path, "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}
}

func TestUserLifecycle(t *testing.T) {
	srv := newTestServer()

	rr := do(t, srv, http.MethodPost, "/api/users", `{"id":"u1","email":"u1@example.com"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create user status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = do(t, srv, http.MethodGet, "/api/users/u1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("get user status=%d", rr.Code)
	}
	var u userResponse
	decodeBody(t, rr, &u)
	if u.Email != "u1@example.com" {
		t.Errorf("email = %q, want u1@example.com", u.Email)
	}
	if u.TotalBalance != "0.00" {
		t.Errorf("total balance = %q, want 0.00", u.TotalBalance)
	}

	rr = do(t, srv, http.MethodGet, "/api/users/missing", "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("missing user status=%d, want 404", rr.Code)
	}

	rr = do(t, srv, http.MethodPatch, "/api/users/u1", `{"name":"Ada"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("update profile status=%d body=%s", rr.Code, rr.Body.String())
	}
	decodeBody(t, rr, &u)
	if u.Name != "Ada" {
		t.Errorf("name = %q, want Ada", u.Name)
	}
}

func TestRecordTransactionUpdatesTotals(t *testing.T) {
	srv := newTestServer()
	do(t, srv, http.MethodPost, "/api/users", `{"id":"u1","email":"u1@example.com"}`)

	rr := do(t, srv, http.MethodPost, "/api/users/u1/transactions",
		`{"amount":"100.00","category":"Salary","date":"2025-06-09","type":"income"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("record income status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = do(t, srv, http.MethodPost, "/api/users/u1/transactions",
		`{"amount":"30.00","category":"Groceries","date":"2025-06-09","type":"expense"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("record expense status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = do(t, srv, http.MethodGet, "/api/users/u1", "")
	var u userResponse
	decodeBody(t, rr, &u)
	if u.TotalBalance != "70.00" || u.TotalIncome != "100.00" || u.TotalExpenses != "30.00" {
		t.Errorf("totals = %s/%s/%s, want 70.00/100.00/30.00",
			u.TotalBalance, u.TotalIncome, u.TotalExpenses)
	}

	rr = do(t, srv, http.MethodGet, "/api/users/u1/transactions", "")
	var list struct {
		Transactions []transactionResponse `json:"transactions"`
	}
	decodeBody(t, rr, &list)
	if len(list.Transactions) != 2 {
		t.Fatalf("transactions = %d, want 2", len(list.Transactions))
	}
}

func TestRecordTransactionValidation(t *testing.T) {
	srv := newTestServer()
	do(t, srv, http.MethodPost, "/api/users", `{"id":"u1","email":"u1@example.com"}`)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"negative amount", `{"amount":"-5.00","category":"X","date":"2025-06-09","type":"expense"}`, http.StatusBadRequest},
		{"zero amount", `{"amount":"0","category":"X","date":"2025-06-09","type":"expense"}`, http.StatusBadRequest},
		{"bad type", `{"amount":"5.00","category":"X","date":"2025-06-09","type":"transfer"}`, http.StatusBadRequest},
		{"bad date", `{"amount":"5.00","category":"X","date":"not-a-date","type":"expense"}`, http.StatusBadRequest},
		{"empty category", `{"amount":"5.00","category":"","date":"2025-06-09","type":"expense"}`, http.StatusBadRequest},
		{"unknown user", `{"amount":"5.00","category":"X","date":"2025-06-09","type":"expense"}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			userID := "u1"
			if tt.name == "unknown user" {
				userID = "ghost"
			}
			rr := do(t, srv, http.MethodPost, "/api/users/"+userID+"/transactions", tt.body)
			if rr.Code != tt.want {
				t.Errorf("status=%d, want %d (body %s)", rr.Code, tt.want, rr.Body.String())
			}
		})
	}

	// No partial effects from rejected writes.
	rr := do(t, srv, http.MethodGet, "/api/users/u1", "")
	var u userResponse
	decodeBody(t, rr, &u)
	if u.TotalBalance != "0.00" || u.TotalIncome != "0.00" || u.TotalExpenses != "0.00" {
		t.Errorf("totals changed by rejected writes: %s/%s/%s",
			u.TotalBalance, u.TotalIncome, u.TotalExpenses)
	}
}

func TestListTransactionsUnknownUserIsEmpty(t *testing.T) {
	srv := newTestServer()

	rr := do(t, srv, http.MethodGet, "/api/users/ghost/transactions", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("list status=%d body=%s", rr.Code, rr.Body.String())
	}
	var list struct {
		Transactions []transactionResponse `json:"transactions"`
	}
	decodeBody(t, rr, &list)
	if len(list.Transactions) != 0 {
		t.Errorf("transactions = %d, want 0", len(list.Transactions))
	}

	rr = do(t, srv, http.MethodGet, "/api/users/ghost/statistics?period=week", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("statistics status=%d body=%s", rr.Code, rr.Body.String())
	}
	var report statisticsResponse
	decodeBody(t, rr, &report)
	for i, v := range report.Values {
		if v != 0 {
			t.Errorf("values[%d] = %v, want 0", i, v)
		}
	}
}

func TestTransactionWalletNameResolution(t *testing.T) {
	srv := newTestServer()
	do(t, srv, http.MethodPost, "/api/users", `{"id":"u1","email":"u1@example.com"}`)

	rr := do(t, srv, http.MethodPost, "/api/users/u1/wallets",
		`{"name":"Cash","icon":"wallet:green","balance":"50.00"}`)
	var wallet walletResponse
	decodeBody(t, rr, &wallet)

	rr = do(t, srv, http.MethodPost, "/api/users/u1/transactions",
		fmt.Sprintf(`{"amount":"5.00","category":"Coffee","date":"2025-06-09","type":"expense","wallet_id":%q}`,
			wallet.ID))
	if rr.Code != http.StatusCreated {
		t.Fatalf("record status=%d body=%s", rr.Code, rr.Body.String())
	}
	var tx transactionResponse
	decodeBody(t, rr, &tx)
	if tx.WalletName != "Cash" {
		t.Errorf("wallet name = %q, want Cash", tx.WalletName)
	}

	do(t, srv, http.MethodDelete, "/api/users/u1/wallets/"+wallet.ID, "")

	rr = do(t, srv, http.MethodGet, "/api/users/u1/transactions", "")
	var list struct {
		Transactions []transactionResponse `json:"transactions"`
	}
	decodeBody(t, rr, &list)
	if len(list.Transactions) != 1 {
		t.Fatalf("transactions = %d, want 1", len(list.Transactions))
	}
	if got := list.Transactions[0].WalletName; got != registry.DeletedWalletName {
		t.Errorf("wallet name after delete = %q, want %q", got, registry.DeletedWalletName)
	}
}

func TestStatisticsEndpoint(t *testing.T) {
	srv := newTestServer()
	do(t, srv, http.MethodPost, "/api/users", `{"id":"u1","email":"u1@example.com"}`)
	do(t, srv, http.MethodPost, "/api/users/u1/transactions",
		fmt.Sprintf(`{"amount":"20.00","category":"Food","date":%q,"type":"expense"}`,
			"2099-01-01T10:00:00Z"))

	rr := do(t, srv, http.MethodGet, "/api/users/u1/statistics?period=week", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("statistics status=%d body=%s", rr.Code, rr.Body.String())
	}
	var report statisticsResponse
	decodeBody(t, rr, &report)
	if report.Period != "week" {
		t.Errorf("period = %q, want week", report.Period)
	}
	if len(report.Labels) != 7 || len(report.Values) != 7 {
		t.Errorf("series size = %d/%d, want 7/7", len(report.Labels), len(report.Values))
	}

	rr = do(t, srv, http.MethodGet, "/api/users/u1/statistics?period=decade", "")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("bad period status=%d, want 400", rr.Code)
	}
}

func TestWalletEndpoints(t *testing.T) {
	srv := newTestServer()
	do(t, srv, http.MethodPost, "/api/users", `{"id":"u1","email":"u1@example.com"}`)

	rr := do(t, srv, http.MethodPost, "/api/users/u1/wallets",
		`{"name":"Cash","icon":"wallet:green","balance":"50.00"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("add wallet status=%d body=%s", rr.Code, rr.Body.String())
	}
	var created walletResponse
	decodeBody(t, rr, &created)
	if created.ID == "" || created.Balance != "50.00" {
		t.Errorf("wallet = %+v", created)
	}

	rr = do(t, srv, http.MethodPut, "/api/users/u1/wallets/"+created.ID,
		`{"name":"Wallet","icon":"wallet:green","balance":"75.00"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("update wallet status=%d body=%s", rr.Code, rr.Body.String())
	}
	var updated walletResponse
	decodeBody(t, rr, &updated)
	if updated.ID != created.ID || updated.Balance != "75.00" {
		t.Errorf("updated wallet = %+v", updated)
	}

	rr = do(t, srv, http.MethodDelete, "/api/users/u1/wallets/"+created.ID, "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete wallet status=%d", rr.Code)
	}

	rr = do(t, srv, http.MethodDelete, "/api/users/u1/wallets/"+created.ID, "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("double delete status=%d, want 404", rr.Code)
	}

	rr = do(t, srv, http.MethodGet, "/api/users/u1/wallets", "")
	var list struct {
		Wallets []walletResponse `json:"wallets"`
	}
	decodeBody(t, rr, &list)
	if len(list.Wallets) != 0 {
		t.Errorf("wallets = %d, want 0", len(list.Wallets))
	}
}

func TestBillEndpoints(t *testing.T) {
	srv := newTestServer()
	do(t, srv, http.MethodPost, "/api/users", `{"id":"u1","email":"u1@example.com"}`)

	rr := do(t, srv, http.MethodPost, "/api/users/u1/bills",
		`{"name":"Rent","amount":"900.00","day_of_month":1,"frequency":"Monthly","category":"Housing"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("add bill status=%d body=%s", rr.Code, rr.Body.String())
	}
	var bill billResponse
	decodeBody(t, rr, &bill)
	if bill.IsPaid {
		t.Error("new bill marked paid")
	}

	rr = do(t, srv, http.MethodPost, "/api/users/u1/bills",
		`{"name":"Rent","amount":"900.00","day_of_month":32,"frequency":"Monthly"}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("day 32 status=%d, want 400", rr.Code)
	}

	rr = do(t, srv, http.MethodGet, "/api/users/u1/bills", "")
	var list struct {
		Bills []billResponse `json:"bills"`
	}
	decodeBody(t, rr, &list)
	if len(list.Bills) != 1 {
		t.Errorf("bills = %d, want 1", len(list.Bills))
	}
}
