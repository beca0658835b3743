package core

import (
	"testing"
	"time"
)

func validTransaction() Transaction {
	return Transaction{
		Amount:   Money{Cents: 1500},
		Category: "Food",
		Date:     time.Date(2025, 6, 12, 10, 0, 0, 0, time.UTC),
		Type:     Expense,
	}
}

func TestTransactionValidate(t *testing.T) {
	if err := validTransaction().Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Transaction)
	}{
		{"zero amount", func(tx *Transaction) { tx.Amount = Money{} }},
		{"negative amount", func(tx *Transaction) { tx.Amount = Money{Cents: -100} }},
		{"bad type", func(tx *Transaction) { tx.Type = "transfer" }},
		{"zero date", func(tx *Transaction) { tx.Date = time.Time{} }},
		{"empty category", func(tx *Transaction) { tx.Category = "  " }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tx := validTransaction()
			tc.mutate(&tx)
			if err := tx.Validate(); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestBillValidate(t *testing.T) {
	good := Bill{
		Name:      "Rent",
		Amount:    Money{Cents: 85000},
		DueDate:   time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
		Frequency: Monthly,
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bad := good
	bad.Frequency = "Daily"
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected error for unsupported frequency")
	}
	bad = good
	bad.Name = ""
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected error for empty name")
	}
}

func TestTotalsConsistent(t *testing.T) {
	u := UserAccount{
		TotalBalance:  Money{Cents: 7000},
		TotalIncome:   Money{Cents: 10000},
		TotalExpenses: Money{Cents: 3000},
	}
	if !u.TotalsConsistent() {
		t.Fatalf("expected consistent totals")
	}
	u.TotalBalance = Money{Cents: 6999}
	if u.TotalsConsistent() {
		t.Fatalf("expected inconsistent totals")
	}
}

func TestIconRoundTrip(t *testing.T) {
	cases := []struct {
		in   string
		kind IconKind
	}{
		{"wallet:#a3e635", IconSymbolic},
		{"cash", IconSymbolic},
		{"data:image/png;base64,iVBORw0KGgo=", IconEmbedded},
		{"https://example.com/icon.png", IconEmbedded},
		{"", IconNone},
	}
	for _, tc := range cases {
		icon := DecodeIcon(tc.in)
		if icon.Kind != tc.kind {
			t.Fatalf("%q: expected kind %d, got %d", tc.in, tc.kind, icon.Kind)
		}
		if got := icon.Encode(); got != tc.in {
			t.Fatalf("%q: round trip produced %q", tc.in, got)
		}
	}

	icon := DecodeIcon("wallet:#a3e635")
	if icon.Name != "wallet" || icon.Color != "#a3e635" {
		t.Fatalf("unexpected symbolic parts: %+v", icon)
	}
}
