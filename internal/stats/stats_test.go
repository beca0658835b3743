package stats

import (
	"testing"
	"time"

	"github.com/jbprestor/Finance-Tracker-App/internal/core"
)

func expense(cents int64, date time.Time) core.Transaction {
	return core.Transaction{
		Amount:   core.Money{Cents: cents},
		Category: "Misc",
		Date:     date,
		Type:     core.Expense,
	}
}

func income(cents int64, date time.Time) core.Transaction {
	tx := expense(cents, date)
	tx.Type = core.Income
	return tx
}

func TestParsePeriod(t *testing.T) {
	for _, s := range []string{"day", "Week", " MONTH ", "year"} {
		if _, err := ParsePeriod(s); err != nil {
			t.Fatalf("%q: unexpected error %v", s, err)
		}
	}
	if _, err := ParsePeriod("quarter"); err == nil {
		t.Fatalf("expected error for unknown period")
	}
}

func TestBucketSumMatchesTotal(t *testing.T) {
	// Transactions spread over hours, weekdays, month weeks and months.
	txs := []core.Transaction{
		expense(100, time.Date(2025, 1, 6, 2, 0, 0, 0, time.UTC)),   // Mon, W1, Jan
		expense(250, time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)), // Fri, W2, Mar
		expense(75, time.Date(2025, 7, 22, 15, 0, 0, 0, time.UTC)),  // Tue, W4, Jul
		expense(930, time.Date(2025, 12, 31, 23, 0, 0, 0, time.UTC)),
		income(5000, time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)), // must not count
	}

	for _, p := range []Period{Day, Week, Month, Year} {
		sums := rawBuckets(txs, p)
		if len(sums) != BucketCount(p) {
			t.Fatalf("%s: expected %d buckets, got %d", p, BucketCount(p), len(sums))
		}
		var got int64
		for _, v := range sums {
			got += v
		}
		if got != 1355 {
			t.Fatalf("%s: bucket sum %d, expected 1355", p, got)
		}
	}
}

func TestNormalizationBounds(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	txs := []core.Transaction{
		expense(300, time.Date(2025, 6, 2, 1, 0, 0, 0, time.UTC)),
		expense(900, time.Date(2025, 6, 10, 13, 0, 0, 0, time.UTC)),
		expense(150, time.Date(2025, 6, 20, 21, 0, 0, 0, time.UTC)),
	}
	for _, p := range []Period{Day, Week, Month, Year} {
		r := Aggregate(txs, p, now)
		sawMax := false
		for i, v := range r.Values {
			if v < 0 || v > 100 {
				t.Fatalf("%s: value[%d]=%f out of [0,100]", p, i, v)
			}
			if v == 100 {
				sawMax = true
			}
		}
		if !sawMax {
			t.Fatalf("%s: expected one bucket at exactly 100", p)
		}
	}
}

func TestNormalizationEmptySeries(t *testing.T) {
	r := Aggregate(nil, Week, time.Now())
	for i, v := range r.Values {
		if v != 0 {
			t.Fatalf("empty set: value[%d]=%f, expected 0", i, v)
		}
	}
}

func TestTopSpending(t *testing.T) {
	base := time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC)
	txs := []core.Transaction{
		income(100000, base),
		expense(500, base),
		expense(2500, base.AddDate(0, 0, 1)),
		expense(2500, base.AddDate(0, 0, 2)), // tie, must stay after the first 2500
		expense(100, base.AddDate(0, 0, 3)),
		expense(9000, base.AddDate(0, 0, 4)),
		expense(40, base.AddDate(0, 0, 5)),
		expense(60, base.AddDate(0, 0, 6)),
	}
	r := Aggregate(txs, Month, base)

	if len(r.TopSpending) != TopSpendingLimit {
		t.Fatalf("expected %d entries, got %d", TopSpendingLimit, len(r.TopSpending))
	}
	for i := 1; i < len(r.TopSpending); i++ {
		if r.TopSpending[i].Amount.Cents > r.TopSpending[i-1].Amount.Cents {
			t.Fatalf("ranking not descending at %d", i)
		}
	}
	for _, tx := range r.TopSpending {
		if tx.Type != core.Expense {
			t.Fatalf("income transaction leaked into top spending")
		}
	}
	// Stable tie: the earlier 2500 ranks before the later one.
	if !r.TopSpending[1].Date.Before(r.TopSpending[2].Date) {
		t.Fatalf("tie broke input order: %v then %v", r.TopSpending[1].Date, r.TopSpending[2].Date)
	}

	fewer := Aggregate(txs[:3], Month, base)
	if len(fewer.TopSpending) != 2 {
		t.Fatalf("expected min(5, expenses)=2, got %d", len(fewer.TopSpending))
	}
}

// The worked week scenario: two expenses (30.00 and 20.00) on different
// weekdays sum to 50.00, and the larger one ranks first.
func TestWeekScenario(t *testing.T) {
	mon := time.Date(2025, 6, 9, 9, 0, 0, 0, time.UTC) // a Monday
	txs := []core.Transaction{
		income(10000, mon),
		expense(3000, mon),
		expense(2000, mon.AddDate(0, 0, 2)), // Wednesday
	}
	r := Aggregate(txs, Week, mon)

	if r.TotalExpenses.Cents != 5000 {
		t.Fatalf("total expenses %d, expected 5000", r.TotalExpenses.Cents)
	}
	sums := rawBuckets(txs, Week)
	if sums[0] != 3000 || sums[2] != 2000 {
		t.Fatalf("unexpected weekday buckets: %v", sums)
	}
	if r.TopSpending[0].Amount.Cents != 3000 {
		t.Fatalf("expected 30.00 expense first, got %d", r.TopSpending[0].Amount.Cents)
	}
	if r.ActiveIndex != 0 {
		t.Fatalf("Monday reference should highlight bucket 0, got %d", r.ActiveIndex)
	}
}

func TestMonthOverflowBucket(t *testing.T) {
	for _, day := range []int{29, 30, 31} {
		d := time.Date(2025, 1, day, 12, 0, 0, 0, time.UTC)
		if idx := BucketIndex(Month, d); idx != 4 {
			t.Fatalf("day %d: expected overflow bucket 4, got %d", day, idx)
		}
	}
	if idx := BucketIndex(Month, time.Date(2025, 1, 28, 0, 0, 0, 0, time.UTC)); idx != 3 {
		t.Fatalf("day 28: expected bucket 3, got %d", idx)
	}
	if idx := BucketIndex(Month, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)); idx != 0 {
		t.Fatalf("day 1: expected bucket 0, got %d", idx)
	}
}

func TestActiveIndexFormulas(t *testing.T) {
	ref := time.Date(2025, 11, 23, 17, 45, 0, 0, time.UTC) // a Sunday
	cases := []struct {
		p    Period
		want int
	}{
		{Day, 4},    // hour 17 -> floor(17/4)
		{Week, 6},   // Sunday, Monday-first
		{Month, 3},  // day 23 -> floor(22/7)
		{Year, 10},  // November
	}
	for _, tc := range cases {
		if got := BucketIndex(tc.p, ref); got != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.p, tc.want, got)
		}
	}
}

func TestPeriodRange(t *testing.T) {
	now := time.Date(2025, 6, 11, 15, 30, 0, 0, time.UTC) // a Wednesday

	start, end := PeriodRange(Day, now)
	if !start.Equal(time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("day start: %v", start)
	}
	if end.Day() != 11 || end.Hour() != 23 {
		t.Fatalf("day end: %v", end)
	}

	start, _ = PeriodRange(Week, now)
	if !start.Equal(time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("week should start on Monday, got %v", start)
	}

	start, _ = PeriodRange(Month, now)
	if start.Day() != 1 || start.Month() != 6 {
		t.Fatalf("month start: %v", start)
	}

	start, _ = PeriodRange(Year, now)
	if start.Month() != 1 || start.Day() != 1 {
		t.Fatalf("year start: %v", start)
	}

	// Sunday belongs to the week begun the previous Monday.
	sun := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	start, _ = PeriodRange(Week, sun)
	if !start.Equal(time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("sunday week start: %v", start)
	}
}
