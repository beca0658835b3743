// Package stats derives chart series and top-spending rankings from a
// transaction set. It is a stateless, pure transform: callers fetch the
// transactions for a reporting period and re-run the aggregation whenever the
// period or the underlying set changes.
package stats

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jbprestor/Finance-Tracker-App/internal/core"
)

// Period selects the bucketing scheme for a report.
type Period string

const (
	Day   Period = "day"
	Week  Period = "week"
	Month Period = "month"
	Year  Period = "year"
)

// TopSpendingLimit caps the ranked expense list.
const TopSpendingLimit = 5

// ParsePeriod normalizes a user-supplied period label.
func ParsePeriod(s string) (Period, error) {
	switch Period(strings.ToLower(strings.TrimSpace(s))) {
	case Day:
		return Day, nil
	case Week:
		return Week, nil
	case Month:
		return Month, nil
	case Year:
		return Year, nil
	}
	return "", fmt.Errorf("unknown reporting period %q", s)
}

// Report is the aggregated read model for the statistics screen.
type Report struct {
	Period Period
	Labels []string
	// Values are the bucket sums rescaled to [0, 100]. When every bucket is
	// empty the series is all zeros rather than NaN.
	Values []float64
	// ActiveIndex marks the bucket containing "now", computed from the
	// reference instant with the same key formula, not from the data.
	ActiveIndex int
	// TopSpending holds at most TopSpendingLimit expense transactions sorted
	// descending by amount; ties keep input order.
	TopSpending []core.Transaction
	// TotalExpenses is the raw cents sum over all expense transactions in the
	// set, independent of the normalized series.
	TotalExpenses core.Money
}

var periodLabels = map[Period][]string{
	Day:   {"4h", "8h", "12h", "16h", "20h", "24h"},
	Week:  {"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"},
	Month: {"W1", "W2", "W3", "W4", "W5"},
	Year:  {"J", "F", "M", "A", "M", "J", "J", "A", "S", "O", "N", "D"},
}

// BucketCount returns the fixed series cardinality for a period.
func BucketCount(p Period) int {
	return len(periodLabels[p])
}

// BucketIndex maps an instant to its bucket for the given period.
//
//	Day:   floor(hour/4), six 4-hour blocks
//	Week:  Monday-first weekday index
//	Month: rolling 7-day buckets, the 5th absorbs days 29+
//	Year:  calendar month
func BucketIndex(p Period, t time.Time) int {
	switch p {
	case Day:
		return t.Hour() / 4
	case Week:
		return (int(t.Weekday()) + 6) % 7
	case Month:
		idx := (t.Day() - 1) / 7
		if idx > 4 {
			idx = 4
		}
		return idx
	case Year:
		return int(t.Month()) - 1
	}
	return -1
}

// rawBuckets sums expense amounts into the period's buckets, in cents.
func rawBuckets(txs []core.Transaction, p Period) []int64 {
	sums := make([]int64, BucketCount(p))
	for _, tx := range txs {
		if tx.Type != core.Expense {
			continue
		}
		if idx := BucketIndex(p, tx.Date); idx >= 0 && idx < len(sums) {
			sums[idx] += tx.Amount.Cents
		}
	}
	return sums
}

// Aggregate buckets the expense transactions for the period, normalizes the
// series for chart rendering and extracts the top-spending ranking. Income
// transactions never contribute to the series or the totals.
func Aggregate(txs []core.Transaction, p Period, now time.Time) Report {
	sums := rawBuckets(txs, p)

	// Normalize to [0, 100]; the divisor floor of 1 turns an empty series
	// into all zeros instead of NaN.
	var maxSum int64 = 1
	for _, v := range sums {
		if v > maxSum {
			maxSum = v
		}
	}
	values := make([]float64, len(sums))
	for i, v := range sums {
		values[i] = float64(v) / float64(maxSum) * 100
	}

	var total int64
	expenses := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if tx.Type != core.Expense {
			continue
		}
		total += tx.Amount.Cents
		expenses = append(expenses, tx)
	}
	sort.SliceStable(expenses, func(i, j int) bool {
		return expenses[i].Amount.Cents > expenses[j].Amount.Cents
	})
	if len(expenses) > TopSpendingLimit {
		expenses = expenses[:TopSpendingLimit]
	}

	return Report{
		Period:        p,
		Labels:        periodLabels[p],
		Values:        values,
		ActiveIndex:   BucketIndex(p, now),
		TopSpending:   expenses,
		TotalExpenses: core.Money{Cents: total},
	}
}

// PeriodRange returns the inclusive fetch window for a report: from the start
// of the period containing now (start of today, Monday of this week, first of
// this month, January 1st) to the end of the current day.
func PeriodRange(p Period, now time.Time) (start, end time.Time) {
	y, m, d := now.Date()
	loc := now.Location()
	start = time.Date(y, m, d, 0, 0, 0, 0, loc)
	end = time.Date(y, m, d, 23, 59, 59, 999999999, loc)

	switch p {
	case Week:
		start = start.AddDate(0, 0, -((int(now.Weekday()) + 6) % 7))
	case Month:
		start = time.Date(y, m, 1, 0, 0, 0, 0, loc)
	case Year:
		start = time.Date(y, 1, 1, 0, 0, 0, 0, loc)
	}
	return start, end
}
