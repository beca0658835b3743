// Package core provides the shared domain types of the finance tracker.
//
// This file contains money parsing and handling utilities. All monetary
// amounts are carried as int64 minor units (cents) internally; decimal
// representations exist only at the parsing and formatting boundaries.
package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is a currency amount in minor units.
type Money struct {
	Cents int64
}

// Largest integer amount that still fits in int64 after the cents shift.
const maxWholeUnits = (1<<63 - 1) / 100

// ParseAmountToCents converts a decimal string to cents with half-up rounding
// on the third decimal place.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. The result
// is always positive cents; invalid formats, negative values, and zero amounts
// return ErrInvalidAmount.
//
// Examples:
//
//	ParseAmountToCents("12.34") -> 1234, nil
//	ParseAmountToCents("12,34") -> 1234, nil
//	ParseAmountToCents("12.345") -> 1235, nil (rounds up)
func ParseAmountToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	if d.Sign() <= 0 {
		return 0, ErrInvalidAmount
	}
	// Prevent overflow when shifting by two decimal places
	if d.GreaterThan(decimal.NewFromInt(maxWholeUnits)) {
		return 0, ErrInvalidAmount
	}
	cents := d.Shift(2).Round(0).IntPart()
	if cents <= 0 {
		return 0, ErrInvalidAmount
	}
	return cents, nil
}

// Units returns the major-unit value as a float64 for display purposes.
// Use cents for calculations to avoid floating-point precision issues.
func (m Money) Units() float64 {
	return float64(m.Cents) / 100.0
}

// String formats the amount as a plain decimal, e.g. "12.34" or "-0.05".
func (m Money) String() string {
	sign := ""
	c := m.Cents
	if c < 0 {
		sign = "-"
		c = -c
	}
	return fmt.Sprintf("%s%d.%02d", sign, c/100, c%100)
}

// Add returns the sum of two amounts.
func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

// Sub returns the difference of two amounts.
func (m Money) Sub(o Money) Money {
	return Money{Cents: m.Cents - o.Cents}
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}
