// Package currency converts dispute amounts into the reporting currency.
package currency

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ReportingCurrency is the currency every aggregate is expressed in.
const ReportingCurrency = "USD"

// Snapshot maps currency codes to "units of code per one unit of Base".
// It is immutable once built.
type Snapshot struct {
	base      string
	rates     map[string]decimal.Decimal
	fetchedAt time.Time
}

// NewSnapshot copies rates into an immutable snapshot keyed by upper-case code.
func NewSnapshot(base string, rates map[string]decimal.Decimal, fetchedAt time.Time) Snapshot {
	copied := make(map[string]decimal.Decimal, len(rates))
	for code, rate := range rates {
		copied[strings.ToUpper(strings.TrimSpace(code))] = rate
	}
	if base == "" {
		base = ReportingCurrency
	}
	return Snapshot{base: strings.ToUpper(base), rates: copied, fetchedAt: fetchedAt}
}

// Base returns the reporting currency of the snapshot.
func (s Snapshot) Base() string {
	if s.base == "" {
		return ReportingCurrency
	}
	return s.base
}

// FetchedAt returns when the snapshot was taken.
func (s Snapshot) FetchedAt() time.Time { return s.fetchedAt }

// Len returns the number of known rates.
func (s Snapshot) Len() int { return len(s.rates) }

// Rate looks up the rate for code.
func (s Snapshot) Rate(code string) (decimal.Decimal, bool) {
	rate, ok := s.rates[strings.ToUpper(strings.TrimSpace(code))]
	return rate, ok
}

// Normalize converts amount from code into the snapshot's base currency.
// When no usable rate exists the amount is returned unconverted and ok is false.
func Normalize(amount decimal.Decimal, code string, snap Snapshot) (converted decimal.Decimal, ok bool) {
	if strings.EqualFold(strings.TrimSpace(code), snap.Base()) {
		return amount, true
	}
	rate, found := snap.Rate(code)
	if !found || rate.Sign() <= 0 {
		return amount, false
	}
	return amount.Div(rate), true
}
