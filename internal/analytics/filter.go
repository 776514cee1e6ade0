package analytics

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"dispute-analytics/internal/commerce"
)

// Range is an inclusive date window. Nil bounds are open.
type Range struct {
	Start *time.Time `json:"start,omitempty"`
	End   *time.Time `json:"end,omitempty"`
}

// ErrInvalidRange is returned when Start is after End.
var ErrInvalidRange = errors.New("range start is after range end")

// Validate checks that the bounds are ordered.
func (r Range) Validate() error {
	if r.Start != nil && r.End != nil && r.Start.After(*r.End) {
		return ErrInvalidRange
	}
	return nil
}

// ParseRange builds a Range from optional YYYY-MM-DD or RFC3339 bounds.
// A date-only end bound covers that whole day.
func ParseRange(start, end string) (Range, error) {
	var r Range
	if start = strings.TrimSpace(start); start != "" {
		t, err := parseBound(start, false)
		if err != nil {
			return Range{}, fmt.Errorf("start: %w", err)
		}
		r.Start = &t
	}
	if end = strings.TrimSpace(end); end != "" {
		t, err := parseBound(end, true)
		if err != nil {
			return Range{}, fmt.Errorf("end: %w", err)
		}
		r.End = &t
	}
	return r, r.Validate()
}

func parseBound(s string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		if endOfDay {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q is neither YYYY-MM-DD nor RFC3339", s)
	}
	return t.UTC(), nil
}

// Contains reports whether t falls inside the window.
func (r Range) Contains(t time.Time) bool {
	if r.Start != nil && t.Before(*r.Start) {
		return false
	}
	if r.End != nil && t.After(*r.End) {
		return false
	}
	return true
}

// Unbounded reports whether neither bound is set.
func (r Range) Unbounded() bool {
	return r.Start == nil && r.End == nil
}

// FilterDisputes keeps disputes initiated inside r.
func FilterDisputes(disputes []commerce.Dispute, r Range) []commerce.Dispute {
	return filterBy(disputes, r, func(d commerce.Dispute) time.Time { return d.InitiatedAt })
}

// FilterOrders keeps orders created inside r.
func FilterOrders(orders []commerce.Order, r Range) []commerce.Order {
	return filterBy(orders, r, func(o commerce.Order) time.Time { return o.CreatedAt })
}

func filterBy[T any](items []T, r Range, at func(T) time.Time) []T {
	if r.Unbounded() {
		out := make([]T, len(items))
		copy(out, items)
		return out
	}
	out := make([]T, 0, len(items))
	for _, item := range items {
		if r.Contains(at(item)) {
			out = append(out, item)
		}
	}
	return out
}
