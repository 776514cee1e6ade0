package analytics

import (
	"strings"

	"dispute-analytics/internal/correlate"
)

// RepeatDisputers lists customers with more than one dispute, most disputes first.
// Disputes without a correlated customer email are ignored.
func RepeatDisputers(records []correlate.Record) []Bucket {
	t := newTally()
	for _, rec := range records {
		if rec.Order == nil {
			continue
		}
		email := strings.ToLower(strings.TrimSpace(rec.Order.CustomerEmail))
		if email == "" {
			continue
		}
		t.add(email, rec.ReportingAmount)
	}

	var out []Bucket
	for _, b := range t.byVolume() {
		if b.Count > 1 {
			out = append(out, b)
		}
	}
	return out
}

// Top truncates a breakdown to its first n entries.
func Top(buckets []Bucket, n int) []Bucket {
	if n <= 0 || len(buckets) <= n {
		return buckets
	}
	return buckets[:n]
}
