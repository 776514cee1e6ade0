package analytics

import (
	"sort"

	"github.com/shopspring/decimal"

	"dispute-analytics/internal/correlate"
)

const (
	// UnknownMonth keys disputes without an initiation timestamp.
	UnknownMonth = "unknown"
	// UnknownStatus keys disputes that arrived without a status.
	UnknownStatus = "unknown"
)

// MonthlyTrend buckets disputes by initiation month. All and every ByStatus
// series are aligned with Months and zero-filled.
type MonthlyTrend struct {
	Months   []string            `json:"months"`
	All      []Bucket            `json:"all"`
	ByStatus map[string][]Bucket `json:"byStatus"`
}

// ByMonth buckets disputes by (year, month) of InitiatedAt, in total and per
// status. The status set is taken from the data.
func ByMonth(records []correlate.Record) MonthlyTrend {
	all := newTally()
	perStatus := make(map[string]*tally)

	for _, rec := range records {
		key := monthKey(rec)
		all.add(key, rec.ReportingAmount)

		status := string(rec.Status)
		if status == "" {
			status = UnknownStatus
		}
		st, ok := perStatus[status]
		if !ok {
			st = newTally()
			perStatus[status] = st
		}
		st.add(key, rec.ReportingAmount)
	}

	months := make([]string, 0, len(all.buckets))
	for key := range all.buckets {
		months = append(months, key)
	}
	// "unknown" sorts after every "YYYY-MM" key.
	sort.Strings(months)

	trend := MonthlyTrend{
		Months:   months,
		All:      aligned(all, months),
		ByStatus: make(map[string][]Bucket, len(perStatus)),
	}
	for status, st := range perStatus {
		trend.ByStatus[status] = aligned(st, months)
	}
	return trend
}

// Statuses returns the discovered statuses in stable order.
func (m MonthlyTrend) Statuses() []string {
	out := make([]string, 0, len(m.ByStatus))
	for status := range m.ByStatus {
		out = append(out, status)
	}
	sort.Strings(out)
	return out
}

func aligned(t *tally, months []string) []Bucket {
	out := make([]Bucket, len(months))
	for i, month := range months {
		if b, ok := t.buckets[month]; ok {
			out[i] = Bucket{Key: month, Count: b.Count, Amount: b.Amount.Round(2)}
			continue
		}
		out[i] = Bucket{Key: month, Amount: decimal.Zero}
	}
	return out
}

func monthKey(rec correlate.Record) string {
	if rec.InitiatedAt.IsZero() {
		return UnknownMonth
	}
	return rec.InitiatedAt.UTC().Format("2006-01")
}
