// Package analytics reduces correlated, normalized disputes into the dashboard payload.
//
// Every aggregator is a pure function over an input slice: it allocates its own
// accumulators and returns a fresh result, so aggregators can run in any order
// and never observe each other's state.
package analytics

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Unknown labels a group whose key could not be resolved.
const Unknown = "Unknown"

// Bucket is one entry of a breakdown.
type Bucket struct {
	Key    string          `json:"key"`
	Count  int             `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

// tally accumulates buckets for a single aggregation call.
type tally struct {
	buckets map[string]*Bucket
}

func newTally() *tally {
	return &tally{buckets: make(map[string]*Bucket)}
}

func (t *tally) add(key string, amount decimal.Decimal) *Bucket {
	b, ok := t.buckets[key]
	if !ok {
		b = &Bucket{Key: key, Amount: decimal.Zero}
		t.buckets[key] = b
	}
	b.Count++
	b.Amount = b.Amount.Add(amount)
	return b
}

// byVolume returns buckets ordered by count desc, then key asc.
func (t *tally) byVolume() []Bucket {
	out := make([]Bucket, 0, len(t.buckets))
	for _, b := range t.buckets {
		out = append(out, Bucket{Key: b.Key, Count: b.Count, Amount: b.Amount.Round(2)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// SumCounts totals the counts of a breakdown.
func SumCounts(buckets []Bucket) int {
	total := 0
	for _, b := range buckets {
		total += b.Count
	}
	return total
}

// titleize turns "shopify_payments" into "Shopify Payments".
func titleize(s string) string {
	words := strings.Fields(strings.NewReplacer("_", " ", "-", " ").Replace(s))
	if len(words) == 0 {
		return ""
	}
	return cases.Title(language.English).String(strings.Join(words, " "))
}

func percent(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(decimal.NewFromInt(100)).Round(2)
}
