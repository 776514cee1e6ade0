package analytics

import (
	"github.com/shopspring/decimal"

	"dispute-analytics/internal/commerce"
	"dispute-analytics/internal/correlate"
)

// CountryBucket extends Bucket with a per-country win rate.
type CountryBucket struct {
	Bucket
	Won     int             `json:"won"`
	WinRate decimal.Decimal `json:"winRate"`
}

// ByCountry groups disputes by the correlated order's shipping country,
// ordered by volume.
func ByCountry(records []correlate.Record) []CountryBucket {
	t := newTally()
	won := make(map[string]int)
	for _, rec := range records {
		key := Unknown
		if rec.Order != nil && rec.Order.ShippingCountry != "" {
			key = rec.Order.ShippingCountry
		}
		t.add(key, rec.ReportingAmount)
		if rec.Status == commerce.StatusWon {
			won[key]++
		}
	}

	buckets := t.byVolume()
	out := make([]CountryBucket, len(buckets))
	for i, b := range buckets {
		out[i] = CountryBucket{
			Bucket:  b,
			Won:     won[b.Key],
			WinRate: percent(decimal.NewFromInt(int64(won[b.Key])), decimal.NewFromInt(int64(b.Count))),
		}
	}
	return out
}

// TopCountries truncates a country breakdown to its first n entries.
func TopCountries(buckets []CountryBucket, n int) []CountryBucket {
	if n <= 0 || len(buckets) <= n {
		return buckets
	}
	return buckets[:n]
}
