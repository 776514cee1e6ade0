package analytics

import "dispute-analytics/internal/correlate"

// ByProcessor groups disputes by the payment gateway of the correlated order.
func ByProcessor(records []correlate.Record) []Bucket {
	t := newTally()
	for _, rec := range records {
		t.add(GatewayLabel(rec), rec.ReportingAmount)
	}
	return t.byVolume()
}

// GatewayLabel resolves the display name of a dispute's gateway.
func GatewayLabel(rec correlate.Record) string {
	if rec.Order == nil || rec.Order.Gateway == "" {
		return Unknown
	}
	if label := titleize(rec.Order.Gateway); label != "" {
		return label
	}
	return Unknown
}
