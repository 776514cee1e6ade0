package analytics

import "dispute-analytics/internal/correlate"

// ExcludedReason is left out of the reason breakdown.
// TODO: confirm with the dashboard owners whether hiding incorrect_account_details is intended.
const ExcludedReason = "incorrect_account_details"

var reasonLabels = map[string]string{
	"bank_cannot_process":   "Bank Cannot Process",
	"credit_not_processed":  "Credit Not Processed",
	"customer_initiated":    "Customer Initiated",
	"debit_not_authorized":  "Debit Not Authorized",
	"duplicate":             "Duplicate",
	"fraudulent":            "Fraudulent",
	"general":               "General",
	"insufficient_funds":    "Insufficient Funds",
	"product_not_received":  "Product Not Received",
	"product_unacceptable":  "Product Unacceptable",
	"subscription_canceled": "Subscription Canceled",
	"unrecognized":          "Unrecognized",
}

// ReasonLabel translates a reason code for display.
func ReasonLabel(code string) string {
	if label, ok := reasonLabels[code]; ok {
		return label
	}
	if label := titleize(code); label != "" {
		return label
	}
	return Unknown
}

// ByReason groups disputes by translated reason, skipping ExcludedReason.
func ByReason(records []correlate.Record) []Bucket {
	t := newTally()
	for _, rec := range records {
		if rec.Reason == ExcludedReason {
			continue
		}
		t.add(ReasonLabel(rec.Reason), rec.ReportingAmount)
	}
	return t.byVolume()
}
