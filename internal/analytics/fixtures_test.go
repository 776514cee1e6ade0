package analytics

import (
	"time"

	"github.com/shopspring/decimal"

	"dispute-analytics/internal/commerce"
	"dispute-analytics/internal/correlate"
)

func ts(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func tsPtr(s string) *time.Time {
	t := ts(s)
	return &t
}

type recOpt func(*correlate.Record)

func withOrder(email, country, gateway string) recOpt {
	return func(r *correlate.Record) {
		r.Order = &correlate.OrderContext{
			OrderID:         r.OrderID,
			CustomerEmail:   email,
			ShippingCountry: country,
			Gateway:         gateway,
		}
	}
}

func withCode(code string) recOpt {
	return func(r *correlate.Record) { r.NetworkReasonCode = code }
}

func withReason(reason string) recOpt {
	return func(r *correlate.Record) { r.Reason = reason }
}

func finalized(at string) recOpt {
	return func(r *correlate.Record) { r.FinalizedOn = tsPtr(at) }
}

func evidence(at string) recOpt {
	return func(r *correlate.Record) { r.EvidenceSentOn = tsPtr(at) }
}

func record(id string, status commerce.DisputeStatus, amount int64, initiated string, opts ...recOpt) correlate.Record {
	r := correlate.Record{
		Dispute: commerce.Dispute{
			ID:          commerce.ID(id),
			OrderID:     commerce.ID("o-" + id),
			Type:        commerce.TypeChargeback,
			Amount:      decimal.NewFromInt(amount),
			Currency:    "USD",
			Reason:      "fraudulent",
			Status:      status,
			InitiatedAt: ts(initiated),
		},
		ReportingAmount: decimal.NewFromInt(amount),
		Converted:       true,
	}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

// mixedRecords covers every breakdown dimension, including the excluded reason.
func mixedRecords() []correlate.Record {
	return []correlate.Record{
		record("1", commerce.StatusWon, 100, "2024-01-05T10:00:00Z", withOrder("a@x.com", "Canada", "shopify_payments"), withCode("10.4"), finalized("2024-02-01T00:00:00Z")),
		record("2", commerce.StatusLost, 50, "2024-01-20T10:00:00Z", withOrder("A@x.com ", "Canada", "paypal"), withCode("4853"), withReason("product_not_received"), finalized("2024-02-10T00:00:00Z")),
		record("3", commerce.StatusUnderReview, 30, "2024-02-02T10:00:00Z", withOrder("b@x.com", "France", ""), withCode("C08"), evidence("2024-02-05T00:00:00Z")),
		record("4", commerce.StatusNeedsResponse, 20, "2024-02-15T10:00:00Z", withReason(ExcludedReason), withCode("4553")),
		record("5", commerce.StatusWon, 10, "2024-03-01T10:00:00Z", withOrder("b@x.com", "", "shopify_payments"), withCode("zz-99")),
		record("6", commerce.StatusLost, 5, "2024-03-09T10:00:00Z", withOrder("a@x.com", "Canada", "stripe"), withReason("general")),
	}
}
