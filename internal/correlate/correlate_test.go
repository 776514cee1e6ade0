package correlate

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"dispute-analytics/internal/commerce"
	"dispute-analytics/internal/currency"
)

func TestJoinAttachesOnlyOverlappingOrders(t *testing.T) {
	var disputes []commerce.Dispute
	for i := 0; i < 10; i++ {
		disputes = append(disputes, commerce.Dispute{
			ID:      commerce.ID(fmt.Sprintf("d%d", i)),
			OrderID: commerce.ID(fmt.Sprintf("o%d", i)),
			Amount:  decimal.NewFromInt(int64(i)),
		})
	}
	disputes = append(disputes, commerce.Dispute{ID: "orphan"})

	// orders o0..o3 plus two that no dispute references
	var orders []commerce.Order
	for _, id := range []string{"o0", "o1", "o2", "o3", "x1", "x2"} {
		orders = append(orders, commerce.Order{
			ID:                  commerce.ID(id),
			Email:               id + "@example.com",
			ShippingAddress:     &commerce.Address{Country: "Canada", CountryCode: "CA"},
			PaymentGatewayNames: []string{"shopify_payments"},
			LineItems:           []commerce.LineItem{{Quantity: 1}, {Quantity: 2, ProductType: "Shoes"}},
			Fulfillments:        []commerce.Fulfillment{{TrackingNumber: "TRK-" + id}},
		})
	}

	records := Join(disputes, BuildIndex(orders))
	if len(records) != len(disputes) {
		t.Fatalf("correlation changed dispute count: %d != %d", len(records), len(disputes))
	}

	matched := 0
	for i, rec := range records {
		if rec.ID != disputes[i].ID {
			t.Fatalf("order of records changed at %d", i)
		}
		if rec.Order == nil {
			continue
		}
		matched++
		if rec.Order.OrderID != rec.OrderID {
			t.Fatalf("dispute %s joined to wrong order %s", rec.ID, rec.Order.OrderID)
		}
		if rec.Order.ItemQuantity != 3 || rec.Order.ShippingCountryCode != "CA" || rec.Order.TrackingNumber != "TRK-"+string(rec.OrderID) {
			t.Fatalf("order context incomplete: %+v", rec.Order)
		}
	}
	if matched != 4 {
		t.Fatalf("expected 4 correlated disputes, got %d", matched)
	}
}

func TestJoinEmptyOrders(t *testing.T) {
	records := Join([]commerce.Dispute{{ID: "d1", OrderID: "o1"}}, BuildIndex(nil))
	if len(records) != 1 || records[0].Order != nil {
		t.Fatalf("unmatched dispute should have nil order: %+v", records)
	}
}

func TestNormalizeFlagsMissingRates(t *testing.T) {
	snap := currency.NewSnapshot("USD", map[string]decimal.Decimal{"EUR": decimal.RequireFromString("0.5")}, time.Now())
	records := Join([]commerce.Dispute{
		{ID: "a", Amount: decimal.NewFromInt(10), Currency: "EUR"},
		{ID: "b", Amount: decimal.NewFromInt(10), Currency: "USD"},
		{ID: "c", Amount: decimal.NewFromInt(10), Currency: "JPY"},
		{ID: "d", Amount: decimal.NewFromInt(5), Currency: "JPY"},
	}, nil)

	out, missing := Normalize(records, snap)
	if !out[0].ReportingAmount.Equal(decimal.NewFromInt(20)) || !out[0].Converted {
		t.Fatalf("EUR should be converted: %+v", out[0])
	}
	if !out[1].ReportingAmount.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("USD should be unchanged: %s", out[1].ReportingAmount)
	}
	if out[2].Converted || !out[2].ReportingAmount.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("JPY should pass through flagged: %+v", out[2])
	}
	if len(missing) != 1 || missing[0] != "JPY" {
		t.Fatalf("missing currencies should be deduplicated: %v", missing)
	}
	if records[0].Converted {
		t.Fatal("Normalize must not mutate its input")
	}
}
