// Package correlate joins disputes to their originating orders.
package correlate

import (
	"github.com/shopspring/decimal"

	"dispute-analytics/internal/commerce"
	"dispute-analytics/internal/currency"
)

// OrderContext is the order-derived context attached to a dispute.
type OrderContext struct {
	OrderID             commerce.ID `json:"orderId"`
	CustomerEmail       string      `json:"customerEmail,omitempty"`
	ShippingCountry     string      `json:"shippingCountry,omitempty"`
	ShippingCountryCode string      `json:"shippingCountryCode,omitempty"`
	Gateway             string      `json:"gateway,omitempty"`
	TrackingNumber      string      `json:"trackingNumber,omitempty"`
	TrackingCompany     string      `json:"trackingCompany,omitempty"`
	TrackingURL         string      `json:"trackingUrl,omitempty"`
	ItemQuantity        int         `json:"itemQuantity"`
	Categories          []string    `json:"categories,omitempty"`
}

// Record is a dispute with its correlated order context and reporting-currency amount.
type Record struct {
	commerce.Dispute
	Order *OrderContext `json:"order"`
	// ReportingAmount holds the amount in the reporting currency once Normalize has run.
	ReportingAmount decimal.Decimal `json:"reportingAmount"`
	// Converted is false when no rate existed and ReportingAmount is the original amount.
	Converted bool `json:"converted"`
}

// Index maps order ids to orders.
type Index map[commerce.ID]commerce.Order

// BuildIndex indexes orders by id. Later duplicates win.
func BuildIndex(orders []commerce.Order) Index {
	idx := make(Index, len(orders))
	for _, order := range orders {
		if order.ID == "" {
			continue
		}
		idx[order.ID] = order
	}
	return idx
}

// Join attaches order context to every dispute in one pass. Disputes whose
// order is unknown keep a nil Order. The result has the same length and order
// as disputes.
func Join(disputes []commerce.Dispute, idx Index) []Record {
	out := make([]Record, len(disputes))
	for i, d := range disputes {
		out[i] = Record{Dispute: d, ReportingAmount: d.Amount}
		if d.OrderID == "" {
			continue
		}
		order, ok := idx[d.OrderID]
		if !ok {
			continue
		}
		out[i].Order = contextFor(order)
	}
	return out
}

func contextFor(order commerce.Order) *OrderContext {
	oc := &OrderContext{
		OrderID:       order.ID,
		CustomerEmail: order.CustomerEmail(),
		Gateway:       order.Gateway(),
		ItemQuantity:  order.ItemQuantity(),
		Categories:    order.Categories(),
	}
	if order.ShippingAddress != nil {
		oc.ShippingCountry = order.ShippingAddress.Country
		oc.ShippingCountryCode = order.ShippingAddress.CountryCode
	}
	if len(order.Fulfillments) > 0 {
		f := order.Fulfillments[0]
		oc.TrackingNumber = f.TrackingNumber
		oc.TrackingCompany = f.TrackingCompany
		oc.TrackingURL = f.TrackingURL
	}
	return oc
}

// Normalize returns a copy of records with ReportingAmount converted through snap,
// plus the distinct currency codes that had no rate.
func Normalize(records []Record, snap currency.Snapshot) ([]Record, []string) {
	out := make([]Record, len(records))
	var missing []string
	seen := make(map[string]struct{})
	for i, rec := range records {
		amount, ok := currency.Normalize(rec.Amount, rec.Currency, snap)
		rec.ReportingAmount = amount
		rec.Converted = ok
		out[i] = rec
		if !ok {
			if _, dup := seen[rec.Currency]; !dup {
				seen[rec.Currency] = struct{}{}
				missing = append(missing, rec.Currency)
			}
		}
	}
	return out, missing
}
