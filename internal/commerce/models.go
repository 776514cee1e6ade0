package commerce

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// DisputeStatus is the upstream lifecycle state of a dispute.
type DisputeStatus string

const (
	StatusNeedsResponse DisputeStatus = "needs_response"
	StatusUnderReview   DisputeStatus = "under_review"
	StatusWon           DisputeStatus = "won"
	StatusLost          DisputeStatus = "lost"
)

// Closed reports whether the dispute has reached an outcome.
func (s DisputeStatus) Closed() bool {
	return s == StatusWon || s == StatusLost
}

// DisputeType distinguishes chargebacks from inquiries.
type DisputeType string

const (
	TypeChargeback DisputeType = "chargeback"
	TypeInquiry    DisputeType = "inquiry"
)

// ID accepts both JSON numbers and strings; upstream ids are 64-bit integers
// that some endpoints render as strings.
type ID string

// UnmarshalJSON implements json.Unmarshaler.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("decode id: %w", err)
	}
	if _, err := strconv.ParseInt(n.String(), 10, 64); err != nil {
		return fmt.Errorf("decode id %s: %w", n.String(), err)
	}
	*id = ID(n.String())
	return nil
}

// Dispute is a chargeback or inquiry as returned by the payments API.
type Dispute struct {
	ID                ID              `json:"id"`
	OrderID           ID              `json:"order_id"`
	Type              DisputeType     `json:"type"`
	Amount            decimal.Decimal `json:"amount"`
	Currency          string          `json:"currency"`
	Reason            string          `json:"reason"`
	NetworkReasonCode string          `json:"network_reason_code"`
	Status            DisputeStatus   `json:"status"`
	EvidenceDueBy     *time.Time      `json:"evidence_due_by"`
	EvidenceSentOn    *time.Time      `json:"evidence_sent_on"`
	FinalizedOn       *time.Time      `json:"finalized_on"`
	InitiatedAt       time.Time       `json:"initiated_at"`
}

// Finalized reports whether the dispute has an outcome with a recorded
// finalization timestamp.
func (d Dispute) Finalized() bool {
	return d.Status.Closed() && d.FinalizedOn != nil
}

// Address is the subset of a shipping address used for correlation.
type Address struct {
	Country     string `json:"country"`
	CountryCode string `json:"country_code"`
}

// Customer is the subset of the order customer used for correlation.
type Customer struct {
	Email string `json:"email"`
}

// LineItem is the lite projection of an order line.
type LineItem struct {
	Quantity    int    `json:"quantity"`
	ProductType string `json:"product_type"`
}

// Fulfillment carries shipment tracking details.
type Fulfillment struct {
	TrackingNumber  string `json:"tracking_number"`
	TrackingCompany string `json:"tracking_company"`
	TrackingURL     string `json:"tracking_url"`
}

// Order is the lite order projection fetched for correlation.
type Order struct {
	ID                  ID            `json:"id"`
	Email               string        `json:"email"`
	Customer            *Customer     `json:"customer"`
	CreatedAt           time.Time     `json:"created_at"`
	ShippingAddress     *Address      `json:"shipping_address"`
	PaymentGatewayNames []string      `json:"payment_gateway_names"`
	LineItems           []LineItem    `json:"line_items"`
	Fulfillments        []Fulfillment `json:"fulfillments"`
}

// CustomerEmail prefers the order contact email, falling back to the customer record.
func (o Order) CustomerEmail() string {
	if o.Email != "" {
		return o.Email
	}
	if o.Customer != nil {
		return o.Customer.Email
	}
	return ""
}

// Gateway returns the first payment gateway name, or "" when absent.
func (o Order) Gateway() string {
	if len(o.PaymentGatewayNames) == 0 {
		return ""
	}
	return o.PaymentGatewayNames[0]
}

// ItemQuantity sums quantities across all line items.
func (o Order) ItemQuantity() int {
	total := 0
	for _, item := range o.LineItems {
		total += item.Quantity
	}
	return total
}

// Categories lists distinct non-empty product types in line order.
func (o Order) Categories() []string {
	seen := make(map[string]struct{}, len(o.LineItems))
	var out []string
	for _, item := range o.LineItems {
		if item.ProductType == "" {
			continue
		}
		if _, ok := seen[item.ProductType]; ok {
			continue
		}
		seen[item.ProductType] = struct{}{}
		out = append(out, item.ProductType)
	}
	return out
}

// OrderFields is the field projection requested for orders.
const OrderFields = "id,email,customer,created_at,shipping_address,payment_gateway_names,line_items,fulfillments"
