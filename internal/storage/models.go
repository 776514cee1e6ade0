package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// StoredDispute is the persisted copy of a correlated, normalized dispute.
type StoredDispute struct {
	TenantID          string          `json:"tenant_id"`
	DisputeID         string          `json:"dispute_id"`
	OrderID           string          `json:"order_id,omitempty"`
	Type              string          `json:"type"`
	Status            string          `json:"status"`
	Reason            string          `json:"reason"`
	NetworkReasonCode string          `json:"network_reason_code,omitempty"`
	Amount            decimal.Decimal `json:"amount"`
	Currency          string          `json:"currency"`
	ReportingAmount   decimal.Decimal `json:"reporting_amount"`
	CustomerEmail     string          `json:"customer_email,omitempty"`
	ShippingCountry   string          `json:"shipping_country,omitempty"`
	Gateway           string          `json:"gateway,omitempty"`
	EvidenceDueBy     *time.Time      `json:"evidence_due_by,omitempty"`
	EvidenceSentOn    *time.Time      `json:"evidence_sent_on,omitempty"`
	FinalizedOn       *time.Time      `json:"finalized_on,omitempty"`
	InitiatedAt       time.Time       `json:"initiated_at"`
	SyncedAt          time.Time       `json:"synced_at"`
}

// Key identifies a dispute within the store.
func (d StoredDispute) Key() string {
	return d.TenantID + "/" + d.DisputeID
}

// HealthAlert records a dispatched account-health alert.
type HealthAlert struct {
	ID        int64
	TenantID  string
	Ratio     decimal.Decimal
	Tier      string
	Channels  []string
	CreatedAt time.Time
}
