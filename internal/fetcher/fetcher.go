package fetcher

import (
	"context"

	"dispute-analytics/internal/commerce"
	"dispute-analytics/internal/currency"
)

// CommerceSource retrieves the dispute and order collections of one tenant.
type CommerceSource interface {
	FetchDisputes(ctx context.Context) ([]commerce.Dispute, error)
	FetchOrders(ctx context.Context) ([]commerce.Order, error)
}

// RateFetcher retrieves an exchange-rate snapshot relative to the reporting currency.
type RateFetcher interface {
	FetchSnapshot(ctx context.Context) (currency.Snapshot, error)
}
