package service

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"dispute-analytics/internal/alerting"
	"dispute-analytics/internal/commerce"
	"dispute-analytics/internal/config"
	"dispute-analytics/internal/currency"
	"dispute-analytics/internal/fetcher"
	"dispute-analytics/internal/storage"
)

type fakeSource struct {
	disputes    []commerce.Dispute
	orders      []commerce.Order
	disputesErr error
	ordersErr   error
	calls       int
	mu          sync.Mutex
}

func (f *fakeSource) FetchDisputes(context.Context) ([]commerce.Dispute, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.disputes, f.disputesErr
}

func (f *fakeSource) FetchOrders(context.Context) ([]commerce.Order, error) {
	return f.orders, f.ordersErr
}

type fakeRates struct {
	rates map[string]decimal.Decimal
	err   error
}

func (f *fakeRates) FetchSnapshot(context.Context) (currency.Snapshot, error) {
	if f.err != nil {
		return currency.Snapshot{}, f.err
	}
	return currency.NewSnapshot("USD", f.rates, time.Now()), nil
}

type fakeWriter struct {
	accept  bool
	batches [][]storage.StoredDispute
}

func (f *fakeWriter) Enqueue(batch []storage.StoredDispute) bool {
	f.batches = append(f.batches, batch)
	return f.accept
}

type fakeNotifier struct {
	notes []alerting.Notification
	err   error
}

func (f *fakeNotifier) Notify(_ context.Context, note alerting.Notification) error {
	f.notes = append(f.notes, note)
	return f.err
}

type fakeAlertStore struct {
	alerts []storage.HealthAlert
}

func (f *fakeAlertStore) InsertHealthAlert(_ context.Context, alert storage.HealthAlert) (storage.HealthAlert, error) {
	alert.ID = int64(len(f.alerts) + 1)
	f.alerts = append(f.alerts, alert)
	return alert, nil
}

func (f *fakeAlertStore) LastHealthAlert(_ context.Context, tenant string) (*storage.HealthAlert, error) {
	for i := len(f.alerts) - 1; i >= 0; i-- {
		if f.alerts[i].TenantID == tenant {
			rec := f.alerts[i]
			return &rec, nil
		}
	}
	return nil, nil
}

type fakeLocker struct {
	acquired bool
	released int
}

func (f *fakeLocker) TryAdvisoryLock(context.Context, int64) (func(), bool, error) {
	if !f.acquired {
		return nil, false, nil
	}
	return func() { f.released++ }, true, nil
}

func analyticsAlert(tenant string, when time.Time) storage.HealthAlert {
	return storage.HealthAlert{
		TenantID:  tenant,
		Ratio:     decimal.NewFromInt(30),
		Tier:      "Critical",
		CreatedAt: when,
	}
}

func testConfig() *config.Config {
	return &config.Config{
		DefaultTenant: "acme",
		Rates:         config.RatesConfig{ReportingCurrency: "USD"},
		Analytics: config.AnalyticsConfig{
			MinutesSavedPerDispute: 45,
			CountryLimit:           10,
			RepeatDisputerLimit:    5,
		},
		Scheduler: config.SchedulerConfig{AdvisoryLockKey: 42},
		Alerting: config.AlertingConfig{
			Enabled:  true,
			Cooldown: time.Hour,
			Channels: []string{"telegram"},
		},
	}
}

func usdRates() *fakeRates {
	return &fakeRates{rates: map[string]decimal.Decimal{
		"USD": decimal.NewFromInt(1),
		"EUR": decimal.RequireFromString("0.9"),
	}}
}

func newTestService(src *fakeSource, deps Deps) *Service {
	if deps.Sources == nil {
		deps.Sources = map[string]fetcher.CommerceSource{"acme": src}
	}
	if deps.Rates == nil {
		deps.Rates = usdRates()
	}
	return New(testConfig(), deps, zerolog.Nop())
}

func at(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func atPtr(s string) *time.Time {
	t := at(s)
	return &t
}

func dispute(id string, status commerce.DisputeStatus, amount int64, initiated string) commerce.Dispute {
	return commerce.Dispute{
		ID:          commerce.ID(id),
		OrderID:     commerce.ID("o" + id),
		Type:        commerce.TypeChargeback,
		Amount:      decimal.NewFromInt(amount),
		Currency:    "USD",
		Reason:      "fraudulent",
		Status:      status,
		InitiatedAt: at(initiated),
	}
}

func orders(n int) []commerce.Order {
	out := make([]commerce.Order, n)
	for i := range out {
		out[i] = commerce.Order{
			ID:        commerce.ID("o" + strconv.Itoa(i+1)),
			Email:     "buyer@example.com",
			CreatedAt: at("2024-01-01T00:00:00Z"),
		}
	}
	return out
}

// scenarioSource is three disputes against ten all-time orders.
func scenarioSource() *fakeSource {
	won := dispute("1", commerce.StatusWon, 100, "2024-03-01T10:00:00Z")
	won.FinalizedOn = atPtr("2024-03-20T10:00:00Z")
	lost := dispute("2", commerce.StatusLost, 50, "2024-03-05T10:00:00Z")
	lost.FinalizedOn = atPtr("2024-03-25T10:00:00Z")
	review := dispute("3", commerce.StatusUnderReview, 30, "2024-04-02T10:00:00Z")
	return &fakeSource{
		disputes: []commerce.Dispute{won, lost, review},
		orders:   orders(10),
	}
}
