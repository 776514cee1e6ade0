package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"dispute-analytics/internal/commerce"
	"dispute-analytics/internal/currency"
	"dispute-analytics/internal/fetcher"
	"dispute-analytics/internal/service"
)

// SimulateAlert 用合成的争议/订单数量跑一遍流水线并触发健康度告警。
func (a *App) SimulateAlert(ctx context.Context, opts SimulateOptions) error {
	if !a.Config.Alerting.Enabled {
		return errors.New("alerting 未启用")
	}
	if opts.Disputes < 0 || opts.Orders < 0 {
		return errors.New("--disputes 与 --orders 不能为负数")
	}

	tenant := a.Config.ResolveTenant(opts.Tenant)
	p, err := a.openPipeline(ctx, service.Deps{
		Sources: map[string]fetcher.CommerceSource{tenant: newSyntheticSource(opts.Disputes, opts.Orders)},
		Rates:   staticRates{},
		Writer:  discardWriter{},
	})
	if err != nil {
		return err
	}
	defer p.Close()

	result, err := p.svc.Analyze(ctx, service.Request{TenantID: tenant})
	if err != nil {
		return err
	}

	sent, err := p.svc.AlertHealth(ctx, tenant, result.Health)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "ratio %s%% tier %s alert sent: %t\n", result.Health.RatioText(), result.Health.Tier, sent)
	return nil
}

type syntheticSource struct {
	disputes []commerce.Dispute
	orders   []commerce.Order
}

func newSyntheticSource(disputes, orders int) *syntheticSource {
	now := time.Now().UTC()
	src := &syntheticSource{
		disputes: make([]commerce.Dispute, disputes),
		orders:   make([]commerce.Order, orders),
	}
	for i := range src.orders {
		src.orders[i] = commerce.Order{ID: commerce.ID("sim-order-" + strconv.Itoa(i)), CreatedAt: now}
	}
	for i := range src.disputes {
		src.disputes[i] = commerce.Dispute{
			ID:          commerce.ID("sim-dispute-" + strconv.Itoa(i)),
			Type:        commerce.TypeChargeback,
			Amount:      decimal.NewFromInt(1),
			Currency:    currency.ReportingCurrency,
			Reason:      "general",
			Status:      commerce.StatusNeedsResponse,
			InitiatedAt: now,
		}
	}
	return src
}

func (s *syntheticSource) FetchDisputes(context.Context) ([]commerce.Dispute, error) {
	return s.disputes, nil
}

func (s *syntheticSource) FetchOrders(context.Context) ([]commerce.Order, error) {
	return s.orders, nil
}

type staticRates struct{}

func (staticRates) FetchSnapshot(context.Context) (currency.Snapshot, error) {
	return currency.NewSnapshot(currency.ReportingCurrency, map[string]decimal.Decimal{
		currency.ReportingCurrency: decimal.NewFromInt(1),
	}, time.Now().UTC()), nil
}

var _ fetcher.CommerceSource = (*syntheticSource)(nil)
var _ fetcher.RateFetcher = staticRates{}
