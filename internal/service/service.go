package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"dispute-analytics/internal/alerting"
	"dispute-analytics/internal/analytics"
	"dispute-analytics/internal/commerce"
	"dispute-analytics/internal/config"
	"dispute-analytics/internal/correlate"
	"dispute-analytics/internal/currency"
	"dispute-analytics/internal/fetcher"
	"dispute-analytics/internal/scheduler"
	"dispute-analytics/internal/storage"
)

// DisputeWriter accepts dispute copies for best-effort persistence.
type DisputeWriter interface {
	Enqueue(batch []storage.StoredDispute) bool
}

// Deps are the collaborators a Service runs against. Only Sources and Rates are required.
type Deps struct {
	Sources    map[string]fetcher.CommerceSource
	Rates      fetcher.RateFetcher
	Writer     DisputeWriter
	AlertStore storage.AlertStore
	Locker     storage.AdvisoryLocker
	Notifier   alerting.Notifier
	Scheduler  *scheduler.Scheduler
}

// Request is one pipeline invocation.
type Request struct {
	TenantID string
	Range    analytics.Range
}

// Service orchestrates fetch, correlate, normalize, aggregate and score.
type Service struct {
	deps   Deps
	opts   analytics.Options
	logger zerolog.Logger

	defaultTenant string
	alertsOn      bool
	cooldown      time.Duration
	channels      []string
	lockKey       int64

	mu        sync.Mutex
	lastAlert map[string]time.Time
	now       func() time.Time
}

// New constructs the pipeline service.
func New(cfg *config.Config, deps Deps, logger zerolog.Logger) *Service {
	return &Service{
		deps: deps,
		opts: analytics.Options{
			ReportingCurrency:      cfg.Rates.ReportingCurrency,
			MinutesSavedPerDispute: cfg.Analytics.MinutesSavedPerDispute,
			CountryLimit:           cfg.Analytics.CountryLimit,
			RepeatDisputerLimit:    cfg.Analytics.RepeatDisputerLimit,
		},
		logger:        logger.With().Str("component", "service").Logger(),
		defaultTenant: cfg.DefaultTenant,
		alertsOn:      cfg.Alerting.Enabled,
		cooldown:      cfg.Alerting.Cooldown,
		channels:      cfg.Alerting.Channels,
		lockKey:       cfg.Scheduler.AdvisoryLockKey,
		lastAlert:     make(map[string]time.Time),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Tenants lists the tenants this service can analyze.
func (s *Service) Tenants() []string {
	ids := make([]string, 0, len(s.deps.Sources))
	for id := range s.deps.Sources {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Analyze runs the pipeline once. Fatal failures are returned as *PipelineError;
// a result is never partial.
func (s *Service) Analyze(ctx context.Context, req Request) (*analytics.Result, error) {
	tenant := req.TenantID
	if tenant == "" {
		tenant = s.defaultTenant
	}
	source, ok := s.deps.Sources[tenant]
	if !ok {
		return nil, &PipelineError{Kind: KindUnknownTenant, Message: fmt.Sprintf("tenant %q is not configured", tenant)}
	}
	if err := req.Range.Validate(); err != nil {
		return nil, invalidRequest("invalid date range", err)
	}
	if s.deps.Rates == nil {
		return nil, &PipelineError{Kind: KindCurrencySnapshot, Message: "no exchange-rate source configured"}
	}

	runID := uuid.NewString()
	logger := s.logger.With().Str("run_id", runID).Str("tenant", tenant).Logger()
	started := time.Now()

	fetched, err := s.fetch(ctx, source, logger)
	if err != nil {
		logger.Error().Err(err).Msg("pipeline aborted")
		return nil, err
	}

	disputes := analytics.FilterDisputes(fetched.disputes, req.Range)
	orders := analytics.FilterOrders(fetched.orders, req.Range)

	records := correlate.Join(disputes, correlate.BuildIndex(fetched.orders))
	records, missing := correlate.Normalize(records, fetched.snapshot)
	if len(missing) > 0 {
		logger.Warn().Strs("currencies", missing).Msg("no exchange rate; amounts passed through unconverted")
	}

	result := analytics.Assemble(analytics.Input{
		Range:                 req.Range,
		Disputes:              records,
		Orders:                orders,
		AllTimeDisputes:       fetched.disputes,
		AllTimeOrders:         fetched.orders,
		UnconvertedCurrencies: missing,
		Degraded:              fetched.degraded,
	}, s.opts)
	result.RunID = runID
	result.TenantID = tenant

	s.persist(tenant, records, logger)

	logger.Info().
		Int("disputes", len(records)).
		Int("all_time_disputes", len(fetched.disputes)).
		Int("all_time_orders", len(fetched.orders)).
		Str("health_ratio", result.Health.Ratio.String()).
		Str("tier", string(result.Health.Tier)).
		Dur("elapsed", time.Since(started)).
		Msg("analytics assembled")
	return &result, nil
}

type fetchResult struct {
	disputes []commerce.Dispute
	orders   []commerce.Order
	snapshot currency.Snapshot
	degraded []string
}

// fetch pulls disputes, orders and rates concurrently. Each resource keeps
// its own sequential page pacing.
func (s *Service) fetch(ctx context.Context, source fetcher.CommerceSource, logger zerolog.Logger) (fetchResult, error) {
	var (
		out                 fetchResult
		disputesNotEntitled bool
		ordersNotEntitled   bool
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		items, err := source.FetchDisputes(gctx)
		if errors.Is(err, fetcher.ErrNotEntitled) {
			logger.Warn().Err(err).Msg("disputes not entitled; continuing with none")
			disputesNotEntitled = true
			return nil
		}
		if err != nil {
			return classify("disputes", err)
		}
		out.disputes = items
		return nil
	})
	g.Go(func() error {
		items, err := source.FetchOrders(gctx)
		if errors.Is(err, fetcher.ErrNotEntitled) {
			logger.Warn().Err(err).Msg("orders not entitled; continuing with none")
			ordersNotEntitled = true
			return nil
		}
		if err != nil {
			return classify("orders", err)
		}
		out.orders = items
		return nil
	})
	g.Go(func() error {
		snap, err := s.deps.Rates.FetchSnapshot(gctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return classify("rates", err)
			}
			return &PipelineError{
				Kind:    KindCurrencySnapshot,
				Message: "exchange-rate snapshot unavailable",
				Detail:  err.Error(),
				Err:     err,
			}
		}
		out.snapshot = snap
		return nil
	})

	if err := g.Wait(); err != nil {
		return fetchResult{}, err
	}

	if disputesNotEntitled {
		out.degraded = append(out.degraded, "disputes")
	}
	if ordersNotEntitled {
		out.degraded = append(out.degraded, "orders")
	}
	return out, nil
}

func (s *Service) persist(tenant string, records []correlate.Record, logger zerolog.Logger) {
	if s.deps.Writer == nil || len(records) == 0 {
		return
	}
	if !s.deps.Writer.Enqueue(StoredCopies(tenant, records, s.now())) {
		logger.Warn().Int("disputes", len(records)).Msg("dispute copies not queued for persistence")
	}
}

// StoredCopies maps correlated records onto their persisted shape.
func StoredCopies(tenant string, records []correlate.Record, syncedAt time.Time) []storage.StoredDispute {
	out := make([]storage.StoredDispute, len(records))
	for i, rec := range records {
		d := storage.StoredDispute{
			TenantID:          tenant,
			DisputeID:         string(rec.ID),
			OrderID:           string(rec.OrderID),
			Type:              string(rec.Type),
			Status:            string(rec.Status),
			Reason:            rec.Reason,
			NetworkReasonCode: rec.NetworkReasonCode,
			Amount:            rec.Amount,
			Currency:          rec.Currency,
			ReportingAmount:   rec.ReportingAmount,
			EvidenceDueBy:     rec.EvidenceDueBy,
			EvidenceSentOn:    rec.EvidenceSentOn,
			FinalizedOn:       rec.FinalizedOn,
			InitiatedAt:       rec.InitiatedAt,
			SyncedAt:          syncedAt,
		}
		if rec.Order != nil {
			d.CustomerEmail = rec.Order.CustomerEmail
			d.ShippingCountry = rec.Order.ShippingCountry
			d.Gateway = rec.Order.Gateway
		}
		out[i] = d
	}
	return out
}
