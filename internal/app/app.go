package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"dispute-analytics/internal/alerting"
	"dispute-analytics/internal/analytics"
	"dispute-analytics/internal/config"
	"dispute-analytics/internal/fetcher"
	"dispute-analytics/internal/httpapi"
	"dispute-analytics/internal/scheduler"
	"dispute-analytics/internal/service"
	"dispute-analytics/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	Out    io.Writer
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger(), Out: os.Stdout}
}

func (a *App) newSources() map[string]fetcher.CommerceSource {
	up := a.Config.Upstream
	requester := fetcher.NewRequester(fetcher.RetryOptions{
		Timeout:     up.RequestTimeout,
		BackoffUnit: up.BackoffUnit,
		MaxAttempts: up.MaxAttempts,
		UserAgent:   up.UserAgent,
	}, nil, a.Logger)
	paginator := fetcher.NewPaginator(requester, up.PageDelay, a.Logger)

	sources := make(map[string]fetcher.CommerceSource, len(a.Config.Tenants))
	for _, id := range a.Config.TenantIDs() {
		tenant := a.Config.Tenants[id]
		sources[id] = fetcher.NewShop(fetcher.ShopOptions{
			BaseURL:     tenant.ResolveBaseURL(),
			APIVersion:  up.APIVersion,
			AuthHeader:  up.AuthHeader,
			AccessToken: tenant.AccessToken,
			PageLimit:   up.PageLimit,
		}, paginator, a.Logger.With().Str("tenant", id).Logger())
	}
	return sources
}

func (a *App) newRates() fetcher.RateFetcher {
	requester := fetcher.NewRequester(fetcher.RetryOptions{
		Timeout:     a.Config.Rates.RequestTimeout,
		BackoffUnit: a.Config.Upstream.BackoffUnit,
		MaxAttempts: a.Config.Upstream.MaxAttempts,
		UserAgent:   a.Config.Upstream.UserAgent,
	}, nil, a.Logger)
	return fetcher.NewExchangeRates(fetcher.RatesOptions{
		BaseURL:           a.Config.Rates.BaseURL,
		ReportingCurrency: a.Config.Rates.ReportingCurrency,
	}, requester, a.Logger)
}

func (a *App) newNotifier() alerting.Notifier {
	if !a.Config.Alerting.Enabled {
		return nil
	}
	if a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
	}
	return alerting.NewLogNotifier(a.Logger)
}

// pipeline is a wired service plus the resources it holds open.
type pipeline struct {
	svc     *service.Service
	backend *storage.Backend
	writer  *storage.AsyncWriter
	logger  zerolog.Logger
}

func (p *pipeline) Close() {
	if p.writer != nil {
		p.writer.Close()
	}
	if err := p.backend.Close(); err != nil {
		p.logger.Warn().Err(err).Msg("close store")
	}
}

// openPipeline wires the service. deps fields that are already set win.
func (a *App) openPipeline(ctx context.Context, deps service.Deps) (*pipeline, error) {
	backend, err := storage.Open(ctx, a.Config)
	if err != nil {
		return nil, err
	}
	p := &pipeline{backend: backend, logger: a.Logger}

	if backend.Disputes == nil {
		a.Logger.Debug().Msg("persistence disabled")
	} else if deps.Writer == nil {
		p.writer = storage.NewAsyncWriter(backend.Disputes, a.Config.Persistence.QueueSize, a.Logger)
		deps.Writer = p.writer
	}
	if deps.Sources == nil {
		deps.Sources = a.newSources()
	}
	if deps.Rates == nil {
		deps.Rates = a.newRates()
	}
	if deps.AlertStore == nil {
		deps.AlertStore = backend.Alerts
	}
	if deps.Locker == nil {
		deps.Locker = backend.Locker
	}
	if deps.Notifier == nil {
		deps.Notifier = a.newNotifier()
	}

	p.svc = service.New(a.Config, deps, a.Logger)
	return p, nil
}

// Analyze runs the pipeline once and prints the payload as JSON.
func (a *App) Analyze(ctx context.Context, opts AnalyzeOptions) error {
	p, err := a.openPipeline(ctx, service.Deps{})
	if err != nil {
		return err
	}
	defer p.Close()

	result, err := p.svc.Analyze(ctx, service.Request{TenantID: opts.Tenant, Range: opts.Range})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(a.Out)
	if opts.Pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(result)
}

// Run executes the long-running sync service.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Scheduler.Interval,
		AlignToStart: a.Config.Scheduler.AlignToBucket,
		StartupDelay: a.Config.Scheduler.StartupDelay,
		RunOnStart:   a.Config.Scheduler.RunOnStart,
	}, a.Logger)

	p, err := a.openPipeline(ctx, service.Deps{Scheduler: sched})
	if err != nil {
		return err
	}
	defer p.Close()

	if len(p.svc.Tenants()) == 0 {
		return errors.New("no tenants configured")
	}

	a.Logger.Info().Strs("tenants", p.svc.Tenants()).Msg("starting sync service")
	err = p.svc.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("sync service stopped")
	return nil
}

// Serve exposes the analytics endpoint until interrupted.
func (a *App) Serve(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	p, err := a.openPipeline(ctx, service.Deps{})
	if err != nil {
		return err
	}
	defer p.Close()

	srv := &http.Server{
		Addr:         a.Config.HTTP.ListenAddr,
		Handler:      httpapi.NewRouter(p.svc, a.Logger),
		ReadTimeout:  a.Config.HTTP.ReadTimeout,
		WriteTimeout: a.Config.HTTP.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.Logger.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	a.Logger.Info().Msg("http server stopped")
	return nil
}

// AnalyzeOptions configure a one-shot analysis.
type AnalyzeOptions struct {
	Tenant string
	Range  analytics.Range
	Pretty bool
}

// ExportOptions configure the monthly trend export.
type ExportOptions struct {
	Tenant  string
	Range   analytics.Range
	PNGPath string
	CSVPath string
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}

// BackfillOptions configure the backfill job.
type BackfillOptions struct {
	Tenant string
	Range  analytics.Range
	DryRun bool
}

// SimulateOptions describe synthetic all-time counts for an alert dry run.
type SimulateOptions struct {
	Tenant   string
	Disputes int
	Orders   int
}
