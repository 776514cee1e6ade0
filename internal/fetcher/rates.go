package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"dispute-analytics/internal/currency"
)

// RatesOptions parameterise the exchange-rate fetcher.
type RatesOptions struct {
	BaseURL           string
	ReportingCurrency string
}

// ExchangeRates fetches a single rate snapshot per pipeline run.
type ExchangeRates struct {
	opts      RatesOptions
	requester *Requester
	logger    zerolog.Logger
}

// NewExchangeRates constructs an exchange-rate fetcher.
func NewExchangeRates(opts RatesOptions, requester *Requester, logger zerolog.Logger) *ExchangeRates {
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	if opts.BaseURL == "" {
		opts.BaseURL = "https://open.er-api.com/v6/latest"
	}
	if opts.ReportingCurrency == "" {
		opts.ReportingCurrency = currency.ReportingCurrency
	}
	opts.ReportingCurrency = strings.ToUpper(opts.ReportingCurrency)
	return &ExchangeRates{
		opts:      opts,
		requester: requester,
		logger:    logger.With().Str("component", "rates_fetcher").Logger(),
	}
}

type ratesResponse struct {
	Result   string                     `json:"result"`
	BaseCode string                     `json:"base_code"`
	Rates    map[string]decimal.Decimal `json:"rates"`
	Error    string                     `json:"error-type"`
}

// FetchSnapshot retrieves current rates relative to the reporting currency.
func (e *ExchangeRates) FetchSnapshot(ctx context.Context) (currency.Snapshot, error) {
	endpoint := e.opts.BaseURL + "/" + e.opts.ReportingCurrency
	resp, err := e.requester.Get(ctx, endpoint, http.Header{})
	if err != nil {
		return currency.Snapshot{}, err
	}

	var payload ratesResponse
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		return currency.Snapshot{}, fmt.Errorf("decode rates: %w", err)
	}
	if payload.Result != "" && payload.Result != "success" {
		return currency.Snapshot{}, fmt.Errorf("rates api error: %s", payload.Error)
	}
	if len(payload.Rates) == 0 {
		return currency.Snapshot{}, fmt.Errorf("rates api returned no rates")
	}
	if payload.BaseCode != "" && !strings.EqualFold(payload.BaseCode, e.opts.ReportingCurrency) {
		return currency.Snapshot{}, fmt.Errorf("rates base %s does not match reporting currency %s", payload.BaseCode, e.opts.ReportingCurrency)
	}

	snap := currency.NewSnapshot(e.opts.ReportingCurrency, payload.Rates, time.Now().UTC())
	e.logger.Debug().Int("rates", snap.Len()).Msg("exchange rates fetched")
	return snap, nil
}

var _ RateFetcher = (*ExchangeRates)(nil)
