package analytics

import (
	"time"

	"github.com/shopspring/decimal"

	"dispute-analytics/internal/commerce"
	"dispute-analytics/internal/correlate"
)

// Options tune the assembled payload.
type Options struct {
	ReportingCurrency      string
	MinutesSavedPerDispute int
	CountryLimit           int
	RepeatDisputerLimit    int
}

// DefaultOptions mirror the dashboard's defaults.
func DefaultOptions() Options {
	return Options{
		ReportingCurrency:      "USD",
		MinutesSavedPerDispute: 45,
		CountryLimit:           10,
		RepeatDisputerLimit:    5,
	}
}

// Input is everything the assembler needs for one run.
type Input struct {
	Range    Range
	Disputes []correlate.Record
	Orders   []commerce.Order

	AllTimeDisputes []commerce.Dispute
	AllTimeOrders   []commerce.Order

	UnconvertedCurrencies []string
	Degraded              []string
}

// Metrics are the scalar figures of the payload. Amounts are in the reporting currency.
type Metrics struct {
	TotalDisputes int             `json:"totalDisputes"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`

	ActiveDisputes int             `json:"activeDisputes"`
	ActiveAmount   decimal.Decimal `json:"activeAmount"`

	WonDisputes  int             `json:"wonDisputes"`
	WonAmount    decimal.Decimal `json:"wonAmount"`
	LostDisputes int             `json:"lostDisputes"`
	LostAmount   decimal.Decimal `json:"lostAmount"`

	FinishedDisputes int             `json:"finishedDisputes"`
	FinishedAmount   decimal.Decimal `json:"finishedAmount"`
	WinRate          decimal.Decimal `json:"winRate"`
	WinRateAmount    decimal.Decimal `json:"winRateAmount"`

	EvidenceSubmitted       int             `json:"evidenceSubmitted"`
	EvidenceSubmittedAmount decimal.Decimal `json:"evidenceSubmittedAmount"`

	UnderReview       int             `json:"underReview"`
	UnderReviewAmount decimal.Decimal `json:"underReviewAmount"`

	TimeSavedMinutes int    `json:"timeSavedMinutes"`
	TimeSaved        string `json:"timeSaved"`

	Formatted FormattedTotals `json:"formatted"`
}

// FormattedTotals are display strings for the main amounts.
type FormattedTotals struct {
	Total             string `json:"total"`
	Active            string `json:"active"`
	Won               string `json:"won"`
	Lost              string `json:"lost"`
	EvidenceSubmitted string `json:"evidenceSubmitted"`
	UnderReview       string `json:"underReview"`
}

// Result is the analytics payload handed to the dashboard.
type Result struct {
	RunID             string    `json:"runId,omitempty"`
	TenantID          string    `json:"tenantId,omitempty"`
	GeneratedAt       time.Time `json:"generatedAt"`
	ReportingCurrency string    `json:"reportingCurrency"`
	Range             Range     `json:"range"`

	Metrics Metrics `json:"metrics"`
	// HealthAccount is Health.Ratio, surfaced at top level for the dashboard header.
	HealthAccount decimal.Decimal `json:"healthAccount"`
	Health        Health          `json:"health"`

	ByReason        []Bucket        `json:"byReason"`
	ByMonth         MonthlyTrend    `json:"byMonth"`
	ByCountry       []CountryBucket `json:"byCountry"`
	ByNetwork       []Bucket        `json:"byNetwork"`
	ByProcessor     []Bucket        `json:"byProcessor"`
	RepeatDisputers []Bucket        `json:"repeatDisputers"`

	UnconvertedCurrencies []string `json:"unconvertedCurrencies,omitempty"`
	Degraded              []string `json:"degraded,omitempty"`

	Disputes        []correlate.Record `json:"disputes"`
	Orders          []commerce.Order   `json:"orders"`
	AllTimeDisputes []commerce.Dispute `json:"allTimeDisputes"`
	AllTimeOrders   []commerce.Order   `json:"allTimeOrders"`
}

// Assemble runs every aggregator over the same filtered dispute list and
// scores health over the all-time collections.
func Assemble(in Input, opts Options) Result {
	if opts.ReportingCurrency == "" {
		opts.ReportingCurrency = "USD"
	}

	health := ScoreHealth(len(in.AllTimeDisputes), len(in.AllTimeOrders))
	metrics := computeMetrics(in.Disputes, opts)

	return Result{
		GeneratedAt:           time.Now().UTC(),
		ReportingCurrency:     opts.ReportingCurrency,
		Range:                 in.Range,
		Metrics:               metrics,
		HealthAccount:         health.Ratio,
		Health:                health,
		ByReason:              ByReason(in.Disputes),
		ByMonth:               ByMonth(in.Disputes),
		ByCountry:             TopCountries(ByCountry(in.Disputes), opts.CountryLimit),
		ByNetwork:             ByNetwork(in.Disputes),
		ByProcessor:           ByProcessor(in.Disputes),
		RepeatDisputers:       Top(RepeatDisputers(in.Disputes), opts.RepeatDisputerLimit),
		UnconvertedCurrencies: in.UnconvertedCurrencies,
		Degraded:              in.Degraded,
		Disputes:              nonNil(in.Disputes),
		Orders:                nonNil(in.Orders),
		AllTimeDisputes:       nonNil(in.AllTimeDisputes),
		AllTimeOrders:         nonNil(in.AllTimeOrders),
	}
}

func computeMetrics(records []correlate.Record, opts Options) Metrics {
	m := Metrics{
		TotalAmount:             decimal.Zero,
		ActiveAmount:            decimal.Zero,
		WonAmount:               decimal.Zero,
		LostAmount:              decimal.Zero,
		FinishedAmount:          decimal.Zero,
		EvidenceSubmittedAmount: decimal.Zero,
		UnderReviewAmount:       decimal.Zero,
	}
	finishedWon := 0
	finishedWonAmount := decimal.Zero

	for _, rec := range records {
		amount := rec.ReportingAmount
		m.TotalDisputes++
		m.TotalAmount = m.TotalAmount.Add(amount)

		switch rec.Status {
		case commerce.StatusWon:
			m.WonDisputes++
			m.WonAmount = m.WonAmount.Add(amount)
		case commerce.StatusLost:
			m.LostDisputes++
			m.LostAmount = m.LostAmount.Add(amount)
		default:
			m.ActiveDisputes++
			m.ActiveAmount = m.ActiveAmount.Add(amount)
		}

		if rec.Status == commerce.StatusUnderReview {
			m.UnderReview++
			m.UnderReviewAmount = m.UnderReviewAmount.Add(amount)
		}
		if rec.EvidenceSentOn != nil {
			m.EvidenceSubmitted++
			m.EvidenceSubmittedAmount = m.EvidenceSubmittedAmount.Add(amount)
		}
		if rec.Finalized() {
			m.FinishedDisputes++
			m.FinishedAmount = m.FinishedAmount.Add(amount)
			if rec.Status == commerce.StatusWon {
				finishedWon++
				finishedWonAmount = finishedWonAmount.Add(amount)
			}
		}
	}

	m.WinRate = percent(decimal.NewFromInt(int64(finishedWon)), decimal.NewFromInt(int64(m.FinishedDisputes)))
	// Divides by finished amount, not total amount.
	m.WinRateAmount = percent(finishedWonAmount, m.FinishedAmount)

	m.TimeSavedMinutes = m.TotalDisputes * opts.MinutesSavedPerDispute
	m.TimeSaved = FormatMinutes(m.TimeSavedMinutes)

	for _, amt := range []*decimal.Decimal{&m.TotalAmount, &m.ActiveAmount, &m.WonAmount, &m.LostAmount, &m.FinishedAmount, &m.EvidenceSubmittedAmount, &m.UnderReviewAmount} {
		*amt = amt.Round(2)
	}

	code := opts.ReportingCurrency
	m.Formatted = FormattedTotals{
		Total:             FormatMoney(m.TotalAmount, code),
		Active:            FormatMoney(m.ActiveAmount, code),
		Won:               FormatMoney(m.WonAmount, code),
		Lost:              FormatMoney(m.LostAmount, code),
		EvidenceSubmitted: FormatMoney(m.EvidenceSubmittedAmount, code),
		UnderReview:       FormatMoney(m.UnderReviewAmount, code),
	}
	return m
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
