package analytics

import "github.com/shopspring/decimal"

// Tier classifies an account's dispute ratio.
type Tier string

const (
	Healthy   Tier = "Healthy"
	Attention Tier = "Attention"
	Critical  Tier = "Critical"
)

var (
	healthyCeiling   = decimal.RequireFromString("0.75")
	attentionCeiling = decimal.RequireFromString("0.99")
)

// Health is the all-time dispute-to-order ratio of an account. Ratio is kept
// unrounded so that Tier always agrees with it; render it with RatioText.
type Health struct {
	Disputes int             `json:"disputes"`
	Orders   int             `json:"orders"`
	Ratio    decimal.Decimal `json:"ratio"`
	Tier     Tier            `json:"tier"`
}

// ScoreHealth computes (disputes / orders) × 100. Zero orders yields ratio 0.
func ScoreHealth(disputes, orders int) Health {
	ratio := decimal.Zero
	if orders > 0 {
		ratio = decimal.NewFromInt(int64(disputes)).
			Div(decimal.NewFromInt(int64(orders))).
			Mul(decimal.NewFromInt(100))
	}
	return Health{
		Disputes: disputes,
		Orders:   orders,
		Ratio:    ratio,
		Tier:     Classify(ratio),
	}
}

// RatioText renders the ratio as a percentage with three decimals, enough to
// separate the tier boundaries from their neighbours.
func (h Health) RatioText() string {
	return h.Ratio.StringFixed(3)
}

// Classify maps a ratio to its tier: ≤0.75 Healthy, ≤0.99 Attention, else Critical.
func Classify(ratio decimal.Decimal) Tier {
	switch {
	case ratio.LessThanOrEqual(healthyCeiling):
		return Healthy
	case ratio.LessThanOrEqual(attentionCeiling):
		return Attention
	default:
		return Critical
	}
}
