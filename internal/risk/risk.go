// Package risk derives a coarse risk label from quote price impact.
package risk

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

var (
	mediumThresholdBps = decimal.NewFromInt(50)
	highThresholdBps   = decimal.NewFromInt(200)
	bpsPerPercent      = decimal.NewFromInt(100)
)

// Classify maps price impact in basis points to a level:
// below 50 is low, 50 up to 200 is medium, 200 and above is high.
func Classify(bps decimal.Decimal) Level {
	switch {
	case bps.LessThan(mediumThresholdBps):
		return LevelLow
	case bps.LessThan(highThresholdBps):
		return LevelMedium
	default:
		return LevelHigh
	}
}

// PriceImpactBps converts the aggregator's percent figure to basis points.
// Missing or negative impact counts as zero.
func PriceImpactBps(percent *float64) decimal.Decimal {
	if percent == nil {
		return decimal.Zero
	}
	d := decimal.NewFromFloat(*percent)
	if d.IsNegative() {
		return decimal.Zero
	}
	return d.Mul(bpsPerPercent)
}

// Assessment is the risk block returned next to a quote.
type Assessment struct {
	PriceImpactBps decimal.Decimal `json:"price_impact_bps"`
	Slippage       Level           `json:"slippage"`
}

func Assess(percent *float64) Assessment {
	bps := PriceImpactBps(percent)
	return Assessment{PriceImpactBps: bps, Slippage: Classify(bps)}
}

// MarshalJSON renders the basis points as a JSON number rather than a quoted string.
func (a Assessment) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		PriceImpactBps json.Number `json:"price_impact_bps"`
		Slippage       Level       `json:"slippage"`
	}{json.Number(a.PriceImpactBps.String()), a.Slippage})
}
