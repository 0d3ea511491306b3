package pricing

import (
	"math"

	"github.com/sdpower/connector-go/internal/types"
	"github.com/shopspring/decimal"
)

// Cost prices a usage quantity under a manifest pricing policy.
//
// Flat pricing is units × flatRate. Any other template walks the tiers in order,
// treating each cap as a cumulative unit threshold; an empty tier table falls
// back to the flat rate and units left over after the last tier are charged
// at the last tier's rate. Negative quantities cost nothing under tiers.
func Cost(units float64, policy types.PricingSpec) float64 {
	if policy.Template == types.TemplateFlat || len(policy.Tiers) == 0 {
		return units * policy.Rate()
	}

	remaining := units
	previousCap := 0.0
	cost := 0.0
	for _, tier := range policy.Tiers {
		limit := tierCap(tier)
		eligible := math.Min(math.Max(remaining, 0), limit-previousCap)
		if eligible > 0 {
			cost += eligible * tier.Rate
			remaining -= eligible
		}
		previousCap = limit
		if remaining <= 0 {
			break
		}
	}

	if remaining > 0 {
		cost += remaining * policy.Tiers[len(policy.Tiers)-1].Rate
	}
	return cost
}

// TierLine is one band of a tiered price calculation
type TierLine struct {
	Index int `json:"index"`
	// UpToUnits is nil for the unbounded band and for the overflow line.
	UpToUnits *float64        `json:"upToUnits"`
	Rate      float64         `json:"rate"`
	Units     float64         `json:"units"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Overflow  bool            `json:"overflow,omitempty"`
}

// TierBreakdown explains how Cost reached its total for tiered policies.
// Bands that receive no units are still listed. Units beyond the last cap
// appear as a final overflow line. Flat policies and empty tier tables
// produce a single line at the flat rate.
func TierBreakdown(units float64, policy types.PricingSpec) []TierLine {
	if math.IsNaN(units) || math.IsInf(units, 0) {
		return nil
	}

	if policy.Template == types.TemplateFlat || len(policy.Tiers) == 0 {
		rate := policy.Rate()
		return []TierLine{{
			Rate:     rate,
			Units:    units,
			Subtotal: decimal.NewFromFloat(units).Mul(decimal.NewFromFloat(rate)),
		}}
	}

	lines := make([]TierLine, 0, len(policy.Tiers)+1)
	remaining := units
	previousCap := 0.0
	for i, tier := range policy.Tiers {
		limit := tierCap(tier)
		eligible := 0.0
		if remaining > 0 {
			eligible = math.Min(remaining, limit-previousCap)
			if eligible < 0 {
				eligible = 0
			}
		}
		remaining -= eligible
		lines = append(lines, TierLine{
			Index:     i,
			UpToUnits: tier.UpToUnits,
			Rate:      tier.Rate,
			Units:     eligible,
			Subtotal:  decimal.NewFromFloat(eligible).Mul(decimal.NewFromFloat(tier.Rate)),
		})
		previousCap = limit
	}

	if remaining > 0 {
		last := policy.Tiers[len(policy.Tiers)-1]
		lines = append(lines, TierLine{
			Index:    len(policy.Tiers),
			Rate:     last.Rate,
			Units:    remaining,
			Subtotal: decimal.NewFromFloat(remaining).Mul(decimal.NewFromFloat(last.Rate)),
			Overflow: true,
		})
	}
	return lines
}

// Total sums breakdown subtotals
func Total(lines []TierLine) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.Subtotal)
	}
	return total
}

func tierCap(tier types.PricingTier) float64 {
	if tier.UpToUnits == nil {
		return math.Inf(1)
	}
	return *tier.UpToUnits
}

// Service exposes the pricing functions behind the calculator's
// PricingService interface.
type Service struct{}

func NewService() *Service {
	return &Service{}
}

func (s *Service) Cost(units float64, policy types.PricingSpec) float64 {
	return Cost(units, policy)
}
