// Package pricing computes optimized order quantities from tiered supplier
// pricing and selects the cheapest supplier for each part line.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/agentstation/bomsync/pkg/errors"
	"github.com/agentstation/bomsync/pkg/parts"
)

// lookAheadSteps is how many higher tiers are compared in turn. Each step
// only looks at the tier directly above the current one.
const lookAheadSteps = 2

// Optimization is the result of OptimizeQuantity.
type Optimization struct {
	RequestedQuantity  int             `json:"requested_quantity"`
	OptimizedQuantity  int             `json:"optimized_quantity"`
	UnitPrice          decimal.Decimal `json:"unit_price"`
	TotalPrice         decimal.Decimal `json:"total_price"`
	NextBreakQuantity  int             `json:"next_break_quantity,omitempty"`
	NextBreakUnitPrice decimal.Decimal `json:"next_break_unit_price"`
}

// HasNextBreak reports whether a tier above the optimized one exists.
func (o Optimization) HasNextBreak() bool {
	return o.NextBreakQuantity > 0
}

// Usable reports whether the optimization produced a positive price.
func (o Optimization) Usable() bool {
	return o.TotalPrice.IsPositive()
}

// OptimizeQuantity finds the order quantity that minimizes total spend.
//
// The active tier is the break with the largest minimum quantity not above
// the requested quantity. If buying the next tier's minimum quantity costs
// less than the requested quantity at the active price, the quantity is
// raised to that minimum; the comparison is then repeated once against the
// following tier. Ties keep the smaller quantity. A request below every
// break, or an empty break list, yields a zero price.
func OptimizeQuantity(requested int, breaks []parts.PriceBreak) (Optimization, error) {
	if requested < 1 {
		return Optimization{}, errors.NewQuantityError(requested, "requested quantity must be at least 1")
	}

	result := Optimization{
		RequestedQuantity: requested,
		OptimizedQuantity: requested,
	}

	sorted := parts.SupplierQuote{PriceBreaks: breaks}.SortedBreaks()
	if len(sorted) == 0 {
		return result, nil
	}

	tier := activeTier(requested, sorted)
	if tier < 0 {
		result.NextBreakQuantity = sorted[0].MinimumQuantity
		result.NextBreakUnitPrice = sorted[0].UnitPrice
		return result, nil
	}

	quantity := requested
	cost := sorted[tier].UnitPrice.Mul(decimal.NewFromInt(int64(quantity)))

	for step := 0; step < lookAheadSteps; step++ {
		next := tier + 1
		if next >= len(sorted) {
			break
		}
		alternative := sorted[next].UnitPrice.Mul(decimal.NewFromInt(int64(sorted[next].MinimumQuantity)))
		if !alternative.LessThan(cost) {
			break
		}
		tier, quantity, cost = next, sorted[next].MinimumQuantity, alternative
	}

	result.OptimizedQuantity = quantity
	result.UnitPrice = sorted[tier].UnitPrice
	result.TotalPrice = cost
	if tier+1 < len(sorted) {
		result.NextBreakQuantity = sorted[tier+1].MinimumQuantity
		result.NextBreakUnitPrice = sorted[tier+1].UnitPrice
	}
	return result, nil
}

// activeTier returns the index of the last break whose minimum quantity is
// at most requested, or -1.
func activeTier(requested int, sorted []parts.PriceBreak) int {
	tier := -1
	for i, b := range sorted {
		if b.MinimumQuantity > requested {
			break
		}
		tier = i
	}
	return tier
}
