package pricing

import (
	"cmp"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/agentstation/bomsync/pkg/parts"
)

// Candidate is one supplier's optimized offer for a part line.
type Candidate struct {
	Supplier     parts.SupplierID `json:"supplier"`
	Optimization Optimization     `json:"optimization"`
}

// Selector picks the cheapest available supplier per part line. Ties on
// total price go to the supplier listed first in the priority order;
// suppliers missing from the list rank after it, alphabetically.
type Selector struct {
	rank map[parts.SupplierID]int
}

// NewSelector creates a selector with the given supplier priority order.
func NewSelector(priority ...parts.SupplierID) *Selector {
	rank := make(map[parts.SupplierID]int, len(priority))
	for i, id := range priority {
		if _, dup := rank[id]; !dup {
			rank[id] = i
		}
	}
	return &Selector{rank: rank}
}

// Candidates returns the usable offers for a line, best first. A quote is
// usable when the supplier reports availability and its optimized total is
// positive.
func (s *Selector) Candidates(line *parts.PartLine) ([]Candidate, error) {
	var out []Candidate
	for id, q := range line.Quotes {
		if !q.IsAvailable {
			continue
		}
		opt, err := OptimizeQuantity(line.RequestedQuantity, q.PriceBreaks)
		if err != nil {
			return nil, err
		}
		if !opt.Usable() {
			continue
		}
		out = append(out, Candidate{Supplier: id, Optimization: opt})
	}

	slices.SortFunc(out, func(a, b Candidate) int {
		if c := a.Optimization.TotalPrice.Cmp(b.Optimization.TotalPrice); c != 0 {
			return c
		}
		return s.compareSuppliers(a.Supplier, b.Supplier)
	})
	return out, nil
}

// Select populates the chosen fields of a line. An override always wins; a
// line with no usable candidate is left unsourced with zero prices.
func (s *Selector) Select(line *parts.PartLine) error {
	if o := line.Override; o != nil {
		line.ChosenSupplier = parts.SupplierID(o.Supplier)
		line.ChosenQuantity = line.RequestedQuantity
		line.ChosenUnitPrice = o.UnitPrice
		line.ChosenTotalPrice = o.UnitPrice.Mul(decimal.NewFromInt(int64(line.RequestedQuantity)))
		return nil
	}

	candidates, err := s.Candidates(line)
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		line.ClearChoice()
		return nil
	}

	best := candidates[0]
	line.ChosenSupplier = best.Supplier
	line.ChosenQuantity = best.Optimization.OptimizedQuantity
	line.ChosenUnitPrice = best.Optimization.UnitPrice
	line.ChosenTotalPrice = best.Optimization.TotalPrice
	return nil
}

// SelectAll runs Select over every line and returns the unsourced ones.
func (s *Selector) SelectAll(lines []*parts.PartLine) ([]*parts.PartLine, error) {
	var unsourced []*parts.PartLine
	for _, line := range lines {
		if err := s.Select(line); err != nil {
			return unsourced, err
		}
		if line.Unsourced() {
			unsourced = append(unsourced, line)
		}
	}
	return unsourced, nil
}

func (s *Selector) compareSuppliers(a, b parts.SupplierID) int {
	ra, okA := s.rank[a]
	rb, okB := s.rank[b]
	switch {
	case okA && okB:
		return cmp.Compare(ra, rb)
	case okA:
		return -1
	case okB:
		return 1
	}
	return cmp.Compare(a, b)
}

// Total sums the chosen total price over the given lines.
func Total(lines []*parts.PartLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.ChosenTotalPrice)
	}
	return total
}
