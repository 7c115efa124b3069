// Package parts holds the value types shared by every pipeline stage: the
// supplier quote model, the PartLine unit of work and the part-number
// normalization rule used for all matching.
package parts

import (
	"fmt"
	"maps"
	"slices"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agentstation/bomsync/pkg/errors"
)

// SupplierID identifies an electronic-component supplier.
type SupplierID string

// String implements fmt.Stringer.
func (id SupplierID) String() string {
	return string(id)
}

// PriceBreak is a quantity threshold at which the unit price changes.
type PriceBreak struct {
	MinimumQuantity int             `json:"minimum_quantity" yaml:"minimum_quantity" validate:"gte=1"`
	UnitPrice       decimal.Decimal `json:"unit_price" yaml:"unit_price"`
}

// SupplierQuote is a supplier's tiered pricing and metadata for one part.
// When IsAvailable is false the price and stock fields are not trusted.
type SupplierQuote struct {
	Supplier           SupplierID   `json:"supplier" yaml:"supplier"`
	IsAvailable        bool         `json:"is_available" yaml:"is_available"`
	AvailableStock     int          `json:"available_stock" yaml:"available_stock" validate:"gte=0"`
	PriceBreaks        []PriceBreak `json:"price_breaks,omitempty" yaml:"price_breaks,omitempty" validate:"dive"`
	SupplierPartNumber string       `json:"supplier_part_number,omitempty" yaml:"supplier_part_number,omitempty"`
	ProductURL         string       `json:"product_url,omitempty" yaml:"product_url,omitempty"`
	DatasheetURL       string       `json:"datasheet_url,omitempty" yaml:"datasheet_url,omitempty"`
	ImageURL           string       `json:"image_url,omitempty" yaml:"image_url,omitempty"`
}

// Unavailable returns the quote recorded when a supplier has no data for a part.
func Unavailable(supplier SupplierID) SupplierQuote {
	return SupplierQuote{Supplier: supplier}
}

// SortedBreaks returns a copy of the price breaks ordered by minimum quantity.
func (q SupplierQuote) SortedBreaks() []PriceBreak {
	breaks := slices.Clone(q.PriceBreaks)
	slices.SortStableFunc(breaks, func(a, b PriceBreak) int {
		return a.MinimumQuantity - b.MinimumQuantity
	})
	return breaks
}

// Override is a manually attached external supplier. It replaces every
// supplier quote of its line and is always chosen.
type Override struct {
	Supplier           string          `json:"supplier" yaml:"supplier" validate:"required"`
	UnitPrice          decimal.Decimal `json:"unit_price" yaml:"unit_price"`
	SupplierPartNumber string          `json:"supplier_part_number,omitempty" yaml:"supplier_part_number,omitempty"`
	ProductURL         string          `json:"product_url,omitempty" yaml:"product_url,omitempty"`
	DatasheetURL       string          `json:"datasheet_url,omitempty" yaml:"datasheet_url,omitempty"`
}

// PartLine is one BOM row being priced, reconciled and uploaded.
type PartLine struct {
	ID                string                       `json:"id" yaml:"id"`
	OrderingCode      string                       `json:"ordering_code" yaml:"ordering_code" validate:"required"`
	Description       string                       `json:"description,omitempty" yaml:"description,omitempty"`
	RequestedQuantity int                          `json:"requested_quantity" yaml:"requested_quantity" validate:"gte=1"`
	Quotes            map[SupplierID]SupplierQuote `json:"quotes,omitempty" yaml:"quotes,omitempty"`
	Override          *Override                    `json:"override,omitempty" yaml:"override,omitempty"`
	Properties        map[string]string            `json:"properties,omitempty" yaml:"properties,omitempty"`

	// Populated by the selector. An empty ChosenSupplier marks the line unsourced.
	ChosenSupplier   SupplierID      `json:"chosen_supplier,omitempty" yaml:"chosen_supplier,omitempty"`
	ChosenQuantity   int             `json:"chosen_quantity,omitempty" yaml:"chosen_quantity,omitempty"`
	ChosenUnitPrice  decimal.Decimal `json:"chosen_unit_price" yaml:"chosen_unit_price"`
	ChosenTotalPrice decimal.Decimal `json:"chosen_total_price" yaml:"chosen_total_price"`
}

// New creates a part line with a generated ID.
func New(orderingCode string, requestedQuantity int) (*PartLine, error) {
	line := &PartLine{
		ID:                uuid.NewString(),
		OrderingCode:      orderingCode,
		RequestedQuantity: requestedQuantity,
	}
	if err := line.Validate(); err != nil {
		return nil, err
	}
	return line, nil
}

// Validate checks the invariants a part line must hold before entering the pipeline.
func (p *PartLine) Validate() error {
	if Normalize(p.OrderingCode) == "" {
		return errors.NewValidationError("OrderingCode", p.OrderingCode, "ordering code cannot be empty")
	}
	if p.RequestedQuantity < 1 {
		return errors.NewQuantityError(p.RequestedQuantity, fmt.Sprintf("part %s requires a quantity of at least 1", p.OrderingCode))
	}
	return nil
}

// PartNumber returns the normalized ordering code.
func (p *PartLine) PartNumber() string {
	return Normalize(p.OrderingCode)
}

// Unsourced reports whether no supplier was chosen for the line.
func (p *PartLine) Unsourced() bool {
	return p.ChosenSupplier == ""
}

// Quote returns the chosen supplier's quote, if the line is sourced from a
// quoted supplier rather than an override.
func (p *PartLine) Quote() (SupplierQuote, bool) {
	if p.Unsourced() || p.Override != nil {
		return SupplierQuote{}, false
	}
	q, ok := p.Quotes[p.ChosenSupplier]
	return q, ok
}

// SetQuote attaches a supplier quote, replacing any earlier one.
func (p *PartLine) SetQuote(q SupplierQuote) {
	if p.Quotes == nil {
		p.Quotes = make(map[SupplierID]SupplierQuote)
	}
	p.Quotes[q.Supplier] = q
}

// ClearChoice resets the selector fields.
func (p *PartLine) ClearChoice() {
	p.ChosenSupplier = ""
	p.ChosenQuantity = 0
	p.ChosenUnitPrice = decimal.Zero
	p.ChosenTotalPrice = decimal.Zero
}

// Clone returns a deep copy that can be mutated independently.
func (p *PartLine) Clone() *PartLine {
	c := *p
	if p.Quotes != nil {
		c.Quotes = make(map[SupplierID]SupplierQuote, len(p.Quotes))
		for id, q := range p.Quotes {
			q.PriceBreaks = slices.Clone(q.PriceBreaks)
			c.Quotes[id] = q
		}
	}
	if p.Override != nil {
		o := *p.Override
		c.Override = &o
	}
	c.Properties = maps.Clone(p.Properties)
	return &c
}

// IDs returns the IDs of the given lines in order.
func IDs(lines []*PartLine) []string {
	ids := make([]string, len(lines))
	for i, l := range lines {
		ids[i] = l.ID
	}
	return ids
}
