// Package catalogs defines the ports the pipeline drives (supplier quotes,
// the remote catalog store and the remote BOM store) together with the
// Catalog Cache that fronts the catalog store.
//
// Every port method takes a context and is expected to return errors from
// github.com/agentstation/bomsync/pkg/errors: a NotFoundError when an item
// is absent and a RateLimitedError or an APIError with status 429 when the
// upstream throttles the caller.
package catalogs

import (
	"context"
	"strconv"
	"strings"

	"github.com/agentstation/bomsync/pkg/constants"
	"github.com/agentstation/bomsync/pkg/parts"
)

// Catalog is a named collection of parts in the remote catalog store.
type Catalog struct {
	ID   string `json:"id" yaml:"id" validate:"required"`
	Name string `json:"name" yaml:"name"`
}

// Entry is the cached fact that a normalized part number exists in a catalog.
// Entries are never mutated, only replaced.
type Entry struct {
	CatalogID  string         `json:"catalog_id" yaml:"catalog_id"`
	PartNumber string         `json:"part_number" yaml:"part_number"`
	RawNode    map[string]any `json:"raw_node,omitempty" yaml:"raw_node,omitempty"`
}

// Bom is a bill of materials in the remote BOM store.
type Bom struct {
	ID         string `json:"id" yaml:"id" validate:"required"`
	Name       string `json:"name" yaml:"name"`
	PartNumber string `json:"part_number,omitempty" yaml:"part_number,omitempty"`
}

// Item is one existing row of a target BOM.
type Item struct {
	PartNumber string            `json:"part_number" yaml:"part_number"`
	Properties map[string]string `json:"properties,omitempty" yaml:"properties,omitempty"`
}

// Quantity parses the quantity property of the item.
func (i Item) Quantity() (int, bool) {
	raw, ok := i.Properties[constants.PropertyQuantity]
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, false
	}
	return n, true
}

// SupplierQuoteProvider fetches tiered pricing from one supplier.
type SupplierQuoteProvider interface {
	ID() parts.SupplierID
	GetQuote(ctx context.Context, orderingCode string) (parts.SupplierQuote, error)
}

// CatalogRepository is the remote catalog store.
type CatalogRepository interface {
	ListCatalogs(ctx context.Context) ([]Catalog, error)
	// GetCatalogItem returns a NotFoundError when the part is absent.
	GetCatalogItem(ctx context.Context, catalogID, partNumber string) (Entry, error)
	AddPartToCatalog(ctx context.Context, catalogID string, line *parts.PartLine) error
	UpdateCatalogPart(ctx context.Context, catalogID, partNumber string, properties map[string]string) error
}

// BomRepository is the remote BOM store.
type BomRepository interface {
	ListBoms(ctx context.Context) ([]Bom, error)
	GetBomItems(ctx context.Context, bomID string) ([]Item, error)
	CreateBom(ctx context.Context, name, partNumber string) (string, error)
	// AddPartToBom must not be called concurrently for the same BOM.
	AddPartToBom(ctx context.Context, bomID string, line *parts.PartLine) error
}

// FindBom returns the BOM matching id, or else a normalized part number
// or a case-insensitive name.
func FindBom(boms []Bom, id, name, partNumber string) (Bom, bool) {
	for _, b := range boms {
		if id != "" && b.ID == id {
			return b, true
		}
	}
	if partNumber != "" {
		for _, b := range boms {
			if b.PartNumber != "" && parts.Equal(b.PartNumber, partNumber) {
				return b, true
			}
		}
	}
	if name != "" {
		for _, b := range boms {
			if strings.EqualFold(strings.TrimSpace(b.Name), strings.TrimSpace(name)) {
				return b, true
			}
		}
	}
	return Bom{}, false
}

// CatalogProperties builds the catalog property map for a sourced line.
func CatalogProperties(line *parts.PartLine) map[string]string {
	if line.Unsourced() {
		return nil
	}
	props := map[string]string{
		constants.PropertySupplier:  line.ChosenSupplier.String(),
		constants.PropertyUnitPrice: line.ChosenUnitPrice.String(),
	}
	if o := line.Override; o != nil {
		setIf(props, constants.PropertySupplierPartNumber, o.SupplierPartNumber)
		setIf(props, constants.PropertyProductURL, o.ProductURL)
		setIf(props, constants.PropertyDatasheetURL, o.DatasheetURL)
		return props
	}
	if q, ok := line.Quote(); ok {
		setIf(props, constants.PropertySupplierPartNumber, q.SupplierPartNumber)
		setIf(props, constants.PropertyProductURL, q.ProductURL)
		setIf(props, constants.PropertyDatasheetURL, q.DatasheetURL)
		setIf(props, constants.PropertyImageURL, q.ImageURL)
	}
	return props
}

func setIf(m map[string]string, k, v string) {
	if v != "" {
		m[k] = v
	}
}
