package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/agentstation/bomsync/pkg/catalogs"
	"github.com/agentstation/bomsync/pkg/errors"
	"github.com/agentstation/bomsync/pkg/parts"
)

// Operation names recorded by Catalogs.
const (
	OpListCatalogs      = "ListCatalogs"
	OpGetCatalogItem    = "GetCatalogItem"
	OpAddPartToCatalog  = "AddPartToCatalog"
	OpUpdateCatalogPart = "UpdateCatalogPart"
)

// Catalogs is an in-memory catalogs.CatalogRepository.
type Catalogs struct {
	recorder

	mu       sync.Mutex
	catalogs []catalogs.Catalog
	entries  map[string]map[string]catalogs.Entry
}

// NewCatalogs creates a store with the given catalogs.
func NewCatalogs(cats ...catalogs.Catalog) *Catalogs {
	c := &Catalogs{entries: make(map[string]map[string]catalogs.Entry)}
	for _, cat := range cats {
		c.catalogs = append(c.catalogs, cat)
		c.entries[cat.ID] = make(map[string]catalogs.Entry)
	}
	return c
}

// Put stores parts in a catalog.
func (c *Catalogs) Put(catalogID string, partNumbers ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, pn := range partNumbers {
		key := parts.Normalize(pn)
		c.ensure(catalogID)[key] = catalogs.Entry{
			CatalogID:  catalogID,
			PartNumber: key,
			RawNode:    map[string]any{"partNumber": pn},
		}
	}
}

// Entry returns a stored entry.
func (c *Catalogs) Entry(catalogID, partNumber string) (catalogs.Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[catalogID][parts.Normalize(partNumber)]
	return e, ok
}

func (c *Catalogs) ensure(catalogID string) map[string]catalogs.Entry {
	m, ok := c.entries[catalogID]
	if !ok {
		m = make(map[string]catalogs.Entry)
		c.entries[catalogID] = m
	}
	return m
}

// ListCatalogs implements catalogs.CatalogRepository.
func (c *Catalogs) ListCatalogs(ctx context.Context) ([]catalogs.Catalog, error) {
	if err := c.record(ctx, OpListCatalogs, "", ""); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.catalogs), nil
}

// GetCatalogItem implements catalogs.CatalogRepository.
func (c *Catalogs) GetCatalogItem(ctx context.Context, catalogID, partNumber string) (catalogs.Entry, error) {
	key := parts.Normalize(partNumber)
	if err := c.record(ctx, OpGetCatalogItem, catalogID, key); err != nil {
		return catalogs.Entry{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[catalogID][key]
	if !ok {
		return catalogs.Entry{}, errors.NewNotFoundError("catalog item", key)
	}
	return e, nil
}

// AddPartToCatalog implements catalogs.CatalogRepository.
func (c *Catalogs) AddPartToCatalog(ctx context.Context, catalogID string, line *parts.PartLine) error {
	key := line.PartNumber()
	if err := c.record(ctx, OpAddPartToCatalog, catalogID, key); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[catalogID]; !ok {
		return errors.NewNotFoundError("catalog", catalogID)
	}
	c.entries[catalogID][key] = catalogs.Entry{
		CatalogID:  catalogID,
		PartNumber: key,
		RawNode:    map[string]any{"partNumber": line.OrderingCode, "description": line.Description},
	}
	return nil
}

// UpdateCatalogPart implements catalogs.CatalogRepository.
func (c *Catalogs) UpdateCatalogPart(ctx context.Context, catalogID, partNumber string, properties map[string]string) error {
	key := parts.Normalize(partNumber)
	if err := c.record(ctx, OpUpdateCatalogPart, catalogID, key); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[catalogID][key]
	if !ok {
		return errors.NewNotFoundError("catalog item", key)
	}
	raw := maps.Clone(e.RawNode)
	if raw == nil {
		raw = make(map[string]any)
	}
	for k, v := range properties {
		raw[k] = v
	}
	e.RawNode = raw
	c.entries[catalogID][key] = e
	return nil
}

// PutEntry stores an entry as is.
func (c *Catalogs) PutEntry(e catalogs.Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e.PartNumber = parts.Normalize(e.PartNumber)
	c.ensure(e.CatalogID)[e.PartNumber] = e
}

// Catalogs returns the stored catalogs.
func (c *Catalogs) Catalogs() []catalogs.Catalog {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.catalogs)
}

// Entries returns the entries of a catalog ordered by part number.
func (c *Catalogs) Entries(catalogID string) []catalogs.Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := slices.Sorted(maps.Keys(c.entries[catalogID]))
	out := make([]catalogs.Entry, len(keys))
	for i, k := range keys {
		out[i] = c.entries[catalogID][k]
	}
	return out
}
