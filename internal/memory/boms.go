package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"sync"

	"github.com/agentstation/bomsync/pkg/catalogs"
	"github.com/agentstation/bomsync/pkg/constants"
	"github.com/agentstation/bomsync/pkg/errors"
	"github.com/agentstation/bomsync/pkg/parts"
)

// Operation names recorded by Boms.
const (
	OpListBoms     = "ListBoms"
	OpGetBomItems  = "GetBomItems"
	OpCreateBom    = "CreateBom"
	OpAddPartToBom = "AddPartToBom"
)

// Boms is an in-memory catalogs.BomRepository.
type Boms struct {
	recorder

	mu    sync.Mutex
	boms  []catalogs.Bom
	items map[string][]catalogs.Item
	next  int
}

// NewBoms creates an empty BOM store.
func NewBoms() *Boms {
	return &Boms{items: make(map[string][]catalogs.Item)}
}

// Put adds a BOM with existing items.
func (b *Boms) Put(bom catalogs.Bom, items ...catalogs.Item) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.boms = append(b.boms, bom)
	b.items[bom.ID] = append(b.items[bom.ID], items...)
}

// Items returns the current items of a BOM.
func (b *Boms) Items(bomID string) []catalogs.Item {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.items[bomID])
}

// Boms returns the stored BOMs.
func (b *Boms) Boms() []catalogs.Bom {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.boms)
}

// ListBoms implements catalogs.BomRepository.
func (b *Boms) ListBoms(ctx context.Context) ([]catalogs.Bom, error) {
	if err := b.record(ctx, OpListBoms, "", ""); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.boms), nil
}

// GetBomItems implements catalogs.BomRepository.
func (b *Boms) GetBomItems(ctx context.Context, bomID string) ([]catalogs.Item, error) {
	if err := b.record(ctx, OpGetBomItems, bomID, ""); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	items, ok := b.items[bomID]
	if !ok && !b.has(bomID) {
		return nil, errors.NewNotFoundError("bom", bomID)
	}
	return slices.Clone(items), nil
}

// CreateBom implements catalogs.BomRepository.
func (b *Boms) CreateBom(ctx context.Context, name, partNumber string) (string, error) {
	if err := b.record(ctx, OpCreateBom, name, partNumber); err != nil {
		return "", err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next++
	id := fmt.Sprintf("bom-%d", b.next)
	b.boms = append(b.boms, catalogs.Bom{ID: id, Name: name, PartNumber: partNumber})
	b.items[id] = nil
	return id, nil
}

// AddPartToBom implements catalogs.BomRepository.
func (b *Boms) AddPartToBom(ctx context.Context, bomID string, line *parts.PartLine) error {
	if err := b.record(ctx, OpAddPartToBom, bomID, line.PartNumber()); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.has(bomID) {
		return errors.NewNotFoundError("bom", bomID)
	}
	props := maps.Clone(line.Properties)
	if props == nil {
		props = make(map[string]string)
	}
	props[constants.PropertyQuantity] = strconv.Itoa(line.RequestedQuantity)
	if !line.Unsourced() {
		props[constants.PropertySupplier] = line.ChosenSupplier.String()
		props[constants.PropertyUnitPrice] = line.ChosenUnitPrice.String()
		props[constants.PropertyTotalPrice] = line.ChosenTotalPrice.String()
	}
	b.items[bomID] = append(b.items[bomID], catalogs.Item{PartNumber: line.PartNumber(), Properties: props})
	return nil
}

func (b *Boms) has(bomID string) bool {
	for _, bom := range b.boms {
		if bom.ID == bomID {
			return true
		}
	}
	return false
}
