package files

import (
	"github.com/agentstation/bomsync/internal/memory"
	"github.com/agentstation/bomsync/pkg/catalogs"
)

// Stores are the in-memory stores a workspace is served from.
type Stores struct {
	Boms      *memory.Boms
	Catalogs  *memory.Catalogs
	Suppliers []*memory.Supplier
}

// Providers returns the suppliers as quote providers.
func (s *Stores) Providers() []catalogs.SupplierQuoteProvider {
	out := make([]catalogs.SupplierQuoteProvider, len(s.Suppliers))
	for i, sup := range s.Suppliers {
		out[i] = sup
	}
	return out
}

// Stores builds in-memory stores from the workspace content.
func (w *Workspace) Stores() *Stores {
	boms := memory.NewBoms()
	for _, b := range w.Boms {
		boms.Put(catalogs.Bom{ID: b.ID, Name: b.Name, PartNumber: b.PartNumber}, b.Items...)
	}

	cats := make([]catalogs.Catalog, len(w.Catalogs))
	for i, c := range w.Catalogs {
		cats[i] = catalogs.Catalog{ID: c.ID, Name: c.Name}
	}
	catStore := memory.NewCatalogs(cats...)
	for _, c := range w.Catalogs {
		for _, p := range c.Parts {
			catStore.PutEntry(catalogs.Entry{CatalogID: c.ID, PartNumber: p.PartNumber, RawNode: p.Properties})
		}
	}

	var suppliers []*memory.Supplier
	for _, id := range w.Suppliers() {
		sup := memory.NewSupplier(id)
		for code, q := range w.Quotes[id] {
			sup.Put(code, q)
		}
		suppliers = append(suppliers, sup)
	}

	return &Stores{Boms: boms, Catalogs: catStore, Suppliers: suppliers}
}

// Capture copies the state of the stores back into the workspace.
func (w *Workspace) Capture(s *Stores) {
	w.Boms = w.Boms[:0]
	for _, b := range s.Boms.Boms() {
		w.Boms = append(w.Boms, Bom{
			ID:         b.ID,
			Name:       b.Name,
			PartNumber: b.PartNumber,
			Items:      s.Boms.Items(b.ID),
		})
	}

	w.Catalogs = w.Catalogs[:0]
	for _, c := range s.Catalogs.Catalogs() {
		cat := Catalog{ID: c.ID, Name: c.Name}
		for _, e := range s.Catalogs.Entries(c.ID) {
			cat.Parts = append(cat.Parts, CatalogPart{PartNumber: e.PartNumber, Properties: e.RawNode})
		}
		w.Catalogs = append(w.Catalogs, cat)
	}
}
