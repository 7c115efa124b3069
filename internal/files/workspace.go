// Package files loads and saves the YAML workspace file used by the CLI.
//
// A workspace holds the source part lines, the supplier quotes known for
// them, and a local copy of the catalog and BOM stores. The stores are
// served from memory during a run and captured back into the file
// afterwards, which makes the workspace a file-backed stand-in for the
// remote catalog service.
package files

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-yaml"

	"github.com/agentstation/bomsync/pkg/catalogs"
	"github.com/agentstation/bomsync/pkg/constants"
	"github.com/agentstation/bomsync/pkg/errors"
	"github.com/agentstation/bomsync/pkg/parts"
	"github.com/agentstation/bomsync/pkg/upload"
)

// Workspace is the content of a workspace file.
type Workspace struct {
	Target           upload.Target                                       `yaml:"target"`
	SupplierPriority []parts.SupplierID                                  `yaml:"supplier_priority,omitempty"`
	Lines            []*parts.PartLine                                   `yaml:"lines" validate:"dive,required"`
	Quotes           map[parts.SupplierID]map[string]parts.SupplierQuote `yaml:"quotes,omitempty" validate:"dive,dive"`
	Catalogs         []Catalog                                           `yaml:"catalogs,omitempty" validate:"dive"`
	Boms             []Bom                                               `yaml:"boms,omitempty" validate:"dive"`

	path string
}

// Catalog is a catalog and its parts.
type Catalog struct {
	ID    string        `yaml:"id" validate:"required"`
	Name  string        `yaml:"name"`
	Parts []CatalogPart `yaml:"parts,omitempty" validate:"dive"`
}

// CatalogPart is one catalog member.
type CatalogPart struct {
	PartNumber string         `yaml:"part_number" validate:"required"`
	Properties map[string]any `yaml:"properties,omitempty"`
}

// Bom is a BOM and its items.
type Bom struct {
	ID         string          `yaml:"id" validate:"required"`
	Name       string          `yaml:"name"`
	PartNumber string          `yaml:"part_number,omitempty"`
	Items      []catalogs.Item `yaml:"items,omitempty"`
}

var validate = validator.New()

// Load reads and validates a workspace file.
func Load(path string) (*Workspace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFoundError("workspace", path)
		}
		return nil, errors.WrapIO("read", path, err)
	}
	ws, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	ws.path = path
	return ws, nil
}

// Parse decodes and validates workspace YAML.
func Parse(data []byte) (*Workspace, error) {
	var ws Workspace
	if err := yaml.Unmarshal(data, &ws); err != nil {
		return nil, errors.WrapParse("yaml", "workspace", err)
	}
	for i, line := range ws.Lines {
		if line != nil && line.ID == "" {
			line.ID = fmt.Sprintf("line-%d", i+1)
		}
	}
	if err := ws.Validate(); err != nil {
		return nil, err
	}
	return &ws, nil
}

// Validate checks part lines first so a bad quantity is reported as such,
// then the structural constraints of the file.
func (w *Workspace) Validate() error {
	seen := make(map[string]bool, len(w.Lines))
	for _, line := range w.Lines {
		if line == nil {
			continue
		}
		if err := line.Validate(); err != nil {
			return fmt.Errorf("part line %s: %w", line.ID, err)
		}
		if seen[line.ID] {
			return &errors.ValidationError{Field: "lines.id", Value: line.ID, Message: "duplicate part line id"}
		}
		seen[line.ID] = true
	}

	if err := validate.Struct(w); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return &errors.ValidationError{
				Field:   fe.Namespace(),
				Value:   fe.Value(),
				Message: fmt.Sprintf("failed %q constraint", fe.Tag()),
			}
		}
		return errors.WrapValidation("workspace", err)
	}
	return nil
}

// Path returns the file the workspace was loaded from.
func (w *Workspace) Path() string {
	return w.path
}

// Save writes the workspace to path, or to the file it was loaded from when
// path is empty. The file is replaced atomically.
func (w *Workspace) Save(path string) error {
	if path == "" {
		path = w.path
	}
	if path == "" {
		return &errors.ValidationError{Field: "path", Message: "workspace has no file"}
	}

	data, err := yaml.Marshal(w)
	if err != nil {
		return errors.WrapParse("yaml", path, err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, constants.DirPermissions); err != nil {
		return errors.WrapIO("create", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".bomsync-*.yaml")
	if err != nil {
		return errors.WrapIO("create", dir, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return errors.WrapIO("write", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return errors.WrapIO("close", tmp.Name(), err)
	}
	if err := os.Chmod(tmp.Name(), constants.FilePermissions); err != nil {
		return errors.WrapIO("chmod", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.WrapIO("rename", path, err)
	}
	w.path = path
	return nil
}

// PartLines returns copies of the source lines with the workspace quotes
// attached. Quote keys match ordering codes after normalization.
func (w *Workspace) PartLines() []*parts.PartLine {
	index := make(map[parts.SupplierID]map[string]parts.SupplierQuote, len(w.Quotes))
	for id, byCode := range w.Quotes {
		m := make(map[string]parts.SupplierQuote, len(byCode))
		for code, q := range byCode {
			q.Supplier = id
			m[parts.Normalize(code)] = q
		}
		index[id] = m
	}

	out := make([]*parts.PartLine, 0, len(w.Lines))
	for _, src := range w.Lines {
		line := src.Clone()
		for _, id := range w.Suppliers() {
			if q, ok := index[id][line.PartNumber()]; ok {
				if _, has := line.Quotes[id]; !has {
					line.SetQuote(q)
				}
			}
		}
		out = append(out, line)
	}
	return out
}

// Suppliers returns the suppliers with quotes in the workspace, in priority
// order followed by the rest alphabetically.
func (w *Workspace) Suppliers() []parts.SupplierID {
	var out []parts.SupplierID
	for _, id := range w.SupplierPriority {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	var rest []parts.SupplierID
	for id := range w.Quotes {
		if !slices.Contains(out, id) {
			rest = append(rest, id)
		}
	}
	slices.Sort(rest)
	return append(out, rest...)
}
