// Package assign proposes catalogs for parts that are absent from every
// known catalog. A lexical heuristic recognizes common component families
// from the part number; anything it cannot place unambiguously is handed to
// an injected policy.CatalogAssigner.
package assign

import (
	"context"
	"slices"

	"github.com/agentstation/bomsync/pkg/catalogs"
	"github.com/agentstation/bomsync/pkg/logging"
	"github.com/agentstation/bomsync/pkg/parts"
	"github.com/agentstation/bomsync/pkg/policy"
)

// Source records how a part got its catalog.
type Source string

// Assignment sources.
const (
	SourcePreselected Source = "preselected"
	SourceHeuristic   Source = "heuristic"
	SourcePolicy      Source = "policy"
)

// Heuristic matches part numbers against ordered family rules.
type Heuristic struct {
	rules []Rule
}

// New creates a heuristic. With no rules the defaults are used.
func New(rules ...Rule) *Heuristic {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Heuristic{rules: rules}
}

// Classify returns the first family whose rule matches the part number.
func (h *Heuristic) Classify(partNumber string) Family {
	if r, ok := h.rule(partNumber); ok {
		return r.Family
	}
	return Unknown
}

func (h *Heuristic) rule(partNumber string) (Rule, bool) {
	key := parts.Normalize(partNumber)
	for _, r := range h.rules {
		if r.Matches(key) {
			return r, true
		}
	}
	return Rule{}, false
}

// Candidates returns the catalogs whose name describes the part's family.
func (h *Heuristic) Candidates(partNumber string, cats []catalogs.Catalog) []catalogs.Catalog {
	r, ok := h.rule(partNumber)
	if !ok {
		return nil
	}
	var out []catalogs.Catalog
	for _, c := range cats {
		if r.Describes(c.Name) {
			out = append(out, c)
		}
	}
	return out
}

// Guess returns the single catalog the heuristic proposes. It reports false
// when no catalog or more than one catalog matches.
func (h *Heuristic) Guess(partNumber string, cats []catalogs.Catalog) (catalogs.Catalog, bool) {
	c := h.Candidates(partNumber, cats)
	if len(c) != 1 {
		return catalogs.Catalog{}, false
	}
	return c[0], true
}

// OrderCatalogs returns the catalogs with the ones describing the part's
// family first. Relative order is otherwise preserved.
func (h *Heuristic) OrderCatalogs(partNumber string, cats []catalogs.Catalog) []catalogs.Catalog {
	out := slices.Clone(cats)
	r, ok := h.rule(partNumber)
	if !ok {
		return out
	}
	slices.SortStableFunc(out, func(a, b catalogs.Catalog) int {
		da, db := r.Describes(a.Name), r.Describes(b.Name)
		switch {
		case da && !db:
			return -1
		case db && !da:
			return 1
		}
		return 0
	})
	return out
}

// Assignment maps part line IDs to catalog IDs.
type Assignment struct {
	Catalogs   map[string]string `json:"catalogs" yaml:"catalogs"`
	Sources    map[string]Source `json:"sources" yaml:"sources"`
	Unassigned []*parts.PartLine `json:"-" yaml:"-"`
}

func newAssignment() *Assignment {
	return &Assignment{
		Catalogs: make(map[string]string),
		Sources:  make(map[string]Source),
	}
}

func (a *Assignment) set(lineID, catalogID string, src Source) {
	a.Catalogs[lineID] = catalogID
	a.Sources[lineID] = src
}

// CatalogFor returns the catalog assigned to a line.
func (a *Assignment) CatalogFor(lineID string) (string, bool) {
	id, ok := a.Catalogs[lineID]
	return id, ok
}

// Assign places unmatched lines into catalogs. A preselected catalog ID
// bypasses the heuristic and the policy. Otherwise the heuristic assigns
// every unambiguous line and, if any line is ambiguous, the policy receives
// all unmatched lines and the catalogs; its answers take precedence.
// Lines left without a catalog are reported as unassigned.
func (h *Heuristic) Assign(ctx context.Context, unmatched []*parts.PartLine, cats []catalogs.Catalog, preselected string, assigner policy.CatalogAssigner) (*Assignment, error) {
	out := newAssignment()
	if len(unmatched) == 0 {
		return out, nil
	}

	if preselected != "" {
		for _, l := range unmatched {
			out.set(l.ID, preselected, SourcePreselected)
		}
		return out, nil
	}

	ambiguous := false
	for _, l := range unmatched {
		if c, ok := h.Guess(l.OrderingCode, cats); ok {
			out.set(l.ID, c.ID, SourceHeuristic)
		} else {
			ambiguous = true
		}
	}

	if ambiguous && assigner != nil && len(cats) > 0 {
		answers, err := assigner.AssignCatalogs(ctx, unmatched, slices.Clone(cats))
		if err != nil {
			return nil, err
		}
		known := make(map[string]bool, len(cats))
		for _, c := range cats {
			known[c.ID] = true
		}
		for _, l := range unmatched {
			id, ok := answers[l.ID]
			if !ok || id == "" {
				continue
			}
			if !known[id] {
				logging.FromContext(ctx).Warn().
					Str("part_line", l.ID).
					Str("catalog_id", id).
					Msg("Ignoring assignment to unknown catalog")
				continue
			}
			out.set(l.ID, id, SourcePolicy)
		}
	}

	for _, l := range unmatched {
		if _, ok := out.Catalogs[l.ID]; !ok {
			out.Unassigned = append(out.Unassigned, l)
		}
	}
	return out, nil
}
