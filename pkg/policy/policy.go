// Package policy defines the decisions the pipeline defers to its caller:
// how to resolve a quantity conflict with an existing BOM item, which
// catalog an unmatched part belongs to, and what to do when a supplier
// throttles the run. Each decision has a safe default usable without an
// interactive caller.
package policy

import (
	"context"

	"github.com/agentstation/bomsync/pkg/catalogs"
	"github.com/agentstation/bomsync/pkg/parts"
)

// QuantityDecision resolves a part whose target quantity differs from the
// requested one.
type QuantityDecision int

const (
	// Skip leaves the existing item untouched.
	Skip QuantityDecision = iota
	// UseDelta uploads only the difference between requested and existing.
	UseDelta
	// UseFull uploads the full requested quantity.
	UseFull
)

// String implements fmt.Stringer.
func (d QuantityDecision) String() string {
	switch d {
	case Skip:
		return "skip"
	case UseDelta:
		return "use_delta"
	case UseFull:
		return "use_full"
	default:
		return "unknown"
	}
}

// ParseQuantityDecision parses the String form of a decision.
func ParseQuantityDecision(s string) (QuantityDecision, bool) {
	for _, d := range []QuantityDecision{Skip, UseDelta, UseFull} {
		if d.String() == s {
			return d, true
		}
	}
	return Skip, false
}

// RateLimitDecision is the answer to a throttled supplier.
type RateLimitDecision int

const (
	// Abort cancels the whole run.
	Abort RateLimitDecision = iota
	// ContinueWithoutSupplier excludes the supplier for the rest of the run.
	ContinueWithoutSupplier
)

// String implements fmt.Stringer.
func (d RateLimitDecision) String() string {
	switch d {
	case Abort:
		return "abort"
	case ContinueWithoutSupplier:
		return "continue"
	default:
		return "unknown"
	}
}

// ParseRateLimitDecision parses the String form of a decision.
func ParseRateLimitDecision(s string) (RateLimitDecision, bool) {
	switch s {
	case "abort":
		return Abort, true
	case "continue":
		return ContinueWithoutSupplier, true
	}
	return Abort, false
}

// QuantityResolver decides a quantity conflict for one part line.
type QuantityResolver interface {
	ResolveQuantityConflict(ctx context.Context, line *parts.PartLine, existingQuantity int) (QuantityDecision, error)
}

// CatalogAssigner maps part line IDs to catalog IDs. Lines missing from the
// returned map stay unassigned.
type CatalogAssigner interface {
	AssignCatalogs(ctx context.Context, lines []*parts.PartLine, candidates []catalogs.Catalog) (map[string]string, error)
}

// RateLimitHandler decides how to proceed after supplier signalled a rate
// limit. others lists the suppliers still active.
type RateLimitHandler interface {
	OnRateLimited(ctx context.Context, supplier parts.SupplierID, others []parts.SupplierID) (RateLimitDecision, error)
}

// QuantityResolverFunc adapts a function to QuantityResolver.
type QuantityResolverFunc func(ctx context.Context, line *parts.PartLine, existingQuantity int) (QuantityDecision, error)

// ResolveQuantityConflict implements QuantityResolver.
func (f QuantityResolverFunc) ResolveQuantityConflict(ctx context.Context, line *parts.PartLine, existingQuantity int) (QuantityDecision, error) {
	return f(ctx, line, existingQuantity)
}

// CatalogAssignerFunc adapts a function to CatalogAssigner.
type CatalogAssignerFunc func(ctx context.Context, lines []*parts.PartLine, candidates []catalogs.Catalog) (map[string]string, error)

// AssignCatalogs implements CatalogAssigner.
func (f CatalogAssignerFunc) AssignCatalogs(ctx context.Context, lines []*parts.PartLine, candidates []catalogs.Catalog) (map[string]string, error) {
	return f(ctx, lines, candidates)
}

// RateLimitHandlerFunc adapts a function to RateLimitHandler.
type RateLimitHandlerFunc func(ctx context.Context, supplier parts.SupplierID, others []parts.SupplierID) (RateLimitDecision, error)

// OnRateLimited implements RateLimitHandler.
func (f RateLimitHandlerFunc) OnRateLimited(ctx context.Context, supplier parts.SupplierID, others []parts.SupplierID) (RateLimitDecision, error) {
	return f(ctx, supplier, others)
}

// Always returns a resolver that answers every conflict with d.
func Always(d QuantityDecision) QuantityResolver {
	return QuantityResolverFunc(func(context.Context, *parts.PartLine, int) (QuantityDecision, error) {
		return d, nil
	})
}

// AlwaysOnRateLimit returns a handler that answers every rate limit with d.
func AlwaysOnRateLimit(d RateLimitDecision) RateLimitHandler {
	return RateLimitHandlerFunc(func(context.Context, parts.SupplierID, []parts.SupplierID) (RateLimitDecision, error) {
		return d, nil
	})
}

// NoAssignment leaves every part unassigned.
func NoAssignment() CatalogAssigner {
	return CatalogAssignerFunc(func(context.Context, []*parts.PartLine, []catalogs.Catalog) (map[string]string, error) {
		return nil, nil
	})
}

// Policies bundles the three decisions.
type Policies struct {
	Quantity  QuantityResolver
	Catalogs  CatalogAssigner
	RateLimit RateLimitHandler
}

// Defaults returns the non-interactive defaults: Skip, no assignment, Abort.
func Defaults() Policies {
	return Policies{
		Quantity:  Always(Skip),
		Catalogs:  NoAssignment(),
		RateLimit: AlwaysOnRateLimit(Abort),
	}
}

// WithDefaults fills unset decisions with the defaults.
func (p Policies) WithDefaults() Policies {
	d := Defaults()
	if p.Quantity == nil {
		p.Quantity = d.Quantity
	}
	if p.Catalogs == nil {
		p.Catalogs = d.Catalogs
	}
	if p.RateLimit == nil {
		p.RateLimit = d.RateLimit
	}
	return p
}
