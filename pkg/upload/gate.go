package upload

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/agentstation/bomsync/pkg/errors"
	"github.com/agentstation/bomsync/pkg/logging"
	"github.com/agentstation/bomsync/pkg/parts"
	"github.com/agentstation/bomsync/pkg/policy"
)

// gate tracks which suppliers are still active in a run. A supplier that
// signals a rate limit is suspended and the policy decides, once per
// supplier, whether the run continues without it.
type gate struct {
	handler policy.RateLimitHandler

	mu       sync.Mutex
	active   []parts.SupplierID
	excluded []parts.SupplierID
}

func newGate(handler policy.RateLimitHandler, suppliers []parts.SupplierID) *gate {
	return &gate{handler: handler, active: slices.Clone(suppliers)}
}

// Allowed reports whether calls to the supplier may still be made.
func (g *gate) Allowed(id parts.SupplierID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return slices.Contains(g.active, id)
}

// Excluded returns the suppliers dropped from the run.
func (g *gate) Excluded() []parts.SupplierID {
	g.mu.Lock()
	defer g.mu.Unlock()
	return slices.Clone(g.excluded)
}

// RateLimited suspends the supplier and consults the policy. It returns an
// error wrapping ErrAborted when the run must stop.
func (g *gate) RateLimited(ctx context.Context, id parts.SupplierID) error {
	g.mu.Lock()
	if !slices.Contains(g.active, id) {
		g.mu.Unlock()
		return nil
	}
	g.active = slices.DeleteFunc(g.active, func(s parts.SupplierID) bool { return s == id })
	g.excluded = append(g.excluded, id)
	others := slices.Clone(g.active)
	g.mu.Unlock()

	logger := logging.FromContext(ctx)
	decision, err := g.handler.OnRateLimited(ctx, id, others)
	if err != nil {
		return fmt.Errorf("rate limit policy for %s: %w", id, err)
	}

	switch decision {
	case policy.ContinueWithoutSupplier:
		logger.Warn().
			Str("supplier", id.String()).
			Int("remaining_suppliers", len(others)).
			Msg("Supplier rate limited, continuing without it")
		return nil
	default:
		logger.Warn().
			Str("supplier", id.String()).
			Msg("Supplier rate limited, aborting run")
		return fmt.Errorf("%w: supplier %s rate limited", errors.ErrAborted, id)
	}
}
