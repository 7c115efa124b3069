// Package reconciler diffs a source part list against the items already
// present in a target BOM and classifies every part line as new, unchanged
// or quantity-changed. Quantity conflicts are resolved by an injected
// policy.QuantityResolver.
//
// Reconciliation never mutates the source lines: the outcome holds clones,
// so running it twice against the same target yields identical partitions.
package reconciler

import (
	"context"
	"fmt"
	"time"

	"github.com/agentstation/bomsync/pkg/catalogs"
	"github.com/agentstation/bomsync/pkg/logging"
	"github.com/agentstation/bomsync/pkg/parts"
	"github.com/agentstation/bomsync/pkg/policy"
)

// Reconciler classifies source part lines against a target's existing items.
type Reconciler interface {
	Reconcile(ctx context.Context, lines []*parts.PartLine, existing []catalogs.Item) (*Outcome, error)
}

// reconciler is the default implementation of Reconciler.
type reconciler struct {
	resolver policy.QuantityResolver
	now      func() time.Time
}

// New creates a Reconciler with options.
func New(opts ...Option) (Reconciler, error) {
	options, err := newOptions(opts...)
	if err != nil {
		return nil, err
	}
	return &reconciler{
		resolver: options.resolver,
		now:      options.now,
	}, nil
}

// target is the existing item set keyed by normalized part number.
type target map[string]existingItem

type existingItem struct {
	quantity int
	known    bool
}

// newTarget builds the lookup. The first item seen for a part number wins.
func newTarget(items []catalogs.Item) target {
	t := make(target, len(items))
	for _, item := range items {
		key := parts.Normalize(item.PartNumber)
		if key == "" {
			continue
		}
		if _, dup := t[key]; dup {
			continue
		}
		q, ok := item.Quantity()
		t[key] = existingItem{quantity: q, known: ok}
	}
	return t
}

// Reconcile implements Reconciler.
func (r *reconciler) Reconcile(ctx context.Context, lines []*parts.PartLine, existing []catalogs.Item) (*Outcome, error) {
	start := r.now()
	logger := logging.FromContext(ctx)

	for _, line := range lines {
		if err := line.Validate(); err != nil {
			return nil, fmt.Errorf("part line %s: %w", line.ID, err)
		}
	}

	lookup := newTarget(existing)
	out := &Outcome{Records: make([]Record, 0, len(lines))}

	for _, src := range lines {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line := src.Clone()
		rec := Record{
			PartLineID:        line.ID,
			PartNumber:        line.PartNumber(),
			RequestedQuantity: line.RequestedQuantity,
			Quantity:          line.RequestedQuantity,
		}

		match, ok := lookup[rec.PartNumber]
		switch {
		case !ok:
			rec.State = Unmatched
			rec.Class = ClassNew
		case match.known && match.quantity == line.RequestedQuantity:
			rec.State = MatchedSameQuantity
			rec.ExistingQuantity = match.quantity
			rec.Class = ClassSkipped
		default:
			rec.State = MatchedDifferentQuantity
			rec.ExistingQuantity = match.quantity
			if err := r.resolve(ctx, line, &rec); err != nil {
				return nil, err
			}
		}

		switch rec.Class {
		case ClassNew:
			out.ToUpload = append(out.ToUpload, line)
		case ClassModified:
			line.RequestedQuantity = rec.Quantity
			out.ToUpload = append(out.ToUpload, line)
			out.Modified = append(out.Modified, line)
		default:
			out.Skipped = append(out.Skipped, line)
		}
		out.Records = append(out.Records, rec)
	}

	out.Duration = r.now().Sub(start)
	logger.Info().
		Int("new", out.NewCount()).
		Int("modified", len(out.Modified)).
		Int("skipped", len(out.Skipped)).
		Msg("Reconciled part lines against target")
	return out, nil
}

// resolve asks the policy about a quantity conflict and fills the record.
func (r *reconciler) resolve(ctx context.Context, line *parts.PartLine, rec *Record) error {
	decision, err := r.resolver.ResolveQuantityConflict(ctx, line, rec.ExistingQuantity)
	if err != nil {
		return fmt.Errorf("resolving quantity conflict for %s: %w", line.OrderingCode, err)
	}
	rec.Decision = decision

	switch decision {
	case policy.UseFull:
		rec.Class = ClassModified
	case policy.UseDelta:
		delta := line.RequestedQuantity - rec.ExistingQuantity
		if delta <= 0 {
			logging.FromContext(ctx).Info().
				Str("ordering_code", line.OrderingCode).
				Int("requested", line.RequestedQuantity).
				Int("existing", rec.ExistingQuantity).
				Msg("Delta quantity is not positive, skipping part")
			rec.Decision = policy.Skip
			rec.Degraded = true
			rec.Class = ClassSkipped
			return nil
		}
		rec.Quantity = delta
		rec.Class = ClassModified
	default:
		rec.Class = ClassSkipped
	}
	return nil
}
