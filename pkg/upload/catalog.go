package upload

import (
	"context"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/agentstation/bomsync/pkg/assign"
	"github.com/agentstation/bomsync/pkg/catalogs"
	"github.com/agentstation/bomsync/pkg/errors"
	"github.com/agentstation/bomsync/pkg/logging"
	"github.com/agentstation/bomsync/pkg/parts"
)

// syncCatalogs checks catalog membership for the lines, assigns catalogs to
// unmatched lines and applies catalog writes. Catalog failures are counted
// and logged; only cancellation stops the run.
func (o *Orchestrator) syncCatalogs(ctx context.Context, r *run, preselected string, lines []*parts.PartLine) error {
	o.transition(ctx, r, CatalogChecking)
	ctx = logging.WithStage(ctx, string(CatalogChecking))
	logger := logging.FromContext(ctx)

	cats, err := o.cache.Catalogs(ctx)
	if err != nil {
		if errors.IsCanceled(err) || ctx.Err() != nil {
			return err
		}
		logger.Warn().Err(err).Msg("Catalog listing unavailable, skipping catalog stages")
		r.summary.Catalogs.Failures++
		return nil
	}
	if len(cats) == 0 {
		logger.Info().Msg("No catalogs to check")
		return nil
	}

	found, unmatched, err := o.probe(ctx, lines, cats)
	if err != nil {
		return err
	}
	r.summary.Catalogs.Matched = len(found)

	var assignment *assign.Assignment
	if len(unmatched) > 0 {
		o.transition(ctx, r, CatalogAssigning)
		assignment, err = o.opts.Heuristic.Assign(ctx, unmatched, cats, preselected, o.opts.Policies.Catalogs)
		if err != nil {
			if errors.IsCanceled(err) {
				return err
			}
			logger.Warn().Err(err).Msg("Catalog assignment failed, leaving parts unassigned")
			r.summary.Catalogs.Failures++
			assignment = nil
		}
		if assignment != nil {
			r.summary.Catalogs.Assigned = len(assignment.Catalogs)
			r.summary.Catalogs.Unassigned = len(assignment.Unassigned)
		} else {
			r.summary.Catalogs.Unassigned = len(unmatched)
		}
	}

	adding := assignment != nil && len(assignment.Catalogs) > 0
	updating := o.opts.UpdateCatalogProperties && len(found) > 0
	if !adding && !updating {
		return nil
	}

	o.transition(ctx, r, CatalogUpdating)
	if adding {
		for _, line := range unmatched {
			catalogID, ok := assignment.CatalogFor(line.ID)
			if !ok {
				continue
			}
			if err := o.addToCatalog(ctx, r, catalogID, line); err != nil {
				return err
			}
		}
	}
	if updating {
		for _, line := range lines {
			entry, ok := found[line.ID]
			if !ok {
				continue
			}
			if err := o.updateCatalogPart(ctx, r, entry, line); err != nil {
				return err
			}
		}
	}
	return nil
}

// probe checks which catalog holds each line using a bounded worker pool.
// Catalogs are probed in heuristic order so likely matches come first.
func (o *Orchestrator) probe(ctx context.Context, lines []*parts.PartLine, cats []catalogs.Catalog) (map[string]catalogs.Entry, []*parts.PartLine, error) {
	entries := make([]*catalogs.Entry, len(lines))
	sem := semaphore.NewWeighted(int64(o.opts.ProbeConcurrency))
	g, gctx := errgroup.WithContext(ctx)

	for i, line := range lines {
		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer sem.Release(1)
			order := o.opts.Heuristic.OrderCatalogs(line.OrderingCode, cats)
			e, ok, err := o.cache.Probe(gctx, line.PartNumber(), order)
			if err != nil {
				return err
			}
			if ok {
				entries[i] = &e
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	found := make(map[string]catalogs.Entry)
	var unmatched []*parts.PartLine
	for i, line := range lines {
		if entries[i] != nil {
			found[line.ID] = *entries[i]
		} else {
			unmatched = append(unmatched, line)
		}
	}
	logging.FromContext(ctx).Info().
		Int("matched", len(found)).
		Int("unmatched", len(unmatched)).
		Msg("Checked catalog membership")
	return found, unmatched, nil
}

// addToCatalog creates catalog membership for a line, retrying transient
// failures. Success invalidates the cached membership and listing.
func (o *Orchestrator) addToCatalog(ctx context.Context, r *run, catalogID string, line *parts.PartLine) error {
	ctx = logging.WithPart(logging.WithCatalog(ctx, catalogID), line.ID, line.OrderingCode)
	attempts, err := o.retry(ctx, r, func(ctx context.Context) error {
		return o.catalogs.AddPartToCatalog(ctx, catalogID, line)
	})
	switch {
	case err == nil:
		r.summary.Catalogs.Added++
		o.cache.Forget(line.PartNumber())
		o.cache.Invalidate()
		logging.FromContext(ctx).Info().Int("attempts", attempts).Msg("Added part to catalog")
	case errors.IsCanceled(err):
		return err
	default:
		r.summary.Catalogs.Failures++
		logging.FromContext(ctx).Error().
			Err(err).
			Int("attempts", attempts).
			Msg("Failed to add part to catalog")
	}
	return nil
}

// updateCatalogPart writes the chosen supplier data to an existing entry.
func (o *Orchestrator) updateCatalogPart(ctx context.Context, r *run, entry catalogs.Entry, line *parts.PartLine) error {
	props := catalogs.CatalogProperties(line)
	if len(props) == 0 {
		return nil
	}
	ctx = logging.WithPart(logging.WithCatalog(ctx, entry.CatalogID), line.ID, line.OrderingCode)
	_, err := o.retry(ctx, r, func(ctx context.Context) error {
		return o.catalogs.UpdateCatalogPart(ctx, entry.CatalogID, entry.PartNumber, props)
	})
	switch {
	case err == nil:
		r.summary.Catalogs.Updated++
	case errors.IsCanceled(err):
		return err
	default:
		r.summary.Catalogs.Failures++
		logging.FromContext(ctx).Error().Err(err).Msg("Failed to update catalog part")
	}
	return nil
}

// retry runs a write with pacing, retrying transient failures with backoff.
// It returns the number of attempts made.
func (o *Orchestrator) retry(ctx context.Context, r *run, op func(context.Context) error) (int, error) {
	var err error
	for attempt := 1; attempt <= o.opts.MaxRetries; attempt++ {
		if attempt > 1 {
			if serr := o.opts.Clock.Sleep(ctx, o.backoff.Delay(attempt-1)); serr != nil {
				return attempt - 1, serr
			}
		}
		if perr := o.pace(ctx, r); perr != nil {
			return attempt - 1, perr
		}
		err = op(ctx)
		if err == nil || !retryable(err) || attempt == o.opts.MaxRetries {
			return attempt, err
		}
		logging.FromContext(ctx).Warn().
			Err(err).
			Int("attempt", attempt).
			Msg("Write failed, retrying")
	}
	return o.opts.MaxRetries, err
}
