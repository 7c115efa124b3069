package upload

import (
	"context"

	"github.com/agentstation/bomsync/pkg/errors"
	"github.com/agentstation/bomsync/pkg/logging"
	"github.com/agentstation/bomsync/pkg/parts"
)

// quote fetches quotes for every line from every active supplier, in
// priority order. Failed lookups degrade to an unavailable quote; a rate
// limit goes through the gate, which may abort the run.
func (o *Orchestrator) quote(ctx context.Context, r *run, lines []*parts.PartLine) error {
	for _, line := range lines {
		if line.Override != nil {
			continue
		}
		for _, p := range o.providers {
			id := p.ID()
			if !r.gate.Allowed(id) {
				continue
			}
			if err := ctx.Err(); err != nil {
				return err
			}

			qctx := logging.WithSupplier(ctx, id.String())
			q, err := p.GetQuote(qctx, line.OrderingCode)
			switch {
			case err == nil:
				q.Supplier = id
				line.SetQuote(q)
			case errors.IsCanceled(err):
				return err
			case errors.IsRateLimited(err):
				line.SetQuote(parts.Unavailable(id))
				if err := r.gate.RateLimited(ctx, id); err != nil {
					return err
				}
			case errors.IsNotFound(err):
				line.SetQuote(parts.Unavailable(id))
			default:
				logging.FromContext(qctx).Warn().
					Err(err).
					Str("ordering_code", line.OrderingCode).
					Msg("Quote lookup failed, treating supplier as unavailable")
				line.SetQuote(parts.Unavailable(id))
			}
		}
	}
	return nil
}
