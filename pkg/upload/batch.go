package upload

import (
	"context"
	"slices"

	"github.com/agentstation/bomsync/pkg/errors"
	"github.com/agentstation/bomsync/pkg/logging"
	"github.com/agentstation/bomsync/pkg/parts"
)

// upload submits the lines to the target BOM in fixed-size batches.
func (o *Orchestrator) upload(ctx context.Context, r *run, bomID string, lines []*parts.PartLine) error {
	ctx = logging.WithStage(ctx, string(Uploading))
	index := 0
	for batch := range slices.Chunk(lines, o.opts.BatchSize) {
		index++
		if err := ctx.Err(); err != nil {
			return err
		}
		r.summary.Batches = index
		report, err := o.uploadBatch(ctx, r, bomID, batch)
		report.Index = index
		if err != nil {
			return err
		}
		logging.FromContext(ctx).Info().
			Int("batch", index).
			Int("size", report.Size).
			Int("succeeded", report.Succeeded).
			Int("failed", report.Failed).
			Msg("Batch completed")
		o.opts.Progress.BatchCompleted(ctx, report)
	}
	return nil
}

// uploadBatch submits a batch in source order, then resubmits the parts
// that failed transiently in rounds separated by exponential backoff. It
// returns once every part has succeeded or exhausted its attempts.
func (o *Orchestrator) uploadBatch(ctx context.Context, r *run, bomID string, batch []*parts.PartLine) (BatchReport, error) {
	report := BatchReport{Size: len(batch)}
	pending := batch

	for round := 1; round <= o.opts.MaxRetries && len(pending) > 0; round++ {
		if round > 1 {
			if err := o.opts.Clock.Sleep(ctx, o.backoff.Delay(round-1)); err != nil {
				return report, err
			}
		}

		var failed []*parts.PartLine
		for _, line := range pending {
			if err := o.pace(ctx, r); err != nil {
				return report, err
			}

			res := r.summary.result(line.ID)
			res.Attempts++
			err := o.boms.AddPartToBom(ctx, bomID, line)
			logger := logging.FromContext(logging.WithPart(ctx, line.ID, line.OrderingCode))

			switch {
			case err == nil:
				res.Status = StatusSucceeded
				res.Succeeded = true
				res.LastError = errors.KindNone
				res.Message = ""
				report.Succeeded++
				logger.Debug().Int("attempts", res.Attempts).Msg("Uploaded part")
				o.opts.Progress.PartCompleted(ctx, *res)

			case errors.IsCanceled(err) || ctx.Err() != nil:
				// The in-flight part stays pending.
				if ctx.Err() != nil {
					return report, ctx.Err()
				}
				return report, err

			case !retryable(err) || round == o.opts.MaxRetries:
				perm := errors.NewPermanentUploadError(line.ID, bomID, res.Attempts, err)
				res.Status = StatusFailed
				res.LastError = errors.KindOf(perm)
				res.Message = perm.Error()
				report.Failed++
				logger.Error().Err(err).Int("attempts", res.Attempts).Msg("Part upload failed permanently")
				o.opts.Progress.PartCompleted(ctx, *res)

			default:
				res.LastError = errors.KindOf(errors.NewTransientUploadError(line.ID, bomID, res.Attempts, err))
				res.Message = err.Error()
				logger.Warn().Err(err).Int("attempt", res.Attempts).Msg("Part upload failed, will retry")
				failed = append(failed, line)
			}
		}
		pending = failed
	}
	return report, nil
}
