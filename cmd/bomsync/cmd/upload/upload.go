package upload

import (
	"context"
	"io"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/agentstation/bomsync"
	"github.com/agentstation/bomsync/internal/appcontext"
	"github.com/agentstation/bomsync/internal/cmd/output"
	"github.com/agentstation/bomsync/internal/cmd/report"
	"github.com/agentstation/bomsync/internal/metrics"
	"github.com/agentstation/bomsync/pkg/errors"
	pipeline "github.com/agentstation/bomsync/pkg/upload"
)

// Execute runs an upload and renders its summary to w. A summary is
// rendered for failed and cancelled runs too, before their error is
// returned.
func Execute(ctx context.Context, app appcontext.Interface, flags *Flags, w io.Writer) error {
	logger := app.Logger()

	policies, err := flags.Policies.Policies()
	if err != nil {
		return err
	}
	ws, err := app.Workspace()
	if err != nil {
		return err
	}

	bs, stores, err := app.Bomsync(ws,
		bomsync.WithPolicies(policies),
		bomsync.WithUploadOptions(pipeline.WithCatalogPropertyUpdates(flags.UpdateCatalogProperties)),
	)
	if err != nil {
		return err
	}

	bs.OnStateChanged(func(from, to pipeline.State) {
		logger.Debug().Str("from", from.String()).Str("to", to.String()).Msg("Run state changed")
	})
	bs.OnBatchCompleted(func(b pipeline.BatchReport) {
		logger.Info().
			Int("batch", b.Index).
			Int("size", b.Size).
			Int("succeeded", b.Succeeded).
			Int("failed", b.Failed).
			Msg("Batch uploaded")
	})
	bs.OnPartResult(func(r pipeline.UploadResult) {
		if !r.Succeeded {
			logger.Warn().
				Str("part", r.PartLineID).
				Str("error", r.LastError.String()).
				Int("attempts", r.Attempts).
				Msg("Part not uploaded")
		}
	})

	var (
		registry *prometheus.Registry
		recorder *metrics.Metrics
	)
	if flags.MetricsFile != "" {
		registry = prometheus.NewRegistry()
		recorder = metrics.New(registry)
		recorder.Attach(bs)
		if cache := bs.Cache(); cache != nil {
			registry.MustRegister(metrics.CacheCollector(cache))
		}
	}

	target := flags.Target.Apply(ws.Target)
	if flags.CreateBom {
		target.CreateIfMissing = true
	}
	lines := ws.PartLines()

	summary, runErr := bs.Run(ctx, pipeline.Request{
		Lines:           lines,
		Target:          target,
		FetchQuotes:     flags.FetchQuotes,
		SelectSuppliers: flags.SelectSuppliers,
		Catalog:         flags.Catalog,
	})

	if stores != nil && !flags.NoSave {
		ws.Capture(stores)
		if err := ws.Save(""); err != nil {
			return errors.WrapResource("save", "workspace", ws.Path(), err)
		}
		logger.Debug().Str("path", ws.Path()).Msg("Saved workspace")
	}

	if registry != nil {
		recorder.ObserveRun(summary)
		if err := metrics.WriteFile(flags.MetricsFile, registry); err != nil {
			return err
		}
		logger.Debug().Str("path", flags.MetricsFile).Msg("Wrote metrics")
	}

	if flags.Report != "" {
		if err := report.WriteFile(flags.Report, summary, lines); err != nil {
			return err
		}
		logger.Info().Str("path", flags.Report).Msg("Wrote report")
	}

	format := output.DetectFormat(app.OutputFormat())
	if err := output.Render(w, format, summary, func(wide bool) output.Data {
		return output.SummaryData(summary, wide)
	}); err != nil {
		return err
	}
	if output.IsTable(format) {
		if _, err := io.WriteString(w, "\n"+summary.String()+"\n"); err != nil {
			return errors.WrapIO("write", "stdout", err)
		}
	}

	return runErr
}
