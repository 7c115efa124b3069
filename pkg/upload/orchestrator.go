// Package upload drives a complete synchronization run: optional quoting,
// reconciliation against the target BOM, catalog checks and membership
// creation, and the batched, retrying upload of the reconciled parts.
//
// Read-only catalog probes run on a bounded worker pool. Every write to the
// remote stores is issued sequentially from the orchestrator goroutine with
// a fixed delay between calls, and batch N+1 starts only after every part of
// batch N has reached a terminal status.
package upload

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agentstation/bomsync/pkg/catalogs"
	"github.com/agentstation/bomsync/pkg/errors"
	"github.com/agentstation/bomsync/pkg/logging"
	"github.com/agentstation/bomsync/pkg/parts"
	"github.com/agentstation/bomsync/pkg/pricing"
	"github.com/agentstation/bomsync/pkg/reconciler"
)

// Target names the BOM the parts are uploaded to. BomID wins; otherwise the
// BOM is found by part number or name and, with CreateIfMissing, created.
type Target struct {
	BomID           string `json:"bom_id,omitempty" yaml:"bom_id,omitempty"`
	Name            string `json:"name,omitempty" yaml:"name,omitempty"`
	PartNumber      string `json:"part_number,omitempty" yaml:"part_number,omitempty"`
	CreateIfMissing bool   `json:"create_if_missing,omitempty" yaml:"create_if_missing,omitempty"`
}

// Request is the input of one run.
type Request struct {
	Lines  []*parts.PartLine
	Target Target
	// FetchQuotes asks every active supplier for a quote before selection.
	FetchQuotes bool
	// SelectSuppliers runs the best-supplier selector on the lines' quotes.
	// It is implied by FetchQuotes.
	SelectSuppliers bool
	// Catalog preselects one catalog for every unmatched part.
	Catalog string
}

// Orchestrator runs the pipeline. Runs on one Orchestrator are serialized.
type Orchestrator struct {
	boms      catalogs.BomRepository
	catalogs  catalogs.CatalogRepository
	providers []catalogs.SupplierQuoteProvider
	opts      *Options
	cache     *catalogs.Cache
	selector  *pricing.Selector
	backoff   Backoff

	mu sync.Mutex
}

// New creates an orchestrator. cats may be nil, in which case the catalog
// stages are skipped.
func New(boms catalogs.BomRepository, cats catalogs.CatalogRepository, providers []catalogs.SupplierQuoteProvider, opts ...Option) (*Orchestrator, error) {
	if boms == nil {
		return nil, &errors.ValidationError{Field: "boms", Message: "cannot be nil"}
	}

	options := Defaults().Apply(opts...)
	if options.Progress == nil {
		options.Progress = ProgressFuncs{}
	}
	if options.Heuristic == nil {
		options.Heuristic = Defaults().Heuristic
	}
	options.Policies = options.Policies.WithDefaults()
	if err := options.Validate(); err != nil {
		return nil, err
	}

	o := &Orchestrator{
		boms:      boms,
		catalogs:  cats,
		providers: orderProviders(providers, options.SupplierPriority),
		opts:      options,
		cache:     options.Cache,
		selector:  pricing.NewSelector(options.SupplierPriority...),
		backoff:   options.Backoff(),
	}
	if o.cache == nil && cats != nil {
		o.cache = catalogs.NewCache(cats,
			catalogs.WithTTL(options.CacheTTL),
			catalogs.WithNow(options.Clock.Now))
	}
	return o, nil
}

// orderProviders sorts providers by the priority list; unlisted providers
// keep their relative order after the listed ones.
func orderProviders(providers []catalogs.SupplierQuoteProvider, priority []parts.SupplierID) []catalogs.SupplierQuoteProvider {
	out := slices.Clone(providers)
	rank := func(id parts.SupplierID) int {
		if i := slices.Index(priority, id); i >= 0 {
			return i
		}
		return len(priority)
	}
	slices.SortStableFunc(out, func(a, b catalogs.SupplierQuoteProvider) int {
		return cmp.Compare(rank(a.ID()), rank(b.ID()))
	})
	return out
}

// Cache returns the catalog cache, or nil when no catalog store is wired.
func (o *Orchestrator) Cache() *catalogs.Cache {
	return o.cache
}

// Options returns the effective options.
func (o *Orchestrator) Options() Options {
	return *o.opts
}

// run is the mutable bookkeeping of a single run.
type run struct {
	summary *Summary
	state   State
	gate    *gate
	wrote   bool
}

// Run executes the pipeline. The returned summary is never nil. The error
// is nil for Completed, wraps ErrCanceled or ErrAborted for Cancelled, and
// describes the fatal failure for Failed.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Summary, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	ids := make([]parts.SupplierID, len(o.providers))
	for i, p := range o.providers {
		ids[i] = p.ID()
	}
	r := &run{
		summary: &Summary{
			RunID:     uuid.NewString(),
			State:     Idle,
			StartedAt: o.opts.Clock.Now(),
		},
		state: Idle,
		gate:  newGate(o.opts.Policies.RateLimit, ids),
	}
	r.summary.track(req.Lines)

	ctx = logging.WithRun(ctx, r.summary.RunID)
	logging.FromContext(ctx).Info().
		Int("parts", len(req.Lines)).
		Int("suppliers", len(o.providers)).
		Msg("Starting run")

	err := o.execute(ctx, r, req)
	return o.finish(ctx, r, err)
}

func (o *Orchestrator) execute(ctx context.Context, r *run, req Request) error {
	for _, line := range req.Lines {
		if err := line.Validate(); err != nil {
			return fmt.Errorf("part line %s: %w", line.ID, err)
		}
	}

	if req.FetchQuotes {
		o.transition(ctx, r, Quoting)
		if err := o.quote(ctx, r, req.Lines); err != nil {
			return err
		}
	}
	if req.FetchQuotes || req.SelectSuppliers {
		if _, err := o.selector.SelectAll(req.Lines); err != nil {
			return err
		}
	}
	for _, line := range req.Lines {
		if line.Unsourced() {
			r.summary.Unsourced = append(r.summary.Unsourced, line.ID)
		}
	}

	o.transition(ctx, r, Reconciling)
	bom, err := o.resolveTarget(ctx, req.Target)
	if err != nil {
		return err
	}
	r.summary.Target = bom
	ctx = logging.WithBom(ctx, bom.ID)

	items, err := o.boms.GetBomItems(ctx, bom.ID)
	if err != nil {
		return errors.WrapResource("get", "bom items", bom.ID, err)
	}
	rec, err := reconciler.New(
		reconciler.WithResolver(o.opts.Policies.Quantity),
		reconciler.WithNow(o.opts.Clock.Now),
	)
	if err != nil {
		return err
	}
	outcome, err := rec.Reconcile(ctx, req.Lines, items)
	if err != nil {
		return err
	}
	if err := o.reprice(req.Lines, outcome.Modified); err != nil {
		return err
	}
	r.summary.Reconciliation = outcome
	r.summary.ReconciliationSummary = outcome.Summary()
	r.summary.SkippedCount = len(outcome.Skipped)
	r.summary.track(outcome.ToUpload)

	if o.cache != nil && len(outcome.ToUpload) > 0 {
		if err := o.syncCatalogs(ctx, r, req.Catalog, outcome.ToUpload); err != nil {
			return err
		}
	}

	o.transition(ctx, r, Uploading)
	return o.upload(ctx, r, bom.ID, outcome.ToUpload)
}

// reprice recomputes the choice of every sourced line whose quantity changed
// during reconciliation and writes the reconciled quantity and choice back
// onto the caller's line. Lines chosen without quotes keep their unit price.
func (o *Orchestrator) reprice(src, modified []*parts.PartLine) error {
	if len(modified) == 0 {
		return nil
	}
	byID := make(map[string]*parts.PartLine, len(src))
	for _, line := range src {
		byID[line.ID] = line
	}
	for _, line := range modified {
		switch {
		case line.Unsourced():
		case line.Override != nil || len(line.Quotes) > 0:
			if err := o.selector.Select(line); err != nil {
				return err
			}
		default:
			line.ChosenQuantity = line.RequestedQuantity
			line.ChosenTotalPrice = line.ChosenUnitPrice.Mul(decimal.NewFromInt(int64(line.RequestedQuantity)))
		}
		if orig, ok := byID[line.ID]; ok {
			orig.RequestedQuantity = line.RequestedQuantity
			orig.ChosenSupplier = line.ChosenSupplier
			orig.ChosenQuantity = line.ChosenQuantity
			orig.ChosenUnitPrice = line.ChosenUnitPrice
			orig.ChosenTotalPrice = line.ChosenTotalPrice
		}
	}
	return nil
}

// resolveTarget finds the target BOM, creating it when asked to.
func (o *Orchestrator) resolveTarget(ctx context.Context, t Target) (catalogs.Bom, error) {
	if t.BomID == "" && t.Name == "" && t.PartNumber == "" {
		return catalogs.Bom{}, &errors.ValidationError{Field: "Target", Message: "a BOM id, name or part number is required"}
	}

	boms, err := o.boms.ListBoms(ctx)
	if err != nil {
		return catalogs.Bom{}, errors.WrapResource("list", "boms", "", err)
	}
	if b, ok := catalogs.FindBom(boms, t.BomID, t.Name, t.PartNumber); ok {
		return b, nil
	}
	if !t.CreateIfMissing || t.Name == "" {
		return catalogs.Bom{}, errors.NewNotFoundError("bom", cmp.Or(t.BomID, t.PartNumber, t.Name))
	}

	id, err := o.boms.CreateBom(ctx, t.Name, t.PartNumber)
	if err != nil {
		return catalogs.Bom{}, errors.WrapResource("create", "bom", t.Name, err)
	}
	logging.FromContext(ctx).Info().
		Str("bom_id", id).
		Str("name", t.Name).
		Msg("Created target BOM")
	return catalogs.Bom{ID: id, Name: t.Name, PartNumber: t.PartNumber}, nil
}

// transition moves the run to a new state and notifies the progress sink.
func (o *Orchestrator) transition(ctx context.Context, r *run, to State) {
	from := r.state
	r.state = to
	r.summary.State = to
	logging.FromContext(ctx).Info().
		Str("from", from.String()).
		Str("to", to.String()).
		Msg("Run state changed")
	o.opts.Progress.StateChanged(ctx, from, to)
}

// finish settles the terminal state and the summary counts.
func (o *Orchestrator) finish(ctx context.Context, r *run, err error) (*Summary, error) {
	switch {
	case err == nil:
		o.transition(ctx, r, Completed)
	case errors.IsCanceled(err):
		if !errors.Is(err, errors.ErrCanceled) && !errors.Is(err, errors.ErrAborted) {
			err = fmt.Errorf("%w: %w", errors.ErrCanceled, err)
		}
		o.transition(ctx, r, Cancelled)
	default:
		o.transition(ctx, r, Failed)
	}

	s := r.summary
	s.count()
	s.ExcludedSuppliers = r.gate.Excluded()
	s.FinishedAt = o.opts.Clock.Now()
	if err != nil {
		s.Error = err.Error()
	}

	event := logging.FromContext(ctx).Info()
	if s.State == Failed {
		event = logging.FromContext(ctx).Error().Err(err)
	}
	event.
		Str("state", s.State.String()).
		Int("succeeded", s.SuccessCount).
		Int("failed", s.FailureCount).
		Int("pending", s.PendingCount).
		Int("skipped", s.SkippedCount).
		Msg("Run finished")
	return s, err
}

// pace enforces the delay between consecutive write calls.
func (o *Orchestrator) pace(ctx context.Context, r *run) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.wrote {
		if err := o.opts.Clock.Sleep(ctx, o.opts.CallDelay); err != nil {
			return err
		}
	}
	r.wrote = true
	return nil
}
