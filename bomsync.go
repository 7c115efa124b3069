// Package bomsync prices, reconciles and uploads bills of materials.
//
// A Bomsync instance wires supplier quote providers, a remote catalog store
// and a remote BOM store into the upload pipeline:
//
//	bs, err := bomsync.New(
//		bomsync.WithRemoteService("https://catalog.example.com/api", &apiKey),
//		bomsync.WithRemoteSuppliers("digikey", "mouser"),
//	)
//	summary, err := bs.Run(ctx, upload.Request{Lines: lines, Target: target, FetchQuotes: true})
package bomsync

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/agentstation/bomsync/pkg/catalogs"
	"github.com/agentstation/bomsync/pkg/errors"
	"github.com/agentstation/bomsync/pkg/parts"
	"github.com/agentstation/bomsync/pkg/pricing"
	"github.com/agentstation/bomsync/pkg/reconciler"
	"github.com/agentstation/bomsync/pkg/upload"
)

// Bomsync runs BOM synchronizations and exposes the pricing and
// reconciliation stages on their own.
type Bomsync interface {
	// Run executes a complete synchronization.
	Run(ctx context.Context, req upload.Request) (*upload.Summary, error)

	// Optimize selects the best supplier for copies of the given lines
	// using the quotes already attached to them.
	Optimize(lines []*parts.PartLine) (*OptimizeResult, error)

	// Reconcile classifies lines against the target BOM without writing
	// anything. A target that does not exist yet reconciles as empty.
	Reconcile(ctx context.Context, lines []*parts.PartLine, target upload.Target) (*reconciler.Outcome, error)

	// Cache returns the catalog cache, or nil without a catalog store.
	Cache() *catalogs.Cache

	// OnStateChanged registers a callback for run state transitions
	OnStateChanged(StateChangedHook)

	// OnPartResult registers a callback for every part reaching a terminal status
	OnPartResult(PartResultHook)

	// OnBatchCompleted registers a callback for every finished batch
	OnBatchCompleted(BatchCompletedHook)
}

// OptimizeResult is the outcome of supplier selection.
type OptimizeResult struct {
	Lines     []*parts.PartLine `json:"lines" yaml:"lines"`
	Unsourced []string          `json:"unsourced,omitempty" yaml:"unsourced,omitempty"`
	Total     decimal.Decimal   `json:"total" yaml:"total"`
}

// bomsync is the internal implementation of the Bomsync interface
type bomsync struct {
	config       *config
	orchestrator *upload.Orchestrator
	selector     *pricing.Selector
	hooks        *hooks
}

// New creates a new Bomsync instance with the given options
func New(opts ...Option) (Bomsync, error) {
	cfg := &config{}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("applying options: %w", err)
		}
	}

	if cfg.remoteServiceURL != nil {
		if err := cfg.connect(); err != nil {
			return nil, fmt.Errorf("connecting to catalog service: %w", err)
		}
	}
	if cfg.boms == nil {
		return nil, &errors.ValidationError{Field: "boms", Message: "a BOM store is required"}
	}

	bs := &bomsync{
		config:   cfg,
		selector: pricing.NewSelector(cfg.priority...),
		hooks:    newHooks(),
	}

	uploadOpts := append([]upload.Option{
		upload.WithPolicies(cfg.policies),
		upload.WithSupplierPriority(cfg.priority...),
	}, cfg.uploadOpts...)
	uploadOpts = append(uploadOpts, upload.WithProgress(bs.hooks))

	orch, err := upload.New(cfg.boms, cfg.catalogs, cfg.suppliers, uploadOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating orchestrator: %w", err)
	}
	bs.orchestrator = orch
	return bs, nil
}

// Run executes a complete synchronization.
func (b *bomsync) Run(ctx context.Context, req upload.Request) (*upload.Summary, error) {
	return b.orchestrator.Run(ctx, req)
}

// Optimize selects suppliers for copies of lines.
func (b *bomsync) Optimize(lines []*parts.PartLine) (*OptimizeResult, error) {
	out := make([]*parts.PartLine, len(lines))
	for i, line := range lines {
		if err := line.Validate(); err != nil {
			return nil, fmt.Errorf("part line %s: %w", line.ID, err)
		}
		out[i] = line.Clone()
	}

	unsourced, err := b.selector.SelectAll(out)
	if err != nil {
		return nil, err
	}
	return &OptimizeResult{
		Lines:     out,
		Unsourced: parts.IDs(unsourced),
		Total:     pricing.Total(out),
	}, nil
}

// Reconcile is a dry run of the reconciliation stage.
func (b *bomsync) Reconcile(ctx context.Context, lines []*parts.PartLine, target upload.Target) (*reconciler.Outcome, error) {
	rec, err := reconciler.New(reconciler.WithResolver(b.orchestrator.Options().Policies.Quantity))
	if err != nil {
		return nil, err
	}

	var existing []catalogs.Item
	bom, found, err := b.findTarget(ctx, target)
	if err != nil {
		return nil, err
	}
	if found {
		existing, err = b.config.boms.GetBomItems(ctx, bom.ID)
		if err != nil {
			return nil, errors.WrapResource("get", "bom items", bom.ID, err)
		}
	}
	return rec.Reconcile(ctx, lines, existing)
}

func (b *bomsync) findTarget(ctx context.Context, target upload.Target) (catalogs.Bom, bool, error) {
	if target.BomID == "" && target.Name == "" && target.PartNumber == "" {
		return catalogs.Bom{}, false, &errors.ValidationError{Field: "target", Message: "a BOM id, name or part number is required"}
	}
	boms, err := b.config.boms.ListBoms(ctx)
	if err != nil {
		return catalogs.Bom{}, false, errors.WrapResource("list", "boms", "", err)
	}
	bom, found := catalogs.FindBom(boms, target.BomID, target.Name, target.PartNumber)
	return bom, found, nil
}

// Cache returns the catalog cache.
func (b *bomsync) Cache() *catalogs.Cache {
	return b.orchestrator.Cache()
}

// OnStateChanged registers a callback for run state transitions
func (b *bomsync) OnStateChanged(fn StateChangedHook) {
	b.hooks.OnStateChanged(fn)
}

// OnPartResult registers a callback for part results
func (b *bomsync) OnPartResult(fn PartResultHook) {
	b.hooks.OnPartResult(fn)
}

// OnBatchCompleted registers a callback for finished batches
func (b *bomsync) OnBatchCompleted(fn BatchCompletedHook) {
	b.hooks.OnBatchCompleted(fn)
}

