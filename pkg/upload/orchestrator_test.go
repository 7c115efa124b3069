package upload_test

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/bomsync/internal/memory"
	"github.com/agentstation/bomsync/pkg/catalogs"
	"github.com/agentstation/bomsync/pkg/errors"
	"github.com/agentstation/bomsync/pkg/logging"
	"github.com/agentstation/bomsync/pkg/parts"
	"github.com/agentstation/bomsync/pkg/policy"
	"github.com/agentstation/bomsync/pkg/upload"
)

var start = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func testLines(n int) []*parts.PartLine {
	lines := make([]*parts.PartLine, n)
	for i := range lines {
		lines[i] = &parts.PartLine{
			ID:                fmt.Sprintf("line-%02d", i+1),
			OrderingCode:      fmt.Sprintf("PART-%02d", i+1),
			RequestedQuantity: i + 1,
		}
	}
	return lines
}

func newBoms() *memory.Boms {
	boms := memory.NewBoms()
	boms.Put(catalogs.Bom{ID: "main", Name: "Main Board", PartNumber: "PCB-001"})
	return boms
}

func newOrchestrator(t *testing.T, boms catalogs.BomRepository, cats catalogs.CatalogRepository, providers []catalogs.SupplierQuoteProvider, opts ...upload.Option) (*upload.Orchestrator, *upload.VirtualClock) {
	t.Helper()
	clock := upload.NewVirtualClock(start)
	base := []upload.Option{
		upload.WithClock(clock),
		upload.WithCallDelay(250 * time.Millisecond),
		upload.WithRetryBackoff(time.Second, 30*time.Second),
	}
	o, err := upload.New(boms, cats, providers, append(base, opts...)...)
	require.NoError(t, err)
	return o, clock
}

func uploadedParts(boms *memory.Boms) []string {
	var out []string
	for _, c := range boms.Calls(memory.OpAddPartToBom) {
		out = append(out, c.Part)
	}
	return out
}

func TestRunUploadsInBatches(t *testing.T) {
	boms := newBoms()
	var batches []upload.BatchReport
	var completed []string
	progress := upload.ProgressFuncs{
		OnPartCompleted: func(_ context.Context, r upload.UploadResult) {
			completed = append(completed, r.PartLineID)
		},
		OnBatchCompleted: func(_ context.Context, b upload.BatchReport) {
			assert.Len(t, completed, (b.Index-1)*5+b.Size, "batch %d reported before all its parts finished", b.Index)
			batches = append(batches, b)
		},
	}
	o, _ := newOrchestrator(t, boms, nil, nil, upload.WithProgress(progress))

	lines := testLines(12)
	summary, err := o.Run(context.Background(), upload.Request{Lines: lines, Target: upload.Target{BomID: "main"}})
	require.NoError(t, err)

	assert.Equal(t, upload.Completed, summary.State)
	assert.Equal(t, 3, summary.Batches)
	require.Len(t, batches, 3)
	assert.Equal(t, []int{5, 5, 2}, []int{batches[0].Size, batches[1].Size, batches[2].Size})
	assert.Equal(t, 12, summary.SuccessCount)
	assert.Equal(t, 0, summary.PendingCount)

	var want []string
	for _, l := range lines {
		want = append(want, l.PartNumber())
	}
	assert.Equal(t, want, uploadedParts(boms), "parts are uploaded in source order")
	assert.Len(t, boms.Items("main"), 12)
}

func TestRunBatchCompletesBeforeNextStarts(t *testing.T) {
	boms := newBoms()
	boms.SetFault(memory.FailTimes(memory.OpAddPartToBom, "part02", 2, errors.NewAPIError("bom", 503, "busy")))
	o, _ := newOrchestrator(t, boms, nil, nil)

	summary, err := o.Run(context.Background(), upload.Request{Lines: testLines(12), Target: upload.Target{BomID: "main"}})
	require.NoError(t, err)

	calls := uploadedParts(boms)
	lastRetry, firstOfBatch2 := -1, -1
	for i, p := range calls {
		if p == "part02" {
			lastRetry = i
		}
		if p == "part06" && firstOfBatch2 < 0 {
			firstOfBatch2 = i
		}
	}
	assert.Less(t, lastRetry, firstOfBatch2)

	r, ok := summary.Result("line-02")
	require.True(t, ok)
	assert.True(t, r.Succeeded)
	assert.Equal(t, 3, r.Attempts)
	assert.Equal(t, errors.KindNone, r.LastError)
}

func TestRunRecordsPermanentFailuresWithoutAborting(t *testing.T) {
	log := logging.NewTestLogger(t)
	ctx := logging.WithLogger(context.Background(), log.Logger)

	boms := newBoms()
	boms.SetFault(memory.FailAlways(memory.OpAddPartToBom, "part01", errors.New("connection reset")))
	o, clock := newOrchestrator(t, boms, nil, nil)

	summary, err := o.Run(ctx, upload.Request{Lines: testLines(2), Target: upload.Target{BomID: "main"}})
	require.NoError(t, err)

	assert.Equal(t, upload.Completed, summary.State)
	assert.Equal(t, 1, summary.SuccessCount)
	assert.Equal(t, 1, summary.FailureCount)

	failed := summary.Failures()
	require.Len(t, failed, 1)
	assert.Equal(t, "line-01", failed[0].PartLineID)
	assert.Equal(t, 3, failed[0].Attempts)
	assert.Equal(t, errors.KindPermanentUpload, failed[0].LastError)
	assert.Contains(t, failed[0].Message, "connection reset")

	assert.Equal(t, []time.Duration{
		250 * time.Millisecond, // before part 2
		time.Second,            // round 2 backoff
		250 * time.Millisecond,
		2 * time.Second, // round 3 backoff
		250 * time.Millisecond,
	}, clock.Sleeps())

	log.AssertContains(t, "Part upload failed, will retry")
	log.AssertContains(t, "Part upload failed permanently")
}

func TestRunDoesNotRetryClientErrors(t *testing.T) {
	boms := newBoms()
	boms.SetFault(memory.FailAlways(memory.OpAddPartToBom, "part01", errors.NewAPIError("bom", http.StatusBadRequest, "bad part")))
	o, _ := newOrchestrator(t, boms, nil, nil)

	summary, err := o.Run(context.Background(), upload.Request{Lines: testLines(1), Target: upload.Target{BomID: "main"}})
	require.NoError(t, err)

	r, _ := summary.Result("line-01")
	assert.Equal(t, upload.StatusFailed, r.Status)
	assert.Equal(t, 1, r.Attempts)
}

func TestRunCancellationKeepsPartialProgress(t *testing.T) {
	boms := newBoms()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	adds := 0
	boms.SetHook(func(_ context.Context, c memory.Call) {
		if c.Op == memory.OpAddPartToBom {
			adds++
			if adds == 7 {
				cancel()
			}
		}
	})
	o, _ := newOrchestrator(t, boms, nil, nil)

	summary, err := o.Run(ctx, upload.Request{Lines: testLines(12), Target: upload.Target{BomID: "main"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrCanceled)
	assert.ErrorIs(t, err, context.Canceled)

	require.NotNil(t, summary)
	assert.Equal(t, upload.Cancelled, summary.State)
	assert.Equal(t, 12, summary.Total)
	assert.Equal(t, summary.Total, summary.SuccessCount+summary.FailureCount+summary.PendingCount)
	assert.Equal(t, 6, summary.SuccessCount)
	assert.Equal(t, 6, summary.PendingCount)

	uploaded := map[string]bool{}
	for _, item := range boms.Items("main") {
		uploaded[item.PartNumber] = true
	}
	for _, r := range summary.Results {
		if r.Succeeded {
			assert.True(t, uploaded[parts.Normalize(r.OrderingCode)], "%s reported as uploaded", r.PartLineID)
		}
	}
}

func quotedSuppliers() (*memory.Supplier, *memory.Supplier, []*parts.PartLine) {
	lines := testLines(5)
	mouser := memory.NewSupplier("mouser").RateLimitAfter(2)
	digikey := memory.NewSupplier("digikey")
	for _, l := range lines {
		mouser.Put(l.OrderingCode, parts.SupplierQuote{
			IsAvailable: true,
			PriceBreaks: []parts.PriceBreak{{MinimumQuantity: 1, UnitPrice: decimal.RequireFromString("0.10")}},
		})
		digikey.Put(l.OrderingCode, parts.SupplierQuote{
			IsAvailable: true,
			PriceBreaks: []parts.PriceBreak{{MinimumQuantity: 1, UnitPrice: decimal.RequireFromString("0.20")}},
		})
	}
	return mouser, digikey, lines
}

func TestRunContinuesWithoutRateLimitedSupplier(t *testing.T) {
	mouser, digikey, lines := quotedSuppliers()

	var asked []parts.SupplierID
	var others []parts.SupplierID
	handler := policy.RateLimitHandlerFunc(func(_ context.Context, s parts.SupplierID, rest []parts.SupplierID) (policy.RateLimitDecision, error) {
		asked = append(asked, s)
		others = rest
		return policy.ContinueWithoutSupplier, nil
	})

	o, _ := newOrchestrator(t, newBoms(), nil, []catalogs.SupplierQuoteProvider{digikey, mouser},
		upload.WithSupplierPriority("mouser", "digikey"),
		upload.WithPolicies(policy.Policies{RateLimit: handler}))

	summary, err := o.Run(context.Background(), upload.Request{
		Lines:       lines,
		Target:      upload.Target{BomID: "main"},
		FetchQuotes: true,
	})
	require.NoError(t, err)

	assert.Len(t, mouser.Calls(memory.OpGetQuote), 3, "no calls after the rate limit")
	assert.Len(t, digikey.Calls(memory.OpGetQuote), 5)
	assert.Equal(t, []parts.SupplierID{"mouser"}, asked)
	assert.Equal(t, []parts.SupplierID{"digikey"}, others)
	assert.Equal(t, []parts.SupplierID{"mouser"}, summary.ExcludedSuppliers)

	assert.Equal(t, parts.SupplierID("mouser"), lines[0].ChosenSupplier)
	assert.Equal(t, parts.SupplierID("mouser"), lines[1].ChosenSupplier)
	for _, l := range lines[2:] {
		assert.Equal(t, parts.SupplierID("digikey"), l.ChosenSupplier)
	}
	assert.Equal(t, 5, summary.SuccessCount)
}

func TestRunAbortsOnRateLimitByDefault(t *testing.T) {
	mouser, digikey, lines := quotedSuppliers()
	mouser.RateLimitAfter(0)
	boms := newBoms()

	o, _ := newOrchestrator(t, boms, nil, []catalogs.SupplierQuoteProvider{mouser, digikey},
		upload.WithSupplierPriority("mouser", "digikey"))

	summary, err := o.Run(context.Background(), upload.Request{
		Lines:       lines,
		Target:      upload.Target{BomID: "main"},
		FetchQuotes: true,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrAborted)
	assert.True(t, errors.IsCanceled(err))

	assert.Equal(t, upload.Cancelled, summary.State)
	assert.Equal(t, len(lines), summary.PendingCount)
	assert.Empty(t, digikey.Calls())
	assert.Empty(t, boms.Calls(memory.OpAddPartToBom))
}

func TestRunReconcilesAgainstTarget(t *testing.T) {
	boms := memory.NewBoms()
	boms.Put(catalogs.Bom{ID: "main", Name: "Main Board"},
		catalogs.Item{PartNumber: "part-01", Properties: map[string]string{"quantity": "1"}},
		catalogs.Item{PartNumber: "PART 02", Properties: map[string]string{"quantity": "1"}},
	)
	o, _ := newOrchestrator(t, boms, nil, nil,
		upload.WithPolicies(policy.Policies{Quantity: policy.Always(policy.UseDelta)}))

	summary, err := o.Run(context.Background(), upload.Request{Lines: testLines(3), Target: upload.Target{Name: "main board"}})
	require.NoError(t, err)

	assert.Equal(t, "1 new, 1 modified, 1 skipped", summary.ReconciliationSummary)
	assert.Equal(t, 1, summary.SkippedCount)
	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, []string{"part02", "part03"}, uploadedParts(boms))

	r, _ := summary.Result("line-02")
	assert.Equal(t, 1, r.Quantity, "delta of 2 requested and 1 existing")
}

func TestRunRepricesDeltaQuantity(t *testing.T) {
	boms := memory.NewBoms()
	boms.Put(catalogs.Bom{ID: "main", Name: "Main Board"},
		catalogs.Item{PartNumber: "R1", Properties: map[string]string{"quantity": "60"}})
	line := &parts.PartLine{
		ID: "r1", OrderingCode: "R1", RequestedQuantity: 100,
		Quotes: map[parts.SupplierID]parts.SupplierQuote{
			"mouser": {
				Supplier:    "mouser",
				IsAvailable: true,
				PriceBreaks: []parts.PriceBreak{
					{MinimumQuantity: 1, UnitPrice: decimal.RequireFromString("1.00")},
					{MinimumQuantity: 100, UnitPrice: decimal.RequireFromString("0.50")},
				},
			},
		},
	}
	o, _ := newOrchestrator(t, boms, nil, nil,
		upload.WithPolicies(policy.Policies{Quantity: policy.Always(policy.UseDelta)}))

	summary, err := o.Run(context.Background(), upload.Request{
		Lines:           []*parts.PartLine{line},
		Target:          upload.Target{BomID: "main"},
		SelectSuppliers: true,
	})
	require.NoError(t, err)

	items := boms.Items("main")
	require.Len(t, items, 2)
	props := items[1].Properties
	assert.Equal(t, "40", props["quantity"])
	assert.Equal(t, "mouser", props["supplier"])
	assert.Equal(t, "1", props["unit_price"], "40 units fall below the 100 tier")
	assert.Equal(t, "40", props["total_price"])

	assert.Equal(t, 40, line.RequestedQuantity, "the reconciled quantity is written back")
	assert.Equal(t, 40, line.ChosenQuantity)
	assert.True(t, decimal.RequireFromString("40").Equal(line.ChosenTotalPrice), line.ChosenTotalPrice.String())

	r, ok := summary.Result("r1")
	require.True(t, ok)
	assert.Equal(t, 40, r.Quantity)
}

func TestRunBoundsCatalogProbes(t *testing.T) {
	cats := memory.NewCatalogs(catalogs.Catalog{ID: "misc", Name: "Misc"})
	var inFlight, peak atomic.Int32
	cats.SetHook(func(_ context.Context, c memory.Call) {
		if c.Op != memory.OpGetCatalogItem {
			return
		}
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		inFlight.Add(-1)
	})
	o, _ := newOrchestrator(t, newBoms(), cats, nil, upload.WithProbeConcurrency(3))

	summary, err := o.Run(context.Background(), upload.Request{Lines: testLines(12), Target: upload.Target{BomID: "main"}})
	require.NoError(t, err)

	assert.Len(t, cats.Calls(memory.OpGetCatalogItem), 12)
	assert.LessOrEqual(t, peak.Load(), int32(3))
	assert.Greater(t, peak.Load(), int32(1), "probes run concurrently")
	assert.Equal(t, 12, summary.SuccessCount)
}

func TestRunLogsQuoteFailuresWithSupplier(t *testing.T) {
	log := logging.NewTestLogger(t)
	ctx := logging.WithLogger(context.Background(), log.Logger)

	mouser := memory.NewSupplier("mouser")
	mouser.SetFault(memory.FailAlways(memory.OpGetQuote, "part01", errors.New("socket closed")))
	o, _ := newOrchestrator(t, newBoms(), nil, []catalogs.SupplierQuoteProvider{mouser})

	summary, err := o.Run(ctx, upload.Request{
		Lines:       testLines(1),
		Target:      upload.Target{BomID: "main"},
		FetchQuotes: true,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"line-01"}, summary.Unsourced)
	log.AssertContains(t, "Quote lookup failed")
	log.AssertContains(t, `"supplier":"mouser"`)
}

func TestRunCatalogStages(t *testing.T) {
	cats := memory.NewCatalogs(
		catalogs.Catalog{ID: "cap", Name: "Capacitors"},
		catalogs.Catalog{ID: "res", Name: "Resistors"},
	)
	cats.Put("res", "RC0603FR-0710KL")

	lines := []*parts.PartLine{
		{ID: "a", OrderingCode: "GRM188R71H104KA93D", RequestedQuantity: 10},
		{ID: "b", OrderingCode: "RC0603FR-0710KL", RequestedQuantity: 20,
			Override: &parts.Override{Supplier: "local", UnitPrice: decimal.RequireFromString("0.01")}},
		{ID: "c", OrderingCode: "XYZ-1", RequestedQuantity: 1},
	}

	var states []upload.State
	progress := upload.ProgressFuncs{OnStateChanged: func(_ context.Context, _, to upload.State) {
		states = append(states, to)
	}}
	o, _ := newOrchestrator(t, newBoms(), cats, nil,
		upload.WithCatalogPropertyUpdates(true),
		upload.WithProgress(progress))

	summary, err := o.Run(context.Background(), upload.Request{
		Lines:           lines,
		Target:          upload.Target{BomID: "main"},
		SelectSuppliers: true,
	})
	require.NoError(t, err)

	assert.Equal(t, []upload.State{
		upload.Reconciling, upload.CatalogChecking, upload.CatalogAssigning,
		upload.CatalogUpdating, upload.Uploading, upload.Completed,
	}, states)
	assert.Equal(t, upload.CatalogReport{Matched: 1, Assigned: 1, Unassigned: 1, Added: 1, Updated: 1}, summary.Catalogs)
	assert.Equal(t, []string{"a", "c"}, summary.Unsourced)

	adds := cats.Calls(memory.OpAddPartToCatalog)
	require.Len(t, adds, 1)
	assert.Equal(t, memory.Call{Op: memory.OpAddPartToCatalog, Target: "cap", Part: "grm188r71h104ka93d"}, adds[0])

	_, _, cached := o.Cache().Lookup("GRM188R71H104KA93D")
	assert.False(t, cached, "membership is forgotten after an add")

	e, ok := cats.Entry("res", "RC0603FR-0710KL")
	require.True(t, ok)
	assert.Equal(t, "local", e.RawNode["supplier"])
	assert.Equal(t, 3, summary.SuccessCount)
}

func TestRunPreselectedCatalog(t *testing.T) {
	cats := memory.NewCatalogs(catalogs.Catalog{ID: "misc", Name: "Misc"})
	o, _ := newOrchestrator(t, newBoms(), cats, nil)

	summary, err := o.Run(context.Background(), upload.Request{
		Lines:   testLines(3),
		Target:  upload.Target{BomID: "main"},
		Catalog: "misc",
	})
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Catalogs.Added)
	assert.Len(t, cats.Calls(memory.OpAddPartToCatalog), 3)
}

func TestRunCatalogFailuresDoNotAbort(t *testing.T) {
	cats := memory.NewCatalogs(catalogs.Catalog{ID: "misc", Name: "Misc"})
	cats.SetFault(memory.FailAlways(memory.OpAddPartToCatalog, "part01", errors.NewAPIError("catalog", 500, "down")))
	o, _ := newOrchestrator(t, newBoms(), cats, nil)

	summary, err := o.Run(context.Background(), upload.Request{
		Lines:   testLines(2),
		Target:  upload.Target{BomID: "main"},
		Catalog: "misc",
	})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Catalogs.Added)
	assert.Equal(t, 1, summary.Catalogs.Failures)
	assert.Len(t, cats.Calls(memory.OpAddPartToCatalog), 4, "three attempts for the failing part")
	assert.Equal(t, 2, summary.SuccessCount)
}

func TestRunCreatesMissingTarget(t *testing.T) {
	boms := memory.NewBoms()
	o, _ := newOrchestrator(t, boms, nil, nil)

	summary, err := o.Run(context.Background(), upload.Request{
		Lines:  testLines(1),
		Target: upload.Target{Name: "Sensor Board", PartNumber: "PCB-777", CreateIfMissing: true},
	})
	require.NoError(t, err)
	assert.Equal(t, "Sensor Board", summary.Target.Name)
	assert.Len(t, boms.Items(summary.Target.ID), 1)
}

func TestRunFailsWithoutTarget(t *testing.T) {
	o, _ := newOrchestrator(t, memory.NewBoms(), nil, nil)

	summary, err := o.Run(context.Background(), upload.Request{
		Lines:  testLines(2),
		Target: upload.Target{Name: "Missing"},
	})
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
	assert.Equal(t, upload.Failed, summary.State)
	assert.Equal(t, 2, summary.PendingCount)
	assert.NotEmpty(t, summary.Error)
}

func TestRunRejectsInvalidQuantity(t *testing.T) {
	o, _ := newOrchestrator(t, newBoms(), nil, nil)
	lines := testLines(1)
	lines[0].RequestedQuantity = 0

	summary, err := o.Run(context.Background(), upload.Request{Lines: lines, Target: upload.Target{BomID: "main"}})
	assert.True(t, errors.IsInvalidQuantity(err))
	assert.Equal(t, upload.Failed, summary.State)
}

func TestNewValidatesOptions(t *testing.T) {
	_, err := upload.New(newBoms(), nil, nil, upload.WithBatchSize(0))
	require.Error(t, err)
	var ve *errors.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "BatchSize", ve.Field)

	_, err = upload.New(newBoms(), nil, nil, upload.WithRetryBackoff(time.Minute, time.Second))
	assert.True(t, errors.IsValidationError(err))

	_, err = upload.New(nil, nil, nil)
	assert.True(t, errors.IsValidationError(err))
}
