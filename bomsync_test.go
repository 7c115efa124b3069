package bomsync_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/bomsync"
	"github.com/agentstation/bomsync/internal/memory"
	"github.com/agentstation/bomsync/internal/transport"
	"github.com/agentstation/bomsync/pkg/catalogs"
	"github.com/agentstation/bomsync/pkg/errors"
	"github.com/agentstation/bomsync/pkg/parts"
	"github.com/agentstation/bomsync/pkg/policy"
	"github.com/agentstation/bomsync/pkg/upload"
)

func price(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func quotedLine(id, code string, qty int) *parts.PartLine {
	line := &parts.PartLine{ID: id, OrderingCode: code, RequestedQuantity: qty}
	line.SetQuote(parts.SupplierQuote{
		Supplier:    "digikey",
		IsAvailable: true,
		PriceBreaks: []parts.PriceBreak{{MinimumQuantity: 1, UnitPrice: price("2")}, {MinimumQuantity: 10, UnitPrice: price("1")}},
	})
	line.SetQuote(parts.SupplierQuote{
		Supplier:    "mouser",
		IsAvailable: true,
		PriceBreaks: []parts.PriceBreak{{MinimumQuantity: 1, UnitPrice: price("1.5")}},
	})
	return line
}

func newBomsync(t *testing.T, boms catalogs.BomRepository, opts ...bomsync.Option) bomsync.Bomsync {
	t.Helper()
	clock := upload.NewVirtualClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	base := []bomsync.Option{
		bomsync.WithBoms(boms),
		bomsync.WithUploadOptions(upload.WithClock(clock)),
	}
	bs, err := bomsync.New(append(base, opts...)...)
	require.NoError(t, err)
	return bs
}

func TestNewRequiresBomStore(t *testing.T) {
	_, err := bomsync.New()
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))

	_, err = bomsync.New(bomsync.WithSuppliers(nil))
	require.Error(t, err)
}

func TestOptimize(t *testing.T) {
	bs := newBomsync(t, memory.NewBoms(), bomsync.WithSupplierPriority("mouser", "digikey"))

	unquoted := &parts.PartLine{ID: "c", OrderingCode: "NOPE", RequestedQuantity: 3}
	lines := []*parts.PartLine{quotedLine("a", "R1", 8), quotedLine("b", "R2", 2), unquoted}

	result, err := bs.Optimize(lines)
	require.NoError(t, err)

	// 8 pieces: digikey's 10 @ 1.00 beats mouser's 8 @ 1.50.
	assert.Equal(t, parts.SupplierID("digikey"), result.Lines[0].ChosenSupplier)
	assert.Equal(t, 10, result.Lines[0].ChosenQuantity)
	assert.Equal(t, parts.SupplierID("mouser"), result.Lines[1].ChosenSupplier)
	assert.Equal(t, []string{"c"}, result.Unsourced)
	assert.True(t, price("13").Equal(result.Total), "got %s", result.Total)

	for _, l := range lines {
		assert.True(t, l.Unsourced(), "input line %s must not be mutated", l.ID)
	}
}

func TestOptimizeRejectsInvalidQuantity(t *testing.T) {
	bs := newBomsync(t, memory.NewBoms())
	_, err := bs.Optimize([]*parts.PartLine{{ID: "x", OrderingCode: "R1", RequestedQuantity: 0}})
	require.Error(t, err)
	assert.True(t, errors.IsInvalidQuantity(err))
}

func TestReconcileIsDryRun(t *testing.T) {
	boms := memory.NewBoms()
	boms.Put(catalogs.Bom{ID: "main", Name: "Main Board"},
		catalogs.Item{PartNumber: "r1", Properties: map[string]string{"quantity": "4"}},
		catalogs.Item{PartNumber: "r2", Properties: map[string]string{"quantity": "2"}},
	)
	bs := newBomsync(t, boms, bomsync.WithPolicies(policy.Policies{Quantity: policy.Always(policy.UseFull)}))

	lines := []*parts.PartLine{quotedLine("a", "R1", 8), quotedLine("b", "R2", 2), quotedLine("c", "R3", 1)}
	outcome, err := bs.Reconcile(context.Background(), lines, upload.Target{Name: "main board"})
	require.NoError(t, err)

	assert.Equal(t, "1 new, 1 modified, 1 skipped", outcome.Summary())
	assert.Empty(t, boms.Calls(memory.OpAddPartToBom, memory.OpCreateBom))
}

func TestReconcileMissingTargetIsEmpty(t *testing.T) {
	bs := newBomsync(t, memory.NewBoms())

	outcome, err := bs.Reconcile(context.Background(), []*parts.PartLine{quotedLine("a", "R1", 1)}, upload.Target{Name: "new board"})
	require.NoError(t, err)
	assert.Equal(t, 1, outcome.NewCount())

	_, err = bs.Reconcile(context.Background(), nil, upload.Target{})
	assert.True(t, errors.IsValidationError(err))
}

func TestRunFiresHooks(t *testing.T) {
	boms := memory.NewBoms()
	boms.Put(catalogs.Bom{ID: "main", Name: "Main Board"})
	bs := newBomsync(t, boms, bomsync.WithUploadOptions(upload.WithBatchSize(2)))

	var mu sync.Mutex
	var states []upload.State
	var results []string
	var batches []int
	bs.OnStateChanged(func(_, to upload.State) {
		mu.Lock()
		defer mu.Unlock()
		states = append(states, to)
	})
	bs.OnPartResult(func(r upload.UploadResult) {
		mu.Lock()
		defer mu.Unlock()
		results = append(results, r.PartLineID)
	})
	bs.OnBatchCompleted(func(b upload.BatchReport) {
		mu.Lock()
		defer mu.Unlock()
		batches = append(batches, b.Size)
	})

	lines := []*parts.PartLine{quotedLine("a", "R1", 8), quotedLine("b", "R2", 2), quotedLine("c", "R3", 1)}
	summary, err := bs.Run(context.Background(), upload.Request{
		Lines:           lines,
		Target:          upload.Target{BomID: "main"},
		SelectSuppliers: true,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, summary.SuccessCount)
	assert.Equal(t, []upload.State{upload.Reconciling, upload.Uploading, upload.Completed}, states)
	assert.Equal(t, []string{"a", "b", "c"}, results)
	assert.Equal(t, []int{2, 1}, batches)
	assert.Nil(t, bs.Cache(), "no catalog store configured")
}

func TestWithRemoteService(t *testing.T) {
	var mu sync.Mutex
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.Method+" "+r.URL.Path)
		mu.Unlock()
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/boms":
			_ = json.NewEncoder(w).Encode([]catalogs.Bom{{ID: "b1", Name: "Main Board"}})
		case "/boms/b1/items":
			_ = json.NewEncoder(w).Encode([]catalogs.Item{{PartNumber: "r1", Properties: map[string]string{"quantity": "8"}}})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	key := "k"
	bs, err := bomsync.New(bomsync.WithRemoteService(srv.URL, &key, transport.WithRateLimit(0, 0)))
	require.NoError(t, err)
	require.NotNil(t, bs.Cache())

	outcome, err := bs.Reconcile(context.Background(), []*parts.PartLine{quotedLine("a", "R1", 8)}, upload.Target{Name: "main board"})
	require.NoError(t, err)
	assert.Equal(t, "0 new, 0 modified, 1 skipped", outcome.Summary())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"GET /boms", "GET /boms/b1/items"}, paths)
}

func TestWithRemoteServiceRejectsEmptyURL(t *testing.T) {
	_, err := bomsync.New(bomsync.WithRemoteService("", nil))
	require.Error(t, err)
}
