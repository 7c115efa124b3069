package transport

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/bomsync/internal/utils/ptr"
	"github.com/agentstation/bomsync/pkg/catalogs"
	"github.com/agentstation/bomsync/pkg/errors"
	"github.com/agentstation/bomsync/pkg/parts"
)

type recordedRequest struct {
	Method string
	Path   string
	Header http.Header
	Body   map[string]any
}

type fakeService struct {
	t        *testing.T
	mu       sync.Mutex
	requests []recordedRequest
	routes   map[string]func(w http.ResponseWriter)
}

func newFakeService(t *testing.T) (*fakeService, *Client) {
	t.Helper()
	f := &fakeService{t: t, routes: make(map[string]func(http.ResponseWriter))}
	srv := httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(srv.Close)

	client, err := New(srv.URL, WithRateLimit(0, 0), WithAPIKey(ptr.To("secret")))
	require.NoError(t, err)
	return f, client
}

func (f *fakeService) handle(method, path string, status int, body any) {
	f.routes[method+" "+path] = func(w http.ResponseWriter) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if body != nil {
			_ = json.NewEncoder(w).Encode(body)
		}
	}
}

func (f *fakeService) serve(w http.ResponseWriter, r *http.Request) {
	rec := recordedRequest{Method: r.Method, Path: r.URL.EscapedPath(), Header: r.Header.Clone()}
	if data, _ := io.ReadAll(r.Body); len(data) > 0 {
		assert.NoError(f.t, json.Unmarshal(data, &rec.Body))
	}
	f.mu.Lock()
	f.requests = append(f.requests, rec)
	route, ok := f.routes[r.Method+" "+rec.Path]
	f.mu.Unlock()
	if !ok {
		http.Error(w, "no route", http.StatusNotFound)
		return
	}
	route(w)
}

func (f *fakeService) last() recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(f.t, f.requests)
	return f.requests[len(f.requests)-1]
}


func sourcedLine(t *testing.T) *parts.PartLine {
	t.Helper()
	line, err := parts.New("GRM155R71C104KA88D", 10)
	require.NoError(t, err)
	line.Description = "100nF 0402"
	line.SetQuote(parts.SupplierQuote{
		Supplier:           "digikey",
		IsAvailable:        true,
		SupplierPartNumber: "490-3261-1-ND",
		PriceBreaks:        []parts.PriceBreak{{MinimumQuantity: 1, UnitPrice: decimal.RequireFromString("0.10")}},
	})
	line.ChosenSupplier = "digikey"
	line.ChosenQuantity = 10
	line.ChosenUnitPrice = decimal.RequireFromString("0.10")
	line.ChosenTotalPrice = decimal.RequireFromString("1")
	return line
}

func TestNewRejectsRelativeURL(t *testing.T) {
	_, err := New("/catalogs")
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
}

func TestAuthenticators(t *testing.T) {
	tests := []struct {
		name  string
		auth  Authenticator
		check func(t *testing.T, req *http.Request)
	}{
		{
			name: "none",
			auth: NoAuth{},
			check: func(t *testing.T, req *http.Request) {
				assert.Empty(t, req.Header)
				assert.Empty(t, req.URL.RawQuery)
			},
		},
		{
			name: "bearer",
			auth: BearerAuth{Token: "k"},
			check: func(t *testing.T, req *http.Request) {
				assert.Equal(t, "Bearer k", req.Header.Get("Authorization"))
			},
		},
		{
			name: "empty bearer",
			auth: BearerAuth{},
			check: func(t *testing.T, req *http.Request) {
				assert.Empty(t, req.Header.Get("Authorization"))
			},
		},
		{
			name: "header",
			auth: HeaderAuth{Header: "X-Api-Key", Key: "k"},
			check: func(t *testing.T, req *http.Request) {
				assert.Equal(t, "k", req.Header.Get("X-Api-Key"))
				assert.Empty(t, req.Header.Get("Authorization"))
			},
		},
		{
			name: "query keeps existing params",
			auth: QueryAuth{Param: "key", Key: "k"},
			check: func(t *testing.T, req *http.Request) {
				assert.Equal(t, "k", req.URL.Query().Get("key"))
				assert.Equal(t, "1", req.URL.Query().Get("page"))
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := url.Parse("https://example.com/catalogs?page=1")
			require.NoError(t, err)
			if tt.name == "none" {
				u.RawQuery = ""
			}
			req := &http.Request{URL: u, Header: make(http.Header)}
			tt.auth.Apply(req)
			tt.check(t, req)
		})
	}
}

func TestListCatalogs(t *testing.T) {
	f, client := newFakeService(t)
	f.handle(http.MethodGet, "/catalogs", http.StatusOK, []catalogs.Catalog{
		{ID: "c1", Name: "Capacitors"},
		{ID: "c2", Name: "Resistors"},
	})

	got, err := NewRepository(client).ListCatalogs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []catalogs.Catalog{{ID: "c1", Name: "Capacitors"}, {ID: "c2", Name: "Resistors"}}, got)

	req := f.last()
	assert.Equal(t, "Bearer secret", req.Header.Get("Authorization"))
	assert.Equal(t, "application/json", req.Header.Get("Accept"))
}

func TestGetCatalogItem(t *testing.T) {
	f, client := newFakeService(t)
	f.handle(http.MethodGet, "/catalogs/c1/items/GRM155", http.StatusOK, map[string]any{
		"part_number": "GRM155",
		"properties":  map[string]any{"supplier": "digikey"},
	})
	repo := NewRepository(client)

	t.Run("found", func(t *testing.T) {
		entry, err := repo.GetCatalogItem(context.Background(), "c1", "GRM155")
		require.NoError(t, err)
		assert.Equal(t, "c1", entry.CatalogID)
		assert.Equal(t, "grm155", entry.PartNumber)
		assert.Equal(t, "digikey", entry.RawNode["supplier"])
	})

	t.Run("missing maps to not found", func(t *testing.T) {
		_, err := repo.GetCatalogItem(context.Background(), "c2", "GRM155")
		require.Error(t, err)
		assert.True(t, errors.IsNotFound(err))
		var nf *errors.NotFoundError
		assert.True(t, errors.As(err, &nf))
	})

	t.Run("path segments are escaped", func(t *testing.T) {
		_, _ = repo.GetCatalogItem(context.Background(), "c1", "A/B 1")
		assert.Equal(t, "/catalogs/c1/items/A%2FB%201", f.last().Path)
	})
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		matches func(error) bool
	}{
		{"rate limited", http.StatusTooManyRequests, errors.IsRateLimited},
		{"unavailable", http.StatusServiceUnavailable, errors.IsProviderUnavailable},
		{"not found", http.StatusNotFound, errors.IsNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, client := newFakeService(t)
			f.handle(http.MethodGet, "/boms", tt.status, map[string]string{"error": "nope"})

			_, err := NewRepository(client).ListBoms(context.Background())
			require.Error(t, err)
			assert.True(t, tt.matches(err))

			var apiErr *errors.APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Contains(t, apiErr.Endpoint, "/boms")
		})
	}
}

func TestAddPartToCatalog(t *testing.T) {
	f, client := newFakeService(t)
	f.handle(http.MethodPost, "/catalogs/c1/items", http.StatusCreated, nil)

	err := NewRepository(client).AddPartToCatalog(context.Background(), "c1", sourcedLine(t))
	require.NoError(t, err)

	req := f.last()
	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
	assert.Equal(t, "grm155r71c104ka88d", req.Body["part_number"])
	assert.Equal(t, "100nF 0402", req.Body["description"])
	props := req.Body["properties"].(map[string]any)
	assert.Equal(t, "digikey", props["supplier"])
	assert.Equal(t, "0.1", props["unit_price"])
	assert.Equal(t, "490-3261-1-ND", props["supplier_part_number"])
}

func TestUpdateCatalogPart(t *testing.T) {
	f, client := newFakeService(t)
	f.handle(http.MethodPatch, "/catalogs/c1/items/GRM155", http.StatusNoContent, nil)

	err := NewRepository(client).UpdateCatalogPart(context.Background(), "c1", "GRM155", map[string]string{"supplier": "mouser"})
	require.NoError(t, err)
	assert.Equal(t, http.MethodPatch, f.last().Method)
	assert.Equal(t, map[string]any{"supplier": "mouser"}, f.last().Body["properties"])
}

func TestBoms(t *testing.T) {
	f, client := newFakeService(t)
	f.handle(http.MethodPost, "/boms", http.StatusCreated, map[string]string{"id": "b9"})
	f.handle(http.MethodGet, "/boms/b9/items", http.StatusOK, []catalogs.Item{
		{PartNumber: "R1", Properties: map[string]string{"quantity": "4"}},
	})
	f.handle(http.MethodPost, "/boms/b9/items", http.StatusCreated, nil)
	repo := NewRepository(client)
	ctx := context.Background()

	id, err := repo.CreateBom(ctx, "Main board", "PCB-1")
	require.NoError(t, err)
	assert.Equal(t, "b9", id)
	assert.Equal(t, "Main board", f.last().Body["name"])

	items, err := repo.GetBomItems(ctx, id)
	require.NoError(t, err)
	require.Len(t, items, 1)
	qty, ok := items[0].Quantity()
	assert.True(t, ok)
	assert.Equal(t, 4, qty)

	require.NoError(t, repo.AddPartToBom(ctx, id, sourcedLine(t)))
	body := f.last().Body
	assert.EqualValues(t, 10, body["quantity"])
	props := body["properties"].(map[string]any)
	assert.Equal(t, "1", props["total_price"])

	_, err = repo.GetBomItems(ctx, "missing")
	assert.True(t, errors.IsNotFound(err))
}

func TestCreateBomWithoutID(t *testing.T) {
	f, client := newFakeService(t)
	f.handle(http.MethodPost, "/boms", http.StatusCreated, map[string]string{})

	_, err := NewRepository(client).CreateBom(context.Background(), "x", "")
	require.Error(t, err)
	assert.True(t, errors.IsProviderUnavailable(err))
}

func TestSupplierGetQuote(t *testing.T) {
	f, client := newFakeService(t)
	f.handle(http.MethodGet, "/suppliers/digikey/quotes/GRM155", http.StatusOK, map[string]any{
		"is_available":    true,
		"available_stock": 5000,
		"price_breaks": []map[string]any{
			{"minimum_quantity": 1, "unit_price": "0.10"},
			{"minimum_quantity": 100, "unit_price": "0.02"},
		},
	})
	f.handle(http.MethodGet, "/suppliers/mouser/quotes/GRM155", http.StatusTooManyRequests, nil)

	q, err := NewSupplier("digikey", client).GetQuote(context.Background(), "GRM155")
	require.NoError(t, err)
	assert.Equal(t, parts.SupplierID("digikey"), q.Supplier)
	assert.True(t, q.IsAvailable)
	require.Len(t, q.PriceBreaks, 2)
	assert.True(t, decimal.RequireFromString("0.02").Equal(q.PriceBreaks[1].UnitPrice))

	_, err = NewSupplier("mouser", client).GetQuote(context.Background(), "GRM155")
	require.Error(t, err)
	assert.True(t, errors.IsRateLimited(err))
	by, ok := errors.RateLimitedBy(err)
	assert.True(t, ok)
	assert.Equal(t, "mouser", by)

	_, err = NewSupplier("lcsc", client).GetQuote(context.Background(), "GRM155")
	assert.True(t, errors.IsNotFound(err))
}

func TestDoHonorsCancellation(t *testing.T) {
	_, client := newFakeService(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewRepository(client).ListCatalogs(ctx)
	require.Error(t, err)
	assert.True(t, errors.IsCanceled(err))
}
