package transport

import (
	"context"
	"net/http"

	"github.com/agentstation/bomsync/pkg/catalogs"
	"github.com/agentstation/bomsync/pkg/errors"
	"github.com/agentstation/bomsync/pkg/parts"
)

// Supplier fetches quotes for one supplier through the catalog service's
// quote proxy.
type Supplier struct {
	id     parts.SupplierID
	client *Client
}

var _ catalogs.SupplierQuoteProvider = (*Supplier)(nil)

// NewSupplier creates a quote provider for the supplier id.
func NewSupplier(id parts.SupplierID, client *Client) *Supplier {
	return &Supplier{id: id, client: client}
}

// ID implements catalogs.SupplierQuoteProvider.
func (s *Supplier) ID() parts.SupplierID {
	return s.id
}

// GetQuote implements catalogs.SupplierQuoteProvider.
func (s *Supplier) GetQuote(ctx context.Context, orderingCode string) (parts.SupplierQuote, error) {
	var q parts.SupplierQuote
	endpoint := s.client.endpoint("suppliers", s.id.String(), "quotes", orderingCode)
	if err := s.client.Do(ctx, http.MethodGet, endpoint, nil, &q); err != nil {
		switch {
		case errors.IsRateLimited(err):
			return parts.SupplierQuote{}, &errors.RateLimitedError{Supplier: s.id.String(), Err: err}
		case errors.IsNotFound(err):
			return parts.SupplierQuote{}, errors.NewNotFoundError("quote", s.id.String()+"/"+orderingCode)
		}
		return parts.SupplierQuote{}, err
	}
	q.Supplier = s.id
	return q, nil
}
