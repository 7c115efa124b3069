package memory

import (
	"context"
	"sync"

	"github.com/agentstation/bomsync/pkg/errors"
	"github.com/agentstation/bomsync/pkg/parts"
)

// OpGetQuote is the operation name recorded by Supplier.
const OpGetQuote = "GetQuote"

// Supplier is an in-memory catalogs.SupplierQuoteProvider.
type Supplier struct {
	recorder

	id             parts.SupplierID
	mu             sync.Mutex
	quotes         map[string]parts.SupplierQuote
	rateLimitAfter int
}

// NewSupplier creates a supplier with no quotes.
func NewSupplier(id parts.SupplierID) *Supplier {
	return &Supplier{id: id, quotes: make(map[string]parts.SupplierQuote), rateLimitAfter: -1}
}

// Put stores a quote for an ordering code.
func (s *Supplier) Put(orderingCode string, q parts.SupplierQuote) *Supplier {
	s.mu.Lock()
	defer s.mu.Unlock()
	q.Supplier = s.id
	s.quotes[parts.Normalize(orderingCode)] = q
	return s
}

// RateLimitAfter makes every call after the first n fail with a rate limit.
func (s *Supplier) RateLimitAfter(n int) *Supplier {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rateLimitAfter = n
	return s
}

// ID implements catalogs.SupplierQuoteProvider.
func (s *Supplier) ID() parts.SupplierID {
	return s.id
}

// GetQuote implements catalogs.SupplierQuoteProvider.
func (s *Supplier) GetQuote(ctx context.Context, orderingCode string) (parts.SupplierQuote, error) {
	key := parts.Normalize(orderingCode)
	if err := s.record(ctx, OpGetQuote, string(s.id), key); err != nil {
		return parts.SupplierQuote{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rateLimitAfter >= 0 && len(s.Calls(OpGetQuote)) > s.rateLimitAfter {
		return parts.SupplierQuote{}, errors.NewRateLimitedError(string(s.id))
	}
	q, ok := s.quotes[key]
	if !ok {
		return parts.SupplierQuote{}, errors.NewNotFoundError("quote", orderingCode)
	}
	return q, nil
}
