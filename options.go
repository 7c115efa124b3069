package bomsync

import (
	"github.com/agentstation/bomsync/internal/transport"
	"github.com/agentstation/bomsync/pkg/catalogs"
	"github.com/agentstation/bomsync/pkg/errors"
	"github.com/agentstation/bomsync/pkg/parts"
	"github.com/agentstation/bomsync/pkg/policy"
	"github.com/agentstation/bomsync/pkg/upload"
)

// Option is a function that configures a Bomsync instance
type Option func(*config) error

// config holds the wiring of a Bomsync instance
type config struct {
	boms       catalogs.BomRepository
	catalogs   catalogs.CatalogRepository
	suppliers  []catalogs.SupplierQuoteProvider
	priority   []parts.SupplierID
	policies   policy.Policies
	uploadOpts []upload.Option

	remoteServiceURL    *string
	remoteServiceAPIKey *string
	remoteSuppliers     []parts.SupplierID
	transportOpts       []transport.Option
}

// connect builds the REST adapters for the remote catalog service. Stores
// configured explicitly take precedence.
func (c *config) connect() error {
	opts := append([]transport.Option{transport.WithAPIKey(c.remoteServiceAPIKey)}, c.transportOpts...)
	client, err := transport.New(*c.remoteServiceURL, opts...)
	if err != nil {
		return err
	}
	repo := transport.NewRepository(client)
	if c.boms == nil {
		c.boms = repo
	}
	if c.catalogs == nil {
		c.catalogs = repo
	}
	for _, id := range c.remoteSuppliers {
		c.suppliers = append(c.suppliers, transport.NewSupplier(id, client))
	}
	return nil
}

// WithRemoteService configures the remote catalog service for catalogs and
// BOMs. A url is required, an api key can be provided for authentication,
// otherwise use nil to skip Bearer token authentication.
func WithRemoteService(url string, apiKey *string, opts ...transport.Option) Option {
	return func(c *config) error {
		if url == "" {
			return &errors.ValidationError{Field: "url", Message: "cannot be empty"}
		}
		c.remoteServiceURL = &url
		c.remoteServiceAPIKey = apiKey
		c.transportOpts = opts
		return nil
	}
}

// WithRemoteSuppliers fetches quotes for the given suppliers through the
// remote service's quote proxy.
func WithRemoteSuppliers(ids ...parts.SupplierID) Option {
	return func(c *config) error {
		c.remoteSuppliers = append(c.remoteSuppliers, ids...)
		return nil
	}
}

// WithBoms configures the BOM store
func WithBoms(repo catalogs.BomRepository) Option {
	return func(c *config) error {
		c.boms = repo
		return nil
	}
}

// WithCatalogs configures the catalog store
func WithCatalogs(repo catalogs.CatalogRepository) Option {
	return func(c *config) error {
		c.catalogs = repo
		return nil
	}
}

// WithSuppliers adds supplier quote providers
func WithSuppliers(providers ...catalogs.SupplierQuoteProvider) Option {
	return func(c *config) error {
		for _, p := range providers {
			if p == nil {
				return &errors.ValidationError{Field: "suppliers", Message: "provider cannot be nil"}
			}
		}
		c.suppliers = append(c.suppliers, providers...)
		return nil
	}
}

// WithSupplierPriority sets the supplier order used for quoting and tie-breaking
func WithSupplierPriority(ids ...parts.SupplierID) Option {
	return func(c *config) error {
		c.priority = ids
		return nil
	}
}

// WithPolicies configures the decision policies
func WithPolicies(p policy.Policies) Option {
	return func(c *config) error {
		c.policies = p
		return nil
	}
}

// WithUploadOptions passes options through to the upload orchestrator
func WithUploadOptions(opts ...upload.Option) Option {
	return func(c *config) error {
		c.uploadOpts = append(c.uploadOpts, opts...)
		return nil
	}
}
