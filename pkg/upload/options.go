package upload

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/agentstation/bomsync/pkg/assign"
	"github.com/agentstation/bomsync/pkg/catalogs"
	"github.com/agentstation/bomsync/pkg/constants"
	"github.com/agentstation/bomsync/pkg/errors"
	"github.com/agentstation/bomsync/pkg/parts"
	"github.com/agentstation/bomsync/pkg/policy"
)

// Options controls an Orchestrator.
type Options struct {
	// Batching and retries
	BatchSize       int           `validate:"gte=1"`
	MaxRetries      int           `validate:"gte=1,lte=10"` // Submission attempts per part
	RetryBackoff    time.Duration `validate:"gte=0"`
	MaxRetryBackoff time.Duration `validate:"gtefield=RetryBackoff"`
	CallDelay       time.Duration `validate:"gte=0"` // Wait between consecutive write calls

	// Catalog checks
	ProbeConcurrency        int           `validate:"gte=1,lte=64"`
	CacheTTL                time.Duration `validate:"gt=0"`
	UpdateCatalogProperties bool

	// Supplier tie-break and quoting order
	SupplierPriority []parts.SupplierID

	Clock     Clock `validate:"required"`
	Policies  policy.Policies
	Progress  Progress
	Heuristic *assign.Heuristic
	Cache     *catalogs.Cache
}

// Defaults returns the default orchestrator options.
func Defaults() *Options {
	return &Options{
		BatchSize:        constants.DefaultBatchSize,
		MaxRetries:       constants.MaxRetries,
		RetryBackoff:     constants.RetryBackoff,
		MaxRetryBackoff:  constants.MaxRetryBackoff,
		CallDelay:        constants.DefaultCallDelay,
		ProbeConcurrency: constants.DefaultProbeConcurrency,
		CacheTTL:         constants.CatalogCacheTTL,
		Clock:            SystemClock(),
		Policies:         policy.Defaults(),
		Progress:         ProgressFuncs{},
		Heuristic:        assign.New(),
	}
}

// Option is a function that configures Options.
type Option func(*Options)

// Apply applies the given options.
func (o *Options) Apply(opts ...Option) *Options {
	for _, opt := range opts {
		opt(o)
	}
	return o
}

var validate = validator.New()

// Validate checks the options.
func (o *Options) Validate() error {
	if err := validate.Struct(o); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return &errors.ValidationError{
				Field:   fe.Field(),
				Value:   fe.Value(),
				Message: fmt.Sprintf("failed %q constraint", fe.Tag()),
			}
		}
		return errors.WrapValidation("options", err)
	}
	return nil
}

// Backoff returns the configured retry backoff.
func (o *Options) Backoff() Backoff {
	return Backoff{Base: o.RetryBackoff, Max: o.MaxRetryBackoff}
}

// WithBatchSize sets how many parts are uploaded per batch.
func WithBatchSize(n int) Option {
	return func(o *Options) {
		o.BatchSize = n
	}
}

// WithMaxRetries sets the number of submission attempts per part.
func WithMaxRetries(n int) Option {
	return func(o *Options) {
		o.MaxRetries = n
	}
}

// WithRetryBackoff sets the base and maximum backoff between retry rounds.
func WithRetryBackoff(base, maxBackoff time.Duration) Option {
	return func(o *Options) {
		o.RetryBackoff = base
		o.MaxRetryBackoff = maxBackoff
	}
}

// WithCallDelay sets the wait between consecutive write calls.
func WithCallDelay(d time.Duration) Option {
	return func(o *Options) {
		o.CallDelay = d
	}
}

// WithProbeConcurrency bounds concurrent catalog existence checks.
func WithProbeConcurrency(n int) Option {
	return func(o *Options) {
		o.ProbeConcurrency = n
	}
}

// WithCacheTTL sets the catalog cache freshness window.
func WithCacheTTL(ttl time.Duration) Option {
	return func(o *Options) {
		o.CacheTTL = ttl
	}
}

// WithCatalogPropertyUpdates enables writing supplier data to parts that
// already exist in a catalog.
func WithCatalogPropertyUpdates(enabled bool) Option {
	return func(o *Options) {
		o.UpdateCatalogProperties = enabled
	}
}

// WithSupplierPriority sets the supplier order used for quoting and ties.
func WithSupplierPriority(ids ...parts.SupplierID) Option {
	return func(o *Options) {
		o.SupplierPriority = ids
	}
}

// WithClock sets the time source.
func WithClock(c Clock) Option {
	return func(o *Options) {
		o.Clock = c
	}
}

// WithPolicies sets the decision policies. Unset policies keep their defaults.
func WithPolicies(p policy.Policies) Option {
	return func(o *Options) {
		o.Policies = p.WithDefaults()
	}
}

// WithProgress sets the progress sink.
func WithProgress(p Progress) Option {
	return func(o *Options) {
		o.Progress = p
	}
}

// WithHeuristic sets the catalog assignment heuristic.
func WithHeuristic(h *assign.Heuristic) Option {
	return func(o *Options) {
		o.Heuristic = h
	}
}

// WithCache shares an existing catalog cache instead of creating one.
func WithCache(c *catalogs.Cache) Option {
	return func(o *Options) {
		o.Cache = c
	}
}
