package reconciler

import (
	"time"

	"github.com/agentstation/bomsync/pkg/errors"
	"github.com/agentstation/bomsync/pkg/policy"
)

// options configures a reconciler.
type options struct {
	resolver policy.QuantityResolver
	now      func() time.Time
}

func defaultOptions() *options {
	return &options{
		resolver: policy.Defaults().Quantity,
		now:      time.Now,
	}
}

// Option is a function that configures a Reconciler.
type Option func(*options) error

func (o *options) apply(opts ...Option) (*options, error) {
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// newOptions returns reconciler options with default values.
func newOptions(opts ...Option) (*options, error) {
	return defaultOptions().apply(opts...)
}

// WithResolver sets the quantity conflict policy.
func WithResolver(resolver policy.QuantityResolver) Option {
	return func(o *options) error {
		if resolver == nil {
			return &errors.ValidationError{
				Field:   "resolver",
				Message: "cannot be nil",
			}
		}
		o.resolver = resolver
		return nil
	}
}

// WithNow sets the time source used to measure the run.
func WithNow(now func() time.Time) Option {
	return func(o *options) error {
		if now == nil {
			return &errors.ValidationError{
				Field:   "now",
				Message: "cannot be nil",
			}
		}
		o.now = now
		return nil
	}
}
