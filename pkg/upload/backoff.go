package upload

import (
	"net/http"
	"time"

	"github.com/agentstation/bomsync/pkg/errors"
)

// Backoff computes exponential waits between retry rounds.
type Backoff struct {
	Base time.Duration
	Max  time.Duration
}

// Delay returns the wait before retry round n (n >= 1): Base * 2^(n-1),
// capped at Max.
func (b Backoff) Delay(n int) time.Duration {
	if n < 1 || b.Base <= 0 {
		return 0
	}
	d := b.Base
	for i := 1; i < n; i++ {
		d *= 2
		if b.Max > 0 && d >= b.Max {
			return b.Max
		}
	}
	if b.Max > 0 && d > b.Max {
		return b.Max
	}
	return d
}

// retryable reports whether a failed submission may succeed when repeated.
// Cancellation, invalid input and client errors other than 408/429 are final.
func retryable(err error) bool {
	if err == nil || errors.IsCanceled(err) || errors.IsValidationError(err) || errors.IsInvalidQuantity(err) {
		return false
	}
	var api *errors.APIError
	if errors.As(err, &api) {
		switch {
		case api.StatusCode == http.StatusTooManyRequests, api.StatusCode == http.StatusRequestTimeout:
			return true
		case api.StatusCode >= 400 && api.StatusCode < 500:
			return false
		}
	}
	return true
}
