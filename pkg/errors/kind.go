package errors

import (
	"encoding/json"
	"errors"
)

// Kind classifies an error into the failure kinds reported per part line.
type Kind string

// Error kinds.
const (
	KindNone            Kind = ""
	KindInvalidQuantity Kind = "invalid_quantity"
	KindNotFound        Kind = "not_found"
	KindRateLimited     Kind = "rate_limited"
	KindTransientUpload Kind = "transient_upload_failure"
	KindPermanentUpload Kind = "permanent_upload_failure"
	KindCancelled       Kind = "cancelled"
	KindInvalidInput    Kind = "invalid_input"
	KindUnavailable     Kind = "unavailable"
	KindUnknown         Kind = "unknown"
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	if k == KindNone {
		return "none"
	}
	return string(k)
}

// KindOf classifies err. Permanent upload failures take precedence over the
// cause they wrap so an exhausted part is always reported as permanent.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	var up *UploadError
	if errors.As(err, &up) && up.Permanent {
		return KindPermanentUpload
	}
	switch {
	case IsCanceled(err):
		return KindCancelled
	case IsInvalidQuantity(err):
		return KindInvalidQuantity
	case IsRateLimited(err):
		return KindRateLimited
	case IsNotFound(err):
		return KindNotFound
	case errors.Is(err, ErrTransientUpload):
		return KindTransientUpload
	case IsValidationError(err):
		return KindInvalidInput
	case IsProviderUnavailable(err):
		return KindUnavailable
	}
	return KindUnknown
}

// MarshalJSON renders the kind as its string form.
func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}
