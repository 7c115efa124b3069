// Package errors provides custom error types for the bomsync system.
// These errors enable programmatic error checking across the pricing,
// reconciliation and upload stages, and let the orchestrator classify
// failures into the recoverable and terminal kinds it reports per part.
package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Is, As and Join re-export the standard library helpers so callers only
// need a single errors import.
var (
	Is   = errors.Is
	As   = errors.As
	Join = errors.Join
)

// Common sentinel errors for the bomsync system
var (
	// ErrInvalidQuantity indicates a requested quantity that is zero or negative
	ErrInvalidQuantity = errors.New("invalid quantity")

	// ErrNotFound indicates that a quote, catalog item or BOM was not found
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates that a resource already exists
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrRateLimited indicates that an upstream signalled a rate limit
	ErrRateLimited = errors.New("rate limited")

	// ErrProviderUnavailable indicates that an upstream is temporarily unavailable
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrTransientUpload indicates an upload attempt that may succeed when retried
	ErrTransientUpload = errors.New("transient upload failure")

	// ErrPermanentUpload indicates an upload that failed after exhausting retries
	ErrPermanentUpload = errors.New("permanent upload failure")

	// ErrTimeout indicates that an operation timed out
	ErrTimeout = errors.New("operation timed out")

	// ErrCanceled indicates that an operation was canceled
	ErrCanceled = errors.New("operation canceled")

	// ErrAborted indicates that a decision policy aborted the run
	ErrAborted = errors.New("run aborted")
)

// QuantityError reports a quantity outside the accepted range.
type QuantityError struct {
	Quantity int
	Message  string
}

// Error implements the error interface
func (e *QuantityError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("invalid quantity %d: %s", e.Quantity, e.Message)
	}
	return fmt.Sprintf("invalid quantity %d", e.Quantity)
}

// Is implements errors.Is support
func (e *QuantityError) Is(target error) bool {
	return target == ErrInvalidQuantity
}

// NewQuantityError creates a new QuantityError
func NewQuantityError(quantity int, message string) *QuantityError {
	return &QuantityError{Quantity: quantity, Message: message}
}

// NotFoundError represents an error when a resource is not found
type NotFoundError struct {
	Resource string
	ID       string
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %s not found", e.Resource, e.ID)
}

// Is implements errors.Is support
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// RateLimitedError is returned by a supplier or service that refuses
// further calls for now.
type RateLimitedError struct {
	Supplier string
	Err      error
}

// Error implements the error interface
func (e *RateLimitedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("rate limited by %s: %v", e.Supplier, e.Err)
	}
	return fmt.Sprintf("rate limited by %s", e.Supplier)
}

// Unwrap implements errors.Unwrap
func (e *RateLimitedError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *RateLimitedError) Is(target error) bool {
	return target == ErrRateLimited
}

// NewRateLimitedError creates a new RateLimitedError
func NewRateLimitedError(supplier string) *RateLimitedError {
	return &RateLimitedError{Supplier: supplier}
}

// RateLimitedBy returns the upstream that signalled the rate limit, if any.
func RateLimitedBy(err error) (string, bool) {
	var rl *RateLimitedError
	if errors.As(err, &rl) {
		return rl.Supplier, true
	}
	var api *APIError
	if errors.As(err, &api) && api.StatusCode == http.StatusTooManyRequests {
		return api.Upstream, true
	}
	return "", false
}

// UploadError records a failed submission of a part line.
type UploadError struct {
	PartLineID string
	Target     string
	Attempts   int
	Permanent  bool
	Err        error
}

// Error implements the error interface
func (e *UploadError) Error() string {
	kind := "transient"
	if e.Permanent {
		kind = "permanent"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s upload failure for part %s to %s after %d attempt(s): %v",
			kind, e.PartLineID, e.Target, e.Attempts, e.Err)
	}
	return fmt.Sprintf("%s upload failure for part %s to %s after %d attempt(s)",
		kind, e.PartLineID, e.Target, e.Attempts)
}

// Unwrap implements errors.Unwrap
func (e *UploadError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *UploadError) Is(target error) bool {
	if e.Permanent {
		return target == ErrPermanentUpload
	}
	return target == ErrTransientUpload
}

// NewTransientUploadError creates a retryable UploadError
func NewTransientUploadError(partLineID, target string, attempts int, err error) *UploadError {
	return &UploadError{PartLineID: partLineID, Target: target, Attempts: attempts, Err: err}
}

// NewPermanentUploadError creates an UploadError for an exhausted part
func NewPermanentUploadError(partLineID, target string, attempts int, err error) *UploadError {
	return &UploadError{PartLineID: partLineID, Target: target, Attempts: attempts, Permanent: true, Err: err}
}

// ValidationError represents a validation failure
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is implements errors.Is support
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// APIError represents an error response from a supplier or catalog service
type APIError struct {
	Upstream   string
	StatusCode int
	Message    string
	Endpoint   string
	Err        error
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("API error from %s (status %d): %s", e.Upstream, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API error from %s: %s", e.Upstream, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *APIError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *APIError) Is(target error) bool {
	switch {
	case e.StatusCode == http.StatusTooManyRequests:
		return target == ErrRateLimited
	case e.StatusCode == http.StatusNotFound:
		return target == ErrNotFound
	case e.StatusCode >= 500:
		return target == ErrProviderUnavailable
	}
	return false
}

// NewAPIError creates a new APIError
func NewAPIError(upstream string, statusCode int, message string) *APIError {
	return &APIError{
		Upstream:   upstream,
		StatusCode: statusCode,
		Message:    message,
	}
}

// ConfigError represents a configuration error
type ConfigError struct {
	Component string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError
func NewConfigError(component, message string, err error) *ConfigError {
	return &ConfigError{
		Component: component,
		Message:   message,
		Err:       err,
	}
}

// ParseError represents an error when parsing data formats
type ParseError struct {
	Format  string // "json", "yaml"
	File    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("parse error in %s file %s: %s", e.Format, e.File, e.Message)
	}
	return fmt.Sprintf("%s parse error: %s", e.Format, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a new ParseError
func NewParseError(format, file string, message string, err error) *ParseError {
	return &ParseError{
		Format:  format,
		File:    file,
		Message: message,
		Err:     err,
	}
}

// IOError represents an error during I/O operations
type IOError struct {
	Operation string // "read", "write", "open"
	Path      string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("IO error during %s of %s: %s", e.Operation, e.Path, e.Message)
	}
	return fmt.Sprintf("IO error during %s: %s", e.Operation, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *IOError) Unwrap() error {
	return e.Err
}

// NewIOError creates a new IOError
func NewIOError(operation, path string, err error) *IOError {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &IOError{
		Operation: operation,
		Path:      path,
		Message:   message,
		Err:       err,
	}
}

// ResourceError represents an error during resource operations
type ResourceError struct {
	Operation string // "create", "list", "fetch", "add", "update"
	Resource  string // "bom", "catalog", "quote", "part"
	ID        string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ResourceError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("failed to %s %s %s: %s", e.Operation, e.Resource, e.ID, e.Message)
	}
	return fmt.Sprintf("failed to %s %s: %s", e.Operation, e.Resource, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ResourceError) Unwrap() error {
	return e.Err
}

// NewResourceError creates a new ResourceError
func NewResourceError(operation, resource, id string, err error) *ResourceError {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &ResourceError{
		Operation: operation,
		Resource:  resource,
		ID:        id,
		Message:   message,
		Err:       err,
	}
}

// Helper functions for error checking

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInvalidQuantity checks if an error is an invalid quantity error
func IsInvalidQuantity(err error) bool {
	return errors.Is(err, ErrInvalidQuantity)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsRateLimited checks if an error is a rate limit error
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// IsTimeout checks if an error is a timeout error
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsCanceled reports whether err stems from cancellation, including the
// context package's own errors.
func IsCanceled(err error) bool {
	return errors.Is(err, ErrCanceled) ||
		errors.Is(err, ErrAborted) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// IsProviderUnavailable checks if an error indicates upstream unavailability
func IsProviderUnavailable(err error) bool {
	return errors.Is(err, ErrProviderUnavailable)
}

// Helper wrapping functions for common patterns

// WrapValidation wraps an error as a ValidationError
func WrapValidation(field string, err error) error {
	if err == nil {
		return nil
	}
	return &ValidationError{Field: field, Message: err.Error()}
}

// WrapIO wraps an error as an IOError
func WrapIO(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return NewIOError(operation, path, err)
}

// WrapResource wraps an error as a ResourceError
func WrapResource(operation, resource, id string, err error) error {
	if err == nil {
		return nil
	}
	return NewResourceError(operation, resource, id, err)
}

// WrapParse wraps an error as a ParseError
func WrapParse(format, file string, err error) error {
	if err == nil {
		return nil
	}
	return NewParseError(format, file, err.Error(), err)
}

// WrapAPI wraps an error as an APIError
func WrapAPI(upstream string, statusCode int, err error) error {
	if err == nil {
		return nil
	}
	return &APIError{
		Upstream:   upstream,
		StatusCode: statusCode,
		Message:    err.Error(),
		Err:        err,
	}
}
