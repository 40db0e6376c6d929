// Package errors provides standardized error handling for the framework core.
// It includes error classification, the sentinel errors raised by the element
// tree and connection protocol, and helpers for consistent error wrapping.
package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorClass represents the classification of errors for handling purposes
type ErrorClass int

const (
	// ErrorTransient represents temporary errors that may be retried
	ErrorTransient ErrorClass = iota
	// ErrorInvalid represents programmer errors and invalid input
	ErrorInvalid
	// ErrorFatal represents violated invariants that must stop the process
	ErrorFatal
)

// String returns the string representation of ErrorClass
func (ec ErrorClass) String() string {
	switch ec {
	case ErrorTransient:
		return "transient"
	case ErrorInvalid:
		return "invalid"
	case ErrorFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Standard error variables for common conditions
var (
	// Element tree errors
	ErrElementDeleted   = errors.New("element deleted")
	ErrElementNotFound  = errors.New("element not found")
	ErrNotConstructing  = errors.New("element no longer under construction")
	ErrLinkLimit        = errors.New("link limit exceeded")
	ErrDepthExceeded    = errors.New("hierarchy depth exceeded")
	ErrNameClash        = errors.New("duplicate qualified name")
	ErrInvalidParent    = errors.New("invalid parent")
	ErrStatusFlag       = errors.New("status flags may not be set at construction")
	ErrNotManagedDelete = errors.New("element destroyed without managed delete")
	ErrHandlesExhausted = errors.New("element handles exhausted")
	ErrInvalidName      = errors.New("invalid element name")
	ErrAnnotationExists = errors.New("annotation of this type already present")

	// Connection errors
	ErrInvalidConnectOptions = errors.New("invalid connect options")
	ErrConnectRejected       = errors.New("connection rejected")
	ErrPortNotFound          = errors.New("port not found")
	ErrNotAPort              = errors.New("element is not a port")

	// URI and scheme errors
	ErrInvalidURI        = errors.New("invalid uri")
	ErrSchemeUnknown     = errors.New("unknown uri scheme")
	ErrSchemeRegistered  = errors.New("uri scheme already registered")
	ErrLocalSchemeCreate = errors.New("local scheme handler cannot create connectors")

	// Administration errors
	ErrModuleTypeUnknown    = errors.New("unknown module type")
	ErrModuleTypeRegistered = errors.New("module type already registered")
	ErrNoExecutionControl   = errors.New("no execution control found")

	// Lifecycle errors
	ErrAlreadyStarted = errors.New("already started")
	ErrShuttingDown   = errors.New("shutting down")

	// Connection and networking errors
	ErrConnectionTimeout = errors.New("connection timeout")

	// Configuration errors
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrMissingConfig = errors.New("missing required configuration")
)

// ClassifiedError wraps an error with its classification
type ClassifiedError struct {
	Class     ErrorClass
	Err       error
	Message   string
	Component string
	Operation string
}

// Error implements the error interface
func (ce *ClassifiedError) Error() string {
	if ce.Message != "" {
		return ce.Message
	}
	return ce.Err.Error()
}

// Unwrap returns the underlying error
func (ce *ClassifiedError) Unwrap() error {
	return ce.Err
}

// IsTransient checks if an error is transient and should be retried
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorTransient
	}

	if errors.Is(err, ErrConnectionTimeout) ||
		errors.Is(err, ErrPortNotFound) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	for _, pattern := range []string{"timeout", "connection", "temporary", "unavailable"} {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}

// IsFatal checks if an error is fatal and should stop processing
func IsFatal(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorFatal
	}

	return errors.Is(err, ErrDepthExceeded) ||
		errors.Is(err, ErrLinkLimit) ||
		errors.Is(err, ErrNameClash) ||
		errors.Is(err, ErrNotManagedDelete) ||
		errors.Is(err, ErrHandlesExhausted)
}

// IsInvalid checks if an error is due to invalid input
func IsInvalid(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorInvalid
	}

	return errors.Is(err, ErrInvalidConnectOptions) ||
		errors.Is(err, ErrInvalidURI) ||
		errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrStatusFlag) ||
		errors.Is(err, ErrInvalidName) ||
		errors.Is(err, ErrAnnotationExists) ||
		errors.Is(err, ErrInvalidParent) ||
		errors.Is(err, ErrModuleTypeUnknown) ||
		errors.Is(err, ErrModuleTypeRegistered)
}

// Classify returns the error class for an error
func Classify(err error) ErrorClass {
	if err == nil {
		return ErrorTransient
	}

	if IsFatal(err) {
		return ErrorFatal
	}
	if IsInvalid(err) {
		return ErrorInvalid
	}

	// Unknown errors default to transient so callers may retry
	return ErrorTransient
}

func newClassified(class ErrorClass, err error, component, operation, message string) *ClassifiedError {
	return &ClassifiedError{
		Class:     class,
		Err:       err,
		Message:   message,
		Component: component,
		Operation: operation,
	}
}

// Wrap creates a standardized error with context following the pattern:
// "component.method: action failed: %w"
func Wrap(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s.%s: %s failed: %w", component, method, action, err)
}

// WrapTransient wraps an error as transient with context
func WrapTransient(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorTransient, wrappedErr, component, method, wrappedErr.Error())
}

// WrapFatal wraps an error as fatal with context
func WrapFatal(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorFatal, wrappedErr, component, method, wrappedErr.Error())
}

// WrapInvalid wraps an error as invalid with context
func WrapInvalid(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorInvalid, wrappedErr, component, method, wrappedErr.Error())
}

// Fatal panics with a fatal classified error. It is reserved for violated
// structural invariants where continuing would corrupt path based addressing.
func Fatal(err error, component, method, action string) {
	panic(WrapFatal(err, component, method, action))
}
