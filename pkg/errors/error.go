// Package errors provides structured error handling with typed error codes.
//
// Error codes are organized into categories:
//   - General errors (1-99): Unknown and general errors
//   - Configuration errors (100-199): Invalid periods, thresholds, point size, bar counts
//   - Data integrity errors (200-249): Bars out of order or with an impossible OHLC range
//   - Data source errors (250-299): Loading bars from files
//   - Indicator errors (300-399): Indicator lookup and series errors
//   - Position and ledger errors (500-599): State machine and ledger violations
//   - Backtest errors (600-699): File-driven backtest engine errors
//
// A ConfigurationError is any error carrying a code from the configuration range, or an
// InsufficientDataError. A DataIntegrityError is a *DataIntegrityError, which also records
// the index of the offending bar.
//
// Usage:
//
//	// Create a new error
//	err := errors.New(errors.ErrCodeInvalidPeriod, "period must be positive")
//
//	// Create a formatted error
//	err := errors.Newf(errors.ErrCodeInvalidPointSize, "point size must be positive, got %f", size)
//
//	// Wrap an existing error
//	err := errors.Wrap(errors.ErrCodeQueryFailed, "failed to execute query", originalErr)
//
//	// Check error code
//	if errors.HasCode(err, errors.ErrCodeInsufficientBars) { ... }
package errors

import (
	"errors"
	"fmt"
)

// Error represents a structured error with an error code and message.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// New creates a new Error with the given code and message.
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   nil,
	}
}

// Newf creates a new Error with the given code and formatted message.
func Newf(code ErrorCode, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   nil,
	}
}

// Wrap wraps an existing error with a new Error containing the given code and message.
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Wrapf wraps an existing error with a new Error containing the given code and formatted message.
func Wrapf(code ErrorCode, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Cause)
	}

	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether any error in err's chain matches target.
// This is a convenience wrapper around the standard errors.Is function.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
// This is a convenience wrapper around the standard errors.As function.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// GetCode extracts the ErrorCode from an error if it's an *Error type.
// Returns ErrCodeUnknown if the error is not an *Error type.
func GetCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	var d *DataIntegrityError
	if errors.As(err, &d) {
		return d.Code
	}

	if IsInsufficientDataError(err) {
		return ErrCodeInsufficientBars
	}

	return ErrCodeUnknown
}

// HasCode checks if an error has a specific ErrorCode.
func HasCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}

// InsufficientDataError represents an error when there are fewer bars than an
// indicator needs before it produces its first value.
type InsufficientDataError struct {
	Required  int    // Minimum bars required
	Actual    int    // Bars available
	Indicator string // Name of the indicator that cannot warm up
	Message   string // Human-readable message
}

// NewInsufficientDataError creates a new InsufficientDataError.
func NewInsufficientDataError(required, actual int, indicator, message string) *InsufficientDataError {
	return &InsufficientDataError{
		Required:  required,
		Actual:    actual,
		Indicator: indicator,
		Message:   message,
	}
}

// NewInsufficientDataErrorf creates a new InsufficientDataError with a formatted message.
func NewInsufficientDataErrorf(required, actual int, indicator, format string, args ...any) *InsufficientDataError {
	return &InsufficientDataError{
		Required:  required,
		Actual:    actual,
		Indicator: indicator,
		Message:   fmt.Sprintf(format, args...),
	}
}

// Error implements the error interface.
func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("[%d] %s", ErrCodeInsufficientBars, e.Message)
}

// IsInsufficientDataError checks if an error is an InsufficientDataError.
// It uses errors.As to check the error chain.
func IsInsufficientDataError(err error) bool {
	var insufficientErr *InsufficientDataError

	return errors.As(err, &insufficientErr)
}

// DataIntegrityError reports a bar that violates an ordering or price-range invariant.
type DataIntegrityError struct {
	Code    ErrorCode
	Index   int // Index of the offending bar in the input series
	Message string
}

// NewDataIntegrityErrorf creates a new DataIntegrityError for the bar at index.
func NewDataIntegrityErrorf(code ErrorCode, index int, format string, args ...any) *DataIntegrityError {
	return &DataIntegrityError{
		Code:    code,
		Index:   index,
		Message: fmt.Sprintf(format, args...),
	}
}

// Error implements the error interface.
func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("[%d] bar %d: %s", e.Code, e.Index, e.Message)
}

// IsDataIntegrityError checks if an error is a DataIntegrityError.
func IsDataIntegrityError(err error) bool {
	var d *DataIntegrityError

	return errors.As(err, &d)
}

// IsConfigurationError checks if an error is fatal because of an invalid configuration.
func IsConfigurationError(err error) bool {
	if IsInsufficientDataError(err) {
		return true
	}

	var e *Error
	if errors.As(err, &e) {
		return e.Code.IsConfiguration()
	}

	return false
}
