// Package errors provides structured error types for gulp.
// Every error carries a category, a code, a message and a retryable flag so
// the API layer can turn it into a status without inspecting strings.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies errors by failure kind.
type ErrorCategory string

const (
	ErrCategoryTransport    ErrorCategory = "TRANSPORT"
	ErrCategoryDecode       ErrorCategory = "DECODE"
	ErrCategorySchema       ErrorCategory = "SCHEMA"
	ErrCategoryStorage      ErrorCategory = "STORAGE"
	ErrCategoryNotFound     ErrorCategory = "NOT_FOUND"
	ErrCategoryPrecondition ErrorCategory = "PRECONDITION"
	ErrCategoryAccess       ErrorCategory = "ACCESS"
	ErrCategoryInternal     ErrorCategory = "INTERNAL"
)

// Error codes for each category.
const (
	// Transport codes
	CodeFetchFailed  = "FETCH_FAILED"
	CodeFileNotFound = "FILE_NOT_FOUND"
	CodeBadManifest  = "BAD_MANIFEST"

	// Decode codes
	CodeMalformedJSON        = "MALFORMED_JSON"
	CodeMalformedSpreadsheet = "MALFORMED_SPREADSHEET"

	// Schema codes
	CodeDuplicateSchema = "DUPLICATE_SCHEMA"
	CodeSchemaMissing   = "SCHEMA_MISSING"
	CodeInvalidSchema   = "INVALID_SCHEMA"

	// Storage codes
	CodeQueryFailed = "QUERY_FAILED"
	CodeTxFailed    = "TX_FAILED"

	// Not-found codes
	CodeListNotFound       = "LIST_NOT_FOUND"
	CodeSourceNotFound     = "SOURCE_NOT_FOUND"
	CodeFileRecordNotFound = "FILE_RECORD_NOT_FOUND"
	CodeUserNotFound       = "USER_NOT_FOUND"
	CodeRowNotFound        = "ROW_NOT_FOUND"

	// Precondition codes
	CodeUnsupportedSource = "UNSUPPORTED_SOURCE"
	CodeInvalidArgument   = "INVALID_ARGUMENT"
	CodeColumnMismatch    = "COLUMN_MISMATCH"

	// Access codes
	CodeForbidden   = "FORBIDDEN"
	CodeNotLoggedIn = "NOT_LOGGED_IN"

	// Internal codes
	CodeUnexpected = "UNEXPECTED"
)

// GulpError is the structured error type used throughout the system.
type GulpError struct {
	Category  ErrorCategory
	Code      string
	Message   string
	Details   map[string]interface{}
	Cause     error
	Retryable bool
}

// Error returns a formatted error string.
func (e *GulpError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *GulpError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches this error's category and code.
func (e *GulpError) Is(target error) bool {
	var t *GulpError
	if errors.As(target, &t) {
		return e.Category == t.Category && e.Code == t.Code
	}
	return false
}

// New creates a new GulpError.
func New(category ErrorCategory, code, message string) *GulpError {
	return &GulpError{
		Category:  category,
		Code:      code,
		Message:   message,
		Retryable: isRetryable(category, code),
	}
}

// Wrap creates a new GulpError wrapping an existing error.
func Wrap(category ErrorCategory, code, message string, cause error) *GulpError {
	return &GulpError{
		Category:  category,
		Code:      code,
		Message:   message,
		Cause:     cause,
		Retryable: isRetryable(category, code),
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *GulpError) WithDetails(details map[string]interface{}) *GulpError {
	cp := *e
	cp.Details = details
	return &cp
}

// IsRetryable checks whether an error (or its chain) is retryable.
// Nothing in gulp retries on its own; the flag tells callers a re-run may succeed.
func IsRetryable(err error) bool {
	var ge *GulpError
	if errors.As(err, &ge) {
		return ge.Retryable
	}
	return false
}

// GetCategory extracts the error category from an error chain.
// Returns empty string if the error is not a GulpError.
func GetCategory(err error) ErrorCategory {
	var ge *GulpError
	if errors.As(err, &ge) {
		return ge.Category
	}
	return ""
}

// GetCode extracts the error code from an error chain.
// Returns empty string if the error is not a GulpError.
func GetCode(err error) string {
	var ge *GulpError
	if errors.As(err, &ge) {
		return ge.Code
	}
	return ""
}

// Message returns the human readable message of a GulpError, or err.Error()
// for any other error.
func Message(err error) string {
	var ge *GulpError
	if errors.As(err, &ge) {
		if ge.Cause != nil {
			return fmt.Sprintf("%s: %v", ge.Message, ge.Cause)
		}
		return ge.Message
	}
	return err.Error()
}

func isRetryable(category ErrorCategory, code string) bool {
	switch {
	case category == ErrCategoryTransport && code == CodeFetchFailed:
		return true
	case category == ErrCategoryStorage && code == CodeTxFailed:
		return true
	default:
		return false
	}
}

// Convenience constructors for common errors.

func NewTransportError(code, message string, cause error) *GulpError {
	return Wrap(ErrCategoryTransport, code, message, cause)
}

func NewDecodeError(code, message string, cause error) *GulpError {
	return Wrap(ErrCategoryDecode, code, message, cause)
}

func NewSchemaError(code, message string) *GulpError {
	return New(ErrCategorySchema, code, message)
}

func NewStorageError(code, message string, cause error) *GulpError {
	return Wrap(ErrCategoryStorage, code, message, cause)
}

func NewNotFoundError(code, message string) *GulpError {
	return New(ErrCategoryNotFound, code, message)
}

func NewPreconditionError(code, message string) *GulpError {
	return New(ErrCategoryPrecondition, code, message)
}

func NewAccessError(code, message string) *GulpError {
	return New(ErrCategoryAccess, code, message)
}

func NewInternalError(message string, cause error) *GulpError {
	return Wrap(ErrCategoryInternal, CodeUnexpected, message, cause)
}
