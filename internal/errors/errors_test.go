package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestGulpError_Error(t *testing.T) {
	err := New(ErrCategorySchema, CodeDuplicateSchema, "schema exists")
	expected := "[SCHEMA:DUPLICATE_SCHEMA] schema exists"
	if err.Error() != expected {
		t.Errorf("got %q, want %q", err.Error(), expected)
	}
}

func TestGulpError_ErrorWithCause(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := Wrap(ErrCategoryTransport, CodeFetchFailed, "fetch failed", cause)
	expected := "[TRANSPORT:FETCH_FAILED] fetch failed: connection refused"
	if err.Error() != expected {
		t.Errorf("got %q, want %q", err.Error(), expected)
	}
}

func TestGulpError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("root cause")
	err := Wrap(ErrCategoryStorage, CodeTxFailed, "commit", cause)
	if !errors.Is(err, cause) {
		t.Error("Unwrap should allow errors.Is to find the cause")
	}
}

func TestGulpError_Is(t *testing.T) {
	err1 := New(ErrCategoryNotFound, CodeListNotFound, "first")
	err2 := New(ErrCategoryNotFound, CodeListNotFound, "second")
	err3 := New(ErrCategoryNotFound, CodeSourceNotFound, "different code")

	if !errors.Is(err1, err2) {
		t.Error("errors with same category+code should match via Is")
	}
	if errors.Is(err1, err3) {
		t.Error("errors with different codes should not match via Is")
	}

	wrapped := fmt.Errorf("list: %w", err1)
	if !errors.Is(wrapped, err2) {
		t.Error("Is should see through fmt.Errorf wrapping")
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		category  ErrorCategory
		code      string
		retryable bool
	}{
		{ErrCategoryTransport, CodeFetchFailed, true},
		{ErrCategoryTransport, CodeFileNotFound, false},
		{ErrCategoryTransport, CodeBadManifest, false},
		{ErrCategoryStorage, CodeTxFailed, true},
		{ErrCategoryStorage, CodeQueryFailed, false},
		{ErrCategoryDecode, CodeMalformedJSON, false},
		{ErrCategorySchema, CodeDuplicateSchema, false},
		{ErrCategoryNotFound, CodeListNotFound, false},
		{ErrCategoryAccess, CodeForbidden, false},
		{ErrCategoryInternal, CodeUnexpected, false},
	}

	for _, tt := range tests {
		err := New(tt.category, tt.code, "test")
		if IsRetryable(err) != tt.retryable {
			t.Errorf("%s:%s retryable=%v, want %v", tt.category, tt.code, IsRetryable(err), tt.retryable)
		}
	}
}

func TestGetCategoryAndCode(t *testing.T) {
	err := fmt.Errorf("outer: %w", NewDecodeError(CodeMalformedJSON, "bad line", nil))
	if GetCategory(err) != ErrCategoryDecode {
		t.Errorf("got %q, want %q", GetCategory(err), ErrCategoryDecode)
	}
	if GetCode(err) != CodeMalformedJSON {
		t.Errorf("got %q, want %q", GetCode(err), CodeMalformedJSON)
	}
	if GetCategory(fmt.Errorf("plain error")) != "" {
		t.Error("non-GulpError should return empty category")
	}
	if GetCode(fmt.Errorf("plain error")) != "" {
		t.Error("non-GulpError should return empty code")
	}
}

func TestMessage(t *testing.T) {
	if got := Message(NewSchemaError(CodeDuplicateSchema, "already there")); got != "already there" {
		t.Errorf("got %q", got)
	}
	withCause := NewTransportError(CodeFetchFailed, "fetch", fmt.Errorf("timeout"))
	if got := Message(withCause); got != "fetch: timeout" {
		t.Errorf("got %q", got)
	}
	if got := Message(fmt.Errorf("plain")); got != "plain" {
		t.Errorf("got %q", got)
	}
}

func TestWithDetails(t *testing.T) {
	err := NewNotFoundError(CodeListNotFound, "no list")
	detailed := err.WithDetails(map[string]interface{}{"list_id": int64(4)})

	if detailed.Details["list_id"] != int64(4) {
		t.Error("WithDetails should set details")
	}
	if err.Details != nil {
		t.Error("WithDetails should not modify original")
	}
}

func TestConvenienceConstructors(t *testing.T) {
	cause := fmt.Errorf("io error")

	if e := NewTransportError(CodeFetchFailed, "x", cause); e.Category != ErrCategoryTransport || !errors.Is(e, cause) {
		t.Error("NewTransportError mismatch")
	}
	if e := NewDecodeError(CodeMalformedSpreadsheet, "x", cause); e.Category != ErrCategoryDecode {
		t.Error("NewDecodeError mismatch")
	}
	if e := NewSchemaError(CodeSchemaMissing, "x"); e.Category != ErrCategorySchema {
		t.Error("NewSchemaError mismatch")
	}
	if e := NewStorageError(CodeQueryFailed, "x", cause); e.Category != ErrCategoryStorage {
		t.Error("NewStorageError mismatch")
	}
	if e := NewNotFoundError(CodeUserNotFound, "x"); e.Category != ErrCategoryNotFound {
		t.Error("NewNotFoundError mismatch")
	}
	if e := NewPreconditionError(CodeColumnMismatch, "x"); e.Category != ErrCategoryPrecondition {
		t.Error("NewPreconditionError mismatch")
	}
	if e := NewAccessError(CodeForbidden, "x"); e.Category != ErrCategoryAccess {
		t.Error("NewAccessError mismatch")
	}
	if e := NewInternalError("x", cause); e.Category != ErrCategoryInternal || e.Code != CodeUnexpected {
		t.Error("NewInternalError mismatch")
	}
}
