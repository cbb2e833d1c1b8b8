package errors

import (
	stdErrors "errors"
	"fmt"
	"testing"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		summary   string
		retryable bool
	}{
		{code: CodeValidation, summary: "validation failed"},
		{code: CodeNotFound, summary: "resource not found"},
		{code: CodeStateConflict, summary: "state transition disallowed"},
		{code: CodeInternal, summary: "internal error", retryable: true},
		{code: CodeDependency, summary: "dependency unavailable", retryable: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.Summary != tt.summary {
			t.Fatalf("code %s expected summary %q got %q", tt.code, tt.summary, meta.Summary)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta != MetadataFor(CodeInternal) {
		t.Fatalf("expected internal metadata, got %+v", meta)
	}
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "missing product id")
	if base.Code() != CodeValidation {
		t.Fatalf("expected validation code, got %s", base.Code())
	}
	if base.Message() != "missing product id" {
		t.Fatalf("unexpected message %q", base.Message())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}

	base.WithDetails(map[string]any{"field": "product_id"})
	if base.Details() == nil {
		t.Fatalf("details should be preserved")
	}

	cause := stdErrors.New("connection refused")
	wrapped := Wrap(CodeDependency, cause, "insert notification")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if wrapped.Error() != "DEPENDENCY_ERROR: insert notification: connection refused" {
		t.Fatalf("unexpected error string %q", wrapped.Error())
	}
}

func TestCodeOfAndRetryable(t *testing.T) {
	wrapped := fmt.Errorf("scan: %w", New(CodeDependency, "store down"))
	if CodeOf(wrapped) != CodeDependency {
		t.Fatalf("expected dependency code, got %s", CodeOf(wrapped))
	}
	if !IsRetryable(wrapped) {
		t.Fatal("expected dependency errors to be retryable")
	}
	if IsRetryable(New(CodeValidation, "bad")) {
		t.Fatal("validation errors must not be retryable")
	}
	if CodeOf(stdErrors.New("plain")) != CodeInternal {
		t.Fatal("untyped errors should map to internal")
	}
	if IsRetryable(nil) {
		t.Fatal("nil is not retryable")
	}
}

func TestAsReturnsTypedError(t *testing.T) {
	err := New(CodeNotFound, "no order")
	if got := As(err); got == nil || got.Code() != CodeNotFound {
		t.Fatalf("As failed to return typed error")
	}
	if As(nil) != nil {
		t.Fatalf("As(nil) should return nil")
	}
}
