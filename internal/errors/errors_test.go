package errors

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestNew(t *testing.T) {
	cause := errors.New("connection reset")
	ge := New(CodeTransient, "updateFile failed", cause)

	if ge.Code != CodeTransient {
		t.Errorf("expected CodeTransient, got %v", ge.Code)
	}
	if ge.Message != "updateFile failed" {
		t.Errorf("expected message 'updateFile failed', got %q", ge.Message)
	}
	if !errors.Is(ge, cause) {
		t.Errorf("expected errors.Is to see through the wrapped cause")
	}
	if !ge.Recoverable {
		t.Errorf("expected CodeTransient to default to recoverable")
	}
}

func TestWithContext(t *testing.T) {
	ge := New(CodeValidation, "bad path", nil)
	ge.WithContext("path", "../escape").WithContext("scriptId", "abc123")

	if ge.Context["path"] != "../escape" {
		t.Errorf("expected context path to be set")
	}
	if ge.Context["scriptId"] != "abc123" {
		t.Errorf("expected context scriptId to be set")
	}
}

func TestMarshalJSON(t *testing.T) {
	ge := New(CodeNotFound, "file missing", errors.New("no such file")).
		WithContext("path", "Foo/Bar.js")

	data, err := json.Marshal(ge)
	if err != nil {
		t.Fatalf("unexpected marshal error: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unexpected unmarshal error: %v", err)
	}
	if decoded["code"] != string(CodeNotFound) {
		t.Errorf("expected code %q, got %v", CodeNotFound, decoded["code"])
	}
	if decoded["cause"] != "no such file" {
		t.Errorf("expected cause to round-trip, got %v", decoded["cause"])
	}
}

func TestAs(t *testing.T) {
	if As(nil) != nil {
		t.Errorf("expected As(nil) to be nil")
	}

	plain := errors.New("boom")
	wrapped := As(plain)
	if wrapped.Code != CodeInternal {
		t.Errorf("expected plain errors to wrap as CodeInternal, got %v", wrapped.Code)
	}

	ge := New(CodeQuota, "rate limited", nil)
	if As(ge) != ge {
		t.Errorf("expected As to return the same GasMCPError instance")
	}
}

func TestIs(t *testing.T) {
	ge := New(CodeConflict, "fileType mismatch", nil)
	if !Is(ge, CodeConflict) {
		t.Errorf("expected Is to match CodeConflict")
	}
	if Is(ge, CodeNotFound) {
		t.Errorf("expected Is to not match CodeNotFound")
	}
}
