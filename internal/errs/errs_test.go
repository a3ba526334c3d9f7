package errs

import (
	"errors"
	"testing"
)

func TestWrapUnwrap(t *testing.T) {
	cause := errors.New("boom")
	e := Wrap(KindTransport, cause, "retry with backoff", true)

	if !errors.Is(e, cause) {
		t.Fatalf("expected errors.Is to find wrapped cause")
	}
	if !e.IsRecoverable() {
		t.Fatalf("expected recoverable error")
	}
	if e.Kind != KindTransport {
		t.Fatalf("expected KindTransport, got %s", e.Kind)
	}
}

func TestNewNotRecoverable(t *testing.T) {
	e := New(KindInvariant, "cycle detected", "remove the offending dependency edge", false)
	if e.IsRecoverable() {
		t.Fatalf("expected non-recoverable error")
	}
	if e.Error() == "" {
		t.Fatalf("expected non-empty error string")
	}
}

func TestNilErrorIsRecoverableFalse(t *testing.T) {
	var e *Error
	if e.IsRecoverable() {
		t.Fatalf("nil error must report not recoverable")
	}
}
