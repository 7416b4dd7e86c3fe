package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestWrapPreservesCauseAndCode(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := fmt.Errorf("patch item 4: %w", Wrap(CodeNetworkFailure, cause, "execute request"))

	if !errors.Is(err, cause) {
		t.Fatalf("errors.Is lost the cause: %v", err)
	}
	typed := As(err)
	if typed == nil || typed.Code() != CodeNetworkFailure {
		t.Fatalf("As(err) = %v, want NETWORK_FAILURE", typed)
	}
	if !Is(err, CodeNetworkFailure) || Is(err, CodeServerRejected) {
		t.Fatalf("Is mismatch for %v", err)
	}
}

func TestWrapNilCauseBehavesLikeNew(t *testing.T) {
	err := Wrap(CodeServerRejected, nil, "quantity exceeds stock").WithStatus(http.StatusUnprocessableEntity)
	if err.Unwrap() != nil {
		t.Fatalf("Unwrap = %v, want nil", err.Unwrap())
	}
	if err.Status() != http.StatusUnprocessableEntity {
		t.Fatalf("Status = %d, want 422", err.Status())
	}
	if got := err.Error(); got != "SERVER_REJECTED: quantity exceeds stock" {
		t.Fatalf("Error() = %q", got)
	}
}

func TestCodeOf(t *testing.T) {
	if CodeOf(nil) != "" {
		t.Fatalf("CodeOf(nil) should be empty")
	}
	if CodeOf(errors.New("plain")) != CodeInternal {
		t.Fatalf("foreign errors should map to CodeInternal")
	}
	if Is(nil, CodeInternal) {
		t.Fatalf("Is(nil) should be false")
	}
}

func TestMetadataFor(t *testing.T) {
	if !MetadataFor(CodeNetworkFailure).Retryable {
		t.Fatalf("network failures should be retryable")
	}
	if MetadataFor(CodeUnauthenticated).Retryable {
		t.Fatalf("unauthenticated should not be retryable")
	}
	if MetadataFor(Code("bogus")) != MetadataFor(CodeInternal) {
		t.Fatalf("unknown codes should fall back to internal")
	}
	if PublicMessage(New(CodeServerRejected, "x")) != "the store rejected the change" {
		t.Fatalf("unexpected public message")
	}
}

func TestNilReceivers(t *testing.T) {
	var e *Error
	if e.Code() != CodeInternal || e.Message() != "" || e.Error() != "" || e.Unwrap() != nil || e.Status() != 0 {
		t.Fatalf("nil receiver methods should be safe")
	}
	if e.WithStatus(500) != nil {
		t.Fatalf("WithStatus on nil should stay nil")
	}
}
