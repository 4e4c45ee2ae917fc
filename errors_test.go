package sessionkit

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestClassify(t *testing.T) {
	if Classify(nil) != nil {
		t.Fatalf("nil must classify to nil")
	}
	for _, sentinel := range taxonomy {
		if got := Classify(fmt.Errorf("wrapped: %w", sentinel)); got != sentinel {
			t.Fatalf("expected %s, got %v", sentinel.Code, got)
		}
	}
	if got := Classify(errors.New("dial tcp: connection refused")); got != ErrInternal {
		t.Fatalf("unknown errors must be internal, got %v", got)
	}
	wrapped := fmt.Errorf("%w: %v", ErrInternal, errors.New("secret detail"))
	if got := Classify(wrapped); got != ErrInternal || got.Message != "internal error" {
		t.Fatalf("internal details must not leak, got %+v", got)
	}
}

func TestTaxonomyCodesAreUnique(t *testing.T) {
	seen := map[Code]bool{ErrInternal.Code: true}
	for _, e := range taxonomy {
		if seen[e.Code] {
			t.Fatalf("duplicate code %s", e.Code)
		}
		seen[e.Code] = true
		if e.Status < http.StatusBadRequest {
			t.Fatalf("%s has non-error status %d", e.Code, e.Status)
		}
	}
}
