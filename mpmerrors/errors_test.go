package mpmerrors

import (
	"errors"
	"testing"
)

func TestIsMatchesKind(t *testing.T) {
	err := New(ResourceExhausted, "block %d could not be committed", 7)
	if !errors.Is(err, KindResourceExhausted) {
		t.Fatalf("expected errors.Is to match ResourceExhausted sentinel")
	}
	if errors.Is(err, KindDomainError) {
		t.Fatalf("did not expect errors.Is to match a different kind")
	}
}

func TestWrapUnwraps(t *testing.T) {
	cause := errors.New("svd did not converge")
	err := Wrap(DomainError, cause, "deformation gradient singular")
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped cause to be reachable via errors.Is")
	}
}

func TestKindString(t *testing.T) {
	tests := []struct {
		k    Kind
		want string
	}{
		{DomainError, "domain_error"},
		{ResourceExhausted, "resource_exhausted"},
		{InvalidConfig, "invalid_config"},
		{InternalInvariant, "internal_invariant"},
	}
	for _, tt := range tests {
		if got := tt.k.String(); got != tt.want {
			t.Errorf("Kind(%d).String() = %q, want %q", tt.k, got, tt.want)
		}
	}
}
