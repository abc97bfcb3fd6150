package auth

import (
	"errors"
	"fmt"
	"testing"
)

func TestPartialSignOut_AllNilIsComplete(t *testing.T) {
	res := PartialSignOut(nil, nil, nil)
	if res.Outcome != SignOutComplete {
		t.Fatalf("expected complete, got %q", res.Outcome)
	}
}

func TestPartialSignOut_KeepsErrors(t *testing.T) {
	revoke := errors.New("revoke failed")
	res := PartialSignOut(revoke, nil, nil)
	if res.Outcome != SignOutPartial {
		t.Fatalf("expected partial, got %q", res.Outcome)
	}
	if !errors.Is(res.RevokeTokenErr, revoke) {
		t.Fatalf("expected revoke error to be kept, got %v", res.RevokeTokenErr)
	}
}

func TestProviderError_UnwrapAndAs(t *testing.T) {
	cause := errors.New("dial tcp: timeout")
	pe := &ProviderError{Description: "Network error", RecoverySuggestion: "Retry", Cause: cause}
	wrapped := fmt.Errorf("sign in: %w", pe)

	got, ok := AsProviderError(wrapped)
	if !ok {
		t.Fatalf("expected provider error in chain")
	}
	if got.Description != "Network error" || got.RecoverySuggestion != "Retry" {
		t.Fatalf("unexpected provider error: %+v", got)
	}
	if !errors.Is(wrapped, cause) {
		t.Fatalf("expected cause to be reachable")
	}
	if pe.Error() != "Network error: dial tcp: timeout" {
		t.Fatalf("unexpected message %q", pe.Error())
	}
}

func TestAsProviderError_Plain(t *testing.T) {
	if _, ok := AsProviderError(errors.New("boom")); ok {
		t.Fatalf("did not expect provider error")
	}
}
