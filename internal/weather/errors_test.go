package weather

import (
	"errors"
	"fmt"
	"testing"
)

func TestFetchErrorClassification(t *testing.T) {
	cases := []struct {
		name string
		err  error
		kind ErrorKind
	}{
		{"network", NewNetworkError("request failed", errors.New("dial tcp: refused")), ErrorKindNetwork},
		{"parse", NewParseError("bad json", errors.New("unexpected EOF")), ErrorKindParse},
		{"not found", NewNotFoundError("no matching location"), ErrorKindNotFound},
		{"wrapped", fmt.Errorf("fetch: %w", NewNotFoundError("no matching location")), ErrorKindNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Kind(tc.err); got != tc.kind {
				t.Errorf("Kind() = %q, want %q", got, tc.kind)
			}
		})
	}

	if Kind(errors.New("plain")) != "" {
		t.Error("plain errors must not classify")
	}
	if Kind(nil) != "" {
		t.Error("nil must not classify")
	}
}

func TestFetchErrorMessage(t *testing.T) {
	err := NewNetworkError("request failed", errors.New("timeout"))
	want := "network: request failed: timeout"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	bare := NewNotFoundError("no matching location")
	if bare.Error() != "not_found: no matching location" {
		t.Errorf("Error() = %q", bare.Error())
	}

	if !errors.Is(errors.Unwrap(err), err.Err) {
		t.Error("Unwrap must expose the underlying error")
	}
}
