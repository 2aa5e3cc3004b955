package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		contains []string
	}{
		{
			name: "error with cause",
			err: Wrap(KindEngine, "refine", "text engine failed",
				errors.New("connection refused")),
			contains: []string{"[engine:refine]", "text engine failed", "connection refused"},
		},
		{
			name:     "error without cause",
			err:      New(KindInput, "normalize", "image width must be positive"),
			contains: []string{"[input:normalize]", "image width must be positive"},
		},
		{
			name:     "formatted message",
			err:      Newf(KindInput, "refine", "unknown mode %q", "shout"),
			contains: []string{"[input:refine]", `unknown mode "shout"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errStr := tt.err.Error()
			for _, substr := range tt.contains {
				if !strings.Contains(errStr, substr) {
					t.Errorf("error string %q does not contain %q", errStr, substr)
				}
			}
		})
	}
}

func TestWrap(t *testing.T) {
	if Wrap(KindEngine, "op", "msg", nil) != nil {
		t.Error("Wrap(nil) should return nil")
	}

	original := errors.New("original error")
	wrapped := Wrap(KindEngine, "detect", "wrapped", original)
	if !errors.Is(wrapped, original) {
		t.Error("Unwrap should return the original error")
	}

	// Already-typed errors keep their kind.
	inner := New(KindInput, "normalize", "bad dims")
	rewrapped := Wrap(KindEngine, "detect", "outer", fmt.Errorf("context: %w", inner))
	if !IsKind(rewrapped, KindInput) {
		t.Errorf("expected kind %s to survive rewrapping, got %s", KindInput, KindOf(rewrapped))
	}
}

func TestIsKind(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		kind     Kind
		expected bool
	}{
		{"direct match", New(KindEngineUnavailable, "refine", "no engine"), KindEngineUnavailable, true},
		{"wrapped match", fmt.Errorf("outer: %w", New(KindInput, "x", "y")), KindInput, true},
		{"mismatch", New(KindConfig, "load", "bad"), KindInput, false},
		{"untyped", errors.New("plain"), KindInput, false},
		{"nil", nil, KindInput, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsKind(tt.err, tt.kind); got != tt.expected {
				t.Errorf("IsKind() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestKindOf(t *testing.T) {
	if got := KindOf(errors.New("plain")); got != KindUnknown {
		t.Errorf("KindOf(untyped) = %s, want %s", got, KindUnknown)
	}
	if got := KindOf(New(KindEngine, "x", "y")); got != KindEngine {
		t.Errorf("KindOf = %s, want %s", got, KindEngine)
	}
}
