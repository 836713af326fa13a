package validation

import (
	"strings"
	"testing"
)

func TestIsValidActivityKind(t *testing.T) {
	tests := []struct {
		name  string
		kind  string
		valid bool
	}{
		{
			name:  "lottery",
			kind:  "lottery",
			valid: true,
		},
		{
			name:  "transfer",
			kind:  "transfer",
			valid: true,
		},
		{
			name:  "unknown kind",
			kind:  "poker",
			valid: false,
		},
		{
			name:  "empty",
			kind:  "",
			valid: false,
		},
		{
			name:  "case sensitive",
			kind:  "Lottery",
			valid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidActivityKind(tt.kind); got != tt.valid {
				t.Fatalf("IsValidActivityKind(%q) = %v, want %v", tt.kind, got, tt.valid)
			}
		})
	}
}

func TestIsValidUsername(t *testing.T) {
	tests := []struct {
		name     string
		username string
		valid    bool
	}{
		{
			name:     "simple",
			username: "alice",
			valid:    true,
		},
		{
			name:     "with separators",
			username: "a.b_c-d",
			valid:    true,
		},
		{
			name:     "empty",
			username: "",
			valid:    false,
		},
		{
			name:     "contains space",
			username: "ali ce",
			valid:    false,
		},
		{
			name:     "contains unicode",
			username: "алиса",
			valid:    false,
		},
		{
			name:     "too long",
			username: strings.Repeat("a", 65),
			valid:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidUsername(tt.username); got != tt.valid {
				t.Fatalf("IsValidUsername(%q) = %v, want %v", tt.username, got, tt.valid)
			}
		})
	}
}

func TestIsValidCorrelationID(t *testing.T) {
	tests := []struct {
		name  string
		id    string
		valid bool
	}{
		{
			name:  "business event id",
			id:    "problem-1042:accept",
			valid: true,
		},
		{
			name:  "uuid",
			id:    "7c9e6679-7425-40de-944b-e07fc1f90ae7",
			valid: true,
		},
		{
			name:  "empty",
			id:    "",
			valid: false,
		},
		{
			name:  "contains space",
			id:    "round 1",
			valid: false,
		},
		{
			name:  "too long",
			id:    strings.Repeat("x", 129),
			valid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidCorrelationID(tt.id); got != tt.valid {
				t.Fatalf("IsValidCorrelationID(%q) = %v, want %v", tt.id, got, tt.valid)
			}
		})
	}
}
