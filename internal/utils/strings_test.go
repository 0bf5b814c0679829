package utils

import "testing"

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		in, expected string
	}{
		{"  A@A.com ", "a@a.com"},
		{"a@a.com", "a@a.com"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeEmail(tt.in); got != tt.expected {
			t.Errorf("NormalizeEmail(%q) = %q, want %q", tt.in, got, tt.expected)
		}
	}
}

func TestNormalizeString(t *testing.T) {
	if got := NormalizeString("\t Garden Room \n"); got != "Garden Room" {
		t.Fatalf("unexpected %q", got)
	}
}
