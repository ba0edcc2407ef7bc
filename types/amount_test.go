package types

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"integer", "100", "100", false},
		{"two places", "99.99", "99.99", false},
		{"high precision", "0.001", "0.001", false},
		{"negative", "-5", "-5", false},
		{"empty", "", "", true},
		{"garbage", "abc", "", true},
		{"double dot", "1.2.3", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAmount(%q) failed: %v", tt.input, err)
			}
			if got.String() != tt.want {
				t.Errorf("got %s, want %s", got.String(), tt.want)
			}
		})
	}
}

func TestRoundUpAmount(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"650", "650.00"},
		{"650.00", "650.00"},
		{"679.932", "679.94"},
		{"0.001", "0.01"},
		{"1.005", "1.01"},
		{"1.01", "1.01"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := FormatAmount(RoundUpAmount(MustAmount(tt.input)))
			if got != tt.want {
				t.Errorf("RoundUpAmount(%s) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestFormatAmount(t *testing.T) {
	if got := FormatAmount(decimal.NewFromInt(650)); got != "650.00" {
		t.Errorf("got %s, want 650.00", got)
	}
	if got := FormatAmount(MustAmount("0.1")); got != "0.10" {
		t.Errorf("got %s, want 0.10", got)
	}
}
