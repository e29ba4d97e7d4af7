package stripeconnect

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestMinorUnits(t *testing.T) {
	tests := []struct {
		amount   string
		currency string
		want     int64
	}{
		{"108.00", "USD", 10800},
		{"0.01", "usd", 1},
		{"19.995", "EUR", 2000},
		{"250", "GBP", 25000},
		{"12000", "JPY", 12000},
		{"12000", "jpy", 12000},
		{"999.6", "JPY", 1000},
	}

	for _, tt := range tests {
		t.Run(tt.amount+" "+tt.currency, func(t *testing.T) {
			if got := minorUnits(decimal.RequireFromString(tt.amount), tt.currency); got != tt.want {
				t.Errorf("minorUnits(%s, %s) = %d, want %d", tt.amount, tt.currency, got, tt.want)
			}
		})
	}
}

func TestNewProcessorRequiresKey(t *testing.T) {
	if _, err := NewProcessor("", 0); err == nil {
		t.Fatal("Expected error for empty secret key")
	}

	p, err := NewProcessor("sk_test_123", 0)
	if err != nil {
		t.Fatalf("NewProcessor: %v", err)
	}
	if p.Rail() != "stripe" {
		t.Errorf("Unexpected rail %s", p.Rail())
	}
}
