package formance

import (
	"context"
	"testing"

	"resale-escrow-go/internal/models"

	"github.com/shopspring/decimal"
)

// ---------- Unit tests for pure helpers (no Formance stack needed) ----------

func TestFormanceAsset(t *testing.T) {
	tests := []struct {
		currency string
		want     string
	}{
		{"usd", "USD/2"},
		{"EUR", "EUR/2"},
		{"jpy", "JPY/0"},
		{"CHF", "CHF/2"}, // default precision
	}
	for _, tt := range tests {
		if got := formanceAsset(tt.currency); got != tt.want {
			t.Errorf("formanceAsset(%q) = %q, want %q", tt.currency, got, tt.want)
		}
	}
}

func TestMinorUnits(t *testing.T) {
	tests := []struct {
		amount   string
		currency string
		want     string
	}{
		{"12.34", "usd", "1234"},
		{"90", "usd", "9000"},
		{"0.005", "usd", "0"},
		{"1500", "jpy", "1500"},
	}
	for _, tt := range tests {
		got := minorUnits(decimal.RequireFromString(tt.amount), tt.currency)
		if got != tt.want {
			t.Errorf("minorUnits(%s %s) = %q, want %q", tt.amount, tt.currency, got, tt.want)
		}
	}
}

func TestIsConflictError(t *testing.T) {
	// nil error should not be a conflict
	if isConflictError(nil) {
		t.Error("nil should not be a conflict error")
	}
}

func TestNewServiceRequiresCredentials(t *testing.T) {
	if _, err := NewService(context.Background(), models.FormanceConfig{StackURL: "http://localhost"}); err == nil {
		t.Fatal("expected error for missing client credentials")
	}
}

func TestNopJournalSkips(t *testing.T) {
	outcome := Nop{}.RecordRelease(context.Background(), models.Order{Id: "o1"}, models.PayoutResult{})
	if !outcome.Skipped || outcome.Failed() {
		t.Errorf("expected skipped outcome, got %+v", outcome)
	}
}
