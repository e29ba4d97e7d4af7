package prime

import (
	"context"
	"testing"

	"resale-escrow-go/internal/models"
)

func TestParseNetwork(t *testing.T) {
	tests := []struct {
		network  string
		wantErr  bool
		wantId   string
		wantType string
	}{
		{"ethereum-mainnet", false, "ethereum", "mainnet"},
		{"base-mainnet", false, "base", "mainnet"},
		{"solana", true, "", ""},
		{"", true, "", ""},
		{"-mainnet", true, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.network, func(t *testing.T) {
			got, err := parseNetwork(tt.network)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseNetwork(%q) error = %v, wantErr %v", tt.network, err, tt.wantErr)
			}
			if err == nil && (got.Id != tt.wantId || got.Type != tt.wantType) {
				t.Errorf("parseNetwork(%q) = %+v", tt.network, got)
			}
		})
	}
}

func TestPrimeIdempotencyKeyIsStable(t *testing.T) {
	a := primeIdempotencyKey("escrow-release-order-1")
	b := primeIdempotencyKey("escrow-release-order-1")
	c := primeIdempotencyKey("escrow-release-order-2")
	if a != b {
		t.Errorf("Expected stable key, got %s and %s", a, b)
	}
	if a == c {
		t.Errorf("Expected distinct keys per order")
	}
}

func TestAccountStatus(t *testing.T) {
	s := &Service{}
	tests := []struct {
		name    string
		account models.PayoutAccount
		active  bool
	}{
		{"registered", models.PayoutAccount{AccountId: "0xabc", Network: "ethereum-mainnet"}, true},
		{"missing address", models.PayoutAccount{Network: "ethereum-mainnet"}, false},
		{"bad network", models.PayoutAccount{AccountId: "0xabc", Network: "eth"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, err := s.AccountStatus(context.Background(), tt.account)
			if err != nil {
				t.Fatalf("AccountStatus: %v", err)
			}
			if status.Active != tt.active {
				t.Errorf("Expected active=%v, got %+v", tt.active, status)
			}
		})
	}
}

func TestNewServiceRequiresSettings(t *testing.T) {
	if _, err := NewService(models.PrimeConfig{AccessKey: "k"}, 0); err == nil {
		t.Fatal("Expected error for incomplete Prime settings")
	}
}
