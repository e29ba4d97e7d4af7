package main

import (
	"strings"
	"testing"

	"resale-escrow-go/internal/models"
)

const validExport = `
listings:
  - id: lst-1
    seller_id: seller-1
    event_name: Night Show
    event_date: "2026-12-01T20:00:00Z"
    asking_price: "120.00"
    original_price: "100.00"
    currency: usd
orders:
  - id: ord-1
    listing_id: lst-1
    buyer_id: buyer-1
    amount: "120.00"
    seller_payout_amount: "108.00"
    currency: USD
    transfer_deadline: "2026-11-02T12:00:00Z"
`

func TestValidateExport(t *testing.T) {
	f, err := parseFile([]byte(validExport))
	if err != nil {
		t.Fatalf("parseFile() error = %v", err)
	}
	b, err := f.validate()
	if err != nil {
		t.Fatalf("validate() error = %v", err)
	}
	if len(b.listings) != 1 || len(b.orders) != 1 {
		t.Fatalf("got %d listings, %d orders", len(b.listings), len(b.orders))
	}
	if b.listings[0].Currency != "USD" {
		t.Errorf("listing currency = %s, want USD", b.listings[0].Currency)
	}
	o := b.orders[0]
	if o.order.SellerId != "seller-1" {
		t.Errorf("seller = %q, want seller-1 from the listing", o.order.SellerId)
	}
	if o.order.Status != models.OrderStatusPaid || o.order.EscrowStatus != models.EscrowPendingTransfer {
		t.Errorf("order state = %s/%s", o.order.Status, o.order.EscrowStatus)
	}
	if o.deadline.Day() != 2 {
		t.Errorf("deadline = %s", o.deadline)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name    string
		replace [2]string
		wantErr string
	}{
		{"payout above amount", [2]string{`"108.00"`, `"130.00"`}, "exceeds amount"},
		{"bad deadline", [2]string{`"2026-11-02T12:00:00Z"`, `tomorrow`}, "transfer_deadline"},
		{"buyer is seller", [2]string{"buyer_id: buyer-1", "buyer_id: seller-1"}, "same user"},
		{"unknown listing", [2]string{"listing_id: lst-1", "listing_id: lst-9"}, "seller unknown"},
		{"zero asking price", [2]string{`"120.00"
    original_price`, `"0"
    original_price`}, "must be positive"},
		{"bad currency", [2]string{"currency: usd", "currency: dollars"}, "invalid currency"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := parseFile([]byte(strings.Replace(validExport, tt.replace[0], tt.replace[1], 1)))
			if err != nil {
				t.Fatalf("parseFile() error = %v", err)
			}
			_, err = f.validate()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("validate() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestParseFileRejectsUnknownFields(t *testing.T) {
	if _, err := parseFile([]byte("listings:\n  - id: a\n    colour: red\n")); err == nil {
		t.Error("expected error for unknown field")
	}
}
