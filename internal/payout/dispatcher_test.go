package payout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"resale-escrow-go/internal/models"
	"resale-escrow-go/internal/store"

	"github.com/shopspring/decimal"
)

type fakeAccounts map[string]models.PayoutAccount

func (f fakeAccounts) GetPayoutAccount(_ context.Context, sellerId string) (*models.PayoutAccount, error) {
	a, ok := f[sellerId]
	if !ok {
		return nil, fmt.Errorf("seller %s: %w", sellerId, store.ErrNotFound)
	}
	return &a, nil
}

type fakeProcessor struct {
	mu          sync.Mutex
	active      bool
	statusErr   error
	transferErr error
	block       bool
	requests    []models.TransferRequest
}

func (f *fakeProcessor) Rail() models.PayoutRail { return models.RailStripe }

func (f *fakeProcessor) AccountStatus(_ context.Context, _ models.PayoutAccount) (models.AccountStatus, error) {
	return models.AccountStatus{Active: f.active, Reason: "payouts disabled"}, f.statusErr
}

func (f *fakeProcessor) CreateTransfer(ctx context.Context, req models.TransferRequest) (models.TransferResult, error) {
	if f.block {
		<-ctx.Done()
		return models.TransferResult{}, ctx.Err()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.transferErr != nil {
		return models.TransferResult{}, f.transferErr
	}
	return models.TransferResult{TransferId: "tr_" + req.OrderId}, nil
}

func testOrder() models.Order {
	return models.Order{
		Id:                 "order-1",
		SellerId:           "seller-1",
		Amount:             decimal.RequireFromString("100.00"),
		SellerPayoutAmount: decimal.RequireFromString("90.00"),
		Currency:           "usd",
	}
}

var connected = fakeAccounts{"seller-1": {SellerId: "seller-1", Rail: models.RailStripe, AccountId: "acct_123"}}

func TestDispatchCompleted(t *testing.T) {
	proc := &fakeProcessor{active: true}
	d := NewDispatcher(connected, NewRouter(proc), "usd", time.Second)

	result := d.Dispatch(context.Background(), testOrder(), ReasonAutoRelease)
	if result.Status != models.PayoutStatusCompleted || result.TransferId != "tr_order-1" {
		t.Fatalf("Unexpected result: %+v", result)
	}
	if len(proc.requests) != 1 {
		t.Fatalf("Expected 1 transfer, got %d", len(proc.requests))
	}
	req := proc.requests[0]
	if req.IdempotencyKey != "escrow-release-order-1" {
		t.Errorf("Unexpected idempotency key %q", req.IdempotencyKey)
	}
	if !req.Amount.Equal(decimal.RequireFromString("90")) {
		t.Errorf("Expected seller payout amount, got %s", req.Amount)
	}
	if req.Metadata["auto_release"] != "true" || req.Metadata["order_id"] != "order-1" {
		t.Errorf("Unexpected metadata %v", req.Metadata)
	}
}

func TestDispatchPendingConnect(t *testing.T) {
	tests := []struct {
		name     string
		accounts fakeAccounts
		proc     *fakeProcessor
	}{
		{"no payout account", fakeAccounts{}, &fakeProcessor{active: true}},
		{"account not active", connected, &fakeProcessor{active: false}},
		{"rail without processor", fakeAccounts{"seller-1": {SellerId: "seller-1", Rail: models.RailPrime, AccountId: "0xabc"}}, &fakeProcessor{active: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDispatcher(tt.accounts, NewRouter(tt.proc), "usd", time.Second)
			result := d.Dispatch(context.Background(), testOrder(), ReasonAutoRelease)
			if result.Status != models.PayoutStatusPendingConnect {
				t.Errorf("Expected pending_connect, got %+v", result)
			}
			if result.Err != nil {
				t.Errorf("pending_connect is not an error, got %v", result.Err)
			}
			if len(tt.proc.requests) != 0 {
				t.Errorf("Expected no transfer, got %d", len(tt.proc.requests))
			}
		})
	}
}

func TestDispatchFailures(t *testing.T) {
	boom := errors.New("processor unavailable")

	d := NewDispatcher(connected, NewRouter(&fakeProcessor{active: true, transferErr: boom}), "usd", time.Second)
	result := d.Dispatch(context.Background(), testOrder(), ReasonAutoRelease)
	if result.Status != models.PayoutStatusFailed || !errors.Is(result.Err, boom) {
		t.Errorf("Expected failed with processor error, got %+v", result)
	}

	d = NewDispatcher(connected, NewRouter(&fakeProcessor{statusErr: boom}), "usd", time.Second)
	result = d.Dispatch(context.Background(), testOrder(), ReasonAutoRelease)
	if result.Status != models.PayoutStatusFailed || !errors.Is(result.Err, boom) {
		t.Errorf("Expected failed status lookup, got %+v", result)
	}

	order := testOrder()
	order.SellerPayoutAmount = decimal.Zero
	result = d.Dispatch(context.Background(), order, ReasonAutoRelease)
	if !errors.Is(result.Err, ErrInvalidAmount) {
		t.Errorf("Expected ErrInvalidAmount, got %+v", result)
	}
}

func TestDispatchTimesOut(t *testing.T) {
	d := NewDispatcher(connected, NewRouter(&fakeProcessor{active: true, block: true}), "usd", 20*time.Millisecond)

	start := time.Now()
	result := d.Dispatch(context.Background(), testOrder(), ReasonBuyerConfirmed)
	if result.Status != models.PayoutStatusFailed || !errors.Is(result.Err, context.DeadlineExceeded) {
		t.Fatalf("Expected deadline exceeded, got %+v", result)
	}
	if time.Since(start) > time.Second {
		t.Errorf("Dispatch did not honour the processor timeout")
	}
}

func TestDispatchReusesExistingTransfer(t *testing.T) {
	proc := &fakeProcessor{active: true}
	d := NewDispatcher(connected, NewRouter(proc), "usd", time.Second)

	order := testOrder()
	order.PayoutTransferId = "tr_existing"
	result := d.Dispatch(context.Background(), order, ReasonAutoRelease)
	if result.Status != models.PayoutStatusCompleted || result.TransferId != "tr_existing" {
		t.Errorf("Unexpected result %+v", result)
	}
	if len(proc.requests) != 0 {
		t.Errorf("Expected no new transfer, got %d", len(proc.requests))
	}
}
