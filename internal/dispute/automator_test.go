package dispute_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"resale-escrow-go/internal/clock"
	"resale-escrow-go/internal/database"
	"resale-escrow-go/internal/dispute"
	"resale-escrow-go/internal/escrow"
	"resale-escrow-go/internal/models"
	"resale-escrow-go/internal/notify"
	"resale-escrow-go/internal/reputation"

	"github.com/shopspring/decimal"
)

var now = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

type fakeStriker struct {
	strikes []reputation.Strike
	err     error
}

func (f *fakeStriker) IssueStrike(_ context.Context, s reputation.Strike) models.Outcome {
	f.strikes = append(f.strikes, s)
	if f.err != nil {
		return models.FailedWith("reputation_strike", f.err)
	}
	return models.Succeeded("reputation_strike")
}

type fixture struct {
	store     *database.Service
	automator *dispute.Automator
	striker   *fakeStriker
}

func setup(t *testing.T, strikeErr error) fixture {
	t.Helper()
	svc, err := database.NewService(context.Background(), models.DatabaseConfig{
		Path:         ":memory:",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		PingTimeout:  5 * time.Second,
	})
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(svc.Close)

	clk := clock.NewFixed(now)
	striker := &fakeStriker{err: strikeErr}
	automator := dispute.NewAutomator(svc, escrow.NewMachine(svc, clk), striker, notify.NewEmitter(svc, clk), clk, 24*time.Hour)
	return fixture{store: svc, automator: automator, striker: striker}
}

func seedOverdue(t *testing.T, svc *database.Service) models.Transfer {
	t.Helper()
	ctx := context.Background()
	if err := svc.CreateListing(ctx, models.Listing{
		Id: "listing-1", SellerId: "seller-1", EventName: "Show", EventDate: now.Add(72 * time.Hour),
		Currency: "usd", Status: models.ListingSold,
	}); err != nil {
		t.Fatalf("CreateListing: %v", err)
	}
	order := models.Order{
		Id:                 "order-1",
		ListingId:          "listing-1",
		BuyerId:            "buyer-1",
		SellerId:           "seller-1",
		Amount:             decimal.NewFromInt(100),
		SellerPayoutAmount: decimal.NewFromInt(90),
		Currency:           "usd",
		Status:             models.OrderStatusPaid,
		EscrowStatus:       models.EscrowPendingTransfer,
	}
	if err := svc.CreateOrder(ctx, order, now.Add(-25*time.Hour)); err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	transfer, err := svc.GetTransfer(ctx, order.Id)
	if err != nil {
		t.Fatalf("GetTransfer: %v", err)
	}
	return *transfer
}

func TestEscalateOverdueOpensDispute(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()
	transfer := seedOverdue(t, f.store)

	d, err := f.automator.EscalateOverdue(ctx, transfer)
	if err != nil {
		t.Fatalf("EscalateOverdue: %v", err)
	}
	if d == nil {
		t.Fatal("Expected a dispute")
	}

	order, err := f.store.GetOrder(ctx, "order-1")
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	if order.Status != models.OrderStatusDisputed || order.EscrowStatus != models.EscrowDisputed {
		t.Errorf("Expected disputed order, got status=%s escrow=%s", order.Status, order.EscrowStatus)
	}
	if order.DisputeId != d.Id {
		t.Errorf("Expected dispute %s linked, got %q", d.Id, order.DisputeId)
	}

	stored, err := f.store.GetDispute(ctx, d.Id)
	if err != nil {
		t.Fatalf("GetDispute: %v", err)
	}
	if stored.Reason != models.DisputeTicketNotReceived || stored.OpenedBy != models.DisputeOpenedBySystem {
		t.Errorf("Unexpected dispute %+v", stored)
	}
	if !stored.ResponseDeadline.Equal(now.Add(24 * time.Hour)) {
		t.Errorf("Expected response deadline %v, got %v", now.Add(24*time.Hour), stored.ResponseDeadline)
	}

	updated, err := f.store.GetTransfer(ctx, "order-1")
	if err != nil {
		t.Fatalf("GetTransfer: %v", err)
	}
	if updated.Status != models.TransferFailed {
		t.Errorf("Expected transfer failed, got %s", updated.Status)
	}

	if len(f.striker.strikes) != 1 || f.striker.strikes[0].SellerId != "seller-1" {
		t.Errorf("Expected one strike for seller-1, got %+v", f.striker.strikes)
	}

	buyerNotes, _ := f.store.ListNotifications(ctx, "buyer-1", 10)
	sellerNotes, _ := f.store.ListNotifications(ctx, "seller-1", 10)
	if len(buyerNotes) != 1 || buyerNotes[0].Type != models.NotificationDisputeOpened {
		t.Errorf("Expected buyer dispute_opened, got %+v", buyerNotes)
	}
	if len(sellerNotes) != 1 || sellerNotes[0].Type != models.NotificationTransferMissed {
		t.Errorf("Expected seller transfer_missed, got %+v", sellerNotes)
	}
}

func TestEscalateOverdueIsIdempotent(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()
	transfer := seedOverdue(t, f.store)

	if _, err := f.automator.EscalateOverdue(ctx, transfer); err != nil {
		t.Fatalf("first EscalateOverdue: %v", err)
	}
	d, err := f.automator.EscalateOverdue(ctx, transfer)
	if err != nil {
		t.Fatalf("second EscalateOverdue: %v", err)
	}
	if d != nil {
		t.Errorf("Expected no second dispute, got %+v", d)
	}
	if len(f.striker.strikes) != 1 {
		t.Errorf("Expected a single strike, got %d", len(f.striker.strikes))
	}
}

func TestStrikeFailureDoesNotBlockDispute(t *testing.T) {
	f := setup(t, errors.New("reputation service down"))
	ctx := context.Background()
	transfer := seedOverdue(t, f.store)

	d, err := f.automator.EscalateOverdue(ctx, transfer)
	if err != nil {
		t.Fatalf("EscalateOverdue: %v", err)
	}
	if d == nil {
		t.Fatal("Expected dispute despite strike failure")
	}
	order, _ := f.store.GetOrder(ctx, "order-1")
	if order.EscrowStatus != models.EscrowDisputed {
		t.Errorf("Expected disputed, got %s", order.EscrowStatus)
	}
}

func TestOpenForBuyerLeavesTransferAlone(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()
	seedOverdue(t, f.store)

	order, _ := f.store.GetOrder(ctx, "order-1")
	d, err := f.automator.OpenForBuyer(ctx, *order, models.DisputeTicketInvalid, "barcode rejected at the gate")
	if err != nil {
		t.Fatalf("OpenForBuyer: %v", err)
	}
	if d == nil || d.OpenedBy != "buyer-1" {
		t.Fatalf("Expected buyer dispute, got %+v", d)
	}
	transfer, _ := f.store.GetTransfer(ctx, "order-1")
	if transfer.Status != models.TransferPending {
		t.Errorf("Expected transfer untouched, got %s", transfer.Status)
	}
	if len(f.striker.strikes) != 0 {
		t.Errorf("Expected no strike for buyer dispute")
	}
}
