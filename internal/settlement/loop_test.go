package settlement_test

import (
	"context"
	"testing"
	"time"

	"resale-escrow-go/internal/models"
	"resale-escrow-go/internal/settlement"
)

func TestLoopRejectsNonPositiveInterval(t *testing.T) {
	f := setup(t)
	loop := settlement.NewLoop(f.scheduler, secret, 0)
	if err := loop.Start(context.Background()); err == nil {
		t.Fatal("expected an error for a zero interval")
	}
}

func TestLoopRunsImmediatelyAndStops(t *testing.T) {
	f := setup(t)
	registerStripe(t, f.store)
	seedOrder(t, f.store, "order-1", models.EscrowBuyerConfirmationPending, ptr(now.Add(-time.Hour)), now.Add(-48*time.Hour))

	loop := settlement.NewLoop(f.scheduler, secret, time.Hour)
	if err := loop.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	loop.Stop()

	order, err := f.store.GetOrder(context.Background(), "order-1")
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	if order.EscrowStatus != models.EscrowReleased {
		t.Errorf("expected the first tick to release the order, got %s", order.EscrowStatus)
	}
}
