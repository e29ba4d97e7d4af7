package settlement_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"resale-escrow-go/internal/clock"
	"resale-escrow-go/internal/database"
	"resale-escrow-go/internal/dispute"
	"resale-escrow-go/internal/escrow"
	"resale-escrow-go/internal/models"
	"resale-escrow-go/internal/notify"
	"resale-escrow-go/internal/payout"
	"resale-escrow-go/internal/reputation"
	"resale-escrow-go/internal/settlement"

	"github.com/shopspring/decimal"
)

const secret = "cron-secret"

var now = time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)

type countingProcessor struct {
	mu        sync.Mutex
	active    bool
	err       error
	transfers []models.TransferRequest
	onCreate  func(orderId string)
}

func (p *countingProcessor) Rail() models.PayoutRail { return models.RailStripe }

func (p *countingProcessor) AccountStatus(context.Context, models.PayoutAccount) (models.AccountStatus, error) {
	return models.AccountStatus{Active: p.active}, nil
}

func (p *countingProcessor) CreateTransfer(_ context.Context, req models.TransferRequest) (models.TransferResult, error) {
	if p.onCreate != nil {
		p.onCreate(req.OrderId)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return models.TransferResult{}, p.err
	}
	p.transfers = append(p.transfers, req)
	return models.TransferResult{TransferId: "tr_" + req.OrderId}, nil
}

type noStrikes struct{}

func (noStrikes) IssueStrike(context.Context, reputation.Strike) models.Outcome {
	return models.SkippedOutcome("reputation_strike")
}

type fixture struct {
	store     *database.Service
	processor *countingProcessor
	scheduler *settlement.Scheduler
}

func setup(t *testing.T) fixture {
	t.Helper()
	return setupWith(t, func(svc *database.Service) settlement.Store { return svc })
}

// setupWith lets a test put a wrapper in front of the store the scheduler selects from.
func setupWith(t *testing.T, wrap func(*database.Service) settlement.Store) fixture {
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
	processor := &countingProcessor{active: true}
	machine := escrow.NewMachine(svc, clk)
	emitter := notify.NewEmitter(svc, clk)

	scheduler := settlement.NewScheduler(settlement.SchedulerConfig{
		Store:               wrap(svc),
		Machine:             machine,
		Payouts:             payout.NewDispatcher(svc, payout.NewRouter(processor), "usd", time.Second),
		Disputes:            dispute.NewAutomator(svc, machine, noStrikes{}, emitter, clk, 24*time.Hour),
		Notifier:            emitter,
		Clock:               clk,
		Secret:              secret,
		Workers:             4,
		BatchSize:           100,
		ListingExpiryWindow: 2 * time.Hour,
	})
	return fixture{store: svc, processor: processor, scheduler: scheduler}
}

func seedListing(t *testing.T, svc *database.Service, id string, eventDate time.Time, status models.ListingStatus) {
	t.Helper()
	err := svc.CreateListing(context.Background(), models.Listing{
		Id: id, SellerId: "seller-1", EventName: "Festival", EventDate: eventDate,
		AskingPrice: decimal.NewFromInt(100), Currency: "usd", Status: status,
	})
	if err != nil {
		t.Fatalf("CreateListing: %v", err)
	}
}

func seedOrder(t *testing.T, svc *database.Service, id string, status models.EscrowStatus, autoRelease *time.Time, deadline time.Time) {
	t.Helper()
	seedListing(t, svc, "listing-"+id, now.Add(10*24*time.Hour), models.ListingSold)
	err := svc.CreateOrder(context.Background(), models.Order{
		Id:                     id,
		ListingId:              "listing-" + id,
		BuyerId:                "buyer-1",
		SellerId:               "seller-1",
		Amount:                 decimal.NewFromInt(100),
		SellerPayoutAmount:     decimal.NewFromInt(90),
		Currency:               "usd",
		Status:                 models.OrderStatusPaid,
		EscrowStatus:           status,
		AutoReleaseScheduledAt: autoRelease,
	}, deadline)
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
}

func registerStripe(t *testing.T, svc *database.Service) {
	t.Helper()
	if err := svc.RegisterPayoutAccount(context.Background(), models.PayoutAccount{
		SellerId: "seller-1", Rail: models.RailStripe, AccountId: "acct_123",
	}); err != nil {
		t.Fatalf("RegisterPayoutAccount: %v", err)
	}
}

func ptr(t time.Time) *time.Time { return &t }

func TestRunRejectsBadCredential(t *testing.T) {
	f := setup(t)
	if _, err := f.scheduler.Run(context.Background(), "wrong"); !errors.Is(err, settlement.ErrUnauthorized) {
		t.Fatalf("Expected ErrUnauthorized, got %v", err)
	}
}

func TestRunWithoutSecretIsMisconfigured(t *testing.T) {
	s := settlement.NewScheduler(settlement.SchedulerConfig{})
	if _, err := s.Run(context.Background(), ""); !errors.Is(err, settlement.ErrMisconfigured) {
		t.Fatalf("Expected ErrMisconfigured, got %v", err)
	}
}

func TestRunWithMissingCollaboratorIsMisconfigured(t *testing.T) {
	f := setup(t)
	machine := escrow.NewMachine(f.store, clock.NewFixed(now))
	payer := payout.NewDispatcher(f.store, payout.NewRouter(), "usd", time.Second)
	emitter := notify.NewEmitter(f.store, clock.NewFixed(now))
	disputes := dispute.NewAutomator(f.store, machine, noStrikes{}, emitter, clock.NewFixed(now), time.Hour)

	tests := []struct {
		name string
		cfg  settlement.SchedulerConfig
	}{
		{"no payouts", settlement.SchedulerConfig{Store: f.store, Machine: machine, Disputes: disputes, Notifier: emitter, Secret: secret}},
		{"no disputes", settlement.SchedulerConfig{Store: f.store, Machine: machine, Payouts: payer, Notifier: emitter, Secret: secret}},
		{"no notifier", settlement.SchedulerConfig{Store: f.store, Machine: machine, Payouts: payer, Disputes: disputes, Secret: secret}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := settlement.NewScheduler(tt.cfg).Run(context.Background(), secret); !errors.Is(err, settlement.ErrMisconfigured) {
				t.Errorf("Expected ErrMisconfigured, got %v", err)
			}
		})
	}
}

func TestAutoReleaseIsIdempotent(t *testing.T) {
	f := setup(t)
	registerStripe(t, f.store)
	seedOrder(t, f.store, "order-1", models.EscrowBuyerConfirmationPending, ptr(now.Add(-time.Hour)), now.Add(-48*time.Hour))
	ctx := context.Background()

	for run := 1; run <= 2; run++ {
		summary, err := f.scheduler.Run(ctx, secret)
		if err != nil {
			t.Fatalf("run %d: %v", run, err)
		}
		want := 0
		if run == 1 {
			want = 1
		}
		if summary.AutoReleased != want {
			t.Errorf("run %d: expected %d auto-released, got %d", run, want, summary.AutoReleased)
		}
		if len(summary.Errors) != 0 {
			t.Errorf("run %d: unexpected errors %+v", run, summary.Errors)
		}
	}

	order, err := f.store.GetOrder(ctx, "order-1")
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	if order.EscrowStatus != models.EscrowReleased || order.Status != models.OrderStatusCompleted {
		t.Errorf("Expected released/completed, got %s/%s", order.EscrowStatus, order.Status)
	}
	if order.SellerPayoutStatus != models.PayoutStatusCompleted || order.PayoutTransferId != "tr_order-1" {
		t.Errorf("Expected completed payout, got %s %q", order.SellerPayoutStatus, order.PayoutTransferId)
	}
	if len(f.processor.transfers) != 1 {
		t.Fatalf("Expected exactly one processor transfer, got %d", len(f.processor.transfers))
	}
	req := f.processor.transfers[0]
	if req.IdempotencyKey != "escrow-release-order-1" || req.Metadata["auto_release"] != "true" {
		t.Errorf("Unexpected transfer request %+v", req)
	}

	transfer, _ := f.store.GetTransfer(ctx, "order-1")
	if transfer.Status != models.TransferConfirmed {
		t.Errorf("Expected transfer confirmed, got %s", transfer.Status)
	}

	sellerNotes, _ := f.store.ListNotifications(ctx, "seller-1", 10)
	buyerNotes, _ := f.store.ListNotifications(ctx, "buyer-1", 10)
	if len(sellerNotes) != 1 || sellerNotes[0].Type != models.NotificationFundsReleased {
		t.Errorf("Expected one funds_released notice, got %+v", sellerNotes)
	}
	if len(buyerNotes) != 1 || buyerNotes[0].Type != models.NotificationOrderCompleted {
		t.Errorf("Expected one order_completed notice, got %+v", buyerNotes)
	}
}

func TestAutoReleaseWithoutPayoutAccountIsPendingConnect(t *testing.T) {
	f := setup(t)
	seedOrder(t, f.store, "order-1", models.EscrowBuyerConfirmationPending, ptr(now.Add(-time.Minute)), now.Add(-48*time.Hour))

	summary, err := f.scheduler.Run(context.Background(), secret)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.AutoReleased != 1 {
		t.Errorf("Expected 1 auto-released, got %d", summary.AutoReleased)
	}

	order, _ := f.store.GetOrder(context.Background(), "order-1")
	if order.EscrowStatus != models.EscrowReleased || order.SellerPayoutStatus != models.PayoutStatusPendingConnect {
		t.Errorf("Expected released with pending_connect, got %s/%s", order.EscrowStatus, order.SellerPayoutStatus)
	}
	if len(f.processor.transfers) != 0 {
		t.Errorf("Expected no transfer, got %d", len(f.processor.transfers))
	}
}

func TestPayoutFailureStillReleases(t *testing.T) {
	f := setup(t)
	registerStripe(t, f.store)
	f.processor.err = errors.New("processor unavailable")
	seedOrder(t, f.store, "order-1", models.EscrowBuyerConfirmationPending, ptr(now.Add(-time.Minute)), now.Add(-48*time.Hour))

	summary, err := f.scheduler.Run(context.Background(), secret)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.AutoReleased != 1 {
		t.Errorf("Expected 1 auto-released, got %d", summary.AutoReleased)
	}
	if len(summary.Errors) != 1 || summary.Errors[0].Type != models.SettlementErrPayout || summary.Errors[0].OrderId != "order-1" {
		t.Errorf("Expected one payout error, got %+v", summary.Errors)
	}

	order, _ := f.store.GetOrder(context.Background(), "order-1")
	if order.EscrowStatus != models.EscrowReleased || order.SellerPayoutStatus != models.PayoutStatusFailed {
		t.Errorf("Expected released with failed payout, got %s/%s", order.EscrowStatus, order.SellerPayoutStatus)
	}
}

func TestOrderInsideConfirmationWindowIsNotReleased(t *testing.T) {
	f := setup(t)
	seedOrder(t, f.store, "order-1", models.EscrowBuyerConfirmationPending, ptr(now.Add(time.Hour)), now.Add(-48*time.Hour))

	summary, err := f.scheduler.Run(context.Background(), secret)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.AutoReleased != 0 {
		t.Errorf("Expected nothing released before the window closes, got %d", summary.AutoReleased)
	}
}

func TestExpiryPass(t *testing.T) {
	f := setup(t)
	seedListing(t, f.store, "soon", now.Add(90*time.Minute), models.ListingActive)
	seedListing(t, f.store, "unverified", now.Add(time.Hour), models.ListingPendingVerification)
	seedListing(t, f.store, "later", now.Add(5*time.Hour), models.ListingActive)
	seedListing(t, f.store, "sold", now.Add(time.Hour), models.ListingSold)

	summary, err := f.scheduler.Run(context.Background(), secret)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.ExpiredListings != 2 {
		t.Errorf("Expected 2 expired listings, got %d", summary.ExpiredListings)
	}
	later, _ := f.store.GetListing(context.Background(), "later")
	if later.Status != models.ListingActive {
		t.Errorf("Expected later listing untouched, got %s", later.Status)
	}
}

func TestRemindersAreMonotonic(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	seedOrder(t, f.store, "order-1", models.EscrowPendingTransfer, nil, now.Add(10*time.Hour))

	summary, err := f.scheduler.Run(ctx, secret)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.RemindersSent != 1 {
		t.Fatalf("Expected one 12h reminder, got %d", summary.RemindersSent)
	}

	transfer, _ := f.store.GetTransfer(ctx, "order-1")
	if !transfer.Reminder12hSent || transfer.Reminder2hSent {
		t.Errorf("Expected only the 12h flag set, got %+v", transfer)
	}

	summary, err = f.scheduler.Run(ctx, secret)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if summary.RemindersSent != 0 {
		t.Errorf("Expected no repeat reminder, got %d", summary.RemindersSent)
	}
	notes, _ := f.store.ListNotifications(ctx, "seller-1", 10)
	if len(notes) != 1 || notes[0].Type != models.NotificationTransferReminder {
		t.Errorf("Expected exactly one reminder notification, got %+v", notes)
	}
}

func TestLateTransferEscalates(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	seedOrder(t, f.store, "order-1", models.EscrowPendingTransfer, nil, now.Add(-25*time.Hour))

	transfer, _ := f.store.GetTransfer(ctx, "order-1")
	for _, kind := range []models.ReminderKind{models.Reminder12h, models.Reminder2h} {
		if _, err := f.store.MarkReminderSent(ctx, transfer.Id, kind); err != nil {
			t.Fatalf("MarkReminderSent: %v", err)
		}
	}

	summary, err := f.scheduler.Run(ctx, secret)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.DisputesCreated != 1 || summary.RemindersSent != 0 {
		t.Errorf("Expected 1 dispute and no reminders, got %+v", summary)
	}

	order, _ := f.store.GetOrder(ctx, "order-1")
	if order.Status != models.OrderStatusDisputed || order.EscrowStatus != models.EscrowDisputed || order.DisputeId == "" {
		t.Fatalf("Expected disputed order, got %+v", order)
	}
	d, err := f.store.GetDispute(ctx, order.DisputeId)
	if err != nil {
		t.Fatalf("GetDispute: %v", err)
	}
	if !d.ResponseDeadline.Equal(now.Add(24 * time.Hour)) {
		t.Errorf("Expected response deadline now+24h, got %v", d.ResponseDeadline)
	}
	transfer, _ = f.store.GetTransfer(ctx, "order-1")
	if transfer.Status != models.TransferFailed {
		t.Errorf("Expected transfer failed, got %s", transfer.Status)
	}

	summary, err = f.scheduler.Run(ctx, secret)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if summary.DisputesCreated != 0 {
		t.Errorf("Expected no second dispute, got %d", summary.DisputesCreated)
	}
}

func TestManyOrdersReleaseConcurrently(t *testing.T) {
	f := setup(t)
	registerStripe(t, f.store)
	for _, id := range []string{"a", "b", "c", "d", "e", "f"} {
		seedOrder(t, f.store, id, models.EscrowBuyerConfirmationPending, ptr(now.Add(-time.Hour)), now.Add(-48*time.Hour))
	}

	summary, err := f.scheduler.Run(context.Background(), secret)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.AutoReleased != 6 || len(f.processor.transfers) != 6 {
		t.Errorf("Expected 6 releases and transfers, got %d and %d", summary.AutoReleased, len(f.processor.transfers))
	}
}

// disputingStore opens a buyer dispute on every order right after the batch is selected.
type disputingStore struct {
	*database.Service
	t        *testing.T
	disputes *dispute.Automator
}

func (s disputingStore) ListAutoReleasable(ctx context.Context, at time.Time, limit int) ([]models.Order, error) {
	orders, err := s.Service.ListAutoReleasable(ctx, at, limit)
	for _, o := range orders {
		openBuyerDispute(s.t, s.disputes, s.Service, o.Id)
	}
	return orders, err
}

func buyerDisputes(svc *database.Service) *dispute.Automator {
	clk := clock.NewFixed(now)
	emitter := notify.NewEmitter(svc, clk)
	return dispute.NewAutomator(svc, escrow.NewMachine(svc, clk), noStrikes{}, emitter, clk, 24*time.Hour)
}

func openBuyerDispute(t *testing.T, disputes *dispute.Automator, svc *database.Service, orderId string) {
	t.Helper()
	order, err := svc.GetOrder(context.Background(), orderId)
	if err != nil {
		t.Errorf("GetOrder: %v", err)
		return
	}
	if _, err := disputes.OpenForBuyer(context.Background(), *order, models.DisputeTicketInvalid, "barcode rejected"); err != nil {
		t.Errorf("OpenForBuyer: %v", err)
	}
}

func TestDisputeAfterSelectionBlocksPayout(t *testing.T) {
	f := setupWith(t, func(svc *database.Service) settlement.Store {
		return disputingStore{Service: svc, t: t, disputes: buyerDisputes(svc)}
	})
	registerStripe(t, f.store)
	seedOrder(t, f.store, "order-1", models.EscrowBuyerConfirmationPending, ptr(now.Add(-time.Hour)), now.Add(-48*time.Hour))

	summary, err := f.scheduler.Run(context.Background(), secret)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.AutoReleased != 0 || len(summary.Errors) != 0 {
		t.Errorf("Expected the disputed order to be skipped, got %+v", summary)
	}
	if len(f.processor.transfers) != 0 {
		t.Errorf("Seller paid %d time(s) on a disputed order", len(f.processor.transfers))
	}
	order, _ := f.store.GetOrder(context.Background(), "order-1")
	if order.EscrowStatus != models.EscrowDisputed {
		t.Errorf("Expected escrow to stay disputed, got %s", order.EscrowStatus)
	}
}

func TestDisputeDuringPayoutReportsTransfer(t *testing.T) {
	f := setup(t)
	registerStripe(t, f.store)
	seedOrder(t, f.store, "order-1", models.EscrowBuyerConfirmationPending, ptr(now.Add(-time.Hour)), now.Add(-48*time.Hour))
	disputes := buyerDisputes(f.store)
	f.processor.onCreate = func(orderId string) { openBuyerDispute(t, disputes, f.store, orderId) }

	summary, err := f.scheduler.Run(context.Background(), secret)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.AutoReleased != 0 || len(summary.Errors) != 1 {
		t.Fatalf("Expected one unreconciled entry, got %+v", summary)
	}
	entry := summary.Errors[0]
	if entry.Type != models.SettlementErrAutoRelease || entry.OrderId != "order-1" || entry.TransferId != "tr_order-1" {
		t.Errorf("Expected the transfer id in the report, got %+v", entry)
	}
	order, _ := f.store.GetOrder(context.Background(), "order-1")
	if order.EscrowStatus != models.EscrowDisputed {
		t.Errorf("Expected escrow to stay disputed, got %s", order.EscrowStatus)
	}
}
