package fraud_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"resale-escrow-go/internal/clock"
	"resale-escrow-go/internal/database"
	"resale-escrow-go/internal/fraud"
	"resale-escrow-go/internal/models"

	"github.com/shopspring/decimal"
)

var now = time.Date(2026, 7, 1, 18, 0, 0, 0, time.UTC)

func setupStore(t *testing.T) *database.Service {
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
	return svc
}

func newEngine(t *testing.T, svc *database.Service, policy models.ManualReviewPolicy) *fraud.Engine {
	t.Helper()
	rules, err := fraud.DefaultRules()
	if err != nil {
		t.Fatalf("DefaultRules: %v", err)
	}
	return fraud.NewEngine(svc, rules, policy, clock.NewFixed(now))
}

type listingOpt func(*models.Listing)

func withPrices(asking, original string) listingOpt {
	return func(l *models.Listing) {
		l.AskingPrice = decimal.RequireFromString(asking)
		l.OriginalPrice = decimal.RequireFromString(original)
	}
}

func seedListing(t *testing.T, svc *database.Service, id string, opts ...listingOpt) models.Listing {
	t.Helper()
	l := models.Listing{
		Id:            id,
		SellerId:      "seller-1",
		EventName:     "Stadium Tour",
		EventDate:     now.Add(7 * 24 * time.Hour),
		AskingPrice:   decimal.RequireFromString("120"),
		OriginalPrice: decimal.RequireFromString("100"),
		Currency:      "usd",
		Status:        models.ListingPendingVerification,
		CreatedAt:     now.Add(-time.Hour),
	}
	for _, opt := range opts {
		opt(&l)
	}
	if err := svc.CreateListing(context.Background(), l); err != nil {
		t.Fatalf("CreateListing: %v", err)
	}
	return l
}

func seedTrustedSeller(t *testing.T, svc *database.Service) {
	t.Helper()
	err := svc.UpsertSellerProfile(context.Background(), models.SellerProfile{
		SellerId:   "seller-1",
		TrustScore: 85,
		TotalSales: 40,
		JoinedAt:   now.Add(-365 * 24 * time.Hour),
	})
	if err != nil {
		t.Fatalf("UpsertSellerProfile: %v", err)
	}
}

func cleanRequest(listingId string) fraud.Request {
	return fraud.Request{
		ListingId: listingId,
		SellerId:  "seller-1",
		Proofs: []models.Proof{
			{ProofType: models.ProofConfirmationEmail},
			{ProofType: models.ProofTicketScreenshot},
		},
		Confirmation: models.ConfirmationDetails{
			OrderReference:         "12-34567/nyc",
			TicketingPlatform:      "Ticketmaster",
			OriginalPurchaserEmail: "fan@gmail.com",
		},
	}
}

func findCheck(t *testing.T, check *models.FraudCheck, name string) models.CheckResult {
	t.Helper()
	for _, c := range check.Checks {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("check %s not in result", name)
	return models.CheckResult{}
}

func TestCleanListingPasses(t *testing.T) {
	svc := setupStore(t)
	seedTrustedSeller(t, svc)
	seedListing(t, svc, "listing-1")

	result, err := newEngine(t, svc, models.ManualReviewFlag).Check(context.Background(), cleanRequest("listing-1"))
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if result.RiskScore != 0 || result.Verdict != models.FraudVerdictPassed || !result.Passed {
		t.Fatalf("Expected clean pass, got score=%d verdict=%s checks=%+v", result.RiskScore, result.Verdict, result.Checks)
	}
	if len(result.Checks) != 9 {
		t.Errorf("Expected 9 checks, got %d", len(result.Checks))
	}

	listing, err := svc.GetListing(context.Background(), "listing-1")
	if err != nil {
		t.Fatalf("GetListing: %v", err)
	}
	if listing.Status != models.ListingActive || listing.FraudCheckId != result.Id || listing.FraudCheckStatus != models.FraudVerdictPassed {
		t.Errorf("Expected listing activated with check pointer, got %+v", listing)
	}
}

func TestPriceAnomalyBoundaries(t *testing.T) {
	tests := []struct {
		name   string
		asking string
		passed bool
	}{
		{"exactly double", "200", true},
		{"2.15x original", "215", false},
		{"exactly 0.3x", "30", true},
		{"below 0.3x", "29.99", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := setupStore(t)
			seedTrustedSeller(t, svc)
			seedListing(t, svc, "listing-1", withPrices(tt.asking, "100"))

			result, err := newEngine(t, svc, models.ManualReviewFlag).Check(context.Background(), cleanRequest("listing-1"))
			if err != nil {
				t.Fatalf("Check: %v", err)
			}
			price := findCheck(t, result, fraud.CheckPriceAnomaly)
			if price.Passed != tt.passed {
				t.Errorf("Expected price check passed=%v, got %+v", tt.passed, price)
			}
			if !tt.passed && result.RiskScore != 15 {
				t.Errorf("Expected risk score 15, got %d", result.RiskScore)
			}
		})
	}
}

func TestMissingOriginalPriceWarns(t *testing.T) {
	svc := setupStore(t)
	seedTrustedSeller(t, svc)
	seedListing(t, svc, "listing-1", withPrices("500", "0"))

	result, err := newEngine(t, svc, models.ManualReviewFlag).Check(context.Background(), cleanRequest("listing-1"))
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	price := findCheck(t, result, fraud.CheckPriceAnomaly)
	if !price.Passed || price.Warning == "" {
		t.Errorf("Expected pass with warning, got %+v", price)
	}
	if len(result.Warnings) != 1 {
		t.Errorf("Expected 1 warning, got %v", result.Warnings)
	}
}

func TestVerdictThresholds(t *testing.T) {
	svc := setupStore(t)
	engine := newEngine(t, svc, models.ManualReviewFlag)

	tests := []struct {
		score int
		want  models.FraudVerdict
	}{
		{0, models.FraudVerdictPassed},
		{29, models.FraudVerdictPassed},
		{30, models.FraudVerdictManualReview},
		{49, models.FraudVerdictManualReview},
		{50, models.FraudVerdictFailed},
		{100, models.FraudVerdictFailed},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("score_%d", tt.score), func(t *testing.T) {
			if got := engine.Verdict(tt.score); got != tt.want {
				t.Errorf("Verdict(%d) = %s, want %s", tt.score, got, tt.want)
			}
		})
	}
}

func TestDisposableEmailFails(t *testing.T) {
	svc := setupStore(t)
	seedTrustedSeller(t, svc)
	seedListing(t, svc, "listing-1")

	req := cleanRequest("listing-1")
	req.Confirmation.OriginalPurchaserEmail = "user@10minutemail.com"

	result, err := newEngine(t, svc, models.ManualReviewFlag).Check(context.Background(), req)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	email := findCheck(t, result, fraud.CheckEmailDomain)
	if email.Passed || email.Penalty != 10 {
		t.Errorf("Expected email check to fail with penalty 10, got %+v", email)
	}
	if result.RiskScore != 10 || result.Verdict != models.FraudVerdictPassed {
		t.Errorf("Expected score 10 and pass, got %d %s", result.RiskScore, result.Verdict)
	}
}

func TestScoreIsDeterministic(t *testing.T) {
	svc := setupStore(t)
	seedListing(t, svc, "listing-1", withPrices("300", "100"))
	engine := newEngine(t, svc, models.ManualReviewFlag)

	req := cleanRequest("listing-1")
	req.Proofs = req.Proofs[:1]

	first, err := engine.Check(context.Background(), req)
	if err != nil {
		t.Fatalf("first Check: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := engine.Check(context.Background(), req)
		if err != nil {
			t.Fatalf("Check: %v", err)
		}
		if again.RiskScore != first.RiskScore || again.Verdict != first.Verdict {
			t.Fatalf("Run %d: got %d/%s, want %d/%s", i, again.RiskScore, again.Verdict, first.RiskScore, first.Verdict)
		}
		for j := range first.Checks {
			if again.Checks[j].Name != first.Checks[j].Name || again.Checks[j].Passed != first.Checks[j].Passed {
				t.Fatalf("Run %d: check order or outcome changed at %d", i, j)
			}
		}
	}
	// no profile 20 + price 15 + proofs 25
	if first.RiskScore != 60 || first.Verdict != models.FraudVerdictFailed {
		t.Errorf("Expected 60/failed, got %d/%s", first.RiskScore, first.Verdict)
	}
}

func TestDuplicateOrderReference(t *testing.T) {
	svc := setupStore(t)
	seedTrustedSeller(t, svc)
	seedListing(t, svc, "listing-1")
	seedListing(t, svc, "listing-2")
	engine := newEngine(t, svc, models.ManualReviewFlag)

	if _, err := engine.Check(context.Background(), cleanRequest("listing-1")); err != nil {
		t.Fatalf("Check listing-1: %v", err)
	}
	result, err := engine.Check(context.Background(), cleanRequest("listing-2"))
	if err != nil {
		t.Fatalf("Check listing-2: %v", err)
	}
	dup := findCheck(t, result, fraud.CheckDuplicateListing)
	if dup.Passed || dup.Penalty != 40 {
		t.Errorf("Expected duplicate check to fail, got %+v", dup)
	}
	if result.Verdict != models.FraudVerdictManualReview || !result.RequiresManualReview || !result.Passed {
		t.Errorf("Expected flagged pass, got %+v", result)
	}

	listing, _ := svc.GetListing(context.Background(), "listing-2")
	if listing.Status != models.ListingPendingVerification {
		t.Errorf("Expected listing to stay pending_verification, got %s", listing.Status)
	}
}

func TestManualReviewHoldPolicy(t *testing.T) {
	svc := setupStore(t)
	seedListing(t, svc, "listing-1")

	req := cleanRequest("listing-1")
	req.Confirmation.OriginalPurchaserEmail = "someone@mailinator.com"

	result, err := newEngine(t, svc, models.ManualReviewHold).Check(context.Background(), req)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	// new seller 20 + disposable email 10
	if result.RiskScore != 30 || result.Verdict != models.FraudVerdictManualReview {
		t.Fatalf("Expected 30/manual_review, got %d/%s", result.RiskScore, result.Verdict)
	}
	if result.Passed {
		t.Error("Expected hold policy to report passed=false")
	}
	if fraud.Message(result) != "Listing held for manual review" {
		t.Errorf("Unexpected message %q", fraud.Message(result))
	}
}

func TestListingVelocity(t *testing.T) {
	tests := []struct {
		name     string
		extra    int
		passed   bool
		warnings int
	}{
		{"normal", 2, true, 0},
		{"elevated", 5, true, 1},
		{"excessive", 11, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := setupStore(t)
			seedTrustedSeller(t, svc)
			seedListing(t, svc, "listing-0")
			for i := 1; i < tt.extra; i++ {
				seedListing(t, svc, fmt.Sprintf("listing-%d", i))
			}

			result, err := newEngine(t, svc, models.ManualReviewFlag).Check(context.Background(), cleanRequest("listing-0"))
			if err != nil {
				t.Fatalf("Check: %v", err)
			}
			velocity := findCheck(t, result, fraud.CheckListingVelocity)
			if velocity.Passed != tt.passed {
				t.Errorf("Expected passed=%v, got %+v", tt.passed, velocity)
			}
			if (velocity.Warning != "") != (tt.warnings == 1) {
				t.Errorf("Unexpected warning %q", velocity.Warning)
			}
		})
	}
}

func TestOrderReferenceFormat(t *testing.T) {
	tests := []struct {
		name      string
		reference string
		platform  string
		passed    bool
		warning   bool
	}{
		{"matches", "12-34567/NYC", "Ticketmaster", true, false},
		{"wrong format", "ABC", "Ticketmaster", false, false},
		{"unknown platform", "XYZ-1", "Tixel", true, true},
		{"empty reference", "", "Ticketmaster", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := setupStore(t)
			seedTrustedSeller(t, svc)
			seedListing(t, svc, "listing-1")

			req := cleanRequest("listing-1")
			req.Confirmation.OrderReference = tt.reference
			req.Confirmation.TicketingPlatform = tt.platform

			result, err := newEngine(t, svc, models.ManualReviewFlag).Check(context.Background(), req)
			if err != nil {
				t.Fatalf("Check: %v", err)
			}
			format := findCheck(t, result, fraud.CheckOrderReference)
			if format.Passed != tt.passed || (format.Warning != "") != tt.warning {
				t.Errorf("Unexpected result %+v", format)
			}
		})
	}
}

func TestEventDateValidity(t *testing.T) {
	tests := []struct {
		name   string
		offset time.Duration
		passed bool
	}{
		{"next week", 7 * 24 * time.Hour, true},
		{"in five hours", 5 * time.Hour, false},
		{"already happened", -time.Hour, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := setupStore(t)
			seedTrustedSeller(t, svc)
			seedListing(t, svc, "listing-1", func(l *models.Listing) { l.EventDate = now.Add(tt.offset) })

			result, err := newEngine(t, svc, models.ManualReviewFlag).Check(context.Background(), cleanRequest("listing-1"))
			if err != nil {
				t.Fatalf("Check: %v", err)
			}
			if got := findCheck(t, result, fraud.CheckEventDate); got.Passed != tt.passed {
				t.Errorf("Expected passed=%v, got %+v", tt.passed, got)
			}
		})
	}
}

func TestBlacklistedReferenceFails(t *testing.T) {
	svc := setupStore(t)
	seedTrustedSeller(t, svc)
	seedListing(t, svc, "listing-1")
	if err := svc.AddBlacklistEntry(context.Background(), models.BlacklistEntry{
		EntryType: models.BlacklistOrderReference, Value: "12-34567/NYC", Reason: "chargeback ring",
	}); err != nil {
		t.Fatalf("AddBlacklistEntry: %v", err)
	}

	result, err := newEngine(t, svc, models.ManualReviewFlag).Check(context.Background(), cleanRequest("listing-1"))
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if result.RiskScore != 50 || result.Verdict != models.FraudVerdictFailed || result.Passed {
		t.Errorf("Expected 50/failed, got %d/%s", result.RiskScore, result.Verdict)
	}
}

func TestBlacklistMatchesSubmittedForm(t *testing.T) {
	tests := []struct {
		name  string
		entry models.BlacklistEntry
	}{
		{"reference as submitted", models.BlacklistEntry{EntryType: models.BlacklistOrderReference, Value: "12-34567/nyc"}},
		{"reference with spaces", models.BlacklistEntry{EntryType: models.BlacklistOrderReference, Value: " 12-34567/Nyc "}},
		{"mixed case domain", models.BlacklistEntry{EntryType: models.BlacklistEmailDomain, Value: "Gmail.com"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := setupStore(t)
			seedTrustedSeller(t, svc)
			seedListing(t, svc, "listing-1")
			tt.entry.Reason = "chargeback ring"
			if err := svc.AddBlacklistEntry(context.Background(), tt.entry); err != nil {
				t.Fatalf("AddBlacklistEntry: %v", err)
			}

			result, err := newEngine(t, svc, models.ManualReviewFlag).Check(context.Background(), cleanRequest("listing-1"))
			if err != nil {
				t.Fatalf("Check: %v", err)
			}
			if got := findCheck(t, result, fraud.CheckKnownFraud); got.Passed {
				t.Errorf("Expected blacklist hit, got %+v", got)
			}
			if result.RiskScore != 50 || result.Verdict != models.FraudVerdictFailed {
				t.Errorf("Expected 50/failed, got %d/%s", result.RiskScore, result.Verdict)
			}
		})
	}
}

func TestCheckErrors(t *testing.T) {
	svc := setupStore(t)
	seedListing(t, svc, "listing-1")
	engine := newEngine(t, svc, models.ManualReviewFlag)

	if _, err := engine.Check(context.Background(), fraud.Request{}); !errors.Is(err, fraud.ErrMissingListing) {
		t.Errorf("Expected ErrMissingListing, got %v", err)
	}
	if _, err := engine.Check(context.Background(), cleanRequest("nope")); !errors.Is(err, fraud.ErrListingNotFound) {
		t.Errorf("Expected ErrListingNotFound, got %v", err)
	}
	req := cleanRequest("listing-1")
	req.SellerId = "someone-else"
	if _, err := engine.Check(context.Background(), req); !errors.Is(err, fraud.ErrNotListingOwner) {
		t.Errorf("Expected ErrNotListingOwner, got %v", err)
	}
}
