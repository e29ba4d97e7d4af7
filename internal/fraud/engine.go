/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package fraud scores listing verification requests against a fixed set of risk checks.
package fraud

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"resale-escrow-go/internal/clock"
	"resale-escrow-go/internal/models"
	"resale-escrow-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const maxRiskScore = 100

var (
	ErrListingNotFound = errors.New("listing not found")
	ErrNotListingOwner = errors.New("listing belongs to another seller")
	ErrMissingListing  = errors.New("listing_id is required")
)

// Store is the slice of the escrow store the engine reads and writes.
type Store interface {
	GetListing(ctx context.Context, listingId string) (*models.Listing, error)
	GetSellerProfile(ctx context.Context, sellerId string) (*models.SellerProfile, error)
	CountListingsSince(ctx context.Context, sellerId string, since time.Time) (int, error)
	FindOrderReferenceUses(ctx context.Context, orderReference, excludeListingId string) ([]string, error)
	MatchBlacklist(ctx context.Context, orderReference, emailDomain string) ([]models.BlacklistEntry, error)
	RecordFraudCheck(ctx context.Context, check models.FraudCheck, listingStatus models.ListingStatus) error
}

// Request is a listing verification submission.
type Request struct {
	ListingId    string
	SellerId     string // authenticated caller
	Proofs       []models.Proof
	Confirmation models.ConfirmationDetails
}

type Engine struct {
	store  Store
	rules  *Rules
	policy models.ManualReviewPolicy
	clock  clock.Clock
}

func NewEngine(s Store, rules *Rules, policy models.ManualReviewPolicy, c clock.Clock) *Engine {
	if policy == "" {
		policy = models.ManualReviewFlag
	}
	return &Engine{store: s, rules: rules, policy: policy, clock: c}
}

// Check scores the listing, persists the result and updates the listing's verification status.
func (e *Engine) Check(ctx context.Context, req Request) (*models.FraudCheck, error) {
	if strings.TrimSpace(req.ListingId) == "" {
		return nil, ErrMissingListing
	}

	snap, err := e.load(ctx, req)
	if err != nil {
		return nil, err
	}

	results := make([]models.CheckResult, len(checks))
	var g errgroup.Group
	for i, c := range checks {
		i, c := i, c
		g.Go(func() error {
			res := c.run(e.rules, snap)
			res.Name = c.name
			if !res.Passed {
				res.Penalty = c.penalty
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	score := 0
	var warnings []string
	for _, res := range results {
		score += res.Penalty
		if res.Warning != "" {
			warnings = append(warnings, res.Warning)
		}
	}
	if score > maxRiskScore {
		score = maxRiskScore
	}

	verdict := e.Verdict(score)
	result := models.FraudCheck{
		Id:                   uuid.NewString(),
		ListingId:            snap.listing.Id,
		SellerId:             snap.listing.SellerId,
		RiskScore:            score,
		Verdict:              verdict,
		Passed:               e.passes(verdict),
		RequiresManualReview: verdict == models.FraudVerdictManualReview,
		Checks:               results,
		Warnings:             warnings,
		OrderReference:       snap.reference,
		TicketingPlatform:    snap.platform,
		PurchaserEmailDomain: snap.emailDomain,
		CreatedAt:            snap.now,
	}

	listingStatus := models.ListingPendingVerification
	if verdict == models.FraudVerdictPassed {
		listingStatus = models.ListingActive
	}
	if err := e.store.RecordFraudCheck(ctx, result, listingStatus); err != nil {
		return nil, fmt.Errorf("record fraud check for listing %s: %w", req.ListingId, err)
	}

	zap.L().Info("Fraud check completed",
		zap.String("listing_id", result.ListingId),
		zap.String("fraud_check_id", result.Id),
		zap.Int("risk_score", score),
		zap.String("verdict", string(verdict)))
	return &result, nil
}

// Verdict maps a risk score onto the rule set's thresholds.
func (e *Engine) Verdict(score int) models.FraudVerdict {
	switch {
	case score >= e.rules.Thresholds.Fail:
		return models.FraudVerdictFailed
	case score >= e.rules.Thresholds.ManualReview:
		return models.FraudVerdictManualReview
	}
	return models.FraudVerdictPassed
}

func (e *Engine) passes(v models.FraudVerdict) bool {
	switch v {
	case models.FraudVerdictPassed:
		return true
	case models.FraudVerdictManualReview:
		return e.policy == models.ManualReviewFlag
	}
	return false
}

// Message is the human readable summary returned to the seller.
func Message(check *models.FraudCheck) string {
	switch {
	case check.Verdict == models.FraudVerdictPassed:
		return "Listing verified"
	case check.Verdict == models.FraudVerdictManualReview && check.Passed:
		return "Listing verified; flagged for manual review"
	case check.Verdict == models.FraudVerdictManualReview:
		return "Listing held for manual review"
	}
	return "Listing failed verification"
}

// load reads every input the checks need before any check runs.
func (e *Engine) load(ctx context.Context, req Request) (*snapshot, error) {
	listing, err := e.store.GetListing(ctx, req.ListingId)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrListingNotFound, req.ListingId)
		}
		return nil, fmt.Errorf("load listing %s: %w", req.ListingId, err)
	}
	if req.SellerId != "" && listing.SellerId != req.SellerId {
		return nil, ErrNotListingOwner
	}

	snap := &snapshot{
		now:         e.clock.Now(),
		listing:     *listing,
		proofs:      req.Proofs,
		reference:   models.NormalizeOrderReference(req.Confirmation.OrderReference),
		platform:    strings.TrimSpace(req.Confirmation.TicketingPlatform),
		emailDomain: emailDomain(req.Confirmation.OriginalPurchaserEmail),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		profile, err := e.store.GetSellerProfile(gctx, listing.SellerId)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("load seller profile: %w", err)
		}
		snap.profile = profile
		return nil
	})
	g.Go(func() error {
		n, err := e.store.CountListingsSince(gctx, listing.SellerId, snap.now.Add(-e.rules.Velocity.Window))
		if err != nil {
			return fmt.Errorf("count recent listings: %w", err)
		}
		snap.recentListings = n
		return nil
	})
	if snap.reference != "" {
		g.Go(func() error {
			uses, err := e.store.FindOrderReferenceUses(gctx, snap.reference, listing.Id)
			if err != nil {
				return fmt.Errorf("find order reference uses: %w", err)
			}
			snap.referenceUses = uses
			return nil
		})
	}
	g.Go(func() error {
		hits, err := e.store.MatchBlacklist(gctx, snap.reference, snap.emailDomain)
		if err != nil {
			return fmt.Errorf("match blacklist: %w", err)
		}
		snap.blacklistHits = hits
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return snap, nil
}
