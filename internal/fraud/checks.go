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

package fraud

import (
	"fmt"
	"strings"
	"time"

	"resale-escrow-go/internal/models"

	"github.com/shopspring/decimal"
)

const (
	CheckSellerTrust       = "seller_trust"
	CheckDuplicateListing  = "duplicate_listing"
	CheckPriceAnomaly      = "price_anomaly"
	CheckEventDate         = "event_date"
	CheckProofCompleteness = "proof_completeness"
	CheckListingVelocity   = "listing_velocity"
	CheckOrderReference    = "order_reference_format"
	CheckEmailDomain       = "email_domain"
	CheckKnownFraud        = "known_fraud_pattern"
)

// snapshot is everything the checks read. It is loaded once and never mutated.
type snapshot struct {
	now            time.Time
	listing        models.Listing
	profile        *models.SellerProfile
	recentListings int
	referenceUses  []string
	blacklistHits  []models.BlacklistEntry
	proofs         []models.Proof
	reference      string
	platform       string
	emailDomain    string
}

type check struct {
	name    string
	penalty int
	run     func(r *Rules, s *snapshot) models.CheckResult
}

// checks run in parallel but report in this order.
var checks = []check{
	{CheckSellerTrust, 20, checkSellerTrust},
	{CheckDuplicateListing, 40, checkDuplicateListing},
	{CheckPriceAnomaly, 15, checkPriceAnomaly},
	{CheckEventDate, 30, checkEventDate},
	{CheckProofCompleteness, 25, checkProofCompleteness},
	{CheckListingVelocity, 20, checkListingVelocity},
	{CheckOrderReference, 10, checkOrderReference},
	{CheckEmailDomain, 10, checkEmailDomain},
	{CheckKnownFraud, 50, checkKnownFraud},
}

func pass(details string) models.CheckResult {
	return models.CheckResult{Passed: true, Details: details}
}

func fail(details string) models.CheckResult {
	return models.CheckResult{Passed: false, Details: details}
}

func checkSellerTrust(r *Rules, s *snapshot) models.CheckResult {
	p := s.profile
	if p == nil {
		return fail("Seller has no trust history")
	}

	var problems []string
	if p.TrustScore < r.Seller.MinTrustScore {
		problems = append(problems, fmt.Sprintf("trust score %d below %d", p.TrustScore, r.Seller.MinTrustScore))
	}
	if p.DisputesLost >= r.Seller.MaxDisputesLost {
		problems = append(problems, fmt.Sprintf("%d disputes lost", p.DisputesLost))
	}
	if age := s.now.Sub(p.JoinedAt); age < r.Seller.MinAccountAge {
		problems = append(problems, fmt.Sprintf("account is %d days old", int(age.Hours()/24)))
	}
	if len(problems) > 0 {
		return fail("Seller " + strings.Join(problems, "; "))
	}
	return pass(fmt.Sprintf("Seller trust score %d with %d sales", p.TrustScore, p.TotalSales))
}

func checkDuplicateListing(_ *Rules, s *snapshot) models.CheckResult {
	if s.reference == "" {
		return pass("No order reference to compare")
	}
	if len(s.referenceUses) > 0 {
		return fail(fmt.Sprintf("Order reference already used on %d other listing(s)", len(s.referenceUses)))
	}
	return pass("Order reference not seen on other listings")
}

func checkPriceAnomaly(r *Rules, s *snapshot) models.CheckResult {
	original := s.listing.OriginalPrice
	if !original.IsPositive() {
		res := pass("Original price unknown")
		res.Warning = "Original ticket price not provided; price anomaly could not be assessed"
		return res
	}

	ratio := s.listing.AskingPrice.Div(original)
	switch {
	case ratio.GreaterThan(decimal.NewFromFloat(r.Price.MaxRatio)):
		return fail(fmt.Sprintf("Asking price is %sx the original price", ratio.StringFixed(2)))
	case ratio.LessThan(decimal.NewFromFloat(r.Price.MinRatio)):
		return fail(fmt.Sprintf("Asking price is only %sx the original price", ratio.StringFixed(2)))
	}
	return pass(fmt.Sprintf("Asking price is %sx the original price", ratio.StringFixed(2)))
}

func checkEventDate(r *Rules, s *snapshot) models.CheckResult {
	until := s.listing.EventDate.Sub(s.now)
	switch {
	case until <= 0:
		return fail("Event has already taken place")
	case until < r.Event.MinLeadTime:
		return fail(fmt.Sprintf("Event starts in less than %s", r.Event.MinLeadTime))
	}
	return pass("Event date is valid")
}

func checkProofCompleteness(_ *Rules, s *snapshot) models.CheckResult {
	var email, screenshot bool
	for _, p := range s.proofs {
		switch p.ProofType {
		case models.ProofConfirmationEmail:
			email = true
		case models.ProofTicketScreenshot:
			screenshot = true
		}
	}

	var missing []string
	if !email {
		missing = append(missing, models.ProofConfirmationEmail)
	}
	if !screenshot {
		missing = append(missing, models.ProofTicketScreenshot)
	}
	if len(missing) > 0 {
		return fail("Missing proof: " + strings.Join(missing, ", "))
	}
	return pass("Confirmation email and ticket screenshot provided")
}

func checkListingVelocity(r *Rules, s *snapshot) models.CheckResult {
	n := s.recentListings
	if n > r.Velocity.Max {
		return fail(fmt.Sprintf("%d listings created in the last %s", n, r.Velocity.Window))
	}
	res := pass(fmt.Sprintf("%d listings created in the last %s", n, r.Velocity.Window))
	if n >= r.Velocity.Elevated {
		res.Warning = fmt.Sprintf("Elevated listing velocity: %d listings in the last %s", n, r.Velocity.Window)
	}
	return res
}

func checkOrderReference(r *Rules, s *snapshot) models.CheckResult {
	if s.reference == "" {
		return fail("Order reference is missing")
	}
	re, ok := r.Pattern(s.platform)
	if !ok {
		res := pass("No reference format registered for platform")
		res.Warning = fmt.Sprintf("Unknown ticketing platform %q; order reference format not verified", s.platform)
		return res
	}
	if !re.MatchString(s.reference) {
		return fail(fmt.Sprintf("Order reference does not match the %s format", s.platform))
	}
	return pass(fmt.Sprintf("Order reference matches the %s format", s.platform))
}

func checkEmailDomain(r *Rules, s *snapshot) models.CheckResult {
	if s.emailDomain == "" {
		return fail("Original purchaser email is missing")
	}
	for _, disposable := range r.DisposableEmailDomains {
		if disposable != "" && strings.Contains(s.emailDomain, disposable) {
			return fail(fmt.Sprintf("Purchaser email uses a disposable domain (%s)", s.emailDomain))
		}
	}
	return pass("Purchaser email domain looks legitimate")
}

func checkKnownFraud(_ *Rules, s *snapshot) models.CheckResult {
	if len(s.blacklistHits) == 0 {
		return pass("No known fraud patterns matched")
	}
	kinds := make([]string, 0, len(s.blacklistHits))
	for _, hit := range s.blacklistHits {
		kinds = append(kinds, string(hit.EntryType))
	}
	return fail("Matched blacklist: " + strings.Join(kinds, ", "))
}

// emailDomain returns the lower-cased domain of addr, or "" if addr is not an email.
func emailDomain(addr string) string {
	at := strings.LastIndex(addr, "@")
	if at <= 0 || at == len(addr)-1 {
		return ""
	}
	return models.NormalizeEmailDomain(addr[at+1:])
}
