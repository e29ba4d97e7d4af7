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

package models

import (
	"strings"
	"time"
)

type FraudVerdict string

const (
	FraudVerdictPassed       FraudVerdict = "passed"
	FraudVerdictManualReview FraudVerdict = "manual_review"
	FraudVerdictFailed       FraudVerdict = "failed"
)

// ManualReviewPolicy decides whether a manual-review score still lets the listing pass
type ManualReviewPolicy string

const (
	ManualReviewFlag ManualReviewPolicy = "flag" // pass and flag for review
	ManualReviewHold ManualReviewPolicy = "hold" // fail until reviewed
)

const (
	ProofConfirmationEmail = "confirmation_email"
	ProofTicketScreenshot  = "ticket_screenshot"
)

// Proof is an uploaded artifact supporting a listing
type Proof struct {
	ProofType string `json:"proofType"`
	FileUrl   string `json:"fileUrl,omitempty"`
}

// ConfirmationDetails come from the seller's original purchase confirmation
type ConfirmationDetails struct {
	OrderReference         string `json:"orderReference"`
	TicketingPlatform      string `json:"ticketingPlatform"`
	OriginalPurchaserEmail string `json:"originalPurchaserEmail"`
}

// CheckResult is the outcome of one fraud check
type CheckResult struct {
	Name    string `json:"name"`
	Passed  bool   `json:"passed"`
	Penalty int    `json:"penalty"`
	Details string `json:"details"`
	Warning string `json:"warning,omitempty"`
}

// FraudCheck is an immutable risk assessment of a listing
type FraudCheck struct {
	Id                   string        `json:"id" db:"id"`
	ListingId            string        `json:"listingId" db:"listing_id"`
	SellerId             string        `json:"sellerId" db:"seller_id"`
	RiskScore            int           `json:"riskScore" db:"risk_score"`
	Verdict              FraudVerdict  `json:"verdict" db:"verdict"`
	Passed               bool          `json:"passed" db:"passed"`
	RequiresManualReview bool          `json:"requiresManualReview" db:"requires_manual_review"`
	Checks               []CheckResult `json:"checks" db:"checks"`
	Warnings             []string      `json:"warnings" db:"warnings"`
	OrderReference       string        `json:"orderReference" db:"order_reference"`
	TicketingPlatform    string        `json:"ticketingPlatform" db:"ticketing_platform"`
	PurchaserEmailDomain string        `json:"purchaserEmailDomain" db:"purchaser_email_domain"`
	CreatedAt            time.Time     `json:"createdAt" db:"created_at"`
}

type BlacklistEntryType string

const (
	BlacklistOrderReference BlacklistEntryType = "order_reference"
	BlacklistEmailDomain    BlacklistEntryType = "email_domain"
)

// BlacklistEntry is an active fraud blacklist match
type BlacklistEntry struct {
	Id        string             `db:"id"`
	EntryType BlacklistEntryType `db:"entry_type"`
	Value     string             `db:"value"`
	Reason    string             `db:"reason"`
}

// NormalizeOrderReference is the form order references are compared in
func NormalizeOrderReference(ref string) string {
	return strings.ToUpper(strings.TrimSpace(ref))
}

// NormalizeEmailDomain is the form email domains are compared in
func NormalizeEmailDomain(domain string) string {
	return strings.ToLower(strings.TrimSpace(domain))
}

// Normalized returns the entry with its value in comparison form
func (e BlacklistEntry) Normalized() BlacklistEntry {
	switch e.EntryType {
	case BlacklistOrderReference:
		e.Value = NormalizeOrderReference(e.Value)
	case BlacklistEmailDomain:
		e.Value = NormalizeEmailDomain(e.Value)
	}
	return e
}
