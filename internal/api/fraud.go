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

package api

import (
	"errors"
	"net/http"
	"strings"

	"resale-escrow-go/internal/fraud"
	"resale-escrow-go/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type proofPayload struct {
	ProofType string `json:"proof_type"`
	FileUrl   string `json:"file_url"`
}

type confirmationPayload struct {
	OrderReference         string `json:"order_reference"`
	TicketingPlatform      string `json:"ticketing_platform"`
	OriginalPurchaserEmail string `json:"original_purchaser_email"`
}

type fraudCheckRequest struct {
	ListingId           string              `json:"listing_id"`
	Proofs              []proofPayload      `json:"proofs"`
	ConfirmationDetails confirmationPayload `json:"confirmation_details"`
}

type checkPayload struct {
	Name    string `json:"name"`
	Passed  bool   `json:"passed"`
	Details string `json:"details"`
}

type fraudCheckResponse struct {
	Passed               bool           `json:"passed"`
	RequiresManualReview bool           `json:"requires_manual_review"`
	RiskScore            int            `json:"risk_score"`
	Message              string         `json:"message"`
	Checks               []checkPayload `json:"checks"`
	Warnings             []string       `json:"warnings"`
	FraudCheckId         string         `json:"fraud_check_id"`
}

func (s *Server) handleFraudCheck(c *gin.Context) {
	var req fraudCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "invalid_request", "request body must be valid JSON")
		return
	}
	if strings.TrimSpace(req.ListingId) == "" {
		abortWithError(c, http.StatusBadRequest, "invalid_request", "listing_id is required")
		return
	}

	proofs := make([]models.Proof, 0, len(req.Proofs))
	for _, p := range req.Proofs {
		proofs = append(proofs, models.Proof{ProofType: p.ProofType, FileUrl: p.FileUrl})
	}

	result, err := s.fraud.Check(c.Request.Context(), fraud.Request{
		ListingId: req.ListingId,
		SellerId:  c.GetString(userIDKey),
		Proofs:    proofs,
		Confirmation: models.ConfirmationDetails{
			OrderReference:         req.ConfirmationDetails.OrderReference,
			TicketingPlatform:      req.ConfirmationDetails.TicketingPlatform,
			OriginalPurchaserEmail: req.ConfirmationDetails.OriginalPurchaserEmail,
		},
	})
	switch {
	case errors.Is(err, fraud.ErrMissingListing):
		abortWithError(c, http.StatusBadRequest, "invalid_request", "listing_id is required")
		return
	case errors.Is(err, fraud.ErrListingNotFound):
		abortWithError(c, http.StatusNotFound, "listing_not_found", "listing not found")
		return
	case errors.Is(err, fraud.ErrNotListingOwner):
		abortWithError(c, http.StatusForbidden, "forbidden", "listing belongs to another seller")
		return
	case err != nil:
		zap.L().Error("Fraud check failed", zap.String("listing_id", req.ListingId), zap.Error(err))
		abortWithError(c, http.StatusInternalServerError, "internal", "fraud check failed")
		return
	}

	checks := make([]checkPayload, 0, len(result.Checks))
	for _, ch := range result.Checks {
		checks = append(checks, checkPayload{Name: ch.Name, Passed: ch.Passed, Details: ch.Details})
	}
	warnings := result.Warnings
	if warnings == nil {
		warnings = []string{}
	}

	c.JSON(http.StatusOK, fraudCheckResponse{
		Passed:               result.Passed,
		RequiresManualReview: result.RequiresManualReview,
		RiskScore:            result.RiskScore,
		Message:              fraud.Message(result),
		Checks:               checks,
		Warnings:             warnings,
		FraudCheckId:         result.Id,
	})
}
