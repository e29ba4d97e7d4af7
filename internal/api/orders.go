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

	"resale-escrow-go/internal/models"
	"resale-escrow-go/internal/orders"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type disputeRequest struct {
	Reason      string `json:"reason"`
	Description string `json:"description"`
}

func (s *Server) handleMarkTransferred(c *gin.Context) {
	order, err := s.orders.MarkTransferred(c.Request.Context(), c.GetString(userIDKey), c.Param("id"))
	if err != nil {
		writeOrderError(c, err)
		return
	}
	c.JSON(http.StatusOK, orderView(order))
}

func (s *Server) handleConfirmReceipt(c *gin.Context) {
	order, err := s.orders.ConfirmReceipt(c.Request.Context(), c.GetString(userIDKey), c.Param("id"))
	if err != nil {
		writeOrderError(c, err)
		return
	}
	c.JSON(http.StatusOK, orderView(order))
}

func (s *Server) handleContest(c *gin.Context) {
	var req disputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "invalid_request", "request body must be valid JSON")
		return
	}
	reason, ok := models.ParseDisputeReason(req.Reason)
	if !ok {
		abortWithError(c, http.StatusBadRequest, "invalid_request", "unknown dispute reason")
		return
	}

	d, err := s.orders.Contest(c.Request.Context(), c.GetString(userIDKey), c.Param("id"), reason, req.Description)
	if err != nil {
		writeOrderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, disputeView(d))
}

func (s *Server) handleOrderDetails(c *gin.Context) {
	details, err := s.orders.Details(c.Request.Context(), c.GetString(userIDKey), c.Param("id"))
	if err != nil {
		writeOrderError(c, err)
		return
	}
	view := orderView(&details.Order)
	if details.Escrow != nil {
		view["escrow"] = gin.H{
			"amount":            details.Escrow.Amount,
			"status":            details.Escrow.Status,
			"funds_released_at": details.Escrow.FundsReleasedAt,
		}
	}
	if details.Transfer != nil {
		view["transfer"] = gin.H{
			"status":             details.Transfer.Status,
			"transfer_deadline":  details.Transfer.TransferDeadline,
			"buyer_confirmed_at": details.Transfer.BuyerConfirmedAt,
			"notes":              details.Transfer.Notes,
		}
	}
	if details.Dispute != nil {
		view["dispute"] = disputeView(details.Dispute)
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) handleGetDispute(c *gin.Context) {
	d, err := s.orders.Dispute(c.Request.Context(), c.GetString(userIDKey), c.Param("id"))
	if err != nil {
		writeOrderError(c, err)
		return
	}
	c.JSON(http.StatusOK, disputeView(d))
}

func disputeView(d *models.Dispute) gin.H {
	return gin.H{
		"dispute_id":        d.Id,
		"order_id":          d.OrderId,
		"reason":            d.Reason,
		"description":       d.Description,
		"status":            d.Status,
		"opened_by":         d.OpenedBy,
		"response_deadline": d.ResponseDeadline,
		"created_at":        d.CreatedAt,
	}
}

func orderView(o *models.Order) gin.H {
	return gin.H{
		"id":                        o.Id,
		"status":                    o.Status,
		"escrow_status":             o.EscrowStatus,
		"auto_release_scheduled_at": o.AutoReleaseScheduledAt,
		"dispute_id":                o.DisputeId,
		"seller_payout_status":      o.SellerPayoutStatus,
		"payout_transfer_id":        o.PayoutTransferId,
		"buyer_confirmed_receipt":   o.BuyerConfirmedReceipt,
		"buyer_confirmed_at":        o.BuyerConfirmedAt,
		"escrow_released_at":        o.EscrowReleasedAt,
		"seller_paid_at":            o.SellerPaidAt,
	}
}

func writeOrderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, orders.ErrOrderNotFound):
		abortWithError(c, http.StatusNotFound, "order_not_found", "order not found")
	case errors.Is(err, orders.ErrNoDispute):
		abortWithError(c, http.StatusNotFound, "dispute_not_found", "order has no dispute")
	case errors.Is(err, orders.ErrForbidden):
		abortWithError(c, http.StatusForbidden, "forbidden", "not a party to this order")
	case errors.Is(err, orders.ErrInvalidState):
		abortWithError(c, http.StatusConflict, "invalid_state", err.Error())
	default:
		zap.L().Error("Order action failed", zap.String("order_id", c.Param("id")), zap.Error(err))
		abortWithError(c, http.StatusInternalServerError, "internal", "order action failed")
	}
}
