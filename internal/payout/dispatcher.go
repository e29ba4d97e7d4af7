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

package payout

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"resale-escrow-go/internal/models"
	"resale-escrow-go/internal/store"

	"go.uber.org/zap"
)

// Reason tells the processor why funds are being released.
type Reason string

const (
	ReasonAutoRelease     Reason = "auto_release"
	ReasonBuyerConfirmed  Reason = "buyer_confirmed"
	ReasonDisputeResolved Reason = "dispute_resolved"
)

// IdempotencyKey is the processor key for an order's payout; at most one transfer per order.
func IdempotencyKey(orderId string) string {
	return "escrow-release-" + orderId
}

// Dispatcher pays sellers when escrow is released. Payout reality is reported back as a
// PayoutResult and never blocks the escrow transition itself.
type Dispatcher struct {
	accounts AccountLookup
	router   *Router
	currency string
	timeout  time.Duration
}

// AccountLookup is the slice of the store the dispatcher needs.
type AccountLookup interface {
	GetPayoutAccount(ctx context.Context, sellerId string) (*models.PayoutAccount, error)
}

func NewDispatcher(accounts AccountLookup, router *Router, currency string, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Dispatcher{accounts: accounts, router: router, currency: currency, timeout: timeout}
}

func (d *Dispatcher) Dispatch(ctx context.Context, order models.Order, reason Reason) models.PayoutResult {
	logger := zap.L().With(zap.String("order_id", order.Id), zap.String("seller_id", order.SellerId))

	if order.PayoutTransferId != "" {
		logger.Info("Payout already issued, reusing transfer", zap.String("transfer_id", order.PayoutTransferId))
		return models.PayoutResult{Status: models.PayoutStatusCompleted, TransferId: order.PayoutTransferId}
	}
	if !order.SellerPayoutAmount.IsPositive() {
		return models.PayoutResult{
			Status: models.PayoutStatusFailed,
			Err:    fmt.Errorf("%w: order %s has payout amount %s", ErrInvalidAmount, order.Id, order.SellerPayoutAmount),
		}
	}

	account, err := d.accounts.GetPayoutAccount(ctx, order.SellerId)
	if errors.Is(err, store.ErrNotFound) {
		logger.Info("Seller has no payout destination, deferring payout")
		return models.PayoutResult{Status: models.PayoutStatusPendingConnect}
	}
	if err != nil {
		return models.PayoutResult{Status: models.PayoutStatusFailed, Err: fmt.Errorf("load payout account: %w", err)}
	}

	processor, err := d.router.For(account.Rail)
	if err != nil {
		logger.Warn("No processor configured for seller rail, deferring payout", zap.String("rail", string(account.Rail)))
		return models.PayoutResult{Status: models.PayoutStatusPendingConnect, Rail: account.Rail}
	}

	statusCtx, cancel := context.WithTimeout(ctx, d.timeout)
	status, err := processor.AccountStatus(statusCtx, *account)
	cancel()
	if err != nil {
		return models.PayoutResult{Status: models.PayoutStatusFailed, Rail: account.Rail, Err: fmt.Errorf("check payout account: %w", err)}
	}
	if !status.Active {
		logger.Info("Seller payout destination not active, deferring payout", zap.String("reason", status.Reason))
		return models.PayoutResult{Status: models.PayoutStatusPendingConnect, Rail: account.Rail}
	}

	currency := order.Currency
	if currency == "" {
		currency = d.currency
	}
	req := models.TransferRequest{
		OrderId:        order.Id,
		SellerId:       order.SellerId,
		Account:        *account,
		Amount:         order.SellerPayoutAmount,
		Currency:       currency,
		IdempotencyKey: IdempotencyKey(order.Id),
		Metadata: map[string]string{
			"order_id":     order.Id,
			"auto_release": strconv.FormatBool(reason == ReasonAutoRelease),
			"reason":       string(reason),
		},
	}

	transferCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	result, err := processor.CreateTransfer(transferCtx, req)
	if err != nil {
		return models.PayoutResult{Status: models.PayoutStatusFailed, Rail: account.Rail, Err: fmt.Errorf("create transfer: %w", err)}
	}

	logger.Info("Seller payout created",
		zap.String("rail", string(account.Rail)),
		zap.String("transfer_id", result.TransferId),
		zap.String("amount", order.SellerPayoutAmount.String()))
	return models.PayoutResult{Status: models.PayoutStatusCompleted, TransferId: result.TransferId, Rail: account.Rail}
}
