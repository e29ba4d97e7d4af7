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

// Package dispute opens disputes, either on a buyer's request or when a seller misses the transfer deadline.
package dispute

import (
	"context"
	"fmt"
	"time"

	"resale-escrow-go/internal/clock"
	"resale-escrow-go/internal/escrow"
	"resale-escrow-go/internal/models"
	"resale-escrow-go/internal/notify"
	"resale-escrow-go/internal/reputation"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const missedTransferNote = "Transfer deadline passed without delivery; dispute opened automatically"

type OrderReader interface {
	GetOrder(ctx context.Context, orderId string) (*models.Order, error)
}

type Striker interface {
	IssueStrike(ctx context.Context, s reputation.Strike) models.Outcome
}

type Notifier interface {
	Emit(ctx context.Context, n models.Notification) models.Outcome
}

type Automator struct {
	orders         OrderReader
	machine        *escrow.Machine
	strikes        Striker
	notifier       Notifier
	clock          clock.Clock
	responseWindow time.Duration
}

func NewAutomator(orders OrderReader, machine *escrow.Machine, strikes Striker, notifier Notifier, c clock.Clock, responseWindow time.Duration) *Automator {
	if responseWindow <= 0 {
		responseWindow = 24 * time.Hour
	}
	return &Automator{
		orders:         orders,
		machine:        machine,
		strikes:        strikes,
		notifier:       notifier,
		clock:          c,
		responseWindow: responseWindow,
	}
}

// EscalateOverdue disputes the order behind an overdue pending transfer. It returns nil
// without error when the order is already disputed or was settled concurrently.
func (a *Automator) EscalateOverdue(ctx context.Context, transfer models.Transfer) (*models.Dispute, error) {
	order, err := a.orders.GetOrder(ctx, transfer.OrderId)
	if err != nil {
		return nil, fmt.Errorf("load order for transfer %s: %w", transfer.Id, err)
	}
	if order.EscrowStatus == models.EscrowDisputed || order.DisputeId != "" {
		return nil, nil
	}

	d, err := a.open(ctx, *order, models.DisputeTicketNotReceived, missedTransferNote, models.DisputeOpenedBySystem, models.TransferFailed)
	if err != nil || d == nil {
		return nil, err
	}

	logger := zap.L().With(zap.String("order_id", order.Id), zap.String("dispute_id", d.Id))
	logger.Info("Dispute opened for missed transfer",
		zap.String("seller_id", order.SellerId),
		zap.Time("transfer_deadline", transfer.TransferDeadline))

	a.strikes.IssueStrike(ctx, reputation.Strike{
		SellerId:  order.SellerId,
		OrderId:   order.Id,
		DisputeId: d.Id,
		Reason:    "transfer_missed",
	}).Log(logger, "Seller strike")
	a.notifier.Emit(ctx, notify.DisputeOpened(*order, *d)).Log(logger, "Buyer dispute notification")
	a.notifier.Emit(ctx, notify.TransferMissed(*order, *d)).Log(logger, "Seller missed-transfer notification")

	return d, nil
}

// OpenForBuyer disputes order on the buyer's behalf. The ticket transfer row is left as is
// and no strike is issued until the dispute is resolved.
func (a *Automator) OpenForBuyer(ctx context.Context, order models.Order, reason models.DisputeReason, description string) (*models.Dispute, error) {
	d, err := a.open(ctx, order, reason, description, order.BuyerId, "")
	if err != nil || d == nil {
		return nil, err
	}
	logger := zap.L().With(zap.String("order_id", order.Id), zap.String("dispute_id", d.Id))
	logger.Info("Dispute opened by buyer", zap.String("reason", string(reason)))
	a.notifier.Emit(ctx, notify.DisputeRaised(order, *d)).Log(logger, "Seller dispute notification")
	return d, nil
}

func (a *Automator) open(ctx context.Context, order models.Order, reason models.DisputeReason, description, openedBy string, transferStatus models.TransferStatus) (*models.Dispute, error) {
	now := a.clock.Now()
	d := &models.Dispute{
		Id:               uuid.NewString(),
		OrderId:          order.Id,
		BuyerId:          order.BuyerId,
		SellerId:         order.SellerId,
		Reason:           reason,
		Description:      description,
		Status:           models.DisputeOpen,
		OpenedBy:         openedBy,
		ResponseDeadline: now.Add(a.responseWindow),
		CreatedAt:        now,
	}

	applied, err := a.machine.Transition(ctx, order, escrow.Request{
		To:             models.EscrowDisputed,
		Guard:          escrow.NoDispute,
		OrderStatus:    models.OrderStatusDisputed,
		Dispute:        d,
		TransferStatus: transferStatus,
		TransferNote:   description,
	})
	if err != nil {
		return nil, fmt.Errorf("dispute order %s: %w", order.Id, err)
	}
	if !applied {
		return nil, nil
	}
	return d, nil
}
