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

// Package escrow owns the order escrow lifecycle. All escrow_status changes go through Machine.
package escrow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"resale-escrow-go/internal/clock"
	"resale-escrow-go/internal/models"
	"resale-escrow-go/internal/store"

	"go.uber.org/zap"
)

var ErrIllegalTransition = errors.New("escrow: illegal transition")

var transitions = map[models.EscrowStatus][]models.EscrowStatus{
	models.EscrowPendingTransfer:          {models.EscrowBuyerConfirmationPending, models.EscrowDisputed},
	models.EscrowBuyerConfirmationPending: {models.EscrowReleased, models.EscrowDisputed},
	models.EscrowDisputed:                 {models.EscrowRefunded, models.EscrowReleased},
}

// Targets lists the states reachable from from. Terminal states return nil.
func Targets(from models.EscrowStatus) []models.EscrowStatus {
	return transitions[from]
}

func CanTransition(from, to models.EscrowStatus) bool {
	for _, target := range transitions[from] {
		if target == to {
			return true
		}
	}
	return false
}

// Guard decides whether a transition may proceed for the order as loaded.
type Guard func(order models.Order) bool

// NoDispute rejects orders that already carry a dispute.
func NoDispute(order models.Order) bool {
	return order.DisputeId == ""
}

// AutoReleaseDue accepts orders whose confirmation window closed before now.
func AutoReleaseDue(now time.Time) Guard {
	return func(order models.Order) bool {
		return order.AutoReleaseScheduledAt != nil && order.AutoReleaseScheduledAt.Before(now) && NoDispute(order)
	}
}

// Request is a transition target plus the side fields written with it.
type Request struct {
	To    models.EscrowStatus
	Guard Guard

	OrderStatus    models.OrderStatus
	AutoReleaseAt  *time.Time
	BuyerConfirmed bool
	Payout         *models.PayoutResult
	Dispute        *models.Dispute
	TransferStatus models.TransferStatus
	TransferNote   string
}

type Machine struct {
	store store.EscrowStore
	clock clock.Clock
}

func NewMachine(s store.EscrowStore, c clock.Clock) *Machine {
	return &Machine{store: s, clock: c}
}

// Transition moves order to req.To. It reports false without error when the order is
// already in the target state or the guard rejects it, so repeated calls are safe.
func (m *Machine) Transition(ctx context.Context, order models.Order, req Request) (bool, error) {
	if order.EscrowStatus == req.To {
		return false, nil
	}
	if req.Guard != nil && !req.Guard(order) {
		zap.L().Debug("Escrow transition guard rejected order",
			zap.String("order_id", order.Id),
			zap.String("from", string(order.EscrowStatus)),
			zap.String("to", string(req.To)))
		return false, nil
	}
	if !CanTransition(order.EscrowStatus, req.To) {
		return false, fmt.Errorf("%w: %s -> %s for order %s", ErrIllegalTransition, order.EscrowStatus, req.To, order.Id)
	}
	if req.To == models.EscrowDisputed && req.Dispute == nil {
		return false, fmt.Errorf("%w: disputed order %s needs a dispute record", ErrIllegalTransition, order.Id)
	}

	now := m.clock.Now()
	params := store.TransitionParams{
		OrderId:        order.Id,
		From:           order.EscrowStatus,
		To:             req.To,
		OrderStatus:    req.OrderStatus,
		At:             now,
		AutoReleaseAt:  req.AutoReleaseAt,
		BuyerConfirmed: req.BuyerConfirmed,
		Dispute:        req.Dispute,
		TransferStatus: req.TransferStatus,
		TransferNote:   req.TransferNote,
	}
	if p := req.Payout; p != nil {
		params.PayoutStatus = p.Status
		params.PayoutTransferId = p.TransferId
		if p.Status == models.PayoutStatusCompleted {
			params.SellerPaidAt = &now
		}
	}

	applied, err := m.store.TransitionEscrow(ctx, params)
	if err != nil {
		return false, err
	}
	if applied {
		zap.L().Info("Escrow transitioned",
			zap.String("order_id", order.Id),
			zap.String("from", string(order.EscrowStatus)),
			zap.String("to", string(req.To)))
		return true, nil
	}

	// Lost the compare-and-set. Reaching the same target concurrently is fine.
	current, err := m.store.GetOrder(ctx, order.Id)
	if err != nil {
		return false, err
	}
	if current.EscrowStatus == req.To {
		return false, nil
	}
	return false, fmt.Errorf("order %s moved to %s while transitioning to %s: %w",
		order.Id, current.EscrowStatus, req.To, store.ErrConcurrentModification)
}
