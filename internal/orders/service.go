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

// Package orders implements the buyer and seller actions on an escrowed order.
package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"resale-escrow-go/internal/clock"
	"resale-escrow-go/internal/escrow"
	"resale-escrow-go/internal/formance"
	"resale-escrow-go/internal/models"
	"resale-escrow-go/internal/notify"
	"resale-escrow-go/internal/payout"
	"resale-escrow-go/internal/store"

	"go.uber.org/zap"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	ErrForbidden     = errors.New("caller is not a party to this order")
	ErrInvalidState  = errors.New("order is not in a state that allows this action")
	ErrNoDispute     = errors.New("order has no dispute")
)

const (
	noteTicketSent     = "Seller marked the ticket as sent"
	noteBuyerConfirmed = "Buyer confirmed receipt"
)

type OrderReader interface {
	GetOrder(ctx context.Context, orderId string) (*models.Order, error)
	GetEscrow(ctx context.Context, orderId string) (*models.Escrow, error)
	GetTransfer(ctx context.Context, orderId string) (*models.Transfer, error)
	GetDispute(ctx context.Context, disputeId string) (*models.Dispute, error)
}

// Details is an order with the escrow, ticket transfer and dispute rows hanging off it.
type Details struct {
	Order    models.Order
	Escrow   *models.Escrow
	Transfer *models.Transfer
	Dispute  *models.Dispute
}

type Payer interface {
	Dispatch(ctx context.Context, order models.Order, reason payout.Reason) models.PayoutResult
}

type DisputeOpener interface {
	OpenForBuyer(ctx context.Context, order models.Order, reason models.DisputeReason, description string) (*models.Dispute, error)
}

type Notifier interface {
	Emit(ctx context.Context, n models.Notification) models.Outcome
}

// ServiceConfig contains the collaborators of a Service
type ServiceConfig struct {
	Orders             OrderReader
	Machine            *escrow.Machine
	Payouts            Payer
	Disputes           DisputeOpener
	Notifier           Notifier
	Journal            formance.Journal
	Clock              clock.Clock
	ConfirmationWindow time.Duration
}

type Service struct {
	orders             OrderReader
	machine            *escrow.Machine
	payouts            Payer
	disputes           DisputeOpener
	notifier           Notifier
	journal            formance.Journal
	clock              clock.Clock
	confirmationWindow time.Duration
}

func NewService(cfg ServiceConfig) *Service {
	if cfg.Journal == nil {
		cfg.Journal = formance.Nop{}
	}
	if cfg.ConfirmationWindow <= 0 {
		cfg.ConfirmationWindow = 48 * time.Hour
	}
	return &Service{
		orders:             cfg.Orders,
		machine:            cfg.Machine,
		payouts:            cfg.Payouts,
		disputes:           cfg.Disputes,
		notifier:           cfg.Notifier,
		journal:            cfg.Journal,
		clock:              cfg.Clock,
		confirmationWindow: cfg.ConfirmationWindow,
	}
}

// MarkTransferred records that the seller sent the ticket and starts the buyer confirmation window.
func (s *Service) MarkTransferred(ctx context.Context, sellerId, orderId string) (*models.Order, error) {
	order, err := s.load(ctx, orderId)
	if err != nil {
		return nil, err
	}
	if order.SellerId != sellerId {
		return nil, ErrForbidden
	}

	autoReleaseAt := s.clock.Now().Add(s.confirmationWindow)
	applied, err := s.machine.Transition(ctx, *order, escrow.Request{
		To:             models.EscrowBuyerConfirmationPending,
		Guard:          escrow.NoDispute,
		AutoReleaseAt:  &autoReleaseAt,
		TransferStatus: models.TransferSent,
		TransferNote:   noteTicketSent,
	})
	if err != nil {
		return nil, mapTransitionError(err)
	}
	if !applied && order.EscrowStatus != models.EscrowBuyerConfirmationPending {
		return nil, ErrInvalidState
	}

	updated, err := s.load(ctx, orderId)
	if err != nil {
		return nil, err
	}
	if applied {
		logger := zap.L().With(zap.String("order_id", orderId))
		s.notifier.Emit(ctx, notify.TicketSent(*updated)).Log(logger, "Buyer ticket-sent notification")
	}
	return updated, nil
}

// ConfirmReceipt releases escrow on the buyer's confirmation and pays the seller.
func (s *Service) ConfirmReceipt(ctx context.Context, buyerId, orderId string) (*models.Order, error) {
	order, err := s.load(ctx, orderId)
	if err != nil {
		return nil, err
	}
	if order.BuyerId != buyerId {
		return nil, ErrForbidden
	}
	if order.EscrowStatus == models.EscrowReleased {
		return order, nil
	}
	if order.EscrowStatus != models.EscrowBuyerConfirmationPending || order.DisputeId != "" {
		return nil, ErrInvalidState
	}

	logger := zap.L().With(zap.String("order_id", orderId))
	result := s.payouts.Dispatch(ctx, *order, payout.ReasonBuyerConfirmed)
	if result.Status == models.PayoutStatusFailed {
		logger.Warn("Seller payout failed; escrow still released", zap.Error(result.Err))
	}

	applied, err := s.machine.Transition(ctx, *order, escrow.Request{
		To:             models.EscrowReleased,
		Guard:          escrow.NoDispute,
		OrderStatus:    models.OrderStatusCompleted,
		BuyerConfirmed: true,
		Payout:         &result,
		TransferStatus: models.TransferConfirmed,
		TransferNote:   noteBuyerConfirmed,
	})
	if err != nil {
		return nil, mapTransitionError(err)
	}

	updated, err := s.load(ctx, orderId)
	if err != nil {
		return nil, err
	}
	if !applied {
		if updated.EscrowStatus != models.EscrowReleased {
			return nil, ErrInvalidState
		}
		return updated, nil
	}

	s.journal.RecordRelease(ctx, *updated, result).Log(logger, "Escrow journal")
	s.notifier.Emit(ctx, notify.FundsReleased(*updated, false)).Log(logger, "Seller funds-released notification")
	return updated, nil
}

// Contest opens a buyer dispute while escrow is still held.
func (s *Service) Contest(ctx context.Context, buyerId, orderId string, reason models.DisputeReason, description string) (*models.Dispute, error) {
	order, err := s.load(ctx, orderId)
	if err != nil {
		return nil, err
	}
	if order.BuyerId != buyerId {
		return nil, ErrForbidden
	}
	if order.DisputeId != "" || !escrow.CanTransition(order.EscrowStatus, models.EscrowDisputed) {
		return nil, ErrInvalidState
	}

	d, err := s.disputes.OpenForBuyer(ctx, *order, reason, description)
	if err != nil {
		return nil, mapTransitionError(err)
	}
	if d == nil {
		return nil, ErrInvalidState
	}
	return d, nil
}

// Details returns the order and its related rows to either party.
func (s *Service) Details(ctx context.Context, userId, orderId string) (*Details, error) {
	order, err := s.loadForParty(ctx, userId, orderId)
	if err != nil {
		return nil, err
	}
	details := &Details{Order: *order}

	if details.Escrow, err = s.orders.GetEscrow(ctx, orderId); err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	if details.Transfer, err = s.orders.GetTransfer(ctx, orderId); err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	if order.DisputeId != "" {
		if details.Dispute, err = s.orders.GetDispute(ctx, order.DisputeId); err != nil {
			return nil, fmt.Errorf("load dispute %s: %w", order.DisputeId, err)
		}
	}
	return details, nil
}

// Dispute returns the dispute raised on the order.
func (s *Service) Dispute(ctx context.Context, userId, orderId string) (*models.Dispute, error) {
	order, err := s.loadForParty(ctx, userId, orderId)
	if err != nil {
		return nil, err
	}
	if order.DisputeId == "" {
		return nil, ErrNoDispute
	}
	d, err := s.orders.GetDispute(ctx, order.DisputeId)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNoDispute
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Service) loadForParty(ctx context.Context, userId, orderId string) (*models.Order, error) {
	order, err := s.load(ctx, orderId)
	if err != nil {
		return nil, err
	}
	if order.BuyerId != userId && order.SellerId != userId {
		return nil, ErrForbidden
	}
	return order, nil
}

func (s *Service) load(ctx context.Context, orderId string) (*models.Order, error) {
	order, err := s.orders.GetOrder(ctx, orderId)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, orderId)
	}
	if err != nil {
		return nil, err
	}
	return order, nil
}

func mapTransitionError(err error) error {
	if errors.Is(err, escrow.ErrIllegalTransition) || errors.Is(err, store.ErrConcurrentModification) {
		return fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	return err
}
