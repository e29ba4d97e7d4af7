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

// Package settlement runs the periodic escrow passes: auto-release, listing expiry,
// transfer reminders and overdue-transfer disputes.
package settlement

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"sync"
	"time"

	"resale-escrow-go/internal/clock"
	"resale-escrow-go/internal/escrow"
	"resale-escrow-go/internal/formance"
	"resale-escrow-go/internal/models"
	"resale-escrow-go/internal/notify"
	"resale-escrow-go/internal/payout"
	"resale-escrow-go/internal/store"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const autoReleaseNote = "Auto-released: buyer confirmation window elapsed"

var (
	ErrUnauthorized  = errors.New("settlement: invalid credential")
	ErrMisconfigured = errors.New("settlement: scheduler is not configured")
)

// Store is the slice of the escrow store the scheduler selects work from.
type Store interface {
	GetOrder(ctx context.Context, orderId string) (*models.Order, error)
	ListAutoReleasable(ctx context.Context, now time.Time, limit int) ([]models.Order, error)
	ExpireListings(ctx context.Context, cutoff time.Time) (int64, error)
	ListReminderDue(ctx context.Context, query store.ReminderQuery) ([]models.Transfer, error)
	MarkReminderSent(ctx context.Context, transferId string, kind models.ReminderKind) (bool, error)
	ListOverdueTransfers(ctx context.Context, now time.Time, limit int) ([]models.Transfer, error)
}

type Payer interface {
	Dispatch(ctx context.Context, order models.Order, reason payout.Reason) models.PayoutResult
}

type Escalator interface {
	EscalateOverdue(ctx context.Context, transfer models.Transfer) (*models.Dispute, error)
}

type Notifier interface {
	Emit(ctx context.Context, n models.Notification) models.Outcome
}

// SchedulerConfig contains the collaborators of a Scheduler
type SchedulerConfig struct {
	Store               Store
	Machine             *escrow.Machine
	Payouts             Payer
	Disputes            Escalator
	Notifier            Notifier
	Journal             formance.Journal
	Clock               clock.Clock
	Secret              string
	Workers             int
	BatchSize           int
	ListingExpiryWindow time.Duration
}

type Scheduler struct {
	store        Store
	machine      *escrow.Machine
	payouts      Payer
	disputes     Escalator
	notifier     Notifier
	journal      formance.Journal
	clock        clock.Clock
	secret       string
	workers      int
	batchSize    int
	expiryWindow time.Duration
}

func NewScheduler(cfg SchedulerConfig) *Scheduler {
	if cfg.Workers <= 0 {
		cfg.Workers = 8
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}
	if cfg.ListingExpiryWindow <= 0 {
		cfg.ListingExpiryWindow = 2 * time.Hour
	}
	if cfg.Journal == nil {
		cfg.Journal = formance.Nop{}
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.NewSystem()
	}
	return &Scheduler{
		store:        cfg.Store,
		machine:      cfg.Machine,
		payouts:      cfg.Payouts,
		disputes:     cfg.Disputes,
		notifier:     cfg.Notifier,
		journal:      cfg.Journal,
		clock:        cfg.Clock,
		secret:       cfg.Secret,
		workers:      cfg.Workers,
		batchSize:    cfg.BatchSize,
		expiryWindow: cfg.ListingExpiryWindow,
	}
}

// report accumulates results from concurrent workers.
type report struct {
	mu      sync.Mutex
	summary models.SettlementSummary
}

func (r *report) fail(kind, orderId string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summary.Errors = append(r.summary.Errors, models.SettlementError{Type: kind, OrderId: orderId, Error: err.Error()})
}

// unreconciled records a payout that reached the seller on an order that was not released.
func (r *report) unreconciled(orderId, transferId string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summary.Errors = append(r.summary.Errors, models.SettlementError{
		Type:       models.SettlementErrAutoRelease,
		OrderId:    orderId,
		TransferId: transferId,
		Error:      fmt.Sprintf("transfer %s issued but escrow not released: %v", transferId, err),
	})
}

func (r *report) add(counter *int, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	*counter += n
}

// Run authenticates the caller and executes every pass once. Item failures are
// reported in the summary; only misconfiguration and bad credentials return an error.
func (s *Scheduler) Run(ctx context.Context, credential string) (*models.SettlementSummary, error) {
	if s.secret == "" || s.store == nil || s.machine == nil || s.payouts == nil || s.disputes == nil || s.notifier == nil {
		return nil, ErrMisconfigured
	}
	if subtle.ConstantTimeCompare([]byte(credential), []byte(s.secret)) != 1 {
		return nil, ErrUnauthorized
	}

	start := s.clock.Now()
	rep := &report{summary: models.SettlementSummary{Errors: []models.SettlementError{}}}

	s.autoReleasePass(ctx, rep, start)
	s.expiryPass(ctx, rep, start)
	s.reminderPass(ctx, rep, start, models.Reminder12h)
	s.reminderPass(ctx, rep, start, models.Reminder2h)
	s.disputePass(ctx, rep, start)

	rep.summary.Success = true
	zap.L().Info("Settlement run completed",
		zap.Int("auto_released", rep.summary.AutoReleased),
		zap.Int("expired_listings", rep.summary.ExpiredListings),
		zap.Int("reminders_sent", rep.summary.RemindersSent),
		zap.Int("disputes_created", rep.summary.DisputesCreated),
		zap.Int("errors", len(rep.summary.Errors)))
	return &rep.summary, nil
}

// each runs fn over items with at most workers in flight.
func each[T any](ctx context.Context, workers int, items []T, fn func(context.Context, T)) {
	var g errgroup.Group
	g.SetLimit(workers)
	for _, item := range items {
		if ctx.Err() != nil {
			break
		}
		item := item
		g.Go(func() error {
			fn(ctx, item)
			return nil
		})
	}
	_ = g.Wait()
}

func (s *Scheduler) autoReleasePass(ctx context.Context, rep *report, now time.Time) {
	orders, err := s.store.ListAutoReleasable(ctx, now, s.batchSize)
	if err != nil {
		rep.fail(models.SettlementErrAutoRelease, "", fmt.Errorf("select auto-releasable orders: %w", err))
		return
	}

	each(ctx, s.workers, orders, func(ctx context.Context, order models.Order) {
		released, result, err := s.release(ctx, rep, order, now)
		if err != nil && result.Status == models.PayoutStatusCompleted {
			zap.L().Error("Seller paid but escrow not released, reconcile manually",
				zap.String("order_id", order.Id),
				zap.String("transfer_id", result.TransferId),
				zap.Error(err))
			rep.unreconciled(order.Id, result.TransferId, err)
			return
		}
		if err != nil {
			zap.L().Error("Auto-release failed", zap.String("order_id", order.Id), zap.Error(err))
			rep.fail(models.SettlementErrAutoRelease, order.Id, err)
			return
		}
		if released {
			rep.add(&rep.summary.AutoReleased, 1)
		}
	})
}

// release pays the seller and releases escrow. The guard is applied to a fresh read of
// the order, not the batch row.
func (s *Scheduler) release(ctx context.Context, rep *report, order models.Order, now time.Time) (bool, models.PayoutResult, error) {
	due := escrow.AutoReleaseDue(now)
	if !due(order) {
		return false, models.PayoutResult{}, nil
	}
	current, err := s.store.GetOrder(ctx, order.Id)
	if err != nil {
		return false, models.PayoutResult{}, fmt.Errorf("reload order: %w", err)
	}
	if current.EscrowStatus != models.EscrowBuyerConfirmationPending || !due(*current) {
		return false, models.PayoutResult{}, nil
	}
	order = *current

	result := s.payouts.Dispatch(ctx, order, payout.ReasonAutoRelease)
	if result.Status == models.PayoutStatusFailed {
		rep.fail(models.SettlementErrPayout, order.Id, result.Err)
	}

	applied, err := s.machine.Transition(ctx, order, escrow.Request{
		To:             models.EscrowReleased,
		Guard:          due,
		OrderStatus:    models.OrderStatusCompleted,
		Payout:         &result,
		TransferStatus: models.TransferConfirmed,
		TransferNote:   autoReleaseNote,
	})
	if err != nil || !applied {
		return false, result, err
	}

	order.EscrowStatus = models.EscrowReleased
	order.SellerPayoutStatus = result.Status
	order.PayoutTransferId = result.TransferId

	logger := zap.L().With(zap.String("order_id", order.Id))
	s.journal.RecordRelease(ctx, order, result).Log(logger, "Escrow journal")
	s.notifier.Emit(ctx, notify.FundsReleased(order, true)).Log(logger, "Seller funds-released notification")
	s.notifier.Emit(ctx, notify.OrderCompleted(order)).Log(logger, "Buyer order-completed notification")
	return true, result, nil
}

func (s *Scheduler) expiryPass(ctx context.Context, rep *report, now time.Time) {
	n, err := s.store.ExpireListings(ctx, now.Add(s.expiryWindow))
	if err != nil {
		rep.fail(models.SettlementErrExpiry, "", err)
		return
	}
	rep.add(&rep.summary.ExpiredListings, int(n))
}

func (s *Scheduler) reminderPass(ctx context.Context, rep *report, now time.Time, kind models.ReminderKind) {
	transfers, err := s.store.ListReminderDue(ctx, store.ReminderQuery{Kind: kind, Now: now, Limit: s.batchSize})
	if err != nil {
		rep.fail(models.SettlementErrReminder, "", fmt.Errorf("select %s reminders: %w", kind, err))
		return
	}

	each(ctx, s.workers, transfers, func(ctx context.Context, transfer models.Transfer) {
		flipped, err := s.store.MarkReminderSent(ctx, transfer.Id, kind)
		if err != nil {
			rep.fail(models.SettlementErrReminder, transfer.OrderId, err)
			return
		}
		if !flipped {
			return
		}
		logger := zap.L().With(zap.String("order_id", transfer.OrderId), zap.String("reminder", string(kind)))
		s.notifier.Emit(ctx, notify.TransferReminder(transfer, kind)).Log(logger, "Seller transfer reminder")
		rep.add(&rep.summary.RemindersSent, 1)
	})
}

func (s *Scheduler) disputePass(ctx context.Context, rep *report, now time.Time) {
	transfers, err := s.store.ListOverdueTransfers(ctx, now, s.batchSize)
	if err != nil {
		rep.fail(models.SettlementErrDispute, "", fmt.Errorf("select overdue transfers: %w", err))
		return
	}

	each(ctx, s.workers, transfers, func(ctx context.Context, transfer models.Transfer) {
		d, err := s.disputes.EscalateOverdue(ctx, transfer)
		if err != nil {
			zap.L().Error("Dispute escalation failed", zap.String("order_id", transfer.OrderId), zap.Error(err))
			rep.fail(models.SettlementErrDispute, transfer.OrderId, err)
			return
		}
		if d != nil {
			rep.add(&rep.summary.DisputesCreated, 1)
		}
	})
}
