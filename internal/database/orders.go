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

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"resale-escrow-go/internal/models"
	"resale-escrow-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*models.Order, error) {
	var (
		order                                          models.Order
		autoReleaseAt, confirmedAt, releasedAt, paidAt sql.NullInt64
		disputeId, payoutTransferId                    sql.NullString
		createdAt, updatedAt                           int64
	)
	err := row.Scan(
		&order.Id, &order.ListingId, &order.BuyerId, &order.SellerId,
		&order.Amount, &order.SellerPayoutAmount, &order.Currency, &order.Status,
		&order.EscrowStatus, &autoReleaseAt, &disputeId, &order.SellerPayoutStatus, &payoutTransferId,
		&order.BuyerConfirmedReceipt, &confirmedAt, &releasedAt, &paidAt, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	order.AutoReleaseScheduledAt = fromNullUnix(autoReleaseAt)
	order.DisputeId = disputeId.String
	order.PayoutTransferId = payoutTransferId.String
	order.BuyerConfirmedAt = fromNullUnix(confirmedAt)
	order.EscrowReleasedAt = fromNullUnix(releasedAt)
	order.SellerPaidAt = fromNullUnix(paidAt)
	order.CreatedAt = fromUnix(createdAt)
	order.UpdatedAt = fromUnix(updatedAt)
	return &order, nil
}

func (s *Service) GetOrder(ctx context.Context, orderId string) (*models.Order, error) {
	order, err := scanOrder(s.db.QueryRowContext(ctx, queryGetOrder, orderId))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("order %s: %w", orderId, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to get order %s: %w", orderId, err)
	}
	return order, nil
}

func (s *Service) GetEscrow(ctx context.Context, orderId string) (*models.Escrow, error) {
	var (
		escrow               models.Escrow
		releasedAt           sql.NullInt64
		createdAt, updatedAt int64
	)
	err := s.db.QueryRowContext(ctx, queryGetEscrow, orderId).Scan(
		&escrow.Id, &escrow.OrderId, &escrow.Status, &escrow.Amount, &releasedAt, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("escrow for order %s: %w", orderId, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to get escrow for order %s: %w", orderId, err)
	}
	escrow.FundsReleasedAt = fromNullUnix(releasedAt)
	escrow.CreatedAt = fromUnix(createdAt)
	escrow.UpdatedAt = fromUnix(updatedAt)
	return &escrow, nil
}

func (s *Service) ListAutoReleasable(ctx context.Context, now time.Time, limit int) ([]models.Order, error) {
	rows, err := s.db.QueryContext(ctx, queryListAutoReleasable, toUnix(now), limit)
	if err != nil {
		return nil, fmt.Errorf("unable to list auto-releasable orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("unable to scan order: %w", err)
		}
		orders = append(orders, *order)
	}
	return orders, rows.Err()
}

// TransitionEscrow applies a guarded transition. It returns false without error
// when the order no longer holds params.From.
func (s *Service) TransitionEscrow(ctx context.Context, params store.TransitionParams) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("unable to begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			zap.L().Error("Failed to rollback transition", zap.String("order_id", params.OrderId), zap.Error(err))
		}
	}()

	at := params.At.UTC()
	var disputeId any
	if params.Dispute != nil {
		disputeId = params.Dispute.Id
	}
	var confirmedAt, releasedAt *time.Time
	if params.BuyerConfirmed {
		confirmedAt = &at
	}
	if params.To == models.EscrowReleased {
		releasedAt = &at
	}

	result, err := tx.ExecContext(ctx, queryTransitionOrder,
		params.To, params.OrderStatus, nullableUnix(params.AutoReleaseAt), disputeId,
		params.BuyerConfirmed, nullableUnix(confirmedAt), nullableUnix(releasedAt),
		params.PayoutStatus, params.PayoutTransferId, nullableUnix(params.SellerPaidAt),
		toUnix(at), params.OrderId, params.From)
	if err != nil {
		return false, fmt.Errorf("unable to transition order %s: %w", params.OrderId, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("unable to read rows affected: %w", err)
	}
	if affected == 0 {
		return false, nil
	}

	if d := params.Dispute; d != nil {
		_, err = tx.ExecContext(ctx, queryInsertDispute,
			d.Id, d.OrderId, d.BuyerId, d.SellerId, d.Reason, d.Description, d.Status, d.OpenedBy,
			toUnix(d.ResponseDeadline), toUnix(d.CreatedAt))
		if err != nil {
			return false, fmt.Errorf("unable to insert dispute for order %s: %w", params.OrderId, err)
		}
	}

	if _, err = tx.ExecContext(ctx, queryTransitionEscrow, params.To, nullableUnix(releasedAt), toUnix(at), params.OrderId); err != nil {
		return false, fmt.Errorf("unable to update escrow for order %s: %w", params.OrderId, err)
	}

	if params.TransferStatus != "" {
		_, err = tx.ExecContext(ctx, queryUpdateTransfer,
			params.TransferStatus, params.TransferNote, params.TransferNote, nullableUnix(confirmedAt), params.OrderId)
		if err != nil {
			return false, fmt.Errorf("unable to update transfer for order %s: %w", params.OrderId, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("unable to commit transition for order %s: %w", params.OrderId, err)
	}
	return true, nil
}

func (s *Service) GetDispute(ctx context.Context, disputeId string) (*models.Dispute, error) {
	var (
		dispute             models.Dispute
		deadline, createdAt int64
	)
	err := s.db.QueryRowContext(ctx, queryGetDispute, disputeId).Scan(
		&dispute.Id, &dispute.OrderId, &dispute.BuyerId, &dispute.SellerId, &dispute.Reason,
		&dispute.Description, &dispute.Status, &dispute.OpenedBy, &deadline, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("dispute %s: %w", disputeId, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to get dispute %s: %w", disputeId, err)
	}
	dispute.ResponseDeadline = fromUnix(deadline)
	dispute.CreatedAt = fromUnix(createdAt)
	return &dispute, nil
}

// CreateOrder inserts the order with its escrow row and ticket transfer obligation.
func (s *Service) CreateOrder(ctx context.Context, order models.Order, transferDeadline time.Time) error {
	if order.Id == "" {
		order.Id = uuid.NewString()
	}
	now := time.Now().UTC()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	if order.SellerPayoutStatus == "" {
		order.SellerPayoutStatus = models.PayoutStatusPending
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("unable to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, queryInsertOrder,
		order.Id, order.ListingId, order.BuyerId, order.SellerId,
		order.Amount.String(), order.SellerPayoutAmount.String(), order.Currency, order.Status,
		order.EscrowStatus, nullableUnix(order.AutoReleaseScheduledAt), nullableString(order.DisputeId),
		order.SellerPayoutStatus, nullableString(order.PayoutTransferId),
		order.BuyerConfirmedReceipt, nullableUnix(order.BuyerConfirmedAt), nullableUnix(order.EscrowReleasedAt),
		nullableUnix(order.SellerPaidAt), toUnix(order.CreatedAt), toUnix(order.CreatedAt))
	if err != nil {
		return fmt.Errorf("unable to insert order %s: %w", order.Id, err)
	}

	if _, err = tx.ExecContext(ctx, queryInsertEscrow,
		uuid.NewString(), order.Id, order.EscrowStatus, order.Amount.String(), toUnix(order.CreatedAt), toUnix(order.CreatedAt)); err != nil {
		return fmt.Errorf("unable to insert escrow for order %s: %w", order.Id, err)
	}

	transferStatus := models.TransferPending
	if order.EscrowStatus != models.EscrowPendingTransfer {
		transferStatus = models.TransferSent
	}
	if _, err = tx.ExecContext(ctx, queryInsertTransfer,
		uuid.NewString(), order.Id, transferStatus, toUnix(transferDeadline), toUnix(order.CreatedAt)); err != nil {
		return fmt.Errorf("unable to insert transfer for order %s: %w", order.Id, err)
	}

	return tx.Commit()
}
