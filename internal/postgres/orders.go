package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"resale-escrow-go/internal/models"
	"resale-escrow-go/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

func scanOrder(row pgx.Row) (*models.Order, error) {
	var order models.Order
	err := row.Scan(
		&order.Id, &order.ListingId, &order.BuyerId, &order.SellerId,
		&order.Amount, &order.SellerPayoutAmount, &order.Currency, &order.Status,
		&order.EscrowStatus, &order.AutoReleaseScheduledAt, &order.DisputeId, &order.SellerPayoutStatus,
		&order.PayoutTransferId, &order.BuyerConfirmedReceipt, &order.BuyerConfirmedAt,
		&order.EscrowReleasedAt, &order.SellerPaidAt, &order.CreatedAt, &order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *Service) GetOrder(ctx context.Context, orderId string) (*models.Order, error) {
	order, err := scanOrder(s.q(ctx).QueryRow(ctx, queryGetOrder, orderId))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("order %s: %w", orderId, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get order %s: %w", orderId, err)
	}
	return order, nil
}

func (s *Service) GetEscrow(ctx context.Context, orderId string) (*models.Escrow, error) {
	var escrow models.Escrow
	err := s.q(ctx).QueryRow(ctx, queryGetEscrow, orderId).Scan(
		&escrow.Id, &escrow.OrderId, &escrow.Status, &escrow.Amount, &escrow.FundsReleasedAt,
		&escrow.CreatedAt, &escrow.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("escrow for order %s: %w", orderId, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get escrow for order %s: %w", orderId, err)
	}
	return &escrow, nil
}

func (s *Service) ListAutoReleasable(ctx context.Context, now time.Time, limit int) ([]models.Order, error) {
	rows, err := s.q(ctx).Query(ctx, queryListAutoReleasable, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list auto-releasable orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *order)
	}
	return orders, rows.Err()
}

// TransitionEscrow applies a guarded transition. It returns false without error
// when the order no longer holds params.From.
func (s *Service) TransitionEscrow(ctx context.Context, params store.TransitionParams) (bool, error) {
	at := params.At.UTC()
	var disputeId string
	if params.Dispute != nil {
		disputeId = params.Dispute.Id
	}
	var confirmedAt *time.Time
	if params.BuyerConfirmed {
		confirmedAt = &at
	}

	err := s.withTx(ctx, func(ctx context.Context) error {
		tag, err := s.q(ctx).Exec(ctx, queryTransitionOrder,
			params.To, params.OrderStatus, params.AutoReleaseAt, disputeId, params.BuyerConfirmed,
			params.PayoutStatus, params.PayoutTransferId, params.SellerPaidAt,
			params.OrderId, params.From, at)
		if err != nil {
			return fmt.Errorf("transition order %s: %w", params.OrderId, err)
		}
		if tag.RowsAffected() == 0 {
			return errNoTransition
		}

		if d := params.Dispute; d != nil {
			_, err = s.q(ctx).Exec(ctx, queryInsertDispute,
				d.Id, d.OrderId, d.BuyerId, d.SellerId, d.Reason, d.Description, d.Status, d.OpenedBy,
				d.ResponseDeadline, d.CreatedAt)
			if isUniqueViolation(err) {
				return fmt.Errorf("order %s already has an open dispute: %w", params.OrderId, store.ErrConcurrentModification)
			}
			if err != nil {
				return fmt.Errorf("insert dispute for order %s: %w", params.OrderId, err)
			}
		}

		if _, err = s.q(ctx).Exec(ctx, queryTransitionEscrow, params.To, at, params.OrderId); err != nil {
			return fmt.Errorf("update escrow for order %s: %w", params.OrderId, err)
		}

		if params.TransferStatus != "" {
			_, err = s.q(ctx).Exec(ctx, queryUpdateTransfer, params.TransferStatus, params.TransferNote, confirmedAt, params.OrderId)
			if err != nil {
				return fmt.Errorf("update transfer for order %s: %w", params.OrderId, err)
			}
		}
		return nil
	})
	if errors.Is(err, errNoTransition) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) GetDispute(ctx context.Context, disputeId string) (*models.Dispute, error) {
	var d models.Dispute
	err := s.q(ctx).QueryRow(ctx, queryGetDispute, disputeId).Scan(
		&d.Id, &d.OrderId, &d.BuyerId, &d.SellerId, &d.Reason, &d.Description, &d.Status, &d.OpenedBy,
		&d.ResponseDeadline, &d.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("dispute %s: %w", disputeId, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get dispute %s: %w", disputeId, err)
	}
	return &d, nil
}

// CreateOrder inserts the order with its escrow row and ticket transfer obligation.
func (s *Service) CreateOrder(ctx context.Context, order models.Order, transferDeadline time.Time) error {
	if order.Id == "" {
		order.Id = uuid.NewString()
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}
	if order.SellerPayoutStatus == "" {
		order.SellerPayoutStatus = models.PayoutStatusPending
	}
	transferStatus := models.TransferPending
	if order.EscrowStatus != models.EscrowPendingTransfer {
		transferStatus = models.TransferSent
	}

	return s.withTx(ctx, func(ctx context.Context) error {
		_, err := s.q(ctx).Exec(ctx, queryInsertOrder,
			order.Id, order.ListingId, order.BuyerId, order.SellerId, order.Amount, order.SellerPayoutAmount,
			order.Currency, order.Status, order.EscrowStatus, order.AutoReleaseScheduledAt, order.DisputeId,
			order.SellerPayoutStatus, order.PayoutTransferId, order.BuyerConfirmedReceipt, order.BuyerConfirmedAt,
			order.EscrowReleasedAt, order.SellerPaidAt, order.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert order %s: %w", order.Id, err)
		}
		if _, err := s.q(ctx).Exec(ctx, queryInsertEscrow, uuid.NewString(), order.Id, order.EscrowStatus, order.Amount, order.CreatedAt); err != nil {
			return fmt.Errorf("insert escrow for order %s: %w", order.Id, err)
		}
		if _, err := s.q(ctx).Exec(ctx, queryInsertTransfer, uuid.NewString(), order.Id, transferStatus, transferDeadline, order.CreatedAt); err != nil {
			return fmt.Errorf("insert transfer for order %s: %w", order.Id, err)
		}
		return nil
	})
}
