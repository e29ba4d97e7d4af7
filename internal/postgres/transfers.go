package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"resale-escrow-go/internal/models"
	"resale-escrow-go/internal/store"

	"github.com/jackc/pgx/v5"
)

func scanTransfer(row pgx.Row) (*models.Transfer, error) {
	var t models.Transfer
	err := row.Scan(
		&t.Id, &t.OrderId, &t.SellerId, &t.BuyerId, &t.Status, &t.TransferDeadline, &t.BuyerConfirmedAt,
		&t.Reminder12hSent, &t.Reminder2hSent, &t.Notes, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Service) queryTransfers(ctx context.Context, query string, args ...any) ([]models.Transfer, error) {
	rows, err := s.q(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transfers []models.Transfer
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transfer: %w", err)
		}
		transfers = append(transfers, *t)
	}
	return transfers, rows.Err()
}

func (s *Service) GetTransfer(ctx context.Context, orderId string) (*models.Transfer, error) {
	t, err := scanTransfer(s.q(ctx).QueryRow(ctx, queryGetTransfer, orderId))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("transfer for order %s: %w", orderId, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get transfer for order %s: %w", orderId, err)
	}
	return t, nil
}

func (s *Service) ListReminderDue(ctx context.Context, q store.ReminderQuery) ([]models.Transfer, error) {
	query := queryListReminder12hDue
	if q.Kind == models.Reminder2h {
		query = queryListReminder2hDue
	}
	transfers, err := s.queryTransfers(ctx, query, q.Now, q.Now.Add(q.Kind.Horizon()), q.Limit)
	if err != nil {
		return nil, fmt.Errorf("list %s reminders: %w", q.Kind, err)
	}
	return transfers, nil
}

func (s *Service) MarkReminderSent(ctx context.Context, transferId string, kind models.ReminderKind) (bool, error) {
	query := queryMarkReminder12hSent
	if kind == models.Reminder2h {
		query = queryMarkReminder2hSent
	}
	tag, err := s.q(ctx).Exec(ctx, query, transferId)
	if err != nil {
		return false, fmt.Errorf("mark %s reminder for transfer %s: %w", kind, transferId, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Service) ListOverdueTransfers(ctx context.Context, now time.Time, limit int) ([]models.Transfer, error) {
	transfers, err := s.queryTransfers(ctx, queryListOverdueTransfers, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list overdue transfers: %w", err)
	}
	return transfers, nil
}
