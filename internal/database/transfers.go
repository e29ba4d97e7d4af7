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
)

func scanTransfer(row rowScanner) (*models.Transfer, error) {
	var (
		transfer            models.Transfer
		confirmedAt         sql.NullInt64
		deadline, createdAt int64
	)
	err := row.Scan(
		&transfer.Id, &transfer.OrderId, &transfer.SellerId, &transfer.BuyerId, &transfer.Status,
		&deadline, &confirmedAt, &transfer.Reminder12hSent, &transfer.Reminder2hSent,
		&transfer.Notes, &createdAt,
	)
	if err != nil {
		return nil, err
	}
	transfer.TransferDeadline = fromUnix(deadline)
	transfer.BuyerConfirmedAt = fromNullUnix(confirmedAt)
	transfer.CreatedAt = fromUnix(createdAt)
	return &transfer, nil
}

func (s *Service) queryTransfers(ctx context.Context, query string, args ...any) ([]models.Transfer, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transfers []models.Transfer
	for rows.Next() {
		transfer, err := scanTransfer(rows)
		if err != nil {
			return nil, fmt.Errorf("unable to scan transfer: %w", err)
		}
		transfers = append(transfers, *transfer)
	}
	return transfers, rows.Err()
}

func (s *Service) GetTransfer(ctx context.Context, orderId string) (*models.Transfer, error) {
	transfer, err := scanTransfer(s.db.QueryRowContext(ctx, queryGetTransfer, orderId))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transfer for order %s: %w", orderId, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to get transfer for order %s: %w", orderId, err)
	}
	return transfer, nil
}

func (s *Service) ListReminderDue(ctx context.Context, q store.ReminderQuery) ([]models.Transfer, error) {
	query := queryListReminder12hDue
	if q.Kind == models.Reminder2h {
		query = queryListReminder2hDue
	}
	transfers, err := s.queryTransfers(ctx, query, toUnix(q.Now), toUnix(q.Now.Add(q.Kind.Horizon())), q.Limit)
	if err != nil {
		return nil, fmt.Errorf("unable to list %s reminders: %w", q.Kind, err)
	}
	return transfers, nil
}

// MarkReminderSent flips the reminder flag once. False means another run already sent it.
func (s *Service) MarkReminderSent(ctx context.Context, transferId string, kind models.ReminderKind) (bool, error) {
	query := queryMarkReminder12hSent
	if kind == models.Reminder2h {
		query = queryMarkReminder2hSent
	}
	result, err := s.db.ExecContext(ctx, query, transferId)
	if err != nil {
		return false, fmt.Errorf("unable to mark %s reminder for transfer %s: %w", kind, transferId, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("unable to read rows affected: %w", err)
	}
	return affected == 1, nil
}

func (s *Service) ListOverdueTransfers(ctx context.Context, now time.Time, limit int) ([]models.Transfer, error) {
	transfers, err := s.queryTransfers(ctx, queryListOverdueTransfers, toUnix(now), limit)
	if err != nil {
		return nil, fmt.Errorf("unable to list overdue transfers: %w", err)
	}
	return transfers, nil
}
