package database

import (
	"context"
	"encoding/json"
	"fmt"

	"resale-escrow-go/internal/models"
)

func (s *Service) InsertNotification(ctx context.Context, n models.Notification) error {
	data, err := json.Marshal(n.Data)
	if err != nil {
		return fmt.Errorf("unable to encode notification data: %w", err)
	}
	_, err = s.db.ExecContext(ctx, queryInsertNotification,
		n.Id, n.UserId, n.Type, n.Title, n.Body, n.OrderId, string(data), toUnix(n.CreatedAt))
	if err != nil {
		return fmt.Errorf("unable to insert notification for user %s: %w", n.UserId, err)
	}
	return nil
}

func (s *Service) ListNotifications(ctx context.Context, userId string, limit int) ([]models.Notification, error) {
	rows, err := s.db.QueryContext(ctx, queryListNotifications, userId, limit)
	if err != nil {
		return nil, fmt.Errorf("unable to list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		var (
			n         models.Notification
			data      string
			createdAt int64
		)
		if err := rows.Scan(&n.Id, &n.UserId, &n.Type, &n.Title, &n.Body, &n.OrderId, &data, &createdAt); err != nil {
			return nil, fmt.Errorf("unable to scan notification: %w", err)
		}
		if err := json.Unmarshal([]byte(data), &n.Data); err != nil {
			return nil, fmt.Errorf("unable to decode notification data: %w", err)
		}
		n.CreatedAt = fromUnix(createdAt)
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}
