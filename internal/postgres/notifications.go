package postgres

import (
	"context"
	"fmt"

	"resale-escrow-go/internal/models"
)

func (s *Service) InsertNotification(ctx context.Context, n models.Notification) error {
	data := n.Data
	if data == nil {
		data = map[string]string{}
	}
	_, err := s.q(ctx).Exec(ctx, queryInsertNotification, n.Id, n.UserId, n.Type, n.Title, n.Body, n.OrderId, data, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert notification for user %s: %w", n.UserId, err)
	}
	return nil
}

func (s *Service) ListNotifications(ctx context.Context, userId string, limit int) ([]models.Notification, error) {
	rows, err := s.q(ctx).Query(ctx, queryListNotifications, userId, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.Id, &n.UserId, &n.Type, &n.Title, &n.Body, &n.OrderId, &n.Data, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}
