package notify

import (
	"context"
	"fmt"

	"resale-escrow-go/internal/models"
)

const (
	DefaultFeedLimit = 20
	MaxFeedLimit     = 100
)

// Reader is the slice of the store a notification feed reads from.
type Reader interface {
	ListNotifications(ctx context.Context, userId string, limit int) ([]models.Notification, error)
}

// Recent returns the newest notifications for userId. A limit outside 1..MaxFeedLimit
// falls back to DefaultFeedLimit or MaxFeedLimit.
func Recent(ctx context.Context, r Reader, userId string, limit int) ([]models.Notification, error) {
	switch {
	case limit <= 0:
		limit = DefaultFeedLimit
	case limit > MaxFeedLimit:
		limit = MaxFeedLimit
	}
	notifications, err := r.ListNotifications(ctx, userId, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications for %s: %w", userId, err)
	}
	if notifications == nil {
		notifications = []models.Notification{}
	}
	return notifications, nil
}
