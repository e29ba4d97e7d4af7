package models

import (
	"time"

	"go.uber.org/zap"
)

type NotificationType string

const (
	NotificationFundsReleased    NotificationType = "funds_released"
	NotificationOrderCompleted   NotificationType = "order_completed"
	NotificationTransferReminder NotificationType = "transfer_reminder"
	NotificationDisputeOpened    NotificationType = "dispute_opened"
	NotificationTransferMissed   NotificationType = "transfer_missed"
	NotificationTicketSent       NotificationType = "ticket_sent"
)

// Notification is an in-app message addressed to one user
type Notification struct {
	Id        string            `db:"id"`
	UserId    string            `db:"user_id"`
	Type      NotificationType  `db:"type"`
	Title     string            `db:"title"`
	Body      string            `db:"body"`
	OrderId   string            `db:"order_id"`
	Data      map[string]string `db:"data"`
	CreatedAt time.Time         `db:"created_at"`
}

// Outcome reports a best-effort side effect. Callers log failures and carry on.
type Outcome struct {
	Effect  string
	Skipped bool
	Err     error
}

func (o Outcome) Failed() bool {
	return o.Err != nil
}

// Succeeded returns a successful outcome for effect
func Succeeded(effect string) Outcome {
	return Outcome{Effect: effect}
}

// FailedWith returns a failed outcome for effect
func FailedWith(effect string, err error) Outcome {
	return Outcome{Effect: effect, Err: err}
}

// SkippedOutcome is returned when the side effect is not configured
func SkippedOutcome(effect string) Outcome {
	return Outcome{Effect: effect, Skipped: true}
}

// Log records a best-effort outcome. Failures are warnings; nothing propagates.
func (o Outcome) Log(logger *zap.Logger, msg string) {
	switch {
	case o.Failed():
		logger.Warn(msg, zap.String("effect", o.Effect), zap.Error(o.Err))
	case o.Skipped:
		logger.Debug(msg, zap.String("effect", o.Effect), zap.Bool("skipped", true))
	default:
		logger.Debug(msg, zap.String("effect", o.Effect))
	}
}
