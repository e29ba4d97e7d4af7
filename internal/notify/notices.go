package notify

import (
	"fmt"

	"resale-escrow-go/internal/models"
)

func FundsReleased(order models.Order, autoRelease bool) models.Notification {
	body := fmt.Sprintf("The buyer confirmed receipt. %s %s has been released to you.",
		order.SellerPayoutAmount.StringFixed(2), order.Currency)
	if autoRelease {
		body = fmt.Sprintf("The buyer confirmation window closed. %s %s has been released to you.",
			order.SellerPayoutAmount.StringFixed(2), order.Currency)
	}
	return models.Notification{
		UserId:  order.SellerId,
		Type:    models.NotificationFundsReleased,
		Title:   "Funds released",
		Body:    body,
		OrderId: order.Id,
		Data:    map[string]string{"payout_status": string(order.SellerPayoutStatus)},
	}
}

func OrderCompleted(order models.Order) models.Notification {
	return models.Notification{
		UserId:  order.BuyerId,
		Type:    models.NotificationOrderCompleted,
		Title:   "Order completed",
		Body:    "Your order is complete. Enjoy the event!",
		OrderId: order.Id,
	}
}

func TicketSent(order models.Order) models.Notification {
	return models.Notification{
		UserId:  order.BuyerId,
		Type:    models.NotificationTicketSent,
		Title:   "Your ticket is on its way",
		Body:    "The seller has sent your ticket. Confirm receipt once it arrives or raise a dispute if something is wrong.",
		OrderId: order.Id,
	}
}

func TransferReminder(transfer models.Transfer, kind models.ReminderKind) models.Notification {
	return models.Notification{
		UserId: transfer.SellerId,
		Type:   models.NotificationTransferReminder,
		Title:  "Ticket transfer due soon",
		Body: fmt.Sprintf("Please transfer the ticket before %s or the order will be disputed.",
			transfer.TransferDeadline.Format("Jan 2 15:04 MST")),
		OrderId: transfer.OrderId,
		Data:    map[string]string{"reminder": string(kind)},
	}
}

func DisputeOpened(order models.Order, dispute models.Dispute) models.Notification {
	return models.Notification{
		UserId:  order.BuyerId,
		Type:    models.NotificationDisputeOpened,
		Title:   "Dispute opened",
		Body:    "The seller missed the transfer deadline. We opened a dispute on your behalf and your funds stay protected.",
		OrderId: order.Id,
		Data:    map[string]string{"dispute_id": dispute.Id, "reason": string(dispute.Reason)},
	}
}

func TransferMissed(order models.Order, dispute models.Dispute) models.Notification {
	return models.Notification{
		UserId: order.SellerId,
		Type:   models.NotificationTransferMissed,
		Title:  "Transfer deadline missed",
		Body: fmt.Sprintf("The ticket was not transferred in time. A dispute was opened; respond before %s.",
			dispute.ResponseDeadline.Format("Jan 2 15:04 MST")),
		OrderId: order.Id,
		Data:    map[string]string{"dispute_id": dispute.Id},
	}
}

// DisputeRaised tells the seller a buyer contested the order.
func DisputeRaised(order models.Order, dispute models.Dispute) models.Notification {
	return models.Notification{
		UserId:  order.SellerId,
		Type:    models.NotificationDisputeOpened,
		Title:   "Buyer opened a dispute",
		Body:    fmt.Sprintf("The buyer reported a problem (%s). Funds stay in escrow until it is resolved.", dispute.Reason),
		OrderId: order.Id,
		Data:    map[string]string{"dispute_id": dispute.Id, "reason": string(dispute.Reason)},
	}
}
