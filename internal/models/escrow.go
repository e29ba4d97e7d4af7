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

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type EscrowStatus string

const (
	EscrowPendingTransfer          EscrowStatus = "pending_transfer"
	EscrowBuyerConfirmationPending EscrowStatus = "buyer_confirmation_pending"
	EscrowReleased                 EscrowStatus = "released"
	EscrowDisputed                 EscrowStatus = "disputed"
	EscrowRefunded                 EscrowStatus = "refunded"
)

// OrderStatus is the sale lifecycle status shown to buyers and sellers
type OrderStatus string

const (
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusDisputed  OrderStatus = "disputed"
	OrderStatusRefunded  OrderStatus = "refunded"
)

// PayoutStatus tracks the physical payout to the seller, independent of escrow state
type PayoutStatus string

const (
	PayoutStatusPending        PayoutStatus = "pending"
	PayoutStatusCompleted      PayoutStatus = "completed"
	PayoutStatusPendingConnect PayoutStatus = "pending_connect"
	PayoutStatusFailed         PayoutStatus = "failed"
)

// Order represents a purchase of a listing. EscrowStatus is only mutated through the escrow state machine.
type Order struct {
	Id                     string          `db:"id"`
	ListingId              string          `db:"listing_id"`
	BuyerId                string          `db:"buyer_id"`
	SellerId               string          `db:"seller_id"`
	Amount                 decimal.Decimal `db:"amount"`
	SellerPayoutAmount     decimal.Decimal `db:"seller_payout_amount"`
	Currency               string          `db:"currency"`
	Status                 OrderStatus     `db:"status"`
	EscrowStatus           EscrowStatus    `db:"escrow_status"`
	AutoReleaseScheduledAt *time.Time      `db:"auto_release_scheduled_at"`
	DisputeId              string          `db:"dispute_id"`
	SellerPayoutStatus     PayoutStatus    `db:"seller_payout_status"`
	PayoutTransferId       string          `db:"payout_transfer_id"`
	BuyerConfirmedReceipt  bool            `db:"buyer_confirmed_receipt"`
	BuyerConfirmedAt       *time.Time      `db:"buyer_confirmed_at"`
	EscrowReleasedAt       *time.Time      `db:"escrow_released_at"`
	SellerPaidAt           *time.Time      `db:"seller_paid_at"`
	CreatedAt              time.Time       `db:"created_at"`
	UpdatedAt              time.Time       `db:"updated_at"`
}

// Escrow mirrors the funds held for one order
type Escrow struct {
	Id              string          `db:"id"`
	OrderId         string          `db:"order_id"`
	Status          EscrowStatus    `db:"status"`
	Amount          decimal.Decimal `db:"amount"`
	FundsReleasedAt *time.Time      `db:"funds_released_at"`
	CreatedAt       time.Time       `db:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at"`
}

type TransferStatus string

const (
	TransferPending   TransferStatus = "pending"
	TransferSent      TransferStatus = "sent"
	TransferConfirmed TransferStatus = "confirmed"
	TransferFailed    TransferStatus = "failed"
)

// Transfer is the seller's obligation to deliver the ticket before the deadline.
// SellerId and BuyerId are joined from the order.
type Transfer struct {
	Id               string         `db:"id"`
	OrderId          string         `db:"order_id"`
	SellerId         string         `db:"seller_id"`
	BuyerId          string         `db:"buyer_id"`
	Status           TransferStatus `db:"status"`
	TransferDeadline time.Time      `db:"transfer_deadline"`
	BuyerConfirmedAt *time.Time     `db:"buyer_confirmed_at"`
	Reminder12hSent  bool           `db:"reminder_12h_sent"`
	Reminder2hSent   bool           `db:"reminder_2h_sent"`
	Notes            string         `db:"notes"`
	CreatedAt        time.Time      `db:"created_at"`
}

// ReminderKind selects one of the two transfer-deadline reminders
type ReminderKind string

const (
	Reminder12h ReminderKind = "12h"
	Reminder2h  ReminderKind = "2h"
)

// Horizon is how far ahead of the transfer deadline the reminder fires
func (k ReminderKind) Horizon() time.Duration {
	if k == Reminder2h {
		return 2 * time.Hour
	}
	return 12 * time.Hour
}

type DisputeReason string

const (
	DisputeTicketNotReceived DisputeReason = "ticket_not_received"
	DisputeTicketInvalid     DisputeReason = "ticket_invalid"
	DisputeNotAsDescribed    DisputeReason = "not_as_described"
	DisputeOther             DisputeReason = "other"
)

// ParseDisputeReason returns false for reasons buyers cannot choose
func ParseDisputeReason(s string) (DisputeReason, bool) {
	switch r := DisputeReason(s); r {
	case DisputeTicketNotReceived, DisputeTicketInvalid, DisputeNotAsDescribed, DisputeOther:
		return r, true
	}
	return "", false
}

type DisputeStatus string

const (
	DisputeOpen     DisputeStatus = "open"
	DisputeResolved DisputeStatus = "resolved"
)

// Dispute is a contest over an order's fulfillment
type Dispute struct {
	Id               string        `db:"id"`
	OrderId          string        `db:"order_id"`
	BuyerId          string        `db:"buyer_id"`
	SellerId         string        `db:"seller_id"`
	Reason           DisputeReason `db:"reason"`
	Description      string        `db:"description"`
	Status           DisputeStatus `db:"status"`
	OpenedBy         string        `db:"opened_by"` // "system" or the buyer id
	ResponseDeadline time.Time     `db:"response_deadline"`
	CreatedAt        time.Time     `db:"created_at"`
}

// DisputeOpenedBySystem marks disputes raised by the dispute automator
const DisputeOpenedBySystem = "system"
