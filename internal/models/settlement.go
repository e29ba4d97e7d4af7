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

// Settlement error types reported per item
const (
	SettlementErrAutoRelease = "auto_release"
	SettlementErrPayout      = "payout"
	SettlementErrExpiry      = "listing_expiry"
	SettlementErrReminder    = "reminder"
	SettlementErrDispute     = "dispute"
)

// SettlementError is one recorded item failure
type SettlementError struct {
	Type       string `json:"type"`
	OrderId    string `json:"orderId,omitempty"`
	TransferId string `json:"transferId,omitempty"` // set when a payout needs manual reconciliation
	Error      string `json:"error"`
}

// SettlementSummary is the response body of a settlement run
type SettlementSummary struct {
	Success         bool              `json:"success"`
	AutoReleased    int               `json:"autoReleased"`
	ExpiredListings int               `json:"expiredListings"`
	RemindersSent   int               `json:"remindersSent"`
	DisputesCreated int               `json:"disputesCreated"`
	Errors          []SettlementError `json:"errors"`
}
