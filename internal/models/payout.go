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

// PayoutRail names a payment processor able to pay sellers
type PayoutRail string

const (
	RailStripe PayoutRail = "stripe"
	RailPrime  PayoutRail = "prime"
)

// PayoutAccount is the seller's registered payout destination
type PayoutAccount struct {
	SellerId  string     `db:"seller_id"`
	Rail      PayoutRail `db:"rail"`
	AccountId string     `db:"account_id"` // connected account id or blockchain address
	Network   string     `db:"network"`    // only for on-chain rails
	CreatedAt time.Time  `db:"created_at"`
}

// AccountStatus is a processor's view of a payout destination
type AccountStatus struct {
	Active bool
	Reason string
}

// TransferRequest asks a processor to move funds to a seller
type TransferRequest struct {
	OrderId        string
	SellerId       string
	Account        PayoutAccount
	Amount         decimal.Decimal
	Currency       string
	IdempotencyKey string
	Metadata       map[string]string
}

// TransferResult is the processor's receipt for a transfer
type TransferResult struct {
	TransferId string
}

// PayoutResult is the dispatcher's verdict for one order
type PayoutResult struct {
	Status     PayoutStatus
	TransferId string
	Rail       PayoutRail
	Err        error
}
