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

// Package stripeconnect pays sellers through Stripe Connect transfers to their connected accounts.
package stripeconnect

import (
	"context"
	"fmt"
	"strings"
	"time"

	"resale-escrow-go/internal/models"
	"resale-escrow-go/internal/payout"
	"resale-escrow-go/internal/transport"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

var _ payout.Processor = (*Processor)(nil)

type Processor struct {
	api *client.API
}

func NewProcessor(secretKey string, timeout time.Duration) (*Processor, error) {
	if secretKey == "" {
		return nil, fmt.Errorf("stripe secret key cannot be empty")
	}
	httpClient, err := transport.NewHTTPClient(timeout)
	if err != nil {
		return nil, fmt.Errorf("unable to create http client: %w", err)
	}

	api := &client.API{}
	api.Init(secretKey, stripe.NewBackends(httpClient))
	return &Processor{api: api}, nil
}

func (p *Processor) Rail() models.PayoutRail {
	return models.RailStripe
}

// AccountStatus treats a connected account as active once Stripe enables payouts on it.
func (p *Processor) AccountStatus(ctx context.Context, account models.PayoutAccount) (models.AccountStatus, error) {
	params := &stripe.AccountParams{}
	params.Context = ctx

	acct, err := p.api.Accounts.GetByID(account.AccountId, params)
	if err != nil {
		return models.AccountStatus{}, fmt.Errorf("unable to retrieve connected account %s: %w", account.AccountId, err)
	}

	if !acct.PayoutsEnabled {
		reason := "payouts not enabled"
		if acct.Requirements != nil && acct.Requirements.DisabledReason != "" {
			reason = string(acct.Requirements.DisabledReason)
		}
		return models.AccountStatus{Active: false, Reason: reason}, nil
	}
	return models.AccountStatus{Active: true}, nil
}

func (p *Processor) CreateTransfer(ctx context.Context, req models.TransferRequest) (models.TransferResult, error) {
	params := &stripe.TransferParams{
		Amount:        stripe.Int64(minorUnits(req.Amount, req.Currency)),
		Currency:      stripe.String(strings.ToLower(req.Currency)),
		Destination:   stripe.String(req.Account.AccountId),
		TransferGroup: stripe.String(req.OrderId),
	}
	params.Context = ctx
	params.SetIdempotencyKey(req.IdempotencyKey)
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	transfer, err := p.api.Transfers.New(params)
	if err != nil {
		return models.TransferResult{}, fmt.Errorf("unable to create transfer for order %s: %w", req.OrderId, err)
	}
	return models.TransferResult{TransferId: transfer.ID}, nil
}

// minorUnits converts amount into the currency's smallest unit, e.g. cents
// for USD and whole yen for JPY.
func minorUnits(amount decimal.Decimal, currency string) int64 {
	return amount.Shift(int32(models.CurrencyPrecision(currency))).Round(0).IntPart()
}
