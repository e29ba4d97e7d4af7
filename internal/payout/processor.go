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

package payout

import (
	"context"
	"errors"

	"resale-escrow-go/internal/models"
)

var (
	ErrUnknownRail   = errors.New("payout: no processor for rail")
	ErrInvalidAmount = errors.New("payout: amount must be positive")
)

// Processor moves money to a seller's registered destination on one rail.
type Processor interface {
	Rail() models.PayoutRail
	AccountStatus(ctx context.Context, account models.PayoutAccount) (models.AccountStatus, error)
	CreateTransfer(ctx context.Context, req models.TransferRequest) (models.TransferResult, error)
}

// Router selects the processor registered for a rail.
type Router struct {
	processors map[models.PayoutRail]Processor
}

func NewRouter(processors ...Processor) *Router {
	r := &Router{processors: make(map[models.PayoutRail]Processor, len(processors))}
	for _, p := range processors {
		if p != nil {
			r.processors[p.Rail()] = p
		}
	}
	return r
}

func (r *Router) For(rail models.PayoutRail) (Processor, error) {
	p, ok := r.processors[rail]
	if !ok {
		return nil, ErrUnknownRail
	}
	return p, nil
}
