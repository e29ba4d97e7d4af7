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

// Package notify writes notification records for buyers and sellers. Delivery is someone else's job.
package notify

import (
	"context"
	"fmt"

	"resale-escrow-go/internal/clock"
	"resale-escrow-go/internal/models"

	"github.com/google/uuid"
)

const effect = "notification"

// Writer is the slice of the store the emitter needs.
type Writer interface {
	InsertNotification(ctx context.Context, notification models.Notification) error
}

type Emitter struct {
	writer Writer
	clock  clock.Clock
}

func NewEmitter(w Writer, c clock.Clock) *Emitter {
	return &Emitter{writer: w, clock: c}
}

// Emit stores n and reports what happened. Callers log failures and move on.
func (e *Emitter) Emit(ctx context.Context, n models.Notification) models.Outcome {
	if n.UserId == "" {
		return models.FailedWith(effect, fmt.Errorf("notification %s has no recipient", n.Type))
	}
	if n.Id == "" {
		n.Id = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = e.clock.Now()
	}
	if err := e.writer.InsertNotification(ctx, n); err != nil {
		return models.FailedWith(effect, fmt.Errorf("insert %s notification for %s: %w", n.Type, n.UserId, err))
	}
	return models.Succeeded(effect)
}
