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

package settlement

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// Loop triggers Run on a fixed interval inside the daemon. A single ticker
// goroutine means runs never overlap.
type Loop struct {
	scheduler *Scheduler
	secret    string
	interval  time.Duration

	stopChan chan struct{}
	doneChan chan struct{}
}

func NewLoop(scheduler *Scheduler, secret string, interval time.Duration) *Loop {
	return &Loop{
		scheduler: scheduler,
		secret:    secret,
		interval:  interval,
		stopChan:  make(chan struct{}),
		doneChan:  make(chan struct{}),
	}
}

// Start begins the settlement loop
func (l *Loop) Start(ctx context.Context) error {
	if l.interval <= 0 {
		return errors.New("settlement interval must be positive")
	}
	go l.pollLoop(ctx)
	zap.L().Info("Settlement loop started", zap.Duration("interval", l.interval))
	return nil
}

// Stop gracefully stops the loop and waits for an in-flight run to finish
func (l *Loop) Stop() {
	zap.L().Info("Stopping settlement loop")
	close(l.stopChan)
	<-l.doneChan
	zap.L().Info("Settlement loop stopped")
}

func (l *Loop) pollLoop(ctx context.Context) {
	defer close(l.doneChan)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	l.runOnce(ctx)

	for {
		select {
		case <-ticker.C:
			l.runOnce(ctx)
		case <-l.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (l *Loop) runOnce(ctx context.Context) {
	if _, err := l.scheduler.Run(ctx, l.secret); err != nil {
		zap.L().Error("Settlement run failed", zap.Error(err))
	}
}
