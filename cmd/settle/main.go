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

package main

import (
	"context"
	"flag"
	"fmt"

	"resale-escrow-go/internal/common"
	"resale-escrow-go/internal/config"

	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	secretFlag := flag.String("secret", "", "Settlement credential (defaults to SETTLEMENT_SECRET)")
	flag.Parse()

	logger.Info("Starting one-shot settlement run")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	credential := *secretFlag
	if credential == "" {
		credential = cfg.Settlement.Secret
	}

	summary, err := services.Scheduler.Run(ctx, credential)
	if err != nil {
		logger.Fatal("Settlement run rejected", zap.Error(err))
	}

	common.PrintHeader("SETTLEMENT REPORT", common.DefaultWidth)
	common.PrintSettlementSummary(summary)
	common.PrintFooter(fmt.Sprintf("SUMMARY: %d released, %d expired, %d reminders, %d disputes, %d errors",
		summary.AutoReleased, summary.ExpiredListings, summary.RemindersSent, summary.DisputesCreated, len(summary.Errors)),
		common.DefaultWidth)

	logger.Info("Settlement run completed",
		zap.Int("auto_released", summary.AutoReleased),
		zap.Int("expired_listings", summary.ExpiredListings),
		zap.Int("reminders_sent", summary.RemindersSent),
		zap.Int("disputes_created", summary.DisputesCreated),
		zap.Int("errors", len(summary.Errors)))
}
