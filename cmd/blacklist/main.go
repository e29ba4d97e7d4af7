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
	"strings"

	"resale-escrow-go/internal/common"
	"resale-escrow-go/internal/config"
	"resale-escrow-go/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func parseEntry(entryType, value, reason string) (models.BlacklistEntry, error) {
	t := models.BlacklistEntryType(entryType)
	if t != models.BlacklistOrderReference && t != models.BlacklistEmailDomain {
		return models.BlacklistEntry{}, fmt.Errorf("unknown entry type: %s (want order_reference or email_domain)", entryType)
	}
	if strings.TrimSpace(value) == "" {
		return models.BlacklistEntry{}, fmt.Errorf("value cannot be empty")
	}
	if t == models.BlacklistEmailDomain {
		value = strings.TrimPrefix(strings.TrimSpace(value), "@")
		if strings.Contains(value, "@") || !strings.Contains(value, ".") {
			return models.BlacklistEntry{}, fmt.Errorf("invalid email domain: %s", value)
		}
	}
	if strings.TrimSpace(reason) == "" {
		return models.BlacklistEntry{}, fmt.Errorf("reason cannot be empty")
	}
	entry := models.BlacklistEntry{Id: uuid.NewString(), EntryType: t, Value: value, Reason: reason}
	return entry.Normalized(), nil
}

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	typeFlag := flag.String("type", "", "Entry type: order_reference or email_domain (required)")
	valueFlag := flag.String("value", "", "Order reference or email domain to block (required)")
	reasonFlag := flag.String("reason", "", "Why the value is blocked (required)")
	checkFlag := flag.String("check-reference", "", "Only report whether this order reference is blocked")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	// Blacklist maintenance needs the store only, not the payout rails.
	st, err := common.InitializeStore(ctx, cfg.Database)
	if err != nil {
		zap.L().Fatal("Failed to initialize database", zap.Error(err))
	}
	defer st.Close()

	if *checkFlag != "" {
		hits, err := st.MatchBlacklist(ctx, models.NormalizeOrderReference(*checkFlag), "")
		if err != nil {
			zap.L().Fatal("Failed to match blacklist", zap.Error(err))
		}
		if len(hits) == 0 {
			fmt.Printf("✓ %s is not blacklisted\n", *checkFlag)
			return
		}
		for i, h := range hits {
			fmt.Printf("%s %s: %s (%s)\n", common.BoxPrefix(i == len(hits)-1), h.EntryType, h.Value, h.Reason)
		}
		return
	}

	entry, err := parseEntry(*typeFlag, *valueFlag, *reasonFlag)
	if err != nil {
		zap.L().Fatal("Invalid blacklist entry", zap.Error(err))
	}
	if err := st.AddBlacklistEntry(ctx, entry); err != nil {
		zap.L().Fatal("Failed to add blacklist entry", zap.Error(err))
	}

	common.PrintHeader("BLACKLIST ENTRY ADDED", common.DefaultWidth)
	fmt.Printf("ID:     %s\n", entry.Id)
	fmt.Printf("Type:   %s\n", entry.EntryType)
	fmt.Printf("Value:  %s\n", entry.Value)
	fmt.Printf("Reason: %s\n", entry.Reason)
	common.PrintSeparator("=", common.DefaultWidth)

	zap.L().Info("Blacklist entry added",
		zap.String("id", entry.Id),
		zap.String("type", string(entry.EntryType)),
		zap.String("value", entry.Value))
}
