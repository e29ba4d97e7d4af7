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
	"regexp"
	"time"

	"resale-escrow-go/internal/common"
	"resale-escrow-go/internal/config"
	"resale-escrow-go/internal/models"
	"resale-escrow-go/internal/payout"

	"go.uber.org/zap"
)

var stripeAccountRegex = regexp.MustCompile(`^acct_[A-Za-z0-9]+$`)

func validateAccount(rail models.PayoutRail, accountId, network string) error {
	switch rail {
	case models.RailStripe:
		if !stripeAccountRegex.MatchString(accountId) {
			return fmt.Errorf("invalid Stripe connected account id: %s", accountId)
		}
	case models.RailPrime:
		if accountId == "" {
			return fmt.Errorf("blockchain address cannot be empty")
		}
		if network == "" {
			return fmt.Errorf("network is required for prime payouts")
		}
	default:
		return fmt.Errorf("unknown payout rail: %s (want stripe or prime)", rail)
	}
	return nil
}

func validateTrustScore(score int) error {
	if score < 0 || score > 100 {
		return fmt.Errorf("trust score must be between 0 and 100, got %d", score)
	}
	return nil
}

func checkAccount(ctx context.Context, services *common.Services, account models.PayoutAccount) {
	processor, err := payout.NewRouter(services.Processors...).For(account.Rail)
	if err != nil {
		fmt.Printf("? %s: no processor configured, status not checked\n", account.Rail)
		return
	}
	status, err := processor.AccountStatus(ctx, account)
	if err != nil {
		zap.L().Warn("Failed to check payout account", zap.String("rail", string(account.Rail)), zap.Error(err))
		fmt.Printf("✗ %s: status check failed\n", account.Rail)
		return
	}
	if status.Active {
		fmt.Printf("✓ %s: account active\n", account.Rail)
		return
	}
	fmt.Printf("✗ %s: account inactive (%s); payouts will wait in pending_connect\n", account.Rail, status.Reason)
}

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	sellerFlag := flag.String("seller", "", "Seller id (required)")
	trustFlag := flag.Int("trust", 50, "Initial trust score 0..100")
	joinedFlag := flag.String("joined", "", "Join date as YYYY-MM-DD (default: now)")
	railFlag := flag.String("rail", "", "Payout rail: stripe or prime (optional)")
	accountFlag := flag.String("account", "", "Connected account id or blockchain address")
	networkFlag := flag.String("network", "", "Blockchain network for prime payouts, e.g. ethereum-mainnet")
	flag.Parse()

	if *sellerFlag == "" {
		zap.L().Fatal("The --seller flag is required")
	}
	if err := validateTrustScore(*trustFlag); err != nil {
		zap.L().Fatal("Invalid trust score", zap.Error(err))
	}
	joinedAt := time.Now().UTC()
	if *joinedFlag != "" {
		t, err := time.Parse("2006-01-02", *joinedFlag)
		if err != nil {
			zap.L().Fatal("Invalid join date", zap.Error(err))
		}
		joinedAt = t
	}
	rail := models.PayoutRail(*railFlag)
	if rail != "" {
		if err := validateAccount(rail, *accountFlag, *networkFlag); err != nil {
			zap.L().Fatal("Invalid payout account", zap.Error(err))
		}
	}

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	zap.L().Info("Initializing services")
	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	profile := models.SellerProfile{SellerId: *sellerFlag, TrustScore: *trustFlag, JoinedAt: joinedAt}
	if err := services.Store.UpsertSellerProfile(ctx, profile); err != nil {
		zap.L().Fatal("Failed to register seller profile", zap.Error(err))
	}

	common.PrintHeader("SELLER REGISTERED", common.DefaultWidth)
	fmt.Printf("ID:     %s\n", profile.SellerId)
	fmt.Printf("Trust:  %d\n", profile.TrustScore)
	fmt.Printf("Joined: %s\n", profile.JoinedAt.Format("2006-01-02"))
	common.PrintSeparator("=", common.DefaultWidth)

	if rail == "" {
		fmt.Println("No payout account registered; releases will wait in pending_connect")
		return
	}

	account := models.PayoutAccount{
		SellerId:  *sellerFlag,
		Rail:      rail,
		AccountId: *accountFlag,
		Network:   *networkFlag,
		CreatedAt: time.Now().UTC(),
	}
	if err := services.Store.RegisterPayoutAccount(ctx, account); err != nil {
		zap.L().Fatal("Failed to register payout account", zap.Error(err))
	}
	checkAccount(ctx, services, account)

	zap.L().Info("Seller registered",
		zap.String("seller_id", profile.SellerId),
		zap.String("rail", string(rail)))
}
