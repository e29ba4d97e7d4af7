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

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"resale-escrow-go/internal/models"
)

func Load() (*models.Config, error) {
	connMaxLifetime, err := getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	connMaxIdleTime, err := getEnvDuration("DB_CONN_MAX_IDLE_TIME", 30*time.Second)
	if err != nil {
		return nil, err
	}

	pingTimeout, err := getEnvDuration("DB_PING_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	interval, err := getEnvDuration("SETTLEMENT_INTERVAL", 0)
	if err != nil {
		return nil, err
	}

	confirmationWindow, err := getEnvDuration("BUYER_CONFIRMATION_WINDOW", 48*time.Hour)
	if err != nil {
		return nil, err
	}

	expiryWindow, err := getEnvDuration("LISTING_EXPIRY_WINDOW", 2*time.Hour)
	if err != nil {
		return nil, err
	}

	responseWindow, err := getEnvDuration("DISPUTE_RESPONSE_WINDOW", 24*time.Hour)
	if err != nil {
		return nil, err
	}

	processorTimeout, err := getEnvDuration("PROCESSOR_TIMEOUT", 15*time.Second)
	if err != nil {
		return nil, err
	}

	policy := models.ManualReviewPolicy(getEnvString("FRAUD_MANUAL_REVIEW_POLICY", string(models.ManualReviewFlag)))
	if policy != models.ManualReviewFlag && policy != models.ManualReviewHold {
		return nil, fmt.Errorf("invalid FRAUD_MANUAL_REVIEW_POLICY: %q (want flag or hold)", policy)
	}

	driver := getEnvString("DATABASE_DRIVER", "sqlite")
	if driver != "sqlite" && driver != "postgres" {
		return nil, fmt.Errorf("invalid DATABASE_DRIVER: %q (want sqlite or postgres)", driver)
	}

	return &models.Config{
		Database: models.DatabaseConfig{
			Driver:          driver,
			Url:             getEnvString("DATABASE_URL", ""),
			Path:            getEnvString("DATABASE_PATH", "escrow.db"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: connMaxLifetime,
			ConnMaxIdleTime: connMaxIdleTime,
			PingTimeout:     pingTimeout,
		},
		Settlement: models.SettlementConfig{
			Secret:                  getEnvString("SETTLEMENT_SECRET", ""),
			Workers:                 getEnvInt("SETTLEMENT_WORKERS", 8),
			BatchSize:               getEnvInt("SETTLEMENT_BATCH_SIZE", 500),
			Interval:                interval,
			BuyerConfirmationWindow: confirmationWindow,
			ListingExpiryWindow:     expiryWindow,
			DisputeResponseWindow:   responseWindow,
		},
		Fraud: models.FraudConfig{
			RulesFile:          getEnvString("FRAUD_RULES_FILE", ""),
			ManualReviewPolicy: policy,
		},
		Payout: models.PayoutConfig{
			Currency:         getEnvString("PAYOUT_CURRENCY", "usd"),
			ProcessorTimeout: processorTimeout,
			StripeSecretKey:  getEnvString("STRIPE_SECRET_KEY", ""),
			Prime: models.PrimeConfig{
				AccessKey:      getEnvString("PRIME_ACCESS_KEY", ""),
				Passphrase:     getEnvString("PRIME_PASSPHRASE", ""),
				SigningKey:     getEnvString("PRIME_SIGNING_KEY", ""),
				PortfolioId:    getEnvString("PRIME_PORTFOLIO_ID", ""),
				EscrowWalletId: getEnvString("PRIME_ESCROW_WALLET_ID", ""),
				Asset:          getEnvString("PRIME_PAYOUT_ASSET", "USDC"),
			},
		},
		Formance: models.FormanceConfig{
			StackURL:     getEnvString("FORMANCE_STACK_URL", ""),
			ClientID:     getEnvString("FORMANCE_CLIENT_ID", ""),
			ClientSecret: getEnvString("FORMANCE_CLIENT_SECRET", ""),
			LedgerName:   getEnvString("FORMANCE_LEDGER", "ticket-escrow"),
		},
		Reputation: models.ReputationConfig{
			Url:   getEnvString("REPUTATION_URL", ""),
			Token: getEnvString("REPUTATION_TOKEN", ""),
		},
		Server: models.ServerConfig{
			Addr:      getEnvString("HTTP_ADDR", ":8080"),
			JwtSecret: getEnvString("JWT_SECRET", ""),
			Debug:     getEnvBool("HTTP_DEBUG", false),
		},
	}, nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %q (%w)", key, value, err)
		}
		return duration, nil
	}
	return defaultValue, nil
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
