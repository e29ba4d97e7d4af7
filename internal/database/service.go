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

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"resale-escrow-go/internal/models"
	"resale-escrow-go/internal/store"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Compile-time check: *Service must satisfy store.EscrowStore.
var _ store.EscrowStore = (*Service)(nil)

type Service struct {
	db *sql.DB
}

func NewService(ctx context.Context, cfg models.DatabaseConfig) (*Service, error) {
	// Validate configuration
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if cfg.MaxOpenConns <= 0 {
		return nil, fmt.Errorf("max open connections must be positive, got %d", cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns < 0 {
		return nil, fmt.Errorf("max idle connections cannot be negative, got %d", cfg.MaxIdleConns)
	}
	if cfg.PingTimeout <= 0 {
		return nil, fmt.Errorf("ping timeout must be positive, got %v", cfg.PingTimeout)
	}

	zap.L().Info("Opening SQLite database", zap.String("file", cfg.Path))
	db, err := sql.Open("sqlite3", dsn(cfg.Path))
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	if cfg.Path == ":memory:" {
		// every connection to :memory: is a separate database, so pin exactly one
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	service := &Service{db: db}
	if err := service.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("unable to initialize schema: %w", err)
	}

	zap.L().Info("Database service initialized successfully")
	return service, nil
}

func dsn(path string) string {
	if path == ":memory:" {
		return "file::memory:?_foreign_keys=on"
	}
	return path + "?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=1000&_busy_timeout=5000&_foreign_keys=on"
}

func (s *Service) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Service) Close() {
	if err := s.db.Close(); err != nil {
		zap.L().Warn("Failed to close database connection", zap.Error(err))
	}
}

func (s *Service) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS seller_profiles (
		seller_id TEXT PRIMARY KEY,
		trust_score INTEGER NOT NULL DEFAULT 50,
		total_sales INTEGER NOT NULL DEFAULT 0,
		disputes_lost INTEGER NOT NULL DEFAULT 0,
		joined_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS payout_accounts (
		seller_id TEXT PRIMARY KEY,
		rail TEXT NOT NULL,
		account_id TEXT NOT NULL,
		network TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS listings (
		id TEXT PRIMARY KEY,
		seller_id TEXT NOT NULL,
		event_name TEXT NOT NULL,
		event_date INTEGER NOT NULL,
		asking_price TEXT NOT NULL,
		original_price TEXT NOT NULL DEFAULT '0',
		currency TEXT NOT NULL,
		status TEXT NOT NULL,
		fraud_check_id TEXT,
		fraud_check_status TEXT,
		created_at INTEGER NOT NULL
	);

	-- velocity check
	CREATE INDEX IF NOT EXISTS idx_listings_seller_created ON listings(seller_id, created_at);
	-- expiry pass
	CREATE INDEX IF NOT EXISTS idx_listings_status_event ON listings(status, event_date);

	CREATE TABLE IF NOT EXISTS orders (
		id TEXT PRIMARY KEY,
		listing_id TEXT NOT NULL REFERENCES listings(id),
		buyer_id TEXT NOT NULL,
		seller_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		seller_payout_amount TEXT NOT NULL,
		currency TEXT NOT NULL,
		status TEXT NOT NULL,
		escrow_status TEXT NOT NULL,
		auto_release_scheduled_at INTEGER,
		dispute_id TEXT,
		seller_payout_status TEXT NOT NULL DEFAULT 'pending',
		payout_transfer_id TEXT,
		buyer_confirmed_receipt BOOLEAN NOT NULL DEFAULT 0,
		buyer_confirmed_at INTEGER,
		escrow_released_at INTEGER,
		seller_paid_at INTEGER,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_orders_auto_release ON orders(escrow_status, auto_release_scheduled_at);

	CREATE TABLE IF NOT EXISTS escrows (
		id TEXT PRIMARY KEY,
		order_id TEXT NOT NULL UNIQUE REFERENCES orders(id),
		status TEXT NOT NULL,
		amount TEXT NOT NULL,
		funds_released_at INTEGER,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS ticket_transfers (
		id TEXT PRIMARY KEY,
		order_id TEXT NOT NULL UNIQUE REFERENCES orders(id),
		status TEXT NOT NULL,
		transfer_deadline INTEGER NOT NULL,
		buyer_confirmed_at INTEGER,
		reminder_12h_sent BOOLEAN NOT NULL DEFAULT 0,
		reminder_2h_sent BOOLEAN NOT NULL DEFAULT 0,
		notes TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_transfers_status_deadline ON ticket_transfers(status, transfer_deadline);

	CREATE TABLE IF NOT EXISTS disputes (
		id TEXT PRIMARY KEY,
		order_id TEXT NOT NULL REFERENCES orders(id),
		buyer_id TEXT NOT NULL,
		seller_id TEXT NOT NULL,
		reason TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		opened_by TEXT NOT NULL,
		response_deadline INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	);

	-- at most one open dispute per order
	CREATE UNIQUE INDEX IF NOT EXISTS idx_disputes_open_order ON disputes(order_id) WHERE status = 'open';

	CREATE TABLE IF NOT EXISTS fraud_checks (
		id TEXT PRIMARY KEY,
		listing_id TEXT NOT NULL REFERENCES listings(id),
		seller_id TEXT NOT NULL,
		risk_score INTEGER NOT NULL,
		verdict TEXT NOT NULL,
		passed BOOLEAN NOT NULL,
		requires_manual_review BOOLEAN NOT NULL,
		checks TEXT NOT NULL,
		warnings TEXT NOT NULL,
		order_reference TEXT NOT NULL DEFAULT '',
		ticketing_platform TEXT NOT NULL DEFAULT '',
		purchaser_email_domain TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_fraud_checks_order_reference ON fraud_checks(order_reference);

	CREATE TABLE IF NOT EXISTS fraud_blacklist (
		id TEXT PRIMARY KEY,
		entry_type TEXT NOT NULL,
		value TEXT NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		active BOOLEAN NOT NULL DEFAULT 1,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_fraud_blacklist_value ON fraud_blacklist(entry_type, value);

	CREATE TABLE IF NOT EXISTS notifications (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		type TEXT NOT NULL,
		title TEXT NOT NULL,
		body TEXT NOT NULL,
		order_id TEXT NOT NULL DEFAULT '',
		data TEXT NOT NULL DEFAULT '{}',
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id, created_at);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

func toUnix(t time.Time) int64 {
	return t.UTC().UnixNano()
}

func fromUnix(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

// nullableUnix converts an optional time into a bindable value
func nullableUnix(t *time.Time) any {
	if t == nil {
		return nil
	}
	return toUnix(*t)
}

func fromNullUnix(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := fromUnix(n.Int64)
	return &t
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
