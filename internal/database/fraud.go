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
	"encoding/json"
	"fmt"
	"time"

	"resale-escrow-go/internal/models"

	"github.com/google/uuid"
)

func (s *Service) FindOrderReferenceUses(ctx context.Context, orderReference, excludeListingId string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, queryFindOrderReferenceUses, orderReference, excludeListingId)
	if err != nil {
		return nil, fmt.Errorf("unable to look up order reference: %w", err)
	}
	defer rows.Close()

	var listingIds []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("unable to scan listing id: %w", err)
		}
		listingIds = append(listingIds, id)
	}
	return listingIds, rows.Err()
}

func (s *Service) MatchBlacklist(ctx context.Context, orderReference, emailDomain string) ([]models.BlacklistEntry, error) {
	rows, err := s.db.QueryContext(ctx, queryMatchBlacklist, orderReference, emailDomain)
	if err != nil {
		return nil, fmt.Errorf("unable to match blacklist: %w", err)
	}
	defer rows.Close()

	var entries []models.BlacklistEntry
	for rows.Next() {
		var entry models.BlacklistEntry
		if err := rows.Scan(&entry.Id, &entry.EntryType, &entry.Value, &entry.Reason); err != nil {
			return nil, fmt.Errorf("unable to scan blacklist entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (s *Service) AddBlacklistEntry(ctx context.Context, entry models.BlacklistEntry) error {
	if entry.Id == "" {
		entry.Id = uuid.NewString()
	}
	entry = entry.Normalized()
	_, err := s.db.ExecContext(ctx, queryInsertBlacklistEntry,
		entry.Id, entry.EntryType, entry.Value, entry.Reason, toUnix(time.Now()))
	if err != nil {
		return fmt.Errorf("unable to add blacklist entry: %w", err)
	}
	return nil
}

// RecordFraudCheck stores the immutable check and points the listing at it.
func (s *Service) RecordFraudCheck(ctx context.Context, check models.FraudCheck, listingStatus models.ListingStatus) error {
	checks, err := json.Marshal(check.Checks)
	if err != nil {
		return fmt.Errorf("unable to encode checks: %w", err)
	}
	warnings, err := json.Marshal(check.Warnings)
	if err != nil {
		return fmt.Errorf("unable to encode warnings: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("unable to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, queryInsertFraudCheck,
		check.Id, check.ListingId, check.SellerId, check.RiskScore, check.Verdict, check.Passed,
		check.RequiresManualReview, string(checks), string(warnings), check.OrderReference,
		check.TicketingPlatform, check.PurchaserEmailDomain, toUnix(check.CreatedAt))
	if err != nil {
		return fmt.Errorf("unable to insert fraud check %s: %w", check.Id, err)
	}

	if _, err = tx.ExecContext(ctx, queryApplyFraudCheck, check.Id, check.Verdict, listingStatus, check.ListingId); err != nil {
		return fmt.Errorf("unable to update listing %s: %w", check.ListingId, err)
	}

	return tx.Commit()
}
