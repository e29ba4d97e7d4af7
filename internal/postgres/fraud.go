package postgres

import (
	"context"
	"fmt"

	"resale-escrow-go/internal/models"
	"resale-escrow-go/internal/store"

	"github.com/google/uuid"
)

func (s *Service) FindOrderReferenceUses(ctx context.Context, orderReference, excludeListingId string) ([]string, error) {
	rows, err := s.q(ctx).Query(ctx, queryFindOrderReferenceUses, orderReference, excludeListingId)
	if err != nil {
		return nil, fmt.Errorf("find order reference uses: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan listing id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Service) MatchBlacklist(ctx context.Context, orderReference, emailDomain string) ([]models.BlacklistEntry, error) {
	rows, err := s.q(ctx).Query(ctx, queryMatchBlacklist, orderReference, emailDomain)
	if err != nil {
		return nil, fmt.Errorf("match blacklist: %w", err)
	}
	defer rows.Close()

	var entries []models.BlacklistEntry
	for rows.Next() {
		var e models.BlacklistEntry
		if err := rows.Scan(&e.Id, &e.EntryType, &e.Value, &e.Reason); err != nil {
			return nil, fmt.Errorf("scan blacklist entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *Service) AddBlacklistEntry(ctx context.Context, e models.BlacklistEntry) error {
	if e.Id == "" {
		e.Id = uuid.NewString()
	}
	e = e.Normalized()
	if _, err := s.q(ctx).Exec(ctx, queryInsertBlacklistEntry, e.Id, e.EntryType, e.Value, e.Reason); err != nil {
		return fmt.Errorf("add blacklist entry: %w", err)
	}
	return nil
}

// RecordFraudCheck stores the immutable check and points the listing at it.
func (s *Service) RecordFraudCheck(ctx context.Context, check models.FraudCheck, listingStatus models.ListingStatus) error {
	warnings := check.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	return s.withTx(ctx, func(ctx context.Context) error {
		_, err := s.q(ctx).Exec(ctx, queryInsertFraudCheck,
			check.Id, check.ListingId, check.SellerId, check.RiskScore, check.Verdict, check.Passed,
			check.RequiresManualReview, check.Checks, warnings, check.OrderReference,
			check.TicketingPlatform, check.PurchaserEmailDomain, check.CreatedAt)
		if isUniqueViolation(err) {
			return fmt.Errorf("fraud check %s: %w", check.Id, store.ErrDuplicateFraudCheck)
		}
		if err != nil {
			return fmt.Errorf("insert fraud check %s: %w", check.Id, err)
		}
		if _, err := s.q(ctx).Exec(ctx, queryApplyFraudCheck, check.Id, check.Verdict, listingStatus, check.ListingId); err != nil {
			return fmt.Errorf("update listing %s: %w", check.ListingId, err)
		}
		return nil
	})
}
