package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"resale-escrow-go/internal/models"
	"resale-escrow-go/internal/store"

	"github.com/google/uuid"
)

func (s *Service) GetListing(ctx context.Context, listingId string) (*models.Listing, error) {
	var (
		listing                      models.Listing
		eventDate, createdAt         int64
		fraudCheckId, fraudCheckStat sql.NullString
	)
	err := s.db.QueryRowContext(ctx, queryGetListing, listingId).Scan(
		&listing.Id, &listing.SellerId, &listing.EventName, &eventDate, &listing.AskingPrice,
		&listing.OriginalPrice, &listing.Currency, &listing.Status, &fraudCheckId, &fraudCheckStat, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("listing %s: %w", listingId, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to get listing %s: %w", listingId, err)
	}
	listing.EventDate = fromUnix(eventDate)
	listing.FraudCheckId = fraudCheckId.String
	listing.FraudCheckStatus = models.FraudVerdict(fraudCheckStat.String)
	listing.CreatedAt = fromUnix(createdAt)
	return &listing, nil
}

func (s *Service) CreateListing(ctx context.Context, listing models.Listing) error {
	if listing.Id == "" {
		listing.Id = uuid.NewString()
	}
	if listing.CreatedAt.IsZero() {
		listing.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, queryInsertListing,
		listing.Id, listing.SellerId, listing.EventName, toUnix(listing.EventDate),
		listing.AskingPrice.String(), listing.OriginalPrice.String(), listing.Currency, listing.Status,
		nullableString(listing.FraudCheckId), nullableString(string(listing.FraudCheckStatus)), toUnix(listing.CreatedAt))
	if err != nil {
		return fmt.Errorf("unable to insert listing %s: %w", listing.Id, err)
	}
	return nil
}

// ExpireListings marks every still-open listing whose event starts at or before cutoff as expired.
func (s *Service) ExpireListings(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, queryExpireListings, toUnix(cutoff))
	if err != nil {
		return 0, fmt.Errorf("unable to expire listings: %w", err)
	}
	return result.RowsAffected()
}

func (s *Service) CountListingsSince(ctx context.Context, sellerId string, since time.Time) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, queryCountListingsSince, sellerId, toUnix(since)).Scan(&count); err != nil {
		return 0, fmt.Errorf("unable to count listings for seller %s: %w", sellerId, err)
	}
	return count, nil
}

func (s *Service) GetSellerProfile(ctx context.Context, sellerId string) (*models.SellerProfile, error) {
	var (
		profile  models.SellerProfile
		joinedAt int64
	)
	err := s.db.QueryRowContext(ctx, queryGetSellerProfile, sellerId).Scan(
		&profile.SellerId, &profile.TrustScore, &profile.TotalSales, &profile.DisputesLost, &joinedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("seller profile %s: %w", sellerId, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to get seller profile %s: %w", sellerId, err)
	}
	profile.JoinedAt = fromUnix(joinedAt)
	return &profile, nil
}

func (s *Service) UpsertSellerProfile(ctx context.Context, profile models.SellerProfile) error {
	_, err := s.db.ExecContext(ctx, queryUpsertSellerProfile,
		profile.SellerId, profile.TrustScore, profile.TotalSales, profile.DisputesLost, toUnix(profile.JoinedAt))
	if err != nil {
		return fmt.Errorf("unable to upsert seller profile %s: %w", profile.SellerId, err)
	}
	return nil
}

func (s *Service) GetPayoutAccount(ctx context.Context, sellerId string) (*models.PayoutAccount, error) {
	var (
		account   models.PayoutAccount
		createdAt int64
	)
	err := s.db.QueryRowContext(ctx, queryGetPayoutAccount, sellerId).Scan(
		&account.SellerId, &account.Rail, &account.AccountId, &account.Network, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("payout account for seller %s: %w", sellerId, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to get payout account for seller %s: %w", sellerId, err)
	}
	account.CreatedAt = fromUnix(createdAt)
	return &account, nil
}

func (s *Service) RegisterPayoutAccount(ctx context.Context, account models.PayoutAccount) error {
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, queryUpsertPayoutAccount,
		account.SellerId, account.Rail, account.AccountId, account.Network, toUnix(account.CreatedAt))
	if err != nil {
		return fmt.Errorf("unable to register payout account for seller %s: %w", account.SellerId, err)
	}
	return nil
}
