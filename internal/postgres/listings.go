package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"resale-escrow-go/internal/models"
	"resale-escrow-go/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

func (s *Service) GetListing(ctx context.Context, listingId string) (*models.Listing, error) {
	var l models.Listing
	err := s.q(ctx).QueryRow(ctx, queryGetListing, listingId).Scan(
		&l.Id, &l.SellerId, &l.EventName, &l.EventDate, &l.AskingPrice, &l.OriginalPrice, &l.Currency,
		&l.Status, &l.FraudCheckId, &l.FraudCheckStatus, &l.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("listing %s: %w", listingId, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get listing %s: %w", listingId, err)
	}
	return &l, nil
}

func (s *Service) CreateListing(ctx context.Context, l models.Listing) error {
	if l.Id == "" {
		l.Id = uuid.NewString()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	_, err := s.q(ctx).Exec(ctx, queryInsertListing,
		l.Id, l.SellerId, l.EventName, l.EventDate, l.AskingPrice, l.OriginalPrice, l.Currency, l.Status,
		l.FraudCheckId, l.FraudCheckStatus, l.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert listing %s: %w", l.Id, err)
	}
	return nil
}

func (s *Service) ExpireListings(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.q(ctx).Exec(ctx, queryExpireListings, cutoff)
	if err != nil {
		return 0, fmt.Errorf("expire listings: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *Service) CountListingsSince(ctx context.Context, sellerId string, since time.Time) (int, error) {
	var count int
	if err := s.q(ctx).QueryRow(ctx, queryCountListingsSince, sellerId, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("count listings for seller %s: %w", sellerId, err)
	}
	return count, nil
}

func (s *Service) GetSellerProfile(ctx context.Context, sellerId string) (*models.SellerProfile, error) {
	var p models.SellerProfile
	err := s.q(ctx).QueryRow(ctx, queryGetSellerProfile, sellerId).Scan(
		&p.SellerId, &p.TrustScore, &p.TotalSales, &p.DisputesLost, &p.JoinedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("seller profile %s: %w", sellerId, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get seller profile %s: %w", sellerId, err)
	}
	return &p, nil
}

func (s *Service) UpsertSellerProfile(ctx context.Context, p models.SellerProfile) error {
	_, err := s.q(ctx).Exec(ctx, queryUpsertSellerProfile, p.SellerId, p.TrustScore, p.TotalSales, p.DisputesLost, p.JoinedAt)
	if err != nil {
		return fmt.Errorf("upsert seller profile %s: %w", p.SellerId, err)
	}
	return nil
}

func (s *Service) GetPayoutAccount(ctx context.Context, sellerId string) (*models.PayoutAccount, error) {
	var a models.PayoutAccount
	err := s.q(ctx).QueryRow(ctx, queryGetPayoutAccount, sellerId).Scan(&a.SellerId, &a.Rail, &a.AccountId, &a.Network, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("payout account for seller %s: %w", sellerId, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get payout account for seller %s: %w", sellerId, err)
	}
	return &a, nil
}

func (s *Service) RegisterPayoutAccount(ctx context.Context, a models.PayoutAccount) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	_, err := s.q(ctx).Exec(ctx, queryUpsertPayoutAccount, a.SellerId, a.Rail, a.AccountId, a.Network, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("register payout account for seller %s: %w", a.SellerId, err)
	}
	return nil
}
