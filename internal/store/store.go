package store

import (
	"context"
	"errors"
	"time"

	"resale-escrow-go/internal/models"
)

// Sentinel errors shared across all backend implementations.
var (
	ErrNotFound               = errors.New("not found")
	ErrConcurrentModification = errors.New("concurrent modification detected")
	ErrDuplicateFraudCheck    = errors.New("duplicate fraud check")
)

// TransitionParams describes one guarded escrow transition and every row it touches.
// The order is only updated while its escrow_status still equals From.
type TransitionParams struct {
	OrderId     string
	From        models.EscrowStatus
	To          models.EscrowStatus
	OrderStatus models.OrderStatus // empty leaves the sale status unchanged
	At          time.Time

	// Set when To is buyer_confirmation_pending
	AutoReleaseAt *time.Time

	// Set when To is released
	BuyerConfirmed   bool
	PayoutStatus     models.PayoutStatus
	PayoutTransferId string
	SellerPaidAt     *time.Time

	// Set when To is disputed; inserted in the same transaction
	Dispute *models.Dispute

	// Ticket transfer side; empty status leaves the transfer untouched
	TransferStatus models.TransferStatus
	TransferNote   string
}

// ReminderQuery selects pending transfers due for one reminder kind
type ReminderQuery struct {
	Kind  models.ReminderKind
	Now   time.Time
	Limit int
}

// EscrowStore defines the contract that every backend (PostgreSQL, SQLite) must satisfy.
type EscrowStore interface {
	// --- Orders ---
	GetOrder(ctx context.Context, orderId string) (*models.Order, error)
	GetEscrow(ctx context.Context, orderId string) (*models.Escrow, error)
	ListAutoReleasable(ctx context.Context, now time.Time, limit int) ([]models.Order, error)
	TransitionEscrow(ctx context.Context, params TransitionParams) (bool, error)

	// --- Transfers ---
	GetTransfer(ctx context.Context, orderId string) (*models.Transfer, error)
	ListReminderDue(ctx context.Context, query ReminderQuery) ([]models.Transfer, error)
	MarkReminderSent(ctx context.Context, transferId string, kind models.ReminderKind) (bool, error)
	ListOverdueTransfers(ctx context.Context, now time.Time, limit int) ([]models.Transfer, error)

	// --- Disputes ---
	GetDispute(ctx context.Context, disputeId string) (*models.Dispute, error)

	// --- Listings ---
	GetListing(ctx context.Context, listingId string) (*models.Listing, error)
	ExpireListings(ctx context.Context, cutoff time.Time) (int64, error)
	CountListingsSince(ctx context.Context, sellerId string, since time.Time) (int, error)

	// --- Sellers ---
	GetSellerProfile(ctx context.Context, sellerId string) (*models.SellerProfile, error)
	GetPayoutAccount(ctx context.Context, sellerId string) (*models.PayoutAccount, error)

	// --- Fraud ---
	FindOrderReferenceUses(ctx context.Context, orderReference, excludeListingId string) ([]string, error)
	MatchBlacklist(ctx context.Context, orderReference, emailDomain string) ([]models.BlacklistEntry, error)
	RecordFraudCheck(ctx context.Context, check models.FraudCheck, listingStatus models.ListingStatus) error

	// --- Notifications ---
	InsertNotification(ctx context.Context, notification models.Notification) error
	ListNotifications(ctx context.Context, userId string, limit int) ([]models.Notification, error)

	// --- Registration (rows owned by upstream checkout and onboarding flows) ---
	CreateListing(ctx context.Context, listing models.Listing) error
	CreateOrder(ctx context.Context, order models.Order, transferDeadline time.Time) error
	UpsertSellerProfile(ctx context.Context, profile models.SellerProfile) error
	RegisterPayoutAccount(ctx context.Context, account models.PayoutAccount) error
	AddBlacklistEntry(ctx context.Context, entry models.BlacklistEntry) error

	// --- Lifecycle ---
	Ping(ctx context.Context) error
	Close()
}
