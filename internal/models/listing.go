package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type ListingStatus string

const (
	ListingPendingVerification ListingStatus = "pending_verification"
	ListingActive              ListingStatus = "active"
	ListingSold                ListingStatus = "sold"
	ListingExpired             ListingStatus = "expired"
	ListingCancelled           ListingStatus = "cancelled"
)

// Listing is a seller's offer to resell a ticket
type Listing struct {
	Id               string          `db:"id"`
	SellerId         string          `db:"seller_id"`
	EventName        string          `db:"event_name"`
	EventDate        time.Time       `db:"event_date"`
	AskingPrice      decimal.Decimal `db:"asking_price"`
	OriginalPrice    decimal.Decimal `db:"original_price"` // zero when unknown
	Currency         string          `db:"currency"`
	Status           ListingStatus   `db:"status"`
	FraudCheckId     string          `db:"fraud_check_id"`
	FraudCheckStatus FraudVerdict    `db:"fraud_check_status"`
	CreatedAt        time.Time       `db:"created_at"`
}

// SellerProfile is the trust profile the fraud engine scores against
type SellerProfile struct {
	SellerId     string    `db:"seller_id"`
	TrustScore   int       `db:"trust_score"` // 0..100
	TotalSales   int       `db:"total_sales"`
	DisputesLost int       `db:"disputes_lost"`
	JoinedAt     time.Time `db:"joined_at"`
}
