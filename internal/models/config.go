package models

import "time"

// Config represents the application configuration
type Config struct {
	Database   DatabaseConfig
	Settlement SettlementConfig
	Fraud      FraudConfig
	Payout     PayoutConfig
	Formance   FormanceConfig
	Reputation ReputationConfig
	Server     ServerConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver          string // postgres or sqlite
	Url             string
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

// SettlementConfig holds the escrow settlement scheduler settings
type SettlementConfig struct {
	Secret                  string
	Workers                 int
	BatchSize               int
	Interval                time.Duration // zero disables the in-process loop
	BuyerConfirmationWindow time.Duration
	ListingExpiryWindow     time.Duration
	DisputeResponseWindow   time.Duration
}

// FraudConfig holds fraud risk engine settings
type FraudConfig struct {
	RulesFile          string
	ManualReviewPolicy ManualReviewPolicy
}

// PayoutConfig holds processor credentials and call limits
type PayoutConfig struct {
	Currency         string
	ProcessorTimeout time.Duration
	StripeSecretKey  string
	Prime            PrimeConfig
}

// PrimeConfig holds the stablecoin payout rail settings
type PrimeConfig struct {
	AccessKey      string
	Passphrase     string
	SigningKey     string
	PortfolioId    string
	EscrowWalletId string
	Asset          string
}

// Enabled reports whether all Prime credentials are present
func (p PrimeConfig) Enabled() bool {
	return p.AccessKey != "" && p.Passphrase != "" && p.SigningKey != "" && p.PortfolioId != "" && p.EscrowWalletId != ""
}

// FormanceConfig holds the escrow journal ledger settings
type FormanceConfig struct {
	StackURL     string
	ClientID     string
	ClientSecret string
	LedgerName   string
}

type ReputationConfig struct {
	Url   string
	Token string
}

type ServerConfig struct {
	Addr      string
	JwtSecret string
	Debug     bool
}
