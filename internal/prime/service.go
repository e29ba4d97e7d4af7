// Package prime pays sellers in stablecoin from the platform's Coinbase Prime escrow wallet.
package prime

import (
	"context"
	"fmt"
	"strings"
	"time"

	"resale-escrow-go/internal/models"
	"resale-escrow-go/internal/payout"
	"resale-escrow-go/internal/transport"

	"github.com/coinbase-samples/prime-sdk-go/client"
	"github.com/coinbase-samples/prime-sdk-go/credentials"
	"github.com/coinbase-samples/prime-sdk-go/model"
	"github.com/coinbase-samples/prime-sdk-go/transactions"
	"github.com/coinbase-samples/prime-sdk-go/wallets"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var _ payout.Processor = (*Service)(nil)

type Service struct {
	client          client.RestClient
	walletsSvc      wallets.WalletsService
	transactionsSvc transactions.TransactionsService
	cfg             models.PrimeConfig
}

func NewService(cfg models.PrimeConfig, timeout time.Duration) (*Service, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("missing required Prime settings: PRIME_ACCESS_KEY, PRIME_PASSPHRASE, PRIME_SIGNING_KEY, PRIME_PORTFOLIO_ID, PRIME_ESCROW_WALLET_ID")
	}

	httpClient, err := transport.NewHTTPClient(timeout)
	if err != nil {
		return nil, fmt.Errorf("unable to create custom http client: %w", err)
	}

	creds := &credentials.Credentials{
		AccessKey:  cfg.AccessKey,
		Passphrase: cfg.Passphrase,
		SigningKey: cfg.SigningKey,
	}
	restClient := client.NewRestClient(creds, *httpClient)

	return &Service{
		client:          restClient,
		walletsSvc:      wallets.NewWalletsService(restClient),
		transactionsSvc: transactions.NewTransactionsService(restClient),
		cfg:             cfg,
	}, nil
}

func (s *Service) Rail() models.PayoutRail {
	return models.RailPrime
}

// VerifyEscrowWallet confirms the configured source wallet exists in the portfolio.
func (s *Service) VerifyEscrowWallet(ctx context.Context) error {
	response, err := s.walletsSvc.ListWallets(ctx, &wallets.ListWalletsRequest{
		PortfolioId: s.cfg.PortfolioId,
		Type:        "TRADING",
		Symbols:     []string{s.cfg.Asset},
	})
	if err != nil {
		return fmt.Errorf("unable to list wallets: %w", err)
	}
	for _, w := range response.Wallets {
		if w.Id == s.cfg.EscrowWalletId {
			zap.L().Info("Using Prime escrow wallet",
				zap.String("wallet_id", w.Id),
				zap.String("name", w.Name),
				zap.String("symbol", w.Symbol))
			return nil
		}
	}
	return fmt.Errorf("escrow wallet %s not found in portfolio %s", s.cfg.EscrowWalletId, s.cfg.PortfolioId)
}

// AccountStatus accepts any registered address with a parseable network.
// Prime has no recipient onboarding, so there is nothing remote to ask.
func (s *Service) AccountStatus(_ context.Context, account models.PayoutAccount) (models.AccountStatus, error) {
	if strings.TrimSpace(account.AccountId) == "" {
		return models.AccountStatus{Active: false, Reason: "no destination address"}, nil
	}
	if _, err := parseNetwork(account.Network); err != nil {
		return models.AccountStatus{Active: false, Reason: err.Error()}, nil
	}
	return models.AccountStatus{Active: true}, nil
}

func (s *Service) CreateTransfer(ctx context.Context, req models.TransferRequest) (models.TransferResult, error) {
	if !strings.EqualFold(req.Currency, "usd") {
		return models.TransferResult{}, fmt.Errorf("prime rail only settles usd orders, got %s", req.Currency)
	}

	network, err := parseNetwork(req.Account.Network)
	if err != nil {
		return models.TransferResult{}, err
	}

	request := &transactions.CreateWalletWithdrawalRequest{
		PortfolioId:     s.cfg.PortfolioId,
		SourceWalletId:  s.cfg.EscrowWalletId,
		Amount:          req.Amount.StringFixed(2),
		IdempotencyKey:  primeIdempotencyKey(req.IdempotencyKey),
		Symbol:          s.cfg.Asset,
		DestinationType: "DESTINATION_BLOCKCHAIN",
		BlockchainAddress: &model.BlockchainAddress{
			Address: req.Account.AccountId,
			Network: network,
		},
	}

	zap.L().Debug("Withdrawal request details",
		zap.String("order_id", req.OrderId),
		zap.String("wallet_id", request.SourceWalletId),
		zap.String("amount", request.Amount),
		zap.String("idempotency_key", request.IdempotencyKey))

	response, err := s.transactionsSvc.CreateWalletWithdrawal(ctx, request)
	if err != nil {
		return models.TransferResult{}, fmt.Errorf("unable to create withdrawal for order %s: %w", req.OrderId, err)
	}

	zap.L().Info("Seller withdrawal created",
		zap.String("activity_id", response.ActivityId),
		zap.String("order_id", req.OrderId),
		zap.String("amount", request.Amount))

	return models.TransferResult{TransferId: response.ActivityId}, nil
}

// parseNetwork splits "ethereum-mainnet" into Prime network details.
func parseNetwork(network string) (*model.NetworkDetails, error) {
	parts := strings.SplitN(network, "-", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, fmt.Errorf("invalid network %q, want <id>-<type>", network)
	}
	return &model.NetworkDetails{Id: parts[0], Type: parts[1]}, nil
}

// primeIdempotencyKey derives a stable UUID so retries for one order reuse the same key.
func primeIdempotencyKey(key string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(key)).String()
}
