package common

import (
	"context"
	"fmt"
	"log"
	"strings"

	"resale-escrow-go/internal/api"
	"resale-escrow-go/internal/auth"
	"resale-escrow-go/internal/clock"
	"resale-escrow-go/internal/database"
	"resale-escrow-go/internal/dispute"
	"resale-escrow-go/internal/escrow"
	"resale-escrow-go/internal/formance"
	"resale-escrow-go/internal/fraud"
	"resale-escrow-go/internal/models"
	"resale-escrow-go/internal/notify"
	"resale-escrow-go/internal/orders"
	"resale-escrow-go/internal/payout"
	"resale-escrow-go/internal/postgres"
	"resale-escrow-go/internal/prime"
	"resale-escrow-go/internal/reputation"
	"resale-escrow-go/internal/settlement"
	"resale-escrow-go/internal/store"
	"resale-escrow-go/internal/stripeconnect"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// init loads environment variables from .env file if it exists
func init() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Note: No .env file found or unable to load it: %v\n", err)
		log.Println("Make sure to set environment variables via export or other means")
	} else {
		log.Println("✓ Loaded environment variables from .env file")
	}
}

// Services is the wired escrow engine shared by the binaries.
type Services struct {
	Store      store.EscrowStore
	Scheduler  *settlement.Scheduler
	Orders     *orders.Service
	Fraud      *fraud.Engine
	Disputes   *dispute.Automator
	Tokens     *auth.Verifier
	Processors []payout.Processor
}

func InitializeLogger() (*zap.Logger, func()) {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil {
			if !isIgnorableSyncError(err) {
				log.Printf("Failed to sync logger: %v\n", err)
			}
		}
	}

	return logger, cleanup
}

// InitializeStore opens the backend named by cfg.Driver.
func InitializeStore(ctx context.Context, cfg models.DatabaseConfig) (store.EscrowStore, error) {
	switch cfg.Driver {
	case "postgres":
		zap.L().Info("Using PostgreSQL escrow store")
		svc, err := postgres.NewService(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return svc, nil
	case "sqlite", "":
		zap.L().Info("Using SQLite escrow store", zap.String("path", cfg.Path))
		svc, err := database.NewService(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return svc, nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %q", cfg.Driver)
	}
}

func InitializeServices(ctx context.Context, cfg *models.Config) (*Services, error) {
	st, err := InitializeStore(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	processors, err := initializeProcessors(ctx, cfg.Payout)
	if err != nil {
		st.Close()
		return nil, err
	}

	journal, err := initializeJournal(ctx, cfg.Formance)
	if err != nil {
		st.Close()
		return nil, err
	}

	strikes, err := reputation.NewClient(cfg.Reputation, cfg.Payout.ProcessorTimeout)
	if err != nil {
		st.Close()
		return nil, err
	}

	rules, err := fraud.LoadRules(cfg.Fraud.RulesFile)
	if err != nil {
		st.Close()
		return nil, err
	}

	clk := clock.NewSystem()
	machine := escrow.NewMachine(st, clk)
	emitter := notify.NewEmitter(st, clk)
	dispatcher := payout.NewDispatcher(st, payout.NewRouter(processors...), cfg.Payout.Currency, cfg.Payout.ProcessorTimeout)
	disputes := dispute.NewAutomator(st, machine, strikes, emitter, clk, cfg.Settlement.DisputeResponseWindow)

	scheduler := settlement.NewScheduler(settlement.SchedulerConfig{
		Store:               st,
		Machine:             machine,
		Payouts:             dispatcher,
		Disputes:            disputes,
		Notifier:            emitter,
		Journal:             journal,
		Clock:               clk,
		Secret:              cfg.Settlement.Secret,
		Workers:             cfg.Settlement.Workers,
		BatchSize:           cfg.Settlement.BatchSize,
		ListingExpiryWindow: cfg.Settlement.ListingExpiryWindow,
	})
	if cfg.Settlement.Secret == "" {
		zap.L().Warn("SETTLEMENT_SECRET is not set; settlement runs will be rejected")
	}

	orderService := orders.NewService(orders.ServiceConfig{
		Orders:             st,
		Machine:            machine,
		Payouts:            dispatcher,
		Disputes:           disputes,
		Notifier:           emitter,
		Journal:            journal,
		Clock:              clk,
		ConfirmationWindow: cfg.Settlement.BuyerConfirmationWindow,
	})

	tokens := auth.NewVerifier(cfg.Server.JwtSecret)
	if !tokens.Configured() {
		zap.L().Warn("JWT_SECRET is not set; user routes will reject every request")
	}

	return &Services{
		Store:      st,
		Scheduler:  scheduler,
		Orders:     orderService,
		Fraud:      fraud.NewEngine(st, rules, cfg.Fraud.ManualReviewPolicy, clk),
		Disputes:   disputes,
		Tokens:     tokens,
		Processors: processors,
	}, nil
}

// NewAPIServer builds the HTTP surface over the wired services.
func (cs *Services) NewAPIServer(debug bool) *api.Server {
	return api.NewServer(api.ServerConfig{
		Settlement:    cs.Scheduler,
		Fraud:         cs.Fraud,
		Orders:        cs.Orders,
		Notifications: cs.Store,
		Tokens:        cs.Tokens,
		Store:         cs.Store,
		Debug:         debug,
	})
}

func (cs *Services) Close() {
	if cs.Store != nil {
		cs.Store.Close()
	}
}

func initializeProcessors(ctx context.Context, cfg models.PayoutConfig) ([]payout.Processor, error) {
	var processors []payout.Processor

	if cfg.StripeSecretKey != "" {
		p, err := stripeconnect.NewProcessor(cfg.StripeSecretKey, cfg.ProcessorTimeout)
		if err != nil {
			return nil, err
		}
		processors = append(processors, p)
		zap.L().Info("Stripe Connect payouts enabled")
	}

	if cfg.Prime.Enabled() {
		zap.L().Info("Loading Prime API credentials")
		p, err := prime.NewService(cfg.Prime, cfg.ProcessorTimeout)
		if err != nil {
			return nil, err
		}
		if err := p.VerifyEscrowWallet(ctx); err != nil {
			return nil, err
		}
		processors = append(processors, p)
		zap.L().Info("Prime stablecoin payouts enabled",
			zap.String("portfolio_id", cfg.Prime.PortfolioId),
			zap.String("asset", cfg.Prime.Asset))
	}

	if len(processors) == 0 {
		zap.L().Warn("No payout processor configured; releases will leave payouts pending_connect")
	}
	return processors, nil
}

func initializeJournal(ctx context.Context, cfg models.FormanceConfig) (formance.Journal, error) {
	if cfg.StackURL == "" {
		return formance.Nop{}, nil
	}
	svc, err := formance.NewService(ctx, cfg)
	if err != nil {
		return nil, err
	}
	zap.L().Info("Formance escrow journal enabled", zap.String("ledger", cfg.LedgerName))
	return svc, nil
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sync /dev/stderr: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stdout: inappropriate ioctl for device")
}
