package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/bitsecure/platform/internal/config"
	"github.com/bitsecure/platform/internal/database"
	"github.com/bitsecure/platform/internal/funding"
	"github.com/bitsecure/platform/internal/identities"
	"github.com/bitsecure/platform/internal/ledger"
	"github.com/bitsecure/platform/internal/marketdata"
	"github.com/bitsecure/platform/internal/messaging"
	"github.com/bitsecure/platform/internal/notifications"
	"github.com/bitsecure/platform/internal/server"
	"github.com/bitsecure/platform/internal/support"
	"github.com/bitsecure/platform/pkg/logger"
	"github.com/bitsecure/platform/pkg/validation"
)

func main() {
	// A missing .env file is fine; the environment may already be set.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("Server exited with error", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	db, err := database.NewDB(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := validation.RegisterCustomValidators(); err != nil {
		return fmt.Errorf("failed to register validators: %w", err)
	}

	notificationSvc, err := notifications.NewService(log, db)
	if err != nil {
		return fmt.Errorf("failed to create notification service: %w", err)
	}
	identitySvc, err := identities.NewService(log, db, notificationSvc, cfg.JWT.Secret, cfg.JWT.ExpirationHours)
	if err != nil {
		return fmt.Errorf("failed to create identity service: %w", err)
	}
	ledgerSvc, err := ledger.NewService(log, db)
	if err != nil {
		return fmt.Errorf("failed to create ledger service: %w", err)
	}
	fundingSvc, err := funding.NewService(log, db, ledgerSvc, notificationSvc, cfg.WalletAddresses)
	if err != nil {
		return fmt.Errorf("failed to create funding service: %w", err)
	}
	messageSvc, err := messaging.NewService(log, db, notificationSvc)
	if err != nil {
		return fmt.Errorf("failed to create message service: %w", err)
	}
	supportSvc, err := support.NewService(log, db, notificationSvc)
	if err != nil {
		return fmt.Errorf("failed to create support service: %w", err)
	}

	pairs := make([]marketdata.Pair, 0, len(cfg.TradingPairs))
	for _, p := range cfg.TradingPairs {
		pairs = append(pairs, marketdata.Pair{
			Pair:      p.Pair,
			Change:    p.Change,
			Direction: p.Direction,
			Leverage:  p.Leverage,
			Value:     p.Value,
		})
	}
	marketSvc := marketdata.NewService(log, pairs)

	srv := server.NewServer(log,
		identitySvc, ledgerSvc, fundingSvc, notificationSvc, messageSvc, supportSvc, marketSvc,
		cfg.WalletAddresses, cfg.Server.CORSOrigins)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      srv.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", zap.Int("port", cfg.Server.Port))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.Info("Shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down cleanly: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
