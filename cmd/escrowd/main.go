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

package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"resale-escrow-go/internal/common"
	"resale-escrow-go/internal/config"
	"resale-escrow-go/internal/settlement"

	"go.uber.org/zap"
)

func main() {
	addrFlag := flag.String("addr", "", "HTTP listen address (overrides HTTP_ADDR)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		_, _ = zap.NewProduction()
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	zap.L().Info("Starting resale escrow service")

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	addr := cfg.Server.Addr
	if *addrFlag != "" {
		addr = *addrFlag
	}
	server := &http.Server{
		Addr:              addr,
		Handler:           services.NewAPIServer(cfg.Server.Debug).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		zap.L().Info("HTTP server listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Without an interval an external cron drives POST /api/settlement/run.
	var loop *settlement.Loop
	if cfg.Settlement.Interval > 0 {
		loop = settlement.NewLoop(services.Scheduler, cfg.Settlement.Secret, cfg.Settlement.Interval)
		if err := loop.Start(ctx); err != nil {
			zap.L().Fatal("Failed to start settlement loop", zap.Error(err))
		}
	} else {
		zap.L().Info("In-process settlement loop disabled; waiting for external triggers")
	}

	zap.L().Info("Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigChan:
		zap.L().Info("Shutdown signal received, stopping...")
	case err := <-serverErr:
		zap.L().Error("HTTP server failed", zap.Error(err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	done := make(chan struct{})
	go func() {
		if loop != nil {
			loop.Stop()
		}
		if err := server.Shutdown(shutdownCtx); err != nil {
			zap.L().Warn("HTTP server shutdown error", zap.Error(err))
		}
		close(done)
	}()

	select {
	case <-done:
		zap.L().Info("Stopped gracefully")
	case <-shutdownCtx.Done():
		zap.L().Warn("Forced shutdown after timeout")
	}
}
