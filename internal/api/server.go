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

// Package api exposes the settlement trigger, the fraud check and the order actions over HTTP.
package api

import (
	"context"
	"net/http"

	"resale-escrow-go/internal/auth"
	"resale-escrow-go/internal/fraud"
	"resale-escrow-go/internal/models"
	"resale-escrow-go/internal/notify"
	"resale-escrow-go/internal/orders"

	"github.com/gin-gonic/gin"
)

type Settler interface {
	Run(ctx context.Context, credential string) (*models.SettlementSummary, error)
}

type FraudChecker interface {
	Check(ctx context.Context, req fraud.Request) (*models.FraudCheck, error)
}

type OrderActions interface {
	MarkTransferred(ctx context.Context, sellerId, orderId string) (*models.Order, error)
	ConfirmReceipt(ctx context.Context, buyerId, orderId string) (*models.Order, error)
	Contest(ctx context.Context, buyerId, orderId string, reason models.DisputeReason, description string) (*models.Dispute, error)
	Details(ctx context.Context, userId, orderId string) (*orders.Details, error)
	Dispute(ctx context.Context, userId, orderId string) (*models.Dispute, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// ServerConfig contains the services behind the HTTP routes
type ServerConfig struct {
	Settlement    Settler
	Fraud         FraudChecker
	Orders        OrderActions
	Notifications notify.Reader
	Tokens        *auth.Verifier
	Store         Pinger
	Debug         bool
}

type Server struct {
	router        *gin.Engine
	settlement    Settler
	fraud         FraudChecker
	orders        OrderActions
	notifications notify.Reader
	tokens        *auth.Verifier
	store         Pinger
}

func NewServer(cfg ServerConfig) *Server {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	s := &Server{
		router:        router,
		settlement:    cfg.Settlement,
		fraud:         cfg.Fraud,
		orders:        cfg.Orders,
		notifications: cfg.Notifications,
		tokens:        cfg.Tokens,
		store:         cfg.Store,
	}

	router.GET("/healthz", s.handleHealthz)
	router.GET("/readyz", s.handleReadyz)

	api := router.Group("/api")
	{
		api.POST("/settlement/run", s.handleSettlementRun)

		user := api.Group("", s.requireUser())
		user.POST("/fraud-check", s.handleFraudCheck)
		user.POST("/orders/:id/transferred", s.handleMarkTransferred)
		user.POST("/orders/:id/confirm", s.handleConfirmReceipt)
		user.POST("/orders/:id/dispute", s.handleContest)
		user.GET("/orders/:id", s.handleOrderDetails)
		user.GET("/orders/:id/dispute", s.handleGetDispute)
		user.GET("/notifications", s.handleNotifications)
	}

	return s
}

// Handler returns the router for use in an http.Server
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleReadyz(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "error": "store not configured"})
		return
	}
	if err := s.store.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func abortWithError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": message, "code": code})
}
