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

// Package reputation issues seller strikes to the external reputation service.
package reputation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"resale-escrow-go/internal/models"
	"resale-escrow-go/internal/transport"

	"go.uber.org/zap"
)

const effect = "reputation_strike"

// Strike is a penalty against a seller for non-performance.
type Strike struct {
	SellerId  string `json:"sellerId"`
	OrderId   string `json:"orderId"`
	DisputeId string `json:"disputeId,omitempty"`
	Reason    string `json:"reason"`
}

type Client struct {
	url     string
	token   string
	timeout time.Duration
	http    *http.Client
}

// NewClient returns a client for cfg. An empty URL yields a client whose strikes are skipped.
func NewClient(cfg models.ReputationConfig, timeout time.Duration) (*Client, error) {
	c := &Client{url: cfg.Url, token: cfg.Token, timeout: timeout}
	if cfg.Url == "" {
		return c, nil
	}
	httpClient, err := transport.NewHTTPClient(timeout)
	if err != nil {
		return nil, fmt.Errorf("unable to create reputation http client: %w", err)
	}
	c.http = httpClient
	return c, nil
}

// IssueStrike posts s once. The caller decides what to do with a failed outcome.
func (c *Client) IssueStrike(ctx context.Context, s Strike) models.Outcome {
	if c == nil || c.url == "" {
		return models.SkippedOutcome(effect)
	}

	body, err := json.Marshal(s)
	if err != nil {
		return models.FailedWith(effect, fmt.Errorf("failed to marshal strike: %w", err))
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return models.FailedWith(effect, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return models.FailedWith(effect, fmt.Errorf("strike request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return models.FailedWith(effect, fmt.Errorf("reputation service error (%d): %s", resp.StatusCode, string(respBody)))
	}

	zap.L().Info("Strike issued",
		zap.String("seller_id", s.SellerId),
		zap.String("order_id", s.OrderId),
		zap.String("reason", s.Reason))
	return models.Succeeded(effect)
}
