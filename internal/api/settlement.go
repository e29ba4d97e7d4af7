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

package api

import (
	"errors"
	"net/http"

	"resale-escrow-go/internal/auth"
	"resale-escrow-go/internal/settlement"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// handleSettlementRun is the external scheduler's trigger. Errors keep the bare {error} body.
func (s *Server) handleSettlementRun(c *gin.Context) {
	if s.settlement == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "settlement is not configured"})
		return
	}

	// A malformed header leaves the credential empty so Run rejects it.
	credential, _ := auth.ExactBearer(c.GetHeader("Authorization"))
	summary, err := s.settlement.Run(c.Request.Context(), credential)
	switch {
	case errors.Is(err, settlement.ErrMisconfigured):
		zap.L().Error("Settlement trigger rejected: scheduler misconfigured")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "settlement is not configured"})
		return
	case errors.Is(err, settlement.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	case err != nil:
		zap.L().Error("Settlement run failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, summary)
}
