package api

import (
	"net/http"
	"time"

	"resale-escrow-go/internal/auth"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const userIDKey = "user_id"

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		}
		if userID := c.GetString(userIDKey); userID != "" {
			fields = append(fields, zap.String("user_id", userID))
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			zap.L().Error("HTTP request", fields...)
			return
		}
		zap.L().Info("HTTP request", fields...)
	}
}

// requireUser rejects requests without a valid user token.
func (s *Server) requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := auth.BearerToken(c.GetHeader("Authorization"))
		if err != nil {
			abortWithError(c, http.StatusUnauthorized, "unauthorized", "missing bearer token")
			return
		}
		if s.tokens == nil {
			abortWithError(c, http.StatusUnauthorized, "unauthorized", "invalid token")
			return
		}
		userID, err := s.tokens.VerifyToken(token)
		if err != nil {
			zap.L().Debug("Rejected bearer token", zap.Error(err))
			abortWithError(c, http.StatusUnauthorized, "unauthorized", "invalid token")
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}
