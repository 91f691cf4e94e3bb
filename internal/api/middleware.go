package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/arisecrossover/guildsite/internal/session"
	"github.com/arisecrossover/guildsite/middleware/jwt"
)

// MiddlewareManager bundles the cross-cutting request middleware: JWT auth
// backed by the session store, role checks, request logging and recovery.
type MiddlewareManager struct {
	tokenManager *jwt.TokenManager
	sessions     *session.Store
	logger       *zap.Logger
}

func NewMiddlewareManager(tokenManager *jwt.TokenManager, sessions *session.Store, logger *zap.Logger) *MiddlewareManager {
	return &MiddlewareManager{
		tokenManager: tokenManager,
		sessions:     sessions,
		logger:       logger,
	}
}

// JWTAuth validates the bearer token and confirms its session record still
// exists, so logout revokes tokens before they expire. If the session store
// is unreachable the check fails open on the token alone.
func (m *MiddlewareManager) JWTAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization header required"})
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format"})
			c.Abort()
			return
		}

		claims, err := m.tokenManager.ParseToken(parts[1])
		if err != nil {
			m.logger.Warn("token validation failed",
				zap.String("error", err.Error()),
				zap.String("ip", c.ClientIP()),
			)

			message := "invalid token"
			if errors.Is(err, jwt.ErrExpiredToken) {
				message = "token has expired"
			}
			c.JSON(http.StatusUnauthorized, gin.H{"error": message})
			c.Abort()
			return
		}

		if _, err := m.sessions.UserID(c.Request.Context(), claims.ID); err != nil {
			if errors.Is(err, session.ErrNotFound) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "session expired"})
				c.Abort()
				return
			}
			m.logger.Warn("session check failed, accepting token alone",
				zap.String("user_id", claims.UserID),
				zap.Error(err),
			)
		}

		c.Set("user_id", claims.UserID)
		c.Set("username", claims.UserName)
		c.Set("role", claims.Role)
		c.Set("token_id", claims.ID)

		c.Next()
	}
}

// AdminOnly allows only authenticated admins through. It must run after
// JWTAuth.
func (m *MiddlewareManager) AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString("role") != "admin" {
			c.JSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// Logger records one structured entry per request.
func (m *MiddlewareManager) Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		statusCode := c.Writer.Status()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", statusCode),
			zap.Duration("latency", latency),
			zap.String("ip", c.ClientIP()),
			zap.String("user_agent", c.Request.UserAgent()),
		}

		if userID := c.GetString("user_id"); userID != "" {
			fields = append(fields, zap.String("user_id", userID))
		}

		if statusCode >= 500 {
			m.logger.Error("server error", fields...)
		} else if statusCode >= 400 {
			m.logger.Warn("client error", fields...)
		} else {
			m.logger.Info("request completed", fields...)
		}
	}
}

// Recovery turns panics into 500 responses instead of dropped connections.
func (m *MiddlewareManager) Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				m.logger.Error("panic recovered",
					zap.Any("error", err),
					zap.String("path", c.Request.URL.Path),
					zap.String("method", c.Request.Method),
				)

				c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
				c.Abort()
			}
		}()

		c.Next()
	}
}
