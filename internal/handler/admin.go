package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/arisecrossover/guildsite/internal/service"
)

// AdminHandler exposes moderation operations; the router guards it with the
// admin-role middleware.
type AdminHandler struct {
	authService *service.AuthService
}

func NewAdminHandler(authService *service.AuthService) *AdminHandler {
	return &AdminHandler{
		authService: authService,
	}
}

// LoginLogs lists the newest authentication audit entries
func (h *AdminHandler) LoginLogs(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}

	logs, err := h.authService.ListLoginLogs(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch login logs"})
		return
	}
	c.JSON(http.StatusOK, logs)
}

// VerifyUser marks an account verified; repeated calls are harmless
func (h *AdminHandler) VerifyUser(c *gin.Context) {
	userID := c.Param("id")

	err := h.authService.VerifyUser(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify user"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "user verified"})
}
