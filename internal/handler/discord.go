package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/arisecrossover/guildsite/internal/service"
)

// DiscordHandler exposes the collaborator's read surface as JSON. Any
// failure maps to a 500 with a generic body; granular status codes are
// not part of this surface.
type DiscordHandler struct {
	discordService *service.DiscordService
}

func NewDiscordHandler(discordService *service.DiscordService) *DiscordHandler {
	return &DiscordHandler{
		discordService: discordService,
	}
}

func (h *DiscordHandler) Members(c *gin.Context) {
	members, err := h.discordService.Members(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch members"})
		return
	}
	c.JSON(http.StatusOK, members)
}

func (h *DiscordHandler) Announcements(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}

	announcements, err := h.discordService.Announcements(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch announcements"})
		return
	}
	c.JSON(http.StatusOK, announcements)
}

func (h *DiscordHandler) Stats(c *gin.Context) {
	stats, err := h.discordService.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch server stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *DiscordHandler) MemberByUsername(c *gin.Context) {
	username := c.Param("username")

	member, err := h.discordService.MemberByUsername(c.Request.Context(), username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch member"})
		return
	}
	c.JSON(http.StatusOK, member)
}
