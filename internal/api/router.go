package api

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/arisecrossover/guildsite/internal/handler"
)

// RegisterRoutes wires the HTTP surface. The health endpoint answers 200
// regardless of backing-service state.
func RegisterRoutes(
	r *gin.Engine,
	mw *MiddlewareManager,
	authHandler *handler.AuthHandler,
	discordHandler *handler.DiscordHandler,
	adminHandler *handler.AdminHandler,
) {
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	r.Use(cors.New(corsConfig))

	r.Use(mw.Logger())
	r.Use(mw.Recovery())

	api := r.Group("/api")

	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Arise Crossover API is running",
		})
	})

	discord := api.Group("/discord")
	{
		discord.GET("/members", discordHandler.Members)
		discord.GET("/announcements", discordHandler.Announcements)
		discord.GET("/stats", discordHandler.Stats)
		discord.GET("/member/:username", discordHandler.MemberByUsername)
	}

	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/recover", authHandler.Recover)
	}
	authProtected := api.Group("/auth")
	authProtected.Use(mw.JWTAuth())
	{
		authProtected.POST("/logout", authHandler.Logout)
		authProtected.GET("/me", authHandler.Me)
	}

	admin := api.Group("/admin")
	admin.Use(mw.JWTAuth(), mw.AdminOnly())
	{
		admin.GET("/login-logs", adminHandler.LoginLogs)
		admin.POST("/verify/:id", adminHandler.VerifyUser)
	}
}
