package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/arisecrossover/guildsite/config"
	"github.com/arisecrossover/guildsite/internal/api"
	"github.com/arisecrossover/guildsite/internal/discord"
	"github.com/arisecrossover/guildsite/internal/handler"
	"github.com/arisecrossover/guildsite/internal/pkg/redis"
	"github.com/arisecrossover/guildsite/internal/ratelimit"
	"github.com/arisecrossover/guildsite/internal/service"
	"github.com/arisecrossover/guildsite/internal/session"
	"github.com/arisecrossover/guildsite/internal/stats"
	"github.com/arisecrossover/guildsite/internal/storage"
	"github.com/arisecrossover/guildsite/middleware/jwt"
	logger "github.com/arisecrossover/guildsite/middleware/log"
)

func main() {
	cfg, err := config.LoadConfig("./config.toml")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zlog, err := logger.NewLogger(&cfg.Logging)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer zlog.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// PostgreSQL
	dsn := storage.ResolveDSN(cfg.Postgres.Host, cfg.Postgres.Port, cfg.Postgres.User, cfg.Postgres.Password, cfg.Postgres.DBName)
	db, err := storage.InitPostgres(dsn, cfg.Postgres.MaxIdleConns, cfg.Postgres.MaxOpenConns)
	if err != nil {
		zlog.Fatal("failed to init postgres", zap.Error(err))
	}
	store := storage.NewGormStorage(db, cfg.Auth.BcryptCost)

	// Redis: sessions + login backoff
	redisClient, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		zlog.Fatal("failed to init redis", zap.Error(err))
	}
	defer redisClient.Close()

	sessions := session.NewStore(redisClient.GetClient())
	loginLimiter := ratelimit.NewLoginLimiter(
		redisClient.GetClient(),
		zlog.Logger,
		cfg.Auth.LoginMaxFailures,
		time.Duration(cfg.Auth.LoginWindowSecs)*time.Second,
		time.Duration(cfg.Auth.LoginMaxBackoff)*time.Second,
	)

	tokenManager := jwt.NewTokenManager(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	statsHolder := stats.NewHolder()

	// Discord collaborator. A failed connect degrades to cached data; it
	// never stops the HTTP server.
	botClient := discord.NewBotClient(&cfg.Discord, zlog.Logger)
	if err := botClient.Connect(ctx); err != nil {
		zlog.Warn("discord connect failed, serving cached data", zap.Error(err))
	}
	defer botClient.Close()

	syncer := discord.NewSyncer(botClient, store, statsHolder, zlog.Logger,
		time.Duration(cfg.Discord.SyncIntervalSecs)*time.Second)
	go syncer.Run(ctx)

	authService := service.NewAuthService(store, sessions, tokenManager, loginLimiter, zlog.Logger)
	discordService := service.NewDiscordService(botClient, store, statsHolder, zlog.Logger)

	authHandler := handler.NewAuthHandler(authService)
	discordHandler := handler.NewDiscordHandler(discordService)
	adminHandler := handler.NewAdminHandler(authService)

	gin.SetMode(cfg.Server.Mode)
	r := gin.New()

	mw := api.NewMiddlewareManager(tokenManager, sessions, zlog.Logger)
	api.RegisterRoutes(r, mw, authHandler, discordHandler, adminHandler)

	srv := &http.Server{
		Addr:    ":" + strconv.Itoa(cfg.Server.Port),
		Handler: r,
	}

	go func() {
		zlog.Info("server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zlog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error("shutdown failed", zap.Error(err))
	}
}
