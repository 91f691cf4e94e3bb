package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/arisecrossover/guildsite/internal/discord"
	"github.com/arisecrossover/guildsite/internal/model"
	"github.com/arisecrossover/guildsite/internal/stats"
	"github.com/arisecrossover/guildsite/internal/storage"
)

var ErrMemberNotFound = errors.New("member not found")

// DiscordService fronts the collaborator with a cache fallback: when the
// live call fails it serves whatever the syncer last wrote, so the site
// degrades to stale data instead of erroring while Discord is down.
type DiscordService struct {
	client discord.Client
	store  storage.Storage
	stats  *stats.Holder
	logger *zap.Logger
}

func NewDiscordService(client discord.Client, store storage.Storage, holder *stats.Holder, logger *zap.Logger) *DiscordService {
	return &DiscordService{
		client: client,
		store:  store,
		stats:  holder,
		logger: logger,
	}
}

func (s *DiscordService) Members(ctx context.Context) ([]model.DiscordMember, error) {
	members, err := s.client.GetMembers(ctx)
	if err == nil {
		return members, nil
	}
	s.logger.Warn("live member fetch failed, serving cache", zap.Error(err))

	cached, cacheErr := s.store.ListDiscordMembers(ctx)
	if cacheErr != nil || len(cached) == 0 {
		return nil, fmt.Errorf("discord members unavailable: %w", err)
	}
	return cached, nil
}

func (s *DiscordService) Announcements(ctx context.Context, limit int) ([]model.Announcement, error) {
	announcements, err := s.client.GetAnnouncements(ctx, limit)
	if err == nil {
		return announcements, nil
	}
	s.logger.Warn("live announcement fetch failed, serving cache", zap.Error(err))

	cached, cacheErr := s.store.ListAnnouncements(ctx, limit)
	if cacheErr != nil || len(cached) == 0 {
		return nil, fmt.Errorf("announcements unavailable: %w", err)
	}
	return cached, nil
}

func (s *DiscordService) Stats(ctx context.Context) (model.ServerStats, error) {
	serverStats, err := s.client.GetServerStats(ctx)
	if err == nil {
		s.stats.Set(serverStats)
		return serverStats, nil
	}
	s.logger.Warn("live stats fetch failed, serving last snapshot", zap.Error(err))

	cached := s.stats.Get()
	if cached == (model.ServerStats{}) {
		return model.ServerStats{}, fmt.Errorf("server stats unavailable: %w", err)
	}
	return cached, nil
}

func (s *DiscordService) MemberByUsername(ctx context.Context, username string) (*model.DiscordMember, error) {
	member, err := s.client.GetMemberByUsername(ctx, username)
	if err == nil {
		return member, nil
	}
	if errors.Is(err, discord.ErrMemberNotFound) {
		return nil, ErrMemberNotFound
	}
	s.logger.Warn("live member lookup failed, serving cache",
		zap.String("username", username),
		zap.Error(err),
	)

	cached, cacheErr := s.store.GetDiscordMemberByUsername(ctx, username)
	if cacheErr != nil {
		if errors.Is(cacheErr, storage.ErrNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, fmt.Errorf("member lookup unavailable: %w", err)
	}
	return cached, nil
}
