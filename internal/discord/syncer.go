package discord

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/arisecrossover/guildsite/internal/stats"
	"github.com/arisecrossover/guildsite/internal/storage"
)

// Syncer periodically copies the collaborator's view of the guild into the
// local cache, so the HTTP surface can serve stale data when Discord is down.
// Per-item failures are logged and skipped; the loop itself never dies.
type Syncer struct {
	client   Client
	store    storage.Storage
	stats    *stats.Holder
	logger   *zap.Logger
	interval time.Duration
}

func NewSyncer(client Client, store storage.Storage, holder *stats.Holder, logger *zap.Logger, interval time.Duration) *Syncer {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Syncer{
		client:   client,
		store:    store,
		stats:    holder,
		logger:   logger,
		interval: interval,
	}
}

// Run syncs once immediately, then on every tick until ctx is cancelled.
func (s *Syncer) Run(ctx context.Context) {
	s.SyncOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SyncOnce(ctx)
		}
	}
}

// SyncOnce pulls members, announcements and stats from the collaborator and
// writes them through the storage façade and the stats holder.
func (s *Syncer) SyncOnce(ctx context.Context) {
	s.syncMembers(ctx)
	s.syncAnnouncements(ctx)
	s.syncStats(ctx)
}

func (s *Syncer) syncMembers(ctx context.Context) {
	members, err := s.client.GetMembers(ctx)
	if err != nil {
		s.logger.Warn("member sync failed", zap.Error(err))
		return
	}
	for i := range members {
		if err := s.store.UpsertDiscordMember(ctx, &members[i]); err != nil {
			s.logger.Warn("failed to cache discord member",
				zap.String("member_id", members[i].ID),
				zap.Error(err),
			)
		}
	}
	s.logger.Debug("member sync completed", zap.Int("count", len(members)))
}

func (s *Syncer) syncAnnouncements(ctx context.Context) {
	announcements, err := s.client.GetAnnouncements(ctx, storage.DefaultAnnouncementLimit)
	if err != nil {
		s.logger.Warn("announcement sync failed", zap.Error(err))
		return
	}
	for i := range announcements {
		err := s.store.CreateAnnouncement(ctx, &announcements[i])
		if err != nil && !errors.Is(err, storage.ErrDuplicate) {
			s.logger.Warn("failed to cache announcement",
				zap.String("message_id", announcements[i].MessageID),
				zap.Error(err),
			)
		}
	}
}

func (s *Syncer) syncStats(ctx context.Context) {
	serverStats, err := s.client.GetServerStats(ctx)
	if err != nil {
		s.logger.Warn("stats sync failed", zap.Error(err))
		return
	}
	s.stats.Set(serverStats)
}
