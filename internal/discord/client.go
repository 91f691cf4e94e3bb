package discord

import (
	"context"
	"errors"

	"github.com/arisecrossover/guildsite/internal/model"
)

var ErrMemberNotFound = errors.New("discord member not found")

// Client is the narrow read interface over the guild's Discord bot.
// Discord is the source of truth for everything returned here; the rest of
// the system only caches it.
type Client interface {
	// Connect establishes the gateway session. Failure is non-fatal for the
	// HTTP server; callers log and continue in degraded mode.
	Connect(ctx context.Context) error
	Close() error

	GetMembers(ctx context.Context) ([]model.DiscordMember, error)
	GetAnnouncements(ctx context.Context, limit int) ([]model.Announcement, error)
	GetServerStats(ctx context.Context) (model.ServerStats, error)
	GetMemberByUsername(ctx context.Context, username string) (*model.DiscordMember, error)
}
