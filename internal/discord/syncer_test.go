package discord

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/arisecrossover/guildsite/internal/model"
	"github.com/arisecrossover/guildsite/internal/stats"
	"github.com/arisecrossover/guildsite/internal/storage"
)

type stubClient struct {
	members       []model.DiscordMember
	announcements []model.Announcement
	stats         model.ServerStats
	err           error
}

func (s *stubClient) Connect(ctx context.Context) error { return nil }
func (s *stubClient) Close() error                      { return nil }

func (s *stubClient) GetMembers(ctx context.Context) ([]model.DiscordMember, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.members, nil
}

func (s *stubClient) GetAnnouncements(ctx context.Context, limit int) ([]model.Announcement, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.announcements, nil
}

func (s *stubClient) GetServerStats(ctx context.Context) (model.ServerStats, error) {
	if s.err != nil {
		return model.ServerStats{}, s.err
	}
	return s.stats, nil
}

func (s *stubClient) GetMemberByUsername(ctx context.Context, username string) (*model.DiscordMember, error) {
	return nil, ErrMemberNotFound
}

func TestSyncOnce(t *testing.T) {
	client := &stubClient{
		members: []model.DiscordMember{
			{ID: "1", UserName: "shadow", Status: "online"},
			{ID: "2", UserName: "igris", Status: "idle"},
		},
		announcements: []model.Announcement{
			{ID: "m1", MessageID: "m1", Content: "raid night", CreatedAt: time.Now()},
		},
		stats: model.ServerStats{TotalMembers: 50, OnlineMembers: 12, ServerName: "Arise Crossover"},
	}
	store := storage.NewMemoryStorage(bcrypt.MinCost)
	holder := stats.NewHolder()
	syncer := NewSyncer(client, store, holder, zap.NewNop(), time.Minute)
	ctx := context.Background()

	syncer.SyncOnce(ctx)

	members, err := store.ListDiscordMembers(ctx)
	require.NoError(t, err)
	assert.Len(t, members, 2)

	announcements, err := store.ListAnnouncements(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, announcements, 1)

	assert.Equal(t, 50, holder.Get().TotalMembers)
}

func TestSyncOnce_Repeatable(t *testing.T) {
	client := &stubClient{
		members: []model.DiscordMember{{ID: "1", UserName: "shadow", Status: "online"}},
		announcements: []model.Announcement{
			{ID: "m1", MessageID: "m1", Content: "raid night", CreatedAt: time.Now()},
		},
	}
	store := storage.NewMemoryStorage(bcrypt.MinCost)
	syncer := NewSyncer(client, store, stats.NewHolder(), zap.NewNop(), time.Minute)
	ctx := context.Background()

	syncer.SyncOnce(ctx)

	// Announcements already cached are skipped, members are refreshed in place.
	client.members[0].Status = "offline"
	syncer.SyncOnce(ctx)

	members, err := store.ListDiscordMembers(ctx)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "offline", members[0].Status)

	announcements, err := store.ListAnnouncements(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, announcements, 1)
}

func TestSyncOnce_SurvivesClientErrors(t *testing.T) {
	client := &stubClient{err: errors.New("discord unreachable")}
	store := storage.NewMemoryStorage(bcrypt.MinCost)
	holder := stats.NewHolder()
	syncer := NewSyncer(client, store, holder, zap.NewNop(), time.Minute)
	ctx := context.Background()

	syncer.SyncOnce(ctx)

	members, err := store.ListDiscordMembers(ctx)
	require.NoError(t, err)
	assert.Empty(t, members)
	assert.Equal(t, model.ServerStats{}, holder.Get())
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	client := &stubClient{}
	store := storage.NewMemoryStorage(bcrypt.MinCost)
	syncer := NewSyncer(client, store, stats.NewHolder(), zap.NewNop(), 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		syncer.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("syncer did not stop after cancel")
	}
}
