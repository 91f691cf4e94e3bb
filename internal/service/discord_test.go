package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/arisecrossover/guildsite/internal/discord"
	"github.com/arisecrossover/guildsite/internal/model"
	"github.com/arisecrossover/guildsite/internal/stats"
	"github.com/arisecrossover/guildsite/internal/storage"
)

var errDiscordDown = errors.New("discord unreachable")

// fakeClient scripts the collaborator's responses.
type fakeClient struct {
	members       []model.DiscordMember
	announcements []model.Announcement
	stats         model.ServerStats
	member        *model.DiscordMember
	err           error
	memberErr     error
}

func (f *fakeClient) Connect(ctx context.Context) error { return nil }
func (f *fakeClient) Close() error                      { return nil }

func (f *fakeClient) GetMembers(ctx context.Context) ([]model.DiscordMember, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.members, nil
}

func (f *fakeClient) GetAnnouncements(ctx context.Context, limit int) ([]model.Announcement, error) {
	if f.err != nil {
		return nil, f.err
	}
	if limit > 0 && len(f.announcements) > limit {
		return f.announcements[:limit], nil
	}
	return f.announcements, nil
}

func (f *fakeClient) GetServerStats(ctx context.Context) (model.ServerStats, error) {
	if f.err != nil {
		return model.ServerStats{}, f.err
	}
	return f.stats, nil
}

func (f *fakeClient) GetMemberByUsername(ctx context.Context, username string) (*model.DiscordMember, error) {
	if f.memberErr != nil {
		return nil, f.memberErr
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.member != nil && f.member.UserName == username {
		return f.member, nil
	}
	return nil, discord.ErrMemberNotFound
}

func newDiscordFixture(client *fakeClient) (*DiscordService, *storage.MemoryStorage, *stats.Holder) {
	store := storage.NewMemoryStorage(bcrypt.MinCost)
	holder := stats.NewHolder()
	return NewDiscordService(client, store, holder, zap.NewNop()), store, holder
}

func TestMembers_Live(t *testing.T) {
	client := &fakeClient{members: []model.DiscordMember{{ID: "1", UserName: "shadow"}}}
	svc, _, _ := newDiscordFixture(client)

	members, err := svc.Members(context.Background())
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "shadow", members[0].UserName)
}

func TestMembers_FallsBackToCache(t *testing.T) {
	client := &fakeClient{err: errDiscordDown}
	svc, store, _ := newDiscordFixture(client)
	ctx := context.Background()

	require.NoError(t, store.UpsertDiscordMember(ctx, &model.DiscordMember{ID: "1", UserName: "cached"}))

	members, err := svc.Members(ctx)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "cached", members[0].UserName)
}

func TestMembers_ErrorWhenCacheEmpty(t *testing.T) {
	client := &fakeClient{err: errDiscordDown}
	svc, _, _ := newDiscordFixture(client)

	_, err := svc.Members(context.Background())
	assert.ErrorIs(t, err, errDiscordDown)
}

func TestAnnouncements_FallsBackToCache(t *testing.T) {
	client := &fakeClient{err: errDiscordDown}
	svc, store, _ := newDiscordFixture(client)
	ctx := context.Background()

	base := time.Now()
	for i, id := range []string{"a1", "a2", "a3"} {
		require.NoError(t, store.CreateAnnouncement(ctx, &model.Announcement{
			ID:        id,
			Content:   "cached",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	got, err := svc.Announcements(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a3", got[0].ID)
}

func TestStats_LiveUpdatesSnapshot(t *testing.T) {
	client := &fakeClient{stats: model.ServerStats{TotalMembers: 100, OnlineMembers: 42, ServerName: "Arise Crossover"}}
	svc, _, holder := newDiscordFixture(client)

	got, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 100, got.TotalMembers)
	assert.Equal(t, got, holder.Get())
}

func TestStats_FallsBackToSnapshot(t *testing.T) {
	client := &fakeClient{err: errDiscordDown}
	svc, _, holder := newDiscordFixture(client)

	holder.Set(model.ServerStats{TotalMembers: 90, OnlineMembers: 10, ServerName: "Arise Crossover"})

	got, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 90, got.TotalMembers)
}

func TestStats_ErrorWithoutSnapshot(t *testing.T) {
	client := &fakeClient{err: errDiscordDown}
	svc, _, _ := newDiscordFixture(client)

	_, err := svc.Stats(context.Background())
	assert.ErrorIs(t, err, errDiscordDown)
}

func TestMemberByUsername_Live(t *testing.T) {
	client := &fakeClient{member: &model.DiscordMember{ID: "1", UserName: "shadow"}}
	svc, _, _ := newDiscordFixture(client)

	member, err := svc.MemberByUsername(context.Background(), "shadow")
	require.NoError(t, err)
	assert.Equal(t, "1", member.ID)
}

func TestMemberByUsername_NotFoundIsFinal(t *testing.T) {
	client := &fakeClient{memberErr: discord.ErrMemberNotFound}
	svc, store, _ := newDiscordFixture(client)
	ctx := context.Background()

	// Even with a cached copy, a live not-found answer wins: the member left.
	require.NoError(t, store.UpsertDiscordMember(ctx, &model.DiscordMember{ID: "1", UserName: "shadow"}))

	_, err := svc.MemberByUsername(ctx, "shadow")
	assert.ErrorIs(t, err, ErrMemberNotFound)
}

func TestMemberByUsername_FallsBackToCache(t *testing.T) {
	client := &fakeClient{memberErr: errDiscordDown}
	svc, store, _ := newDiscordFixture(client)
	ctx := context.Background()

	require.NoError(t, store.UpsertDiscordMember(ctx, &model.DiscordMember{ID: "1", UserName: "shadow"}))

	member, err := svc.MemberByUsername(ctx, "shadow")
	require.NoError(t, err)
	assert.Equal(t, "1", member.ID)

	_, err = svc.MemberByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, ErrMemberNotFound)
}
