package discord

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/arisecrossover/guildsite/config"
	"github.com/arisecrossover/guildsite/internal/model"
)

const defaultAPIBase = "https://discord.com/api/v10"

// BotClient talks to the Discord REST API with a bot token and keeps a
// gateway session alive so the bot shows up as online.
type BotClient struct {
	httpClient *http.Client
	logger     *zap.Logger

	apiBase   string
	token     string
	guildID   string
	channelID string

	gateway *gatewaySession
}

func NewBotClient(cfg *config.DiscordConfig, logger *zap.Logger) *BotClient {
	return &BotClient{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger,
		apiBase:    defaultAPIBase,
		token:      cfg.BotToken,
		guildID:    cfg.GuildID,
		channelID:  cfg.AnnouncementChannel,
	}
}

// Connect opens the gateway session. REST reads work without it, so a
// failure here only degrades presence reporting.
func (c *BotClient) Connect(ctx context.Context) error {
	var info struct {
		URL string `json:"url"`
	}
	if err := c.get(ctx, "/gateway/bot", nil, &info); err != nil {
		return fmt.Errorf("failed to discover gateway: %w", err)
	}

	session, err := newGatewaySession(info.URL, c.token, c.logger)
	if err != nil {
		return err
	}
	c.gateway = session
	return nil
}

func (c *BotClient) Close() error {
	if c.gateway == nil {
		return nil
	}
	return c.gateway.close()
}

// discordUser is the wire shape of a Discord user object.
type discordUser struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	GlobalName string `json:"global_name"`
	Avatar     string `json:"avatar"`
}

type guildMember struct {
	User     discordUser `json:"user"`
	Nick     string      `json:"nick"`
	Roles    []string    `json:"roles"`
	JoinedAt time.Time   `json:"joined_at"`
}

func (m guildMember) toModel() model.DiscordMember {
	displayName := m.Nick
	if displayName == "" {
		displayName = m.User.GlobalName
	}
	if displayName == "" {
		displayName = m.User.Username
	}
	return model.DiscordMember{
		ID:          m.User.ID,
		UserName:    m.User.Username,
		DisplayName: displayName,
		Avatar:      m.User.Avatar,
		Roles:       strings.Join(m.Roles, ","),
		Status:      "offline", // REST member objects carry no presence
		JoinedAt:    m.JoinedAt,
	}
}

func (c *BotClient) GetMembers(ctx context.Context) ([]model.DiscordMember, error) {
	var raw []guildMember
	query := url.Values{"limit": {"1000"}}
	if err := c.get(ctx, fmt.Sprintf("/guilds/%s/members", c.guildID), query, &raw); err != nil {
		return nil, err
	}

	members := make([]model.DiscordMember, 0, len(raw))
	for _, m := range raw {
		if m.User.ID == "" {
			continue
		}
		members = append(members, m.toModel())
	}
	return members, nil
}

type channelMessage struct {
	ID        string      `json:"id"`
	Content   string      `json:"content"`
	Author    discordUser `json:"author"`
	Timestamp time.Time   `json:"timestamp"`
	Reactions []struct {
		Count int `json:"count"`
	} `json:"reactions"`
}

func (c *BotClient) GetAnnouncements(ctx context.Context, limit int) ([]model.Announcement, error) {
	if limit <= 0 {
		limit = 10
	}
	var raw []channelMessage
	query := url.Values{"limit": {fmt.Sprintf("%d", limit)}}
	if err := c.get(ctx, fmt.Sprintf("/channels/%s/messages", c.channelID), query, &raw); err != nil {
		return nil, err
	}

	announcements := make([]model.Announcement, 0, len(raw))
	roleCache := make(map[string]string)
	for _, msg := range raw {
		if msg.Content == "" {
			continue
		}
		reactions := 0
		for _, r := range msg.Reactions {
			reactions += r.Count
		}
		announcements = append(announcements, model.Announcement{
			ID:           msg.ID,
			Title:        announcementTitle(msg.Content),
			Content:      msg.Content,
			AuthorName:   msg.Author.Username,
			AuthorAvatar: msg.Author.Avatar,
			AuthorRoles:  c.authorRoles(ctx, roleCache, msg.Author.ID),
			ChannelID:    c.channelID,
			MessageID:    msg.ID,
			Reactions:    reactions,
			CreatedAt:    msg.Timestamp,
		})
	}
	return announcements, nil
}

// authorRoles resolves a message author's guild roles, one lookup per
// distinct author per call. Lookup failures leave the roles empty.
func (c *BotClient) authorRoles(ctx context.Context, cache map[string]string, userID string) string {
	if userID == "" {
		return ""
	}
	if roles, ok := cache[userID]; ok {
		return roles
	}

	var member guildMember
	roles := ""
	if err := c.get(ctx, fmt.Sprintf("/guilds/%s/members/%s", c.guildID, userID), nil, &member); err != nil {
		c.logger.Debug("author role lookup failed",
			zap.String("user_id", userID),
			zap.Error(err),
		)
	} else {
		roles = strings.Join(member.Roles, ",")
	}
	cache[userID] = roles
	return roles
}

// announcementTitle uses the first line of the message as the display title.
func announcementTitle(content string) string {
	line := content
	if idx := strings.IndexByte(content, '\n'); idx >= 0 {
		line = content[:idx]
	}
	line = strings.TrimSpace(strings.Trim(line, "*_# "))
	if len(line) > 120 {
		line = line[:120]
	}
	return line
}

func (c *BotClient) GetServerStats(ctx context.Context) (model.ServerStats, error) {
	var raw struct {
		Name                     string `json:"name"`
		ApproximateMemberCount   int    `json:"approximate_member_count"`
		ApproximatePresenceCount int    `json:"approximate_presence_count"`
	}
	query := url.Values{"with_counts": {"true"}}
	if err := c.get(ctx, fmt.Sprintf("/guilds/%s", c.guildID), query, &raw); err != nil {
		return model.ServerStats{}, err
	}
	return model.ServerStats{
		TotalMembers:  raw.ApproximateMemberCount,
		OnlineMembers: raw.ApproximatePresenceCount,
		ServerName:    raw.Name,
	}, nil
}

func (c *BotClient) GetMemberByUsername(ctx context.Context, username string) (*model.DiscordMember, error) {
	var raw []guildMember
	query := url.Values{"query": {username}, "limit": {"10"}}
	if err := c.get(ctx, fmt.Sprintf("/guilds/%s/members/search", c.guildID), query, &raw); err != nil {
		return nil, err
	}
	for _, m := range raw {
		if strings.EqualFold(m.User.Username, username) {
			member := m.toModel()
			return &member, nil
		}
	}
	return nil, ErrMemberNotFound
}

func (c *BotClient) get(ctx context.Context, path string, query url.Values, out any) error {
	endpoint := c.apiBase + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bot "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("discord request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("discord API returned %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode discord response: %w", err)
	}
	return nil
}
