package model

import "time"

// DiscordMember 缓存的 Discord 服务器成员快照
// Discord is the source of truth; rows here are replaced wholesale on sync.
type DiscordMember struct {
	ID          string `gorm:"primaryKey;type:varchar(64)" json:"id"` // Discord snowflake
	UserName    string `gorm:"column:username;index;not null;type:varchar(255)" json:"username"`
	DisplayName string `gorm:"type:varchar(255)" json:"display_name"`
	Avatar      string `gorm:"type:varchar(255)" json:"avatar"`
	Roles       string `gorm:"type:text" json:"roles"` // comma-separated role IDs
	Status      string `gorm:"type:varchar(32)" json:"status"`

	JoinedAt  time.Time `json:"joined_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (DiscordMember) TableName() string {
	return "discord_members"
}

// Announcement 来自公告频道的消息，入库后不可变
type Announcement struct {
	ID           string `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Title        string `gorm:"type:varchar(255)" json:"title"`
	Content      string `gorm:"type:text;not null" json:"content"`
	AuthorName   string `gorm:"type:varchar(255)" json:"author_name"`
	AuthorAvatar string `gorm:"type:varchar(255)" json:"author_avatar"`
	AuthorRoles  string `gorm:"type:text" json:"author_roles"`
	ChannelID    string `gorm:"index;type:varchar(64)" json:"channel_id"`
	MessageID    string `gorm:"uniqueIndex;type:varchar(64)" json:"message_id,omitempty"`
	Reactions    int    `gorm:"not null;default:0" json:"reactions"`

	CreatedAt time.Time `gorm:"index;not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Announcement) TableName() string {
	return "announcements"
}

// ServerStats 聚合的服务器指标，整体替换，不做版本化
type ServerStats struct {
	TotalMembers  int    `json:"total_members"`
	OnlineMembers int    `json:"online_members"`
	ServerName    string `json:"server_name"`
}
