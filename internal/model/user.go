package model

import (
	"time"
)

// User 站点注册用户
type User struct {
	ID                 string `gorm:"primaryKey;type:varchar(64)" json:"id"`
	UserName           string `gorm:"column:username;uniqueIndex;not null;type:varchar(255)" json:"username"`
	// Email is optional; the partial index only enforces uniqueness on
	// non-empty values.
	Email              string `gorm:"uniqueIndex:udx_users_email,where:email <> '';type:varchar(255)" json:"email,omitempty"`
	PasswordHash       string `gorm:"not null;type:varchar(255)" json:"-"`
	SecurityAnswerHash string `gorm:"type:varchar(255)" json:"-"`
	Role               string `gorm:"not null;default:user;type:varchar(32)" json:"role"` // user, admin
	Verified           bool   `gorm:"not null;default:false" json:"verified"`

	Level  int    `gorm:"not null;default:1" json:"level"`
	XP     int    `gorm:"column:xp;not null;default:0" json:"xp"`
	Badges string `gorm:"type:text" json:"badges"` // comma-separated badge names

	// Linked Discord identity, if the member connected one.
	DiscordID       string `gorm:"index;type:varchar(64)" json:"discord_id,omitempty"`
	DiscordUsername string `gorm:"type:varchar(255)" json:"discord_username,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// UserUpdate carries a partial user update. Nil fields are left untouched.
// Password is plaintext here; the storage layer re-hashes it.
type UserUpdate struct {
	Email           *string
	Password        *string
	Role            *string
	Level           *int
	XP              *int
	Badges          *string
	DiscordID       *string
	DiscordUsername *string
}
