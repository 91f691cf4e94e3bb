package model

import "time"

// LoginLog 登录审计记录，只追加，不修改不删除
type LoginLog struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	UserID    string `gorm:"index;type:varchar(64)" json:"user_id"`
	UserName  string `gorm:"column:username;type:varchar(255)" json:"username"`
	IPAddress string `gorm:"type:varchar(64)" json:"ip_address"`
	UserAgent string `gorm:"type:varchar(512)" json:"user_agent"`
	Location  string `gorm:"type:varchar(255)" json:"location,omitempty"`
	Success   bool   `gorm:"not null" json:"success"`

	CreatedAt time.Time `gorm:"index;not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (LoginLog) TableName() string {
	return "login_logs"
}
