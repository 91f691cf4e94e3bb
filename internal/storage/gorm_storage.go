package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/arisecrossover/guildsite/internal/model"
)

// GormStorage implements Storage on top of GORM + PostgreSQL.
type GormStorage struct {
	db         *gorm.DB
	bcryptCost int
}

// NewGormStorage creates a database-backed Storage.
// bcryptCost controls the work factor for password and security-answer hashes.
func NewGormStorage(db *gorm.DB, bcryptCost int) *GormStorage {
	return &GormStorage{db: db, bcryptCost: bcryptCost}
}

func translateError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	return err
}

// CreateUser hashes the supplied secrets and inserts a fresh user row.
// Uniqueness violations on username/email surface as ErrDuplicate.
func (s *GormStorage) CreateUser(ctx context.Context, params CreateUserParams) (*model.User, error) {
	passwordHash, err := hashSecret(params.Password, s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	var answerHash string
	if params.SecurityAnswer != "" {
		answerHash, err = hashSecret(normalizeAnswer(params.SecurityAnswer), s.bcryptCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash security answer: %w", err)
		}
	}

	role := params.Role
	if role == "" {
		role = "user"
	}

	user := &model.User{
		ID:                 uuid.New().String(),
		UserName:           params.UserName,
		Email:              params.Email,
		PasswordHash:       passwordHash,
		SecurityAnswerHash: answerHash,
		Role:               role,
		Verified:           false,
		Level:              1,
		XP:                 0,
	}

	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, translateError(err)
	}
	return user, nil
}

func (s *GormStorage) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, translateError(err)
	}
	return &user, nil
}

func (s *GormStorage) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, translateError(err)
	}
	return &user, nil
}

func (s *GormStorage) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, translateError(err)
	}
	return &user, nil
}

// UpdateUser applies a partial update. A new plaintext password is re-hashed
// before persistence. The ID is immutable.
func (s *GormStorage) UpdateUser(ctx context.Context, id string, update model.UserUpdate) (*model.User, error) {
	changes := map[string]any{}
	if update.Email != nil {
		changes["email"] = *update.Email
	}
	if update.Password != nil {
		hash, err := hashSecret(*update.Password, s.bcryptCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		changes["password_hash"] = hash
	}
	if update.Role != nil {
		changes["role"] = *update.Role
	}
	if update.Level != nil {
		changes["level"] = *update.Level
	}
	if update.XP != nil {
		changes["xp"] = *update.XP
	}
	if update.Badges != nil {
		changes["badges"] = *update.Badges
	}
	if update.DiscordID != nil {
		changes["discord_id"] = *update.DiscordID
	}
	if update.DiscordUsername != nil {
		changes["discord_username"] = *update.DiscordUsername
	}

	if len(changes) > 0 {
		changes["updated_at"] = time.Now()
		result := s.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Updates(changes)
		if result.Error != nil {
			return nil, translateError(result.Error)
		}
		if result.RowsAffected == 0 {
			return nil, ErrNotFound
		}
	}
	return s.GetUserByID(ctx, id)
}

// UpsertUser merges or inserts a user by ID with a single atomic
// INSERT ... ON CONFLICT DO UPDATE. Secrets are never touched on update.
func (s *GormStorage) UpsertUser(ctx context.Context, user *model.User) error {
	if user.Role == "" {
		user.Role = "user"
	}
	if user.Level == 0 {
		user.Level = 1
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"username", "email", "role", "level", "xp", "badges",
			"discord_id", "discord_username", "updated_at",
		}),
	}).Create(user).Error
}

// VerifyUser flips the verified flag. Calling it on an already verified
// user is a no-op.
func (s *GormStorage) VerifyUser(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Update("verified", true)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		// Could be missing or already verified; only the former is an error.
		var count int64
		if err := s.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrNotFound
		}
	}
	return nil
}

func (s *GormStorage) ValidatePassword(user *model.User, password string) bool {
	if user == nil || user.PasswordHash == "" {
		return false
	}
	return checkSecret(user.PasswordHash, password)
}

func (s *GormStorage) ValidateSecurityAnswer(user *model.User, answer string) bool {
	if user == nil || user.SecurityAnswerHash == "" {
		return false
	}
	return checkSecret(user.SecurityAnswerHash, normalizeAnswer(answer))
}

func (s *GormStorage) CreateLoginLog(ctx context.Context, entry *model.LoginLog) error {
	return s.db.WithContext(ctx).Create(entry).Error
}

func (s *GormStorage) ListLoginLogs(ctx context.Context, limit int) ([]model.LoginLog, error) {
	if limit <= 0 {
		limit = 50
	}
	var logs []model.LoginLog
	err := s.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&logs).Error
	return logs, err
}

// UpsertDiscordMember replaces the cached snapshot for a member.
// Discord is authoritative, so this is last-write-wins by design of the sync.
func (s *GormStorage) UpsertDiscordMember(ctx context.Context, member *model.DiscordMember) error {
	member.UpdatedAt = time.Now()
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"username", "display_name", "avatar", "roles", "status",
			"joined_at", "updated_at",
		}),
	}).Create(member).Error
}

func (s *GormStorage) ListDiscordMembers(ctx context.Context) ([]model.DiscordMember, error) {
	var members []model.DiscordMember
	err := s.db.WithContext(ctx).Order("username ASC").Find(&members).Error
	return members, err
}

func (s *GormStorage) GetDiscordMemberByUsername(ctx context.Context, username string) (*model.DiscordMember, error) {
	var member model.DiscordMember
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&member).Error; err != nil {
		return nil, translateError(err)
	}
	return &member, nil
}

func (s *GormStorage) CreateAnnouncement(ctx context.Context, announcement *model.Announcement) error {
	if announcement.ID == "" {
		announcement.ID = uuid.New().String()
	}
	if err := s.db.WithContext(ctx).Create(announcement).Error; err != nil {
		return translateError(err)
	}
	return nil
}

func (s *GormStorage) ListAnnouncements(ctx context.Context, limit int) ([]model.Announcement, error) {
	if limit <= 0 {
		limit = DefaultAnnouncementLimit
	}
	var announcements []model.Announcement
	err := s.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&announcements).Error
	return announcements, err
}
