package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/arisecrossover/guildsite/internal/model"
)

// MemoryStorage is an in-memory Storage used by tests and local development.
// It mirrors the semantics of GormStorage, including hashing policy.
type MemoryStorage struct {
	mu            sync.RWMutex
	bcryptCost    int
	users         map[string]model.User // key: user ID
	members       map[string]model.DiscordMember
	announcements map[string]model.Announcement
	loginLogs     []model.LoginLog

	// FailLoginLogs simulates a store outage for audit writes.
	FailLoginLogs bool
}

func NewMemoryStorage(bcryptCost int) *MemoryStorage {
	return &MemoryStorage{
		bcryptCost:    bcryptCost,
		users:         make(map[string]model.User),
		members:       make(map[string]model.DiscordMember),
		announcements: make(map[string]model.Announcement),
	}
}

func (m *MemoryStorage) CreateUser(ctx context.Context, params CreateUserParams) (*model.User, error) {
	passwordHash, err := hashSecret(params.Password, m.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	var answerHash string
	if params.SecurityAnswer != "" {
		answerHash, err = hashSecret(normalizeAnswer(params.SecurityAnswer), m.bcryptCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash security answer: %w", err)
		}
	}

	role := params.Role
	if role == "" {
		role = "user"
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.UserName == params.UserName {
			return nil, ErrDuplicate
		}
		if params.Email != "" && u.Email == params.Email {
			return nil, ErrDuplicate
		}
	}

	now := time.Now()
	user := model.User{
		ID:                 uuid.New().String(),
		UserName:           params.UserName,
		Email:              params.Email,
		PasswordHash:       passwordHash,
		SecurityAnswerHash: answerHash,
		Role:               role,
		Verified:           false,
		Level:              1,
		XP:                 0,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	m.users[user.ID] = user

	out := user
	return &out, nil
}

func (m *MemoryStorage) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if u, ok := m.users[id]; ok {
		out := u
		return &out, nil
	}
	return nil, ErrNotFound
}

func (m *MemoryStorage) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.UserName == username {
			out := u
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStorage) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Email != "" && u.Email == email {
			out := u
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStorage) UpdateUser(ctx context.Context, id string, update model.UserUpdate) (*model.User, error) {
	var passwordHash string
	if update.Password != nil {
		var err error
		passwordHash, err = hashSecret(*update.Password, m.bcryptCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}

	if update.Email != nil {
		user.Email = *update.Email
	}
	if update.Password != nil {
		user.PasswordHash = passwordHash
	}
	if update.Role != nil {
		user.Role = *update.Role
	}
	if update.Level != nil {
		user.Level = *update.Level
	}
	if update.XP != nil {
		user.XP = *update.XP
	}
	if update.Badges != nil {
		user.Badges = *update.Badges
	}
	if update.DiscordID != nil {
		user.DiscordID = *update.DiscordID
	}
	if update.DiscordUsername != nil {
		user.DiscordUsername = *update.DiscordUsername
	}
	user.UpdatedAt = time.Now()

	m.users[id] = user
	out := user
	return &out, nil
}

func (m *MemoryStorage) UpsertUser(ctx context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if user.Role == "" {
		user.Role = "user"
	}
	if user.Level == 0 {
		user.Level = 1
	}

	if existing, ok := m.users[user.ID]; ok {
		existing.UserName = user.UserName
		existing.Email = user.Email
		existing.Role = user.Role
		existing.Level = user.Level
		existing.XP = user.XP
		existing.Badges = user.Badges
		existing.DiscordID = user.DiscordID
		existing.DiscordUsername = user.DiscordUsername
		existing.UpdatedAt = time.Now()
		m.users[user.ID] = existing
		return nil
	}

	user.Verified = false
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	m.users[user.ID] = *user
	return nil
}

func (m *MemoryStorage) VerifyUser(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	user.Verified = true
	m.users[id] = user
	return nil
}

func (m *MemoryStorage) ValidatePassword(user *model.User, password string) bool {
	if user == nil || user.PasswordHash == "" {
		return false
	}
	return checkSecret(user.PasswordHash, password)
}

func (m *MemoryStorage) ValidateSecurityAnswer(user *model.User, answer string) bool {
	if user == nil || user.SecurityAnswerHash == "" {
		return false
	}
	return checkSecret(user.SecurityAnswerHash, normalizeAnswer(answer))
}

func (m *MemoryStorage) CreateLoginLog(ctx context.Context, entry *model.LoginLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailLoginLogs {
		return fmt.Errorf("login log store unavailable")
	}
	entry.ID = uint(len(m.loginLogs) + 1)
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	m.loginLogs = append(m.loginLogs, *entry)
	return nil
}

func (m *MemoryStorage) ListLoginLogs(ctx context.Context, limit int) ([]model.LoginLog, error) {
	if limit <= 0 {
		limit = 50
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	logs := make([]model.LoginLog, len(m.loginLogs))
	copy(logs, m.loginLogs)
	sort.SliceStable(logs, func(i, j int) bool {
		return logs[i].CreatedAt.After(logs[j].CreatedAt)
	})
	if len(logs) > limit {
		logs = logs[:limit]
	}
	return logs, nil
}

func (m *MemoryStorage) UpsertDiscordMember(ctx context.Context, member *model.DiscordMember) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	member.UpdatedAt = time.Now()
	m.members[member.ID] = *member
	return nil
}

func (m *MemoryStorage) ListDiscordMembers(ctx context.Context) ([]model.DiscordMember, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	members := make([]model.DiscordMember, 0, len(m.members))
	for _, dm := range m.members {
		members = append(members, dm)
	}
	sort.Slice(members, func(i, j int) bool {
		return strings.ToLower(members[i].UserName) < strings.ToLower(members[j].UserName)
	})
	return members, nil
}

func (m *MemoryStorage) GetDiscordMemberByUsername(ctx context.Context, username string) (*model.DiscordMember, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, dm := range m.members {
		if dm.UserName == username {
			out := dm
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStorage) CreateAnnouncement(ctx context.Context, announcement *model.Announcement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if announcement.ID == "" {
		announcement.ID = uuid.New().String()
	}
	if announcement.MessageID != "" {
		for _, a := range m.announcements {
			if a.MessageID == announcement.MessageID {
				return ErrDuplicate
			}
		}
	}
	if announcement.CreatedAt.IsZero() {
		announcement.CreatedAt = time.Now()
	}
	m.announcements[announcement.ID] = *announcement
	return nil
}

func (m *MemoryStorage) ListAnnouncements(ctx context.Context, limit int) ([]model.Announcement, error) {
	if limit <= 0 {
		limit = DefaultAnnouncementLimit
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	announcements := make([]model.Announcement, 0, len(m.announcements))
	for _, a := range m.announcements {
		announcements = append(announcements, a)
	}
	sort.Slice(announcements, func(i, j int) bool {
		return announcements[i].CreatedAt.After(announcements[j].CreatedAt)
	})
	if len(announcements) > limit {
		announcements = announcements[:limit]
	}
	return announcements, nil
}
