package storage

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/arisecrossover/guildsite/internal/model"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// DefaultAnnouncementLimit is used when the caller passes limit <= 0.
const DefaultAnnouncementLimit = 10

// CreateUserParams carries the raw registration fields. Password and
// SecurityAnswer are plaintext; the storage layer hashes them before
// persistence.
type CreateUserParams struct {
	UserName       string
	Email          string
	Password       string
	SecurityAnswer string
	Role           string
}

// Storage is the single owner of all persistent-state operations.
// No other component issues queries against the store.
type Storage interface {
	CreateUser(ctx context.Context, params CreateUserParams) (*model.User, error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	UpdateUser(ctx context.Context, id string, update model.UserUpdate) (*model.User, error)
	UpsertUser(ctx context.Context, user *model.User) error
	VerifyUser(ctx context.Context, id string) error

	ValidatePassword(user *model.User, password string) bool
	ValidateSecurityAnswer(user *model.User, answer string) bool

	CreateLoginLog(ctx context.Context, entry *model.LoginLog) error
	ListLoginLogs(ctx context.Context, limit int) ([]model.LoginLog, error)

	UpsertDiscordMember(ctx context.Context, member *model.DiscordMember) error
	ListDiscordMembers(ctx context.Context) ([]model.DiscordMember, error)
	GetDiscordMemberByUsername(ctx context.Context, username string) (*model.DiscordMember, error)

	CreateAnnouncement(ctx context.Context, announcement *model.Announcement) error
	ListAnnouncements(ctx context.Context, limit int) ([]model.Announcement, error)
}

// hashSecret hashes a password or security answer with bcrypt.
func hashSecret(secret string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// checkSecret compares a bcrypt hash against plaintext.
func checkSecret(hash, secret string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}

// normalizeAnswer makes security-answer matching case-insensitive.
func normalizeAnswer(answer string) string {
	return strings.ToLower(strings.TrimSpace(answer))
}
