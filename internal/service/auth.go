package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/arisecrossover/guildsite/internal/model"
	"github.com/arisecrossover/guildsite/internal/ratelimit"
	"github.com/arisecrossover/guildsite/internal/session"
	"github.com/arisecrossover/guildsite/internal/storage"
	"github.com/arisecrossover/guildsite/middleware/jwt"
)

var (
	ErrUserAlreadyExists      = errors.New("username or email already exists")
	ErrInvalidCredentials     = errors.New("invalid username or password")
	ErrInvalidSecurityAnswer  = errors.New("security answer does not match")
	ErrTooManyAttempts        = errors.New("too many failed login attempts")
	ErrUserNotFound           = errors.New("user not found")
	ErrNoSecurityAnswerOnFile = errors.New("no security answer on file")
)

// RegisterRequest represents a user registration request
type RegisterRequest struct {
	Username       string `json:"username" binding:"required,min=3,max=20"`
	Email          string `json:"email" binding:"omitempty,email"`
	Password       string `json:"password" binding:"required,min=8,max=64"`
	SecurityAnswer string `json:"securityAnswer" binding:"omitempty,max=255"`
}

// LoginRequest represents a user login request
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse represents the response after successful login
type LoginResponse struct {
	Message string      `json:"message"`
	Token   string      `json:"token"`
	User    *model.User `json:"user"`
}

// RecoverRequest resets a forgotten password using the security answer.
type RecoverRequest struct {
	Username       string `json:"username" binding:"required"`
	SecurityAnswer string `json:"securityAnswer" binding:"required"`
	NewPassword    string `json:"newPassword" binding:"required,min=8,max=64"`
}

// AuthService owns the authentication flow: registration, credential checks
// with backoff, session issuance and the login audit trail.
type AuthService struct {
	store    storage.Storage
	sessions *session.Store
	tokens   *jwt.TokenManager
	limiter  *ratelimit.LoginLimiter
	logger   *zap.Logger
}

func NewAuthService(
	store storage.Storage,
	sessions *session.Store,
	tokens *jwt.TokenManager,
	limiter *ratelimit.LoginLimiter,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		store:    store,
		sessions: sessions,
		tokens:   tokens,
		limiter:  limiter,
		logger:   logger,
	}
}

// Register creates a new unverified user.
func (s *AuthService) Register(ctx context.Context, req *RegisterRequest) (*model.User, error) {
	user, err := s.store.CreateUser(ctx, storage.CreateUserParams{
		UserName:       req.Username,
		Email:          req.Email,
		Password:       req.Password,
		SecurityAnswer: req.SecurityAnswer,
	})
	if err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, ErrUserAlreadyExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// Login authenticates credentials and issues a token plus session record.
// The login audit write is fire-and-forget: its failure never fails a login.
func (s *AuthService) Login(ctx context.Context, req *LoginRequest, ip, userAgent string) (*LoginResponse, error) {
	limiterKey := req.Username + "|" + ip

	if allowed, retryAfter := s.limiter.Allow(ctx, limiterKey); !allowed {
		s.logger.Warn("login attempt blocked by backoff",
			zap.String("username", req.Username),
			zap.String("ip", ip),
			zap.Duration("retry_after", retryAfter),
		)
		return nil, ErrTooManyAttempts
	}

	user, err := s.store.GetUserByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.limiter.RecordFailure(ctx, limiterKey)
			s.recordLogin(ctx, nil, req.Username, ip, userAgent, false)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if !s.store.ValidatePassword(user, req.Password) {
		s.limiter.RecordFailure(ctx, limiterKey)
		s.recordLogin(ctx, user, req.Username, ip, userAgent, false)
		return nil, ErrInvalidCredentials
	}

	s.limiter.Reset(ctx, limiterKey)
	s.recordLogin(ctx, user, req.Username, ip, userAgent, true)

	token, tokenID, err := s.tokens.GenerateToken(user.ID, user.UserName, user.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	if err := s.sessions.Save(ctx, tokenID, user.ID, s.tokens.ExpireDuration()); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return &LoginResponse{
		Message: "login successful",
		Token:   token,
		User:    user,
	}, nil
}

// recordLogin appends an audit entry. Errors are reported to the
// operational log only, never to the caller.
func (s *AuthService) recordLogin(ctx context.Context, user *model.User, username, ip, userAgent string, success bool) {
	entry := &model.LoginLog{
		UserName:  username,
		IPAddress: ip,
		UserAgent: userAgent,
		Success:   success,
	}
	if user != nil {
		entry.UserID = user.ID
	}
	if err := s.store.CreateLoginLog(ctx, entry); err != nil {
		s.logger.Error("failed to write login log",
			zap.String("username", username),
			zap.Bool("success", success),
			zap.Error(err),
		)
	}
}

// Logout deletes the session paired with the presented token.
func (s *AuthService) Logout(ctx context.Context, tokenID string) error {
	return s.sessions.Delete(ctx, tokenID)
}

// CurrentUser loads the authenticated identity.
func (s *AuthService) CurrentUser(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return user, nil
}

// RecoverPassword resets the password when the security answer matches.
// The comparison is case-insensitive.
func (s *AuthService) RecoverPassword(ctx context.Context, req *RecoverRequest) error {
	user, err := s.store.GetUserByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to load user: %w", err)
	}
	if user.SecurityAnswerHash == "" {
		return ErrNoSecurityAnswerOnFile
	}
	if !s.store.ValidateSecurityAnswer(user, req.SecurityAnswer) {
		return ErrInvalidSecurityAnswer
	}

	if _, err := s.store.UpdateUser(ctx, user.ID, model.UserUpdate{Password: &req.NewPassword}); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

// VerifyUser marks an account verified. Safe to call repeatedly.
func (s *AuthService) VerifyUser(ctx context.Context, userID string) error {
	if err := s.store.VerifyUser(ctx, userID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to verify user: %w", err)
	}
	return nil
}

// ListLoginLogs returns the newest audit entries; admin-only at the route
// layer.
func (s *AuthService) ListLoginLogs(ctx context.Context, limit int) ([]model.LoginLog, error) {
	return s.store.ListLoginLogs(ctx, limit)
}
