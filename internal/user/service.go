package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/AutoHub/AutoHub/internal/audit"
	"github.com/AutoHub/AutoHub/internal/common/apperr"
	"github.com/AutoHub/AutoHub/internal/common/auth"
	"github.com/AutoHub/AutoHub/internal/common/config"
	"github.com/AutoHub/AutoHub/internal/common/logger"
	"github.com/AutoHub/AutoHub/internal/common/middleware"
)

type Service struct {
	repo    *Repo
	authCfg config.AuthConfig
	mailer  Mailer
	mailCB  *middleware.CircuitBreaker
	pub     *audit.Publisher
	log     logger.Logger

	registerTTL time.Duration
	accessTTL   time.Duration
}

func NewService(repo *Repo, cfg *config.Config, mailer Mailer, pub *audit.Publisher, log logger.Logger) *Service {
	registerTTL := time.Duration(cfg.Auth.RegisterTTLMinutes) * time.Minute
	if registerTTL <= 0 {
		registerTTL = 10 * time.Minute
	}
	accessTTL := time.Duration(cfg.Auth.AccessTokenTTLHours) * time.Hour
	if accessTTL <= 0 {
		accessTTL = 24 * time.Hour
	}
	return &Service{
		repo:    repo,
		authCfg: cfg.Auth,
		mailer:  mailer,
		// 邮件服务抖动时快速失败，避免注册请求挂死在 SMTP 上
		mailCB:      middleware.NewCircuitBreaker("smtp", 5, 30*time.Second),
		pub:         pub,
		log:         log,
		registerTTL: registerTTL,
		accessTTL:   accessTTL,
	}
}

// Username 按 id 取用户邮箱，供其它模块渲染变更记录。
func (s *Service) Username(ctx context.Context, userID string) (string, error) {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", apperr.NotFound("user not found")
		}
		return "", err
	}
	return u.Email, nil
}

// Register 建档（或复用未完成注册的档案）并发送确认邮件，
// 返回确认链接。已完成注册的邮箱直接拒绝。
func (s *Service) Register(ctx context.Context, email, password, baseURL string) (string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || strings.TrimSpace(password) == "" {
		return "", apperr.BadRequest("email and password not provided")
	}

	existing, err := s.repo.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}
	if existing != nil && existing.Registered {
		return "", apperr.BadRequest("an account under this email is already registered")
	}

	u := existing
	if u == nil {
		salt, err := GenerateSaltHex()
		if err != nil {
			return "", err
		}
		hash, err := HashPassword(password, salt)
		if err != nil {
			return "", err
		}
		u = &User{
			ID:           uuid.NewString(),
			Email:        email,
			PasswordHash: hash,
			PasswordSalt: salt,
			Role:         auth.RoleUser,
		}
		if err := s.repo.Create(ctx, u); err != nil {
			return "", err
		}
	}

	token, err := auth.GenerateRegistrationToken(s.authCfg, u.ID, email, s.registerTTL)
	if err != nil {
		return "", err
	}
	completeLink := fmt.Sprintf("%s/api/auth/register/complete?token=%s", baseURL, token)

	if err := s.mailCB.Call(ctx, func() error {
		return s.mailer.SendRegistrationEmail(ctx, email, completeLink)
	}); err != nil {
		return "", apperr.Internal("failed to send registration email: %v", err)
	}
	return completeLink, nil
}

// CompleteRegistration 用注册 token 里的身份把用户置为已注册。
func (s *Service) CompleteRegistration(ctx context.Context, userID, email string) error {
	if userID == "" || email == "" {
		return apperr.BadRequest("userId or email not supplied")
	}

	u, err := s.repo.GetByEmailAndID(ctx, userID, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("user not found")
		}
		return err
	}
	if u.Registered {
		return apperr.BadRequest("user is already registered")
	}

	if err := s.repo.MarkRegistered(ctx, userID, email); err != nil {
		return err
	}
	s.pub.RegistrationCompleted(userID)
	return nil
}

// LoginResult 登录结果。
type LoginResult struct {
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Login 校验密码并签发按角色授权的 access token。
func (s *Service) Login(ctx context.Context, email, password, ipAddress string) (*LoginResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, apperr.BadRequest("email or password not supplied")
	}

	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.BadRequest("invalid email or password")
		}
		return nil, err
	}
	if !u.Registered {
		return nil, apperr.BadRequest("user not registered")
	}
	if !VerifyPassword(password, u.PasswordSalt, u.PasswordHash) {
		return nil, apperr.BadRequest("invalid email or password")
	}

	scopes := auth.ScopesForRole(u.Role)
	if scopes == nil {
		return nil, apperr.BadRequest("invalid role")
	}
	token, expiresAt, err := auth.GenerateAccessToken(s.authCfg, u.ID, u.Email, scopes, s.accessTTL)
	if err != nil {
		return nil, err
	}

	s.pub.Login(u.ID, ipAddress)
	return &LoginResult{
		UserID:    u.ID,
		Email:     u.Email,
		Role:      u.Role,
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

// GetRegisteredUser 取已完成注册的用户，供管理接口使用。
func (s *Service) GetRegisteredUser(ctx context.Context, userID string) (*User, error) {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, err
	}
	if !u.Registered {
		return nil, apperr.BadRequest("user not registered")
	}
	return u, nil
}
