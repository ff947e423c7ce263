package user

import (
	"context"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/AutoHub/AutoHub/internal/audit"
	"github.com/AutoHub/AutoHub/internal/common/apperr"
	"github.com/AutoHub/AutoHub/internal/common/auth"
	"github.com/AutoHub/AutoHub/internal/common/config"
	"github.com/AutoHub/AutoHub/internal/common/logger"
)

type fakeMailer struct {
	sentTo   []string
	lastLink string
	fail     bool
}

func (m *fakeMailer) SendRegistrationEmail(_ context.Context, to, completeLink string) error {
	if m.fail {
		return context.DeadlineExceeded
	}
	m.sentTo = append(m.sentTo, to)
	m.lastLink = completeLink
	return nil
}

func newTestUserService(t *testing.T) (*Service, *fakeMailer) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&User{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	db.Exec("DELETE FROM users")

	log, err := logger.NewLogger("error", "text", "stdout", "")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	cfg := &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:           "test-secret",
			Issuer:              "autohub-test",
			Audience:            "autohub",
			AccessTokenTTLHours: 1,
			RegisterTTLMinutes:  10,
		},
	}
	mailer := &fakeMailer{}
	svc := NewService(NewRepo(db), cfg, mailer, audit.NewPublisher(nil), log)
	return svc, mailer
}

func TestRegistrationFlow(t *testing.T) {
	svc, mailer := newTestUserService(t)
	ctx := context.Background()

	link, err := svc.Register(ctx, "Driver@Example.com", "p@ssw0rd", "http://localhost:8080")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if len(mailer.sentTo) != 1 || mailer.sentTo[0] != "driver@example.com" {
		t.Fatalf("expected registration mail to lowercased address, got %v", mailer.sentTo)
	}
	if !strings.HasPrefix(link, "http://localhost:8080/api/auth/register/complete?token=") {
		t.Fatalf("unexpected complete link: %s", link)
	}

	// 未完成注册不能登录
	if _, err := svc.Login(ctx, "driver@example.com", "p@ssw0rd", ""); err == nil {
		t.Fatalf("expected login before completion to fail")
	}

	// 注册 token 只带 register scope
	token := strings.TrimPrefix(link, "http://localhost:8080/api/auth/register/complete?token=")
	claims, err := auth.ParseToken(svc.authCfg, token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if !auth.HasScope(claims, auth.ScopeRegister) || auth.HasScope(claims, auth.ScopeWrite) {
		t.Fatalf("unexpected registration token scopes: %v", claims.Scopes)
	}

	if err := svc.CompleteRegistration(ctx, claims.Subject, claims.Email); err != nil {
		t.Fatalf("CompleteRegistration: %v", err)
	}
	// 重复确认被拒绝
	if err := svc.CompleteRegistration(ctx, claims.Subject, claims.Email); apperr.StatusCode(err) != 400 {
		t.Fatalf("expected duplicate completion to fail with 400, got %v", err)
	}

	result, err := svc.Login(ctx, "driver@example.com", "p@ssw0rd", "203.0.113.9")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if result.Role != auth.RoleUser || result.Token == "" {
		t.Fatalf("unexpected login result: %+v", result)
	}

	loginClaims, err := auth.ParseToken(svc.authCfg, result.Token)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if !auth.HasScope(loginClaims, auth.ScopeRead) || !auth.HasScope(loginClaims, auth.ScopeWrite) {
		t.Fatalf("user token missing scopes: %v", loginClaims.Scopes)
	}
	if auth.HasScope(loginClaims, auth.ScopeAdmin) {
		t.Fatalf("user token must not carry admin scope")
	}
}

func TestRegisterRejectsRegisteredEmail(t *testing.T) {
	svc, _ := newTestUserService(t)
	ctx := context.Background()

	link, err := svc.Register(ctx, "a@example.com", "secret", "http://localhost")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	token := link[strings.Index(link, "token=")+len("token="):]
	claims, err := auth.ParseToken(svc.authCfg, token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if err := svc.CompleteRegistration(ctx, claims.Subject, claims.Email); err != nil {
		t.Fatalf("CompleteRegistration: %v", err)
	}

	if _, err := svc.Register(ctx, "a@example.com", "secret", "http://localhost"); apperr.StatusCode(err) != 400 {
		t.Fatalf("expected re-registration to fail with 400, got %v", err)
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	svc, _ := newTestUserService(t)
	ctx := context.Background()

	link, err := svc.Register(ctx, "b@example.com", "right", "http://localhost")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	token := link[strings.Index(link, "token=")+len("token="):]
	claims, _ := auth.ParseToken(svc.authCfg, token)
	if err := svc.CompleteRegistration(ctx, claims.Subject, claims.Email); err != nil {
		t.Fatalf("CompleteRegistration: %v", err)
	}

	if _, err := svc.Login(ctx, "b@example.com", "wrong", ""); apperr.StatusCode(err) != 400 {
		t.Fatalf("expected wrong password to fail with 400, got %v", err)
	}
}

func TestRegisterFailsWhenMailerFails(t *testing.T) {
	svc, mailer := newTestUserService(t)
	mailer.fail = true

	if _, err := svc.Register(context.Background(), "c@example.com", "secret", "http://localhost"); err == nil {
		t.Fatalf("expected register to surface mail failure")
	}
}
