package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/AutoHub/AutoHub/internal/common/config"
	"github.com/golang-jwt/jwt/v5"
)

// 鉴权 scope 常量，与角色的映射见 ScopesForRole。
const (
	ScopeRegister = "register"
	ScopeRead     = "autohub_read"
	ScopeWrite    = "autohub_write"
	ScopeAdmin    = "autohub_admin"
)

const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// ScopesForRole 返回角色允许的 scope 集合。
func ScopesForRole(role string) []string {
	switch role {
	case RoleAdmin:
		return []string{ScopeRead, ScopeWrite, ScopeRegister, ScopeAdmin}
	case RoleUser:
		return []string{ScopeRead, ScopeWrite, ScopeRegister}
	default:
		return nil
	}
}

type Claims struct {
	Email  string   `json:"email"`
	Scopes []string `json:"scopes"`
	jwt.RegisteredClaims
}

// GenerateAccessToken 生成 HS256 JWT access token。
func GenerateAccessToken(cfg config.AuthConfig, userID, email string, scopes []string, ttl time.Duration) (token string, expiresAt time.Time, err error) {
	if userID == "" {
		return "", time.Time{}, fmt.Errorf("userID is empty")
	}
	if cfg.JWTSecret == "" {
		return "", time.Time{}, fmt.Errorf("jwt_secret is empty")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	now := time.Now()
	expiresAt = now.Add(ttl)

	c := Claims{
		Email:  email,
		Scopes: scopes,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    cfg.Issuer,
			Audience:  audience(cfg.Audience),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now.Add(-time.Minute)),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := t.SignedString([]byte(cfg.JWTSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// GenerateRegistrationToken 生成仅携带 register scope 的短期 token，
// 用于注册确认链接。
func GenerateRegistrationToken(cfg config.AuthConfig, userID, email string, ttl time.Duration) (string, error) {
	token, _, err := GenerateAccessToken(cfg, userID, email, []string{ScopeRegister}, ttl)
	return token, err
}

// ParseToken 校验签名与 iss/aud，返回解析后的 Claims。
func ParseToken(cfg config.AuthConfig, tokenStr string) (*Claims, error) {
	tokenStr = strings.TrimSpace(tokenStr)
	if tokenStr == "" {
		return nil, fmt.Errorf("token is empty")
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %s", t.Method.Alg())
		}
		return []byte(cfg.JWTSecret), nil
	}, jwt.WithLeeway(30*time.Second))
	if err != nil || parsed == nil || !parsed.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	if cfg.Issuer != "" && claims.Issuer != cfg.Issuer {
		return nil, fmt.Errorf("invalid issuer")
	}
	if cfg.Audience != "" && !audienceContains(claims.Audience, cfg.Audience) {
		return nil, fmt.Errorf("invalid audience")
	}
	return claims, nil
}

// HasScope 判断 claims 是否携带指定 scope。
func HasScope(claims *Claims, scope string) bool {
	if claims == nil || scope == "" {
		return false
	}
	for _, s := range claims.Scopes {
		if strings.TrimSpace(s) == scope {
			return true
		}
	}
	return false
}

func audience(aud string) jwt.ClaimStrings {
	if aud == "" {
		return nil
	}
	return jwt.ClaimStrings{aud}
}

func audienceContains(aud jwt.ClaimStrings, want string) bool {
	want = strings.TrimSpace(want)
	if want == "" || len(aud) == 0 {
		return false
	}
	for _, v := range aud {
		if strings.TrimSpace(v) == want {
			return true
		}
	}
	return false
}
