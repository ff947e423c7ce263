package server

import (
	"context"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"

	"github.com/AutoHub/AutoHub/internal/common/auth"
	"github.com/AutoHub/AutoHub/internal/common/config"
	"github.com/AutoHub/AutoHub/internal/common/logger"
	"github.com/AutoHub/AutoHub/internal/common/middleware"
)

type authContextKey struct{}

// AuthInfo 从 JWT 中解析出的用户信息，写入请求 ctx 供业务侧使用。
type AuthInfo struct {
	UserID string
	Email  string
	Scopes []string
}

// AuthFromContext 从 ctx 中取出鉴权信息。
func AuthFromContext(ctx context.Context) (AuthInfo, bool) {
	v := ctx.Value(authContextKey{})
	if v == nil {
		return AuthInfo{}, false
	}
	ai, ok := v.(AuthInfo)
	return ai, ok
}

// Recovery 防止 panic 把进程打崩，并记录栈信息。
func Recovery(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				if log != nil {
					log.Errorf("panic in %s %s err=%v stack=%s", c.Request.Method, c.Request.URL.Path, r, string(debug.Stack()))
				}
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			}
		}()
		c.Next()
	}
}

// AppLogSink 接收访问日志事件。由 audit.Publisher 在装配处实现，
// 这里只依赖接口以避免包环。
type AppLogSink interface {
	HTTPRequestLogged(userID, event string, durationMs float64, status int, ip string)
}

// AccessLog 记录每个请求的耗时/状态，并把一条应用日志事件交给 sink，
// 由审计订阅方落库（带保留上限）。
func AccessLog(log logger.Logger, sink AppLogSink) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		cost := time.Since(start)
		status := c.Writer.Status()

		if log != nil {
			fields := map[string]interface{}{
				"method": c.Request.Method,
				"path":   c.Request.URL.Path,
				"status": status,
				"cost":   cost.String(),
			}
			if status >= http.StatusBadRequest {
				log.WithFields(fields).Warn("http request failed")
			} else {
				log.WithFields(fields).Info("http request ok")
			}
		}

		if sink != nil {
			userID := ""
			if ai, ok := AuthFromContext(c.Request.Context()); ok {
				userID = ai.UserID
			}
			sink.HTTPRequestLogged(userID, c.Request.Method+" "+c.FullPath(),
				float64(cost.Microseconds())/1000.0, status, c.ClientIP())
		}
	}
}

// Tracing 基于 OpenTracing 的最小 server 中间件：
// 从请求头提取上游 span context，创建 server span 并注入 ctx。
func Tracing(serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tracer := opentracing.GlobalTracer()

		var parent opentracing.SpanContext
		if sc, err := tracer.Extract(opentracing.HTTPHeaders, opentracing.HTTPHeadersCarrier(c.Request.Header)); err == nil {
			parent = sc
		}

		operation := c.Request.Method + " " + c.FullPath()
		var span opentracing.Span
		if parent != nil {
			span = tracer.StartSpan(operation, ext.RPCServerOption(parent))
		} else {
			span = tracer.StartSpan(operation)
		}
		defer span.Finish()

		ext.SpanKindRPCServer.Set(span)
		ext.Component.Set(span, "http")
		ext.HTTPMethod.Set(span, c.Request.Method)
		ext.HTTPUrl.Set(span, c.Request.URL.Path)
		if serviceName != "" {
			span.SetTag("service", serviceName)
		}

		c.Request = c.Request.WithContext(opentracing.ContextWithSpan(c.Request.Context(), span))
		c.Next()

		ext.HTTPStatusCode.Set(span, uint16(c.Writer.Status()))
	}
}

// RateLimit 令牌桶限流。limit <= 0 时不启用。
func RateLimit(limit int64) gin.HandlerFunc {
	if limit <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	bucket := middleware.NewTokenBucket(limit, limit)
	return func(c *gin.Context) {
		if !bucket.Allow(c.Request.Context()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}

// JWTAuth 校验 `Authorization: Bearer <token>` 并把 AuthInfo 写入 ctx。
// 免鉴权路径按前缀匹配 cfg.PublicPaths。
func JWTAuth(cfg config.AuthConfig, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cfg.Enabled || isPublicPath(cfg.PublicPaths, c.Request.URL.Path) {
			c.Next()
			return
		}
		if strings.TrimSpace(cfg.JWTSecret) == "" {
			if log != nil {
				log.Warn("auth enabled but jwt_secret is empty")
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "auth not configured"})
			return
		}

		raw := strings.TrimSpace(c.GetHeader("Authorization"))
		if strings.HasPrefix(strings.ToLower(raw), "bearer ") {
			raw = strings.TrimSpace(raw[len("bearer "):])
		}
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			return
		}

		claims, err := auth.ParseToken(cfg, raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		ctx := context.WithValue(c.Request.Context(), authContextKey{}, AuthInfo{
			UserID: claims.Subject,
			Email:  claims.Email,
			Scopes: claims.Scopes,
		})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireScope 要求当前 token 携带指定 scope，否则 403。
func RequireScope(scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ai, ok := AuthFromContext(c.Request.Context())
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing auth context"})
			return
		}
		for _, s := range ai.Scopes {
			if strings.TrimSpace(s) == scope {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "permission denied"})
	}
}

func isPublicPath(public []string, path string) bool {
	if path == "" || len(public) == 0 {
		return false
	}
	for _, p := range public {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}
