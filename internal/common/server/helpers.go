package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AutoHub/AutoHub/internal/common/apperr"
	"github.com/AutoHub/AutoHub/internal/common/auth"
)

// AbortWithError 按 apperr 状态码输出统一错误结构。
func AbortWithError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(apperr.StatusCode(err), gin.H{"error": err.Error()})
}

// CurrentUser 取当前请求的鉴权信息，没有则返回 false。
func CurrentUser(c *gin.Context) (AuthInfo, bool) {
	return AuthFromContext(c.Request.Context())
}

// RequireSelfParam 校验路径参数里的用户 id 是当前用户本人（或管理员）。
// 校验失败时已写入响应，调用方直接 return 即可。
func RequireSelfParam(c *gin.Context, param string) (AuthInfo, bool) {
	ai, ok := CurrentUser(c)
	if !ok {
		AbortWithError(c, apperr.New(http.StatusUnauthorized, "missing auth context"))
		return ai, false
	}
	if c.Param(param) != ai.UserID && !scopeIn(ai.Scopes, auth.ScopeAdmin) {
		AbortWithError(c, apperr.Forbidden("permission denied"))
		return ai, false
	}
	return ai, true
}

func scopeIn(scopes []string, want string) bool {
	for _, s := range scopes {
		if s == want {
			return true
		}
	}
	return false
}
