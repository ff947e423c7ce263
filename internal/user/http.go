package user

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AutoHub/AutoHub/internal/common/apperr"
	"github.com/AutoHub/AutoHub/internal/common/auth"
	"github.com/AutoHub/AutoHub/internal/common/config"
	"github.com/AutoHub/AutoHub/internal/common/server"
)

// HTTPHandler 注册/登录相关路由。
type HTTPHandler struct {
	svc     *Service
	authCfg config.AuthConfig
	baseURL string
}

func NewHTTPHandler(svc *Service, cfg *config.Config) *HTTPHandler {
	return &HTTPHandler{
		svc:     svc,
		authCfg: cfg.Auth,
		baseURL: cfg.Server.BaseURL,
	}
}

func (h *HTTPHandler) RegisterRoutes(r *gin.Engine) {
	authGroup := r.Group("/api/auth")
	{
		authGroup.POST("/register", h.register)
		authGroup.GET("/register/complete", h.completeRegistration)
		authGroup.POST("/login", h.login)
	}
	r.GET("/api/profile", server.RequireScope(auth.ScopeRead), h.profile)
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *HTTPHandler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		server.AbortWithError(c, apperr.BadRequest("invalid request body"))
		return
	}

	link, err := h.svc.Register(c.Request.Context(), req.Email, req.Password, h.baseURL)
	if err != nil {
		server.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"completeLink": link})
}

// completeRegistration 用确认链接里的注册 token 完成注册。
func (h *HTTPHandler) completeRegistration(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		server.AbortWithError(c, apperr.BadRequest("no token provided"))
		return
	}

	claims, err := auth.ParseToken(h.authCfg, token)
	if err != nil {
		server.AbortWithError(c, apperr.New(http.StatusForbidden, "invalid or expired token"))
		return
	}
	if !auth.HasScope(claims, auth.ScopeRegister) {
		server.AbortWithError(c, apperr.Forbidden("permission denied"))
		return
	}

	if err := h.svc.CompleteRegistration(c.Request.Context(), claims.Subject, claims.Email); err != nil {
		server.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "registration complete"})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *HTTPHandler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		server.AbortWithError(c, apperr.BadRequest("invalid request body"))
		return
	}

	result, err := h.svc.Login(c.Request.Context(), req.Email, req.Password, c.ClientIP())
	if err != nil {
		server.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *HTTPHandler) profile(c *gin.Context) {
	ai, ok := server.CurrentUser(c)
	if !ok {
		server.AbortWithError(c, apperr.New(http.StatusUnauthorized, "missing auth context"))
		return
	}
	u, err := h.svc.GetRegisteredUser(c.Request.Context(), ai.UserID)
	if err != nil {
		server.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"userId": u.ID,
		"email":  u.Email,
		"role":   u.Role,
	})
}
