package audit

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/AutoHub/AutoHub/internal/common/auth"
	"github.com/AutoHub/AutoHub/internal/common/server"
)

// HTTPHandler 变更记录与应用日志查询路由。
type HTTPHandler struct {
	svc *Service
}

func NewHTTPHandler(svc *Service) *HTTPHandler {
	return &HTTPHandler{svc: svc}
}

func (h *HTTPHandler) RegisterRoutes(r *gin.Engine) {
	read := server.RequireScope(auth.ScopeRead)
	admin := server.RequireScope(auth.ScopeAdmin)

	r.GET("/api/users/:userId/changelog", read, h.userChangelog)
	r.GET("/api/vehicles/:vehicleId/changelog", read, h.vehicleChangelog)
	r.GET("/api/admin/logs", admin, h.appLogs)
}

func (h *HTTPHandler) userChangelog(c *gin.Context) {
	if _, ok := server.RequireSelfParam(c, "userId"); !ok {
		return
	}
	bundle, err := h.svc.FindChangelog(c.Request.Context(), c.Param("userId"))
	if err != nil {
		server.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, bundle)
}

func (h *HTTPHandler) vehicleChangelog(c *gin.Context) {
	ai, _ := server.CurrentUser(c)
	entries, err := h.svc.FindVehicleChangelog(c.Request.Context(), c.Param("vehicleId"), ai.UserID)
	if err != nil {
		server.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (h *HTTPHandler) appLogs(c *gin.Context) {
	limit := 100
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	logs, err := h.svc.FindAppLogs(c.Request.Context(), limit)
	if err != nil {
		server.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, logs)
}
