package maintenance

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AutoHub/AutoHub/internal/common/apperr"
	"github.com/AutoHub/AutoHub/internal/common/auth"
	"github.com/AutoHub/AutoHub/internal/common/server"
)

// HTTPHandler 保养类别、保养实例与待保养清单路由。
type HTTPHandler struct {
	svc *Service
}

func NewHTTPHandler(svc *Service) *HTTPHandler {
	return &HTTPHandler{svc: svc}
}

func (h *HTTPHandler) RegisterRoutes(r *gin.Engine) {
	read := server.RequireScope(auth.ScopeRead)
	write := server.RequireScope(auth.ScopeWrite)

	types := r.Group("/api/scheduledServiceTypes")
	{
		types.GET("", read, h.listTypes)
		types.POST("", write, h.createType)
		types.PUT("/:typeId", write, h.updateType)
		types.DELETE("/:typeId", write, h.deleteType)
	}

	vehicles := r.Group("/api/vehicles/:vehicleId")
	{
		vehicles.GET("/scheduledServiceInstances", read, h.listInstances)
		vehicles.POST("/scheduledServiceInstances", write, h.applyTypes)
		vehicles.PUT("/scheduledServiceInstances/:instanceId", write, h.updateInstance)
		vehicles.DELETE("/scheduledServiceInstances/:instanceId", write, h.deleteInstance)
	}

	users := r.Group("/api/users/:userId")
	{
		users.GET("/upcomingMaintenance", read, h.userUpcomingMaintenance)
		users.GET("/vehicles/:vehicleId/upcomingMaintenance", read, h.vehicleUpcomingMaintenance)
	}
}

type typeRequest struct {
	Name string `json:"name"`
}

func (h *HTTPHandler) createType(c *gin.Context) {
	ai, _ := server.CurrentUser(c)
	var req typeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		server.AbortWithError(c, apperr.BadRequest("invalid request body"))
		return
	}

	t, err := h.svc.CreateServiceType(c.Request.Context(), ai.UserID, req.Name)
	if err != nil {
		server.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

func (h *HTTPHandler) updateType(c *gin.Context) {
	ai, _ := server.CurrentUser(c)
	var req typeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		server.AbortWithError(c, apperr.BadRequest("invalid request body"))
		return
	}

	t, err := h.svc.UpdateServiceType(c.Request.Context(), ai.UserID, c.Param("typeId"), req.Name)
	if err != nil {
		server.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *HTTPHandler) deleteType(c *gin.Context) {
	ai, _ := server.CurrentUser(c)
	if err := h.svc.DeleteServiceType(c.Request.Context(), ai.UserID, c.Param("typeId")); err != nil {
		server.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "scheduled service type deleted"})
}

func (h *HTTPHandler) listTypes(c *gin.Context) {
	ai, _ := server.CurrentUser(c)
	types, err := h.svc.ListServiceTypes(c.Request.Context(), ai.UserID)
	if err != nil {
		server.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, types)
}

func (h *HTTPHandler) applyTypes(c *gin.Context) {
	ai, _ := server.CurrentUser(c)
	var reqs []ApplyRequest
	if err := c.ShouldBindJSON(&reqs); err != nil {
		server.AbortWithError(c, apperr.BadRequest("invalid request body"))
		return
	}

	instances, err := h.svc.ApplyServiceTypes(c.Request.Context(), ai.UserID, ai.Email, c.Param("vehicleId"), reqs)
	if err != nil {
		server.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, instances)
}

type updateInstanceRequest struct {
	MileInterval int      `json:"mileInterval"`
	TimeInterval int      `json:"timeInterval"`
	TimeUnits    TimeUnit `json:"timeUnits"`
}

func (h *HTTPHandler) updateInstance(c *gin.Context) {
	ai, _ := server.CurrentUser(c)
	var req updateInstanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		server.AbortWithError(c, apperr.BadRequest("invalid request body"))
		return
	}

	i, err := h.svc.UpdateServiceInstance(c.Request.Context(), ai.UserID, c.Param("vehicleId"),
		c.Param("instanceId"), req.MileInterval, req.TimeInterval, req.TimeUnits)
	if err != nil {
		server.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, i)
}

func (h *HTTPHandler) deleteInstance(c *gin.Context) {
	ai, _ := server.CurrentUser(c)
	err := h.svc.DeleteServiceInstance(c.Request.Context(), ai.UserID, ai.Email,
		c.Param("vehicleId"), c.Param("instanceId"))
	if err != nil {
		server.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "scheduled service instance deleted"})
}

func (h *HTTPHandler) listInstances(c *gin.Context) {
	ai, _ := server.CurrentUser(c)
	instances, err := h.svc.ListServiceInstances(c.Request.Context(), ai.UserID, c.Param("vehicleId"))
	if err != nil {
		server.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, instances)
}

func (h *HTTPHandler) userUpcomingMaintenance(c *gin.Context) {
	if _, ok := server.RequireSelfParam(c, "userId"); !ok {
		return
	}
	entries, err := h.svc.FindUpcomingMaintenance(c.Request.Context(), c.Param("userId"), "")
	if err != nil {
		server.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (h *HTTPHandler) vehicleUpcomingMaintenance(c *gin.Context) {
	if _, ok := server.RequireSelfParam(c, "userId"); !ok {
		return
	}
	entries, err := h.svc.FindUpcomingMaintenance(c.Request.Context(), c.Param("userId"), c.Param("vehicleId"))
	if err != nil {
		server.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}
