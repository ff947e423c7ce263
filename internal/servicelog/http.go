package servicelog

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AutoHub/AutoHub/internal/common/apperr"
	"github.com/AutoHub/AutoHub/internal/common/auth"
	"github.com/AutoHub/AutoHub/internal/common/server"
)

// HTTPHandler 保养/维修记录与费用统计路由。
type HTTPHandler struct {
	svc *Service
}

func NewHTTPHandler(svc *Service) *HTTPHandler {
	return &HTTPHandler{svc: svc}
}

func (h *HTTPHandler) RegisterRoutes(r *gin.Engine) {
	read := server.RequireScope(auth.ScopeRead)
	write := server.RequireScope(auth.ScopeWrite)

	vehicles := r.Group("/api/vehicles/:vehicleId")
	{
		vehicles.GET("/scheduledLogs", read, h.listScheduledLogs)
		vehicles.POST("/scheduledLogs", write, h.createScheduledLog)
		vehicles.PUT("/scheduledLogs", write, h.updateScheduledLogs)
		vehicles.DELETE("/scheduledLogs", write, h.deleteScheduledLogs)

		vehicles.GET("/repairLogs", read, h.listRepairLogs)
		vehicles.POST("/repairLogs", write, h.createRepairLog)
		vehicles.PUT("/repairLogs", write, h.updateRepairLogs)
		vehicles.DELETE("/repairLogs", write, h.deleteRepairLogs)

		vehicles.GET("/analytics/costs", read, h.vehicleCosts)
		vehicles.GET("/analytics/usage", read, h.typeUsage)
	}
}

type deleteLogsRequest struct {
	IDs []string `json:"ids"`
}

func (h *HTTPHandler) createScheduledLog(c *gin.Context) {
	ai, _ := server.CurrentUser(c)
	var req CreateScheduledLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		server.AbortWithError(c, apperr.BadRequest("invalid request body"))
		return
	}

	dto, err := h.svc.CreateScheduledLog(c.Request.Context(), ai.UserID, ai.Email, c.Param("vehicleId"), req)
	if err != nil {
		server.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto)
}

func (h *HTTPHandler) updateScheduledLogs(c *gin.Context) {
	ai, _ := server.CurrentUser(c)
	var reqs []UpdateScheduledLogRequest
	if err := c.ShouldBindJSON(&reqs); err != nil {
		server.AbortWithError(c, apperr.BadRequest("invalid request body"))
		return
	}

	dtos, err := h.svc.UpdateScheduledLogs(c.Request.Context(), ai.UserID, ai.Email, c.Param("vehicleId"), reqs)
	if err != nil {
		server.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, dtos)
}

func (h *HTTPHandler) listScheduledLogs(c *gin.Context) {
	ai, _ := server.CurrentUser(c)
	dtos, err := h.svc.FindScheduledLogs(c.Request.Context(), ai.UserID, c.Param("vehicleId"))
	if err != nil {
		server.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, dtos)
}

func (h *HTTPHandler) deleteScheduledLogs(c *gin.Context) {
	ai, _ := server.CurrentUser(c)
	var req deleteLogsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		server.AbortWithError(c, apperr.BadRequest("invalid request body"))
		return
	}

	if err := h.svc.DeleteScheduledLogs(c.Request.Context(), ai.UserID, ai.Email, c.Param("vehicleId"), req.IDs); err != nil {
		server.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "scheduled logs deleted"})
}

func (h *HTTPHandler) createRepairLog(c *gin.Context) {
	ai, _ := server.CurrentUser(c)
	var req CreateRepairLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		server.AbortWithError(c, apperr.BadRequest("invalid request body"))
		return
	}

	l, err := h.svc.CreateRepairLog(c.Request.Context(), ai.UserID, ai.Email, c.Param("vehicleId"), req)
	if err != nil {
		server.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, l)
}

func (h *HTTPHandler) updateRepairLogs(c *gin.Context) {
	ai, _ := server.CurrentUser(c)
	var reqs []UpdateRepairLogRequest
	if err := c.ShouldBindJSON(&reqs); err != nil {
		server.AbortWithError(c, apperr.BadRequest("invalid request body"))
		return
	}

	logs, err := h.svc.UpdateRepairLogs(c.Request.Context(), ai.UserID, c.Param("vehicleId"), reqs)
	if err != nil {
		server.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, logs)
}

func (h *HTTPHandler) listRepairLogs(c *gin.Context) {
	ai, _ := server.CurrentUser(c)
	logs, err := h.svc.FindRepairLogs(c.Request.Context(), ai.UserID, c.Param("vehicleId"))
	if err != nil {
		server.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, logs)
}

func (h *HTTPHandler) deleteRepairLogs(c *gin.Context) {
	ai, _ := server.CurrentUser(c)
	var req deleteLogsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		server.AbortWithError(c, apperr.BadRequest("invalid request body"))
		return
	}

	if err := h.svc.DeleteRepairLogs(c.Request.Context(), ai.UserID, ai.Email, c.Param("vehicleId"), req.IDs); err != nil {
		server.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "repair logs deleted"})
}

func (h *HTTPHandler) vehicleCosts(c *gin.Context) {
	ai, _ := server.CurrentUser(c)
	costs, err := h.svc.AggregateVehicleCosts(c.Request.Context(), ai.UserID, c.Param("vehicleId"))
	if err != nil {
		server.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, costs)
}

func (h *HTTPHandler) typeUsage(c *gin.Context) {
	ai, _ := server.CurrentUser(c)
	usage, err := h.svc.AggregateTypeUsage(c.Request.Context(), ai.UserID, c.Param("vehicleId"))
	if err != nil {
		server.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, usage)
}
