package vehicle

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AutoHub/AutoHub/internal/common/apperr"
	"github.com/AutoHub/AutoHub/internal/common/auth"
	"github.com/AutoHub/AutoHub/internal/common/server"
)

const maxAttachmentBytes = 16 << 20 // 16 MiB

// HTTPHandler 车辆、共享、附件与导入导出路由。
type HTTPHandler struct {
	svc      *Service
	transfer *Transfer
}

func NewHTTPHandler(svc *Service, transfer *Transfer) *HTTPHandler {
	return &HTTPHandler{svc: svc, transfer: transfer}
}

func (h *HTTPHandler) RegisterRoutes(r *gin.Engine) {
	read := server.RequireScope(auth.ScopeRead)
	write := server.RequireScope(auth.ScopeWrite)

	vehicles := r.Group("/api/vehicles")
	{
		vehicles.GET("", read, h.listVehicles)
		vehicles.POST("", write, h.createVehicle)
		vehicles.GET("/:vehicleId", read, h.getVehicle)
		vehicles.PUT("/:vehicleId", write, h.updateVehicle)
		vehicles.DELETE("/:vehicleId", write, h.deleteVehicle)

		vehicles.GET("/:vehicleId/share", read, h.listSharedUsers)
		vehicles.POST("/:vehicleId/share", write, h.shareVehicle)
		vehicles.DELETE("/:vehicleId/share/:userId", write, h.unshareVehicle)

		vehicles.GET("/:vehicleId/attachments", read, h.listAttachments)
		vehicles.POST("/:vehicleId/attachments", write, h.uploadAttachment)
		vehicles.GET("/:vehicleId/attachments/:attachmentId", read, h.downloadAttachment)
		vehicles.DELETE("/:vehicleId/attachments/:attachmentId", write, h.deleteAttachment)
	}

	users := r.Group("/api/users")
	{
		users.GET("/:userId/export", read, h.exportData)
		users.POST("/:userId/import", write, h.importData)
	}
}

func (h *HTTPHandler) listVehicles(c *gin.Context) {
	ai, ok := server.CurrentUser(c)
	if !ok {
		server.AbortWithError(c, apperr.New(http.StatusUnauthorized, "missing auth context"))
		return
	}

	var (
		vehicles []Vehicle
		err      error
	)
	if c.Query("shared") == "true" {
		vehicles, err = h.svc.FindSharedVehicles(c.Request.Context(), ai.UserID)
	} else {
		vehicles, err = h.svc.FindVehicles(c.Request.Context(), ai.UserID)
	}
	if err != nil {
		server.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, vehicles)
}

func (h *HTTPHandler) createVehicle(c *gin.Context) {
	ai, _ := server.CurrentUser(c)
	var req CreateOrUpdateVehicleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		server.AbortWithError(c, apperr.BadRequest("invalid request body"))
		return
	}

	v, err := h.svc.CreateVehicle(c.Request.Context(), ai.UserID, ai.Email, req)
	if err != nil {
		server.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, v)
}

func (h *HTTPHandler) getVehicle(c *gin.Context) {
	ai, _ := server.CurrentUser(c)
	v, err := h.svc.FindVehicle(c.Request.Context(), c.Param("vehicleId"), ai.UserID)
	if err != nil {
		server.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *HTTPHandler) updateVehicle(c *gin.Context) {
	ai, _ := server.CurrentUser(c)
	var req CreateOrUpdateVehicleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		server.AbortWithError(c, apperr.BadRequest("invalid request body"))
		return
	}

	v, err := h.svc.UpdateVehicle(c.Request.Context(), c.Param("vehicleId"), ai.UserID, ai.Email, req)
	if err != nil {
		server.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *HTTPHandler) deleteVehicle(c *gin.Context) {
	ai, _ := server.CurrentUser(c)
	if err := h.svc.RemoveVehicle(c.Request.Context(), c.Param("vehicleId"), ai.UserID, ai.Email); err != nil {
		server.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "vehicle deleted"})
}

// --- 共享 ---

type shareRequest struct {
	UserID string `json:"userId"`
}

func (h *HTTPHandler) shareVehicle(c *gin.Context) {
	ai, _ := server.CurrentUser(c)
	var req shareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		server.AbortWithError(c, apperr.BadRequest("invalid request body"))
		return
	}

	share, err := h.svc.ShareVehicle(c.Request.Context(), c.Param("vehicleId"), ai.UserID, ai.Email, req.UserID)
	if err != nil {
		server.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, share)
}

func (h *HTTPHandler) unshareVehicle(c *gin.Context) {
	ai, _ := server.CurrentUser(c)
	err := h.svc.UnshareVehicle(c.Request.Context(), c.Param("vehicleId"), ai.UserID, c.Param("userId"))
	if err != nil {
		server.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "share removed"})
}

func (h *HTTPHandler) listSharedUsers(c *gin.Context) {
	ai, _ := server.CurrentUser(c)
	users, err := h.svc.FindSharedUsers(c.Request.Context(), c.Param("vehicleId"), ai.UserID)
	if err != nil {
		server.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// --- 附件 ---

func (h *HTTPHandler) uploadAttachment(c *gin.Context) {
	ai, _ := server.CurrentUser(c)

	file, err := c.FormFile("file")
	if err != nil {
		server.AbortWithError(c, apperr.BadRequest("no file provided"))
		return
	}
	if file.Size > maxAttachmentBytes {
		server.AbortWithError(c, apperr.BadRequest("file too large"))
		return
	}

	f, err := file.Open()
	if err != nil {
		server.AbortWithError(c, apperr.Internal("failed to read upload: %v", err))
		return
	}
	defer f.Close()
	contents, err := io.ReadAll(io.LimitReader(f, maxAttachmentBytes+1))
	if err != nil {
		server.AbortWithError(c, apperr.Internal("failed to read upload: %v", err))
		return
	}
	if len(contents) > maxAttachmentBytes {
		server.AbortWithError(c, apperr.BadRequest("file too large"))
		return
	}

	a, err := h.svc.CreateAttachment(c.Request.Context(), c.Param("vehicleId"), ai.UserID,
		file.Filename, file.Header.Get("Content-Type"), contents)
	if err != nil {
		server.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

func (h *HTTPHandler) listAttachments(c *gin.Context) {
	ai, _ := server.CurrentUser(c)
	attachments, err := h.svc.FindAttachments(c.Request.Context(), c.Param("vehicleId"), ai.UserID)
	if err != nil {
		server.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, attachments)
}

func (h *HTTPHandler) downloadAttachment(c *gin.Context) {
	ai, _ := server.CurrentUser(c)
	a, contents, err := h.svc.FindAttachmentWithFile(c.Request.Context(),
		c.Param("attachmentId"), c.Param("vehicleId"), ai.UserID)
	if err != nil {
		server.AbortWithError(c, err)
		return
	}

	contentType := a.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Disposition", `attachment; filename="`+a.Filename+`"`)
	c.Data(http.StatusOK, contentType, contents)
}

func (h *HTTPHandler) deleteAttachment(c *gin.Context) {
	ai, _ := server.CurrentUser(c)
	err := h.svc.RemoveAttachment(c.Request.Context(), c.Param("attachmentId"), c.Param("vehicleId"), ai.UserID)
	if err != nil {
		server.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "attachment deleted"})
}

// --- 导入导出 ---

func (h *HTTPHandler) exportData(c *gin.Context) {
	if _, ok := server.RequireSelfParam(c, "userId"); !ok {
		return
	}
	data, err := h.transfer.Export(c.Request.Context(), c.Param("userId"))
	if err != nil {
		server.AbortWithError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="autohub-export.json"`)
	c.JSON(http.StatusOK, data)
}

func (h *HTTPHandler) importData(c *gin.Context) {
	if _, ok := server.RequireSelfParam(c, "userId"); !ok {
		return
	}
	var data ExportData
	if err := c.ShouldBindJSON(&data); err != nil {
		server.AbortWithError(c, apperr.BadRequest("invalid export data"))
		return
	}
	if err := h.transfer.Import(c.Request.Context(), c.Param("userId"), &data); err != nil {
		server.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "import complete"})
}
