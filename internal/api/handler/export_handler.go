package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"democall/backend/internal/service"
	"democall/backend/pkg/response"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportCalls 导出试听课清单
// GET /api/v1/export/calls
func (h *ExportHandler) ExportCalls(c *gin.Context) {
	status := c.Query("status")

	buf, filename, err := h.exportSvc.ExportCalls(c.Request.Context(), status)
	if err != nil {
		if errors.Is(err, service.ErrExportNoCalls) {
			response.NotFound(c, 15001, err.Error())
			return
		}
		response.InternalError(c)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}
