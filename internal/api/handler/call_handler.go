package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"democall/backend/internal/dto"
	"democall/backend/internal/service"
	pkgerrors "democall/backend/pkg/errors"
	"democall/backend/pkg/response"
)

// CallHandler 试听课模块 HTTP 处理器
type CallHandler struct {
	callSvc service.CallService
}

// NewCallHandler 创建 CallHandler
func NewCallHandler(callSvc service.CallService) *CallHandler {
	return &CallHandler{callSvc: callSvc}
}

// Create 创建试听课排期
// POST /api/v1/calls
func (h *CallHandler) Create(c *gin.Context) {
	var req dto.CreateCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 12001, "参数校验失败")
		return
	}

	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.callSvc.Create(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleCallError(c, err)
		return
	}

	response.Created(c, result)
}

// Reschedule 改期
// PUT /api/v1/calls/:id/reschedule
func (h *CallHandler) Reschedule(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 12001, "试听课ID不能为空")
		return
	}

	var req dto.RescheduleCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 12001, "参数校验失败")
		return
	}

	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.callSvc.Reschedule(c.Request.Context(), id, &req, userID)
	if err != nil {
		h.handleCallError(c, err)
		return
	}

	response.OK(c, result)
}

// Cancel 取消
// POST /api/v1/calls/:id/cancel
func (h *CallHandler) Cancel(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 12001, "试听课ID不能为空")
		return
	}

	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.callSvc.Cancel(c.Request.Context(), id, userID)
	if err != nil {
		h.handleCallError(c, err)
		return
	}

	response.OK(c, result)
}

// List 列表（按角色可见性过滤）
// GET /api/v1/calls
func (h *CallHandler) List(c *gin.Context) {
	var req dto.CallListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 12001, "参数校验失败")
		return
	}

	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	list, total, err := h.callSvc.List(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleCallError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// Get 详情
// GET /api/v1/calls/:id
func (h *CallHandler) Get(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 12001, "试听课ID不能为空")
		return
	}

	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.callSvc.Get(c.Request.Context(), id, userID)
	if err != nil {
		h.handleCallError(c, err)
		return
	}

	response.OK(c, result)
}

// Joinable 是否处于可加入窗口
// GET /api/v1/calls/:id/joinable
func (h *CallHandler) Joinable(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 12001, "试听课ID不能为空")
		return
	}

	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.callSvc.Joinable(c.Request.Context(), id, userID)
	if err != nil {
		h.handleCallError(c, err)
		return
	}

	response.OK(c, result)
}

// ICS 下载日历邀请
// GET /api/v1/calls/:id/ics
func (h *CallHandler) ICS(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 12001, "试听课ID不能为空")
		return
	}

	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	data, err := h.callSvc.Invite(c.Request.Context(), id, userID)
	if err != nil {
		h.handleCallError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="invite.ics"`)
	c.Data(200, "text/calendar; charset=utf-8", data)
}

// handleCallError 试听课模块错误 → HTTP 状态映射
func (h *CallHandler) handleCallError(c *gin.Context, err error) {
	var vErr *service.ValidationError

	switch {
	case errors.As(err, &vErr):
		response.ValidationFailed(c, 12002, "字段校验失败", vErr.Fields)
	case errors.Is(err, service.ErrCallNotReschedulable),
		errors.Is(err, service.ErrCallNotCancellable):
		response.BadRequest(c, 12003, err.Error())
	case errors.Is(err, service.ErrActionForbidden),
		errors.Is(err, service.ErrNotCallOwner),
		errors.Is(err, service.ErrTeacherRoleRequired),
		errors.Is(err, service.ErrAssigneeNotTeacher):
		response.Forbidden(c, 12004, err.Error())
	case errors.Is(err, service.ErrCallNotFound),
		errors.Is(err, service.ErrUserNotFound):
		response.NotFound(c, 12005, err.Error())
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, 12006, err.Error())
	default:
		response.InternalError(c)
	}
}
