package dto

import (
	"time"

	"democall/backend/internal/model"
)

// ── 试听课模块 DTO ──

// DocumentPayload 附件描述（由文档服务预先上传后带入）
type DocumentPayload struct {
	Name   string  `json:"name"    binding:"required"`
	URL    string  `json:"url"     binding:"required"`
	FileID *string `json:"file_id" binding:"omitempty"`
}

// CreateCallRequest 创建试听课请求
type CreateCallRequest struct {
	ClassType       string            `json:"class_type"       binding:"required"`
	MeetingType     string            `json:"meeting_type"     binding:"required,oneof=zoom external"`
	MeetingLink     string            `json:"meeting_link"     binding:"omitempty,url"`
	ZoomLink        string            `json:"zoom_link"        binding:"omitempty,url"`
	Passcode        string            `json:"passcode"         binding:"omitempty"`
	Timezone        string            `json:"timezone"         binding:"required"`
	Date            string            `json:"date"             binding:"required"` // YYYY-MM-DD
	StartTime       string            `json:"start_time"       binding:"required"` // HH:mm
	DurationMinutes int               `json:"duration_minutes" binding:"omitempty,min=1"`
	StudentEmails   []string          `json:"student_emails"   binding:"required,min=1"`
	TeacherID       string            `json:"teacher_id"       binding:"omitempty,uuid"`
	Documents       []DocumentPayload `json:"documents"        binding:"omitempty,dive"`
}

// Link 取有效会议链接：zoom 类型优先 zoom_link，其余取 meeting_link
func (r *CreateCallRequest) Link() string {
	if r.MeetingType == model.MeetingTypeZoom && r.ZoomLink != "" {
		return r.ZoomLink
	}
	if r.MeetingLink != "" {
		return r.MeetingLink
	}
	return r.ZoomLink
}

// RescheduleCallRequest 改期请求
// 全部字段可选：省略的字段回退到实体当前值（显式 patch-over-snapshot 合并）。
type RescheduleCallRequest struct {
	ClassType       *string           `json:"class_type"        binding:"omitempty"`
	MeetingType     *string           `json:"meeting_type"      binding:"omitempty,oneof=zoom external"`
	MeetingLink     *string           `json:"meeting_link"      binding:"omitempty,url"`
	ZoomLink        *string           `json:"zoom_link"         binding:"omitempty,url"`
	Passcode        *string           `json:"passcode"          binding:"omitempty"`
	Timezone        *string           `json:"timezone"          binding:"omitempty"`
	Date            *string           `json:"date"              binding:"omitempty"`
	StartTime       *string           `json:"start_time"        binding:"omitempty"`
	DurationMinutes *int              `json:"duration_minutes"  binding:"omitempty,min=1"`
	StudentEmails   []string          `json:"student_emails"    binding:"omitempty,min=1"`
	TeacherID       *string           `json:"teacher_id"        binding:"omitempty,uuid"`
	UseExistingLink bool              `json:"use_existing_link"`
	Documents       []DocumentPayload `json:"documents"         binding:"omitempty,dive"`
}

// CallListRequest 列表查询参数
type CallListRequest struct {
	Status string `form:"status" binding:"omitempty,oneof=scheduled rescheduled cancelled completed"`
	PaginationRequest
}

// ── 响应 ──

// DocumentResponse 附件响应
type DocumentResponse struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	URL        string  `json:"url"`
	FileID     *string `json:"file_id,omitempty"`
	UploadedAt string  `json:"uploaded_at"`
}

// CallResponse 试听课详情响应
type CallResponse struct {
	ID              string             `json:"id"`
	ClassType       string             `json:"class_type"`
	MeetingType     string             `json:"meeting_type"`
	MeetingLink     string             `json:"meeting_link"`
	MeetingID       *string            `json:"meeting_id,omitempty"`
	Passcode        *string            `json:"passcode,omitempty"`
	Date            string             `json:"date"`
	StartTime       string             `json:"start_time"`
	EndTime         string             `json:"end_time"`
	Timezone        string             `json:"timezone"`
	DurationMinutes int                `json:"duration_minutes"`
	Status          string             `json:"status"`
	ScheduledBy     *UserBrief         `json:"scheduled_by,omitempty"`
	Teacher         *UserBrief         `json:"teacher,omitempty"`
	StudentEmails   []string           `json:"student_emails"`
	PrevDate        *string            `json:"previous_date,omitempty"`
	PrevStartTime   *string            `json:"previous_start_time,omitempty"`
	PrevEndTime     *string            `json:"previous_end_time,omitempty"`
	Documents       []DocumentResponse `json:"documents,omitempty"`
	Version         int                `json:"version"`
	CreatedAt       string             `json:"created_at"`
	UpdatedAt       string             `json:"updated_at"`
}

// MutationResponse 创建/改期/取消的精简回执
type MutationResponse struct {
	Message         string             `json:"message"`
	CallID          string             `json:"call_id"`
	DurationMinutes int                `json:"duration_minutes,omitempty"`
	Documents       []DocumentResponse `json:"documents,omitempty"`
}

// JoinableResponse 可加入查询响应
type JoinableResponse struct {
	Joinable bool `json:"joinable"`
}

// NewCallResponse 从模型构建详情响应
func NewCallResponse(c *model.DemoCall) *CallResponse {
	resp := &CallResponse{
		ID:              c.CallID,
		ClassType:       c.ClassType,
		MeetingType:     c.MeetingType,
		MeetingLink:     c.MeetingLink,
		MeetingID:       c.MeetingID,
		Passcode:        c.Passcode,
		Date:            c.Date,
		StartTime:       c.StartTime,
		EndTime:         c.EndTime,
		Timezone:        c.Timezone,
		DurationMinutes: c.DurationMinutes,
		Status:          c.Status,
		ScheduledBy:     NewUserBrief(c.ScheduledByUser),
		Teacher:         NewUserBrief(c.Teacher),
		StudentEmails:   c.StudentEmails,
		PrevDate:        c.PrevDate,
		PrevStartTime:   c.PrevStartTime,
		PrevEndTime:     c.PrevEndTime,
		Version:         c.Version,
		CreatedAt:       c.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       c.UpdatedAt.Format(time.RFC3339),
	}
	for _, d := range c.Documents {
		resp.Documents = append(resp.Documents, NewDocumentResponse(&d))
	}
	return resp
}

// NewDocumentResponse 从模型构建附件响应
func NewDocumentResponse(d *model.CallDocument) DocumentResponse {
	return DocumentResponse{
		ID:         d.DocumentID,
		Name:       d.Name,
		URL:        d.URL,
		FileID:     d.FileID,
		UploadedAt: d.UploadedAt.Format(time.RFC3339),
	}
}
