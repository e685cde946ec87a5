package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"democall/backend/config"
	"democall/backend/internal/dto"
	"democall/backend/internal/model"
	"democall/backend/internal/repository"
)

// ── 试听课模块业务错误 ──

var (
	ErrCallNotFound         = errors.New("试听课不存在")
	ErrCallNotReschedulable = errors.New("当前状态不可改期")
	ErrCallNotCancellable   = errors.New("当前状态不可取消")
)

// ValidationError 聚合一次请求中全部违规字段
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "字段校验失败: " + strings.Join(e.Fields, ", ")
}

// CallService 试听课业务接口
type CallService interface {
	// 创建排期
	Create(ctx context.Context, req *dto.CreateCallRequest, actorID string) (*dto.MutationResponse, error)
	// 改期（patch 合并：省略字段回退当前值）
	Reschedule(ctx context.Context, callID string, req *dto.RescheduleCallRequest, actorID string) (*dto.MutationResponse, error)
	// 取消（状态翻转，不删除记录）
	Cancel(ctx context.Context, callID string, actorID string) (*dto.MutationResponse, error)
	// 详情（按角色可见性过滤）
	Get(ctx context.Context, callID string, actorID string) (*dto.CallResponse, error)
	// 列表（按角色可见性过滤）
	List(ctx context.Context, req *dto.CallListRequest, actorID string) ([]dto.CallResponse, int64, error)
	// 是否处于可加入窗口 [start−10min, end]
	Joinable(ctx context.Context, callID string, actorID string) (*dto.JoinableResponse, error)
	// 日历邀请（.ics）
	Invite(ctx context.Context, callID string, actorID string) ([]byte, error)
}

type callService struct {
	cfg    *config.CallConfig
	repo   *repository.Repository
	fanout *NotificationFanout
	logger *zap.Logger
	now    func() time.Time
}

// NewCallService 创建 CallService 实例
func NewCallService(cfg *config.CallConfig, repo *repository.Repository, fanout *NotificationFanout, logger *zap.Logger) CallService {
	return &callService{
		cfg:    cfg,
		repo:   repo,
		fanout: fanout,
		logger: logger,
		now:    time.Now,
	}
}

// ═══════════════════════════════════════════════════════════
// Create — 创建排期
// ═══════════════════════════════════════════════════════════

func (s *callService) Create(ctx context.Context, req *dto.CreateCallRequest, actorID string) (*dto.MutationResponse, error) {
	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if callPermissions[ActionCreate][actor.Role] == permNone {
		return nil, ErrActionForbidden
	}

	// 1. 字段校验：一次性收集全部违规，任何失败都发生在写入之前
	fields := make([]string, 0)
	link := req.Link()
	if strings.TrimSpace(req.ClassType) == "" {
		fields = append(fields, "class_type")
	}
	if link == "" {
		if req.MeetingType == model.MeetingTypeZoom {
			fields = append(fields, "zoom_link")
		} else {
			fields = append(fields, "meeting_link")
		}
	}
	if _, err := time.LoadLocation(req.Timezone); err != nil {
		fields = append(fields, "timezone")
	}
	if _, err := ParseDate(req.Date); err != nil {
		fields = append(fields, "date")
	}
	if _, err := ParseClock(req.StartTime); err != nil {
		fields = append(fields, "start_time")
	}
	if len(req.StudentEmails) == 0 {
		fields = append(fields, "student_emails")
	}
	for _, e := range req.StudentEmails {
		if _, err := mail.ParseAddress(e); err != nil {
			fields = append(fields, "student_emails")
			break
		}
	}
	for _, d := range req.Documents {
		if d.Name == d.URL {
			fields = append(fields, "documents")
			break
		}
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	duration := req.DurationMinutes
	if duration <= 0 {
		duration = s.cfg.DefaultDurationMinutes
	}

	// 2. 派生字段
	endTime, err := ComputeEndTime(req.Date, req.StartTime, duration, req.Timezone)
	if err != nil {
		return nil, &ValidationError{Fields: []string{"start_time"}}
	}

	// 3. 解析实际授课人
	teacher, err := ResolveTeacher(ctx, s.repo.User, actor, req.TeacherID)
	if err != nil {
		return nil, err
	}

	// 4. 持久化
	var passcode *string
	if req.Passcode != "" {
		passcode = &req.Passcode
	}
	call := &model.DemoCall{
		ClassType:       req.ClassType,
		MeetingType:     req.MeetingType,
		MeetingLink:     link,
		MeetingID:       ExtractMeetingID(link),
		Passcode:        passcode,
		Date:            req.Date,
		StartTime:       req.StartTime,
		EndTime:         endTime,
		Timezone:        req.Timezone,
		DurationMinutes: duration,
		Status:          model.CallStatusScheduled,
		ScheduledBy:     actor.UserID,
		TeacherID:       teacher.UserID,
		StudentEmails:   dedupEmails(req.StudentEmails),
		NotificationIDs: model.StringArray{},
	}
	call.CreatedBy = &actor.UserID
	if err := s.repo.Call.Create(ctx, call); err != nil {
		s.logger.Error("创建试听课失败", zap.Error(err))
		return nil, err
	}

	docs := make([]model.CallDocument, 0, len(req.Documents))
	for _, d := range req.Documents {
		docs = append(docs, model.CallDocument{
			CallID:     call.CallID,
			Name:       d.Name,
			URL:        d.URL,
			FileID:     d.FileID,
			UploadedAt: s.now(),
		})
	}
	if err := s.repo.Document.BatchCreate(ctx, docs); err != nil {
		s.logger.Error("保存试听课附件失败", zap.Error(err))
		return nil, err
	}
	call.Teacher = teacher
	call.ScheduledByUser = actor
	call.Documents = docs

	// 5. 通知三路分发
	if err := s.dispatchAndRecord(ctx, model.NotificationCallScheduled, call, actor); err != nil {
		return nil, err
	}

	resp := &dto.MutationResponse{
		Message:         "试听课排期成功",
		CallID:          call.CallID,
		DurationMinutes: call.DurationMinutes,
	}
	for _, d := range docs {
		resp.Documents = append(resp.Documents, dto.NewDocumentResponse(&d))
	}
	return resp, nil
}

// ═══════════════════════════════════════════════════════════
// Reschedule — 改期（显式 patch-over-snapshot 合并）
// ═══════════════════════════════════════════════════════════

func (s *callService) Reschedule(ctx context.Context, callID string, req *dto.RescheduleCallRequest, actorID string) (*dto.MutationResponse, error) {
	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		return nil, err
	}

	call, err := s.loadCall(ctx, callID)
	if err != nil {
		return nil, err
	}
	if err := AuthorizeMutation(ActionReschedule, actor, call); err != nil {
		return nil, err
	}
	if !call.CanTransition(model.CallStatusRescheduled) {
		return nil, ErrCallNotReschedulable
	}

	// 1. patch 合并：每个字段独立可选，省略即保留当前值
	classType := call.ClassType
	if req.ClassType != nil {
		classType = *req.ClassType
	}
	meetingType := call.MeetingType
	if req.MeetingType != nil {
		meetingType = *req.MeetingType
	}
	timezone := call.Timezone
	if req.Timezone != nil {
		timezone = *req.Timezone
	}
	date := call.Date
	if req.Date != nil {
		date = *req.Date
	}
	startTime := call.StartTime
	if req.StartTime != nil {
		startTime = *req.StartTime
	}
	duration := call.DurationMinutes
	if req.DurationMinutes != nil {
		duration = *req.DurationMinutes
	}
	studentEmails := call.StudentEmails
	if len(req.StudentEmails) > 0 {
		studentEmails = dedupEmails(req.StudentEmails)
	}
	passcode := call.Passcode
	if req.Passcode != nil {
		passcode = req.Passcode
	}

	// 会议链接：use_existing_link 时原样复用链接与会议号，忽略类型变化
	link := call.MeetingLink
	meetingID := call.MeetingID
	if !req.UseExistingLink {
		var requested string
		if meetingType == model.MeetingTypeZoom && req.ZoomLink != nil {
			requested = *req.ZoomLink
		} else if req.MeetingLink != nil {
			requested = *req.MeetingLink
		} else if req.ZoomLink != nil {
			requested = *req.ZoomLink
		}
		if requested != "" {
			link = requested
			meetingID = ExtractMeetingID(requested)
		}
	}

	// 2. 合并结果校验
	fields := make([]string, 0)
	if strings.TrimSpace(classType) == "" {
		fields = append(fields, "class_type")
	}
	if _, err := time.LoadLocation(timezone); err != nil {
		fields = append(fields, "timezone")
	}
	if _, err := ParseDate(date); err != nil {
		fields = append(fields, "date")
	}
	if _, err := ParseClock(startTime); err != nil {
		fields = append(fields, "start_time")
	}
	for _, e := range studentEmails {
		if _, err := mail.ParseAddress(e); err != nil {
			fields = append(fields, "student_emails")
			break
		}
	}
	for _, d := range req.Documents {
		if d.Name == d.URL {
			fields = append(fields, "documents")
			break
		}
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	endTime, err := ComputeEndTime(date, startTime, duration, timezone)
	if err != nil {
		return nil, &ValidationError{Fields: []string{"start_time"}}
	}

	// 3. 授课人变更（仅管理员可改派，教师传入自身 id 同样视为改派）
	teacher := call.Teacher
	if req.TeacherID != nil && *req.TeacherID != call.TeacherID {
		if actor.Role != model.RoleAdmin && actor.Role != model.RoleSuperAdmin {
			return nil, ErrActionForbidden
		}
		teacher, err = ResolveTeacher(ctx, s.repo.User, actor, *req.TeacherID)
		if err != nil {
			return nil, err
		}
	}

	// 4. 覆盖前快照原排期（审计不变量）
	prevDate, prevStart, prevEnd := call.Date, call.StartTime, call.EndTime
	call.PrevDate = &prevDate
	call.PrevStartTime = &prevStart
	call.PrevEndTime = &prevEnd

	call.ClassType = classType
	call.MeetingType = meetingType
	call.MeetingLink = link
	call.MeetingID = meetingID
	call.Passcode = passcode
	call.Date = date
	call.StartTime = startTime
	call.EndTime = endTime
	call.Timezone = timezone
	call.DurationMinutes = duration
	call.StudentEmails = studentEmails
	if teacher != nil {
		call.TeacherID = teacher.UserID
		call.Teacher = teacher
	}
	call.Status = model.CallStatusRescheduled
	call.NotificationIDs = model.StringArray{} // 新排期重新累计通知
	call.UpdatedBy = &actor.UserID

	if err := s.repo.Call.Update(ctx, call); err != nil {
		s.logger.Error("改期写入失败", zap.Error(err), zap.String("call_id", call.CallID))
		return nil, err
	}

	if len(req.Documents) > 0 {
		docs := make([]model.CallDocument, 0, len(req.Documents))
		for _, d := range req.Documents {
			docs = append(docs, model.CallDocument{
				CallID:     call.CallID,
				Name:       d.Name,
				URL:        d.URL,
				FileID:     d.FileID,
				UploadedAt: s.now(),
			})
		}
		if err := s.repo.Document.BatchCreate(ctx, docs); err != nil {
			s.logger.Error("保存试听课附件失败", zap.Error(err))
			return nil, err
		}
		call.Documents = append(call.Documents, docs...)
	}

	// 5. 通知三路分发
	if err := s.dispatchAndRecord(ctx, model.NotificationCallRescheduled, call, actor); err != nil {
		return nil, err
	}

	return &dto.MutationResponse{
		Message:         "试听课改期成功",
		CallID:          call.CallID,
		DurationMinutes: call.DurationMinutes,
	}, nil
}

// ═══════════════════════════════════════════════════════════
// Cancel — 取消（终态翻转）
// ═══════════════════════════════════════════════════════════

func (s *callService) Cancel(ctx context.Context, callID string, actorID string) (*dto.MutationResponse, error) {
	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		return nil, err
	}

	call, err := s.loadCall(ctx, callID)
	if err != nil {
		return nil, err
	}
	if err := AuthorizeMutation(ActionCancel, actor, call); err != nil {
		return nil, err
	}
	// 已取消/已完成的记录不可再取消（显式拒绝，而非静默幂等）
	if !call.CanTransition(model.CallStatusCancelled) {
		return nil, ErrCallNotCancellable
	}

	prevDate, prevStart, prevEnd := call.Date, call.StartTime, call.EndTime
	call.PrevDate = &prevDate
	call.PrevStartTime = &prevStart
	call.PrevEndTime = &prevEnd
	call.Status = model.CallStatusCancelled
	call.UpdatedBy = &actor.UserID

	if err := s.repo.Call.Update(ctx, call); err != nil {
		s.logger.Error("取消写入失败", zap.Error(err), zap.String("call_id", call.CallID))
		return nil, err
	}

	if err := s.dispatchAndRecord(ctx, model.NotificationCallCancelled, call, actor); err != nil {
		return nil, err
	}

	return &dto.MutationResponse{
		Message: "试听课已取消",
		CallID:  call.CallID,
	}, nil
}

// ═══════════════════════════════════════════════════════════
// 查询
// ═══════════════════════════════════════════════════════════

func (s *callService) Get(ctx context.Context, callID string, actorID string) (*dto.CallResponse, error) {
	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	call, err := s.loadCall(ctx, callID)
	if err != nil {
		return nil, err
	}
	// 对不可见记录返回 404 而非 403，避免泄露记录存在性
	if !CanReadCall(actor, call) {
		return nil, ErrCallNotFound
	}
	return dto.NewCallResponse(call), nil
}

func (s *callService) List(ctx context.Context, req *dto.CallListRequest, actorID string) ([]dto.CallResponse, int64, error) {
	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		return nil, 0, err
	}

	filter := repository.CallFilter{
		Status: req.Status,
		Offset: req.GetOffset(),
		Limit:  req.GetPageSize(),
	}
	switch actor.Role {
	case model.RoleSuperAdmin, model.RoleAdmin:
		// 全量可见
	case model.RoleTeacher:
		filter.TeacherOrScheduler = actor.UserID
	case model.RoleStudent:
		// 名单以小写归一化存储，账号邮箱先归一化再匹配
		filter.StudentEmail = strings.ToLower(actor.Email)
	default:
		return nil, 0, ErrActionForbidden
	}

	calls, total, err := s.repo.Call.List(ctx, filter)
	if err != nil {
		s.logger.Error("查询试听课列表失败", zap.Error(err))
		return nil, 0, err
	}

	list := make([]dto.CallResponse, 0, len(calls))
	for i := range calls {
		list = append(list, *dto.NewCallResponse(&calls[i]))
	}
	return list, total, nil
}

func (s *callService) Joinable(ctx context.Context, callID string, actorID string) (*dto.JoinableResponse, error) {
	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	call, err := s.loadCall(ctx, callID)
	if err != nil {
		return nil, err
	}
	if !CanReadCall(actor, call) {
		return nil, ErrCallNotFound
	}
	if call.Status == model.CallStatusCancelled || call.Status == model.CallStatusCompleted {
		return &dto.JoinableResponse{Joinable: false}, nil
	}

	window := time.Duration(s.cfg.JoinWindowMinutes) * time.Minute
	ok, err := IsJoinable(call.Date, call.StartTime, call.EndTime, call.Timezone, window, s.now())
	if err != nil {
		return nil, err
	}
	return &dto.JoinableResponse{Joinable: ok}, nil
}

func (s *callService) Invite(ctx context.Context, callID string, actorID string) ([]byte, error) {
	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	call, err := s.loadCall(ctx, callID)
	if err != nil {
		return nil, err
	}
	if !CanReadCall(actor, call) {
		return nil, ErrCallNotFound
	}
	return BuildCallInvite(call)
}

// ── 内部辅助 ──

func (s *callService) loadActor(ctx context.Context, actorID string) (*model.User, error) {
	actor, err := s.repo.User.GetByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询操作者失败", zap.Error(err))
		return nil, err
	}
	return actor, nil
}

func (s *callService) loadCall(ctx context.Context, callID string) (*model.DemoCall, error) {
	call, err := s.repo.Call.GetByID(ctx, callID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCallNotFound
		}
		s.logger.Error("查询试听课失败", zap.Error(err), zap.String("call_id", callID))
		return nil, err
	}
	return call, nil
}

// dispatchAndRecord 执行通知分发并把持久化通知 ID 记回实体审计字段。
// 持久化通知失败对请求是致命的；邮件与实时推送为尽力而为。
func (s *callService) dispatchAndRecord(ctx context.Context, kind string, call *model.DemoCall, actor *model.User) error {
	notifID, _, err := s.fanout.Dispatch(ctx, kind, call, actor)
	if err != nil {
		s.logger.Error("持久化通知失败", zap.Error(err), zap.String("call_id", call.CallID))
		return fmt.Errorf("通知记录写入失败: %w", err)
	}

	call.NotificationIDs = append(call.NotificationIDs, notifID)
	if err := s.repo.Call.Update(ctx, call); err != nil {
		s.logger.Error("回写通知审计失败", zap.Error(err), zap.String("call_id", call.CallID))
		return err
	}
	return nil
}

// dedupEmails 去重并归一化学生邮箱集合
func dedupEmails(emails []string) model.StringArray {
	seen := make(map[string]bool, len(emails))
	out := make(model.StringArray, 0, len(emails))
	for _, e := range emails {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" || seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	return out
}
