package service

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"democall/backend/internal/model"
	"democall/backend/internal/repository"
	"democall/backend/pkg/mailer"
)

// ── 通知三路分发 ──────────────────────────────────────────
//
// 每次生命周期变更（排期/改期/取消）产生一条人类可读消息，随后：
//  1. 持久化一条面向授课教师的站内通知 —— 失败对请求致命（视为写入的一部分）；
//  2. 向操作者发一封教师话术邮件、向每个学生邮箱各发一封学生话术邮件；
//  3. 向教师实时频道推送同一消息。
// 第 2、3 路并发执行、尽力而为：逐路收集结果并记日志，不影响 HTTP 响应。
// ─────────────────────────────────────────────────────────────

// RealtimeBus 实时推送接口（注入实现，生产环境为 Redis Pub/Sub）
type RealtimeBus interface {
	PublishToUser(ctx context.Context, userID string, event interface{}) error
}

// ChannelOutcome 尽力而为阶段的单路结果
type ChannelOutcome struct {
	Channel string
	Err     error
}

// RealtimeEvent 推送到用户频道的事件载荷
type RealtimeEvent struct {
	Type    string `json:"type"`
	CallID  string `json:"call_id"`
	Message string `json:"message"`
}

// NotificationFanout 通知分发器
type NotificationFanout struct {
	notifications repository.NotificationRepository
	sender        mailer.Sender
	bus           RealtimeBus
	logger        *zap.Logger
}

// NewNotificationFanout 创建分发器
func NewNotificationFanout(notifications repository.NotificationRepository, sender mailer.Sender, bus RealtimeBus, logger *zap.Logger) *NotificationFanout {
	return &NotificationFanout{
		notifications: notifications,
		sender:        sender,
		bus:           bus,
		logger:        logger,
	}
}

// Dispatch 执行一次完整分发。
// 返回已持久化的通知 ID 与尽力而为阶段的逐路结果；error 仅来自持久化阶段。
func (f *NotificationFanout) Dispatch(ctx context.Context, kind string, call *model.DemoCall, actor *model.User) (string, []ChannelOutcome, error) {
	title, content := buildCallMessage(kind, call)

	// ── 阶段1: 持久化站内通知（致命） ──
	relatedID := call.CallID
	n := &model.Notification{
		UserID:    call.TeacherID,
		Type:      kind,
		Title:     title,
		Content:   content,
		RelatedID: &relatedID,
	}
	if err := f.notifications.Create(ctx, n); err != nil {
		return "", nil, err
	}

	// ── 阶段2: 邮件 + 实时推送（尽力而为，并发） ──
	outcomes := f.dispatchBestEffort(ctx, kind, call, actor, title, content)
	for _, o := range outcomes {
		if o.Err != nil {
			f.logger.Warn("通知分发单路失败",
				zap.String("channel", o.Channel),
				zap.String("call_id", call.CallID),
				zap.Error(o.Err),
			)
		}
	}

	return n.NotificationID, outcomes, nil
}

func (f *NotificationFanout) dispatchBestEffort(ctx context.Context, kind string, call *model.DemoCall, actor *model.User, title, content string) []ChannelOutcome {
	// 排期/改期邮件附带日历邀请；取消不附
	var invite []mailer.Attachment
	if kind != model.NotificationCallCancelled {
		if data, err := BuildCallInvite(call); err == nil {
			invite = []mailer.Attachment{{
				Filename:    "invite.ics",
				ContentType: "text/calendar",
				Content:     data,
			}}
		} else {
			f.logger.Warn("生成日历邀请失败", zap.Error(err), zap.String("call_id", call.CallID))
		}
	}

	type task struct {
		channel string
		run     func() error
	}
	tasks := []task{
		{
			channel: "email:" + actor.Email,
			run: func() error {
				return f.sender.Send(&mailer.Message{
					To:          []string{actor.Email},
					Subject:     title,
					TextBody:    teacherEmailBody(content, call),
					Attachments: invite,
				})
			},
		},
		{
			channel: "realtime:" + call.TeacherID,
			run: func() error {
				return f.bus.PublishToUser(ctx, call.TeacherID, RealtimeEvent{
					Type:    kind,
					CallID:  call.CallID,
					Message: content,
				})
			},
		},
	}
	for _, email := range call.StudentEmails {
		email := email
		tasks = append(tasks, task{
			channel: "email:" + email,
			run: func() error {
				return f.sender.Send(&mailer.Message{
					To:          []string{email},
					Subject:     title,
					TextBody:    studentEmailBody(content, call),
					Attachments: invite,
				})
			},
		})
	}

	outcomes := make([]ChannelOutcome, len(tasks))
	var wg sync.WaitGroup
	for i, t := range tasks {
		wg.Add(1)
		go func(i int, t task) {
			defer wg.Done()
			outcomes[i] = ChannelOutcome{Channel: t.channel, Err: t.run()}
		}(i, t)
	}
	wg.Wait()

	return outcomes
}

// ── 消息模板 ──

func buildCallMessage(kind string, call *model.DemoCall) (title, content string) {
	switch kind {
	case model.NotificationCallScheduled:
		title = "试听课已排期"
		content = fmt.Sprintf("《%s》试听课排期：%s %s-%s（%s）",
			call.ClassType, call.Date, call.StartTime, call.EndTime, call.Timezone)
	case model.NotificationCallRescheduled:
		title = "试听课已改期"
		prevDate, prevStart := "", ""
		if call.PrevDate != nil {
			prevDate = *call.PrevDate
		}
		if call.PrevStartTime != nil {
			prevStart = *call.PrevStartTime
		}
		content = fmt.Sprintf("《%s》试听课由 %s %s 改期至 %s %s-%s（%s）",
			call.ClassType, prevDate, prevStart,
			call.Date, call.StartTime, call.EndTime, call.Timezone)
	case model.NotificationCallCancelled:
		title = "试听课已取消"
		content = fmt.Sprintf("原定 %s %s 的《%s》试听课已取消",
			call.Date, call.StartTime, call.ClassType)
	default:
		title = "试听课通知"
		content = fmt.Sprintf("《%s》试听课状态更新：%s", call.ClassType, call.Status)
	}
	return title, content
}

func teacherEmailBody(content string, call *model.DemoCall) string {
	return fmt.Sprintf("%s\n\n会议链接：%s\n课程时长：%d 分钟\n",
		content, call.MeetingLink, call.DurationMinutes)
}

func studentEmailBody(content string, call *model.DemoCall) string {
	body := fmt.Sprintf("同学你好：\n\n%s\n\n请准时通过以下链接加入：%s\n", content, call.MeetingLink)
	if call.Passcode != nil && *call.Passcode != "" {
		body += fmt.Sprintf("入会密码：%s\n", *call.Passcode)
	}
	return body
}
