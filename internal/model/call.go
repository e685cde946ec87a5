package model

import "time"

// ── 状态常量 ──
// 状态机只允许前进：scheduled → rescheduled → {rescheduled, cancelled}，
// {scheduled, rescheduled} → completed（由外部结课流程置位）。
// cancelled 为终态。

const (
	CallStatusScheduled   = "scheduled"
	CallStatusRescheduled = "rescheduled"
	CallStatusCancelled   = "cancelled"
	CallStatusCompleted   = "completed"
)

// ── 会议类型常量 ──

const (
	MeetingTypeZoom     = "zoom"
	MeetingTypeExternal = "external"
)

// DemoCall 试听课表 — 对应 demo_calls
//
// previous_* 三元组仅在改期/取消时写入，记录覆盖前的原排期（审计不变量）。
// notification_ids 为本次排期已发出的站内通知引用，改期时清空重新累计。
type DemoCall struct {
	CallID          string      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"call_id"`
	ClassType       string      `gorm:"type:varchar(100);not null"                     json:"class_type"`
	MeetingType     string      `gorm:"type:varchar(20);not null;default:'zoom'"       json:"meeting_type"` // zoom | external
	MeetingLink     string      `gorm:"type:text;not null"                             json:"meeting_link"`
	MeetingID       *string     `gorm:"type:varchar(50)"                               json:"meeting_id,omitempty"`
	Passcode        *string     `gorm:"type:varchar(50)"                               json:"passcode,omitempty"`
	Date            string      `gorm:"type:date;not null"                             json:"date"`       // YYYY-MM-DD
	StartTime       string      `gorm:"type:time;not null"                             json:"start_time"` // HH:mm
	EndTime         string      `gorm:"type:time;not null"                             json:"end_time"`   // HH:mm（派生字段）
	Timezone        string      `gorm:"type:varchar(64);not null"                      json:"timezone"`
	DurationMinutes int         `gorm:"not null;default:40"                            json:"duration_minutes"`
	Status          string      `gorm:"type:varchar(20);not null;default:'scheduled'"  json:"status"`
	ScheduledBy     string      `gorm:"type:uuid;not null"                             json:"scheduled_by"`
	TeacherID       string      `gorm:"type:uuid;not null"                             json:"teacher_id"`
	StudentEmails   StringArray `gorm:"type:text[];not null"                           json:"student_emails"`
	PrevDate        *string     `gorm:"column:previous_date;type:date"                 json:"previous_date,omitempty"`
	PrevStartTime   *string     `gorm:"column:previous_start_time;type:time"           json:"previous_start_time,omitempty"`
	PrevEndTime     *string     `gorm:"column:previous_end_time;type:time"             json:"previous_end_time,omitempty"`
	NotificationIDs StringArray `gorm:"type:text[];not null"                           json:"notification_ids"`
	VersionedModel

	// 关联
	ScheduledByUser *User          `gorm:"foreignKey:ScheduledBy;references:UserID" json:"scheduled_by_user,omitempty"`
	Teacher         *User          `gorm:"foreignKey:TeacherID;references:UserID"   json:"teacher,omitempty"`
	Documents       []CallDocument `gorm:"foreignKey:CallID"                        json:"documents,omitempty"`
}

// TableName 指定表名
func (DemoCall) TableName() string { return "demo_calls" }

// IsTerminal 终态判断：cancelled 之后不允许任何生命周期迁移
func (c *DemoCall) IsTerminal() bool {
	return c.Status == CallStatusCancelled
}

// CanTransition 状态机前进校验
func (c *DemoCall) CanTransition(next string) bool {
	switch next {
	case CallStatusRescheduled:
		return c.Status == CallStatusScheduled || c.Status == CallStatusRescheduled
	case CallStatusCancelled:
		return c.Status == CallStatusScheduled || c.Status == CallStatusRescheduled
	case CallStatusCompleted:
		return c.Status == CallStatusScheduled || c.Status == CallStatusRescheduled
	default:
		return false
	}
}

// CallDocument 试听课附件表 — 对应 call_documents
// 不变量：name ≠ url（拦截一类畸形上传产生的脏数据）
type CallDocument struct {
	DocumentID string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"document_id"`
	CallID     string    `gorm:"type:uuid;not null"                             json:"call_id"`
	Name       string    `gorm:"type:varchar(255);not null"                     json:"name"`
	URL        string    `gorm:"type:text;not null"                             json:"url"`
	FileID     *string   `gorm:"type:varchar(100)"                              json:"file_id,omitempty"`
	UploadedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"uploaded_at"`
}

// TableName 指定表名
func (CallDocument) TableName() string { return "call_documents" }
