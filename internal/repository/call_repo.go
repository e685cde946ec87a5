package repository

import (
	"context"

	"gorm.io/gorm"

	"democall/backend/internal/model"
	pkgerrors "democall/backend/pkg/errors"
)

// CallFilter 试听课列表过滤条件
// 三组可见性条件互斥：管理员不设过滤；教师按 TeacherOrScheduler；学生按 StudentEmail。
type CallFilter struct {
	Status             string
	TeacherOrScheduler string // 命中 teacher_id 或 scheduled_by
	StudentEmail       string // 命中 student_emails 集合
	Offset             int
	Limit              int
}

// CallRepository 试听课数据访问接口
type CallRepository interface {
	Create(ctx context.Context, call *model.DemoCall) error
	GetByID(ctx context.Context, id string) (*model.DemoCall, error)
	List(ctx context.Context, filter CallFilter) ([]model.DemoCall, int64, error)
	// Update 带乐观锁的整体更新：version 不匹配时返回 pkgerrors.ErrOptimisticLock
	Update(ctx context.Context, call *model.DemoCall) error
}

type callRepo struct {
	db *gorm.DB
}

// NewCallRepo 创建 CallRepository 实现
func NewCallRepo(db *gorm.DB) CallRepository {
	return &callRepo{db: db}
}

func (r *callRepo) Create(ctx context.Context, call *model.DemoCall) error {
	return r.db.WithContext(ctx).Create(call).Error
}

func (r *callRepo) GetByID(ctx context.Context, id string) (*model.DemoCall, error) {
	var call model.DemoCall
	err := r.db.WithContext(ctx).
		Preload("ScheduledByUser").
		Preload("Teacher").
		Preload("Documents").
		Where("call_id = ?", id).
		First(&call).Error
	if err != nil {
		return nil, err
	}
	return &call, nil
}

func (r *callRepo) List(ctx context.Context, filter CallFilter) ([]model.DemoCall, int64, error) {
	var calls []model.DemoCall
	var total int64

	db := r.db.WithContext(ctx).Model(&model.DemoCall{})

	if filter.Status != "" {
		db = db.Where("status = ?", filter.Status)
	}
	if filter.TeacherOrScheduler != "" {
		db = db.Where("teacher_id = ? OR scheduled_by = ?", filter.TeacherOrScheduler, filter.TeacherOrScheduler)
	}
	if filter.StudentEmail != "" {
		db = db.Where("? = ANY(student_emails)", filter.StudentEmail)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.
		Preload("ScheduledByUser").
		Preload("Teacher").
		Preload("Documents").
		Offset(filter.Offset).Limit(filter.Limit).
		Order("date DESC, start_time DESC").
		Find(&calls).Error
	return calls, total, err
}

func (r *callRepo) Update(ctx context.Context, call *model.DemoCall) error {
	oldVersion := call.Version
	result := r.db.WithContext(ctx).
		Model(call).
		Where("call_id = ? AND version = ?", call.CallID, oldVersion).
		Updates(map[string]interface{}{
			"class_type":          call.ClassType,
			"meeting_type":        call.MeetingType,
			"meeting_link":        call.MeetingLink,
			"meeting_id":          call.MeetingID,
			"passcode":            call.Passcode,
			"date":                call.Date,
			"start_time":          call.StartTime,
			"end_time":            call.EndTime,
			"timezone":            call.Timezone,
			"duration_minutes":    call.DurationMinutes,
			"status":              call.Status,
			"teacher_id":          call.TeacherID,
			"student_emails":      call.StudentEmails,
			"previous_date":       call.PrevDate,
			"previous_start_time": call.PrevStartTime,
			"previous_end_time":   call.PrevEndTime,
			"notification_ids":    call.NotificationIDs,
			"updated_by":          call.UpdatedBy,
			"version":             oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	call.Version = oldVersion + 1
	return nil
}
