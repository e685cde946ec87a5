package service

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"democall/backend/internal/model"
	"democall/backend/internal/repository"
)

// ── 权限矩阵 ──────────────────────────────────────────────
//
// 角色 × 动作显式查表，服务端在每次变更调用时判定。
// own 级别的归属规则：actor 是 teacher_id 或 scheduled_by 之一。
// 学生只拥有读权限，且仅限 student_emails 命中自己邮箱的记录。
// ─────────────────────────────────────────────────────────────

// CallAction 试听课上的受控动作
type CallAction string

const (
	ActionCreate     CallAction = "create"
	ActionReschedule CallAction = "reschedule"
	ActionCancel     CallAction = "cancel"
	ActionRead       CallAction = "read"
)

// permLevel 权限级别
type permLevel int

const (
	permNone permLevel = iota // 无权限
	permOwn                   // 仅限归属记录
	permAll                   // 全部记录
)

var callPermissions = map[CallAction]map[string]permLevel{
	ActionCreate: {
		model.RoleSuperAdmin: permAll,
		model.RoleAdmin:      permAll,
		model.RoleTeacher:    permOwn,
		model.RoleStudent:    permNone,
	},
	ActionReschedule: {
		model.RoleSuperAdmin: permAll,
		model.RoleAdmin:      permAll,
		model.RoleTeacher:    permOwn,
		model.RoleStudent:    permNone,
	},
	ActionCancel: {
		model.RoleSuperAdmin: permAll,
		model.RoleAdmin:      permAll,
		model.RoleTeacher:    permOwn,
		model.RoleStudent:    permNone,
	},
	ActionRead: {
		model.RoleSuperAdmin: permAll,
		model.RoleAdmin:      permAll,
		model.RoleTeacher:    permOwn,
		model.RoleStudent:    permOwn, // own = student_emails 命中
	},
}

// ── 权限模块业务错误 ──

var (
	ErrActionForbidden     = errors.New("当前角色无权执行此操作")
	ErrNotCallOwner        = errors.New("仅限任课教师或排课人操作该试听课")
	ErrTeacherRoleRequired = errors.New("操作者必须为教师角色")
	ErrAssigneeNotTeacher  = errors.New("指定的授课人不是教师角色")
	ErrUserNotFound        = errors.New("用户不存在")
)

// ownsCall 归属判断：任课教师或排课人
func ownsCall(actor *model.User, call *model.DemoCall) bool {
	return call.TeacherID == actor.UserID || call.ScheduledBy == actor.UserID
}

// AuthorizeMutation 判定 actor 是否可对既有记录执行变更动作。
// 违规即返回错误，调用方保证此时尚未写入任何状态。
func AuthorizeMutation(action CallAction, actor *model.User, call *model.DemoCall) error {
	level, ok := callPermissions[action][actor.Role]
	if !ok || level == permNone {
		return ErrActionForbidden
	}
	if level == permOwn && !ownsCall(actor, call) {
		return ErrNotCallOwner
	}
	return nil
}

// CanReadCall 判定 actor 是否可见该记录（列表与详情共用）
func CanReadCall(actor *model.User, call *model.DemoCall) bool {
	level, ok := callPermissions[ActionRead][actor.Role]
	if !ok || level == permNone {
		return false
	}
	if level == permAll {
		return true
	}
	if actor.Role == model.RoleStudent {
		// 账号邮箱可能含大写，名单按小写归一化存储，比较须大小写不敏感
		return call.StudentEmails.ContainsFold(actor.Email)
	}
	return ownsCall(actor, call)
}

// ResolveTeacher 解析本次排课的实际授课人。
//
// 管理员可指定任意 teacher_id，但该 id 必须解析到角色恰为 teacher 的用户；
// 其余情况实际授课人即 actor 本人，且 actor 必须为教师。
// 任何违规返回错误，不产生部分状态。
func ResolveTeacher(ctx context.Context, users repository.UserRepository, actor *model.User, requestedTeacherID string) (*model.User, error) {
	isAdmin := actor.Role == model.RoleAdmin || actor.Role == model.RoleSuperAdmin

	if isAdmin && requestedTeacherID != "" {
		teacher, err := users.GetByID(ctx, requestedTeacherID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrUserNotFound
			}
			return nil, err
		}
		if teacher.Role != model.RoleTeacher {
			return nil, ErrAssigneeNotTeacher
		}
		return teacher, nil
	}

	// 其余情况（含管理员未指定授课人）实际授课人即 actor 本人
	if actor.Role != model.RoleTeacher {
		return nil, ErrTeacherRoleRequired
	}
	if requestedTeacherID != "" && requestedTeacherID != actor.UserID {
		// 普通教师不可替他人排课
		return nil, ErrActionForbidden
	}
	return actor, nil
}
