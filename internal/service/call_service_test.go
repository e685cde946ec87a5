package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"democall/backend/config"
	"democall/backend/internal/dto"
	"democall/backend/internal/model"
	"democall/backend/internal/repository"
	pkgerrors "democall/backend/pkg/errors"
)

// ── 测试辅助 ──

type callServiceFixture struct {
	svc    *callService
	users  *mockUserRepo
	calls  *mockCallRepo
	docs   *mockDocumentRepo
	notifs *mockNotificationRepo
	sender *fakeSender
	bus    *fakeBus
}

func setupTestCallService() *callServiceFixture {
	f := &callServiceFixture{
		users:  newMockUserRepo(),
		calls:  newMockCallRepo(),
		docs:   newMockDocumentRepo(),
		notifs: newMockNotificationRepo(),
		sender: newFakeSender(),
		bus:    newFakeBus(),
	}

	f.users.users["teacher-001"] = testUser("teacher-001", model.RoleTeacher, "t1@example.com")
	f.users.users["teacher-002"] = testUser("teacher-002", model.RoleTeacher, "t2@example.com")
	f.users.users["admin-001"] = testUser("admin-001", model.RoleAdmin, "admin@example.com")
	f.users.users["stu-001"] = testUser("stu-001", model.RoleStudent, "alice@example.com")

	repo := &repository.Repository{
		User:         f.users,
		Call:         f.calls,
		Document:     f.docs,
		Notification: f.notifs,
	}
	logger := zap.NewNop()
	fanout := NewNotificationFanout(f.notifs, f.sender, f.bus, logger)
	cfg := &config.CallConfig{DefaultDurationMinutes: 40, JoinWindowMinutes: 10}

	f.svc = NewCallService(cfg, repo, fanout, logger).(*callService)
	return f
}

func validCreateReq() *dto.CreateCallRequest {
	return &dto.CreateCallRequest{
		ClassType:     "少儿英语 L3",
		MeetingType:   model.MeetingTypeZoom,
		ZoomLink:      "https://zoom.us/j/9876543210?pwd=abc",
		Timezone:      "Asia/Shanghai",
		Date:          "2024-06-10",
		StartTime:     "14:00",
		StudentEmails: []string{"Alice@Example.com", "alice@example.com", "bob@example.com"},
	}
}

// ═══════════════════════════════════════════════════════════
// Create 测试
// ═══════════════════════════════════════════════════════════

func TestCallService_Create_Success(t *testing.T) {
	f := setupTestCallService()

	req := validCreateReq()
	req.Documents = []dto.DocumentPayload{{Name: "预习讲义", URL: "https://docs.example.com/l3.pdf"}}

	result, err := f.svc.Create(context.Background(), req, "teacher-001")
	if err != nil {
		t.Fatalf("Create 应成功: %v", err)
	}
	if result.DurationMinutes != 40 {
		t.Errorf("未传时长应回退默认 40，实际=%d", result.DurationMinutes)
	}
	if len(result.Documents) != 1 {
		t.Errorf("期望回执含 1 个附件，实际=%d", len(result.Documents))
	}

	stored, err := f.calls.GetByID(context.Background(), result.CallID)
	if err != nil {
		t.Fatalf("创建后应可查到记录: %v", err)
	}
	if stored.Status != model.CallStatusScheduled {
		t.Errorf("期望状态 scheduled，实际=%s", stored.Status)
	}
	if stored.EndTime != "14:40" {
		t.Errorf("期望派生 end_time=14:40，实际=%s", stored.EndTime)
	}
	if stored.TeacherID != "teacher-001" || stored.ScheduledBy != "teacher-001" {
		t.Errorf("授课人与排课人均应为操作者本人: teacher=%s scheduler=%s", stored.TeacherID, stored.ScheduledBy)
	}
	// 学生邮箱去重并小写归一化
	if len(stored.StudentEmails) != 2 {
		t.Errorf("期望去重后 2 个学生邮箱，实际=%v", stored.StudentEmails)
	}
	if !stored.StudentEmails.Contains("alice@example.com") || !stored.StudentEmails.Contains("bob@example.com") {
		t.Errorf("邮箱归一化结果不符: %v", stored.StudentEmails)
	}
	if stored.MeetingID == nil || *stored.MeetingID != "9876543210" {
		t.Errorf("应从 zoom 链接提取会议号，实际=%v", stored.MeetingID)
	}
	if len(stored.NotificationIDs) != 1 {
		t.Errorf("应记录 1 条通知引用，实际=%v", stored.NotificationIDs)
	}
}

func TestCallService_Create_ExplicitDuration(t *testing.T) {
	f := setupTestCallService()

	req := validCreateReq()
	req.DurationMinutes = 90

	result, err := f.svc.Create(context.Background(), req, "teacher-001")
	if err != nil {
		t.Fatalf("Create 应成功: %v", err)
	}
	stored, _ := f.calls.GetByID(context.Background(), result.CallID)
	if stored.EndTime != "15:30" {
		t.Errorf("90 分钟课程期望 end_time=15:30，实际=%s", stored.EndTime)
	}
}

func TestCallService_Create_CollectsAllViolations(t *testing.T) {
	f := setupTestCallService()

	req := &dto.CreateCallRequest{
		ClassType:     "  ",
		MeetingType:   model.MeetingTypeZoom,
		Timezone:      "Mars/Olympus",
		Date:          "06/10/2024",
		StartTime:     "99:99",
		StudentEmails: []string{"not-an-email"},
		Documents:     []dto.DocumentPayload{{Name: "https://x.com/a.pdf", URL: "https://x.com/a.pdf"}},
	}

	_, err := f.svc.Create(context.Background(), req, "teacher-001")
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("期望 ValidationError，实际: %v", err)
	}
	want := []string{"class_type", "zoom_link", "timezone", "date", "start_time", "student_emails", "documents"}
	if len(vErr.Fields) != len(want) {
		t.Errorf("期望一次性收集 %d 个违规字段，实际=%v", len(want), vErr.Fields)
	}
	// 校验失败不得产生任何写入
	if len(f.calls.calls) != 0 {
		t.Error("校验失败后不应持久化任何记录")
	}
	if len(f.notifs.notifications) != 0 {
		t.Error("校验失败后不应产生通知")
	}
	if len(f.sender.sent) != 0 {
		t.Error("校验失败后不应发送邮件")
	}
}

func TestCallService_Create_StudentForbidden(t *testing.T) {
	f := setupTestCallService()

	_, err := f.svc.Create(context.Background(), validCreateReq(), "stu-001")
	if !errors.Is(err, ErrActionForbidden) {
		t.Errorf("期望 ErrActionForbidden，实际: %v", err)
	}
}

func TestCallService_Create_AdminAssignsTeacher(t *testing.T) {
	f := setupTestCallService()

	req := validCreateReq()
	req.TeacherID = "teacher-002"

	result, err := f.svc.Create(context.Background(), req, "admin-001")
	if err != nil {
		t.Fatalf("Create 应成功: %v", err)
	}
	stored, _ := f.calls.GetByID(context.Background(), result.CallID)
	if stored.TeacherID != "teacher-002" {
		t.Errorf("期望授课人 teacher-002，实际=%s", stored.TeacherID)
	}
	if stored.ScheduledBy != "admin-001" {
		t.Errorf("排课人应为管理员，实际=%s", stored.ScheduledBy)
	}
	// 站内通知落给授课教师而非操作者
	for _, n := range f.notifs.notifications {
		if n.UserID != "teacher-002" {
			t.Errorf("站内通知应发给授课教师，实际=%s", n.UserID)
		}
	}
}

func TestCallService_Create_AdminWithoutTeacher(t *testing.T) {
	f := setupTestCallService()

	_, err := f.svc.Create(context.Background(), validCreateReq(), "admin-001")
	if !errors.Is(err, ErrTeacherRoleRequired) {
		t.Errorf("管理员未指定授课人时期望 ErrTeacherRoleRequired，实际: %v", err)
	}
}

// ═══════════════════════════════════════════════════════════
// Reschedule 测试
// ═══════════════════════════════════════════════════════════

func createScheduledCall(t *testing.T, f *callServiceFixture) string {
	t.Helper()
	result, err := f.svc.Create(context.Background(), validCreateReq(), "teacher-001")
	if err != nil {
		t.Fatalf("前置创建失败: %v", err)
	}
	return result.CallID
}

func strPtr(s string) *string { return &s }

func TestCallService_Reschedule_PartialPatch(t *testing.T) {
	f := setupTestCallService()
	callID := createScheduledCall(t, f)

	req := &dto.RescheduleCallRequest{
		Date:            strPtr("2024-06-15"),
		StartTime:       strPtr("10:00"),
		UseExistingLink: true,
	}
	_, err := f.svc.Reschedule(context.Background(), callID, req, "teacher-001")
	if err != nil {
		t.Fatalf("Reschedule 应成功: %v", err)
	}

	stored, _ := f.calls.GetByID(context.Background(), callID)
	if stored.Status != model.CallStatusRescheduled {
		t.Errorf("期望状态 rescheduled，实际=%s", stored.Status)
	}
	// 省略字段回退当前值
	if stored.ClassType != "少儿英语 L3" {
		t.Errorf("未传 class_type 应保留原值，实际=%s", stored.ClassType)
	}
	if stored.Timezone != "Asia/Shanghai" {
		t.Errorf("未传 timezone 应保留原值，实际=%s", stored.Timezone)
	}
	if stored.DurationMinutes != 40 {
		t.Errorf("未传 duration_minutes 应保留原值，实际=%d", stored.DurationMinutes)
	}
	if len(stored.StudentEmails) != 2 ||
		!stored.StudentEmails.Contains("alice@example.com") ||
		!stored.StudentEmails.Contains("bob@example.com") {
		t.Errorf("未传 student_emails 应保留原名单，实际=%v", stored.StudentEmails)
	}
	if stored.MeetingType != model.MeetingTypeZoom {
		t.Errorf("未传 meeting_type 应保留原值，实际=%s", stored.MeetingType)
	}
	if stored.Date != "2024-06-15" || stored.StartTime != "10:00" || stored.EndTime != "10:40" {
		t.Errorf("新排期不符: %s %s-%s", stored.Date, stored.StartTime, stored.EndTime)
	}
	// 覆盖前快照原排期
	if stored.PrevDate == nil || *stored.PrevDate != "2024-06-10" {
		t.Errorf("期望 previous_date=2024-06-10，实际=%v", stored.PrevDate)
	}
	if stored.PrevStartTime == nil || *stored.PrevStartTime != "14:00" {
		t.Errorf("期望 previous_start_time=14:00，实际=%v", stored.PrevStartTime)
	}
	if stored.PrevEndTime == nil || *stored.PrevEndTime != "14:40" {
		t.Errorf("期望 previous_end_time=14:40，实际=%v", stored.PrevEndTime)
	}
	// 通知引用清空后重新累计
	if len(stored.NotificationIDs) != 1 {
		t.Errorf("改期后应只含本次通知引用，实际=%v", stored.NotificationIDs)
	}
}

func TestCallService_Reschedule_UseExistingLink(t *testing.T) {
	f := setupTestCallService()
	callID := createScheduledCall(t, f)

	req := &dto.RescheduleCallRequest{
		Date:            strPtr("2024-06-15"),
		MeetingType:     strPtr(model.MeetingTypeExternal),
		UseExistingLink: true,
	}
	_, err := f.svc.Reschedule(context.Background(), callID, req, "teacher-001")
	if err != nil {
		t.Fatalf("Reschedule 应成功: %v", err)
	}

	stored, _ := f.calls.GetByID(context.Background(), callID)
	if stored.MeetingLink != "https://zoom.us/j/9876543210?pwd=abc" {
		t.Errorf("use_existing_link 应原样保留链接，实际=%s", stored.MeetingLink)
	}
	if stored.MeetingID == nil || *stored.MeetingID != "9876543210" {
		t.Errorf("use_existing_link 应原样保留会议号，实际=%v", stored.MeetingID)
	}
}

func TestCallService_Reschedule_NewLink(t *testing.T) {
	f := setupTestCallService()
	callID := createScheduledCall(t, f)

	req := &dto.RescheduleCallRequest{
		ZoomLink: strPtr("https://zoom.us/j/1112223334"),
	}
	_, err := f.svc.Reschedule(context.Background(), callID, req, "teacher-001")
	if err != nil {
		t.Fatalf("Reschedule 应成功: %v", err)
	}

	stored, _ := f.calls.GetByID(context.Background(), callID)
	if stored.MeetingLink != "https://zoom.us/j/1112223334" {
		t.Errorf("期望新链接生效，实际=%s", stored.MeetingLink)
	}
	if stored.MeetingID == nil || *stored.MeetingID != "1112223334" {
		t.Errorf("期望重新提取会议号，实际=%v", stored.MeetingID)
	}
}

func TestCallService_Reschedule_TeacherCannotReassign(t *testing.T) {
	// 改派授课人是管理员能力；排课教师传入自身 id 同样视为改派并被拒绝
	f := setupTestCallService()
	f.calls.calls["call-x"] = model.DemoCall{
		CallID:          "call-x",
		ClassType:       "少儿英语 L3",
		MeetingType:     model.MeetingTypeZoom,
		MeetingLink:     "https://zoom.us/j/9876543210",
		Date:            "2024-06-10",
		StartTime:       "14:00",
		EndTime:         "14:40",
		Timezone:        "Asia/Shanghai",
		DurationMinutes: 40,
		Status:          model.CallStatusScheduled,
		ScheduledBy:     "teacher-002",
		TeacherID:       "teacher-001",
		StudentEmails:   model.StringArray{"alice@example.com"},
		VersionedModel:  model.VersionedModel{Version: 1},
	}

	req := &dto.RescheduleCallRequest{
		TeacherID:       strPtr("teacher-002"),
		UseExistingLink: true,
	}
	_, err := f.svc.Reschedule(context.Background(), "call-x", req, "teacher-002")
	if !errors.Is(err, ErrActionForbidden) {
		t.Errorf("排课教师改派授课人期望 ErrActionForbidden，实际: %v", err)
	}
	stored := f.calls.calls["call-x"]
	if stored.TeacherID != "teacher-001" {
		t.Errorf("被拒绝的改派不应落库，实际授课人=%s", stored.TeacherID)
	}
}

func TestCallService_Reschedule_AdminReassign(t *testing.T) {
	f := setupTestCallService()
	callID := createScheduledCall(t, f)

	req := &dto.RescheduleCallRequest{
		TeacherID:       strPtr("teacher-002"),
		UseExistingLink: true,
	}
	_, err := f.svc.Reschedule(context.Background(), callID, req, "admin-001")
	if err != nil {
		t.Fatalf("管理员改派授课人应成功: %v", err)
	}
	stored, _ := f.calls.GetByID(context.Background(), callID)
	if stored.TeacherID != "teacher-002" {
		t.Errorf("期望授课人改派为 teacher-002，实际=%s", stored.TeacherID)
	}
}

func TestCallService_Reschedule_NotOwner(t *testing.T) {
	f := setupTestCallService()
	callID := createScheduledCall(t, f)

	req := &dto.RescheduleCallRequest{Date: strPtr("2024-06-15"), UseExistingLink: true}
	_, err := f.svc.Reschedule(context.Background(), callID, req, "teacher-002")
	if !errors.Is(err, ErrNotCallOwner) {
		t.Errorf("期望 ErrNotCallOwner，实际: %v", err)
	}
}

func TestCallService_Reschedule_CancelledCall(t *testing.T) {
	f := setupTestCallService()
	callID := createScheduledCall(t, f)

	if _, err := f.svc.Cancel(context.Background(), callID, "teacher-001"); err != nil {
		t.Fatalf("前置取消失败: %v", err)
	}

	req := &dto.RescheduleCallRequest{Date: strPtr("2024-06-15"), UseExistingLink: true}
	_, err := f.svc.Reschedule(context.Background(), callID, req, "teacher-001")
	if !errors.Is(err, ErrCallNotReschedulable) {
		t.Errorf("期望 ErrCallNotReschedulable，实际: %v", err)
	}
}

func TestCallService_Reschedule_Twice(t *testing.T) {
	// rescheduled 状态允许再次改期
	f := setupTestCallService()
	callID := createScheduledCall(t, f)

	req1 := &dto.RescheduleCallRequest{Date: strPtr("2024-06-15"), UseExistingLink: true}
	if _, err := f.svc.Reschedule(context.Background(), callID, req1, "teacher-001"); err != nil {
		t.Fatalf("第一次改期失败: %v", err)
	}
	req2 := &dto.RescheduleCallRequest{Date: strPtr("2024-06-20"), UseExistingLink: true}
	if _, err := f.svc.Reschedule(context.Background(), callID, req2, "teacher-001"); err != nil {
		t.Fatalf("第二次改期应成功: %v", err)
	}

	stored, _ := f.calls.GetByID(context.Background(), callID)
	if stored.Date != "2024-06-20" {
		t.Errorf("期望 date=2024-06-20，实际=%s", stored.Date)
	}
	// 快照记录的是上一次排期而非最初排期
	if stored.PrevDate == nil || *stored.PrevDate != "2024-06-15" {
		t.Errorf("期望 previous_date=2024-06-15，实际=%v", stored.PrevDate)
	}
}

// ═══════════════════════════════════════════════════════════
// Cancel 测试
// ═══════════════════════════════════════════════════════════

func TestCallService_Cancel_Success(t *testing.T) {
	f := setupTestCallService()
	callID := createScheduledCall(t, f)

	result, err := f.svc.Cancel(context.Background(), callID, "teacher-001")
	if err != nil {
		t.Fatalf("Cancel 应成功: %v", err)
	}
	if result.CallID != callID {
		t.Errorf("回执 call_id 不符: %s", result.CallID)
	}

	stored, _ := f.calls.GetByID(context.Background(), callID)
	if stored.Status != model.CallStatusCancelled {
		t.Errorf("期望状态 cancelled，实际=%s", stored.Status)
	}
	if stored.PrevDate == nil || *stored.PrevDate != "2024-06-10" {
		t.Errorf("取消时应快照原排期，实际=%v", stored.PrevDate)
	}
}

func TestCallService_Cancel_AlreadyCancelled(t *testing.T) {
	f := setupTestCallService()
	callID := createScheduledCall(t, f)

	if _, err := f.svc.Cancel(context.Background(), callID, "teacher-001"); err != nil {
		t.Fatalf("第一次取消失败: %v", err)
	}
	_, err := f.svc.Cancel(context.Background(), callID, "teacher-001")
	if !errors.Is(err, ErrCallNotCancellable) {
		t.Errorf("重复取消期望 ErrCallNotCancellable，实际: %v", err)
	}
}

func TestCallService_Cancel_CompletedCall(t *testing.T) {
	f := setupTestCallService()
	callID := createScheduledCall(t, f)

	stored := f.calls.calls[callID]
	stored.Status = model.CallStatusCompleted
	f.calls.calls[callID] = stored

	_, err := f.svc.Cancel(context.Background(), callID, "teacher-001")
	if !errors.Is(err, ErrCallNotCancellable) {
		t.Errorf("已完成课程取消期望 ErrCallNotCancellable，实际: %v", err)
	}
}

func TestCallService_Cancel_OptimisticLockConflict(t *testing.T) {
	f := setupTestCallService()
	callID := createScheduledCall(t, f)

	// 模拟并发写入者在读取与提交之间抢先落库
	f.calls.updateErr = pkgerrors.ErrOptimisticLock

	_, err := f.svc.Cancel(context.Background(), callID, "teacher-001")
	if !errors.Is(err, pkgerrors.ErrOptimisticLock) {
		t.Errorf("期望 ErrOptimisticLock，实际: %v", err)
	}
}

func TestCallService_Cancel_NotFound(t *testing.T) {
	f := setupTestCallService()

	_, err := f.svc.Cancel(context.Background(), "nonexistent", "teacher-001")
	if !errors.Is(err, ErrCallNotFound) {
		t.Errorf("期望 ErrCallNotFound，实际: %v", err)
	}
}

// ═══════════════════════════════════════════════════════════
// 查询测试
// ═══════════════════════════════════════════════════════════

func TestCallService_Get_StudentVisibility(t *testing.T) {
	f := setupTestCallService()
	callID := createScheduledCall(t, f)

	// 名单内学生可见
	if _, err := f.svc.Get(context.Background(), callID, "stu-001"); err != nil {
		t.Errorf("名单内学生应可见: %v", err)
	}

	// 名单外学生对不可见记录收到 404 而非 403
	outsider := testUser("stu-002", model.RoleStudent, "carol@example.com")
	f.users.users[outsider.UserID] = outsider
	_, err := f.svc.Get(context.Background(), callID, "stu-002")
	if !errors.Is(err, ErrCallNotFound) {
		t.Errorf("名单外学生期望 ErrCallNotFound，实际: %v", err)
	}
}

func TestCallService_StudentVisibility_MixedCaseEmail(t *testing.T) {
	// 账号邮箱含大写、名单小写归一化存储时，学生依然应可见本人课程
	f := setupTestCallService()
	mixed := testUser("stu-003", model.RoleStudent, "Carol@Example.COM")
	f.users.users[mixed.UserID] = mixed

	req := validCreateReq()
	req.StudentEmails = []string{"Carol@example.com"}
	result, err := f.svc.Create(context.Background(), req, "teacher-001")
	if err != nil {
		t.Fatalf("前置创建失败: %v", err)
	}

	if _, err := f.svc.Get(context.Background(), result.CallID, "stu-003"); err != nil {
		t.Errorf("账号邮箱大小写混合的学生应可见本人课程: %v", err)
	}

	list, total, err := f.svc.List(context.Background(), &dto.CallListRequest{}, "stu-003")
	if err != nil {
		t.Fatalf("List 应成功: %v", err)
	}
	if total != 1 || len(list) != 1 {
		t.Errorf("列表应包含本人课程，实际 total=%d", total)
	}
}

func TestCallService_List_TeacherScope(t *testing.T) {
	f := setupTestCallService()
	createScheduledCall(t, f)

	// teacher-002 名下无课
	list, total, err := f.svc.List(context.Background(), &dto.CallListRequest{}, "teacher-002")
	if err != nil {
		t.Fatalf("List 应成功: %v", err)
	}
	if total != 0 || len(list) != 0 {
		t.Errorf("无关教师不应看到他人课程，实际 total=%d", total)
	}

	list, total, err = f.svc.List(context.Background(), &dto.CallListRequest{}, "teacher-001")
	if err != nil {
		t.Fatalf("List 应成功: %v", err)
	}
	if total != 1 || len(list) != 1 {
		t.Errorf("任课教师应看到本人课程，实际 total=%d", total)
	}
}

func TestCallService_Joinable_Window(t *testing.T) {
	f := setupTestCallService()
	callID := createScheduledCall(t, f)

	// 上海 2024-06-10 14:00 = UTC 06:00
	f.svc.now = func() time.Time { return time.Date(2024, 6, 10, 5, 55, 0, 0, time.UTC) }
	result, err := f.svc.Joinable(context.Background(), callID, "teacher-001")
	if err != nil {
		t.Fatalf("Joinable 应成功: %v", err)
	}
	if !result.Joinable {
		t.Error("开课前 5 分钟应可加入")
	}

	f.svc.now = func() time.Time { return time.Date(2024, 6, 10, 5, 40, 0, 0, time.UTC) }
	result, _ = f.svc.Joinable(context.Background(), callID, "teacher-001")
	if result.Joinable {
		t.Error("开课前 20 分钟不应可加入")
	}
}

func TestCallService_Joinable_CancelledAlwaysFalse(t *testing.T) {
	f := setupTestCallService()
	callID := createScheduledCall(t, f)
	if _, err := f.svc.Cancel(context.Background(), callID, "teacher-001"); err != nil {
		t.Fatalf("前置取消失败: %v", err)
	}

	f.svc.now = func() time.Time { return time.Date(2024, 6, 10, 5, 55, 0, 0, time.UTC) }
	result, err := f.svc.Joinable(context.Background(), callID, "teacher-001")
	if err != nil {
		t.Fatalf("Joinable 应成功: %v", err)
	}
	if result.Joinable {
		t.Error("已取消课程任何时刻都不可加入")
	}
}

func TestCallService_Invite_ContainsSchedule(t *testing.T) {
	f := setupTestCallService()
	callID := createScheduledCall(t, f)

	data, err := f.svc.Invite(context.Background(), callID, "teacher-001")
	if err != nil {
		t.Fatalf("Invite 应成功: %v", err)
	}
	ics := string(data)
	if !strings.Contains(ics, "BEGIN:VCALENDAR") || !strings.Contains(ics, "BEGIN:VEVENT") {
		t.Errorf("日历邀请内容不完整:\n%s", ics)
	}
}

// ── 通知失败语义 ──

func TestCallService_Create_NotificationPersistFatal(t *testing.T) {
	f := setupTestCallService()
	boom := errors.New("数据库不可用")
	f.notifs.createErr = boom

	_, err := f.svc.Create(context.Background(), validCreateReq(), "teacher-001")
	if !errors.Is(err, boom) {
		t.Errorf("持久化通知失败应使请求失败，实际: %v", err)
	}
}

func TestCallService_Create_EmailFailureNotFatal(t *testing.T) {
	f := setupTestCallService()
	f.sender.failFor["bob@example.com"] = errors.New("smtp 超时")

	result, err := f.svc.Create(context.Background(), validCreateReq(), "teacher-001")
	if err != nil {
		t.Fatalf("邮件单路失败不应使请求失败: %v", err)
	}
	stored, _ := f.calls.GetByID(context.Background(), result.CallID)
	if stored.Status != model.CallStatusScheduled {
		t.Errorf("记录应正常落库，实际状态=%s", stored.Status)
	}
}
