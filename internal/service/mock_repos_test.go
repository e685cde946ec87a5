package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"gorm.io/gorm"

	"democall/backend/internal/model"
	"democall/backend/internal/repository"
	pkgerrors "democall/backend/pkg/errors"
	"democall/backend/pkg/mailer"
)

// ── Mock UserRepository ──

type mockUserRepo struct {
	users map[string]*model.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	if user.UserID == "" {
		user.UserID = "user-" + user.Email
	}
	m.users[user.UserID] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

// ── Mock CallRepository ──

// mockCallRepo 存储副本而非指针，模拟真实数据库的读写隔离。
type mockCallRepo struct {
	calls     map[string]model.DemoCall
	seq       int
	updateErr error // 非 nil 时下一次 Update 返回该错误（模拟并发冲突等写入失败）
}

func newMockCallRepo() *mockCallRepo {
	return &mockCallRepo{calls: make(map[string]model.DemoCall)}
}

func (m *mockCallRepo) Create(_ context.Context, call *model.DemoCall) error {
	if call.CallID == "" {
		m.seq++
		call.CallID = fmt.Sprintf("call-%03d", m.seq)
	}
	if call.Version == 0 {
		call.Version = 1
	}
	m.calls[call.CallID] = *call
	return nil
}

func (m *mockCallRepo) GetByID(_ context.Context, id string) (*model.DemoCall, error) {
	if c, ok := m.calls[id]; ok {
		out := c
		return &out, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockCallRepo) List(_ context.Context, filter repository.CallFilter) ([]model.DemoCall, int64, error) {
	var result []model.DemoCall
	for _, c := range m.calls {
		if filter.Status != "" && c.Status != filter.Status {
			continue
		}
		if filter.TeacherOrScheduler != "" &&
			c.TeacherID != filter.TeacherOrScheduler && c.ScheduledBy != filter.TeacherOrScheduler {
			continue
		}
		if filter.StudentEmail != "" && !c.StudentEmails.Contains(filter.StudentEmail) {
			continue
		}
		result = append(result, c)
	}
	// map 遍历无序，排序后再分页保证翻页结果稳定
	sort.Slice(result, func(i, j int) bool { return result[i].CallID < result[j].CallID })
	total := int64(len(result))

	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return nil, total, nil
		}
		result = result[filter.Offset:]
	}
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, total, nil
}

func (m *mockCallRepo) Update(_ context.Context, call *model.DemoCall) error {
	if m.updateErr != nil {
		err := m.updateErr
		m.updateErr = nil
		return err
	}
	stored, ok := m.calls[call.CallID]
	if !ok || stored.Version != call.Version {
		return pkgerrors.ErrOptimisticLock
	}
	call.Version++
	m.calls[call.CallID] = *call
	return nil
}

// ── Mock DocumentRepository ──

type mockDocumentRepo struct {
	docs []model.CallDocument
	seq  int
}

func newMockDocumentRepo() *mockDocumentRepo {
	return &mockDocumentRepo{}
}

func (m *mockDocumentRepo) BatchCreate(_ context.Context, docs []model.CallDocument) error {
	for i := range docs {
		if docs[i].DocumentID == "" {
			m.seq++
			docs[i].DocumentID = fmt.Sprintf("doc-%03d", m.seq)
		}
	}
	m.docs = append(m.docs, docs...)
	return nil
}

func (m *mockDocumentRepo) ListByCall(_ context.Context, callID string) ([]model.CallDocument, error) {
	var result []model.CallDocument
	for _, d := range m.docs {
		if d.CallID == callID {
			result = append(result, d)
		}
	}
	return result, nil
}

// ── Mock NotificationRepository ──

type mockNotificationRepo struct {
	notifications map[string]*model.Notification
	seq           int
	createErr     error // 非 nil 时 Create 直接失败
}

func newMockNotificationRepo() *mockNotificationRepo {
	return &mockNotificationRepo{notifications: make(map[string]*model.Notification)}
}

func (m *mockNotificationRepo) Create(_ context.Context, n *model.Notification) error {
	if m.createErr != nil {
		return m.createErr
	}
	if n.NotificationID == "" {
		m.seq++
		n.NotificationID = fmt.Sprintf("notif-%03d", m.seq)
	}
	m.notifications[n.NotificationID] = n
	return nil
}

func (m *mockNotificationRepo) GetByID(_ context.Context, id string) (*model.Notification, error) {
	if n, ok := m.notifications[id]; ok {
		return n, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockNotificationRepo) ListByUser(_ context.Context, userID string, unreadOnly bool, _, _ int) ([]model.Notification, int64, error) {
	var result []model.Notification
	for _, n := range m.notifications {
		if n.UserID != userID {
			continue
		}
		if unreadOnly && n.IsRead {
			continue
		}
		result = append(result, *n)
	}
	return result, int64(len(result)), nil
}

func (m *mockNotificationRepo) MarkRead(_ context.Context, id string) error {
	if n, ok := m.notifications[id]; ok {
		n.IsRead = true
		return nil
	}
	return gorm.ErrRecordNotFound
}

// ── Fake mailer.Sender ──

// fakeSender 记录发出的全部邮件；failFor 中列出的收件人发送失败。
type fakeSender struct {
	mu      sync.Mutex
	sent    []*mailer.Message
	failFor map[string]error
}

func newFakeSender() *fakeSender {
	return &fakeSender{failFor: make(map[string]error)}
}

func (f *fakeSender) Send(msg *mailer.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, to := range msg.To {
		if err, ok := f.failFor[to]; ok {
			return err
		}
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeSender) sentTo(email string) *mailer.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.sent {
		for _, to := range m.To {
			if to == email {
				return m
			}
		}
	}
	return nil
}

// ── Fake RealtimeBus ──

type fakeBus struct {
	mu     sync.Mutex
	events []RealtimeEvent
	err    error
}

func newFakeBus() *fakeBus {
	return &fakeBus{}
}

func (f *fakeBus) PublishToUser(_ context.Context, _ string, event interface{}) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if e, ok := event.(RealtimeEvent); ok {
		f.events = append(f.events, e)
	}
	return nil
}
