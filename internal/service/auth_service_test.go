package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"democall/backend/config"
	"democall/backend/internal/dto"
	"democall/backend/internal/model"
	"democall/backend/internal/repository"
	"democall/backend/pkg/jwt"
)

// ── 测试辅助 ──

func setupTestAuthService(t *testing.T) (AuthService, *mockUserRepo) {
	t.Helper()
	users := newMockUserRepo()
	repo := &repository.Repository{
		User:         users,
		Call:         newMockCallRepo(),
		Document:     newMockDocumentRepo(),
		Notification: newMockNotificationRepo(),
	}
	jwtMgr := jwt.NewManager(&config.AuthConfig{
		JWTSecret:       "test-secret-key-0123456789",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 168 * time.Hour,
	})
	svc := NewAuthService(repo, jwtMgr, zap.NewNop())
	return svc, users
}

func seedUser(t *testing.T, users *mockUserRepo, email, password, role string) *model.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("生成密码哈希失败: %v", err)
	}
	u := &model.User{
		UserID:       "user-" + email,
		Name:         "测试用户",
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
	}
	users.users[u.UserID] = u
	return u
}

// ── Login 测试 ──

func TestAuthService_Login_Success(t *testing.T) {
	svc, users := setupTestAuthService(t)
	seedUser(t, users, "t1@example.com", "password123", model.RoleTeacher)

	result, err := svc.Login(context.Background(), &dto.LoginRequest{
		Email:    "t1@example.com",
		Password: "password123",
	})
	if err != nil {
		t.Fatalf("Login 应成功: %v", err)
	}
	if result.AccessToken == "" || result.RefreshToken == "" {
		t.Error("应返回完整令牌对")
	}
	if result.User == nil || result.User.Role != model.RoleTeacher {
		t.Errorf("应回带用户信息，实际=%+v", result.User)
	}
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	svc, users := setupTestAuthService(t)
	seedUser(t, users, "t1@example.com", "password123", model.RoleTeacher)

	_, err := svc.Login(context.Background(), &dto.LoginRequest{
		Email:    "t1@example.com",
		Password: "wrong-password",
	})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("期望 ErrInvalidCredentials，实际: %v", err)
	}
}

func TestAuthService_Login_UnknownEmail(t *testing.T) {
	svc, _ := setupTestAuthService(t)

	_, err := svc.Login(context.Background(), &dto.LoginRequest{
		Email:    "ghost@example.com",
		Password: "password123",
	})
	// 未注册邮箱与密码错误返回同一错误，不泄露账号存在性
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("期望 ErrInvalidCredentials，实际: %v", err)
	}
}

// ── GetCurrentUser 测试 ──

func TestAuthService_GetCurrentUser(t *testing.T) {
	svc, users := setupTestAuthService(t)
	u := seedUser(t, users, "t1@example.com", "password123", model.RoleTeacher)

	result, err := svc.GetCurrentUser(context.Background(), u.UserID)
	if err != nil {
		t.Fatalf("GetCurrentUser 应成功: %v", err)
	}
	if result.Email != "t1@example.com" {
		t.Errorf("期望 email=t1@example.com，实际=%s", result.Email)
	}
}

func TestAuthService_GetCurrentUser_NotFound(t *testing.T) {
	svc, _ := setupTestAuthService(t)

	_, err := svc.GetCurrentUser(context.Background(), "nonexistent")
	if !errors.Is(err, ErrUserNotFound) {
		t.Errorf("期望 ErrUserNotFound，实际: %v", err)
	}
}
