package service

import (
	"go.uber.org/zap"

	"democall/backend/config"
	"democall/backend/internal/repository"
	"democall/backend/pkg/jwt"
	"democall/backend/pkg/mailer"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Auth         AuthService
	Call         CallService
	Notification NotificationService
	Export       ExportService
}

// NewService 创建 Service 聚合
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	sender mailer.Sender,
	bus RealtimeBus,
	logger *zap.Logger,
) *Service {
	fanout := NewNotificationFanout(repo.Notification, sender, bus, logger)

	return &Service{
		Auth:         NewAuthService(repo, jwtMgr, logger),
		Call:         NewCallService(&cfg.Call, repo, fanout, logger),
		Notification: NewNotificationService(repo, logger),
		Export:       NewExportService(repo, logger),
	}
}
