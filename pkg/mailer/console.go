package mailer

import (
	"strings"

	"go.uber.org/zap"

	"democall/backend/config"
)

// ConsoleSender 将邮件输出到日志的发送实现（开发环境）
type ConsoleSender struct {
	subjPrefix string
	logger     *zap.Logger
}

var _ Sender = (*ConsoleSender)(nil)

// NewConsoleSender 创建控制台发送器
func NewConsoleSender(cfg *config.MailConfig, logger *zap.Logger) *ConsoleSender {
	return &ConsoleSender{subjPrefix: cfg.SubjectPrefix, logger: logger}
}

// Send 输出邮件内容到日志
func (s *ConsoleSender) Send(msg *Message) error {
	names := make([]string, 0, len(msg.Attachments))
	for _, at := range msg.Attachments {
		names = append(names, at.Filename)
	}
	s.logger.Info("控制台邮件",
		zap.Strings("to", msg.To),
		zap.String("subject", s.subjPrefix+msg.Subject),
		zap.String("body", msg.TextBody),
		zap.String("attachments", strings.Join(names, ", ")),
	)
	return nil
}
