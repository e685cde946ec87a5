package mailer

// Message 一封待发送的邮件
type Message struct {
	To          []string
	Subject     string
	TextBody    string
	Attachments []Attachment
}

// Attachment 邮件附件
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// HasRecipients 是否存在收件人
func (m *Message) HasRecipients() bool { return len(m.To) > 0 }

// Sender 邮件发送接口
// Send 同步发送单封邮件并返回结果，由调用方决定并发与失败处理策略
type Sender interface {
	Send(msg *Message) error
}
