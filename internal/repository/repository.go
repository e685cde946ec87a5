package repository

import "gorm.io/gorm"

// Repository 所有 Repository 的聚合入口
type Repository struct {
	User         UserRepository
	Call         CallRepository
	Document     DocumentRepository
	Notification NotificationRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		User:         NewUserRepo(db),
		Call:         NewCallRepo(db),
		Document:     NewDocumentRepo(db),
		Notification: NewNotificationRepo(db),
	}
}
