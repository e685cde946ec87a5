package repository

import (
	"context"

	"gorm.io/gorm"

	"democall/backend/internal/model"
)

// DocumentRepository 试听课附件数据访问接口
type DocumentRepository interface {
	BatchCreate(ctx context.Context, docs []model.CallDocument) error
	ListByCall(ctx context.Context, callID string) ([]model.CallDocument, error)
}

type documentRepo struct {
	db *gorm.DB
}

// NewDocumentRepo 创建 DocumentRepository 实现
func NewDocumentRepo(db *gorm.DB) DocumentRepository {
	return &documentRepo{db: db}
}

func (r *documentRepo) BatchCreate(ctx context.Context, docs []model.CallDocument) error {
	if len(docs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&docs).Error
}

func (r *documentRepo) ListByCall(ctx context.Context, callID string) ([]model.CallDocument, error) {
	var docs []model.CallDocument
	err := r.db.WithContext(ctx).
		Where("call_id = ?", callID).
		Order("uploaded_at ASC").
		Find(&docs).Error
	return docs, err
}
