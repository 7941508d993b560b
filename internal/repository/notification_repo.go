package repository

import (
	"context"
	"time"

	"sitesupply/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NotificationRepository interface {
	CreateBatch(ctx context.Context, notifications []model.Notification) error
	ListForRecipient(ctx context.Context, recipientID uuid.UUID, unreadOnly bool, page, limit int) ([]model.Notification, int64, error)
	MarkRead(ctx context.Context, id, recipientID uuid.UUID, at time.Time) (bool, error)
}

type notificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) CreateBatch(ctx context.Context, notifications []model.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	return GetDB(ctx, r.db).Create(&notifications).Error
}

func (r *notificationRepository) ListForRecipient(ctx context.Context, recipientID uuid.UUID, unreadOnly bool, page, limit int) ([]model.Notification, int64, error) {
	var rows []model.Notification
	var total int64

	db := GetDB(ctx, r.db).Model(&model.Notification{}).Where("recipient_id = ?", recipientID)
	if unreadOnly {
		db = db.Where("read_at IS NULL")
	}
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Order("created_at DESC").Offset(offset).Limit(limit).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// MarkRead reports false when the notification does not belong to recipient.
func (r *notificationRepository) MarkRead(ctx context.Context, id, recipientID uuid.UUID, at time.Time) (bool, error) {
	res := GetDB(ctx, r.db).Model(&model.Notification{}).
		Where("id = ? AND recipient_id = ?", id, recipientID).
		Update("read_at", at)
	return res.RowsAffected > 0, res.Error
}
