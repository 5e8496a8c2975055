package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/hostel-allocation-api/internal/models"
)

const (
	defaultInboxPage = 50
	maxInboxPage     = 100
)

// NotificationRepository handles persistence for student inbox messages.
type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	ListInbox(ctx context.Context, studentID uint, limit, offset int) ([]models.Notification, error)
	CountUnread(ctx context.Context, studentID uint) (int64, error)
	MarkRead(ctx context.Context, id, studentID uint) (models.Notification, error)
	MarkAllRead(ctx context.Context, studentID uint) (int64, error)
}

type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository constructs a repository backed by GORM.
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}

// ListInbox returns the newest notifications first.
func (r *notificationRepository) ListInbox(ctx context.Context, studentID uint, limit, offset int) ([]models.Notification, error) {
	if limit <= 0 || limit > maxInboxPage {
		limit = defaultInboxPage
	}
	if offset < 0 {
		offset = 0
	}

	var notifications []models.Notification
	err := r.inbox(ctx, studentID).
		Order("created_at DESC").
		Order("id DESC").
		Offset(offset).
		Limit(limit).
		Find(&notifications).Error
	return notifications, err
}

func (r *notificationRepository) CountUnread(ctx context.Context, studentID uint) (int64, error) {
	var count int64
	err := r.inbox(ctx, studentID).
		Where("read_at IS NULL").
		Count(&count).Error
	return count, err
}

func (r *notificationRepository) MarkRead(ctx context.Context, id, studentID uint) (models.Notification, error) {
	var notification models.Notification
	if err := r.inbox(ctx, studentID).Where("id = ?", id).First(&notification).Error; err != nil {
		return models.Notification{}, err
	}
	if notification.IsRead() {
		return notification, nil
	}

	now := time.Now().UTC()
	if err := r.db.WithContext(ctx).Model(&notification).Update("read_at", now).Error; err != nil {
		return models.Notification{}, err
	}
	notification.ReadAt = &now
	return notification, nil
}

// MarkAllRead stamps every unread notification of the student and reports how
// many changed.
func (r *notificationRepository) MarkAllRead(ctx context.Context, studentID uint) (int64, error) {
	result := r.inbox(ctx, studentID).
		Where("read_at IS NULL").
		Update("read_at", time.Now().UTC())
	return result.RowsAffected, result.Error
}

func (r *notificationRepository) inbox(ctx context.Context, studentID uint) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Notification{}).Where("student_id = ?", studentID)
}
