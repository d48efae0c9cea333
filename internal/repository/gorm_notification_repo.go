package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/Dave1206/Memory-App-sub000/internal/domain"
)

// GormNotificationRepository implements NotificationRepository using GORM.
type GormNotificationRepository struct {
	db *gorm.DB
}

// NewGormNotificationRepository creates a new GORM-backed notification repository.
func NewGormNotificationRepository(db *gorm.DB) *GormNotificationRepository {
	return &GormNotificationRepository{db: db}
}

func (r *GormNotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *GormNotificationRepository) ForRecipient(ctx context.Context, userID uint) ([]domain.Notification, error) {
	var out []domain.Notification
	err := r.db.WithContext(ctx).
		Where("recipient_id = ?", userID).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// MarkRead flips the read flag on the recipient's own notifications only;
// ids belonging to other users are silently ignored.
func (r *GormNotificationRepository) MarkRead(ctx context.Context, userID uint, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&domain.Notification{}).
		Where("recipient_id = ? AND id IN ?", userID, ids).
		Update("read", true).Error
}

func (r *GormNotificationRepository) Delete(ctx context.Context, userID uint, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Where("recipient_id = ? AND id IN ?", userID, ids).
		Delete(&domain.Notification{}).Error
}

// Ensure interface is satisfied at compile time.
var _ NotificationRepository = (*GormNotificationRepository)(nil)
