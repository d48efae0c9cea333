package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/Dave1206/Memory-App-sub000/internal/domain"
)

// GormSocialRepository implements SocialRepository using GORM.
type GormSocialRepository struct {
	db *gorm.DB
}

// NewGormSocialRepository creates a new GORM-backed social repository.
func NewGormSocialRepository(db *gorm.DB) *GormSocialRepository {
	return &GormSocialRepository{db: db}
}

func (r *GormSocialRepository) FriendIDs(ctx context.Context, userID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&domain.Friendship{}).
		Where("user_id = ?", userID).
		Pluck("friend_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *GormSocialRepository) UsernamesByIDs(ctx context.Context, ids []uint) (map[uint]string, error) {
	out := make(map[uint]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var users []domain.User
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		out[u.ID] = u.Username
	}
	return out, nil
}

func (r *GormSocialRepository) TouchLastOnline(ctx context.Context, userID uint, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ?", userID).
		Update("last_online", at).Error
}

// Ensure interface is satisfied at compile time.
var _ SocialRepository = (*GormSocialRepository)(nil)
