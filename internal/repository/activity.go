package repository

import (
	"context"

	"chirp/internal/models"

	"gorm.io/gorm"
)

// ActivityRepository appends and reads per-user activity logs.
type ActivityRepository interface {
	Append(ctx context.Context, entry *models.ActivityLog) error
	ListByUser(ctx context.Context, userID uint, limit, offset int) ([]models.ActivityLog, int64, error)
}

type activityRepository struct {
	db *gorm.DB
}

// NewActivityRepository returns an ActivityRepository backed by db.
func NewActivityRepository(db *gorm.DB) ActivityRepository {
	return &activityRepository{db: db}
}

func (r *activityRepository) Append(ctx context.Context, entry *models.ActivityLog) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// ListByUser returns entries oldest first.
func (r *activityRepository) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]models.ActivityLog, int64, error) {
	entries := []models.ActivityLog{}
	var total int64
	db := r.db.WithContext(ctx)
	if err := db.Model(&models.ActivityLog{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	if err := db.Where("user_id = ?", userID).
		Order("created_at ASC, id ASC").
		Limit(limit).
		Offset(offset).
		Find(&entries).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return entries, total, nil
}
