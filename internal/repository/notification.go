package repository

import (
	"context"

	"chirp/internal/models"

	"gorm.io/gorm"
)

// NotificationRepository stores notifications. Reading the list is a state transition:
// ListAndMarkRead flips unread entries to read, CountUnread never mutates.
type NotificationRepository interface {
	CreateBatch(ctx context.Context, items []*models.Notification) error
	ListAndMarkRead(ctx context.Context, userID uint, limit, offset int) ([]models.Notification, int64, error)
	CountUnread(ctx context.Context, userID uint) (int64, error)
}

type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository returns a NotificationRepository backed by db.
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) CreateBatch(ctx context.Context, items []*models.Notification) error {
	if len(items) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).CreateInBatches(items, 200).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// visibleTo scopes a query to the user's notifications, hiding those whose actor the
// user has blocked.
func visibleTo(userID uint) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("user_id = ?", userID).
			Where("actor_id IS NULL OR actor_id NOT IN (?)", blockedIDs(db, userID))
	}
}

// ListAndMarkRead returns a page of the user's visible notifications as they were before the
// read, then marks every unread notification of the user that existed when the read started.
// Rows inserted concurrently stay unread.
func (r *notificationRepository) ListAndMarkRead(ctx context.Context, userID uint, limit, offset int) ([]models.Notification, int64, error) {
	items := []models.Notification{}
	var total int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cutoff uint
		if err := tx.Model(&models.Notification{}).
			Where("user_id = ?", userID).
			Select("COALESCE(MAX(id), 0)").
			Scan(&cutoff).Error; err != nil {
			return err
		}
		if cutoff == 0 {
			return nil
		}

		upToCutoff := func(db *gorm.DB) *gorm.DB { return db.Where("id <= ?", cutoff) }
		if err := tx.Model(&models.Notification{}).Scopes(visibleTo(userID), upToCutoff).Count(&total).Error; err != nil {
			return err
		}
		if err := tx.Scopes(visibleTo(userID), upToCutoff).
			Order("created_at DESC, id DESC").
			Limit(limit).
			Offset(offset).
			Find(&items).Error; err != nil {
			return err
		}
		return markReadUpTo(tx, userID, cutoff)
	})
	if err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return items, total, nil
}

func markReadUpTo(tx *gorm.DB, userID, cutoff uint) error {
	return tx.Model(&models.Notification{}).
		Where("user_id = ? AND read = ? AND id <= ?", userID, false, cutoff).
		UpdateColumn("read", true).Error
}

// CountUnread counts the unread notifications ListAndMarkRead would show.
func (r *notificationRepository) CountUnread(ctx context.Context, userID uint) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Notification{}).
		Scopes(visibleTo(userID)).
		Where("read = ?", false).
		Count(&n).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return n, nil
}
