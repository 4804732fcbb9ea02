package repository

import (
	"context"
	"errors"

	"chirp/internal/models"

	"gorm.io/gorm"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) error
	IDsExcept(ctx context.Context, excludeID uint) ([]uint, error)
	Count(ctx context.Context) (int64, error)
	IsBanned(ctx context.Context, username string) (bool, error)
	Ban(ctx context.Context, target *models.User, bannedBy string) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, wrap(err, "User not found")
	}
	return &user, nil
}

// GetByUsername returns nil, nil when no such user exists.
func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("Username taken")
		}
		return models.NewInternalError(err)
	}
	return nil
}

// UpdateFields writes only the named columns so unrelated fields are never clobbered.
func (r *userRepository) UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("User not found")
	}
	return nil
}

func (r *userRepository) IDsExcept(ctx context.Context, excludeID uint) ([]uint, error) {
	var ids []uint
	if err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id <> ?", excludeID).
		Order("id ASC").
		Pluck("id", &ids).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return ids, nil
}

func (r *userRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).Count(&n).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return n, nil
}

func (r *userRepository) IsBanned(ctx context.Context, username string) (bool, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.BannedAccount{}).
		Where("username = ?", username).
		Count(&n).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return n > 0, nil
}

// Ban removes target and everything that belongs to it, then records a tombstone for the
// username. Engagement the user left on other users' posts stays in place.
func (r *userRepository) Ban(ctx context.Context, target *models.User, bannedBy string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		owned := tx.Model(&models.Post{}).Select("id").Where("user_id = ?", target.ID)
		if err := deletePostChildren(tx, owned); err != nil {
			return err
		}
		steps := []struct {
			model interface{}
			query string
			args  []interface{}
		}{
			{&models.Post{}, "user_id = ?", []interface{}{target.ID}},
			{&models.Notification{}, "user_id = ?", []interface{}{target.ID}},
			{&models.ActivityLog{}, "user_id = ?", []interface{}{target.ID}},
			{&models.Follow{}, "follower_id = ? OR followee_id = ?", []interface{}{target.ID, target.ID}},
			{&models.Block{}, "blocker_id = ? OR blocked_id = ?", []interface{}{target.ID, target.ID}},
			{&models.User{}, "id = ?", []interface{}{target.ID}},
		}
		for _, s := range steps {
			if err := tx.Where(s.query, s.args...).Delete(s.model).Error; err != nil {
				return err
			}
		}
		return tx.Create(&models.BannedAccount{Username: target.Username, BannedBy: bannedBy}).Error
	})
	return wrap(err, "")
}

// deletePostChildren removes hashtags, likes, retweet markers, replies and reply likes of
// the posts in postIDs, which is either an id slice or a subquery.
func deletePostChildren(tx *gorm.DB, postIDs interface{}) error {
	replyIDs := tx.Model(&models.Reply{}).Select("id").Where("post_id IN (?)", postIDs)
	if err := tx.Where("reply_id IN (?)", replyIDs).Delete(&models.ReplyLike{}).Error; err != nil {
		return err
	}
	for _, child := range []interface{}{&models.Reply{}, &models.PostLike{}, &models.PostRetweet{}, &models.PostHashtag{}} {
		if err := tx.Where("post_id IN (?)", postIDs).Delete(child).Error; err != nil {
			return err
		}
	}
	return nil
}
