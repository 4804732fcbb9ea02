package repository

import (
	"context"

	"chirp/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GraphRepository stores follow and block edges between users.
type GraphRepository interface {
	Follow(ctx context.Context, followerID, followeeID uint) (bool, error)
	Unfollow(ctx context.Context, followerID, followeeID uint) (bool, error)
	Block(ctx context.Context, blockerID, blockedID uint) (bool, error)
	Unblock(ctx context.Context, blockerID, blockedID uint) (bool, error)
	HasBlocked(ctx context.Context, blockerID, blockedID uint) (bool, error)
	IsBlockedEitherWay(ctx context.Context, a, b uint) (bool, error)
	FollowerIDs(ctx context.Context, userID uint) ([]uint, error)
	FollowingUsernames(ctx context.Context, userID uint) ([]string, error)
	FollowerUsernames(ctx context.Context, userID uint) ([]string, error)
	BlockedUsernames(ctx context.Context, userID uint) ([]string, error)
}

type graphRepository struct {
	db *gorm.DB
}

// NewGraphRepository returns a GraphRepository backed by db.
func NewGraphRepository(db *gorm.DB) GraphRepository {
	return &graphRepository{db: db}
}

// Follow inserts the edge and reports whether it was new. It fails with a forbidden error
// when either user has blocked the other; the check and the insert share a transaction
// holding both user rows so a concurrent Block cannot interleave.
func (r *graphRepository) Follow(ctx context.Context, followerID, followeeID uint) (bool, error) {
	created := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockPair(tx, followerID, followeeID); err != nil {
			return err
		}
		var blocks int64
		if err := tx.Model(&models.Block{}).
			Where("(blocker_id = ? AND blocked_id = ?) OR (blocker_id = ? AND blocked_id = ?)",
				followerID, followeeID, followeeID, followerID).
			Count(&blocks).Error; err != nil {
			return err
		}
		if blocks > 0 {
			return models.NewForbiddenError("User blocked")
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.Follow{FollowerID: followerID, FolloweeID: followeeID})
		if res.Error != nil {
			return res.Error
		}
		created = res.RowsAffected == 1
		return nil
	})
	if err != nil {
		return false, wrap(err, "")
	}
	return created, nil
}

// lockPair takes row locks on both users in id order so Follow and Block on the same
// pair serialise without deadlocking.
func lockPair(tx *gorm.DB, a, b uint) error {
	var ids []uint
	return tx.Model(&models.User{}).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", []uint{a, b}).
		Order("id ASC").
		Pluck("id", &ids).Error
}

// Unfollow removes the edge and reports whether it existed.
func (r *graphRepository) Unfollow(ctx context.Context, followerID, followeeID uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		Delete(&models.Follow{})
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

// Block records the block and drops follow edges in both directions.
func (r *graphRepository) Block(ctx context.Context, blockerID, blockedID uint) (bool, error) {
	created := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockPair(tx, blockerID, blockedID); err != nil {
			return err
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.Block{BlockerID: blockerID, BlockedID: blockedID})
		if res.Error != nil {
			return res.Error
		}
		created = res.RowsAffected == 1
		return tx.Where("(follower_id = ? AND followee_id = ?) OR (follower_id = ? AND followee_id = ?)",
			blockerID, blockedID, blockedID, blockerID).
			Delete(&models.Follow{}).Error
	})
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return created, nil
}

func (r *graphRepository) Unblock(ctx context.Context, blockerID, blockedID uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("blocker_id = ? AND blocked_id = ?", blockerID, blockedID).
		Delete(&models.Block{})
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *graphRepository) HasBlocked(ctx context.Context, blockerID, blockedID uint) (bool, error) {
	return r.exists(ctx, &models.Block{}, "blocker_id = ? AND blocked_id = ?", blockerID, blockedID)
}

func (r *graphRepository) IsBlockedEitherWay(ctx context.Context, a, b uint) (bool, error) {
	return r.exists(ctx, &models.Block{},
		"(blocker_id = ? AND blocked_id = ?) OR (blocker_id = ? AND blocked_id = ?)", a, b, b, a)
}

func (r *graphRepository) FollowerIDs(ctx context.Context, userID uint) ([]uint, error) {
	var ids []uint
	if err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where("followee_id = ?", userID).
		Order("follower_id ASC").
		Pluck("follower_id", &ids).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return ids, nil
}

func (r *graphRepository) FollowingUsernames(ctx context.Context, userID uint) ([]string, error) {
	return r.usernames(ctx, "JOIN follows ON follows.followee_id = users.id", "follows.follower_id = ?", "follows.created_at", userID)
}

func (r *graphRepository) FollowerUsernames(ctx context.Context, userID uint) ([]string, error) {
	return r.usernames(ctx, "JOIN follows ON follows.follower_id = users.id", "follows.followee_id = ?", "follows.created_at", userID)
}

func (r *graphRepository) BlockedUsernames(ctx context.Context, userID uint) ([]string, error) {
	return r.usernames(ctx, "JOIN blocks ON blocks.blocked_id = users.id", "blocks.blocker_id = ?", "blocks.created_at", userID)
}

func (r *graphRepository) usernames(ctx context.Context, join, where, order string, userID uint) ([]string, error) {
	names := []string{}
	if err := r.db.WithContext(ctx).Model(&models.User{}).
		Joins(join).
		Where(where, userID).
		Order(order + " ASC").
		Pluck("users.username", &names).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return names, nil
}

func (r *graphRepository) exists(ctx context.Context, model interface{}, query string, args ...interface{}) (bool, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(model).Where(query, args...).Count(&n).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return n > 0, nil
}
