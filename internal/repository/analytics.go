package repository

import (
	"context"

	"chirp/internal/models"

	"gorm.io/gorm"
)

// PlatformTotals aggregates engagement over every post. TotalUsers is filled by the caller.
type PlatformTotals struct {
	TotalUsers       int64 `json:"totalUsers"`
	TotalPosts       int64 `json:"totalPosts"`
	TotalImpressions int64 `json:"totalImpressions"`
	TotalLikes       int64 `json:"totalLikes"`
	TotalRetweets    int64 `json:"totalRetweets"`
}

// UserStat aggregates one user's posts.
type UserStat struct {
	Username    string `json:"username"`
	Posts       int64  `json:"posts"`
	Impressions int64  `json:"impressions"`
	Likes       int64  `json:"likes"`
	Retweets    int64  `json:"retweets"`
	Followers   int64  `json:"followers"`
}

// PostStat is the engagement breakdown of a single post.
type PostStat struct {
	ID          uint   `json:"id"`
	Content     string `json:"content"`
	Impressions int64  `json:"impressions"`
	Likes       int64  `json:"likes"`
	Retweets    int64  `json:"retweets"`
}

// HashtagCount is the number of posts carrying a tag.
type HashtagCount struct {
	Tag   string `json:"tag"`
	Count int64  `json:"count"`
}

// AnalyticsRepository runs read-only aggregate queries.
type AnalyticsRepository interface {
	PlatformTotals(ctx context.Context) (*PlatformTotals, error)
	UserStats(ctx context.Context) ([]UserStat, error)
	PostStats(ctx context.Context, userID uint) ([]PostStat, error)
	TopHashtags(ctx context.Context, limit int) ([]HashtagCount, error)
}

type analyticsRepository struct {
	db *gorm.DB
}

// NewAnalyticsRepository returns an AnalyticsRepository backed by db.
func NewAnalyticsRepository(db *gorm.DB) AnalyticsRepository {
	return &analyticsRepository{db: db}
}

func (r *analyticsRepository) PlatformTotals(ctx context.Context) (*PlatformTotals, error) {
	db := r.db.WithContext(ctx)
	var t PlatformTotals
	steps := []func() error{
		func() error { return db.Model(&models.Post{}).Count(&t.TotalPosts).Error },
		func() error {
			return db.Model(&models.Post{}).Select("COALESCE(SUM(impressions), 0)").Scan(&t.TotalImpressions).Error
		},
		func() error { return db.Model(&models.PostLike{}).Count(&t.TotalLikes).Error },
		func() error { return db.Model(&models.PostRetweet{}).Count(&t.TotalRetweets).Error },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, models.NewInternalError(err)
		}
	}
	return &t, nil
}

func (r *analyticsRepository) UserStats(ctx context.Context) ([]UserStat, error) {
	stats := []UserStat{}
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Select("users.username, " +
			"(SELECT COUNT(*) FROM posts WHERE posts.user_id = users.id) AS posts, " +
			"(SELECT COALESCE(SUM(posts.impressions), 0) FROM posts WHERE posts.user_id = users.id) AS impressions, " +
			"(SELECT COUNT(*) FROM post_likes JOIN posts ON posts.id = post_likes.post_id WHERE posts.user_id = users.id) AS likes, " +
			"(SELECT COUNT(*) FROM post_retweets JOIN posts ON posts.id = post_retweets.post_id WHERE posts.user_id = users.id) AS retweets, " +
			"(SELECT COUNT(*) FROM follows WHERE follows.followee_id = users.id) AS followers").
		Order("users.id ASC").
		Scan(&stats).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return stats, nil
}

// PostStats covers the user's original posts; retweets they made are excluded.
func (r *analyticsRepository) PostStats(ctx context.Context, userID uint) ([]PostStat, error) {
	stats := []PostStat{}
	err := r.db.WithContext(ctx).Model(&models.Post{}).
		Select("posts.id, posts.content, posts.impressions, "+
			"(SELECT COUNT(*) FROM post_likes WHERE post_likes.post_id = posts.id) AS likes, "+
			"(SELECT COUNT(*) FROM post_retweets WHERE post_retweets.post_id = posts.id) AS retweets").
		Where("posts.user_id = ? AND posts.kind = ?", userID, models.PostKindOriginal).
		Order("posts.created_at ASC, posts.id ASC").
		Scan(&stats).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return stats, nil
}

func (r *analyticsRepository) TopHashtags(ctx context.Context, limit int) ([]HashtagCount, error) {
	tags := []HashtagCount{}
	err := r.db.WithContext(ctx).Model(&models.PostHashtag{}).
		Select("tag, COUNT(*) AS count").
		Group("tag").
		Order("count DESC, tag ASC").
		Limit(limit).
		Scan(&tags).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return tags, nil
}
