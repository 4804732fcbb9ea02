package repository

import (
	"context"
	"strings"
	"time"

	"chirp/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SearchLimit caps content and hashtag search results.
const SearchLimit = 50

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	ListByUser(ctx context.Context, userID uint, limit int) ([]*models.Post, error)
	Delete(ctx context.Context, id uint) error
	UpdateContent(ctx context.Context, id uint, content string, tags []string) error
	TogglePin(ctx context.Context, post *models.Post) error

	ToggleLike(ctx context.Context, postID, userID uint, username string) (bool, int64, error)
	Retweet(ctx context.Context, original *models.Post, actor *models.User) (*models.Post, error)

	AddReply(ctx context.Context, reply *models.Reply) error
	GetReply(ctx context.Context, postID, replyID uint) (*models.Reply, error)
	ToggleReplyLike(ctx context.Context, replyID, userID uint, username string) (bool, int64, error)

	FollowingFeed(ctx context.Context, viewerID uint, limit, offset int) ([]*models.Post, int64, error)
	RecommendedFeed(ctx context.Context, viewerID uint, limit, offset int) ([]*models.Post, int64, error)
	SearchContent(ctx context.Context, viewerID uint, query string) ([]*models.Post, error)
	SearchHashtag(ctx context.Context, viewerID uint, tag string) ([]*models.Post, error)
	IncrementImpressions(ctx context.Context, ids []uint) error
}

// postRepository implements PostRepository
type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

// Create stores the post together with its Tags.
func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := r.withDetails(r.db.WithContext(ctx)).First(&post, "posts.id = ?", id).Error; err != nil {
		return nil, wrap(err, "Tweet not found")
	}
	return &post, nil
}

func (r *postRepository) ListByUser(ctx context.Context, userID uint, limit int) ([]*models.Post, error) {
	posts := []*models.Post{}
	err := r.withDetails(r.db.WithContext(ctx)).
		Where("posts.user_id = ?", userID).
		Order("posts.pinned DESC, posts.created_at DESC, posts.id DESC").
		Limit(limit).
		Find(&posts).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

// Delete hard-deletes a post and its children. Retweets of it are independent posts and remain.
func (r *postRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := deletePostChildren(tx, []uint{id}); err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&models.Post{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("Tweet not found")
		}
		return nil
	})
	return wrap(err, "")
}

// UpdateContent replaces the body and hashtags of a post and marks it edited.
func (r *postRepository) UpdateContent(ctx context.Context, id uint, content string, tags []string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		res := tx.Model(&models.Post{}).Where("id = ?", id).Updates(map[string]interface{}{
			"content":   content,
			"edited":    true,
			"edited_at": &now,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("Tweet not found")
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.PostHashtag{}).Error; err != nil {
			return err
		}
		if len(tags) == 0 {
			return nil
		}
		rows := make([]models.PostHashtag, 0, len(tags))
		for _, t := range tags {
			rows = append(rows, models.PostHashtag{PostID: id, Tag: t})
		}
		return tx.Create(&rows).Error
	})
	return wrap(err, "")
}

// TogglePin flips the pin flag in place and stores the new state on post. Pinning clears
// every other pinned post by the same author. The flip is a single UPDATE so concurrent
// toggles serialise on the row.
func (r *postRepository) TogglePin(ctx context.Context, post *models.Post) error {
	var pinned bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Post{}).Where("id = ?", post.ID).
			UpdateColumn("pinned", gorm.Expr("NOT pinned"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		if err := tx.Model(&models.Post{}).Where("id = ?", post.ID).
			Select("pinned").Scan(&pinned).Error; err != nil {
			return err
		}
		if !pinned {
			return nil
		}
		return tx.Model(&models.Post{}).
			Where("user_id = ? AND id <> ? AND pinned = ?", post.UserID, post.ID, true).
			UpdateColumn("pinned", false).Error
	})
	if err != nil {
		return wrap(err, "Tweet not found")
	}
	post.Pinned = pinned
	return nil
}

// ToggleLike likes the post, or removes the like when it already exists.
// Returns the new liked state and the resulting like count.
func (r *postRepository) ToggleLike(ctx context.Context, postID, userID uint, username string) (bool, int64, error) {
	var liked bool
	var count int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.PostLike{PostID: postID, UserID: userID, Username: username})
		if res.Error != nil {
			return res.Error
		}
		liked = res.RowsAffected == 1
		if !liked {
			if err := tx.Where("post_id = ? AND user_id = ?", postID, userID).Delete(&models.PostLike{}).Error; err != nil {
				return err
			}
		}
		return tx.Model(&models.PostLike{}).Where("post_id = ?", postID).Count(&count).Error
	})
	if err != nil {
		return false, 0, models.NewInternalError(err)
	}
	return liked, count, nil
}

// Retweet records the actor's retweet marker on original and creates the snapshot post.
// A second retweet of the same post by the same actor is a conflict and creates nothing.
func (r *postRepository) Retweet(ctx context.Context, original *models.Post, actor *models.User) (*models.Post, error) {
	originalID := original.ID
	retweet := &models.Post{
		UserID:         actor.ID,
		Username:       actor.Username,
		Kind:           models.PostKindRetweet,
		Content:        original.Content,
		ImageURL:       original.ImageURL,
		OriginalID:     &originalID,
		OriginalAuthor: original.Username,
	}
	for _, tag := range original.Hashtags {
		retweet.Tags = append(retweet.Tags, models.PostHashtag{Tag: tag})
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.PostRetweet{PostID: original.ID, UserID: actor.ID, Username: actor.Username})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewConflictError("Already retweeted")
		}
		return tx.Create(retweet).Error
	})
	if err != nil {
		return nil, wrap(err, "")
	}
	retweet.AfterFind(nil)
	return retweet, nil
}

func (r *postRepository) AddReply(ctx context.Context, reply *models.Reply) error {
	if err := r.db.WithContext(ctx).Create(reply).Error; err != nil {
		return models.NewInternalError(err)
	}
	reply.LikedBy = []string{}
	return nil
}

func (r *postRepository) GetReply(ctx context.Context, postID, replyID uint) (*models.Reply, error) {
	var reply models.Reply
	err := r.db.WithContext(ctx).
		Preload("Likes", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Where("id = ? AND post_id = ?", replyID, postID).
		First(&reply).Error
	if err != nil {
		return nil, wrap(err, "Reply not found")
	}
	return &reply, nil
}

func (r *postRepository) ToggleReplyLike(ctx context.Context, replyID, userID uint, username string) (bool, int64, error) {
	var liked bool
	var count int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.ReplyLike{ReplyID: replyID, UserID: userID, Username: username})
		if res.Error != nil {
			return res.Error
		}
		liked = res.RowsAffected == 1
		if !liked {
			if err := tx.Where("reply_id = ? AND user_id = ?", replyID, userID).Delete(&models.ReplyLike{}).Error; err != nil {
				return err
			}
		}
		return tx.Model(&models.ReplyLike{}).Where("reply_id = ?", replyID).Count(&count).Error
	})
	if err != nil {
		return false, 0, models.NewInternalError(err)
	}
	return liked, count, nil
}

// FollowingFeed returns posts by the viewer and the accounts they follow, minus authors the
// viewer blocked. Pinned posts come first, then boosted authors, then newest.
func (r *postRepository) FollowingFeed(ctx context.Context, viewerID uint, limit, offset int) ([]*models.Post, int64, error) {
	scope := func(db *gorm.DB) *gorm.DB {
		return db.
			Where("posts.user_id = ? OR posts.user_id IN (?)", viewerID, followeeIDs(db, viewerID)).
			Where("posts.user_id NOT IN (?)", blockedIDs(db, viewerID))
	}
	return r.page(ctx, scope, "posts.pinned DESC, posts.priority DESC, posts.created_at DESC, posts.id DESC", limit, offset)
}

// RecommendedFeed returns posts by accounts the viewer neither is nor follows nor blocked,
// ranked by score = 2*likes + retweets with pinned posts first and newest breaking ties.
func (r *postRepository) RecommendedFeed(ctx context.Context, viewerID uint, limit, offset int) ([]*models.Post, int64, error) {
	scope := func(db *gorm.DB) *gorm.DB {
		return db.
			Where("posts.user_id <> ?", viewerID).
			Where("posts.user_id NOT IN (?)", followeeIDs(db, viewerID)).
			Where("posts.user_id NOT IN (?)", blockedIDs(db, viewerID))
	}
	return r.page(ctx, scope, "posts.pinned DESC, score DESC, posts.created_at DESC, posts.id DESC", limit, offset)
}

// SearchContent matches a case-insensitive substring of the body.
func (r *postRepository) SearchContent(ctx context.Context, viewerID uint, query string) ([]*models.Post, error) {
	pattern := "%" + escapeLike(strings.ToLower(query)) + "%"
	return r.search(ctx, viewerID, func(db *gorm.DB) *gorm.DB {
		return db.Where(`LOWER(posts.content) LIKE ? ESCAPE '\'`, pattern)
	})
}

// SearchHashtag matches a lower-cased hashtag exactly.
func (r *postRepository) SearchHashtag(ctx context.Context, viewerID uint, tag string) ([]*models.Post, error) {
	return r.search(ctx, viewerID, func(db *gorm.DB) *gorm.DB {
		return db.Where("posts.id IN (?)", db.Session(&gorm.Session{NewDB: true}).
			Model(&models.PostHashtag{}).Select("post_id").Where("tag = ?", tag))
	})
}

// IncrementImpressions adds one impression to each listed post in a single statement.
func (r *postRepository) IncrementImpressions(ctx context.Context, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Model(&models.Post{}).
		Where("id IN ?", ids).
		UpdateColumn("impressions", gorm.Expr("impressions + ?", 1)).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *postRepository) search(ctx context.Context, viewerID uint, filter func(*gorm.DB) *gorm.DB) ([]*models.Post, error) {
	posts := []*models.Post{}
	db := r.db.WithContext(ctx)
	err := r.withDetails(db).
		Scopes(filter).
		Where("posts.user_id NOT IN (?)", blockedIDs(db, viewerID)).
		Order("posts.created_at DESC, posts.id DESC").
		Limit(SearchLimit).
		Find(&posts).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

func (r *postRepository) page(ctx context.Context, scope func(*gorm.DB) *gorm.DB, order string, limit, offset int) ([]*models.Post, int64, error) {
	db := r.db.WithContext(ctx)

	var total int64
	if err := db.Model(&models.Post{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	posts := []*models.Post{}
	err := r.withDetails(db).
		Scopes(scope).
		Order(order).
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	if err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return posts, total, nil
}

const postDetailsSelect = "posts.*, " +
	"(SELECT COUNT(*) FROM post_likes WHERE post_likes.post_id = posts.id) AS likes_count, " +
	"(SELECT COUNT(*) FROM post_retweets WHERE post_retweets.post_id = posts.id) AS retweets_count, " +
	"(SELECT COUNT(*) FROM replies WHERE replies.post_id = posts.id) AS replies_count, " +
	"(2 * (SELECT COUNT(*) FROM post_likes WHERE post_likes.post_id = posts.id) + " +
	"(SELECT COUNT(*) FROM post_retweets WHERE post_retweets.post_id = posts.id)) AS score"

// withDetails selects engagement counts and the score in one query and preloads the
// engagement rows that AfterFind flattens into username lists.
func (r *postRepository) withDetails(db *gorm.DB) *gorm.DB {
	byCreated := func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }
	return db.Model(&models.Post{}).
		Select(postDetailsSelect).
		Preload("Tags", func(db *gorm.DB) *gorm.DB { return db.Order("tag ASC") }).
		Preload("Likes", byCreated).
		Preload("Retweets", byCreated).
		Preload("Replies", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") }).
		Preload("Replies.Likes", byCreated)
}

func followeeIDs(db *gorm.DB, viewerID uint) *gorm.DB {
	return db.Session(&gorm.Session{NewDB: true}).
		Model(&models.Follow{}).Select("followee_id").Where("follower_id = ?", viewerID)
}

func blockedIDs(db *gorm.DB, viewerID uint) *gorm.DB {
	return db.Session(&gorm.Session{NewDB: true}).
		Model(&models.Block{}).Select("blocked_id").Where("blocker_id = ?", viewerID)
}
