package service

import (
	"context"
	"fmt"
	"strings"

	"chirp/internal/models"
	"chirp/internal/observability"
	"chirp/internal/repository"
	"chirp/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

// PostService implements the content store operations.
type PostService struct {
	posts    repository.PostRepository
	graph    repository.GraphRepository
	notify   *NotificationService
	activity *ActivityRecorder
	policy   Policy
}

// NewPostService returns a PostService.
func NewPostService(
	posts repository.PostRepository,
	graph repository.GraphRepository,
	notify *NotificationService,
	activity *ActivityRecorder,
	policy Policy,
) *PostService {
	return &PostService{
		posts:    posts,
		graph:    graph,
		notify:   notify,
		activity: activity,
		policy:   policy,
	}
}

// CreatePostInput is the payload of a new original post.
type CreatePostInput struct {
	Content  string
	ImageURL string
}

// CreatePost stores an original post and notifies every follower of the author.
func (s *PostService) CreatePost(ctx context.Context, author *models.User, in CreatePostInput) (*models.Post, error) {
	if err := s.policy.CheckContent(author, in.Content); err != nil {
		return nil, err
	}

	post := &models.Post{
		UserID:   author.ID,
		Username: author.Username,
		Kind:     models.PostKindOriginal,
		Content:  in.Content,
		ImageURL: strings.TrimSpace(in.ImageURL),
	}
	if author.IsAdmin {
		post.Priority = 1
	}
	for _, tag := range validation.ExtractHashtags(in.Content) {
		post.Tags = append(post.Tags, models.PostHashtag{Tag: tag})
	}

	ctx, span := observability.StartSpan(ctx, "posts.create", attribute.Int("hashtags", len(post.Tags)))
	var err error
	defer func() { observability.EndSpan(span, err) }()

	if err = s.posts.Create(ctx, post); err != nil {
		return nil, err
	}
	_ = post.AfterFind(nil)
	observability.PostsCreated.WithLabelValues(string(models.PostKindOriginal)).Inc()

	followers, err := s.graph.FollowerIDs(ctx, author.ID)
	if err != nil {
		return nil, err
	}
	if len(followers) > 0 {
		postID := post.ID
		batch := make([]*models.Notification, 0, len(followers))
		for _, id := range followers {
			batch = append(batch, NewNotification(id, author, models.NotificationPost,
				fmt.Sprintf("%s posted a new tweet", author.Username), &postID))
		}
		if err = s.notify.Notify(ctx, batch...); err != nil {
			return nil, err
		}
	}

	s.activity.Record(ctx, author.ID, ActionTweet, "", &post.ID)
	return post, nil
}

// GetPost returns a post with its replies and engagement.
func (s *PostService) GetPost(ctx context.Context, id uint) (*models.Post, error) {
	return s.posts.GetByID(ctx, id)
}

// interactable loads the post and rejects actors on either side of a block with its author.
func (s *PostService) interactable(ctx context.Context, actor *models.User, postID uint) (*models.Post, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.UserID != actor.ID {
		blocked, err := s.graph.IsBlockedEitherWay(ctx, actor.ID, post.UserID)
		if err != nil {
			return nil, err
		}
		if blocked {
			return nil, models.NewForbiddenError("User blocked")
		}
	}
	return post, nil
}

// ToggleLike likes or unlikes a post. Only a new like notifies the author.
func (s *PostService) ToggleLike(ctx context.Context, actor *models.User, postID uint) (bool, int64, error) {
	post, err := s.interactable(ctx, actor, postID)
	if err != nil {
		return false, 0, err
	}

	liked, count, err := s.posts.ToggleLike(ctx, post.ID, actor.ID, actor.Username)
	if err != nil {
		return false, 0, err
	}

	action := ActionUnlike
	if liked {
		action = ActionLike
		if post.UserID != actor.ID {
			if err := s.notify.Notify(ctx, NewNotification(post.UserID, actor, models.NotificationLike,
				fmt.Sprintf("%s liked your tweet", actor.Username), &post.ID)); err != nil {
				return false, 0, err
			}
		}
	}
	s.activity.Record(ctx, actor.ID, action, "", &post.ID)
	return liked, count, nil
}

// Retweet creates a snapshot copy of the post. A second retweet by the same actor is a conflict.
func (s *PostService) Retweet(ctx context.Context, actor *models.User, postID uint) (*models.Post, error) {
	original, err := s.interactable(ctx, actor, postID)
	if err != nil {
		return nil, err
	}

	retweet, err := s.posts.Retweet(ctx, original, actor)
	if err != nil {
		return nil, err
	}
	observability.PostsCreated.WithLabelValues(string(models.PostKindRetweet)).Inc()

	if original.UserID != actor.ID {
		if err := s.notify.Notify(ctx, NewNotification(original.UserID, actor, models.NotificationRetweet,
			fmt.Sprintf("%s retweeted your tweet", actor.Username), &original.ID)); err != nil {
			return nil, err
		}
	}
	s.activity.Record(ctx, actor.ID, ActionRetweet, "", &original.ID)
	return retweet, nil
}

// Reply appends a reply to the post and notifies its author.
func (s *PostService) Reply(ctx context.Context, actor *models.User, postID uint, content string) (*models.Reply, error) {
	if err := s.policy.CheckContent(actor, content); err != nil {
		return nil, err
	}
	post, err := s.interactable(ctx, actor, postID)
	if err != nil {
		return nil, err
	}

	reply := &models.Reply{
		PostID:   post.ID,
		UserID:   actor.ID,
		Username: actor.Username,
		Content:  content,
	}
	if err := s.posts.AddReply(ctx, reply); err != nil {
		return nil, err
	}

	if post.UserID != actor.ID {
		if err := s.notify.Notify(ctx, NewNotification(post.UserID, actor, models.NotificationReply,
			fmt.Sprintf("%s replied to your tweet", actor.Username), &post.ID)); err != nil {
			return nil, err
		}
	}
	s.activity.Record(ctx, actor.ID, ActionReply, "", &post.ID)
	return reply, nil
}

// ToggleReplyLike likes or unlikes a reply. Reply likes do not notify.
func (s *PostService) ToggleReplyLike(ctx context.Context, actor *models.User, postID, replyID uint) (bool, int64, error) {
	post, err := s.interactable(ctx, actor, postID)
	if err != nil {
		return false, 0, err
	}
	reply, err := s.posts.GetReply(ctx, post.ID, replyID)
	if err != nil {
		return false, 0, err
	}

	liked, count, err := s.posts.ToggleReplyLike(ctx, reply.ID, actor.ID, actor.Username)
	if err != nil {
		return false, 0, err
	}
	action := ActionUnlikeReply
	if liked {
		action = ActionLikeReply
	}
	s.activity.Record(ctx, actor.ID, action, fmt.Sprintf("reply %d", reply.ID), &post.ID)
	return liked, count, nil
}

// TogglePin flips the pin flag of a post under the configured pin policy. Pinning clears
// any other pinned post by the same author.
func (s *PostService) TogglePin(ctx context.Context, actor *models.User, postID uint) (*models.Post, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !s.policy.CanPin(actor, post) {
		return nil, models.NewForbiddenError("Not allowed to pin this tweet")
	}

	if err := s.posts.TogglePin(ctx, post); err != nil {
		return nil, err
	}
	action := ActionUnpin
	if post.Pinned {
		action = ActionPin
	}
	s.activity.Record(ctx, actor.ID, action, "", &post.ID)
	return post, nil
}

// EditPost replaces the body of a post and re-derives its hashtags. Admin only.
// Retweets made earlier keep the content they copied.
func (s *PostService) EditPost(ctx context.Context, actor *models.User, postID uint, content string) (*models.Post, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := s.policy.CheckContent(actor, content); err != nil {
		return nil, err
	}
	if err := s.posts.UpdateContent(ctx, postID, content, validation.ExtractHashtags(content)); err != nil {
		return nil, err
	}
	s.activity.Record(ctx, actor.ID, ActionEditTweet, "", &postID)
	return s.posts.GetByID(ctx, postID)
}

// DeletePost hard-deletes a post. Admin only. Retweets of it remain.
func (s *PostService) DeletePost(ctx context.Context, actor *models.User, postID uint) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if err := s.posts.Delete(ctx, postID); err != nil {
		return err
	}
	observability.ModerationActions.WithLabelValues("delete_tweet").Inc()
	s.activity.Record(ctx, actor.ID, ActionDeleteTweet, fmt.Sprintf("tweet %d", postID), nil)
	return nil
}
