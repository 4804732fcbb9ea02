package service

import (
	"context"
	"log/slog"

	"chirp/internal/models"
	"chirp/internal/repository"
)

// Activity actions recorded for users.
const (
	ActionRegister           = "register"
	ActionLogin              = "login"
	ActionLogout             = "logout"
	ActionTweet              = "tweet"
	ActionLike               = "like"
	ActionUnlike             = "unlike"
	ActionRetweet            = "retweet"
	ActionReply              = "reply"
	ActionLikeReply          = "like_reply"
	ActionUnlikeReply        = "unlike_reply"
	ActionPin                = "pin"
	ActionUnpin              = "unpin"
	ActionEditTweet          = "edit_tweet"
	ActionDeleteTweet        = "delete_tweet"
	ActionFollow             = "follow"
	ActionUnfollow           = "unfollow"
	ActionBlock              = "block"
	ActionUnblock            = "unblock"
	ActionUpdateProfile      = "update_profile"
	ActionUpdateProfileImage = "update_profile_image"
	ActionSaveDraft          = "save_draft"
	ActionBan                = "ban"
	ActionWarn               = "warn"
	ActionAnnounce           = "announce"
)

// ActivityRecorder appends entries to users' activity logs.
type ActivityRecorder struct {
	repo repository.ActivityRepository
}

// NewActivityRecorder returns an ActivityRecorder writing to repo.
func NewActivityRecorder(repo repository.ActivityRepository) *ActivityRecorder {
	return &ActivityRecorder{repo: repo}
}

// Record appends one entry. The action it describes has already happened, so a failed
// append is logged rather than reported to the caller.
func (r *ActivityRecorder) Record(ctx context.Context, userID uint, action, detail string, postID *uint) {
	if r == nil || r.repo == nil {
		return
	}
	entry := &models.ActivityLog{UserID: userID, Action: action, Detail: detail, PostID: postID}
	if err := r.repo.Append(ctx, entry); err != nil {
		slog.WarnContext(ctx, "failed to record activity", "user_id", userID, "action", action, "err", err)
	}
}

// List returns a page of the user's activity, oldest first.
func (r *ActivityRecorder) List(ctx context.Context, userID uint, page, limit int) ([]models.ActivityLog, models.PaginationMeta, error) {
	if limit < 1 {
		limit = 50
	}
	page, limit, offset := Paginate(page, limit)
	entries, total, err := r.repo.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, models.PaginationMeta{}, err
	}
	return entries, models.PaginationMeta{Page: page, Limit: limit, Total: total}, nil
}
