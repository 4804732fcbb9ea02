package service

import (
	"context"
	"log/slog"

	"chirp/internal/models"
	"chirp/internal/notifications"
	"chirp/internal/observability"
	"chirp/internal/repository"
	"chirp/internal/validation"
)

// NotificationService persists notification fan-out and serves the read side.
type NotificationService struct {
	repo     repository.NotificationRepository
	notifier *notifications.Notifier
}

// NewNotificationService returns a NotificationService. notifier may be nil.
func NewNotificationService(repo repository.NotificationRepository, notifier *notifications.Notifier) *NotificationService {
	return &NotificationService{repo: repo, notifier: notifier}
}

// NewNotification builds a notification to recipientID caused by actor (nil for system messages).
func NewNotification(recipientID uint, actor *models.User, typ models.NotificationType, message string, postID *uint) *models.Notification {
	n := &models.Notification{
		UserID:  recipientID,
		Type:    typ,
		Message: message,
		PostID:  postID,
	}
	if actor != nil {
		actorID := actor.ID
		n.ActorID = &actorID
		n.Actor = actor.Username
	}
	return n
}

// Notify strips markup from every message, stores the batch in one call and publishes the
// stored rows. Entries with an empty message after stripping are dropped.
func (s *NotificationService) Notify(ctx context.Context, items ...*models.Notification) error {
	ctx, span := observability.StartSpan(ctx, "notifications.fanout")
	var err error
	defer func() { observability.EndSpan(span, err) }()

	batch, err := s.store(ctx, items)
	if err != nil || len(batch) == 0 {
		return err
	}
	s.notifier.PublishNotifications(ctx, batch)
	return nil
}

// Broadcast stores one copy of an announcement per recipient and publishes a single event
// on the broadcast channel.
func (s *NotificationService) Broadcast(ctx context.Context, items ...*models.Notification) error {
	ctx, span := observability.StartSpan(ctx, "notifications.broadcast")
	var err error
	defer func() { observability.EndSpan(span, err) }()

	batch, err := s.store(ctx, items)
	if err != nil || len(batch) == 0 {
		return err
	}
	first := batch[0]
	if perr := s.notifier.PublishBroadcast(ctx, notifications.Event{
		Type:      first.Type,
		Actor:     first.Actor,
		Message:   first.Message,
		CreatedAt: first.CreatedAt,
	}); perr != nil {
		slog.WarnContext(ctx, "broadcast publish failed", "err", perr)
	}
	return nil
}

func (s *NotificationService) store(ctx context.Context, items []*models.Notification) ([]*models.Notification, error) {
	batch := make([]*models.Notification, 0, len(items))
	for _, n := range items {
		if n == nil {
			continue
		}
		n.Message = validation.StripMarkup(n.Message)
		if n.Message == "" {
			continue
		}
		batch = append(batch, n)
	}
	if len(batch) == 0 {
		return nil, nil
	}

	if err := s.repo.CreateBatch(ctx, batch); err != nil {
		return nil, err
	}
	for _, n := range batch {
		observability.NotificationsCreated.WithLabelValues(string(n.Type)).Inc()
	}
	return batch, nil
}

// ListAndMarkRead returns a page of the user's notifications as they were before this read
// and marks all of the user's unread notifications as read.
func (s *NotificationService) ListAndMarkRead(ctx context.Context, userID uint, page, limit int) ([]models.Notification, models.PaginationMeta, error) {
	page, limit, offset := Paginate(page, limit)
	items, total, err := s.repo.ListAndMarkRead(ctx, userID, limit, offset)
	if err != nil {
		return nil, models.PaginationMeta{}, err
	}
	return items, models.PaginationMeta{Page: page, Limit: limit, Total: total}, nil
}

// PeekUnread counts unread notifications without changing them.
func (s *NotificationService) PeekUnread(ctx context.Context, userID uint) (int64, error) {
	return s.repo.CountUnread(ctx, userID)
}
