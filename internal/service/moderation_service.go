package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"chirp/internal/models"
	"chirp/internal/observability"
	"chirp/internal/repository"
)

// TrendsLimit is the number of hashtags reported by trend queries.
const TrendsLimit = 10

// ModerationService implements admin account actions. Every method re-checks the actor's
// admin flag.
type ModerationService struct {
	users     repository.UserRepository
	analytics repository.AnalyticsRepository
	notify    *NotificationService
	activity  *ActivityRecorder
}

// NewModerationService returns a ModerationService.
func NewModerationService(
	users repository.UserRepository,
	analytics repository.AnalyticsRepository,
	notify *NotificationService,
	activity *ActivityRecorder,
) *ModerationService {
	return &ModerationService{
		users:     users,
		analytics: analytics,
		notify:    notify,
		activity:  activity,
	}
}

func (s *ModerationService) target(ctx context.Context, username string) (*models.User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewNotFoundError("User not found")
	}
	return user, nil
}

// Ban removes the account and everything it owns and leaves a tombstone on the username.
func (s *ModerationService) Ban(ctx context.Context, admin *models.User, username string) (*models.User, error) {
	if err := requireAdmin(admin); err != nil {
		return nil, err
	}
	target, err := s.target(ctx, username)
	if err != nil {
		return nil, err
	}
	if target.ID == admin.ID {
		return nil, models.NewValidationError("Cannot ban yourself")
	}
	if target.IsAdmin {
		return nil, models.NewValidationError("Cannot ban another admin")
	}

	if err := s.users.Ban(ctx, target, admin.Username); err != nil {
		return nil, err
	}
	observability.ModerationActions.WithLabelValues(ActionBan).Inc()
	slog.InfoContext(ctx, "user banned", "target", target.Username, "admin", admin.Username)
	s.activity.Record(ctx, admin.ID, ActionBan, target.Username, nil)
	return target, nil
}

// Warn sends one admin warning to username.
func (s *ModerationService) Warn(ctx context.Context, admin *models.User, username, message string) (*models.User, error) {
	if err := requireAdmin(admin); err != nil {
		return nil, err
	}
	target, err := s.target(ctx, username)
	if err != nil {
		return nil, err
	}
	if target.ID == admin.ID {
		return nil, models.NewValidationError("Cannot warn yourself")
	}
	if strings.TrimSpace(message) == "" {
		return nil, models.NewValidationError("Warning message required")
	}

	if err := s.notify.Notify(ctx, NewNotification(target.ID, nil, models.NotificationWarning,
		fmt.Sprintf("Admin warning: %s", message), nil)); err != nil {
		return nil, err
	}
	observability.ModerationActions.WithLabelValues(ActionWarn).Inc()
	s.activity.Record(ctx, admin.ID, ActionWarn, target.Username, nil)
	return target, nil
}

// Announce notifies every account except the issuing admin. Banned accounts no longer exist
// and are never addressed. It returns the number of recipients.
func (s *ModerationService) Announce(ctx context.Context, admin *models.User, message string) (int, error) {
	if err := requireAdmin(admin); err != nil {
		return 0, err
	}
	if strings.TrimSpace(message) == "" {
		return 0, models.NewValidationError("Announcement message required")
	}

	recipients, err := s.users.IDsExcept(ctx, admin.ID)
	if err != nil {
		return 0, err
	}
	text := fmt.Sprintf("Admin announcement: %s", message)
	batch := make([]*models.Notification, 0, len(recipients))
	for _, id := range recipients {
		batch = append(batch, NewNotification(id, nil, models.NotificationAnnouncement, text, nil))
	}
	if err := s.notify.Broadcast(ctx, batch...); err != nil {
		return 0, err
	}
	observability.ModerationActions.WithLabelValues(ActionAnnounce).Inc()
	s.activity.Record(ctx, admin.ID, ActionAnnounce, "", nil)
	return len(recipients), nil
}

// Activity returns a page of username's activity log.
func (s *ModerationService) Activity(ctx context.Context, admin *models.User, username string, page, limit int) (*models.User, []models.ActivityLog, models.PaginationMeta, error) {
	if err := requireAdmin(admin); err != nil {
		return nil, nil, models.PaginationMeta{}, err
	}
	target, err := s.target(ctx, username)
	if err != nil {
		return nil, nil, models.PaginationMeta{}, err
	}
	entries, meta, err := s.activity.List(ctx, target.ID, page, limit)
	if err != nil {
		return nil, nil, models.PaginationMeta{}, err
	}
	return target, entries, meta, nil
}

// Trends returns the most used hashtags across all posts.
func (s *ModerationService) Trends(ctx context.Context, admin *models.User) ([]repository.HashtagCount, error) {
	if err := requireAdmin(admin); err != nil {
		return nil, err
	}
	return s.analytics.TopHashtags(ctx, TrendsLimit)
}
