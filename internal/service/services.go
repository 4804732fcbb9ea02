package service

import (
	"chirp/internal/notifications"
	"chirp/internal/repository"

	"gorm.io/gorm"
)

// Services bundles every service over one database handle.
type Services struct {
	Identity      *IdentityService
	Posts         *PostService
	Feed          *FeedService
	Notifications *NotificationService
	Moderation    *ModerationService
	Analytics     *AnalyticsService
	Activity      *ActivityRecorder
}

// New wires repositories and services on db. notifier may be nil when Redis is unavailable.
func New(db *gorm.DB, notifier *notifications.Notifier, policy Policy) *Services {
	users := repository.NewUserRepository(db)
	graph := repository.NewGraphRepository(db)
	posts := repository.NewPostRepository(db)
	analytics := repository.NewAnalyticsRepository(db)

	activity := NewActivityRecorder(repository.NewActivityRepository(db))
	notify := NewNotificationService(repository.NewNotificationRepository(db), notifier)

	return &Services{
		Identity:      NewIdentityService(users, graph, posts, notify, activity, policy),
		Posts:         NewPostService(posts, graph, notify, activity, policy),
		Feed:          NewFeedService(posts),
		Notifications: notify,
		Moderation:    NewModerationService(users, analytics, notify, activity),
		Analytics:     NewAnalyticsService(analytics, users),
		Activity:      activity,
	}
}
