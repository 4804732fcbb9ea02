package models

import "time"

// NotificationType enumerates the events that produce notifications.
type NotificationType string

const (
	NotificationLike         NotificationType = "like"
	NotificationRetweet      NotificationType = "retweet"
	NotificationReply        NotificationType = "reply"
	NotificationFollow       NotificationType = "follow"
	NotificationUnfollow     NotificationType = "unfollow"
	NotificationPost         NotificationType = "post"
	NotificationWarning      NotificationType = "warning"
	NotificationAnnouncement NotificationType = "announcement"
)

// Notification is a plain-text message addressed to a single user.
type Notification struct {
	ID        uint             `gorm:"primaryKey" json:"id"`
	UserID    uint             `gorm:"not null;index:idx_notifications_user_read" json:"user_id"`
	ActorID   *uint            `gorm:"index" json:"actor_id,omitempty"`
	Actor     string           `gorm:"size:50" json:"actor,omitempty"`
	Type      NotificationType `gorm:"size:20;not null" json:"type"`
	Message   string           `gorm:"type:text;not null" json:"message"`
	PostID    *uint            `json:"post_id,omitempty"`
	Read      bool             `gorm:"not null;default:false;index:idx_notifications_user_read" json:"read"`
	CreatedAt time.Time        `json:"created_at"`
}
