// Package notifications publishes persisted notification events to Redis subscribers.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strconv"
	"time"

	"chirp/internal/middleware"
	"chirp/internal/models"

	"github.com/redis/go-redis/v9"
)

// BroadcastChannel carries admin announcements.
const BroadcastChannel = "notifications:broadcast"

// Event is the payload published for each stored notification.
type Event struct {
	ID        uint                    `json:"id"`
	UserID    uint                    `json:"user_id"`
	Type      models.NotificationType `json:"type"`
	Actor     string                  `json:"actor,omitempty"`
	Message   string                  `json:"message"`
	PostID    *uint                   `json:"post_id,omitempty"`
	CreatedAt time.Time               `json:"created_at"`
}

// Notifier provides helpers to publish notifications into Redis channels
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// Enabled reports whether events are actually published.
func (n *Notifier) Enabled() bool {
	return n != nil && n.rdb != nil
}

// PublishUser sends a notification payload to a user's channel.
func (n *Notifier) PublishUser(ctx context.Context, userID uint, payload string) error {
	if !n.Enabled() {
		return nil
	}
	return n.rdb.Publish(ctx, UserChannel(userID), payload).Err()
}

// PublishBroadcast sends one event addressed to every user. UserID is left zero.
func (n *Notifier) PublishBroadcast(ctx context.Context, ev Event) error {
	if !n.Enabled() {
		return nil
	}
	ev.UserID = 0
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return n.rdb.Publish(ctx, BroadcastChannel, payload).Err()
}

// PublishNotifications publishes one event per stored notification. Delivery is best effort:
// failures are logged and never undo the stored rows.
func (n *Notifier) PublishNotifications(ctx context.Context, items []*models.Notification) {
	if !n.Enabled() {
		return
	}
	for _, item := range items {
		payload, err := json.Marshal(Event{
			ID:        item.ID,
			UserID:    item.UserID,
			Type:      item.Type,
			Actor:     item.Actor,
			Message:   item.Message,
			PostID:    item.PostID,
			CreatedAt: item.CreatedAt,
		})
		if err != nil {
			continue
		}
		if err := n.PublishUser(ctx, item.UserID, string(payload)); err != nil {
			middleware.Logger.WarnContext(ctx, "notification publish failed",
				slog.Uint64("recipient", uint64(item.UserID)),
				slog.String("error", err.Error()),
			)
			return
		}
	}
}

// StartPatternSubscriber subscribes to every user channel and the broadcast channel and calls
// onMessage for each incoming message until ctx is cancelled.
func (n *Notifier) StartPatternSubscriber(ctx context.Context, onMessage func(channel string, payload string)) error {
	if !n.Enabled() {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, "notifications:user:*", BroadcastChannel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe notifications: %w", err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							middleware.Logger.Error("panic in notification subscriber",
								slog.Any("panic", r),
								slog.String("stack", string(debug.Stack())),
							)
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()

	return nil
}

// UserChannel derives the Redis channel name for a user.
func UserChannel(userID uint) string {
	return "notifications:user:" + strconv.FormatUint(uint64(userID), 10)
}
