package server

import (
	"chirp/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetNotifications handles GET /notifications. Entries carry the read state they had
// before this call; all of them are marked read afterwards.
func (s *Server) GetNotifications(c *fiber.Ctx) error {
	page, limit := pageQuery(c)
	items, meta, err := s.services.Notifications.ListAndMarkRead(c.UserContext(), currentUser(c).ID, page, limit)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{"notifications": items, "meta": meta})
}

// GetUnreadCount handles GET /notifications/unread
func (s *Server) GetUnreadCount(c *fiber.Ctx) error {
	count, err := s.services.Notifications.PeekUnread(c.UserContext(), currentUser(c).ID)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{"unread": count})
}
