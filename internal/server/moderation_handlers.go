package server

import (
	"chirp/internal/models"

	"github.com/gofiber/fiber/v2"
)

type messageRequest struct {
	Message string `json:"message"`
}

// BanUser handles POST /ban/:username (admin)
func (s *Server) BanUser(c *fiber.Ctx) error {
	target, err := s.services.Moderation.Ban(c.UserContext(), currentUser(c), c.Params("username"))
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{"message": "User " + target.Username + " has been banned"})
}

// WarnUser handles POST /warn/:username (admin)
func (s *Server) WarnUser(c *fiber.Ctx) error {
	var req messageRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	target, err := s.services.Moderation.Warn(c.UserContext(), currentUser(c), c.Params("username"), req.Message)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{"message": "Warning sent to " + target.Username})
}

// Announce handles POST /announce (admin)
func (s *Server) Announce(c *fiber.Ctx) error {
	var req messageRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	recipients, err := s.services.Moderation.Announce(c.UserContext(), currentUser(c), req.Message)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{"message": "Announcement sent", "recipients": recipients})
}

// UserActivity handles GET /users/:username/activity (admin)
func (s *Server) UserActivity(c *fiber.Ctx) error {
	page, limit := pageQuery(c)
	target, entries, meta, err := s.services.Moderation.Activity(c.UserContext(), currentUser(c), c.Params("username"), page, limit)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{
		"username":    target.Username,
		"activityLog": entries,
		"meta":        meta,
	})
}

// TrendingHashtags handles GET /trends/hashtags (admin)
func (s *Server) TrendingHashtags(c *fiber.Ctx) error {
	trends, err := s.services.Moderation.Trends(c.UserContext(), currentUser(c))
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{"trends": trends})
}

// GetAnalytics handles GET /analytics. Admins also receive the platform-wide sections.
func (s *Server) GetAnalytics(c *fiber.Ctx) error {
	analytics, err := s.services.Analytics.For(c.UserContext(), currentUser(c))
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(analytics)
}
