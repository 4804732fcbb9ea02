package server

import (
	"context"
	"fmt"

	"chirp/internal/models"
	"chirp/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetUserProfile handles GET /users/:username
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	profile, err := s.services.Identity.Profile(c.UserContext(), currentUser(c), c.Params("username"))
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(profile)
}

// UpdateProfile handles POST /profile/update
func (s *Server) UpdateProfile(c *fiber.Ctx) error {
	var req struct {
		Bio        *string `json:"bio"`
		ThemeColor *string `json:"themeColor"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	user, err := s.services.Identity.UpdateProfile(c.UserContext(), currentUser(c), service.UpdateProfileInput{
		Bio:        req.Bio,
		ThemeColor: req.ThemeColor,
	})
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{"message": "Profile updated", "user": user})
}

// UpdateProfileImage handles POST /profile/image
func (s *Server) UpdateProfileImage(c *fiber.Ctx) error {
	var req struct {
		Image string `json:"image"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	user, err := s.services.Identity.SetProfileImage(c.UserContext(), currentUser(c), req.Image)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{"message": "Profile image updated", "profile_image": user.ProfileImage})
}

// GetDraft handles GET /drafts
func (s *Server) GetDraft(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"draft": currentUser(c).Draft})
}

// SaveDraft handles POST /drafts
func (s *Server) SaveDraft(c *fiber.Ctx) error {
	var req contentRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	draft, err := s.services.Identity.SaveDraft(c.UserContext(), currentUser(c), req.Content)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{"message": "Draft saved", "draft": draft})
}

// graphHandler adapts a follow-graph operation into a handler replying with message.
func graphHandler(message string, op func(ctx context.Context, actor *models.User, username string) (*models.User, error)) fiber.Handler {
	return func(c *fiber.Ctx) error {
		target, err := op(c.UserContext(), currentUser(c), c.Params("username"))
		if err != nil {
			return models.Respond(c, err)
		}
		return c.JSON(fiber.Map{"message": fmt.Sprintf(message, target.Username)})
	}
}

// Follow handles POST /follow/:username
func (s *Server) Follow(c *fiber.Ctx) error {
	return graphHandler("You are now following %s", s.services.Identity.Follow)(c)
}

// Unfollow handles POST /unfollow/:username
func (s *Server) Unfollow(c *fiber.Ctx) error {
	return graphHandler("You unfollowed %s", s.services.Identity.Unfollow)(c)
}

// Block handles POST /block/:username
func (s *Server) Block(c *fiber.Ctx) error {
	return graphHandler("You blocked %s", s.services.Identity.Block)(c)
}

// Unblock handles POST /unblock/:username
func (s *Server) Unblock(c *fiber.Ctx) error {
	return graphHandler("You unblocked %s", s.services.Identity.Unblock)(c)
}
