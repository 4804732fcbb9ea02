package server

import (
	"time"

	"chirp/internal/cache"
	"chirp/internal/middleware"
	"chirp/internal/models"
	"chirp/internal/service"

	"github.com/gofiber/fiber/v2"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register handles POST /register
func (s *Server) Register(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	user, err := s.services.Identity.Register(c.UserContext(), service.RegisterInput{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		return models.Respond(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":  "User registered",
		"id":       user.ID,
		"username": user.Username,
	})
}

// Login handles POST /login
func (s *Server) Login(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	user, err := s.services.Identity.Authenticate(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return models.Respond(c, err)
	}

	ttl := time.Duration(s.config.TokenTTLMinutes) * time.Minute
	token, claims, err := middleware.IssueToken(s.config.JWTSecret, user, ttl)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
	}

	return c.JSON(fiber.Map{
		"token":      token,
		"expires_at": claims.ExpiresAt,
	})
}

// Logout handles POST /logout by revoking the presented token until it expires.
func (s *Server) Logout(c *fiber.Ctx) error {
	ctx := c.UserContext()
	claims, _ := c.Locals("claims").(*middleware.TokenClaims)
	if claims != nil {
		if err := cache.RevokeToken(ctx, s.redis, claims.ID, claims.ExpiresAt); err != nil {
			return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
		}
	}
	s.services.Identity.RecordLogout(ctx, currentUser(c).ID)
	return c.JSON(fiber.Map{"message": "Logged out"})
}

// GetMe handles GET /me
func (s *Server) GetMe(c *fiber.Ctx) error {
	profile, err := s.services.Identity.Me(c.UserContext(), currentUser(c))
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(profile)
}
