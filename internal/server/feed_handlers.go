package server

import (
	"chirp/internal/models"

	"github.com/gofiber/fiber/v2"
)

// FollowingTimeline handles GET /timeline/following
func (s *Server) FollowingTimeline(c *fiber.Ctx) error {
	page, limit := pageQuery(c)
	posts, meta, err := s.services.Feed.Following(c.UserContext(), currentUser(c), page, limit)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{"tweets": posts, "meta": meta})
}

// RecommendedTimeline handles GET /timeline/recommended
func (s *Server) RecommendedTimeline(c *fiber.Ctx) error {
	page, limit := pageQuery(c)
	posts, meta, err := s.services.Feed.Recommended(c.UserContext(), currentUser(c), page, limit)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{"tweets": posts, "meta": meta})
}

// SearchTweets handles GET /search/tweets?q=
func (s *Server) SearchTweets(c *fiber.Ctx) error {
	results, err := s.services.Feed.SearchContent(c.UserContext(), currentUser(c), c.Query("q"))
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{"results": results})
}

// SearchHashtags handles GET /search/hashtags?tag=
func (s *Server) SearchHashtags(c *fiber.Ctx) error {
	results, err := s.services.Feed.SearchHashtag(c.UserContext(), currentUser(c), c.Query("tag"))
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{"results": results})
}
