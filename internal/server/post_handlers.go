package server

import (
	"chirp/internal/models"
	"chirp/internal/service"

	"github.com/gofiber/fiber/v2"
)

type contentRequest struct {
	Content  string `json:"content"`
	ImageURL string `json:"image_url,omitempty"`
}

// CreateTweet handles POST /tweets
func (s *Server) CreateTweet(c *fiber.Ctx) error {
	var req contentRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	post, err := s.services.Posts.CreatePost(c.UserContext(), currentUser(c), service.CreatePostInput{
		Content:  req.Content,
		ImageURL: req.ImageURL,
	})
	if err != nil {
		return models.Respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// GetTweet handles GET /tweets/:id
func (s *Server) GetTweet(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	post, err := s.services.Posts.GetPost(c.UserContext(), id)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(post)
}

// LikeTweet handles POST /tweets/:id/like. A second call removes the like.
func (s *Server) LikeTweet(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	liked, count, err := s.services.Posts.ToggleLike(c.UserContext(), currentUser(c), id)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{"liked": liked, "likes_count": count})
}

// Retweet handles POST /tweets/:id/retweet
func (s *Server) Retweet(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	post, err := s.services.Posts.Retweet(c.UserContext(), currentUser(c), id)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// ReplyToTweet handles POST /tweets/:id/reply
func (s *Server) ReplyToTweet(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req contentRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	reply, err := s.services.Posts.Reply(c.UserContext(), currentUser(c), id, req.Content)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(reply)
}

// LikeReply handles POST /tweets/:id/replies/:replyId/like
func (s *Server) LikeReply(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	replyID, err := s.parseID(c, "replyId")
	if err != nil {
		return nil
	}
	liked, count, err := s.services.Posts.ToggleReplyLike(c.UserContext(), currentUser(c), id, replyID)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{"liked": liked, "likes_count": count})
}

// PinTweet handles POST /tweets/:id/pin. A second call unpins.
func (s *Server) PinTweet(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	post, err := s.services.Posts.TogglePin(c.UserContext(), currentUser(c), id)
	if err != nil {
		return models.Respond(c, err)
	}
	message := "Tweet unpinned"
	if post.Pinned {
		message = "Tweet pinned"
	}
	return c.JSON(fiber.Map{"message": message, "tweet": post})
}

// EditTweet handles PUT /tweets/:id (admin)
func (s *Server) EditTweet(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req contentRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	post, err := s.services.Posts.EditPost(c.UserContext(), currentUser(c), id, req.Content)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(post)
}

// DeleteTweet handles DELETE /tweets/:id (admin)
func (s *Server) DeleteTweet(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.services.Posts.DeletePost(c.UserContext(), currentUser(c), id); err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{"message": "Tweet deleted"})
}
