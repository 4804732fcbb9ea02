// Package service holds the business rules of the API: identity, content, notification
// fan-out, feeds, moderation and analytics.
package service

import (
	"fmt"
	"math"
	"strings"

	"chirp/internal/config"
	"chirp/internal/models"
	"chirp/internal/validation"
)

// Policy carries the deployment-configurable business limits.
type Policy struct {
	PostMaxLength      int
	AdminPostMaxLength int // 0 means unlimited
	BioMaxLength       int
	PinPolicy          string
}

// PolicyFromConfig extracts the business limits from cfg.
func PolicyFromConfig(cfg *config.Config) Policy {
	return Policy{
		PostMaxLength:      cfg.PostMaxLength,
		AdminPostMaxLength: cfg.AdminPostMaxLength,
		BioMaxLength:       cfg.BioMaxLength,
		PinPolicy:          cfg.PinPolicy,
	}
}

// DefaultPolicy mirrors the configuration defaults.
func DefaultPolicy() Policy {
	return Policy{
		PostMaxLength: 280,
		BioMaxLength:  160,
		PinPolicy:     config.PinAuthorOrAdmin,
	}
}

// ContentLimit is the maximum body length for author, or 0 for unlimited.
func (p Policy) ContentLimit(author *models.User) int {
	if author.IsAdmin {
		return p.AdminPostMaxLength
	}
	return p.PostMaxLength
}

// CheckContent applies the empty and length rules shared by posts, replies and drafts.
func (p Policy) CheckContent(author *models.User, content string) error {
	if strings.TrimSpace(content) == "" {
		return models.NewValidationError("Content required")
	}
	if limit := p.ContentLimit(author); limit > 0 && validation.CharCount(content) > limit {
		return models.NewValidationError(fmt.Sprintf("Content exceeds %d characters", limit))
	}
	return nil
}

// CanPin reports whether actor may pin or unpin post.
func (p Policy) CanPin(actor *models.User, post *models.Post) bool {
	isAuthor := post.UserID == actor.ID
	switch p.PinPolicy {
	case config.PinAdminOnly:
		return actor.IsAdmin
	case config.PinAuthorOnly:
		return isAuthor
	default:
		return isAuthor || actor.IsAdmin
	}
}

func requireAdmin(actor *models.User) error {
	if actor == nil || !actor.IsAdmin {
		return models.NewForbiddenError("Admin access required")
	}
	return nil
}

// Paginate normalises 1-indexed page/limit query values into limit and offset.
func Paginate(page, limit int) (int, int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	// Keep the offset within a 32-bit signed range.
	if maxPage := math.MaxInt32/limit + 1; page > maxPage {
		page = maxPage
	}
	return page, limit, (page - 1) * limit
}
