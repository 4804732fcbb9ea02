package service

import (
	"context"

	"chirp/internal/models"
	"chirp/internal/repository"
)

// Overview totals engagement over the caller's own original posts.
type Overview struct {
	TotalImpressions int64 `json:"totalImpressions"`
	TotalLikes       int64 `json:"totalLikes"`
	TotalRetweets    int64 `json:"totalRetweets"`
}

// Analytics is the analytics payload. Platform-wide sections are only filled for admins.
type Analytics struct {
	Overview    Overview                   `json:"overview"`
	PostStats   []repository.PostStat      `json:"postStats"`
	Platform    *repository.PlatformTotals `json:"platform,omitempty"`
	UserStats   []repository.UserStat      `json:"userStats,omitempty"`
	TopHashtags []repository.HashtagCount  `json:"topHashtags,omitempty"`
}

type userCounter interface {
	Count(ctx context.Context) (int64, error)
}

// AnalyticsService computes read-only aggregates on every call.
type AnalyticsService struct {
	repo  repository.AnalyticsRepository
	users userCounter
}

// NewAnalyticsService returns an AnalyticsService. users supplies the platform user total.
func NewAnalyticsService(repo repository.AnalyticsRepository, users userCounter) *AnalyticsService {
	return &AnalyticsService{repo: repo, users: users}
}

// For returns the analytics visible to user.
func (s *AnalyticsService) For(ctx context.Context, user *models.User) (*Analytics, error) {
	stats, err := s.repo.PostStats(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	out := &Analytics{PostStats: stats}
	for _, p := range stats {
		out.Overview.TotalImpressions += p.Impressions
		out.Overview.TotalLikes += p.Likes
		out.Overview.TotalRetweets += p.Retweets
	}
	if !user.IsAdmin {
		return out, nil
	}

	if out.Platform, err = s.repo.PlatformTotals(ctx); err != nil {
		return nil, err
	}
	if out.Platform.TotalUsers, err = s.users.Count(ctx); err != nil {
		return nil, err
	}
	if out.UserStats, err = s.repo.UserStats(ctx); err != nil {
		return nil, err
	}
	if out.TopHashtags, err = s.repo.TopHashtags(ctx, TrendsLimit); err != nil {
		return nil, err
	}
	return out, nil
}
