package service

import (
	"context"
	"strings"

	"chirp/internal/models"
	"chirp/internal/observability"
	"chirp/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// Feed views, also used as metric labels.
const (
	ViewFollowing     = "following"
	ViewRecommended   = "recommended"
	ViewSearchContent = "search_content"
	ViewSearchHashtag = "search_hashtag"
)

// FeedService composes timelines and search results. Every post served counts one impression.
type FeedService struct {
	posts repository.PostRepository
}

// NewFeedService returns a FeedService.
func NewFeedService(posts repository.PostRepository) *FeedService {
	return &FeedService{posts: posts}
}

// Following returns the viewer's own posts and those of accounts they follow.
func (s *FeedService) Following(ctx context.Context, viewer *models.User, page, limit int) ([]*models.Post, models.PaginationMeta, error) {
	return s.timeline(ctx, ViewFollowing, viewer, page, limit, s.posts.FollowingFeed)
}

// Recommended returns posts from accounts the viewer does not follow, ranked by score.
func (s *FeedService) Recommended(ctx context.Context, viewer *models.User, page, limit int) ([]*models.Post, models.PaginationMeta, error) {
	return s.timeline(ctx, ViewRecommended, viewer, page, limit, s.posts.RecommendedFeed)
}

type feedQuery func(ctx context.Context, viewerID uint, limit, offset int) ([]*models.Post, int64, error)

func (s *FeedService) timeline(ctx context.Context, view string, viewer *models.User, page, limit int, query feedQuery) ([]*models.Post, models.PaginationMeta, error) {
	ctx, span := observability.StartSpan(ctx, "feed."+view, attribute.Int("page", page))
	var err error
	defer func() { observability.EndSpan(span, err) }()

	page, limit, offset := Paginate(page, limit)
	posts, total, err := query(ctx, viewer.ID, limit, offset)
	if err != nil {
		return nil, models.PaginationMeta{}, err
	}
	if err = s.serve(ctx, view, posts); err != nil {
		return nil, models.PaginationMeta{}, err
	}
	return posts, models.PaginationMeta{Page: page, Limit: limit, Total: total}, nil
}

// SearchContent finds posts whose body contains q, ignoring case.
func (s *FeedService) SearchContent(ctx context.Context, viewer *models.User, q string) ([]*models.Post, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, models.NewValidationError("Search query required")
	}
	posts, err := s.posts.SearchContent(ctx, viewer.ID, q)
	if err != nil {
		return nil, err
	}
	if err := s.serve(ctx, ViewSearchContent, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// SearchHashtag finds posts carrying tag. A leading '#' is ignored.
func (s *FeedService) SearchHashtag(ctx context.Context, viewer *models.User, tag string) ([]*models.Post, error) {
	tag = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(tag), "#"))
	if tag == "" {
		return nil, models.NewValidationError("Hashtag required")
	}
	posts, err := s.posts.SearchHashtag(ctx, viewer.ID, tag)
	if err != nil {
		return nil, err
	}
	if err := s.serve(ctx, ViewSearchHashtag, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// serve records one impression for every post in the page and reflects it in the response.
func (s *FeedService) serve(ctx context.Context, view string, posts []*models.Post) error {
	observability.FeedRequests.WithLabelValues(view).Inc()
	if len(posts) == 0 {
		return nil
	}
	ids := make([]uint, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.ID)
	}
	if err := s.posts.IncrementImpressions(ctx, ids); err != nil {
		return err
	}
	for _, p := range posts {
		p.Impressions++
	}
	observability.Impressions.Add(float64(len(posts)))
	return nil
}
