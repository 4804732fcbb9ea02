package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"chirp/internal/database"
	"chirp/internal/middleware"
	"chirp/internal/models"
	"chirp/internal/service"

	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumUsers    int
	NumPosts    int
	ShouldClean bool
	// RandomSeed makes a run reproducible. Zero picks a random seed.
	RandomSeed int64
}

// Result summarises a seeding run.
type Result struct {
	Users []*models.User
	Posts []*models.Post
}

// Seeder fills a database with demo data.
type Seeder struct {
	db      *gorm.DB
	factory *Factory
}

// NewSeeder returns a Seeder writing through svc into db.
func NewSeeder(db *gorm.DB, svc *service.Services, randomSeed int64) *Seeder {
	return &Seeder{db: db, factory: NewFactory(svc, randomSeed)}
}

// Run seeds users, the follow graph, posts and engagement.
func (s *Seeder) Run(ctx context.Context, opts Options) (*Result, error) {
	middleware.Logger.InfoContext(ctx, "starting database seeding",
		slog.Int("users", opts.NumUsers), slog.Int("posts", opts.NumPosts))

	if opts.ShouldClean {
		if err := s.ClearAll(ctx); err != nil {
			return nil, err
		}
	}

	users, err := s.SeedUsers(ctx, opts.NumUsers)
	if err != nil {
		return nil, fmt.Errorf("failed to create users: %w", err)
	}
	middleware.Logger.InfoContext(ctx, "users created", slog.Int("count", len(users)))

	follows, err := s.SeedSocialMesh(ctx, users)
	if err != nil {
		return nil, fmt.Errorf("failed to build follow graph: %w", err)
	}
	middleware.Logger.InfoContext(ctx, "follow graph built", slog.Int("edges", follows))

	posts, err := s.SeedEngagement(ctx, users, opts.NumPosts)
	if err != nil {
		return nil, fmt.Errorf("failed to create posts: %w", err)
	}
	middleware.Logger.InfoContext(ctx, "posts created", slog.Int("count", len(posts)))

	return &Result{Users: users, Posts: posts}, nil
}

// ClearAll deletes every row of every table, children first.
func (s *Seeder) ClearAll(ctx context.Context) error {
	all := database.PersistentModels()
	for i := len(all) - 1; i >= 0; i-- {
		if err := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).
			Delete(all[i]).Error; err != nil {
			return fmt.Errorf("clear %T: %w", all[i], err)
		}
	}
	middleware.Logger.InfoContext(ctx, "existing data cleared")
	return nil
}

// SeedUsers registers n generated accounts.
func (s *Seeder) SeedUsers(ctx context.Context, n int) ([]*models.User, error) {
	users := make([]*models.User, 0, n)
	for len(users) < n {
		u, err := s.factory.CreateUser(ctx)
		if isConflict(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, nil
}

// SeedSocialMesh makes each user follow roughly a third of the others. It returns the number
// of edges created.
func (s *Seeder) SeedSocialMesh(ctx context.Context, users []*models.User) (int, error) {
	edges := 0
	for _, u := range users {
		for _, other := range users {
			if u.ID == other.ID || !s.factory.Chance(33) {
				continue
			}
			_, err := s.factory.svc.Identity.Follow(ctx, u, other.Username)
			if isConflict(err) {
				continue
			}
			if err != nil {
				return edges, err
			}
			edges++
		}
	}
	return edges, nil
}

// SeedEngagement creates numPosts posts by random authors and sprinkles likes, retweets and
// replies over them.
func (s *Seeder) SeedEngagement(ctx context.Context, users []*models.User, numPosts int) ([]*models.Post, error) {
	if len(users) == 0 {
		return nil, nil
	}
	f := s.factory
	posts := make([]*models.Post, 0, numPosts)
	for i := 0; i < numPosts; i++ {
		author := users[f.faker.Number(0, len(users)-1)]
		p, err := f.CreatePost(ctx, author)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)

		for _, u := range users {
			if u.ID == author.ID {
				continue
			}
			if f.Chance(30) {
				if _, _, err := f.svc.Posts.ToggleLike(ctx, u, p.ID); err != nil {
					return nil, err
				}
			}
			if f.Chance(10) {
				if _, err := f.svc.Posts.Retweet(ctx, u, p.ID); err != nil && !isConflict(err) {
					return nil, err
				}
			}
			if f.Chance(10) {
				if _, err := f.Reply(ctx, u, p); err != nil {
					return nil, err
				}
			}
		}
	}
	return posts, nil
}

func isConflict(err error) bool {
	var appErr *models.AppError
	return errors.As(err, &appErr) && appErr.Code == models.CodeConflict
}
