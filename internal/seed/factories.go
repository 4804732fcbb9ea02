// Package seed provides helpers to create demo data through the service layer, so seeded
// accounts and posts obey the same rules as real traffic. These helpers are intended for
// development and testing only.
package seed

import (
	"context"
	"fmt"
	"strings"

	"chirp/internal/models"
	"chirp/internal/service"

	"github.com/brianvoe/gofakeit/v6"
)

// DefaultPassword is the password of every generated account.
const DefaultPassword = "password123"

var topics = []string{
	"golang", "music", "movies", "coffee", "travel", "fitness", "books", "gaming",
	"cooking", "science", "art", "photography", "startups", "linux", "football",
}

// Factory generates fake users and posts and persists them through the services.
type Factory struct {
	svc   *service.Services
	faker *gofakeit.Faker
}

// NewFactory creates a Factory. A zero seed picks a random one.
func NewFactory(svc *service.Services, seed int64) *Factory {
	return &Factory{svc: svc, faker: gofakeit.New(seed)}
}

// Username builds a username that passes account validation.
func (f *Factory) Username() string {
	base := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		}
		return -1
	}, f.faker.Username())
	if len(base) > 24 {
		base = base[:24]
	}
	if len(base) < 3 {
		base = "user" + base
	}
	return fmt.Sprintf("%s%d", base, f.faker.Number(100, 999))
}

// CreateUser registers a generated account. Overrides may modify the input before saving.
func (f *Factory) CreateUser(ctx context.Context, overrides ...func(*service.RegisterInput)) (*models.User, error) {
	in := service.RegisterInput{
		Username: f.Username(),
		Password: DefaultPassword,
		Bio:      f.faker.Sentence(10),
		Theme:    f.faker.HexColor(),
	}
	for _, override := range overrides {
		override(&in)
	}
	return f.svc.Identity.Register(ctx, in)
}

// PostContent builds a post body with up to two hashtags that fits in limit characters.
func (f *Factory) PostContent(limit int) string {
	parts := []string{f.faker.Sentence(f.faker.Number(4, 14))}
	for i := f.faker.Number(0, 2); i > 0; i-- {
		parts = append(parts, "#"+f.faker.RandomString(topics))
	}
	content := strings.Join(parts, " ")
	if limit > 0 && len([]rune(content)) > limit {
		content = string([]rune(content)[:limit])
	}
	return content
}

// CreatePost publishes a generated post for user.
func (f *Factory) CreatePost(ctx context.Context, user *models.User, overrides ...func(*service.CreatePostInput)) (*models.Post, error) {
	in := service.CreatePostInput{Content: f.PostContent(280)}
	if f.faker.Number(1, 5) == 1 {
		in.ImageURL = fmt.Sprintf("https://picsum.photos/seed/%s/800/800", f.faker.UUID())
	}
	for _, override := range overrides {
		override(&in)
	}
	return f.svc.Posts.CreatePost(ctx, user, in)
}

// Reply adds a generated reply by user to post.
func (f *Factory) Reply(ctx context.Context, user *models.User, post *models.Post) (*models.Reply, error) {
	return f.svc.Posts.Reply(ctx, user, post.ID, f.faker.Sentence(f.faker.Number(3, 10)))
}

// Chance reports true with probability percent/100.
func (f *Factory) Chance(percent int) bool {
	return f.faker.Number(1, 100) <= percent
}
