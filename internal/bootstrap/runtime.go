// Package bootstrap connects the storage backends and prepares a fresh instance.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"chirp/internal/cache"
	"chirp/internal/config"
	"chirp/internal/database"
	"chirp/internal/middleware"
	"chirp/internal/models"
	"chirp/internal/notifications"
	"chirp/internal/seed"
	"chirp/internal/service"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const adminThemeColor = "#1DA1F2"

// Options control runtime initialization behavior.
type Options struct {
	SeedDemo  bool
	DemoUsers int
	DemoPosts int
}

// InitRuntime connects to DB and Redis, ensures the configured admin exists and
// optionally seeds demo data.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	// Nil when REDIS_URL is empty or the server is unreachable.
	r := cache.InitRedis(cfg.RedisURL)

	svc := service.New(db, notifications.NewNotifier(r), service.PolicyFromConfig(cfg))

	if err := ensureAdmin(ctx, cfg, svc); err != nil {
		return nil, nil, fmt.Errorf("failed to bootstrap admin account: %w", err)
	}

	if opts.SeedDemo {
		users, posts := opts.DemoUsers, opts.DemoPosts
		if users <= 0 {
			users = 10
		}
		if posts <= 0 {
			posts = 40
		}
		if _, err := seed.NewSeeder(db, svc, 0).Run(ctx, seed.Options{NumUsers: users, NumPosts: posts}); err != nil {
			return nil, nil, fmt.Errorf("failed to seed demo data: %w", err)
		}
	}

	return db, r, nil
}

// ensureAdmin registers the ADMIN_USERNAME account as a verified admin. An existing
// account of that name is left untouched.
func ensureAdmin(ctx context.Context, cfg *config.Config, svc *service.Services) error {
	username := strings.TrimSpace(cfg.AdminUsername)
	if username == "" {
		return nil
	}

	_, err := svc.Identity.Register(ctx, service.RegisterInput{
		Username: username,
		Password: cfg.AdminPassword,
		IsAdmin:  true,
		Verified: true,
		Theme:    adminThemeColor,
	})
	var appErr *models.AppError
	if errors.As(err, &appErr) && appErr.Code == models.CodeConflict {
		middleware.Logger.InfoContext(ctx, "admin account already present", slog.String("username", username))
		return nil
	}
	if err != nil {
		return err
	}

	middleware.Logger.InfoContext(ctx, "admin account created", slog.String("username", username))
	return nil
}
