// Package server contains the HTTP handlers and middleware wiring for the API.
package server

import (
	"context"
	"log/slog"
	"time"

	"chirp/internal/cache"
	"chirp/internal/config"
	"chirp/internal/database"
	"chirp/internal/middleware"
	"chirp/internal/models"
	"chirp/internal/notifications"
	"chirp/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	promMiddleware *fiberprometheus.FiberPrometheus
	notifier       *notifications.Notifier
	services       *service.Services
	shutdownFn     context.CancelFunc
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil, in which case token revocation, route rate limits and
// notification publishing are disabled.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	notifier := notifications.NewNotifier(redisClient)
	return &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("chirp-api"),
		notifier:       notifier,
		services:       service.New(db, notifier, service.PolicyFromConfig(cfg)),
	}, nil
}

// Services exposes the business layer, mainly for bootstrap code and tests.
func (s *Server) Services() *service.Services {
	return s.services
}

// NewApp builds the fiber app with the error handler every route relies on.
func NewApp() *fiber.App {
	return fiber.New(fiber.Config{
		AppName:   "Chirp API",
		BodyLimit: 1 * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
			return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
		},
	})
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	app.Use(middleware.TracingMiddleware())

	// Context Middleware to propagate Request ID and trace ID
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(s.promMiddleware.Middleware)
	}

	// Security headers
	app.Use(helmet.New())

	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:3000,http://127.0.0.1:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: origins != "*",
		MaxAge:           86400,
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
				Error: "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	app.Post("/register", middleware.RateLimit(s.redis, 5, 10*time.Minute, "register"), s.Register)
	app.Post("/login", middleware.RateLimitWithPolicy(s.redis, 10, 5*time.Minute, s.loginFailPolicy(), "login"), s.Login)

	// Middleware is attached per route rather than through a prefix-less group so that unknown
	// paths still reach the 404 handler instead of the auth check.
	auth := s.AuthRequired()
	admin := s.AdminRequired()

	app.Post("/logout", auth, s.Logout)
	app.Get("/me", auth, s.GetMe)

	// Specific /tweets/:id/* routes before the generic /tweets/:id ones
	app.Post("/tweets", auth, middleware.RateLimit(s.redis, 30, time.Minute, "create_tweet"), s.CreateTweet)
	app.Post("/tweets/:id/like", auth, s.LikeTweet)
	app.Post("/tweets/:id/retweet", auth, s.Retweet)
	app.Post("/tweets/:id/reply", auth, s.ReplyToTweet)
	app.Post("/tweets/:id/replies/:replyId/like", auth, s.LikeReply)
	app.Post("/tweets/:id/pin", auth, s.PinTweet)
	app.Get("/tweets/:id", auth, s.GetTweet)
	app.Put("/tweets/:id", auth, admin, s.EditTweet)
	app.Delete("/tweets/:id", auth, admin, s.DeleteTweet)

	app.Get("/timeline/following", auth, s.FollowingTimeline)
	app.Get("/timeline/recommended", auth, s.RecommendedTimeline)
	app.Get("/search/tweets", auth, s.SearchTweets)
	app.Get("/search/hashtags", auth, s.SearchHashtags)

	app.Get("/users/:username/activity", auth, admin, s.UserActivity)
	app.Get("/users/:username", auth, s.GetUserProfile)
	app.Post("/profile/update", auth, s.UpdateProfile)
	app.Post("/profile/image", auth, s.UpdateProfileImage)
	app.Get("/drafts", auth, s.GetDraft)
	app.Post("/drafts", auth, s.SaveDraft)

	app.Post("/follow/:username", auth, s.Follow)
	app.Post("/unfollow/:username", auth, s.Unfollow)
	app.Post("/block/:username", auth, s.Block)
	app.Post("/unblock/:username", auth, s.Unblock)

	app.Get("/notifications/unread", auth, s.GetUnreadCount)
	app.Get("/notifications", auth, s.GetNotifications)

	app.Get("/analytics", auth, s.GetAnalytics)

	app.Post("/ban/:username", auth, admin, s.BanUser)
	app.Post("/warn/:username", auth, admin, s.WarnUser)
	app.Post("/announce", auth, admin, s.Announce)
	app.Get("/trends/hashtags", auth, admin, s.TrendingHashtags)

	if s.config.StaticDir != "" {
		app.Static("/", s.config.StaticDir)
	}

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{Error: "Page not found"})
	})
}

// loginFailPolicy refuses logins in production while a configured redis is unreachable, so
// credential guessing cannot run unthrottled.
func (s *Server) loginFailPolicy() middleware.FailPolicy {
	if s.config.IsProduction() && s.redis != nil {
		return middleware.FailClosed
	}
	return middleware.FailOpen
}

// StartNotificationRelay subscribes to the notification channels and logs every delivered
// event until Shutdown. It is a no-op without redis.
func (s *Server) StartNotificationRelay(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.shutdownFn = cancel
	return s.notifier.StartPatternSubscriber(ctx, func(channel, payload string) {
		middleware.Logger.Debug("notification delivered",
			slog.String("channel", channel),
			slog.Int("bytes", len(payload)),
		)
	})
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests. Redis is optional: a missing client is
// reported as disabled, an unreachable one makes the service unready.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if err := database.Ping(ctx, s.db); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "disabled"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// AuthRequired validates the bearer token, rejects revoked tokens and loads the caller.
// A token whose user has since been banned gets 403.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()

		raw, err := middleware.BearerToken(c)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError(err.Error()))
		}

		claims, err := middleware.ParseToken(s.config.JWTSecret, raw)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid or expired token"))
		}

		revoked, err := cache.IsTokenRevoked(ctx, s.redis, claims.ID)
		if err != nil {
			middleware.Logger.WarnContext(ctx, "token revocation check failed", slog.String("error", err.Error()))
		}
		if revoked {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Token has been revoked"))
		}

		user, err := s.services.Identity.GetUser(ctx, claims.UserID)
		if err != nil {
			if models.StatusFor(err) != fiber.StatusNotFound {
				return models.Respond(c, err)
			}
			banned, banErr := s.services.Identity.IsBanned(ctx, claims.Username)
			if banErr != nil {
				return models.Respond(c, banErr)
			}
			if banned {
				return models.RespondWithError(c, fiber.StatusForbidden,
					models.NewForbiddenError("Account banned"))
			}
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("User no longer exists"))
		}

		c.Locals("userID", user.ID)
		c.Locals("user", user)
		c.Locals("claims", claims)
		c.SetUserContext(middleware.WithUserID(ctx, user.ID))
		return c.Next()
	}
}

// AdminRequired returns middleware that rejects non-admin users with 403.
// Must be placed after AuthRequired so that the caller is available in locals.
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := c.Locals("user").(*models.User)
		if !ok || !user.IsAdmin {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Admin access required"))
		}
		return c.Next()
	}
}

// Shutdown stops the notification relay and closes the database and redis connections.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.ErrorContext(ctx, "error closing database", slog.String("error", cerr.Error()))
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.ErrorContext(ctx, "error closing redis", slog.String("error", rerr.Error()))
		}
	}

	middleware.Logger.InfoContext(ctx, "Server shutdown complete")
	return nil
}
