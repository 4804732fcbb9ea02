package bootstrap

import (
	"context"
	"testing"

	"chirp/internal/config"
	"chirp/internal/models"
	"chirp/internal/notifications"
	"chirp/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runtimeConfig() *config.Config {
	return &config.Config{
		Env:             "test",
		JWTSecret:       "test-secret-key-12345678901234567890123456789012",
		TokenTTLMinutes: 60,
		DBDriver:        config.DriverMemory,
		PostMaxLength:   280,
		BioMaxLength:    160,
		PinPolicy:       config.PinAuthorOrAdmin,
		AdminUsername:   "root",
		AdminPassword:   "rootpass123",
	}
}

func TestInitRuntime_CreatesAdmin(t *testing.T) {
	ctx := context.Background()
	cfg := runtimeConfig()

	db, rdb, err := InitRuntime(ctx, cfg, Options{})
	require.NoError(t, err)
	assert.Nil(t, rdb, "redis is optional")

	var admin models.User
	require.NoError(t, db.Where("username = ?", "root").First(&admin).Error)
	assert.True(t, admin.IsAdmin)
	assert.True(t, admin.Verified)
	assert.Equal(t, adminThemeColor, admin.ThemeColor)

	// A second pass over the same database leaves the account alone.
	svc := service.New(db, notifications.NewNotifier(nil), service.PolicyFromConfig(cfg))
	require.NoError(t, ensureAdmin(ctx, cfg, svc))

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestInitRuntime_NoAdminConfigured(t *testing.T) {
	cfg := runtimeConfig()
	cfg.AdminUsername = ""
	cfg.AdminPassword = ""

	db, _, err := InitRuntime(context.Background(), cfg, Options{})
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestInitRuntime_WeakAdminPassword(t *testing.T) {
	cfg := runtimeConfig()
	cfg.AdminPassword = "short"

	_, _, err := InitRuntime(context.Background(), cfg, Options{})
	assert.Error(t, err)
}

func TestInitRuntime_SeedsDemo(t *testing.T) {
	cfg := runtimeConfig()

	db, _, err := InitRuntime(context.Background(), cfg, Options{SeedDemo: true, DemoUsers: 3, DemoPosts: 5})
	require.NoError(t, err)

	var users, posts int64
	require.NoError(t, db.Model(&models.User{}).Count(&users).Error)
	require.NoError(t, db.Model(&models.Post{}).Where("kind = ?", models.PostKindOriginal).Count(&posts).Error)
	assert.Equal(t, int64(4), users, "three demo users plus the admin")
	assert.Equal(t, int64(5), posts)
}
