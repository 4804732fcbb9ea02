package service

import (
	"context"
	"errors"
	"testing"

	"chirp/internal/models"
	"chirp/internal/testutil"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const testPassword = "password123"

func newTestServices(t *testing.T) (*Services, *gorm.DB) {
	t.Helper()
	return newTestServicesWithPolicy(t, DefaultPolicy())
}

func newTestServicesWithPolicy(t *testing.T, policy Policy) (*Services, *gorm.DB) {
	t.Helper()
	db := testutil.NewDB(t)
	svc := New(db, nil, policy)
	svc.Identity.SetHashCost(bcrypt.MinCost)
	return svc, db
}

func register(t *testing.T, svc *Services, username string) *models.User {
	t.Helper()
	u, err := svc.Identity.Register(context.Background(), RegisterInput{Username: username, Password: testPassword})
	require.NoError(t, err)
	return u
}

func registerAdmin(t *testing.T, svc *Services, username string) *models.User {
	t.Helper()
	u, err := svc.Identity.Register(context.Background(), RegisterInput{
		Username: username,
		Password: testPassword,
		IsAdmin:  true,
		Verified: true,
	})
	require.NoError(t, err)
	return u
}

func post(t *testing.T, svc *Services, author *models.User, content string) *models.Post {
	t.Helper()
	p, err := svc.Posts.CreatePost(context.Background(), author, CreatePostInput{Content: content})
	require.NoError(t, err)
	return p
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %v", err)
	require.Equal(t, code, appErr.Code, appErr.Message)
}

func unread(t *testing.T, svc *Services, user *models.User) int64 {
	t.Helper()
	n, err := svc.Notifications.PeekUnread(context.Background(), user.ID)
	require.NoError(t, err)
	return n
}
