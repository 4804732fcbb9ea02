package service

import (
	"context"
	"strings"
	"sync"
	"testing"

	"chirp/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentityService_RegisterValidation(t *testing.T) {
	svc, _ := newTestServices(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   RegisterInput
		code string
	}{
		{"Missing username", RegisterInput{Password: testPassword}, models.CodeValidation},
		{"Missing password", RegisterInput{Username: "alice"}, models.CodeValidation},
		{"Bad username", RegisterInput{Username: "a b", Password: testPassword}, models.CodeValidation},
		{"Weak password", RegisterInput{Username: "alice", Password: "short"}, models.CodeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Identity.Register(ctx, tt.in)
			requireCode(t, err, tt.code)
		})
	}

	alice := register(t, svc, "alice")
	assert.NotZero(t, alice.ID)
	assert.NotEqual(t, testPassword, alice.Password)
	assert.Equal(t, "#ffffff", alice.ThemeColor)

	_, err := svc.Identity.Register(ctx, RegisterInput{Username: "alice", Password: testPassword})
	requireCode(t, err, models.CodeConflict)
}

func TestIdentityService_ConcurrentRegistrationOfSameName(t *testing.T) {
	svc, db := newTestServices(t)

	const attempts = 8
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Identity.Register(context.Background(), RegisterInput{Username: "racer", Password: testPassword})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var ok, conflicts int
	for err := range results {
		if err == nil {
			ok++
			continue
		}
		assert.Equal(t, 400, models.StatusFor(err))
		conflicts++
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, attempts-1, conflicts)

	var n int64
	require.NoError(t, db.Model(&models.User{}).Where("username = ?", "racer").Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestIdentityService_Authenticate(t *testing.T) {
	svc, _ := newTestServices(t)
	ctx := context.Background()
	register(t, svc, "alice")

	user, err := svc.Identity.Authenticate(ctx, "alice", testPassword)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)

	_, err = svc.Identity.Authenticate(ctx, "alice", "wrong-password1")
	requireCode(t, err, models.CodeUnauthorized)

	_, err = svc.Identity.Authenticate(ctx, "nobody", testPassword)
	requireCode(t, err, models.CodeUnauthorized)

	_, err = svc.Identity.Authenticate(ctx, "", "")
	requireCode(t, err, models.CodeValidation)

	entries, _, err := svc.Activity.List(ctx, user.ID, 1, 50)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, ActionRegister, entries[0].Action)
	assert.Equal(t, ActionLogin, entries[1].Action)
}

func TestIdentityService_FollowIsSymmetricAndNotifies(t *testing.T) {
	svc, _ := newTestServices(t)
	ctx := context.Background()
	alice := register(t, svc, "alice")
	bob := register(t, svc, "bob")

	_, err := svc.Identity.Follow(ctx, bob, "alice")
	require.NoError(t, err)

	_, err = svc.Identity.Follow(ctx, bob, "alice")
	requireCode(t, err, models.CodeConflict)
	_, err = svc.Identity.Follow(ctx, bob, "bob")
	requireCode(t, err, models.CodeValidation)
	_, err = svc.Identity.Follow(ctx, bob, "ghost")
	requireCode(t, err, models.CodeNotFound)

	bobView, err := svc.Identity.Me(ctx, bob)
	require.NoError(t, err)
	aliceView, err := svc.Identity.Profile(ctx, bob, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, bobView.Following)
	assert.Equal(t, []string{"bob"}, aliceView.Followers)
	assert.Nil(t, aliceView.Blocked, "block lists are only shown to their owner")

	assert.Equal(t, int64(1), unread(t, svc, alice))

	_, err = svc.Identity.Unfollow(ctx, bob, "alice")
	require.NoError(t, err)
	_, err = svc.Identity.Unfollow(ctx, bob, "alice")
	requireCode(t, err, models.CodeConflict)

	aliceView, err = svc.Identity.Profile(ctx, bob, "alice")
	require.NoError(t, err)
	assert.Empty(t, aliceView.Followers)

	list, _, err := svc.Notifications.ListAndMarkRead(ctx, alice.ID, 1, 20)
	require.NoError(t, err)
	require.Len(t, list, 2)
	types := []models.NotificationType{list[0].Type, list[1].Type}
	assert.ElementsMatch(t, []models.NotificationType{models.NotificationFollow, models.NotificationUnfollow}, types)
}

func TestIdentityService_BlockSeversGraph(t *testing.T) {
	svc, _ := newTestServices(t)
	ctx := context.Background()
	alice := register(t, svc, "alice")
	bob := register(t, svc, "bob")

	_, err := svc.Identity.Follow(ctx, bob, "alice")
	require.NoError(t, err)
	_, err = svc.Identity.Follow(ctx, alice, "bob")
	require.NoError(t, err)

	_, err = svc.Identity.Block(ctx, alice, "bob")
	require.NoError(t, err)
	_, err = svc.Identity.Block(ctx, alice, "bob")
	requireCode(t, err, models.CodeConflict)
	_, err = svc.Identity.Block(ctx, alice, "alice")
	requireCode(t, err, models.CodeValidation)

	me, err := svc.Identity.Me(ctx, alice)
	require.NoError(t, err)
	assert.Empty(t, me.Following)
	assert.Empty(t, me.Followers)
	assert.Equal(t, []string{"bob"}, me.Blocked)

	_, err = svc.Identity.Follow(ctx, bob, "alice")
	requireCode(t, err, models.CodeForbidden)
	_, err = svc.Identity.Profile(ctx, alice, "bob")
	requireCode(t, err, models.CodeForbidden)

	_, err = svc.Identity.Unblock(ctx, alice, "bob")
	require.NoError(t, err)
	_, err = svc.Identity.Unblock(ctx, alice, "bob")
	requireCode(t, err, models.CodeConflict)
	_, err = svc.Identity.Follow(ctx, bob, "alice")
	assert.NoError(t, err)
}

func TestIdentityService_UpdateProfile(t *testing.T) {
	svc, _ := newTestServices(t)
	ctx := context.Background()
	alice := register(t, svc, "alice")

	long := strings.Repeat("b", 200)
	color := "#1DA1F2"
	updated, err := svc.Identity.UpdateProfile(ctx, alice, UpdateProfileInput{Bio: &long, ThemeColor: &color})
	require.NoError(t, err)
	assert.Len(t, updated.Bio, 160)
	assert.Equal(t, color, updated.ThemeColor)

	stored, err := svc.Identity.GetUser(ctx, alice.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Bio, 160)
	assert.NotEmpty(t, stored.Password, "partial updates keep the credential hash")

	bad := "javascript:alert(1)"
	_, err = svc.Identity.UpdateProfile(ctx, alice, UpdateProfileInput{ThemeColor: &bad})
	requireCode(t, err, models.CodeValidation)

	_, err = svc.Identity.SetProfileImage(ctx, alice, "  ")
	requireCode(t, err, models.CodeValidation)
	updated, err = svc.Identity.SetProfileImage(ctx, alice, "/img/alice.png")
	require.NoError(t, err)
	assert.Equal(t, "/img/alice.png", updated.ProfileImage)
}

func TestIdentityService_Drafts(t *testing.T) {
	svc, _ := newTestServices(t)
	ctx := context.Background()
	alice := register(t, svc, "alice")
	admin := registerAdmin(t, svc, "root")

	_, err := svc.Identity.SaveDraft(ctx, alice, "")
	requireCode(t, err, models.CodeValidation)
	_, err = svc.Identity.SaveDraft(ctx, alice, strings.Repeat("x", 281))
	requireCode(t, err, models.CodeValidation)

	draft, err := svc.Identity.SaveDraft(ctx, alice, "later")
	require.NoError(t, err)
	assert.Equal(t, "later", draft)
	stored, err := svc.Identity.GetUser(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "later", stored.Draft)

	_, err = svc.Identity.SaveDraft(ctx, admin, strings.Repeat("x", 1000))
	assert.NoError(t, err, "admins have no limit by default")
}
