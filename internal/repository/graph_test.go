package repository

import (
	"context"
	"sync"
	"testing"

	"chirp/internal/models"
	"chirp/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraphRepository_FollowIsSymmetric(t *testing.T) {
	db := testutil.NewDB(t)
	graph := NewGraphRepository(db)
	ctx := context.Background()

	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	carol := seedUser(t, db, "carol")

	created, err := graph.Follow(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = graph.Follow(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.False(t, created, "second follow is not a new edge")

	_, err = graph.Follow(ctx, carol.ID, alice.ID)
	require.NoError(t, err)

	following, err := graph.FollowingUsernames(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, following)

	followers, err := graph.FollowerUsernames(ctx, alice.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"bob", "carol"}, followers)

	followerIDs, err := graph.FollowerIDs(ctx, alice.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{bob.ID, carol.ID}, followerIDs)

	removed, err := graph.Unfollow(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = graph.Unfollow(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.False(t, removed)

	followers, err = graph.FollowerUsernames(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"carol"}, followers)

	following, err = graph.FollowingUsernames(ctx, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, following)
	assert.NotNil(t, following)
}

func TestGraphRepository_BlockDropsFollowEdges(t *testing.T) {
	db := testutil.NewDB(t)
	graph := NewGraphRepository(db)
	ctx := context.Background()

	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")

	_, err := graph.Follow(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	_, err = graph.Follow(ctx, bob.ID, alice.ID)
	require.NoError(t, err)

	created, err := graph.Block(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = graph.Block(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, created)

	for _, id := range []uint{alice.ID, bob.ID} {
		following, err := graph.FollowingUsernames(ctx, id)
		require.NoError(t, err)
		assert.Empty(t, following)
	}

	blocked, err := graph.IsBlockedEitherWay(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.True(t, blocked)

	has, err := graph.HasBlocked(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.False(t, has)

	names, err := graph.BlockedUsernames(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, names)

	removed, err := graph.Unblock(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	blocked, err = graph.IsBlockedEitherWay(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, blocked)
}

func TestGraphRepository_FollowRefusedWhileBlocked(t *testing.T) {
	tests := []struct {
		name    string
		blocker string
	}{
		{name: "followee blocked follower", blocker: "alice"},
		{name: "follower blocked followee", blocker: "bob"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := testutil.NewDB(t)
			graph := NewGraphRepository(db)
			ctx := context.Background()

			users := map[string]*models.User{
				"alice": seedUser(t, db, "alice"),
				"bob":   seedUser(t, db, "bob"),
			}
			other := users["alice"]
			if tt.blocker == "alice" {
				other = users["bob"]
			}
			_, err := graph.Block(ctx, users[tt.blocker].ID, other.ID)
			require.NoError(t, err)

			created, err := graph.Follow(ctx, users["bob"].ID, users["alice"].ID)
			var appErr *models.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, models.CodeForbidden, appErr.Code)
			assert.False(t, created)

			following, err := graph.FollowingUsernames(ctx, users["bob"].ID)
			require.NoError(t, err)
			assert.Empty(t, following)
		})
	}
}

func TestGraphRepository_ConcurrentFollowAndBlockLeaveNoEdge(t *testing.T) {
	db := testutil.NewDB(t)
	graph := NewGraphRepository(db)
	ctx := context.Background()

	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _ = graph.Follow(ctx, bob.ID, alice.ID)
	}()
	go func() {
		defer wg.Done()
		_, _ = graph.Block(ctx, alice.ID, bob.ID)
	}()
	wg.Wait()

	blocked, err := graph.IsBlockedEitherWay(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	require.True(t, blocked)

	following, err := graph.FollowingUsernames(ctx, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, following, "a block never coexists with a follow edge")
}
