package repository

import (
	"context"
	"testing"

	"chirp/internal/models"
	"chirp/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActivityRepository_AppendAndList(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewActivityRepository(db)
	ctx := context.Background()

	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")

	for _, action := range []string{"register", "login", "tweet"} {
		require.NoError(t, repo.Append(ctx, &models.ActivityLog{UserID: alice.ID, Action: action}))
	}
	require.NoError(t, repo.Append(ctx, &models.ActivityLog{UserID: bob.ID, Action: "register"}))

	entries, total, err := repo.ListByUser(ctx, alice.ID, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, entries, 2)
	assert.Equal(t, "register", entries[0].Action)
	assert.Equal(t, "login", entries[1].Action)

	entries, _, err = repo.ListByUser(ctx, alice.ID, 2, 2)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "tweet", entries[0].Action)
}
