package repository

import (
	"context"
	"testing"
	"time"

	"chirp/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	u := &models.User{Username: username, Password: "hash"}
	require.NoError(t, NewUserRepository(db).Create(context.Background(), u))
	return u
}

func seedPost(t *testing.T, db *gorm.DB, author *models.User, content string, tags ...string) *models.Post {
	t.Helper()
	p := &models.Post{UserID: author.ID, Username: author.Username, Kind: models.PostKindOriginal, Content: content}
	for _, tag := range tags {
		p.Tags = append(p.Tags, models.PostHashtag{Tag: tag})
	}
	require.NoError(t, NewPostRepository(db).Create(context.Background(), p))
	return p
}

// backdate moves a post's creation time so ordering tests do not depend on clock resolution.
func backdate(t *testing.T, db *gorm.DB, p *models.Post, ago time.Duration) {
	t.Helper()
	require.NoError(t, db.Model(&models.Post{}).Where("id = ?", p.ID).
		UpdateColumn("created_at", time.Now().Add(-ago)).Error)
}

func ids(posts []*models.Post) []uint {
	out := make([]uint, 0, len(posts))
	for _, p := range posts {
		out = append(out, p.ID)
	}
	return out
}
