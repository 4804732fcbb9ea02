package database

import (
	"fmt"

	"chirp/internal/models"

	"gorm.io/gorm"
)

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Follow{},
		&models.Block{},
		&models.BannedAccount{},
		&models.Post{},
		&models.PostHashtag{},
		&models.PostLike{},
		&models.PostRetweet{},
		&models.Reply{},
		&models.ReplyLike{},
		&models.Notification{},
		&models.ActivityLog{},
	}
}

// Migrate creates or updates every table the service uses.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(PersistentModels()...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}
