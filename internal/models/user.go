// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// User represents an account in the chirp application.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"size:50;uniqueIndex;not null" json:"username"`
	Password     string    `gorm:"not null" json:"-"`
	IsAdmin      bool      `gorm:"not null;default:false" json:"is_admin"`
	Verified     bool      `gorm:"not null;default:false" json:"verified"`
	Bio          string    `gorm:"type:text" json:"bio"`
	ThemeColor   string    `gorm:"size:16" json:"theme_color"`
	ProfileImage string    `json:"profile_image"`
	Draft        string    `gorm:"type:text" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Follow is a directed edge: FollowerID follows FolloweeID.
// The same row answers both "following" and "followers", so the two views cannot diverge.
type Follow struct {
	FollowerID uint      `gorm:"primaryKey;autoIncrement:false" json:"follower_id"`
	FolloweeID uint      `gorm:"primaryKey;autoIncrement:false;index" json:"followee_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// Block records that BlockerID has blocked BlockedID.
type Block struct {
	BlockerID uint      `gorm:"primaryKey;autoIncrement:false" json:"blocker_id"`
	BlockedID uint      `gorm:"primaryKey;autoIncrement:false;index" json:"blocked_id"`
	CreatedAt time.Time `json:"created_at"`
}

// BannedAccount is the tombstone left behind when an admin bans a user.
type BannedAccount struct {
	Username  string    `gorm:"primaryKey;size:50" json:"username"`
	BannedBy  string    `gorm:"size:50" json:"banned_by"`
	CreatedAt time.Time `json:"created_at"`
}

// UserProfile is the public view of a user with its social graph resolved to usernames.
type UserProfile struct {
	ID           uint      `json:"id"`
	Username     string    `json:"username"`
	IsAdmin      bool      `json:"is_admin"`
	Verified     bool      `json:"verified"`
	Bio          string    `json:"bio"`
	ThemeColor   string    `json:"theme_color"`
	ProfileImage string    `json:"profile_image"`
	Following    []string  `json:"following"`
	Followers    []string  `json:"followers"`
	Blocked      []string  `json:"blocked,omitempty"`
	Posts        []*Post   `json:"tweets,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
