package models

import "time"

// ActivityLog is an append-only record of an action a user performed.
type ActivityLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Action    string    `gorm:"size:40;not null" json:"action"`
	Detail    string    `gorm:"type:text" json:"detail,omitempty"`
	PostID    *uint     `json:"tweet_id,omitempty"`
	CreatedAt time.Time `gorm:"index" json:"timestamp"`
}

// PaginationMeta describes a page of a larger, fully filtered result set.
type PaginationMeta struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
}
