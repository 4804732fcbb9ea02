package models

import (
	"time"

	"gorm.io/gorm"
)

// PostKind distinguishes original posts from retweets.
type PostKind string

const (
	PostKindOriginal PostKind = "original"
	PostKindRetweet  PostKind = "retweet"
)

// Post is an original tweet or a retweet. A retweet copies the original's content and
// hashtags when it is created and keeps OriginalID only for attribution.
type Post struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	UserID         uint       `gorm:"not null;index" json:"user_id"`
	Username       string     `gorm:"size:50;not null;index" json:"username"`
	Kind           PostKind   `gorm:"size:16;not null;default:original" json:"kind"`
	Content        string     `gorm:"type:text;not null" json:"content"`
	ImageURL       string     `json:"image_url,omitempty"`
	OriginalID     *uint      `gorm:"index" json:"original_id,omitempty"`
	OriginalAuthor string     `gorm:"size:50" json:"original_author,omitempty"`
	Pinned         bool       `gorm:"not null;default:false" json:"pinned"`
	Priority       int        `gorm:"not null;default:0" json:"priority"`
	Impressions    int64      `gorm:"not null;default:0" json:"impressions"`
	Edited         bool       `gorm:"not null;default:false" json:"edited"`
	EditedAt       *time.Time `json:"edited_at,omitempty"`
	CreatedAt      time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`

	Tags     []PostHashtag `gorm:"foreignKey:PostID" json:"-"`
	Likes    []PostLike    `gorm:"foreignKey:PostID" json:"-"`
	Retweets []PostRetweet `gorm:"foreignKey:PostID" json:"-"`
	Replies  []Reply       `gorm:"foreignKey:PostID" json:"replies"`

	// Computed at query time
	LikesCount    int `gorm:"->;-:migration" json:"likes_count"`
	RetweetsCount int `gorm:"->;-:migration" json:"retweets_count"`
	RepliesCount  int `gorm:"->;-:migration" json:"replies_count"`
	Score         int `gorm:"->;-:migration" json:"score"`

	Hashtags    []string `gorm:"-" json:"hashtags"`
	LikedBy     []string `gorm:"-" json:"likes"`
	RetweetedBy []string `gorm:"-" json:"retweets"`
}

// AfterFind flattens preloaded engagement rows into username and tag lists.
func (p *Post) AfterFind(*gorm.DB) error {
	p.Hashtags = make([]string, 0, len(p.Tags))
	for _, t := range p.Tags {
		p.Hashtags = append(p.Hashtags, t.Tag)
	}
	p.LikedBy = make([]string, 0, len(p.Likes))
	for _, l := range p.Likes {
		p.LikedBy = append(p.LikedBy, l.Username)
	}
	p.RetweetedBy = make([]string, 0, len(p.Retweets))
	for _, r := range p.Retweets {
		p.RetweetedBy = append(p.RetweetedBy, r.Username)
	}
	if p.Replies == nil {
		p.Replies = []Reply{}
	}
	return nil
}

// PostHashtag stores one lower-cased hashtag of a post.
type PostHashtag struct {
	PostID uint   `gorm:"primaryKey;autoIncrement:false" json:"post_id"`
	Tag    string `gorm:"primaryKey;size:140;index" json:"tag"`
}

// PostLike records one user's like on a post.
type PostLike struct {
	PostID    uint      `gorm:"primaryKey;autoIncrement:false" json:"post_id"`
	UserID    uint      `gorm:"primaryKey;autoIncrement:false;index" json:"user_id"`
	Username  string    `gorm:"size:50;not null" json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// PostRetweet marks that a user has retweeted a post.
type PostRetweet struct {
	PostID    uint      `gorm:"primaryKey;autoIncrement:false" json:"post_id"`
	UserID    uint      `gorm:"primaryKey;autoIncrement:false;index" json:"user_id"`
	Username  string    `gorm:"size:50;not null" json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// Reply is a lightweight comment attached to a post.
type Reply struct {
	ID        uint        `gorm:"primaryKey" json:"id"`
	PostID    uint        `gorm:"not null;index" json:"post_id"`
	UserID    uint        `gorm:"not null;index" json:"user_id"`
	Username  string      `gorm:"size:50;not null" json:"username"`
	Content   string      `gorm:"type:text;not null" json:"content"`
	Likes     []ReplyLike `gorm:"foreignKey:ReplyID" json:"-"`
	LikedBy   []string    `gorm:"-" json:"likes"`
	CreatedAt time.Time   `json:"created_at"`
}

// AfterFind resolves the reply's likes to usernames.
func (r *Reply) AfterFind(*gorm.DB) error {
	r.LikedBy = make([]string, 0, len(r.Likes))
	for _, l := range r.Likes {
		r.LikedBy = append(r.LikedBy, l.Username)
	}
	return nil
}

// ReplyLike records one user's like on a reply.
type ReplyLike struct {
	ReplyID   uint      `gorm:"primaryKey;autoIncrement:false" json:"reply_id"`
	UserID    uint      `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	Username  string    `gorm:"size:50;not null" json:"username"`
	CreatedAt time.Time `json:"created_at"`
}
