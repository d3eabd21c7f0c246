package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User represents a Ripple account
type User struct {
	ID        string `gorm:"primaryKey;type:uuid" json:"id"`
	Username  string `gorm:"uniqueIndex;not null" json:"username"`
	FirstName string `gorm:"not null" json:"first_name"`
	LastName  string `gorm:"not null" json:"last_name"`

	// Email is attached after out-of-band verification, so it starts empty
	Email *string `gorm:"uniqueIndex" json:"email,omitempty"`

	PasswordHash string `gorm:"type:text;not null" json:"-"`

	AvatarURL string `json:"avatar_url"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Session is one refresh-token session. TokenHash holds the live opaque
// refresh value; rotation replaces it in place so the row id is stable for
// the lifetime of the device session.
type Session struct {
	ID     string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID string `gorm:"not null;index" json:"user_id"`
	User   User   `gorm:"foreignKey:UserID" json:"-"`

	TokenHash string    `gorm:"uniqueIndex;not null" json:"-"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`

	IP        string `gorm:"not null" json:"ip"`
	UserAgent string `gorm:"not null" json:"user_agent"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Post is the aggregate root engagement counters hang off. Views holds the
// durable raw view counter; the deduplicated estimate lives in the cache
// store and is added on read.
type Post struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"`
	AuthorID string `gorm:"not null;index" json:"author_id"`
	Author   User   `gorm:"foreignKey:AuthorID" json:"author,omitempty"`

	Content string `gorm:"type:text;not null" json:"content"`
	Views   int64  `gorm:"default:0" json:"-"`

	CreatedAt time.Time  `json:"created_at"`
	EditedAt  *time.Time `json:"edited_at,omitempty"`
	UpdatedAt time.Time  `json:"-"`
}

// Comment rows are the durable truth behind the cached comment count
type Comment struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"`
	PostID   string `gorm:"not null;index" json:"post_id"`
	Post     Post   `gorm:"foreignKey:PostID" json:"-"`
	AuthorID string `gorm:"not null;index" json:"author_id"`
	Author   User   `gorm:"foreignKey:AuthorID" json:"author,omitempty"`

	Content string `gorm:"type:text;not null" json:"content"`

	CreatedAt time.Time  `json:"created_at"`
	EditedAt  *time.Time `json:"edited_at,omitempty"`
	UpdatedAt time.Time  `json:"-"`
}

// RatingType is the durable like/dislike state for one (user, post) pair
type RatingType string

const (
	RatingLike    RatingType = "Like"
	RatingDislike RatingType = "Dislike"
)

// PostRating is the source of truth for one user's vote on one post;
// absence of a row means no vote. The composite unique index turns
// duplicate-insert races into typed conflicts.
type PostRating struct {
	ID     string     `gorm:"primaryKey;type:uuid" json:"id"`
	PostID string     `gorm:"not null;uniqueIndex:idx_post_ratings_post_user" json:"post_id"`
	UserID string     `gorm:"not null;uniqueIndex:idx_post_ratings_post_user" json:"user_id"`
	Type   RatingType `gorm:"not null" json:"type"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate hooks for GORM

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = generateUUID()
	}
	return nil
}

func (s *Session) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = generateUUID()
	}
	return nil
}

func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = generateUUID()
	}
	return nil
}

func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = generateUUID()
	}
	return nil
}

func (r *PostRating) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = generateUUID()
	}
	return nil
}

func generateUUID() string {
	return uuid.New().String()
}
