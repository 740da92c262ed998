package models

import (
	"time"

	"github.com/lib/pq"
)

// Post is a user-authored post. Only the counters are mutable after
// creation.
type Post struct {
	ID            int            `json:"id" db:"id"`
	UserID        string         `json:"user_id" db:"user_id"`
	Content       string         `json:"content" db:"content"`
	Tags          pq.StringArray `json:"tags" db:"tags"`
	LikesCount    int            `json:"likes_count" db:"likes_count"`
	CommentsCount int            `json:"comments_count" db:"comments_count"`
	CreatedAt     time.Time      `json:"created_at" db:"created_at"`
}

// Comment is a wall comment: ProfileUserID is the wall owner, UserID the
// author. The two may be any pair of identities.
type Comment struct {
	ID            int       `json:"id" db:"id"`
	ProfileUserID string    `json:"profile_user_id" db:"profile_user_id"`
	UserID        string    `json:"user_id" db:"user_id"`
	Content       string    `json:"content" db:"content"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}
