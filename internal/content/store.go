package content

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/sparklit/sparkwall/internal/identity"
	"github.com/sparklit/sparkwall/internal/models"
)

// DefaultPostLimit is how many latest posts a profile view shows.
const DefaultPostLimit = 5

// Store owns posts and wall comments.
type Store struct {
	db     *sqlx.DB
	logger *slog.Logger
}

func NewStore(db *sqlx.DB, logger *slog.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// CreatePost creates a post owned by the calling identity. Counters start at
// zero and the tag set starts empty.
func (s *Store) CreatePost(ctx context.Context, ident identity.Identity, content string) (*models.Post, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: post content", models.ErrEmptyContent)
	}
	if ident.ID == "" {
		return nil, models.ErrUnauthenticated
	}

	post := models.Post{
		UserID:  ident.ID,
		Content: content,
		Tags:    pq.StringArray{},
	}

	err := s.db.QueryRowxContext(ctx,
		`INSERT INTO posts (user_id, content, tags, likes_count, comments_count)
		 VALUES ($1, $2, $3, 0, 0) RETURNING id, created_at`,
		post.UserID, post.Content, post.Tags,
	).Scan(&post.ID, &post.CreatedAt)
	if err != nil {
		s.logger.Error("Failed to create post", "error", err, "user_id", ident.ID)
		return nil, fmt.Errorf("%w: %v", models.ErrUpstream, err)
	}

	s.logger.Info("Post created", "post_id", post.ID, "user_id", ident.ID)
	return &post, nil
}

// ListLatestPosts returns the profile's newest posts, most recent first.
// A non-positive limit falls back to DefaultPostLimit.
func (s *Store) ListLatestPosts(ctx context.Context, profileID string, limit int) ([]models.Post, error) {
	if limit <= 0 {
		limit = DefaultPostLimit
	}

	var posts []models.Post
	err := s.db.SelectContext(ctx, &posts,
		`SELECT * FROM posts WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`,
		profileID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrUpstream, err)
	}
	return posts, nil
}

// CreateComment posts a comment by ident on wallOwnerID's wall. Any identity
// may comment on any wall.
func (s *Store) CreateComment(ctx context.Context, ident identity.Identity, wallOwnerID, content string) (*models.Comment, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: comment content", models.ErrEmptyContent)
	}
	if ident.ID == "" {
		return nil, models.ErrUnauthenticated
	}

	comment := models.Comment{
		ProfileUserID: wallOwnerID,
		UserID:        ident.ID,
		Content:       content,
	}

	err := s.db.QueryRowxContext(ctx,
		`INSERT INTO comments (profile_user_id, user_id, content)
		 VALUES ($1, $2, $3) RETURNING id, created_at`,
		comment.ProfileUserID, comment.UserID, comment.Content,
	).Scan(&comment.ID, &comment.CreatedAt)
	if err != nil {
		s.logger.Error("Failed to create comment", "error", err, "wall_owner", wallOwnerID)
		return nil, fmt.Errorf("%w: %v", models.ErrUpstream, err)
	}

	s.logger.Info("Comment posted", "comment_id", comment.ID, "wall_owner", wallOwnerID, "author", ident.ID)
	return &comment, nil
}

// ListComments returns a wall's comments in chronological order.
func (s *Store) ListComments(ctx context.Context, wallOwnerID string) ([]models.Comment, error) {
	var comments []models.Comment
	err := s.db.SelectContext(ctx, &comments,
		`SELECT * FROM comments WHERE profile_user_id = $1 ORDER BY created_at ASC`,
		wallOwnerID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrUpstream, err)
	}
	return comments, nil
}
