package profile

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/sparklit/sparkwall/internal/identity"
	"github.com/sparklit/sparkwall/internal/models"
)

const (
	cacheTTL        = 5 * time.Minute
	uniqueViolation = pq.ErrorCode("23505")
)

// Store owns profile rows. Reads go through a Redis cache; every write
// invalidates the cached row.
type Store struct {
	db     *sqlx.DB
	cache  *redis.Client
	logger *slog.Logger
}

func NewStore(db *sqlx.DB, cache *redis.Client, logger *slog.Logger) *Store {
	return &Store{db: db, cache: cache, logger: logger}
}

// CacheKey is the Redis key caching a profile row. Writers outside this
// package that touch the users table invalidate it too.
func CacheKey(id string) string {
	return fmt.Sprintf("profile:%s", id)
}

// Create inserts the profile for ident. The profile ID is the identity's
// subject ID; a second create for the same identity is ErrAlreadyExists.
func (s *Store) Create(ctx context.Context, ident identity.Identity, displayName, shortBio, pictureURL string) (*models.Profile, error) {
	if ident.ID == "" {
		return nil, models.ErrUnauthenticated
	}
	if strings.TrimSpace(displayName) == "" {
		return nil, fmt.Errorf("%w: display name is required", models.ErrEmptyContent)
	}

	s.logger.Info("Creating profile", "user_id", ident.ID)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, display_name, short_bio, profile_picture_url, email, free_ai_styles_used)
		 VALUES ($1, $2, $3, $4, $5, 0)`,
		ident.ID, displayName, shortBio, pictureURL, ident.Email,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, fmt.Errorf("%w: profile for user %s", models.ErrAlreadyExists, ident.ID)
		}
		s.logger.Error("Failed to create profile", "error", err, "user_id", ident.ID)
		return nil, fmt.Errorf("%w: %v", models.ErrUpstream, err)
	}

	s.invalidate(ctx, ident.ID)
	return s.fetch(ctx, ident.ID)
}

// Get returns the profile with the given ID, from cache when possible.
func (s *Store) Get(ctx context.Context, id string) (*models.Profile, error) {
	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, CacheKey(id)).Result(); err == nil {
			var p models.Profile
			if err := json.Unmarshal([]byte(raw), &p); err == nil {
				return &p, nil
			}
		}
	}

	p, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if raw, err := json.Marshal(p); err == nil {
			s.cache.Set(ctx, CacheKey(id), raw, cacheTTL)
		}
	}
	return p, nil
}

// UpdateFields applies a partial update. Only the owning identity may call
// this; the typed ProfileUpdate is what keeps unknown fields out.
func (s *Store) UpdateFields(ctx context.Context, ident identity.Identity, id string, upd models.ProfileUpdate) (*models.Profile, error) {
	if ident.ID == "" {
		return nil, models.ErrUnauthenticated
	}
	if ident.ID != id {
		return nil, fmt.Errorf("%w: profile %s", models.ErrUnauthorized, id)
	}
	if upd.IsEmpty() {
		return nil, fmt.Errorf("%w: no fields to update", models.ErrEmptyContent)
	}

	set := make([]string, 0, 5)
	args := make([]interface{}, 0, 6)
	add := func(column string, value *string) {
		if value != nil {
			args = append(args, *value)
			set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
		}
	}
	add("display_name", upd.DisplayName)
	add("short_bio", upd.ShortBio)
	add("profile_picture_url", upd.ProfilePictureURL)
	add("writing_portfolio", upd.WritingPortfolio)
	add("sparks_influences", upd.SparksInfluences)

	args = append(args, id)
	query := fmt.Sprintf("UPDATE users SET %s WHERE id = $%d", strings.Join(set, ", "), len(args))

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		s.logger.Error("Failed to update profile", "error", err, "user_id", id)
		return nil, fmt.Errorf("%w: %v", models.ErrUpstream, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, fmt.Errorf("%w: profile %s", models.ErrNotFound, id)
	}

	s.invalidate(ctx, id)
	return s.fetch(ctx, id)
}

// Exists reports whether a profile row exists for id. Only the store's
// no-rows condition reads as absence; any other error propagates.
func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	var found string
	err := s.db.GetContext(ctx, &found, "SELECT id FROM users WHERE id = $1", id)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return false, fmt.Errorf("%w: %v", models.ErrUpstream, err)
}

func (s *Store) fetch(ctx context.Context, id string) (*models.Profile, error) {
	var p models.Profile
	err := s.db.GetContext(ctx, &p, "SELECT * FROM users WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: profile %s", models.ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: %v", models.ErrUpstream, err)
	}
	return &p, nil
}

func (s *Store) invalidate(ctx context.Context, id string) {
	if s.cache != nil {
		s.cache.Del(ctx, CacheKey(id))
	}
}
