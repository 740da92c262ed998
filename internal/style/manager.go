package style

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/sparklit/sparkwall/internal/identity"
	"github.com/sparklit/sparkwall/internal/models"
	"github.com/sparklit/sparkwall/internal/profile"
)

// leaseTTL bounds how long a crashed generation can hold a profile's lease.
const leaseTTL = 2 * time.Minute

// Manager gates AI banner generation against the free-tier quota. The
// counter only moves through RecordGeneration's conditional update, so it
// never decreases and never passes the limit, no matter how many callers
// race.
type Manager struct {
	db     *sqlx.DB
	cache  *redis.Client
	logger *slog.Logger
	limit  int
}

func NewManager(db *sqlx.DB, cache *redis.Client, logger *slog.Logger) *Manager {
	return &Manager{db: db, cache: cache, logger: logger, limit: models.FreeAIStyleLimit}
}

func leaseKey(profileID string) string {
	return fmt.Sprintf("style:generating:%s", profileID)
}

// CanGenerate reports whether the profile has free generations left.
func (m *Manager) CanGenerate(ctx context.Context, profileID string) (bool, error) {
	var used int
	err := m.db.GetContext(ctx, &used,
		"SELECT free_ai_styles_used FROM users WHERE id = $1", profileID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, fmt.Errorf("%w: profile %s", models.ErrNotFound, profileID)
		}
		return false, fmt.Errorf("%w: %v", models.ErrUpstream, err)
	}
	return used < m.limit, nil
}

// RecordGeneration persists the generated banner reference and consumes one
// quota unit in a single conditional update. The increment and the limit
// check happen in the same statement, so two concurrent calls can never both
// succeed on the last free unit.
func (m *Manager) RecordGeneration(ctx context.Context, profileID, bannerURL string) (int, error) {
	var used int
	err := m.db.QueryRowxContext(ctx,
		`UPDATE users
		 SET free_ai_styles_used = free_ai_styles_used + 1, profile_picture_url = $2
		 WHERE id = $1 AND free_ai_styles_used < $3
		 RETURNING free_ai_styles_used`,
		profileID, bannerURL, m.limit,
	).Scan(&used)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Zero rows means either no such profile or no quota left.
			exists, existsErr := m.profileExists(ctx, profileID)
			if existsErr != nil {
				return 0, existsErr
			}
			if !exists {
				return 0, fmt.Errorf("%w: profile %s", models.ErrNotFound, profileID)
			}
			return 0, models.ErrQuotaExceeded
		}
		m.logger.Error("Failed to record generation", "error", err, "user_id", profileID)
		return 0, fmt.Errorf("%w: %v", models.ErrUpstream, err)
	}

	m.invalidateProfile(ctx, profileID)
	m.logger.Info("AI style recorded", "user_id", profileID, "free_ai_styles_used", used)
	return used, nil
}

// Revert clears the banner reference. Quota is deliberately not refunded;
// a reverted style still counts as a consumed generation.
func (m *Manager) Revert(ctx context.Context, ident identity.Identity, profileID string) (*models.Profile, error) {
	if ident.ID == "" {
		return nil, models.ErrUnauthenticated
	}
	if ident.ID != profileID {
		return nil, fmt.Errorf("%w: profile %s", models.ErrUnauthorized, profileID)
	}

	res, err := m.db.ExecContext(ctx,
		"UPDATE users SET profile_picture_url = '' WHERE id = $1", profileID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrUpstream, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, fmt.Errorf("%w: profile %s", models.ErrNotFound, profileID)
	}

	m.invalidateProfile(ctx, profileID)

	var p models.Profile
	if err := m.db.GetContext(ctx, &p, "SELECT * FROM users WHERE id = $1", profileID); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrUpstream, err)
	}

	m.logger.Info("Banner reverted", "user_id", profileID)
	return &p, nil
}

// AcquireLease claims the profile's single generation slot. A second caller
// gets ErrGenerationBusy until the first releases or the TTL expires.
func (m *Manager) AcquireLease(ctx context.Context, profileID string) error {
	ok, err := m.cache.SetNX(ctx, leaseKey(profileID), "1", leaseTTL).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrUpstream, err)
	}
	if !ok {
		return models.ErrGenerationBusy
	}
	return nil
}

// ReleaseLease frees the profile's generation slot.
func (m *Manager) ReleaseLease(ctx context.Context, profileID string) {
	if err := m.cache.Del(ctx, leaseKey(profileID)).Err(); err != nil {
		m.logger.Error("Failed to release generation lease", "error", err, "user_id", profileID)
	}
}

func (m *Manager) profileExists(ctx context.Context, profileID string) (bool, error) {
	var id string
	err := m.db.GetContext(ctx, &id, "SELECT id FROM users WHERE id = $1", profileID)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return false, fmt.Errorf("%w: %v", models.ErrUpstream, err)
}

func (m *Manager) invalidateProfile(ctx context.Context, profileID string) {
	if m.cache != nil {
		m.cache.Del(ctx, profile.CacheKey(profileID))
	}
}
