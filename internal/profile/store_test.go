package profile

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sparklit/sparkwall/internal/identity"
	"github.com/sparklit/sparkwall/internal/models"
)

func setupTestStore(t *testing.T) (*Store, sqlmock.Sqlmock, *miniredis.Miniredis) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	db := sqlx.NewDb(mockDB, "sqlmock")

	miniRedis, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(miniRedis.Close)

	cache := redis.NewClient(&redis.Options{Addr: miniRedis.Addr()})

	return NewStore(db, cache, slog.Default()), mock, miniRedis
}

func profileColumns() []string {
	return []string{
		"id", "display_name", "short_bio", "profile_picture_url",
		"writing_portfolio", "sparks_influences", "email",
		"free_ai_styles_used", "created_at",
	}
}

func profileRow(id, name string, used int) *sqlmock.Rows {
	return sqlmock.NewRows(profileColumns()).
		AddRow(id, name, "bio", "", "", "", "u1@example.com", used, time.Now())
}

func TestCreateProfileRoundTrip(t *testing.T) {
	store, mock, _ := setupTestStore(t)
	ident := identity.Identity{ID: "u1", Email: "u1@example.com"}

	mock.ExpectExec(regexp.QuoteMeta(
		`INSERT INTO users (id, display_name, short_bio, profile_picture_url, email, free_ai_styles_used)
		 VALUES ($1, $2, $3, $4, $5, 0)`)).
		WithArgs("u1", "Ada", "bio", "", "u1@example.com").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM users WHERE id = $1")).
		WithArgs("u1").
		WillReturnRows(profileRow("u1", "Ada", 0))

	p, err := store.Create(context.Background(), ident, "Ada", "bio", "")
	require.NoError(t, err)
	assert.Equal(t, "u1", p.ID)
	assert.Equal(t, "Ada", p.DisplayName)
	assert.Equal(t, 0, p.FreeAIStylesUsed, "new profiles start with zero styles used")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateProfileDuplicate(t *testing.T) {
	store, mock, _ := setupTestStore(t)
	ident := identity.Identity{ID: "u1", Email: "u1@example.com"}

	mock.ExpectExec("INSERT INTO users").
		WillReturnError(&pq.Error{Code: "23505"})

	_, err := store.Create(context.Background(), ident, "Ada", "bio", "")
	assert.ErrorIs(t, err, models.ErrAlreadyExists)
}

func TestCreateProfileUnauthenticated(t *testing.T) {
	store, _, _ := setupTestStore(t)

	_, err := store.Create(context.Background(), identity.Identity{}, "Ada", "bio", "")
	assert.ErrorIs(t, err, models.ErrUnauthenticated)
}

func TestGetProfileUsesCache(t *testing.T) {
	store, mock, _ := setupTestStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM users WHERE id = $1")).
		WithArgs("u1").
		WillReturnRows(profileRow("u1", "Ada", 0))

	_, err := store.Get(context.Background(), "u1")
	require.NoError(t, err)

	// Second read is served from Redis; no further query is expected.
	p, err := store.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", p.DisplayName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetProfileNotFound(t *testing.T) {
	store, mock, _ := setupTestStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM users WHERE id = $1")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(profileColumns()))

	_, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestUpdateFieldsOwnerOnly(t *testing.T) {
	store, _, _ := setupTestStore(t)
	bio := "new bio"

	_, err := store.UpdateFields(context.Background(), identity.Identity{ID: "u2"}, "u1",
		models.ProfileUpdate{ShortBio: &bio})
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	_, err = store.UpdateFields(context.Background(), identity.Identity{}, "u1",
		models.ProfileUpdate{ShortBio: &bio})
	assert.ErrorIs(t, err, models.ErrUnauthenticated)
}

func TestUpdateFieldsRejectsEmptyUpdate(t *testing.T) {
	store, _, _ := setupTestStore(t)

	_, err := store.UpdateFields(context.Background(), identity.Identity{ID: "u1"}, "u1", models.ProfileUpdate{})
	assert.ErrorIs(t, err, models.ErrEmptyContent)
}

func TestUpdateFieldsInvalidatesCache(t *testing.T) {
	store, mock, miniRedis := setupTestStore(t)
	portfolio := "my stories"

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM users WHERE id = $1")).
		WithArgs("u1").
		WillReturnRows(profileRow("u1", "Ada", 0))
	_, err := store.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, miniRedis.Exists("profile:u1"))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET writing_portfolio = $1 WHERE id = $2")).
		WithArgs("my stories", "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM users WHERE id = $1")).
		WithArgs("u1").
		WillReturnRows(profileRow("u1", "Ada", 0))

	_, err = store.UpdateFields(context.Background(), identity.Identity{ID: "u1"}, "u1",
		models.ProfileUpdate{WritingPortfolio: &portfolio})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExistsDistinguishesAbsenceFromError(t *testing.T) {
	store, mock, _ := setupTestStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM users WHERE id = $1")).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("u1"))
	exists, err := store.Exists(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, exists)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM users WHERE id = $1")).
		WithArgs("u2").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	exists, err = store.Exists(context.Background(), "u2")
	require.NoError(t, err, "no rows is absence, not an error")
	assert.False(t, exists)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM users WHERE id = $1")).
		WithArgs("u3").
		WillReturnError(errors.New("connection refused"))
	_, err = store.Exists(context.Background(), "u3")
	assert.ErrorIs(t, err, models.ErrUpstream, "query failures must propagate")
}
