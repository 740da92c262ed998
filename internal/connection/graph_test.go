package connection

import (
	"context"
	"log/slog"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sparklit/sparkwall/internal/identity"
	"github.com/sparklit/sparkwall/internal/models"
)

func setupTestGraph(t *testing.T) (*Graph, sqlmock.Sqlmock) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	db := sqlx.NewDb(mockDB, "sqlmock")
	return NewGraph(db, slog.Default()), mock
}

func expectStatusQuery(mock sqlmock.Sqlmock, u1, u2 string) *sqlmock.ExpectedQuery {
	return mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT status FROM connections WHERE user1_id = $1 AND user2_id = $2")).
		WithArgs(u1, u2)
}

func TestStatusSymmetric(t *testing.T) {
	graph, mock := setupTestGraph(t)
	ctx := context.Background()

	// Both orders hit the same canonicalized row.
	expectStatusQuery(mock, "u1", "u2").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(models.StatusConnected))
	expectStatusQuery(mock, "u1", "u2").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(models.StatusConnected))

	ab, err := graph.Status(ctx, "u1", "u2")
	require.NoError(t, err)
	ba, err := graph.Status(ctx, "u2", "u1")
	require.NoError(t, err)
	assert.Equal(t, ab, ba)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatusMissingRowIsNotConnected(t *testing.T) {
	graph, mock := setupTestGraph(t)

	expectStatusQuery(mock, "u1", "u2").
		WillReturnRows(sqlmock.NewRows([]string{"status"}))

	status, err := graph.Status(context.Background(), "u2", "u1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusNotConnected, status)
}

func TestStatusSelfPairRejected(t *testing.T) {
	graph, _ := setupTestGraph(t)

	_, err := graph.Status(context.Background(), "u1", "u1")
	assert.ErrorIs(t, err, models.ErrSelfConnection)
}

func TestRequestSparkSelfConnection(t *testing.T) {
	graph, _ := setupTestGraph(t)

	_, err := graph.RequestSpark(context.Background(), identity.Identity{ID: "u1"}, "u1")
	assert.ErrorIs(t, err, models.ErrSelfConnection)
}

func TestRequestSparkUnauthenticated(t *testing.T) {
	graph, _ := setupTestGraph(t)

	_, err := graph.RequestSpark(context.Background(), identity.Identity{}, "u2")
	assert.ErrorIs(t, err, models.ErrUnauthenticated)
}

func TestRequestSparkCanonicalizesPair(t *testing.T) {
	graph, mock := setupTestGraph(t)

	// Initiator sorts after the target; the stored pair is still (u1, u9).
	mock.ExpectQuery(regexp.QuoteMeta(
		`INSERT INTO connections (user1_id, user2_id, status)
		 VALUES ($1, $2, $3) RETURNING id, created_at`)).
		WithArgs("u1", "u9", models.StatusConnected).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(7, time.Now()))

	conn, err := graph.RequestSpark(context.Background(), identity.Identity{ID: "u9"}, "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", conn.User1ID)
	assert.Equal(t, "u9", conn.User2ID)
	assert.Equal(t, models.StatusConnected, conn.Status)
	assert.Equal(t, "u9", conn.Other("u1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestSparkIdempotent(t *testing.T) {
	graph, mock := setupTestGraph(t)

	mock.ExpectQuery("INSERT INTO connections").
		WillReturnError(&pq.Error{Code: "23505"})

	_, err := graph.RequestSpark(context.Background(), identity.Identity{ID: "u1"}, "u2")
	assert.ErrorIs(t, err, models.ErrAlreadyExists, "second spark for the pair must not create a duplicate edge")
}

func TestListConnections(t *testing.T) {
	graph, mock := setupTestGraph(t)

	rows := sqlmock.NewRows([]string{"id", "user1_id", "user2_id", "status", "created_at"}).
		AddRow(2, "u1", "u3", models.StatusConnected, time.Now()).
		AddRow(1, "u1", "u2", models.StatusConnected, time.Now().Add(-time.Hour))
	mock.ExpectQuery("SELECT \\* FROM connections").
		WithArgs("u1", models.StatusConnected).
		WillReturnRows(rows)

	conns, err := graph.ListConnections(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, conns, 2)
	assert.Equal(t, "u3", conns[0].Other("u1"))
}

func TestUpdateStatusRequiresExistingRow(t *testing.T) {
	graph, mock := setupTestGraph(t)

	mock.ExpectExec(regexp.QuoteMeta(
		"UPDATE connections SET status = $1 WHERE user1_id = $2 AND user2_id = $3")).
		WithArgs(models.StatusConnected, "u1", "u2").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := graph.UpdateStatus(context.Background(), identity.Identity{ID: "u2"}, "u1", models.StatusConnected)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	graph, _ := setupTestGraph(t)

	err := graph.UpdateStatus(context.Background(), identity.Identity{ID: "u1"}, "u2", "blocked")
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestCanonicalPair(t *testing.T) {
	a, b := models.CanonicalPair("u9", "u1")
	assert.Equal(t, "u1", a)
	assert.Equal(t, "u9", b)

	a, b = models.CanonicalPair("u1", "u9")
	assert.Equal(t, "u1", a)
	assert.Equal(t, "u9", b)
}
