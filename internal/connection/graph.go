package connection

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/sparklit/sparkwall/internal/identity"
	"github.com/sparklit/sparkwall/internal/models"
)

const uniqueViolation = pq.ErrorCode("23505")

// Graph owns spark relationships. Pairs are canonicalized before every read
// and write, so status(a,b) and status(b,a) hit the same row and the unique
// index on (user1_id, user2_id) makes duplicate sparks impossible.
type Graph struct {
	db     *sqlx.DB
	logger *slog.Logger
}

func NewGraph(db *sqlx.DB, logger *slog.Logger) *Graph {
	return &Graph{db: db, logger: logger}
}

// Status returns the relationship status between two distinct profiles.
// A missing row is StatusNotConnected, not an error.
func (g *Graph) Status(ctx context.Context, a, b string) (string, error) {
	if a == b {
		return "", models.ErrSelfConnection
	}
	u1, u2 := models.CanonicalPair(a, b)

	var status string
	err := g.db.GetContext(ctx, &status,
		"SELECT status FROM connections WHERE user1_id = $1 AND user2_id = $2", u1, u2)
	if errors.Is(err, sql.ErrNoRows) {
		return models.StatusNotConnected, nil
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrUpstream, err)
	}
	return status, nil
}

// RequestSpark creates the relationship between the initiator and target.
// Creation goes straight to connected; the pending state exists for a
// request/accept handshake and is reachable through UpdateStatus.
func (g *Graph) RequestSpark(ctx context.Context, ident identity.Identity, targetID string) (*models.Connection, error) {
	if ident.ID == "" {
		return nil, models.ErrUnauthenticated
	}
	if ident.ID == targetID {
		return nil, models.ErrSelfConnection
	}

	u1, u2 := models.CanonicalPair(ident.ID, targetID)
	conn := models.Connection{
		User1ID: u1,
		User2ID: u2,
		Status:  models.StatusConnected,
	}

	err := g.db.QueryRowxContext(ctx,
		`INSERT INTO connections (user1_id, user2_id, status)
		 VALUES ($1, $2, $3) RETURNING id, created_at`,
		u1, u2, conn.Status,
	).Scan(&conn.ID, &conn.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, fmt.Errorf("%w: connection between %s and %s", models.ErrAlreadyExists, u1, u2)
		}
		g.logger.Error("Failed to create connection", "error", err, "user1_id", u1, "user2_id", u2)
		return nil, fmt.Errorf("%w: %v", models.ErrUpstream, err)
	}

	g.logger.Info("Spark created", "initiator", ident.ID, "target", targetID)
	return &conn, nil
}

// ListConnections returns the established connections the profile
// participates in, newest first.
func (g *Graph) ListConnections(ctx context.Context, profileID string) ([]models.Connection, error) {
	var conns []models.Connection
	err := g.db.SelectContext(ctx, &conns,
		`SELECT * FROM connections
		 WHERE (user1_id = $1 OR user2_id = $1) AND status = $2
		 ORDER BY created_at DESC`,
		profileID, models.StatusConnected)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrUpstream, err)
	}
	return conns, nil
}

// UpdateStatus moves the relationship with otherID to the given status.
// Only a participant in the pair may call it.
func (g *Graph) UpdateStatus(ctx context.Context, ident identity.Identity, otherID, status string) error {
	if ident.ID == "" {
		return models.ErrUnauthenticated
	}
	if ident.ID == otherID {
		return models.ErrSelfConnection
	}
	if status != models.StatusPending && status != models.StatusConnected {
		return fmt.Errorf("%w: unknown status %q", models.ErrInvalidInput, status)
	}

	u1, u2 := models.CanonicalPair(ident.ID, otherID)
	res, err := g.db.ExecContext(ctx,
		"UPDATE connections SET status = $1 WHERE user1_id = $2 AND user2_id = $3",
		status, u1, u2)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrUpstream, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: connection between %s and %s", models.ErrNotFound, u1, u2)
	}

	g.logger.Info("Connection status updated", "user1_id", u1, "user2_id", u2, "status", status)
	return nil
}
