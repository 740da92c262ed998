package models

import "time"

// Connection statuses. A pair with no row at all reads as StatusNotConnected.
const (
	StatusNotConnected = "not_connected"
	StatusPending      = "pending"
	StatusConnected    = "connected"
)

// Connection represents an undirected spark relationship between two
// profiles. Rows are stored canonicalized with User1ID < User2ID so the
// unique index on the pair holds regardless of who initiated.
type Connection struct {
	ID        int       `json:"id" db:"id"`
	User1ID   string    `json:"user1_id" db:"user1_id"`
	User2ID   string    `json:"user2_id" db:"user2_id"`
	Status    string    `json:"status" db:"status"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Other returns the side of the connection that is not id.
func (c Connection) Other(id string) string {
	if c.User1ID == id {
		return c.User2ID
	}
	return c.User1ID
}

// CanonicalPair orders two profile IDs so that the lexicographically smaller
// one comes first. Both (a,b) and (b,a) map to the same stored pair.
func CanonicalPair(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}
