package supabase

import (
	"fmt"
	"strings"

	"github.com/supabase-community/gotrue-go"
)

// extractProjectRef extracts just the project reference ID from a Supabase URL
// From: akrqbuajqkirdekonpzy.supabase.co
// To: akrqbuajqkirdekonpzy
func extractProjectRef(url string) string {
	// Remove any protocol prefix
	url = strings.TrimPrefix(url, "https://")
	url = strings.TrimPrefix(url, "http://")

	// Split by the first dot to get just the project reference
	parts := strings.Split(url, ".")
	return parts[0]
}

// NewAuthClient builds a gotrue client for the project behind supabaseURL and
// checks the connection. The client is handed to the identity gateway rather
// than held as package state, so callers control which credentials are live.
func NewAuthClient(supabaseURL, supabaseKey string) (gotrue.Client, error) {
	projectRef := extractProjectRef(supabaseURL)

	client := gotrue.New(projectRef, supabaseKey)

	if _, err := client.GetSettings(); err != nil {
		return nil, fmt.Errorf("failed to connect to Supabase: %w", err)
	}

	return client, nil
}
