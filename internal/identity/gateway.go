package identity

import (
	"fmt"
	"log/slog"
	"net/url"

	"github.com/golang-jwt/jwt/v5"
	"github.com/supabase-community/gotrue-go"
	"github.com/supabase-community/gotrue-go/types"

	"github.com/sparklit/sparkwall/internal/models"
)

// Identity is the resolved calling principal. Every core operation takes one
// explicitly; nothing in this module reads ambient auth state.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session is what a successful sign-in hands back to the caller.
type Session struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	Identity     Identity `json:"identity"`
}

// Gateway resolves identities against the Supabase auth provider. It is the
// single injection point for auth: callers pass the Identity it returns into
// the profile, connection, content and style services.
type Gateway struct {
	auth      gotrue.Client
	jwtSecret []byte
	logger    *slog.Logger
}

func NewGateway(auth gotrue.Client, jwtSecret string, logger *slog.Logger) *Gateway {
	return &Gateway{
		auth:      auth,
		jwtSecret: []byte(jwtSecret),
		logger:    logger,
	}
}

// SignUp registers a new email/password identity with the auth provider.
func (g *Gateway) SignUp(email, password string) (Identity, error) {
	resp, err := g.auth.Signup(types.SignupRequest{
		Email:    email,
		Password: password,
	})
	if err != nil {
		g.logger.Error("Sign-up failed", "email", email, "error", err)
		return Identity{}, fmt.Errorf("%w: %v", models.ErrAuthUnavailable, err)
	}

	g.logger.Info("User signed up", "user_id", resp.ID)
	return Identity{ID: resp.ID.String(), Email: resp.Email}, nil
}

// SignIn authenticates an email/password pair and returns the provider
// session.
func (g *Gateway) SignIn(email, password string) (Session, error) {
	resp, err := g.auth.SignInWithEmailPassword(email, password)
	if err != nil {
		g.logger.Error("Sign-in failed", "email", email, "error", err)
		return Session{}, fmt.Errorf("%w: %v", models.ErrAuthUnavailable, err)
	}
	if resp == nil || resp.AccessToken == "" {
		return Session{}, models.ErrUnauthenticated
	}

	g.logger.Info("User signed in", "user_id", resp.User.ID)
	return Session{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		Identity:     Identity{ID: resp.User.ID.String(), Email: resp.User.Email},
	}, nil
}

// SignInWithOAuth starts the provider's OAuth flow and returns the
// authorization URL the client must visit. The client library does not carry
// the redirect target, so it is appended as the redirect_to query parameter.
func (g *Gateway) SignInWithOAuth(provider types.Provider, redirectTo string) (string, error) {
	resp, err := g.auth.Authorize(types.AuthorizeRequest{
		Provider: provider,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrAuthUnavailable, err)
	}

	authURL := resp.AuthorizationURL
	if redirectTo != "" {
		u, err := url.Parse(authURL)
		if err != nil {
			return "", fmt.Errorf("%w: %v", models.ErrAuthUnavailable, err)
		}
		q := u.Query()
		q.Set("redirect_to", redirectTo)
		u.RawQuery = q.Encode()
		authURL = u.String()
	}
	return authURL, nil
}

// CurrentIdentity resolves the identity behind an access token. With a JWT
// secret configured the token is verified locally; otherwise it is resolved
// with a round trip to the provider. An empty or invalid token is
// ErrUnauthenticated, never a fabricated identity.
func (g *Gateway) CurrentIdentity(accessToken string) (Identity, error) {
	if accessToken == "" {
		return Identity{}, models.ErrUnauthenticated
	}

	if len(g.jwtSecret) > 0 {
		return g.identityFromToken(accessToken)
	}

	user, err := g.auth.WithToken(accessToken).GetUser()
	if err != nil {
		g.logger.Error("Failed to resolve user from provider", "error", err)
		return Identity{}, fmt.Errorf("%w: %v", models.ErrAuthUnavailable, err)
	}
	return Identity{ID: user.ID.String(), Email: user.Email}, nil
}

func (g *Gateway) identityFromToken(accessToken string) (Identity, error) {
	token, err := jwt.Parse(accessToken, func(t *jwt.Token) (interface{}, error) {
		return g.jwtSecret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return Identity{}, fmt.Errorf("%w: invalid access token", models.ErrUnauthenticated)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, fmt.Errorf("%w: invalid token claims", models.ErrUnauthenticated)
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return Identity{}, fmt.Errorf("%w: token has no subject", models.ErrUnauthenticated)
	}
	email, _ := claims["email"].(string)

	return Identity{ID: sub, Email: email}, nil
}

// UpdatePassword sets a new password for the identity behind accessToken.
// Matches the provider's minimum length so failures surface before the round
// trip.
func (g *Gateway) UpdatePassword(accessToken, newPassword string) error {
	if len(newPassword) < 6 {
		return fmt.Errorf("%w: password should be at least 6 characters", models.ErrInvalidInput)
	}

	_, err := g.auth.WithToken(accessToken).UpdateUser(types.UpdateUserRequest{
		Password: &newPassword,
	})
	if err != nil {
		g.logger.Error("Failed to update password", "error", err)
		return fmt.Errorf("%w: %v", models.ErrAuthUnavailable, err)
	}

	g.logger.Info("Password updated")
	return nil
}

// UpdateEmail changes the account email. The provider requires proof of the
// current password first, so the flow re-authenticates before updating.
func (g *Gateway) UpdateEmail(accessToken, currentEmail, currentPassword, newEmail string) error {
	if currentPassword == "" || newEmail == "" {
		return fmt.Errorf("%w: current password and new email are required", models.ErrInvalidInput)
	}

	if _, err := g.auth.SignInWithEmailPassword(currentEmail, currentPassword); err != nil {
		g.logger.Error("Re-authentication failed during email change", "email", currentEmail)
		return fmt.Errorf("%w: invalid current password", models.ErrUnauthenticated)
	}

	_, err := g.auth.WithToken(accessToken).UpdateUser(types.UpdateUserRequest{
		Email: newEmail,
	})
	if err != nil {
		g.logger.Error("Failed to update email", "error", err)
		return fmt.Errorf("%w: %v", models.ErrAuthUnavailable, err)
	}

	g.logger.Info("Email update requested", "new_email", newEmail)
	return nil
}
