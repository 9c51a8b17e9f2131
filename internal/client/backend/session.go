package backend

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// refreshMargin treats a session as expired slightly early so a request
// never leaves with a token that dies in flight.
const refreshMargin = 10 * time.Second

type User struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata,omitempty"`
}

type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	User         User   `json:"user"`
}

// Expired reports whether the access token is past (or about to pass) its
// expiry at now. A session without a known expiry never expires locally.
func (s *Session) Expired(now time.Time) bool {
	if s.ExpiresAt == 0 {
		return false
	}
	return now.Add(refreshMargin).Unix() >= s.ExpiresAt
}

// AuthEvent names a change in the authentication state.
type AuthEvent string

const (
	EventInitialSession AuthEvent = "INITIAL_SESSION"
	EventSignedIn       AuthEvent = "SIGNED_IN"
	EventSignedOut      AuthEvent = "SIGNED_OUT"
	EventTokenRefreshed AuthEvent = "TOKEN_REFRESHED"
)

// AuthListener receives auth events. session is nil for EventSignedOut.
type AuthListener func(event AuthEvent, session *Session)

// SessionStorage persists the current session between process runs.
// Load returns (nil, nil) when nothing is stored.
type SessionStorage interface {
	Load(ctx context.Context) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Clear(ctx context.Context) error
}

type accessClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// completeFromToken fills the user id, email and expiry from the access
// token claims where the response left them out. The signature is not
// verified: the backend owns the signing key and checks it on every call.
func completeFromToken(s *Session, now time.Time) error {
	claims := &accessClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(s.AccessToken, claims); err != nil {
		return fmt.Errorf("parse access token: %w", err)
	}

	if s.User.ID == "" {
		s.User.ID = claims.Subject
	}
	if s.User.Email == "" {
		s.User.Email = claims.Email
	}
	if s.ExpiresAt == 0 {
		switch {
		case claims.ExpiresAt != nil:
			s.ExpiresAt = claims.ExpiresAt.Unix()
		case s.ExpiresIn > 0:
			s.ExpiresAt = now.Unix() + s.ExpiresIn
		}
	}
	return nil
}
