package backend

import (
	"context"
	"net/url"
)

// SignUpParams carries the new account's credentials plus metadata stored
// on the auth user (username, date of birth).
type SignUpParams struct {
	Email    string
	Password string
	Data     map[string]any
}

// Auth is the authentication half of the backend contract.
type Auth interface {
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)
	SignUp(ctx context.Context, p SignUpParams) (*User, error)
	SignOut(ctx context.Context) error
	// GetSession returns the current session, refreshing it first when the
	// access token has expired. It returns (nil, nil) when signed out.
	GetSession(ctx context.Context) (*Session, error)
	// OnAuthStateChange registers fn and returns a function removing it.
	OnAuthStateChange(fn AuthListener) (unsubscribe func())
}

// Request describes one call against the row API.
type Request struct {
	Method string
	Table  string
	Query  url.Values
	Body   any
	Prefer string
}

// Rows is the row-store half of the backend contract. Out, when non-nil,
// receives the decoded JSON response.
type Rows interface {
	Rows(ctx context.Context, req Request, out any) error
}

// Client is everything the application needs from the hosted backend.
type Client interface {
	Auth
	Rows
	Ping(ctx context.Context) error
	Close() error
}
