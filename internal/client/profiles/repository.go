// Package profiles reads and writes rows of the backend's profiles table.
package profiles

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("profile not found")
	// ErrStorage wraps failures reported by a database driver.
	ErrStorage = errors.New("db error")
)

// Profile is one row of the profiles table, keyed by the auth user id.
type Profile struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Online   bool   `json:"online"`
}

// Repository is the subset of row operations the authentication store uses.
type Repository interface {
	// FindByUsername returns every profile with the given username; an
	// empty slice means the name is free.
	FindByUsername(ctx context.Context, username string) ([]Profile, error)
	Insert(ctx context.Context, p Profile) error
	// SetOnline updates the online flag, returning ErrNotFound when no row
	// has the id.
	SetOnline(ctx context.Context, id string, online bool) error
}
