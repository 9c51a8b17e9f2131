// Package sessionstore persists the backend session in the local metadata
// table so the terminal client stays signed in across restarts.
package sessionstore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/snapgram/internal/client/backend"
	"github.com/dmitrijs2005/snapgram/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/snapgram/internal/cryptox"
)

const (
	keySession = "session"
	keySalt    = "session_salt"
)

var ErrEmptySecret = errors.New("session secret is empty")

// SQLiteStore seals sessions with a key derived from a local secret.
type SQLiteStore struct {
	repo   metadata.Repository
	secret []byte

	mu  sync.Mutex
	key []byte
}

var _ backend.SessionStorage = (*SQLiteStore)(nil)

func NewSQLiteStore(repo metadata.Repository, secret string) (*SQLiteStore, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	return &SQLiteStore{repo: repo, secret: []byte(secret)}, nil
}

// sealKey returns the cached key, deriving it on first use. With create set
// a missing salt is generated and stored.
func (s *SQLiteStore) sealKey(ctx context.Context, create bool) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.key != nil {
		return s.key, nil
	}

	salt, err := s.repo.Get(ctx, keySalt)
	if err != nil {
		return nil, err
	}
	if salt == nil {
		if !create {
			return nil, nil
		}
		salt = cryptox.NewSalt()
		if err := s.repo.Set(ctx, keySalt, salt); err != nil {
			return nil, err
		}
	}

	s.key = cryptox.DeriveKey(s.secret, salt)
	return s.key, nil
}

func (s *SQLiteStore) Load(ctx context.Context) (*backend.Session, error) {
	blob, err := s.repo.Get(ctx, keySession)
	if err != nil {
		return nil, err
	}
	if blob == nil {
		return nil, nil
	}

	key, err := s.sealKey(ctx, false)
	if err != nil {
		return nil, err
	}
	if key == nil {
		return nil, fmt.Errorf("sealed session present without salt")
	}

	var sess backend.Session
	if err := cryptox.Open(blob, key, &sess); err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}
	return &sess, nil
}

func (s *SQLiteStore) Save(ctx context.Context, sess *backend.Session) error {
	key, err := s.sealKey(ctx, true)
	if err != nil {
		return err
	}

	blob, err := cryptox.Seal(sess, key)
	if err != nil {
		return fmt.Errorf("seal session: %w", err)
	}
	return s.repo.Set(ctx, keySession, blob)
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	return s.repo.Delete(ctx, keySession)
}
