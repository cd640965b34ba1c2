package sdk

import (
	"context"
	"fmt"
	"sync"

	"github.com/yaroslav/nassession/internal/store"
)

// Session is the single source of truth for the current session credential.
//
// It is passed by reference to every collaborator that needs the token. The
// cached token is persisted through a store.Store so a restarted client can
// log back in silently.
type Session struct {
	store store.Store

	mu          sync.RWMutex
	token       string
	redirectURL string
}

// NewSession creates a session backed by s. Call Load to pick up a token
// persisted by a previous run.
func NewSession(s store.Store) *Session {
	if s == nil {
		s = store.NewMemoryStore()
	}
	return &Session{store: s}
}

// Load reads the persisted token, if any.
func (s *Session) Load(ctx context.Context) error {
	token, ok, err := s.store.Get(ctx, store.KeyToken)
	if err != nil {
		return fmt.Errorf("failed to load session token: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if ok {
		s.token = token
	}
	return nil
}

// Token returns the cached token, or "" if none.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// HasToken reports whether a token is cached.
func (s *Session) HasToken() bool {
	return s.Token() != ""
}

// SetToken caches and persists token, overwriting any previous one.
func (s *Session) SetToken(ctx context.Context, token string) error {
	if err := s.store.Set(ctx, store.KeyToken, token); err != nil {
		return fmt.Errorf("failed to persist session token: %w", err)
	}

	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	return nil
}

// ClearToken forgets the cached token.
func (s *Session) ClearToken(ctx context.Context) error {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()

	if err := s.store.Delete(ctx, store.KeyToken); err != nil {
		return fmt.Errorf("failed to clear session token: %w", err)
	}
	return nil
}

// RedirectURL returns the pending post-login target, or "".
func (s *Session) RedirectURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.redirectURL
}

// SetRedirectURL records where to go after login, e.g. a deep link opened
// before authentication.
func (s *Session) SetRedirectURL(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.redirectURL = url
}
