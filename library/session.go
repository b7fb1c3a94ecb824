package library

import (
	"context"
	"log"
	"sync"
)

// Session is the signed-in identity shared by the client and the view-models.
// It is created once, restored from its store at startup and torn down by
// Clear. It satisfies Credentials, so a 401 seen by the Client signs the user out.
type Session struct {
	store SessionStore
	log   *log.Logger

	mu    sync.RWMutex
	token string
	user  *User
}

func NewSession(store SessionStore, l *log.Logger) *Session {
	if l == nil {
		l = log.Default()
	}
	return &Session{store: store, log: l}
}

// Restore loads the persisted session into memory and reports whether one existed.
func (s *Session) Restore(ctx context.Context) (bool, error) {
	token, user, err := s.store.Load(ctx)
	if err != nil {
		return false, err
	}
	if token == "" || user == nil {
		return false, nil
	}
	s.mu.Lock()
	s.token, s.user = token, user
	s.mu.Unlock()
	return true, nil
}

// Set stores the identity in memory and in the store.
func (s *Session) Set(ctx context.Context, token string, user User) error {
	s.mu.Lock()
	s.token, s.user = token, &user
	s.mu.Unlock()
	return s.store.Save(ctx, token, &user)
}

// Clear forgets the identity. It always succeeds in memory; a store failure is logged.
func (s *Session) Clear(ctx context.Context) {
	s.mu.Lock()
	s.token, s.user = "", nil
	s.mu.Unlock()
	if err := s.store.Clear(ctx); err != nil {
		s.log.Printf("[session] clear store: %v", err)
	}
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Invalidate is called by the Client on a 401.
func (s *Session) Invalidate() {
	if s.IsAuthenticated() {
		s.log.Printf("[session] token rejected by server, signing out")
	}
	s.Clear(context.Background())
}

// User returns a copy of the signed-in user, or nil.
func (s *Session) User() *User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// DisplayName is the signed-in user's display name, or "".
func (s *Session) DisplayName() string {
	if u := s.User(); u != nil {
		return u.DisplayName
	}
	return ""
}

func (s *Session) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil && s.token != ""
}
