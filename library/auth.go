package library

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Authenticator is the slice of the API used for sign-in.
type Authenticator interface {
	Login(ctx context.Context, username string) (*AuthResponse, error)
	Register(ctx context.Context, username, displayName string) (*AuthResponse, error)
	Me(ctx context.Context) (*User, error)
	UpdateMe(ctx context.Context, displayName string) (*User, error)
}

// Messages shown when the service gives no detail.
const (
	MsgLoginFailed    = "login failed"
	MsgRegisterFailed = "registration failed"
)

// Auth runs the sign-in flows against the service and keeps the Session in step.
type Auth struct {
	session *Session
	api     Authenticator
	log     *log.Logger
	now     func() time.Time
}

func NewAuth(s *Session, api Authenticator, l *log.Logger) *Auth {
	if l == nil {
		l = log.Default()
	}
	return &Auth{session: s, api: api, log: l, now: time.Now}
}

func (a *Auth) Session() *Session { return a.session }

// Login signs in by username. On failure the session stays signed out.
func (a *Auth) Login(ctx context.Context, username string) (*User, error) {
	res, err := a.api.Login(ctx, strings.TrimSpace(username))
	if err != nil {
		a.log.Printf("[session] login failed: %v", err)
		return nil, err
	}
	return a.accept(ctx, res)
}

// Register creates the account and signs in with the returned token.
func (a *Auth) Register(ctx context.Context, username, displayName string) (*User, error) {
	res, err := a.api.Register(ctx, strings.TrimSpace(username), strings.TrimSpace(displayName))
	if err != nil {
		a.log.Printf("[session] register failed: %v", err)
		return nil, err
	}
	return a.accept(ctx, res)
}

func (a *Auth) accept(ctx context.Context, res *AuthResponse) (*User, error) {
	if res.AccessToken == "" {
		return nil, errors.New("server returned no access token")
	}
	if err := a.session.Set(ctx, res.AccessToken, res.User); err != nil {
		// The in-memory session is usable even when persisting failed.
		a.log.Printf("[session] persist session: %v", err)
	}
	u := res.User
	return &u, nil
}

// Startup restores a persisted session and validates it, reporting whether
// the user ends up signed in. An unreadable or invalid session is dropped.
func (a *Auth) Startup(ctx context.Context) bool {
	found, err := a.session.Restore(ctx)
	if err != nil {
		a.log.Printf("[session] restore: %v", err)
		a.session.Clear(ctx)
		return false
	}
	if !found {
		return false
	}
	return a.Validate(ctx)
}

// Validate re-checks the current token. Expired JWTs are dropped without a
// request; otherwise /auth/me decides. Any failure signs out silently.
func (a *Auth) Validate(ctx context.Context) bool {
	token := a.session.Token()
	if token == "" {
		return false
	}
	if expired(token, a.now()) {
		a.log.Printf("[session] stored token expired")
		a.session.Clear(ctx)
		return false
	}
	u, err := a.api.Me(ctx)
	if err != nil {
		a.log.Printf("[session] token validation failed: %v", err)
		a.session.Clear(ctx)
		return false
	}
	if err := a.session.Set(ctx, token, *u); err != nil {
		a.log.Printf("[session] persist session: %v", err)
	}
	return true
}

// Logout forgets the session locally. No request is made.
func (a *Auth) Logout(ctx context.Context) {
	a.session.Clear(ctx)
}

// UpdateDisplayName changes the signed-in user's display name.
func (a *Auth) UpdateDisplayName(ctx context.Context, displayName string) (*User, error) {
	token := a.session.Token()
	if token == "" {
		return nil, ErrNotAuthenticated
	}
	u, err := a.api.UpdateMe(ctx, strings.TrimSpace(displayName))
	if err != nil {
		return nil, err
	}
	if err := a.session.Set(ctx, token, *u); err != nil {
		a.log.Printf("[session] persist session: %v", err)
	}
	return u, nil
}

// expired reports whether token is a JWT whose exp claim has passed.
// Opaque tokens are never considered expired here.
func expired(token string, now time.Time) bool {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return !now.Before(claims.ExpiresAt.Time)
}
