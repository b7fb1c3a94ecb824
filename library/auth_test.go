package library_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"library-lending/devserver"
	"library-lending/library"
)

func TestRegisterThenLogin(t *testing.T) {
	h := newHarness(t, devserver.Options{})
	ctx := context.Background()

	u, err := h.auth.Register(ctx, " hanako ", "Hanako Yamada")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if u.Username != "hanako" || !h.session.IsAuthenticated() {
		t.Fatalf("register should sign in, got %+v", u)
	}
	if tok, stored, _ := h.store.Load(ctx); tok == "" || stored == nil || stored.DisplayName != "Hanako Yamada" {
		t.Fatalf("session not persisted")
	}

	h.auth.Logout(ctx)
	if h.session.IsAuthenticated() {
		t.Fatalf("logout should sign out")
	}
	if tok, _, _ := h.store.Load(ctx); tok != "" {
		t.Fatalf("logout should clear the store")
	}

	if _, err := h.auth.Login(ctx, "hanako"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if h.session.DisplayName() != "Hanako Yamada" {
		t.Fatalf("unexpected display name %q", h.session.DisplayName())
	}
}

func TestLoginUnknownUserStaysSignedOut(t *testing.T) {
	h := newHarness(t, devserver.Options{})
	form := library.NewLoginForm(h.auth)
	form.Username = "nobody"

	ok, err := form.Submit(context.Background())
	if ok || err == nil {
		t.Fatalf("want failure, got ok=%v err=%v", ok, err)
	}
	if form.Message != "user not found" {
		t.Fatalf("want server detail as message, got %q", form.Message)
	}
	if form.Username != "nobody" {
		t.Fatalf("fields should survive a failure")
	}
	if h.session.IsAuthenticated() {
		t.Fatalf("failed login must not sign in")
	}
}

func TestRegisterDuplicateShowsDetail(t *testing.T) {
	h := newHarness(t, devserver.Options{})
	ctx := context.Background()
	if _, err := h.auth.Register(ctx, "taro", "Taro"); err != nil {
		t.Fatalf("register: %v", err)
	}
	h.auth.Logout(ctx)

	form := library.NewRegisterForm(h.auth)
	form.Username, form.DisplayName = "taro", "Another Taro"
	if ok, _ := form.Submit(ctx); ok {
		t.Fatalf("duplicate username should fail")
	}
	if form.Message != "username taro is already taken" {
		t.Fatalf("unexpected message %q", form.Message)
	}
}

func TestFormsSkipBlankInput(t *testing.T) {
	h := newHarness(t, devserver.Options{})
	ctx := context.Background()

	login := library.NewLoginForm(h.auth)
	login.Username = "   "
	if ok, err := login.Submit(ctx); ok || err != nil {
		t.Fatalf("blank login: ok=%v err=%v", ok, err)
	}
	reg := library.NewRegisterForm(h.auth)
	reg.Username = "x"
	if ok, err := reg.Submit(ctx); ok || err != nil {
		t.Fatalf("blank display name: ok=%v err=%v", ok, err)
	}
	if h.srv.Hits() != 0 {
		t.Fatalf("blank forms must not reach the server, got %d hits", h.srv.Hits())
	}
}

func TestStartupRestoresValidSession(t *testing.T) {
	h := newHarness(t, devserver.Options{})
	ctx := context.Background()
	if _, err := h.auth.Register(ctx, "jiro", "Jiro"); err != nil {
		t.Fatalf("register: %v", err)
	}
	tok := h.session.Token()

	// A fresh process: new session over the same store.
	s := library.NewSession(h.store, quiet())
	api := library.NewAPI(library.NewClient(h.http.URL+"/api", s, library.WithLogger(quiet())))
	auth := library.NewAuth(s, api, quiet())
	if !auth.Startup(ctx) {
		t.Fatalf("startup should restore the session")
	}
	if s.Token() != tok || s.DisplayName() != "Jiro" {
		t.Fatalf("restored session mismatch: %q %q", s.Token(), s.DisplayName())
	}
}

func TestStartupDropsRejectedToken(t *testing.T) {
	h := newHarness(t, devserver.Options{})
	ctx := context.Background()
	_ = h.store.Save(ctx, "opaque-token", &library.User{ID: 1, Username: "x", DisplayName: "X"})

	if h.auth.Startup(ctx) {
		t.Fatalf("startup should fail for a token the server rejects")
	}
	if h.session.IsAuthenticated() {
		t.Fatalf("session should be cleared")
	}
	if tok, _, _ := h.store.Load(ctx); tok != "" {
		t.Fatalf("store should be cleared")
	}
}

func TestStartupExpiredTokenSkipsRequest(t *testing.T) {
	h := newHarness(t, devserver.Options{})
	ctx := context.Background()

	past := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	})
	tok, err := past.SignedString([]byte("whatever"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	_ = h.store.Save(ctx, tok, &library.User{ID: 1, Username: "x", DisplayName: "X"})

	if h.auth.Startup(ctx) {
		t.Fatalf("expired token should not validate")
	}
	if h.srv.Hits() != 0 {
		t.Fatalf("expired token must be dropped without a request, got %d hits", h.srv.Hits())
	}
	if tok, _, _ := h.store.Load(ctx); tok != "" {
		t.Fatalf("store should be cleared")
	}
}

func TestStartupWithoutSession(t *testing.T) {
	h := newHarness(t, devserver.Options{})
	if h.auth.Startup(context.Background()) {
		t.Fatalf("no stored session means signed out")
	}
	if h.srv.Hits() != 0 {
		t.Fatalf("no request expected")
	}
}

func TestUpdateDisplayName(t *testing.T) {
	h := newHarness(t, devserver.Options{})
	ctx := context.Background()

	if _, err := h.auth.UpdateDisplayName(ctx, "Nobody"); !errors.Is(err, library.ErrNotAuthenticated) {
		t.Fatalf("want ErrNotAuthenticated, got %v", err)
	}

	if _, err := h.auth.Register(ctx, "saburo", "Saburo"); err != nil {
		t.Fatalf("register: %v", err)
	}
	u, err := h.auth.UpdateDisplayName(ctx, "Sabu")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if u.DisplayName != "Sabu" || h.session.DisplayName() != "Sabu" {
		t.Fatalf("display name not updated: %+v / %q", u, h.session.DisplayName())
	}
	if _, stored, _ := h.store.Load(ctx); stored.DisplayName != "Sabu" {
		t.Fatalf("stored user not updated")
	}
}

func TestValidateFreshToken(t *testing.T) {
	h := newHarness(t, devserver.Options{TokenTTL: time.Minute})
	ctx := context.Background()
	if _, err := h.auth.Register(ctx, "shiro", "Shiro"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if !h.auth.Validate(ctx) {
		t.Fatalf("fresh token should validate")
	}
}
