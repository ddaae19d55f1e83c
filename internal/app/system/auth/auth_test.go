package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/clanforge/clanhub/internal/app/system/auth"
	"go.uber.org/zap"
)

func newTestSessionManager(t *testing.T) *auth.SessionManager {
	t.Helper()
	sm, err := auth.NewSessionManager(
		"test-session-key-must-be-32-chars-long",
		"test-session",
		"",
		24*time.Hour,
		false,
		zap.NewNop(),
	)
	if err != nil {
		t.Fatalf("failed to create session manager: %v", err)
	}
	return sm
}

func withTestUser(r *http.Request, role string) *http.Request {
	return auth.WithTestUser(r, &auth.SessionUser{
		ID:       "507f1f77bcf86cd799439011",
		Username: "tester",
		Role:     role,
	})
}

type stubFetcher struct {
	user *auth.SessionUser
	ids  []string
}

func (f *stubFetcher) FetchUser(_ context.Context, id string) *auth.SessionUser {
	f.ids = append(f.ids, id)
	return f.user
}

func TestNewSessionManager_EmptyKeyInProduction(t *testing.T) {
	_, err := auth.NewSessionManager("", "s", "", time.Hour, true, zap.NewNop())
	if err == nil {
		t.Fatal("expected error for empty key with secure cookies")
	}
}

func TestNewSessionManager_EmptyKeyInDev(t *testing.T) {
	sm, err := auth.NewSessionManager("", "s", "", time.Hour, false, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sm == nil {
		t.Fatal("expected a session manager")
	}
}

func TestRequireSignedIn_NoUser_Returns401(t *testing.T) {
	sm := newTestSessionManager(t)

	handler := sm.RequireSignedIn(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/profile", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}
}

func TestRequireSignedIn_WithUser_Proceeds(t *testing.T) {
	sm := newTestSessionManager(t)

	called := false
	handler := sm.RequireSignedIn(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))

	req := withTestUser(httptest.NewRequest("GET", "/profile", nil), "user")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if !called {
		t.Error("expected handler to be called")
	}
}

func TestRequireRole(t *testing.T) {
	sm := newTestSessionManager(t)

	handler := sm.RequireRole("creator", "clan_owner")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name string
		role string
		want int
	}{
		{"no user", "", http.StatusUnauthorized},
		{"creator", "creator", http.StatusOK},
		{"clan owner", "clan_owner", http.StatusOK},
		{"uppercase role", "CREATOR", http.StatusOK},
		{"ordinary user", "user", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/posts", nil)
			if tt.role != "" {
				req = withTestUser(req, tt.role)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status: got %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestSignIn_RoundTripsThroughCookie(t *testing.T) {
	sm := newTestSessionManager(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/auth/signin", nil)
	want := &auth.SessionUser{ID: "507f1f77bcf86cd799439011", Username: "ace", Email: "ace@test.com", Role: "user"}
	if err := sm.SignIn(rec, req, want); err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}

	next := httptest.NewRequest("GET", "/auth/me", nil)
	for _, c := range rec.Result().Cookies() {
		next.AddCookie(c)
	}

	var got *auth.SessionUser
	sm.LoadSessionUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = auth.CurrentUser(r)
	})).ServeHTTP(httptest.NewRecorder(), next)

	if got == nil {
		t.Fatal("expected user in context after sign-in")
	}
	if got.ID != want.ID || got.Username != want.Username || got.Role != want.Role {
		t.Errorf("user: got %+v, want %+v", got, want)
	}
}

func TestLoadSessionUser_UsesFetcher(t *testing.T) {
	sm := newTestSessionManager(t)
	fetcher := &stubFetcher{user: &auth.SessionUser{ID: "507f1f77bcf86cd799439011", Username: "renamed", Role: "clan_owner"}}
	sm.SetUserFetcher(fetcher)

	rec := httptest.NewRecorder()
	if err := sm.SignIn(rec, httptest.NewRequest("POST", "/", nil), &auth.SessionUser{ID: "507f1f77bcf86cd799439011", Username: "old", Role: "user"}); err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}

	next := httptest.NewRequest("GET", "/", nil)
	for _, c := range rec.Result().Cookies() {
		next.AddCookie(c)
	}

	var got *auth.SessionUser
	sm.LoadSessionUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = auth.CurrentUser(r)
	})).ServeHTTP(httptest.NewRecorder(), next)

	if got == nil || got.Username != "renamed" || got.Role != "clan_owner" {
		t.Errorf("expected fetched user, got %+v", got)
	}
	if len(fetcher.ids) != 1 || fetcher.ids[0] != "507f1f77bcf86cd799439011" {
		t.Errorf("fetcher ids: got %v", fetcher.ids)
	}
}

func TestLoadSessionUser_DeletedUserIsSignedOut(t *testing.T) {
	sm := newTestSessionManager(t)
	sm.SetUserFetcher(&stubFetcher{user: nil})

	rec := httptest.NewRecorder()
	if err := sm.SignIn(rec, httptest.NewRequest("POST", "/", nil), &auth.SessionUser{ID: "507f1f77bcf86cd799439011"}); err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	next := httptest.NewRequest("GET", "/", nil)
	for _, c := range rec.Result().Cookies() {
		next.AddCookie(c)
	}

	signedIn := true
	sm.LoadSessionUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, signedIn = auth.CurrentUser(r)
	})).ServeHTTP(httptest.NewRecorder(), next)

	if signedIn {
		t.Error("expected no user when fetcher returns nil")
	}
}
