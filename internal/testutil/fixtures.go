package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/clanforge/clanhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx, ok := r.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if !ok || rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateUser inserts a profile and its username claim directly, bypassing
// the store's validation.
func (f *Fixtures) CreateUser(ctx context.Context, username, email, role string) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	u := models.User{
		ID:           primitive.NewObjectID(),
		Email:        email,
		Username:     username,
		UsernameCI:   text.Fold(username),
		Role:         role,
		Verification: models.VerificationNone,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if _, err := f.db.Collection("users").InsertOne(ctx, u); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	claim := models.UsernameClaim{ID: u.UsernameCI, UserID: u.ID, ClaimedAt: now}
	if _, err := f.db.Collection("usernames").InsertOne(ctx, claim); err != nil {
		f.t.Fatalf("failed to claim test username: %v", err)
	}
	return u
}

// CreateMember creates an ordinary user.
func (f *Fixtures) CreateMember(ctx context.Context, username string) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, username, username+"@test.com", models.RoleUser)
}

// CreateClanOwner creates an administrative user.
func (f *Fixtures) CreateClanOwner(ctx context.Context, username string) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, username, username+"@test.com", models.RoleClanOwner)
}

// CreateShort inserts a short authored by author.
func (f *Fixtures) CreateShort(ctx context.Context, author models.User, videoURL string) models.Short {
	f.t.Helper()

	s := models.Short{
		ID:         primitive.NewObjectID(),
		AuthorID:   author.ID,
		AuthorName: author.Username,
		VideoURL:   videoURL,
		LikedBy:    []primitive.ObjectID{},
		CreatedAt:  time.Now().UTC(),
	}
	if _, err := f.db.Collection("shorts").InsertOne(ctx, s); err != nil {
		f.t.Fatalf("failed to create test short: %v", err)
	}
	return s
}
