package posts_test

import (
	"net/http"
	"strings"
	"testing"

	uierrors "github.com/clanforge/clanhub/internal/app/features/errors"
	"github.com/clanforge/clanhub/internal/app/features/posts"
	"github.com/clanforge/clanhub/internal/domain/models"
	"github.com/clanforge/clanhub/internal/testutil"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func newTestHandler(t *testing.T) (*posts.Handler, *mongo.Database) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	testutil.EnsureSchema(t, db)
	logger := zap.NewNop()
	return posts.NewHandler(db, uierrors.NewErrorLogger(logger), nil, logger), db
}

func TestHandleCreate(t *testing.T) {
	h, db := newTestHandler(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	owner := fx.CreateClanOwner(ctx, "boss")
	member := fx.CreateMember(ctx, "grunt")

	tests := []struct {
		name   string
		as     models.User
		body   map[string]string
		status int
	}{
		{"owner publishes", owner, map[string]string{"title": "Season recap", "body": "<p>We won.</p>"}, http.StatusCreated},
		{"with image", owner, map[string]string{"title": "Roster", "body": "<p>New faces</p>", "image_url": "https://cdn.test/roster.png"}, http.StatusCreated},
		{"member forbidden", member, map[string]string{"title": "x", "body": "y"}, http.StatusForbidden},
		{"script-only body", owner, map[string]string{"title": "x", "body": "<script>alert(1)</script>"}, http.StatusBadRequest},
		{"bad image url", owner, map[string]string{"title": "x", "body": "y", "image_url": "ftp://nope"}, http.StatusBadRequest},
		{"missing title", owner, map[string]string{"body": "y"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.WithUser(testutil.NewJSONRequest("POST", "/posts", tt.body), testutil.AsTestUser(tt.as))
			rec := testutil.NewRecorder()
			h.HandleCreate(rec, req)
			rec.AssertStatus(t, tt.status)
		})
	}
}

func TestHandleCreate_SanitizesBody(t *testing.T) {
	h, db := newTestHandler(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	owner := fx.CreateClanOwner(ctx, "boss")

	body := map[string]string{"title": "<b>Patch</b> notes", "body": `<p onclick="x()">Hi</p><script>steal()</script>`}
	req := testutil.WithUser(testutil.NewJSONRequest("POST", "/posts", body), testutil.AsTestUser(owner))
	rec := testutil.NewRecorder()
	h.HandleCreate(rec, req)
	rec.AssertStatus(t, http.StatusCreated)

	var got struct {
		ID    string `json:"id"`
		Title string `json:"title"`
		Body  string `json:"body"`
	}
	rec.DecodeJSON(t, &got)
	if got.Title != "Patch notes" {
		t.Errorf("title = %q", got.Title)
	}
	if strings.Contains(got.Body, "script") || strings.Contains(got.Body, "onclick") {
		t.Errorf("body not sanitized: %q", got.Body)
	}

	req = testutil.WithChiURLParam(testutil.NewRequest("GET", "/posts/"+got.ID), "id", got.ID)
	rec = testutil.NewRecorder()
	h.ServePost(rec, req)
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"likes":0`)
}

func TestServeList(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := testutil.NewRecorder()
	h.ServeList(rec, testutil.NewRequest("GET", "/posts"))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"items":[]`)
}
