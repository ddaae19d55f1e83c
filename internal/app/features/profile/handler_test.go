package profile_test

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	uierrors "github.com/clanforge/clanhub/internal/app/features/errors"
	"github.com/clanforge/clanhub/internal/app/features/profile"
	convstore "github.com/clanforge/clanhub/internal/app/store/conversations"
	followstore "github.com/clanforge/clanhub/internal/app/store/follows"
	userstore "github.com/clanforge/clanhub/internal/app/store/users"
	"github.com/clanforge/clanhub/internal/app/system/authutil"
	"github.com/clanforge/clanhub/internal/app/system/filestore"
	"github.com/clanforge/clanhub/internal/app/system/paging"
	"github.com/clanforge/clanhub/internal/domain/models"
	"github.com/clanforge/clanhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func newTestHandler(t *testing.T) (*profile.Handler, *mongo.Database, string) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	testutil.EnsureSchema(t, db)
	root := t.TempDir()
	files, err := filestore.NewLocal(root, "/files")
	if err != nil {
		t.Fatal(err)
	}
	logger := zap.NewNop()
	return profile.NewHandler(db, files, uierrors.NewErrorLogger(logger), nil, logger), db, root
}

func TestServeProfile(t *testing.T) {
	h, db, _ := newTestHandler(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	u := fx.CreateMember(ctx, "Ace")

	rec := testutil.NewRecorder()
	h.ServeProfile(rec, testutil.NewAuthenticatedRequest("GET", "/profile", testutil.AsTestUser(u)))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"username":"Ace"`)
	if strings.Contains(rec.Body.String(), "password") {
		t.Error("profile leaks password fields")
	}

	rec = testutil.NewRecorder()
	h.ServeProfile(rec, testutil.NewRequest("GET", "/profile"))
	rec.AssertStatus(t, http.StatusUnauthorized)
}

func TestChangeUsername_Propagates(t *testing.T) {
	h, db, _ := newTestHandler(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	ace := fx.CreateMember(ctx, "ace")
	bob := fx.CreateMember(ctx, "bob")
	conv, err := convstore.New(db, zap.NewNop()).Open(ctx,
		convstore.Participant{ID: ace.ID, Username: ace.Username},
		convstore.Participant{ID: bob.ID, Username: bob.Username})
	if err != nil {
		t.Fatal(err)
	}
	follows := followstore.New(db, zap.NewNop())
	if _, err := follows.Toggle(ctx, followstore.Party{ID: ace.ID, Username: "ace"}, followstore.Party{ID: bob.ID, Username: "bob"}); err != nil {
		t.Fatal(err)
	}

	req := testutil.WithUser(testutil.NewJSONRequest("PATCH", "/profile/username", map[string]string{"username": "AceOfClubs"}), testutil.AsTestUser(ace))
	rec := testutil.NewRecorder()
	h.HandleChangeUsername(rec, req)
	rec.AssertStatus(t, http.StatusOK)

	c, _ := convstore.New(db, zap.NewNop()).Get(ctx, conv.ID)
	if c.ParticipantNames[ace.ID.Hex()] != "AceOfClubs" {
		t.Errorf("conversation name = %q", c.ParticipantNames[ace.ID.Hex()])
	}
	fans, _, _ := follows.ListFollowers(ctx, bob.ID, paging.Page{Limit: paging.DefaultLimit})
	if len(fans) != 1 || fans[0].Username != "AceOfClubs" {
		t.Errorf("follower record = %+v", fans)
	}
}

func TestChangeUsername_TakenChangesNothing(t *testing.T) {
	h, db, _ := newTestHandler(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	ace := fx.CreateMember(ctx, "ace")
	fx.CreateMember(ctx, "bob")

	req := testutil.WithUser(testutil.NewJSONRequest("PATCH", "/profile/username", map[string]string{"username": "BOB"}), testutil.AsTestUser(ace))
	rec := testutil.NewRecorder()
	h.HandleChangeUsername(rec, req)
	rec.AssertStatus(t, http.StatusConflict)

	u, _ := userstore.New(db, zap.NewNop()).GetByID(ctx, ace.ID)
	if u.Username != "ace" {
		t.Errorf("username changed to %q", u.Username)
	}
	n, _ := db.Collection("usernames").CountDocuments(ctx, bson.M{"_id": "ace", "user_id": ace.ID})
	if n != 1 {
		t.Error("old claim released")
	}

	rec = testutil.NewRecorder()
	h.HandleChangeUsername(rec, testutil.WithUser(testutil.NewJSONRequest("PATCH", "/profile/username", map[string]string{"username": "no spaces"}), testutil.AsTestUser(ace)))
	rec.AssertStatus(t, http.StatusBadRequest)
}

func photoRequest(t *testing.T, filename string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("photo", filename)
	if err != nil {
		t.Fatal(err)
	}
	fw.Write(content)
	mw.Close()
	req := httptest.NewRequest("POST", "/profile/photo", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// Smallest valid PNG header is enough for content sniffing.
var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 64)...)

func TestUploadPhoto(t *testing.T) {
	h, db, root := newTestHandler(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	ace := fx.CreateMember(ctx, "ace")

	rec := testutil.NewRecorder()
	h.HandleUploadPhoto(rec, testutil.WithUser(photoRequest(t, "me.png", pngBytes), testutil.AsTestUser(ace)))
	rec.AssertStatus(t, http.StatusOK)

	var got models.User
	rec.DecodeJSON(t, &got)
	if got.PhotoURL == nil || !strings.HasPrefix(*got.PhotoURL, "/files/photos/") {
		t.Fatalf("photo url = %v", got.PhotoURL)
	}
	key := strings.TrimPrefix(*got.PhotoURL, "/files/")
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(key)))
	if err != nil {
		t.Fatalf("stored file: %v", err)
	}
	if !bytes.Equal(data, pngBytes) {
		t.Error("stored bytes differ")
	}

	rec = testutil.NewRecorder()
	h.HandleUploadPhoto(rec, testutil.WithUser(photoRequest(t, "notes.txt", []byte("plain text")), testutil.AsTestUser(ace)))
	rec.AssertStatus(t, http.StatusBadRequest)
}

func TestChangePassword(t *testing.T) {
	h, db, _ := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	hash, _ := authutil.HashPassword("old-password")
	u, err := userstore.New(db, zap.NewNop()).Create(ctx, userstore.NewAccount{Email: "ace@clan.gg", Username: "ace", PasswordHash: hash})
	if err != nil {
		t.Fatal(err)
	}
	tu := testutil.AsTestUser(u)

	tests := []struct {
		name string
		body map[string]string
		want int
	}{
		{"wrong current", map[string]string{"current_password": "nope", "new_password": "new-password"}, http.StatusBadRequest},
		{"too short", map[string]string{"current_password": "old-password", "new_password": "short"}, http.StatusBadRequest},
		{"same", map[string]string{"current_password": "old-password", "new_password": "old-password"}, http.StatusBadRequest},
		{"ok", map[string]string{"current_password": "old-password", "new_password": "new-password"}, http.StatusNoContent},
	}
	for _, tt := range tests {
		rec := testutil.NewRecorder()
		h.HandleChangePassword(rec, testutil.WithUser(testutil.NewJSONRequest("POST", "/profile/password", tt.body), tu))
		if rec.Code != tt.want {
			t.Errorf("%s: status %d, want %d", tt.name, rec.Code, tt.want)
		}
	}

	stored, _ := userstore.New(db, zap.NewNop()).GetByID(ctx, u.ID)
	if !authutil.CheckPassword("new-password", *stored.PasswordHash) {
		t.Error("password not updated")
	}
}

func TestServeUser(t *testing.T) {
	h, db, _ := newTestHandler(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	ace := fx.CreateMember(ctx, "Ace")
	fan := fx.CreateMember(ctx, "fan")
	if _, err := followstore.New(db, zap.NewNop()).Toggle(ctx, followstore.Party{ID: fan.ID, Username: "fan"}, followstore.Party{ID: ace.ID, Username: "Ace"}); err != nil {
		t.Fatal(err)
	}

	req := testutil.WithChiURLParam(testutil.NewAuthenticatedRequest("GET", "/users/ace", testutil.AsTestUser(fan)), "user", "ace")
	rec := testutil.NewRecorder()
	h.ServeUser(rec, req)
	rec.AssertStatus(t, http.StatusOK)

	var got struct {
		Username    string              `json:"username"`
		Counts      models.FollowCounts `json:"counts"`
		IsFollowing bool                `json:"is_following"`
	}
	rec.DecodeJSON(t, &got)
	if got.Username != "Ace" || got.Counts.Followers != 1 || !got.IsFollowing {
		t.Errorf("got %+v", got)
	}

	rec = testutil.NewRecorder()
	h.ServeUser(rec, testutil.WithChiURLParam(testutil.NewRequest("GET", "/users/ghost"), "user", "ghost"))
	rec.AssertStatus(t, http.StatusNotFound)
}

func TestServeSearch(t *testing.T) {
	h, db, _ := newTestHandler(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx.CreateMember(ctx, "Ace")
	fx.CreateMember(ctx, "acorn")
	fx.CreateMember(ctx, "bob")

	rec := testutil.NewRecorder()
	h.ServeSearch(rec, testutil.NewRequest("GET", "/users?q=AC"))
	rec.AssertStatus(t, http.StatusOK)
	var got []struct {
		Username string `json:"username"`
	}
	rec.DecodeJSON(t, &got)
	if len(got) != 2 {
		t.Errorf("got %+v", got)
	}
}

func TestSetRoleAndVerification(t *testing.T) {
	h, db, _ := newTestHandler(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	target := fx.CreateMember(ctx, "target")

	patch := func(user testutil.TestUser, path string, body map[string]string, fn http.HandlerFunc) *testutil.ResponseRecorder {
		req := testutil.WithUser(testutil.NewJSONRequest("PATCH", path, body), user)
		req = testutil.WithChiURLParam(req, "user", target.ID.Hex())
		rec := testutil.NewRecorder()
		fn(rec, req)
		return rec
	}

	patch(testutil.MemberUser(), "/role", map[string]string{"role": "clan_owner"}, h.HandleSetRole).AssertStatus(t, http.StatusForbidden)
	patch(testutil.CreatorUser(), "/role", map[string]string{"role": "emperor"}, h.HandleSetRole).AssertStatus(t, http.StatusBadRequest)
	patch(testutil.CreatorUser(), "/role", map[string]string{"role": "clan_owner"}, h.HandleSetRole).AssertStatus(t, http.StatusNoContent)
	patch(testutil.CreatorUser(), "/verification", map[string]string{"verification": "gold"}, h.HandleSetVerification).AssertStatus(t, http.StatusNoContent)

	u, _ := userstore.New(db, zap.NewNop()).GetByID(ctx, target.ID)
	if u.Role != models.RoleClanOwner || u.Verification != models.VerificationGold {
		t.Errorf("stored role=%q verification=%q", u.Role, u.Verification)
	}
}
