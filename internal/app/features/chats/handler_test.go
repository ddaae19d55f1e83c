package chats_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/clanforge/clanhub/internal/app/features/chats"
	uierrors "github.com/clanforge/clanhub/internal/app/features/errors"
	convstore "github.com/clanforge/clanhub/internal/app/store/conversations"
	"github.com/clanforge/clanhub/internal/app/system/livews"
	"github.com/clanforge/clanhub/internal/domain/models"
	"github.com/clanforge/clanhub/internal/testutil"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func newTestHandler(t *testing.T) (*chats.Handler, *mongo.Database) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	testutil.EnsureSchema(t, db)
	logger := zap.NewNop()
	return chats.NewHandler(db, uierrors.NewErrorLogger(logger), nil, livews.DefaultConfig(), logger), db
}

func TestHandleOpen(t *testing.T) {
	h, db := newTestHandler(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	ace := fx.CreateMember(ctx, "ace")
	bob := fx.CreateMember(ctx, "bob")

	open := func(as models.User, userID string) *testutil.ResponseRecorder {
		req := testutil.WithUser(testutil.NewJSONRequest("POST", "/chats", map[string]string{"user_id": userID}), testutil.AsTestUser(as))
		rec := testutil.NewRecorder()
		h.HandleOpen(rec, req)
		return rec
	}

	rec := open(ace, bob.ID.Hex())
	rec.AssertStatus(t, http.StatusOK)
	var first models.Conversation
	rec.DecodeJSON(t, &first)

	rec = open(bob, ace.ID.Hex())
	rec.AssertStatus(t, http.StatusOK)
	var second models.Conversation
	rec.DecodeJSON(t, &second)
	if first.ID != second.ID || first.ID != convstore.PairID(ace.ID, bob.ID) {
		t.Errorf("ids differ: %q vs %q", first.ID, second.ID)
	}

	open(ace, ace.ID.Hex()).AssertStatus(t, http.StatusBadRequest)
	open(ace, "000000000000000000000000").AssertStatus(t, http.StatusNotFound)
	rec = open(ace, "nope")
	rec.AssertStatus(t, http.StatusBadRequest)
	rec.AssertContains(t, "User is not valid.")
	rec = open(ace, "")
	rec.AssertStatus(t, http.StatusBadRequest)
	rec.AssertContains(t, "User is required.")
}

func TestConversationAccess(t *testing.T) {
	h, db := newTestHandler(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	ace := fx.CreateMember(ctx, "ace")
	bob := fx.CreateMember(ctx, "bob")
	eve := fx.CreateMember(ctx, "eve")
	owner := fx.CreateClanOwner(ctx, "boss")

	conv, err := h.Convs.Open(ctx,
		convstore.Participant{ID: ace.ID, Username: "ace"},
		convstore.Participant{ID: bob.ID, Username: "bob"})
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := h.Convs.AppendMessage(ctx, conv.ID, ace.ID, "secret plans"); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		as     models.User
		id     string
		status int
	}{
		{"participant", bob, conv.ID, http.StatusOK},
		{"administrator", owner, conv.ID, http.StatusOK},
		{"stranger", eve, conv.ID, http.StatusForbidden},
		{"missing", ace, convstore.PairID(ace.ID, eve.ID), http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.NewAuthenticatedRequest("GET", "/chats/"+tt.id, testutil.AsTestUser(tt.as))
			req = testutil.WithChiURLParam(req, "id", tt.id)
			rec := testutil.NewRecorder()
			h.ServeConversation(rec, req)
			rec.AssertStatus(t, tt.status)
			if tt.status == http.StatusOK {
				rec.AssertContains(t, "secret plans")
			} else if rec.Code == http.StatusForbidden {
				if strings.Contains(rec.Body.String(), "secret plans") {
					t.Error("stranger saw message content")
				}
			}
		})
	}
}

func TestHandleSend(t *testing.T) {
	h, db := newTestHandler(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	ace := fx.CreateMember(ctx, "ace")
	bob := fx.CreateMember(ctx, "bob")
	eve := fx.CreateMember(ctx, "eve")

	conv, err := h.Convs.Open(ctx,
		convstore.Participant{ID: ace.ID, Username: "ace"},
		convstore.Participant{ID: bob.ID, Username: "bob"})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		as     models.User
		id     string
		text   string
		status int
	}{
		{"text", ace, conv.ID, "gg", http.StatusCreated},
		{"image", bob, conv.ID, "https://cdn.test/clip.png", http.StatusCreated},
		{"blank", ace, conv.ID, "   ", http.StatusBadRequest},
		{"stranger", eve, conv.ID, "hi", http.StatusForbidden},
		{"missing", ace, convstore.PairID(ace.ID, eve.ID), "hi", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.WithUser(testutil.NewJSONRequest("POST", "/chats/"+tt.id+"/messages", map[string]string{"text": tt.text}), testutil.AsTestUser(tt.as))
			req = testutil.WithChiURLParam(req, "id", tt.id)
			rec := testutil.NewRecorder()
			h.HandleSend(rec, req)
			rec.AssertStatus(t, tt.status)
		})
	}

	msgs, err := h.Convs.ListMessages(ctx, conv.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 {
		t.Fatalf("messages = %d, want 2", len(msgs))
	}
	if msgs[1].ImageURL == nil || msgs[1].Text != "" {
		t.Errorf("image message = %+v", msgs[1])
	}

	got, err := h.Convs.Get(ctx, conv.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.LastMessage != "Image" {
		t.Errorf("preview = %q", got.LastMessage)
	}
}

func TestServeDirectory(t *testing.T) {
	h, db := newTestHandler(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	ace := fx.CreateMember(ctx, "ace")
	bob := fx.CreateMember(ctx, "bob")

	if _, err := h.Convs.Open(ctx,
		convstore.Participant{ID: ace.ID, Username: "ace"},
		convstore.Participant{ID: bob.ID, Username: "bob"}); err != nil {
		t.Fatal(err)
	}

	rec := testutil.NewRecorder()
	h.ServeDirectory(rec, testutil.NewAuthenticatedRequest("GET", "/chats", testutil.AsTestUser(ace)))
	rec.AssertStatus(t, http.StatusOK)
	var items []chats.DirectoryItem
	rec.DecodeJSON(t, &items)
	if len(items) != 1 || items[0].Title != "bob" {
		t.Errorf("items = %+v", items)
	}

	rec = testutil.NewRecorder()
	h.ServeDirectory(rec, testutil.NewRequest("GET", "/chats"))
	rec.AssertStatus(t, http.StatusUnauthorized)
}

func TestServeConversationLive_VisitorRejected(t *testing.T) {
	h, _ := newTestHandler(t)
	req := testutil.WithChiURLParam(testutil.NewRequest("GET", "/chats/x/live"), "id", "x")
	rec := testutil.NewRecorder()
	h.ServeConversationLive(rec, req)
	rec.AssertStatus(t, http.StatusUnauthorized)
}
