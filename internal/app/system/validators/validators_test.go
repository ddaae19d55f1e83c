package validators_test

import (
	"testing"
	"time"

	"github.com/clanforge/clanhub/internal/app/system/validators"
	"github.com/clanforge/clanhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestEnsureAll_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("First EnsureAll failed: %v", err)
	}
	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("Second EnsureAll failed: %v", err)
	}
}

func TestEnsureAll_CreatesCollections(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		t.Fatalf("ListCollectionNames failed: %v", err)
	}
	have := make(map[string]bool)
	for _, n := range names {
		have[n] = true
	}

	for _, want := range []string{
		"users", "usernames", "conversations", "messages",
		"followers", "following", "shorts", "posts", "comments", "audit_events",
	} {
		if !have[want] {
			t.Errorf("expected collection %q to exist", want)
		}
	}
}

func TestValidators(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	a := primitive.NewObjectID()
	b := primitive.NewObjectID()
	now := time.Now()

	tests := []struct {
		name    string
		coll    string
		doc     bson.M
		wantErr bool
	}{
		{
			name: "valid user",
			coll: "users",
			doc: bson.M{"email": "a@clan.gg", "username": "Ace", "username_ci": "ace",
				"role": "user", "verification": "none"},
		},
		{
			name: "user with unknown role",
			coll: "users",
			doc: bson.M{"email": "b@clan.gg", "username": "Bee", "username_ci": "bee",
				"role": "admin", "verification": "none"},
			wantErr: true,
		},
		{
			name: "user with unknown verification tier",
			coll: "users",
			doc: bson.M{"email": "c@clan.gg", "username": "Cee", "username_ci": "cee",
				"role": "user", "verification": "platinum"},
			wantErr: true,
		},
		{
			name:    "conversation with three participants",
			coll:    "conversations",
			doc:     bson.M{"_id": a.Hex() + "_" + b.Hex(), "participants": bson.A{a, b, primitive.NewObjectID()}},
			wantErr: true,
		},
		{
			name: "valid conversation",
			coll: "conversations",
			doc:  bson.M{"_id": a.Hex() + "_" + b.Hex(), "participants": bson.A{a, b}},
		},
		{
			name:    "message without sender",
			coll:    "messages",
			doc:     bson.M{"conversation_id": "x", "text": "hi", "created_at": now},
			wantErr: true,
		},
		{
			name:    "follow record with malformed id",
			coll:    "followers",
			doc:     bson.M{"_id": "nope", "owner_id": a, "other_id": b, "created_at": now},
			wantErr: true,
		},
		{
			name:    "comment on unknown kind",
			coll:    "comments",
			doc:     bson.M{"item_kind": "clip", "item_id": a, "author_id": b, "content": "gg", "created_at": now},
			wantErr: true,
		},
		{
			name:    "blank comment",
			coll:    "comments",
			doc:     bson.M{"item_kind": "short", "item_id": a, "author_id": b, "content": "   ", "created_at": now},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := db.Collection(tt.coll).InsertOne(ctx, tt.doc)
			if tt.wantErr && err == nil {
				t.Error("expected validation error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
