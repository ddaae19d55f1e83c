package indexes_test

import (
	"testing"

	"github.com/clanforge/clanhub/internal/app/system/indexes"
	"github.com/clanforge/clanhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func indexNames(t *testing.T, db *mongo.Database, coll string) map[string]bool {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()

	cur, err := db.Collection(coll).Indexes().List(ctx)
	if err != nil {
		t.Fatalf("List indexes failed: %v", err)
	}
	defer cur.Close(ctx)

	names := make(map[string]bool)
	for cur.Next(ctx) {
		var idx bson.M
		if err := cur.Decode(&idx); err != nil {
			continue
		}
		if name, ok := idx["name"].(string); ok {
			names[name] = true
		}
	}
	return names
}

func TestEnsureAll_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("First EnsureAll failed: %v", err)
	}
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("Second EnsureAll failed: %v", err)
	}
}

func TestEnsureAll_CreatesIndexes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	expected := map[string][]string{
		"users":         {"uniq_users_email", "uniq_users_usernameci"},
		"conversations": {"idx_conv_participants_lastmsg", "idx_conv_lastmsg"},
		"messages":      {"idx_msg_conv_created__id"},
		"followers":     {"idx_followers_owner_created_other"},
		"following":     {"idx_following_owner_created_other"},
		"shorts":        {"idx_shorts_created__id"},
		"posts":         {"idx_posts_created__id"},
		"comments":      {"idx_comments_item_created"},
		"audit_events":  {"idx_audit_timestamp", "idx_audit_user_timestamp", "idx_audit_category_type_timestamp"},
	}

	for coll, want := range expected {
		names := indexNames(t, db, coll)
		for _, name := range want {
			if !names[name] {
				t.Errorf("expected index %q on %s", name, coll)
			}
		}
	}
}

func TestEnsureAll_RenamesMisnamedIndex(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := db.Collection("messages").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "conversation_id", Value: 1},
			{Key: "created_at", Value: 1},
			{Key: "_id", Value: 1},
		},
		Options: options.Index().SetName("legacy_name"),
	})
	if err != nil {
		t.Fatalf("seed index failed: %v", err)
	}

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	names := indexNames(t, db, "messages")
	if names["legacy_name"] {
		t.Error("expected legacy index name to be replaced")
	}
	if !names["idx_msg_conv_created__id"] {
		t.Error("expected idx_msg_conv_created__id to exist")
	}
}

func TestEnsureAll_UniqueEmail(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	users := db.Collection("users")
	if _, err := users.InsertOne(ctx, bson.M{"email": "a@clan.gg", "username_ci": "a"}); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}
	if _, err := users.InsertOne(ctx, bson.M{"email": "a@clan.gg", "username_ci": "b"}); err == nil {
		t.Error("expected duplicate email to be rejected")
	}
}
