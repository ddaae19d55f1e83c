package followstore_test

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	followstore "github.com/clanforge/clanhub/internal/app/store/follows"
	"github.com/clanforge/clanhub/internal/app/system/live"
	"github.com/clanforge/clanhub/internal/app/system/paging"
	"github.com/clanforge/clanhub/internal/domain/models"
	"github.com/clanforge/clanhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

var firstPage = paging.Page{Limit: paging.DefaultLimit}

func party(u models.User) followstore.Party {
	return followstore.Party{ID: u.ID, Username: u.Username, PhotoURL: u.Photo()}
}

func recordExists(t *testing.T, db *mongo.Database, coll, id string) bool {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	n, err := db.Collection(coll).CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		t.Fatalf("count %s: %v", coll, err)
	}
	return n > 0
}

func TestToggle_TwiceRestoresBothRecords(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	store := followstore.New(db, zap.NewNop())
	ctx, cancel := testutil.TestContext()
	defer cancel()

	v := fx.CreateMember(ctx, "viewer")
	tg := fx.CreateMember(ctx, "target")
	followerID := followstore.RecordID(tg.ID, v.ID)
	followingID := followstore.RecordID(v.ID, tg.ID)

	on, err := store.Toggle(ctx, party(v), party(tg))
	if err != nil {
		t.Fatalf("first Toggle failed: %v", err)
	}
	if !on {
		t.Error("expected edge to exist after first toggle")
	}
	if !recordExists(t, db, "followers", followerID) || !recordExists(t, db, "following", followingID) {
		t.Fatal("expected both mirrored records after follow")
	}

	var rec models.FollowRecord
	if err := db.Collection("followers").FindOne(ctx, bson.M{"_id": followerID}).Decode(&rec); err != nil {
		t.Fatalf("decode follower record: %v", err)
	}
	if rec.Username != "viewer" || rec.OwnerID != tg.ID || rec.OtherID != v.ID {
		t.Errorf("follower record: %+v", rec)
	}

	on, err = store.Toggle(ctx, party(v), party(tg))
	if err != nil {
		t.Fatalf("second Toggle failed: %v", err)
	}
	if on {
		t.Error("expected edge to be gone after second toggle")
	}
	if recordExists(t, db, "followers", followerID) || recordExists(t, db, "following", followingID) {
		t.Error("expected both mirrored records removed")
	}
}

func TestToggle_Self(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	store := followstore.New(db, zap.NewNop())
	ctx, cancel := testutil.TestContext()
	defer cancel()

	v := fx.CreateMember(ctx, "viewer")
	if _, err := store.Toggle(ctx, party(v), party(v)); !errors.Is(err, followstore.ErrSelfFollow) {
		t.Errorf("got %v, want ErrSelfFollow", err)
	}
}

func TestToggle_RepairsHalfEdge(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	store := followstore.New(db, zap.NewNop())
	ctx, cancel := testutil.TestContext()
	defer cancel()

	v := fx.CreateMember(ctx, "viewer")
	tg := fx.CreateMember(ctx, "target")
	followingID := followstore.RecordID(v.ID, tg.ID)
	if _, err := db.Collection("following").InsertOne(ctx, models.FollowRecord{
		ID: followingID, OwnerID: v.ID, OtherID: tg.ID, Username: "stale", CreatedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatal(err)
	}

	on, err := store.Toggle(ctx, party(v), party(tg))
	if err != nil {
		t.Fatalf("Toggle failed: %v", err)
	}
	if !on {
		t.Error("expected follow")
	}
	var rec models.FollowRecord
	if err := db.Collection("following").FindOne(ctx, bson.M{"_id": followingID}).Decode(&rec); err != nil {
		t.Fatal(err)
	}
	if rec.Username != "target" {
		t.Errorf("expected stale record replaced, got %q", rec.Username)
	}
}

func TestCounts_MatchRecords(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	store := followstore.New(db, zap.NewNop())
	ctx, cancel := testutil.TestContext()
	defer cancel()

	tg := fx.CreateMember(ctx, "target")
	fans := []models.User{
		fx.CreateMember(ctx, "fan1"),
		fx.CreateMember(ctx, "fan2"),
		fx.CreateMember(ctx, "fan3"),
	}
	for _, f := range fans {
		if _, err := store.Toggle(ctx, party(f), party(tg)); err != nil {
			t.Fatalf("Toggle failed: %v", err)
		}
	}

	counts, err := store.Counts(ctx, tg.ID)
	if err != nil {
		t.Fatalf("Counts failed: %v", err)
	}
	if counts.Followers != 3 || counts.Following != 0 {
		t.Errorf("counts = %+v, want 3 followers", counts)
	}

	if _, err := store.Toggle(ctx, party(fans[0]), party(tg)); err != nil {
		t.Fatal(err)
	}
	counts, _ = store.Counts(ctx, tg.ID)
	if counts.Followers != 2 {
		t.Errorf("followers = %d, want 2", counts.Followers)
	}

	fanCounts, _ := store.Counts(ctx, fans[1].ID)
	if fanCounts.Following != 1 || fanCounts.Followers != 0 {
		t.Errorf("fan counts = %+v", fanCounts)
	}

	list, _, err := store.ListFollowers(ctx, tg.ID, firstPage)
	if err != nil {
		t.Fatalf("ListFollowers failed: %v", err)
	}
	if int64(len(list)) != counts.Followers {
		t.Errorf("ListFollowers returned %d, counts say %d", len(list), counts.Followers)
	}

	following, _, _ := store.ListFollowing(ctx, fans[1].ID, firstPage)
	if len(following) != 1 || following[0].OtherID != tg.ID {
		t.Errorf("ListFollowing = %+v", following)
	}

	ok, _ := store.IsFollowing(ctx, fans[1].ID, tg.ID)
	if !ok {
		t.Error("expected fan2 to follow target")
	}
	ok, _ = store.IsFollowing(ctx, fans[0].ID, tg.ID)
	if ok {
		t.Error("expected fan1 not to follow target")
	}
}

func TestListFollowers_Pages(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	store := followstore.New(db, zap.NewNop())
	ctx, cancel := testutil.TestContext()
	defer cancel()

	tg := fx.CreateMember(ctx, "target")
	for _, name := range []string{"fan_a", "fan_b", "fan_c"} {
		fan := fx.CreateMember(ctx, name)
		if _, err := store.Toggle(ctx, party(fan), party(tg)); err != nil {
			t.Fatal(err)
		}
	}

	first, next, err := store.ListFollowers(ctx, tg.ID, paging.Page{Limit: 2})
	if err != nil {
		t.Fatalf("ListFollowers failed: %v", err)
	}
	if len(first) != 2 || next == "" {
		t.Fatalf("first page = %d rows, next %q", len(first), next)
	}

	page := paging.Parse(testutil.NewRequest("GET", "/users/x/followers?limit=2&after="+url.QueryEscape(next)))
	if page.Cursor == nil {
		t.Fatal("next cursor did not parse")
	}
	second, next2, err := store.ListFollowers(ctx, tg.ID, page)
	if err != nil {
		t.Fatalf("ListFollowers page 2 failed: %v", err)
	}
	if len(second) != 1 || next2 != "" {
		t.Fatalf("second page = %d rows, next %q", len(second), next2)
	}

	seen := map[primitive.ObjectID]bool{}
	for _, r := range append(first, second...) {
		if seen[r.OtherID] {
			t.Errorf("follower %s listed twice", r.Username)
		}
		seen[r.OtherID] = true
	}
	if len(seen) != 3 {
		t.Errorf("saw %d distinct followers, want 3", len(seen))
	}
}

func TestRenameParty(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	store := followstore.New(db, zap.NewNop())
	ctx, cancel := testutil.TestContext()
	defer cancel()

	v := fx.CreateMember(ctx, "viewer")
	tg := fx.CreateMember(ctx, "target")
	if _, err := store.Toggle(ctx, party(v), party(tg)); err != nil {
		t.Fatal(err)
	}

	if err := store.RenameParty(ctx, followstore.Party{ID: tg.ID, Username: "renamed"}); err != nil {
		t.Fatalf("RenameParty failed: %v", err)
	}
	list, _, _ := store.ListFollowing(ctx, v.ID, firstPage)
	if len(list) != 1 || list[0].Username != "renamed" {
		t.Errorf("following = %+v", list)
	}
}

func TestWatchCounts(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.RequireReplicaSet(t, db)
	testutil.EnsureSchema(t, db)
	fx := testutil.NewFixtures(t, db)
	store := followstore.New(db, zap.NewNop())
	ctx, cancel := testutil.TestContext()
	defer cancel()

	v := fx.CreateMember(ctx, "viewer")
	tg := fx.CreateMember(ctx, "target")

	sub, err := live.Run(ctx, store.WatchCounts(tg.ID), func(ctx2 context.Context) (models.FollowCounts, error) {
		return store.Counts(ctx2, tg.ID)
	}, nil)
	if err != nil {
		t.Fatalf("live.Run failed: %v", err)
	}
	defer sub.Close()

	if first := <-sub.Updates(); first.Value.Followers != 0 {
		t.Fatalf("initial = %+v", first)
	}
	if _, err := store.Toggle(ctx, party(v), party(tg)); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(10 * time.Second)
	for {
		select {
		case snap := <-sub.Updates():
			if snap.Err != nil {
				t.Fatalf("snapshot error: %v", snap.Err)
			}
			if snap.Value.Followers == 1 {
				return
			}
		case <-deadline:
			t.Fatal("follower count never reached 1")
		}
	}
}
