// Package followstore keeps the mirrored follow records.
//
// An edge V→T is two documents: followers/<T>:<V> and following/<V>:<T>.
// The followers record is authoritative for whether the edge exists. Both
// are written and removed together inside one transaction, and their ids
// are deterministic so a racing double-follow fails on the duplicate key
// instead of producing a second pair.
package followstore

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/clanforge/clanhub/internal/app/system/live"
	"github.com/clanforge/clanhub/internal/app/system/paging"
	"github.com/clanforge/clanhub/internal/app/system/txn"
	"github.com/clanforge/clanhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// ErrSelfFollow is returned when a user tries to follow themselves.
var ErrSelfFollow = errors.New("you cannot follow yourself")

const (
	followersColl = "followers"
	followingColl = "following"
)

// Party is the denormalized view of one end of an edge.
type Party struct {
	ID       primitive.ObjectID
	Username string
	PhotoURL string
}

// RecordID is the _id of the record owned by owner that points at other.
func RecordID(owner, other primitive.ObjectID) string {
	return owner.Hex() + ":" + other.Hex()
}

type Store struct {
	db        *mongo.Database
	followers *mongo.Collection
	following *mongo.Collection
	log       *zap.Logger
}

func New(db *mongo.Database, log *zap.Logger) *Store {
	return &Store{
		db:        db,
		followers: db.Collection(followersColl),
		following: db.Collection(followingColl),
		log:       log,
	}
}

// IsFollowing reports whether viewer follows target.
func (s *Store) IsFollowing(ctx context.Context, viewer, target primitive.ObjectID) (bool, error) {
	n, err := s.followers.CountDocuments(ctx, bson.M{"_id": RecordID(target, viewer)}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Toggle flips the edge viewer→target and reports whether it exists
// afterwards.
//
// Without transaction support the two writes land one after the other; a
// failure between them leaves a half edge that the next toggle repairs,
// because existence is decided by the followers record alone and both
// deletes tolerate a missing document.
func (s *Store) Toggle(ctx context.Context, viewer, target Party) (bool, error) {
	if viewer.ID == target.ID {
		return false, ErrSelfFollow
	}

	followerID := RecordID(target.ID, viewer.ID)
	followingID := RecordID(viewer.ID, target.ID)

	var nowFollowing bool
	err := txn.Run(ctx, s.db.Client(), s.log, func(ctx context.Context) error {
		n, err := s.followers.CountDocuments(ctx, bson.M{"_id": followerID}, options.Count().SetLimit(1))
		if err != nil {
			return err
		}

		if n > 0 {
			if _, err := s.followers.DeleteOne(ctx, bson.M{"_id": followerID}); err != nil {
				return err
			}
			if _, err := s.following.DeleteOne(ctx, bson.M{"_id": followingID}); err != nil {
				return err
			}
			nowFollowing = false
			return nil
		}

		now := time.Now().UTC()
		if _, err := s.followers.InsertOne(ctx, models.FollowRecord{
			ID:        followerID,
			OwnerID:   target.ID,
			OtherID:   viewer.ID,
			Username:  viewer.Username,
			PhotoURL:  viewer.PhotoURL,
			CreatedAt: now,
		}); err != nil {
			return err
		}
		// A leftover following record from an interrupted unfollow is
		// replaced rather than treated as a conflict.
		if _, err := s.following.ReplaceOne(ctx, bson.M{"_id": followingID}, models.FollowRecord{
			ID:        followingID,
			OwnerID:   viewer.ID,
			OtherID:   target.ID,
			Username:  target.Username,
			PhotoURL:  target.PhotoURL,
			CreatedAt: now,
		}, options.Replace().SetUpsert(true)); err != nil {
			return err
		}
		nowFollowing = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return nowFollowing, nil
}

// Counts derives follower and following totals for user by counting
// records. Nothing is cached.
func (s *Store) Counts(ctx context.Context, user primitive.ObjectID) (models.FollowCounts, error) {
	var out models.FollowCounts
	var err error
	if out.Followers, err = s.followers.CountDocuments(ctx, bson.M{"owner_id": user}); err != nil {
		return models.FollowCounts{}, err
	}
	if out.Following, err = s.following.CountDocuments(ctx, bson.M{"owner_id": user}); err != nil {
		return models.FollowCounts{}, err
	}
	return out, nil
}

// ListFollowers returns one newest-first page of the users following user.
// next is empty on the last page.
func (s *Store) ListFollowers(ctx context.Context, user primitive.ObjectID, p paging.Page) ([]models.FollowRecord, string, error) {
	return s.list(ctx, s.followers, user, p)
}

// ListFollowing returns one newest-first page of the users user follows.
func (s *Store) ListFollowing(ctx context.Context, user primitive.ObjectID, p paging.Page) ([]models.FollowRecord, string, error) {
	return s.list(ctx, s.following, user, p)
}

// list pages by (created_at, other_id); other_id is unique per owner.
func (s *Store) list(ctx context.Context, c *mongo.Collection, user primitive.ObjectID, p paging.Page) ([]models.FollowRecord, string, error) {
	filter := p.FilterBy(bson.M{"owner_id": user}, "other_id")
	cur, err := c.Find(ctx, filter, p.ApplyToFindBy(options.Find(), "other_id"))
	if err != nil {
		return nil, "", err
	}
	defer cur.Close(ctx)

	out := []models.FollowRecord{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, "", err
	}
	var next string
	if paging.Trim(&out, p.Limit) {
		last := out[len(out)-1]
		next = paging.Cursor(last.CreatedAt, last.OtherID)
	}
	return out, next, nil
}

// RenameParty refreshes the denormalized username and photo of p on every
// record that points at p.
func (s *Store) RenameParty(ctx context.Context, p Party) error {
	set := bson.M{"$set": bson.M{"username": p.Username, "photo_url": p.PhotoURL}}
	if _, err := s.followers.UpdateMany(ctx, bson.M{"other_id": p.ID}, set); err != nil {
		return err
	}
	_, err := s.following.UpdateMany(ctx, bson.M{"other_id": p.ID}, set)
	return err
}

// WatchCounts reports any change to records owned by user in either
// collection. Deletes carry no full document, so the match is on the id
// prefix.
func (s *Store) WatchCounts(user primitive.ObjectID) live.Opener {
	prefix := "^" + regexp.QuoteMeta(user.Hex()) + ":"
	return live.WatchDatabase(s.db, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"ns.coll":         bson.M{"$in": bson.A{followersColl, followingColl}},
			"documentKey._id": primitive.Regex{Pattern: prefix},
		}}},
	})
}
