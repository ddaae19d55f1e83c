// Package contentstore holds shorts, posts and the comments and likes
// attached to them.
package contentstore

import (
	"context"
	"errors"
	"time"

	"github.com/clanforge/clanhub/internal/app/system/paging"
	"github.com/clanforge/clanhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrUnknownKind is returned for an item kind other than short or post.
var ErrUnknownKind = errors.New(`kind must be "short" or "post"`)

// Store owns shorts, posts and comments.
type Store struct {
	shorts   *mongo.Collection
	posts    *mongo.Collection
	comments *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{
		shorts:   db.Collection("shorts"),
		posts:    db.Collection("posts"),
		comments: db.Collection("comments"),
	}
}

func (s *Store) itemColl(kind string) (*mongo.Collection, error) {
	switch kind {
	case models.KindShort:
		return s.shorts, nil
	case models.KindPost:
		return s.posts, nil
	}
	return nil, ErrUnknownKind
}

/* --------------------------------- shorts -------------------------------- */

// CreateShort inserts a short with server-assigned id and time.
func (s *Store) CreateShort(ctx context.Context, sh models.Short) (models.Short, error) {
	sh.ID = primitive.NewObjectID()
	sh.LikedBy = []primitive.ObjectID{}
	sh.CreatedAt = time.Now().UTC()
	if _, err := s.shorts.InsertOne(ctx, sh); err != nil {
		return models.Short{}, err
	}
	return sh, nil
}

// GetShort returns mongo.ErrNoDocuments if missing.
func (s *Store) GetShort(ctx context.Context, id primitive.ObjectID) (*models.Short, error) {
	var sh models.Short
	if err := s.shorts.FindOne(ctx, bson.M{"_id": id}).Decode(&sh); err != nil {
		return nil, err
	}
	return &sh, nil
}

// ListShorts returns one newest-first page. next is empty on the last page.
func (s *Store) ListShorts(ctx context.Context, p paging.Page) (rows []models.Short, next string, err error) {
	cur, err := s.shorts.Find(ctx, p.Filter(bson.M{}), p.ApplyToFind(options.Find()))
	if err != nil {
		return nil, "", err
	}
	defer cur.Close(ctx)

	rows = []models.Short{}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, "", err
	}
	if paging.Trim(&rows, p.Limit) {
		last := rows[len(rows)-1]
		next = paging.Cursor(last.CreatedAt, last.ID)
	}
	return rows, next, nil
}

/* ---------------------------------- posts -------------------------------- */

// CreatePost inserts a post. Body must already be sanitized.
func (s *Store) CreatePost(ctx context.Context, p models.Post) (models.Post, error) {
	p.ID = primitive.NewObjectID()
	p.LikedBy = []primitive.ObjectID{}
	p.CreatedAt = time.Now().UTC()
	if _, err := s.posts.InsertOne(ctx, p); err != nil {
		return models.Post{}, err
	}
	return p, nil
}

// GetPost returns mongo.ErrNoDocuments if missing.
func (s *Store) GetPost(ctx context.Context, id primitive.ObjectID) (*models.Post, error) {
	var p models.Post
	if err := s.posts.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListPosts returns one newest-first page.
func (s *Store) ListPosts(ctx context.Context, p paging.Page) (rows []models.Post, next string, err error) {
	cur, err := s.posts.Find(ctx, p.Filter(bson.M{}), p.ApplyToFind(options.Find()))
	if err != nil {
		return nil, "", err
	}
	defer cur.Close(ctx)

	rows = []models.Post{}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, "", err
	}
	if paging.Trim(&rows, p.Limit) {
		last := rows[len(rows)-1]
		next = paging.Cursor(last.CreatedAt, last.ID)
	}
	return rows, next, nil
}

/* ---------------------------------- likes -------------------------------- */

// LikeState is the outcome of a like toggle.
type LikeState struct {
	Liked bool `json:"liked"`
	Likes int  `json:"likes"`
}

// ToggleLike adds viewer to the item's liked_by set, or removes them if
// already present. The membership test and the write are one
// findAndModify each, so the set never holds a viewer twice.
func (s *Store) ToggleLike(ctx context.Context, kind string, item, viewer primitive.ObjectID) (LikeState, error) {
	c, err := s.itemColl(kind)
	if err != nil {
		return LikeState{}, err
	}

	var doc struct {
		LikedBy []primitive.ObjectID `bson:"liked_by"`
	}
	after := options.After
	opts := options.FindOneAndUpdate().
		SetReturnDocument(after).
		SetProjection(bson.M{"liked_by": 1})

	// Remove first; if the viewer was not in the set, nothing matches.
	err = c.FindOneAndUpdate(ctx,
		bson.M{"_id": item, "liked_by": viewer},
		bson.M{"$pull": bson.M{"liked_by": viewer}},
		opts,
	).Decode(&doc)
	if err == nil {
		return LikeState{Liked: false, Likes: len(doc.LikedBy)}, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return LikeState{}, err
	}

	err = c.FindOneAndUpdate(ctx,
		bson.M{"_id": item},
		bson.M{"$addToSet": bson.M{"liked_by": viewer}},
		opts,
	).Decode(&doc)
	if err != nil {
		return LikeState{}, err
	}
	return LikeState{Liked: true, Likes: len(doc.LikedBy)}, nil
}

/* -------------------------------- comments ------------------------------- */

// AddComment appends a comment to an existing item. The item itself is not
// modified. created_at is the server's clock.
func (s *Store) AddComment(ctx context.Context, cm models.Comment) (models.Comment, error) {
	c, err := s.itemColl(cm.ItemKind)
	if err != nil {
		return models.Comment{}, err
	}
	n, err := c.CountDocuments(ctx, bson.M{"_id": cm.ItemID}, options.Count().SetLimit(1))
	if err != nil {
		return models.Comment{}, err
	}
	if n == 0 {
		return models.Comment{}, mongo.ErrNoDocuments
	}

	cm.ID = primitive.NewObjectID()
	if _, err := s.comments.UpdateOne(ctx,
		bson.M{"_id": cm.ID},
		bson.M{
			"$setOnInsert": bson.M{
				"item_kind":   cm.ItemKind,
				"item_id":     cm.ItemID,
				"author_id":   cm.AuthorID,
				"author_name": cm.AuthorName,
				"content":     cm.Content,
			},
			"$currentDate": bson.M{"created_at": true},
		},
		options.Update().SetUpsert(true),
	); err != nil {
		return models.Comment{}, err
	}

	var stored models.Comment
	if err := s.comments.FindOne(ctx, bson.M{"_id": cm.ID}).Decode(&stored); err != nil {
		return models.Comment{}, err
	}
	return stored, nil
}

// ListComments returns one newest-first page of an item's comments.
func (s *Store) ListComments(ctx context.Context, kind string, item primitive.ObjectID, p paging.Page) (rows []models.Comment, next string, err error) {
	if _, err := s.itemColl(kind); err != nil {
		return nil, "", err
	}
	filter := p.Filter(bson.M{"item_kind": kind, "item_id": item})
	cur, err := s.comments.Find(ctx, filter, p.ApplyToFind(options.Find()))
	if err != nil {
		return nil, "", err
	}
	defer cur.Close(ctx)

	rows = []models.Comment{}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, "", err
	}
	if paging.Trim(&rows, p.Limit) {
		last := rows[len(rows)-1]
		next = paging.Cursor(last.CreatedAt, last.ID)
	}
	return rows, next, nil
}
