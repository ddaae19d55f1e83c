// internal/domain/models/content.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Content kinds that carry likes and comments.
const (
	KindShort = "short"
	KindPost  = "post"
)

// Short is a short gameplay video.
type Short struct {
	ID         primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	AuthorID   primitive.ObjectID   `bson:"author_id" json:"author_id"`
	AuthorName string               `bson:"author_name" json:"author_name"`
	VideoURL   string               `bson:"video_url" json:"video_url"`
	Caption    string               `bson:"caption,omitempty" json:"caption,omitempty"`
	LikedBy    []primitive.ObjectID `bson:"liked_by" json:"liked_by"`
	CreatedAt  time.Time            `bson:"created_at" json:"created_at"`
}

// Post is a clan blog post. Body holds sanitized HTML.
type Post struct {
	ID         primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	AuthorID   primitive.ObjectID   `bson:"author_id" json:"author_id"`
	AuthorName string               `bson:"author_name" json:"author_name"`
	Title      string               `bson:"title" json:"title"`
	Body       string               `bson:"body" json:"body"`
	ImageURL   *string              `bson:"image_url,omitempty" json:"image_url,omitempty"`
	LikedBy    []primitive.ObjectID `bson:"liked_by" json:"liked_by"`
	CreatedAt  time.Time            `bson:"created_at" json:"created_at"`
}

// Comment hangs off a short or a post. The parent document is never touched
// when a comment is added.
type Comment struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ItemKind   string             `bson:"item_kind" json:"item_kind"`
	ItemID     primitive.ObjectID `bson:"item_id" json:"item_id"`
	AuthorID   primitive.ObjectID `bson:"author_id" json:"author_id"`
	AuthorName string             `bson:"author_name" json:"author_name"`
	Content    string             `bson:"content" json:"content"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"` // server-assigned
}
