// internal/domain/models/follow.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FollowRecord is one half of a mirrored follow edge.
//
// In the followers collection OwnerID is the followed user and OtherID the
// follower. In the following collection the roles are swapped. Username and
// PhotoURL always describe OtherID.
type FollowRecord struct {
	ID        string             `bson:"_id" json:"-"` // "<owner hex>:<other hex>"
	OwnerID   primitive.ObjectID `bson:"owner_id" json:"owner_id"`
	OtherID   primitive.ObjectID `bson:"other_id" json:"user_id"`
	Username  string             `bson:"username" json:"username"`
	PhotoURL  string             `bson:"photo_url,omitempty" json:"photo_url,omitempty"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

// FollowCounts is derived from the follow records; it is never stored.
type FollowCounts struct {
	Followers int64 `json:"followers"`
	Following int64 `json:"following"`
}
