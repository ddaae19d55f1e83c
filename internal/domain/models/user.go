// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Roles. Creator and Clan Owner are the administrative roles.
const (
	RoleCreator   = "creator"
	RoleClanOwner = "clan_owner"
	RoleUser      = "user"
)

// Verification tiers shown next to a username.
const (
	VerificationNone = "none"
	VerificationBlue = "blue"
	VerificationGold = "gold"
)

// User is a clan site profile. The _id doubles as the identity id used by
// sessions, conversations and follow edges.
//
// NOTE:
//   - Username uniqueness is owned by the usernames collection, not by an
//     index on this document alone. See UsernameClaim.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email        string             `bson:"email" json:"email"`
	Username     string             `bson:"username,omitempty" json:"username"`
	UsernameCI   string             `bson:"username_ci,omitempty" json:"-"` // folded; mirrors the claim key
	PhotoURL     *string            `bson:"photo_url,omitempty" json:"photo_url,omitempty"`
	Role         string             `bson:"role" json:"role"`                 // creator | clan_owner | user
	Verification string             `bson:"verification" json:"verification"` // none | blue | gold
	PasswordHash *string            `bson:"password_hash,omitempty" json:"-"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// IsAdministrative reports whether the role may see every conversation.
func IsAdministrative(role string) bool {
	return role == RoleCreator || role == RoleClanOwner
}

// HasProfile reports whether a username has been claimed. Accounts seeded
// without one get a default profile on first sign-in.
func (u User) HasProfile() bool { return u.Username != "" }

// Photo returns the photo URL or "".
func (u User) Photo() string {
	if u.PhotoURL == nil {
		return ""
	}
	return *u.PhotoURL
}

// UsernameClaim reserves a folded username for one user.
type UsernameClaim struct {
	ID        string             `bson:"_id"` // folded username
	UserID    primitive.ObjectID `bson:"user_id"`
	ClaimedAt time.Time          `bson:"claimed_at"`
}
