// internal/app/system/authz/authz.go
package authz

import (
	"net/http"
	"strings"

	"github.com/clanforge/clanhub/internal/app/system/auth"
	"github.com/clanforge/clanhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserCtx returns the user's role (lowercased), username, Mongo ObjectID, and a found flag.
// If no user is present in context or the user ID is malformed, it returns
// "visitor", "", NilObjectID, false, so ok=true always means a usable identity.
func UserCtx(r *http.Request) (role string, username string, userID primitive.ObjectID, ok bool) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		return "visitor", "", primitive.NilObjectID, false
	}
	userID, err := primitive.ObjectIDFromHex(user.ID)
	if err != nil {
		// Malformed user ID in session: fail closed.
		return "visitor", "", primitive.NilObjectID, false
	}
	return strings.ToLower(user.Role), user.Username, userID, true
}

// Viewer is the identity a read or write is performed for.
type Viewer struct {
	ID       primitive.ObjectID
	Username string
	PhotoURL string
	Admin    bool // Creator or Clan Owner
}

// ViewerFrom resolves the Viewer for r. ok is false for visitors.
func ViewerFrom(r *http.Request) (Viewer, bool) {
	role, name, id, ok := UserCtx(r)
	if !ok {
		return Viewer{}, false
	}
	u, _ := auth.CurrentUser(r)
	return Viewer{
		ID:       id,
		Username: name,
		PhotoURL: u.PhotoURL,
		Admin:    models.IsAdministrative(role),
	}, true
}

// IsCreator reports whether the current user is the site Creator.
func IsCreator(r *http.Request) bool {
	role, _, _, ok := UserCtx(r)
	return ok && role == models.RoleCreator
}
