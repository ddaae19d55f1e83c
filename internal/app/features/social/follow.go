// internal/app/features/social/follow.go
package social

import (
	"context"
	"errors"
	"net/http"

	uierrors "github.com/clanforge/clanhub/internal/app/features/errors"
	followstore "github.com/clanforge/clanhub/internal/app/store/follows"
	"github.com/clanforge/clanhub/internal/app/system/authz"
	"github.com/clanforge/clanhub/internal/app/system/paging"
	"github.com/clanforge/clanhub/internal/app/system/timeouts"
	"github.com/clanforge/clanhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type toggleResponse struct {
	Following bool                `json:"following"`
	Counts    models.FollowCounts `json:"counts"`
}

// targetUser resolves {user} as a hex id. It writes the response and
// returns nil when the user cannot be used.
func (h *Handler) targetUser(w http.ResponseWriter, r *http.Request) *models.User {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "user"))
	if err != nil {
		uierrors.BadRequest(w, "Invalid user id.")
		return nil
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		uierrors.NotFound(w, "User not found.")
		return nil
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load user failed", err, "A database error occurred.")
		return nil
	}
	return u
}

// HandleToggle handles POST /users/{user}/follow. A second request for the
// same edge that arrives while one is in flight gets the first one's
// result instead of toggling again.
func (h *Handler) HandleToggle(w http.ResponseWriter, r *http.Request) {
	viewer, ok := authz.ViewerFrom(r)
	if !ok {
		uierrors.Unauthorized(w, "Please sign in to follow users.")
		return
	}
	target := h.targetUser(w, r)
	if target == nil {
		return
	}
	if target.ID == viewer.ID {
		uierrors.BadRequest(w, followstore.ErrSelfFollow.Error())
		return
	}

	key := followstore.RecordID(viewer.ID, target.ID)
	v, err, _ := h.toggles.Do(key, func() (any, error) {
		// Detached from the first caller so its disconnect does not fail
		// the callers sharing this result.
		ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), timeouts.Medium())
		defer cancel()
		following, err := h.Follows.Toggle(ctx,
			followstore.Party{ID: viewer.ID, Username: viewer.Username, PhotoURL: viewer.PhotoURL},
			followstore.Party{ID: target.ID, Username: target.Username, PhotoURL: target.Photo()},
		)
		if err == nil {
			h.countToggle(following)
		}
		return following, err
	})
	if errors.Is(err, followstore.ErrSelfFollow) {
		uierrors.BadRequest(w, err.Error())
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "follow toggle failed", err, "Unable to update follow status.")
		return
	}
	following := v.(bool)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()
	counts, err := h.Follows.Counts(ctx, target.ID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "count follows failed", err, "A database error occurred.")
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, toggleResponse{Following: following, Counts: counts})
}

// ServeCounts handles GET /users/{user}/follow-counts.
func (h *Handler) ServeCounts(w http.ResponseWriter, r *http.Request) {
	target := h.targetUser(w, r)
	if target == nil {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	counts, err := h.Follows.Counts(ctx, target.ID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "count follows failed", err, "A database error occurred.")
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, counts)
}

// ServeFollowers handles GET /users/{user}/followers.
func (h *Handler) ServeFollowers(w http.ResponseWriter, r *http.Request) {
	h.serveList(w, r, h.Follows.ListFollowers)
}

// ServeFollowing handles GET /users/{user}/following.
func (h *Handler) ServeFollowing(w http.ResponseWriter, r *http.Request) {
	h.serveList(w, r, h.Follows.ListFollowing)
}

type listFunc func(ctx context.Context, user primitive.ObjectID, p paging.Page) ([]models.FollowRecord, string, error)

type pageResponse struct {
	Items []models.FollowRecord `json:"items"`
	Next  string                `json:"next,omitempty"`
}

func (h *Handler) serveList(w http.ResponseWriter, r *http.Request, list listFunc) {
	target := h.targetUser(w, r)
	if target == nil {
		return
	}
	page := paging.Parse(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	rows, next, err := list(ctx, target.ID, page)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list follows failed", err, "A database error occurred.")
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, pageResponse{Items: rows, Next: next})
}
