// internal/app/features/profile/users.go
package profile

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	uierrors "github.com/clanforge/clanhub/internal/app/features/errors"
	userstore "github.com/clanforge/clanhub/internal/app/store/users"
	"github.com/clanforge/clanhub/internal/app/system/authz"
	"github.com/clanforge/clanhub/internal/app/system/timeouts"
	"github.com/clanforge/clanhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// publicProfile is what anyone may see about a user.
type publicProfile struct {
	ID           primitive.ObjectID  `json:"id"`
	Username     string              `json:"username"`
	PhotoURL     string              `json:"photo_url,omitempty"`
	Role         string              `json:"role"`
	Verification string              `json:"verification"`
	Counts       models.FollowCounts `json:"counts"`
	IsFollowing  bool                `json:"is_following"` // viewer follows this user
	CreatedAt    time.Time           `json:"created_at"`
}

type userSummary struct {
	ID           primitive.ObjectID `json:"id"`
	Username     string             `json:"username"`
	PhotoURL     string             `json:"photo_url,omitempty"`
	Verification string             `json:"verification"`
}

// ServeUser handles GET /users/{user}, where {user} is a username matched
// without regard to case.
func (h *Handler) ServeUser(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "user")

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.GetByUsername(ctx, name)
	if errors.Is(err, mongo.ErrNoDocuments) {
		uierrors.NotFound(w, "User not found.")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load user failed", err, "A database error occurred.")
		return
	}

	counts, err := h.Follows.Counts(ctx, u.ID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "count follows failed", err, "A database error occurred.")
		return
	}

	out := publicProfile{
		ID:           u.ID,
		Username:     u.Username,
		PhotoURL:     u.Photo(),
		Role:         u.Role,
		Verification: u.Verification,
		Counts:       counts,
		CreatedAt:    u.CreatedAt,
	}
	if _, _, viewer, ok := authz.UserCtx(r); ok && viewer != u.ID {
		if out.IsFollowing, err = h.Follows.IsFollowing(ctx, viewer, u.ID); err != nil {
			h.ErrLog.LogServerError(w, r, "check follow failed", err, "A database error occurred.")
			return
		}
	}
	uierrors.WriteJSON(w, http.StatusOK, out)
}

// ServeSearch handles GET /users?q=prefix.
func (h *Handler) ServeSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(query.Get(r, "q"))
	if q == "" {
		uierrors.WriteJSON(w, http.StatusOK, []userSummary{})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	users, err := h.Users.Search(ctx, q, 20)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "search users failed", err, "A database error occurred.")
		return
	}
	out := make([]userSummary, 0, len(users))
	for _, u := range users {
		out = append(out, userSummary{ID: u.ID, Username: u.Username, PhotoURL: u.Photo(), Verification: u.Verification})
	}
	uierrors.WriteJSON(w, http.StatusOK, out)
}

type roleInput struct {
	Role string `json:"role"`
}

type verificationInput struct {
	Verification string `json:"verification"`
}

// HandleSetRole handles PATCH /users/{user}/role. Creator only; {user} is
// the user id.
func (h *Handler) HandleSetRole(w http.ResponseWriter, r *http.Request) {
	actor, target, ok := h.creatorAndTarget(w, r)
	if !ok {
		return
	}
	var in roleInput
	if err := uierrors.DecodeJSON(r, &in); err != nil {
		uierrors.BadRequest(w, "Invalid request body.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	err := h.Users.SetRole(ctx, target, in.Role)
	if h.adminWriteFailed(w, r, err) {
		return
	}
	h.AuditLog.RoleChanged(ctx, r, actor, target, in.Role)
	w.WriteHeader(http.StatusNoContent)
}

// HandleSetVerification handles PATCH /users/{user}/verification.
func (h *Handler) HandleSetVerification(w http.ResponseWriter, r *http.Request) {
	actor, target, ok := h.creatorAndTarget(w, r)
	if !ok {
		return
	}
	var in verificationInput
	if err := uierrors.DecodeJSON(r, &in); err != nil {
		uierrors.BadRequest(w, "Invalid request body.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	err := h.Users.SetVerification(ctx, target, in.Verification)
	if h.adminWriteFailed(w, r, err) {
		return
	}
	h.AuditLog.VerificationChanged(ctx, r, actor, target, in.Verification)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) creatorAndTarget(w http.ResponseWriter, r *http.Request) (actor, target primitive.ObjectID, ok bool) {
	_, _, actor, signedIn := authz.UserCtx(r)
	if !signedIn {
		uierrors.Unauthorized(w, "")
		return actor, target, false
	}
	if !authz.IsCreator(r) {
		uierrors.Forbidden(w, "Only the Creator can change roles and verification.")
		return actor, target, false
	}
	target, err := primitive.ObjectIDFromHex(chi.URLParam(r, "user"))
	if err != nil {
		uierrors.BadRequest(w, "Invalid user id.")
		return actor, target, false
	}
	return actor, target, true
}

func (h *Handler) adminWriteFailed(w http.ResponseWriter, r *http.Request, err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, userstore.ErrInvalidRole), errors.Is(err, userstore.ErrInvalidTier):
		uierrors.BadRequest(w, err.Error())
	case errors.Is(err, mongo.ErrNoDocuments):
		uierrors.NotFound(w, "User not found.")
	default:
		h.ErrLog.LogServerError(w, r, "update user failed", err, "A database error occurred.")
	}
	return true
}
