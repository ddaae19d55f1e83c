// internal/app/features/profile/profile.go
package profile

import (
	"context"
	"errors"
	"net/http"

	uierrors "github.com/clanforge/clanhub/internal/app/features/errors"
	userstore "github.com/clanforge/clanhub/internal/app/store/users"
	"github.com/clanforge/clanhub/internal/app/system/authutil"
	"github.com/clanforge/clanhub/internal/app/system/authz"
	"github.com/clanforge/clanhub/internal/app/system/filestore"
	"github.com/clanforge/clanhub/internal/app/system/inputval"
	"github.com/clanforge/clanhub/internal/app/system/limits"
	"github.com/clanforge/clanhub/internal/app/system/normalize"
	"github.com/clanforge/clanhub/internal/app/system/sniff"
	"github.com/clanforge/clanhub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
)

type usernameInput struct {
	Username string `json:"username" validate:"required,username" label:"Username"`
}

type passwordInput struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ServeProfile handles GET /profile.
func (h *Handler) ServeProfile(w http.ResponseWriter, r *http.Request) {
	_, _, uid, ok := authz.UserCtx(r)
	if !ok {
		uierrors.Unauthorized(w, "")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.GetByID(ctx, uid)
	if errors.Is(err, mongo.ErrNoDocuments) {
		uierrors.NotFound(w, "User not found.")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load profile failed", err, "A database error occurred.")
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, u)
}

// HandleChangeUsername handles PATCH /profile/username. A name whose folded
// form belongs to someone else is refused and nothing changes.
func (h *Handler) HandleChangeUsername(w http.ResponseWriter, r *http.Request) {
	_, oldName, uid, ok := authz.UserCtx(r)
	if !ok {
		uierrors.Unauthorized(w, "")
		return
	}

	var in usernameInput
	if err := uierrors.DecodeJSON(r, &in); err != nil {
		uierrors.BadRequest(w, "Invalid request body.")
		return
	}
	in.Username = normalize.Username(in.Username)
	if res := inputval.Validate(in); res.HasErrors() {
		uierrors.BadRequest(w, res.First())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	u, err := h.Users.ChangeUsername(ctx, uid, in.Username)
	switch {
	case errors.Is(err, userstore.ErrUsernameTaken):
		uierrors.Conflict(w, err.Error())
		return
	case errors.Is(err, mongo.ErrNoDocuments):
		uierrors.NotFound(w, "User not found.")
		return
	case err != nil:
		h.ErrLog.LogServerError(w, r, "change username failed", err, "Unable to change username.")
		return
	}

	h.propagate(ctx, u)
	h.AuditLog.UsernameChanged(ctx, r, uid, oldName, u.Username)
	uierrors.WriteJSON(w, http.StatusOK, u)
}

// HandleUploadPhoto handles POST /profile/photo (multipart field "photo").
func (h *Handler) HandleUploadPhoto(w http.ResponseWriter, r *http.Request) {
	_, _, uid, ok := authz.UserCtx(r)
	if !ok {
		uierrors.Unauthorized(w, "")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxPhotoSize+limits.MaxMultipartOverhead)
	if err := r.ParseMultipartForm(limits.MaxPhotoSize); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse multipart failed", err, "Photo must be an image up to 5 MB.")
		return
	}
	file, header, err := r.FormFile("photo")
	if err != nil {
		uierrors.BadRequest(w, "Choose a photo to upload.")
		return
	}
	defer file.Close()

	contentType, body, err := sniff.Detect(file)
	if err != nil {
		h.ErrLog.LogBadRequest(w, r, "read photo failed", err, "Unable to read the photo.")
		return
	}
	if !sniff.IsImage(contentType) {
		uierrors.BadRequest(w, "Photo must be an image.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	up, err := filestore.Save(ctx, h.Files, "photos", header.Filename, body, header.Size, contentType)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "store photo failed", err, "Unable to upload the photo.")
		return
	}
	if err := h.Users.UpdatePhoto(ctx, uid, up.URL); err != nil {
		h.ErrLog.LogServerError(w, r, "save photo reference failed", err, "Unable to update the photo.")
		return
	}

	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "reload profile failed", err, "A database error occurred.")
		return
	}
	h.propagate(ctx, *u)
	uierrors.WriteJSON(w, http.StatusOK, u)
}

// HandleChangePassword handles POST /profile/password.
func (h *Handler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	_, _, uid, ok := authz.UserCtx(r)
	if !ok {
		uierrors.Unauthorized(w, "")
		return
	}

	var in passwordInput
	if err := uierrors.DecodeJSON(r, &in); err != nil {
		uierrors.BadRequest(w, "Invalid request body.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load profile failed", err, "A database error occurred.")
		return
	}

	if u.PasswordHash == nil || !authutil.CheckPassword(in.CurrentPassword, *u.PasswordHash) {
		uierrors.BadRequest(w, "Current password is incorrect.")
		return
	}
	if err := authutil.ValidatePassword(in.NewPassword); err != nil {
		uierrors.BadRequest(w, authutil.PasswordRules)
		return
	}
	if authutil.CheckPassword(in.NewPassword, *u.PasswordHash) {
		uierrors.BadRequest(w, "New password cannot be the same as your current password.")
		return
	}

	hash, err := authutil.HashPassword(in.NewPassword)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "hash password failed", err, "Failed to update password.")
		return
	}
	if err := h.Users.SetPassword(ctx, uid, hash); err != nil {
		h.ErrLog.LogServerError(w, r, "update password failed", err, "Failed to update password.")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
