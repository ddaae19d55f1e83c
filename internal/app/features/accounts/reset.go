// internal/app/features/accounts/reset.go
package accounts

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	uierrors "github.com/clanforge/clanhub/internal/app/features/errors"
	"github.com/clanforge/clanhub/internal/app/system/authutil"
	"github.com/clanforge/clanhub/internal/app/system/inputval"
	"github.com/clanforge/clanhub/internal/app/system/mailer"
	"github.com/clanforge/clanhub/internal/app/system/normalize"
	"github.com/clanforge/clanhub/internal/app/system/resettoken"
	"github.com/clanforge/clanhub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type resetRequestInput struct {
	Email string `json:"email" validate:"required,email" label:"Email"`
}

type resetConfirmInput struct {
	Token    string `json:"token" validate:"required" label:"Token"`
	Password string `json:"password" validate:"required,min=8,max=72" label:"Password"`
}

// RequestReset handles POST /auth/password-reset. The response is 202
// whether or not the account exists.
func (h *Handler) RequestReset(w http.ResponseWriter, r *http.Request) {
	var in resetRequestInput
	if err := uierrors.DecodeJSON(r, &in); err != nil {
		uierrors.BadRequest(w, "Invalid request body.")
		return
	}
	in.Email = normalize.Email(in.Email)
	if res := inputval.Validate(in); res.HasErrors() {
		uierrors.BadRequest(w, res.First())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	accepted := func() {
		uierrors.WriteJSON(w, http.StatusAccepted, map[string]string{
			"message": "If an account exists for that email, a reset link is on its way.",
		})
	}

	u, err := h.Users.GetByEmail(ctx, in.Email)
	if errors.Is(err, mongo.ErrNoDocuments) {
		accepted()
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load account for reset failed", err, "A database error occurred.")
		return
	}

	token, err := h.Resets.Issue(u.ID.Hex(), resettoken.Stamp(u.PasswordHash))
	if err != nil {
		h.ErrLog.LogServerError(w, r, "issue reset token failed", err, "Unable to send a reset link.")
		return
	}
	link := strings.TrimRight(h.BaseURL, "/") + "/reset-password?token=" + url.QueryEscape(token)

	name := u.Username
	if name == "" {
		name = u.Email
	}
	email := mailer.BuildPasswordResetEmail(u.Email, mailer.ResetEmailData{
		SiteName:  h.SiteName,
		Username:  name,
		ResetLink: link,
		ExpiresIn: formatExpiry(h.ResetTTL),
	})
	if err := h.Mailer.Send(email); err != nil {
		// The client still sees 202 so the endpoint cannot be used to
		// probe for accounts.
		h.Log.Error("send reset email failed", zap.String("user_id", u.ID.Hex()), zap.Error(err))
	}
	h.AuditLog.PasswordResetRequested(ctx, r, u.ID)
	accepted()
}

// ConfirmReset handles POST /auth/password-reset/confirm. A token is bound
// to the password it was issued against, so it stops working once used.
func (h *Handler) ConfirmReset(w http.ResponseWriter, r *http.Request) {
	var in resetConfirmInput
	if err := uierrors.DecodeJSON(r, &in); err != nil {
		uierrors.BadRequest(w, "Invalid request body.")
		return
	}
	if res := inputval.Validate(in); res.HasErrors() {
		uierrors.BadRequest(w, res.First())
		return
	}

	userHex, stamp, err := h.Resets.Verify(in.Token)
	if err != nil {
		uierrors.BadRequest(w, resettoken.ErrInvalid.Error())
		return
	}
	id, err := primitive.ObjectIDFromHex(userHex)
	if err != nil {
		uierrors.BadRequest(w, resettoken.ErrInvalid.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	u, err := h.Users.GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		uierrors.BadRequest(w, resettoken.ErrInvalid.Error())
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load account for reset failed", err, "A database error occurred.")
		return
	}
	if resettoken.Stamp(u.PasswordHash) != stamp {
		uierrors.BadRequest(w, resettoken.ErrInvalid.Error())
		return
	}

	hash, err := authutil.HashPassword(in.Password)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "hash password failed", err, "Unable to reset password.")
		return
	}
	if err := h.Users.SetPassword(ctx, id, hash); err != nil {
		h.ErrLog.LogServerError(w, r, "set password failed", err, "Unable to reset password.")
		return
	}
	h.AuditLog.PasswordReset(ctx, r, id)
	w.WriteHeader(http.StatusNoContent)
}
