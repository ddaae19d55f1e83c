// internal/app/features/accounts/signin.go
package accounts

import (
	"context"
	"errors"
	"net/http"

	uierrors "github.com/clanforge/clanhub/internal/app/features/errors"
	userstore "github.com/clanforge/clanhub/internal/app/store/users"
	"github.com/clanforge/clanhub/internal/app/system/auth"
	"github.com/clanforge/clanhub/internal/app/system/authutil"
	"github.com/clanforge/clanhub/internal/app/system/inputval"
	"github.com/clanforge/clanhub/internal/app/system/normalize"
	"github.com/clanforge/clanhub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const badCredentials = "Invalid email or password."

type signupInput struct {
	Email    string `json:"email" validate:"required,email" label:"Email"`
	Password string `json:"password" validate:"required,min=8,max=72" label:"Password"`
	Username string `json:"username" validate:"required,username" label:"Username"`
}

type signinInput struct {
	Email    string `json:"email" validate:"required" label:"Email"`
	Password string `json:"password" validate:"required" label:"Password"`
}

type identityResponse struct {
	User *auth.SessionUser `json:"user"`
}

// Signup handles POST /auth/signup.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var in signupInput
	if err := uierrors.DecodeJSON(r, &in); err != nil {
		uierrors.BadRequest(w, "Invalid request body.")
		return
	}
	in.Email = normalize.Email(in.Email)
	in.Username = normalize.Username(in.Username)
	if res := inputval.Validate(in); res.HasErrors() {
		uierrors.BadRequest(w, res.First())
		return
	}

	hash, err := authutil.HashPassword(in.Password)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "hash password failed", err, "Unable to create account.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	u, err := h.Users.Create(ctx, userstore.NewAccount{
		Email:        in.Email,
		Username:     in.Username,
		PasswordHash: hash,
	})
	switch {
	case errors.Is(err, userstore.ErrDuplicateEmail), errors.Is(err, userstore.ErrUsernameTaken):
		uierrors.Conflict(w, err.Error())
		return
	case err != nil:
		h.ErrLog.LogServerError(w, r, "create account failed", err, "Unable to create account.")
		return
	}

	su := userstore.SessionUser(u)
	if err := h.SessionMgr.SignIn(w, r, su); err != nil {
		h.ErrLog.LogServerError(w, r, "session save failed", err, "Account created, but signing in failed. Please sign in.")
		return
	}
	h.AuditLog.Signup(ctx, r, u.ID, u.Username)
	uierrors.WriteJSON(w, http.StatusCreated, identityResponse{User: su})
}

// Signin handles POST /auth/signin. An account that has never had a
// profile gets a default one here.
func (h *Handler) Signin(w http.ResponseWriter, r *http.Request) {
	var in signinInput
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

	if h.Limiter != nil {
		if ok, reason := h.Limiter.Check(r, in.Email); !ok {
			h.AuditLog.SigninFailedRateLimit(ctx, r, in.Email, "signin")
			uierrors.Write(w, http.StatusTooManyRequests, reason)
			return
		}
	}

	u, err := h.Users.GetByEmail(ctx, in.Email)
	if errors.Is(err, mongo.ErrNoDocuments) {
		h.AuditLog.SigninFailedNoAccount(ctx, r, in.Email)
		uierrors.Unauthorized(w, badCredentials)
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load account failed", err, "A database error occurred.")
		return
	}
	if u.PasswordHash == nil || !authutil.CheckPassword(in.Password, *u.PasswordHash) {
		h.AuditLog.SigninFailedBadPassword(ctx, r, u.ID)
		uierrors.Unauthorized(w, badCredentials)
		return
	}

	profile, err := h.Users.EnsureProfile(ctx, *u)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "create default profile failed", err, "Unable to set up your profile.")
		return
	}

	su := userstore.SessionUser(profile)
	if err := h.SessionMgr.SignIn(w, r, su); err != nil {
		h.ErrLog.LogServerError(w, r, "session save failed", err, "Unable to sign in.")
		return
	}
	if h.Limiter != nil {
		h.Limiter.Succeeded(in.Email)
	}
	h.AuditLog.SigninSuccess(ctx, r, profile.ID)
	h.Log.Debug("signed in", zap.String("user_id", su.ID))
	uierrors.WriteJSON(w, http.StatusOK, identityResponse{User: su})
}

// Signout handles POST /auth/signout. It succeeds for visitors too.
func (h *Handler) Signout(w http.ResponseWriter, r *http.Request) {
	if u, ok := auth.CurrentUser(r); ok {
		h.AuditLog.Signout(r.Context(), r, u.ID)
	}
	if err := h.SessionMgr.SignOut(w, r); err != nil {
		h.Log.Warn("session clear failed", zap.Error(err))
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /auth/me: the current identity or {"user": null}.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	uierrors.WriteJSON(w, http.StatusOK, identityResponse{User: u})
}
