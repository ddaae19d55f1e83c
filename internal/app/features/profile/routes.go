// internal/app/features/profile/routes.go
package profile

import (
	"github.com/clanforge/clanhub/internal/app/system/auth"
	"github.com/clanforge/clanhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes mounts under /profile. Every route needs a signed-in user.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)
	r.Get("/", h.ServeProfile)
	r.Patch("/username", h.HandleChangeUsername)
	r.Post("/photo", h.HandleUploadPhoto)
	r.Post("/password", h.HandleChangePassword)
	return r
}

// MountUsers registers the /users routes this feature owns on r. Other
// features add their own /users/{user}/... routes to the same router, so
// the parameter is always named "user".
func MountUsers(r chi.Router, h *Handler, sm *auth.SessionManager) {
	r.Get("/", h.ServeSearch)
	r.Get("/{user}", h.ServeUser)
	r.Group(func(r chi.Router) {
		r.Use(sm.RequireRole(models.RoleCreator))
		r.Patch("/{user}/role", h.HandleSetRole)
		r.Patch("/{user}/verification", h.HandleSetVerification)
	})
}
