// internal/app/features/posts/routes.go
package posts

import (
	"github.com/clanforge/clanhub/internal/app/system/auth"
	"github.com/clanforge/clanhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes mounts under /posts.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeList)
	r.Get("/{id}", h.ServePost)
	r.With(sm.RequireRole(models.RoleCreator, models.RoleClanOwner)).Post("/", h.HandleCreate)
	return r
}
