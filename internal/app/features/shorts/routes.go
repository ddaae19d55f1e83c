// internal/app/features/shorts/routes.go
package shorts

import (
	"github.com/clanforge/clanhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts under /shorts. Reading is public.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeList)
	r.Get("/{id}", h.ServeShort)
	r.With(sm.RequireSignedIn).Post("/", h.HandleCreate)
	return r
}
