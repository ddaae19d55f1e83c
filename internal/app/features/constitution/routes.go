// internal/app/features/constitution/routes.go
package constitution

import (
	"github.com/clanforge/clanhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts under /constitution.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)
	r.Post("/sections", h.HandleDraft)
	return r
}
