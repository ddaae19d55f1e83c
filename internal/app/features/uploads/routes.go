// internal/app/features/uploads/routes.go
package uploads

import (
	"github.com/clanforge/clanhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts under /uploads.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)
	r.Post("/", h.HandleUpload)
	return r
}
