// internal/app/features/engagement/routes.go
package engagement

import "github.com/go-chi/chi/v5"

// Routes mounts under /content. Writes check the viewer themselves so a
// visitor gets the ledger's message rather than the generic one.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/{kind}/{id}/like", h.HandleLike)
	r.Get("/{kind}/{id}/comments", h.ServeComments)
	r.Post("/{kind}/{id}/comments", h.HandleComment)
	return r
}
