// internal/app/features/chats/routes.go
package chats

import (
	"github.com/clanforge/clanhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts under /chats.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)
	r.Get("/", h.ServeDirectory)
	r.Post("/", h.HandleOpen)
	r.Get("/live", h.ServeDirectoryLive)
	r.Get("/{id}", h.ServeConversation)
	r.Post("/{id}/messages", h.HandleSend)
	r.Get("/{id}/live", h.ServeConversationLive)
	return r
}
