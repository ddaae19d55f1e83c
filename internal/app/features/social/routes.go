// internal/app/features/social/routes.go
package social

import "github.com/go-chi/chi/v5"

// MountUsers registers the follow routes on the /users router. {user} is a
// hex user id. The toggle checks the viewer itself so a visitor gets the
// follow-specific message.
func MountUsers(r chi.Router, h *Handler) {
	r.Get("/{user}/follow-counts", h.ServeCounts)
	r.Get("/{user}/follow-counts/live", h.ServeCountsLive)
	r.Get("/{user}/followers", h.ServeFollowers)
	r.Get("/{user}/following", h.ServeFollowing)
	r.Post("/{user}/follow", h.HandleToggle)
}
