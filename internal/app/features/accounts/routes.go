// internal/app/features/accounts/routes.go
package accounts

import "github.com/go-chi/chi/v5"

// Routes mounts under /auth.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/signup", h.Signup)
	r.Post("/signin", h.Signin)
	r.Post("/signout", h.Signout)
	r.Get("/me", h.Me)
	r.Post("/password-reset", h.RequestReset)
	r.Post("/password-reset/confirm", h.ConfirmReset)
	return r
}
