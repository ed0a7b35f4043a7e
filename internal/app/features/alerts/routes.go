// internal/app/features/alerts/routes.go
package alerts

import "github.com/go-chi/chi/v5"

func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeStack)
	r.Post("/{id}/dismiss", h.HandleDismiss)
	return r
}
