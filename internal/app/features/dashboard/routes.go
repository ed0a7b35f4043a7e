// internal/app/features/dashboard/routes.go
package dashboard

import (
	"github.com/dalemusser/cafehub/internal/app/system/auth"
	"github.com/dalemusser/cafehub/internal/app/system/authz"
	"github.com/go-chi/chi/v5"
)

// Routes wires the dashboard under whatever mount point the top-level
// router chooses (normally "/admin").
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireRole(authz.RoleAdmin, authz.RoleEditor))
		pr.Get("/", h.ServeDashboard)
	})

	return r
}
