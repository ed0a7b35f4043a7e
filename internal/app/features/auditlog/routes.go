// internal/app/features/auditlog/routes.go
package auditlog

import (
	"github.com/dalemusser/cafehub/internal/app/system/auth"
	"github.com/dalemusser/cafehub/internal/app/system/authz"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the audit log under the path where this router is mounted
// (normally "/admin/auditoria"). Only admins may read it.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireRole(authz.RoleAdmin))
		pr.Get("/", h.ServeList)
	})

	return r
}
