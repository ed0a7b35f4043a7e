// internal/app/features/crud/routes.go
package crud

import (
	"net/http"

	"github.com/dalemusser/cafehub/internal/app/system/auth"
	"github.com/dalemusser/cafehub/internal/app/system/authz"
	"github.com/go-chi/chi/v5"
)

// MountRoutes mounts every screen at /<resource> on r, plus the upload
// progress poll. r is expected to already require a staff session.
// Screens that declare roles are further restricted to those roles
// (admins always pass).
func (h *Handler) MountRoutes(r chi.Router, sm *auth.SessionManager) {
	r.Get("/uploads/{token}/progress", h.UploadProgress)
	for _, s := range h.screens {
		d := s.Descriptor()
		if len(d.Roles) == 0 {
			r.Mount("/"+d.Name, s.mount())
			continue
		}
		allowed := append([]string{authz.RoleAdmin}, d.Roles...)
		r.With(sm.RequireRole(allowed...)).Mount("/"+d.Name, s.mount())
	}
}

type progressVM struct {
	Token     string
	Percent   int
	Uploading bool
}

// UploadProgress renders the progress bar of one upload. The form polls
// it while the upload request is running.
func (h *Handler) UploadProgress(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	vm := progressVM{Token: token}
	if p, ok := h.deps.Uploads.Lookup(token); ok {
		vm.Percent, vm.Uploading = p.Snapshot()
	}
	if !vm.Uploading {
		// Stop htmx polling.
		w.Header().Set("HX-Trigger", "upload-settled")
	}
	h.render.Partial(w, "crud_progress", vm)
}
