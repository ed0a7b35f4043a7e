// internal/app/features/alerts/handler.go
package alerts

import (
	"html/template"
	"net/http"
	"strconv"

	"github.com/dalemusser/cafehub/internal/app/system/alerts"
	"github.com/dalemusser/cafehub/internal/app/system/auth"
	"github.com/dalemusser/cafehub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler serves the alert stack each page polls.
type Handler struct {
	Hub *alerts.Hub
	Log *zap.Logger

	// Render writes a snippet; tests replace it.
	Render func(w http.ResponseWriter, name string, data any)
}

func NewHandler(hub *alerts.Hub, logger *zap.Logger) *Handler {
	return &Handler{Hub: hub, Log: logger, Render: templates.RenderSnippet}
}

type alertVM struct {
	ID       uint64
	Severity alerts.Severity
	Message  template.HTML
}

type stackVM struct {
	Alerts []alertVM
}

// ServeStack handles GET /alerts.
func (h *Handler) ServeStack(w http.ResponseWriter, r *http.Request) {
	h.renderStack(w, r)
}

// HandleDismiss handles POST /alerts/{id}/dismiss. Dismissing an alert
// that already expired is not an error.
func (h *Handler) HandleDismiss(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "bad alert id", http.StatusBadRequest)
		return
	}
	if !h.Hub.For(auth.ViewerID(r)).Dismiss(id) {
		h.Log.Debug("dismiss: alert already gone", zap.Uint64("id", id))
	}
	h.renderStack(w, r)
}

func (h *Handler) renderStack(w http.ResponseWriter, r *http.Request) {
	var vm stackVM
	viewer := auth.ViewerID(r)
	if viewer != "" {
		for _, a := range h.Hub.For(viewer).List() {
			vm.Alerts = append(vm.Alerts, alertVM{
				ID:       a.ID,
				Severity: a.Severity,
				Message:  htmlsanitize.Inline(a.Message),
			})
		}
	}
	w.Header().Set("Cache-Control", "no-store")
	h.Render(w, "alert_stack", vm)
}
