// internal/app/features/errors/errors.go
package errors

import (
	"net/http"

	"github.com/dalemusser/cafehub/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/pantry/templates"
)

// pageData is the view model of every error page.
type pageData struct {
	viewdata.BaseVM
	Heading string
	Message string
}

// Handler serves the standalone error routes.
type Handler struct{}

// NewHandler constructs an errors Handler.
func NewHandler() *Handler {
	return &Handler{}
}

// Forbidden renders a friendly "access denied" page.
// GET /forbidden
func (h *Handler) Forbidden(w http.ResponseWriter, r *http.Request) {
	RenderForbidden(w, r, "", "/")
}

// NotFound is the router's fallback.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	RenderNotFound(w, r, "", "/")
}

// Page writers are swappable so handler tests can run without templates.
var render = func(w http.ResponseWriter, r *http.Request, status int, data pageData) {
	w.WriteHeader(status)
	templates.Render(w, r, "error_page", data)
}

func show(w http.ResponseWriter, r *http.Request, status int, heading, msg, def, backURL string) {
	if msg == "" {
		msg = def
	}
	base := viewdata.NewBaseVM(r, heading, "/")
	if backURL != "" {
		base.BackURL = backURL
	}
	if r.Header.Get("HX-Request") == "true" {
		// Partial swaps would bury the page inside a fragment.
		w.Header().Set("HX-Retarget", "body")
	}
	render(w, r, status, pageData{BaseVM: base, Heading: heading, Message: msg})
}

// RenderBadRequest shows a 400 page.
func RenderBadRequest(w http.ResponseWriter, r *http.Request, msg, backURL string) {
	show(w, r, http.StatusBadRequest, "Solicitud no válida", msg, "No pudimos procesar la solicitud.", backURL)
}

// RenderUnauthorized shows a "sign in required" page. backURL defaults to
// /login.
func RenderUnauthorized(w http.ResponseWriter, r *http.Request, backURL string) {
	if backURL == "" {
		backURL = "/login"
	}
	show(w, r, http.StatusUnauthorized, "Inicia sesión", "", "Inicia sesión para continuar.", backURL)
}

// RenderForbidden shows an access error page with a message.
func RenderForbidden(w http.ResponseWriter, r *http.Request, msg, backURL string) {
	show(w, r, http.StatusForbidden, "Acceso denegado", msg, "No tienes permiso para ver esta página.", backURL)
}

// RenderNotFound shows a 404 page.
func RenderNotFound(w http.ResponseWriter, r *http.Request, msg, backURL string) {
	show(w, r, http.StatusNotFound, "No encontrado", msg, "La página que buscas no existe.", backURL)
}

// RenderServerError shows a 500 page. The cause is never shown.
func RenderServerError(w http.ResponseWriter, r *http.Request, msg, backURL string) {
	show(w, r, http.StatusInternalServerError, "Algo salió mal", msg, "Ocurrió un error inesperado. Inténtalo de nuevo.", backURL)
}
