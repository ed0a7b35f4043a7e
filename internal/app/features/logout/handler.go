// internal/app/features/logout/handler.go
package logout

import (
	"net/http"

	"github.com/dalemusser/cafehub/internal/app/system/auditlog"
	"github.com/dalemusser/cafehub/internal/app/system/auth"
	"go.uber.org/zap"
)

// SessionDropper releases per-session state held in memory.
type SessionDropper interface {
	DropSession(session string)
}

type Handler struct {
	Log        *zap.Logger
	SessionMgr *auth.SessionManager
	AuditLog   *auditlog.Logger
	Droppers   []SessionDropper
}

func NewHandler(sessionMgr *auth.SessionManager, audit *auditlog.Logger, logger *zap.Logger, droppers ...SessionDropper) *Handler {
	return &Handler{
		Log:        logger,
		SessionMgr: sessionMgr,
		AuditLog:   audit,
		Droppers:   droppers,
	}
}

// ServeLogout handles POST /logout.
func (h *Handler) ServeLogout(w http.ResponseWriter, r *http.Request) {
	loginID := ""
	if u, ok := auth.CurrentUser(r); ok {
		loginID = u.LoginID
	}

	sid, err := h.SessionMgr.SignOut(w, r)
	if err != nil {
		h.Log.Error("logout: save session", zap.Error(err))
	}
	for _, d := range h.Droppers {
		d.DropSession(sid)
	}
	if loginID != "" {
		h.AuditLog.Logout(r.Context(), r, loginID)
	}

	// HTMX handling: use HX-Redirect to force a client-side navigation to "/".
	if r.Header.Get("HX-Request") != "" {
		w.Header().Set("HX-Redirect", "/")
		w.WriteHeader(http.StatusOK)
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}
