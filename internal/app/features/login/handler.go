// internal/app/features/login/handler.go
package login

import (
	"net/http"
	"strings"

	uierrors "github.com/dalemusser/cafehub/internal/app/features/errors"
	"github.com/dalemusser/cafehub/internal/app/system/auditlog"
	"github.com/dalemusser/cafehub/internal/app/system/auth"
	"github.com/dalemusser/cafehub/internal/app/system/metrics"
	"github.com/dalemusser/cafehub/internal/app/system/ratelimit"
	"github.com/dalemusser/cafehub/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/dalemusser/waffle/pantry/urlutil"
	"go.uber.org/zap"
)

// MethodPassword tags sessions opened with a configured account.
const MethodPassword = "password"

// Messages shown on the form.
const (
	MsgMissing     = "Ingresa tu usuario y contraseña."
	MsgBadPassword = "Usuario o contraseña incorrectos."
	MsgNoSession   = "No se pudo iniciar la sesión. Inténtalo de nuevo."
)

// oauthErrors maps the codes the Google callback redirects with.
var oauthErrors = map[string]string{
	"google_not_configured": "El acceso con Google no está disponible.",
	"google_denied":         "Se canceló el acceso con Google.",
	"invalid_state":         "La solicitud de acceso expiró. Inténtalo de nuevo.",
	"invalid_code":          "La respuesta de Google no es válida.",
	"token_exchange":        "No se pudo completar el acceso con Google.",
	"user_info":             "No se pudo obtener tu perfil de Google.",
	"not_allowed":           "Tu cuenta de Google no tiene acceso al panel.",
	"internal":              MsgNoSession,
}

type Handler struct {
	Accounts      Accounts
	SessionMgr    *auth.SessionManager
	Limiter       *ratelimit.LoginLimiter
	AuditLog      *auditlog.Logger
	Metrics       *metrics.Collector
	ErrLog        *uierrors.ErrorLogger
	GoogleEnabled bool
	Log           *zap.Logger

	// Render writes a page; tests replace it.
	Render func(w http.ResponseWriter, r *http.Request, name string, data any)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Template-data                                                               |
*─────────────────────────────────────────────────────────────────────────────*/

type loginFormData struct {
	viewdata.BaseVM
	Error         string
	LoginID       string
	ReturnURL     string
	GoogleEnabled bool
}

func NewHandler(
	accounts Accounts,
	sessionMgr *auth.SessionManager,
	limiter *ratelimit.LoginLimiter,
	audit *auditlog.Logger,
	m *metrics.Collector,
	errLog *uierrors.ErrorLogger,
	googleEnabled bool,
	logger *zap.Logger,
) *Handler {
	if limiter == nil {
		limiter = ratelimit.NewLoginLimiter()
	}
	return &Handler{
		Accounts:      accounts,
		SessionMgr:    sessionMgr,
		Limiter:       limiter,
		AuditLog:      audit,
		Metrics:       m,
		ErrLog:        errLog,
		GoogleEnabled: googleEnabled,
		Log:           logger,
		Render:        templates.Render,
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /login                                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.CurrentUser(r); ok {
		http.Redirect(w, r, urlutil.SafeReturn(query.Get(r, "return"), "", "/admin"), http.StatusSeeOther)
		return
	}
	h.Render(w, r, "login", loginFormData{
		BaseVM:        viewdata.NewBaseVM(r, "Iniciar sesión", "/"),
		Error:         oauthErrors[query.Get(r, "error")],
		ReturnURL:     query.Get(r, "return"),
		GoogleEnabled: h.GoogleEnabled,
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /login                                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleLoginPost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Formulario no válido.", "/login")
		return
	}

	loginID := strings.TrimSpace(r.FormValue("usuario"))
	password := r.FormValue("password")
	if loginID == "" || password == "" {
		h.renderFormWithError(w, r, MsgMissing, loginID)
		return
	}

	if ok, msg := h.Limiter.Check(r, loginID); !ok {
		h.AuditLog.LoginFailedRateLimit(r.Context(), r, loginID)
		h.Metrics.ObserveLogin(MethodPassword, false)
		h.renderFormWithError(w, r, msg, loginID)
		return
	}

	acc, found := h.Accounts.Lookup(loginID)
	if !found {
		h.AuditLog.LoginFailedUnknownUser(r.Context(), r, loginID)
		h.Metrics.ObserveLogin(MethodPassword, false)
		h.renderFormWithError(w, r, MsgBadPassword, loginID)
		return
	}
	if !acc.Check(password) {
		h.AuditLog.LoginFailedWrongPassword(r.Context(), r, acc.LoginID)
		h.Metrics.ObserveLogin(MethodPassword, false)
		h.renderFormWithError(w, r, MsgBadPassword, loginID)
		return
	}

	_, err := h.SessionMgr.SignIn(w, r, auth.SessionUser{
		ID:      acc.LoginID,
		Name:    acc.Name,
		LoginID: acc.LoginID,
		Role:    acc.Role,
		Method:  MethodPassword,
	})
	if err != nil {
		h.Log.Error("save session failed", zap.Error(err), zap.String("login_id", acc.LoginID))
		h.renderFormWithError(w, r, MsgNoSession, loginID)
		return
	}

	h.Limiter.ResetLogin(loginID)
	h.AuditLog.LoginSuccess(r.Context(), r, acc.LoginID, acc.Name, MethodPassword)
	h.Metrics.ObserveLogin(MethodPassword, true)

	dest := urlutil.SafeReturn(r.FormValue("return"), "", "/admin")
	http.Redirect(w, r, dest, http.StatusSeeOther)
}

/*─────────────────────────────────────────────────────────────────────────────*
| helper: render the form with an error                                       |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) renderFormWithError(w http.ResponseWriter, r *http.Request, msg, loginID string) {
	// From POST, "return" will be in the form; from GET, we might rely on the query.
	ret := strings.TrimSpace(r.FormValue("return"))
	if ret == "" {
		ret = query.Get(r, "return")
	}

	h.Render(w, r, "login", loginFormData{
		BaseVM:        viewdata.NewBaseVM(r, "Iniciar sesión", "/"),
		Error:         msg,
		LoginID:       loginID,
		ReturnURL:     ret,
		GoogleEnabled: h.GoogleEnabled,
	})
}
