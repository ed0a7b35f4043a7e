// internal/app/features/crud/handler.go
package crud

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/dalemusser/cafehub/internal/app/resources"
	"github.com/dalemusser/cafehub/internal/app/system/alerts"
	"github.com/dalemusser/cafehub/internal/app/system/apiclient"
	"github.com/dalemusser/cafehub/internal/app/system/auditlog"
	"github.com/dalemusser/cafehub/internal/app/system/metrics"
	"github.com/dalemusser/cafehub/internal/app/system/modal"
	"github.com/dalemusser/cafehub/internal/app/system/uistate"
	"github.com/dalemusser/cafehub/internal/app/system/uploader"
	"github.com/dalemusser/cafehub/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// Deps are the collaborators every back-office screen shares.
type Deps struct {
	Admin    *apiclient.Admin
	Uploader *uploader.Uploader
	Uploads  *uploader.Registry
	Alerts   *alerts.Hub
	Audit    *auditlog.Logger
	Metrics  *metrics.Collector
	Clock    clockwork.Clock
	StateTTL time.Duration
	Log      *zap.Logger

	// UploadMaxMB applies to file fields that declare no size limit.
	UploadMaxMB int
}

// Renderer writes named templates. Tests swap in a recorder.
type Renderer interface {
	Page(w http.ResponseWriter, r *http.Request, name string, data any)
	Partial(w http.ResponseWriter, name string, data any)
}

type waffleRenderer struct{}

func (waffleRenderer) Page(w http.ResponseWriter, r *http.Request, name string, data any) {
	templates.Render(w, r, name, data)
}

func (waffleRenderer) Partial(w http.ResponseWriter, name string, data any) {
	templates.RenderSnippet(w, name, data)
}

// Screen is one mounted back-office resource.
type Screen interface {
	Descriptor() resources.Descriptor
	mount() http.Handler
	dropSession(session string)
	closeModals(session string)
}

// Handler serves every descriptor-driven back-office screen.
type Handler struct {
	deps    Deps
	render  Renderer
	screens []Screen
	byName  map[string]Screen
	scroll  *uistate.Store[*modal.ScrollLock]
}

// NewHandler builds one screen per descriptor.
func NewHandler(reg *resources.Registry, deps Deps) (*Handler, error) {
	if deps.Admin == nil {
		return nil, fmt.Errorf("crud: admin API client is required")
	}
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	if deps.Alerts == nil {
		deps.Alerts = alerts.NewHub(deps.Clock, 0, 0)
	}
	if deps.Uploader == nil {
		c := deps.Admin.Client()
		deps.Uploader = uploader.New(c.HTTPClient(), c.BaseURL(), deps.Log)
	}
	if deps.Uploads == nil {
		deps.Uploads = uploader.NewRegistry(deps.Clock, 0)
	}

	h := &Handler{
		deps:   deps,
		render: waffleRenderer{},
		byName: map[string]Screen{},
		scroll: uistate.New[*modal.ScrollLock](deps.Clock, deps.StateTTL, nil),
	}
	for _, d := range reg.All() {
		s, err := h.buildScreen(d)
		if err != nil {
			return nil, err
		}
		h.screens = append(h.screens, s)
		h.byName[d.Name] = s
	}
	return h, nil
}

// SetRenderer replaces the template renderer.
func (h *Handler) SetRenderer(r Renderer) { h.render = r }

// Screens returns the mounted screens in navigation order.
func (h *Handler) Screens() []Screen { return append([]Screen(nil), h.screens...) }

// Nav returns the back-office menu entries, dashboard first.
func (h *Handler) Nav() []viewdata.NavItem {
	items := []viewdata.NavItem{{Label: "Inicio", Href: "/admin"}}
	for _, s := range h.screens {
		d := s.Descriptor()
		items = append(items, viewdata.NavItem{
			Label: d.Title,
			Href:  "/admin/" + d.Name,
			Roles: d.Roles,
		})
	}
	return items
}

// DropSession releases every controller, alert queue and scroll lock held
// for session (on sign-out).
func (h *Handler) DropSession(session string) {
	if session == "" {
		return
	}
	for _, s := range h.screens {
		s.dropSession(session)
	}
	h.scroll.DropSession(session)
}

// leaveScreens closes the modals session left open on every screen but
// current. Navigating away discards them, so their scroll holds go too.
func (h *Handler) leaveScreens(session, current string) {
	for _, s := range h.screens {
		if s.Descriptor().Name != current {
			s.closeModals(session)
		}
	}
}

// ScrollLocked reports whether any modal is open for session.
func (h *Handler) ScrollLocked(session string) bool {
	l, ok := h.scroll.Get(uistate.Key(session, "scroll"))
	return ok && l.Locked()
}

func (h *Handler) scrollLock(session string) *modal.ScrollLock {
	return h.scroll.GetOrCreate(uistate.Key(session, "scroll"), func() *modal.ScrollLock {
		return &modal.ScrollLock{}
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| Request context                                                              |
*─────────────────────────────────────────────────────────────────────────────*/

type reqKey struct{}

// withRequest lets controller callbacks (audit) see the request that
// triggered them.
func withRequest(r *http.Request) context.Context {
	return context.WithValue(r.Context(), reqKey{}, r)
}

func requestFrom(ctx context.Context) *http.Request {
	r, _ := ctx.Value(reqKey{}).(*http.Request)
	return r
}
