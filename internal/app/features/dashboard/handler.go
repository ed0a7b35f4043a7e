// internal/app/features/dashboard/handler.go
package dashboard

import (
	"context"
	"net/http"

	"github.com/dalemusser/cafehub/internal/app/store/audit"
	"github.com/dalemusser/cafehub/internal/app/system/apiclient"
	"github.com/dalemusser/cafehub/internal/app/system/timeouts"
	"github.com/dalemusser/cafehub/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// recentEvents is how many audit entries the dashboard shows.
const recentEvents = 10

// AuditReader is the slice of the audit store the dashboard reads.
type AuditReader interface {
	GetRecent(ctx context.Context, limit int64) ([]audit.Event, error)
}

type Handler struct {
	Admin *apiclient.Admin
	Audit AuditReader // nil without a database
	Log   *zap.Logger

	// Render writes a page; tests replace it.
	Render func(w http.ResponseWriter, r *http.Request, name string, data any)
}

func NewHandler(admin *apiclient.Admin, auditStore AuditReader, logger *zap.Logger) *Handler {
	return &Handler{
		Admin:  admin,
		Audit:  auditStore,
		Log:    logger,
		Render: templates.Render,
	}
}

// countVM is one dashboard tile. Failed is set when the count could not be
// loaded; the tile then shows a dash instead of a number.
type countVM struct {
	Label  string
	Href   string
	Count  int
	Failed bool
}

type dashboardData struct {
	viewdata.BaseVM
	Counts      []countVM
	Recent      []audit.Event
	AuditOn     bool
	AnyFailures bool
}

type tile struct {
	label string
	href  string
	count func(ctx context.Context) (int, error)
}

func lenOf[T any](list func(context.Context) ([]T, error)) func(context.Context) (int, error) {
	return func(ctx context.Context) (int, error) {
		rows, err := list(ctx)
		return len(rows), err
	}
}

func (h *Handler) tiles() []tile {
	return []tile{
		{"Productos", "/admin/productos", lenOf(h.Admin.Productos.List)},
		{"Señas", "/admin/senas", lenOf(h.Admin.Senas.List)},
		{"Meseros", "/admin/meseros", lenOf(h.Admin.Meseros.List)},
		{"Productos de tienda", "/admin/productos-tienda", lenOf(h.Admin.ProductosTienda.List)},
	}
}

// ServeDashboard handles GET /admin. Counts load concurrently; one failing
// backend call does not hide the others.
func (h *Handler) ServeDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	tiles := h.tiles()
	data := dashboardData{
		BaseVM:  viewdata.NewBaseVM(r, "Panel de administración", "/admin"),
		Counts:  make([]countVM, len(tiles)),
		AuditOn: h.Audit != nil,
	}

	var g errgroup.Group
	for i, t := range tiles {
		g.Go(func() error {
			n, err := t.count(ctx)
			data.Counts[i] = countVM{Label: t.label, Href: t.href, Count: n, Failed: err != nil}
			if err != nil {
				h.Log.Warn("dashboard count failed", zap.String("tile", t.label), zap.Error(err))
			}
			return nil
		})
	}
	if h.Audit != nil {
		g.Go(func() error {
			events, err := h.Audit.GetRecent(ctx, recentEvents)
			if err != nil {
				h.Log.Warn("dashboard audit load failed", zap.Error(err))
				return nil
			}
			data.Recent = events
			return nil
		})
	}
	_ = g.Wait()

	for _, c := range data.Counts {
		data.AnyFailures = data.AnyFailures || c.Failed
	}
	h.Render(w, r, "admin_dashboard", data)
}
