// internal/app/features/auditlog/handler.go
package auditlog

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/cafehub/internal/app/features/errors"
	"github.com/dalemusser/cafehub/internal/app/store/audit"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.uber.org/zap"
)

// Reader is the slice of the audit store the viewer needs.
type Reader interface {
	Query(ctx context.Context, filter audit.QueryFilter) ([]audit.Event, error)
	CountByFilter(ctx context.Context, filter audit.QueryFilter) (int64, error)
}

type Handler struct {
	Store  Reader
	Log    *zap.Logger
	ErrLog *uierrors.ErrorLogger

	// Render writes a page; tests replace it.
	Render func(w http.ResponseWriter, r *http.Request, name string, data any)
}

// NewHandler constructs an Audit Log feature handler bound to
// the given store and logger.
func NewHandler(store Reader, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Store:  store,
		Log:    logger,
		ErrLog: errLog,
		Render: templates.Render,
	}
}
