// internal/app/features/auditlog/types.go
package auditlog

import (
	"html/template"
	"time"

	"github.com/dalemusser/cafehub/internal/app/store/audit"
	"github.com/dalemusser/cafehub/internal/app/system/viewdata"
)

// listItem represents a single audit event row for display.
type listItem struct {
	Timestamp time.Time
	Category  string
	Event     string
	Actor     string
	Resource  string
	RecordKey string
	IP        string
	Success   bool
	Reason    string
	Details   map[string]string
}

// listData is the view model for the audit log list page.
type listData struct {
	viewdata.BaseVM

	Items []listItem

	// Filters
	Category  string
	EventType string
	Actor     string
	Resource  string
	StartDate string
	EndDate   string

	// Filter options
	Categories []option
	EventTypes []option

	// Pagination
	Page       int
	TotalPages int
	Total      int64
	RangeStart int
	RangeEnd   int
	HasPrev    bool
	HasNext    bool
	PrevPage   int
	NextPage   int
	Query      template.URL // filters without the page, for the pager links
}

type option struct {
	Value string
	Label string
}

func allCategories() []option {
	return []option{
		{Value: audit.CategoryAuth, Label: "Acceso"},
		{Value: audit.CategoryAdmin, Label: "Administración"},
	}
}

var eventLabels = map[string]string{
	audit.EventLoginSuccess:             "Inicio de sesión",
	audit.EventLoginFailedUnknownUser:   "Usuario desconocido",
	audit.EventLoginFailedWrongPassword: "Contraseña incorrecta",
	audit.EventLoginFailedRateLimit:     "Demasiados intentos",
	audit.EventLoginFailedNotAllowed:    "Cuenta no autorizada",
	audit.EventLogout:                   "Cierre de sesión",
	audit.EventRecordCreated:            "Registro creado",
	audit.EventRecordUpdated:            "Registro actualizado",
	audit.EventRecordDeleted:            "Registro eliminado",
	audit.EventFileUploaded:             "Archivo subido",
}

// eventTypesForCategory returns the event types for a given category.
// If category is empty, returns all event types.
func eventTypesForCategory(category string) []option {
	authEvents := []string{
		audit.EventLoginSuccess,
		audit.EventLoginFailedUnknownUser,
		audit.EventLoginFailedWrongPassword,
		audit.EventLoginFailedRateLimit,
		audit.EventLoginFailedNotAllowed,
		audit.EventLogout,
	}
	adminEvents := []string{
		audit.EventRecordCreated,
		audit.EventRecordUpdated,
		audit.EventRecordDeleted,
		audit.EventFileUploaded,
	}

	var types []string
	switch category {
	case audit.CategoryAuth:
		types = authEvents
	case audit.CategoryAdmin:
		types = adminEvents
	case "":
		types = append(append(types, authEvents...), adminEvents...)
	}

	out := make([]option, 0, len(types))
	for _, t := range types {
		out = append(out, option{Value: t, Label: eventLabel(t)})
	}
	return out
}

func eventLabel(t string) string {
	if l, ok := eventLabels[t]; ok {
		return l
	}
	return t
}
