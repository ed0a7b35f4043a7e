// internal/app/features/auditlog/list.go
package auditlog

import (
	"context"
	"html/template"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dalemusser/cafehub/internal/app/store/audit"
	"github.com/dalemusser/cafehub/internal/app/system/paging"
	"github.com/dalemusser/cafehub/internal/app/system/timeouts"
	"github.com/dalemusser/cafehub/internal/app/system/viewdata"
	"go.uber.org/zap"
)

const pageSize = 50

// ServeList handles GET /admin/auditoria - displays the audit log with filtering.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "audit log list")
	defer cancel()

	q := r.URL.Query()
	category := strings.TrimSpace(q.Get("categoria"))
	eventType := strings.TrimSpace(q.Get("evento"))
	actor := strings.ToLower(strings.TrimSpace(q.Get("usuario")))
	resource := strings.TrimSpace(q.Get("recurso"))
	startDate := strings.TrimSpace(q.Get("desde"))
	endDate := strings.TrimSpace(q.Get("hasta"))
	page := paging.ParsePage(r)

	filter := audit.QueryFilter{
		Actor:     actor,
		Category:  category,
		EventType: eventType,
		Resource:  resource,
		Limit:     pageSize,
		Offset:    int64((page - 1) * pageSize),
	}
	if t, err := time.Parse("2006-01-02", startDate); err == nil {
		filter.StartTime = &t
	}
	if t, err := time.Parse("2006-01-02", endDate); err == nil {
		// End of day
		endOfDay := t.Add(24*time.Hour - time.Nanosecond)
		filter.EndTime = &endOfDay
	}

	events, total, err := h.load(ctx, filter)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "audit query failed", err, "No se pudo cargar la auditoría.", "/admin")
		return
	}

	items := make([]listItem, 0, len(events))
	for _, e := range events {
		items = append(items, listItem{
			Timestamp: e.Timestamp,
			Category:  e.Category,
			Event:     eventLabel(e.EventType),
			Actor:     e.Actor,
			Resource:  e.Resource,
			RecordKey: e.RecordKey,
			IP:        e.IP,
			Success:   e.Success,
			Reason:    e.FailureReason,
			Details:   e.Details,
		})
	}

	// Calculate pagination
	totalPages := int((total + pageSize - 1) / pageSize)
	if totalPages < 1 {
		totalPages = 1
	}
	prevPage := max(page-1, 1)
	nextPage := min(page+1, totalPages)

	data := listData{
		BaseVM:     viewdata.NewBaseVM(r, "Auditoría", "/admin"),
		Items:      items,
		Category:   category,
		EventType:  eventType,
		Actor:      actor,
		Resource:   resource,
		StartDate:  startDate,
		EndDate:    endDate,
		Categories: allCategories(),
		EventTypes: eventTypesForCategory(category),
		Page:       page,
		TotalPages: totalPages,
		Total:      total,
		HasPrev:    page > 1,
		HasNext:    page < totalPages,
		PrevPage:   prevPage,
		NextPage:   nextPage,
		Query:      template.URL(filterQuery(q)),
	}
	if len(items) > 0 {
		data.RangeStart = (page-1)*pageSize + 1
		data.RangeEnd = data.RangeStart + len(items) - 1
	}
	h.Render(w, r, "audit_list", data)
}

func (h *Handler) load(ctx context.Context, filter audit.QueryFilter) ([]audit.Event, int64, error) {
	events, err := h.Store.Query(ctx, filter)
	if err != nil {
		h.Log.Error("failed to query audit events", zap.Error(err))
		return nil, 0, err
	}
	total, err := h.Store.CountByFilter(ctx, filter)
	if err != nil {
		h.Log.Error("failed to count audit events", zap.Error(err))
		return nil, 0, err
	}
	return events, total, nil
}

// filterQuery re-encodes the active filters so pager links keep them.
func filterQuery(q url.Values) string {
	out := url.Values{}
	for _, k := range []string{"categoria", "evento", "usuario", "recurso", "desde", "hasta"} {
		if v := strings.TrimSpace(q.Get(k)); v != "" {
			out.Set(k, v)
		}
	}
	return out.Encode()
}
