// internal/app/system/listctl/controller.go
package listctl

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"

	"github.com/dalemusser/cafehub/internal/app/system/alerts"
	"github.com/dalemusser/cafehub/internal/app/system/apiclient"
	"github.com/dalemusser/cafehub/internal/app/system/confirm"
	"github.com/dalemusser/cafehub/internal/app/system/formkit"
	"github.com/dalemusser/cafehub/internal/app/system/modal"
	"github.com/dalemusser/cafehub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.uber.org/zap"
)

var (
	// ErrBusy is returned when a mutation is attempted while another one
	// from the same controller is still in flight.
	ErrBusy = errors.New("listctl: another operation is in progress")
	// ErrUnmounted is returned once the controller has been released.
	ErrUnmounted = errors.New("listctl: controller unmounted")
	// ErrNoSelection is returned by ConfirmDelete when nothing is selected.
	ErrNoSelection = errors.New("listctl: no record selected")
	// ErrNoForm is returned by SubmitForm when no form is open.
	ErrNoForm = errors.New("listctl: no form open")
	// ErrUnknownFilter is returned for a filter the resource does not declare.
	ErrUnknownFilter = errors.New("listctl: unknown filter")
)

// MsgBusy is the default text shown when an action is refused because a
// mutation is still running.
const MsgBusy = "Espera a que termine la operación en curso"

// busyError carries the user-facing text for ErrBusy.
type busyError struct{ msg string }

func (e busyError) Error() string        { return e.msg }
func (e busyError) Is(target error) bool { return target == ErrBusy }

// Backend is the slice of the API client a controller needs.
// *apiclient.Resource satisfies it.
type Backend[T models.Record] interface {
	Path() string
	ListAt(ctx context.Context, endpoint string) ([]T, error)
	Create(ctx context.Context, v T) (T, error)
	Update(ctx context.Context, key string, v T) (T, error)
	Delete(ctx context.Context, key string) error
}

// Phase is the fetch lifecycle state.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseLoading Phase = "loading"
	PhaseReady   Phase = "ready"
	PhaseErrored Phase = "errored"
)

// Mutation actions reported to OnMutation.
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// Messages are the user-facing texts for one resource.
type Messages struct {
	Created       string
	Updated       string
	Deleted       string
	LoadFailed    string
	DeleteFailed  string
	ConfirmDelete string
	Busy          string
}

func (m Messages) withDefaults() Messages {
	def := func(s *string, v string) {
		if *s == "" {
			*s = v
		}
	}
	def(&m.Created, "Registro creado correctamente")
	def(&m.Updated, "Registro actualizado correctamente")
	def(&m.Deleted, "Registro eliminado correctamente")
	def(&m.LoadFailed, "No se pudieron cargar los registros")
	def(&m.DeleteFailed, "No se pudo eliminar el registro")
	def(&m.ConfirmDelete, "¿Seguro que deseas eliminar este registro?")
	def(&m.Busy, MsgBusy)
	return m
}

// Config wires a controller to one resource.
type Config[T models.Record] struct {
	Name     string
	Fields   []formkit.Field
	Messages Messages

	// Filters maps a filter name to an endpoint template; "{v}" is replaced
	// by the path-escaped value, "{q}" by the query-escaped value.
	Filters map[string]string

	// Sort reorders a freshly loaded list in place. Nil keeps server order.
	Sort func(items []T)

	// Match reports whether a record matches a local search. When nil the
	// record label is searched.
	Match func(rec T, folded string) bool

	// OnDeleted runs after a successful delete (e.g. to remove the file the
	// record owned). Its error is logged only.
	OnDeleted func(ctx context.Context, rec T) error

	// OnMutation observes every create/update/delete attempt.
	OnMutation func(ctx context.Context, action, key string, err error)

	Notifier alerts.Notifier
	Scroll   *modal.ScrollLock
	Log      *zap.Logger
}

// Filter is the active backend filter.
type Filter struct {
	Name  string
	Value string
}

// Controller owns the list, selection and modals of one resource for one
// viewer. Backend calls are made without holding the lock.
type Controller[T models.Record] struct {
	cfg     Config[T]
	backend Backend[T]

	formShell    *modal.Shell
	confirmShell *modal.Shell
	dialog       *confirm.Dialog

	mu        sync.Mutex
	items     []T
	loaded    bool
	err       string
	phase     Phase
	pending   int
	filter    Filter
	query     string
	selected  *T
	form      *formkit.Form
	busy      bool
	unmounted bool
}

// New creates an idle controller.
func New[T models.Record](backend Backend[T], cfg Config[T]) *Controller[T] {
	cfg.Messages = cfg.Messages.withDefaults()
	if cfg.Log == nil {
		cfg.Log = zap.NewNop()
	}
	if cfg.Notifier == nil {
		cfg.Notifier = &alerts.Recorder{}
	}
	if cfg.Scroll == nil {
		cfg.Scroll = &modal.ScrollLock{}
	}
	c := &Controller[T]{cfg: cfg, backend: backend, phase: PhaseIdle}
	c.formShell = modal.New(cfg.Scroll, func(modal.Reason) { c.CloseModal() })
	c.confirmShell = modal.New(cfg.Scroll, func(modal.Reason) { c.CancelDelete() })
	c.dialog = confirm.New(c.onDialogClosed)
	return c
}

/*─────────────────────────────────────────────────────────────────────────────*
| Loading                                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

// Load fetches the collection. Loads are not serialized: whichever response
// arrives last is what the list shows. A failure keeps the previous items.
func (c *Controller[T]) Load(ctx context.Context) error {
	c.mu.Lock()
	if c.unmounted {
		c.mu.Unlock()
		return ErrUnmounted
	}
	c.pending++
	endpoint := c.endpointLocked()
	c.mu.Unlock()

	items, err := c.backend.ListAt(ctx, endpoint)

	c.mu.Lock()
	c.pending--
	if c.unmounted {
		c.mu.Unlock()
		return ErrUnmounted
	}
	if err != nil {
		c.err = messageOr(err, c.cfg.Messages.LoadFailed)
		c.phase = PhaseErrored
		msg := c.err
		c.mu.Unlock()
		c.cfg.Log.Warn("list load failed",
			zap.String("resource", c.cfg.Name),
			zap.String("endpoint", endpoint),
			zap.Error(err))
		c.cfg.Notifier.Notify(msg, alerts.Danger)
		return err
	}
	if items == nil {
		items = []T{}
	}
	if c.cfg.Sort != nil {
		c.cfg.Sort(items)
	}
	c.items = items
	c.loaded = true
	c.err = ""
	c.phase = PhaseReady
	c.mu.Unlock()
	return nil
}

func (c *Controller[T]) endpointLocked() string {
	if c.filter.Name == "" {
		return c.backend.Path()
	}
	tmpl := c.cfg.Filters[c.filter.Name]
	r := strings.NewReplacer(
		"{v}", url.PathEscape(c.filter.Value),
		"{q}", url.QueryEscape(c.filter.Value),
	)
	return r.Replace(tmpl)
}

// SetFilter selects a declared backend filter. An empty value clears it.
// The caller reloads afterwards.
func (c *Controller[T]) SetFilter(name, value string) error {
	value = strings.TrimSpace(value)
	c.mu.Lock()
	defer c.mu.Unlock()
	if name == "" || value == "" {
		c.filter = Filter{}
		return nil
	}
	if _, ok := c.cfg.Filters[name]; !ok {
		return ErrUnknownFilter
	}
	c.filter = Filter{Name: name, Value: value}
	return nil
}

// SetQuery sets the local text search applied to the loaded items.
func (c *Controller[T]) SetQuery(q string) {
	c.mu.Lock()
	c.query = strings.TrimSpace(q)
	c.mu.Unlock()
}

// Find returns the loaded record with key.
func (c *Controller[T]) Find(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, it := range c.items {
		if it.Key() == key {
			return it, true
		}
	}
	var zero T
	return zero, false
}

/*─────────────────────────────────────────────────────────────────────────────*
| Form modal                                                                   |
*─────────────────────────────────────────────────────────────────────────────*/

// OpenCreate opens an empty form. Opening any form or confirmation is
// refused with ErrBusy while a mutation is in flight.
func (c *Controller[T]) OpenCreate() error {
	return c.openForm(nil, formkit.ModeCreate)
}

// OpenEdit opens a form over a copy of rec.
func (c *Controller[T]) OpenEdit(rec T) error {
	return c.openForm(&rec, formkit.ModeEdit)
}

// OpenView opens a read-only form over a copy of rec.
func (c *Controller[T]) OpenView(rec T) error {
	return c.openForm(&rec, formkit.ModeView)
}

func (c *Controller[T]) openForm(rec *T, mode formkit.Mode) error {
	var (
		src any
		key string
	)
	if rec != nil {
		src, key = *rec, (*rec).Key()
	}
	form, err := formkit.New(c.cfg.Fields, src, key, mode)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.unmounted {
		c.mu.Unlock()
		return ErrUnmounted
	}
	if c.busy || c.dialog.State().Busy {
		c.mu.Unlock()
		return busyError{msg: c.cfg.Messages.Busy}
	}
	c.selected = rec
	c.form = form
	c.mu.Unlock()

	// Form and delete confirmation are never open together.
	c.dialog.Cancel()
	c.formShell.SetOpen(true)
	return nil
}

// CloseModal discards the draft and closes the form.
func (c *Controller[T]) CloseModal() {
	c.mu.Lock()
	c.form = nil
	c.selected = nil
	c.mu.Unlock()
	c.formShell.SetOpen(false)
}

// Dismiss routes an escape, backdrop or close-button request to whichever
// modal is open.
func (c *Controller[T]) Dismiss(reason modal.Reason) {
	if c.formShell.IsOpen() {
		c.formShell.Dismiss(reason)
		return
	}
	c.confirmShell.Dismiss(reason)
}

// Form returns the open form, or nil.
func (c *Controller[T]) Form() *formkit.Form {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.form
}

// SubmitForm applies a submitted HTML form to the open draft and saves it.
func (c *Controller[T]) SubmitForm(ctx context.Context, vals url.Values) error {
	form := c.Form()
	if form == nil {
		return ErrNoForm
	}
	if err := form.Apply(vals); err != nil {
		return err
	}
	return form.Submit(ctx, c.Save)
}

// Save creates the record when the draft has no key and updates it
// otherwise. On success the form closes, the list reloads and a success
// alert is raised. On failure the error is returned for inline display and
// the form stays open.
func (c *Controller[T]) Save(ctx context.Context, d formkit.Draft) error {
	rec, err := formkit.Decode[T](d)
	if err != nil {
		return err
	}
	if !c.beginMutation() {
		return busyError{msg: c.cfg.Messages.Busy}
	}

	key := d.Key()
	action := ActionCreate
	if key != "" {
		action = ActionUpdate
		_, err = c.backend.Update(ctx, key, rec)
	} else {
		_, err = c.backend.Create(ctx, rec)
	}
	c.endMutation()
	c.observe(ctx, action, key, err)

	if c.isUnmounted() {
		return ErrUnmounted
	}
	if err != nil {
		c.cfg.Log.Warn("save failed",
			zap.String("resource", c.cfg.Name),
			zap.String("action", action),
			zap.Error(err))
		return err
	}

	c.CloseModal()
	msg := c.cfg.Messages.Created
	if action == ActionUpdate {
		msg = c.cfg.Messages.Updated
	}
	c.cfg.Notifier.Notify(msg, alerts.Success)
	_ = c.Load(ctx)
	return nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Delete confirmation                                                          |
*─────────────────────────────────────────────────────────────────────────────*/

// RequestDelete selects rec and opens the confirmation. Nothing is sent to
// the backend yet. It returns the dialog cycle the confirm button carries.
func (c *Controller[T]) RequestDelete(rec T) (uint64, error) {
	c.mu.Lock()
	if c.unmounted {
		c.mu.Unlock()
		return 0, ErrUnmounted
	}
	if c.busy || c.dialog.State().Busy {
		c.mu.Unlock()
		return 0, busyError{msg: c.cfg.Messages.Busy}
	}
	c.form = nil
	c.selected = &rec
	c.mu.Unlock()

	c.formShell.SetOpen(false)
	cycle := c.dialog.Open(c.cfg.Messages.ConfirmDelete, rec.Label())
	c.confirmShell.SetOpen(true)
	return cycle, nil
}

// ConfirmDelete deletes the selected record at most once per dialog cycle.
// The dialog closes whatever the outcome; success reloads the list and
// failure raises an alert carrying the backend message.
func (c *Controller[T]) ConfirmDelete(ctx context.Context, cycle uint64) error {
	c.mu.Lock()
	if c.selected == nil {
		c.mu.Unlock()
		return ErrNoSelection
	}
	rec := *c.selected
	c.mu.Unlock()

	err := c.dialog.Confirm(ctx, cycle, func(ctx context.Context) error {
		if !c.beginMutation() {
			return ErrBusy
		}
		defer c.endMutation()
		return c.backend.Delete(ctx, rec.Key())
	})
	switch {
	case errors.Is(err, confirm.ErrNotOpen),
		errors.Is(err, confirm.ErrStale),
		errors.Is(err, confirm.ErrAlreadyFired):
		return err
	case errors.Is(err, ErrBusy):
		c.cfg.Notifier.Notify(c.cfg.Messages.Busy, alerts.Warning)
		return err
	}
	c.observe(ctx, ActionDelete, rec.Key(), err)

	if c.isUnmounted() {
		return ErrUnmounted
	}
	if err != nil {
		c.cfg.Log.Warn("delete failed",
			zap.String("resource", c.cfg.Name),
			zap.String("key", rec.Key()),
			zap.Error(err))
		c.cfg.Notifier.Notify(messageOr(err, c.cfg.Messages.DeleteFailed), alerts.Danger)
		return err
	}

	if c.cfg.OnDeleted != nil {
		if herr := c.cfg.OnDeleted(ctx, rec); herr != nil {
			c.cfg.Log.Warn("post-delete cleanup failed",
				zap.String("resource", c.cfg.Name),
				zap.String("key", rec.Key()),
				zap.Error(herr))
		}
	}
	c.cfg.Notifier.Notify(c.cfg.Messages.Deleted, alerts.Success)
	_ = c.Load(ctx)
	return nil
}

// CancelDelete closes the confirmation without deleting. It is refused
// while the delete is running.
func (c *Controller[T]) CancelDelete() {
	c.dialog.Cancel()
}

func (c *Controller[T]) onDialogClosed() {
	c.mu.Lock()
	if c.form == nil {
		c.selected = nil
	}
	c.mu.Unlock()
	c.confirmShell.SetOpen(false)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Lifecycle                                                                    |
*─────────────────────────────────────────────────────────────────────────────*/

// Unmount releases the modals. Results of calls still in flight are dropped.
func (c *Controller[T]) Unmount() {
	c.mu.Lock()
	c.unmounted = true
	c.form = nil
	c.selected = nil
	c.mu.Unlock()
	c.formShell.Unmount()
	c.confirmShell.Unmount()
}

func (c *Controller[T]) isUnmounted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.unmounted
}

func (c *Controller[T]) beginMutation() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy || c.unmounted {
		return false
	}
	c.busy = true
	return true
}

func (c *Controller[T]) endMutation() {
	c.mu.Lock()
	c.busy = false
	c.mu.Unlock()
}

// Busy reports whether a mutation is in flight; Save and Confirm render
// disabled while it is.
func (c *Controller[T]) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

func (c *Controller[T]) observe(ctx context.Context, action, key string, err error) {
	if c.cfg.OnMutation != nil {
		c.cfg.OnMutation(ctx, action, key, err)
	}
}

func messageOr(err error, fallback string) string {
	if msg := apiclient.Message(err); msg != "" {
		return msg
	}
	return fallback
}

/*─────────────────────────────────────────────────────────────────────────────*
| Snapshot                                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

// View is everything a page needs to render the controller.
type View[T models.Record] struct {
	Items       []T
	Total       int
	Loaded      bool
	Loading     bool
	Phase       Phase
	Error       string
	Filter      Filter
	Query       string
	Busy        bool
	Selected    *T
	Form        *formkit.Form
	FormOpen    bool
	Confirm     confirm.State
	ConfirmOpen bool
}

// View returns a consistent snapshot. Items are filtered by the local
// search.
func (c *Controller[T]) View() View[T] {
	c.mu.Lock()
	v := View[T]{
		Total:    len(c.items),
		Loaded:   c.loaded,
		Loading:  c.pending > 0,
		Phase:    c.phase,
		Error:    c.err,
		Filter:   c.filter,
		Query:    c.query,
		Busy:     c.busy,
		Form:     c.form,
		Selected: c.selected,
	}
	if c.pending > 0 {
		v.Phase = PhaseLoading
	}
	v.Items = c.matchLocked(c.query)
	c.mu.Unlock()

	v.FormOpen = c.formShell.IsOpen()
	v.Confirm = c.dialog.State()
	v.ConfirmOpen = c.confirmShell.IsOpen()
	return v
}

func (c *Controller[T]) matchLocked(q string) []T {
	if q == "" {
		return append([]T(nil), c.items...)
	}
	folded := text.Fold(q)
	out := make([]T, 0, len(c.items))
	for _, it := range c.items {
		if c.cfg.Match != nil {
			if c.cfg.Match(it, folded) {
				out = append(out, it)
			}
			continue
		}
		if strings.Contains(text.Fold(it.Label()), folded) {
			out = append(out, it)
		}
	}
	return out
}
