// internal/app/features/crud/screen.go
package crud

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/dalemusser/cafehub/internal/app/resources"
	"github.com/dalemusser/cafehub/internal/app/system/alerts"
	"github.com/dalemusser/cafehub/internal/app/system/auth"
	"github.com/dalemusser/cafehub/internal/app/system/confirm"
	"github.com/dalemusser/cafehub/internal/app/system/formkit"
	"github.com/dalemusser/cafehub/internal/app/system/listctl"
	"github.com/dalemusser/cafehub/internal/app/system/modal"
	"github.com/dalemusser/cafehub/internal/app/system/timeouts"
	"github.com/dalemusser/cafehub/internal/app/system/uistate"
	"github.com/dalemusser/cafehub/internal/app/system/uploader"
	"github.com/dalemusser/cafehub/internal/app/system/viewdata"
	"github.com/dalemusser/cafehub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/csrf"
	"go.uber.org/zap"
)

// MsgRecordGone is shown when a row action targets a record that is no
// longer in the loaded list.
const MsgRecordGone = "El registro ya no existe"

// maxMultipartMemory bounds what an upload keeps in memory before spilling
// to disk.
const maxMultipartMemory = 8 << 20

type screenOptions[T models.Record] struct {
	sort      func(items []T)
	onDeleted func(ctx context.Context, rec T) error
}

// sessionState is what one viewer holds for one screen.
type sessionState[T models.Record] struct {
	ctl *listctl.Controller[T]

	mu        sync.Mutex
	options   map[string][]formkit.Option
	uploadErr map[string]string
}

func (st *sessionState[T]) setUploadError(field, msg string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if msg == "" {
		delete(st.uploadErr, field)
		return
	}
	st.uploadErr[field] = msg
}

func (st *sessionState[T]) uploadError(field string) string {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.uploadErr[field]
}

func (st *sessionState[T]) resetForm(options map[string][]formkit.Option) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.options = options
	st.uploadErr = map[string]string{}
}

func (st *sessionState[T]) optionsFor(from string) []formkit.Option {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.options[from]
}

type screen[T models.Record] struct {
	h       *Handler
	desc    resources.Descriptor
	backend listctl.Backend[T]
	opts    screenOptions[T]
	states  *uistate.Store[*sessionState[T]]
}

func newScreen[T models.Record](h *Handler, d resources.Descriptor, backend listctl.Backend[T], opts screenOptions[T]) *screen[T] {
	s := &screen[T]{h: h, desc: d, backend: backend, opts: opts}
	s.states = uistate.New(h.deps.Clock, h.deps.StateTTL, func(_ string, st *sessionState[T]) {
		st.ctl.Unmount()
	})
	return s
}

func (s *screen[T]) Descriptor() resources.Descriptor { return s.desc }

func (s *screen[T]) dropSession(session string) { s.states.DropSession(session) }

func (s *screen[T]) closeModals(session string) {
	st, ok := s.states.Get(uistate.Key(session, s.desc.Name))
	if !ok {
		return
	}
	st.ctl.CloseModal()
	st.ctl.CancelDelete()
}

func (s *screen[T]) basePath() string { return "/admin/" + s.desc.Name }

// state returns the viewer's controller, creating it on first visit.
func (s *screen[T]) state(r *http.Request) *sessionState[T] {
	sid := auth.ViewerID(r)
	return s.states.GetOrCreate(uistate.Key(sid, s.desc.Name), func() *sessionState[T] {
		return &sessionState[T]{
			ctl:       listctl.New(s.backend, s.config(sid)),
			uploadErr: map[string]string{},
		}
	})
}

func (s *screen[T]) config(sid string) listctl.Config[T] {
	d := s.desc
	return listctl.Config[T]{
		Name:      d.Name,
		Fields:    d.Fields,
		Messages:  d.ListMessages(),
		Filters:   d.FilterEndpoints(),
		Sort:      s.opts.sort,
		Match:     searchMatcher[T](d.Search),
		OnDeleted: s.opts.onDeleted,
		OnMutation: func(ctx context.Context, action, key string, err error) {
			s.h.deps.Metrics.ObserveMutation(d.Name, action, err == nil)
			r := requestFrom(ctx)
			s.h.deps.Audit.RecordMutation(ctx, r, actorOf(r), d.Name, action, key, err)
		},
		Notifier: s.h.deps.Alerts.For(sid),
		Scroll:   s.h.scrollLock(sid),
		Log:      s.h.deps.Log.With(zap.String("resource", d.Name)),
	}
}

// callCtx bounds the backend calls made while serving r. The request stays
// reachable from the context for auditing.
func (s *screen[T]) callCtx(r *http.Request, d time.Duration, op string) (context.Context, context.CancelFunc) {
	return timeouts.WithTimeout(withRequest(r), d, s.h.deps.Log, s.desc.Name+" "+op)
}

func actorOf(r *http.Request) string {
	if r == nil {
		return ""
	}
	if u, ok := auth.CurrentUser(r); ok {
		return u.LoginID
	}
	return ""
}

/*─────────────────────────────────────────────────────────────────────────────*
| Routes                                                                       |
*─────────────────────────────────────────────────────────────────────────────*/

func (s *screen[T]) mount() http.Handler {
	r := chi.NewRouter()
	r.Get("/", s.index)
	r.Post("/refresh", s.refresh)
	r.Post("/filter", s.filter)
	r.Post("/search", s.search)
	r.Post("/new", s.openNew)
	r.Post("/save", s.save)
	r.Post("/close", s.dismiss)
	r.Post("/delete/confirm", s.confirmDelete)
	r.Post("/delete/cancel", s.cancelDelete)
	r.Post("/upload/{field}", s.upload)
	r.Post("/upload/{field}/clear", s.clearUpload)
	r.Post("/{id}/edit", s.openEdit)
	r.Post("/{id}/view", s.openView)
	r.Post("/{id}/delete", s.requestDelete)
	return r
}

// index loads the list on every visit and renders the full page.
func (s *screen[T]) index(w http.ResponseWriter, r *http.Request) {
	st := s.state(r)
	s.h.leaveScreens(auth.ViewerID(r), s.desc.Name)
	ctx, cancel := s.callCtx(r, timeouts.Medium(), "load")
	defer cancel()
	_ = st.ctl.Load(ctx)
	s.h.render.Page(w, r, "crud_list", s.page(r, st))
}

func (s *screen[T]) refresh(w http.ResponseWriter, r *http.Request) {
	st := s.state(r)
	ctx, cancel := s.callCtx(r, timeouts.Medium(), "load")
	defer cancel()
	_ = st.ctl.Load(ctx)
	s.respond(w, r, st)
}

// filter switches the backend filter and reloads. An empty value clears it.
func (s *screen[T]) filter(w http.ResponseWriter, r *http.Request) {
	st := s.state(r)
	if err := st.ctl.SetFilter(r.FormValue("filter"), r.FormValue("value")); err != nil {
		http.Error(w, "unknown filter", http.StatusBadRequest)
		return
	}
	ctx, cancel := s.callCtx(r, timeouts.Medium(), "load")
	defer cancel()
	_ = st.ctl.Load(ctx)
	s.respond(w, r, st)
}

// search narrows the loaded rows without a backend call.
func (s *screen[T]) search(w http.ResponseWriter, r *http.Request) {
	st := s.state(r)
	st.ctl.SetQuery(r.FormValue("q"))
	s.respond(w, r, st)
}

func (s *screen[T]) openNew(w http.ResponseWriter, r *http.Request) {
	st := s.state(r)
	opts := s.loadOptions(r)
	if err := st.ctl.OpenCreate(); err != nil {
		s.refuse(w, r, st, err)
		return
	}
	st.resetForm(opts)
	s.respond(w, r, st)
}

func (s *screen[T]) openEdit(w http.ResponseWriter, r *http.Request) {
	s.openRecord(w, r, false)
}

func (s *screen[T]) openView(w http.ResponseWriter, r *http.Request) {
	s.openRecord(w, r, true)
}

func (s *screen[T]) openRecord(w http.ResponseWriter, r *http.Request, readOnly bool) {
	st := s.state(r)
	rec, ok := st.ctl.Find(chi.URLParam(r, "id"))
	if !ok {
		s.h.deps.Alerts.For(auth.ViewerID(r)).Notify(MsgRecordGone, alerts.Warning)
		s.respond(w, r, st)
		return
	}
	opts := s.loadOptions(r)
	var err error
	if readOnly {
		err = st.ctl.OpenView(rec)
	} else {
		err = st.ctl.OpenEdit(rec)
	}
	if err != nil {
		s.refuse(w, r, st, err)
		return
	}
	st.resetForm(opts)
	s.respond(w, r, st)
}

// save submits the open form. Validation and backend failures leave the
// form open with the messages inline.
func (s *screen[T]) save(w http.ResponseWriter, r *http.Request) {
	st := s.state(r)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	ctx, cancel := s.callCtx(r, timeouts.Medium(), "save")
	defer cancel()
	err := st.ctl.SubmitForm(ctx, r.PostForm)
	switch {
	case err == nil:
	case errors.Is(err, listctl.ErrNoForm), errors.Is(err, formkit.ErrReadOnly):
		s.h.deps.Log.Debug("save without editable form", zap.String("resource", s.desc.Name), zap.Error(err))
	case errors.Is(err, listctl.ErrUnmounted):
		return
	}
	s.respond(w, r, st)
}

func (s *screen[T]) dismiss(w http.ResponseWriter, r *http.Request) {
	st := s.state(r)
	st.ctl.Dismiss(modal.ParseReason(r.FormValue("via")))
	s.respond(w, r, st)
}

func (s *screen[T]) requestDelete(w http.ResponseWriter, r *http.Request) {
	st := s.state(r)
	rec, ok := st.ctl.Find(chi.URLParam(r, "id"))
	if !ok {
		s.h.deps.Alerts.For(auth.ViewerID(r)).Notify(MsgRecordGone, alerts.Warning)
		s.respond(w, r, st)
		return
	}
	if _, err := st.ctl.RequestDelete(rec); err != nil {
		s.refuse(w, r, st, err)
		return
	}
	s.respond(w, r, st)
}

// confirmDelete runs the delete for the dialog cycle the button carried.
// Duplicate and stale confirmations are ignored.
func (s *screen[T]) confirmDelete(w http.ResponseWriter, r *http.Request) {
	st := s.state(r)
	cycle, _ := strconv.ParseUint(r.FormValue("cycle"), 10, 64)
	ctx, cancel := s.callCtx(r, timeouts.Long(), "delete")
	defer cancel()
	err := st.ctl.ConfirmDelete(ctx, cycle)
	switch {
	case errors.Is(err, confirm.ErrStale), errors.Is(err, confirm.ErrAlreadyFired),
		errors.Is(err, confirm.ErrNotOpen), errors.Is(err, listctl.ErrNoSelection):
		s.h.deps.Log.Debug("ignored delete confirmation",
			zap.String("resource", s.desc.Name), zap.Uint64("cycle", cycle), zap.Error(err))
	case errors.Is(err, listctl.ErrUnmounted):
		return
	}
	s.respond(w, r, st)
}

func (s *screen[T]) cancelDelete(w http.ResponseWriter, r *http.Request) {
	st := s.state(r)
	st.ctl.CancelDelete()
	s.respond(w, r, st)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Uploads                                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

// upload stores the posted file and puts its reference into the open form.
// Failures are shown inline on the field, which keeps its previous value.
func (s *screen[T]) upload(w http.ResponseWriter, r *http.Request) {
	st := s.state(r)
	fd, ok := s.desc.Field(chi.URLParam(r, "field"))
	if !ok || !fd.IsFile() {
		http.NotFound(w, r)
		return
	}
	form := st.ctl.Form()
	if form == nil || form.ReadOnly() {
		http.Error(w, "no editable form", http.StatusConflict)
		return
	}

	o := uploader.Options{Accept: fd.Accept, MaxSizeMB: fd.MaxSizeMB, Folder: fd.Folder}
	if o.MaxSizeMB <= 0 {
		o.MaxSizeMB = s.h.deps.UploadMaxMB
	}
	o = o.WithDefaults()
	r.Body = http.MaxBytesReader(w, r.Body, o.MaxBytes()+maxMultipartMemory)
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		msg := uploader.MsgUploadFailed
		if errors.As(err, &tooBig) {
			msg = uploader.TooLarge(o).Message
		}
		st.setUploadError(fd.Name, msg)
		s.renderField(w, r, st, fd.Name)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, hdr, err := r.FormFile("file")
	if err != nil {
		st.setUploadError(fd.Name, "Selecciona un archivo")
		s.renderField(w, r, st, fd.Name)
		return
	}
	defer file.Close()

	ct, err := uploader.Sniff(file)
	if err != nil {
		s.h.deps.Log.Warn("upload type not detected", zap.String("field", fd.Name), zap.Error(err))
		st.setUploadError(fd.Name, uploader.MsgUploadFailed)
		s.renderField(w, r, st, fd.Name)
		return
	}

	token := r.FormValue("token")
	if token == "" {
		token = uuid.NewString()
	}
	progress := s.h.deps.Uploads.Track(token)

	ctx, cancel := s.callCtx(r, timeouts.Upload(), "upload")
	defer cancel()
	ref, err := s.h.deps.Uploader.Upload(ctx, uploader.File{
		Name:        hdr.Filename,
		ContentType: ct,
		Size:        hdr.Size,
		Body:        file,
	}, o, progress)

	var verr *uploader.ValidationError
	if !errors.As(err, &verr) {
		s.h.deps.Audit.FileUploaded(r.Context(), r, actorOf(r), s.desc.Name, o.Folder, ref, err)
	}
	if err != nil {
		st.setUploadError(fd.Name, err.Error())
		s.renderField(w, r, st, fd.Name)
		return
	}
	st.setUploadError(fd.Name, "")
	if err := form.Set(fd.Name, ref); err != nil {
		s.h.deps.Log.Warn("upload reference not stored", zap.String("field", fd.Name), zap.Error(err))
	}
	s.renderField(w, r, st, fd.Name)
}

// clearUpload forgets the field's reference. The stored object stays.
func (s *screen[T]) clearUpload(w http.ResponseWriter, r *http.Request) {
	st := s.state(r)
	fd, ok := s.desc.Field(chi.URLParam(r, "field"))
	if !ok || !fd.IsFile() {
		http.NotFound(w, r)
		return
	}
	if form := st.ctl.Form(); form != nil && !form.ReadOnly() {
		_ = form.Clear(fd.Name)
	}
	st.setUploadError(fd.Name, "")
	s.renderField(w, r, st, fd.Name)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Rendering                                                                    |
*─────────────────────────────────────────────────────────────────────────────*/

// respond re-renders the screen content. HTMX swaps it in place; plain form
// posts are redirected back to the page.
func (s *screen[T]) respond(w http.ResponseWriter, r *http.Request, st *sessionState[T]) {
	if r.Header.Get("HX-Request") != "true" {
		http.Redirect(w, r, s.basePath(), http.StatusSeeOther)
		return
	}
	w.Header().Set("HX-Trigger", "alerts-changed")
	s.h.render.Partial(w, "crud_content", s.content(r, st))
}

func (s *screen[T]) refuse(w http.ResponseWriter, r *http.Request, st *sessionState[T], err error) {
	if errors.Is(err, listctl.ErrBusy) {
		s.h.deps.Alerts.For(auth.ViewerID(r)).Notify(listctl.MsgBusy, alerts.Warning)
	} else {
		s.h.deps.Log.Warn("screen action refused", zap.String("resource", s.desc.Name), zap.Error(err))
	}
	s.respond(w, r, st)
}

func (s *screen[T]) renderField(w http.ResponseWriter, r *http.Request, st *sessionState[T], name string) {
	form := st.ctl.Form()
	if form == nil {
		s.respond(w, r, st)
		return
	}
	for _, fv := range form.Fields() {
		if fv.Name == name {
			s.h.render.Partial(w, "crud_field", s.field(r, st, fv))
			return
		}
	}
	http.NotFound(w, r)
}

// loadOptions fetches the option lists the form's selects depend on. A
// failed source leaves its select empty and raises a warning.
func (s *screen[T]) loadOptions(r *http.Request) map[string][]formkit.Option {
	out := map[string][]formkit.Option{}
	for _, fd := range s.desc.Fields {
		if fd.OptionsFrom == "" {
			continue
		}
		if _, done := out[fd.OptionsFrom]; done {
			continue
		}
		ctx, cancel := s.callCtx(r, timeouts.Short(), "options "+fd.OptionsFrom)
		opts, err := s.h.optionsFrom(ctx, fd.OptionsFrom)
		cancel()
		if err != nil {
			s.h.deps.Log.Warn("select options not loaded",
				zap.String("resource", s.desc.Name),
				zap.String("source", fd.OptionsFrom),
				zap.Error(err))
			s.h.deps.Alerts.For(auth.ViewerID(r)).Notify("No se pudieron cargar las opciones de "+fd.Label, alerts.Warning)
		}
		out[fd.OptionsFrom] = opts
	}
	return out
}

/*─────────────────────────────────────────────────────────────────────────────*
| View models                                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

type rowVM struct {
	Key    string
	Label  string
	Cells  []cellVM
	Active bool
}

type filterVM struct {
	Name    string
	Label   string
	Options []formkit.Option
	Value   string
}

type fieldVM struct {
	formkit.FieldView
	Options     []formkit.Option
	PreviewURL  string
	Legacy      bool
	Token       string
	UploadError string
	Base        string
	CSRFToken   string
}

type formVM struct {
	Title    string
	ReadOnly bool
	Fields   []fieldVM
	Error    string
	Busy     bool
}

type confirmVM struct {
	Message string
	Item    string
	Cycle   uint64
	Busy    bool
}

type contentVM struct {
	Desc      resources.Descriptor
	Base      string
	Rows      []rowVM
	Total     int
	Shown     int
	Loaded    bool
	Loading   bool
	Error     string
	Query     string
	Filters   []filterVM
	Form      *formVM
	Confirm   *confirmVM
	Busy      bool
	CSRFToken string
}

type pageVM struct {
	viewdata.BaseVM
	Content contentVM
}

func (s *screen[T]) page(r *http.Request, st *sessionState[T]) pageVM {
	base := viewdata.NewBaseVM(r, s.desc.Title, "/admin")
	content := s.content(r, st)
	base.ModalOpen = content.Form != nil || content.Confirm != nil
	return pageVM{BaseVM: base, Content: content}
}

func (s *screen[T]) content(r *http.Request, st *sessionState[T]) contentVM {
	v := st.ctl.View()
	proxy := s.h.deps.Uploader.ProxyURL

	vm := contentVM{
		Desc:      s.desc,
		Base:      s.basePath(),
		Total:     v.Total,
		Shown:     len(v.Items),
		Loaded:    v.Loaded,
		Loading:   v.Loading,
		Error:     v.Error,
		Query:     v.Query,
		Busy:      v.Busy,
		CSRFToken: csrf.Token(r),
	}
	for _, it := range v.Items {
		m := recordMap(it)
		row := rowVM{Key: it.Key(), Label: it.Label(), Active: true}
		if a, ok := any(it).(interface{ Active() bool }); ok {
			row.Active = a.Active()
		}
		for _, col := range s.desc.Columns {
			row.Cells = append(row.Cells, formatCell(col, m, proxy))
		}
		vm.Rows = append(vm.Rows, row)
	}
	for _, f := range s.desc.Filters {
		fv := filterVM{Name: f.Name, Label: f.Label, Options: f.Options}
		if v.Filter.Name == f.Name {
			fv.Value = v.Filter.Value
		}
		vm.Filters = append(vm.Filters, fv)
	}

	if v.FormOpen && v.Form != nil {
		fm := &formVM{
			Title:    s.formTitle(v.Form.Mode()),
			ReadOnly: v.Form.ReadOnly(),
			Error:    v.Form.FormError(),
			Busy:     v.Busy,
		}
		for _, fv := range v.Form.Fields() {
			fm.Fields = append(fm.Fields, s.field(r, st, fv))
		}
		vm.Form = fm
	}
	if v.ConfirmOpen && v.Confirm.Open {
		vm.Confirm = &confirmVM{
			Message: v.Confirm.Message,
			Item:    v.Confirm.Item,
			Cycle:   v.Confirm.Cycle,
			Busy:    v.Confirm.Busy,
		}
	}
	return vm
}

func (s *screen[T]) field(r *http.Request, st *sessionState[T], fv formkit.FieldView) fieldVM {
	out := fieldVM{
		FieldView: fv,
		Options:   fv.Options,
		Base:      s.basePath(),
		CSRFToken: csrf.Token(r),
	}
	if fv.OptionsFrom != "" {
		out.Options = st.optionsFor(fv.OptionsFrom)
	}
	if fv.IsFile() {
		out.PreviewURL = s.h.deps.Uploader.ProxyURL(fv.Value)
		out.Legacy = uploader.IsLegacyInline(fv.Value)
		out.Token = uuid.NewString()
		out.UploadError = st.uploadError(fv.Name)
	}
	return out
}

func (s *screen[T]) formTitle(mode formkit.Mode) string {
	singular := s.desc.Singular
	if singular == "" {
		singular = "registro"
	}
	switch mode {
	case formkit.ModeCreate:
		return "Crear " + singular
	case formkit.ModeView:
		return capitalize(singular)
	}
	return "Editar " + singular
}

func capitalize(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[n:]
}
