package crud

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/cafehub/internal/app/resources"
	"github.com/dalemusser/cafehub/internal/app/system/alerts"
	"github.com/dalemusser/cafehub/internal/app/system/apiclient"
	"github.com/dalemusser/cafehub/internal/app/system/auditlog"
	"github.com/dalemusser/cafehub/internal/app/system/auth"
	"github.com/dalemusser/cafehub/internal/app/system/timeouts"
	"github.com/dalemusser/cafehub/internal/domain/models"
	"github.com/dalemusser/cafehub/internal/testutil"
	"github.com/go-chi/chi/v5"
	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type rendered struct {
	name string
	data any
}

// recorder captures what the screens render instead of executing templates.
type recorder struct {
	mu    sync.Mutex
	calls []rendered
}

func (r *recorder) Page(w http.ResponseWriter, _ *http.Request, name string, data any) {
	r.add(name, data)
	w.WriteHeader(http.StatusOK)
}

func (r *recorder) Partial(w http.ResponseWriter, name string, data any) {
	r.add(name, data)
	w.WriteHeader(http.StatusOK)
}

func (r *recorder) add(name string, data any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, rendered{name, data})
}

func (r *recorder) last(t *testing.T) rendered {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.calls) == 0 {
		t.Fatal("nothing rendered")
	}
	return r.calls[len(r.calls)-1]
}

func (r *recorder) content(t *testing.T) contentVM {
	t.Helper()
	got := r.last(t)
	switch vm := got.data.(type) {
	case contentVM:
		return vm
	case pageVM:
		return vm.Content
	}
	t.Fatalf("last render %q is not screen content: %T", got.name, got.data)
	return contentVM{}
}

type fixture struct {
	h      *Handler
	b      *testutil.Backend
	rec    *recorder
	router chi.Router
	logs   *observer.ObservedLogs
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	b := testutil.NewBackend(t)
	core, logs := observer.New(zapcore.InfoLevel)

	client := apiclient.New(b.URL, zap.NewNop())
	h, err := NewHandler(resources.MustLoadDescriptors(), Deps{
		Admin: apiclient.NewAdmin(client),
		Audit: auditlog.New(nil, zap.New(core), auditlog.Config{Auth: "off", Admin: "log"}),
		Clock: clockwork.NewFakeClock(),
		Log:   zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}
	rec := &recorder{}
	h.SetRenderer(rec)

	sm, err := auth.NewSessionManager(strings.Repeat("k", 32), "", "", 0, false, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	r := chi.NewRouter()
	h.MountRoutes(r, sm)
	return &fixture{h: h, b: b, rec: rec, router: r, logs: logs}
}

func (f *fixture) do(t *testing.T, user testutil.TestUser, method, target string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if form != nil {
		req = testutil.NewFormRequest(method, target, form)
	} else {
		req = testutil.NewRequest(method, target)
	}
	req = testutil.HTMX(testutil.WithUser(req, user))
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func (f *fixture) admin(t *testing.T, method, target string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	return f.do(t, testutil.AdminUser(), method, target, form)
}

func (f *fixture) alerts() []alerts.Alert {
	return f.h.deps.Alerts.For(testutil.AdminUser().SessionID).List()
}

func rowKeys(c contentVM) []string {
	var keys []string
	for _, r := range c.Rows {
		keys = append(keys, r.Key)
	}
	return keys
}

func TestNewHandler_OneScreenPerDescriptor(t *testing.T) {
	f := newFixture(t)
	reg := resources.MustLoadDescriptors()

	if got, want := len(f.h.Screens()), len(reg.All()); got != want {
		t.Fatalf("screens: got %d, want %d", got, want)
	}
	nav := f.h.Nav()
	if nav[0].Href != "/admin" {
		t.Errorf("first nav entry: got %q, want /admin", nav[0].Href)
	}
	if nav[1].Href != "/admin/productos" {
		t.Errorf("second nav entry: got %q, want /admin/productos", nav[1].Href)
	}
}

func TestNewHandler_RequiresAdminClient(t *testing.T) {
	if _, err := NewHandler(resources.MustLoadDescriptors(), Deps{}); err == nil {
		t.Error("expected an error without an admin client")
	}
}

func TestIndex_LoadsRows(t *testing.T) {
	f := newFixture(t)
	f.b.Succeed(http.MethodGet, "/condiciones", testutil.Condiciones())

	rr := f.admin(t, http.MethodGet, "/condiciones", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d", rr.Code)
	}
	got := f.rec.last(t)
	if got.name != "crud_list" {
		t.Fatalf("template: got %q, want crud_list", got.name)
	}
	c := f.rec.content(t)
	if diff := cmp.Diff([]string{"1", "2"}, rowKeys(c)); diff != "" {
		t.Errorf("rows (-want +got):\n%s", diff)
	}
	if c.Rows[1].Active {
		t.Error("second condition should render inactive")
	}
	if got := c.Rows[0].Cells[2].Text; got != "Activo" {
		t.Errorf("status cell: got %q, want Activo", got)
	}
}

func TestIndex_SlowBackendHitsRequestTimeout(t *testing.T) {
	timeouts.Configure(timeouts.Config{Medium: 50 * time.Millisecond})
	t.Cleanup(timeouts.Reset)

	f := newFixture(t)
	f.b.Handle(http.MethodGet, "/condiciones", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	})

	start := time.Now()
	rr := f.admin(t, http.MethodGet, "/condiciones", nil)
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Fatalf("load was not bounded by the request timeout: %v", elapsed)
	}
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d", rr.Code)
	}
	if c := f.rec.content(t); c.Error != apiclient.MsgConnection {
		t.Errorf("error: got %q, want %q", c.Error, apiclient.MsgConnection)
	}
}

func TestIndex_LoadFailureKeepsRowsAndAlerts(t *testing.T) {
	f := newFixture(t)
	f.b.Succeed(http.MethodGet, "/condiciones", testutil.Condiciones())
	f.admin(t, http.MethodGet, "/condiciones", nil)

	f.b.Fail(http.MethodGet, "/condiciones", "Base de datos no disponible")
	f.admin(t, http.MethodPost, "/condiciones/refresh", nil)

	c := f.rec.content(t)
	if len(c.Rows) != 2 {
		t.Errorf("rows after failed reload: got %d, want 2", len(c.Rows))
	}
	if c.Error != "Base de datos no disponible" {
		t.Errorf("error: got %q", c.Error)
	}
	a := f.alerts()
	if len(a) != 1 || a[0].Severity != alerts.Danger {
		t.Errorf("alerts: %+v", a)
	}
}

func TestSave_CreateReloadsAndNotifies(t *testing.T) {
	f := newFixture(t)
	f.b.Succeed(http.MethodGet, "/condiciones", testutil.Condiciones())
	f.b.Succeed(http.MethodPost, "/condiciones", map[string]any{"id": 3, "nombre": "Autismo"})
	f.admin(t, http.MethodGet, "/condiciones", nil)

	f.admin(t, http.MethodPost, "/condiciones/new", url.Values{})
	if f.rec.content(t).Form == nil {
		t.Fatal("form should be open")
	}
	if !f.h.ScrollLocked(testutil.AdminUser().SessionID) {
		t.Error("open form should lock scrolling")
	}

	f.admin(t, http.MethodPost, "/condiciones/save", url.Values{
		"nombre":      {"Autismo"},
		"descripcion": {"Trastorno del espectro autista"},
		"status":      {"true"},
	})

	if n := f.b.CallCount(http.MethodPost, "/condiciones"); n != 1 {
		t.Fatalf("create calls: got %d, want 1", n)
	}
	if n := f.b.CallCount(http.MethodGet, "/condiciones"); n != 2 {
		t.Errorf("list calls: got %d, want 2 (initial + reload)", n)
	}
	var body map[string]any
	for _, c := range f.b.Calls() {
		if c.Method == http.MethodPost {
			_ = json.Unmarshal([]byte(c.Body), &body)
		}
	}
	if body["nombre"] != "Autismo" || body["status"] != true {
		t.Errorf("create body: %+v", body)
	}

	c := f.rec.content(t)
	if c.Form != nil {
		t.Error("form should close after a successful save")
	}
	if f.h.ScrollLocked(testutil.AdminUser().SessionID) {
		t.Error("scroll lock should be released once the form closes")
	}
	a := f.alerts()
	if len(a) != 1 || a[0].Message != "Condición creada correctamente" || a[0].Severity != alerts.Success {
		t.Errorf("alerts: %+v", a)
	}

	entries := f.logs.FilterField(zap.String("event_type", "record_created")).All()
	if len(entries) != 1 {
		t.Fatalf("audit entries: got %d, want 1", len(entries))
	}
	if got := entries[0].ContextMap()["actor"]; got != "admin" {
		t.Errorf("audit actor: got %v, want admin", got)
	}
}

func TestSave_InvalidDraftNeverReachesBackend(t *testing.T) {
	f := newFixture(t)
	f.admin(t, http.MethodPost, "/condiciones/new", url.Values{})
	f.admin(t, http.MethodPost, "/condiciones/save", url.Values{"nombre": {""}, "descripcion": {""}})

	if n := f.b.CallCount(http.MethodPost, "/condiciones"); n != 0 {
		t.Fatalf("create calls: got %d, want 0", n)
	}
	form := f.rec.content(t).Form
	if form == nil {
		t.Fatal("form should stay open")
	}
	var nombreErr string
	for _, fd := range form.Fields {
		if fd.Name == "nombre" {
			nombreErr = fd.Error
		}
	}
	if nombreErr == "" {
		t.Error("nombre should carry a validation message")
	}
}

func TestSave_BackendFailureStaysInline(t *testing.T) {
	f := newFixture(t)
	f.b.Succeed(http.MethodGet, "/condiciones", testutil.Condiciones())
	f.b.Fail(http.MethodPut, "/condiciones/1", "Ya existe una condición con ese nombre")
	f.admin(t, http.MethodGet, "/condiciones", nil)

	f.admin(t, http.MethodPost, "/condiciones/1/edit", url.Values{})
	f.admin(t, http.MethodPost, "/condiciones/save", url.Values{
		"nombre":      {"Sordera"},
		"descripcion": {"Otra"},
	})

	form := f.rec.content(t).Form
	if form == nil {
		t.Fatal("form should stay open after a failed save")
	}
	if form.Error != "Ya existe una condición con ese nombre" {
		t.Errorf("inline error: got %q", form.Error)
	}
	if a := f.alerts(); len(a) != 0 {
		t.Errorf("a save failure must not also raise an alert: %+v", a)
	}
}

func TestView_IsReadOnly(t *testing.T) {
	f := newFixture(t)
	f.b.Succeed(http.MethodGet, "/condiciones", testutil.Condiciones())
	f.admin(t, http.MethodGet, "/condiciones", nil)

	f.admin(t, http.MethodPost, "/condiciones/2/view", url.Values{})
	form := f.rec.content(t).Form
	if form == nil || !form.ReadOnly {
		t.Fatalf("view form: %+v", form)
	}
	for _, fd := range form.Fields {
		if !fd.Disabled {
			t.Errorf("field %s should be disabled", fd.Name)
		}
	}

	f.admin(t, http.MethodPost, "/condiciones/save", url.Values{"nombre": {"x"}})
	if n := f.b.CallCount(http.MethodPut, "/condiciones/2"); n != 0 {
		t.Errorf("read-only form saved %d times", n)
	}
}

func TestEdit_MissingRecordWarns(t *testing.T) {
	f := newFixture(t)
	f.b.Succeed(http.MethodGet, "/condiciones", testutil.Condiciones())
	f.admin(t, http.MethodGet, "/condiciones", nil)

	f.admin(t, http.MethodPost, "/condiciones/99/edit", url.Values{})
	if f.rec.content(t).Form != nil {
		t.Error("no form should open for an unknown record")
	}
	a := f.alerts()
	if len(a) != 1 || a[0].Message != MsgRecordGone || a[0].Severity != alerts.Warning {
		t.Errorf("alerts: %+v", a)
	}
}

func TestDelete_FiresOncePerConfirmation(t *testing.T) {
	f := newFixture(t)
	f.b.Succeed(http.MethodGet, "/condiciones", testutil.Condiciones())
	f.b.Succeed(http.MethodDelete, "/condiciones/1", nil)
	f.admin(t, http.MethodGet, "/condiciones", nil)

	f.admin(t, http.MethodPost, "/condiciones/1/delete", url.Values{})
	confirm := f.rec.content(t).Confirm
	if confirm == nil || confirm.Item != "Sordera" {
		t.Fatalf("confirmation: %+v", confirm)
	}
	if n := f.b.CallCount(http.MethodDelete, "/condiciones/1"); n != 0 {
		t.Fatalf("delete must wait for confirmation, got %d calls", n)
	}

	cycle := url.Values{"cycle": {strconv.FormatUint(confirm.Cycle, 10)}}
	f.admin(t, http.MethodPost, "/condiciones/delete/confirm", cycle)
	f.admin(t, http.MethodPost, "/condiciones/delete/confirm", cycle)

	if n := f.b.CallCount(http.MethodDelete, "/condiciones/1"); n != 1 {
		t.Errorf("delete calls: got %d, want 1", n)
	}
	if f.rec.content(t).Confirm != nil {
		t.Error("confirmation should close")
	}
	a := f.alerts()
	if len(a) != 1 || a[0].Message != "Condición eliminada correctamente" {
		t.Errorf("alerts: %+v", a)
	}
}

func TestDelete_FailureAlertsBackendMessage(t *testing.T) {
	f := newFixture(t)
	f.b.Succeed(http.MethodGet, "/condiciones", testutil.Condiciones())
	f.b.Fail(http.MethodDelete, "/condiciones/1", "La condición está asignada a meseros")
	f.admin(t, http.MethodGet, "/condiciones", nil)

	f.admin(t, http.MethodPost, "/condiciones/1/delete", url.Values{})
	cycle := f.rec.content(t).Confirm.Cycle
	f.admin(t, http.MethodPost, "/condiciones/delete/confirm", url.Values{"cycle": {strconv.FormatUint(cycle, 10)}})

	if f.rec.content(t).Confirm != nil {
		t.Error("confirmation closes whatever the outcome")
	}
	a := f.alerts()
	if len(a) != 1 || a[0].Message != "La condición está asignada a meseros" || a[0].Severity != alerts.Danger {
		t.Errorf("alerts: %+v", a)
	}
}

func TestDelete_SenaRemovesOwnedVideo(t *testing.T) {
	f := newFixture(t)
	f.b.Succeed(http.MethodGet, "/senas", testutil.Senas())
	f.b.Succeed(http.MethodDelete, "/senas/7", nil)
	var removed string
	f.b.Handle(http.MethodPost, "/api/delete-from-wasabi", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		removed = body["fileName"]
		w.WriteHeader(http.StatusOK)
	})
	f.admin(t, http.MethodGet, "/senas", nil)

	f.admin(t, http.MethodPost, "/senas/7/delete", url.Values{})
	cycle := f.rec.content(t).Confirm.Cycle
	f.admin(t, http.MethodPost, "/senas/delete/confirm", url.Values{"cycle": {strconv.FormatUint(cycle, 10)}})

	if removed != "1700000000000-abc.mp4" {
		t.Errorf("removed file: got %q", removed)
	}
}

func TestFilter(t *testing.T) {
	f := newFixture(t)
	f.b.Succeed(http.MethodGet, "/condiciones/estado/true", testutil.Condiciones()[:1])

	rr := f.admin(t, http.MethodPost, "/condiciones/filter", url.Values{"filter": {"nope"}, "value": {"x"}})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("unknown filter: got %d, want 400", rr.Code)
	}

	f.admin(t, http.MethodPost, "/condiciones/filter", url.Values{"filter": {"estado"}, "value": {"true"}})
	if n := f.b.CallCount(http.MethodGet, "/condiciones/estado/true"); n != 1 {
		t.Errorf("filtered list calls: got %d, want 1", n)
	}
	c := f.rec.content(t)
	if diff := cmp.Diff([]string{"1"}, rowKeys(c)); diff != "" {
		t.Errorf("rows (-want +got):\n%s", diff)
	}
	if c.Filters[0].Value != "true" {
		t.Errorf("active filter value: got %q", c.Filters[0].Value)
	}
}

func TestSearch_IsLocal(t *testing.T) {
	f := newFixture(t)
	f.b.Succeed(http.MethodGet, "/productos", testutil.Productos())
	f.admin(t, http.MethodGet, "/productos", nil)

	f.admin(t, http.MethodPost, "/productos/search", url.Values{"q": {"postres"}})
	c := f.rec.content(t)
	if diff := cmp.Diff([]string{"12"}, rowKeys(c)); diff != "" {
		t.Errorf("rows (-want +got):\n%s", diff)
	}
	if c.Total != 3 {
		t.Errorf("total: got %d, want 3", c.Total)
	}
	if n := f.b.CallCount(http.MethodGet, "/productos"); n != 1 {
		t.Errorf("search must not refetch, got %d list calls", n)
	}
}

func TestMeseroForm_LoadsConditionOptions(t *testing.T) {
	f := newFixture(t)
	f.b.Succeed(http.MethodGet, "/condiciones", testutil.Condiciones())

	f.admin(t, http.MethodPost, "/meseros/new", url.Values{})
	form := f.rec.content(t).Form
	if form == nil {
		t.Fatal("form should be open")
	}
	for _, fd := range form.Fields {
		if fd.Name != "condicionId" {
			continue
		}
		if len(fd.Options) != 2 || fd.Options[1].Label != "Baja visión" {
			t.Errorf("condition options: %+v", fd.Options)
		}
		return
	}
	t.Error("condicionId field missing")
}

func multipartUpload(t *testing.T, target, filename, contentType string, payload []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = part.Write(payload)
	_ = mw.WriteField("token", "tok-1")
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return testutil.HTMX(testutil.WithUser(req, testutil.AdminUser()))
}

func TestUpload_RejectedTypeStaysInline(t *testing.T) {
	f := newFixture(t)
	f.admin(t, http.MethodPost, "/senas/new", url.Values{})

	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, multipartUpload(t, "/senas/upload/video", "foto.png", "image/png", []byte("png")))

	if n := f.b.CallCount(http.MethodPost, "/api/upload-to-wasabi"); n != 0 {
		t.Fatalf("rejected file reached storage %d times", n)
	}
	got := f.rec.last(t)
	fv, ok := got.data.(fieldVM)
	if got.name != "crud_field" || !ok {
		t.Fatalf("render: %q %T", got.name, got.data)
	}
	if !strings.HasPrefix(fv.UploadError, "Tipo de archivo no permitido") {
		t.Errorf("upload error: got %q", fv.UploadError)
	}
	if fv.Value != "" {
		t.Errorf("field must stay empty, got %q", fv.Value)
	}
}

// mp4Header is the ftyp box that opens an MP4 file.
var mp4Header = []byte("\x00\x00\x00\x18ftypmp42\x00\x00\x00\x00mp42isom")

func TestUpload_DeclaredTypeIsNotTrusted(t *testing.T) {
	f := newFixture(t)
	f.admin(t, http.MethodPost, "/senas/new", url.Values{})

	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, multipartUpload(t, "/senas/upload/video", "clip.mp4", "video/mp4", []byte("esto es texto plano")))

	if n := f.b.CallCount(http.MethodPost, "/api/upload-to-wasabi"); n != 0 {
		t.Fatalf("text declared as video reached storage %d times", n)
	}
	fv, ok := f.rec.last(t).data.(fieldVM)
	if !ok {
		t.Fatalf("render: %T", f.rec.last(t).data)
	}
	if !strings.HasPrefix(fv.UploadError, "Tipo de archivo no permitido") || fv.Value != "" {
		t.Errorf("field: value=%q err=%q", fv.Value, fv.UploadError)
	}
}

func TestUpload_StoresReferenceVerbatim(t *testing.T) {
	f := newFixture(t)
	const ref = "https://files.example.com/senas/1700000000001-xyz.mp4"
	f.b.Handle(http.MethodPost, "/api/upload-to-wasabi", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"fileUrl": ref})
	})
	f.admin(t, http.MethodPost, "/senas/new", url.Values{})

	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, multipartUpload(t, "/senas/upload/video", "hola.mp4", "video/mp4", mp4Header))

	fv, ok := f.rec.last(t).data.(fieldVM)
	if !ok {
		t.Fatalf("render: %T", f.rec.last(t).data)
	}
	if fv.Value != ref || fv.UploadError != "" {
		t.Errorf("field: value=%q err=%q", fv.Value, fv.UploadError)
	}
	if len(f.logs.FilterField(zap.String("event_type", "file_uploaded")).All()) != 1 {
		t.Error("upload should be audited")
	}

	f.admin(t, http.MethodGet, "/uploads/tok-1/progress", nil)
	pv := f.rec.last(t).data.(progressVM)
	if pv.Percent != 100 || pv.Uploading {
		t.Errorf("progress after success: %+v", pv)
	}

	f.admin(t, http.MethodPost, "/senas/upload/video/clear", url.Values{})
	if fv := f.rec.last(t).data.(fieldVM); fv.Value != "" {
		t.Errorf("cleared value: got %q", fv.Value)
	}
	if n := f.b.CallCount(http.MethodPost, "/api/delete-from-wasabi"); n != 0 {
		t.Error("clearing a field must not delete the stored file")
	}
}

func TestRoles_RestrictedScreens(t *testing.T) {
	f := newFixture(t)
	f.b.Succeed(http.MethodGet, "/condiciones", testutil.Condiciones())
	f.b.Succeed(http.MethodGet, "/usuarios", []models.Usuario{})
	editor := testutil.TestUser{ID: "e", Name: "Editora", LoginID: "editora", Role: "editor", SessionID: "s-editor"}

	if rr := f.do(t, editor, http.MethodGet, "/condiciones", nil); rr.Code != http.StatusOK {
		t.Errorf("editor on condiciones: got %d", rr.Code)
	}
	if rr := f.do(t, editor, http.MethodGet, "/usuarios", nil); rr.Code != http.StatusForbidden {
		t.Errorf("editor on usuarios: got %d, want 403", rr.Code)
	}
	if rr := f.admin(t, http.MethodGet, "/usuarios", nil); rr.Code != http.StatusOK {
		t.Errorf("admin on usuarios: got %d", rr.Code)
	}
}

func TestDropSession_ReleasesState(t *testing.T) {
	f := newFixture(t)
	sid := testutil.AdminUser().SessionID
	f.admin(t, http.MethodPost, "/condiciones/new", url.Values{})
	if !f.h.ScrollLocked(sid) {
		t.Fatal("form should lock scrolling")
	}

	f.h.DropSession(sid)
	if f.h.ScrollLocked(sid) {
		t.Error("dropped session should not stay locked")
	}
	f.admin(t, http.MethodGet, "/condiciones", nil)
	if f.rec.content(t).Form != nil {
		t.Error("a new visit after sign-out should start without an open form")
	}
}

func TestNavigatingAwayReleasesScroll(t *testing.T) {
	f := newFixture(t)
	sid := testutil.AdminUser().SessionID
	f.b.Succeed(http.MethodGet, "/condiciones", testutil.Condiciones())
	f.b.Succeed(http.MethodGet, "/productos", testutil.Productos())

	f.admin(t, http.MethodGet, "/condiciones", nil)
	f.admin(t, http.MethodPost, "/condiciones/new", url.Values{})
	if !f.h.ScrollLocked(sid) {
		t.Fatal("open form should lock scrolling")
	}

	f.admin(t, http.MethodGet, "/productos", nil)
	page, ok := f.rec.last(t).data.(pageVM)
	if !ok {
		t.Fatalf("productos index rendered %T", f.rec.last(t).data)
	}
	if page.ModalOpen || page.Content.Form != nil || page.Content.Confirm != nil {
		t.Errorf("productos page: ModalOpen=%v form=%v confirm=%v", page.ModalOpen, page.Content.Form != nil, page.Content.Confirm != nil)
	}
	if f.h.ScrollLocked(sid) {
		t.Error("scroll lock held by a screen the user left")
	}

	f.admin(t, http.MethodGet, "/condiciones", nil)
	if page := f.rec.last(t).data.(pageVM); page.ModalOpen || page.Content.Form != nil {
		t.Error("form left behind on another screen should not reopen")
	}
}

func TestIndexKeepsOwnModalOpen(t *testing.T) {
	f := newFixture(t)
	f.b.Succeed(http.MethodGet, "/condiciones", testutil.Condiciones())

	f.admin(t, http.MethodPost, "/condiciones/new", url.Values{})
	f.admin(t, http.MethodGet, "/condiciones", nil)
	page := f.rec.last(t).data.(pageVM)
	if !page.ModalOpen || page.Content.Form == nil {
		t.Errorf("reloading the screen with its form open: ModalOpen=%v form=%v", page.ModalOpen, page.Content.Form != nil)
	}
}

func TestNonHTMXPostRedirects(t *testing.T) {
	f := newFixture(t)
	req := testutil.WithUser(testutil.NewFormRequest(http.MethodPost, "/condiciones/new", url.Values{}), testutil.AdminUser())
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/admin/condiciones" {
		t.Errorf("got %d → %q", rr.Code, rr.Header().Get("Location"))
	}
}
