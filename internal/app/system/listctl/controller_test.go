package listctl_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/cafehub/internal/app/system/alerts"
	"github.com/dalemusser/cafehub/internal/app/system/apiclient"
	"github.com/dalemusser/cafehub/internal/app/system/confirm"
	"github.com/dalemusser/cafehub/internal/app/system/formkit"
	"github.com/dalemusser/cafehub/internal/app/system/listctl"
	"github.com/dalemusser/cafehub/internal/app/system/modal"
	"github.com/dalemusser/cafehub/internal/domain/models"
	"github.com/dalemusser/cafehub/internal/testutil"
	"go.uber.org/zap"
)

func condicionFields() []formkit.Field {
	return []formkit.Field{
		{Name: "nombre", Label: "Nombre", Required: true},
		{Name: "descripcion", Label: "Descripción", Input: formkit.InputTextarea, Required: true},
		{Name: "status", Label: "Activo", Input: formkit.InputCheckbox, Kind: formkit.KindBool, Default: "true"},
	}
}

func newHTTPController(t *testing.T, b *testutil.Backend, rec *alerts.Recorder, scroll *modal.ScrollLock) *listctl.Controller[models.Condicion] {
	t.Helper()
	client := apiclient.New(b.URL, zap.NewNop())
	res := apiclient.NewResource[models.Condicion](client, apiclient.PathCondiciones)
	return listctl.New[models.Condicion](res, listctl.Config[models.Condicion]{
		Name:     "condiciones",
		Fields:   condicionFields(),
		Notifier: rec,
		Scroll:   scroll,
		Filters:  map[string]string{"estado": "/condiciones/estado/{v}"},
		Messages: listctl.Messages{Created: "Condición creada", Deleted: "Condición eliminada"},
	})
}

// fakeBackend is an in-memory Backend whose calls can be held open.
type fakeBackend struct {
	mu        sync.Mutex
	items     []models.Condicion
	listErr   error
	endpoints []string
	creates   int
	updates   []string
	deletes   []string
	deleteErr error
	saveErr   error

	holdList   chan chan struct{}
	holdMutate chan struct{}
}

func (f *fakeBackend) Path() string { return apiclient.PathCondiciones }

func (f *fakeBackend) ListAt(ctx context.Context, endpoint string) ([]models.Condicion, error) {
	f.mu.Lock()
	f.endpoints = append(f.endpoints, endpoint)
	hold := f.holdList
	f.mu.Unlock()
	if hold != nil {
		gate := make(chan struct{})
		hold <- gate
		<-gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]models.Condicion(nil), f.items...), nil
}

func (f *fakeBackend) Create(ctx context.Context, v models.Condicion) (models.Condicion, error) {
	f.wait()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	return v, f.saveErr
}

func (f *fakeBackend) Update(ctx context.Context, key string, v models.Condicion) (models.Condicion, error) {
	f.wait()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, key)
	return v, f.saveErr
}

func (f *fakeBackend) Delete(ctx context.Context, key string) error {
	f.wait()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, key)
	return f.deleteErr
}

func (f *fakeBackend) wait() {
	f.mu.Lock()
	hold := f.holdMutate
	f.mu.Unlock()
	if hold != nil {
		<-hold
	}
}

func newFakeController(f *fakeBackend, rec *alerts.Recorder) *listctl.Controller[models.Condicion] {
	return listctl.New[models.Condicion](f, listctl.Config[models.Condicion]{
		Name:     "condiciones",
		Fields:   condicionFields(),
		Notifier: rec,
		Filters:  map[string]string{"estado": "/condiciones/estado/{v}"},
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| End-to-end against the HTTP backend                                          |
*─────────────────────────────────────────────────────────────────────────────*/

func TestCreateFromEmptyList(t *testing.T) {
	b := testutil.NewBackend(t)
	var (
		mu      sync.Mutex
		created []map[string]any
	)
	b.Handle(http.MethodGet, "/condiciones", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		testutil.WriteEnvelope(w, "SUCCESS", created, "")
	})
	b.Handle(http.MethodPost, "/condiciones", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		body["id"] = 1
		mu.Lock()
		created = append(created, body)
		mu.Unlock()
		testutil.WriteEnvelope(w, "SUCCESS", body, "")
	})

	rec := &alerts.Recorder{}
	scroll := &modal.ScrollLock{}
	c := newHTTPController(t, b, rec, scroll)
	ctx := context.Background()

	if err := c.Load(ctx); err != nil {
		t.Fatalf("initial load: %v", err)
	}
	if n := len(c.View().Items); n != 0 {
		t.Fatalf("expected empty list, got %d", n)
	}

	if err := c.OpenCreate(); err != nil {
		t.Fatal(err)
	}
	if !scroll.Locked() {
		t.Error("open form should lock scrolling")
	}
	err := c.SubmitForm(ctx, url.Values{
		"nombre":      {"Visual"},
		"descripcion": {"Discapacidad visual"},
		"status":      {"on"},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if got := b.CallCount(http.MethodPost, "/condiciones"); got != 1 {
		t.Errorf("create calls: got %d, want 1", got)
	}
	if got := b.CallCount(http.MethodPut, "/condiciones/1"); got != 0 {
		t.Errorf("update calls: got %d, want 0", got)
	}

	v := c.View()
	if len(v.Items) != 1 || v.Items[0].Key() != "1" || v.Items[0].Nombre != "Visual" {
		t.Errorf("items after create: %+v", v.Items)
	}
	if v.FormOpen || v.Form != nil {
		t.Error("form should be closed after a successful save")
	}
	if scroll.Locked() {
		t.Error("scroll lock not released")
	}
	if rec.Count() != 1 {
		t.Fatalf("alerts: got %d, want 1", rec.Count())
	}
	if last, _ := rec.Last(); last.Severity != alerts.Success || last.Message != "Condición creada" {
		t.Errorf("alert: %+v", last)
	}
}

func TestFailedDeleteKeepsRecord(t *testing.T) {
	b := testutil.NewBackend(t)
	b.Succeed(http.MethodGet, "/condiciones", []map[string]any{
		{"id": 7, "nombre": "Motriz", "descripcion": "x", "status": true},
	})
	b.Fail(http.MethodDelete, "/condiciones/7", "referenced by other records")

	rec := &alerts.Recorder{}
	scroll := &modal.ScrollLock{}
	c := newHTTPController(t, b, rec, scroll)
	ctx := context.Background()
	if err := c.Load(ctx); err != nil {
		t.Fatal(err)
	}

	target, ok := c.Find("7")
	if !ok {
		t.Fatal("record 7 not loaded")
	}
	cycle, err := c.RequestDelete(target)
	if err != nil {
		t.Fatal(err)
	}
	if got := b.CallCount(http.MethodDelete, "/condiciones/7"); got != 0 {
		t.Fatal("RequestDelete must not call the backend")
	}

	if err := c.ConfirmDelete(ctx, cycle); err == nil {
		t.Fatal("expected delete error")
	}

	v := c.View()
	if v.ConfirmOpen || v.Confirm.Open {
		t.Error("confirmation should close after a failed delete")
	}
	if len(v.Items) != 1 || v.Items[0].Key() != "7" {
		t.Errorf("record 7 should remain: %+v", v.Items)
	}
	if got := b.CallCount(http.MethodDelete, "/condiciones/7"); got != 1 {
		t.Errorf("delete calls: got %d, want 1", got)
	}
	if rec.Count() != 1 {
		t.Fatalf("alerts: got %d, want 1", rec.Count())
	}
	if last, _ := rec.Last(); last.Message != "referenced by other records" || last.Severity != alerts.Danger {
		t.Errorf("alert: %+v", last)
	}
	if scroll.Locked() {
		t.Error("scroll lock not released")
	}
}

func TestReloadErrorKeepsStaleItems(t *testing.T) {
	b := testutil.NewBackend(t)
	b.Succeed(http.MethodGet, "/condiciones", []map[string]any{
		{"id": 1, "nombre": "a"}, {"id": 2, "nombre": "b"}, {"id": 3, "nombre": "c"},
	})
	rec := &alerts.Recorder{}
	c := newHTTPController(t, b, rec, nil)
	ctx := context.Background()
	if err := c.Load(ctx); err != nil {
		t.Fatal(err)
	}

	b.Fail(http.MethodGet, "/condiciones", "Servicio no disponible")
	if err := c.Load(ctx); err == nil {
		t.Fatal("expected load error")
	}

	v := c.View()
	if len(v.Items) != 3 {
		t.Errorf("items: got %d, want 3", len(v.Items))
	}
	if v.Error != "Servicio no disponible" || v.Phase != listctl.PhaseErrored {
		t.Errorf("error state: %q phase=%s", v.Error, v.Phase)
	}

	b.Succeed(http.MethodGet, "/condiciones", []map[string]any{{"id": 1, "nombre": "a"}})
	if err := c.Load(ctx); err != nil {
		t.Fatal(err)
	}
	if v := c.View(); v.Error != "" || len(v.Items) != 1 {
		t.Errorf("successful reload should clear the error: %+v", v)
	}
}

func TestUpdateTargetsKey(t *testing.T) {
	b := testutil.NewBackend(t)
	b.Succeed(http.MethodGet, "/condiciones", []map[string]any{{"id": 1, "nombre": "Visual", "descripcion": "x"}})
	b.Succeed(http.MethodPut, "/condiciones/1", map[string]any{"id": 1, "nombre": "Visual 2", "descripcion": "x"})

	c := newHTTPController(t, b, &alerts.Recorder{}, nil)
	ctx := context.Background()
	_ = c.Load(ctx)

	rec, _ := c.Find("1")
	if err := c.OpenEdit(rec); err != nil {
		t.Fatal(err)
	}
	if err := c.SubmitForm(ctx, url.Values{"nombre": {"Visual 2"}, "descripcion": {"x"}, "status": {"on"}}); err != nil {
		t.Fatal(err)
	}

	if got := b.CallCount(http.MethodPut, "/condiciones/1"); got != 1 {
		t.Errorf("update calls: got %d, want 1", got)
	}
	if got := b.CallCount(http.MethodPost, "/condiciones"); got != 0 {
		t.Errorf("create calls: got %d, want 0", got)
	}
}

func TestFilterSelectsEndpoint(t *testing.T) {
	b := testutil.NewBackend(t)
	b.Succeed(http.MethodGet, "/condiciones/estado/true", []map[string]any{{"id": 1, "nombre": "a", "status": true}})

	c := newHTTPController(t, b, &alerts.Recorder{}, nil)
	if err := c.SetFilter("estado", "true"); err != nil {
		t.Fatal(err)
	}
	if err := c.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := b.CallCount(http.MethodGet, "/condiciones/estado/true"); got != 1 {
		t.Errorf("filtered calls: got %d, want 1", got)
	}
	if err := c.SetFilter("color", "rojo"); !errors.Is(err, listctl.ErrUnknownFilter) {
		t.Errorf("unknown filter: got %v", err)
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| Concurrency and lifecycle                                                    |
*─────────────────────────────────────────────────────────────────────────────*/

func TestConfirmDeleteFiresOnceUnderDoubleClick(t *testing.T) {
	f := &fakeBackend{items: testutil.Condiciones(), holdMutate: make(chan struct{})}
	rec := &alerts.Recorder{}
	c := newFakeController(f, rec)
	ctx := context.Background()
	_ = c.Load(ctx)

	target, _ := c.Find("1")
	cycle, _ := c.RequestDelete(target)

	errs := make(chan error, 2)
	go func() { errs <- c.ConfirmDelete(ctx, cycle) }()
	waitFor(t, func() bool { return c.Busy() })

	second := c.ConfirmDelete(ctx, cycle)
	if !errors.Is(second, confirm.ErrAlreadyFired) {
		t.Errorf("second click: got %v, want ErrAlreadyFired", second)
	}

	f.mu.Lock()
	close(f.holdMutate)
	f.holdMutate = nil
	f.mu.Unlock()
	if err := <-errs; err != nil {
		t.Fatalf("first click: %v", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.deletes) != 1 {
		t.Errorf("delete calls: got %d, want 1", len(f.deletes))
	}
	if c.View().ConfirmOpen {
		t.Error("confirmation still open")
	}
}

func TestSaveWhileBusyIsRejected(t *testing.T) {
	f := &fakeBackend{holdMutate: make(chan struct{})}
	c := newFakeController(f, &alerts.Recorder{})
	ctx := context.Background()

	draft := formkit.Draft{"nombre": "a", "descripcion": "b", "status": true}
	done := make(chan error, 1)
	go func() { done <- c.Save(ctx, draft) }()
	waitFor(t, func() bool { return c.Busy() })

	if err := c.Save(ctx, draft); !errors.Is(err, listctl.ErrBusy) {
		t.Errorf("second save: got %v, want ErrBusy", err)
	}

	f.mu.Lock()
	close(f.holdMutate)
	f.holdMutate = nil
	f.mu.Unlock()
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if f.creates != 1 {
		t.Errorf("creates: got %d, want 1", f.creates)
	}
	if c.Busy() {
		t.Error("still busy after save finished")
	}
}

func TestRowActionsRefusedWhileSaving(t *testing.T) {
	f := &fakeBackend{items: testutil.Condiciones()}
	c := newFakeController(f, &alerts.Recorder{})
	ctx := context.Background()
	_ = c.Load(ctx)
	other, _ := c.Find("2")

	if err := c.OpenCreate(); err != nil {
		t.Fatal(err)
	}
	f.mu.Lock()
	f.holdMutate = make(chan struct{})
	hold := f.holdMutate
	f.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		done <- c.SubmitForm(ctx, url.Values{"nombre": {"Motriz"}, "descripcion": {"Movilidad reducida"}})
	}()
	waitFor(t, func() bool { return c.Busy() })

	if err := c.OpenEdit(other); !errors.Is(err, listctl.ErrBusy) {
		t.Errorf("OpenEdit while saving: got %v, want ErrBusy", err)
	}
	if _, err := c.RequestDelete(other); !errors.Is(err, listctl.ErrBusy) {
		t.Errorf("RequestDelete while saving: got %v, want ErrBusy", err)
	}
	if v := c.View(); !v.FormOpen || v.Form == nil || v.Form.Key() != "" || v.ConfirmOpen {
		t.Errorf("create form replaced while saving: %+v", v)
	}

	f.mu.Lock()
	close(hold)
	f.holdMutate = nil
	f.mu.Unlock()
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if v := c.View(); v.FormOpen {
		t.Error("form should close after the save it submitted")
	}
	if err := c.OpenEdit(other); err != nil {
		t.Errorf("OpenEdit after save: %v", err)
	}
}

func TestSaveFailureStaysOpenWithoutAlert(t *testing.T) {
	f := &fakeBackend{saveErr: &apiclient.Error{Kind: apiclient.KindApplication, Message: "Nombre duplicado"}}
	rec := &alerts.Recorder{}
	c := newFakeController(f, rec)

	_ = c.OpenCreate()
	err := c.SubmitForm(context.Background(), url.Values{"nombre": {"Visual"}, "descripcion": {"x"}})
	if err == nil {
		t.Fatal("expected save error")
	}

	v := c.View()
	if !v.FormOpen || v.Form == nil {
		t.Fatal("form should stay open")
	}
	if got := v.Form.FormError(); got != "Nombre duplicado" {
		t.Errorf("inline error: got %q", got)
	}
	if got := v.Form.Value("nombre"); got != "Visual" {
		t.Errorf("draft lost: %q", got)
	}
	if rec.Count() != 0 {
		t.Errorf("save failure must not alert, got %d alerts", rec.Count())
	}
}

func TestInvalidDraftMakesNoCall(t *testing.T) {
	f := &fakeBackend{}
	c := newFakeController(f, &alerts.Recorder{})
	_ = c.OpenCreate()

	err := c.SubmitForm(context.Background(), url.Values{"nombre": {""}})
	var verr *formkit.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("got %v, want ValidationError", err)
	}
	if f.creates != 0 || len(f.updates) != 0 {
		t.Error("invalid draft reached the backend")
	}
}

func TestLastResponseWins(t *testing.T) {
	f := &fakeBackend{holdList: make(chan chan struct{})}
	c := newFakeController(f, &alerts.Recorder{})
	ctx := context.Background()

	f.items = []models.Condicion{{Base: models.Base{ID: "1"}, Nombre: "primera"}}
	first := make(chan error, 1)
	go func() { first <- c.Load(ctx) }()
	gateFirst := <-f.holdList

	second := make(chan error, 1)
	go func() { second <- c.Load(ctx) }()
	gateSecond := <-f.holdList

	if !c.View().Loading {
		t.Error("loading should be true while fetches are outstanding")
	}

	// The second request returns first; the first request's data arrives last.
	f.mu.Lock()
	f.items = []models.Condicion{{Base: models.Base{ID: "2"}, Nombre: "segunda"}}
	f.mu.Unlock()
	close(gateSecond)
	<-second

	f.mu.Lock()
	f.items = []models.Condicion{{Base: models.Base{ID: "3"}, Nombre: "tardía"}}
	f.mu.Unlock()
	close(gateFirst)
	<-first

	v := c.View()
	if v.Loading {
		t.Error("loading should clear once no fetch is outstanding")
	}
	if len(v.Items) != 1 || v.Items[0].Key() != "3" {
		t.Errorf("items: %+v", v.Items)
	}
}

func TestUnmountDropsLateResults(t *testing.T) {
	f := &fakeBackend{items: testutil.Condiciones(), holdList: make(chan chan struct{})}
	scroll := &modal.ScrollLock{}
	c := listctl.New[models.Condicion](f, listctl.Config[models.Condicion]{Fields: condicionFields(), Scroll: scroll})

	_ = c.OpenCreate()
	done := make(chan error, 1)
	go func() { done <- c.Load(context.Background()) }()
	gate := <-f.holdList

	c.Unmount()
	if scroll.Locked() {
		t.Error("unmount must release the scroll lock")
	}
	close(gate)

	if err := <-done; !errors.Is(err, listctl.ErrUnmounted) {
		t.Errorf("late load: got %v, want ErrUnmounted", err)
	}
	if v := c.View(); len(v.Items) != 0 || v.Loaded {
		t.Errorf("late result was applied: %+v", v.Items)
	}
}

func TestDismissRoutesToClose(t *testing.T) {
	for _, reason := range []modal.Reason{modal.ReasonEscape, modal.ReasonBackdrop, modal.ReasonButton} {
		t.Run(string(reason), func(t *testing.T) {
			scroll := &modal.ScrollLock{}
			f := &fakeBackend{items: testutil.Condiciones()}
			c := listctl.New[models.Condicion](f, listctl.Config[models.Condicion]{Fields: condicionFields(), Scroll: scroll})
			_ = c.Load(context.Background())

			rec, _ := c.Find("1")
			_ = c.OpenView(rec)
			c.Dismiss(reason)
			if v := c.View(); v.FormOpen || v.Form != nil {
				t.Error("form still open")
			}

			_, _ = c.RequestDelete(rec)
			c.Dismiss(reason)
			if v := c.View(); v.ConfirmOpen || v.Selected != nil {
				t.Error("confirmation still open")
			}
			if scroll.Locked() {
				t.Error("scroll still locked")
			}
			if len(f.deletes) != 0 {
				t.Error("dismiss must not delete")
			}
		})
	}
}

func TestFormAndConfirmAreExclusive(t *testing.T) {
	f := &fakeBackend{items: testutil.Condiciones()}
	c := newFakeController(f, &alerts.Recorder{})
	_ = c.Load(context.Background())
	rec, _ := c.Find("2")

	_ = c.OpenEdit(rec)
	_, _ = c.RequestDelete(rec)
	if v := c.View(); v.FormOpen || !v.ConfirmOpen {
		t.Errorf("after RequestDelete: form=%v confirm=%v", v.FormOpen, v.ConfirmOpen)
	}

	_ = c.OpenEdit(rec)
	if v := c.View(); !v.FormOpen || v.ConfirmOpen {
		t.Errorf("after OpenEdit: form=%v confirm=%v", v.FormOpen, v.ConfirmOpen)
	}
}

func TestDeleteHooksAndLocalSearch(t *testing.T) {
	f := &fakeBackend{items: testutil.Condiciones()}
	var (
		deleted  []string
		observed []string
	)
	c := listctl.New[models.Condicion](f, listctl.Config[models.Condicion]{
		Fields: condicionFields(),
		OnDeleted: func(_ context.Context, rec models.Condicion) error {
			deleted = append(deleted, rec.Key())
			return nil
		},
		OnMutation: func(_ context.Context, action, key string, err error) {
			observed = append(observed, action+":"+key)
		},
	})
	ctx := context.Background()
	_ = c.Load(ctx)

	c.SetQuery("BAJA")
	if v := c.View(); len(v.Items) != 1 || v.Items[0].Key() != "2" || v.Total != 2 {
		t.Errorf("search: %+v (total %d)", v.Items, v.Total)
	}

	rec, _ := c.Find("2")
	cycle, _ := c.RequestDelete(rec)
	if err := c.ConfirmDelete(ctx, cycle); err != nil {
		t.Fatal(err)
	}
	if len(deleted) != 1 || deleted[0] != "2" {
		t.Errorf("OnDeleted: %v", deleted)
	}
	if len(observed) != 1 || observed[0] != "delete:2" {
		t.Errorf("OnMutation: %v", observed)
	}

	f.deleteErr = errors.New("boom")
	rec, _ = c.Find("1")
	cycle, _ = c.RequestDelete(rec)
	_ = c.ConfirmDelete(ctx, cycle)
	if len(deleted) != 1 {
		t.Error("OnDeleted must not run after a failed delete")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not reached")
		}
		time.Sleep(time.Millisecond)
	}
}
