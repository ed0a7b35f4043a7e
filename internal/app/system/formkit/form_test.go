package formkit_test

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/dalemusser/cafehub/internal/app/system/apiclient"
	"github.com/dalemusser/cafehub/internal/app/system/formkit"
	"github.com/dalemusser/cafehub/internal/domain/models"
	"github.com/google/go-cmp/cmp"
)

func productoFields() []formkit.Field {
	return []formkit.Field{
		{Name: "nombre", Label: "Nombre", Required: true},
		{Name: "precio", Label: "Precio", Input: formkit.InputNumber, Kind: formkit.KindFloat, Required: true, Rules: "gt=0"},
		{Name: "descripcion", Label: "Descripción", Input: formkit.InputTextarea, Required: true},
		{Name: "categoria", Label: "Categoría", Default: "Bebidas"},
		{Name: "foto", Label: "Foto", Input: formkit.InputFile, Accept: "image/*"},
		{Name: "status", Label: "Activo", Input: formkit.InputCheckbox, Kind: formkit.KindBool, Default: "true"},
	}
}

func meseroFields() []formkit.Field {
	return []formkit.Field{
		{Name: "nombre", Label: "Nombre", Required: true},
		{Name: "edad", Label: "Edad", Input: formkit.InputNumber, Kind: formkit.KindInt, Rules: "gte=16,lte=100"},
		{Name: "condicionId", Label: "Condición", Input: formkit.InputSelect, Kind: formkit.KindInt, Source: "condicion.id"},
	}
}

func TestNew_CreateStartsFromDefaults(t *testing.T) {
	f, err := formkit.New(productoFields(), nil, "", formkit.ModeCreate)
	if err != nil {
		t.Fatal(err)
	}
	if got := f.Value("status"); got != "true" {
		t.Errorf("status: got %q, want %q", got, "true")
	}
	if got := f.Value("categoria"); got != "Bebidas" {
		t.Errorf("categoria: got %q, want %q", got, "Bebidas")
	}
	if f.Key() != "" {
		t.Errorf("create form has key %q", f.Key())
	}
}

func TestNew_CopiesRecordAndFillsMissing(t *testing.T) {
	rec := models.Producto{
		Base:   models.Base{ID: "10"},
		Nombre: "Café",
		Precio: 2.5,
	}
	f, err := formkit.New(productoFields(), rec, rec.Key(), formkit.ModeEdit)
	if err != nil {
		t.Fatal(err)
	}

	want := map[string]string{
		"nombre":      "Café",
		"precio":      "2.5",
		"descripcion": "",
		"categoria":   "",
		"foto":        "",
		"status":      "true", // omitted by the backend, so the default applies
	}
	for name, v := range want {
		if got := f.Value(name); got != v {
			t.Errorf("%s: got %q, want %q", name, got, v)
		}
	}
}

func TestNew_ReadsNestedSource(t *testing.T) {
	rec := models.Mesero{
		Base:      models.Base{ID: "3"},
		Nombre:    "Ana",
		Edad:      30,
		Condicion: &models.Condicion{Base: models.Base{ID: "2"}, Nombre: "Visual"},
	}
	f, err := formkit.New(meseroFields(), rec, rec.Key(), formkit.ModeEdit)
	if err != nil {
		t.Fatal(err)
	}
	if got := f.Value("condicionId"); got != "2" {
		t.Errorf("condicionId: got %q, want %q", got, "2")
	}
	if got := f.Value("edad"); got != "30" {
		t.Errorf("edad: got %q, want %q", got, "30")
	}
}

func TestValidate_FieldMessages(t *testing.T) {
	tests := []struct {
		name   string
		values url.Values
		want   map[string]string
	}{
		{
			name:   "missing required",
			values: url.Values{"precio": {"3"}},
			want: map[string]string{
				"nombre":      "Nombre es obligatorio",
				"descripcion": "Descripción es obligatorio",
			},
		},
		{
			name:   "price must be positive",
			values: url.Values{"nombre": {"Té"}, "descripcion": {"x"}, "precio": {"0"}},
			want:   map[string]string{"precio": "Precio debe ser mayor que 0"},
		},
		{
			name:   "price not numeric",
			values: url.Values{"nombre": {"Té"}, "descripcion": {"x"}, "precio": {"dos"}},
			want:   map[string]string{"precio": "Precio debe ser un número"},
		},
		{
			name:   "decimal comma accepted",
			values: url.Values{"nombre": {"Té"}, "descripcion": {"x"}, "precio": {"2,75"}},
			want:   nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, _ := formkit.New(productoFields(), nil, "", formkit.ModeCreate)
			if err := f.Apply(tt.values); err != nil {
				t.Fatal(err)
			}
			err := f.Validate()
			if tt.want == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var verr *formkit.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("got %v, want ValidationError", err)
			}
			if diff := cmp.Diff(tt.want, verr.Fields); diff != "" {
				t.Errorf("field messages (-want +got):\n%s", diff)
			}
		})
	}
}

func TestValidate_RequiredOnCreate(t *testing.T) {
	fields := []formkit.Field{
		{Name: "email", Label: "Email", Required: true, Rules: "email"},
		{Name: "password", Label: "Contraseña", Input: formkit.InputPassword, RequiredOnCreate: true, OmitEmpty: true},
	}

	create, _ := formkit.New(fields, nil, "", formkit.ModeCreate)
	_ = create.Set("email", "ana@cafe.com")
	if err := create.Validate(); err == nil || create.Errors()["password"] == "" {
		t.Errorf("create without password should fail, got %v", err)
	}

	edit, _ := formkit.New(fields, map[string]any{"email": "ana@cafe.com"}, "5", formkit.ModeEdit)
	if err := edit.Validate(); err != nil {
		t.Errorf("edit without password: %v", err)
	}
	d, err := edit.Draft()
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := d["password"]; ok {
		t.Error("blank password should be omitted from the draft")
	}

	_ = edit.Set("email", "no-es-correo")
	_ = edit.Validate()
	if got := edit.Errors()["email"]; got != "Email no es un correo válido" {
		t.Errorf("email message: got %q", got)
	}
}

func TestDraft_CoercesTypes(t *testing.T) {
	f, _ := formkit.New(meseroFields(), nil, "", formkit.ModeCreate)
	_ = f.Apply(url.Values{"nombre": {"Luis"}, "edad": {"25"}, "condicionId": {"1"}})

	d, err := f.Draft()
	if err != nil {
		t.Fatal(err)
	}
	want := formkit.Draft{"nombre": "Luis", "edad": int64(25), "condicionId": int64(1)}
	if diff := cmp.Diff(want, d); diff != "" {
		t.Errorf("draft (-want +got):\n%s", diff)
	}

	_ = f.Set("condicionId", "")
	d, _ = f.Draft()
	if v, ok := d["condicionId"]; !ok || v != nil {
		t.Errorf("blank optional int: got %v (present=%v), want nil", v, ok)
	}
}

func TestDraft_CarriesKeyOnlyWhenEditing(t *testing.T) {
	create, _ := formkit.New(meseroFields(), nil, "", formkit.ModeCreate)
	d, _ := create.Draft()
	if d.Key() != "" {
		t.Errorf("create draft key: %q", d.Key())
	}

	edit, _ := formkit.New(meseroFields(), nil, "9", formkit.ModeEdit)
	d, _ = edit.Draft()
	if d.Key() != "9" {
		t.Errorf("edit draft key: got %q, want %q", d.Key(), "9")
	}
}

func TestApply_UncheckedCheckboxIsFalse(t *testing.T) {
	f, _ := formkit.New(productoFields(), nil, "", formkit.ModeCreate)
	_ = f.Apply(url.Values{"nombre": {"x"}})
	if got := f.Value("status"); got != "false" {
		t.Errorf("status: got %q, want %q", got, "false")
	}
	if got := f.Value("categoria"); got != "Bebidas" {
		t.Errorf("absent text field changed: %q", got)
	}
}

func TestViewMode_IsReadOnly(t *testing.T) {
	f, _ := formkit.New(productoFields(), testRecord(), "10", formkit.ModeView)

	if err := f.Set("nombre", "x"); !errors.Is(err, formkit.ErrReadOnly) {
		t.Errorf("Set: got %v, want ErrReadOnly", err)
	}
	called := false
	err := f.Submit(context.Background(), func(context.Context, formkit.Draft) error {
		called = true
		return nil
	})
	if !errors.Is(err, formkit.ErrReadOnly) || called {
		t.Errorf("Submit: err=%v called=%v", err, called)
	}
	for _, fv := range f.Fields() {
		if !fv.Disabled {
			t.Errorf("field %s enabled in view mode", fv.Name)
		}
	}
}

func TestSubmit_InvalidDraftNeverSaves(t *testing.T) {
	f, _ := formkit.New(productoFields(), nil, "", formkit.ModeCreate)
	called := false
	err := f.Submit(context.Background(), func(context.Context, formkit.Draft) error {
		called = true
		return nil
	})
	var verr *formkit.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("got %v, want ValidationError", err)
	}
	if called {
		t.Error("onSave called for an invalid draft")
	}
}

func TestSubmit_FailureKeepsDraftAndRecordsMessage(t *testing.T) {
	f, _ := formkit.New(productoFields(), nil, "", formkit.ModeCreate)
	_ = f.Apply(url.Values{"nombre": {"Té"}, "descripcion": {"verde"}, "precio": {"3"}, "status": {"on"}})

	err := f.Submit(context.Background(), func(context.Context, formkit.Draft) error {
		return &apiclient.Error{Kind: apiclient.KindApplication, Message: "El nombre ya existe"}
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if got := f.FormError(); got != "El nombre ya existe" {
		t.Errorf("form error: got %q", got)
	}
	if got := f.Value("nombre"); got != "Té" {
		t.Errorf("draft lost: nombre=%q", got)
	}
}

func TestClear_FileFieldForgetsReference(t *testing.T) {
	f, _ := formkit.New(productoFields(), testRecord(), "10", formkit.ModeEdit)
	if err := f.Clear("foto"); err != nil {
		t.Fatal(err)
	}
	if got := f.Value("foto"); got != "" {
		t.Errorf("foto: got %q, want empty", got)
	}
}

func TestDecode_BuildsRecord(t *testing.T) {
	d := formkit.Draft{
		"id":          "12",
		"nombre":      "Luis",
		"edad":        int64(25),
		"condicionId": int64(2),
		"status":      false,
	}
	m, err := formkit.Decode[models.Mesero](d)
	if err != nil {
		t.Fatal(err)
	}
	if m.Key() != "12" || m.Nombre != "Luis" || m.Edad != 25 {
		t.Errorf("decoded: %+v", m)
	}
	if m.CondicionID == nil || *m.CondicionID != 2 {
		t.Errorf("condicionId: %v", m.CondicionID)
	}
	if m.Active() {
		t.Error("status false was lost")
	}
}

func testRecord() models.Producto {
	return models.Producto{
		Base:        models.Base{ID: "10", Status: models.Bool(true)},
		Nombre:      "Café",
		Precio:      2.5,
		Descripcion: "Americano",
		Foto:        "productos/1-abc.jpg",
	}
}
