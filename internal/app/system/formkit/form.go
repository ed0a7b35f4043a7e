// internal/app/system/formkit/form.go
package formkit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/dalemusser/cafehub/internal/app/system/apiclient"
)

// Mode selects how the form treats its fields.
type Mode string

const (
	ModeCreate Mode = "create"
	ModeEdit   Mode = "edit"
	ModeView   Mode = "view"
)

// ErrReadOnly is returned when a view-mode form is edited or submitted.
var ErrReadOnly = errors.New("formkit: form is read-only")

// Form is the editable, string-valued copy of one record. It is discarded
// when the modal closes without saving.
type Form struct {
	mu        sync.Mutex
	fields    []Field
	mode      Mode
	key       string
	values    map[string]string
	errs      map[string]string
	formError string
}

// New builds a form over fields. record may be nil (create from defaults);
// otherwise every field is copied from it, and fields the backend omitted
// or sent as null fall back to their default.
func New(fields []Field, record any, key string, mode Mode) (*Form, error) {
	if mode == "" {
		mode = ModeCreate
	}
	f := &Form{
		fields: fields,
		mode:   mode,
		key:    key,
		values: make(map[string]string, len(fields)),
		errs:   map[string]string{},
	}

	var src map[string]any
	if record != nil {
		var err error
		if src, err = toMap(record); err != nil {
			return nil, fmt.Errorf("formkit: read record: %w", err)
		}
	}
	for _, fd := range fields {
		v, ok := lookup(src, fd.sourcePath())
		if !ok {
			f.values[fd.Name] = fd.Default
			continue
		}
		f.values[fd.Name] = v
	}
	return f, nil
}

func toMap(record any) (map[string]any, error) {
	b, err := json.Marshal(record)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}
	return m, nil
}

// lookup walks a dotted path; null and missing both report !ok.
func lookup(m map[string]any, path []string) (string, bool) {
	var cur any = m
	for _, p := range path {
		obj, ok := cur.(map[string]any)
		if !ok {
			return "", false
		}
		if cur, ok = obj[p]; !ok {
			return "", false
		}
	}
	switch v := cur.(type) {
	case nil:
		return "", false
	case string:
		return v, true
	case json.Number:
		return v.String(), true
	case bool:
		if v {
			return "true", true
		}
		return "false", true
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return "", false
		}
		return string(b), true
	}
}

func (f *Form) Mode() Mode { return f.mode }

// Key is the record key; empty in create mode.
func (f *Form) Key() string { return f.key }

// ReadOnly reports whether inputs are disabled and Save hidden.
func (f *Form) ReadOnly() bool { return f.mode == ModeView }

// Value returns the current string value of a field.
func (f *Form) Value(name string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values[name]
}

// Set changes one field.
func (f *Form) Set(name, value string) error {
	if f.ReadOnly() {
		return ErrReadOnly
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.values[name]; !ok {
		return fmt.Errorf("formkit: unknown field %q", name)
	}
	f.values[name] = value
	delete(f.errs, name)
	return nil
}

// Clear empties a field; for file fields this forgets the reference
// without touching the stored object.
func (f *Form) Clear(name string) error { return f.Set(name, "") }

// Apply copies a submitted HTML form into the draft. Unchecked checkboxes
// are absent from a submission and become "false"; other absent fields
// keep their value.
func (f *Form) Apply(vals url.Values) error {
	if f.ReadOnly() {
		return ErrReadOnly
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, fd := range f.fields {
		if fd.KindOrDefault() == KindBool && fd.Input == InputCheckbox {
			v := strings.ToLower(strings.TrimSpace(vals.Get(fd.Name)))
			f.values[fd.Name] = boolString(v == "on" || v == "true" || v == "1")
			continue
		}
		if _, ok := vals[fd.Name]; ok {
			f.values[fd.Name] = vals.Get(fd.Name)
		}
	}
	return nil
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// Errors returns the per-field messages from the last validation.
func (f *Form) Errors() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]string, len(f.errs))
	for k, v := range f.errs {
		out[k] = v
	}
	return out
}

// FormError is the inline message from the last failed save.
func (f *Form) FormError() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.formError
}

// FieldView is one field ready for the template.
type FieldView struct {
	Field
	Value    string
	Error    string
	Disabled bool
	Required bool
}

// Fields returns the fields with their current state.
func (f *Form) Fields() []FieldView {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]FieldView, 0, len(f.fields))
	for _, fd := range f.fields {
		out = append(out, FieldView{
			Field:    fd,
			Value:    f.values[fd.Name],
			Error:    f.errs[fd.Name],
			Disabled: f.mode == ModeView,
			Required: f.required(fd),
		})
	}
	return out
}

func (f *Form) required(fd Field) bool {
	return fd.Required || (fd.RequiredOnCreate && f.mode == ModeCreate)
}

// Submit validates the draft and hands it to onSave. Invalid drafts never
// reach onSave. A failed save is recorded as the inline form error and the
// draft is left intact.
func (f *Form) Submit(ctx context.Context, onSave func(context.Context, Draft) error) error {
	if f.ReadOnly() {
		return ErrReadOnly
	}
	if err := f.Validate(); err != nil {
		return err
	}
	d, err := f.Draft()
	if err != nil {
		return err
	}

	err = onSave(ctx, d)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.formError = apiclient.Message(err)
		return err
	}
	f.formError = ""
	return nil
}
