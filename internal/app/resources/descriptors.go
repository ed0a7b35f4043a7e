// internal/app/resources/descriptors.go
package resources

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/dalemusser/cafehub/internal/app/system/formkit"
	"github.com/dalemusser/cafehub/internal/app/system/listctl"
	"gopkg.in/yaml.v3"
)

//go:embed descriptors/*.yaml
var descriptorFS embed.FS

// Column formats understood by the shared list template.
const (
	FormatText     = ""
	FormatMoney    = "money"
	FormatPercent  = "percent"
	FormatStatus   = "status"
	FormatDate     = "date"
	FormatImage    = "image"
	FormatVideo    = "video"
	FormatLink     = "link"
	FormatTruncate = "truncate"
)

// Column is one table column. Key is a dotted path into the record's JSON.
type Column struct {
	Key    string `yaml:"key"`
	Label  string `yaml:"label"`
	Format string `yaml:"format"`
}

// Filter is a backend-side list filter. Endpoint uses {v} for a path value
// and {q} for a query value.
type Filter struct {
	Name     string           `yaml:"name"`
	Label    string           `yaml:"label"`
	Endpoint string           `yaml:"endpoint"`
	Options  []formkit.Option `yaml:"options"`
}

// Messages are the alert and dialog texts of one resource.
type Messages struct {
	Created       string `yaml:"created"`
	Updated       string `yaml:"updated"`
	Deleted       string `yaml:"deleted"`
	LoadFailed    string `yaml:"load_failed"`
	DeleteFailed  string `yaml:"delete_failed"`
	ConfirmDelete string `yaml:"confirm_delete"`
}

// Descriptor is the data that turns the generic list controller and form
// into one back-office screen.
type Descriptor struct {
	Name     string          `yaml:"name"`
	Title    string          `yaml:"title"`
	Singular string          `yaml:"singular"`
	Endpoint string          `yaml:"endpoint"`
	Order    int             `yaml:"order"`
	Roles    []string        `yaml:"roles"`
	Columns  []Column        `yaml:"columns"`
	Search   []string        `yaml:"search"`
	Filters  []Filter        `yaml:"filters"`
	Fields   []formkit.Field `yaml:"fields"`
	Messages Messages        `yaml:"messages"`
}

// FilterEndpoints maps filter names to endpoint templates.
func (d Descriptor) FilterEndpoints() map[string]string {
	if len(d.Filters) == 0 {
		return nil
	}
	m := make(map[string]string, len(d.Filters))
	for _, f := range d.Filters {
		m[f.Name] = f.Endpoint
	}
	return m
}

// ListMessages converts the descriptor texts for the list controller.
// Blank entries keep the controller's defaults.
func (d Descriptor) ListMessages() listctl.Messages {
	return listctl.Messages{
		Created:       d.Messages.Created,
		Updated:       d.Messages.Updated,
		Deleted:       d.Messages.Deleted,
		LoadFailed:    d.Messages.LoadFailed,
		DeleteFailed:  d.Messages.DeleteFailed,
		ConfirmDelete: d.Messages.ConfirmDelete,
	}
}

// FileFields returns the upload fields.
func (d Descriptor) FileFields() []formkit.Field {
	var out []formkit.Field
	for _, f := range d.Fields {
		if f.IsFile() {
			out = append(out, f)
		}
	}
	return out
}

// Field returns the field called name.
func (d Descriptor) Field(name string) (formkit.Field, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return formkit.Field{}, false
}

func (d Descriptor) validate() error {
	if d.Name == "" || d.Endpoint == "" {
		return fmt.Errorf("name and endpoint are required")
	}
	if !strings.HasPrefix(d.Endpoint, "/") {
		return fmt.Errorf("endpoint %q must start with /", d.Endpoint)
	}
	if len(d.Fields) == 0 {
		return fmt.Errorf("no fields")
	}
	seen := map[string]bool{}
	for _, f := range d.Fields {
		if f.Name == "" {
			return fmt.Errorf("field without name")
		}
		if seen[f.Name] {
			return fmt.Errorf("duplicate field %q", f.Name)
		}
		seen[f.Name] = true
		if f.Input == formkit.InputSelect && len(f.Options) == 0 && f.OptionsFrom == "" {
			return fmt.Errorf("select %q has no options", f.Name)
		}
	}
	for _, flt := range d.Filters {
		if !strings.Contains(flt.Endpoint, "{v}") && !strings.Contains(flt.Endpoint, "{q}") {
			return fmt.Errorf("filter %q endpoint has no placeholder", flt.Name)
		}
	}
	return nil
}

// Registry holds every descriptor, ordered for navigation.
type Registry struct {
	ordered []Descriptor
	byName  map[string]Descriptor
}

// LoadDescriptors parses the embedded descriptors.
func LoadDescriptors() (*Registry, error) {
	return loadDescriptors(descriptorFS, "descriptors")
}

func loadDescriptors(fsys fs.FS, dir string) (*Registry, error) {
	files, err := fs.Glob(fsys, path.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	reg := &Registry{byName: make(map[string]Descriptor, len(files))}
	for _, name := range files {
		raw, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, err
		}
		var d Descriptor
		if err := yaml.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("descriptor %s: %w", name, err)
		}
		if err := d.validate(); err != nil {
			return nil, fmt.Errorf("descriptor %s: %w", name, err)
		}
		if _, dup := reg.byName[d.Name]; dup {
			return nil, fmt.Errorf("descriptor %s: duplicate resource %q", name, d.Name)
		}
		reg.byName[d.Name] = d
		reg.ordered = append(reg.ordered, d)
	}
	sort.SliceStable(reg.ordered, func(i, j int) bool {
		return reg.ordered[i].Order < reg.ordered[j].Order
	})
	return reg, nil
}

// MustLoadDescriptors is LoadDescriptors for startup code.
func MustLoadDescriptors() *Registry {
	reg, err := LoadDescriptors()
	if err != nil {
		panic(err)
	}
	return reg
}

// All returns the descriptors in navigation order.
func (r *Registry) All() []Descriptor {
	return append([]Descriptor(nil), r.ordered...)
}

// Get returns the descriptor called name.
func (r *Registry) Get(name string) (Descriptor, bool) {
	d, ok := r.byName[name]
	return d, ok
}
