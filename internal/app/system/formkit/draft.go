// internal/app/system/formkit/draft.go
package formkit

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

// Draft is the typed payload produced at submission. It carries "id" only
// when the form edits an existing record.
type Draft map[string]any

// Key returns the record key carried by the draft, if any.
func (d Draft) Key() string {
	s, _ := d["id"].(string)
	return s
}

// Draft coerces the string state to backend types. Blank optional numbers
// become nil so the backend sees null rather than zero.
func (f *Form) Draft() (Draft, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	d := Draft{}
	if f.key != "" {
		d["id"] = f.key
	}
	for _, fd := range f.fields {
		raw := strings.TrimSpace(f.values[fd.Name])
		if raw == "" && fd.OmitEmpty {
			continue
		}
		switch fd.KindOrDefault() {
		case KindInt:
			if raw == "" {
				d[fd.Name] = nil
				continue
			}
			n, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("formkit: %s: %w", fd.Name, err)
			}
			d[fd.Name] = n
		case KindFloat:
			if raw == "" {
				d[fd.Name] = nil
				continue
			}
			n, err := parseFloat(raw)
			if err != nil {
				return nil, fmt.Errorf("formkit: %s: %w", fd.Name, err)
			}
			d[fd.Name] = n
		case KindBool:
			b, _ := strconv.ParseBool(raw)
			d[fd.Name] = b
		default:
			d[fd.Name] = f.values[fd.Name]
		}
	}
	return d, nil
}

// Decode turns a draft into a record. Field names follow the records' json
// tags and embedded structs are flattened.
func Decode[T any](d Draft) (T, error) {
	var out T
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Squash:           true,
		WeaklyTypedInput: true,
		Result:           &out,
	})
	if err != nil {
		return out, err
	}
	if err := dec.Decode(map[string]any(d)); err != nil {
		return out, fmt.Errorf("formkit: decode draft: %w", err)
	}
	return out, nil
}
