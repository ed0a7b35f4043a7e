// internal/app/system/formkit/field.go
package formkit

import "strings"

// Kind is the backend type a field's string value is coerced to on submit.
type Kind string

const (
	KindString Kind = "string"
	KindInt    Kind = "int"
	KindFloat  Kind = "float"
	KindBool   Kind = "bool"
)

// Input widgets understood by the shared form template.
const (
	InputText     = "text"
	InputTextarea = "textarea"
	InputEmail    = "email"
	InputURL      = "url"
	InputPassword = "password"
	InputNumber   = "number"
	InputSelect   = "select"
	InputCheckbox = "checkbox"
	InputDate     = "date"
	InputTime     = "time"
	InputDateTime = "datetime-local"
	InputFile     = "file"
	InputRichText = "richtext"
)

// Option is one choice of a select field.
type Option struct {
	Value string `yaml:"value"`
	Label string `yaml:"label"`
}

// Field describes one editable attribute of a resource.
type Field struct {
	Name  string `yaml:"name"`
	Label string `yaml:"label"`
	Input string `yaml:"input"`
	Kind  Kind   `yaml:"kind"`

	// Source is the dotted path the initial value is read from when it
	// differs from Name (e.g. "condicion.id" for condicionId).
	Source string `yaml:"source"`

	Default          string `yaml:"default"`
	Placeholder      string `yaml:"placeholder"`
	Required         bool   `yaml:"required"`
	RequiredOnCreate bool   `yaml:"required_on_create"`
	Rules            string `yaml:"rules"`

	// OmitEmpty drops the field from the draft when blank (passwords on
	// update).
	OmitEmpty bool `yaml:"omit_empty"`

	Options     []Option `yaml:"options"`
	OptionsFrom string   `yaml:"options_from"`

	// File fields.
	Accept    string `yaml:"accept"`
	MaxSizeMB int    `yaml:"max_size_mb"`
	Folder    string `yaml:"folder"`
}

// KindOrDefault resolves the coercion kind from Kind or the input widget.
func (f Field) KindOrDefault() Kind {
	if f.Kind != "" {
		return f.Kind
	}
	switch f.Input {
	case InputCheckbox:
		return KindBool
	case InputNumber:
		return KindFloat
	}
	return KindString
}

// InputOrDefault returns the widget, defaulting to a text box.
func (f Field) InputOrDefault() string {
	if f.Input == "" {
		return InputText
	}
	return f.Input
}

// IsFile reports whether the field is backed by the upload helper.
func (f Field) IsFile() bool { return f.Input == InputFile }

func (f Field) sourcePath() []string {
	src := f.Source
	if src == "" {
		src = f.Name
	}
	return strings.Split(src, ".")
}

func (f Field) displayLabel() string {
	if f.Label != "" {
		return f.Label
	}
	return f.Name
}
