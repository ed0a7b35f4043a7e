// internal/app/system/formkit/validate.go
package formkit

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidationError lists the fields that blocked a submission.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for n := range e.Fields {
		names = append(names, n)
	}
	sort.Strings(names)
	return "formkit: invalid fields: " + strings.Join(names, ", ")
}

// Validate checks every field and records per-field messages. It makes no
// network calls.
func (f *Form) Validate() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	errs := map[string]string{}
	for _, fd := range f.fields {
		if msg := f.checkField(fd, strings.TrimSpace(f.values[fd.Name])); msg != "" {
			errs[fd.Name] = msg
		}
	}
	f.errs = errs
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

func (f *Form) checkField(fd Field, v string) string {
	label := fd.displayLabel()
	if v == "" {
		if f.required(fd) {
			return fmt.Sprintf("%s es obligatorio", label)
		}
		return ""
	}

	var value any = v
	switch fd.KindOrDefault() {
	case KindInt:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Sprintf("%s debe ser un número entero", label)
		}
		value = n
	case KindFloat:
		n, err := parseFloat(v)
		if err != nil {
			return fmt.Sprintf("%s debe ser un número", label)
		}
		value = n
	case KindBool:
		if _, err := strconv.ParseBool(v); err != nil {
			return fmt.Sprintf("%s no es válido", label)
		}
		return ""
	}

	if fd.Rules == "" {
		return ""
	}
	if err := validate.Var(value, fd.Rules); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return ruleMessage(label, verrs[0].Tag(), verrs[0].Param(), fd.KindOrDefault())
		}
		return fmt.Sprintf("%s no es válido", label)
	}
	return ""
}

// parseFloat accepts a decimal comma as typed on Spanish keyboards.
func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
}

func ruleMessage(label, tag, param string, kind Kind) string {
	numeric := kind == KindInt || kind == KindFloat
	switch tag {
	case "gt":
		return fmt.Sprintf("%s debe ser mayor que %s", label, param)
	case "gte":
		return fmt.Sprintf("%s debe ser mayor o igual que %s", label, param)
	case "lt":
		return fmt.Sprintf("%s debe ser menor que %s", label, param)
	case "lte":
		return fmt.Sprintf("%s debe ser menor o igual que %s", label, param)
	case "min":
		if numeric {
			return fmt.Sprintf("%s debe ser al menos %s", label, param)
		}
		return fmt.Sprintf("%s debe tener al menos %s caracteres", label, param)
	case "max":
		if numeric {
			return fmt.Sprintf("%s no puede superar %s", label, param)
		}
		return fmt.Sprintf("%s no puede tener más de %s caracteres", label, param)
	case "email":
		return fmt.Sprintf("%s no es un correo válido", label)
	case "url", "http_url":
		return fmt.Sprintf("%s no es una URL válida", label)
	case "oneof":
		return fmt.Sprintf("%s no es una opción válida", label)
	}
	return fmt.Sprintf("%s no es válido", label)
}
