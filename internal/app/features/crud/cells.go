// internal/app/features/crud/cells.go
package crud

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/dalemusser/cafehub/internal/app/resources"
	"github.com/dalemusser/cafehub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
)

const truncateAt = 80

// cellVM is one rendered table cell.
type cellVM struct {
	Text   string
	URL    string
	Format string
}

// recordMap flattens a record to its JSON shape so descriptor columns can
// address it by dotted path.
func recordMap(rec any) map[string]any {
	raw, err := json.Marshal(rec)
	if err != nil {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil
	}
	return m
}

// lookup reads a dotted path from m as text. Missing values are "".
func lookup(m map[string]any, key string) (string, bool) {
	var cur any = m
	for _, part := range strings.Split(key, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return "", false
		}
		if cur, ok = obj[part]; !ok || cur == nil {
			return "", false
		}
	}
	switch v := cur.(type) {
	case string:
		return v, true
	case json.Number:
		return v.String(), true
	case bool:
		return strconv.FormatBool(v), true
	}
	return fmt.Sprint(cur), true
}

// formatCell renders one value. proxy turns a stored file reference into a
// browser URL.
func formatCell(col resources.Column, m map[string]any, proxy func(string) string) cellVM {
	raw, present := lookup(m, col.Key)
	c := cellVM{Format: col.Format}
	switch col.Format {
	case resources.FormatMoney:
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			c.Text = fmt.Sprintf("$%.2f", f)
		}
	case resources.FormatPercent:
		if raw != "" {
			c.Text = raw + "%"
		}
	case resources.FormatStatus:
		// An absent flag counts as active.
		if !present || raw == "true" {
			c.Text = "Activo"
		} else {
			c.Text = "Inactivo"
		}
	case resources.FormatDate:
		if t := models.ParseDate(raw); !t.IsZero() {
			c.Text = t.Format("02/01/2006")
		} else {
			c.Text = raw
		}
	case resources.FormatImage, resources.FormatVideo, resources.FormatLink:
		c.URL = proxy(raw)
	case resources.FormatTruncate:
		c.Text = truncate(raw, truncateAt)
	default:
		c.Text = raw
	}
	return c
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "…"
}

// searchMatcher searches the given columns, or the label when none are
// declared.
func searchMatcher[T models.Record](keys []string) func(rec T, folded string) bool {
	return func(rec T, folded string) bool {
		if len(keys) == 0 {
			return strings.Contains(text.Fold(rec.Label()), folded)
		}
		m := recordMap(rec)
		for _, k := range keys {
			if v, ok := lookup(m, k); ok && strings.Contains(text.Fold(v), folded) {
				return true
			}
		}
		return false
	}
}
