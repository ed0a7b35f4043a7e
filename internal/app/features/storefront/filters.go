// internal/app/features/storefront/filters.go
package storefront

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dalemusser/cafehub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
)

// Storefront filter choices.
var (
	productCategories = []string{"Café", "Pastelería", "Accesorios", "Merchandising"}

	priceRanges = []option{
		{"0-50", "$0 - $50"},
		{"50-100", "$50 - $100"},
		{"100-200", "$100 - $200"},
		{"200+", "$200+"},
	}

	months = []option{
		{"1", "Enero"}, {"2", "Febrero"}, {"3", "Marzo"}, {"4", "Abril"},
		{"5", "Mayo"}, {"6", "Junio"}, {"7", "Julio"}, {"8", "Agosto"},
		{"9", "Septiembre"}, {"10", "Octubre"}, {"11", "Noviembre"}, {"12", "Diciembre"},
	}
)

type option struct {
	Value string
	Label string
}

// ProductFilter narrows the public product list. Zero fields match all.
type ProductFilter struct {
	Category string
	Price    string // "min-max" or "min+"
	Query    string
}

// parsePrice reads "50-100" or "200+". ok is false for anything else.
func parsePrice(s string) (lo, hi float64, bounded, ok bool) {
	s = strings.TrimSpace(s)
	if rest, found := strings.CutSuffix(s, "+"); found {
		v, err := strconv.ParseFloat(rest, 64)
		return v, 0, false, err == nil
	}
	from, to, found := strings.Cut(s, "-")
	if !found {
		return 0, 0, false, false
	}
	a, err1 := strconv.ParseFloat(from, 64)
	b, err2 := strconv.ParseFloat(to, 64)
	if err1 != nil || err2 != nil {
		return 0, 0, false, false
	}
	return a, b, true, true
}

// FilterProducts applies category (exact, case-insensitive), price range
// (inclusive) and a free-text query over name, description and category.
// An unparseable price range is ignored.
func FilterProducts(in []models.Producto, f ProductFilter) []models.Producto {
	cat := text.Fold(f.Category)
	q := text.Fold(strings.TrimSpace(f.Query))
	lo, hi, bounded, priced := parsePrice(f.Price)

	out := make([]models.Producto, 0, len(in))
	for _, p := range in {
		if cat != "" && text.Fold(p.Categoria) != cat {
			continue
		}
		if priced && (p.Precio < lo || (bounded && p.Precio > hi)) {
			continue
		}
		if q != "" &&
			!strings.Contains(text.Fold(p.Nombre), q) &&
			!strings.Contains(text.Fold(p.Descripcion), q) &&
			!strings.Contains(text.Fold(p.Categoria), q) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// FilterPosts matches the query against title and content. posts keep
// their order.
func FilterPosts(in []models.Publicacion, query string) []models.Publicacion {
	q := text.Fold(strings.TrimSpace(query))
	if q == "" {
		return in
	}
	var out []models.Publicacion
	for _, p := range in {
		if strings.Contains(text.Fold(p.Titulo), q) || strings.Contains(text.Fold(p.Contenido), q) {
			out = append(out, p)
		}
	}
	return out
}

// FilterWorkshops keeps workshops starting in month ("1".."12", empty for
// any) whose name or description contains query.
func FilterWorkshops(in []models.Taller, month, query string) []models.Taller {
	q := text.Fold(strings.TrimSpace(query))
	m, _ := strconv.Atoi(month)

	var out []models.Taller
	for _, t := range in {
		if m != 0 {
			start := t.StartsAt()
			if start.IsZero() || int(start.Month()) != m {
				continue
			}
		}
		if q != "" && !strings.Contains(text.Fold(t.Nombre), q) && !strings.Contains(text.Fold(t.Descripcion), q) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// UpcomingWorkshops returns up to n workshops starting today or later,
// soonest first.
func UpcomingWorkshops(in []models.Taller, now time.Time, n int) []models.Taller {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	var out []models.Taller
	for _, t := range in {
		if start := t.StartsAt(); !start.IsZero() && !start.Before(today) {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartsAt().Before(out[j].StartsAt())
	})
	return firstN(out, n)
}

func firstN[T any](rows []T, n int) []T {
	if len(rows) > n {
		return rows[:n]
	}
	return rows
}
