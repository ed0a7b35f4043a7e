package storefront

import (
	"testing"
	"time"

	"github.com/dalemusser/cafehub/internal/domain/models"
	"github.com/google/go-cmp/cmp"
)

func productKeys(ps []models.Producto) []string {
	var out []string
	for _, p := range ps {
		out = append(out, p.Key())
	}
	return out
}

var catalog = []models.Producto{
	{Base: models.Base{ID: "1"}, Nombre: "Espresso", Precio: 30, Categoria: "Café", Descripcion: "Doble"},
	{Base: models.Base{ID: "2"}, Nombre: "Pastel de zanahoria", Precio: 65, Categoria: "Pastelería", Descripcion: "Rebanada"},
	{Base: models.Base{ID: "3"}, Nombre: "Taza", Precio: 150, Categoria: "Accesorios", Descripcion: "Cerámica con logo del café"},
	{Base: models.Base{ID: "4"}, Nombre: "Molino", Precio: 900, Categoria: "Accesorios", Descripcion: "Manual"},
}

func TestFilterProducts(t *testing.T) {
	tests := []struct {
		name   string
		filter ProductFilter
		want   []string
	}{
		{"no filter", ProductFilter{}, []string{"1", "2", "3", "4"}},
		{"category ignores case", ProductFilter{Category: "accesorios"}, []string{"3", "4"}},
		{"bounded price is inclusive", ProductFilter{Price: "30-65"}, []string{"1", "2"}},
		{"open price range", ProductFilter{Price: "200+"}, []string{"4"}},
		{"bad price range ignored", ProductFilter{Price: "barato"}, []string{"1", "2", "3", "4"}},
		{"query ignores case", ProductFilter{Query: "CAFÉ"}, []string{"1", "3"}},
		{"combined", ProductFilter{Category: "Accesorios", Price: "100-200"}, []string{"3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := productKeys(FilterProducts(catalog, tt.filter))
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("keys (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFilterPosts(t *testing.T) {
	posts := []models.Publicacion{
		{Base: models.Base{ID: "1"}, Titulo: "Nuevo menú", Contenido: "Llegan los postres de temporada"},
		{Base: models.Base{ID: "2"}, Titulo: "Taller de señas", Contenido: "Inscripciones abiertas"},
	}
	if got := FilterPosts(posts, ""); len(got) != 2 {
		t.Errorf("empty query: got %d posts, want 2", len(got))
	}
	if got := FilterPosts(posts, "  "); len(got) != 2 {
		t.Errorf("blank query: got %d posts, want 2", len(got))
	}
	got := FilterPosts(posts, "postres")
	if len(got) != 1 || got[0].Key() != "1" {
		t.Errorf("content match: got %+v", got)
	}
	got = FilterPosts(posts, "SEÑAS")
	if len(got) != 1 || got[0].Key() != "2" {
		t.Errorf("title match: got %+v", got)
	}
}

func TestFilterWorkshops(t *testing.T) {
	ws := []models.Taller{
		{Base: models.Base{ID: "1"}, Nombre: "Barismo básico", FechaInicio: "2026-03-10"},
		{Base: models.Base{ID: "2"}, Nombre: "Señas I", Descripcion: "Vocabulario de cafetería", FechaInicio: "2026-04-02T10:00:00"},
		{Base: models.Base{ID: "3"}, Nombre: "Sin fecha"},
	}
	tests := []struct {
		month, query string
		want         []string
	}{
		{"", "", []string{"1", "2", "3"}},
		{"3", "", []string{"1"}},
		{"4", "", []string{"2"}},
		{"", "cafetería", []string{"2"}},
		{"3", "señas", nil},
	}
	for _, tt := range tests {
		var got []string
		for _, w := range FilterWorkshops(ws, tt.month, tt.query) {
			got = append(got, w.Key())
		}
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("month=%q q=%q (-want +got):\n%s", tt.month, tt.query, diff)
		}
	}
}

func TestUpcomingWorkshops(t *testing.T) {
	now := time.Date(2026, 5, 15, 18, 0, 0, 0, time.UTC)
	ws := []models.Taller{
		{Base: models.Base{ID: "past"}, FechaInicio: "2026-05-14"},
		{Base: models.Base{ID: "today"}, FechaInicio: "2026-05-15"},
		{Base: models.Base{ID: "late"}, FechaInicio: "2026-07-01"},
		{Base: models.Base{ID: "soon"}, FechaInicio: "2026-06-01"},
		{Base: models.Base{ID: "later"}, FechaInicio: "2026-08-01"},
		{Base: models.Base{ID: "undated"}},
	}
	var got []string
	for _, w := range UpcomingWorkshops(ws, now, 3) {
		got = append(got, w.Key())
	}
	if diff := cmp.Diff([]string{"today", "soon", "late"}, got); diff != "" {
		t.Errorf("upcoming (-want +got):\n%s", diff)
	}
}
