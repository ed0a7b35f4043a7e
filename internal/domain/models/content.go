// internal/domain/models/content.go
package models

import (
	"sort"
	"time"
)

// Publicacion is a blog post.
type Publicacion struct {
	Base
	Titulo           string `json:"titulo"`
	Contenido        string `json:"contenido"`
	Imagen           string `json:"imagen"`
	FechaPublicacion string `json:"fechaPublicacion,omitempty"`
}

func (p Publicacion) Label() string { return p.Titulo }

// PublishedAt parses FechaPublicacion. Unparseable dates yield the zero time.
func (p Publicacion) PublishedAt() time.Time {
	return ParseDate(p.FechaPublicacion)
}

// SortPostsNewestFirst orders posts by publication date, newest first.
func SortPostsNewestFirst(posts []Publicacion) {
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].PublishedAt().After(posts[j].PublishedAt())
	})
}

// Taller is a workshop offered by the café.
type Taller struct {
	Base
	Nombre      string   `json:"nombre"`
	Descripcion string   `json:"descripcion"`
	FechaInicio string   `json:"fechaInicio"`
	FechaFin    string   `json:"fechaFin"`
	HoraInicio  string   `json:"horaInicio"`
	HoraFin     string   `json:"horaFin"`
	Instructor  string   `json:"instructor"`
	Cupos       *int     `json:"cupos"`
	Precio      *float64 `json:"precio"`
	Ubicacion   string   `json:"ubicacion"`
	Requisitos  string   `json:"requisitos"`
	Imagen      string   `json:"imagen"`
}

func (t Taller) Label() string { return t.Nombre }

// StartsAt parses FechaInicio. Unparseable dates yield the zero time.
func (t Taller) StartsAt() time.Time {
	return ParseDate(t.FechaInicio)
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseDate accepts the date shapes the backend emits.
func ParseDate(s string) time.Time {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
