// internal/domain/models/catalog.go
package models

// Producto is a café menu item. It may be linked to the sign-language video
// that names it.
type Producto struct {
	Base
	Nombre      string  `json:"nombre"`
	Precio      float64 `json:"precio"`
	Descripcion string  `json:"descripcion"`
	Categoria   string  `json:"categoria"`
	Codigo      string  `json:"codigo"`
	Foto        string  `json:"foto"`
	Sena        *Sena   `json:"sena,omitempty"`
}

func (p Producto) Label() string { return p.Nombre }

// Sena is a sign-language video.
type Sena struct {
	Base
	Nombre string `json:"nombre"`
	Video  string `json:"video"`
}

func (s Sena) Label() string { return s.Nombre }

// ProductoTienda is an item sold in the online store.
type ProductoTienda struct {
	Base
	Nombre          string   `json:"nombre"`
	Descripcion     string   `json:"descripcion"`
	Precio          float64  `json:"precio"`
	Categoria       string   `json:"categoria"`
	Imagen          string   `json:"imagen"`
	Descuento       float64  `json:"descuento"`
	Caracteristicas string   `json:"caracteristicas"`
	Stock           int      `json:"stock"`
	Peso            *float64 `json:"peso"`
	Dimensiones     string   `json:"dimensiones"`
}

func (p ProductoTienda) Label() string { return p.Nombre }

// FinalPrice applies the percentage discount.
func (p ProductoTienda) FinalPrice() float64 {
	if p.Descuento <= 0 {
		return p.Precio
	}
	return p.Precio * (1 - p.Descuento/100)
}
