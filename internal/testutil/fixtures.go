package testutil

import (
	"github.com/dalemusser/cafehub/internal/domain/models"
)

// Condiciones returns two persisted conditions.
func Condiciones() []models.Condicion {
	return []models.Condicion{
		{Base: models.Base{ID: "1", Status: models.Bool(true)}, Nombre: "Sordera", Descripcion: "Pérdida auditiva"},
		{Base: models.Base{ID: "2", Status: models.Bool(false)}, Nombre: "Baja visión", Descripcion: "Visión reducida"},
	}
}

// Productos returns three persisted menu products.
func Productos() []models.Producto {
	return []models.Producto{
		{Base: models.Base{ID: "10", Status: models.Bool(true)}, Nombre: "Café americano", Precio: 35, Descripcion: "Taza de 12 oz", Categoria: "Bebidas", Codigo: "CAF-01"},
		{Base: models.Base{ID: "11", Status: models.Bool(true)}, Nombre: "Capuchino", Precio: 45, Descripcion: "Con leche espumada", Categoria: "Bebidas", Codigo: "CAF-02"},
		{Base: models.Base{ID: "12", Status: models.Bool(true)}, Nombre: "Pan de elote", Precio: 30, Descripcion: "Rebanada", Categoria: "Postres", Codigo: "POS-01"},
	}
}

// Senas returns persisted sign-language videos.
func Senas() []models.Sena {
	return []models.Sena{
		{Base: models.Base{ID: "7", Status: models.Bool(true)}, Nombre: "Café", Video: "https://files.example.com/senas/1700000000000-abc.mp4"},
	}
}
