// internal/app/features/storefront/routes.go
package storefront

import "github.com/go-chi/chi/v5"

// Routes mounts the public pages at the site root.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeHome)
	r.Get("/productos", h.ServeProducts)
	r.Get("/productos/{id}", h.ServeProduct)
	r.Get("/blog", h.ServeBlog)
	r.Get("/blog/{id}", h.ServePost)
	r.Get("/talleres", h.ServeWorkshops)
	r.Get("/talleres/{id}", h.ServeWorkshop)
	r.Get("/tienda", h.ServeShop)
	return r
}
