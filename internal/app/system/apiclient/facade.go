// internal/app/system/apiclient/facade.go
package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"github.com/dalemusser/cafehub/internal/domain/models"
)

// Collection paths on the backend.
const (
	PathProductos       = "/productos"
	PathSenas           = "/senas"
	PathMeseros         = "/meseros"
	PathCondiciones     = "/condiciones"
	PathCandidatos      = "/candidatos"
	PathPublicaciones   = "/publicaciones"
	PathTalleres        = "/talleres"
	PathUsuarios        = "/usuarios"
	PathProductosTienda = "/productos-tienda"
	PathRoles           = "/roles"
)

/*─────────────────────────────────────────────────────────────────────────────*
| Admin: full back-office façade                                               |
*─────────────────────────────────────────────────────────────────────────────*/

// Admin exposes create/update/delete for every resource. Only the
// back-office holds one.
type Admin struct {
	client *Client

	Productos       *Resource[models.Producto]
	Senas           *Resource[models.Sena]
	Meseros         *Resource[models.Mesero]
	Condiciones     *Resource[models.Condicion]
	Candidatos      *Resource[models.Candidato]
	Publicaciones   *Resource[models.Publicacion]
	Talleres        *Resource[models.Taller]
	Usuarios        *Resource[models.Usuario]
	ProductosTienda *Resource[models.ProductoTienda]
	roles           *Resource[models.Rol]
}

// NewAdmin builds the admin façade over c.
func NewAdmin(c *Client) *Admin {
	return &Admin{
		client:          c,
		Productos:       NewResource[models.Producto](c, PathProductos),
		Senas:           NewResource[models.Sena](c, PathSenas),
		Meseros:         NewResource[models.Mesero](c, PathMeseros),
		Condiciones:     NewResource[models.Condicion](c, PathCondiciones),
		Candidatos:      NewResource[models.Candidato](c, PathCandidatos),
		Publicaciones:   NewResource[models.Publicacion](c, PathPublicaciones),
		Talleres:        NewResource[models.Taller](c, PathTalleres),
		Usuarios:        NewResource[models.Usuario](c, PathUsuarios),
		ProductosTienda: NewResource[models.ProductoTienda](c, PathProductosTienda),
		roles:           NewResource[models.Rol](c, PathRoles),
	}
}

// Client returns the underlying transport.
func (a *Admin) Client() *Client { return a.client }

// Catalog narrows the admin façade to the read-only storefront view.
func (a *Admin) Catalog() *Catalog { return NewCatalog(a.client) }

// Roles lists the user roles offered by the users form.
func (a *Admin) Roles(ctx context.Context) ([]models.Rol, error) {
	return a.roles.List(ctx)
}

// ProductsBySena lists the products linked to one sign-language video.
func (a *Admin) ProductsBySena(ctx context.Context, senaKey string) ([]models.Producto, error) {
	return a.Productos.ListAt(ctx, PathProductos+"/sena/"+url.PathEscape(senaKey))
}

// AssignSena links a product to a sign-language video.
func (a *Admin) AssignSena(ctx context.Context, productKey, senaKey string) (models.Producto, error) {
	endpoint := PathProductos + "/" + url.PathEscape(productKey) + "/sena/" + url.PathEscape(senaKey)
	return decodeOne[models.Producto](a.client.Call(ctx, http.MethodPatch, endpoint, nil))
}

// RemoveSena unlinks a product from its sign-language video.
func (a *Admin) RemoveSena(ctx context.Context, productKey string) error {
	endpoint := PathProductos + "/" + url.PathEscape(productKey) + "/sena"
	res := a.client.Call(ctx, http.MethodDelete, endpoint, nil)
	if !res.Success {
		return res.AsError()
	}
	return nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Catalog: read-only storefront façade                                         |
*─────────────────────────────────────────────────────────────────────────────*/

// Catalog offers list/get for the public pages and nothing else.
type Catalog struct {
	productos       *Resource[models.Producto]
	publicaciones   *Resource[models.Publicacion]
	talleres        *Resource[models.Taller]
	productosTienda *Resource[models.ProductoTienda]
}

// NewCatalog builds the read-only façade over c.
func NewCatalog(c *Client) *Catalog {
	return &Catalog{
		productos:       NewResource[models.Producto](c, PathProductos),
		publicaciones:   NewResource[models.Publicacion](c, PathPublicaciones),
		talleres:        NewResource[models.Taller](c, PathTalleres),
		productosTienda: NewResource[models.ProductoTienda](c, PathProductosTienda),
	}
}

func (c *Catalog) Products(ctx context.Context) ([]models.Producto, error) {
	return c.productos.List(ctx)
}

func (c *Catalog) Product(ctx context.Context, key string) (models.Producto, error) {
	return c.productos.Get(ctx, key)
}

// Posts returns every post, newest first.
func (c *Catalog) Posts(ctx context.Context) ([]models.Publicacion, error) {
	posts, err := c.publicaciones.List(ctx)
	if err != nil {
		return nil, err
	}
	models.SortPostsNewestFirst(posts)
	return posts, nil
}

func (c *Catalog) Post(ctx context.Context, key string) (models.Publicacion, error) {
	return c.publicaciones.Get(ctx, key)
}

func (c *Catalog) Workshops(ctx context.Context) ([]models.Taller, error) {
	return c.talleres.List(ctx)
}

func (c *Catalog) Workshop(ctx context.Context, key string) (models.Taller, error) {
	return c.talleres.Get(ctx, key)
}

func (c *Catalog) StoreProducts(ctx context.Context) ([]models.ProductoTienda, error) {
	return c.productosTienda.List(ctx)
}

func (c *Catalog) StoreProductsByCategory(ctx context.Context, categoria string) ([]models.ProductoTienda, error) {
	return c.productosTienda.ListAt(ctx, PathProductosTienda+"/categoria/"+url.PathEscape(categoria))
}

func (c *Catalog) SearchStoreProducts(ctx context.Context, nombre string) ([]models.ProductoTienda, error) {
	return c.productosTienda.ListAt(ctx, PathProductosTienda+"/buscar?nombre="+url.QueryEscape(nombre))
}
