// internal/app/features/storefront/handler.go
package storefront

import (
	"context"
	"errors"
	"html/template"
	"net/http"

	uierrors "github.com/dalemusser/cafehub/internal/app/features/errors"
	"github.com/dalemusser/cafehub/internal/app/system/apiclient"
	"github.com/dalemusser/cafehub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/cafehub/internal/app/system/paging"
	"github.com/dalemusser/cafehub/internal/app/system/timeouts"
	"github.com/dalemusser/cafehub/internal/app/system/viewdata"
	"github.com/dalemusser/cafehub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Home page section sizes.
const (
	homeFeatured = 3
	homePosts    = 3
	homeUpcoming = 3
	recentPosts  = 5
	excerptLen   = 160
)

// FileURLs turns stored file references into browser URLs.
type FileURLs interface {
	ProxyURL(ref string) string
}

// Handler serves the public pages. It only ever holds the read-only
// catalog.
type Handler struct {
	Catalog *apiclient.Catalog
	Files   FileURLs
	ErrLog  *uierrors.ErrorLogger
	Clock   clockwork.Clock
	Log     *zap.Logger

	// Render writes a page; tests replace it.
	Render func(w http.ResponseWriter, r *http.Request, name string, data any)
}

func NewHandler(catalog *apiclient.Catalog, files FileURLs, errLog *uierrors.ErrorLogger, clock clockwork.Clock, logger *zap.Logger) *Handler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Handler{
		Catalog: catalog,
		Files:   files,
		ErrLog:  errLog,
		Clock:   clock,
		Log:     logger,
		Render:  templates.Render,
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| View models                                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

type productVM struct {
	models.Producto
	ImageURL string
}

type postVM struct {
	models.Publicacion
	ImageURL string
	Excerpt  string
}

type workshopVM struct {
	models.Taller
	ImageURL string
}

type shopItemVM struct {
	models.ProductoTienda
	ImageURL string
}

func (h *Handler) products(in []models.Producto) []productVM {
	out := make([]productVM, 0, len(in))
	for _, p := range in {
		out = append(out, productVM{Producto: p, ImageURL: h.Files.ProxyURL(p.Foto)})
	}
	return out
}

func (h *Handler) posts(in []models.Publicacion) []postVM {
	out := make([]postVM, 0, len(in))
	for _, p := range in {
		out = append(out, postVM{
			Publicacion: p,
			ImageURL:    h.Files.ProxyURL(p.Imagen),
			Excerpt:     htmlsanitize.Excerpt(p.Contenido, excerptLen),
		})
	}
	return out
}

func (h *Handler) workshops(in []models.Taller) []workshopVM {
	out := make([]workshopVM, 0, len(in))
	for _, t := range in {
		out = append(out, workshopVM{Taller: t, ImageURL: h.Files.ProxyURL(t.Imagen)})
	}
	return out
}

// pagerVM carries the current filters so page links keep them.
type pagerVM struct {
	paging.Range
	Query template.URL // "k=v&" prefix, or empty
}

func newPager(r *http.Request, rg paging.Range) pagerVM {
	q := r.URL.Query()
	q.Del("page")
	for k, v := range q {
		if len(v) == 0 || v[0] == "" {
			q.Del(k)
		}
	}
	enc := q.Encode()
	if enc != "" {
		enc += "&"
	}
	return pagerVM{Range: rg, Query: template.URL(enc)}
}

type homeData struct {
	viewdata.BaseVM
	Featured     []productVM
	Posts        []postVM
	Upcoming     []workshopVM
	ProductsErr  string
	PostsErr     string
	WorkshopsErr string
}

type productsData struct {
	viewdata.BaseVM
	Products   []productVM
	Filter     ProductFilter
	Categories []string
	Prices     []option
	Pager      pagerVM
	Error      string
}

type blogData struct {
	viewdata.BaseVM
	Posts  []postVM
	Recent []postVM
	Query  string
	Pager  pagerVM
	Error  string
}

type workshopsData struct {
	viewdata.BaseVM
	Workshops []workshopVM
	Month     string
	Query     string
	Months    []option
	Pager     pagerVM
	Error     string
}

type shopData struct {
	viewdata.BaseVM
	Products []shopItemVM
	Category string
	Query    string
	Error    string
}

type detailData[T any] struct {
	viewdata.BaseVM
	Item     T
	ImageURL string
	VideoURL string
	Body     template.HTML
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /                                                                       |
*─────────────────────────────────────────────────────────────────────────────*/

// ServeHome loads the three home sections concurrently. A failing section
// shows its own message; the others still render.
func (h *Handler) ServeHome(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	data := homeData{BaseVM: viewdata.NewBaseVM(r, "Inicio", "/")}

	var g errgroup.Group
	g.Go(func() error {
		products, err := h.Catalog.Products(ctx)
		if err != nil {
			data.ProductsErr = h.listError("productos", err)
			return nil
		}
		data.Featured = h.products(firstN(products, homeFeatured))
		return nil
	})
	g.Go(func() error {
		posts, err := h.Catalog.Posts(ctx)
		if err != nil {
			data.PostsErr = h.listError("publicaciones", err)
			return nil
		}
		data.Posts = h.posts(firstN(posts, homePosts))
		return nil
	})
	g.Go(func() error {
		workshops, err := h.Catalog.Workshops(ctx)
		if err != nil {
			data.WorkshopsErr = h.listError("talleres", err)
			return nil
		}
		data.Upcoming = h.workshops(UpcomingWorkshops(workshops, h.Clock.Now(), homeUpcoming))
		return nil
	})
	_ = g.Wait()

	h.Render(w, r, "store_home", data)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /productos                                                              |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	data := productsData{
		BaseVM: viewdata.NewBaseVM(r, "Nuestros productos", "/"),
		Filter: ProductFilter{
			Category: query.Get(r, "categoria"),
			Price:    query.Get(r, "precio"),
			Query:    query.Get(r, "q"),
		},
		Categories: productCategories,
		Prices:     priceRanges,
	}

	products, err := h.Catalog.Products(ctx)
	if err != nil {
		data.Error = h.listError("productos", err)
	}
	page, rg := paging.Slice(FilterProducts(products, data.Filter), paging.ParsePage(r), paging.ProductsPerPage)
	data.Products, data.Pager = h.products(page), newPager(r, rg)

	h.Render(w, r, "store_products", data)
}

func (h *Handler) ServeProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	p, err := h.Catalog.Product(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.detailError(w, r, "producto", "/productos", err)
		return
	}
	data := detailData[models.Producto]{
		BaseVM:   viewdata.NewBaseVM(r, p.Nombre, "/productos"),
		Item:     p,
		ImageURL: h.Files.ProxyURL(p.Foto),
		Body:     htmlsanitize.PrepareForDisplay(p.Descripcion),
	}
	if p.Sena != nil {
		data.VideoURL = h.Files.ProxyURL(p.Sena.Video)
	}
	h.Render(w, r, "store_product", data)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /blog                                                                   |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeBlog(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	data := blogData{
		BaseVM: viewdata.NewBaseVM(r, "Blog", "/"),
		Query:  query.Get(r, "q"),
	}

	posts, err := h.Catalog.Posts(ctx)
	if err != nil {
		data.Error = h.listError("publicaciones", err)
	}
	data.Recent = h.posts(firstN(posts, recentPosts))
	page, rg := paging.Slice(FilterPosts(posts, data.Query), paging.ParsePage(r), paging.PostsPerPage)
	data.Posts, data.Pager = h.posts(page), newPager(r, rg)

	h.Render(w, r, "store_blog", data)
}

func (h *Handler) ServePost(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	p, err := h.Catalog.Post(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.detailError(w, r, "publicación", "/blog", err)
		return
	}
	h.Render(w, r, "store_post", detailData[models.Publicacion]{
		BaseVM:   viewdata.NewBaseVM(r, p.Titulo, "/blog"),
		Item:     p,
		ImageURL: h.Files.ProxyURL(p.Imagen),
		Body:     htmlsanitize.PrepareForDisplay(p.Contenido),
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /talleres                                                               |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeWorkshops(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	data := workshopsData{
		BaseVM: viewdata.NewBaseVM(r, "Talleres", "/"),
		Month:  query.Get(r, "mes"),
		Query:  query.Get(r, "q"),
		Months: months,
	}

	workshops, err := h.Catalog.Workshops(ctx)
	if err != nil {
		data.Error = h.listError("talleres", err)
	}
	page, rg := paging.Slice(FilterWorkshops(workshops, data.Month, data.Query), paging.ParsePage(r), paging.WorkshopsPerPage)
	data.Workshops, data.Pager = h.workshops(page), newPager(r, rg)

	h.Render(w, r, "store_workshops", data)
}

func (h *Handler) ServeWorkshop(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	t, err := h.Catalog.Workshop(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.detailError(w, r, "taller", "/talleres", err)
		return
	}
	h.Render(w, r, "store_workshop", detailData[models.Taller]{
		BaseVM:   viewdata.NewBaseVM(r, t.Nombre, "/talleres"),
		Item:     t,
		ImageURL: h.Files.ProxyURL(t.Imagen),
		Body:     htmlsanitize.PrepareForDisplay(t.Descripcion),
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /tienda                                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

// ServeShop lists store products. A name query goes to the backend search
// endpoint; otherwise a category narrows the list server-side.
func (h *Handler) ServeShop(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	data := shopData{
		BaseVM:   viewdata.NewBaseVM(r, "Tienda", "/"),
		Category: query.Get(r, "categoria"),
		Query:    query.Get(r, "q"),
	}

	var (
		products []models.ProductoTienda
		err      error
	)
	switch {
	case data.Query != "":
		products, err = h.Catalog.SearchStoreProducts(ctx, data.Query)
	case data.Category != "":
		products, err = h.Catalog.StoreProductsByCategory(ctx, data.Category)
	default:
		products, err = h.Catalog.StoreProducts(ctx)
	}
	if err != nil {
		data.Error = h.listError("productos de tienda", err)
	}
	for _, p := range products {
		if p.Active() {
			data.Products = append(data.Products, shopItemVM{ProductoTienda: p, ImageURL: h.Files.ProxyURL(p.Imagen)})
		}
	}

	h.Render(w, r, "store_shop", data)
}

/*─────────────────────────────────────────────────────────────────────────────*
| helpers                                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) listError(what string, err error) string {
	h.Log.Warn("storefront load failed", zap.String("list", what), zap.Error(err))
	return "Error al cargar los " + what + ": " + apiclient.Message(err)
}

// detailError maps a backend refusal to 404 and anything else to 500.
func (h *Handler) detailError(w http.ResponseWriter, r *http.Request, what, backURL string, err error) {
	var ae *apiclient.Error
	if errors.As(err, &ae) && ae.Kind == apiclient.KindApplication {
		uierrors.RenderNotFound(w, r, "No encontramos ese "+what+".", backURL)
		return
	}
	h.ErrLog.LogServerError(w, r, "storefront detail load failed", err, "No se pudo cargar el "+what+".", backURL)
}
