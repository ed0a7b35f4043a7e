// internal/app/features/crud/register.go
package crud

import (
	"context"
	"fmt"

	"github.com/dalemusser/cafehub/internal/app/resources"
	"github.com/dalemusser/cafehub/internal/app/system/apiclient"
	"github.com/dalemusser/cafehub/internal/app/system/formkit"
	"github.com/dalemusser/cafehub/internal/domain/models"
	"go.uber.org/zap"
)

// buildScreen binds a descriptor to its record type. The descriptor's
// endpoint is authoritative; the façade only supplies the transport.
func (h *Handler) buildScreen(d resources.Descriptor) (Screen, error) {
	c := h.deps.Admin.Client()
	switch d.Name {
	case "productos":
		return newScreen(h, d, apiclient.NewResource[models.Producto](c, d.Endpoint), screenOptions[models.Producto]{}), nil
	case "senas":
		return newScreen(h, d, apiclient.NewResource[models.Sena](c, d.Endpoint), screenOptions[models.Sena]{
			onDeleted: h.deleteSenaVideo,
		}), nil
	case "meseros":
		return newScreen(h, d, apiclient.NewResource[models.Mesero](c, d.Endpoint), screenOptions[models.Mesero]{}), nil
	case "condiciones":
		return newScreen(h, d, apiclient.NewResource[models.Condicion](c, d.Endpoint), screenOptions[models.Condicion]{}), nil
	case "candidatos":
		return newScreen(h, d, apiclient.NewResource[models.Candidato](c, d.Endpoint), screenOptions[models.Candidato]{}), nil
	case "publicaciones":
		return newScreen(h, d, apiclient.NewResource[models.Publicacion](c, d.Endpoint), screenOptions[models.Publicacion]{
			sort: models.SortPostsNewestFirst,
		}), nil
	case "talleres":
		return newScreen(h, d, apiclient.NewResource[models.Taller](c, d.Endpoint), screenOptions[models.Taller]{}), nil
	case "usuarios":
		return newScreen(h, d, apiclient.NewResource[models.Usuario](c, d.Endpoint), screenOptions[models.Usuario]{}), nil
	case "productos-tienda":
		return newScreen(h, d, apiclient.NewResource[models.ProductoTienda](c, d.Endpoint), screenOptions[models.ProductoTienda]{}), nil
	}
	return nil, fmt.Errorf("crud: no record type for resource %q", d.Name)
}

// deleteSenaVideo removes the video a deleted sign-language record owned.
func (h *Handler) deleteSenaVideo(ctx context.Context, s models.Sena) error {
	if s.Video == "" {
		return nil
	}
	if err := h.deps.Uploader.Delete(ctx, s.Video); err != nil {
		return err
	}
	h.deps.Log.Info("removed sign video", zap.String("sena", s.Key()), zap.String("video", s.Video))
	return nil
}

// optionsFrom loads select options backed by another resource.
func (h *Handler) optionsFrom(ctx context.Context, from string) ([]formkit.Option, error) {
	switch from {
	case "condiciones":
		items, err := h.deps.Admin.Condiciones.List(ctx)
		if err != nil {
			return nil, err
		}
		return recordOptions(items), nil
	case "roles":
		roles, err := h.deps.Admin.Roles(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]formkit.Option, 0, len(roles))
		for _, r := range roles {
			out = append(out, formkit.Option{Value: string(r.ID), Label: r.Nombre})
		}
		return out, nil
	}
	return nil, fmt.Errorf("crud: unknown options source %q", from)
}

func recordOptions[T models.Record](items []T) []formkit.Option {
	out := make([]formkit.Option, 0, len(items))
	for _, it := range items {
		out = append(out, formkit.Option{Value: it.Key(), Label: it.Label()})
	}
	return out
}
