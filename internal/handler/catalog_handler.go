package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pjecz/hercules/internal/access"
	"github.com/pjecz/hercules/internal/datatable"
	"github.com/pjecz/hercules/internal/dto"
	"github.com/pjecz/hercules/internal/models"
	"github.com/pjecz/hercules/internal/service"
)

// Registrar mounts a route family on the protected group.
type Registrar interface {
	Register(g *gin.RouterGroup)
}

// DistritoResource serves /distritos.
func DistritoResource(svc *service.DistritoService) Registrar {
	return &Resource[models.Distrito, dto.DistritoForm]{
		Module: access.ModuleDistritos,
		Label:  "distrito",
		List: func(c *gin.Context, estatus models.Estatus, page dto.Page) ([]models.Distrito, int, error) {
			f := dto.DistritoFilter{
				Estatus: estatus,
				Clave:   datatable.ClaveFragment(c, "clave"),
				Nombre:  datatable.TextFragment(c, "nombre"),
				Page:    page,
			}
			switch strings.ToLower(datatable.Value(c, "es_distrito_judicial")) {
			case "true", "1":
				v := true
				f.EsDistritoJudicial = &v
			case "false", "0":
				v := false
				f.EsDistritoJudicial = &v
			}
			return svc.List(c.Request.Context(), f)
		},
		Row: func(d *models.Distrito) datatable.Row {
			return datatable.Row{
				"detalle":              datatable.Link("clave", d.Clave, service.DetailURL(access.ModuleDistritos, d.ID)),
				"nombre":               d.Nombre,
				"nombre_corto":         d.NombreCorto,
				"es_distrito_judicial": d.EsDistritoJudicial,
			}
		},
		ID:      func(d *models.Distrito) int64 { return d.ID },
		Get:     svc.Get,
		Create:  root(svc.Create),
		Update:  svc.Update,
		Delete:  svc.Delete,
		Recover: svc.Recover,
	}
}

// AutoridadResource serves /autoridades.
func AutoridadResource(svc *service.AutoridadService) Registrar {
	return &Resource[models.Autoridad, dto.AutoridadForm]{
		Module: access.ModuleAutoridades,
		Label:  "autoridad",
		List: func(c *gin.Context, estatus models.Estatus, page dto.Page) ([]models.Autoridad, int, error) {
			distritoID, _ := datatable.ParentID(c, "distrito_id")
			return svc.List(c.Request.Context(), dto.AutoridadFilter{
				Estatus:       estatus,
				DistritoID:    distritoID,
				DistritoClave: datatable.ClaveFragment(c, "distrito_clave"),
				Clave:         datatable.ClaveFragment(c, "clave"),
				Descripcion:   datatable.TextFragment(c, "descripcion"),
				Page:          page,
			})
		},
		Row: func(a *models.Autoridad) datatable.Row {
			return datatable.Row{
				"detalle":               datatable.Link("clave", a.Clave, service.DetailURL(access.ModuleAutoridades, a.ID)),
				"descripcion_corta":     a.DescripcionCorta,
				"distrito":              datatable.Link("clave", a.DistritoClave, service.DetailURL(access.ModuleDistritos, a.DistritoID)),
				"es_jurisdiccional":     a.EsJurisdiccional,
				"organo_jurisdiccional": a.OrganoJurisdiccional,
			}
		},
		ID:      func(a *models.Autoridad) int64 { return a.ID },
		Get:     svc.Get,
		Create:  root(svc.Create),
		Update:  svc.Update,
		Delete:  svc.Delete,
		Recover: svc.Recover,
	}
}
