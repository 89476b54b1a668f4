package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pjecz/hercules/internal/access"
	"github.com/pjecz/hercules/internal/datatable"
	"github.com/pjecz/hercules/internal/dto"
	"github.com/pjecz/hercules/internal/middleware"
	"github.com/pjecz/hercules/internal/models"
	"github.com/pjecz/hercules/internal/service"
	appErrors "github.com/pjecz/hercules/pkg/errors"
	"github.com/pjecz/hercules/pkg/response"
)

// Resource serves the uniform route family of one module: listing, inactivos,
// datatable_json, detail, nuevo, edicion, eliminar and recuperar.
type Resource[T any, F any] struct {
	Module access.Module
	// Label names one row in flash messages, e.g. "distrito".
	Label string
	// ParentModule is set for rows created under a parent; nuevo then takes
	// the parent id and gate rejections redirect to the parent detail.
	ParentModule access.Module

	List    func(c *gin.Context, estatus models.Estatus, page dto.Page) ([]T, int, error)
	Row     func(row *T) datatable.Row
	ID      func(row *T) int64
	Get     func(ctx context.Context, id int64) (*T, error)
	Create  func(ctx context.Context, actor *models.CurrentUser, parentID int64, form F) (*T, error)
	Update  func(ctx context.Context, actor *models.CurrentUser, id int64, form F) (*T, error)
	Delete  func(ctx context.Context, actor *models.CurrentUser, id int64) (*T, bool, error)
	Recover func(ctx context.Context, actor *models.CurrentUser, id int64) (*T, bool, error)
}

// Register mounts the routes under the module prefix. Missing operations are skipped.
func (r *Resource[T, F]) Register(g *gin.RouterGroup) {
	grp := g.Group(r.Module.Route())
	view := middleware.PermissionRequired(r.Module, access.LevelView)
	admin := middleware.AdminRequired(r.Module)

	grp.GET("", view, r.index(models.EstatusActivo))
	grp.GET("/inactivos", admin, r.index(models.EstatusBorrado))
	grp.GET("/datatable_json", view, r.datatableJSON)
	grp.POST("/datatable_json", view, r.datatableJSON)
	grp.GET("/:id", view, r.detail)

	if r.Create != nil {
		insert := middleware.PermissionRequired(r.Module, access.LevelCreate)
		path := "/nuevo"
		if r.ParentModule != "" {
			path = "/nuevo/:parent_id"
		}
		grp.GET(path, insert, r.newForm)
		grp.POST(path, insert, r.create)
	}
	if r.Update != nil {
		edit := middleware.PermissionRequired(r.Module, access.LevelModify)
		grp.GET("/edicion/:id", edit, r.detail)
		grp.POST("/edicion/:id", edit, r.update)
	}
	if r.Delete != nil {
		grp.GET("/eliminar/:id", admin, r.toggle(r.Delete, "Eliminado"))
		grp.POST("/eliminar/:id", admin, r.toggle(r.Delete, "Eliminado"))
	}
	if r.Recover != nil {
		grp.GET("/recuperar/:id", admin, r.toggle(r.Recover, "Recuperado"))
		grp.POST("/recuperar/:id", admin, r.toggle(r.Recover, "Recuperado"))
	}
}

func (r *Resource[T, F]) index(estatus models.Estatus) gin.HandlerFunc {
	return func(c *gin.Context) {
		meta := pageMeta(c, r.Module)
		meta["estatus"] = estatus
		meta["datatable_url"] = r.Module.Route() + "/datatable_json?estatus=" + string(estatus)
		response.JSON(c, http.StatusOK, nil, nil, meta)
	}
}

func (r *Resource[T, F]) datatableJSON(c *gin.Context) {
	req, err := datatable.Parse(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	items, total, err := r.List(c, datatable.Estatus(c), dto.Page{Limit: req.Limit(), Offset: req.Offset()})
	if err != nil {
		response.Error(c, err)
		return
	}
	rows := make([]datatable.Row, 0, len(items))
	for i := range items {
		rows = append(rows, r.Row(&items[i]))
	}
	c.JSON(http.StatusOK, datatable.NewResponse(req, total, rows))
}

func (r *Resource[T, F]) detail(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	row, err := r.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, row, nil, pageMeta(c, r.Module))
}

func (r *Resource[T, F]) newForm(c *gin.Context) {
	meta := pageMeta(c, r.Module)
	if r.ParentModule != "" {
		parentID, err := pathID(c, "parent_id")
		if err != nil {
			response.Error(c, err)
			return
		}
		meta["parent_url"] = service.DetailURL(r.ParentModule, parentID)
	}
	var form F
	response.JSON(c, http.StatusOK, form, nil, meta)
}

func (r *Resource[T, F]) create(c *gin.Context) {
	var parentID int64
	if r.ParentModule != "" {
		id, err := pathID(c, "parent_id")
		if err != nil {
			response.Error(c, err)
			return
		}
		parentID = id
	}
	var form F
	if err := c.ShouldBind(&form); err != nil {
		response.Warning(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "formulario no valido"), form)
		return
	}
	row, err := r.Create(c.Request.Context(), middleware.CurrentUser(c), parentID, form)
	if err != nil {
		if parentID != 0 && errors.Is(err, appErrors.ErrFinalized) {
			warn(c, service.DetailURL(r.ParentModule, parentID), err)
			return
		}
		response.Fail(c, err, form)
		return
	}
	response.Success(c, service.DetailURL(r.Module, r.ID(row)), "Nuevo "+r.Label)
}

func (r *Resource[T, F]) update(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var form F
	if err := c.ShouldBind(&form); err != nil {
		response.Warning(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "formulario no valido"), form)
		return
	}
	row, err := r.Update(c.Request.Context(), middleware.CurrentUser(c), id, form)
	if err != nil {
		if row != nil && errors.Is(err, appErrors.ErrFinalized) {
			warn(c, service.DetailURL(r.Module, id), err)
			return
		}
		response.Fail(c, err, form)
		return
	}
	response.Success(c, service.DetailURL(r.Module, id), "Editado "+r.Label)
}

func (r *Resource[T, F]) toggle(fn func(context.Context, *models.CurrentUser, int64) (*T, bool, error), verb string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := pathID(c, "id")
		if err != nil {
			response.Error(c, err)
			return
		}
		_, changed, err := fn(c.Request.Context(), middleware.CurrentUser(c), id)
		detailURL := service.DetailURL(r.Module, id)
		switch {
		case err != nil && appErrors.IsValidationFamily(err):
			warn(c, detailURL, err)
		case err != nil:
			response.Error(c, err)
		case !changed:
			response.Redirect(c, detailURL, &response.Flash{Category: response.FlashWarning, Message: "Sin cambios en " + r.Label})
		default:
			response.Success(c, detailURL, verb+" "+r.Label)
		}
	}
}

// warn redirects to location flashing the message of err.
func warn(c *gin.Context, location string, err error) {
	response.Redirect(c, location, &response.Flash{Category: response.FlashWarning, Message: appErrors.FromError(err).Message})
}

func pathID(c *gin.Context, key string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(key), 10, 64)
	if err != nil || id <= 0 {
		return 0, appErrors.Clone(appErrors.ErrNotFound, "registro no encontrado")
	}
	return id, nil
}

// pageMeta is what the page layer needs besides the row: route and the
// user's capabilities on the module.
func pageMeta(c *gin.Context, module access.Module) map[string]interface{} {
	meta := map[string]interface{}{
		"modulo": module,
		"ruta":   module.Route(),
	}
	if user := middleware.CurrentUser(c); user != nil {
		meta["capabilities"] = user.Capabilities.Summary(module)
	}
	return meta
}

// root adapts a Create without parent to the Resource signature.
func root[T any, F any](fn func(context.Context, *models.CurrentUser, F) (*T, error)) func(context.Context, *models.CurrentUser, int64, F) (*T, error) {
	return func(ctx context.Context, actor *models.CurrentUser, _ int64, form F) (*T, error) {
		return fn(ctx, actor, form)
	}
}
