package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pjecz/hercules/internal/access"
	"github.com/pjecz/hercules/internal/datatable"
	"github.com/pjecz/hercules/internal/dto"
	"github.com/pjecz/hercules/internal/middleware"
	"github.com/pjecz/hercules/internal/service"
	"github.com/pjecz/hercules/pkg/response"
)

// BitacoraHandler serves the audit trail, which is read only.
type BitacoraHandler struct {
	audit  *service.AuditService
	tareas taskLauncher
}

func NewBitacoraHandler(audit *service.AuditService, tareas taskLauncher) *BitacoraHandler {
	return &BitacoraHandler{audit: audit, tareas: tareas}
}

func (h *BitacoraHandler) Register(g *gin.RouterGroup) {
	grp := g.Group(access.ModuleBitacoras.Route())
	view := middleware.PermissionRequired(access.ModuleBitacoras, access.LevelView)
	grp.GET("", view, h.Index)
	grp.GET("/datatable_json", view, h.Datatable)
	grp.POST("/datatable_json", view, h.Datatable)
	grp.GET("/:id", view, h.Detail)
	grp.POST("/exportar", middleware.AdminRequired(access.ModuleBitacoras), h.Export)
}

func (h *BitacoraHandler) Index(c *gin.Context) {
	meta := pageMeta(c, access.ModuleBitacoras)
	meta["datatable_url"] = access.ModuleBitacoras.Route() + "/datatable_json"
	response.JSON(c, http.StatusOK, nil, nil, meta)
}

// Datatable godoc
// @Summary List audit rows
// @Tags Bitacoras
// @Produce json
// @Param modulo_id query int false "Modulo"
// @Param usuario_id query int false "Usuario"
// @Param fecha_desde query string false "YYYY-MM-DD"
// @Param fecha_hasta query string false "YYYY-MM-DD"
// @Success 200 {object} datatable.Response
// @Router /bitacoras/datatable_json [get]
func (h *BitacoraHandler) Datatable(c *gin.Context) {
	req, err := datatable.Parse(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	f := dto.BitacoraFilter{Page: dto.Page{Limit: req.Limit(), Offset: req.Offset()}}
	f.ModuloID, _ = datatable.ParentID(c, "modulo_id")
	f.UsuarioID, _ = datatable.ParentID(c, "usuario_id")
	f.Desde, f.Hasta = datatable.DateRange(c)

	items, total, err := h.audit.List(c.Request.Context(), f)
	if err != nil {
		response.Error(c, err)
		return
	}
	rows := make([]datatable.Row, 0, len(items))
	for _, b := range items {
		rows = append(rows, datatable.Row{
			"creado":      b.Creado.Format("2006-01-02 15:04:05"),
			"usuario":     datatable.Link("email", b.UsuarioEmail, service.DetailURL(access.ModuleUsuarios, b.UsuarioID)),
			"modulo":      b.ModuloNombre,
			"vinculo":     datatable.Link("descripcion", b.Descripcion, b.URL),
			"detalle_url": service.DetailURL(access.ModuleBitacoras, b.ID),
		})
	}
	c.JSON(http.StatusOK, datatable.NewResponse(req, total, rows))
}

func (h *BitacoraHandler) Detail(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	b, err := h.audit.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, b, nil, pageMeta(c, access.ModuleBitacoras))
}

// Export queues the csv or pdf export of the filtered rows.
func (h *BitacoraHandler) Export(c *gin.Context) {
	var form dto.BitacoraExportForm
	_ = c.ShouldBind(&form)
	params := service.BitacoraExportParams(form)
	if err := service.CheckBitacoraExport(params); err != nil {
		response.Warning(c, err, form)
		return
	}
	launch(c, h.tareas, service.ComandoExportarBitacoras, "Exportando bitacoras a "+form.Formato, params)
}
