package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pjecz/hercules/internal/access"
	"github.com/pjecz/hercules/internal/datatable"
	"github.com/pjecz/hercules/internal/dto"
	"github.com/pjecz/hercules/internal/middleware"
	"github.com/pjecz/hercules/internal/models"
	"github.com/pjecz/hercules/internal/service"
	"github.com/pjecz/hercules/pkg/response"
)

// TareaHandler lists background tasks and serves their progress and files.
type TareaHandler struct {
	service *service.TareaService
}

func NewTareaHandler(svc *service.TareaService) *TareaHandler {
	return &TareaHandler{service: svc}
}

func (h *TareaHandler) Register(g *gin.RouterGroup) {
	grp := g.Group(access.ModuleTareas.Route())
	view := middleware.PermissionRequired(access.ModuleTareas, access.LevelView)
	grp.GET("", view, h.Index)
	grp.GET("/datatable_json", view, h.Datatable)
	grp.POST("/datatable_json", view, h.Datatable)
	grp.GET("/:id", view, h.Detail)
	grp.GET("/descargar/:id", view, h.Download)
}

func (h *TareaHandler) Index(c *gin.Context) {
	meta := pageMeta(c, access.ModuleTareas)
	meta["datatable_url"] = access.ModuleTareas.Route() + "/datatable_json"
	meta["comandos"] = h.service.Commands()
	response.JSON(c, http.StatusOK, nil, nil, meta)
}

func (h *TareaHandler) Datatable(c *gin.Context) {
	req, err := datatable.Parse(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	f := dto.TareaFilter{
		Estado:  models.TareaEstado(datatable.ClaveFragment(c, "estado")),
		Comando: datatable.Value(c, "comando"),
		Page:    dto.Page{Limit: req.Limit(), Offset: req.Offset()},
	}
	if id, ok := datatable.ParentID(c, "usuario_id"); ok {
		f.UsuarioID = id
	}
	items, total, err := h.service.List(c.Request.Context(), middleware.CurrentUser(c), f)
	if err != nil {
		response.Error(c, err)
		return
	}
	rows := make([]datatable.Row, 0, len(items))
	for _, t := range items {
		rows = append(rows, datatable.Row{
			"detalle":  datatable.Link("comando", t.Comando, access.ModuleTareas.Route()+"/"+t.ID),
			"mensaje":  t.Mensaje,
			"estado":   t.Estado,
			"progreso": t.Progreso,
			"creado":   t.Creado.Format("2006-01-02 15:04:05"),
			"archivo":  t.Archivo,
		})
	}
	c.JSON(http.StatusOK, datatable.NewResponse(req, total, rows))
}

// Detail godoc
// @Summary Poll a background task
// @Description Returns estado and progreso; refresh_seconds is set while the task has not ended
// @Tags Tareas
// @Produce json
// @Param id path string true "Tarea UUID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /tareas/{id} [get]
func (h *TareaHandler) Detail(c *gin.Context) {
	detail, err := h.service.Get(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if detail.RefreshSeconds > 0 {
		c.Header("Refresh", fmt.Sprint(detail.RefreshSeconds))
	}
	response.JSON(c, http.StatusOK, detail, nil, pageMeta(c, access.ModuleTareas))
}

func (h *TareaHandler) Download(c *gin.Context) {
	data, filename, contentType, err := h.service.Download(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, data)
}

type taskLauncher interface {
	LaunchTask(ctx context.Context, actor *models.CurrentUser, comando, mensaje string, params models.TareaParametros) (*models.Tarea, error)
}

// launch queues a task and redirects to its progress page.
func launch(c *gin.Context, tareas taskLauncher, comando, mensaje string, params models.TareaParametros) {
	t, err := tareas.LaunchTask(c.Request.Context(), middleware.CurrentUser(c), comando, mensaje, params)
	if err != nil {
		response.Fail(c, err, params)
		return
	}
	response.Success(c, access.ModuleTareas.Route()+"/"+t.ID, mensaje)
}
