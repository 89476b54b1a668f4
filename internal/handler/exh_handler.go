package handler

import (
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

// ExhExternoHandler serves /exh_externos and launches endpoint probes.
type ExhExternoHandler struct {
	service *service.ExhExternoService
	tareas  taskLauncher
}

func NewExhExternoHandler(svc *service.ExhExternoService, tareas taskLauncher) *ExhExternoHandler {
	return &ExhExternoHandler{service: svc, tareas: tareas}
}

func (h *ExhExternoHandler) Register(g *gin.RouterGroup) {
	res := &Resource[models.ExhExterno, dto.ExhExternoForm]{
		Module: access.ModuleExhExternos,
		Label:  "externo",
		List: func(c *gin.Context, estatus models.Estatus, page dto.Page) ([]models.ExhExterno, int, error) {
			return h.service.List(c.Request.Context(), dto.ExhExternoFilter{
				Estatus:     estatus,
				Clave:       datatable.ClaveFragment(c, "clave"),
				Descripcion: datatable.TextFragment(c, "descripcion"),
				Page:        page,
			})
		},
		Row: func(e *models.ExhExterno) datatable.Row {
			return datatable.Row{
				"detalle":      datatable.Link("clave", e.Clave, service.DetailURL(access.ModuleExhExternos, e.ID)),
				"descripcion":  e.Descripcion,
				"estado_clave": e.EstadoClave,
				"materias":     len(e.Materias),
			}
		},
		ID:      func(e *models.ExhExterno) int64 { return e.ID },
		Get:     h.service.Get,
		Create:  root(h.service.Create),
		Update:  h.service.Update,
		Delete:  h.service.Delete,
		Recover: h.service.Recover,
	}
	res.Register(g)

	admin := middleware.AdminRequired(access.ModuleExhExternos)
	g.POST(access.ModuleExhExternos.Route()+"/probar_endpoints", admin, h.Probe)
	g.POST(access.ModuleExhExternos.Route()+"/probar_endpoints/:id", admin, h.Probe)
}

// Probe godoc
// @Summary Probe peer endpoints
// @Description Queues a task that refreshes the materias of one peer, or of every active peer
// @Tags Exhortos
// @Produce json
// @Param id path int false "ExhExterno ID"
// @Success 303 {object} response.Envelope
// @Router /exh_externos/probar_endpoints/{id} [post]
func (h *ExhExternoHandler) Probe(c *gin.Context) {
	params := models.TareaParametros{}
	mensaje := "Probando endpoints de todos los externos"
	if c.Param("id") != "" {
		id, err := pathID(c, "id")
		if err != nil {
			response.Error(c, err)
			return
		}
		params["exh_externo_id"] = strconv.FormatInt(id, 10)
		mensaje = "Probando endpoints del externo " + params["exh_externo_id"]
	}
	launch(c, h.tareas, service.ComandoProbarEndpoints, mensaje, params)
}

// ExhExhortoHandler serves /exh_exhortos with its state machine actions.
type ExhExhortoHandler struct {
	service *service.ExhExhortoService
	tareas  taskLauncher
}

func NewExhExhortoHandler(svc *service.ExhExhortoService, tareas taskLauncher) *ExhExhortoHandler {
	return &ExhExhortoHandler{service: svc, tareas: tareas}
}

func (h *ExhExhortoHandler) Register(g *gin.RouterGroup) {
	res := &Resource[models.ExhExhorto, dto.ExhExhortoForm]{
		Module:  access.ModuleExhExhortos,
		Label:   "exhorto",
		List:    h.list,
		Row:     exhExhortoRow,
		ID:      func(e *models.ExhExhorto) int64 { return e.ID },
		Get:     h.service.Get,
		Create:  root(h.service.Create),
		Update:  h.service.Update,
		Delete:  h.service.Delete,
		Recover: h.service.Recover,
	}
	res.Register(g)

	prefix := access.ModuleExhExhortos.Route()
	modify := middleware.PermissionRequired(access.ModuleExhExhortos, access.LevelModify)
	g.POST(prefix+"/cambiar_estado/:id", modify, h.ChangeEstado)
	g.POST(prefix+"/enviar/:id", modify, h.Enviar)
	g.POST(prefix+"/recalcular/:id", modify, h.Recalculate)
}

// list restricts users without administration to their own autoridad.
func (h *ExhExhortoHandler) list(c *gin.Context, estatus models.Estatus, page dto.Page) ([]models.ExhExhorto, int, error) {
	f := dto.ExhExhortoFilter{
		Estatus:         estatus,
		Estado:          models.ExhEstado(datatable.ClaveFragment(c, "estado")),
		ExhortoOrigenID: datatable.Value(c, "exhorto_origen_id"),
		Page:            page,
	}
	f.AutoridadID, _ = datatable.ParentID(c, "autoridad_id")
	if actor := middleware.CurrentUser(c); actor != nil && !actor.Can(access.ModuleExhExhortos, access.LevelAdmin) {
		f.AutoridadID = actor.AutoridadID
	}
	return h.service.List(c.Request.Context(), f)
}

func exhExhortoRow(e *models.ExhExhorto) datatable.Row {
	return datatable.Row{
		"detalle":           datatable.Link("exhorto_origen_id", e.ExhortoOrigenID, service.DetailURL(access.ModuleExhExhortos, e.ID)),
		"autoridad":         e.AutoridadClave,
		"numero_expediente": e.NumeroExpedienteOrigen,
		"materia":           e.MateriaNombre,
		"estado_destino":    e.EstadoDestinoClave,
		"remitente":         e.Remitente,
		"estado":            e.Estado,
		"fecha_origen":      e.FechaOrigen.Format("2006-01-02"),
	}
}

// ChangeEstado godoc
// @Summary Change the estado of an exhorto
// @Description Applies a manual transition; guards on partes and archivos are enforced
// @Tags Exhortos
// @Accept json
// @Produce json
// @Param id path int true "Exhorto ID"
// @Param payload body dto.ExhExhortoEstadoForm true "Estado"
// @Success 303 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /exh_exhortos/cambiar_estado/{id} [post]
func (h *ExhExhortoHandler) ChangeEstado(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var form dto.ExhExhortoEstadoForm
	_ = c.ShouldBind(&form)
	e, err := h.service.ChangeEstado(c.Request.Context(), middleware.CurrentUser(c), id, form)
	if err != nil {
		if appErrors.IsValidationFamily(err) {
			warn(c, service.DetailURL(access.ModuleExhExhortos, id), err)
			return
		}
		response.Error(c, err)
		return
	}
	response.Success(c, service.DetailURL(access.ModuleExhExhortos, id), "Exhorto "+string(e.Estado))
}

// Enviar queues the delivery of the exhorto to its peer.
func (h *ExhExhortoHandler) Enviar(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.service.EnviarGate(c.Request.Context(), id); err != nil {
		if appErrors.IsValidationFamily(err) {
			warn(c, service.DetailURL(access.ModuleExhExhortos, id), err)
			return
		}
		response.Error(c, err)
		return
	}
	launch(c, h.tareas, service.ComandoEnviarExhorto, "Enviando exhorto "+strconv.FormatInt(id, 10),
		models.TareaParametros{"exh_exhorto_id": strconv.FormatInt(id, 10)})
}

func (h *ExhExhortoHandler) Recalculate(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	moved, err := h.service.Recalculate(c.Request.Context(), middleware.CurrentUser(c), id)
	if err != nil {
		response.Fail(c, err, nil)
		return
	}
	msg := "El exhorto no cambio de estado"
	if moved {
		msg = "Exhorto RECIBIDO"
	}
	response.Success(c, service.DetailURL(access.ModuleExhExhortos, id), msg)
}

// childList builds the listing of rows under one parent read from parentKey.
func childList[T any](parentKey string, list func(ctx *gin.Context, f dto.ExhChildFilter) ([]T, int, error)) func(*gin.Context, models.Estatus, dto.Page) ([]T, int, error) {
	return func(c *gin.Context, estatus models.Estatus, page dto.Page) ([]T, int, error) {
		parentID, _ := datatable.ParentID(c, parentKey)
		return list(c, dto.ExhChildFilter{Estatus: estatus, ParentID: parentID, Page: page})
	}
}

func ExhParteResource(svc *service.ExhParteService) Registrar {
	return &Resource[models.ExhExhortoParte, dto.ExhExhortoParteForm]{
		Module:       access.ModuleExhExhortosPartes,
		Label:        "parte",
		ParentModule: access.ModuleExhExhortos,
		List: childList("exh_exhorto_id", func(c *gin.Context, f dto.ExhChildFilter) ([]models.ExhExhortoParte, int, error) {
			return svc.List(c.Request.Context(), f)
		}),
		Row: func(p *models.ExhExhortoParte) datatable.Row {
			nombre := p.Nombre
			if !p.EsPersonaMoral {
				nombre = p.Nombre + " " + p.ApellidoPaterno + " " + p.ApellidoMaterno
			}
			return datatable.Row{
				"detalle":          datatable.Link("nombre", nombre, service.DetailURL(access.ModuleExhExhortosPartes, p.ID)),
				"genero":           p.Genero,
				"es_persona_moral": p.EsPersonaMoral,
				"tipo_parte":       p.TipoParte,
			}
		},
		ID:      func(p *models.ExhExhortoParte) int64 { return p.ID },
		Get:     svc.Get,
		Create:  svc.Create,
		Update:  svc.Update,
		Delete:  svc.Delete,
		Recover: svc.Recover,
	}
}

func ExhPromocionResource(svc *service.ExhPromocionService) Registrar {
	return &Resource[models.ExhExhortoPromocion, dto.ExhExhortoPromocionForm]{
		Module:       access.ModuleExhExhortosPromociones,
		Label:        "promocion",
		ParentModule: access.ModuleExhExhortos,
		List: childList("exh_exhorto_id", func(c *gin.Context, f dto.ExhChildFilter) ([]models.ExhExhortoPromocion, int, error) {
			return svc.List(c.Request.Context(), f)
		}),
		Row: func(p *models.ExhExhortoPromocion) datatable.Row {
			return datatable.Row{
				"detalle":      datatable.Link("folio_origen_promocion", p.FolioOrigenPromocion, service.DetailURL(access.ModuleExhExhortosPromociones, p.ID)),
				"fojas":        p.Fojas,
				"fecha_origen": p.FechaOrigen.Format("2006-01-02"),
				"remitente":    p.Remitente,
				"estado":       p.Estado,
			}
		},
		ID:      func(p *models.ExhExhortoPromocion) int64 { return p.ID },
		Get:     svc.Get,
		Create:  svc.Create,
		Update:  svc.Update,
		Delete:  svc.Delete,
		Recover: svc.Recover,
	}
}

func ExhRespuestaResource(svc *service.ExhRespuestaService) Registrar {
	return &Resource[models.ExhExhortoRespuesta, dto.ExhExhortoRespuestaForm]{
		Module:       access.ModuleExhExhortosRespuestas,
		Label:        "respuesta",
		ParentModule: access.ModuleExhExhortos,
		List: childList("exh_exhorto_id", func(c *gin.Context, f dto.ExhChildFilter) ([]models.ExhExhortoRespuesta, int, error) {
			return svc.List(c.Request.Context(), f)
		}),
		Row: func(r *models.ExhExhortoRespuesta) datatable.Row {
			return datatable.Row{
				"detalle":           datatable.Link("respuesta_origen_id", r.RespuestaOrigenID, service.DetailURL(access.ModuleExhExhortosRespuestas, r.ID)),
				"area_turnado":      r.AreaTurnadoNombre,
				"numero_exhorto":    r.NumeroExhorto,
				"tipo_diligenciado": r.TipoDiligenciado,
				"estado":            r.Estado,
			}
		},
		ID:      func(r *models.ExhExhortoRespuesta) int64 { return r.ID },
		Get:     svc.Get,
		Create:  svc.Create,
		Update:  svc.Update,
		Delete:  svc.Delete,
		Recover: svc.Recover,
	}
}

func ExhVideoResource(svc *service.ExhVideoService) Registrar {
	return &Resource[models.ExhExhortoRespuestaVideo, dto.ExhExhortoRespuestaVideoForm]{
		Module:       access.ModuleExhExhortosRespuestasVideos,
		Label:        "video",
		ParentModule: access.ModuleExhExhortosRespuestas,
		List: childList("exh_exhorto_respuesta_id", func(c *gin.Context, f dto.ExhChildFilter) ([]models.ExhExhortoRespuestaVideo, int, error) {
			return svc.List(c.Request.Context(), f)
		}),
		Row: func(v *models.ExhExhortoRespuestaVideo) datatable.Row {
			return datatable.Row{
				"detalle":    datatable.Link("titulo", v.Titulo, service.DetailURL(access.ModuleExhExhortosRespuestasVideos, v.ID)),
				"url_acceso": v.URLAcceso,
			}
		},
		ID:      func(v *models.ExhExhortoRespuestaVideo) int64 { return v.ID },
		Get:     svc.Get,
		Create:  svc.Create,
		Update:  svc.Update,
		Delete:  svc.Delete,
		Recover: svc.Recover,
	}
}

// ExhActualizacionResource has no edicion: an actualizacion is a fact once recorded.
func ExhActualizacionResource(svc *service.ExhActualizacionService) Registrar {
	return &Resource[models.ExhExhortoActualizacion, dto.ExhExhortoActualizacionForm]{
		Module:       access.ModuleExhExhortosActualizaciones,
		Label:        "actualizacion",
		ParentModule: access.ModuleExhExhortos,
		List: childList("exh_exhorto_id", func(c *gin.Context, f dto.ExhChildFilter) ([]models.ExhExhortoActualizacion, int, error) {
			return svc.List(c.Request.Context(), f)
		}),
		Row: func(a *models.ExhExhortoActualizacion) datatable.Row {
			return datatable.Row{
				"detalle":            datatable.Link("actualizacion_origen_id", a.ActualizacionOrigenID, service.DetailURL(access.ModuleExhExhortosActualizaciones, a.ID)),
				"tipo_actualizacion": a.TipoActualizacion,
				"fecha_hora":         a.FechaHora.Format("2006-01-02 15:04"),
				"descripcion":        a.Descripcion,
			}
		},
		ID:      func(a *models.ExhExhortoActualizacion) int64 { return a.ID },
		Get:     svc.Get,
		Create:  svc.Create,
		Delete:  svc.Delete,
		Recover: svc.Recover,
	}
}
