package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/pjecz/hercules/internal/access"
	"github.com/pjecz/hercules/internal/datatable"
	"github.com/pjecz/hercules/internal/dto"
	"github.com/pjecz/hercules/internal/middleware"
	"github.com/pjecz/hercules/internal/models"
	"github.com/pjecz/hercules/internal/service"
	"github.com/pjecz/hercules/pkg/response"
)

// SoporteTicketHandler serves /soportes_tickets and its estado workflow.
type SoporteTicketHandler struct {
	service *service.SoporteTicketService
}

func NewSoporteTicketHandler(svc *service.SoporteTicketService) *SoporteTicketHandler {
	return &SoporteTicketHandler{service: svc}
}

func (h *SoporteTicketHandler) Register(g *gin.RouterGroup) {
	res := &Resource[models.SoporteTicket, dto.SoporteTicketForm]{
		Module:  access.ModuleSoportesTickets,
		Label:   "ticket",
		List:    h.list,
		Row:     soporteTicketRow,
		ID:      func(t *models.SoporteTicket) int64 { return t.ID },
		Get:     h.service.Get,
		Create:  root(h.service.Create),
		Update:  h.service.Update,
		Delete:  h.service.Delete,
		Recover: h.service.Recover,
	}
	res.Register(g)

	g.POST(access.ModuleSoportesTickets.Route()+"/estado/:id",
		middleware.PermissionRequired(access.ModuleSoportesTickets, access.LevelModify), h.ChangeEstado)
}

// list shows every ticket to support staff; other users see their own.
func (h *SoporteTicketHandler) list(c *gin.Context, estatus models.Estatus, page dto.Page) ([]models.SoporteTicket, int, error) {
	f := dto.SoporteTicketFilter{
		Estatus:     estatus,
		Estado:      datatable.ClaveFragment(c, "estado"),
		Descripcion: datatable.TextFragment(c, "descripcion"),
		Page:        page,
	}
	if id, ok := datatable.ParentID(c, "usuario_id"); ok {
		f.UsuarioID = id
	}
	if actor := middleware.CurrentUser(c); actor != nil && !actor.Can(access.ModuleSoportesTickets, access.LevelModify) {
		f.UsuarioID = actor.ID
	}
	return h.service.List(c.Request.Context(), f)
}

func soporteTicketRow(t *models.SoporteTicket) datatable.Row {
	return datatable.Row{
		"detalle":       datatable.Link("id", t.ID, service.DetailURL(access.ModuleSoportesTickets, t.ID)),
		"usuario":       t.UsuarioEmail,
		"descripcion":   t.Descripcion,
		"clasificacion": t.Clasificacion,
		"estado":        t.Estado,
		"creado":        t.Creado.Format("2006-01-02 15:04"),
	}
}

// ChangeEstado godoc
// @Summary Move a support ticket
// @Tags Soportes
// @Accept json
// @Produce json
// @Param id path int true "Ticket ID"
// @Param payload body dto.SoporteTicketEstadoForm true "Estado"
// @Success 303 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /soportes_tickets/estado/{id} [post]
func (h *SoporteTicketHandler) ChangeEstado(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var form dto.SoporteTicketEstadoForm
	_ = c.ShouldBind(&form)
	ticket, err := h.service.ChangeEstado(c.Request.Context(), middleware.CurrentUser(c), id, form)
	if err != nil {
		response.Fail(c, err, form)
		return
	}
	response.Success(c, service.DetailURL(access.ModuleSoportesTickets, id), "Ticket "+ticket.Estado)
}
