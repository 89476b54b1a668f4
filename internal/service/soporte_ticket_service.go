package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/pjecz/hercules/internal/access"
	"github.com/pjecz/hercules/internal/dto"
	"github.com/pjecz/hercules/internal/models"
	appErrors "github.com/pjecz/hercules/pkg/errors"
	"github.com/pjecz/hercules/pkg/safe"
)

type soporteTicketRepository interface {
	Get(ctx context.Context, id int64) (*models.SoporteTicket, error)
	List(ctx context.Context, f dto.SoporteTicketFilter) ([]models.SoporteTicket, int, error)
	Create(ctx context.Context, t *models.SoporteTicket) error
	Update(ctx context.Context, t *models.SoporteTicket) error
	SetEstatus(ctx context.Context, id int64, e models.Estatus) error
}

type adjuntoCascade interface {
	SoftDeleteByParent(ctx context.Context, parentID int64) error
}

// soporteTransitions lists the estados each ticket estado may move to.
var soporteTransitions = map[string][]string{
	models.SoporteAbierto:    {models.SoporteTrabajando, models.SoporteCancelado},
	models.SoporteTrabajando: {models.SoporteTerminado, models.SoporteCancelado, models.SoporteAbierto},
}

// SoporteTicketService handles help desk tickets and gates their attachments.
type SoporteTicketService struct {
	repo      soporteTicketRepository
	adjuntos  adjuntoCascade
	lifecycle lifecycle
	validator *validator.Validate
	logger    *zap.Logger
}

func NewSoporteTicketService(repo soporteTicketRepository, adjuntos adjuntoCascade, tx txRunner, audit auditRecorder, validate *validator.Validate, logger *zap.Logger) *SoporteTicketService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SoporteTicketService{
		repo:      repo,
		adjuntos:  adjuntos,
		lifecycle: lifecycle{tx: tx, audit: audit, module: access.ModuleSoportesTickets},
		validator: validate,
		logger:    logger,
	}
}

func (s *SoporteTicketService) List(ctx context.Context, f dto.SoporteTicketFilter) ([]models.SoporteTicket, int, error) {
	f.Descripcion = safe.String(f.Descripcion, safe.StringOptions{SaveEnie: true})
	items, total, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list soportes tickets")
	}
	return items, total, nil
}

func (s *SoporteTicketService) Get(ctx context.Context, id int64) (*models.SoporteTicket, error) {
	t, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, "ticket no encontrado", "failed to fetch soporte ticket")
	}
	return t, nil
}

func (s *SoporteTicketService) fromForm(form dto.SoporteTicketForm, t *models.SoporteTicket) error {
	if err := validate(s.validator, form); err != nil {
		return err
	}
	clasificacion := safe.String(form.Clasificacion, safe.StringOptions{MaxLen: 32})
	if clasificacion == "" {
		clasificacion = models.SoporteClasificaciones[0]
	}
	if !contains(models.SoporteClasificaciones, clasificacion) {
		return appErrors.Clone(appErrors.ErrValidation, "clasificacion no valida: "+clasificacion)
	}
	t.Descripcion = safe.String(form.Descripcion, safe.StringOptions{MaxLen: 4000, KeepAccents: true, KeepCase: true})
	t.Clasificacion = clasificacion
	if t.Descripcion == "" {
		return appErrors.Clone(appErrors.ErrEmpty, "la descripcion es obligatoria")
	}
	return nil
}

// Create opens a ticket on behalf of the actor.
func (s *SoporteTicketService) Create(ctx context.Context, actor *models.CurrentUser, form dto.SoporteTicketForm) (*models.SoporteTicket, error) {
	if actor == nil {
		return nil, appErrors.ErrForbidden
	}
	t := &models.SoporteTicket{UsuarioID: actor.ID, Estado: models.SoporteAbierto, UsuarioEmail: actor.Email}
	if err := s.fromForm(form, t); err != nil {
		return nil, err
	}
	err := s.lifecycle.write(ctx, actor, func(ctx context.Context) error {
		return s.repo.Create(ctx, t)
	}, func() (string, string) {
		return "Nuevo ticket " + t.Descripcion, DetailURL(access.ModuleSoportesTickets, t.ID)
	})
	if err != nil {
		return nil, mapRepoError(err, "ticket no encontrado", "failed to create soporte ticket")
	}
	return t, nil
}

// Update edits the description while the ticket is still ABIERTO.
func (s *SoporteTicketService) Update(ctx context.Context, actor *models.CurrentUser, id int64, form dto.SoporteTicketForm) (*models.SoporteTicket, error) {
	t, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.Estado != models.SoporteAbierto {
		return t, appErrors.Clone(appErrors.ErrFinalized, "solo se edita un ticket ABIERTO")
	}
	if err := s.fromForm(form, t); err != nil {
		return nil, err
	}
	err = s.lifecycle.write(ctx, actor, func(ctx context.Context) error {
		return s.repo.Update(ctx, t)
	}, func() (string, string) {
		return "Editado ticket " + t.Descripcion, DetailURL(access.ModuleSoportesTickets, t.ID)
	})
	if err != nil {
		return nil, mapRepoError(err, "ticket no encontrado", "failed to update soporte ticket")
	}
	return t, nil
}

// ChangeEstado moves the ticket along its workflow, recording the soluciones.
func (s *SoporteTicketService) ChangeEstado(ctx context.Context, actor *models.CurrentUser, id int64, form dto.SoporteTicketEstadoForm) (*models.SoporteTicket, error) {
	if err := validate(s.validator, form); err != nil {
		return nil, err
	}
	t, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !contains(soporteTransitions[t.Estado], form.Estado) {
		return t, appErrors.Clone(appErrors.ErrFinalized, "no se puede pasar de "+t.Estado+" a "+form.Estado)
	}
	t.Estado = form.Estado
	if soluciones := safe.String(form.Soluciones, safe.StringOptions{MaxLen: 1024, KeepAccents: true, KeepCase: true}); soluciones != "" {
		t.Soluciones = soluciones
	}
	err = s.lifecycle.write(ctx, actor, func(ctx context.Context) error {
		return s.repo.Update(ctx, t)
	}, func() (string, string) {
		return "Ticket " + t.Estado + " " + t.Descripcion, DetailURL(access.ModuleSoportesTickets, t.ID)
	})
	if err != nil {
		return nil, mapRepoError(err, "ticket no encontrado", "failed to change soporte ticket estado")
	}
	return t, nil
}

// Delete soft-deletes the ticket together with its adjuntos.
func (s *SoporteTicketService) Delete(ctx context.Context, actor *models.CurrentUser, id int64) (*models.SoporteTicket, bool, error) {
	return changeEstatus[models.SoporteTicket](ctx, s.lifecycle, actor, s.repo, id, models.EstatusBorrado,
		func(t *models.SoporteTicket) string { return "ticket " + t.Descripcion }, "ticket no encontrado",
		func(ctx context.Context) error { return s.adjuntos.SoftDeleteByParent(ctx, id) })
}

func (s *SoporteTicketService) Recover(ctx context.Context, actor *models.CurrentUser, id int64) (*models.SoporteTicket, bool, error) {
	return changeEstatus[models.SoporteTicket](ctx, s.lifecycle, actor, s.repo, id, models.EstatusActivo,
		func(t *models.SoporteTicket) string { return "ticket " + t.Descripcion }, "ticket no encontrado", nil)
}

// AdjuntosGate accepts attachments only on active tickets that are not closed.
func (s *SoporteTicketService) AdjuntosGate(ctx context.Context, ticketID int64) error {
	t, err := s.Get(ctx, ticketID)
	if err != nil {
		return err
	}
	if !t.IsActive() || t.Estado == models.SoporteTerminado || t.Estado == models.SoporteCancelado {
		return appErrors.Clone(appErrors.ErrFinalized, "el ticket ya esta cerrado")
	}
	return nil
}
