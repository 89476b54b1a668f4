package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/pjecz/hercules/internal/access"
	"github.com/pjecz/hercules/internal/dto"
	"github.com/pjecz/hercules/internal/models"
	appErrors "github.com/pjecz/hercules/pkg/errors"
	"github.com/pjecz/hercules/pkg/safe"
)

type moduloRepository interface {
	Get(ctx context.Context, id int64) (*models.Modulo, error)
	List(ctx context.Context, f dto.ModuloFilter) ([]models.Modulo, int, error)
	Create(ctx context.Context, m *models.Modulo) error
	Update(ctx context.Context, m *models.Modulo) error
	SetEstatus(ctx context.Context, id int64, e models.Estatus) error
}

// capabilityInvalidator drops cached capability sets after grants change.
type capabilityInvalidator interface {
	Invalidate(ctx context.Context, usuarioID int64)
	InvalidateAll(ctx context.Context)
}

type moduleCatalogListener interface {
	ForgetModules()
}

// ModuloService manages the catalog of protected modules.
type ModuloService struct {
	repo      moduloRepository
	lifecycle lifecycle
	caps      capabilityInvalidator
	catalog   moduleCatalogListener
	validator *validator.Validate
	logger    *zap.Logger
}

func NewModuloService(repo moduloRepository, tx txRunner, audit auditRecorder, caps capabilityInvalidator, catalog moduleCatalogListener, validate *validator.Validate, logger *zap.Logger) *ModuloService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ModuloService{
		repo:      repo,
		lifecycle: lifecycle{tx: tx, audit: audit, module: access.ModuleModulos},
		caps:      caps,
		catalog:   catalog,
		validator: validate,
		logger:    logger,
	}
}

func (s *ModuloService) List(ctx context.Context, f dto.ModuloFilter) ([]models.Modulo, int, error) {
	items, total, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list modulos")
	}
	return items, total, nil
}

func (s *ModuloService) Get(ctx context.Context, id int64) (*models.Modulo, error) {
	m, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, "modulo no encontrado", "failed to fetch modulo")
	}
	return m, nil
}

func (s *ModuloService) fromForm(form dto.ModuloForm, m *models.Modulo) error {
	if err := validate(s.validator, form); err != nil {
		return err
	}
	m.Nombre = safe.String(form.Nombre, safe.StringOptions{MaxLen: 256, SaveEnie: true})
	m.NombreCorto = safe.String(form.NombreCorto, safe.StringOptions{MaxLen: 64, SaveEnie: true, KeepCase: true})
	m.Icono = strings.TrimSpace(form.Icono)
	m.Ruta = strings.ToLower(strings.TrimSpace(form.Ruta))
	m.EnNavegacion = form.EnNavegacion
	m.EnPlataformaHercules = form.EnPlataformaHercules
	if m.Nombre == "" {
		return appErrors.Clone(appErrors.ErrValidation, "el nombre es obligatorio")
	}
	if !strings.HasPrefix(m.Ruta, "/") {
		return appErrors.Clone(appErrors.ErrValidation, "la ruta debe comenzar con /")
	}
	return nil
}

func (s *ModuloService) Create(ctx context.Context, actor *models.CurrentUser, form dto.ModuloForm) (*models.Modulo, error) {
	m := &models.Modulo{}
	if err := s.fromForm(form, m); err != nil {
		return nil, err
	}
	err := s.lifecycle.write(ctx, actor, func(ctx context.Context) error {
		return s.repo.Create(ctx, m)
	}, func() (string, string) {
		return "Nuevo modulo " + m.Nombre, DetailURL(access.ModuleModulos, m.ID)
	})
	if err != nil {
		return nil, mapRepoError(err, "modulo no encontrado", "failed to create modulo")
	}
	s.changed(ctx)
	return m, nil
}

func (s *ModuloService) Update(ctx context.Context, actor *models.CurrentUser, id int64, form dto.ModuloForm) (*models.Modulo, error) {
	m, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.fromForm(form, m); err != nil {
		return nil, err
	}
	err = s.lifecycle.write(ctx, actor, func(ctx context.Context) error {
		return s.repo.Update(ctx, m)
	}, func() (string, string) {
		return "Editado modulo " + m.Nombre, DetailURL(access.ModuleModulos, m.ID)
	})
	if err != nil {
		return nil, mapRepoError(err, "modulo no encontrado", "failed to update modulo")
	}
	s.changed(ctx)
	return m, nil
}

func (s *ModuloService) Delete(ctx context.Context, actor *models.CurrentUser, id int64) (*models.Modulo, bool, error) {
	return s.setEstatus(ctx, actor, id, models.EstatusBorrado)
}

func (s *ModuloService) Recover(ctx context.Context, actor *models.CurrentUser, id int64) (*models.Modulo, bool, error) {
	return s.setEstatus(ctx, actor, id, models.EstatusActivo)
}

func (s *ModuloService) setEstatus(ctx context.Context, actor *models.CurrentUser, id int64, target models.Estatus) (*models.Modulo, bool, error) {
	m, changed, err := changeEstatus[models.Modulo](ctx, s.lifecycle, actor, s.repo, id, target,
		func(m *models.Modulo) string { return "modulo " + m.Nombre }, "modulo no encontrado", nil)
	if changed {
		s.changed(ctx)
	}
	return m, changed, err
}

func (s *ModuloService) changed(ctx context.Context) {
	if s.caps != nil {
		s.caps.InvalidateAll(ctx)
	}
	if s.catalog != nil {
		s.catalog.ForgetModules()
	}
}
