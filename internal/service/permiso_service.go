package service

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/pjecz/hercules/internal/access"
	"github.com/pjecz/hercules/internal/dto"
	"github.com/pjecz/hercules/internal/models"
	appErrors "github.com/pjecz/hercules/pkg/errors"
	"github.com/pjecz/hercules/pkg/safe"
)

type permisoRepository interface {
	Get(ctx context.Context, id int64) (*models.Permiso, error)
	List(ctx context.Context, f dto.PermisoFilter) ([]models.Permiso, int, error)
	Create(ctx context.Context, p *models.Permiso) error
	Update(ctx context.Context, p *models.Permiso) error
	SetEstatus(ctx context.Context, id int64, e models.Estatus) error
}

// PermisoService grants a role a level on a module. A role holds at most one
// permiso per module.
type PermisoService struct {
	repo      permisoRepository
	roles     rolRepository
	modulos   moduloRepository
	lifecycle lifecycle
	caps      capabilityInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

func NewPermisoService(repo permisoRepository, roles rolRepository, modulos moduloRepository, tx txRunner, audit auditRecorder, caps capabilityInvalidator, validate *validator.Validate, logger *zap.Logger) *PermisoService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PermisoService{
		repo:      repo,
		roles:     roles,
		modulos:   modulos,
		lifecycle: lifecycle{tx: tx, audit: audit, module: access.ModulePermisos},
		caps:      caps,
		validator: validate,
		logger:    logger,
	}
}

func (s *PermisoService) List(ctx context.Context, f dto.PermisoFilter) ([]models.Permiso, int, error) {
	items, total, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list permisos")
	}
	return items, total, nil
}

func (s *PermisoService) Get(ctx context.Context, id int64) (*models.Permiso, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, "permiso no encontrado", "failed to fetch permiso")
	}
	return p, nil
}

// fromForm resolves the active rol and modulo and names the permiso after them.
func (s *PermisoService) fromForm(ctx context.Context, form dto.PermisoForm, p *models.Permiso) error {
	if err := validate(s.validator, form); err != nil {
		return err
	}
	nivel := access.Level(form.Nivel)
	if !nivel.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "nivel fuera de rango")
	}
	rol, err := s.roles.Get(ctx, form.RolID)
	if err != nil || !rol.IsActive() {
		return appErrors.Clone(appErrors.ErrNotExists, "el rol no existe o esta eliminado")
	}
	modulo, err := s.modulos.Get(ctx, form.ModuloID)
	if err != nil || !modulo.IsActive() {
		return appErrors.Clone(appErrors.ErrNotExists, "el modulo no existe o esta eliminado")
	}
	p.RolID, p.ModuloID, p.Nivel = rol.ID, modulo.ID, int(nivel)
	p.RolNombre, p.ModuloNombre = rol.Nombre, modulo.Nombre
	p.Nombre = safe.String(fmt.Sprintf("%s en %s", rol.Nombre, modulo.Nombre), safe.StringOptions{MaxLen: 256, SaveEnie: true})
	return nil
}

func (s *PermisoService) Create(ctx context.Context, actor *models.CurrentUser, form dto.PermisoForm) (*models.Permiso, error) {
	p := &models.Permiso{}
	if err := s.fromForm(ctx, form, p); err != nil {
		return nil, err
	}
	err := s.lifecycle.write(ctx, actor, func(ctx context.Context) error {
		return s.repo.Create(ctx, p)
	}, func() (string, string) {
		return fmt.Sprintf("Nuevo permiso %s nivel %s", p.Nombre, access.Level(p.Nivel)), DetailURL(access.ModulePermisos, p.ID)
	})
	if err != nil {
		return nil, mapRepoError(err, "permiso no encontrado", "failed to create permiso")
	}
	s.caps.InvalidateAll(ctx)
	return p, nil
}

func (s *PermisoService) Update(ctx context.Context, actor *models.CurrentUser, id int64, form dto.PermisoForm) (*models.Permiso, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.fromForm(ctx, form, p); err != nil {
		return nil, err
	}
	err = s.lifecycle.write(ctx, actor, func(ctx context.Context) error {
		return s.repo.Update(ctx, p)
	}, func() (string, string) {
		return fmt.Sprintf("Editado permiso %s nivel %s", p.Nombre, access.Level(p.Nivel)), DetailURL(access.ModulePermisos, p.ID)
	})
	if err != nil {
		return nil, mapRepoError(err, "permiso no encontrado", "failed to update permiso")
	}
	s.caps.InvalidateAll(ctx)
	return p, nil
}

func (s *PermisoService) Delete(ctx context.Context, actor *models.CurrentUser, id int64) (*models.Permiso, bool, error) {
	return s.setEstatus(ctx, actor, id, models.EstatusBorrado)
}

func (s *PermisoService) Recover(ctx context.Context, actor *models.CurrentUser, id int64) (*models.Permiso, bool, error) {
	return s.setEstatus(ctx, actor, id, models.EstatusActivo)
}

func (s *PermisoService) setEstatus(ctx context.Context, actor *models.CurrentUser, id int64, target models.Estatus) (*models.Permiso, bool, error) {
	p, changed, err := changeEstatus[models.Permiso](ctx, s.lifecycle, actor, s.repo, id, target,
		func(p *models.Permiso) string { return "permiso " + p.Nombre }, "permiso no encontrado", nil)
	if changed {
		s.caps.InvalidateAll(ctx)
	}
	return p, changed, err
}
