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

type rolRepository interface {
	Get(ctx context.Context, id int64) (*models.Rol, error)
	List(ctx context.Context, f dto.RolFilter) ([]models.Rol, int, error)
	Create(ctx context.Context, r *models.Rol) error
	Update(ctx context.Context, r *models.Rol) error
	SetEstatus(ctx context.Context, id int64, e models.Estatus) error
}

type RolService struct {
	repo      rolRepository
	lifecycle lifecycle
	caps      capabilityInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

func NewRolService(repo rolRepository, tx txRunner, audit auditRecorder, caps capabilityInvalidator, validate *validator.Validate, logger *zap.Logger) *RolService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RolService{repo: repo, lifecycle: lifecycle{tx: tx, audit: audit, module: access.ModuleRoles}, caps: caps, validator: validate, logger: logger}
}

func (s *RolService) List(ctx context.Context, f dto.RolFilter) ([]models.Rol, int, error) {
	items, total, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list roles")
	}
	return items, total, nil
}

func (s *RolService) Get(ctx context.Context, id int64) (*models.Rol, error) {
	r, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, "rol no encontrado", "failed to fetch rol")
	}
	return r, nil
}

func (s *RolService) nombre(form dto.RolForm) (string, error) {
	if err := validate(s.validator, form); err != nil {
		return "", err
	}
	nombre := safe.String(form.Nombre, safe.StringOptions{MaxLen: 256, SaveEnie: true})
	if nombre == "" {
		return "", appErrors.Clone(appErrors.ErrValidation, "el nombre es obligatorio")
	}
	return nombre, nil
}

func (s *RolService) Create(ctx context.Context, actor *models.CurrentUser, form dto.RolForm) (*models.Rol, error) {
	nombre, err := s.nombre(form)
	if err != nil {
		return nil, err
	}
	r := &models.Rol{Nombre: nombre}
	err = s.lifecycle.write(ctx, actor, func(ctx context.Context) error {
		return s.repo.Create(ctx, r)
	}, func() (string, string) {
		return "Nuevo rol " + r.Nombre, DetailURL(access.ModuleRoles, r.ID)
	})
	if err != nil {
		return nil, mapRepoError(err, "rol no encontrado", "failed to create rol")
	}
	return r, nil
}

func (s *RolService) Update(ctx context.Context, actor *models.CurrentUser, id int64, form dto.RolForm) (*models.Rol, error) {
	r, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.Nombre, err = s.nombre(form); err != nil {
		return nil, err
	}
	err = s.lifecycle.write(ctx, actor, func(ctx context.Context) error {
		return s.repo.Update(ctx, r)
	}, func() (string, string) {
		return "Editado rol " + r.Nombre, DetailURL(access.ModuleRoles, r.ID)
	})
	if err != nil {
		return nil, mapRepoError(err, "rol no encontrado", "failed to update rol")
	}
	s.caps.InvalidateAll(ctx)
	return r, nil
}

func (s *RolService) Delete(ctx context.Context, actor *models.CurrentUser, id int64) (*models.Rol, bool, error) {
	return s.setEstatus(ctx, actor, id, models.EstatusBorrado)
}

func (s *RolService) Recover(ctx context.Context, actor *models.CurrentUser, id int64) (*models.Rol, bool, error) {
	return s.setEstatus(ctx, actor, id, models.EstatusActivo)
}

func (s *RolService) setEstatus(ctx context.Context, actor *models.CurrentUser, id int64, target models.Estatus) (*models.Rol, bool, error) {
	r, changed, err := changeEstatus[models.Rol](ctx, s.lifecycle, actor, s.repo, id, target,
		func(r *models.Rol) string { return "rol " + r.Nombre }, "rol no encontrado", nil)
	if changed {
		s.caps.InvalidateAll(ctx)
	}
	return r, changed, err
}
