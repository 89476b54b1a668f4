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
)

type usuarioRolRepository interface {
	Get(ctx context.Context, id int64) (*models.UsuarioRol, error)
	List(ctx context.Context, f dto.UsuarioRolFilter) ([]models.UsuarioRol, int, error)
	ExistsActive(ctx context.Context, usuarioID, rolID int64) (bool, error)
	Create(ctx context.Context, m *models.UsuarioRol) error
	SetEstatus(ctx context.Context, id int64, e models.Estatus) error
}

type usuarioLookup interface {
	Get(ctx context.Context, id int64) (*models.Usuario, error)
}

type rolLookup interface {
	Get(ctx context.Context, id int64) (*models.Rol, error)
}

// UsuarioRolService assigns roles to users. Every change drops the user's cached capabilities.
type UsuarioRolService struct {
	repo      usuarioRolRepository
	usuarios  usuarioLookup
	roles     rolLookup
	lifecycle lifecycle
	caps      capabilityInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

func NewUsuarioRolService(repo usuarioRolRepository, usuarios usuarioLookup, roles rolLookup, tx txRunner, audit auditRecorder, caps capabilityInvalidator, validate *validator.Validate, logger *zap.Logger) *UsuarioRolService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UsuarioRolService{
		repo:      repo,
		usuarios:  usuarios,
		roles:     roles,
		lifecycle: lifecycle{tx: tx, audit: audit, module: access.ModuleUsuariosRoles},
		caps:      caps,
		validator: validate,
		logger:    logger,
	}
}

func (s *UsuarioRolService) List(ctx context.Context, f dto.UsuarioRolFilter) ([]models.UsuarioRol, int, error) {
	items, total, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list usuarios roles")
	}
	return items, total, nil
}

func (s *UsuarioRolService) Get(ctx context.Context, id int64) (*models.UsuarioRol, error) {
	ur, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, "usuario-rol no encontrado", "failed to fetch usuario rol")
	}
	return ur, nil
}

// Create links an active usuario with an active rol once.
func (s *UsuarioRolService) Create(ctx context.Context, actor *models.CurrentUser, form dto.UsuarioRolForm) (*models.UsuarioRol, error) {
	if err := validate(s.validator, form); err != nil {
		return nil, err
	}
	usuario, err := s.usuarios.Get(ctx, form.UsuarioID)
	if err != nil || !usuario.IsActive() {
		return nil, appErrors.Clone(appErrors.ErrNotExists, "el usuario no existe o esta eliminado")
	}
	rol, err := s.roles.Get(ctx, form.RolID)
	if err != nil || !rol.IsActive() {
		return nil, appErrors.Clone(appErrors.ErrNotExists, "el rol no existe o esta eliminado")
	}
	exists, err := s.repo.ExistsActive(ctx, usuario.ID, rol.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check usuario rol")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("%s ya tiene el rol %s", usuario.Email, rol.Nombre))
	}

	ur := &models.UsuarioRol{
		UsuarioID:    usuario.ID,
		RolID:        rol.ID,
		Descripcion:  fmt.Sprintf("%s en %s", usuario.Email, rol.Nombre),
		UsuarioEmail: usuario.Email,
		RolNombre:    rol.Nombre,
	}
	err = s.lifecycle.write(ctx, actor, func(ctx context.Context) error {
		return s.repo.Create(ctx, ur)
	}, func() (string, string) {
		return "Nuevo usuario-rol " + ur.Descripcion, DetailURL(access.ModuleUsuariosRoles, ur.ID)
	})
	if err != nil {
		return nil, mapRepoError(err, "usuario-rol no encontrado", "failed to create usuario rol")
	}
	s.caps.Invalidate(ctx, usuario.ID)
	return ur, nil
}

func (s *UsuarioRolService) Delete(ctx context.Context, actor *models.CurrentUser, id int64) (*models.UsuarioRol, bool, error) {
	return s.setEstatus(ctx, actor, id, models.EstatusBorrado)
}

func (s *UsuarioRolService) Recover(ctx context.Context, actor *models.CurrentUser, id int64) (*models.UsuarioRol, bool, error) {
	return s.setEstatus(ctx, actor, id, models.EstatusActivo)
}

func (s *UsuarioRolService) setEstatus(ctx context.Context, actor *models.CurrentUser, id int64, target models.Estatus) (*models.UsuarioRol, bool, error) {
	ur, changed, err := changeEstatus[models.UsuarioRol](ctx, s.lifecycle, actor, s.repo, id, target,
		func(ur *models.UsuarioRol) string { return "usuario-rol " + ur.Descripcion }, "usuario-rol no encontrado", nil)
	if changed {
		s.caps.Invalidate(ctx, ur.UsuarioID)
	}
	return ur, changed, err
}
