package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/pjecz/hercules/internal/access"
	"github.com/pjecz/hercules/internal/dto"
	"github.com/pjecz/hercules/internal/models"
	appErrors "github.com/pjecz/hercules/pkg/errors"
	"github.com/pjecz/hercules/pkg/safe"
)

type usuarioRepository interface {
	Get(ctx context.Context, id int64) (*models.Usuario, error)
	List(ctx context.Context, f dto.UsuarioFilter) ([]models.Usuario, int, error)
	Create(ctx context.Context, u *models.Usuario) error
	Update(ctx context.Context, u *models.Usuario) error
	UpdatePassword(ctx context.Context, id int64, hash string) error
	SetEstatus(ctx context.Context, id int64, e models.Estatus) error
}

type autoridadLookup interface {
	Get(ctx context.Context, id int64) (*models.Autoridad, error)
}

// UsuarioService handles user management workflows.
type UsuarioService struct {
	repo        usuarioRepository
	autoridades autoridadLookup
	lifecycle   lifecycle
	caps        capabilityInvalidator
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewUsuarioService creates an instance of UsuarioService.
func NewUsuarioService(repo usuarioRepository, autoridades autoridadLookup, tx txRunner, audit auditRecorder, caps capabilityInvalidator, validate *validator.Validate, logger *zap.Logger) *UsuarioService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UsuarioService{
		repo:        repo,
		autoridades: autoridades,
		lifecycle:   lifecycle{tx: tx, audit: audit, module: access.ModuleUsuarios},
		caps:        caps,
		validator:   validate,
		logger:      logger,
	}
}

// List returns the matching usuarios and the total before paging.
func (s *UsuarioService) List(ctx context.Context, f dto.UsuarioFilter) ([]models.Usuario, int, error) {
	f.Email = safe.EmailFragment(f.Email)
	f.AutoridadClave = safe.ClaveFragment(f.AutoridadClave)
	items, total, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list usuarios")
	}
	return items, total, nil
}

// Get returns a usuario by id.
func (s *UsuarioService) Get(ctx context.Context, id int64) (*models.Usuario, error) {
	u, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, "usuario no encontrado", "failed to fetch usuario")
	}
	return u, nil
}

func (s *UsuarioService) fromForm(ctx context.Context, form dto.UsuarioForm, u *models.Usuario) error {
	if err := validate(s.validator, form); err != nil {
		return err
	}
	email, err := safe.Email(form.Email)
	if err != nil {
		return err
	}
	curp, err := safe.CURP(form.CURP)
	if err != nil {
		return err
	}
	autoridad, err := s.autoridades.Get(ctx, form.AutoridadID)
	if err != nil || !autoridad.IsActive() {
		return appErrors.Clone(appErrors.ErrNotExists, "la autoridad no existe o esta eliminada")
	}
	names := safe.StringOptions{MaxLen: 256, SaveEnie: true}
	u.AutoridadID = autoridad.ID
	u.AutoridadClave = autoridad.Clave
	u.Email = email
	u.CURP = curp
	u.Nombres = safe.String(form.Nombres, names)
	u.ApellidoPaterno = safe.String(form.ApellidoPaterno, names)
	u.ApellidoMaterno = safe.String(form.ApellidoMaterno, names)
	u.Puesto = safe.String(form.Puesto, names)
	if u.Nombres == "" || u.ApellidoPaterno == "" {
		return appErrors.Clone(appErrors.ErrValidation, "nombres y apellido paterno son obligatorios")
	}
	return nil
}

// Create registers a usuario. Without a password the account cannot log in until one is set.
func (s *UsuarioService) Create(ctx context.Context, actor *models.CurrentUser, form dto.UsuarioForm) (*models.Usuario, error) {
	u := &models.Usuario{}
	if err := s.fromForm(ctx, form, u); err != nil {
		return nil, err
	}
	if form.Contrasena != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(form.Contrasena), bcrypt.DefaultCost)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
		}
		u.Contrasena = string(hash)
	}
	err := s.lifecycle.write(ctx, actor, func(ctx context.Context) error {
		return s.repo.Create(ctx, u)
	}, func() (string, string) {
		return "Nuevo usuario " + u.Email + " " + u.NombreCompleto(), DetailURL(access.ModuleUsuarios, u.ID)
	})
	if err != nil {
		return nil, mapRepoError(err, "usuario no encontrado", "failed to create usuario")
	}
	s.logger.Info("usuario created", zap.Int64("usuario_id", u.ID), zap.String("email", u.Email))
	return u, nil
}

// Update edits the profile columns; a non-empty Contrasena also replaces the password.
func (s *UsuarioService) Update(ctx context.Context, actor *models.CurrentUser, id int64, form dto.UsuarioForm) (*models.Usuario, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.fromForm(ctx, form, u); err != nil {
		return nil, err
	}
	var hash []byte
	if form.Contrasena != "" {
		if hash, err = bcrypt.GenerateFromPassword([]byte(form.Contrasena), bcrypt.DefaultCost); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
		}
	}
	err = s.lifecycle.write(ctx, actor, func(ctx context.Context) error {
		if err := s.repo.Update(ctx, u); err != nil {
			return err
		}
		if hash != nil {
			return s.repo.UpdatePassword(ctx, u.ID, string(hash))
		}
		return nil
	}, func() (string, string) {
		return "Editado usuario " + u.Email, DetailURL(access.ModuleUsuarios, u.ID)
	})
	if err != nil {
		return nil, mapRepoError(err, "usuario no encontrado", "failed to update usuario")
	}
	return u, nil
}

func (s *UsuarioService) Delete(ctx context.Context, actor *models.CurrentUser, id int64) (*models.Usuario, bool, error) {
	return s.setEstatus(ctx, actor, id, models.EstatusBorrado)
}

func (s *UsuarioService) Recover(ctx context.Context, actor *models.CurrentUser, id int64) (*models.Usuario, bool, error) {
	return s.setEstatus(ctx, actor, id, models.EstatusActivo)
}

func (s *UsuarioService) setEstatus(ctx context.Context, actor *models.CurrentUser, id int64, target models.Estatus) (*models.Usuario, bool, error) {
	u, changed, err := changeEstatus[models.Usuario](ctx, s.lifecycle, actor, s.repo, id, target,
		func(u *models.Usuario) string { return "usuario " + u.Email }, "usuario no encontrado", nil)
	if changed {
		s.caps.Invalidate(ctx, id)
	}
	return u, changed, err
}
