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

type distritoRepository interface {
	Get(ctx context.Context, id int64) (*models.Distrito, error)
	List(ctx context.Context, f dto.DistritoFilter) ([]models.Distrito, int, error)
	Create(ctx context.Context, d *models.Distrito) error
	Update(ctx context.Context, d *models.Distrito) error
	SetEstatus(ctx context.Context, id int64, e models.Estatus) error
}

// DistritoService manages judicial districts.
type DistritoService struct {
	repo      distritoRepository
	lifecycle lifecycle
	validator *validator.Validate
	logger    *zap.Logger
}

func NewDistritoService(repo distritoRepository, tx txRunner, audit auditRecorder, validate *validator.Validate, logger *zap.Logger) *DistritoService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DistritoService{repo: repo, lifecycle: lifecycle{tx: tx, audit: audit, module: access.ModuleDistritos}, validator: validate, logger: logger}
}

func (s *DistritoService) List(ctx context.Context, f dto.DistritoFilter) ([]models.Distrito, int, error) {
	f.Clave = safe.ClaveFragment(f.Clave)
	f.Nombre = safe.String(f.Nombre, safe.StringOptions{SaveEnie: true})
	items, total, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list distritos")
	}
	return items, total, nil
}

func (s *DistritoService) Get(ctx context.Context, id int64) (*models.Distrito, error) {
	d, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, "distrito no encontrado", "failed to fetch distrito")
	}
	return d, nil
}

func (s *DistritoService) fromForm(form dto.DistritoForm, d *models.Distrito) error {
	if err := validate(s.validator, form); err != nil {
		return err
	}
	clave, err := safe.Clave(form.Clave, safe.ClaveOptions{})
	if err != nil {
		return err
	}
	d.Clave = clave
	d.Nombre = safe.String(form.Nombre, safe.StringOptions{MaxLen: 256, SaveEnie: true})
	d.NombreCorto = safe.String(form.NombreCorto, safe.StringOptions{MaxLen: 64, SaveEnie: true})
	d.EsDistritoJudicial = form.EsDistritoJudicial
	if d.Nombre == "" {
		return appErrors.Clone(appErrors.ErrValidation, "el nombre es obligatorio")
	}
	return nil
}

func (s *DistritoService) Create(ctx context.Context, actor *models.CurrentUser, form dto.DistritoForm) (*models.Distrito, error) {
	d := &models.Distrito{}
	if err := s.fromForm(form, d); err != nil {
		return nil, err
	}
	err := s.lifecycle.write(ctx, actor, func(ctx context.Context) error {
		return s.repo.Create(ctx, d)
	}, func() (string, string) {
		return "Nuevo distrito " + d.Clave + " " + d.Nombre, DetailURL(access.ModuleDistritos, d.ID)
	})
	if err != nil {
		return nil, mapRepoError(err, "distrito no encontrado", "failed to create distrito")
	}
	return d, nil
}

func (s *DistritoService) Update(ctx context.Context, actor *models.CurrentUser, id int64, form dto.DistritoForm) (*models.Distrito, error) {
	d, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.fromForm(form, d); err != nil {
		return nil, err
	}
	err = s.lifecycle.write(ctx, actor, func(ctx context.Context) error {
		return s.repo.Update(ctx, d)
	}, func() (string, string) {
		return "Editado distrito " + d.Clave + " " + d.Nombre, DetailURL(access.ModuleDistritos, d.ID)
	})
	if err != nil {
		return nil, mapRepoError(err, "distrito no encontrado", "failed to update distrito")
	}
	return d, nil
}

func (s *DistritoService) Delete(ctx context.Context, actor *models.CurrentUser, id int64) (*models.Distrito, bool, error) {
	return changeEstatus[models.Distrito](ctx, s.lifecycle, actor, s.repo, id, models.EstatusBorrado,
		func(d *models.Distrito) string { return "distrito " + d.Clave }, "distrito no encontrado", nil)
}

func (s *DistritoService) Recover(ctx context.Context, actor *models.CurrentUser, id int64) (*models.Distrito, bool, error) {
	return changeEstatus[models.Distrito](ctx, s.lifecycle, actor, s.repo, id, models.EstatusActivo,
		func(d *models.Distrito) string { return "distrito " + d.Clave }, "distrito no encontrado", nil)
}

type autoridadRepository interface {
	Get(ctx context.Context, id int64) (*models.Autoridad, error)
	List(ctx context.Context, f dto.AutoridadFilter) ([]models.Autoridad, int, error)
	Create(ctx context.Context, a *models.Autoridad) error
	Update(ctx context.Context, a *models.Autoridad) error
	SetEstatus(ctx context.Context, id int64, e models.Estatus) error
}

type distritoLookup interface {
	Get(ctx context.Context, id int64) (*models.Distrito, error)
}

// AutoridadService manages courts and administrative units.
type AutoridadService struct {
	repo      autoridadRepository
	distritos distritoLookup
	lifecycle lifecycle
	validator *validator.Validate
	logger    *zap.Logger
}

func NewAutoridadService(repo autoridadRepository, distritos distritoLookup, tx txRunner, audit auditRecorder, validate *validator.Validate, logger *zap.Logger) *AutoridadService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AutoridadService{
		repo:      repo,
		distritos: distritos,
		lifecycle: lifecycle{tx: tx, audit: audit, module: access.ModuleAutoridades},
		validator: validate,
		logger:    logger,
	}
}

func (s *AutoridadService) List(ctx context.Context, f dto.AutoridadFilter) ([]models.Autoridad, int, error) {
	f.Clave = safe.ClaveFragment(f.Clave)
	f.DistritoClave = safe.ClaveFragment(f.DistritoClave)
	f.Descripcion = safe.String(f.Descripcion, safe.StringOptions{SaveEnie: true})
	items, total, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list autoridades")
	}
	return items, total, nil
}

func (s *AutoridadService) Get(ctx context.Context, id int64) (*models.Autoridad, error) {
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, "autoridad no encontrada", "failed to fetch autoridad")
	}
	return a, nil
}

func (s *AutoridadService) fromForm(ctx context.Context, form dto.AutoridadForm, a *models.Autoridad) error {
	if err := validate(s.validator, form); err != nil {
		return err
	}
	clave, err := safe.Clave(form.Clave, safe.ClaveOptions{})
	if err != nil {
		return err
	}
	organo := safe.String(form.OrganoJurisdiccional, safe.StringOptions{MaxLen: 64})
	if organo == "" {
		organo = models.OrganosJurisdiccionales[0]
	}
	if !contains(models.OrganosJurisdiccionales, organo) {
		return appErrors.Clone(appErrors.ErrValidation, "organo jurisdiccional no valido: "+organo)
	}
	distrito, err := s.distritos.Get(ctx, form.DistritoID)
	if err != nil || !distrito.IsActive() {
		return appErrors.Clone(appErrors.ErrNotExists, "el distrito no existe o esta eliminado")
	}
	a.DistritoID = distrito.ID
	a.DistritoClave = distrito.Clave
	a.Clave = clave
	a.Descripcion = safe.String(form.Descripcion, safe.StringOptions{MaxLen: 256, SaveEnie: true})
	a.DescripcionCorta = safe.String(form.DescripcionCorta, safe.StringOptions{MaxLen: 64, SaveEnie: true})
	a.EsJurisdiccional = form.EsJurisdiccional
	a.EsNotaria = form.EsNotaria
	a.OrganoJurisdiccional = organo
	if a.Descripcion == "" {
		return appErrors.Clone(appErrors.ErrValidation, "la descripcion es obligatoria")
	}
	return nil
}

func (s *AutoridadService) Create(ctx context.Context, actor *models.CurrentUser, form dto.AutoridadForm) (*models.Autoridad, error) {
	a := &models.Autoridad{}
	if err := s.fromForm(ctx, form, a); err != nil {
		return nil, err
	}
	err := s.lifecycle.write(ctx, actor, func(ctx context.Context) error {
		return s.repo.Create(ctx, a)
	}, func() (string, string) {
		return "Nueva autoridad " + a.Clave + " " + a.Descripcion, DetailURL(access.ModuleAutoridades, a.ID)
	})
	if err != nil {
		return nil, mapRepoError(err, "autoridad no encontrada", "failed to create autoridad")
	}
	return a, nil
}

func (s *AutoridadService) Update(ctx context.Context, actor *models.CurrentUser, id int64, form dto.AutoridadForm) (*models.Autoridad, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.fromForm(ctx, form, a); err != nil {
		return nil, err
	}
	err = s.lifecycle.write(ctx, actor, func(ctx context.Context) error {
		return s.repo.Update(ctx, a)
	}, func() (string, string) {
		return "Editada autoridad " + a.Clave + " " + a.Descripcion, DetailURL(access.ModuleAutoridades, a.ID)
	})
	if err != nil {
		return nil, mapRepoError(err, "autoridad no encontrada", "failed to update autoridad")
	}
	return a, nil
}

func (s *AutoridadService) Delete(ctx context.Context, actor *models.CurrentUser, id int64) (*models.Autoridad, bool, error) {
	return changeEstatus[models.Autoridad](ctx, s.lifecycle, actor, s.repo, id, models.EstatusBorrado,
		func(a *models.Autoridad) string { return "autoridad " + a.Clave }, "autoridad no encontrada", nil)
}

func (s *AutoridadService) Recover(ctx context.Context, actor *models.CurrentUser, id int64) (*models.Autoridad, bool, error) {
	return changeEstatus[models.Autoridad](ctx, s.lifecycle, actor, s.repo, id, models.EstatusActivo,
		func(a *models.Autoridad) string { return "autoridad " + a.Clave }, "autoridad no encontrada", nil)
}

func contains(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}
