package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/pjecz/hercules/internal/access"
	"github.com/pjecz/hercules/internal/dto"
	"github.com/pjecz/hercules/internal/models"
	appErrors "github.com/pjecz/hercules/pkg/errors"
	"github.com/pjecz/hercules/pkg/safe"
)

func listChildren[T any](ctx context.Context, list func(context.Context, dto.ExhChildFilter) ([]T, int, error), f dto.ExhChildFilter, op string) ([]T, int, error) {
	items, total, err := list(ctx, f)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, op)
	}
	return items, total, nil
}

func gateOrNil(ctx context.Context, gate ParentGate, parentID int64) error {
	if gate == nil {
		return nil
	}
	return gate(ctx, parentID)
}

type exhParteRepository interface {
	Get(ctx context.Context, id int64) (*models.ExhExhortoParte, error)
	List(ctx context.Context, f dto.ExhChildFilter) ([]models.ExhExhortoParte, int, error)
	Create(ctx context.Context, p *models.ExhExhortoParte) error
	Update(ctx context.Context, p *models.ExhExhortoParte) error
	SetEstatus(ctx context.Context, id int64, e models.Estatus) error
}

// ExhParteService manages the partes of an exhorto, behind the exhorto's edit gate.
type ExhParteService struct {
	repo      exhParteRepository
	gate      ParentGate
	lifecycle lifecycle
	validator *validator.Validate
	logger    *zap.Logger
}

func NewExhParteService(repo exhParteRepository, gate ParentGate, tx txRunner, audit auditRecorder, validate *validator.Validate, logger *zap.Logger) *ExhParteService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExhParteService{repo: repo, gate: gate, lifecycle: lifecycle{tx: tx, audit: audit, module: access.ModuleExhExhortosPartes}, validator: validate, logger: logger}
}

func (s *ExhParteService) List(ctx context.Context, f dto.ExhChildFilter) ([]models.ExhExhortoParte, int, error) {
	return listChildren(ctx, s.repo.List, f, "failed to list partes")
}

func (s *ExhParteService) Get(ctx context.Context, id int64) (*models.ExhExhortoParte, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, "parte no encontrada", "failed to fetch parte")
	}
	return p, nil
}

func (s *ExhParteService) fromForm(form dto.ExhExhortoParteForm, p *models.ExhExhortoParte) error {
	if err := validate(s.validator, form); err != nil {
		return err
	}
	opts := safe.StringOptions{MaxLen: 256, SaveEnie: true}
	p.Nombre = safe.String(form.Nombre, opts)
	p.ApellidoPaterno = safe.String(form.ApellidoPaterno, opts)
	p.ApellidoMaterno = safe.String(form.ApellidoMaterno, opts)
	p.Genero = form.Genero
	if p.Genero == "" {
		p.Genero = "-"
	}
	p.EsPersonaMoral = form.EsPersonaMoral
	p.TipoParte = form.TipoParte
	p.TipoParteNombre = safe.String(form.TipoParteNombre, opts)
	if p.Nombre == "" {
		return appErrors.Clone(appErrors.ErrValidation, "el nombre es obligatorio")
	}
	return nil
}

func (s *ExhParteService) label(parte *models.ExhExhortoParte) string {
	return strings.TrimSpace(parte.Nombre + " " + parte.ApellidoPaterno + " " + parte.ApellidoMaterno)
}

// Create adds a parte while the exhorto is PENDIENTE.
func (s *ExhParteService) Create(ctx context.Context, actor *models.CurrentUser, exhortoID int64, form dto.ExhExhortoParteForm) (*models.ExhExhortoParte, error) {
	if err := gateOrNil(ctx, s.gate, exhortoID); err != nil {
		return nil, err
	}
	p := &models.ExhExhortoParte{ExhExhortoID: exhortoID}
	if err := s.fromForm(form, p); err != nil {
		return nil, err
	}
	err := s.lifecycle.write(ctx, actor, func(ctx context.Context) error {
		return s.repo.Create(ctx, p)
	}, func() (string, string) {
		return "Nueva parte " + s.label(p), DetailURL(access.ModuleExhExhortosPartes, p.ID)
	})
	if err != nil {
		return nil, mapRepoError(err, "parte no encontrada", "failed to create parte")
	}
	return p, nil
}

// Update edits a parte while its exhorto is PENDIENTE. A closed exhorto yields
// ErrFinalized together with the unchanged parte.
func (s *ExhParteService) Update(ctx context.Context, actor *models.CurrentUser, id int64, form dto.ExhExhortoParteForm) (*models.ExhExhortoParte, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := gateOrNil(ctx, s.gate, p.ExhExhortoID); err != nil {
		return p, err
	}
	if err := s.fromForm(form, p); err != nil {
		return nil, err
	}
	err = s.lifecycle.write(ctx, actor, func(ctx context.Context) error {
		return s.repo.Update(ctx, p)
	}, func() (string, string) {
		return "Editada parte " + s.label(p), DetailURL(access.ModuleExhExhortosPartes, p.ID)
	})
	if err != nil {
		return nil, mapRepoError(err, "parte no encontrada", "failed to update parte")
	}
	return p, nil
}

func (s *ExhParteService) Delete(ctx context.Context, actor *models.CurrentUser, id int64) (*models.ExhExhortoParte, bool, error) {
	return s.setEstatus(ctx, actor, id, models.EstatusBorrado)
}

func (s *ExhParteService) Recover(ctx context.Context, actor *models.CurrentUser, id int64) (*models.ExhExhortoParte, bool, error) {
	return s.setEstatus(ctx, actor, id, models.EstatusActivo)
}

func (s *ExhParteService) setEstatus(ctx context.Context, actor *models.CurrentUser, id int64, target models.Estatus) (*models.ExhExhortoParte, bool, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if err := gateOrNil(ctx, s.gate, p.ExhExhortoID); err != nil {
		return p, false, err
	}
	return changeEstatus[models.ExhExhortoParte](ctx, s.lifecycle, actor, s.repo, id, target,
		func(p *models.ExhExhortoParte) string { return "parte " + s.label(p) }, "parte no encontrada", nil)
}

type exhPromocionRepository interface {
	Get(ctx context.Context, id int64) (*models.ExhExhortoPromocion, error)
	List(ctx context.Context, f dto.ExhChildFilter) ([]models.ExhExhortoPromocion, int, error)
	Create(ctx context.Context, p *models.ExhExhortoPromocion) error
	Update(ctx context.Context, p *models.ExhExhortoPromocion) error
	SetEstatus(ctx context.Context, id int64, e models.Estatus) error
}

// ExhPromocionService manages supplementary filings, behind the exhorto's edit gate.
type ExhPromocionService struct {
	repo      exhPromocionRepository
	gate      ParentGate
	lifecycle lifecycle
	validator *validator.Validate
}

func NewExhPromocionService(repo exhPromocionRepository, gate ParentGate, tx txRunner, audit auditRecorder, validate *validator.Validate) *ExhPromocionService {
	if validate == nil {
		validate = validator.New()
	}
	return &ExhPromocionService{repo: repo, gate: gate, lifecycle: lifecycle{tx: tx, audit: audit, module: access.ModuleExhExhortosPromociones}, validator: validate}
}

func (s *ExhPromocionService) List(ctx context.Context, f dto.ExhChildFilter) ([]models.ExhExhortoPromocion, int, error) {
	return listChildren(ctx, s.repo.List, f, "failed to list promociones")
}

func (s *ExhPromocionService) Get(ctx context.Context, id int64) (*models.ExhExhortoPromocion, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, "promocion no encontrada", "failed to fetch promocion")
	}
	return p, nil
}

func (s *ExhPromocionService) fromForm(form dto.ExhExhortoPromocionForm, p *models.ExhExhortoPromocion) error {
	if err := validate(s.validator, form); err != nil {
		return err
	}
	p.FolioOrigenPromocion = safe.ClaveFragment(form.FolioOrigenPromocion)
	p.Fojas = form.Fojas
	p.Observaciones = safe.String(form.Observaciones, safe.StringOptions{MaxLen: 1024, KeepAccents: true, KeepCase: true})
	return nil
}

func (s *ExhPromocionService) Create(ctx context.Context, actor *models.CurrentUser, exhortoID int64, form dto.ExhExhortoPromocionForm) (*models.ExhExhortoPromocion, error) {
	if err := gateOrNil(ctx, s.gate, exhortoID); err != nil {
		return nil, err
	}
	p := &models.ExhExhortoPromocion{
		ExhExhortoID: exhortoID,
		FechaOrigen:  time.Now().UTC(),
		Remitente:    models.RemitenteInterno,
		Estado:       models.AdjuntoPendiente,
	}
	if err := s.fromForm(form, p); err != nil {
		return nil, err
	}
	err := s.lifecycle.write(ctx, actor, func(ctx context.Context) error {
		return s.repo.Create(ctx, p)
	}, func() (string, string) {
		return "Nueva promocion " + p.FolioOrigenPromocion, DetailURL(access.ModuleExhExhortosPromociones, p.ID)
	})
	if err != nil {
		return nil, mapRepoError(err, "promocion no encontrada", "failed to create promocion")
	}
	return p, nil
}

func (s *ExhPromocionService) Update(ctx context.Context, actor *models.CurrentUser, id int64, form dto.ExhExhortoPromocionForm) (*models.ExhExhortoPromocion, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := gateOrNil(ctx, s.gate, p.ExhExhortoID); err != nil {
		return p, err
	}
	if err := s.fromForm(form, p); err != nil {
		return nil, err
	}
	err = s.lifecycle.write(ctx, actor, func(ctx context.Context) error {
		return s.repo.Update(ctx, p)
	}, func() (string, string) {
		return "Editada promocion " + p.FolioOrigenPromocion, DetailURL(access.ModuleExhExhortosPromociones, p.ID)
	})
	if err != nil {
		return nil, mapRepoError(err, "promocion no encontrada", "failed to update promocion")
	}
	return p, nil
}

func (s *ExhPromocionService) Delete(ctx context.Context, actor *models.CurrentUser, id int64) (*models.ExhExhortoPromocion, bool, error) {
	return s.setEstatus(ctx, actor, id, models.EstatusBorrado)
}

func (s *ExhPromocionService) Recover(ctx context.Context, actor *models.CurrentUser, id int64) (*models.ExhExhortoPromocion, bool, error) {
	return s.setEstatus(ctx, actor, id, models.EstatusActivo)
}

func (s *ExhPromocionService) setEstatus(ctx context.Context, actor *models.CurrentUser, id int64, target models.Estatus) (*models.ExhExhortoPromocion, bool, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if err := gateOrNil(ctx, s.gate, p.ExhExhortoID); err != nil {
		return p, false, err
	}
	return changeEstatus[models.ExhExhortoPromocion](ctx, s.lifecycle, actor, s.repo, id, target,
		func(p *models.ExhExhortoPromocion) string { return "promocion " + p.FolioOrigenPromocion }, "promocion no encontrada", nil)
}

type exhRespuestaRepository interface {
	Get(ctx context.Context, id int64) (*models.ExhExhortoRespuesta, error)
	List(ctx context.Context, f dto.ExhChildFilter) ([]models.ExhExhortoRespuesta, int, error)
	Create(ctx context.Context, r *models.ExhExhortoRespuesta) error
	Update(ctx context.Context, r *models.ExhExhortoRespuesta) error
	SetEstatus(ctx context.Context, id int64, e models.Estatus) error
}

// ExhRespuestaService manages the replies to an exhorto.
type ExhRespuestaService struct {
	repo      exhRespuestaRepository
	gate      ParentGate
	lifecycle lifecycle
	validator *validator.Validate
}

func NewExhRespuestaService(repo exhRespuestaRepository, gate ParentGate, tx txRunner, audit auditRecorder, validate *validator.Validate) *ExhRespuestaService {
	if validate == nil {
		validate = validator.New()
	}
	return &ExhRespuestaService{repo: repo, gate: gate, lifecycle: lifecycle{tx: tx, audit: audit, module: access.ModuleExhExhortosRespuestas}, validator: validate}
}

func (s *ExhRespuestaService) List(ctx context.Context, f dto.ExhChildFilter) ([]models.ExhExhortoRespuesta, int, error) {
	return listChildren(ctx, s.repo.List, f, "failed to list respuestas")
}

func (s *ExhRespuestaService) Get(ctx context.Context, id int64) (*models.ExhExhortoRespuesta, error) {
	r, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, "respuesta no encontrada", "failed to fetch respuesta")
	}
	return r, nil
}

func (s *ExhRespuestaService) fromForm(form dto.ExhExhortoRespuestaForm, r *models.ExhExhortoRespuesta) error {
	if err := validate(s.validator, form); err != nil {
		return err
	}
	r.MunicipioTurnadoID = form.MunicipioTurnadoID
	r.AreaTurnadoNombre = safe.String(form.AreaTurnadoNombre, safe.StringOptions{MaxLen: 256, SaveEnie: true})
	r.NumeroExhorto = strings.ToUpper(strings.TrimSpace(form.NumeroExhorto))
	r.TipoDiligenciado = form.TipoDiligenciado
	r.Observaciones = safe.String(form.Observaciones, safe.StringOptions{MaxLen: 1024, KeepAccents: true, KeepCase: true})
	return nil
}

func (s *ExhRespuestaService) Create(ctx context.Context, actor *models.CurrentUser, exhortoID int64, form dto.ExhExhortoRespuestaForm) (*models.ExhExhortoRespuesta, error) {
	if err := gateOrNil(ctx, s.gate, exhortoID); err != nil {
		return nil, err
	}
	r := &models.ExhExhortoRespuesta{
		ExhExhortoID:      exhortoID,
		RespuestaOrigenID: newOrigenID(),
		Remitente:         models.RemitenteInterno,
		Estado:            models.AdjuntoPendiente,
	}
	if err := s.fromForm(form, r); err != nil {
		return nil, err
	}
	err := s.lifecycle.write(ctx, actor, func(ctx context.Context) error {
		return s.repo.Create(ctx, r)
	}, func() (string, string) {
		return "Nueva respuesta " + r.RespuestaOrigenID, DetailURL(access.ModuleExhExhortosRespuestas, r.ID)
	})
	if err != nil {
		return nil, mapRepoError(err, "respuesta no encontrada", "failed to create respuesta")
	}
	return r, nil
}

func (s *ExhRespuestaService) Update(ctx context.Context, actor *models.CurrentUser, id int64, form dto.ExhExhortoRespuestaForm) (*models.ExhExhortoRespuesta, error) {
	r, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := gateOrNil(ctx, s.gate, r.ExhExhortoID); err != nil {
		return r, err
	}
	if err := s.fromForm(form, r); err != nil {
		return nil, err
	}
	err = s.lifecycle.write(ctx, actor, func(ctx context.Context) error {
		return s.repo.Update(ctx, r)
	}, func() (string, string) {
		return "Editada respuesta " + r.RespuestaOrigenID, DetailURL(access.ModuleExhExhortosRespuestas, r.ID)
	})
	if err != nil {
		return nil, mapRepoError(err, "respuesta no encontrada", "failed to update respuesta")
	}
	return r, nil
}

func (s *ExhRespuestaService) Delete(ctx context.Context, actor *models.CurrentUser, id int64) (*models.ExhExhortoRespuesta, bool, error) {
	return changeEstatus[models.ExhExhortoRespuesta](ctx, s.lifecycle, actor, s.repo, id, models.EstatusBorrado,
		func(r *models.ExhExhortoRespuesta) string { return "respuesta " + r.RespuestaOrigenID }, "respuesta no encontrada", nil)
}

func (s *ExhRespuestaService) Recover(ctx context.Context, actor *models.CurrentUser, id int64) (*models.ExhExhortoRespuesta, bool, error) {
	return changeEstatus[models.ExhExhortoRespuesta](ctx, s.lifecycle, actor, s.repo, id, models.EstatusActivo,
		func(r *models.ExhExhortoRespuesta) string { return "respuesta " + r.RespuestaOrigenID }, "respuesta no encontrada", nil)
}

// ArchivosGate accepts archivos on active respuestas only.
func (s *ExhRespuestaService) ArchivosGate(ctx context.Context, respuestaID int64) error {
	r, err := s.Get(ctx, respuestaID)
	if err != nil {
		return err
	}
	if !r.IsActive() {
		return appErrors.Clone(appErrors.ErrFinalized, "la respuesta esta eliminada")
	}
	return nil
}

type exhVideoRepository interface {
	Get(ctx context.Context, id int64) (*models.ExhExhortoRespuestaVideo, error)
	List(ctx context.Context, f dto.ExhChildFilter) ([]models.ExhExhortoRespuestaVideo, int, error)
	Create(ctx context.Context, v *models.ExhExhortoRespuestaVideo) error
	Update(ctx context.Context, v *models.ExhExhortoRespuestaVideo) error
	SetEstatus(ctx context.Context, id int64, e models.Estatus) error
}

// ExhVideoService links recorded hearings to a respuesta.
type ExhVideoService struct {
	repo      exhVideoRepository
	gate      ParentGate
	lifecycle lifecycle
	validator *validator.Validate
}

func NewExhVideoService(repo exhVideoRepository, gate ParentGate, tx txRunner, audit auditRecorder, validate *validator.Validate) *ExhVideoService {
	if validate == nil {
		validate = validator.New()
	}
	return &ExhVideoService{repo: repo, gate: gate, lifecycle: lifecycle{tx: tx, audit: audit, module: access.ModuleExhExhortosRespuestasVideos}, validator: validate}
}

func (s *ExhVideoService) List(ctx context.Context, f dto.ExhChildFilter) ([]models.ExhExhortoRespuestaVideo, int, error) {
	return listChildren(ctx, s.repo.List, f, "failed to list videos")
}

func (s *ExhVideoService) Get(ctx context.Context, id int64) (*models.ExhExhortoRespuestaVideo, error) {
	v, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, "video no encontrado", "failed to fetch video")
	}
	return v, nil
}

func (s *ExhVideoService) fromForm(form dto.ExhExhortoRespuestaVideoForm, v *models.ExhExhortoRespuestaVideo) error {
	if err := validate(s.validator, form); err != nil {
		return err
	}
	link := safe.URL(form.URLAcceso)
	if link == "" {
		return appErrors.Clone(appErrors.ErrNotValidParam, "url de acceso no valida")
	}
	v.Titulo = safe.String(form.Titulo, safe.StringOptions{MaxLen: 256, SaveEnie: true})
	v.Descripcion = safe.String(form.Descripcion, safe.StringOptions{MaxLen: 1024, KeepAccents: true, KeepCase: true})
	v.URLAcceso = link
	v.Fecha = nil
	if form.Fecha != "" {
		fecha, err := time.Parse("2006-01-02", form.Fecha)
		if err != nil {
			return appErrors.Clone(appErrors.ErrValidation, "fecha no valida")
		}
		v.Fecha = &fecha
	}
	if v.Titulo == "" {
		return appErrors.Clone(appErrors.ErrValidation, "el titulo es obligatorio")
	}
	return nil
}

func (s *ExhVideoService) Create(ctx context.Context, actor *models.CurrentUser, respuestaID int64, form dto.ExhExhortoRespuestaVideoForm) (*models.ExhExhortoRespuestaVideo, error) {
	if err := gateOrNil(ctx, s.gate, respuestaID); err != nil {
		return nil, err
	}
	v := &models.ExhExhortoRespuestaVideo{ExhExhortoRespuestaID: respuestaID}
	if err := s.fromForm(form, v); err != nil {
		return nil, err
	}
	err := s.lifecycle.write(ctx, actor, func(ctx context.Context) error {
		return s.repo.Create(ctx, v)
	}, func() (string, string) {
		return "Nuevo video " + v.Titulo, DetailURL(access.ModuleExhExhortosRespuestasVideos, v.ID)
	})
	if err != nil {
		return nil, mapRepoError(err, "video no encontrado", "failed to create video")
	}
	return v, nil
}

func (s *ExhVideoService) Update(ctx context.Context, actor *models.CurrentUser, id int64, form dto.ExhExhortoRespuestaVideoForm) (*models.ExhExhortoRespuestaVideo, error) {
	v, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.fromForm(form, v); err != nil {
		return nil, err
	}
	err = s.lifecycle.write(ctx, actor, func(ctx context.Context) error {
		return s.repo.Update(ctx, v)
	}, func() (string, string) {
		return "Editado video " + v.Titulo, DetailURL(access.ModuleExhExhortosRespuestasVideos, v.ID)
	})
	if err != nil {
		return nil, mapRepoError(err, "video no encontrado", "failed to update video")
	}
	return v, nil
}

func (s *ExhVideoService) Delete(ctx context.Context, actor *models.CurrentUser, id int64) (*models.ExhExhortoRespuestaVideo, bool, error) {
	return changeEstatus[models.ExhExhortoRespuestaVideo](ctx, s.lifecycle, actor, s.repo, id, models.EstatusBorrado,
		func(v *models.ExhExhortoRespuestaVideo) string { return "video " + v.Titulo }, "video no encontrado", nil)
}

func (s *ExhVideoService) Recover(ctx context.Context, actor *models.CurrentUser, id int64) (*models.ExhExhortoRespuestaVideo, bool, error) {
	return changeEstatus[models.ExhExhortoRespuestaVideo](ctx, s.lifecycle, actor, s.repo, id, models.EstatusActivo,
		func(v *models.ExhExhortoRespuestaVideo) string { return "video " + v.Titulo }, "video no encontrado", nil)
}

type exhActualizacionRepository interface {
	Get(ctx context.Context, id int64) (*models.ExhExhortoActualizacion, error)
	List(ctx context.Context, f dto.ExhChildFilter) ([]models.ExhExhortoActualizacion, int, error)
	Create(ctx context.Context, a *models.ExhExhortoActualizacion) error
	SetEstatus(ctx context.Context, id int64, e models.Estatus) error
}

// ExhActualizacionService appends status updates; none are accepted after CANCELADO.
type ExhActualizacionService struct {
	repo      exhActualizacionRepository
	gate      ParentGate
	lifecycle lifecycle
	validator *validator.Validate
}

func NewExhActualizacionService(repo exhActualizacionRepository, gate ParentGate, tx txRunner, audit auditRecorder, validate *validator.Validate) *ExhActualizacionService {
	if validate == nil {
		validate = validator.New()
	}
	return &ExhActualizacionService{repo: repo, gate: gate, lifecycle: lifecycle{tx: tx, audit: audit, module: access.ModuleExhExhortosActualizaciones}, validator: validate}
}

func (s *ExhActualizacionService) List(ctx context.Context, f dto.ExhChildFilter) ([]models.ExhExhortoActualizacion, int, error) {
	return listChildren(ctx, s.repo.List, f, "failed to list actualizaciones")
}

func (s *ExhActualizacionService) Get(ctx context.Context, id int64) (*models.ExhExhortoActualizacion, error) {
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, "actualizacion no encontrada", "failed to fetch actualizacion")
	}
	return a, nil
}

func (s *ExhActualizacionService) Create(ctx context.Context, actor *models.CurrentUser, exhortoID int64, form dto.ExhExhortoActualizacionForm) (*models.ExhExhortoActualizacion, error) {
	if err := validate(s.validator, form); err != nil {
		return nil, err
	}
	if err := gateOrNil(ctx, s.gate, exhortoID); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	a := &models.ExhExhortoActualizacion{
		ExhExhortoID:          exhortoID,
		ActualizacionOrigenID: newOrigenID(),
		TipoActualizacion:     form.TipoActualizacion,
		FechaHora:             now,
		Descripcion:           safe.String(form.Descripcion, safe.StringOptions{MaxLen: 1024, KeepAccents: true, KeepCase: true}),
		Remitente:             models.RemitenteInterno,
	}
	if a.Descripcion == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "la descripcion es obligatoria")
	}
	err := s.lifecycle.write(ctx, actor, func(ctx context.Context) error {
		return s.repo.Create(ctx, a)
	}, func() (string, string) {
		return "Nueva actualizacion " + a.TipoActualizacion, DetailURL(access.ModuleExhExhortosActualizaciones, a.ID)
	})
	if err != nil {
		return nil, mapRepoError(err, "actualizacion no encontrada", "failed to create actualizacion")
	}
	return a, nil
}

func (s *ExhActualizacionService) Delete(ctx context.Context, actor *models.CurrentUser, id int64) (*models.ExhExhortoActualizacion, bool, error) {
	return changeEstatus[models.ExhExhortoActualizacion](ctx, s.lifecycle, actor, s.repo, id, models.EstatusBorrado,
		func(a *models.ExhExhortoActualizacion) string { return "actualizacion " + a.TipoActualizacion }, "actualizacion no encontrada", nil)
}

func (s *ExhActualizacionService) Recover(ctx context.Context, actor *models.CurrentUser, id int64) (*models.ExhExhortoActualizacion, bool, error) {
	return changeEstatus[models.ExhExhortoActualizacion](ctx, s.lifecycle, actor, s.repo, id, models.EstatusActivo,
		func(a *models.ExhExhortoActualizacion) string { return "actualizacion " + a.TipoActualizacion }, "actualizacion no encontrada", nil)
}
