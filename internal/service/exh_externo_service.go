package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/pjecz/hercules/internal/access"
	"github.com/pjecz/hercules/internal/dto"
	"github.com/pjecz/hercules/internal/models"
	appErrors "github.com/pjecz/hercules/pkg/errors"
	"github.com/pjecz/hercules/pkg/safe"
)

type exhExternoRepository interface {
	Get(ctx context.Context, id int64) (*models.ExhExterno, error)
	GetActiveByEstado(ctx context.Context, estadoClave string) (*models.ExhExterno, error)
	List(ctx context.Context, f dto.ExhExternoFilter) ([]models.ExhExterno, int, error)
	ListActive(ctx context.Context) ([]models.ExhExterno, error)
	Create(ctx context.Context, e *models.ExhExterno) error
	Update(ctx context.Context, e *models.ExhExterno) error
	ReplaceMaterias(ctx context.Context, id int64, materias models.Materias) error
	SetEstatus(ctx context.Context, id int64, e models.Estatus) error
}

type materiasSource interface {
	ConsultarMaterias(ctx context.Context, peer models.ExhExterno) (models.Materias, error)
}

// Probe outcomes, also used as metric labels.
const (
	ProbeUpdated   = "actualizado"
	ProbeUnchanged = "sin_cambios"
	ProbeFailed    = "error"
)

// ProbeResult is the outcome of refreshing one peer's materias.
type ProbeResult struct {
	Clave   string
	Outcome string
	Warning string
}

// ProbeSummary folds the results of one probe run.
type ProbeSummary struct {
	Results []ProbeResult
}

func (s ProbeSummary) Successes() int {
	n := 0
	for _, r := range s.Results {
		if r.Outcome != ProbeFailed {
			n++
		}
	}
	return n
}

func (s ProbeSummary) Warnings() []string {
	var out []string
	for _, r := range s.Results {
		if r.Warning != "" {
			out = append(out, r.Warning)
		}
	}
	return out
}

// Message is the text stored in the task once the run ends.
func (s ProbeSummary) Message() string {
	msg := fmt.Sprintf("Se probaron %d externos, %d con exito.", len(s.Results), s.Successes())
	if warnings := s.Warnings(); len(warnings) > 0 {
		msg += " Advertencias: " + strings.Join(warnings, "; ") + "."
	}
	return msg
}

// ExhExternoService manages peer jurisdictions and refreshes their materias.
type ExhExternoService struct {
	repo      exhExternoRepository
	peers     materiasSource
	metrics   *MetricsService
	lifecycle lifecycle
	validator *validator.Validate
	logger    *zap.Logger
}

func NewExhExternoService(repo exhExternoRepository, peers materiasSource, tx txRunner, audit auditRecorder, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *ExhExternoService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExhExternoService{
		repo:      repo,
		peers:     peers,
		metrics:   metrics,
		lifecycle: lifecycle{tx: tx, audit: audit, module: access.ModuleExhExternos},
		validator: validate,
		logger:    logger,
	}
}

func (s *ExhExternoService) List(ctx context.Context, f dto.ExhExternoFilter) ([]models.ExhExterno, int, error) {
	f.Clave = safe.ClaveFragment(f.Clave)
	f.Descripcion = safe.String(f.Descripcion, safe.StringOptions{SaveEnie: true})
	items, total, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list exh externos")
	}
	return items, total, nil
}

func (s *ExhExternoService) Get(ctx context.Context, id int64) (*models.ExhExterno, error) {
	e, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, "externo no encontrado", "failed to fetch exh externo")
	}
	return e, nil
}

func (s *ExhExternoService) fromForm(ctx context.Context, form dto.ExhExternoForm, e *models.ExhExterno) error {
	if err := validate(s.validator, form); err != nil {
		return err
	}
	clave, err := safe.Clave(form.Clave, safe.ClaveOptions{})
	if err != nil {
		return err
	}
	e.Clave = clave
	e.Descripcion = safe.String(form.Descripcion, safe.StringOptions{MaxLen: 256, SaveEnie: true})
	e.EstadoClave = strings.TrimSpace(form.EstadoClave)
	if key := strings.TrimSpace(form.APIKey); key != "" {
		e.APIKey = key
	}

	endpoints := []struct {
		raw  string
		dest *string
	}{
		{form.EndpointConsultarMaterias, &e.EndpointConsultarMaterias},
		{form.EndpointRecibirExhorto, &e.EndpointRecibirExhorto},
		{form.EndpointRecibirExhortoArchivo, &e.EndpointRecibirExhortoArchivo},
		{form.EndpointConsultarExhorto, &e.EndpointConsultarExhorto},
		{form.EndpointRecibirRespuestaExhorto, &e.EndpointRecibirRespuestaExhorto},
		{form.EndpointRecibirRespuestaExhortoArchivo, &e.EndpointRecibirRespuestaExhortoArchivo},
		{form.EndpointActualizarExhorto, &e.EndpointActualizarExhorto},
		{form.EndpointRecibirPromocion, &e.EndpointRecibirPromocion},
		{form.EndpointRecibirPromocionArchivo, &e.EndpointRecibirPromocionArchivo},
	}
	for _, ep := range endpoints {
		raw := strings.TrimSpace(ep.raw)
		if raw == "" {
			*ep.dest = ""
			continue
		}
		clean := safe.URL(raw)
		if clean == "" {
			return appErrors.Clone(appErrors.ErrNotValidParam, "endpoint no valido: "+raw)
		}
		*ep.dest = clean
	}

	if e.Descripcion == "" {
		return appErrors.Clone(appErrors.ErrValidation, "la descripcion es obligatoria")
	}
	other, err := s.repo.GetActiveByEstado(ctx, e.EstadoClave)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return mapRepoError(err, "externo no encontrado", "failed to check estado_clave")
	case other.ID != e.ID:
		return appErrors.Clone(appErrors.ErrConflict, "ya hay un externo activo para el estado "+e.EstadoClave)
	}
	return nil
}

func (s *ExhExternoService) Create(ctx context.Context, actor *models.CurrentUser, form dto.ExhExternoForm) (*models.ExhExterno, error) {
	e := &models.ExhExterno{Materias: models.Materias{}}
	if err := s.fromForm(ctx, form, e); err != nil {
		return nil, err
	}
	err := s.lifecycle.write(ctx, actor, func(ctx context.Context) error {
		return s.repo.Create(ctx, e)
	}, func() (string, string) {
		return "Nuevo externo " + e.Clave, DetailURL(access.ModuleExhExternos, e.ID)
	})
	if err != nil {
		return nil, mapRepoError(err, "externo no encontrado", "failed to create exh externo")
	}
	return e, nil
}

// Update never touches the cached materias; only a probe replaces them.
func (s *ExhExternoService) Update(ctx context.Context, actor *models.CurrentUser, id int64, form dto.ExhExternoForm) (*models.ExhExterno, error) {
	e, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.fromForm(ctx, form, e); err != nil {
		return nil, err
	}
	err = s.lifecycle.write(ctx, actor, func(ctx context.Context) error {
		return s.repo.Update(ctx, e)
	}, func() (string, string) {
		return "Editado externo " + e.Clave, DetailURL(access.ModuleExhExternos, e.ID)
	})
	if err != nil {
		return nil, mapRepoError(err, "externo no encontrado", "failed to update exh externo")
	}
	return e, nil
}

func (s *ExhExternoService) Delete(ctx context.Context, actor *models.CurrentUser, id int64) (*models.ExhExterno, bool, error) {
	return changeEstatus[models.ExhExterno](ctx, s.lifecycle, actor, s.repo, id, models.EstatusBorrado,
		func(e *models.ExhExterno) string { return "externo " + e.Clave }, "externo no encontrado", nil)
}

// Recover refuses to bring back a peer whose estado is now served by another row.
func (s *ExhExternoService) Recover(ctx context.Context, actor *models.CurrentUser, id int64) (*models.ExhExterno, bool, error) {
	e, err := s.Get(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if !e.IsActive() {
		other, err := s.repo.GetActiveByEstado(ctx, e.EstadoClave)
		if err == nil && other.ID != e.ID {
			return e, false, appErrors.Clone(appErrors.ErrConflict, "ya hay un externo activo para el estado "+e.EstadoClave)
		}
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, false, mapRepoError(err, "externo no encontrado", "failed to check estado_clave")
		}
	}
	return changeEstatus[models.ExhExterno](ctx, s.lifecycle, actor, s.repo, id, models.EstatusActivo,
		func(e *models.ExhExterno) string { return "externo " + e.Clave }, "externo no encontrado", nil)
}

// NormalizeMaterias canonicalizes a peer catalog, dropping entries without clave or nombre.
func NormalizeMaterias(raw models.Materias) models.Materias {
	out := make(models.Materias, 0, len(raw))
	for _, m := range raw {
		clave, err := safe.Clave(m.Clave, safe.ClaveOptions{})
		if err != nil {
			continue
		}
		nombre := safe.String(m.Nombre, safe.StringOptions{SaveEnie: true})
		if nombre == "" {
			continue
		}
		out = append(out, models.Materia{Clave: clave, Nombre: nombre})
	}
	return out
}

// Probe refreshes the materias of one peer. Failures are reported in the result,
// never as an error, so a run can continue with the next peer.
func (s *ExhExternoService) Probe(ctx context.Context, peer models.ExhExterno) ProbeResult {
	result := s.probe(ctx, peer)
	if s.metrics != nil {
		s.metrics.ObserveProbe(peer.Clave, result.Outcome)
	}
	return result
}

func (s *ExhExternoService) probe(ctx context.Context, peer models.ExhExterno) ProbeResult {
	failed := func(warning string) ProbeResult {
		s.logger.Warn("probe failed", zap.String("clave", peer.Clave), zap.String("warning", warning))
		return ProbeResult{Clave: peer.Clave, Outcome: ProbeFailed, Warning: warning}
	}

	raw, err := s.peers.ConsultarMaterias(ctx, peer)
	if err != nil {
		return failed(err.Error())
	}
	materias := NormalizeMaterias(raw)
	if len(raw) > 0 && len(materias) == 0 {
		return failed("Materias no validas para " + peer.Clave)
	}
	if materias.Equal(peer.Materias) {
		return ProbeResult{Clave: peer.Clave, Outcome: ProbeUnchanged}
	}
	if err := s.repo.ReplaceMaterias(ctx, peer.ID, materias); err != nil {
		s.logger.Error("failed to replace materias", zap.String("clave", peer.Clave), zap.Error(err))
		return failed("No se pudieron guardar las materias de " + peer.Clave)
	}
	return ProbeResult{Clave: peer.Clave, Outcome: ProbeUpdated}
}

// ProbeAll probes the peer id, or every active peer in insertion order when id is 0.
// progress, when set, is called after each peer with the percent done.
func (s *ExhExternoService) ProbeAll(ctx context.Context, id int64, progress func(percent int, msg string)) (ProbeSummary, error) {
	var peers []models.ExhExterno
	if id > 0 {
		peer, err := s.Get(ctx, id)
		if err != nil {
			return ProbeSummary{}, err
		}
		if !peer.IsActive() {
			return ProbeSummary{}, appErrors.Clone(appErrors.ErrNotExists, "el externo esta eliminado")
		}
		peers = []models.ExhExterno{*peer}
	} else {
		list, err := s.repo.ListActive(ctx)
		if err != nil {
			return ProbeSummary{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list active exh externos")
		}
		peers = list
	}

	summary := ProbeSummary{Results: make([]ProbeResult, 0, len(peers))}
	for i, peer := range peers {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		summary.Results = append(summary.Results, s.Probe(ctx, peer))
		if progress != nil {
			progress((i+1)*100/len(peers), "Probado "+peer.Clave)
		}
	}
	return summary, nil
}
