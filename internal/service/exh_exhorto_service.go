package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pjecz/hercules/internal/access"
	"github.com/pjecz/hercules/internal/dto"
	"github.com/pjecz/hercules/internal/models"
	appErrors "github.com/pjecz/hercules/pkg/errors"
	"github.com/pjecz/hercules/pkg/safe"
)

type exhExhortoRepository interface {
	Get(ctx context.Context, id int64) (*models.ExhExhorto, error)
	GetForUpdate(ctx context.Context, id int64) (*models.ExhExhorto, error)
	List(ctx context.Context, f dto.ExhExhortoFilter) ([]models.ExhExhorto, int, error)
	Create(ctx context.Context, e *models.ExhExhorto) error
	Update(ctx context.Context, e *models.ExhExhorto) error
	SetEstado(ctx context.Context, id int64, from, to models.ExhEstado) error
	Resumen(ctx context.Context, id int64) (models.ExhExhortoResumen, error)
	SetEstatus(ctx context.Context, id int64, e models.Estatus) error
}

type exhParteSource interface {
	List(ctx context.Context, f dto.ExhChildFilter) ([]models.ExhExhortoParte, int, error)
	SoftDeleteByParent(ctx context.Context, exhortoID int64) error
}

type exhExternoLookup interface {
	GetActiveByEstado(ctx context.Context, estadoClave string) (*models.ExhExterno, error)
}

type exhortoArchivos interface {
	ActiveByParent(ctx context.Context, parentID int64) ([]models.Adjunto, error)
	Open(ctx context.Context, id int64) (*models.Adjunto, []byte, string, error)
	MarkEstado(ctx context.Context, id int64, estado string) error
}

type exhortoPeer interface {
	RecibirExhorto(ctx context.Context, peer models.ExhExterno, exhorto PeerExhorto) (*PeerAcuse, error)
	RecibirExhortoArchivo(ctx context.Context, peer models.ExhExterno, exhortoOrigenID, filename string, data []byte) (*PeerAcuse, error)
}

// exhTransitions lists the estados each exhorto estado may move to. Missing
// keys are terminal.
var exhTransitions = map[models.ExhEstado][]models.ExhEstado{
	models.ExhPendiente:    {models.ExhProcesando, models.ExhCancelado},
	models.ExhProcesando:   {models.ExhRecibido, models.ExhRechazado, models.ExhCancelado},
	models.ExhRecibido:     {models.ExhDiligenciado, models.ExhContestado, models.ExhRechazado, models.ExhCancelado},
	models.ExhDiligenciado: {models.ExhContestado, models.ExhCancelado},
}

// CanTransition reports whether the state machine allows from -> to.
func CanTransition(from, to models.ExhEstado) bool {
	for _, next := range exhTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// checkGuard enforces the children conditions of the target estado.
func checkGuard(to models.ExhEstado, r models.ExhExhortoResumen) error {
	switch to {
	case models.ExhProcesando:
		if r.PartesActivas == 0 {
			return appErrors.Clone(appErrors.ErrValidation, "el exhorto no tiene partes")
		}
		if r.ArchivosActivos == 0 {
			return appErrors.Clone(appErrors.ErrValidation, "el exhorto no tiene archivos")
		}
	case models.ExhRecibido:
		if r.ArchivosActivos == 0 || r.ArchivosRecibidos < r.ArchivosActivos {
			return appErrors.Clone(appErrors.ErrValidation, "faltan archivos por recibir")
		}
	case models.ExhContestado:
		if r.RespuestasCompletas == 0 {
			return appErrors.Clone(appErrors.ErrValidation, "no hay una respuesta con todos sus archivos recibidos")
		}
	}
	return nil
}

// newOrigenID is the identifier this jurisdiction gives to what it originates.
func newOrigenID() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
}

// ExhExhortoConfig carries the identity of this jurisdiction in the exchange.
type ExhExhortoConfig struct {
	EstadoClave string
}

// ExhExhortoService manages exhortos, their state machine and their delivery to peers.
type ExhExhortoService struct {
	repo        exhExhortoRepository
	partes      exhParteSource
	archivosRow adjuntoCascade
	autoridades autoridadLookup
	externos    exhExternoLookup
	archivos    exhortoArchivos
	peer        exhortoPeer
	tx          txRunner
	audit       auditRecorder
	lifecycle   lifecycle
	cfg         ExhExhortoConfig
	validator   *validator.Validate
	logger      *zap.Logger
}

func NewExhExhortoService(repo exhExhortoRepository, partes exhParteSource, archivosRow adjuntoCascade, autoridades autoridadLookup, externos exhExternoLookup, tx txRunner, audit auditRecorder, cfg ExhExhortoConfig, validate *validator.Validate, logger *zap.Logger) *ExhExhortoService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExhExhortoService{
		repo:        repo,
		partes:      partes,
		archivosRow: archivosRow,
		autoridades: autoridades,
		externos:    externos,
		tx:          tx,
		audit:       audit,
		lifecycle:   lifecycle{tx: tx, audit: audit, module: access.ModuleExhExhortos},
		cfg:         cfg,
		validator:   validate,
		logger:      logger,
	}
}

// WithExchange wires what Enviar needs to deliver an exhorto to its peer.
func (s *ExhExhortoService) WithExchange(archivos exhortoArchivos, peer exhortoPeer) *ExhExhortoService {
	s.archivos = archivos
	s.peer = peer
	return s
}

func (s *ExhExhortoService) List(ctx context.Context, f dto.ExhExhortoFilter) ([]models.ExhExhorto, int, error) {
	f.ExhortoOrigenID = strings.TrimSpace(f.ExhortoOrigenID)
	items, total, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list exh exhortos")
	}
	return items, total, nil
}

func (s *ExhExhortoService) Get(ctx context.Context, id int64) (*models.ExhExhorto, error) {
	e, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, "exhorto no encontrado", "failed to fetch exh exhorto")
	}
	return e, nil
}

func (s *ExhExhortoService) fromForm(ctx context.Context, form dto.ExhExhortoForm, e *models.ExhExhorto) error {
	if err := validate(s.validator, form); err != nil {
		return err
	}
	autoridad, err := s.autoridades.Get(ctx, form.AutoridadID)
	if err != nil || !autoridad.IsActive() {
		return appErrors.Clone(appErrors.ErrNotExists, "la autoridad no existe o esta eliminada")
	}
	expediente, err := safe.Expediente(form.NumeroExpedienteOrigen)
	if err != nil {
		return err
	}
	materiaClave, err := safe.Clave(form.MateriaClave, safe.ClaveOptions{})
	if err != nil {
		return err
	}

	peer, err := s.externos.GetActiveByEstado(ctx, form.EstadoDestinoClave)
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotExists, "no hay un externo activo para el estado "+form.EstadoDestinoClave)
	}
	if err != nil {
		return mapRepoError(err, "externo no encontrado", "failed to fetch exh externo")
	}
	materiaNombre := ""
	for _, m := range peer.Materias {
		if m.Clave == materiaClave {
			materiaNombre = m.Nombre
			break
		}
	}
	if materiaNombre == "" {
		return appErrors.Clone(appErrors.ErrNotExists, "el externo "+peer.Clave+" no tiene la materia "+materiaClave)
	}

	e.AutoridadID = autoridad.ID
	e.AutoridadClave = autoridad.Clave
	e.MunicipioDestinoID = form.MunicipioDestinoID
	e.MateriaClave = materiaClave
	e.MateriaNombre = materiaNombre
	e.EstadoDestinoClave = form.EstadoDestinoClave
	e.JuzgadoOrigenID = safe.ClaveFragment(form.JuzgadoOrigenID)
	e.JuzgadoOrigenNombre = safe.String(form.JuzgadoOrigenNombre, safe.StringOptions{MaxLen: 256, SaveEnie: true})
	e.NumeroExpedienteOrigen = expediente
	e.NumeroOficioOrigen = strings.ToUpper(strings.TrimSpace(form.NumeroOficioOrigen))
	e.TipoJuicioAsuntoDelitos = safe.String(form.TipoJuicioAsuntoDelitos, safe.StringOptions{MaxLen: 256, SaveEnie: true})
	e.JuezExhortante = safe.String(form.JuezExhortante, safe.StringOptions{MaxLen: 256, SaveEnie: true})
	e.Fojas = form.Fojas
	e.DiasResponder = form.DiasResponder
	e.TipoDiligenciacion = safe.String(form.TipoDiligenciacion, safe.StringOptions{MaxLen: 256, SaveEnie: true})
	e.Observaciones = safe.String(form.Observaciones, safe.StringOptions{MaxLen: 1024, KeepAccents: true, KeepCase: true})
	if e.TipoJuicioAsuntoDelitos == "" {
		return appErrors.Clone(appErrors.ErrValidation, "el tipo de juicio es obligatorio")
	}
	return nil
}

// Create registers an outgoing exhorto in PENDIENTE.
func (s *ExhExhortoService) Create(ctx context.Context, actor *models.CurrentUser, form dto.ExhExhortoForm) (*models.ExhExhorto, error) {
	e := &models.ExhExhorto{
		ExhortoOrigenID:   newOrigenID(),
		EstadoOrigenClave: s.cfg.EstadoClave,
		FechaOrigen:       time.Now().UTC(),
		Remitente:         models.RemitenteInterno,
		Estado:            models.ExhPendiente,
	}
	if err := s.fromForm(ctx, form, e); err != nil {
		return nil, err
	}
	err := s.lifecycle.write(ctx, actor, func(ctx context.Context) error {
		return s.repo.Create(ctx, e)
	}, func() (string, string) {
		return "Nuevo exhorto " + e.NumeroExpedienteOrigen, DetailURL(access.ModuleExhExhortos, e.ID)
	})
	if err != nil {
		return nil, mapRepoError(err, "exhorto no encontrado", "failed to create exh exhorto")
	}
	return e, nil
}

// Update edits an exhorto still in PENDIENTE.
func (s *ExhExhortoService) Update(ctx context.Context, actor *models.CurrentUser, id int64, form dto.ExhExhortoForm) (*models.ExhExhorto, error) {
	e, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.Estado != models.ExhPendiente {
		return e, appErrors.Clone(appErrors.ErrFinalized, "solo se edita un exhorto PENDIENTE")
	}
	if err := s.fromForm(ctx, form, e); err != nil {
		return nil, err
	}
	err = s.lifecycle.write(ctx, actor, func(ctx context.Context) error {
		return s.repo.Update(ctx, e)
	}, func() (string, string) {
		return "Editado exhorto " + e.NumeroExpedienteOrigen, DetailURL(access.ModuleExhExhortos, e.ID)
	})
	if err != nil {
		return nil, mapRepoError(err, "exhorto no encontrado", "failed to update exh exhorto")
	}
	return e, nil
}

// ChangeEstado applies a manual transition, checking the state machine and its guards.
func (s *ExhExhortoService) ChangeEstado(ctx context.Context, actor *models.CurrentUser, id int64, form dto.ExhExhortoEstadoForm) (*models.ExhExhorto, error) {
	if err := validate(s.validator, form); err != nil {
		return nil, err
	}
	return s.transition(ctx, actor, id, models.ExhEstado(strings.ToUpper(strings.TrimSpace(form.Estado))))
}

func (s *ExhExhortoService) transition(ctx context.Context, actor *models.CurrentUser, id int64, to models.ExhEstado) (*models.ExhExhorto, error) {
	var e *models.ExhExhorto
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		row, err := s.repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		e = row
		if !e.IsActive() {
			return appErrors.Clone(appErrors.ErrFinalized, "el exhorto esta eliminado")
		}
		if !CanTransition(e.Estado, to) {
			return appErrors.Clone(appErrors.ErrFinalized, fmt.Sprintf("no se puede pasar de %s a %s", e.Estado, to))
		}
		resumen, err := s.repo.Resumen(ctx, id)
		if err != nil {
			return err
		}
		if err := checkGuard(to, resumen); err != nil {
			return err
		}
		if err := s.repo.SetEstado(ctx, id, e.Estado, to); err != nil {
			return err
		}
		e.EstadoAnterior, e.Estado = string(e.Estado), to
		return s.audit.Record(ctx, actor, access.ModuleExhExhortos,
			fmt.Sprintf("Exhorto %s pasa a %s", e.NumeroExpedienteOrigen, to), DetailURL(access.ModuleExhExhortos, id))
	})
	if err != nil {
		return nil, mapRepoError(err, "exhorto no encontrado", "failed to change exh exhorto estado")
	}
	return e, nil
}

// Recalculate promotes a PROCESANDO exhorto to RECIBIDO once every active archivo
// was acknowledged. It reports whether the estado changed.
func (s *ExhExhortoService) Recalculate(ctx context.Context, actor *models.CurrentUser, id int64) (bool, error) {
	moved := false
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		e, err := s.repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if e.Estado != models.ExhProcesando || !e.IsActive() {
			return nil
		}
		resumen, err := s.repo.Resumen(ctx, id)
		if err != nil {
			return err
		}
		if checkGuard(models.ExhRecibido, resumen) != nil {
			return nil
		}
		if err := s.repo.SetEstado(ctx, id, models.ExhProcesando, models.ExhRecibido); err != nil {
			return err
		}
		moved = true
		return s.audit.Record(ctx, actor, access.ModuleExhExhortos,
			"Exhorto "+e.NumeroExpedienteOrigen+" RECIBIDO por el externo", DetailURL(access.ModuleExhExhortos, id))
	})
	if err != nil {
		return false, mapRepoError(err, "exhorto no encontrado", "failed to recalculate exh exhorto")
	}
	return moved, nil
}

// Delete soft-deletes the exhorto with its partes and archivos.
func (s *ExhExhortoService) Delete(ctx context.Context, actor *models.CurrentUser, id int64) (*models.ExhExhorto, bool, error) {
	return changeEstatus[models.ExhExhorto](ctx, s.lifecycle, actor, s.repo, id, models.EstatusBorrado,
		func(e *models.ExhExhorto) string { return "exhorto " + e.NumeroExpedienteOrigen }, "exhorto no encontrado",
		func(ctx context.Context) error {
			if err := s.partes.SoftDeleteByParent(ctx, id); err != nil {
				return err
			}
			return s.archivosRow.SoftDeleteByParent(ctx, id)
		})
}

func (s *ExhExhortoService) Recover(ctx context.Context, actor *models.CurrentUser, id int64) (*models.ExhExhorto, bool, error) {
	return changeEstatus[models.ExhExhorto](ctx, s.lifecycle, actor, s.repo, id, models.EstatusActivo,
		func(e *models.ExhExhorto) string { return "exhorto " + e.NumeroExpedienteOrigen }, "exhorto no encontrado", nil)
}

// EditGate allows changes to partes, archivos and promociones only while the
// exhorto is active and PENDIENTE.
func (s *ExhExhortoService) EditGate(ctx context.Context, exhortoID int64) error {
	e, err := s.Get(ctx, exhortoID)
	if err != nil {
		return err
	}
	if !e.IsActive() {
		return appErrors.Clone(appErrors.ErrFinalized, "el exhorto esta eliminado")
	}
	if e.Estado != models.ExhPendiente {
		return appErrors.Clone(appErrors.ErrFinalized, "no se puede modificar, el exhorto esta "+string(e.Estado))
	}
	return nil
}

// RespuestaGate accepts respuestas while the exhorto is received and not closed.
func (s *ExhExhortoService) RespuestaGate(ctx context.Context, exhortoID int64) error {
	e, err := s.Get(ctx, exhortoID)
	if err != nil {
		return err
	}
	if !e.IsActive() || (e.Estado != models.ExhRecibido && e.Estado != models.ExhDiligenciado) {
		return appErrors.Clone(appErrors.ErrFinalized, "el exhorto no admite respuestas en "+string(e.Estado))
	}
	return nil
}

// ActualizacionGate rejects updates once the exhorto is CANCELADO.
func (s *ExhExhortoService) ActualizacionGate(ctx context.Context, exhortoID int64) error {
	e, err := s.Get(ctx, exhortoID)
	if err != nil {
		return err
	}
	if !e.IsActive() || e.Estado == models.ExhCancelado {
		return appErrors.Clone(appErrors.ErrFinalized, "el exhorto esta cancelado")
	}
	return nil
}

// EnviarGate checks, before a task is queued, that the exhorto can be sent.
func (s *ExhExhortoService) EnviarGate(ctx context.Context, id int64) error {
	_, err := s.enviable(ctx, id)
	return err
}

func (s *ExhExhortoService) enviable(ctx context.Context, id int64) (*models.ExhExhorto, error) {
	e, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.Remitente != models.RemitenteInterno {
		return nil, appErrors.Clone(appErrors.ErrNotValidParam, "solo se envian exhortos propios")
	}
	if err := s.EditGate(ctx, id); err != nil {
		return nil, err
	}
	resumen, err := s.repo.Resumen(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, "exhorto no encontrado", "failed to summarize exh exhorto")
	}
	if err := checkGuard(models.ExhProcesando, resumen); err != nil {
		return nil, err
	}
	return e, nil
}

// Enviar delivers a PENDIENTE exhorto to the peer of its destination state: the
// exhorto first, then each archivo. Archivos the peer acknowledges become
// RECIBIDO. The returned text summarizes the delivery.
func (s *ExhExhortoService) Enviar(ctx context.Context, actor *models.CurrentUser, id int64, progress func(percent int, msg string)) (string, error) {
	if s.peer == nil || s.archivos == nil {
		return "", appErrors.Clone(appErrors.ErrMissingConfiguration, "el intercambio de exhortos no esta configurado")
	}
	if progress == nil {
		progress = func(int, string) {}
	}
	e, err := s.enviable(ctx, id)
	if err != nil {
		return "", err
	}
	peer, err := s.externos.GetActiveByEstado(ctx, e.EstadoDestinoClave)
	if err != nil {
		return "", mapRepoError(err, "no hay un externo activo para el estado "+e.EstadoDestinoClave, "failed to fetch exh externo")
	}

	partes, _, err := s.partes.List(ctx, dto.ExhChildFilter{Estatus: models.EstatusActivo, ParentID: id})
	if err != nil {
		return "", mapRepoError(err, "exhorto no encontrado", "failed to list partes")
	}
	all, err := s.archivos.ActiveByParent(ctx, id)
	if err != nil {
		return "", err
	}
	archivos := make([]models.Adjunto, 0, len(all))
	for _, a := range all {
		if a.Stored() {
			archivos = append(archivos, a)
		}
	}
	if len(archivos) == 0 {
		return "", appErrors.Clone(appErrors.ErrValidation, "el exhorto no tiene archivos subidos")
	}

	progress(10, "Enviando exhorto a "+peer.Clave)
	acuse, err := s.peer.RecibirExhorto(ctx, *peer, buildPeerExhorto(e, partes, archivos))
	if err != nil {
		return "", err
	}
	if acuse.FolioSeguimiento != "" {
		e.FolioSeguimiento = acuse.FolioSeguimiento
		if err := s.repo.Update(ctx, e); err != nil {
			s.logger.Warn("failed to store folio de seguimiento", zap.Int64("exh_exhorto_id", id), zap.Error(err))
		}
	}
	if _, err := s.transition(ctx, actor, id, models.ExhProcesando); err != nil {
		return "", err
	}

	var warnings []string
	recibidos := 0
	for i, a := range archivos {
		if err := s.enviarArchivo(ctx, *peer, e.ExhortoOrigenID, a); err != nil {
			warnings = append(warnings, err.Error())
		} else {
			recibidos++
		}
		progress(10+(i+1)*80/len(archivos), "Archivo "+a.NombreArchivo)
	}

	if _, err := s.Recalculate(ctx, actor, id); err != nil {
		warnings = append(warnings, err.Error())
	}
	msg := fmt.Sprintf("Exhorto %s enviado a %s, %d de %d archivos recibidos.", e.ExhortoOrigenID, peer.Clave, recibidos, len(archivos))
	if len(warnings) > 0 {
		msg += " Advertencias: " + strings.Join(warnings, "; ") + "."
	}
	return msg, nil
}

func (s *ExhExhortoService) enviarArchivo(ctx context.Context, peer models.ExhExterno, exhortoOrigenID string, a models.Adjunto) error {
	_, data, _, err := s.archivos.Open(ctx, a.ID)
	if err != nil {
		return fmt.Errorf("%s: %w", a.NombreArchivo, err)
	}
	if _, err := s.peer.RecibirExhortoArchivo(ctx, peer, exhortoOrigenID, a.NombreArchivo, data); err != nil {
		return err
	}
	return s.archivos.MarkEstado(ctx, a.ID, models.AdjuntoRecibido)
}

func buildPeerExhorto(e *models.ExhExhorto, partes []models.ExhExhortoParte, archivos []models.Adjunto) PeerExhorto {
	out := PeerExhorto{
		ExhortoOrigenID:         e.ExhortoOrigenID,
		MunicipioDestinoID:      e.MunicipioDestinoID,
		MateriaClave:            e.MateriaClave,
		EstadoOrigenID:          e.EstadoOrigenClave,
		JuzgadoOrigenID:         e.JuzgadoOrigenID,
		JuzgadoOrigenNombre:     e.JuzgadoOrigenNombre,
		NumeroExpedienteOrigen:  e.NumeroExpedienteOrigen,
		NumeroOficioOrigen:      e.NumeroOficioOrigen,
		TipoJuicioAsuntoDelitos: e.TipoJuicioAsuntoDelitos,
		JuezExhortante:          e.JuezExhortante,
		Fojas:                   e.Fojas,
		DiasResponder:           e.DiasResponder,
		TipoDiligenciacion:      e.TipoDiligenciacion,
		FechaOrigen:             e.FechaOrigen.UTC().Format(time.RFC3339),
		Observaciones:           e.Observaciones,
		Partes:                  make([]PeerParte, 0, len(partes)),
		Archivos:                make([]PeerArchivo, 0, len(archivos)),
	}
	for _, p := range partes {
		out.Partes = append(out.Partes, PeerParte{
			Nombre:          p.Nombre,
			ApellidoPaterno: p.ApellidoPaterno,
			ApellidoMaterno: p.ApellidoMaterno,
			Genero:          p.Genero,
			EsPersonaMoral:  p.EsPersonaMoral,
			TipoParte:       p.TipoParte,
			TipoParteNombre: p.TipoParteNombre,
		})
	}
	for _, a := range archivos {
		out.Archivos = append(out.Archivos, PeerArchivo{
			NombreArchivo: a.NombreArchivo,
			HashSha1:      a.HashSHA1,
			HashSha256:    a.HashSHA256,
			TipoDocumento: a.TipoDocumento,
		})
	}
	return out
}
