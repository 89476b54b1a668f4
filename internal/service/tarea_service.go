package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pjecz/hercules/internal/access"
	"github.com/pjecz/hercules/internal/dto"
	"github.com/pjecz/hercules/internal/models"
	"github.com/pjecz/hercules/internal/repository"
	"github.com/pjecz/hercules/pkg/config"
	appErrors "github.com/pjecz/hercules/pkg/errors"
	"github.com/pjecz/hercules/pkg/jobs"
	"github.com/pjecz/hercules/pkg/storage"
)

type tareaStore interface {
	Create(ctx context.Context, t *models.Tarea) error
	Get(ctx context.Context, id string) (*models.Tarea, error)
	List(ctx context.Context, f dto.TareaFilter) ([]models.Tarea, int, error)
	ListUnfinished(ctx context.Context) ([]models.Tarea, error)
	MarkRunning(ctx context.Context, id string) error
	UpdateProgress(ctx context.Context, id string, progreso int, mensaje string) error
	Finish(ctx context.Context, t *models.Tarea) error
}

type taskDispatcher interface {
	Enqueue(job jobs.Job) error
}

// TaskContext is handed to a running command.
type TaskContext struct {
	Tarea *models.Tarea
	// Actor is the user that launched the task; only its ID is known.
	Actor *models.CurrentUser

	report func(percent int, msg string)
}

// Progress records a percentage and a short message. Failures are logged, not returned.
func (t *TaskContext) Progress(percent int, msg string) {
	if t.report != nil {
		t.report(percent, msg)
	}
}

// Param returns a launch parameter, empty when missing.
func (t *TaskContext) Param(key string) string {
	if t.Tarea == nil || t.Tarea.Parametros == nil {
		return ""
	}
	return t.Tarea.Parametros[key]
}

// TaskResult is what a successful command leaves on its Tarea.
type TaskResult struct {
	Mensaje string
	Archivo string
	URL     string
}

// TaskCommand is the body of one registered background command.
type TaskCommand func(ctx context.Context, tc *TaskContext) (TaskResult, error)

// TareaServiceConfig tunes retries and the polling hint.
type TareaServiceConfig struct {
	MaxRetries     int
	RefreshSeconds int
}

// TareaDetail is a task plus the seconds a page should wait before polling again.
type TareaDetail struct {
	*models.Tarea
	RefreshSeconds int `json:"refresh_seconds,omitempty"`
}

// TareaService launches background commands and tracks them in the tareas table.
type TareaService struct {
	repo     tareaStore
	queue    taskDispatcher
	buckets  bucketSource
	metrics  *MetricsService
	logger   *zap.Logger
	cfg      TareaServiceConfig
	now      func() time.Time
	mu       sync.RWMutex
	commands map[string]TaskCommand
}

func NewTareaService(repo tareaStore, metrics *MetricsService, cfg TareaServiceConfig, logger *zap.Logger) *TareaService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RefreshSeconds <= 0 {
		cfg.RefreshSeconds = 5
	}
	return &TareaService{
		repo:     repo,
		metrics:  metrics,
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
		commands: make(map[string]TaskCommand),
	}
}

// Register binds name to cmd. Registering the same name twice replaces it.
func (s *TareaService) Register(name string, cmd TaskCommand) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commands[name] = cmd
}

// Commands lists the registered command names, sorted.
func (s *TareaService) Commands() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.commands))
	for name := range s.commands {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (s *TareaService) command(name string) (TaskCommand, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cmd, ok := s.commands[name]
	return cmd, ok
}

// AttachQueue sets the dispatcher. The queue is built after the service because
// its handler is Handle.
func (s *TareaService) AttachQueue(q taskDispatcher) {
	s.queue = q
}

// WithFiles lets Download read result files from the tareas bucket.
func (s *TareaService) WithFiles(buckets bucketSource) *TareaService {
	s.buckets = buckets
	return s
}

// LaunchTask persists a QUEUED task and hands it to the queue. When the queue
// refuses it the task is left in ERROR and returned with the error.
func (s *TareaService) LaunchTask(ctx context.Context, actor *models.CurrentUser, comando, mensaje string, params models.TareaParametros) (*models.Tarea, error) {
	if actor == nil || actor.ID == 0 {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "se requiere un usuario para lanzar tareas")
	}
	if _, ok := s.command(comando); !ok {
		return nil, appErrors.Clone(appErrors.ErrNotValidParam, "comando desconocido: "+comando)
	}
	t := &models.Tarea{
		ID:         uuid.NewString(),
		UsuarioID:  actor.ID,
		Comando:    comando,
		Parametros: params,
		Mensaje:    mensaje,
		Estado:     models.TareaQueued,
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, mapRepoError(err, "tarea no encontrada", "failed to create tarea")
	}
	if err := s.enqueue(t); err != nil {
		s.logger.Sugar().Errorw("failed to enqueue tarea", "tarea_id", t.ID, "comando", comando, "error", err)
		t.Estado = models.TareaError
		t.Mensaje = "No se pudo encolar la tarea"
		t.Progreso = 100
		if ferr := s.repo.Finish(ctx, t); ferr != nil {
			s.logger.Sugar().Warnw("failed to mark tarea as error", "tarea_id", t.ID, "error", ferr)
		}
		s.observe(t.Comando, models.TareaError, 0)
		return t, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "no se pudo encolar la tarea")
	}
	s.logger.Sugar().Infow("tarea queued", "tarea_id", t.ID, "comando", comando, "usuario_id", actor.ID)
	return t, nil
}

func (s *TareaService) enqueue(t *models.Tarea) error {
	if s.queue == nil {
		return errors.New("task queue not attached")
	}
	return s.queue.Enqueue(jobs.Job{ID: t.ID, Type: t.Comando})
}

// Handle is the jobs.Handler of the task queue. Command failures end the task in
// ERROR and are never retried; only transient failures before the command starts are.
func (s *TareaService) Handle(ctx context.Context, job jobs.Job) error {
	t, err := s.repo.Get(ctx, job.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return jobs.Permanent(fmt.Errorf("tarea %s not found", job.ID))
		}
		return s.retryOrFail(ctx, job, err)
	}
	if t.Estado.Terminal() {
		return nil
	}
	cmd, ok := s.command(t.Comando)
	if !ok {
		_ = s.Fail(ctx, t.ID, "Comando desconocido: "+t.Comando)
		return jobs.Permanent(fmt.Errorf("unknown command %q", t.Comando))
	}
	if err := s.repo.MarkRunning(ctx, t.ID); err != nil {
		if errors.Is(err, repository.ErrStaleState) {
			return nil
		}
		return s.retryOrFail(ctx, job, err)
	}
	t.Estado = models.TareaRunning

	log := s.logger.With(zap.String("tarea_id", t.ID), zap.String("comando", t.Comando))
	log.Info("tarea started")
	tc := &TaskContext{
		Tarea: t,
		Actor: &models.CurrentUser{ID: t.UsuarioID},
		report: func(percent int, msg string) {
			if err := s.Progress(ctx, t.ID, percent, msg); err != nil {
				log.Warn("failed to record tarea progress", zap.Error(err))
			}
		},
	}

	start := s.now()
	result, err := s.run(ctx, cmd, tc)
	duration := s.now().Sub(start)
	if err != nil {
		log.Warn("tarea failed", zap.Duration("duration", duration), zap.Error(err))
		if ferr := s.Fail(ctx, t.ID, failureMessage(err)); ferr != nil {
			log.Error("failed to mark tarea as error", zap.Error(ferr))
		}
		s.observe(t.Comando, models.TareaError, duration)
		return jobs.Permanent(err)
	}
	if err := s.Done(ctx, t.ID, result); err != nil {
		log.Error("failed to mark tarea as done", zap.Error(err))
		s.observe(t.Comando, models.TareaError, duration)
		return jobs.Permanent(err)
	}
	log.Info("tarea finished", zap.Duration("duration", duration))
	s.observe(t.Comando, models.TareaDone, duration)
	return nil
}

func (s *TareaService) run(ctx context.Context, cmd TaskCommand, tc *TaskContext) (result TaskResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("command panicked: %v", r)
		}
	}()
	return cmd(ctx, tc)
}

func (s *TareaService) retryOrFail(ctx context.Context, job jobs.Job, err error) error {
	if job.Attempt >= s.cfg.MaxRetries {
		if ferr := s.Fail(ctx, job.ID, "La tarea no pudo iniciar"); ferr != nil {
			s.logger.Sugar().Warnw("failed to mark tarea as error", "tarea_id", job.ID, "error", ferr)
		}
		return jobs.Permanent(err)
	}
	return err
}

// failureMessage keeps the user facing text of application errors.
func failureMessage(err error) string {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return err.Error()
}

// Progress records percent (clamped to 0..100) and msg on a RUNNING task.
func (s *TareaService) Progress(ctx context.Context, id string, percent int, msg string) error {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	if err := s.repo.UpdateProgress(ctx, id, percent, msg); err != nil {
		return mapRepoError(err, "tarea no encontrada", "failed to update tarea progress")
	}
	return nil
}

// Fail ends the task in ERROR. A task already terminal yields ErrFinalized.
func (s *TareaService) Fail(ctx context.Context, id, msg string) error {
	return s.finish(ctx, &models.Tarea{ID: id, Estado: models.TareaError, Mensaje: msg, Progreso: 100})
}

// Done ends the task in DONE with its result file, if any.
func (s *TareaService) Done(ctx context.Context, id string, result TaskResult) error {
	return s.finish(ctx, &models.Tarea{
		ID:        id,
		Estado:    models.TareaDone,
		Mensaje:   result.Mensaje,
		Progreso:  100,
		Resultado: result.Mensaje,
		Archivo:   result.Archivo,
		URL:       result.URL,
	})
}

func (s *TareaService) finish(ctx context.Context, t *models.Tarea) error {
	if err := s.repo.Finish(ctx, t); err != nil {
		return mapRepoError(err, "tarea no encontrada", "failed to finish tarea")
	}
	return nil
}

func (s *TareaService) observe(comando string, estado models.TareaEstado, duration time.Duration) {
	if s.metrics != nil {
		s.metrics.ObserveTask(comando, string(estado), duration)
	}
}

// RecoverUnfinished runs at boot. Tasks left RUNNING by a previous process end in
// ERROR; QUEUED ones are enqueued again.
func (s *TareaService) RecoverUnfinished(ctx context.Context) (int, error) {
	pending, err := s.repo.ListUnfinished(ctx)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list unfinished tareas")
	}
	requeued := 0
	for i := range pending {
		t := &pending[i]
		if t.Estado == models.TareaRunning {
			if err := s.Fail(ctx, t.ID, "Tarea interrumpida por reinicio"); err != nil {
				s.logger.Sugar().Warnw("failed to close interrupted tarea", "tarea_id", t.ID, "error", err)
			}
			continue
		}
		if err := s.enqueue(t); err != nil {
			s.logger.Sugar().Warnw("failed to requeue tarea", "tarea_id", t.ID, "error", err)
			if ferr := s.Fail(ctx, t.ID, "No se pudo encolar la tarea"); ferr != nil {
				s.logger.Sugar().Warnw("failed to mark tarea as error", "tarea_id", t.ID, "error", ferr)
			}
			continue
		}
		requeued++
	}
	return requeued, nil
}

// List shows the actor's own tasks unless the actor administers the tareas module.
func (s *TareaService) List(ctx context.Context, actor *models.CurrentUser, f dto.TareaFilter) ([]models.Tarea, int, error) {
	if actor == nil {
		return nil, 0, appErrors.ErrForbidden
	}
	if !actor.Can(access.ModuleTareas, access.LevelAdmin) {
		f.UsuarioID = actor.ID
	}
	items, total, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list tareas")
	}
	return items, total, nil
}

// Get returns the task with a refresh hint while it has not finished.
func (s *TareaService) Get(ctx context.Context, actor *models.CurrentUser, id string) (*TareaDetail, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotValidParam, "id de tarea no valido")
	}
	t, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, "tarea no encontrada", "failed to fetch tarea")
	}
	if actor == nil || (t.UsuarioID != actor.ID && !actor.Can(access.ModuleTareas, access.LevelAdmin)) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "la tarea pertenece a otro usuario")
	}
	detail := &TareaDetail{Tarea: t}
	if !t.Estado.Terminal() {
		detail.RefreshSeconds = s.cfg.RefreshSeconds
	}
	return detail, nil
}

// Download returns the result file of a finished task.
func (s *TareaService) Download(ctx context.Context, actor *models.CurrentUser, id string) ([]byte, string, string, error) {
	detail, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, "", "", err
	}
	t := detail.Tarea
	if t.Estado != models.TareaDone || t.URL == "" {
		return nil, "", "", appErrors.Clone(appErrors.ErrFileNotFound, "la tarea no genero archivo")
	}
	if s.buckets == nil {
		return nil, "", "", appErrors.Clone(appErrors.ErrMissingConfiguration, "deposito de tareas no configurado")
	}
	bucket, err := s.buckets.Bucket(config.BucketTareas)
	if err != nil {
		return nil, "", "", err
	}
	blob, err := storage.BlobNameFromURL(t.URL, bucket.Name())
	if err != nil {
		return nil, "", "", err
	}
	data, err := storage.Download(ctx, bucket, blob)
	if err != nil {
		return nil, "", "", err
	}
	contentType := mime.TypeByExtension(filepath.Ext(t.Archivo))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return data, t.Archivo, contentType, nil
}
