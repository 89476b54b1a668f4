// Package app wires repositories, services and background workers from the
// loaded configuration. The API server and the CLI share it.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/pjecz/hercules/internal/access"
	"github.com/pjecz/hercules/internal/handler"
	"github.com/pjecz/hercules/internal/middleware"
	"github.com/pjecz/hercules/internal/repository"
	"github.com/pjecz/hercules/internal/service"
	"github.com/pjecz/hercules/pkg/cache"
	"github.com/pjecz/hercules/pkg/config"
	"github.com/pjecz/hercules/pkg/database"
	"github.com/pjecz/hercules/pkg/hashid"
	"github.com/pjecz/hercules/pkg/jobs"
	"github.com/pjecz/hercules/pkg/storage"
)

// App holds the long lived components.
type App struct {
	Config  *config.Config
	Logger  *zap.Logger
	DB      *sqlx.DB
	Redis   *redis.Client
	Storage *storage.Registry
	Metrics *service.MetricsService
	Queue   *jobs.Queue

	Access   *service.AccessService
	Audit    *service.AuditService
	Auth     *service.AuthService
	Tareas   *service.TareaService
	Export   *service.ExportService
	Externos *service.ExhExternoService
	Exhortos *service.ExhExhortoService

	Distritos       *service.DistritoService
	Autoridades     *service.AutoridadService
	Modulos         *service.ModuloService
	Roles           *service.RolService
	Permisos        *service.PermisoService
	Usuarios        *service.UsuarioService
	UsuariosRoles   *service.UsuarioRolService
	SoportesTickets *service.SoporteTicketService
	Partes          *service.ExhParteService
	Promociones     *service.ExhPromocionService
	Respuestas      *service.ExhRespuestaService
	Videos          *service.ExhVideoService
	Actualizaciones *service.ExhActualizacionService

	SoportesAdjuntos   *service.AttachmentFlow
	ExhortosArchivos   *service.AttachmentFlow
	RespuestasArchivos *service.AttachmentFlow

	loginLimiter  *middleware.RateLimiter
	apiKeyLimiter *middleware.RateLimiter
}

// New opens the database, cache and buckets and builds every service.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	rdb, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logger.Warn("redis unavailable, using local caches", zap.Error(err))
		rdb = nil
	}
	registry, err := storage.NewRegistry(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("open buckets: %w", err)
	}
	codec, err := hashid.New(cfg.Salt)
	if err != nil {
		return nil, fmt.Errorf("hashid codec: %w", err)
	}

	a := &App{Config: cfg, Logger: logger, DB: db, Redis: rdb, Storage: registry, Metrics: service.NewMetricsService()}
	a.build(codec)
	return a, nil
}

func (a *App) build(ids *hashid.Codec) {
	cfg, logger, db := a.Config, a.Logger, a.DB
	validate := validator.New()
	tx := repository.NewTxRunner(db)

	modulosRepo := repository.NewModuloRepository(db)
	rolesRepo := repository.NewRolRepository(db)
	permisosRepo := repository.NewPermisoRepository(db)
	usuariosRepo := repository.NewUsuarioRepository(db)
	usuariosRolesRepo := repository.NewUsuarioRolRepository(db)
	distritosRepo := repository.NewDistritoRepository(db)
	autoridadesRepo := repository.NewAutoridadRepository(db)
	soportesRepo := repository.NewSoporteTicketRepository(db)
	externosRepo := repository.NewExhExternoRepository(db)
	exhortosRepo := repository.NewExhExhortoRepository(db)
	partesRepo := repository.NewExhParteRepository(db)
	soportesAdjuntosRepo := repository.NewAdjuntoRepository(db, repository.SoportesAdjuntos)
	exhortosArchivosRepo := repository.NewAdjuntoRepository(db, repository.ExhExhortosArchivos)
	respuestasArchivosRepo := repository.NewAdjuntoRepository(db, repository.ExhExhortosRespuestasArchivos)

	cacheSvc := service.NewCacheService(repository.NewCacheRepository(a.Redis, logger), a.Metrics, cfg.Access.CapabilityTTL, logger, a.Redis != nil)
	a.Access = service.NewAccessService(permisosRepo, cacheSvc, cfg.Access.CapabilityTTL, logger)
	a.Audit = service.NewAuditService(repository.NewBitacoraRepository(db), modulosRepo, logger)
	a.Auth = service.NewAuthService(usuariosRepo, a.Access, tx, a.Audit, validate, logger, service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
	})

	a.Modulos = service.NewModuloService(modulosRepo, tx, a.Audit, a.Access, a.Audit, validate, logger)
	a.Roles = service.NewRolService(rolesRepo, tx, a.Audit, a.Access, validate, logger)
	a.Permisos = service.NewPermisoService(permisosRepo, rolesRepo, modulosRepo, tx, a.Audit, a.Access, validate, logger)
	a.Usuarios = service.NewUsuarioService(usuariosRepo, autoridadesRepo, tx, a.Audit, a.Access, validate, logger)
	a.UsuariosRoles = service.NewUsuarioRolService(usuariosRolesRepo, usuariosRepo, rolesRepo, tx, a.Audit, a.Access, validate, logger)
	a.Distritos = service.NewDistritoService(distritosRepo, tx, a.Audit, validate, logger)
	a.Autoridades = service.NewAutoridadService(autoridadesRepo, distritosRepo, tx, a.Audit, validate, logger)
	a.SoportesTickets = service.NewSoporteTicketService(soportesRepo, soportesAdjuntosRepo, tx, a.Audit, validate, logger)

	peers := service.NewExhExternoClient(cfg.Exhortos.ProbeTimeout, a.Metrics, logger)
	a.Externos = service.NewExhExternoService(externosRepo, peers, tx, a.Audit, a.Metrics, validate, logger)
	a.Exhortos = service.NewExhExhortoService(exhortosRepo, partesRepo, exhortosArchivosRepo, autoridadesRepo, externosRepo, tx, a.Audit,
		service.ExhExhortoConfig{EstadoClave: cfg.Exhortos.EstadoClave}, validate, logger)
	a.Partes = service.NewExhParteService(partesRepo, a.Exhortos.EditGate, tx, a.Audit, validate, logger)
	a.Promociones = service.NewExhPromocionService(repository.NewExhPromocionRepository(db), a.Exhortos.EditGate, tx, a.Audit, validate)
	a.Respuestas = service.NewExhRespuestaService(repository.NewExhRespuestaRepository(db), a.Exhortos.RespuestaGate, tx, a.Audit, validate)
	a.Videos = service.NewExhVideoService(repository.NewExhVideoRepository(db), a.Respuestas.ArchivosGate, tx, a.Audit, validate)
	a.Actualizaciones = service.NewExhActualizacionService(repository.NewExhActualizacionRepository(db), a.Exhortos.ActualizacionGate, tx, a.Audit, validate)

	flowCfg := service.AttachmentFlowConfig{MaxBytes: cfg.Storage.MaxUploadBytes}
	a.SoportesAdjuntos = service.NewAttachmentFlow(service.SoportesAdjuntosFamily, soportesAdjuntosRepo, a.Storage, ids, tx, a.Audit, flowCfg, logger).
		WithParentGate(a.SoportesTickets.AdjuntosGate)
	a.ExhortosArchivos = service.NewAttachmentFlow(service.ExhExhortosArchivosFamily, exhortosArchivosRepo, a.Storage, ids, tx, a.Audit, flowCfg, logger).
		WithParentGate(a.Exhortos.EditGate)
	a.RespuestasArchivos = service.NewAttachmentFlow(service.ExhExhortosRespuestasArchivosFamily, respuestasArchivosRepo, a.Storage, ids, tx, a.Audit, flowCfg, logger).
		WithParentGate(a.Respuestas.ArchivosGate)
	a.Exhortos.WithExchange(a.ExhortosArchivos, peers)

	a.Export = service.NewExportService(a.Audit, a.Storage, service.ExportConfig{}, logger, nil, nil).WithMetrics(a.Metrics)
	a.Tareas = service.NewTareaService(repository.NewTareaRepository(db), a.Metrics, service.TareaServiceConfig{
		MaxRetries:     cfg.Tasks.MaxRetries,
		RefreshSeconds: int(cfg.Tasks.RefreshPeriod / time.Second),
	}, logger).WithFiles(a.Storage)
	a.Tareas.Register(service.ComandoProbarEndpoints, service.ProbarEndpointsCommand(a.Externos))
	a.Tareas.Register(service.ComandoEnviarExhorto, service.EnviarExhortoCommand(a.Exhortos))
	a.Tareas.Register(service.ComandoExportarBitacoras, service.ExportarBitacorasCommand(a.Export))
	a.Tareas.Register(service.ComandoDepurarAdjuntos, service.DepurarAdjuntosCommand(cfg.Tasks.SweepMaxAge,
		a.SoportesAdjuntos, a.ExhortosArchivos, a.RespuestasArchivos))

	a.Queue = jobs.NewQueue("tareas", a.Tareas.Handle, jobs.QueueConfig{
		Workers:    cfg.Tasks.Workers,
		BufferSize: cfg.Tasks.BufferSize,
		MaxRetries: cfg.Tasks.MaxRetries,
		RetryDelay: 2 * time.Second,
		Logger:     logger,
	})
	a.Tareas.AttachQueue(a.Queue)

	a.loginLimiter = middleware.NewRateLimiter(cfg.Login.RatePerSecond, cfg.Login.Burst)
	a.apiKeyLimiter = middleware.NewRateLimiter(cfg.Login.RatePerSecond*10, cfg.Login.Burst*10)
}

// StartWorkers starts the task queue and settles tasks left by a previous run.
func (a *App) StartWorkers(ctx context.Context) {
	a.Queue.Start(ctx)
	n, err := a.Tareas.RecoverUnfinished(ctx)
	if err != nil {
		a.Logger.Error("failed to recover unfinished tareas", zap.Error(err))
		return
	}
	if n > 0 {
		a.Logger.Info("recovered unfinished tareas", zap.Int("count", n))
	}
}

// Router builds the HTTP engine with every module mounted.
func (a *App) Router() *gin.Engine {
	cfg := a.Config
	return handler.NewRouter(handler.RouterConfig{
		Logger:         a.Logger,
		Metrics:        a.Metrics,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Docs:           cfg.Env != config.EnvProduction,
		Authenticator:  a.Auth,
		LoginLimiter:   a.loginLimiter,
		APIKeyLimiter:  a.apiKeyLimiter,
	}, handler.Handlers{
		Auth:    handler.NewAuthHandler(a.Auth, cfg.Env == config.EnvProduction),
		Metrics: handler.NewMetricsHandler(a.Metrics, a.DB),
		Signed:  handler.NewSignedHandler(a.Storage),
		Modules: []handler.Registrar{
			handler.ModuloResource(a.Modulos),
			handler.RolResource(a.Roles),
			handler.PermisoResource(a.Permisos),
			handler.UsuarioResource(a.Usuarios),
			handler.UsuarioRolResource(a.UsuariosRoles),
			handler.DistritoResource(a.Distritos),
			handler.AutoridadResource(a.Autoridades),
			handler.NewBitacoraHandler(a.Audit, a.Tareas),
			handler.NewTareaHandler(a.Tareas),
			handler.NewSoporteTicketHandler(a.SoportesTickets),
			handler.NewAdjuntoHandler(a.SoportesAdjuntos, access.ModuleSoportesTickets, "soporte_ticket_id"),
			handler.NewExhExternoHandler(a.Externos, a.Tareas),
			handler.NewExhExhortoHandler(a.Exhortos, a.Tareas),
			handler.ExhParteResource(a.Partes),
			handler.ExhPromocionResource(a.Promociones),
			handler.ExhRespuestaResource(a.Respuestas),
			handler.ExhVideoResource(a.Videos),
			handler.ExhActualizacionResource(a.Actualizaciones),
			handler.NewAdjuntoHandler(a.ExhortosArchivos, access.ModuleExhExhortos, "exh_exhorto_id"),
			handler.NewAdjuntoHandler(a.RespuestasArchivos, access.ModuleExhExhortosRespuestas, "exh_exhorto_respuesta_id"),
		},
	})
}

// Close releases connections in reverse order of opening.
func (a *App) Close() {
	if a.Queue != nil {
		a.Queue.Stop()
	}
	if a.Storage != nil {
		_ = a.Storage.Close()
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.DB != nil {
		_ = a.DB.Close()
	}
}
