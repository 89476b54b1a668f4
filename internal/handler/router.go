package handler

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/pjecz/hercules/internal/middleware"
	"github.com/pjecz/hercules/internal/service"
	"github.com/pjecz/hercules/pkg/logger"
	corsmiddleware "github.com/pjecz/hercules/pkg/middleware/cors"
	reqidmiddleware "github.com/pjecz/hercules/pkg/middleware/requestid"
)

// RouterConfig carries the cross-cutting pieces of the HTTP stack.
type RouterConfig struct {
	Logger         *zap.Logger
	Metrics        *service.MetricsService
	AllowedOrigins []string
	// Docs mounts the swagger UI under /docs.
	Docs bool

	Authenticator middleware.Authenticator
	// LoginLimiter throttles /login per client IP.
	LoginLimiter *middleware.RateLimiter
	// APIKeyLimiter throttles requests authenticated by X-Api-Key per key prefix.
	APIKeyLimiter *middleware.RateLimiter
}

// Handlers are the endpoints mounted by NewRouter.
type Handlers struct {
	Auth    *AuthHandler
	Metrics *MetricsHandler
	Signed  *SignedHandler
	// Modules are mounted on the authenticated group.
	Modules []Registrar
}

// NewRouter assembles the engine: public endpoints first, then every module
// behind LoginRequired.
func NewRouter(cfg RouterConfig, h Handlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(cfg.Logger, "/health", "/metrics"))
	r.Use(corsmiddleware.New(cfg.AllowedOrigins))
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}

	if h.Metrics != nil {
		r.GET("/health", h.Metrics.Health)
		r.GET("/metrics", h.Metrics.Prometheus)
	}
	if cfg.Docs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}
	if h.Signed != nil {
		r.GET("/deposito/firmado/:token", h.Signed.Serve)
	}

	login := []gin.HandlerFunc{}
	if cfg.LoginLimiter != nil {
		login = append(login, middleware.RateLimit(cfg.LoginLimiter, middleware.ByClientIP))
	}
	if h.Auth != nil {
		r.POST("/login", append(login, h.Auth.Login)...)
		r.GET("/logout", h.Auth.Logout)
	}

	protected := r.Group("")
	if cfg.APIKeyLimiter != nil {
		protected.Use(middleware.RateLimit(cfg.APIKeyLimiter, func(c *gin.Context) string {
			if c.GetHeader(middleware.APIKeyHeader) == "" {
				return ""
			}
			return middleware.ByAPIKeyPrefix(c)
		}))
	}
	protected.Use(middleware.LoginRequired(cfg.Authenticator))
	if h.Auth != nil {
		protected.GET("/perfil", h.Auth.Profile)
		protected.POST("/perfil/contrasena", h.Auth.ChangePassword)
		protected.POST("/usuarios/api_key/:id", h.Auth.GenerateAPIKey)
	}
	for _, m := range h.Modules {
		m.Register(protected)
	}
	return r
}
