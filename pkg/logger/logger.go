// Package logger builds the zap logger and the gin request log middleware.
package logger

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pjecz/hercules/pkg/config"
	"github.com/pjecz/hercules/pkg/middleware/requestid"
)

// UsuarioIDKey is the gin context key under which authentication stores the user id.
const UsuarioIDKey = "usuario_id"

// New builds a production config in produccion and a development one elsewhere.
func New(cfg *config.Config) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.Env == config.EnvProduction {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	switch strings.ToLower(cfg.Log.Format) {
	case "console":
		zapCfg.Encoding = "console"
	default:
		zapCfg.Encoding = "json"
	}

	if cfg.Log.Level != "" {
		if err := zapCfg.Level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
			zapCfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
		}
	}

	zapCfg.EncoderConfig.TimeKey = "timestamp"
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapCfg.InitialFields = map[string]interface{}{"service": "hercules"}

	return zapCfg.Build()
}

// GinMiddleware logs one line per request. Paths in skip are not logged and
// server errors are logged at error level.
func GinMiddleware(l *zap.Logger, skip ...string) gin.HandlerFunc {
	skipped := make(map[string]struct{}, len(skip))
	for _, p := range skip {
		skipped[p] = struct{}{}
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if _, ok := skipped[c.Request.URL.Path]; ok {
			return
		}
		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("route", c.FullPath()),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		}
		fields = append(fields, requestFields(c)...)
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		if status >= 500 {
			l.Error("http_request", fields...)
			return
		}
		l.Info("http_request", fields...)
	}
}

// FromContext returns l annotated with the request id and user of c.
func FromContext(l *zap.Logger, c *gin.Context) *zap.Logger {
	return l.With(requestFields(c)...)
}

func requestFields(c *gin.Context) []zap.Field {
	var fields []zap.Field
	if reqID := requestid.Value(c); reqID != "" {
		fields = append(fields, zap.String("request_id", reqID))
	}
	if id, ok := c.Get(UsuarioIDKey); ok {
		if usuarioID, ok := id.(int64); ok {
			fields = append(fields, zap.Int64("usuario_id", usuarioID))
		}
	}
	return fields
}
