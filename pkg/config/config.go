package config

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	// EntornoDevelop allows destructive CLI operations such as seeding.
	EntornoDevelop    = "develop"
	EntornoProduccion = "produccion"

	StorageDriverGCS   = "gcs"
	StorageDriverLocal = "local"
)

type Config struct {
	Env       string
	Port      int
	Host      string
	Entorno   string
	Salt      string
	ProjectID string
	Prefix    string

	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Log      LogConfig
	Storage  StorageConfig
	Tasks    TasksConfig
	Exhortos ExhortosConfig
	Access   AccessConfig
	Login    LoginConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	CookieName string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// StorageConfig selects the object-store driver and the bucket per attachment family.
type StorageConfig struct {
	Driver          string
	LocalDir        string
	LocalPublicURL  string
	SignedURLSecret string
	SignedURLTTL    time.Duration
	MaxUploadBytes  int64
	Buckets         map[string]string
}

// TasksConfig sizes the background task worker pool.
type TasksConfig struct {
	Workers       int
	BufferSize    int
	MaxRetries    int
	SweepMaxAge   time.Duration
	RefreshPeriod time.Duration
}

// ExhortosConfig tunes the exchange with peer jurisdictions.
type ExhortosConfig struct {
	ProbeTimeout time.Duration
	// EstadoClave is the two digit INEGI code of this jurisdiction.
	EstadoClave string
}

// AccessConfig tunes the capability cache.
type AccessConfig struct {
	CapabilityTTL time.Duration
}

// LoginConfig rate limits credential endpoints.
type LoginConfig struct {
	RatePerSecond float64
	Burst         int
}

// Bucket families, one per attachment kind.
const (
	BucketDefault     = "default"
	BucketSoportes    = "soportes"
	BucketExhExhortos = "exh_exhortos"
	BucketTareas      = "tareas"
)

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.Host = strings.TrimRight(v.GetString("HOST"), "/")
	cfg.Entorno = v.GetString("ENTORNO_IMPLEMENTACION")
	cfg.Salt = v.GetString("SALT")
	cfg.ProjectID = v.GetString("PROJECT_ID")
	cfg.Prefix = v.GetString("SERVICE_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("ENABLE_REDIS_CACHE"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 12*time.Hour),
		CookieName: v.GetString("SESSION_COOKIE_NAME"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	maxUpload := v.GetInt64("MAX_UPLOAD_BYTES")
	if maxUpload <= 0 {
		maxUpload = 32 * 1024 * 1024
	}
	cfg.Storage = StorageConfig{
		Driver:          strings.ToLower(v.GetString("STORAGE_DRIVER")),
		LocalDir:        v.GetString("LOCAL_STORAGE_DIR"),
		LocalPublicURL:  strings.TrimRight(v.GetString("LOCAL_STORAGE_PUBLIC_URL"), "/"),
		SignedURLSecret: v.GetString("STORAGE_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("STORAGE_SIGNED_URL_TTL"), 15*time.Minute),
		MaxUploadBytes:  maxUpload,
		Buckets: map[string]string{
			BucketDefault:     v.GetString("CLOUD_STORAGE_DEPOSITO"),
			BucketSoportes:    v.GetString("CLOUD_STORAGE_DEPOSITO_SOPORTES"),
			BucketExhExhortos: v.GetString("CLOUD_STORAGE_DEPOSITO_EXH_EXHORTOS"),
			BucketTareas:      v.GetString("CLOUD_STORAGE_DEPOSITO_TAREAS"),
		},
	}

	cfg.Tasks = TasksConfig{
		Workers:       v.GetInt("TASKS_WORKERS"),
		BufferSize:    v.GetInt("TASKS_BUFFER"),
		MaxRetries:    v.GetInt("TASKS_MAX_RETRIES"),
		SweepMaxAge:   parseDuration(v.GetString("ADJUNTOS_SWEEP_MAX_AGE"), 24*time.Hour),
		RefreshPeriod: parseDuration(v.GetString("TAREAS_REFRESH_PERIOD"), 5*time.Second),
	}

	cfg.Exhortos = ExhortosConfig{
		ProbeTimeout: parseDuration(v.GetString("PROBE_TIMEOUT"), 30*time.Second),
		EstadoClave:  v.GetString("ESTADO_CLAVE"),
	}

	cfg.Access = AccessConfig{
		CapabilityTTL: parseDuration(v.GetString("CAPABILITY_CACHE_TTL"), 5*time.Minute),
	}

	cfg.Login = LoginConfig{
		RatePerSecond: v.GetFloat64("LOGIN_RATE_PER_SEC"),
		Burst:         v.GetInt("LOGIN_BURST"),
	}

	if v.GetBool("SECRETS_FROM_MANAGER") && cfg.ProjectID != "" {
		if err := applySecrets(context.Background(), cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// BucketFor returns the bucket configured for the family, falling back to the default deposit.
func (c StorageConfig) BucketFor(family string) string {
	if name := strings.TrimSpace(c.Buckets[family]); name != "" {
		return name
	}
	return strings.TrimSpace(c.Buckets[BucketDefault])
}

// AllowsDestructive reports whether the deployment may run seed loads or resets.
func (c *Config) AllowsDestructive() bool {
	return c != nil && c.Entorno != EntornoProduccion
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("HOST", "http://localhost:8080")
	v.SetDefault("ENTORNO_IMPLEMENTACION", EntornoDevelop)
	v.SetDefault("SALT", "dev_salt")
	v.SetDefault("PROJECT_ID", "")
	v.SetDefault("SERVICE_PREFIX", "hercules")
	v.SetDefault("SECRETS_FROM_MANAGER", false)

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "adminpjeczhercules")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "pjecz_hercules")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("ENABLE_REDIS_CACHE", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "12h")
	v.SetDefault("SESSION_COOKIE_NAME", "session")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("STORAGE_DRIVER", StorageDriverLocal)
	v.SetDefault("LOCAL_STORAGE_DIR", "./deposito")
	v.SetDefault("LOCAL_STORAGE_PUBLIC_URL", "http://localhost:8080/deposito")
	v.SetDefault("STORAGE_SIGNED_URL_SECRET", "dev_storage_secret")
	v.SetDefault("STORAGE_SIGNED_URL_TTL", "15m")
	v.SetDefault("MAX_UPLOAD_BYTES", 32*1024*1024)
	v.SetDefault("CLOUD_STORAGE_DEPOSITO", "")
	v.SetDefault("CLOUD_STORAGE_DEPOSITO_SOPORTES", "")
	v.SetDefault("CLOUD_STORAGE_DEPOSITO_EXH_EXHORTOS", "")
	v.SetDefault("CLOUD_STORAGE_DEPOSITO_TAREAS", "")

	v.SetDefault("TASKS_WORKERS", 2)
	v.SetDefault("TASKS_BUFFER", 32)
	v.SetDefault("TASKS_MAX_RETRIES", 3)
	v.SetDefault("ADJUNTOS_SWEEP_MAX_AGE", "24h")
	v.SetDefault("TAREAS_REFRESH_PERIOD", "5s")

	v.SetDefault("PROBE_TIMEOUT", "30s")
	v.SetDefault("ESTADO_CLAVE", "05")
	v.SetDefault("CAPABILITY_CACHE_TTL", "5m")
	v.SetDefault("LOGIN_RATE_PER_SEC", 1.0)
	v.SetDefault("LOGIN_BURST", 5)
}

func isMissingFile(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no such file or directory")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
