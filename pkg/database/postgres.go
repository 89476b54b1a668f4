package database

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/pjecz/hercules/pkg/config"
)

const (
	applicationName = "hercules"
	pingTimeout     = 5 * time.Second
)

// DSN renders the libpq keyword/value string. A host starting with a slash is
// a socket directory, as Cloud SQL mounts it, and needs no port.
func DSN(cfg config.DatabaseConfig) string {
	params := map[string]string{
		"host":             cfg.Host,
		"user":             cfg.User,
		"password":         cfg.Password,
		"dbname":           cfg.Name,
		"sslmode":          cfg.SSLMode,
		"application_name": applicationName,
		"connect_timeout":  fmt.Sprintf("%d", int(pingTimeout.Seconds())),
	}
	if !strings.HasPrefix(cfg.Host, "/") && cfg.Port > 0 {
		params["port"] = fmt.Sprintf("%d", cfg.Port)
	}
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if v != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+quoteValue(params[k]))
	}
	return strings.Join(parts, " ")
}

// quoteValue single-quotes values libpq would split, escaping \ and '.
func quoteValue(v string) string {
	if !strings.ContainsAny(v, ` '\`) {
		return v
	}
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(v) + "'"
}

// NewPostgres opens the pool and pings within pingTimeout.
func NewPostgres(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", DSN(cfg))
	if err != nil {
		return nil, err
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	db.SetConnMaxLifetime(1 * time.Hour)
	db.SetConnMaxIdleTime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}
