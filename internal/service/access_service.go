package service

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"github.com/pjecz/hercules/internal/access"
	"github.com/pjecz/hercules/internal/models"
	appErrors "github.com/pjecz/hercules/pkg/errors"
)

var capabilityKeyPrefix = CacheKey("capabilities") + ":"

type grantSource interface {
	EffectiveForUsuario(ctx context.Context, usuarioID int64) ([]models.PermisoEfectivo, error)
}

// AccessService computes capability sets and caches them per user, in Redis when
// enabled and in a process-local LRU otherwise. With Redis the local layer is
// skipped so an invalidation on one instance reaches every other on its next request.
type AccessService struct {
	grants grantSource
	cache  *CacheService
	local  *expirable.LRU[int64, access.CapabilitySet]
	ttl    time.Duration
	logger *zap.Logger
}

func NewAccessService(grants grantSource, cache *CacheService, ttl time.Duration, logger *zap.Logger) *AccessService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccessService{
		grants: grants,
		cache:  cache,
		local:  expirable.NewLRU[int64, access.CapabilitySet](1024, nil, ttl),
		ttl:    ttl,
		logger: logger,
	}
}

func capabilityKey(usuarioID int64) string {
	return fmt.Sprintf("%s%d", capabilityKeyPrefix, usuarioID)
}

// Capabilities returns the capability set of a user.
func (s *AccessService) Capabilities(ctx context.Context, usuarioID int64) (access.CapabilitySet, error) {
	if s.cache.Enabled() {
		return s.shared(ctx, usuarioID)
	}
	if set, ok := s.local.Get(usuarioID); ok {
		return set, nil
	}
	set, err := s.Compute(ctx, usuarioID)
	if err != nil {
		return access.CapabilitySet{}, err
	}
	s.local.Add(usuarioID, set)
	return set, nil
}

// shared reads through Redis. A Redis error falls through to the database.
func (s *AccessService) shared(ctx context.Context, usuarioID int64) (access.CapabilitySet, error) {
	var cached access.CapabilitySet
	hit, err := s.cache.Get(ctx, capabilityKey(usuarioID), &cached)
	if err == nil && hit {
		return cached, nil
	}
	set, err := s.Compute(ctx, usuarioID)
	if err != nil {
		return access.CapabilitySet{}, err
	}
	_ = s.cache.Set(ctx, capabilityKey(usuarioID), set, s.ttl)
	return set, nil
}

// Compute reads the grants straight from the database.
func (s *AccessService) Compute(ctx context.Context, usuarioID int64) (access.CapabilitySet, error) {
	rows, err := s.grants.EffectiveForUsuario(ctx, usuarioID)
	if err != nil {
		return access.CapabilitySet{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load permisos")
	}
	roles := make([]string, 0, len(rows))
	grants := make([]access.Grant, 0, len(rows))
	for _, row := range rows {
		roles = append(roles, row.RolNombre)
		if row.ModuloNombre == "" {
			continue
		}
		module, ok := access.ParseModule(row.ModuloNombre)
		if !ok {
			s.logger.Sugar().Debugw("ignoring grant on unknown modulo", "modulo", row.ModuloNombre, "usuario_id", usuarioID)
			continue
		}
		grants = append(grants, access.Grant{Module: module, Level: access.Level(row.Nivel)})
	}
	return access.NewCapabilitySet(roles, grants), nil
}

// Invalidate forgets the cached set of one user.
func (s *AccessService) Invalidate(ctx context.Context, usuarioID int64) {
	s.local.Remove(usuarioID)
	if err := s.cache.Invalidate(ctx, capabilityKey(usuarioID)); err != nil {
		s.logger.Sugar().Warnw("capability cache invalidate failed", "usuario_id", usuarioID, "error", err)
	}
}

// InvalidateAll forgets every cached set, used when roles, permisos or modulos change.
func (s *AccessService) InvalidateAll(ctx context.Context) {
	s.local.Purge()
	if err := s.cache.Invalidate(ctx, capabilityKeyPrefix+"*"); err != nil {
		s.logger.Sugar().Warnw("capability cache purge failed", "error", err)
	}
}
