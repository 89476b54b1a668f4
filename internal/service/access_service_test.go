package service

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pjecz/hercules/internal/access"
	"github.com/pjecz/hercules/internal/models"
	appErrors "github.com/pjecz/hercules/pkg/errors"
)

type grantsStub struct {
	rows  map[int64][]models.PermisoEfectivo
	calls int
}

func (g *grantsStub) EffectiveForUsuario(ctx context.Context, usuarioID int64) ([]models.PermisoEfectivo, error) {
	g.calls++
	return g.rows[usuarioID], nil
}

type memoryCache struct {
	data map[string][]byte
}

func (m *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.data[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.data[key] = raw
	return nil
}

func (m *memoryCache) DeleteByPattern(ctx context.Context, pattern string) error {
	prefix := strings.TrimSuffix(pattern, "*")
	for k := range m.data {
		if k == pattern || (prefix != pattern && strings.HasPrefix(k, prefix)) {
			delete(m.data, k)
		}
	}
	return nil
}

func soporteGrants() *grantsStub {
	return &grantsStub{rows: map[int64][]models.PermisoEfectivo{
		7: {
			{RolNombre: "SOPORTE", ModuloNombre: "SOPORTES TICKETS", Nivel: 2},
			{RolNombre: "USUARIOS", ModuloNombre: "soportes tickets", Nivel: 3},
			{RolNombre: "USUARIOS", ModuloNombre: "INVENTARIOS", Nivel: 4},
			{RolNombre: "SIN PERMISOS"},
		},
	}}
}

func TestAccessComputeTakesMaxLevel(t *testing.T) {
	svc := NewAccessService(soporteGrants(), nil, time.Minute, nil)

	set, err := svc.Compute(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, access.LevelCreate, set.Level(access.ModuleSoportesTickets))
	assert.Equal(t, []string{"SIN PERMISOS", "SOPORTE", "USUARIOS"}, set.Roles())
	assert.Equal(t, []access.Module{access.ModuleSoportesTickets}, set.Modules())
}

func TestAccessCapabilitiesLocalCache(t *testing.T) {
	grants := soporteGrants()
	svc := NewAccessService(grants, nil, time.Minute, nil)

	for i := 0; i < 3; i++ {
		_, err := svc.Capabilities(context.Background(), 7)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, grants.calls)

	svc.Invalidate(context.Background(), 7)
	_, err := svc.Capabilities(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 2, grants.calls)
}

func TestAccessCapabilitiesSharedCache(t *testing.T) {
	grants := soporteGrants()
	shared := &memoryCache{data: map[string][]byte{}}
	cache := NewCacheService(shared, nil, time.Minute, nil, true)

	first := NewAccessService(grants, cache, time.Minute, nil)
	_, err := first.Capabilities(context.Background(), 7)
	require.NoError(t, err)
	assert.Contains(t, shared.data, "hercules:capabilities:7")

	second := NewAccessService(grants, cache, time.Minute, nil)
	set, err := second.Capabilities(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 1, grants.calls)
	assert.True(t, set.CanInsert(access.ModuleSoportesTickets))

	second.InvalidateAll(context.Background())
	assert.Empty(t, shared.data)
}

func TestAccessRevocationReachesOtherInstances(t *testing.T) {
	grants := soporteGrants()
	shared := &memoryCache{data: map[string][]byte{}}
	cache := NewCacheService(shared, nil, time.Minute, nil, true)
	instanceA := NewAccessService(grants, cache, time.Minute, nil)
	instanceB := NewAccessService(grants, cache, time.Minute, nil)

	set, err := instanceB.Capabilities(context.Background(), 7)
	require.NoError(t, err)
	require.True(t, set.CanInsert(access.ModuleSoportesTickets))

	grants.rows[7] = []models.PermisoEfectivo{{RolNombre: "SOPORTE", ModuloNombre: "SOPORTES TICKETS", Nivel: 1}}
	instanceA.Invalidate(context.Background(), 7)

	set, err = instanceB.Capabilities(context.Background(), 7)
	require.NoError(t, err)
	assert.False(t, set.CanInsert(access.ModuleSoportesTickets))
	assert.True(t, set.CanView(access.ModuleSoportesTickets))
}
