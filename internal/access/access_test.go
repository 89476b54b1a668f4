package access

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEffectiveLevelIsMaxAcrossRoles(t *testing.T) {
	set := NewCapabilitySet([]string{"CAPTURISTA", "ADMINISTRADOR", "CAPTURISTA"}, []Grant{
		{Module: ModuleAutoridades, Level: LevelView},
		{Module: ModuleAutoridades, Level: LevelCreate},
		{Module: ModuleUsuarios, Level: LevelModify},
	})

	assert.Equal(t, LevelCreate, set.Level(ModuleAutoridades))
	assert.True(t, set.CanView(ModuleAutoridades))
	assert.True(t, set.CanEdit(ModuleAutoridades))
	assert.True(t, set.CanInsert(ModuleAutoridades))
	assert.False(t, set.CanAdmin(ModuleAutoridades))
	assert.Equal(t, []string{"ADMINISTRADOR", "CAPTURISTA"}, set.Roles())
	assert.True(t, set.HasRole("administrador"))
}

func TestAdminImpliesEveryLevel(t *testing.T) {
	set := NewCapabilitySet(nil, []Grant{{Module: ModuleExhExhortos, Level: LevelAdmin}})
	for _, l := range []Level{LevelView, LevelModify, LevelCreate, LevelAdmin} {
		assert.True(t, set.Has(ModuleExhExhortos, l), l.String())
	}
}

func TestNoPermissionRowFailsEveryCheck(t *testing.T) {
	set := NewCapabilitySet([]string{"X"}, []Grant{{Module: ModuleUsuarios, Level: LevelAdmin}})
	assert.False(t, set.CanView(ModuleDistritos))
	assert.False(t, set.Has(ModuleUsuarios, Level(0)))
	assert.False(t, set.Has(ModuleUsuarios, Level(5)))
}

func TestInvalidLevelsAreIgnored(t *testing.T) {
	set := NewCapabilitySet(nil, []Grant{{Module: ModuleUsuarios, Level: Level(9)}})
	assert.Equal(t, Level(0), set.Level(ModuleUsuarios))
}

func TestModuleRouteAndParse(t *testing.T) {
	assert.Equal(t, "/exh_exhortos", ModuleExhExhortos.Route())
	assert.Equal(t, "/usuarios_roles", ModuleUsuariosRoles.Route())

	m, ok := ParseModule(" exh exhortos ")
	require.True(t, ok)
	assert.Equal(t, ModuleExhExhortos, m)

	_, ok = ParseModule("INVENTARIOS")
	assert.False(t, ok)
}

func TestCapabilitySetSurvivesCache(t *testing.T) {
	set := NewCapabilitySet([]string{"SOPORTE"}, []Grant{{Module: ModuleSoportesTickets, Level: LevelAdmin}})
	raw, err := json.Marshal(set)
	require.NoError(t, err)

	var restored CapabilitySet
	require.NoError(t, json.Unmarshal(raw, &restored))
	assert.True(t, restored.CanAdmin(ModuleSoportesTickets))
	assert.Equal(t, []string{"SOPORTE"}, restored.Roles())
}

func TestModuleOwnsURL(t *testing.T) {
	cases := []struct {
		module Module
		url    string
		want   bool
	}{
		{ModuleExhExhortos, "/exh_exhortos/5", true},
		{ModuleExhExhortos, "/exh_exhortos", true},
		{ModuleExhExhortos, "/exh_exhortos?estatus=B", true},
		{ModuleExhExhortos, "/exh_exhortos_archivos/5", false},
		{ModuleExhExhortosArchivos, "/exh_exhortos_archivos/5", true},
		{ModuleUsuarios, "/usuarios_roles/3", false},
		{ModuleUsuariosRoles, "/usuarios_roles/3", true},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.module.Owns(tc.url), "%s %s", tc.module, tc.url)
	}
}

func TestModuleForURL(t *testing.T) {
	m, ok := ModuleForURL("/exh_exhortos_archivos/nuevo/:parent_id")
	assert.True(t, ok)
	assert.Equal(t, ModuleExhExhortosArchivos, m)

	m, ok = ModuleForURL("/exh_exhortos/5")
	assert.True(t, ok)
	assert.Equal(t, ModuleExhExhortos, m)

	_, ok = ModuleForURL("/healthz")
	assert.False(t, ok)
}
