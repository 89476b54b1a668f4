package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMateriasScanAndEqual(t *testing.T) {
	var m Materias
	require.NoError(t, m.Scan([]byte(`[{"clave":"CIV","nombre":"CIVIL"}]`)))
	assert.True(t, m.Equal(Materias{{Clave: "CIV", Nombre: "CIVIL"}}))
	assert.False(t, m.Equal(Materias{{Clave: "CIV", Nombre: "Civil"}}))
	assert.False(t, m.Equal(nil))

	require.NoError(t, m.Scan(nil))
	assert.Empty(t, m)

	require.Error(t, m.Scan(42))
}

func TestTareaEstadoTerminal(t *testing.T) {
	assert.True(t, TareaDone.Terminal())
	assert.True(t, TareaError.Terminal())
	assert.False(t, TareaQueued.Terminal())
	assert.False(t, TareaRunning.Terminal())
}
