package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSoftDeleteThenRecoverKeepsFields(t *testing.T) {
	created := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	d := Distrito{ID: 3, Clave: "DSAL", Nombre: "DISTRITO SALTILLO"}
	d.Touch(created)
	before := d

	d.SoftDelete(created.Add(time.Hour))
	assert.False(t, d.IsActive())
	d.Recover(created.Add(2 * time.Hour))

	assert.True(t, d.IsActive())
	assert.Equal(t, before.Creado, d.Creado)
	assert.True(t, d.Creado.Before(d.Modificado))
	d.Modificado = before.Modificado
	assert.Equal(t, before, d)
}

func TestEstatusValid(t *testing.T) {
	assert.True(t, EstatusActivo.Valid())
	assert.True(t, EstatusBorrado.Valid())
	assert.False(t, Estatus("C").Valid())
}
