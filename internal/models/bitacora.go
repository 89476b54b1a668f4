package models

import "time"

// Bitacora is one append-only audit row.
type Bitacora struct {
	ID          int64     `db:"id" json:"id"`
	ModuloID    int64     `db:"modulo_id" json:"modulo_id"`
	UsuarioID   int64     `db:"usuario_id" json:"usuario_id"`
	Descripcion string    `db:"descripcion" json:"descripcion"`
	URL         string    `db:"url" json:"url"`
	Creado      time.Time `db:"creado" json:"creado"`

	ModuloNombre string `db:"modulo_nombre" json:"modulo_nombre,omitempty"`
	UsuarioEmail string `db:"usuario_email" json:"usuario_email,omitempty"`
}
