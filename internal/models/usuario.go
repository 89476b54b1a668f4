package models

import (
	"strings"
	"time"
)

// Usuario is an authenticated person. Passwords and API keys are stored bcrypt-hashed.
type Usuario struct {
	ID               int64      `db:"id" json:"id"`
	AutoridadID      int64      `db:"autoridad_id" json:"autoridad_id"`
	Email            string     `db:"email" json:"email"`
	CURP             string     `db:"curp" json:"curp"`
	Nombres          string     `db:"nombres" json:"nombres"`
	ApellidoPaterno  string     `db:"apellido_paterno" json:"apellido_paterno"`
	ApellidoMaterno  string     `db:"apellido_materno" json:"apellido_materno"`
	Puesto           string     `db:"puesto" json:"puesto"`
	Contrasena       string     `db:"contrasena" json:"-"`
	APIKey           string     `db:"api_key" json:"-"`
	APIKeyPrefijo    string     `db:"api_key_prefijo" json:"-"`
	APIKeyExpiracion *time.Time `db:"api_key_expiracion" json:"api_key_expiracion,omitempty"`
	UniversalMixin

	AutoridadClave string `db:"autoridad_clave" json:"autoridad_clave,omitempty"`
}

// NombreCompleto joins names and surnames.
func (u Usuario) NombreCompleto() string {
	return strings.TrimSpace(strings.Join(strings.Fields(u.Nombres+" "+u.ApellidoPaterno+" "+u.ApellidoMaterno), " "))
}
