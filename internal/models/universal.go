package models

import "time"

// Estatus is the two-valued lifecycle flag shared by every entity.
type Estatus string

const (
	EstatusActivo  Estatus = "A"
	EstatusBorrado Estatus = "B"
)

func (e Estatus) Valid() bool { return e == EstatusActivo || e == EstatusBorrado }

// UniversalMixin carries the lifecycle columns of every table.
type UniversalMixin struct {
	Estatus    Estatus   `db:"estatus" json:"estatus"`
	Creado     time.Time `db:"creado" json:"creado"`
	Modificado time.Time `db:"modificado" json:"modificado"`
}

// Touch stamps creado on first save and modificado on every save.
func (u *UniversalMixin) Touch(now time.Time) {
	now = now.UTC()
	if u.Creado.IsZero() {
		u.Creado = now
	}
	if u.Estatus == "" {
		u.Estatus = EstatusActivo
	}
	u.Modificado = now
}

func (u *UniversalMixin) SoftDelete(now time.Time) {
	u.Estatus = EstatusBorrado
	u.Modificado = now.UTC()
}

func (u *UniversalMixin) Recover(now time.Time) {
	u.Estatus = EstatusActivo
	u.Modificado = now.UTC()
}

func (u UniversalMixin) IsActive() bool { return u.Estatus == EstatusActivo }

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
