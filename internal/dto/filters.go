package dto

import (
	"time"

	"github.com/pjecz/hercules/internal/models"
)

// Page is the offset/limit window of a listing.
type Page struct {
	Limit  int
	Offset int
}

type ModuloFilter struct {
	Estatus models.Estatus
	Nombre  string
	Page
}

type RolFilter struct {
	Estatus models.Estatus
	Nombre  string
	Page
}

type PermisoFilter struct {
	Estatus  models.Estatus
	RolID    int64
	ModuloID int64
	Nombre   string
	Page
}

type UsuarioFilter struct {
	Estatus        models.Estatus
	AutoridadID    int64
	AutoridadClave string
	Email          string
	Nombres        string
	Page
}

type UsuarioRolFilter struct {
	Estatus   models.Estatus
	UsuarioID int64
	RolID     int64
	Page
}

// BitacoraFilter has no estatus: audit rows are never soft-deleted.
type BitacoraFilter struct {
	ModuloID  int64
	UsuarioID int64
	Desde     *time.Time
	Hasta     *time.Time
	Page
}

// TareaFilter with UsuarioID zero lists every user's tasks.
type TareaFilter struct {
	UsuarioID int64
	Estado    models.TareaEstado
	Comando   string
	Page
}

type DistritoFilter struct {
	Estatus            models.Estatus
	Clave              string
	Nombre             string
	EsDistritoJudicial *bool
	Page
}

type AutoridadFilter struct {
	Estatus       models.Estatus
	DistritoID    int64
	DistritoClave string
	Clave         string
	Descripcion   string
	Page
}

type SoporteTicketFilter struct {
	Estatus     models.Estatus
	UsuarioID   int64
	Estado      string
	Descripcion string
	Page
}

type AdjuntoFilter struct {
	Estatus     models.Estatus
	ParentID    int64
	Descripcion string
	Page
}

type ExhExternoFilter struct {
	Estatus     models.Estatus
	Clave       string
	Descripcion string
	Page
}

type ExhExhortoFilter struct {
	Estatus         models.Estatus
	AutoridadID     int64
	Estado          models.ExhEstado
	ExhortoOrigenID string
	Page
}

// ExhChildFilter lists the children of one exhorto (or of one respuesta for videos).
type ExhChildFilter struct {
	Estatus  models.Estatus
	ParentID int64
	Page
}
