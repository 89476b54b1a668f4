package models

// Estados of a support ticket.
const (
	SoporteAbierto    = "ABIERTO"
	SoporteTrabajando = "TRABAJANDO"
	SoporteTerminado  = "TERMINADO"
	SoporteCancelado  = "CANCELADO"
)

// SoporteTicket is a help desk request raised by a user.
type SoporteTicket struct {
	ID            int64  `db:"id" json:"id"`
	UsuarioID     int64  `db:"usuario_id" json:"usuario_id"`
	Descripcion   string `db:"descripcion" json:"descripcion"`
	Clasificacion string `db:"clasificacion" json:"clasificacion"`
	Estado        string `db:"estado" json:"estado"`
	Soluciones    string `db:"soluciones" json:"soluciones"`
	UniversalMixin

	UsuarioEmail string `db:"usuario_email" json:"usuario_email,omitempty"`
}

var SoporteClasificaciones = []string{"SIN CLASIFICAR", "EQUIPO DE COMPUTO", "IMPRESORA", "RED", "SISTEMAS", "OTRO"}
