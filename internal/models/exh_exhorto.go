package models

import "time"

// ExhEstado is the lifecycle state of an exhorto.
type ExhEstado string

const (
	ExhPendiente    ExhEstado = "PENDIENTE"
	ExhProcesando   ExhEstado = "PROCESANDO"
	ExhRecibido     ExhEstado = "RECIBIDO"
	ExhRechazado    ExhEstado = "RECHAZADO"
	ExhDiligenciado ExhEstado = "DILIGENCIADO"
	ExhContestado   ExhEstado = "CONTESTADO"
	ExhCancelado    ExhEstado = "CANCELADO"
)

// Remitentes.
const (
	RemitenteInterno = "INTERNO"
	RemitenteExterno = "EXTERNO"
)

// ExhExhorto is a judicial request exchanged with a peer jurisdiction.
type ExhExhorto struct {
	ID                      int64     `db:"id" json:"id"`
	AutoridadID             int64     `db:"autoridad_id" json:"autoridad_id"`
	ExhortoOrigenID         string    `db:"exhorto_origen_id" json:"exhorto_origen_id"`
	FolioSeguimiento        string    `db:"folio_seguimiento" json:"folio_seguimiento"`
	MunicipioDestinoID      int       `db:"municipio_destino_id" json:"municipio_destino_id"`
	MateriaClave            string    `db:"materia_clave" json:"materia_clave"`
	MateriaNombre           string    `db:"materia_nombre" json:"materia_nombre"`
	EstadoOrigenClave       string    `db:"estado_origen_clave" json:"estado_origen_clave"`
	EstadoDestinoClave      string    `db:"estado_destino_clave" json:"estado_destino_clave"`
	JuzgadoOrigenID         string    `db:"juzgado_origen_id" json:"juzgado_origen_id"`
	JuzgadoOrigenNombre     string    `db:"juzgado_origen_nombre" json:"juzgado_origen_nombre"`
	NumeroExpedienteOrigen  string    `db:"numero_expediente_origen" json:"numero_expediente_origen"`
	NumeroOficioOrigen      string    `db:"numero_oficio_origen" json:"numero_oficio_origen"`
	TipoJuicioAsuntoDelitos string    `db:"tipo_juicio_asunto_delitos" json:"tipo_juicio_asunto_delitos"`
	JuezExhortante          string    `db:"juez_exhortante" json:"juez_exhortante"`
	Fojas                   int       `db:"fojas" json:"fojas"`
	DiasResponder           int       `db:"dias_responder" json:"dias_responder"`
	TipoDiligenciacion      string    `db:"tipo_diligenciacion_nombre" json:"tipo_diligenciacion_nombre"`
	FechaOrigen             time.Time `db:"fecha_origen" json:"fecha_origen"`
	Observaciones           string    `db:"observaciones" json:"observaciones"`
	Remitente               string    `db:"remitente" json:"remitente"`
	Estado                  ExhEstado `db:"estado" json:"estado"`
	EstadoAnterior          string    `db:"estado_anterior" json:"estado_anterior"`
	UniversalMixin

	AutoridadClave string `db:"autoridad_clave" json:"autoridad_clave,omitempty"`
}

// ExhExhortoParte is a party of an exhorto.
type ExhExhortoParte struct {
	ID              int64  `db:"id" json:"id"`
	ExhExhortoID    int64  `db:"exh_exhorto_id" json:"exh_exhorto_id"`
	Nombre          string `db:"nombre" json:"nombre"`
	ApellidoPaterno string `db:"apellido_paterno" json:"apellido_paterno"`
	ApellidoMaterno string `db:"apellido_materno" json:"apellido_materno"`
	Genero          string `db:"genero" json:"genero"`
	EsPersonaMoral  bool   `db:"es_persona_moral" json:"es_persona_moral"`
	TipoParte       int    `db:"tipo_parte" json:"tipo_parte"`
	TipoParteNombre string `db:"tipo_parte_nombre" json:"tipo_parte_nombre"`
	UniversalMixin
}

// ExhExhortoPromocion is a supplementary filing on an exhorto.
type ExhExhortoPromocion struct {
	ID                   int64     `db:"id" json:"id"`
	ExhExhortoID         int64     `db:"exh_exhorto_id" json:"exh_exhorto_id"`
	FolioOrigenPromocion string    `db:"folio_origen_promocion" json:"folio_origen_promocion"`
	Fojas                int       `db:"fojas" json:"fojas"`
	FechaOrigen          time.Time `db:"fecha_origen" json:"fecha_origen"`
	Observaciones        string    `db:"observaciones" json:"observaciones"`
	Remitente            string    `db:"remitente" json:"remitente"`
	Estado               string    `db:"estado" json:"estado"`
	UniversalMixin
}

// ExhExhortoRespuesta is a reply to an exhorto, carrying its own archivos and videos.
type ExhExhortoRespuesta struct {
	ID                 int64  `db:"id" json:"id"`
	ExhExhortoID       int64  `db:"exh_exhorto_id" json:"exh_exhorto_id"`
	RespuestaOrigenID  string `db:"respuesta_origen_id" json:"respuesta_origen_id"`
	MunicipioTurnadoID int    `db:"municipio_turnado_id" json:"municipio_turnado_id"`
	AreaTurnadoNombre  string `db:"area_turnado_nombre" json:"area_turnado_nombre"`
	NumeroExhorto      string `db:"numero_exhorto" json:"numero_exhorto"`
	TipoDiligenciado   int    `db:"tipo_diligenciado" json:"tipo_diligenciado"`
	Observaciones      string `db:"observaciones" json:"observaciones"`
	Remitente          string `db:"remitente" json:"remitente"`
	Estado             string `db:"estado" json:"estado"`
	UniversalMixin
}

// ExhExhortoRespuestaVideo links a recorded hearing to a respuesta.
type ExhExhortoRespuestaVideo struct {
	ID                    int64      `db:"id" json:"id"`
	ExhExhortoRespuestaID int64      `db:"exh_exhorto_respuesta_id" json:"exh_exhorto_respuesta_id"`
	Titulo                string     `db:"titulo" json:"titulo"`
	Descripcion           string     `db:"descripcion" json:"descripcion"`
	Fecha                 *time.Time `db:"fecha" json:"fecha,omitempty"`
	URLAcceso             string     `db:"url_acceso" json:"url_acceso"`
	UniversalMixin
}

// ExhExhortoActualizacion records a status update about an exhorto.
type ExhExhortoActualizacion struct {
	ID                    int64     `db:"id" json:"id"`
	ExhExhortoID          int64     `db:"exh_exhorto_id" json:"exh_exhorto_id"`
	ActualizacionOrigenID string    `db:"actualizacion_origen_id" json:"actualizacion_origen_id"`
	TipoActualizacion     string    `db:"tipo_actualizacion" json:"tipo_actualizacion"`
	FechaHora             time.Time `db:"fecha_hora" json:"fecha_hora"`
	Descripcion           string    `db:"descripcion" json:"descripcion"`
	Remitente             string    `db:"remitente" json:"remitente"`
	UniversalMixin
}

// ExhExhortoResumen aggregates the children counts the state machine guards on.
type ExhExhortoResumen struct {
	PartesActivas       int `db:"partes_activas"`
	ArchivosActivos     int `db:"archivos_activos"`
	ArchivosRecibidos   int `db:"archivos_recibidos"`
	RespuestasCompletas int `db:"respuestas_completas"`
}
