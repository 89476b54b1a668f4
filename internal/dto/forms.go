package dto

// Forms are bound from form-encoded or JSON bodies and validated with validator tags.
// Services canonicalize every text field with the safe package before persisting.

type ModuloForm struct {
	Nombre               string `form:"nombre" json:"nombre" validate:"required,max=256"`
	NombreCorto          string `form:"nombre_corto" json:"nombre_corto" validate:"required,max=64"`
	Icono                string `form:"icono" json:"icono" validate:"max=48"`
	Ruta                 string `form:"ruta" json:"ruta" validate:"required,max=64"`
	EnNavegacion         bool   `form:"en_navegacion" json:"en_navegacion"`
	EnPlataformaHercules bool   `form:"en_plataforma_hercules" json:"en_plataforma_hercules"`
}

type RolForm struct {
	Nombre string `form:"nombre" json:"nombre" validate:"required,max=256"`
}

type PermisoForm struct {
	RolID    int64 `form:"rol_id" json:"rol_id" validate:"required,gt=0"`
	ModuloID int64 `form:"modulo_id" json:"modulo_id" validate:"required,gt=0"`
	Nivel    int   `form:"nivel" json:"nivel" validate:"required,min=1,max=4"`
}

type UsuarioForm struct {
	AutoridadID     int64  `form:"autoridad_id" json:"autoridad_id" validate:"required,gt=0"`
	Email           string `form:"email" json:"email" validate:"required,max=256"`
	CURP            string `form:"curp" json:"curp" validate:"max=18"`
	Nombres         string `form:"nombres" json:"nombres" validate:"required,max=256"`
	ApellidoPaterno string `form:"apellido_paterno" json:"apellido_paterno" validate:"required,max=256"`
	ApellidoMaterno string `form:"apellido_materno" json:"apellido_materno" validate:"max=256"`
	Puesto          string `form:"puesto" json:"puesto" validate:"max=256"`
	Contrasena      string `form:"contrasena" json:"contrasena" validate:"omitempty,min=8,max=64"`
}

type UsuarioRolForm struct {
	UsuarioID int64 `form:"usuario_id" json:"usuario_id" validate:"required,gt=0"`
	RolID     int64 `form:"rol_id" json:"rol_id" validate:"required,gt=0"`
}

type DistritoForm struct {
	Clave              string `form:"clave" json:"clave" validate:"required,max=16"`
	Nombre             string `form:"nombre" json:"nombre" validate:"required,max=256"`
	NombreCorto        string `form:"nombre_corto" json:"nombre_corto" validate:"max=64"`
	EsDistritoJudicial bool   `form:"es_distrito_judicial" json:"es_distrito_judicial"`
}

type AutoridadForm struct {
	DistritoID           int64  `form:"distrito_id" json:"distrito_id" validate:"required,gt=0"`
	Clave                string `form:"clave" json:"clave" validate:"required,max=16"`
	Descripcion          string `form:"descripcion" json:"descripcion" validate:"required,max=256"`
	DescripcionCorta     string `form:"descripcion_corta" json:"descripcion_corta" validate:"max=64"`
	EsJurisdiccional     bool   `form:"es_jurisdiccional" json:"es_jurisdiccional"`
	EsNotaria            bool   `form:"es_notaria" json:"es_notaria"`
	OrganoJurisdiccional string `form:"organo_jurisdiccional" json:"organo_jurisdiccional" validate:"max=64"`
}

type SoporteTicketForm struct {
	Descripcion   string `form:"descripcion" json:"descripcion" validate:"required,max=4000"`
	Clasificacion string `form:"clasificacion" json:"clasificacion" validate:"max=32"`
}

// SoporteTicketEstadoForm moves a ticket through its workflow.
type SoporteTicketEstadoForm struct {
	Estado     string `form:"estado" json:"estado" validate:"required,oneof=ABIERTO TRABAJANDO TERMINADO CANCELADO"`
	Soluciones string `form:"soluciones" json:"soluciones" validate:"max=1024"`
}

// AdjuntoForm accompanies a multipart file upload.
type AdjuntoForm struct {
	Descripcion string `form:"descripcion" json:"descripcion" validate:"required,max=256"`
}

type ExhExternoForm struct {
	Clave                                  string `form:"clave" json:"clave" validate:"required,max=16"`
	Descripcion                            string `form:"descripcion" json:"descripcion" validate:"required,max=256"`
	EstadoClave                            string `form:"estado_clave" json:"estado_clave" validate:"required,len=2,numeric"`
	APIKey                                 string `form:"api_key" json:"api_key" validate:"max=128"`
	EndpointConsultarMaterias              string `form:"endpoint_consultar_materias" json:"endpoint_consultar_materias" validate:"max=512"`
	EndpointRecibirExhorto                 string `form:"endpoint_recibir_exhorto" json:"endpoint_recibir_exhorto" validate:"max=512"`
	EndpointRecibirExhortoArchivo          string `form:"endpoint_recibir_exhorto_archivo" json:"endpoint_recibir_exhorto_archivo" validate:"max=512"`
	EndpointConsultarExhorto               string `form:"endpoint_consultar_exhorto" json:"endpoint_consultar_exhorto" validate:"max=512"`
	EndpointRecibirRespuestaExhorto        string `form:"endpoint_recibir_respuesta_exhorto" json:"endpoint_recibir_respuesta_exhorto" validate:"max=512"`
	EndpointRecibirRespuestaExhortoArchivo string `form:"endpoint_recibir_respuesta_exhorto_archivo" json:"endpoint_recibir_respuesta_exhorto_archivo" validate:"max=512"`
	EndpointActualizarExhorto              string `form:"endpoint_actualizar_exhorto" json:"endpoint_actualizar_exhorto" validate:"max=512"`
	EndpointRecibirPromocion               string `form:"endpoint_recibir_promocion" json:"endpoint_recibir_promocion" validate:"max=512"`
	EndpointRecibirPromocionArchivo        string `form:"endpoint_recibir_promocion_archivo" json:"endpoint_recibir_promocion_archivo" validate:"max=512"`
}

type ExhExhortoForm struct {
	AutoridadID             int64  `form:"autoridad_id" json:"autoridad_id" validate:"required,gt=0"`
	MunicipioDestinoID      int    `form:"municipio_destino_id" json:"municipio_destino_id" validate:"gte=0"`
	MateriaClave            string `form:"materia_clave" json:"materia_clave" validate:"required,max=16"`
	EstadoDestinoClave      string `form:"estado_destino_clave" json:"estado_destino_clave" validate:"required,len=2,numeric"`
	JuzgadoOrigenID         string `form:"juzgado_origen_id" json:"juzgado_origen_id" validate:"max=64"`
	JuzgadoOrigenNombre     string `form:"juzgado_origen_nombre" json:"juzgado_origen_nombre" validate:"max=256"`
	NumeroExpedienteOrigen  string `form:"numero_expediente_origen" json:"numero_expediente_origen" validate:"required,max=24"`
	NumeroOficioOrigen      string `form:"numero_oficio_origen" json:"numero_oficio_origen" validate:"max=24"`
	TipoJuicioAsuntoDelitos string `form:"tipo_juicio_asunto_delitos" json:"tipo_juicio_asunto_delitos" validate:"required,max=256"`
	JuezExhortante          string `form:"juez_exhortante" json:"juez_exhortante" validate:"max=256"`
	Fojas                   int    `form:"fojas" json:"fojas" validate:"gte=0"`
	DiasResponder           int    `form:"dias_responder" json:"dias_responder" validate:"gte=0"`
	TipoDiligenciacion      string `form:"tipo_diligenciacion_nombre" json:"tipo_diligenciacion_nombre" validate:"max=256"`
	Observaciones           string `form:"observaciones" json:"observaciones" validate:"max=1024"`
}

type ExhExhortoParteForm struct {
	Nombre          string `form:"nombre" json:"nombre" validate:"required,max=256"`
	ApellidoPaterno string `form:"apellido_paterno" json:"apellido_paterno" validate:"max=256"`
	ApellidoMaterno string `form:"apellido_materno" json:"apellido_materno" validate:"max=256"`
	Genero          string `form:"genero" json:"genero" validate:"omitempty,oneof=M F -"`
	EsPersonaMoral  bool   `form:"es_persona_moral" json:"es_persona_moral"`
	TipoParte       int    `form:"tipo_parte" json:"tipo_parte" validate:"min=0,max=2"`
	TipoParteNombre string `form:"tipo_parte_nombre" json:"tipo_parte_nombre" validate:"max=256"`
}

type ExhExhortoPromocionForm struct {
	FolioOrigenPromocion string `form:"folio_origen_promocion" json:"folio_origen_promocion" validate:"max=64"`
	Fojas                int    `form:"fojas" json:"fojas" validate:"gte=0"`
	Observaciones        string `form:"observaciones" json:"observaciones" validate:"max=1024"`
}

type ExhExhortoRespuestaForm struct {
	MunicipioTurnadoID int    `form:"municipio_turnado_id" json:"municipio_turnado_id" validate:"gte=0"`
	AreaTurnadoNombre  string `form:"area_turnado_nombre" json:"area_turnado_nombre" validate:"max=256"`
	NumeroExhorto      string `form:"numero_exhorto" json:"numero_exhorto" validate:"max=64"`
	TipoDiligenciado   int    `form:"tipo_diligenciado" json:"tipo_diligenciado" validate:"min=0,max=2"`
	Observaciones      string `form:"observaciones" json:"observaciones" validate:"max=1024"`
}

type ExhExhortoRespuestaVideoForm struct {
	Titulo      string `form:"titulo" json:"titulo" validate:"required,max=256"`
	Descripcion string `form:"descripcion" json:"descripcion" validate:"max=1024"`
	Fecha       string `form:"fecha" json:"fecha" validate:"omitempty,datetime=2006-01-02"`
	URLAcceso   string `form:"url_acceso" json:"url_acceso" validate:"required,max=512"`
}

type ExhExhortoActualizacionForm struct {
	TipoActualizacion string `form:"tipo_actualizacion" json:"tipo_actualizacion" validate:"required,oneof=AreaTurnado NumeroExhorto Interlocutoria RespuestaExhorto Otro"`
	Descripcion       string `form:"descripcion" json:"descripcion" validate:"required,max=1024"`
}

// ExhExhortoEstadoForm requests a manual state change.
type ExhExhortoEstadoForm struct {
	Estado string `form:"estado" json:"estado" validate:"required"`
}

// BitacoraExportForm launches the audit export task.
type BitacoraExportForm struct {
	Formato    string `form:"formato" json:"formato" validate:"required,oneof=csv pdf"`
	ModuloID   int64  `form:"modulo_id" json:"modulo_id" validate:"gte=0"`
	UsuarioID  int64  `form:"usuario_id" json:"usuario_id" validate:"gte=0"`
	FechaDesde string `form:"fecha_desde" json:"fecha_desde" validate:"omitempty,datetime=2006-01-02"`
	FechaHasta string `form:"fecha_hasta" json:"fecha_hasta" validate:"omitempty,datetime=2006-01-02"`
}

// ChangePasswordForm lets a user set a new password from the profile page.
type ChangePasswordForm struct {
	OldPassword string `form:"old_password" json:"old_password" validate:"required"`
	NewPassword string `form:"new_password" json:"new_password" validate:"required,min=8,max=64"`
}
