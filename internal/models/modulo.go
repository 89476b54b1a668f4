package models

// Modulo is a protected area of the platform; Ruta is the URL prefix of its handlers.
type Modulo struct {
	ID                   int64  `db:"id" json:"id"`
	Nombre               string `db:"nombre" json:"nombre"`
	NombreCorto          string `db:"nombre_corto" json:"nombre_corto"`
	Icono                string `db:"icono" json:"icono"`
	Ruta                 string `db:"ruta" json:"ruta"`
	EnNavegacion         bool   `db:"en_navegacion" json:"en_navegacion"`
	EnPlataformaHercules bool   `db:"en_plataforma_hercules" json:"en_plataforma_hercules"`
	UniversalMixin
}

// Rol groups permissions granted to users.
type Rol struct {
	ID     int64  `db:"id" json:"id"`
	Nombre string `db:"nombre" json:"nombre"`
	UniversalMixin
}

// Permiso grants a role a level on a module.
type Permiso struct {
	ID       int64  `db:"id" json:"id"`
	RolID    int64  `db:"rol_id" json:"rol_id"`
	ModuloID int64  `db:"modulo_id" json:"modulo_id"`
	Nombre   string `db:"nombre" json:"nombre"`
	Nivel    int    `db:"nivel" json:"nivel"`
	UniversalMixin

	RolNombre    string `db:"rol_nombre" json:"rol_nombre,omitempty"`
	ModuloNombre string `db:"modulo_nombre" json:"modulo_nombre,omitempty"`
}

// UsuarioRol links a user with a role.
type UsuarioRol struct {
	ID          int64  `db:"id" json:"id"`
	UsuarioID   int64  `db:"usuario_id" json:"usuario_id"`
	RolID       int64  `db:"rol_id" json:"rol_id"`
	Descripcion string `db:"descripcion" json:"descripcion"`
	UniversalMixin

	UsuarioEmail string `db:"usuario_email" json:"usuario_email,omitempty"`
	RolNombre    string `db:"rol_nombre" json:"rol_nombre,omitempty"`
}

// PermisoEfectivo is an active grant reached through an active UsuarioRol.
type PermisoEfectivo struct {
	RolNombre    string `db:"rol_nombre"`
	ModuloNombre string `db:"modulo_nombre"`
	Nivel        int    `db:"nivel"`
}
