package models

// Distrito groups authorities geographically.
type Distrito struct {
	ID                 int64  `db:"id" json:"id"`
	Clave              string `db:"clave" json:"clave"`
	Nombre             string `db:"nombre" json:"nombre"`
	NombreCorto        string `db:"nombre_corto" json:"nombre_corto"`
	EsDistritoJudicial bool   `db:"es_distrito_judicial" json:"es_distrito_judicial"`
	UniversalMixin
}

// Autoridad is a court or administrative unit.
type Autoridad struct {
	ID                   int64  `db:"id" json:"id"`
	DistritoID           int64  `db:"distrito_id" json:"distrito_id"`
	Clave                string `db:"clave" json:"clave"`
	Descripcion          string `db:"descripcion" json:"descripcion"`
	DescripcionCorta     string `db:"descripcion_corta" json:"descripcion_corta"`
	EsJurisdiccional     bool   `db:"es_jurisdiccional" json:"es_jurisdiccional"`
	EsNotaria            bool   `db:"es_notaria" json:"es_notaria"`
	OrganoJurisdiccional string `db:"organo_jurisdiccional" json:"organo_jurisdiccional"`
	UniversalMixin

	DistritoClave string `db:"distrito_clave" json:"distrito_clave,omitempty"`
}

// Organos jurisdiccionales accepted for Autoridad.
var OrganosJurisdiccionales = []string{
	"NO DEFINIDO",
	"JUZGADO DE PRIMERA INSTANCIA",
	"JUZGADO DE PRIMERA INSTANCIA ORAL",
	"PLENO O SALA DEL TSJ",
	"TRIBUNAL DISTRITAL",
	"TRIBUNAL DE CONCILIACION Y ARBITRAJE",
}
