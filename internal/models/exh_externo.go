package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Materia is a subject-matter category exchanged with peers.
type Materia struct {
	Clave  string `json:"clave"`
	Nombre string `json:"nombre"`
}

// Materias is the cached catalog of a peer, persisted as JSONB.
type Materias []Materia

// Equal compares two catalogs entry by entry.
func (m Materias) Equal(other Materias) bool {
	if len(m) != len(other) {
		return false
	}
	for i := range m {
		if m[i] != other[i] {
			return false
		}
	}
	return true
}

func (m Materias) Value() (driver.Value, error) {
	if m == nil {
		m = Materias{}
	}
	data, err := json.Marshal([]Materia(m))
	if err != nil {
		return nil, fmt.Errorf("marshal materias: %w", err)
	}
	return data, nil
}

func (m *Materias) Scan(value interface{}) error {
	*m = Materias{}
	if value == nil {
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for Materias", value)
	}
	if len(data) == 0 {
		return nil
	}
	var list []Materia
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("unmarshal materias: %w", err)
	}
	*m = list
	return nil
}

// ExhExterno is a peer jurisdiction reachable over HTTPS.
type ExhExterno struct {
	ID                                     int64    `db:"id" json:"id"`
	Clave                                  string   `db:"clave" json:"clave"`
	Descripcion                            string   `db:"descripcion" json:"descripcion"`
	EstadoClave                            string   `db:"estado_clave" json:"estado_clave"`
	APIKey                                 string   `db:"api_key" json:"-"`
	EndpointConsultarMaterias              string   `db:"endpoint_consultar_materias" json:"endpoint_consultar_materias"`
	EndpointRecibirExhorto                 string   `db:"endpoint_recibir_exhorto" json:"endpoint_recibir_exhorto"`
	EndpointRecibirExhortoArchivo          string   `db:"endpoint_recibir_exhorto_archivo" json:"endpoint_recibir_exhorto_archivo"`
	EndpointConsultarExhorto               string   `db:"endpoint_consultar_exhorto" json:"endpoint_consultar_exhorto"`
	EndpointRecibirRespuestaExhorto        string   `db:"endpoint_recibir_respuesta_exhorto" json:"endpoint_recibir_respuesta_exhorto"`
	EndpointRecibirRespuestaExhortoArchivo string   `db:"endpoint_recibir_respuesta_exhorto_archivo" json:"endpoint_recibir_respuesta_exhorto_archivo"`
	EndpointActualizarExhorto              string   `db:"endpoint_actualizar_exhorto" json:"endpoint_actualizar_exhorto"`
	EndpointRecibirPromocion               string   `db:"endpoint_recibir_promocion" json:"endpoint_recibir_promocion"`
	EndpointRecibirPromocionArchivo        string   `db:"endpoint_recibir_promocion_archivo" json:"endpoint_recibir_promocion_archivo"`
	Materias                               Materias `db:"materias" json:"materias"`
	UniversalMixin
}
