package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// TareaEstado captures background task lifecycle states.
type TareaEstado string

const (
	TareaQueued  TareaEstado = "QUEUED"
	TareaRunning TareaEstado = "RUNNING"
	TareaDone    TareaEstado = "DONE"
	TareaError   TareaEstado = "ERROR"
)

// Terminal reports whether no further transition is allowed.
func (e TareaEstado) Terminal() bool { return e == TareaDone || e == TareaError }

// Tarea is a long operation launched by a user and polled for progress.
type Tarea struct {
	ID         string          `db:"id" json:"id"`
	UsuarioID  int64           `db:"usuario_id" json:"usuario_id"`
	Comando    string          `db:"comando" json:"comando"`
	Parametros TareaParametros `db:"parametros" json:"parametros"`
	Mensaje    string          `db:"mensaje" json:"mensaje"`
	Estado     TareaEstado     `db:"estado" json:"estado"`
	Progreso   int             `db:"progreso" json:"progreso"`
	Resultado  string          `db:"resultado" json:"resultado"`
	Archivo    string          `db:"archivo" json:"archivo"`
	URL        string          `db:"url" json:"url"`
	UniversalMixin
}

// TareaParametros stores the typed command input persisted as JSONB.
type TareaParametros map[string]string

// Value marshals params to JSON for persistence.
func (p TareaParametros) Value() (driver.Value, error) {
	if p == nil {
		p = TareaParametros{}
	}
	data, err := json.Marshal(map[string]string(p))
	if err != nil {
		return nil, fmt.Errorf("marshal tarea params: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the params map.
func (p *TareaParametros) Scan(value interface{}) error {
	*p = TareaParametros{}
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
		return fmt.Errorf("unsupported type %T for TareaParametros", value)
	}
	if len(data) == 0 {
		return nil
	}
	m := map[string]string{}
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("unmarshal tarea params: %w", err)
	}
	*p = m
	return nil
}
