package models

import "time"

// Estados of an attachment row.
const (
	AdjuntoPendiente = "PENDIENTE"
	AdjuntoRecibido  = "RECIBIDO"
	AdjuntoEnviado   = "ENVIADO"
	AdjuntoCancelado = "CANCELADO"
)

// Adjunto is the common shape of SoporteAdjunto, ExhExhortoArchivo and
// ExhExhortoRespuestaArchivo. ParentID maps to the family's foreign key.
type Adjunto struct {
	ID                 int64     `db:"id" json:"id"`
	ParentID           int64     `db:"parent_id" json:"parent_id"`
	Descripcion        string    `db:"descripcion" json:"descripcion"`
	NombreArchivo      string    `db:"nombre_archivo" json:"nombre_archivo"`
	TipoDocumento      string    `db:"tipo_documento" json:"tipo_documento"`
	HashSHA1           string    `db:"hash_sha1" json:"hash_sha1"`
	HashSHA256         string    `db:"hash_sha256" json:"hash_sha256"`
	URL                string    `db:"url" json:"url"`
	Tamano             int64     `db:"tamano" json:"tamano"`
	FechaHoraRecepcion time.Time `db:"fecha_hora_recepcion" json:"fecha_hora_recepcion"`
	Estado             string    `db:"estado" json:"estado"`
	UniversalMixin
}

// Stored reports whether the bytes reached the bucket.
func (a Adjunto) Stored() bool { return a.URL != "" }
