package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/pjecz/hercules/internal/dto"
	"github.com/pjecz/hercules/internal/models"
)

// AdjuntoTable names an attachment family table and its parent foreign key.
type AdjuntoTable struct {
	Name         string
	ParentColumn string
}

var (
	SoportesAdjuntos              = AdjuntoTable{Name: "soportes_adjuntos", ParentColumn: "soporte_ticket_id"}
	ExhExhortosArchivos           = AdjuntoTable{Name: "exh_exhortos_archivos", ParentColumn: "exh_exhorto_id"}
	ExhExhortosRespuestasArchivos = AdjuntoTable{Name: "exh_exhortos_respuestas_archivos", ParentColumn: "exh_exhorto_respuesta_id"}
)

// AdjuntoRepository stores the rows of one attachment family.
type AdjuntoRepository struct {
	conn
	table   AdjuntoTable
	columns string
}

func NewAdjuntoRepository(db *sqlx.DB, table AdjuntoTable) *AdjuntoRepository {
	columns := fmt.Sprintf(`id, %s AS parent_id, descripcion, nombre_archivo, tipo_documento, hash_sha1, hash_sha256,
	url, tamano, fecha_hora_recepcion, estado, estatus, creado, modificado`, table.ParentColumn)
	return &AdjuntoRepository{conn: conn{db: db}, table: table, columns: columns}
}

func (r *AdjuntoRepository) Table() AdjuntoTable { return r.table }

func (r *AdjuntoRepository) selectFrom() string {
	return "SELECT " + r.columns + " FROM " + r.table.Name
}

// Reserve inserts a PENDIENTE row without url nor hashes.
func (r *AdjuntoRepository) Reserve(ctx context.Context, a *models.Adjunto) error {
	a.Touch(time.Now())
	a.Estado = models.AdjuntoPendiente
	a.URL, a.HashSHA1, a.HashSHA256, a.Tamano = "", "", "", 0
	a.FechaHoraRecepcion = a.Creado
	query := fmt.Sprintf(`INSERT INTO %s (%s, descripcion, nombre_archivo, tipo_documento, fecha_hora_recepcion, estado, estatus, creado, modificado)
		VALUES (:parent_id, :descripcion, :nombre_archivo, :tipo_documento, :fecha_hora_recepcion, :estado, :estatus, :creado, :modificado) RETURNING id`,
		r.table.Name, r.table.ParentColumn)
	id, err := r.namedInsert(ctx, query, a)
	if err != nil {
		return wrap("reserve "+r.table.Name, err)
	}
	a.ID = id
	return nil
}

// Commit binds the stored bytes to a reserved row. Rows that already carry a
// url are never rewritten.
func (r *AdjuntoRepository) Commit(ctx context.Context, id int64, sha1, sha256, url string, tamano int64, estado string) error {
	query := fmt.Sprintf(`UPDATE %s SET hash_sha1 = $2, hash_sha256 = $3, url = $4, tamano = $5, estado = $6, modificado = $7
		WHERE id = $1 AND url = '' AND estatus = 'A'`, r.table.Name)
	res, err := r.ext(ctx).ExecContext(ctx, query, id, sha1, sha256, url, tamano, estado, time.Now().UTC())
	if err != nil {
		return wrap("commit "+r.table.Name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrap("commit "+r.table.Name, err)
	}
	if n == 0 {
		return ErrStaleState
	}
	return nil
}

func (r *AdjuntoRepository) Get(ctx context.Context, id int64) (*models.Adjunto, error) {
	var a models.Adjunto
	if err := r.get(ctx, &a, r.selectFrom()+" WHERE id = $1", id); err != nil {
		return nil, wrap("get "+r.table.Name, err)
	}
	return &a, nil
}

func (r *AdjuntoRepository) List(ctx context.Context, f dto.AdjuntoFilter) ([]models.Adjunto, int, error) {
	var w where
	w.estatus("estatus", f.Estatus)
	w.eqID(r.table.ParentColumn, f.ParentID)
	w.contains("descripcion", f.Descripcion)

	var items []models.Adjunto
	if err := r.selectAll(ctx, &items, r.selectFrom()+w.sql()+" ORDER BY id DESC"+limitOffset(f.Page), w.args...); err != nil {
		return nil, 0, wrap("list "+r.table.Name, err)
	}
	var total int
	if err := r.get(ctx, &total, "SELECT COUNT(*) FROM "+r.table.Name+w.sql(), w.args...); err != nil {
		return nil, 0, wrap("count "+r.table.Name, err)
	}
	return items, total, nil
}

// ListByParent returns the active rows of a parent in insertion order.
func (r *AdjuntoRepository) ListByParent(ctx context.Context, parentID int64) ([]models.Adjunto, error) {
	var items []models.Adjunto
	query := r.selectFrom() + " WHERE " + r.table.ParentColumn + " = $1 AND estatus = 'A' ORDER BY id"
	if err := r.selectAll(ctx, &items, query, parentID); err != nil {
		return nil, wrap("list "+r.table.Name+" by parent", err)
	}
	return items, nil
}

// ListStalePending returns reserved rows whose upload never completed.
func (r *AdjuntoRepository) ListStalePending(ctx context.Context, before time.Time) ([]models.Adjunto, error) {
	var items []models.Adjunto
	query := r.selectFrom() + " WHERE estatus = 'A' AND estado = 'PENDIENTE' AND url = '' AND creado < $1 ORDER BY id"
	if err := r.selectAll(ctx, &items, query, before.UTC()); err != nil {
		return nil, wrap("list stale "+r.table.Name, err)
	}
	return items, nil
}

func (r *AdjuntoRepository) SetEstado(ctx context.Context, id int64, estado string) error {
	query := fmt.Sprintf("UPDATE %s SET estado = $2, modificado = $3 WHERE id = $1", r.table.Name)
	res, err := r.ext(ctx).ExecContext(ctx, query, id, estado, time.Now().UTC())
	if err != nil {
		return wrap("set estado "+r.table.Name, err)
	}
	return expectOne(res)
}

func (r *AdjuntoRepository) SetEstatus(ctx context.Context, id int64, e models.Estatus) error {
	return setEstatus(ctx, r.conn, r.table.Name, id, e)
}

// SoftDeleteByParent marks every active row of the parent as deleted.
func (r *AdjuntoRepository) SoftDeleteByParent(ctx context.Context, parentID int64) error {
	query := fmt.Sprintf("UPDATE %s SET estatus = 'B', modificado = $2 WHERE %s = $1 AND estatus = 'A'", r.table.Name, r.table.ParentColumn)
	if _, err := r.ext(ctx).ExecContext(ctx, query, parentID, time.Now().UTC()); err != nil {
		return wrap("soft delete "+r.table.Name+" by parent", err)
	}
	return nil
}
