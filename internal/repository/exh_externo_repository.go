package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/pjecz/hercules/internal/dto"
	"github.com/pjecz/hercules/internal/models"
)

const exhExternoColumns = `id, clave, descripcion, estado_clave, api_key, endpoint_consultar_materias, endpoint_recibir_exhorto,
	endpoint_recibir_exhorto_archivo, endpoint_consultar_exhorto, endpoint_recibir_respuesta_exhorto,
	endpoint_recibir_respuesta_exhorto_archivo, endpoint_actualizar_exhorto, endpoint_recibir_promocion,
	endpoint_recibir_promocion_archivo, materias, estatus, creado, modificado`

type ExhExternoRepository struct {
	conn
}

func NewExhExternoRepository(db *sqlx.DB) *ExhExternoRepository {
	return &ExhExternoRepository{conn{db: db}}
}

func (r *ExhExternoRepository) Get(ctx context.Context, id int64) (*models.ExhExterno, error) {
	var e models.ExhExterno
	if err := r.get(ctx, &e, "SELECT "+exhExternoColumns+" FROM exh_externos WHERE id = $1", id); err != nil {
		return nil, wrap("get exh_externo", err)
	}
	return &e, nil
}

// GetActiveByEstado returns the active peer serving a state.
func (r *ExhExternoRepository) GetActiveByEstado(ctx context.Context, estadoClave string) (*models.ExhExterno, error) {
	var e models.ExhExterno
	if err := r.get(ctx, &e, "SELECT "+exhExternoColumns+" FROM exh_externos WHERE estado_clave = $1 AND estatus = 'A'", estadoClave); err != nil {
		return nil, wrap("get exh_externo by estado", err)
	}
	return &e, nil
}

func (r *ExhExternoRepository) List(ctx context.Context, f dto.ExhExternoFilter) ([]models.ExhExterno, int, error) {
	var w where
	w.estatus("estatus", f.Estatus)
	w.contains("clave", f.Clave)
	w.contains("descripcion", f.Descripcion)

	var items []models.ExhExterno
	if err := r.selectAll(ctx, &items, "SELECT "+exhExternoColumns+" FROM exh_externos"+w.sql()+" ORDER BY id DESC"+limitOffset(f.Page), w.args...); err != nil {
		return nil, 0, wrap("list exh_externos", err)
	}
	var total int
	if err := r.get(ctx, &total, "SELECT COUNT(*) FROM exh_externos"+w.sql(), w.args...); err != nil {
		return nil, 0, wrap("count exh_externos", err)
	}
	return items, total, nil
}

// ListActive returns active peers in insertion order.
func (r *ExhExternoRepository) ListActive(ctx context.Context) ([]models.ExhExterno, error) {
	var items []models.ExhExterno
	if err := r.selectAll(ctx, &items, "SELECT "+exhExternoColumns+" FROM exh_externos WHERE estatus = 'A' ORDER BY id ASC"); err != nil {
		return nil, wrap("list active exh_externos", err)
	}
	return items, nil
}

func (r *ExhExternoRepository) Create(ctx context.Context, e *models.ExhExterno) error {
	e.Touch(time.Now())
	const query = `INSERT INTO exh_externos (clave, descripcion, estado_clave, api_key, endpoint_consultar_materias, endpoint_recibir_exhorto,
		endpoint_recibir_exhorto_archivo, endpoint_consultar_exhorto, endpoint_recibir_respuesta_exhorto,
		endpoint_recibir_respuesta_exhorto_archivo, endpoint_actualizar_exhorto, endpoint_recibir_promocion,
		endpoint_recibir_promocion_archivo, materias, estatus, creado, modificado)
		VALUES (:clave, :descripcion, :estado_clave, :api_key, :endpoint_consultar_materias, :endpoint_recibir_exhorto,
		:endpoint_recibir_exhorto_archivo, :endpoint_consultar_exhorto, :endpoint_recibir_respuesta_exhorto,
		:endpoint_recibir_respuesta_exhorto_archivo, :endpoint_actualizar_exhorto, :endpoint_recibir_promocion,
		:endpoint_recibir_promocion_archivo, :materias, :estatus, :creado, :modificado) RETURNING id`
	id, err := r.namedInsert(ctx, query, e)
	if err != nil {
		return wrap("create exh_externo", err)
	}
	e.ID = id
	return nil
}

// Update leaves the cached materias untouched; see ReplaceMaterias.
func (r *ExhExternoRepository) Update(ctx context.Context, e *models.ExhExterno) error {
	e.Touch(time.Now())
	const query = `UPDATE exh_externos SET clave = :clave, descripcion = :descripcion, estado_clave = :estado_clave, api_key = :api_key,
		endpoint_consultar_materias = :endpoint_consultar_materias, endpoint_recibir_exhorto = :endpoint_recibir_exhorto,
		endpoint_recibir_exhorto_archivo = :endpoint_recibir_exhorto_archivo, endpoint_consultar_exhorto = :endpoint_consultar_exhorto,
		endpoint_recibir_respuesta_exhorto = :endpoint_recibir_respuesta_exhorto,
		endpoint_recibir_respuesta_exhorto_archivo = :endpoint_recibir_respuesta_exhorto_archivo,
		endpoint_actualizar_exhorto = :endpoint_actualizar_exhorto, endpoint_recibir_promocion = :endpoint_recibir_promocion,
		endpoint_recibir_promocion_archivo = :endpoint_recibir_promocion_archivo, modificado = :modificado WHERE id = :id`
	return wrap("update exh_externo", r.namedExec(ctx, query, e))
}

// ReplaceMaterias swaps the cached catalog in a single statement.
func (r *ExhExternoRepository) ReplaceMaterias(ctx context.Context, id int64, materias models.Materias) error {
	res, err := r.ext(ctx).ExecContext(ctx, `UPDATE exh_externos SET materias = $2, modificado = $3 WHERE id = $1`, id, materias, time.Now().UTC())
	if err != nil {
		return wrap("replace materias", err)
	}
	return expectOne(res)
}

func (r *ExhExternoRepository) SetEstatus(ctx context.Context, id int64, e models.Estatus) error {
	return setEstatus(ctx, r.conn, "exh_externos", id, e)
}
