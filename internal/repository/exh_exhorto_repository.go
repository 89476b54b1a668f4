package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/pjecz/hercules/internal/dto"
	"github.com/pjecz/hercules/internal/models"
)

const exhExhortoColumns = `exh_exhortos.id, exh_exhortos.autoridad_id, exh_exhortos.exhorto_origen_id, exh_exhortos.folio_seguimiento,
	exh_exhortos.municipio_destino_id, exh_exhortos.materia_clave, exh_exhortos.materia_nombre, exh_exhortos.estado_origen_clave,
	exh_exhortos.estado_destino_clave, exh_exhortos.juzgado_origen_id, exh_exhortos.juzgado_origen_nombre,
	exh_exhortos.numero_expediente_origen, exh_exhortos.numero_oficio_origen, exh_exhortos.tipo_juicio_asunto_delitos,
	exh_exhortos.juez_exhortante, exh_exhortos.fojas, exh_exhortos.dias_responder, exh_exhortos.tipo_diligenciacion_nombre,
	exh_exhortos.fecha_origen, exh_exhortos.observaciones, exh_exhortos.remitente, exh_exhortos.estado, exh_exhortos.estado_anterior,
	exh_exhortos.estatus, exh_exhortos.creado, exh_exhortos.modificado, autoridades.clave AS autoridad_clave`

const exhExhortoFrom = ` FROM exh_exhortos JOIN autoridades ON autoridades.id = exh_exhortos.autoridad_id`

type ExhExhortoRepository struct {
	conn
}

func NewExhExhortoRepository(db *sqlx.DB) *ExhExhortoRepository {
	return &ExhExhortoRepository{conn{db: db}}
}

func (r *ExhExhortoRepository) Get(ctx context.Context, id int64) (*models.ExhExhorto, error) {
	var e models.ExhExhorto
	if err := r.get(ctx, &e, "SELECT "+exhExhortoColumns+exhExhortoFrom+" WHERE exh_exhortos.id = $1", id); err != nil {
		return nil, wrap("get exh_exhorto", err)
	}
	return &e, nil
}

// GetForUpdate locks the row until the bound transaction ends.
func (r *ExhExhortoRepository) GetForUpdate(ctx context.Context, id int64) (*models.ExhExhorto, error) {
	var e models.ExhExhorto
	query := "SELECT " + exhExhortoColumns + exhExhortoFrom + " WHERE exh_exhortos.id = $1 FOR UPDATE OF exh_exhortos"
	if err := r.get(ctx, &e, query, id); err != nil {
		return nil, wrap("get exh_exhorto for update", err)
	}
	return &e, nil
}

func (r *ExhExhortoRepository) List(ctx context.Context, f dto.ExhExhortoFilter) ([]models.ExhExhorto, int, error) {
	var w where
	w.estatus("exh_exhortos.estatus", f.Estatus)
	w.eqID("exh_exhortos.autoridad_id", f.AutoridadID)
	w.eqText("exh_exhortos.estado", string(f.Estado))
	w.contains("exh_exhortos.exhorto_origen_id", f.ExhortoOrigenID)

	var items []models.ExhExhorto
	if err := r.selectAll(ctx, &items, "SELECT "+exhExhortoColumns+exhExhortoFrom+w.sql()+" ORDER BY exh_exhortos.id DESC"+limitOffset(f.Page), w.args...); err != nil {
		return nil, 0, wrap("list exh_exhortos", err)
	}
	var total int
	if err := r.get(ctx, &total, "SELECT COUNT(*)"+exhExhortoFrom+w.sql(), w.args...); err != nil {
		return nil, 0, wrap("count exh_exhortos", err)
	}
	return items, total, nil
}

func (r *ExhExhortoRepository) Create(ctx context.Context, e *models.ExhExhorto) error {
	e.Touch(time.Now())
	if e.Estado == "" {
		e.Estado = models.ExhPendiente
	}
	const query = `INSERT INTO exh_exhortos (autoridad_id, exhorto_origen_id, folio_seguimiento, municipio_destino_id, materia_clave, materia_nombre,
		estado_origen_clave, estado_destino_clave, juzgado_origen_id, juzgado_origen_nombre, numero_expediente_origen, numero_oficio_origen,
		tipo_juicio_asunto_delitos, juez_exhortante, fojas, dias_responder, tipo_diligenciacion_nombre, fecha_origen, observaciones,
		remitente, estado, estado_anterior, estatus, creado, modificado)
		VALUES (:autoridad_id, :exhorto_origen_id, :folio_seguimiento, :municipio_destino_id, :materia_clave, :materia_nombre,
		:estado_origen_clave, :estado_destino_clave, :juzgado_origen_id, :juzgado_origen_nombre, :numero_expediente_origen, :numero_oficio_origen,
		:tipo_juicio_asunto_delitos, :juez_exhortante, :fojas, :dias_responder, :tipo_diligenciacion_nombre, :fecha_origen, :observaciones,
		:remitente, :estado, :estado_anterior, :estatus, :creado, :modificado) RETURNING id`
	id, err := r.namedInsert(ctx, query, e)
	if err != nil {
		return wrap("create exh_exhorto", err)
	}
	e.ID = id
	return nil
}

// Update writes the editable fields; estado only changes through SetEstado.
func (r *ExhExhortoRepository) Update(ctx context.Context, e *models.ExhExhorto) error {
	e.Touch(time.Now())
	const query = `UPDATE exh_exhortos SET autoridad_id = :autoridad_id, folio_seguimiento = :folio_seguimiento,
		municipio_destino_id = :municipio_destino_id, materia_clave = :materia_clave, materia_nombre = :materia_nombre,
		estado_origen_clave = :estado_origen_clave, estado_destino_clave = :estado_destino_clave, juzgado_origen_id = :juzgado_origen_id,
		juzgado_origen_nombre = :juzgado_origen_nombre, numero_expediente_origen = :numero_expediente_origen,
		numero_oficio_origen = :numero_oficio_origen, tipo_juicio_asunto_delitos = :tipo_juicio_asunto_delitos,
		juez_exhortante = :juez_exhortante, fojas = :fojas, dias_responder = :dias_responder,
		tipo_diligenciacion_nombre = :tipo_diligenciacion_nombre, fecha_origen = :fecha_origen, observaciones = :observaciones,
		modificado = :modificado WHERE id = :id`
	return wrap("update exh_exhorto", r.namedExec(ctx, query, e))
}

// SetEstado moves the exhorto from one estado to another, failing with
// ErrStaleState when the row is no longer in from.
func (r *ExhExhortoRepository) SetEstado(ctx context.Context, id int64, from, to models.ExhEstado) error {
	const query = `UPDATE exh_exhortos SET estado = $3, estado_anterior = $2, modificado = $4 WHERE id = $1 AND estado = $2`
	res, err := r.ext(ctx).ExecContext(ctx, query, id, from, to, time.Now().UTC())
	if err != nil {
		return wrap("set estado exh_exhorto", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrap("set estado exh_exhorto", err)
	}
	if n == 0 {
		return ErrStaleState
	}
	return nil
}

// Resumen counts the active children the estado guards depend on. Reserved
// archivos without stored bytes do not count.
func (r *ExhExhortoRepository) Resumen(ctx context.Context, id int64) (models.ExhExhortoResumen, error) {
	const query = `SELECT
		(SELECT COUNT(*) FROM exh_exhortos_partes WHERE exh_exhorto_id = $1 AND estatus = 'A') AS partes_activas,
		(SELECT COUNT(*) FROM exh_exhortos_archivos WHERE exh_exhorto_id = $1 AND estatus = 'A' AND url <> '') AS archivos_activos,
		(SELECT COUNT(*) FROM exh_exhortos_archivos WHERE exh_exhorto_id = $1 AND estatus = 'A' AND estado = 'RECIBIDO') AS archivos_recibidos,
		(SELECT COUNT(*) FROM exh_exhortos_respuestas r
			WHERE r.exh_exhorto_id = $1 AND r.estatus = 'A'
			AND EXISTS (SELECT 1 FROM exh_exhortos_respuestas_archivos a WHERE a.exh_exhorto_respuesta_id = r.id AND a.estatus = 'A' AND a.url <> '')
			AND NOT EXISTS (SELECT 1 FROM exh_exhortos_respuestas_archivos a WHERE a.exh_exhorto_respuesta_id = r.id AND a.estatus = 'A' AND a.url <> '' AND a.estado <> 'RECIBIDO')
		) AS respuestas_completas`
	var out models.ExhExhortoResumen
	if err := r.get(ctx, &out, query, id); err != nil {
		return out, wrap("resumen exh_exhorto", err)
	}
	return out, nil
}

func (r *ExhExhortoRepository) SetEstatus(ctx context.Context, id int64, e models.Estatus) error {
	return setEstatus(ctx, r.conn, "exh_exhortos", id, e)
}
