package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/pjecz/hercules/internal/dto"
	"github.com/pjecz/hercules/internal/models"
)

// listChildren runs the shared listing of rows bound to one parent column.
func listChildren(ctx context.Context, c conn, dest interface{}, columns, table, parentColumn string, f dto.ExhChildFilter) (int, error) {
	var w where
	w.estatus("estatus", f.Estatus)
	w.eqID(parentColumn, f.ParentID)
	if err := c.selectAll(ctx, dest, "SELECT "+columns+" FROM "+table+w.sql()+" ORDER BY id DESC"+limitOffset(f.Page), w.args...); err != nil {
		return 0, wrap("list "+table, err)
	}
	var total int
	if err := c.get(ctx, &total, "SELECT COUNT(*) FROM "+table+w.sql(), w.args...); err != nil {
		return 0, wrap("count "+table, err)
	}
	return total, nil
}

func setChildEstado(ctx context.Context, c conn, table string, id int64, estado string) error {
	res, err := c.ext(ctx).ExecContext(ctx, "UPDATE "+table+" SET estado = $2, modificado = $3 WHERE id = $1", id, estado, time.Now().UTC())
	if err != nil {
		return wrap("set estado "+table, err)
	}
	return expectOne(res)
}

const exhParteColumns = `id, exh_exhorto_id, nombre, apellido_paterno, apellido_materno, genero, es_persona_moral, tipo_parte,
	tipo_parte_nombre, estatus, creado, modificado`

type ExhParteRepository struct {
	conn
}

func NewExhParteRepository(db *sqlx.DB) *ExhParteRepository {
	return &ExhParteRepository{conn{db: db}}
}

func (r *ExhParteRepository) Get(ctx context.Context, id int64) (*models.ExhExhortoParte, error) {
	var p models.ExhExhortoParte
	if err := r.get(ctx, &p, "SELECT "+exhParteColumns+" FROM exh_exhortos_partes WHERE id = $1", id); err != nil {
		return nil, wrap("get exh_exhorto_parte", err)
	}
	return &p, nil
}

func (r *ExhParteRepository) List(ctx context.Context, f dto.ExhChildFilter) ([]models.ExhExhortoParte, int, error) {
	var items []models.ExhExhortoParte
	total, err := listChildren(ctx, r.conn, &items, exhParteColumns, "exh_exhortos_partes", "exh_exhorto_id", f)
	return items, total, err
}

func (r *ExhParteRepository) Create(ctx context.Context, p *models.ExhExhortoParte) error {
	p.Touch(time.Now())
	const query = `INSERT INTO exh_exhortos_partes (exh_exhorto_id, nombre, apellido_paterno, apellido_materno, genero, es_persona_moral,
		tipo_parte, tipo_parte_nombre, estatus, creado, modificado)
		VALUES (:exh_exhorto_id, :nombre, :apellido_paterno, :apellido_materno, :genero, :es_persona_moral,
		:tipo_parte, :tipo_parte_nombre, :estatus, :creado, :modificado) RETURNING id`
	id, err := r.namedInsert(ctx, query, p)
	if err != nil {
		return wrap("create exh_exhorto_parte", err)
	}
	p.ID = id
	return nil
}

func (r *ExhParteRepository) Update(ctx context.Context, p *models.ExhExhortoParte) error {
	p.Touch(time.Now())
	const query = `UPDATE exh_exhortos_partes SET nombre = :nombre, apellido_paterno = :apellido_paterno, apellido_materno = :apellido_materno,
		genero = :genero, es_persona_moral = :es_persona_moral, tipo_parte = :tipo_parte, tipo_parte_nombre = :tipo_parte_nombre,
		modificado = :modificado WHERE id = :id`
	return wrap("update exh_exhorto_parte", r.namedExec(ctx, query, p))
}

func (r *ExhParteRepository) SetEstatus(ctx context.Context, id int64, e models.Estatus) error {
	return setEstatus(ctx, r.conn, "exh_exhortos_partes", id, e)
}

func (r *ExhParteRepository) SoftDeleteByParent(ctx context.Context, exhortoID int64) error {
	const query = `UPDATE exh_exhortos_partes SET estatus = 'B', modificado = $2 WHERE exh_exhorto_id = $1 AND estatus = 'A'`
	if _, err := r.ext(ctx).ExecContext(ctx, query, exhortoID, time.Now().UTC()); err != nil {
		return wrap("soft delete exh_exhortos_partes by parent", err)
	}
	return nil
}

const exhPromocionColumns = `id, exh_exhorto_id, folio_origen_promocion, fojas, fecha_origen, observaciones, remitente, estado,
	estatus, creado, modificado`

type ExhPromocionRepository struct {
	conn
}

func NewExhPromocionRepository(db *sqlx.DB) *ExhPromocionRepository {
	return &ExhPromocionRepository{conn{db: db}}
}

func (r *ExhPromocionRepository) Get(ctx context.Context, id int64) (*models.ExhExhortoPromocion, error) {
	var p models.ExhExhortoPromocion
	if err := r.get(ctx, &p, "SELECT "+exhPromocionColumns+" FROM exh_exhortos_promociones WHERE id = $1", id); err != nil {
		return nil, wrap("get exh_exhorto_promocion", err)
	}
	return &p, nil
}

func (r *ExhPromocionRepository) List(ctx context.Context, f dto.ExhChildFilter) ([]models.ExhExhortoPromocion, int, error) {
	var items []models.ExhExhortoPromocion
	total, err := listChildren(ctx, r.conn, &items, exhPromocionColumns, "exh_exhortos_promociones", "exh_exhorto_id", f)
	return items, total, err
}

func (r *ExhPromocionRepository) Create(ctx context.Context, p *models.ExhExhortoPromocion) error {
	p.Touch(time.Now())
	const query = `INSERT INTO exh_exhortos_promociones (exh_exhorto_id, folio_origen_promocion, fojas, fecha_origen, observaciones,
		remitente, estado, estatus, creado, modificado)
		VALUES (:exh_exhorto_id, :folio_origen_promocion, :fojas, :fecha_origen, :observaciones,
		:remitente, :estado, :estatus, :creado, :modificado) RETURNING id`
	id, err := r.namedInsert(ctx, query, p)
	if err != nil {
		return wrap("create exh_exhorto_promocion", err)
	}
	p.ID = id
	return nil
}

func (r *ExhPromocionRepository) Update(ctx context.Context, p *models.ExhExhortoPromocion) error {
	p.Touch(time.Now())
	const query = `UPDATE exh_exhortos_promociones SET folio_origen_promocion = :folio_origen_promocion, fojas = :fojas,
		fecha_origen = :fecha_origen, observaciones = :observaciones, modificado = :modificado WHERE id = :id`
	return wrap("update exh_exhorto_promocion", r.namedExec(ctx, query, p))
}

func (r *ExhPromocionRepository) SetEstado(ctx context.Context, id int64, estado string) error {
	return setChildEstado(ctx, r.conn, "exh_exhortos_promociones", id, estado)
}

func (r *ExhPromocionRepository) SetEstatus(ctx context.Context, id int64, e models.Estatus) error {
	return setEstatus(ctx, r.conn, "exh_exhortos_promociones", id, e)
}

const exhRespuestaColumns = `id, exh_exhorto_id, respuesta_origen_id, municipio_turnado_id, area_turnado_nombre, numero_exhorto,
	tipo_diligenciado, observaciones, remitente, estado, estatus, creado, modificado`

type ExhRespuestaRepository struct {
	conn
}

func NewExhRespuestaRepository(db *sqlx.DB) *ExhRespuestaRepository {
	return &ExhRespuestaRepository{conn{db: db}}
}

func (r *ExhRespuestaRepository) Get(ctx context.Context, id int64) (*models.ExhExhortoRespuesta, error) {
	var p models.ExhExhortoRespuesta
	if err := r.get(ctx, &p, "SELECT "+exhRespuestaColumns+" FROM exh_exhortos_respuestas WHERE id = $1", id); err != nil {
		return nil, wrap("get exh_exhorto_respuesta", err)
	}
	return &p, nil
}

func (r *ExhRespuestaRepository) List(ctx context.Context, f dto.ExhChildFilter) ([]models.ExhExhortoRespuesta, int, error) {
	var items []models.ExhExhortoRespuesta
	total, err := listChildren(ctx, r.conn, &items, exhRespuestaColumns, "exh_exhortos_respuestas", "exh_exhorto_id", f)
	return items, total, err
}

func (r *ExhRespuestaRepository) Create(ctx context.Context, p *models.ExhExhortoRespuesta) error {
	p.Touch(time.Now())
	const query = `INSERT INTO exh_exhortos_respuestas (exh_exhorto_id, respuesta_origen_id, municipio_turnado_id, area_turnado_nombre,
		numero_exhorto, tipo_diligenciado, observaciones, remitente, estado, estatus, creado, modificado)
		VALUES (:exh_exhorto_id, :respuesta_origen_id, :municipio_turnado_id, :area_turnado_nombre,
		:numero_exhorto, :tipo_diligenciado, :observaciones, :remitente, :estado, :estatus, :creado, :modificado) RETURNING id`
	id, err := r.namedInsert(ctx, query, p)
	if err != nil {
		return wrap("create exh_exhorto_respuesta", err)
	}
	p.ID = id
	return nil
}

func (r *ExhRespuestaRepository) Update(ctx context.Context, p *models.ExhExhortoRespuesta) error {
	p.Touch(time.Now())
	const query = `UPDATE exh_exhortos_respuestas SET respuesta_origen_id = :respuesta_origen_id, municipio_turnado_id = :municipio_turnado_id,
		area_turnado_nombre = :area_turnado_nombre, numero_exhorto = :numero_exhorto, tipo_diligenciado = :tipo_diligenciado,
		observaciones = :observaciones, modificado = :modificado WHERE id = :id`
	return wrap("update exh_exhorto_respuesta", r.namedExec(ctx, query, p))
}

func (r *ExhRespuestaRepository) SetEstado(ctx context.Context, id int64, estado string) error {
	return setChildEstado(ctx, r.conn, "exh_exhortos_respuestas", id, estado)
}

func (r *ExhRespuestaRepository) SetEstatus(ctx context.Context, id int64, e models.Estatus) error {
	return setEstatus(ctx, r.conn, "exh_exhortos_respuestas", id, e)
}

const exhVideoColumns = `id, exh_exhorto_respuesta_id, titulo, descripcion, fecha, url_acceso, estatus, creado, modificado`

type ExhVideoRepository struct {
	conn
}

func NewExhVideoRepository(db *sqlx.DB) *ExhVideoRepository {
	return &ExhVideoRepository{conn{db: db}}
}

func (r *ExhVideoRepository) Get(ctx context.Context, id int64) (*models.ExhExhortoRespuestaVideo, error) {
	var v models.ExhExhortoRespuestaVideo
	if err := r.get(ctx, &v, "SELECT "+exhVideoColumns+" FROM exh_exhortos_respuestas_videos WHERE id = $1", id); err != nil {
		return nil, wrap("get exh_exhorto_respuesta_video", err)
	}
	return &v, nil
}

func (r *ExhVideoRepository) List(ctx context.Context, f dto.ExhChildFilter) ([]models.ExhExhortoRespuestaVideo, int, error) {
	var items []models.ExhExhortoRespuestaVideo
	total, err := listChildren(ctx, r.conn, &items, exhVideoColumns, "exh_exhortos_respuestas_videos", "exh_exhorto_respuesta_id", f)
	return items, total, err
}

func (r *ExhVideoRepository) Create(ctx context.Context, v *models.ExhExhortoRespuestaVideo) error {
	v.Touch(time.Now())
	const query = `INSERT INTO exh_exhortos_respuestas_videos (exh_exhorto_respuesta_id, titulo, descripcion, fecha, url_acceso, estatus, creado, modificado)
		VALUES (:exh_exhorto_respuesta_id, :titulo, :descripcion, :fecha, :url_acceso, :estatus, :creado, :modificado) RETURNING id`
	id, err := r.namedInsert(ctx, query, v)
	if err != nil {
		return wrap("create exh_exhorto_respuesta_video", err)
	}
	v.ID = id
	return nil
}

func (r *ExhVideoRepository) Update(ctx context.Context, v *models.ExhExhortoRespuestaVideo) error {
	v.Touch(time.Now())
	const query = `UPDATE exh_exhortos_respuestas_videos SET titulo = :titulo, descripcion = :descripcion, fecha = :fecha,
		url_acceso = :url_acceso, modificado = :modificado WHERE id = :id`
	return wrap("update exh_exhorto_respuesta_video", r.namedExec(ctx, query, v))
}

func (r *ExhVideoRepository) SetEstatus(ctx context.Context, id int64, e models.Estatus) error {
	return setEstatus(ctx, r.conn, "exh_exhortos_respuestas_videos", id, e)
}

const exhActualizacionColumns = `id, exh_exhorto_id, actualizacion_origen_id, tipo_actualizacion, fecha_hora, descripcion, remitente,
	estatus, creado, modificado`

type ExhActualizacionRepository struct {
	conn
}

func NewExhActualizacionRepository(db *sqlx.DB) *ExhActualizacionRepository {
	return &ExhActualizacionRepository{conn{db: db}}
}

func (r *ExhActualizacionRepository) Get(ctx context.Context, id int64) (*models.ExhExhortoActualizacion, error) {
	var a models.ExhExhortoActualizacion
	if err := r.get(ctx, &a, "SELECT "+exhActualizacionColumns+" FROM exh_exhortos_actualizaciones WHERE id = $1", id); err != nil {
		return nil, wrap("get exh_exhorto_actualizacion", err)
	}
	return &a, nil
}

func (r *ExhActualizacionRepository) List(ctx context.Context, f dto.ExhChildFilter) ([]models.ExhExhortoActualizacion, int, error) {
	var items []models.ExhExhortoActualizacion
	total, err := listChildren(ctx, r.conn, &items, exhActualizacionColumns, "exh_exhortos_actualizaciones", "exh_exhorto_id", f)
	return items, total, err
}

func (r *ExhActualizacionRepository) Create(ctx context.Context, a *models.ExhExhortoActualizacion) error {
	a.Touch(time.Now())
	const query = `INSERT INTO exh_exhortos_actualizaciones (exh_exhorto_id, actualizacion_origen_id, tipo_actualizacion, fecha_hora,
		descripcion, remitente, estatus, creado, modificado)
		VALUES (:exh_exhorto_id, :actualizacion_origen_id, :tipo_actualizacion, :fecha_hora,
		:descripcion, :remitente, :estatus, :creado, :modificado) RETURNING id`
	id, err := r.namedInsert(ctx, query, a)
	if err != nil {
		return wrap("create exh_exhorto_actualizacion", err)
	}
	a.ID = id
	return nil
}

func (r *ExhActualizacionRepository) SetEstatus(ctx context.Context, id int64, e models.Estatus) error {
	return setEstatus(ctx, r.conn, "exh_exhortos_actualizaciones", id, e)
}
