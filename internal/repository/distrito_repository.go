package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/pjecz/hercules/internal/dto"
	"github.com/pjecz/hercules/internal/models"
)

const distritoColumns = `id, clave, nombre, nombre_corto, es_distrito_judicial, estatus, creado, modificado`

type DistritoRepository struct {
	conn
}

func NewDistritoRepository(db *sqlx.DB) *DistritoRepository {
	return &DistritoRepository{conn{db: db}}
}

func (r *DistritoRepository) Get(ctx context.Context, id int64) (*models.Distrito, error) {
	var d models.Distrito
	if err := r.get(ctx, &d, "SELECT "+distritoColumns+" FROM distritos WHERE id = $1", id); err != nil {
		return nil, wrap("get distrito", err)
	}
	return &d, nil
}

func (r *DistritoRepository) GetByClave(ctx context.Context, clave string) (*models.Distrito, error) {
	var d models.Distrito
	if err := r.get(ctx, &d, "SELECT "+distritoColumns+" FROM distritos WHERE clave = $1", clave); err != nil {
		return nil, wrap("get distrito by clave", err)
	}
	return &d, nil
}

func (r *DistritoRepository) List(ctx context.Context, f dto.DistritoFilter) ([]models.Distrito, int, error) {
	var w where
	w.estatus("estatus", f.Estatus)
	w.contains("clave", f.Clave)
	w.contains("nombre", f.Nombre)
	if f.EsDistritoJudicial != nil {
		w.eq("es_distrito_judicial", *f.EsDistritoJudicial)
	}

	var items []models.Distrito
	if err := r.selectAll(ctx, &items, "SELECT "+distritoColumns+" FROM distritos"+w.sql()+" ORDER BY id DESC"+limitOffset(f.Page), w.args...); err != nil {
		return nil, 0, wrap("list distritos", err)
	}
	var total int
	if err := r.get(ctx, &total, "SELECT COUNT(*) FROM distritos"+w.sql(), w.args...); err != nil {
		return nil, 0, wrap("count distritos", err)
	}
	return items, total, nil
}

func (r *DistritoRepository) All(ctx context.Context) ([]models.Distrito, error) {
	var items []models.Distrito
	if err := r.selectAll(ctx, &items, "SELECT "+distritoColumns+" FROM distritos ORDER BY id"); err != nil {
		return nil, wrap("all distritos", err)
	}
	return items, nil
}

func (r *DistritoRepository) Create(ctx context.Context, d *models.Distrito) error {
	d.Touch(time.Now())
	const query = `INSERT INTO distritos (clave, nombre, nombre_corto, es_distrito_judicial, estatus, creado, modificado)
		VALUES (:clave, :nombre, :nombre_corto, :es_distrito_judicial, :estatus, :creado, :modificado) RETURNING id`
	id, err := r.namedInsert(ctx, query, d)
	if err != nil {
		return wrap("create distrito", err)
	}
	d.ID = id
	return nil
}

func (r *DistritoRepository) Update(ctx context.Context, d *models.Distrito) error {
	d.Touch(time.Now())
	const query = `UPDATE distritos SET clave = :clave, nombre = :nombre, nombre_corto = :nombre_corto,
		es_distrito_judicial = :es_distrito_judicial, modificado = :modificado WHERE id = :id`
	return wrap("update distrito", r.namedExec(ctx, query, d))
}

func (r *DistritoRepository) SetEstatus(ctx context.Context, id int64, e models.Estatus) error {
	return setEstatus(ctx, r.conn, "distritos", id, e)
}
