package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/pjecz/hercules/internal/dto"
	"github.com/pjecz/hercules/internal/models"
)

const autoridadColumns = `autoridades.id, autoridades.distrito_id, autoridades.clave, autoridades.descripcion, autoridades.descripcion_corta,
	autoridades.es_jurisdiccional, autoridades.es_notaria, autoridades.organo_jurisdiccional,
	autoridades.estatus, autoridades.creado, autoridades.modificado, distritos.clave AS distrito_clave`

const autoridadFrom = ` FROM autoridades JOIN distritos ON distritos.id = autoridades.distrito_id`

type AutoridadRepository struct {
	conn
}

func NewAutoridadRepository(db *sqlx.DB) *AutoridadRepository {
	return &AutoridadRepository{conn{db: db}}
}

func (r *AutoridadRepository) Get(ctx context.Context, id int64) (*models.Autoridad, error) {
	var a models.Autoridad
	if err := r.get(ctx, &a, "SELECT "+autoridadColumns+autoridadFrom+" WHERE autoridades.id = $1", id); err != nil {
		return nil, wrap("get autoridad", err)
	}
	return &a, nil
}

func (r *AutoridadRepository) GetByClave(ctx context.Context, clave string) (*models.Autoridad, error) {
	var a models.Autoridad
	if err := r.get(ctx, &a, "SELECT "+autoridadColumns+autoridadFrom+" WHERE autoridades.clave = $1", clave); err != nil {
		return nil, wrap("get autoridad by clave", err)
	}
	return &a, nil
}

func (r *AutoridadRepository) List(ctx context.Context, f dto.AutoridadFilter) ([]models.Autoridad, int, error) {
	var w where
	w.estatus("autoridades.estatus", f.Estatus)
	w.eqID("autoridades.distrito_id", f.DistritoID)
	w.contains("distritos.clave", f.DistritoClave)
	w.contains("autoridades.clave", f.Clave)
	w.contains("autoridades.descripcion", f.Descripcion)

	var items []models.Autoridad
	if err := r.selectAll(ctx, &items, "SELECT "+autoridadColumns+autoridadFrom+w.sql()+" ORDER BY autoridades.id DESC"+limitOffset(f.Page), w.args...); err != nil {
		return nil, 0, wrap("list autoridades", err)
	}
	var total int
	if err := r.get(ctx, &total, "SELECT COUNT(*)"+autoridadFrom+w.sql(), w.args...); err != nil {
		return nil, 0, wrap("count autoridades", err)
	}
	return items, total, nil
}

func (r *AutoridadRepository) All(ctx context.Context) ([]models.Autoridad, error) {
	var items []models.Autoridad
	if err := r.selectAll(ctx, &items, "SELECT "+autoridadColumns+autoridadFrom+" ORDER BY autoridades.id"); err != nil {
		return nil, wrap("all autoridades", err)
	}
	return items, nil
}

func (r *AutoridadRepository) Create(ctx context.Context, a *models.Autoridad) error {
	a.Touch(time.Now())
	const query = `INSERT INTO autoridades (distrito_id, clave, descripcion, descripcion_corta, es_jurisdiccional, es_notaria, organo_jurisdiccional, estatus, creado, modificado)
		VALUES (:distrito_id, :clave, :descripcion, :descripcion_corta, :es_jurisdiccional, :es_notaria, :organo_jurisdiccional, :estatus, :creado, :modificado) RETURNING id`
	id, err := r.namedInsert(ctx, query, a)
	if err != nil {
		return wrap("create autoridad", err)
	}
	a.ID = id
	return nil
}

func (r *AutoridadRepository) Update(ctx context.Context, a *models.Autoridad) error {
	a.Touch(time.Now())
	const query = `UPDATE autoridades SET distrito_id = :distrito_id, clave = :clave, descripcion = :descripcion,
		descripcion_corta = :descripcion_corta, es_jurisdiccional = :es_jurisdiccional, es_notaria = :es_notaria,
		organo_jurisdiccional = :organo_jurisdiccional, modificado = :modificado WHERE id = :id`
	return wrap("update autoridad", r.namedExec(ctx, query, a))
}

func (r *AutoridadRepository) SetEstatus(ctx context.Context, id int64, e models.Estatus) error {
	return setEstatus(ctx, r.conn, "autoridades", id, e)
}
