package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/pjecz/hercules/internal/dto"
	"github.com/pjecz/hercules/internal/models"
)

const moduloColumns = `id, nombre, nombre_corto, icono, ruta, en_navegacion, en_plataforma_hercules, estatus, creado, modificado`

type ModuloRepository struct {
	conn
}

func NewModuloRepository(db *sqlx.DB) *ModuloRepository {
	return &ModuloRepository{conn{db: db}}
}

func (r *ModuloRepository) Get(ctx context.Context, id int64) (*models.Modulo, error) {
	var m models.Modulo
	if err := r.get(ctx, &m, "SELECT "+moduloColumns+" FROM modulos WHERE id = $1", id); err != nil {
		return nil, wrap("get modulo", err)
	}
	return &m, nil
}

// IDByNombre resolves an active module name to its id.
func (r *ModuloRepository) IDByNombre(ctx context.Context, nombre string) (int64, error) {
	var id int64
	if err := r.get(ctx, &id, "SELECT id FROM modulos WHERE nombre = $1 AND estatus = 'A'", nombre); err != nil {
		return 0, wrap("find modulo by nombre", err)
	}
	return id, nil
}

func (r *ModuloRepository) List(ctx context.Context, f dto.ModuloFilter) ([]models.Modulo, int, error) {
	var w where
	w.estatus("estatus", f.Estatus)
	w.contains("nombre", f.Nombre)

	var items []models.Modulo
	if err := r.selectAll(ctx, &items, "SELECT "+moduloColumns+" FROM modulos"+w.sql()+" ORDER BY id DESC"+limitOffset(f.Page), w.args...); err != nil {
		return nil, 0, wrap("list modulos", err)
	}
	var total int
	if err := r.get(ctx, &total, "SELECT COUNT(*) FROM modulos"+w.sql(), w.args...); err != nil {
		return nil, 0, wrap("count modulos", err)
	}
	return items, total, nil
}

// All returns every row ordered by id, for seed dumps.
func (r *ModuloRepository) All(ctx context.Context) ([]models.Modulo, error) {
	var items []models.Modulo
	if err := r.selectAll(ctx, &items, "SELECT "+moduloColumns+" FROM modulos ORDER BY id"); err != nil {
		return nil, wrap("all modulos", err)
	}
	return items, nil
}

func (r *ModuloRepository) Create(ctx context.Context, m *models.Modulo) error {
	m.Touch(time.Now())
	const query = `INSERT INTO modulos (nombre, nombre_corto, icono, ruta, en_navegacion, en_plataforma_hercules, estatus, creado, modificado)
		VALUES (:nombre, :nombre_corto, :icono, :ruta, :en_navegacion, :en_plataforma_hercules, :estatus, :creado, :modificado) RETURNING id`
	id, err := r.namedInsert(ctx, query, m)
	if err != nil {
		return wrap("create modulo", err)
	}
	m.ID = id
	return nil
}

func (r *ModuloRepository) Update(ctx context.Context, m *models.Modulo) error {
	m.Touch(time.Now())
	const query = `UPDATE modulos SET nombre = :nombre, nombre_corto = :nombre_corto, icono = :icono, ruta = :ruta,
		en_navegacion = :en_navegacion, en_plataforma_hercules = :en_plataforma_hercules, modificado = :modificado WHERE id = :id`
	return wrap("update modulo", r.namedExec(ctx, query, m))
}

func (r *ModuloRepository) SetEstatus(ctx context.Context, id int64, e models.Estatus) error {
	return setEstatus(ctx, r.conn, "modulos", id, e)
}
