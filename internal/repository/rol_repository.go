package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/pjecz/hercules/internal/dto"
	"github.com/pjecz/hercules/internal/models"
)

const rolColumns = `id, nombre, estatus, creado, modificado`

type RolRepository struct {
	conn
}

func NewRolRepository(db *sqlx.DB) *RolRepository {
	return &RolRepository{conn{db: db}}
}

func (r *RolRepository) Get(ctx context.Context, id int64) (*models.Rol, error) {
	var m models.Rol
	if err := r.get(ctx, &m, "SELECT "+rolColumns+" FROM roles WHERE id = $1", id); err != nil {
		return nil, wrap("get rol", err)
	}
	return &m, nil
}

func (r *RolRepository) List(ctx context.Context, f dto.RolFilter) ([]models.Rol, int, error) {
	var w where
	w.estatus("estatus", f.Estatus)
	w.contains("nombre", f.Nombre)

	var items []models.Rol
	if err := r.selectAll(ctx, &items, "SELECT "+rolColumns+" FROM roles"+w.sql()+" ORDER BY id DESC"+limitOffset(f.Page), w.args...); err != nil {
		return nil, 0, wrap("list roles", err)
	}
	var total int
	if err := r.get(ctx, &total, "SELECT COUNT(*) FROM roles"+w.sql(), w.args...); err != nil {
		return nil, 0, wrap("count roles", err)
	}
	return items, total, nil
}

func (r *RolRepository) All(ctx context.Context) ([]models.Rol, error) {
	var items []models.Rol
	if err := r.selectAll(ctx, &items, "SELECT "+rolColumns+" FROM roles ORDER BY id"); err != nil {
		return nil, wrap("all roles", err)
	}
	return items, nil
}

func (r *RolRepository) Create(ctx context.Context, m *models.Rol) error {
	m.Touch(time.Now())
	id, err := r.namedInsert(ctx, `INSERT INTO roles (nombre, estatus, creado, modificado) VALUES (:nombre, :estatus, :creado, :modificado) RETURNING id`, m)
	if err != nil {
		return wrap("create rol", err)
	}
	m.ID = id
	return nil
}

func (r *RolRepository) Update(ctx context.Context, m *models.Rol) error {
	m.Touch(time.Now())
	return wrap("update rol", r.namedExec(ctx, `UPDATE roles SET nombre = :nombre, modificado = :modificado WHERE id = :id`, m))
}

func (r *RolRepository) SetEstatus(ctx context.Context, id int64, e models.Estatus) error {
	return setEstatus(ctx, r.conn, "roles", id, e)
}
