package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/pjecz/hercules/internal/dto"
	"github.com/pjecz/hercules/internal/models"
)

const usuarioRolColumns = `usuarios_roles.id, usuarios_roles.usuario_id, usuarios_roles.rol_id, usuarios_roles.descripcion,
	usuarios_roles.estatus, usuarios_roles.creado, usuarios_roles.modificado,
	usuarios.email AS usuario_email, roles.nombre AS rol_nombre`

const usuarioRolFrom = ` FROM usuarios_roles JOIN usuarios ON usuarios.id = usuarios_roles.usuario_id JOIN roles ON roles.id = usuarios_roles.rol_id`

type UsuarioRolRepository struct {
	conn
}

func NewUsuarioRolRepository(db *sqlx.DB) *UsuarioRolRepository {
	return &UsuarioRolRepository{conn{db: db}}
}

func (r *UsuarioRolRepository) Get(ctx context.Context, id int64) (*models.UsuarioRol, error) {
	var m models.UsuarioRol
	if err := r.get(ctx, &m, "SELECT "+usuarioRolColumns+usuarioRolFrom+" WHERE usuarios_roles.id = $1", id); err != nil {
		return nil, wrap("get usuario_rol", err)
	}
	return &m, nil
}

func (r *UsuarioRolRepository) List(ctx context.Context, f dto.UsuarioRolFilter) ([]models.UsuarioRol, int, error) {
	var w where
	w.estatus("usuarios_roles.estatus", f.Estatus)
	w.eqID("usuarios_roles.usuario_id", f.UsuarioID)
	w.eqID("usuarios_roles.rol_id", f.RolID)

	var items []models.UsuarioRol
	if err := r.selectAll(ctx, &items, "SELECT "+usuarioRolColumns+usuarioRolFrom+w.sql()+" ORDER BY usuarios_roles.id DESC"+limitOffset(f.Page), w.args...); err != nil {
		return nil, 0, wrap("list usuarios_roles", err)
	}
	var total int
	if err := r.get(ctx, &total, "SELECT COUNT(*)"+usuarioRolFrom+w.sql(), w.args...); err != nil {
		return nil, 0, wrap("count usuarios_roles", err)
	}
	return items, total, nil
}

func (r *UsuarioRolRepository) All(ctx context.Context) ([]models.UsuarioRol, error) {
	var items []models.UsuarioRol
	if err := r.selectAll(ctx, &items, "SELECT "+usuarioRolColumns+usuarioRolFrom+" ORDER BY usuarios_roles.id"); err != nil {
		return nil, wrap("all usuarios_roles", err)
	}
	return items, nil
}

// ExistsActive reports whether the user already holds the role.
func (r *UsuarioRolRepository) ExistsActive(ctx context.Context, usuarioID, rolID int64) (bool, error) {
	var exists bool
	const query = `SELECT EXISTS (SELECT 1 FROM usuarios_roles WHERE usuario_id = $1 AND rol_id = $2 AND estatus = 'A')`
	if err := r.get(ctx, &exists, query, usuarioID, rolID); err != nil {
		return false, wrap("exists usuario_rol", err)
	}
	return exists, nil
}

func (r *UsuarioRolRepository) Create(ctx context.Context, m *models.UsuarioRol) error {
	m.Touch(time.Now())
	const query = `INSERT INTO usuarios_roles (usuario_id, rol_id, descripcion, estatus, creado, modificado)
		VALUES (:usuario_id, :rol_id, :descripcion, :estatus, :creado, :modificado) RETURNING id`
	id, err := r.namedInsert(ctx, query, m)
	if err != nil {
		return wrap("create usuario_rol", err)
	}
	m.ID = id
	return nil
}

func (r *UsuarioRolRepository) SetEstatus(ctx context.Context, id int64, e models.Estatus) error {
	return setEstatus(ctx, r.conn, "usuarios_roles", id, e)
}
