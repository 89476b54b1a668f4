package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/pjecz/hercules/internal/dto"
	"github.com/pjecz/hercules/internal/models"
)

const permisoColumns = `permisos.id, permisos.rol_id, permisos.modulo_id, permisos.nombre, permisos.nivel,
	permisos.estatus, permisos.creado, permisos.modificado, roles.nombre AS rol_nombre, modulos.nombre AS modulo_nombre`

const permisoFrom = ` FROM permisos JOIN roles ON roles.id = permisos.rol_id JOIN modulos ON modulos.id = permisos.modulo_id`

type PermisoRepository struct {
	conn
}

func NewPermisoRepository(db *sqlx.DB) *PermisoRepository {
	return &PermisoRepository{conn{db: db}}
}

func (r *PermisoRepository) Get(ctx context.Context, id int64) (*models.Permiso, error) {
	var p models.Permiso
	if err := r.get(ctx, &p, "SELECT "+permisoColumns+permisoFrom+" WHERE permisos.id = $1", id); err != nil {
		return nil, wrap("get permiso", err)
	}
	return &p, nil
}

func (r *PermisoRepository) List(ctx context.Context, f dto.PermisoFilter) ([]models.Permiso, int, error) {
	var w where
	w.estatus("permisos.estatus", f.Estatus)
	w.eqID("permisos.rol_id", f.RolID)
	w.eqID("permisos.modulo_id", f.ModuloID)
	w.contains("permisos.nombre", f.Nombre)

	var items []models.Permiso
	if err := r.selectAll(ctx, &items, "SELECT "+permisoColumns+permisoFrom+w.sql()+" ORDER BY permisos.id DESC"+limitOffset(f.Page), w.args...); err != nil {
		return nil, 0, wrap("list permisos", err)
	}
	var total int
	if err := r.get(ctx, &total, "SELECT COUNT(*)"+permisoFrom+w.sql(), w.args...); err != nil {
		return nil, 0, wrap("count permisos", err)
	}
	return items, total, nil
}

func (r *PermisoRepository) All(ctx context.Context) ([]models.Permiso, error) {
	var items []models.Permiso
	if err := r.selectAll(ctx, &items, "SELECT "+permisoColumns+permisoFrom+" ORDER BY permisos.id"); err != nil {
		return nil, wrap("all permisos", err)
	}
	return items, nil
}

// EffectiveForUsuario returns the grants of a user: active permisos of active
// roles on active modules, reached through active usuarios_roles.
func (r *PermisoRepository) EffectiveForUsuario(ctx context.Context, usuarioID int64) ([]models.PermisoEfectivo, error) {
	const query = `SELECT roles.nombre AS rol_nombre, modulos.nombre AS modulo_nombre, permisos.nivel
		FROM usuarios_roles
		JOIN roles ON roles.id = usuarios_roles.rol_id AND roles.estatus = 'A'
		LEFT JOIN permisos ON permisos.rol_id = roles.id AND permisos.estatus = 'A'
		LEFT JOIN modulos ON modulos.id = permisos.modulo_id AND modulos.estatus = 'A'
		WHERE usuarios_roles.usuario_id = $1 AND usuarios_roles.estatus = 'A'
		ORDER BY roles.nombre`
	var rows []struct {
		RolNombre    string  `db:"rol_nombre"`
		ModuloNombre *string `db:"modulo_nombre"`
		Nivel        *int    `db:"nivel"`
	}
	if err := r.selectAll(ctx, &rows, query, usuarioID); err != nil {
		return nil, wrap("effective permisos", err)
	}
	out := make([]models.PermisoEfectivo, 0, len(rows))
	for _, row := range rows {
		p := models.PermisoEfectivo{RolNombre: row.RolNombre}
		if row.ModuloNombre != nil && row.Nivel != nil {
			p.ModuloNombre = *row.ModuloNombre
			p.Nivel = *row.Nivel
		}
		out = append(out, p)
	}
	return out, nil
}

// UsuarioIDsForRol lists every user ever linked to the role, for cache invalidation.
func (r *PermisoRepository) UsuarioIDsForRol(ctx context.Context, rolID int64) ([]int64, error) {
	var ids []int64
	if err := r.selectAll(ctx, &ids, `SELECT DISTINCT usuario_id FROM usuarios_roles WHERE rol_id = $1`, rolID); err != nil {
		return nil, wrap("usuarios for rol", err)
	}
	return ids, nil
}

func (r *PermisoRepository) Create(ctx context.Context, p *models.Permiso) error {
	p.Touch(time.Now())
	const query = `INSERT INTO permisos (rol_id, modulo_id, nombre, nivel, estatus, creado, modificado)
		VALUES (:rol_id, :modulo_id, :nombre, :nivel, :estatus, :creado, :modificado) RETURNING id`
	id, err := r.namedInsert(ctx, query, p)
	if err != nil {
		return wrap("create permiso", err)
	}
	p.ID = id
	return nil
}

func (r *PermisoRepository) Update(ctx context.Context, p *models.Permiso) error {
	p.Touch(time.Now())
	const query = `UPDATE permisos SET rol_id = :rol_id, modulo_id = :modulo_id, nombre = :nombre, nivel = :nivel, modificado = :modificado WHERE id = :id`
	return wrap("update permiso", r.namedExec(ctx, query, p))
}

func (r *PermisoRepository) SetEstatus(ctx context.Context, id int64, e models.Estatus) error {
	return setEstatus(ctx, r.conn, "permisos", id, e)
}
