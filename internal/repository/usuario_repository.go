package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/pjecz/hercules/internal/dto"
	"github.com/pjecz/hercules/internal/models"
)

const usuarioColumns = `usuarios.id, usuarios.autoridad_id, usuarios.email, COALESCE(usuarios.curp, '') AS curp, usuarios.nombres,
	usuarios.apellido_paterno, usuarios.apellido_materno, usuarios.puesto, usuarios.contrasena, usuarios.api_key,
	usuarios.api_key_prefijo, usuarios.api_key_expiracion, usuarios.estatus, usuarios.creado, usuarios.modificado,
	autoridades.clave AS autoridad_clave`

const usuarioFrom = ` FROM usuarios JOIN autoridades ON autoridades.id = usuarios.autoridad_id`

// UsuarioRepository provides database access for user management.
type UsuarioRepository struct {
	conn
}

func NewUsuarioRepository(db *sqlx.DB) *UsuarioRepository {
	return &UsuarioRepository{conn{db: db}}
}

// Get returns a user by id regardless of estatus.
func (r *UsuarioRepository) Get(ctx context.Context, id int64) (*models.Usuario, error) {
	var u models.Usuario
	if err := r.get(ctx, &u, "SELECT "+usuarioColumns+usuarioFrom+" WHERE usuarios.id = $1", id); err != nil {
		return nil, wrap("get usuario", err)
	}
	return &u, nil
}

// FindByEmail returns an active user by email address.
func (r *UsuarioRepository) FindByEmail(ctx context.Context, email string) (*models.Usuario, error) {
	var u models.Usuario
	if err := r.get(ctx, &u, "SELECT "+usuarioColumns+usuarioFrom+" WHERE usuarios.email = $1 AND usuarios.estatus = 'A' LIMIT 1", email); err != nil {
		return nil, wrap("find usuario by email", err)
	}
	return &u, nil
}

// FindByAPIKeyPrefix returns active users whose key starts with prefix.
func (r *UsuarioRepository) FindByAPIKeyPrefix(ctx context.Context, prefix string) ([]models.Usuario, error) {
	var out []models.Usuario
	query := "SELECT " + usuarioColumns + usuarioFrom + " WHERE usuarios.api_key_prefijo = $1 AND usuarios.estatus = 'A' AND usuarios.api_key <> ''"
	if err := r.selectAll(ctx, &out, query, prefix); err != nil {
		return nil, wrap("find usuario by api key", err)
	}
	return out, nil
}

// List returns users matching the filter with the filtered count.
func (r *UsuarioRepository) List(ctx context.Context, f dto.UsuarioFilter) ([]models.Usuario, int, error) {
	var w where
	w.estatus("usuarios.estatus", f.Estatus)
	w.eqID("usuarios.autoridad_id", f.AutoridadID)
	w.contains("autoridades.clave", f.AutoridadClave)
	w.contains("usuarios.email", f.Email)
	w.contains("usuarios.nombres", f.Nombres)

	var items []models.Usuario
	query := "SELECT " + usuarioColumns + usuarioFrom + w.sql() + " ORDER BY usuarios.id DESC" + limitOffset(f.Page)
	if err := r.selectAll(ctx, &items, query, w.args...); err != nil {
		return nil, 0, wrap("list usuarios", err)
	}
	var total int
	if err := r.get(ctx, &total, "SELECT COUNT(*)"+usuarioFrom+w.sql(), w.args...); err != nil {
		return nil, 0, wrap("count usuarios", err)
	}
	return items, total, nil
}

// Create inserts a new user.
func (r *UsuarioRepository) Create(ctx context.Context, u *models.Usuario) error {
	u.Touch(time.Now())
	const query = `INSERT INTO usuarios (autoridad_id, email, curp, nombres, apellido_paterno, apellido_materno, puesto, contrasena, estatus, creado, modificado)
		VALUES (:autoridad_id, :email, NULLIF(:curp, ''), :nombres, :apellido_paterno, :apellido_materno, :puesto, :contrasena, :estatus, :creado, :modificado) RETURNING id`
	id, err := r.namedInsert(ctx, query, u)
	if err != nil {
		return wrap("create usuario", err)
	}
	u.ID = id
	return nil
}

// Update updates mutable fields of a user.
func (r *UsuarioRepository) Update(ctx context.Context, u *models.Usuario) error {
	u.Touch(time.Now())
	const query = `UPDATE usuarios SET autoridad_id = :autoridad_id, email = :email, curp = NULLIF(:curp, ''), nombres = :nombres,
		apellido_paterno = :apellido_paterno, apellido_materno = :apellido_materno, puesto = :puesto, modificado = :modificado WHERE id = :id`
	return wrap("update usuario", r.namedExec(ctx, query, u))
}

// UpdatePassword updates the stored password hash.
func (r *UsuarioRepository) UpdatePassword(ctx context.Context, id int64, hash string) error {
	const query = `UPDATE usuarios SET contrasena = $2, modificado = $3 WHERE id = $1`
	res, err := r.ext(ctx).ExecContext(ctx, query, id, hash, time.Now().UTC())
	if err != nil {
		return wrap("update password", err)
	}
	return expectOne(res)
}

// SetAPIKey stores the hashed key, its lookup prefix and expiry.
func (r *UsuarioRepository) SetAPIKey(ctx context.Context, id int64, prefix, hash string, expiracion time.Time) error {
	const query = `UPDATE usuarios SET api_key = $2, api_key_prefijo = $3, api_key_expiracion = $4, modificado = $5 WHERE id = $1`
	res, err := r.ext(ctx).ExecContext(ctx, query, id, hash, prefix, expiracion.UTC(), time.Now().UTC())
	if err != nil {
		return wrap("set api key", err)
	}
	return expectOne(res)
}

func (r *UsuarioRepository) SetEstatus(ctx context.Context, id int64, e models.Estatus) error {
	return setEstatus(ctx, r.conn, "usuarios", id, e)
}
