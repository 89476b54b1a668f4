package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/pjecz/hercules/internal/dto"
	"github.com/pjecz/hercules/internal/models"
)

const bitacoraColumns = `bitacoras.id, bitacoras.modulo_id, bitacoras.usuario_id, bitacoras.descripcion, bitacoras.url, bitacoras.creado,
	modulos.nombre AS modulo_nombre, usuarios.email AS usuario_email`

const bitacoraFrom = ` FROM bitacoras JOIN modulos ON modulos.id = bitacoras.modulo_id JOIN usuarios ON usuarios.id = bitacoras.usuario_id`

// BitacoraRepository is append-only: there is no update or delete.
type BitacoraRepository struct {
	conn
}

func NewBitacoraRepository(db *sqlx.DB) *BitacoraRepository {
	return &BitacoraRepository{conn{db: db}}
}

// Insert appends a row inside the transaction bound to ctx, if any.
func (r *BitacoraRepository) Insert(ctx context.Context, b *models.Bitacora) error {
	if b.Creado.IsZero() {
		b.Creado = time.Now().UTC()
	}
	const query = `INSERT INTO bitacoras (modulo_id, usuario_id, descripcion, url, creado, modificado)
		VALUES (:modulo_id, :usuario_id, :descripcion, :url, :creado, :creado) RETURNING id`
	id, err := r.namedInsert(ctx, query, b)
	if err != nil {
		return wrap("insert bitacora", err)
	}
	b.ID = id
	return nil
}

func (r *BitacoraRepository) Get(ctx context.Context, id int64) (*models.Bitacora, error) {
	var b models.Bitacora
	if err := r.get(ctx, &b, "SELECT "+bitacoraColumns+bitacoraFrom+" WHERE bitacoras.id = $1", id); err != nil {
		return nil, wrap("get bitacora", err)
	}
	return &b, nil
}

// List returns audit rows newest first.
func (r *BitacoraRepository) List(ctx context.Context, f dto.BitacoraFilter) ([]models.Bitacora, int, error) {
	var w where
	w.eqID("bitacoras.modulo_id", f.ModuloID)
	w.eqID("bitacoras.usuario_id", f.UsuarioID)
	w.since("bitacoras.creado", f.Desde)
	w.until("bitacoras.creado", f.Hasta)

	var items []models.Bitacora
	if err := r.selectAll(ctx, &items, "SELECT "+bitacoraColumns+bitacoraFrom+w.sql()+" ORDER BY bitacoras.creado DESC, bitacoras.id DESC"+limitOffset(f.Page), w.args...); err != nil {
		return nil, 0, wrap("list bitacoras", err)
	}
	var total int
	if err := r.get(ctx, &total, "SELECT COUNT(*)"+bitacoraFrom+w.sql(), w.args...); err != nil {
		return nil, 0, wrap("count bitacoras", err)
	}
	return items, total, nil
}
