package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/pjecz/hercules/internal/dto"
	"github.com/pjecz/hercules/internal/models"
)

const soporteTicketColumns = `soportes_tickets.id, soportes_tickets.usuario_id, soportes_tickets.descripcion, soportes_tickets.clasificacion,
	soportes_tickets.estado, soportes_tickets.soluciones, soportes_tickets.estatus, soportes_tickets.creado, soportes_tickets.modificado,
	usuarios.email AS usuario_email`

const soporteTicketFrom = ` FROM soportes_tickets JOIN usuarios ON usuarios.id = soportes_tickets.usuario_id`

type SoporteTicketRepository struct {
	conn
}

func NewSoporteTicketRepository(db *sqlx.DB) *SoporteTicketRepository {
	return &SoporteTicketRepository{conn{db: db}}
}

func (r *SoporteTicketRepository) Get(ctx context.Context, id int64) (*models.SoporteTicket, error) {
	var t models.SoporteTicket
	if err := r.get(ctx, &t, "SELECT "+soporteTicketColumns+soporteTicketFrom+" WHERE soportes_tickets.id = $1", id); err != nil {
		return nil, wrap("get soporte_ticket", err)
	}
	return &t, nil
}

func (r *SoporteTicketRepository) List(ctx context.Context, f dto.SoporteTicketFilter) ([]models.SoporteTicket, int, error) {
	var w where
	w.estatus("soportes_tickets.estatus", f.Estatus)
	w.eqID("soportes_tickets.usuario_id", f.UsuarioID)
	w.eqText("soportes_tickets.estado", f.Estado)
	w.contains("soportes_tickets.descripcion", f.Descripcion)

	var items []models.SoporteTicket
	if err := r.selectAll(ctx, &items, "SELECT "+soporteTicketColumns+soporteTicketFrom+w.sql()+" ORDER BY soportes_tickets.id DESC"+limitOffset(f.Page), w.args...); err != nil {
		return nil, 0, wrap("list soportes_tickets", err)
	}
	var total int
	if err := r.get(ctx, &total, "SELECT COUNT(*)"+soporteTicketFrom+w.sql(), w.args...); err != nil {
		return nil, 0, wrap("count soportes_tickets", err)
	}
	return items, total, nil
}

func (r *SoporteTicketRepository) Create(ctx context.Context, t *models.SoporteTicket) error {
	t.Touch(time.Now())
	if t.Estado == "" {
		t.Estado = models.SoporteAbierto
	}
	const query = `INSERT INTO soportes_tickets (usuario_id, descripcion, clasificacion, estado, soluciones, estatus, creado, modificado)
		VALUES (:usuario_id, :descripcion, :clasificacion, :estado, :soluciones, :estatus, :creado, :modificado) RETURNING id`
	id, err := r.namedInsert(ctx, query, t)
	if err != nil {
		return wrap("create soporte_ticket", err)
	}
	t.ID = id
	return nil
}

func (r *SoporteTicketRepository) Update(ctx context.Context, t *models.SoporteTicket) error {
	t.Touch(time.Now())
	const query = `UPDATE soportes_tickets SET descripcion = :descripcion, clasificacion = :clasificacion, estado = :estado,
		soluciones = :soluciones, modificado = :modificado WHERE id = :id`
	return wrap("update soporte_ticket", r.namedExec(ctx, query, t))
}

func (r *SoporteTicketRepository) SetEstatus(ctx context.Context, id int64, e models.Estatus) error {
	return setEstatus(ctx, r.conn, "soportes_tickets", id, e)
}
