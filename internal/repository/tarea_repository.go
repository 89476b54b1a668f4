package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/pjecz/hercules/internal/dto"
	"github.com/pjecz/hercules/internal/models"
)

const tareaColumns = `id, usuario_id, comando, parametros, mensaje, estado, progreso, resultado, archivo, url, estatus, creado, modificado`

// TareaRepository persists background tasks. Terminal states are never left.
type TareaRepository struct {
	conn
}

func NewTareaRepository(db *sqlx.DB) *TareaRepository {
	return &TareaRepository{conn{db: db}}
}

func (r *TareaRepository) Create(ctx context.Context, t *models.Tarea) error {
	t.Touch(time.Now())
	if t.Estado == "" {
		t.Estado = models.TareaQueued
	}
	const query = `INSERT INTO tareas (id, usuario_id, comando, parametros, mensaje, estado, progreso, resultado, archivo, url, estatus, creado, modificado)
		VALUES (:id, :usuario_id, :comando, :parametros, :mensaje, :estado, :progreso, :resultado, :archivo, :url, :estatus, :creado, :modificado)`
	return wrap("create tarea", r.namedExec(ctx, query, t))
}

func (r *TareaRepository) Get(ctx context.Context, id string) (*models.Tarea, error) {
	var t models.Tarea
	if err := r.get(ctx, &t, "SELECT "+tareaColumns+" FROM tareas WHERE id = $1", id); err != nil {
		return nil, wrap("get tarea", err)
	}
	return &t, nil
}

func (r *TareaRepository) List(ctx context.Context, f dto.TareaFilter) ([]models.Tarea, int, error) {
	var w where
	w.eq("estatus", models.EstatusActivo)
	w.eqID("usuario_id", f.UsuarioID)
	w.eqText("estado", string(f.Estado))
	w.eqText("comando", f.Comando)

	var items []models.Tarea
	if err := r.selectAll(ctx, &items, "SELECT "+tareaColumns+" FROM tareas"+w.sql()+" ORDER BY creado DESC"+limitOffset(f.Page), w.args...); err != nil {
		return nil, 0, wrap("list tareas", err)
	}
	var total int
	if err := r.get(ctx, &total, "SELECT COUNT(*) FROM tareas"+w.sql(), w.args...); err != nil {
		return nil, 0, wrap("count tareas", err)
	}
	return items, total, nil
}

// ListUnfinished returns tasks left QUEUED or RUNNING, oldest first.
func (r *TareaRepository) ListUnfinished(ctx context.Context) ([]models.Tarea, error) {
	var items []models.Tarea
	query := "SELECT " + tareaColumns + " FROM tareas WHERE estado IN ('QUEUED', 'RUNNING') ORDER BY creado"
	if err := r.selectAll(ctx, &items, query); err != nil {
		return nil, wrap("list unfinished tareas", err)
	}
	return items, nil
}

// MarkRunning moves a QUEUED task to RUNNING. It returns ErrStaleState when
// the task is in any other state.
func (r *TareaRepository) MarkRunning(ctx context.Context, id string) error {
	const query = `UPDATE tareas SET estado = 'RUNNING', modificado = $2 WHERE id = $1 AND estado = 'QUEUED'`
	return r.guarded(ctx, "mark tarea running", query, id, time.Now().UTC())
}

// UpdateProgress records progress of a RUNNING task.
func (r *TareaRepository) UpdateProgress(ctx context.Context, id string, progreso int, mensaje string) error {
	const query = `UPDATE tareas SET progreso = $2, mensaje = $3, modificado = $4 WHERE id = $1 AND estado = 'RUNNING'`
	return r.guarded(ctx, "update tarea progress", query, id, progreso, mensaje, time.Now().UTC())
}

// Finish moves a task to DONE or ERROR exactly once.
func (r *TareaRepository) Finish(ctx context.Context, t *models.Tarea) error {
	const query = `UPDATE tareas SET estado = $2, mensaje = $3, progreso = $4, resultado = $5, archivo = $6, url = $7, modificado = $8
		WHERE id = $1 AND estado NOT IN ('DONE', 'ERROR')`
	return r.guarded(ctx, "finish tarea", query, t.ID, t.Estado, t.Mensaje, t.Progreso, t.Resultado, t.Archivo, t.URL, time.Now().UTC())
}

func (r *TareaRepository) guarded(ctx context.Context, op, query string, args ...interface{}) error {
	res, err := r.ext(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return wrap(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrap(op, err)
	}
	if n == 0 {
		return ErrStaleState
	}
	return nil
}
