package repository

import (
	"fmt"
	"strings"
	"time"

	"github.com/pjecz/hercules/internal/dto"
	"github.com/pjecz/hercules/internal/models"
)

// where accumulates positional conditions the same way for the list and the count query.
type where struct {
	conds []string
	args  []interface{}
}

func (w *where) next() string { return fmt.Sprintf("$%d", len(w.args)+1) }

func (w *where) eq(column string, value interface{}) {
	w.conds = append(w.conds, column+" = "+w.next())
	w.args = append(w.args, value)
}

func (w *where) estatus(column string, e models.Estatus) {
	if !e.Valid() {
		e = models.EstatusActivo
	}
	w.eq(column, e)
}

func (w *where) eqID(column string, id int64) {
	if id > 0 {
		w.eq(column, id)
	}
}

func (w *where) eqText(column, value string) {
	if value != "" {
		w.eq(column, value)
	}
}

func (w *where) contains(column, fragment string) {
	if fragment == "" {
		return
	}
	w.conds = append(w.conds, column+" ILIKE "+w.next())
	w.args = append(w.args, "%"+fragment+"%")
}

func (w *where) since(column string, t *time.Time) {
	if t != nil {
		w.conds = append(w.conds, column+" >= "+w.next())
		w.args = append(w.args, *t)
	}
}

func (w *where) until(column string, t *time.Time) {
	if t != nil {
		w.conds = append(w.conds, column+" <= "+w.next())
		w.args = append(w.args, *t)
	}
}

func (w *where) sql() string {
	if len(w.conds) == 0 {
		return " WHERE 1=1"
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

func limitOffset(p dto.Page) string {
	limit := p.Limit
	if limit <= 0 || limit > 500 {
		limit = 500
	}
	offset := p.Offset
	if offset < 0 {
		offset = 0
	}
	return fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)
}
