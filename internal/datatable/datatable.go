// Package datatable implements the server-side table protocol shared by every listing.
package datatable

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pjecz/hercules/internal/models"
	appErrors "github.com/pjecz/hercules/pkg/errors"
	"github.com/pjecz/hercules/pkg/safe"
)

const (
	DefaultLength = 10
	MaxLength     = 500
	dateLayout    = "2006-01-02"
)

// Request is the paging part of a table request.
type Request struct {
	Draw   int
	Start  int
	Length int
}

// Limit and Offset feed the SQL query.
func (r Request) Limit() int  { return r.Length }
func (r Request) Offset() int { return r.Start }

// Parse reads draw, start and length. Present but malformed values are a 400.
func Parse(c *gin.Context) (Request, error) {
	req := Request{Length: DefaultLength}
	var err error

	if req.Draw, err = intParam(c, "draw", 0); err != nil || req.Draw < 0 {
		return Request{}, malformed("draw")
	}
	if req.Start, err = intParam(c, "start", 0); err != nil || req.Start < 0 {
		return Request{}, malformed("start")
	}
	length, err := intParam(c, "length", DefaultLength)
	if err != nil || length < -1 {
		return Request{}, malformed("length")
	}
	switch {
	case length == -1 || length > MaxLength:
		req.Length = MaxLength
	case length == 0:
		req.Length = DefaultLength
	default:
		req.Length = length
	}
	return req, nil
}

func malformed(field string) error {
	return appErrors.Clone(appErrors.ErrValidation, "parametro "+field+" no valido")
}

func intParam(c *gin.Context, key string, fallback int) (int, error) {
	raw := Value(c, key)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

// Value returns a form field, falling back to the query string.
func Value(c *gin.Context, key string) string {
	if v, ok := c.GetPostForm(key); ok {
		return strings.TrimSpace(v)
	}
	return strings.TrimSpace(c.Query(key))
}

// Estatus returns the requested estatus, defaulting to active rows.
func Estatus(c *gin.Context) models.Estatus {
	e := models.Estatus(strings.ToUpper(Value(c, "estatus")))
	if !e.Valid() {
		return models.EstatusActivo
	}
	return e
}

// ParentID parses a foreign key filter such as distrito_id.
func ParentID(c *gin.Context, key string) (int64, bool) {
	id, err := strconv.ParseInt(Value(c, key), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// ClaveFragment canonicalizes a clave filter; "" means no filter.
func ClaveFragment(c *gin.Context, key string) string {
	return safe.ClaveFragment(Value(c, key))
}

// TextFragment canonicalizes a free-text filter; "" means no filter.
func TextFragment(c *gin.Context, key string) string {
	return safe.String(Value(c, key), safe.StringOptions{SaveEnie: true})
}

// DateRange reads fecha_desde and fecha_hasta as inclusive bounds, swapping them when inverted.
func DateRange(c *gin.Context) (desde, hasta *time.Time) {
	from, okFrom := parseDate(Value(c, "fecha_desde"))
	to, okTo := parseDate(Value(c, "fecha_hasta"))
	if okFrom && okTo && from.After(to) {
		from, to = to, from
	}
	if okFrom {
		desde = &from
	}
	if okTo {
		end := to.Add(24*time.Hour - time.Millisecond)
		hasta = &end
	}
	return desde, hasta
}

func parseDate(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(dateLayout, raw, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Row is one table row keyed by column identifier.
type Row map[string]interface{}

// Response is the envelope the table widget expects.
type Response struct {
	Draw            int   `json:"draw"`
	RecordsTotal    int   `json:"recordsTotal"`
	RecordsFiltered int   `json:"recordsFiltered"`
	Data            []Row `json:"data"`
}

// NewResponse echoes draw and reports total as both counters; the count runs on the filtered set.
func NewResponse(req Request, total int, rows []Row) Response {
	if rows == nil {
		rows = []Row{}
	}
	return Response{Draw: req.Draw, RecordsTotal: total, RecordsFiltered: total, Data: rows}
}

// Link shapes a cell the client renders as an anchor.
func Link(field string, value interface{}, url string) map[string]interface{} {
	return map[string]interface{}{field: value, "url": url}
}
