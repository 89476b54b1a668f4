package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pjecz/hercules/internal/access"
	"github.com/pjecz/hercules/internal/datatable"
	"github.com/pjecz/hercules/internal/dto"
	"github.com/pjecz/hercules/internal/middleware"
	"github.com/pjecz/hercules/internal/models"
	appErrors "github.com/pjecz/hercules/pkg/errors"
)

type fila struct {
	ID     int64
	Nombre string
	models.UniversalMixin
}

type filaForm struct {
	Nombre string `form:"nombre" json:"nombre"`
}

type filaStore struct {
	rows    map[int64]*fila
	deletes int
	pages   []dto.Page
}

func newFilaStore() *filaStore {
	row := &fila{ID: 1, Nombre: "SALTILLO"}
	row.Estatus = models.EstatusActivo
	return &filaStore{rows: map[int64]*fila{1: row}}
}

func (s *filaStore) resource() *Resource[fila, filaForm] {
	return &Resource[fila, filaForm]{
		Module: access.ModuleDistritos,
		Label:  "distrito",
		List: func(c *gin.Context, estatus models.Estatus, page dto.Page) ([]fila, int, error) {
			s.pages = append(s.pages, page)
			var out []fila
			for _, r := range s.rows {
				if r.Estatus == estatus {
					out = append(out, *r)
				}
			}
			return out, len(out), nil
		},
		Row: func(r *fila) datatable.Row { return datatable.Row{"nombre": r.Nombre} },
		ID:  func(r *fila) int64 { return r.ID },
		Get: func(ctx context.Context, id int64) (*fila, error) {
			r, ok := s.rows[id]
			if !ok {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "distrito no encontrado")
			}
			return r, nil
		},
		Create: func(ctx context.Context, actor *models.CurrentUser, _ int64, form filaForm) (*fila, error) {
			if strings.TrimSpace(form.Nombre) == "" {
				return nil, appErrors.Clone(appErrors.ErrValidation, "el nombre es obligatorio")
			}
			r := &fila{ID: int64(len(s.rows) + 1), Nombre: form.Nombre}
			s.rows[r.ID] = r
			return r, nil
		},
		Delete: func(ctx context.Context, actor *models.CurrentUser, id int64) (*fila, bool, error) {
			s.deletes++
			r := s.rows[id]
			if r.Estatus == models.EstatusBorrado {
				return r, false, nil
			}
			r.Estatus = models.EstatusBorrado
			return r, true, nil
		},
	}
}

func asUser(level access.Level, modules ...access.Module) gin.HandlerFunc {
	grants := make([]access.Grant, 0, len(modules))
	for _, m := range modules {
		grants = append(grants, access.Grant{Module: m, Level: level})
	}
	user := &models.CurrentUser{ID: 7, Capabilities: access.NewCapabilitySet(nil, grants)}
	return func(c *gin.Context) {
		c.Set(middleware.ContextUserKey, user)
		c.Next()
	}
}

func mount(reg Registrar, user gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	g := r.Group("", user)
	reg.Register(g)
	return r
}

func serve(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

type redirectBody struct {
	Meta struct {
		Location string `json:"location"`
		Flash    struct {
			Category string `json:"category"`
			Message  string `json:"message"`
		} `json:"flash"`
	} `json:"meta"`
}

func decodeRedirect(t *testing.T, rec *httptest.ResponseRecorder) redirectBody {
	t.Helper()
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	var body redirectBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, body.Meta.Location, rec.Header().Get("Location"))
	return body
}

func TestResourceDatatable(t *testing.T) {
	store := newFilaStore()
	r := mount(store.resource(), asUser(access.LevelView, access.ModuleDistritos))

	rec := serve(r, http.MethodGet, "/distritos/datatable_json?draw=3&start=0&length=-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body datatable.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 3, body.Draw)
	assert.Equal(t, 1, body.RecordsTotal)
	assert.Equal(t, "SALTILLO", body.Data[0]["nombre"])
	assert.Equal(t, datatable.MaxLength, store.pages[0].Limit)

	rec = serve(r, http.MethodGet, "/distritos/datatable_json?start=-1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResourceCreate(t *testing.T) {
	store := newFilaStore()
	r := mount(store.resource(), asUser(access.LevelCreate, access.ModuleDistritos))

	body := decodeRedirect(t, serve(r, http.MethodPost, "/distritos/nuevo", `{"nombre":"TORREON"}`))
	assert.Equal(t, "/distritos/2", body.Meta.Location)
	assert.Equal(t, "success", body.Meta.Flash.Category)
	assert.Equal(t, "Nuevo distrito", body.Meta.Flash.Message)

	rec := serve(r, http.MethodPost, "/distritos/nuevo", `{"nombre":" "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "el nombre es obligatorio")
	assert.Contains(t, rec.Body.String(), `"nombre":" "`)
}

func TestResourceDeleteRequiresAdmin(t *testing.T) {
	store := newFilaStore()
	r := mount(store.resource(), asUser(access.LevelCreate, access.ModuleDistritos))

	rec := serve(r, http.MethodPost, "/distritos/eliminar/1", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Zero(t, store.deletes)

	rec = serve(r, http.MethodGet, "/distritos/inactivos", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestResourceDeleteTwice(t *testing.T) {
	store := newFilaStore()
	r := mount(store.resource(), asUser(access.LevelAdmin, access.ModuleDistritos))

	first := decodeRedirect(t, serve(r, http.MethodPost, "/distritos/eliminar/1", ""))
	assert.Equal(t, "Eliminado distrito", first.Meta.Flash.Message)

	second := decodeRedirect(t, serve(r, http.MethodGet, "/distritos/eliminar/1", ""))
	assert.Equal(t, "warning", second.Meta.Flash.Category)
	assert.Equal(t, "Sin cambios en distrito", second.Meta.Flash.Message)
	assert.Equal(t, "/distritos/1", second.Meta.Location)
}

func TestResourceUnknownRoutesAndIDs(t *testing.T) {
	store := newFilaStore()
	r := mount(store.resource(), asUser(access.LevelAdmin, access.ModuleDistritos))

	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodGet, "/distritos/abc", "").Code)
	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodGet, "/distritos/99", "").Code)
	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodGet, "/distritos/edicion/1", "").Code)
}

func TestChildResourceGateRedirectsToParent(t *testing.T) {
	res := &Resource[fila, filaForm]{
		Module:       access.ModuleExhExhortosPartes,
		Label:        "parte",
		ParentModule: access.ModuleExhExhortos,
		List: func(c *gin.Context, estatus models.Estatus, page dto.Page) ([]fila, int, error) {
			return nil, 0, nil
		},
		Row: func(r *fila) datatable.Row { return datatable.Row{} },
		ID:  func(r *fila) int64 { return r.ID },
		Get: func(ctx context.Context, id int64) (*fila, error) { return nil, appErrors.ErrNotFound },
		Create: func(ctx context.Context, actor *models.CurrentUser, parentID int64, form filaForm) (*fila, error) {
			return nil, appErrors.Clone(appErrors.ErrFinalized, "el exhorto ya no se puede modificar")
		},
	}
	r := mount(res, asUser(access.LevelCreate, access.ModuleExhExhortosPartes))

	rec := serve(r, http.MethodGet, "/exh_exhortos_partes/nuevo/5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"parent_url":"/exh_exhortos/5"`)

	body := decodeRedirect(t, serve(r, http.MethodPost, "/exh_exhortos_partes/nuevo/5", `{"nombre":"JUAN"}`))
	assert.Equal(t, "/exh_exhortos/5", body.Meta.Location)
	assert.Equal(t, "el exhorto ya no se puede modificar", body.Meta.Flash.Message)
}
