package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/pjecz/hercules/internal/access"
	"github.com/pjecz/hercules/internal/models"
	appErrors "github.com/pjecz/hercules/pkg/errors"
)

type authStub struct {
	tokens map[string]int64
	keys   map[string]int64
	users  map[int64]*models.CurrentUser
}

func (a authStub) ValidateToken(token string) (*models.JWTClaims, error) {
	id, ok := a.tokens[token]
	if !ok {
		return nil, appErrors.ErrUnauthorized
	}
	return &models.JWTClaims{UsuarioID: id}, nil
}

func (a authStub) AuthenticateAPIKey(ctx context.Context, key string) (*models.Usuario, error) {
	id, ok := a.keys[key]
	if !ok {
		return nil, appErrors.ErrUnauthorized
	}
	return &models.Usuario{ID: id}, nil
}

func (a authStub) CurrentUser(ctx context.Context, usuarioID int64) (*models.CurrentUser, error) {
	u, ok := a.users[usuarioID]
	if !ok {
		return nil, appErrors.ErrInactiveAccount
	}
	return u, nil
}

func newAuthStub() authStub {
	viewer := access.NewCapabilitySet([]string{"CONSULTA"}, []access.Grant{{Module: access.ModuleDistritos, Level: access.LevelView}})
	admin := access.NewCapabilitySet([]string{"ADMINISTRADOR"}, []access.Grant{{Module: access.ModuleDistritos, Level: access.LevelAdmin}})
	return authStub{
		tokens: map[string]int64{"tok-viewer": 1, "tok-gone": 9},
		keys:   map[string]int64{"abcd1234secret": 2},
		users: map[int64]*models.CurrentUser{
			1: {ID: 1, Capabilities: viewer},
			2: {ID: 2, Capabilities: admin},
		},
	}
}

func protectedRouter(auth Authenticator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	g := r.Group("", LoginRequired(auth))
	g.GET("/distritos", PermissionRequired(access.ModuleDistritos, access.LevelView), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"usuario_id": CurrentUser(c).ID})
	})
	g.GET("/distritos/inactivos", AdminRequired(access.ModuleDistritos), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestLoginRequired(t *testing.T) {
	r := protectedRouter(newAuthStub())

	cases := []struct {
		name   string
		path   string
		setup  func(req *http.Request)
		status int
	}{
		{name: "anonymous", path: "/distritos", setup: func(*http.Request) {}, status: http.StatusForbidden},
		{name: "bearer", path: "/distritos", setup: func(req *http.Request) { req.Header.Set("Authorization", "Bearer tok-viewer") }, status: http.StatusOK},
		{name: "cookie", path: "/distritos", setup: func(req *http.Request) { req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "tok-viewer"}) }, status: http.StatusOK},
		{name: "api key", path: "/distritos", setup: func(req *http.Request) { req.Header.Set(APIKeyHeader, "abcd1234secret") }, status: http.StatusOK},
		{name: "bad token", path: "/distritos", setup: func(req *http.Request) { req.Header.Set("Authorization", "Bearer nope") }, status: http.StatusForbidden},
		{name: "bad api key", path: "/distritos", setup: func(req *http.Request) { req.Header.Set(APIKeyHeader, "abcd1234other") }, status: http.StatusForbidden},
		{name: "inactive user", path: "/distritos", setup: func(req *http.Request) { req.Header.Set("Authorization", "Bearer tok-gone") }, status: http.StatusForbidden},
		{name: "viewer on admin route", path: "/distritos/inactivos", setup: func(req *http.Request) { req.Header.Set("Authorization", "Bearer tok-viewer") }, status: http.StatusForbidden},
		{name: "admin on admin route", path: "/distritos/inactivos", setup: func(req *http.Request) { req.Header.Set(APIKeyHeader, "abcd1234secret") }, status: http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			tc.setup(req)
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestForbiddenBodyIsUniform(t *testing.T) {
	r := protectedRouter(newAuthStub())

	anonymous := httptest.NewRecorder()
	r.ServeHTTP(anonymous, httptest.NewRequest(http.MethodGet, "/distritos/inactivos", nil))

	denied := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/distritos/inactivos", nil)
	req.Header.Set("Authorization", "Bearer tok-viewer")
	r.ServeHTTP(denied, req)

	assert.Equal(t, http.StatusForbidden, anonymous.Code)
	assert.JSONEq(t, anonymous.Body.String(), denied.Body.String())
}
