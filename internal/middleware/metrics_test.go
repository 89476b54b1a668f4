package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/pjecz/hercules/internal/service"
)

func TestMetricsLabelsOwningModule(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	r := gin.New()
	r.Use(Metrics(metrics))
	ok := func(c *gin.Context) { c.Status(http.StatusOK) }
	r.GET("/usuarios/:id", ok)
	r.GET("/usuarios_roles/:id", ok)
	r.GET("/healthz", ok)

	for _, path := range []string{"/usuarios/3", "/usuarios/4", "/usuarios_roles/3", "/healthz", "/nada"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	assert.Contains(t, body, `http_requests_total{method="GET",module="USUARIOS",path="/usuarios/:id",status="200"} 2`)
	assert.Contains(t, body, `http_requests_total{method="GET",module="USUARIOS ROLES",path="/usuarios_roles/:id",status="200"} 1`)
	assert.Contains(t, body, `http_requests_total{method="GET",module="ninguno",path="/healthz",status="200"} 1`)
	assert.Contains(t, body, `http_requests_total{method="GET",module="ninguno",path="unmatched",status="404"} 1`)
}
