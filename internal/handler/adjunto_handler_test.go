package handler

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pjecz/hercules/internal/access"
	"github.com/pjecz/hercules/internal/service"
	appErrors "github.com/pjecz/hercules/pkg/errors"
	"github.com/pjecz/hercules/pkg/response"
)

// The upload never reaches the flow in these cases, so it carries no stores.
func newAdjuntoHandler() *AdjuntoHandler {
	flow := service.NewAttachmentFlow(service.SoportesAdjuntosFamily, nil, nil, nil, nil, nil, service.AttachmentFlowConfig{}, nil)
	return NewAdjuntoHandler(flow, access.ModuleSoportesTickets, "soporte_ticket_id")
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) response.Envelope {
	t.Helper()
	var env response.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.NotNil(t, env.Error)
	return env
}

func TestAdjuntoUploadRejectsMalformedForm(t *testing.T) {
	r := mount(newAdjuntoHandler(), asUser(access.LevelCreate, access.ModuleSoportesAdjuntos))

	req := httptest.NewRequest(http.MethodPost, "/soportes_adjuntos/nuevo/3", strings.NewReader("sin partes"))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=limite")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	env := decodeEnvelope(t, rec)
	assert.Equal(t, appErrors.ErrValidation.Code, env.Error.Code)
	assert.Equal(t, "formulario no valido", env.Error.Message)
}

func TestAdjuntoUploadRequiresFile(t *testing.T) {
	r := mount(newAdjuntoHandler(), asUser(access.LevelCreate, access.ModuleSoportesAdjuntos))

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	require.NoError(t, w.WriteField("descripcion", "Oficio"))
	require.NoError(t, w.Close())
	req := httptest.NewRequest(http.MethodPost, "/soportes_adjuntos/nuevo/3", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	env := decodeEnvelope(t, rec)
	assert.Equal(t, appErrors.ErrEmpty.Code, env.Error.Code)
	assert.Equal(t, "falta el archivo", env.Error.Message)
}
