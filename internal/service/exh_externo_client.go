package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/pjecz/hercules/internal/models"
)

const (
	defaultProbeTimeout = 30 * time.Second
	maxPeerBodyBytes    = 4 << 20
	apiKeyHeader        = "X-Api-Key"
)

// PeerError is a failed call to a peer jurisdiction.
type PeerError struct {
	Clave  string
	Status int
	Reason string
}

func (e *PeerError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("Error HTTP %d para %s", e.Status, e.Clave)
	}
	return fmt.Sprintf("%s para %s", e.Reason, e.Clave)
}

type peerEnvelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Errors  []string        `json:"errors"`
	Data    json.RawMessage `json:"data"`
}

// PeerParte is a party as sent to a peer.
type PeerParte struct {
	Nombre          string `json:"nombre"`
	ApellidoPaterno string `json:"apellidoPaterno"`
	ApellidoMaterno string `json:"apellidoMaterno"`
	Genero          string `json:"genero"`
	EsPersonaMoral  bool   `json:"esPersonaMoral"`
	TipoParte       int    `json:"tipoParte"`
	TipoParteNombre string `json:"tipoParteNombre"`
}

// PeerArchivo announces a file that will follow the exhorto.
type PeerArchivo struct {
	NombreArchivo string `json:"nombreArchivo"`
	HashSha1      string `json:"hashSha1"`
	HashSha256    string `json:"hashSha256"`
	TipoDocumento string `json:"tipoDocumento"`
}

// PeerExhorto is the body posted to endpoint_recibir_exhorto.
type PeerExhorto struct {
	ExhortoOrigenID         string        `json:"exhortoOrigenId"`
	MunicipioDestinoID      int           `json:"municipioDestinoId"`
	MateriaClave            string        `json:"materiaClave"`
	EstadoOrigenID          string        `json:"estadoOrigenId"`
	JuzgadoOrigenID         string        `json:"juzgadoOrigenId"`
	JuzgadoOrigenNombre     string        `json:"juzgadoOrigenNombre"`
	NumeroExpedienteOrigen  string        `json:"numeroExpedienteOrigen"`
	NumeroOficioOrigen      string        `json:"numeroOficioOrigen"`
	TipoJuicioAsuntoDelitos string        `json:"tipoJuicioAsuntoDelitos"`
	JuezExhortante          string        `json:"juezExhortante"`
	Partes                  []PeerParte   `json:"partes"`
	Fojas                   int           `json:"fojas"`
	DiasResponder           int           `json:"diasResponder"`
	TipoDiligenciacion      string        `json:"tipoDiligenciacionNombre"`
	FechaOrigen             string        `json:"fechaOrigen"`
	Observaciones           string        `json:"observaciones"`
	Archivos                []PeerArchivo `json:"archivos"`
}

// PeerAcuse is the receipt a peer returns for an exhorto or one of its files.
type PeerAcuse struct {
	ExhortoOrigenID    string `json:"exhortoOrigenId"`
	FolioSeguimiento   string `json:"folioSeguimiento"`
	FechaHoraRecepcion string `json:"fechaHoraRecepcion"`
}

type peerArchivoAcuse struct {
	Archivo struct {
		NombreArchivo string `json:"nombreArchivo"`
		Tamano        int64  `json:"tamaño"`
	} `json:"archivo"`
	Acuse *PeerAcuse `json:"acuse"`
}

// ExhExternoClient talks JSON over HTTPS with peer jurisdictions.
type ExhExternoClient struct {
	client  *http.Client
	metrics *MetricsService
	logger  *zap.Logger
}

// NewExhExternoClient bounds every call by timeout.
func NewExhExternoClient(timeout time.Duration, metrics *MetricsService, logger *zap.Logger) *ExhExternoClient {
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExhExternoClient{
		client:  &http.Client{Timeout: timeout},
		metrics: metrics,
		logger:  logger,
	}
}

// WithHTTPClient swaps the transport, mostly for tests.
func (c *ExhExternoClient) WithHTTPClient(client *http.Client) *ExhExternoClient {
	if client != nil {
		c.client = client
	}
	return c
}

// ConsultarMaterias fetches the raw materias catalog of a peer.
func (c *ExhExternoClient) ConsultarMaterias(ctx context.Context, peer models.ExhExterno) (models.Materias, error) {
	var out models.Materias
	if err := c.call(ctx, peer, "consultar_materias", http.MethodGet, peer.EndpointConsultarMaterias, "", nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		return nil, &PeerError{Clave: peer.Clave, Reason: "Respuesta sin materias"}
	}
	return out, nil
}

// RecibirExhorto posts an exhorto and returns the peer's receipt.
func (c *ExhExternoClient) RecibirExhorto(ctx context.Context, peer models.ExhExterno, exhorto PeerExhorto) (*PeerAcuse, error) {
	body, err := json.Marshal(exhorto)
	if err != nil {
		return nil, fmt.Errorf("marshal exhorto: %w", err)
	}
	var acuse PeerAcuse
	if err := c.call(ctx, peer, "recibir_exhorto", http.MethodPost, peer.EndpointRecibirExhorto, "application/json", bytes.NewReader(body), &acuse); err != nil {
		return nil, err
	}
	return &acuse, nil
}

// RecibirExhortoArchivo uploads one announced file as multipart form data.
func (c *ExhExternoClient) RecibirExhortoArchivo(ctx context.Context, peer models.ExhExterno, exhortoOrigenID, filename string, data []byte) (*PeerAcuse, error) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	if err := form.WriteField("exhortoOrigenId", exhortoOrigenID); err != nil {
		return nil, fmt.Errorf("write multipart field: %w", err)
	}
	part, err := form.CreateFormFile("archivo", filename)
	if err != nil {
		return nil, fmt.Errorf("create multipart file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("write multipart file: %w", err)
	}
	if err := form.Close(); err != nil {
		return nil, fmt.Errorf("close multipart body: %w", err)
	}

	var out peerArchivoAcuse
	if err := c.call(ctx, peer, "recibir_exhorto_archivo", http.MethodPost, peer.EndpointRecibirExhortoArchivo, form.FormDataContentType(), &buf, &out); err != nil {
		return nil, err
	}
	if out.Acuse == nil {
		out.Acuse = &PeerAcuse{ExhortoOrigenID: exhortoOrigenID}
	}
	return out.Acuse, nil
}

// call performs one request and decodes the data of a successful envelope into dest.
func (c *ExhExternoClient) call(ctx context.Context, peer models.ExhExterno, operation, method, endpoint, contentType string, body io.Reader, dest interface{}) error {
	if endpoint == "" {
		return &PeerError{Clave: peer.Clave, Reason: "Sin endpoint " + operation}
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return &PeerError{Clave: peer.Clave, Reason: "URL no valida"}
	}
	req.Header.Set(apiKeyHeader, peer.APIKey)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	duration := time.Since(start)

	status := http.StatusServiceUnavailable
	defer func() {
		if c.metrics != nil {
			c.metrics.ObservePeerRequest(operation, status, duration)
		}
	}()

	if err != nil {
		c.logger.Warn("peer request failed", zap.String("clave", peer.Clave), zap.String("operation", operation), zap.Error(err))
		return &PeerError{Clave: peer.Clave, Reason: "Error de comunicacion"}
	}
	defer resp.Body.Close()
	status = resp.StatusCode

	if resp.StatusCode != http.StatusOK {
		return &PeerError{Clave: peer.Clave, Status: resp.StatusCode}
	}

	var env peerEnvelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxPeerBodyBytes)).Decode(&env); err != nil {
		return &PeerError{Clave: peer.Clave, Reason: "Respuesta no es JSON"}
	}
	if !env.Success {
		reason := "Respuesta sin exito"
		if env.Message != "" {
			reason = reason + ": " + env.Message
		}
		return &PeerError{Clave: peer.Clave, Reason: reason}
	}
	if dest == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, dest); err != nil {
		return &PeerError{Clave: peer.Clave, Reason: "Datos con formato inesperado"}
	}
	return nil
}
