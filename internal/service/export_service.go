package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/pjecz/hercules/internal/dto"
	"github.com/pjecz/hercules/internal/models"
	"github.com/pjecz/hercules/pkg/config"
	appErrors "github.com/pjecz/hercules/pkg/errors"
	"github.com/pjecz/hercules/pkg/export"
)

const (
	exportPageSize    = 500
	defaultExportRows = 20000
)

type bitacoraLister interface {
	List(ctx context.Context, f dto.BitacoraFilter) ([]models.Bitacora, int, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

type queryObserver interface {
	ObserveDBQuery(label string, duration time.Duration)
}

// ExportConfig bounds one export.
type ExportConfig struct {
	MaxRows int
}

// ExportResult is the stored file of one export.
type ExportResult struct {
	Filename string
	URL      string
	Rows     int
}

var bitacoraColumns = []export.Column{
	{Key: "id", Title: "ID", Width: 18},
	{Key: "creado", Title: "Creado", Width: 36},
	{Key: "usuario", Title: "Usuario", Width: 55},
	{Key: "modulo", Title: "Modulo", Width: 45},
	{Key: "descripcion", Title: "Descripcion"},
	{Key: "url", Title: "URL", Width: 45},
}

// ExportService renders filtered bitácora rows and stores them in the tareas bucket.
type ExportService struct {
	bitacoras bitacoraLister
	buckets   bucketSource
	csv       csvRenderer
	pdf       pdfRenderer
	metrics   queryObserver
	logger    *zap.Logger
	cfg       ExportConfig
	now       func() time.Time
}

// NewExportService falls back to the default renderers when csv or pdf are nil.
func NewExportService(bitacoras bitacoraLister, buckets bucketSource, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxRows <= 0 {
		cfg.MaxRows = defaultExportRows
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		bitacoras: bitacoras,
		buckets:   buckets,
		csv:       csv,
		pdf:       pdf,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// WithMetrics times every page read from the bitácora.
func (s *ExportService) WithMetrics(m queryObserver) *ExportService {
	s.metrics = m
	return s
}

// BitacoraExportParams turns the launch form into task parameters.
func BitacoraExportParams(form dto.BitacoraExportForm) models.TareaParametros {
	params := models.TareaParametros{"formato": form.Formato}
	if form.ModuloID > 0 {
		params["modulo_id"] = strconv.FormatInt(form.ModuloID, 10)
	}
	if form.UsuarioID > 0 {
		params["usuario_id"] = strconv.FormatInt(form.UsuarioID, 10)
	}
	if form.FechaDesde != "" {
		params["fecha_desde"] = form.FechaDesde
	}
	if form.FechaHasta != "" {
		params["fecha_hasta"] = form.FechaHasta
	}
	return params
}

// CheckBitacoraExport rejects parameters the export would fail on, before a
// task is queued for them.
func CheckBitacoraExport(params models.TareaParametros) error {
	_, _, err := bitacoraFilterFromParams(params)
	return err
}

// bitacoraFilterFromParams rebuilds the listing filter. An inverted range is
// swapped and the upper day is inclusive.
func bitacoraFilterFromParams(params models.TareaParametros) (dto.BitacoraFilter, string, error) {
	var f dto.BitacoraFilter
	formato := params["formato"]
	if formato != "csv" && formato != "pdf" {
		return f, "", appErrors.Clone(appErrors.ErrNotValidParam, "formato de exportacion no valido")
	}
	for key, dest := range map[string]*int64{"modulo_id": &f.ModuloID, "usuario_id": &f.UsuarioID} {
		raw := params[key]
		if raw == "" {
			continue
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id < 0 {
			return f, "", appErrors.Clone(appErrors.ErrNotValidParam, key+" no valido")
		}
		*dest = id
	}
	var bounds [2]*time.Time
	for i, key := range []string{"fecha_desde", "fecha_hasta"} {
		raw := params[key]
		if raw == "" {
			continue
		}
		day, err := time.ParseInLocation("2006-01-02", raw, time.UTC)
		if err != nil {
			return f, "", appErrors.Clone(appErrors.ErrNotValidParam, key+" no valida")
		}
		bounds[i] = &day
	}
	if bounds[0] != nil && bounds[1] != nil && bounds[0].After(*bounds[1]) {
		bounds[0], bounds[1] = bounds[1], bounds[0]
	}
	f.Desde = bounds[0]
	if bounds[1] != nil {
		end := bounds[1].Add(24*time.Hour - time.Millisecond)
		f.Hasta = &end
	}
	return f, formato, nil
}

// ExportBitacoras renders the rows matching params and uploads the file under
// the task id.
func (s *ExportService) ExportBitacoras(ctx context.Context, tareaID string, params models.TareaParametros, progress func(percent int, msg string)) (*ExportResult, error) {
	filter, formato, err := bitacoraFilterFromParams(params)
	if err != nil {
		return nil, err
	}
	dataset, err := s.collect(ctx, filter, progress)
	if err != nil {
		return nil, err
	}

	var payload []byte
	contentType := "text/csv"
	switch formato {
	case "pdf":
		contentType = "application/pdf"
		payload, err = s.pdf.Render(dataset, "Bitacoras")
	default:
		payload, err = s.csv.Render(dataset)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "no se pudo generar el archivo")
	}

	bucket, err := s.buckets.Bucket(config.BucketTareas)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	filename := fmt.Sprintf("bitacoras-%s.%s", now.Format("20060102-150405"), formato)
	key := fmt.Sprintf("tareas/%s/%s-%s", now.Format("2006/01/02"), tareaID, filename)
	url, err := bucket.Upload(ctx, key, contentType, payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUpload.Code, appErrors.ErrUpload.Status, appErrors.ErrUpload.Message)
	}
	s.logger.Sugar().Infow("bitacoras exported", "tarea_id", tareaID, "rows", len(dataset.Rows), "formato", formato)
	return &ExportResult{Filename: filename, URL: url, Rows: len(dataset.Rows)}, nil
}

func (s *ExportService) collect(ctx context.Context, f dto.BitacoraFilter, progress func(int, string)) (export.Dataset, error) {
	dataset := export.Dataset{Columns: bitacoraColumns}
	f.Page = dto.Page{Limit: exportPageSize}
	for {
		if err := ctx.Err(); err != nil {
			return dataset, err
		}
		start := time.Now()
		items, total, err := s.bitacoras.List(ctx, f)
		if s.metrics != nil {
			s.metrics.ObserveDBQuery("bitacoras_export", time.Since(start))
		}
		if err != nil {
			return dataset, err
		}
		for _, b := range items {
			dataset.Rows = append(dataset.Rows, bitacoraRow(b))
		}
		limit := total
		if limit > s.cfg.MaxRows {
			limit = s.cfg.MaxRows
		}
		if progress != nil && limit > 0 {
			progress(len(dataset.Rows)*90/limit, fmt.Sprintf("Leidas %d de %d bitacoras", len(dataset.Rows), limit))
		}
		if len(items) < exportPageSize || len(dataset.Rows) >= limit {
			break
		}
		f.Offset += exportPageSize
	}
	if len(dataset.Rows) > s.cfg.MaxRows {
		dataset.Rows = dataset.Rows[:s.cfg.MaxRows]
	}
	return dataset, nil
}

func bitacoraRow(b models.Bitacora) map[string]string {
	usuario := b.UsuarioEmail
	if usuario == "" {
		usuario = strconv.FormatInt(b.UsuarioID, 10)
	}
	modulo := b.ModuloNombre
	if modulo == "" {
		modulo = strconv.FormatInt(b.ModuloID, 10)
	}
	return map[string]string{
		"id":          strconv.FormatInt(b.ID, 10),
		"creado":      b.Creado.Format("2006-01-02 15:04:05"),
		"usuario":     usuario,
		"modulo":      modulo,
		"descripcion": b.Descripcion,
		"url":         b.URL,
	}
}
