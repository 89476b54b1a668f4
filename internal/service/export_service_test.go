package service

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pjecz/hercules/internal/dto"
	"github.com/pjecz/hercules/internal/models"
	"github.com/pjecz/hercules/pkg/config"
	appErrors "github.com/pjecz/hercules/pkg/errors"
	"github.com/pjecz/hercules/pkg/storage"
)

type bitacoraStub struct {
	rows    []models.Bitacora
	filters []dto.BitacoraFilter
}

func (b *bitacoraStub) List(ctx context.Context, f dto.BitacoraFilter) ([]models.Bitacora, int, error) {
	b.filters = append(b.filters, f)
	start := f.Offset
	if start > len(b.rows) {
		start = len(b.rows)
	}
	end := start + f.Limit
	if end > len(b.rows) {
		end = len(b.rows)
	}
	return b.rows[start:end], len(b.rows), nil
}

func stubBitacoras(n int) *bitacoraStub {
	rows := make([]models.Bitacora, n)
	for i := range rows {
		rows[i] = models.Bitacora{
			ID:           int64(i + 1),
			UsuarioEmail: "admin@pjecz.gob.mx",
			ModuloNombre: "SOPORTES TICKETS",
			Descripcion:  fmt.Sprintf("Nuevo ticket %d", i+1),
			URL:          fmt.Sprintf("/soportes_tickets/%d", i+1),
			Creado:       time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
		}
	}
	return &bitacoraStub{rows: rows}
}

func newExportServiceForTest(t *testing.T, lister bitacoraLister, maxRows int) (*ExportService, storage.Bucket) {
	t.Helper()
	bucket, err := storage.NewLocalBucket(t.TempDir(), "hercules-tareas", "http://localhost:8080/deposito", storage.NewSignedURLSigner("secret", time.Hour))
	require.NoError(t, err)
	registry := storage.NewStaticRegistry(map[string]storage.Bucket{config.BucketTareas: bucket}, time.Hour)
	svc := NewExportService(lister, registry, ExportConfig{MaxRows: maxRows}, zap.NewNop(), nil, nil)
	svc.now = func() time.Time { return time.Date(2024, 3, 2, 10, 30, 0, 0, time.UTC) }
	return svc, bucket
}

func TestExportBitacorasCSV(t *testing.T) {
	lister := stubBitacoras(3)
	svc, bucket := newExportServiceForTest(t, lister, 0)
	var last int

	res, err := svc.ExportBitacoras(context.Background(), "t-1", models.TareaParametros{"formato": "csv"}, func(p int, _ string) { last = p })
	require.NoError(t, err)
	assert.Equal(t, 3, res.Rows)
	assert.Equal(t, "bitacoras-20240302-103000.csv", res.Filename)
	assert.Equal(t, 90, last)

	blob, err := storage.BlobNameFromURL(res.URL, bucket.Name())
	require.NoError(t, err)
	assert.Equal(t, "tareas/2024/03/02/t-1-bitacoras-20240302-103000.csv", blob)
	data, err := storage.Download(context.Background(), bucket, blob)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}))
	assert.Contains(t, string(data), "Nuevo ticket 2")
	assert.Contains(t, string(data), "/soportes_tickets/3")
}

func TestExportBitacorasPDF(t *testing.T) {
	svc, bucket := newExportServiceForTest(t, stubBitacoras(2), 0)

	res, err := svc.ExportBitacoras(context.Background(), "t-2", models.TareaParametros{"formato": "pdf"}, nil)
	require.NoError(t, err)
	blob, err := storage.BlobNameFromURL(res.URL, bucket.Name())
	require.NoError(t, err)
	data, err := storage.Download(context.Background(), bucket, blob)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}

func TestExportBitacorasCapsRows(t *testing.T) {
	svc, _ := newExportServiceForTest(t, stubBitacoras(5), 3)

	res, err := svc.ExportBitacoras(context.Background(), "t-3", models.TareaParametros{"formato": "csv"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Rows)
}

func TestExportBitacorasFilters(t *testing.T) {
	lister := stubBitacoras(1)
	svc, _ := newExportServiceForTest(t, lister, 0)

	_, err := svc.ExportBitacoras(context.Background(), "t-4", models.TareaParametros{
		"formato":     "csv",
		"modulo_id":   "4",
		"fecha_desde": "2024-03-10",
		"fecha_hasta": "2024-03-01",
	}, nil)
	require.NoError(t, err)
	require.Len(t, lister.filters, 1)
	f := lister.filters[0]
	assert.Equal(t, int64(4), f.ModuloID)
	require.NotNil(t, f.Desde)
	require.NotNil(t, f.Hasta)
	assert.Equal(t, "2024-03-01", f.Desde.Format("2006-01-02"))
	assert.Equal(t, "2024-03-10 23:59:59", f.Hasta.Format("2006-01-02 15:04:05"))
}

func TestCheckBitacoraExport(t *testing.T) {
	assert.NoError(t, CheckBitacoraExport(models.TareaParametros{"formato": "pdf"}))
	assert.ErrorIs(t, CheckBitacoraExport(models.TareaParametros{"formato": "xls"}), appErrors.ErrNotValidParam)
	assert.ErrorIs(t, CheckBitacoraExport(models.TareaParametros{"formato": "csv", "usuario_id": "x"}), appErrors.ErrNotValidParam)
	assert.ErrorIs(t, CheckBitacoraExport(models.TareaParametros{"formato": "csv", "fecha_desde": "01/03/2024"}), appErrors.ErrNotValidParam)
}

func TestBitacoraExportParams(t *testing.T) {
	params := BitacoraExportParams(dto.BitacoraExportForm{Formato: "csv", UsuarioID: 9, FechaDesde: "2024-01-01"})
	assert.Equal(t, models.TareaParametros{"formato": "csv", "usuario_id": "9", "fecha_desde": "2024-01-01"}, params)
}
