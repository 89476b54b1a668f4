package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pjecz/hercules/internal/access"
	"github.com/pjecz/hercules/internal/dto"
	"github.com/pjecz/hercules/internal/models"
	appErrors "github.com/pjecz/hercules/pkg/errors"
)

type bitacoraRows struct {
	rows []models.Bitacora
}

func (b *bitacoraRows) Insert(ctx context.Context, row *models.Bitacora) error {
	row.ID = int64(len(b.rows) + 1)
	b.rows = append(b.rows, *row)
	return nil
}

func (b *bitacoraRows) Get(ctx context.Context, id int64) (*models.Bitacora, error) {
	return &b.rows[id-1], nil
}

func (b *bitacoraRows) List(ctx context.Context, f dto.BitacoraFilter) ([]models.Bitacora, int, error) {
	return b.rows, len(b.rows), nil
}

type moduloIDs map[string]int64

func (m moduloIDs) IDByNombre(ctx context.Context, nombre string) (int64, error) {
	return m[nombre], nil
}

func TestAuditRecordRequiresOwnedURL(t *testing.T) {
	repo := &bitacoraRows{}
	svc := NewAuditService(repo, moduloIDs{"EXH EXHORTOS": 4, "EXH EXHORTOS ARCHIVOS": 5}, nil)
	svc.now = func() time.Time { return time.Date(2024, 5, 6, 12, 0, 0, 0, time.UTC) }

	err := svc.Record(context.Background(), testActor(), access.ModuleExhExhortos, "Nuevo archivo", "/exh_exhortos_archivos/9")
	assert.ErrorIs(t, err, appErrors.ErrNotValidParam)
	assert.Empty(t, repo.rows)

	require.NoError(t, svc.Record(context.Background(), testActor(), access.ModuleExhExhortosArchivos, "Nuevo archivo", "/exh_exhortos_archivos/9"))
	require.NoError(t, svc.Record(context.Background(), testActor(), access.ModuleExhExhortos, "Nuevo exhorto", "/exh_exhortos/3"))
	require.Len(t, repo.rows, 2)
	assert.Equal(t, int64(5), repo.rows[0].ModuloID)
	assert.Equal(t, int64(4), repo.rows[1].ModuloID)
	assert.Equal(t, "Nuevo archivo", repo.rows[0].Descripcion)
}

func TestAuditRecordRequiresActor(t *testing.T) {
	svc := NewAuditService(&bitacoraRows{}, moduloIDs{}, nil)
	err := svc.Record(context.Background(), nil, access.ModuleDistritos, "x", "/distritos/1")
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}
