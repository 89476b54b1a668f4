package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pjecz/hercules/internal/models"
)

func TestExhExhortoRepositorySetEstado(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewExhExhortoRepository(db)

	query := regexp.QuoteMeta("UPDATE exh_exhortos SET estado = $3, estado_anterior = $2, modificado = $4 WHERE id = $1 AND estado = $2")
	mock.ExpectExec(query).
		WithArgs(int64(5), "PENDIENTE", "PROCESANDO", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(query).
		WithArgs(int64(5), "PENDIENTE", "PROCESANDO", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.SetEstado(context.Background(), 5, models.ExhPendiente, models.ExhProcesando))
	assert.ErrorIs(t, repo.SetEstado(context.Background(), 5, models.ExhPendiente, models.ExhProcesando), ErrStaleState)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExhExhortoRepositoryResumenCountsStoredArchivos(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewExhExhortoRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE exh_exhorto_id = $1 AND estatus = 'A' AND url <> '') AS archivos_activos")).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"partes_activas", "archivos_activos", "archivos_recibidos", "respuestas_completas"}).AddRow(2, 3, 3, 0))

	got, err := repo.Resumen(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, 2, got.PartesActivas)
	assert.Equal(t, 3, got.ArchivosRecibidos)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTareaRepositoryGuardedTransitions(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTareaRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE tareas SET estado = 'RUNNING', modificado = $2 WHERE id = $1 AND estado = 'QUEUED'")).
		WithArgs("t-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("WHERE id = $1 AND estado NOT IN ('DONE', 'ERROR')")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.ErrorIs(t, repo.MarkRunning(context.Background(), "t-1"), ErrStaleState)
	require.NoError(t, repo.Finish(context.Background(), &models.Tarea{ID: "t-1", Estado: models.TareaDone, Progreso: 100}))
	assert.NoError(t, mock.ExpectationsWereMet())
}
