package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pjecz/hercules/internal/dto"
	"github.com/pjecz/hercules/internal/models"
)

// newMock binds as postgres so named queries render $n placeholders.
func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "postgres"), mock, func() { db.Close() }
}

var distritoCols = []string{"id", "clave", "nombre", "nombre_corto", "es_distrito_judicial", "estatus", "creado", "modificado"}

func TestDistritoRepositoryGetNotFound(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDistritoRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + distritoColumns + " FROM distritos WHERE id = $1")).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows(distritoCols))

	_, err := repo.Get(context.Background(), 9)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDistritoRepositoryList(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDistritoRepository(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + distritoColumns + " FROM distritos WHERE estatus = $1 AND clave ILIKE $2 ORDER BY id DESC LIMIT 500 OFFSET 0")).
		WithArgs("A", "%sal%").
		WillReturnRows(sqlmock.NewRows(distritoCols).AddRow(1, "DSAL", "DISTRITO DE SALTILLO", "SALTILLO", true, "A", now, now))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM distritos WHERE estatus = $1 AND clave ILIKE $2")).
		WithArgs("A", "%sal%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	items, total, err := repo.List(context.Background(), dto.DistritoFilter{Clave: "sal", Page: dto.Page{Limit: 5000}})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, "DSAL", items[0].Clave)
	assert.Equal(t, models.EstatusActivo, items[0].Estatus)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDistritoRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDistritoRepository(db)

	mock.ExpectQuery("INSERT INTO distritos").
		WithArgs("DTRC", "DISTRITO DE TORREON", "TORREON", true, "A", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(4))

	d := &models.Distrito{Clave: "DTRC", Nombre: "DISTRITO DE TORREON", NombreCorto: "TORREON", EsDistritoJudicial: true}
	require.NoError(t, repo.Create(context.Background(), d))
	assert.Equal(t, int64(4), d.ID)
	assert.False(t, d.Creado.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDistritoRepositoryCreateDuplicate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDistritoRepository(db)

	mock.ExpectQuery("INSERT INTO distritos").
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})

	err := repo.Create(context.Background(), &models.Distrito{Clave: "DSAL", Nombre: "X"})
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDistritoRepositorySetEstatus(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDistritoRepository(db)

	query := regexp.QuoteMeta("UPDATE distritos SET estatus = $2, modificado = $3 WHERE id = $1")
	mock.ExpectExec(query).WithArgs(int64(1), "B", sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(query).WithArgs(int64(2), "B", sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.SetEstatus(context.Background(), 1, models.EstatusBorrado))
	assert.ErrorIs(t, repo.SetEstatus(context.Background(), 2, models.EstatusBorrado), sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTxRunner(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	tx := NewTxRunner(db)
	repo := NewDistritoRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE distritos").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE distritos").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := tx.RunInTx(context.Background(), func(ctx context.Context) error {
		if err := repo.SetEstatus(ctx, 1, models.EstatusBorrado); err != nil {
			return err
		}
		return tx.RunInTx(ctx, func(ctx context.Context) error {
			return repo.SetEstatus(ctx, 2, models.EstatusBorrado)
		})
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	mock.ExpectBegin()
	mock.ExpectRollback()
	err = tx.RunInTx(context.Background(), func(ctx context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}
