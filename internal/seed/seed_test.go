package seed

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/pjecz/hercules/pkg/errors"
)

func roles() Table { return Tables[3] }

func TestReadWriteRoundTrip(t *testing.T) {
	in := "rol_id,nombre,estatus\n1,ADMINISTRADOR,A\n2,\"SOPORTE, TECNICO\",A\n3,INVITADO,B\n"

	rows, err := ReadCSV(strings.NewReader(in), roles())
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "SOPORTE, TECNICO", rows[1][1])

	var out bytes.Buffer
	require.NoError(t, WriteCSV(&out, roles(), rows))
	assert.Equal(t, in, out.String())
}

func TestReadCSVStopsAtGap(t *testing.T) {
	in := "rol_id,nombre,estatus\n1,ADMINISTRADOR,A\n3,INVITADO,A\n"

	_, err := ReadCSV(strings.NewReader(in), roles())
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	assert.Contains(t, err.Error(), "rol_id 2")
}

func TestReadCSVRejectsHeader(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("id,nombre,estatus\n1,A,A\n"), roles())
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestReadCSVRejectsShortRecord(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("rol_id,nombre,estatus\n1,A\n"), roles())
	assert.Error(t, err)
}

func TestQueries(t *testing.T) {
	assert.Equal(t, "INSERT INTO roles (id, nombre, estatus) VALUES ($1, $2, $3)", insertQuery(roles()))
	assert.Equal(t, "SELECT COALESCE(id::text, ''), COALESCE(nombre::text, ''), COALESCE(estatus::text, '') FROM roles ORDER BY id", selectQuery(roles()))
}

func TestDumpWritesEveryTable(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	for _, table := range Tables {
		cols := make([]string, len(table.Columns))
		copy(cols, table.Columns)
		rows := sqlmock.NewRows(cols)
		if table.Name == "roles" {
			rows.AddRow("1", "ADMINISTRADOR", "A")
		}
		mock.ExpectQuery("FROM " + table.Name + " ORDER BY id").WillReturnRows(rows)
	}

	dir := t.TempDir()
	s := NewSeeder(sqlx.NewDb(db, "sqlmock"), nil)
	require.NoError(t, s.Dump(context.Background(), dir))
	require.NoError(t, mock.ExpectationsWereMet())

	got, err := os.ReadFile(filepath.Join(dir, "roles.csv"))
	require.NoError(t, err)
	assert.Equal(t, "rol_id,nombre,estatus\n1,ADMINISTRADOR,A\n", string(got))

	empty, err := os.ReadFile(filepath.Join(dir, "permisos.csv"))
	require.NoError(t, err)
	assert.Equal(t, "permiso_id,rol_id,modulo_id,nombre,nivel,estatus\n", string(empty))
}
