// Package seed loads and dumps the base catalogs as CSV files, one per table.
package seed

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	appErrors "github.com/pjecz/hercules/pkg/errors"
)

// Table maps one CSV file to one database table. The first header is the
// row id and maps to the id column.
type Table struct {
	Name    string
	Header  []string
	Columns []string
}

func (t Table) File() string { return t.Name + ".csv" }

// Tables are listed in foreign key order.
var Tables = []Table{
	{
		Name:    "distritos",
		Header:  []string{"distrito_id", "clave", "nombre", "nombre_corto", "es_distrito_judicial", "estatus"},
		Columns: []string{"id", "clave", "nombre", "nombre_corto", "es_distrito_judicial", "estatus"},
	},
	{
		Name:    "autoridades",
		Header:  []string{"autoridad_id", "distrito_id", "clave", "descripcion", "descripcion_corta", "es_jurisdiccional", "es_notaria", "organo_jurisdiccional", "estatus"},
		Columns: []string{"id", "distrito_id", "clave", "descripcion", "descripcion_corta", "es_jurisdiccional", "es_notaria", "organo_jurisdiccional", "estatus"},
	},
	{
		Name:    "modulos",
		Header:  []string{"modulo_id", "nombre", "nombre_corto", "icono", "ruta", "en_navegacion", "en_plataforma_hercules", "estatus"},
		Columns: []string{"id", "nombre", "nombre_corto", "icono", "ruta", "en_navegacion", "en_plataforma_hercules", "estatus"},
	},
	{
		Name:    "roles",
		Header:  []string{"rol_id", "nombre", "estatus"},
		Columns: []string{"id", "nombre", "estatus"},
	},
	{
		Name:    "permisos",
		Header:  []string{"permiso_id", "rol_id", "modulo_id", "nombre", "nivel", "estatus"},
		Columns: []string{"id", "rol_id", "modulo_id", "nombre", "nivel", "estatus"},
	},
}

// ReadCSV parses the rows of t and enforces contiguous ids starting at 1.
// It stops at the first gap.
func ReadCSV(r io.Reader, t Table) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(t.Header)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%s: read header: %w", t.File(), err)
	}
	if strings.Join(header, ",") != strings.Join(t.Header, ",") {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s: columnas esperadas %s", t.File(), strings.Join(t.Header, ",")))
	}

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", t.File(), err)
		}
		want := len(rows) + 1
		id, err := strconv.Atoi(record[0])
		if err != nil || id != want {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s: se esperaba %s %d y se encontro %q", t.File(), t.Header[0], want, record[0]))
		}
		rows = append(rows, record)
	}
	return rows, nil
}

// WriteCSV writes the header of t followed by rows.
func WriteCSV(w io.Writer, t Table, rows [][]string) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(t.Header); err != nil {
		return err
	}
	if err := writer.WriteAll(rows); err != nil {
		return err
	}
	return writer.Error()
}

// Seeder moves the catalogs between a directory of CSV files and the database.
type Seeder struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewSeeder(db *sqlx.DB, logger *zap.Logger) *Seeder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Seeder{db: db, logger: logger}
}

// Load reads every table file from dir and inserts the rows in one
// transaction, keeping the ids of the files.
func (s *Seeder) Load(ctx context.Context, dir string) error {
	data := make(map[string][][]string, len(Tables))
	for _, t := range Tables {
		f, err := os.Open(filepath.Join(dir, t.File()))
		if err != nil {
			return fmt.Errorf("open %s: %w", t.File(), err)
		}
		rows, err := ReadCSV(f, t)
		f.Close() //nolint:errcheck
		if err != nil {
			return err
		}
		data[t.Name] = rows
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	for _, t := range Tables {
		query := insertQuery(t)
		for _, row := range data[t.Name] {
			args := make([]interface{}, len(row))
			for i, v := range row {
				args[i] = v
			}
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("insert %s %s: %w", t.Name, row[0], err)
			}
		}
		if len(data[t.Name]) > 0 {
			reset := fmt.Sprintf("SELECT setval(pg_get_serial_sequence('%s', 'id'), (SELECT MAX(id) FROM %s))", t.Name, t.Name)
			if _, err := tx.ExecContext(ctx, reset); err != nil {
				return fmt.Errorf("reset sequence %s: %w", t.Name, err)
			}
		}
		s.logger.Info("seed loaded", zap.String("table", t.Name), zap.Int("rows", len(data[t.Name])))
	}
	return tx.Commit()
}

// Dump writes every table into dir in the format Load reads.
func (s *Seeder) Dump(ctx context.Context, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for _, t := range Tables {
		rows, err := s.selectRows(ctx, t)
		if err != nil {
			return err
		}
		f, err := os.Create(filepath.Join(dir, t.File()))
		if err != nil {
			return err
		}
		if err := WriteCSV(f, t, rows); err != nil {
			f.Close() //nolint:errcheck
			return fmt.Errorf("write %s: %w", t.File(), err)
		}
		if err := f.Close(); err != nil {
			return err
		}
		s.logger.Info("seed dumped", zap.String("table", t.Name), zap.Int("rows", len(rows)))
	}
	return nil
}

func (s *Seeder) selectRows(ctx context.Context, t Table) ([][]string, error) {
	rs, err := s.db.QueryContext(ctx, selectQuery(t))
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", t.Name, err)
	}
	defer rs.Close()

	var out [][]string
	for rs.Next() {
		record := make([]string, len(t.Columns))
		dest := make([]interface{}, len(record))
		for i := range record {
			dest[i] = &record[i]
		}
		if err := rs.Scan(dest...); err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, rs.Err()
}

func insertQuery(t Table) string {
	marks := make([]string, len(t.Columns))
	for i := range marks {
		marks[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", t.Name, strings.Join(t.Columns, ", "), strings.Join(marks, ", "))
}

func selectQuery(t Table) string {
	cols := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = "COALESCE(" + c + "::text, '')"
	}
	return fmt.Sprintf("SELECT %s FROM %s ORDER BY id", strings.Join(cols, ", "), t.Name)
}
