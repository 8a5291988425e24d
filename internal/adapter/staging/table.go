// Package staging stores pipeline tables as CSV files, one file per table,
// with a header row. Cells are addressed by column name on read.
package staging

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/couchcryptid/restaurant-staging-etl/internal/fileutil"
)

// Kind is the storage type of a column.
type Kind int

const (
	Text Kind = iota
	Float
	Int
	Bool
)

// SQLType is the PostgreSQL column type used when a table is loaded.
func (k Kind) SQLType() string {
	switch k {
	case Float:
		return "DOUBLE PRECISION"
	case Int:
		return "BIGINT"
	case Bool:
		return "BOOLEAN"
	default:
		return "TEXT"
	}
}

// ColumnDef names a column and its kind.
type ColumnDef struct {
	Name string
	Kind Kind
}

// Schema describes a table independently of the row type it is built from.
type Schema struct {
	Name    string
	Columns []ColumnDef
}

// Path returns the CSV file of the table under dir.
func (s Schema) Path(dir string) string {
	return filepath.Join(dir, s.Name+".csv")
}

// Exists reports whether the table has been written under dir.
func (s Schema) Exists(dir string) bool {
	_, err := os.Stat(s.Path(dir))
	return err == nil
}

// Header returns the column names in file order.
func (s Schema) Header() []string {
	out := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		out[i] = c.Name
	}
	return out
}

// ReadValues reads the table under dir and converts each cell to the Go value
// of its kind: string, float64, int64 or bool. Empty cells become nil.
func (s Schema) ReadValues(dir string) ([][]any, error) {
	var out [][]any
	err := readCSV(s.Path(dir), s.Name, s.Columns, func(cells []string) error {
		row := make([]any, len(cells))
		for i, cell := range cells {
			v, err := convert(s.Columns[i].Kind, cell)
			if err != nil {
				return fmt.Errorf("column %q: %w", s.Columns[i].Name, err)
			}
			row[i] = v
		}
		out = append(out, row)
		return nil
	})
	return out, err
}

func convert(kind Kind, cell string) (any, error) {
	if cell == "" {
		return nil, nil
	}
	switch kind {
	case Float:
		return strconv.ParseFloat(cell, 64)
	case Int:
		return strconv.ParseInt(cell, 10, 64)
	case Bool:
		return strconv.ParseBool(cell)
	default:
		return cell, nil
	}
}

// Column binds a column definition to a field of the row type T.
type Column[T any] struct {
	ColumnDef
	format func(*T) string
	parse  func(*T, string) error
}

// Table is a codec between a slice of T and a CSV file.
type Table[T any] struct {
	Name    string
	Columns []Column[T]
}

// Schema returns the untyped description of the table.
func (t Table[T]) Schema() Schema {
	defs := make([]ColumnDef, len(t.Columns))
	for i, c := range t.Columns {
		defs[i] = c.ColumnDef
	}
	return Schema{Name: t.Name, Columns: defs}
}

// Path returns the CSV file of the table under dir.
func (t Table[T]) Path(dir string) string {
	return t.Schema().Path(dir)
}

// Write replaces the table under dir with rows. The file is written to a
// temp file and renamed into place, so an interrupted write leaves the
// previous version intact.
func (t Table[T]) Write(dir string, rows []T) error {
	err := fileutil.WriteAtomic(t.Path(dir), func(w io.Writer) error {
		cw := csv.NewWriter(w)
		if err := cw.Write(t.Schema().Header()); err != nil {
			return err
		}
		record := make([]string, len(t.Columns))
		for i := range rows {
			for j, c := range t.Columns {
				record[j] = c.format(&rows[i])
			}
			if err := cw.Write(record); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	})
	if err != nil {
		return fmt.Errorf("write table %s: %w", t.Name, err)
	}
	return nil
}

// Read loads the table under dir. A missing file is reported with an error
// wrapping os.ErrNotExist.
func (t Table[T]) Read(dir string) ([]T, error) {
	defs := t.Schema().Columns
	var out []T
	err := readCSV(t.Path(dir), t.Name, defs, func(cells []string) error {
		var row T
		for i, c := range t.Columns {
			if err := c.parse(&row, cells[i]); err != nil {
				return fmt.Errorf("column %q: %w", c.Name, err)
			}
		}
		out = append(out, row)
		return nil
	})
	return out, err
}

// readCSV streams the records of a table file, reordering cells to match
// cols. Extra columns in the file are ignored; missing ones are an error.
func readCSV(path, table string, cols []ColumnDef, fn func(cells []string) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open table %s: %w", table, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return fmt.Errorf("table %s: empty file %q", table, path)
	}
	if err != nil {
		return fmt.Errorf("read table %s header: %w", table, err)
	}

	pos := make(map[string]int, len(header))
	for i, name := range header {
		if _, dup := pos[name]; !dup {
			pos[name] = i
		}
	}
	index := make([]int, len(cols))
	for i, c := range cols {
		p, ok := pos[c.Name]
		if !ok {
			return fmt.Errorf("table %s: missing column %q", table, c.Name)
		}
		index[i] = p
	}

	cells := make([]string, len(cols))
	for n := 1; ; n++ {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read table %s: %w", table, err)
		}
		for i, p := range index {
			if p < len(record) {
				cells[i] = record[p]
			} else {
				cells[i] = ""
			}
		}
		if err := fn(cells); err != nil {
			return fmt.Errorf("table %s record %d: %w", table, n, err)
		}
	}
}
