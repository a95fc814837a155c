package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Write encodes the dataset as CSV: one header row with the dataset's
// visible columns, then one row per record. Nulls become empty cells.
func Write(w io.Writer, d Dataset) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(d.Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	row := make([]string, len(d.Columns))
	for i, r := range d.Rows {
		for j, col := range d.Columns {
			row[j] = r.String(col)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteFile writes the dataset to path, creating parent directories.
func WriteFile(path string, d Dataset) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	if err := Write(f, d); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// Read decodes a CSV produced by Write. Empty cells become nil; every
// other value stays a string (Record.Float parses numerics on demand).
func Read(r io.Reader) (Dataset, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if err != nil {
		return Dataset{}, fmt.Errorf("read header: %w", err)
	}

	d := New(header)
	for {
		cells, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Dataset{}, fmt.Errorf("read row %d: %w", len(d.Rows)+1, err)
		}

		rec := make(Record, len(header))
		for i, col := range header {
			if cells[i] == "" {
				rec[col] = nil
			} else {
				rec[col] = cells[i]
			}
		}
		d.Rows = append(d.Rows, rec)
	}

	return d, nil
}

// ReadFile reads a CSV dataset from path.
func ReadFile(path string) (Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return Dataset{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	d, err := Read(f)
	if err != nil {
		return Dataset{}, fmt.Errorf("read %s: %w", path, err)
	}
	return d, nil
}
