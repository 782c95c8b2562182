package output

import (
	"encoding/csv"
	"os"

	"emfit/internal/errors"
	"emfit/ports"
)

// CSVWriter writes a header row plus one line per row
type CSVWriter struct{}

func (w *CSVWriter) Write(path string, t *ports.Table) error {
	if err := checkTable(t); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.IOError(path, err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	header := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c.Name
	}
	if err := cw.Write(header); err != nil {
		return errors.IOError(path, err)
	}

	rec := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for i, v := range row {
			rec[i] = formatValue(v)
		}
		if err := cw.Write(rec); err != nil {
			return errors.IOError(path, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.IOError(path, err)
	}
	return nil
}
