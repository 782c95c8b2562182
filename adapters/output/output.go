// Package output writes result tables as FITS binary tables, CSV or XLSX.
package output

import (
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"emfit/internal/errors"
	"emfit/ports"
)

// ForPath returns the writer matching the extension of path
func ForPath(path string) (ports.TableWriter, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".fits", ".fit":
		return &FITSWriter{Extension: "EMFIT"}, nil
	case ".csv":
		return &CSVWriter{}, nil
	case ".xlsx":
		return &ExcelWriter{Sheet: "emfit"}, nil
	default:
		return nil, errors.InvalidInput(fmt.Sprintf("unsupported output type %q", ext))
	}
}

// Write writes t to path in the format chosen by its extension
func Write(path string, t *ports.Table) error {
	w, err := ForPath(path)
	if err != nil {
		return err
	}
	return w.Write(path, t)
}

func checkTable(t *ports.Table) error {
	for i, row := range t.Rows {
		if len(row) != len(t.Columns) {
			return errors.InvalidInput(fmt.Sprintf("row %d has %d values for %d columns", i, len(row), len(t.Columns)))
		}
	}
	return nil
}

// formatValue renders a cell for text formats; NaN becomes an empty cell
func formatValue(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case float64:
		if math.IsNaN(x) {
			return ""
		}
		return strconv.FormatFloat(x, 'g', -1, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

func asFloat(v interface{}) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case int64:
		return float64(x)
	case int:
		return float64(x)
	}
	return math.NaN()
}

func asInt(v interface{}) int64 {
	switch x := v.(type) {
	case int64:
		return x
	case int:
		return int64(x)
	case float64:
		if !math.IsNaN(x) {
			return int64(x)
		}
	}
	return 0
}

func asString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return formatValue(v)
}
