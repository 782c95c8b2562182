package desi

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"emfit/domain/target"
	"emfit/internal/errors"

	"github.com/astrogo/fitsio"
	"github.com/xuri/excelize/v2"
)

// TargetReader reads target lists from CSV, XLSX or FITS tables. Column
// names are matched case-insensitively; TARGETID and Z are required.
type TargetReader struct{}

// NewTargetReader creates a target reader
func NewTargetReader() *TargetReader {
	return &TargetReader{}
}

// ReadTargets reads a target table, choosing the format by file extension
func (r *TargetReader) ReadTargets(path string) ([]target.Target, error) {
	start := time.Now()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, errors.NotFound(fmt.Sprintf("target table %s", path))
	}

	var (
		records []map[string]string
		err     error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		records, err = readCSVRecords(path)
	case ".xlsx":
		records, err = readExcelRecords(path)
	case ".fits", ".fit", ".fits.gz":
		records, err = readFITSRecords(path)
	default:
		return nil, errors.InvalidInput(fmt.Sprintf("unsupported target table type %q", ext))
	}
	if err != nil {
		return nil, err
	}

	targets := make([]target.Target, 0, len(records))
	for i, rec := range records {
		t, err := parseTarget(rec)
		if err != nil {
			return nil, errors.Wrapf(err, "%s row %d", path, i+1)
		}
		targets = append(targets, t)
	}
	log.Printf("[TargetReader] %d targets read from %s in %v", len(targets), path, time.Since(start).Round(time.Millisecond))
	return targets, nil
}

func parseTarget(rec map[string]string) (target.Target, error) {
	var t target.Target
	var err error

	id, ok := rec["TARGETID"]
	if !ok || id == "" {
		return t, errors.InvalidInput("missing TARGETID")
	}
	if t.TargetID, err = strconv.ParseInt(id, 10, 64); err != nil {
		return t, errors.InvalidInput(fmt.Sprintf("bad TARGETID %q", id))
	}

	z, ok := rec["Z"]
	if !ok || z == "" {
		return t, errors.InvalidInput("missing Z")
	}
	if t.Z, err = strconv.ParseFloat(z, 64); err != nil {
		return t, errors.InvalidInput(fmt.Sprintf("bad Z %q", z))
	}

	if hp := rec["HEALPIX"]; hp != "" {
		if t.Healpix, err = strconv.Atoi(hp); err != nil {
			return t, errors.InvalidInput(fmt.Sprintf("bad HEALPIX %q", hp))
		}
	}
	t.SpecProd = rec["SPECPROD"]
	t.Survey = rec["SURVEY"]
	t.Program = rec["PROGRAM"]
	return t, nil
}

func readCSVRecords(path string) ([]map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.IOError(path, err)
	}
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, errors.IOError(path, err)
	}
	return processRows(rows)
}

func readExcelRecords(path string) ([]map[string]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.IOError(path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.InvalidInput(path + " has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, errors.IOError(path, err)
	}
	return processRows(rows)
}

// processRows turns a header row plus data rows into upper-cased records
func processRows(rows [][]string) ([]map[string]string, error) {
	if len(rows) < 1 {
		return nil, errors.InvalidInput("target table has no header row")
	}
	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.ToUpper(strings.TrimSpace(h))
	}

	records := make([]map[string]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := make(map[string]string, len(headers))
		for j, cell := range row {
			if j < len(headers) {
				rec[headers[j]] = strings.TrimSpace(cell)
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

func readFITSRecords(path string) ([]map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.IOError(path, err)
	}
	defer file.Close()

	f, err := fitsio.Open(file)
	if err != nil {
		return nil, errors.IOError(path, err)
	}
	defer f.Close()

	var tbl *fitsio.Table
	for _, hdu := range f.HDUs() {
		if t, ok := hdu.(*fitsio.Table); ok {
			tbl = t
			break
		}
	}
	if tbl == nil {
		return nil, errors.InvalidInput(path + " has no table HDU")
	}

	rows, err := tbl.Read(0, tbl.NumRows())
	if err != nil {
		return nil, errors.IOError(path, err)
	}
	defer rows.Close()

	var records []map[string]string
	for rows.Next() {
		data := make(map[string]interface{})
		if err := rows.Scan(&data); err != nil {
			return nil, errors.IOError(path, err)
		}
		rec := make(map[string]string, len(data))
		for k, v := range data {
			rec[strings.ToUpper(k)] = formatCell(v)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.IOError(path, err)
	}
	return records, nil
}

// formatCell renders a scalar FITS cell; array cells are skipped
func formatCell(v interface{}) string {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10)
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool())
	}
	return ""
}
