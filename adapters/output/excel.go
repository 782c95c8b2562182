package output

import (
	"math"

	"emfit/internal/errors"
	"emfit/ports"

	"github.com/xuri/excelize/v2"
)

// ExcelWriter writes the table to one worksheet
type ExcelWriter struct {
	Sheet string
}

func (w *ExcelWriter) Write(path string, t *ports.Table) error {
	if err := checkTable(t); err != nil {
		return err
	}
	f := excelize.NewFile()
	defer f.Close()

	sheet := w.Sheet
	if sheet == "" {
		sheet = "Sheet1"
	}
	idx, err := f.NewSheet(sheet)
	if err != nil {
		return errors.IOError(path, err)
	}
	f.SetActiveSheet(idx)
	if sheet != "Sheet1" {
		if err := f.DeleteSheet("Sheet1"); err != nil {
			return errors.IOError(path, err)
		}
	}

	for i, c := range t.Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, c.Name); err != nil {
			return errors.IOError(path, err)
		}
	}

	for r, row := range t.Rows {
		for c, v := range row {
			if x, ok := v.(float64); ok && (math.IsNaN(x) || math.IsInf(x, 0)) {
				// leave the cell empty
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return errors.IOError(path, err)
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return errors.IOError(path, err)
	}
	return nil
}
