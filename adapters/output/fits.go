package output

import (
	"fmt"
	"os"
	"sort"

	"emfit/internal/errors"
	"emfit/ports"

	"github.com/astrogo/fitsio"
)

// FITSWriter writes the table as a binary table extension after an empty
// primary HDU. Keywords are added to the extension header.
type FITSWriter struct {
	Extension string
	Keywords  map[string]string
}

func (w *FITSWriter) Write(path string, t *ports.Table) error {
	if err := checkTable(t); err != nil {
		return err
	}
	out, err := os.Create(path)
	if err != nil {
		return errors.IOError(path, err)
	}
	defer out.Close()

	f, err := fitsio.Create(out)
	if err != nil {
		return errors.IOError(path, err)
	}
	defer f.Close()

	phdu, err := fitsio.NewPrimaryHDU(nil)
	if err != nil {
		return errors.IOError(path, err)
	}
	if err := f.Write(phdu); err != nil {
		return errors.IOError(path, err)
	}

	name := w.Extension
	if name == "" {
		name = "EMFIT"
	}
	tbl, err := fitsio.NewTable(name, fitsColumns(t), fitsio.BINARY_TBL)
	if err != nil {
		return errors.IOError(path, err)
	}
	defer tbl.Close()

	if err := tbl.Header().Append(w.cards()...); err != nil {
		return errors.IOError(path, err)
	}

	for i, row := range t.Rows {
		if err := tbl.Write(fitsRow(t.Columns, row)...); err != nil {
			return errors.IOError(path, fmt.Errorf("row %d: %w", i, err))
		}
	}
	if err := f.Write(tbl); err != nil {
		return errors.IOError(path, err)
	}
	return nil
}

func (w *FITSWriter) cards() []fitsio.Card {
	keys := make([]string, 0, len(w.Keywords))
	for k := range w.Keywords {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	cards := make([]fitsio.Card, 0, len(keys))
	for _, k := range keys {
		cards = append(cards, fitsio.Card{Name: k, Value: w.Keywords[k]})
	}
	return cards
}

// fitsColumns maps column kinds to TFORM codes; strings are sized to the
// longest value.
func fitsColumns(t *ports.Table) []fitsio.Column {
	cols := make([]fitsio.Column, len(t.Columns))
	for i, c := range t.Columns {
		switch c.Kind {
		case ports.KindInt:
			cols[i] = fitsio.Column{Name: c.Name, Format: "K"}
		case ports.KindString:
			width := 1
			for _, row := range t.Rows {
				if n := len(asString(row[i])); n > width {
					width = n
				}
			}
			cols[i] = fitsio.Column{Name: c.Name, Format: fmt.Sprintf("%dA", width)}
		default:
			cols[i] = fitsio.Column{Name: c.Name, Format: "D"}
		}
	}
	return cols
}

func fitsRow(cols []ports.Column, row []interface{}) []interface{} {
	args := make([]interface{}, len(cols))
	for i, c := range cols {
		switch c.Kind {
		case ports.KindInt:
			v := asInt(row[i])
			args[i] = &v
		case ports.KindString:
			v := asString(row[i])
			args[i] = &v
		default:
			v := asFloat(row[i])
			args[i] = &v
		}
	}
	return args
}
