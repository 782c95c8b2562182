package ports

// ColumnKind is the storage type of a table column
type ColumnKind int

const (
	KindFloat ColumnKind = iota
	KindInt
	KindString
)

// Column describes one output column
type Column struct {
	Name string
	Kind ColumnKind
}

// Table is a flat result table. Row values are float64, int64 or string
// according to the column kind.
type Table struct {
	Columns []Column
	Rows    [][]interface{}
}

// Index returns the position of a column, or -1
func (t *Table) Index(name string) int {
	for i, c := range t.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// TableWriter persists a result table
type TableWriter interface {
	Write(path string, t *Table) error
}
