package types

import (
	"fmt"

	"github.com/elliotchance/orderedmap/v2"
)

// Row is one flattened Record: column name -> cell text, in the order the
// columns were produced.
type Row struct {
	cells *orderedmap.OrderedMap[string, string]
}

// NewRow creates an empty Row.
func NewRow() *Row {
	return &Row{cells: orderedmap.NewOrderedMap[string, string]()}
}

// Set stores a cell. An existing column keeps its position.
func (r *Row) Set(column, value string) {
	r.cells.Set(column, value)
}

// Get returns a cell.
func (r *Row) Get(column string) (string, bool) {
	return r.cells.Get(column)
}

// Len returns the number of cells.
func (r *Row) Len() int {
	return r.cells.Len()
}

// Columns returns the column names in production order.
func (r *Row) Columns() []string {
	cols := make([]string, 0, r.cells.Len())
	for el := r.cells.Front(); el != nil; el = el.Next() {
		cols = append(cols, el.Key)
	}
	return cols
}

// Table is a header plus rows of cells laid out in header order.
type Table struct {
	Header []string
	Rows   [][]string
}

// NewTable lays out rows under header. A column missing from a row becomes
// an empty cell; cells for columns outside the header are dropped.
func NewTable(header []string, rows []*Row) *Table {
	t := &Table{
		Header: header,
		Rows:   make([][]string, 0, len(rows)),
	}
	for _, row := range rows {
		cells := make([]string, len(header))
		for i, col := range header {
			if v, ok := row.Get(col); ok {
				cells[i] = v
			}
		}
		t.Rows = append(t.Rows, cells)
	}
	return t
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Validate checks that every row has exactly one cell per header column.
func (t *Table) Validate() error {
	for i, row := range t.Rows {
		if len(row) != len(t.Header) {
			return fmt.Errorf("row %d has %d cells, header has %d columns", i, len(row), len(t.Header))
		}
	}
	return nil
}
