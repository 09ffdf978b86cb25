// Package dataset provides the in-memory table that flows through the
// pipelines: an ordered list of named columns whose cells are nullable
// strings. Column lookups fail with errs.ColumnNotFoundError instead of
// returning zero values.
package dataset

import (
	"fmt"
	"strconv"

	"github.com/dcshock/passengerpipe/errs"
)

// Cell is a nullable value. Valid is false for missing data.
type Cell struct {
	Value string
	Valid bool
}

// Null is the missing cell.
var Null = Cell{}

// Str returns a non-null cell holding v.
func Str(v string) Cell { return Cell{Value: v, Valid: true} }

// Column is a named sequence of cells aligned by row index.
type Column struct {
	Name  string
	Cells []Cell
}

// NewColumn returns a column named name holding cells.
func NewColumn(name string, cells ...Cell) *Column {
	return &Column{Name: name, Cells: cells}
}

func (c *Column) Len() int { return len(c.Cells) }

func (c *Column) IsNull(i int) bool { return !c.Cells[i].Valid }

// Set stores a non-null value at row i.
func (c *Column) Set(i int, v string) { c.Cells[i] = Str(v) }

// NullCount returns the number of missing cells.
func (c *Column) NullCount() int {
	n := 0
	for _, cell := range c.Cells {
		if !cell.Valid {
			n++
		}
	}
	return n
}

// Floats parses every non-null cell as float64. dataset is used only for
// error reporting.
func (c *Column) Floats(dataset string) ([]float64, error) {
	out := make([]float64, 0, len(c.Cells))
	for i, cell := range c.Cells {
		if !cell.Valid {
			continue
		}
		v, err := strconv.ParseFloat(cell.Value, 64)
		if err != nil {
			return nil, &errs.ColumnTypeError{Dataset: dataset, Column: c.Name, Row: i, Value: cell.Value, Err: err}
		}
		out = append(out, v)
	}
	return out, nil
}

// Dataset is a named table of equal-length columns. The zero value is an
// empty dataset with no name.
type Dataset struct {
	Name    string
	columns []*Column
	rows    int
}

// New builds a dataset from cols. All columns must have the same length and
// distinct names.
func New(name string, cols ...*Column) (*Dataset, error) {
	d := &Dataset{Name: name}
	for i, c := range cols {
		if i == 0 {
			d.rows = c.Len()
		}
		if c.Len() != d.rows {
			return nil, fmt.Errorf("dataset %s: column %q has %d rows, want %d", name, c.Name, c.Len(), d.rows)
		}
		if d.Index(c.Name) >= 0 {
			return nil, fmt.Errorf("dataset %s: duplicate column %q", name, c.Name)
		}
		d.columns = append(d.columns, c)
	}
	return d, nil
}

// MustNew is like New but panics on error. Intended for tests and fixtures.
func MustNew(name string, cols ...*Column) *Dataset {
	d, err := New(name, cols...)
	if err != nil {
		panic(err)
	}
	return d
}

func (d *Dataset) NumRows() int { return d.rows }
func (d *Dataset) NumCols() int { return len(d.columns) }

// Names returns the column names in order.
func (d *Dataset) Names() []string {
	names := make([]string, len(d.columns))
	for i, c := range d.columns {
		names[i] = c.Name
	}
	return names
}

// Index returns the position of the named column, or -1.
func (d *Dataset) Index(name string) int {
	for i, c := range d.columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

func (d *Dataset) Has(name string) bool { return d.Index(name) >= 0 }

// Column returns the named column or a ColumnNotFoundError.
func (d *Dataset) Column(name string) (*Column, error) {
	i := d.Index(name)
	if i < 0 {
		return nil, &errs.ColumnNotFoundError{Dataset: d.Name, Column: name}
	}
	return d.columns[i], nil
}

// Require returns a ColumnNotFoundError for the first name that is absent.
func (d *Dataset) Require(names ...string) error {
	for _, n := range names {
		if !d.Has(n) {
			return &errs.ColumnNotFoundError{Dataset: d.Name, Column: n}
		}
	}
	return nil
}

// Drop removes the named columns. Either all are removed or, if one is
// missing, none is.
func (d *Dataset) Drop(names ...string) error {
	if err := d.Require(names...); err != nil {
		return err
	}
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}
	kept := d.columns[:0]
	for _, c := range d.columns {
		if !drop[c.Name] {
			kept = append(kept, c)
		}
	}
	d.columns = kept
	if len(d.columns) == 0 {
		d.rows = 0
	}
	return nil
}

// Pop removes the named column and returns it.
func (d *Dataset) Pop(name string) (*Column, error) {
	i := d.Index(name)
	if i < 0 {
		return nil, &errs.ColumnNotFoundError{Dataset: d.Name, Column: name}
	}
	c := d.columns[i]
	d.columns = append(d.columns[:i], d.columns[i+1:]...)
	return c, nil
}

// Insert places col at position pos, clamped to [0, NumCols]. The column
// must not already exist and must match the row count (any length is accepted
// when the dataset has no columns).
func (d *Dataset) Insert(pos int, col *Column) error {
	if d.Has(col.Name) {
		return fmt.Errorf("dataset %s: column %q already exists", d.Name, col.Name)
	}
	if len(d.columns) == 0 {
		d.rows = col.Len()
	} else if col.Len() != d.rows {
		return fmt.Errorf("dataset %s: column %q has %d rows, want %d", d.Name, col.Name, col.Len(), d.rows)
	}
	pos = max(0, min(pos, len(d.columns)))
	d.columns = append(d.columns, nil)
	copy(d.columns[pos+1:], d.columns[pos:])
	d.columns[pos] = col
	return nil
}

// Row returns the cells of row i in column order.
func (d *Dataset) Row(i int) []Cell {
	row := make([]Cell, len(d.columns))
	for j, c := range d.columns {
		row[j] = c.Cells[i]
	}
	return row
}

// Pair is the train/test pair handled by every stage after loading.
type Pair struct {
	Train *Dataset
	Test  *Dataset
}

// Each calls fn for train then test, stopping at the first error.
func (p *Pair) Each(fn func(d *Dataset) error) error {
	if err := fn(p.Train); err != nil {
		return err
	}
	return fn(p.Test)
}

// Shape summarizes a dataset for logs and run records.
type Shape struct {
	Rows    int      `json:"rows"`
	Columns []string `json:"columns"`
}

func (d *Dataset) Shape() Shape {
	return Shape{Rows: d.NumRows(), Columns: d.Names()}
}

// Shapes returns the train and test shapes keyed by dataset name.
func (p *Pair) Shapes() map[string]Shape {
	return map[string]Shape{
		p.Train.Name: p.Train.Shape(),
		p.Test.Name:  p.Test.Shape(),
	}
}
