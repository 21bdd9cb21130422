// Package dataset holds the in-memory table that is summarized, cleaned and
// written back, plus the CSV and spreadsheet codecs that load and save it.
package dataset

import (
	"fmt"
	"regexp"
	"strings"
)

// MissingText is the textual form of a missing cell. It is what the
// summarizer and the cleaner see, so a model may flag it like any other value.
const MissingText = "nan"

var numericPattern = regexp.MustCompile(`^[-+]?[0-9]*\.?[0-9]+([eE][-+]?[0-9]+)?$`)

// LooksNumeric reports whether s is a plain numeric literal
// (optional sign, digits, optional decimal point, optional exponent).
func LooksNumeric(s string) bool {
	return numericPattern.MatchString(s)
}

// Cell is one value. Missing cells carry no text.
type Cell struct {
	Text    string
	Missing bool
}

// Missing returns a missing cell.
func Missing() Cell { return Cell{Missing: true} }

// Value returns a present cell holding s.
func Value(s string) Cell { return Cell{Text: s} }

// String returns the canonical textual form used for counting and matching.
func (c Cell) String() string {
	if c.Missing {
		return MissingText
	}
	return c.Text
}

// Column is a named, ordered sequence of cells.
type Column struct {
	Name  string
	Cells []Cell
}

// Numeric reports whether every present cell looks numeric and at least one is present.
func (c *Column) Numeric() bool {
	present := 0
	for _, cell := range c.Cells {
		if cell.Missing {
			continue
		}
		if !LooksNumeric(cell.Text) {
			return false
		}
		present++
	}
	return present > 0
}

// Present counts the cells that are not missing.
func (c *Column) Present() int {
	n := 0
	for _, cell := range c.Cells {
		if !cell.Missing {
			n++
		}
	}
	return n
}

// Strings returns the textual form of every cell.
func (c *Column) Strings() []string {
	out := make([]string, len(c.Cells))
	for i, cell := range c.Cells {
		out[i] = cell.String()
	}
	return out
}

// Dataset is an ordered set of equally long columns.
type Dataset struct {
	// Name is the base name of the file the dataset was loaded from.
	Name   string
	Format Format
	// Sheet is the spreadsheet sheet the data came from; empty for CSV.
	Sheet string
	// Source is the workbook the data was read from. The spreadsheet writer
	// patches a copy of it so cell styles and untouched values survive.
	Source  string
	Columns []*Column
}

// New builds a dataset from a header and row-major records. Short rows are
// padded with missing cells; empty strings become missing.
func New(name string, header []string, rows [][]string) *Dataset {
	ds := &Dataset{Name: name, Columns: make([]*Column, len(header))}
	for i, h := range header {
		ds.Columns[i] = &Column{Name: h, Cells: make([]Cell, 0, len(rows))}
	}
	for _, rec := range rows {
		for j, col := range ds.Columns {
			if j >= len(rec) || rec[j] == "" {
				col.Cells = append(col.Cells, Missing())
				continue
			}
			col.Cells = append(col.Cells, Value(rec[j]))
		}
	}
	return ds
}

// Rows returns the number of data rows.
func (d *Dataset) Rows() int {
	if len(d.Columns) == 0 {
		return 0
	}
	return len(d.Columns[0].Cells)
}

// Header returns the column names in order.
func (d *Dataset) Header() []string {
	out := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		out[i] = c.Name
	}
	return out
}

// Column returns the column named name, or nil.
func (d *Dataset) Column(name string) *Column {
	for _, c := range d.Columns {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// RequireColumns checks that every name exists and reports all that do not.
func (d *Dataset) RequireColumns(names []string) error {
	var missing []string
	for _, n := range names {
		if d.Column(n) == nil {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return &ColumnNotFoundError{Missing: missing}
	}
	return nil
}

// DefaultColumns lists every column holding at least one non-numeric value, in
// file order. Columns that are entirely missing carry no text and are skipped.
func (d *Dataset) DefaultColumns() []string {
	var out []string
	for _, c := range d.Columns {
		if c.Present() > 0 && !c.Numeric() {
			out = append(out, c.Name)
		}
	}
	return out
}

// Clone returns a deep copy.
func (d *Dataset) Clone() *Dataset {
	out := &Dataset{Name: d.Name, Format: d.Format, Sheet: d.Sheet, Source: d.Source, Columns: make([]*Column, len(d.Columns))}
	for i, c := range d.Columns {
		cells := make([]Cell, len(c.Cells))
		copy(cells, c.Cells)
		out.Columns[i] = &Column{Name: c.Name, Cells: cells}
	}
	return out
}

// ColumnNotFoundError lists requested columns absent from the dataset.
type ColumnNotFoundError struct {
	Missing []string
}

func (e *ColumnNotFoundError) Error() string {
	quoted := make([]string, len(e.Missing))
	for i, m := range e.Missing {
		quoted[i] = fmt.Sprintf("%q", m)
	}
	return fmt.Sprintf("columns not found in dataset: [%s]", strings.Join(quoted, ", "))
}
