// Package cleaner replaces placeholder values with missing cells.
package cleaner

import (
	"github.com/shopspring/decimal"

	"github.com/KaramelBytes/llmclean-cli/internal/dataset"
)

// CanonicalKey is the form both cells and placeholders are compared in.
// Numeric literals are normalized so "1.0", "1" and "1e0" share a key.
func CanonicalKey(s string) string {
	if dataset.LooksNumeric(s) {
		if d, err := decimal.NewFromString(s); err == nil {
			return "num:" + d.String()
		}
	}
	return "str:" + s
}

type keySet map[string]struct{}

func newKeySet(values []string) keySet {
	set := make(keySet, len(values))
	for _, v := range values {
		set[CanonicalKey(v)] = struct{}{}
	}
	return set
}

func (k keySet) has(c dataset.Cell) bool {
	_, ok := k[CanonicalKey(c.String())]
	return ok
}

// Clean returns a copy of ds where every cell of the given columns that
// matches a placeholder is missing. Other columns are copied unchanged.
func Clean(ds *dataset.Dataset, placeholders []string, columns []string) (*dataset.Dataset, error) {
	out, _, err := CleanCounted(ds, placeholders, columns)
	return out, err
}

// CleanCounted is Clean plus the number of cells replaced per column.
func CleanCounted(ds *dataset.Dataset, placeholders []string, columns []string) (*dataset.Dataset, map[string]int, error) {
	if err := ds.RequireColumns(columns); err != nil {
		return nil, nil, err
	}
	out := ds.Clone()
	replaced := make(map[string]int, len(columns))
	set := newKeySet(placeholders)
	for _, name := range columns {
		if _, done := replaced[name]; done {
			continue
		}
		replaced[name] = 0
		col := out.Column(name)
		for i, c := range col.Cells {
			if c.Missing || !set.has(c) {
				continue
			}
			col.Cells[i] = dataset.Missing()
			replaced[name]++
		}
	}
	return out, replaced, nil
}

// Residuals counts, per column, present cells that still match a placeholder.
// Missing cells never count, even when "nan" is itself a placeholder.
func Residuals(ds *dataset.Dataset, placeholders []string, columns []string) map[string]int {
	set := newKeySet(placeholders)
	out := make(map[string]int, len(columns))
	for _, name := range columns {
		col := ds.Column(name)
		if col == nil {
			continue
		}
		n := 0
		for _, c := range col.Cells {
			if !c.Missing && set.has(c) {
				n++
			}
		}
		out[name] = n
	}
	return out
}
