package dataset

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

const defaultSheet = "Sheet1"

// sheetCodec handles .xlsx and, when the file is actually OOXML, .xls.
type sheetCodec struct{}

func (sheetCodec) CanHandle(path string) bool {
	p := strings.ToLower(path)
	return strings.HasSuffix(p, ".xlsx") || strings.HasSuffix(p, ".xls")
}

func (sheetCodec) Read(path string, opt LoadOptions) (*Dataset, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		if strings.HasSuffix(strings.ToLower(path), ".xls") {
			return nil, fmt.Errorf("open spreadsheet: legacy binary .xls is not readable, re-save it as .xlsx: %w", err)
		}
		return nil, fmt.Errorf("open spreadsheet: %w", err)
	}
	defer f.Close()

	sheet, err := pickSheet(f, path, opt)
	if err != nil {
		return nil, err
	}
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return &Dataset{Sheet: sheet}, nil
	}

	width := 0
	for _, r := range rows {
		if len(r) > width {
			width = len(r)
		}
	}
	header := make([]string, width)
	copy(header, rows[0])
	header = nameUnnamed(header)

	ds := New("", header, rows[1:])
	ds.Sheet = sheet
	ds.Source = path
	return ds, nil
}

func pickSheet(f *excelize.File, path string, opt LoadOptions) (string, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return "", fmt.Errorf("workbook %q has no sheets", path)
	}
	if opt.SheetName != "" {
		for _, s := range sheets {
			if strings.EqualFold(s, opt.SheetName) {
				return s, nil
			}
		}
		return "", fmt.Errorf("sheet '%s' not found in workbook '%s'.\nAvailable sheets: %s",
			opt.SheetName, path, strings.Join(sheets, ", "))
	}
	idx := opt.SheetIndex
	if idx <= 0 {
		idx = 1
	}
	if idx > len(sheets) {
		return "", fmt.Errorf("sheet index %d out of range: workbook has %d sheet(s)", idx, len(sheets))
	}
	return sheets[idx-1], nil
}

func (c sheetCodec) Encode(ds *Dataset) ([]byte, error) {
	if ds.Source != "" && ds.Sheet != "" {
		return c.patch(ds)
	}
	f := excelize.NewFile()
	defer f.Close()

	sheet := ds.Sheet
	if sheet == "" {
		sheet = defaultSheet
	}
	if sheet != f.GetSheetName(0) {
		if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
			return nil, fmt.Errorf("name sheet: %w", err)
		}
	}

	header := make([]interface{}, len(ds.Columns))
	for i, c := range ds.Columns {
		header[i] = c.Name
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	for i := 0; i < ds.Rows(); i++ {
		row := make([]interface{}, len(ds.Columns))
		for j, c := range ds.Columns {
			row[j] = cellValue(c.Cells[i])
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("encode spreadsheet: %w", err)
	}
	return buf.Bytes(), nil
}

// patch reopens the source workbook and rewrites only the cells whose value
// differs from ds. Everything else, including number formats such as dates,
// is kept as stored.
func (sheetCodec) patch(ds *Dataset) ([]byte, error) {
	f, err := excelize.OpenFile(ds.Source)
	if err != nil {
		return nil, fmt.Errorf("open source workbook: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(ds.Sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", ds.Sheet, err)
	}
	stored := func(r, c int) string {
		if r < len(rows) && c < len(rows[r]) {
			return rows[r][c]
		}
		return ""
	}

	for j, col := range ds.Columns {
		if orig := stored(0, j); orig != "" && orig != col.Name {
			if err := setCell(f, ds.Sheet, j+1, 1, col.Name); err != nil {
				return nil, err
			}
		}
		for i, cell := range col.Cells {
			orig := stored(i+1, j)
			switch {
			case cell.Missing && orig == "":
				continue
			case !cell.Missing && cell.Text == orig:
				continue
			}
			if err := clearFormula(f, ds.Sheet, j+1, i+2); err != nil {
				return nil, err
			}
			if err := setCell(f, ds.Sheet, j+1, i+2, cellValue(cell)); err != nil {
				return nil, err
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("encode spreadsheet: %w", err)
	}
	return buf.Bytes(), nil
}

func setCell(f *excelize.File, sheet string, col, row int, v interface{}) error {
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	if err := f.SetCellValue(sheet, name, v); err != nil {
		return fmt.Errorf("write cell %s: %w", name, err)
	}
	return nil
}

// clearFormula drops a formula so its cached result cannot come back on recalculation.
func clearFormula(f *excelize.File, sheet string, col, row int) error {
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	formula, err := f.GetCellFormula(sheet, name)
	if err != nil || formula == "" {
		return err
	}
	return f.SetCellFormula(sheet, name, "")
}

// cellValue keeps numbers numeric when doing so round-trips the text exactly.
func cellValue(c Cell) interface{} {
	if c.Missing {
		return nil
	}
	if LooksNumeric(c.Text) {
		if v, err := strconv.ParseFloat(c.Text, 64); err == nil && strconv.FormatFloat(v, 'f', -1, 64) == c.Text {
			return v
		}
	}
	return c.Text
}
