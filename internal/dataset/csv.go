package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

type csvCodec struct{}

func (csvCodec) CanHandle(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".csv")
}

func (csvCodec) Read(path string, opt LoadOptions) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.Comma = ','
	if opt.Delimiter != 0 {
		r.Comma = opt.Delimiter
	}

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return &Dataset{Format: FormatCSV}, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	header = nameUnnamed(header)

	var rows [][]string
	for {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", len(rows)+1, err)
		}
		if len(rec) > len(header) {
			return nil, fmt.Errorf("read row %d: %d fields, header has %d", len(rows)+1, len(rec), len(header))
		}
		rows = append(rows, rec)
	}
	ds := New("", header, rows)
	ds.Format = FormatCSV
	return ds, nil
}

func (csvCodec) Encode(ds *Dataset) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(ds.Header()); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	rec := make([]string, len(ds.Columns))
	for i := 0; i < ds.Rows(); i++ {
		for j, c := range ds.Columns {
			// missing cells become empty fields
			rec[j] = c.Cells[i].Text
		}
		if err := w.Write(rec); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// nameUnnamed fills blank header cells so every column is addressable.
func nameUnnamed(header []string) []string {
	for i, h := range header {
		if strings.TrimSpace(h) == "" {
			header[i] = fmt.Sprintf("Unnamed: %d", i)
		}
	}
	return header
}
