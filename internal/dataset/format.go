package dataset

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/llmclean-cli/internal/utils"
)

// Format identifies an on-disk table format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatXLS  Format = "xls"
)

// ErrUnsupported indicates a file extension no codec handles.
var ErrUnsupported = errors.New("unsupported file format")

// UnsupportedFormatError names the offending path.
type UnsupportedFormatError struct {
	Path string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported file format %q: use .csv, .xlsx or .xls", filepath.Ext(e.Path))
}

func (e *UnsupportedFormatError) Unwrap() error { return ErrUnsupported }

// LoadOptions tunes how a file is read.
type LoadOptions struct {
	// Delimiter for CSV. If 0, ',' is used.
	Delimiter rune
	// SheetName selects a spreadsheet sheet by name (case-insensitive).
	SheetName string
	// SheetIndex is a 1-based sheet index used when SheetName is empty.
	SheetIndex int
}

// Codec reads and writes one family of formats.
type Codec interface {
	CanHandle(path string) bool
	Read(path string, opt LoadOptions) (*Dataset, error)
	Encode(ds *Dataset) ([]byte, error)
}

var registry []Codec

// Register adds a codec to the registry.
func Register(c Codec) {
	registry = append(registry, c)
}

func codecFor(path string) (Codec, error) {
	for _, c := range registry {
		if c.CanHandle(path) {
			return c, nil
		}
	}
	return nil, &UnsupportedFormatError{Path: path}
}

// FormatOf returns the format implied by the path's extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	case ".xls":
		return FormatXLS, nil
	}
	return "", &UnsupportedFormatError{Path: path}
}

// Load reads the file at path with the codec matching its extension.
func Load(path string, opt LoadOptions) (*Dataset, error) {
	c, err := codecFor(path)
	if err != nil {
		return nil, err
	}
	ds, err := c.Read(path, opt)
	if err != nil {
		return nil, err
	}
	ds.Name = filepath.Base(path)
	if f, err := FormatOf(path); err == nil {
		ds.Format = f
	}
	return ds, nil
}

// Write encodes ds in the format implied by path and writes it atomically.
func Write(ds *Dataset, path string) error {
	c, err := codecFor(path)
	if err != nil {
		return err
	}
	b, err := c.Encode(ds)
	if err != nil {
		return err
	}
	return utils.SafeWriteFile(path, b)
}

// CleanedPath returns <outDir>/<stem>_cleaned<ext>. An empty outDir means the
// input's own directory.
func CleanedPath(input, outDir string) string {
	base := filepath.Base(input)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if outDir == "" {
		outDir = filepath.Dir(input)
	}
	return filepath.Join(outDir, stem+"_cleaned"+ext)
}

func init() {
	Register(csvCodec{})
	Register(sheetCodec{})
}
