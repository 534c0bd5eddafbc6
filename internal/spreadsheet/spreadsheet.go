// Package spreadsheet turns uploaded CSV and Excel files into a uniform grid
// of trimmed string cells. Row 0 of a grid is the header row.
package spreadsheet

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

const DefaultMaxBytes int64 = 5 << 20

var (
	ErrFileTooLarge      = errors.New("file too large")
	ErrEmptyInput        = errors.New("spreadsheet has no rows")
	ErrUnsupportedFormat = errors.New("unsupported spreadsheet format")
)

// Grid is a header row followed by data rows. Rows may have differing lengths.
type Grid [][]string

// Cell returns the trimmed cell at (row, col), or "" when out of range.
func (g Grid) Cell(row, col int) string {
	if row < 0 || row >= len(g) || col < 0 || col >= len(g[row]) {
		return ""
	}
	return g[row][col]
}

type Format int

const (
	FormatUnknown Format = iota
	FormatCSV
	FormatWorkbook
)

func (f Format) String() string {
	switch f {
	case FormatCSV:
		return "csv"
	case FormatWorkbook:
		return "workbook"
	default:
		return "unknown"
	}
}

type Options struct {
	FileName    string
	ContentType string
	// MaxBytes defaults to DefaultMaxBytes when zero.
	MaxBytes int64
}

var csvContentTypes = map[string]bool{
	"text/csv":                    true,
	"application/csv":             true,
	"text/comma-separated-values": true,
	"text/plain":                  true,
}

var workbookContentTypes = map[string]bool{
	"application/vnd.ms-excel": true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": true,
}

// DetectFormat picks a parser from the file extension first and the declared
// media type second.
func DetectFormat(fileName, contentType string) Format {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".csv":
		return FormatCSV
	case ".xlsx", ".xls", ".xlsm":
		return FormatWorkbook
	}

	mediaType := strings.ToLower(strings.TrimSpace(contentType))
	if idx := strings.Index(mediaType, ";"); idx >= 0 {
		mediaType = strings.TrimSpace(mediaType[:idx])
	}
	if csvContentTypes[mediaType] {
		return FormatCSV
	}
	if workbookContentTypes[mediaType] {
		return FormatWorkbook
	}
	return FormatUnknown
}

// Parse enforces the size ceiling, selects a parser and returns the grid.
func Parse(data []byte, opts Options) (Grid, error) {
	limit := opts.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxBytes
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: %d bytes exceeds the %d byte limit", ErrFileTooLarge, len(data), limit)
	}
	if len(data) == 0 {
		return nil, ErrEmptyInput
	}

	var (
		grid Grid
		err  error
	)
	switch DetectFormat(opts.FileName, opts.ContentType) {
	case FormatCSV:
		grid = ParseCSV(data)
	case FormatWorkbook:
		grid, err = ParseWorkbook(data)
	default:
		grid, err = ParseWorkbook(data)
		if err != nil {
			if !utf8.Valid(data) && !looksLikeText(data) {
				return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
			}
			grid, err = ParseCSV(data), nil
		}
	}
	if err != nil {
		return nil, err
	}
	if len(grid) == 0 {
		return nil, ErrEmptyInput
	}
	return grid, nil
}

// looksLikeText accepts single-byte encoded text (no NUL and few control bytes).
func looksLikeText(data []byte) bool {
	control := 0
	for _, b := range data {
		if b == 0 {
			return false
		}
		if b < 0x20 && b != '\n' && b != '\r' && b != '\t' {
			control++
		}
	}
	return control*20 < len(data)
}
