package spreadsheet

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ParseCSV splits comma separated text into a grid. Quoted fields containing
// commas are not supported; one layer of enclosing quotes is stripped from
// each cell. Blank lines are dropped.
func ParseCSV(data []byte) Grid {
	text := decodeText(data)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	grid := Grid{}
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, ",")
		row := make([]string, len(fields))
		for i, field := range fields {
			row[i] = unquote(strings.TrimSpace(field))
		}
		grid = append(grid, row)
	}
	return grid
}

// decodeText strips a UTF-8 BOM and falls back to Windows-1252, a superset of
// Latin-1 that spreadsheet exports commonly use, when the bytes are not UTF-8.
func decodeText(data []byte) string {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return string(data)
	}
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return strings.ToValidUTF8(string(data), "")
	}
	return string(decoded)
}

func unquote(s string) string {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '"' || first == '\'') && first == last {
			return strings.TrimSpace(s[1 : len(s)-1])
		}
	}
	return s
}
