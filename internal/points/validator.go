package points

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/samuelozorio/nextpage-mvp-sub000/internal/spreadsheet"
)

// Synonyms lists the header fragments that identify each column. Matching is
// by substring against the lower-cased header with diacritics removed.
type Synonyms struct {
	Document []string
	Points   []string
	Name     []string
	Email    []string
}

func DefaultSynonyms() Synonyms {
	return Synonyms{
		Document: []string{"cpf", "documento", "document"},
		Points:   []string{"ponto", "credito", "valor"},
		Name:     []string{"nome", "name"},
		Email:    []string{"email", "e-mail"},
	}
}

// WithDefaults fills empty lists from DefaultSynonyms.
func (s Synonyms) WithDefaults() Synonyms {
	def := DefaultSynonyms()
	if len(s.Document) == 0 {
		s.Document = def.Document
	}
	if len(s.Points) == 0 {
		s.Points = def.Points
	}
	if len(s.Name) == 0 {
		s.Name = def.Name
	}
	if len(s.Email) == 0 {
		s.Email = def.Email
	}
	return s
}

// Columns holds header indexes; -1 means absent.
type Columns struct {
	Document int
	Points   int
	Name     int
	Email    int
}

type Validation struct {
	Columns Columns
	Records []Record
	Skipped []SkippedRow
}

const (
	reasonInvalidDocument = "invalid CPF"
	reasonInvalidPoints   = "points must be a positive integer"
)

// LocateColumns finds the first header matching each role.
func LocateColumns(header []string, syn Synonyms) (Columns, error) {
	syn = syn.WithDefaults()
	normalized := make([]string, len(header))
	for i, h := range header {
		normalized[i] = NormalizeHeader(h)
	}

	cols := Columns{
		Document: findColumn(normalized, syn.Document),
		Points:   findColumn(normalized, syn.Points),
		Name:     findColumn(normalized, syn.Name),
		Email:    findColumn(normalized, syn.Email),
	}

	var missing []string
	if cols.Document < 0 {
		missing = append(missing, "document (CPF)")
	}
	if cols.Points < 0 {
		missing = append(missing, "points")
	}
	if len(missing) > 0 {
		return cols, &MissingColumnsError{Missing: missing}
	}
	return cols, nil
}

func findColumn(headers, synonyms []string) int {
	for i, h := range headers {
		if h == "" {
			continue
		}
		for _, s := range synonyms {
			if s = NormalizeHeader(s); s != "" && strings.Contains(h, s) {
				return i
			}
		}
	}
	return -1
}

// NormalizeHeader lower-cases, trims and strips combining marks, so
// "Crédito" and "credito" compare equal.
func NormalizeHeader(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}

// Validate maps grid rows to records. Rows without an 11 digit document or a
// positive points value are returned in Skipped; blank rows are ignored.
func Validate(grid spreadsheet.Grid, syn Synonyms) (Validation, error) {
	if len(grid) == 0 {
		return Validation{}, ErrNoValidRecords
	}
	cols, err := LocateColumns(grid[0], syn)
	if err != nil {
		return Validation{}, err
	}

	v := Validation{Columns: cols}
	for i := 1; i < len(grid); i++ {
		if blankRow(grid[i]) {
			continue
		}
		row := i + 1
		digits := DocumentDigits(grid.Cell(i, cols.Document))
		points := ParsePoints(grid.Cell(i, cols.Points))

		switch {
		case len(digits) != documentLength:
			v.Skipped = append(v.Skipped, SkippedRow{Row: row, DocumentID: digits, Reason: reasonInvalidDocument})
			continue
		case points <= 0:
			v.Skipped = append(v.Skipped, SkippedRow{Row: row, DocumentID: digits, Reason: reasonInvalidPoints})
			continue
		}

		v.Records = append(v.Records, Record{
			Row:        row,
			DocumentID: digits,
			Points:     points,
			FullName:   grid.Cell(i, cols.Name),
			Email:      grid.Cell(i, cols.Email),
		})
	}

	if len(v.Records) == 0 {
		return v, ErrNoValidRecords
	}
	return v, nil
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// ParsePoints reads the leading optionally signed integer of s. "100.5"
// yields 100 and text without a leading number yields 0.
func ParsePoints(s string) int64 {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digitsStart := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digitsStart {
		return 0
	}
	n, err := strconv.ParseInt(s[:end], 10, 64)
	if err != nil {
		return 0
	}
	return n
}
