package points

import (
	"errors"
	"strings"
)

var (
	ErrNoValidRecords   = errors.New("no valid records found")
	ErrTooManyRecords   = errors.New("too many records")
	ErrDuplicateImport  = errors.New("file already imported for this organization")
	ErrInvalidDocument  = errors.New("invalid CPF")
	ErrAccountNotFound  = errors.New("account not found")
	ErrJobNotFound      = errors.New("import job not found")
	ErrJobAlreadyClosed = errors.New("import job already finalized")
)

// MissingColumnsError reports which required header roles could not be found.
type MissingColumnsError struct {
	Missing []string
}

func (e *MissingColumnsError) Error() string {
	return "missing required columns: " + strings.Join(e.Missing, ", ")
}

// IsInputError reports whether err was caused by the uploaded file rather than
// by the platform.
func IsInputError(err error) bool {
	var missing *MissingColumnsError
	return errors.As(err, &missing) ||
		errors.Is(err, ErrNoValidRecords) ||
		errors.Is(err, ErrTooManyRecords)
}
