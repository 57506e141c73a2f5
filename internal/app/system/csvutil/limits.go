// internal/app/system/csvutil/limits.go
package csvutil

import "errors"

// MaxRows caps the data rows of one roster file.
const MaxRows = 20000

// ErrTooManyRows is returned when a file has more data rows than allowed.
var ErrTooManyRows = errors.New("csv file has too many rows")

// ParseOptions tunes ParseRoster.
type ParseOptions struct {
	// MaxRows caps data rows; 0 means unlimited.
	MaxRows int
}

// DefaultParseOptions returns the limits used by the import endpoint.
func DefaultParseOptions() ParseOptions {
	return ParseOptions{MaxRows: MaxRows}
}
