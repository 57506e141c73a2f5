// internal/app/system/csvutil/roster.go
package csvutil

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sparktrack/sparktrack/internal/app/system/inputval"
	"github.com/sparktrack/sparktrack/internal/app/system/normalize"
)

// RosterRow is one validated directory record from a roster file.
type RosterRow struct {
	EnrollmentNo string `validate:"required,enrollment,max=32" label:"Enrollment number"`
	FullName     string `validate:"required,max=200" label:"Full name"`
	Class        string `validate:"required,max=50" label:"Class"`
	Contact      string `validate:"omitempty,max=32" label:"Contact"`
	Email        string `validate:"omitempty,email" label:"Email"`
}

// RowError describes why one line was rejected.
type RowError struct {
	Line   int      `json:"line"`
	Reason string   `json:"reason"`
	Raw    []string `json:"-"`
}

// ParseResult holds the accepted rows and the rejected lines of a file.
type ParseResult struct {
	Rows   []RosterRow
	Errors []RowError
}

// HasErrors returns true if any line was rejected.
func (r *ParseResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// Summary renders up to maxShow row errors as plain text. If maxShow is
// <= 0 it defaults to 5.
func (r *ParseResult) Summary(maxShow int) string {
	if len(r.Errors) == 0 {
		return ""
	}
	if maxShow <= 0 {
		maxShow = 5
	}
	if maxShow > len(r.Errors) {
		maxShow = len(r.Errors)
	}

	var b strings.Builder
	b.WriteString(strconv.Itoa(len(r.Errors)))
	b.WriteString(" row(s) are invalid: ")
	for i := 0; i < maxShow; i++ {
		if i > 0 {
			b.WriteString("; ")
		}
		e := r.Errors[i]
		if e.Line > 0 {
			fmt.Fprintf(&b, "line %d: ", e.Line)
		}
		b.WriteString(e.Reason)
	}
	if rest := len(r.Errors) - maxShow; rest > 0 {
		fmt.Fprintf(&b, " ... and %d more", rest)
	}
	return b.String()
}

// ParseRoster reads a student roster:
//
//	enrollment_no,full_name,class[,contact[,email]]
//
// A header row is optional and a UTF-8 BOM is tolerated. Every line is
// validated independently; bad lines land in Errors with their 1-based
// line number and good lines are returned normalized. A file that is not
// well-formed CSV is rejected as a whole, with one error per broken line.
//
// Returns ErrTooManyRows if opts.MaxRows is exceeded.
func ParseRoster(r io.Reader, opts ParseOptions) (ParseResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var raw rawFile
	if err := raw.read(reader, opts); err != nil {
		return ParseResult{}, err
	}

	var out ParseResult
	if len(raw.broken) > 0 {
		out.Errors = raw.broken
		return out, nil
	}

	seen := make(map[string]int) // enrollment -> first line
	for _, rec := range raw.records {
		row, rowErr := parseRosterRow(rec.fields, rec.line)
		if rowErr != nil {
			out.Errors = append(out.Errors, *rowErr)
			continue
		}
		if row == nil {
			continue
		}
		if first, dup := seen[row.EnrollmentNo]; dup {
			out.Errors = append(out.Errors, RowError{
				Line:   rec.line,
				Reason: fmt.Sprintf("duplicate enrollment number (first appears on line %d)", first),
				Raw:    rec.fields,
			})
			continue
		}
		seen[row.EnrollmentNo] = rec.line
		out.Rows = append(out.Rows, *row)
	}
	return out, nil
}

type record struct {
	line   int
	fields []string
}

// rawFile is the line-numbered content of a CSV file before validation.
type rawFile struct {
	records []record
	broken  []RowError
}

func (p *rawFile) read(reader *csv.Reader, opts ParseOptions) error {
	first := true
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			var pe *csv.ParseError
			if !errors.As(err, &pe) {
				return err
			}
			p.broken = append(p.broken, RowError{Line: pe.StartLine, Reason: err.Error()})
			continue
		}
		line, _ := reader.FieldPos(0)

		if first {
			first = false
			rec[0] = strings.TrimPrefix(rec[0], "\ufeff")
			if isRosterHeader(rec) {
				continue
			}
		}

		if opts.MaxRows > 0 && len(p.records) >= opts.MaxRows {
			return ErrTooManyRows
		}
		p.records = append(p.records, record{line: line, fields: rec})
	}
}

// isRosterHeader reports whether rec names columns rather than holding a
// student.
func isRosterHeader(rec []string) bool {
	if len(rec) == 0 {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(rec[0])) {
	case "enrollment_no", "enrollment", "enrollment no", "enrollment number", "enrollmentno", "roll_no":
		return true
	}
	return false
}

// parseRosterRow returns nil,nil for blank lines.
func parseRosterRow(rec []string, line int) (*RosterRow, *RowError) {
	for i := range rec {
		rec[i] = strings.TrimSpace(rec[i])
	}
	if strings.Join(rec, "") == "" {
		return nil, nil
	}
	if len(rec) < 3 {
		return nil, &RowError{
			Line:   line,
			Reason: "row must have at least 3 fields (enrollment_no, full_name, class)",
			Raw:    rec,
		}
	}

	row := RosterRow{
		EnrollmentNo: normalize.Enrollment(rec[0]),
		FullName:     normalize.Name(rec[1]),
		Class:        normalize.Class(rec[2]),
	}
	if len(rec) > 3 {
		row.Contact = rec[3]
	}
	if len(rec) > 4 {
		row.Email = normalize.Email(rec[4])
	}

	if res := inputval.Validate(row); res.HasErrors() {
		return nil, &RowError{Line: line, Reason: res.All(), Raw: rec}
	}
	return &row, nil
}
