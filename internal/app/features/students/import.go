// internal/app/features/students/import.go
package students

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/sparktrack/sparktrack/internal/app/system/apperr"
	"github.com/sparktrack/sparktrack/internal/app/system/csvutil"
	"github.com/sparktrack/sparktrack/internal/app/system/limits"
	"github.com/sparktrack/sparktrack/internal/app/system/respond"
	"github.com/sparktrack/sparktrack/internal/app/system/timeouts"
	"github.com/sparktrack/sparktrack/internal/domain/models"
	"go.uber.org/zap"
)

type importResult struct {
	Inserted int64              `json:"inserted"`
	Updated  int64              `json:"updated"`
	Rejected int                `json:"rejected"`
	Errors   []csvutil.RowError `json:"errors"`
}

// HandleImport upserts a roster CSV into the directory. The file is sent
// either as the "csv" part of a multipart form or as the raw request body.
// Valid rows are stored even when other rows are rejected.
func (h *Handler) HandleImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxRosterUploadSize)

	src, closeSrc, err := rosterSource(r)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	defer closeSrc()

	parsed, err := csvutil.ParseRoster(src, csvutil.DefaultParseOptions())
	if err != nil {
		var mbe *http.MaxBytesError
		switch {
		case errors.Is(err, csvutil.ErrTooManyRows):
			err = apperr.BadRequest(fmt.Sprintf("CSV file has more than %d rows", csvutil.MaxRows))
		case errors.As(err, &mbe):
			err = apperr.BadRequest("CSV file is too large. Maximum size is 5 MB.")
		default:
			err = apperr.BadRequest("CSV file could not be read")
		}
		respond.Error(w, r, h.Log, err)
		return
	}

	if len(parsed.Rows) == 0 {
		if parsed.HasErrors() {
			respond.Error(w, r, h.Log, apperr.BadRequest(parsed.Summary(5)).
				WithDetails(map[string]any{"row_errors": parsed.Errors}))
			return
		}
		respond.Error(w, r, h.Log, apperr.BadRequest("CSV file has no student rows"))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Batch(), h.Log, "students.import")
	defer cancel()

	recs := make([]models.Student, 0, len(parsed.Rows))
	for _, row := range parsed.Rows {
		recs = append(recs, models.Student{
			EnrollmentNo: row.EnrollmentNo,
			FullName:     row.FullName,
			Class:        row.Class,
			Contact:      row.Contact,
			Email:        row.Email,
		})
	}

	res, err := h.Store.UpsertMany(ctx, recs)
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Internal("failed to import roster", err))
		return
	}

	h.Audit.RosterImported(ctx, int(res.Inserted), int(res.Updated), len(parsed.Errors))
	h.Log.Info("roster imported",
		zap.Int64("inserted", res.Inserted),
		zap.Int64("updated", res.Updated),
		zap.Int("rejected", len(parsed.Errors)))

	errs := parsed.Errors
	if errs == nil {
		errs = []csvutil.RowError{}
	}
	respond.OK(w, "Roster imported", importResult{
		Inserted: res.Inserted,
		Updated:  res.Updated,
		Rejected: len(parsed.Errors),
		Errors:   errs,
	})
}

// rosterSource picks the CSV stream out of the request.
func rosterSource(r *http.Request) (io.Reader, func(), error) {
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if !strings.HasPrefix(mt, "multipart/") {
		return r.Body, func() {}, nil
	}

	file, _, err := r.FormFile("csv")
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return nil, nil, apperr.BadRequest("CSV file is too large. Maximum size is 5 MB.")
		}
		return nil, nil, apperr.BadRequest("CSV file is required")
	}
	return file, func() { _ = file.Close() }, nil
}
