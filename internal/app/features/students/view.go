// internal/app/features/students/view.go
package students

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sparktrack/sparktrack/internal/app/policy/formationpolicy"
	studentstore "github.com/sparktrack/sparktrack/internal/app/store/students"
	"github.com/sparktrack/sparktrack/internal/app/system/apperr"
	"github.com/sparktrack/sparktrack/internal/app/system/auth"
	"github.com/sparktrack/sparktrack/internal/app/system/normalize"
	"github.com/sparktrack/sparktrack/internal/app/system/respond"
	"github.com/sparktrack/sparktrack/internal/app/system/timeouts"
)

// ServeStudent returns one directory record.
func (h *Handler) ServeStudent(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.CurrentUser(r)
	enrollment := normalize.Enrollment(chi.URLParam(r, "enrollmentNo"))
	if !formationpolicy.CanViewStudent(id, enrollment) {
		respond.Error(w, r, h.Log, apperr.Forbidden("you do not have access to this resource"))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "students.get")
	defer cancel()

	st, err := h.Store.GetByEnrollment(ctx, enrollment)
	if errors.Is(err, studentstore.ErrNotFound) {
		respond.Error(w, r, h.Log, apperr.NotFound("student not found"))
		return
	}
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Internal("failed to load student", err))
		return
	}
	respond.OK(w, "Student retrieved", st)
}
