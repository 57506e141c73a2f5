// internal/app/features/students/list.go
package students

import (
	"net/http"

	"github.com/dalemusser/waffle/pantry/query"
	studentstore "github.com/sparktrack/sparktrack/internal/app/store/students"
	"github.com/sparktrack/sparktrack/internal/app/system/apperr"
	"github.com/sparktrack/sparktrack/internal/app/system/normalize"
	"github.com/sparktrack/sparktrack/internal/app/system/paging"
	"github.com/sparktrack/sparktrack/internal/app/system/respond"
	"github.com/sparktrack/sparktrack/internal/app/system/timeouts"
	"github.com/sparktrack/sparktrack/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type listResponse struct {
	Items []models.Student `json:"items"`
	Total int64            `json:"total"`
	paging.Page
}

// ServeList handles GET /api/students - the directory in name order.
//
// Query parameters: class (exact label), q (name prefix) and the keyset
// cursors after / before taken from a previous response.
// Authorization: RequireRole(admin, mentor) in routes.go.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	filter := studentstore.ListFilter{
		Class:      normalize.Class(query.Get(r, "class")),
		NamePrefix: query.Search(r, "q"),
	}
	after := query.Get(r, "after")
	before := query.Get(r, "before")

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "students.list")
	defer cancel()

	total, err := h.Store.CountFiltered(ctx, filter)
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Internal("failed to count students", err))
		return
	}

	cfg := paging.ConfigureKeyset(before, after)
	rows, err := h.Store.List(ctx, filter, cfg)
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Internal("failed to list students", err))
		return
	}

	page := paging.Finish(&rows, cfg, before, after,
		func(s models.Student) string { return s.FullNameCI },
		func(s models.Student) primitive.ObjectID { return s.ID },
	)

	respond.OK(w, "Students retrieved", listResponse{
		Items: rows,
		Total: total,
		Page:  page,
	})
}
