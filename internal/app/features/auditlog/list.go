// internal/app/features/auditlog/list.go
package auditlog

import (
	"net/http"
	"strconv"
	"time"

	"github.com/dalemusser/waffle/pantry/query"
	"github.com/sparktrack/sparktrack/internal/app/store/audit"
	"github.com/sparktrack/sparktrack/internal/app/system/apperr"
	"github.com/sparktrack/sparktrack/internal/app/system/normalize"
	"github.com/sparktrack/sparktrack/internal/app/system/respond"
	"github.com/sparktrack/sparktrack/internal/app/system/timeouts"
	"go.uber.org/zap"
)

const pageSize = 50

const dateLayout = "2006-01-02"

type listResponse struct {
	Items      []audit.Event `json:"items"`
	Total      int64         `json:"total"`
	Page       int           `json:"page"`
	TotalPages int           `json:"total_pages"`
}

// ServeList handles GET /api/audit - lists formation events, newest first.
//
// Query parameters: group_id, student_id, category, event_type,
// start_date and end_date (YYYY-MM-DD, inclusive) and page (1-based).
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	page := 1
	if p, err := strconv.Atoi(query.Get(r, "page")); err == nil && p > 0 {
		page = p
	}

	filter := audit.QueryFilter{
		GroupID:   query.Get(r, "group_id"),
		StudentID: normalize.Enrollment(query.Get(r, "student_id")),
		Category:  query.Get(r, "category"),
		EventType: query.Get(r, "event_type"),
		Limit:     pageSize,
		Offset:    int64((page - 1) * pageSize),
	}

	if s := query.Get(r, "start_date"); s != "" {
		t, err := time.Parse(dateLayout, s)
		if err != nil {
			respond.Error(w, r, h.Log, apperr.BadRequest("start_date must be YYYY-MM-DD"))
			return
		}
		filter.StartTime = &t
	}
	if s := query.Get(r, "end_date"); s != "" {
		t, err := time.Parse(dateLayout, s)
		if err != nil {
			respond.Error(w, r, h.Log, apperr.BadRequest("end_date must be YYYY-MM-DD"))
			return
		}
		// End of day
		endOfDay := t.Add(24*time.Hour - time.Nanosecond)
		filter.EndTime = &endOfDay
	}
	if filter.StartTime != nil && filter.EndTime != nil && filter.EndTime.Before(*filter.StartTime) {
		respond.Error(w, r, h.Log, apperr.BadRequest("end_date is before start_date"))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "audit log list")
	defer cancel()

	events, err := h.Store.Query(ctx, filter)
	if err != nil {
		h.Log.Error("failed to query audit events", zap.Error(err))
		respond.Error(w, r, h.Log, apperr.Internal("failed to list events", err))
		return
	}

	total, err := h.Store.CountByFilter(ctx, filter)
	if err != nil {
		h.Log.Error("failed to count audit events", zap.Error(err))
		respond.Error(w, r, h.Log, apperr.Internal("failed to count events", err))
		return
	}

	totalPages := int((total + pageSize - 1) / pageSize)
	if totalPages < 1 {
		totalPages = 1
	}

	respond.OK(w, "Events retrieved", listResponse{
		Items:      events,
		Total:      total,
		Page:       page,
		TotalPages: totalPages,
	})
}
