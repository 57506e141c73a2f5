// internal/app/features/groupformation/draft.go
package groupformation

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/sparktrack/sparktrack/internal/app/formation"
	"github.com/sparktrack/sparktrack/internal/app/policy/formationpolicy"
	"github.com/sparktrack/sparktrack/internal/app/system/respond"
	"github.com/sparktrack/sparktrack/internal/domain/models"
)

type createDraftRequest struct {
	LeaderEnrollment string  `json:"leader_enrollment" validate:"required,enrollment" label:"leader_enrollment"`
	TeamName         string  `json:"team_name" validate:"required,max=100" label:"team_name"`
	PreviousPSID     *string `json:"previous_ps_id" validate:"omitempty,max=64" label:"previous_ps_id"`
}

// HandleCreateDraft opens a draft. A student who omits leader_enrollment
// creates the draft for themselves.
func (h *Handler) HandleCreateDraft(w http.ResponseWriter, r *http.Request) {
	id, ok := h.caller(w, r)
	if !ok {
		return
	}

	var body createDraftRequest
	if err := respond.DecodeJSON(w, r, &body); err != nil {
		h.fail(w, r, err)
		return
	}
	if strings.TrimSpace(body.LeaderEnrollment) == "" && id.IsRole(models.RoleStudent) {
		body.LeaderEnrollment = id.ID
	}
	if !h.valid(w, r, body) {
		return
	}
	if !formationpolicy.CanCreateDraft(id, body.LeaderEnrollment) {
		h.fail(w, r, forbidden())
		return
	}

	d, err := h.Svc.CreateDraft(r.Context(), formation.CreateDraftInput{
		LeaderID:     body.LeaderEnrollment,
		TeamName:     body.TeamName,
		PreviousPSID: body.PreviousPSID,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond.Created(w, "Draft group created", d)
}

// ServeLeaderDrafts lists the open drafts led by a student.
func (h *Handler) ServeLeaderDrafts(w http.ResponseWriter, r *http.Request) {
	id, ok := h.caller(w, r)
	if !ok {
		return
	}

	enrollment := chi.URLParam(r, "enrollmentNo")
	if !formationpolicy.CanViewStudent(id, enrollment) {
		h.fail(w, r, forbidden())
		return
	}

	drafts, err := h.Svc.DraftsByLeader(r.Context(), enrollment)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond.OK(w, "Drafts retrieved", drafts)
}

// ServeDraft returns one draft with its requests and stats.
func (h *Handler) ServeDraft(w http.ResponseWriter, r *http.Request) {
	id, ok := h.caller(w, r)
	if !ok {
		return
	}

	detail, err := h.Svc.DraftByID(r.Context(), chi.URLParam(r, "groupId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !formationpolicy.CanViewDraft(id, detail.Draft, detail.Requests) {
		h.fail(w, r, forbidden())
		return
	}
	respond.OK(w, "Draft retrieved", detail)
}

// HandleCancelDraft deletes a draft and its invitations.
func (h *Handler) HandleCancelDraft(w http.ResponseWriter, r *http.Request) {
	id, ok := h.caller(w, r)
	if !ok {
		return
	}

	groupID := chi.URLParam(r, "groupId")
	d, err := h.Svc.Draft(r.Context(), groupID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !formationpolicy.CanManageDraft(id, d) {
		h.fail(w, r, forbidden())
		return
	}

	res, err := h.Svc.CancelDraft(r.Context(), groupID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond.OK(w, "Draft group cancelled", res)
}
