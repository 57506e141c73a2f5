// internal/app/features/groupformation/invite.go
package groupformation

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sparktrack/sparktrack/internal/app/formation"
	"github.com/sparktrack/sparktrack/internal/app/policy/formationpolicy"
	"github.com/sparktrack/sparktrack/internal/app/system/normalize"
	"github.com/sparktrack/sparktrack/internal/app/system/respond"
	"github.com/sparktrack/sparktrack/internal/domain/models"
)

type inviteRequest struct {
	GroupID     string   `json:"group_id" validate:"required" label:"group_id"`
	Enrollments []string `json:"enrollments" validate:"required,min=1,dive,enrollment" label:"enrollments"`
}

type inviteResponse struct {
	Sent     int                 `json:"sent"`
	Requests []models.Invitation `json:"requests"`
}

type respondRequest struct {
	RequestID string `json:"request_id" validate:"required" label:"request_id"`
	Status    string `json:"status" validate:"required,oneof=accepted rejected" label:"status"`
}

// HandleInvite sends invitations from a draft to a batch of candidates.
func (h *Handler) HandleInvite(w http.ResponseWriter, r *http.Request) {
	id, ok := h.caller(w, r)
	if !ok {
		return
	}

	var body inviteRequest
	if err := respond.DecodeJSON(w, r, &body); err != nil {
		h.fail(w, r, err)
		return
	}
	if !h.valid(w, r, body) {
		return
	}

	d, err := h.Svc.Draft(r.Context(), body.GroupID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !formationpolicy.CanManageDraft(id, d) {
		h.fail(w, r, forbidden())
		return
	}

	invs, err := h.Svc.SendInvitations(r.Context(), d.GroupID, body.Enrollments)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond.Created(w, "Invitations sent", inviteResponse{Sent: len(invs), Requests: invs})
}

// ServeStudentInvitations lists a student's pending and accepted invitations.
func (h *Handler) ServeStudentInvitations(w http.ResponseWriter, r *http.Request) {
	id, ok := h.caller(w, r)
	if !ok {
		return
	}

	enrollment := chi.URLParam(r, "enrollmentNo")
	if !formationpolicy.CanViewStudent(id, enrollment) {
		h.fail(w, r, forbidden())
		return
	}

	views, err := h.Svc.InvitationsForStudent(r.Context(), enrollment)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond.OK(w, "Invitations retrieved", views)
}

// HandleRespond accepts or rejects an invitation on behalf of its recipient.
func (h *Handler) HandleRespond(w http.ResponseWriter, r *http.Request) {
	id, ok := h.caller(w, r)
	if !ok {
		return
	}

	var body respondRequest
	if err := respond.DecodeJSON(w, r, &body); err != nil {
		h.fail(w, r, err)
		return
	}
	body.Status = normalize.Decision(body.Status)
	if !h.valid(w, r, body) {
		return
	}
	decision, err := formation.ParseDecision(body.Status)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	inv, err := h.Svc.Invitation(r.Context(), body.RequestID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !formationpolicy.CanRespond(id, inv) {
		h.fail(w, r, forbidden())
		return
	}

	inv, err = h.Svc.Respond(r.Context(), inv.RequestID, decision)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	msg := "Invitation accepted"
	if decision == formation.DecisionReject {
		msg = "Invitation rejected"
	}
	respond.OK(w, msg, inv)
}
