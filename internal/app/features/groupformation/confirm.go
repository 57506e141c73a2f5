// internal/app/features/groupformation/confirm.go
package groupformation

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sparktrack/sparktrack/internal/app/policy/formationpolicy"
	"github.com/sparktrack/sparktrack/internal/app/system/respond"
)

// HandleConfirm finalizes a draft into a permanent group.
func (h *Handler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
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

	res, err := h.Svc.ConfirmGroup(r.Context(), d.GroupID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond.OK(w, "Group finalized", res)
}
