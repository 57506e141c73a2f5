// internal/app/features/groups/groupview.go
package groups

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sparktrack/sparktrack/internal/app/policy/formationpolicy"
	"github.com/sparktrack/sparktrack/internal/app/system/apperr"
	"github.com/sparktrack/sparktrack/internal/app/system/auth"
	"github.com/sparktrack/sparktrack/internal/app/system/respond"
	"github.com/sparktrack/sparktrack/internal/domain/models"
)

type groupView struct {
	Group   models.FinalGroup         `json:"group"`
	Members []models.FinalGroupMember `json:"members"`
}

// ServeGroupView returns a finalized group's header and member rows.
// Students may only read groups they belong to.
func (h *Handler) ServeGroupView(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.CurrentUser(r)

	g, members, err := h.Svc.FinalGroup(r.Context(), chi.URLParam(r, "groupId"))
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if !formationpolicy.CanViewFinalGroup(id, members) {
		respond.Error(w, r, h.Log, apperr.Forbidden("you do not have access to this group"))
		return
	}
	respond.OK(w, "Group retrieved", groupView{Group: g, Members: members})
}
