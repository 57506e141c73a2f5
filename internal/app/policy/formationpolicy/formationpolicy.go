// internal/app/policy/formationpolicy/formationpolicy.go
package formationpolicy

import (
	"strings"

	"github.com/sparktrack/sparktrack/internal/app/system/auth"
	"github.com/sparktrack/sparktrack/internal/domain/models"
)

func isAdmin(id *auth.Identity) bool  { return id.IsRole(models.RoleAdmin) }
func isMentor(id *auth.Identity) bool { return id.IsRole(models.RoleMentor) }

func isSelf(id *auth.Identity, enrollment string) bool {
	return id.IsRole(models.RoleStudent) && strings.EqualFold(id.ID, strings.TrimSpace(enrollment))
}

// CanCreateDraft reports whether the caller may open a draft led by leaderID:
// - Admins always can
// - Students only for themselves
func CanCreateDraft(id *auth.Identity, leaderID string) bool {
	return isAdmin(id) || isSelf(id, leaderID)
}

// CanManageDraft reports whether the caller may invite into, confirm or
// cancel d. Only admins and the draft's leader can.
func CanManageDraft(id *auth.Identity, d models.Draft) bool {
	return isAdmin(id) || isSelf(id, d.LeaderID)
}

// CanViewDraft reports whether the caller may read d:
// - Admins and mentors always can
// - The leader can
// - A student invited into the draft can
func CanViewDraft(id *auth.Identity, d models.Draft, requests []models.Invitation) bool {
	if isAdmin(id) || isMentor(id) || isSelf(id, d.LeaderID) {
		return true
	}
	for _, r := range requests {
		if isSelf(id, r.StudentID) {
			return true
		}
	}
	return false
}

// CanRespond reports whether the caller may accept or reject inv.
// Only the invitee (or an admin acting for them) can.
func CanRespond(id *auth.Identity, inv models.Invitation) bool {
	return isAdmin(id) || isSelf(id, inv.StudentID)
}

// CanViewStudent reports whether the caller may read listings keyed by a
// student's enrollment number (their drafts, invitations, directory record).
func CanViewStudent(id *auth.Identity, enrollment string) bool {
	return isAdmin(id) || isMentor(id) || isSelf(id, enrollment)
}

// CanViewFinalGroup reports whether the caller may read a finalized group.
func CanViewFinalGroup(id *auth.Identity, members []models.FinalGroupMember) bool {
	if isAdmin(id) || isMentor(id) {
		return true
	}
	for _, m := range members {
		if isSelf(id, m.MemberID) {
			return true
		}
	}
	return false
}
