package formation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	draftstore "github.com/sparktrack/sparktrack/internal/app/store/drafts"
	invitationstore "github.com/sparktrack/sparktrack/internal/app/store/invitations"
	"github.com/sparktrack/sparktrack/internal/app/system/apperr"
	"github.com/sparktrack/sparktrack/internal/app/system/normalize"
	"github.com/sparktrack/sparktrack/internal/app/system/timeouts"
	"github.com/sparktrack/sparktrack/internal/domain/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Violation reasons reported per candidate by SendInvitations.
const (
	ReasonDuplicate     = "listed more than once"
	ReasonLeader        = "cannot invite the group leader"
	ReasonUnknown       = "not found in student directory"
	ReasonActiveInvite  = "already has an active invitation"
	ReasonAlreadyMember = "already a member of a finalized group"
)

// Decisions accepted by Respond.
const (
	DecisionAccept = "accepted"
	DecisionReject = "rejected"
)

// InvitationView is an invitation as its recipient sees it.
type InvitationView struct {
	models.Invitation
	TeamName   string `json:"team_name"`
	LeaderID   string `json:"leader_id"`
	LeaderName string `json:"leader_name,omitempty"`
}

// SendInvitations invites every candidate to the draft, or none of them.
func (s *Service) SendInvitations(ctx context.Context, groupID string, candidates []string) (invs []models.Invitation, err error) {
	defer func() { s.observe("send_invitations", err) }()

	groupID = strings.TrimSpace(groupID)
	if groupID == "" {
		return nil, apperr.BadRequest("group_id is required")
	}
	ids := normalize.Enrollments(candidates)
	if len(ids) == 0 {
		return nil, apperr.BadRequest("at least one enrollment number is required")
	}

	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Medium(), s.log, "formation.send_invitations")
	defer cancel()

	d, err := s.drafts.GetByGroupID(ctx, groupID)
	if err != nil {
		if errors.Is(err, draftstore.ErrNotFound) {
			return nil, apperr.NotFound("draft not found")
		}
		return nil, apperr.Internal("failed to load draft", err)
	}
	if d.Status != models.DraftStatusDraft {
		return nil, apperr.BadRequest("group is not in draft status")
	}

	items, err := s.validateCandidates(ctx, d, ids)
	if err != nil {
		return nil, err
	}
	if len(items) > 0 {
		return nil, apperr.Invalid("one or more candidates cannot be invited", items)
	}

	if s.cfg.MaxTeamSize > 0 {
		existing, err := s.invites.ListByGroup(ctx, d.GroupID)
		if err != nil {
			return nil, apperr.Internal("failed to list invitations", err)
		}
		if 1+len(existing)+len(ids) > s.cfg.MaxTeamSize {
			return nil, apperr.BadRequest(fmt.Sprintf("team size limit is %d members including the leader", s.cfg.MaxTeamSize)).
				WithDetails(map[string]any{
					"max_team_size":      s.cfg.MaxTeamSize,
					"active_invitations": len(existing),
					"requested":          len(ids),
				})
		}
	}

	res, err := s.tx.Do(ctx, func(tc context.Context) error {
		out, err := s.invites.InsertMany(tc, d.GroupID, ids)
		invs = out
		return err
	})
	if err != nil {
		if !res.Atomic && len(invs) > 0 {
			s.discardInvitations(ctx, invs)
		}
		if errors.Is(err, invitationstore.ErrActiveInvitation) {
			return nil, apperr.ConflictFrom("a candidate was invited concurrently; no invitations were sent", err)
		}
		return nil, apperr.Internal("failed to send invitations", err)
	}

	s.audit.InvitationsSent(ctx, d.GroupID, ids)
	return invs, nil
}

// validateCandidates looks every candidate up concurrently and returns all
// violations, in candidate order.
func (s *Service) validateCandidates(ctx context.Context, d models.Draft, ids []string) ([]apperr.Item, error) {
	var (
		known     = make(map[string]bool, len(ids))
		active    map[string]bool
		finalized map[string]string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		students, err := s.directory.FindByEnrollments(gctx, ids)
		for _, st := range students {
			known[st.EnrollmentNo] = true
		}
		return err
	})
	g.Go(func() error {
		var err error
		active, err = s.invites.ActiveAmong(gctx, ids)
		return err
	})
	g.Go(func() error {
		var err error
		finalized, err = s.finals.FinalizedAmong(gctx, ids)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, apperr.Internal("failed to validate candidates", err)
	}

	counts := make(map[string]int, len(ids))
	for _, id := range ids {
		counts[id]++
	}

	var items []apperr.Item
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true

		if counts[id] > 1 {
			items = append(items, apperr.Item{Candidate: id, Reason: ReasonDuplicate})
		}
		if id == d.LeaderID {
			items = append(items, apperr.Item{Candidate: id, Reason: ReasonLeader})
			continue
		}
		if !known[id] {
			items = append(items, apperr.Item{Candidate: id, Reason: ReasonUnknown})
		}
		if active[id] {
			items = append(items, apperr.Item{Candidate: id, Reason: ReasonActiveInvite})
		}
		if _, ok := finalized[id]; ok {
			items = append(items, apperr.Item{Candidate: id, Reason: ReasonAlreadyMember})
		}
	}
	return items, nil
}

// discardInvitations removes a partially inserted batch when no
// transaction protected it.
func (s *Service) discardInvitations(ctx context.Context, invs []models.Invitation) {
	ids := make([]string, 0, len(invs))
	for _, inv := range invs {
		ids = append(ids, inv.RequestID)
	}
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeouts.Short())
	defer cancel()
	if _, err := s.invites.DeleteByRequestIDs(cctx, ids); err != nil {
		s.log.Error("failed to discard partial invitation batch",
			zap.Strings("request_ids", ids),
			zap.Error(err))
	}
}

// Respond applies a recipient's decision. Reject deletes the invitation.
func (s *Service) Respond(ctx context.Context, requestID, decision string) (inv models.Invitation, err error) {
	defer func() { s.observe("respond", err) }()

	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return models.Invitation{}, apperr.BadRequest("request_id is required")
	}
	dec, err := ParseDecision(decision)
	if err != nil {
		return models.Invitation{}, err
	}

	inv, err = s.Invitation(ctx, requestID)
	if err != nil {
		return models.Invitation{}, err
	}

	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Short(), s.log, "formation.respond")
	defer cancel()

	if dec == DecisionReject {
		n, err := s.invites.Delete(ctx, requestID)
		if err != nil {
			return models.Invitation{}, apperr.Internal("failed to reject invitation", err)
		}
		if n == 0 {
			return models.Invitation{}, apperr.NotFound("invitation not found")
		}
		s.audit.InvitationRejected(ctx, inv.GroupID, inv.StudentID, inv.RequestID)
		inv.Status = models.InvitationStatusRejected
		at := s.now().UTC()
		inv.RespondedAt = &at
		return inv, nil
	}

	if inv.Status == models.InvitationStatusAccepted {
		return models.Invitation{}, apperr.BadRequest("invitation already accepted")
	}
	at := s.now().UTC()
	if err := s.invites.Accept(ctx, requestID, at); err != nil {
		if errors.Is(err, invitationstore.ErrNotPending) {
			return models.Invitation{}, apperr.BadRequest("invitation is no longer pending")
		}
		return models.Invitation{}, apperr.Internal("failed to accept invitation", err)
	}
	s.audit.InvitationAccepted(ctx, inv.GroupID, inv.StudentID, inv.RequestID)
	inv.Status = models.InvitationStatusAccepted
	inv.RespondedAt = &at
	return inv, nil
}

// ParseDecision canonicalizes a response decision. Both the verb and the
// past-tense status forms are accepted.
func ParseDecision(decision string) (string, error) {
	switch normalize.Decision(decision) {
	case "accept", DecisionAccept:
		return DecisionAccept, nil
	case "reject", DecisionReject:
		return DecisionReject, nil
	default:
		return "", apperr.BadRequest(`status must be "accepted" or "rejected"`)
	}
}

// Invitation returns one invitation by request id.
func (s *Service) Invitation(ctx context.Context, requestID string) (models.Invitation, error) {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return models.Invitation{}, apperr.BadRequest("request_id is required")
	}

	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Short(), s.log, "formation.invitation")
	defer cancel()

	inv, err := s.invites.GetByRequestID(ctx, requestID)
	if err != nil {
		if errors.Is(err, invitationstore.ErrNotFound) {
			return models.Invitation{}, apperr.NotFound("invitation not found")
		}
		return models.Invitation{}, apperr.Internal("failed to load invitation", err)
	}
	return inv, nil
}

// InvitationsForStudent lists a student's pending and accepted invitations
// with the inviting team. Invitations whose draft is gone are skipped.
func (s *Service) InvitationsForStudent(ctx context.Context, studentID string) ([]InvitationView, error) {
	student := normalize.Enrollment(studentID)
	if student == "" {
		return nil, apperr.BadRequest("enrollment number is required")
	}

	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Medium(), s.log, "formation.invitations_for_student")
	defer cancel()

	invs, err := s.invites.ListActiveByStudent(ctx, student)
	if err != nil {
		return nil, apperr.Internal("failed to list invitations", err)
	}

	out := make([]InvitationView, 0, len(invs))
	var leaders []string
	for _, inv := range invs {
		d, err := s.drafts.GetByGroupID(ctx, inv.GroupID)
		if err != nil {
			if errors.Is(err, draftstore.ErrNotFound) {
				continue
			}
			return nil, apperr.Internal("failed to load draft", err)
		}
		out = append(out, InvitationView{Invitation: inv, TeamName: d.TeamName, LeaderID: d.LeaderID})
		leaders = append(leaders, d.LeaderID)
	}

	if len(leaders) > 0 {
		students, err := s.directory.FindByEnrollments(ctx, leaders)
		if err != nil {
			return nil, apperr.Internal("failed to look up leaders", err)
		}
		names := make(map[string]string, len(students))
		for _, st := range students {
			names[st.EnrollmentNo] = st.FullName
		}
		for i := range out {
			out[i].LeaderName = names[out[i].LeaderID]
		}
	}
	return out, nil
}

// RequestsByGroup lists every invitation a draft has issued.
func (s *Service) RequestsByGroup(ctx context.Context, groupID string) ([]models.Invitation, error) {
	groupID = strings.TrimSpace(groupID)
	if groupID == "" {
		return nil, apperr.BadRequest("group_id is required")
	}

	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Short(), s.log, "formation.requests_by_group")
	defer cancel()

	invs, err := s.invites.ListByGroup(ctx, groupID)
	if err != nil {
		return nil, apperr.Internal("failed to list invitations", err)
	}
	return invs, nil
}

// RequestStats tallies a draft's invitations. Rejected is always 0 because
// rejected invitations are deleted.
func (s *Service) RequestStats(ctx context.Context, groupID string) (models.InvitationStats, error) {
	groupID = strings.TrimSpace(groupID)
	if groupID == "" {
		return models.InvitationStats{}, apperr.BadRequest("group_id is required")
	}

	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Short(), s.log, "formation.request_stats")
	defer cancel()

	stats, err := s.invites.StatsByGroup(ctx, groupID)
	if err != nil {
		return models.InvitationStats{}, apperr.Internal("failed to tally invitations", err)
	}
	return stats, nil
}
