package formation

import (
	"context"
	"errors"
	"strings"
	"time"

	draftstore "github.com/sparktrack/sparktrack/internal/app/store/drafts"
	finalgroupstore "github.com/sparktrack/sparktrack/internal/app/store/finalgroups"
	"github.com/sparktrack/sparktrack/internal/app/system/apperr"
	"github.com/sparktrack/sparktrack/internal/app/system/timeouts"
	"github.com/sparktrack/sparktrack/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// ConfirmResult describes a finalized group. GroupID repeats FinalGroupID
// under the key older clients read.
type ConfirmResult struct {
	GroupID      string    `json:"group_id"`
	FinalGroupID string    `json:"final_group_id"`
	TeamName     string    `json:"team_name"`
	MembersCount int       `json:"members_count"`
	FinalizedAt  time.Time `json:"finalized_at"`
}

// ConfirmGroup turns a draft into a permanent group made of the leader and
// every accepted invitee.
func (s *Service) ConfirmGroup(ctx context.Context, groupID string) (res ConfirmResult, err error) {
	defer func() { s.observe("confirm_group", err) }()

	groupID = strings.TrimSpace(groupID)
	if groupID == "" {
		return ConfirmResult{}, apperr.BadRequest("group_id is required")
	}

	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Long(), s.log, "formation.confirm_group")
	defer cancel()

	d, err := s.drafts.GetByGroupID(ctx, groupID)
	if err != nil {
		if errors.Is(err, draftstore.ErrNotFound) {
			return ConfirmResult{}, apperr.NotFound("draft not found")
		}
		return ConfirmResult{}, apperr.Internal("failed to load draft", err)
	}
	if d.Status != models.DraftStatusDraft {
		return ConfirmResult{}, s.refuse(ctx, groupID, apperr.BadRequest("group is not in draft status"))
	}

	invs, err := s.invites.ListByGroup(ctx, groupID)
	if err != nil {
		return ConfirmResult{}, apperr.Internal("failed to list invitations", err)
	}
	if len(invs) == 0 {
		return ConfirmResult{}, s.refuse(ctx, groupID, apperr.BadRequest("no invitations sent"))
	}
	stats := models.Tally(invs)
	if stats.Accepted == 0 {
		return ConfirmResult{}, s.refuse(ctx, groupID, apperr.BadRequest("no accepted invitations").
			WithDetails(map[string]any{
				"pending":  stats.Pending,
				"accepted": stats.Accepted,
				"rejected": stats.Rejected,
			}))
	}

	members := membership(d.LeaderID, invs)
	if len(members) < 2 {
		return ConfirmResult{}, s.refuse(ctx, groupID, apperr.BadRequest("minimum 2 members required"))
	}

	alloc, err := s.allocate(ctx, d.LeaderID)
	if err != nil {
		return ConfirmResult{}, err
	}

	records, err := s.directory.FindByEnrollments(ctx, members)
	if err != nil {
		return ConfirmResult{}, apperr.Internal("failed to load member records", err)
	}
	if len(records) != len(members) {
		return ConfirmResult{}, s.refuse(ctx, groupID, apperr.BadRequest("member data integrity mismatch").
			WithDetails(map[string]any{
				"expected": len(members),
				"found":    len(records),
			}))
	}
	byID := make(map[string]models.Student, len(records))
	for _, st := range records {
		byID[st.EnrollmentNo] = st
	}

	finalizedAt := s.now().UTC()
	for attempt := 0; ; attempt++ {
		err = s.commit(ctx, d, alloc, members, byID, finalizedAt)
		if err == nil {
			break
		}
		if !errors.Is(err, finalgroupstore.ErrGroupIDTaken) {
			return ConfirmResult{}, commitError(err)
		}
		// A concurrent confirm of this same draft may be the one holding the id.
		if cur, gerr := s.drafts.GetByGroupID(ctx, groupID); gerr == nil && cur.Status != models.DraftStatusDraft {
			return ConfirmResult{}, s.refuse(ctx, groupID, apperr.BadRequest("group is not in draft status"))
		}
		if attempt >= s.cfg.AllocationRetries {
			return ConfirmResult{}, apperr.ConflictFrom("could not allocate a unique group id; please retry", err)
		}
		s.metrics.AllocationRetried()
		s.log.Info("group id taken; re-allocating",
			zap.String("group_id", groupID),
			zap.String("final_group_id", alloc.ID()),
			zap.Int("attempt", attempt+1))
		if alloc, err = s.allocate(ctx, d.LeaderID); err != nil {
			return ConfirmResult{}, err
		}
	}

	// Cleanup after commit; the sweeper reaps anything left behind.
	if _, err := s.invites.DeleteByGroup(ctx, groupID); err != nil {
		s.log.Warn("failed to delete invitations of confirmed draft",
			zap.String("group_id", groupID),
			zap.Error(err))
	}

	s.metrics.GroupFinalized(len(members))
	s.audit.GroupConfirmed(ctx, groupID, alloc.ID(), d.LeaderID, len(members))
	s.log.Info("group confirmed",
		zap.String("group_id", groupID),
		zap.String("final_group_id", alloc.ID()),
		zap.Int("members", len(members)))

	return ConfirmResult{
		GroupID:      alloc.ID(),
		FinalGroupID: alloc.ID(),
		TeamName:     d.TeamName,
		MembersCount: len(members),
		FinalizedAt:  finalizedAt,
	}, nil
}

// commit writes the header, the member rows and the draft transition as
// one unit. Without a transaction, rows this attempt wrote are removed
// again on failure; they carry the header's _id so nothing written by
// another attempt is touched.
func (s *Service) commit(ctx context.Context, d models.Draft, alloc allocation, members []string, byID map[string]models.Student, at time.Time) error {
	finalID := alloc.ID()
	header := models.FinalGroup{
		ID:           primitive.NewObjectID(),
		GroupID:      finalID,
		TeamName:     d.TeamName,
		LeaderID:     d.LeaderID,
		DraftGroupID: d.GroupID,
		ClassPrefix:  alloc.Prefix,
		Seq:          alloc.Seq,
		CreatedAt:    at,
	}
	rows := make([]models.FinalGroupMember, 0, len(members))
	for _, id := range members {
		st := byID[id]
		rows = append(rows, models.FinalGroupMember{
			HeaderID:           header.ID,
			GroupID:            finalID,
			DraftGroupID:       d.GroupID,
			MemberID:           id,
			StudentName:        st.FullName,
			Class:              st.Class,
			Contact:            st.Contact,
			Email:              st.Email,
			IsLeader:           id == d.LeaderID,
			TeamName:           d.TeamName,
			ProblemStatementID: d.PreviousPSID,
			CreatedAt:          at,
		})
	}

	wrote := false
	res, err := s.tx.Do(ctx, func(tc context.Context) error {
		if _, err := s.finals.InsertGroup(tc, header); err != nil {
			return err
		}
		wrote = true
		if err := s.finals.InsertMembers(tc, rows); err != nil {
			return err
		}
		return s.drafts.Confirm(tc, d.GroupID, finalID)
	})
	if err != nil && wrote && !res.Atomic {
		s.compensate(ctx, header.ID, finalID, d.GroupID)
	}
	return err
}

// compensate deletes the rows of one non-atomic commit attempt.
func (s *Service) compensate(ctx context.Context, headerID primitive.ObjectID, finalID, draftID string) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeouts.Short())
	defer cancel()
	n, err := s.finals.DeleteGroup(cctx, headerID)
	if err != nil {
		s.log.Error("failed to remove partial group rows",
			zap.String("final_group_id", finalID),
			zap.String("group_id", draftID),
			zap.Error(err))
		return
	}
	if n > 0 {
		s.log.Warn("removed partial group rows",
			zap.String("final_group_id", finalID),
			zap.String("group_id", draftID),
			zap.Int64("rows", n))
	}
}

func commitError(err error) error {
	switch {
	case errors.Is(err, finalgroupstore.ErrAlreadyFinalized):
		return apperr.ConflictFrom("a member was finalized into another group", err)
	case errors.Is(err, draftstore.ErrNotDraft):
		return apperr.BadRequest("group is not in draft status")
	default:
		return apperr.Internal("failed to finalize group", err)
	}
}

// refuse records a refused confirmation and returns e.
func (s *Service) refuse(ctx context.Context, groupID string, e *apperr.Error) error {
	s.audit.ConfirmRefused(ctx, groupID, e.Message)
	return e
}

// membership is the leader followed by every accepted invitee, deduplicated.
func membership(leaderID string, invs []models.Invitation) []string {
	out := []string{leaderID}
	seen := map[string]bool{leaderID: true}
	for _, inv := range invs {
		if inv.Status != models.InvitationStatusAccepted || seen[inv.StudentID] {
			continue
		}
		seen[inv.StudentID] = true
		out = append(out, inv.StudentID)
	}
	return out
}

// FinalGroup returns a permanent group and its members.
func (s *Service) FinalGroup(ctx context.Context, groupID string) (models.FinalGroup, []models.FinalGroupMember, error) {
	groupID = strings.ToUpper(strings.TrimSpace(groupID))
	if groupID == "" {
		return models.FinalGroup{}, nil, apperr.BadRequest("group_id is required")
	}

	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Short(), s.log, "formation.final_group")
	defer cancel()

	g, members, err := s.finals.Get(ctx, groupID)
	if err != nil {
		if errors.Is(err, finalgroupstore.ErrNotFound) {
			return models.FinalGroup{}, nil, apperr.NotFound("group not found")
		}
		return models.FinalGroup{}, nil, apperr.Internal("failed to load group", err)
	}
	return g, members, nil
}
