package formation

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	draftstore "github.com/sparktrack/sparktrack/internal/app/store/drafts"
	studentstore "github.com/sparktrack/sparktrack/internal/app/store/students"
	"github.com/sparktrack/sparktrack/internal/app/system/apperr"
	"github.com/sparktrack/sparktrack/internal/app/system/htmlsanitize"
	"github.com/sparktrack/sparktrack/internal/app/system/normalize"
	"github.com/sparktrack/sparktrack/internal/app/system/timeouts"
	"github.com/sparktrack/sparktrack/internal/domain/models"
	"go.uber.org/zap"
)

// MaxTeamNameLength is the longest team name accepted, in runes.
const MaxTeamNameLength = 100

// CreateDraftInput is the payload of CreateDraft.
type CreateDraftInput struct {
	LeaderID     string
	TeamName     string
	PreviousPSID *string
}

// DraftSummary is a draft with its invitations and their tally.
type DraftSummary struct {
	models.Draft
	Requests []models.Invitation    `json:"requests"`
	Stats    models.InvitationStats `json:"stats"`
}

// DraftDetail is the single-draft view.
type DraftDetail struct {
	Draft    models.Draft           `json:"draft"`
	Requests []models.Invitation    `json:"requests"`
	Stats    models.InvitationStats `json:"stats"`
}

// CancelResult reports what a cancellation removed.
type CancelResult struct {
	GroupID            string `json:"group_id"`
	InvitationsRemoved int64  `json:"invitations_removed"`
}

// CreateDraft opens a DRAFT group led by in.LeaderID.
func (s *Service) CreateDraft(ctx context.Context, in CreateDraftInput) (d models.Draft, err error) {
	defer func() { s.observe("create_draft", err) }()

	leader := normalize.Enrollment(in.LeaderID)
	if leader == "" {
		return models.Draft{}, apperr.BadRequest("leader_id is required")
	}
	if strings.TrimSpace(in.TeamName) == "" {
		return models.Draft{}, apperr.BadRequest("team_name is required")
	}
	name := htmlsanitize.PlainText(in.TeamName)
	if n := utf8.RuneCountInString(name); n == 0 || n > MaxTeamNameLength {
		return models.Draft{}, apperr.BadRequest("team_name must be 1-100 characters of plain text")
	}
	var prev *string
	if in.PreviousPSID != nil {
		if p := strings.TrimSpace(*in.PreviousPSID); p != "" {
			prev = &p
		}
	}

	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Medium(), s.log, "formation.create_draft")
	defer cancel()

	if _, err := s.directory.GetByEnrollment(ctx, leader); err != nil {
		if errors.Is(err, studentstore.ErrNotFound) {
			return models.Draft{}, apperr.NotFound("leader not found in student directory")
		}
		return models.Draft{}, apperr.Internal("failed to look up leader", err)
	}

	active, err := s.drafts.HasActiveDraft(ctx, leader)
	if err != nil {
		return models.Draft{}, apperr.Internal("failed to check existing drafts", err)
	}
	if active {
		return models.Draft{}, apperr.Conflict("leader already has an active draft")
	}

	member, err := s.finals.IsMember(ctx, leader)
	if err != nil {
		return models.Draft{}, apperr.Internal("failed to check finalized groups", err)
	}
	if member {
		return models.Draft{}, apperr.Conflict("leader is already a member of a finalized group")
	}

	d, err = s.drafts.Create(ctx, models.Draft{
		LeaderID:     leader,
		TeamName:     name,
		PreviousPSID: prev,
	})
	if err != nil {
		if errors.Is(err, draftstore.ErrActiveDraftExists) {
			return models.Draft{}, apperr.ConflictFrom("leader already has an active draft", err)
		}
		return models.Draft{}, apperr.Internal("failed to create draft", err)
	}

	s.audit.DraftCreated(ctx, d.GroupID, d.LeaderID, d.TeamName)
	return d, nil
}

// DraftsByLeader lists the leader's open drafts with their invitations.
func (s *Service) DraftsByLeader(ctx context.Context, leaderID string) ([]DraftSummary, error) {
	leader := normalize.Enrollment(leaderID)
	if leader == "" {
		return nil, apperr.BadRequest("enrollment number is required")
	}

	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Medium(), s.log, "formation.drafts_by_leader")
	defer cancel()

	drafts, err := s.drafts.ListByLeader(ctx, leader, models.DraftStatusDraft)
	if err != nil {
		return nil, apperr.Internal("failed to list drafts", err)
	}

	out := make([]DraftSummary, 0, len(drafts))
	for _, d := range drafts {
		reqs, err := s.invites.ListByGroup(ctx, d.GroupID)
		if err != nil {
			return nil, apperr.Internal("failed to list invitations", err)
		}
		out = append(out, DraftSummary{Draft: d, Requests: reqs, Stats: models.Tally(reqs)})
	}
	return out, nil
}

// Draft returns one draft without its invitations.
func (s *Service) Draft(ctx context.Context, groupID string) (models.Draft, error) {
	groupID = strings.TrimSpace(groupID)
	if groupID == "" {
		return models.Draft{}, apperr.BadRequest("group_id is required")
	}

	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Short(), s.log, "formation.draft")
	defer cancel()

	d, err := s.drafts.GetByGroupID(ctx, groupID)
	if err != nil {
		if errors.Is(err, draftstore.ErrNotFound) {
			return models.Draft{}, apperr.NotFound("draft not found")
		}
		return models.Draft{}, apperr.Internal("failed to load draft", err)
	}
	return d, nil
}

// DraftByID returns a draft with its invitations and their tally.
func (s *Service) DraftByID(ctx context.Context, groupID string) (DraftDetail, error) {
	d, err := s.Draft(ctx, groupID)
	if err != nil {
		return DraftDetail{}, err
	}

	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Short(), s.log, "formation.draft_requests")
	defer cancel()

	reqs, err := s.invites.ListByGroup(ctx, d.GroupID)
	if err != nil {
		return DraftDetail{}, apperr.Internal("failed to list invitations", err)
	}
	return DraftDetail{Draft: d, Requests: reqs, Stats: models.Tally(reqs)}, nil
}

// CancelDraft deletes a draft and every invitation it issued.
func (s *Service) CancelDraft(ctx context.Context, groupID string) (res CancelResult, err error) {
	defer func() { s.observe("cancel_draft", err) }()

	d, err := s.Draft(ctx, groupID)
	if err != nil {
		return CancelResult{}, err
	}
	if d.Status == models.DraftStatusConfirmed {
		return CancelResult{}, apperr.BadRequest("confirmed groups cannot be cancelled")
	}

	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Medium(), s.log, "formation.cancel_draft")
	defer cancel()

	var removed, deleted int64
	_, err = s.tx.Do(ctx, func(tc context.Context) error {
		n, err := s.invites.DeleteByGroup(tc, d.GroupID)
		if err != nil {
			return err
		}
		removed = n
		deleted, err = s.drafts.Delete(tc, d.GroupID)
		return err
	})
	if err != nil {
		return CancelResult{}, apperr.Internal("failed to cancel draft", err)
	}
	if deleted == 0 {
		// Cancelled concurrently by another request.
		return CancelResult{}, apperr.NotFound("draft not found")
	}

	s.log.Info("draft cancelled",
		zap.String("group_id", d.GroupID),
		zap.Int64("invitations_removed", removed))
	s.audit.DraftCancelled(ctx, d.GroupID, d.LeaderID, removed)
	return CancelResult{GroupID: d.GroupID, InvitationsRemoved: removed}, nil
}
