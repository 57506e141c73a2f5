// Package formation runs the group-formation workflow: drafts, invitations,
// group-id allocation and finalization. It talks to storage through the
// narrow interfaces below and reports failures as *apperr.Error values.
package formation

import (
	"context"
	"time"

	"github.com/sparktrack/sparktrack/internal/app/system/apperr"
	"github.com/sparktrack/sparktrack/internal/app/system/auditlog"
	"github.com/sparktrack/sparktrack/internal/app/system/metrics"
	"github.com/sparktrack/sparktrack/internal/app/system/txn"
	"github.com/sparktrack/sparktrack/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Drafts is the draft registry's storage.
type Drafts interface {
	Create(ctx context.Context, d models.Draft) (models.Draft, error)
	GetByGroupID(ctx context.Context, groupID string) (models.Draft, error)
	ListByLeader(ctx context.Context, leaderID, status string) ([]models.Draft, error)
	HasActiveDraft(ctx context.Context, leaderID string) (bool, error)
	Confirm(ctx context.Context, groupID, finalGroupID string) error
	Delete(ctx context.Context, groupID string) (int64, error)
}

// Invitations is the invitation ledger's storage.
type Invitations interface {
	InsertMany(ctx context.Context, groupID string, candidates []string) ([]models.Invitation, error)
	GetByRequestID(ctx context.Context, requestID string) (models.Invitation, error)
	ListByGroup(ctx context.Context, groupID string) ([]models.Invitation, error)
	ListActiveByStudent(ctx context.Context, studentID string) ([]models.Invitation, error)
	ActiveAmong(ctx context.Context, studentIDs []string) (map[string]bool, error)
	Accept(ctx context.Context, requestID string, at time.Time) error
	Delete(ctx context.Context, requestID string) (int64, error)
	DeleteByGroup(ctx context.Context, groupID string) (int64, error)
	DeleteByRequestIDs(ctx context.Context, requestIDs []string) (int64, error)
	StatsByGroup(ctx context.Context, groupID string) (models.InvitationStats, error)
}

// Directory is the eligible-student source.
type Directory interface {
	GetByEnrollment(ctx context.Context, enrollment string) (models.Student, error)
	FindByEnrollments(ctx context.Context, ids []string) ([]models.Student, error)
}

// FinalGroups is the permanent group storage.
type FinalGroups interface {
	GroupIDsWithPrefix(ctx context.Context, prefix string) ([]string, error)
	InsertGroup(ctx context.Context, g models.FinalGroup) (models.FinalGroup, error)
	InsertMembers(ctx context.Context, rows []models.FinalGroupMember) error
	IsMember(ctx context.Context, memberID string) (bool, error)
	FinalizedAmong(ctx context.Context, memberIDs []string) (map[string]string, error)
	Get(ctx context.Context, groupID string) (models.FinalGroup, []models.FinalGroupMember, error)
	DeleteGroup(ctx context.Context, headerID primitive.ObjectID) (int64, error)
}

// TxRunner runs a unit of work atomically when it can.
type TxRunner interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) (txn.Result, error)
}

// Config tunes the workflow.
type Config struct {
	// MaxTeamSize caps members per group, leader included. 0 disables the cap.
	MaxTeamSize int
	// AllocationRetries bounds re-allocation after a group-id collision.
	AllocationRetries int
}

// DefaultConfig returns the production defaults: no team size cap.
func DefaultConfig() Config {
	return Config{MaxTeamSize: 0, AllocationRetries: 5}
}

// Deps bundles the collaborators of a Service. Audit and Metrics may be nil.
type Deps struct {
	Drafts      Drafts
	Invitations Invitations
	Directory   Directory
	FinalGroups FinalGroups
	Tx          TxRunner
	Audit       *auditlog.Logger
	Metrics     *metrics.Formation
	Log         *zap.Logger
}

// Service implements the formation operations.
type Service struct {
	drafts    Drafts
	invites   Invitations
	directory Directory
	finals    FinalGroups
	tx        TxRunner
	audit     *auditlog.Logger
	metrics   *metrics.Formation
	log       *zap.Logger
	cfg       Config
	now       func() time.Time
}

// New builds a Service.
func New(d Deps, cfg Config) *Service {
	if cfg.AllocationRetries <= 0 {
		cfg.AllocationRetries = DefaultConfig().AllocationRetries
	}
	if cfg.MaxTeamSize < 0 {
		cfg.MaxTeamSize = 0
	}
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		drafts:    d.Drafts,
		invites:   d.Invitations,
		directory: d.Directory,
		finals:    d.FinalGroups,
		tx:        d.Tx,
		audit:     d.Audit,
		metrics:   d.Metrics,
		log:       log,
		cfg:       cfg,
		now:       time.Now,
	}
}

// observe records the outcome of op. Client errors count as rejected.
func (s *Service) observe(op string, err error) {
	outcome := metrics.OutcomeOK
	if err != nil {
		outcome = metrics.OutcomeRejected
		if apperr.KindOf(err) == apperr.KindInternal {
			outcome = metrics.OutcomeError
		}
	}
	s.metrics.Observe(op, outcome)
}
