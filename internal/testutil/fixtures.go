package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sparktrack/sparktrack/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateStudent inserts a directory record.
func (f *Fixtures) CreateStudent(ctx context.Context, enrollment, name, class string) models.Student {
	f.t.Helper()

	now := time.Now().UTC()
	s := models.Student{
		ID:           primitive.NewObjectID(),
		EnrollmentNo: enrollment,
		FullName:     name,
		FullNameCI:   text.Fold(name),
		Class:        class,
		Contact:      "9000000000",
		Email:        enrollment + "@college.test",
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if _, err := f.db.Collection("students").InsertOne(ctx, s); err != nil {
		f.t.Fatalf("failed to create test student: %v", err)
	}
	return s
}

// CreateDraft inserts a draft in DRAFT status for leader.
func (f *Fixtures) CreateDraft(ctx context.Context, leader, teamName string) models.Draft {
	f.t.Helper()
	return f.CreateDraftWithStatus(ctx, leader, teamName, models.DraftStatusDraft)
}

// CreateDraftWithStatus inserts a draft with an explicit status.
func (f *Fixtures) CreateDraftWithStatus(ctx context.Context, leader, teamName, status string) models.Draft {
	f.t.Helper()

	now := time.Now().UTC()
	d := models.Draft{
		ID:        primitive.NewObjectID(),
		GroupID:   uuid.NewString(),
		LeaderID:  leader,
		TeamName:  teamName,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := f.db.Collection("group_drafts").InsertOne(ctx, d); err != nil {
		f.t.Fatalf("failed to create test draft: %v", err)
	}
	return d
}

// CreateInvitation inserts an invitation for student into draft groupID.
func (f *Fixtures) CreateInvitation(ctx context.Context, groupID, student, status string) models.Invitation {
	f.t.Helper()

	inv := models.Invitation{
		ID:        primitive.NewObjectID(),
		RequestID: uuid.NewString(),
		GroupID:   groupID,
		StudentID: student,
		Status:    status,
		CreatedAt: time.Now().UTC(),
	}
	if status == models.InvitationStatusAccepted {
		at := inv.CreatedAt
		inv.RespondedAt = &at
	}

	if _, err := f.db.Collection("group_invitations").InsertOne(ctx, inv); err != nil {
		f.t.Fatalf("failed to create test invitation: %v", err)
	}
	return inv
}

// CreateFinalGroup inserts a finalized group header with one leader row.
func (f *Fixtures) CreateFinalGroup(ctx context.Context, groupID, prefix string, seq int, leader string) models.FinalGroup {
	f.t.Helper()

	now := time.Now().UTC()
	g := models.FinalGroup{
		ID:           primitive.NewObjectID(),
		GroupID:      groupID,
		TeamName:     "Team " + groupID,
		LeaderID:     leader,
		DraftGroupID: uuid.NewString(),
		ClassPrefix:  prefix,
		Seq:          seq,
		CreatedAt:    now,
	}
	if _, err := f.db.Collection("final_groups").InsertOne(ctx, g); err != nil {
		f.t.Fatalf("failed to create test final group: %v", err)
	}

	m := models.FinalGroupMember{
		ID:           primitive.NewObjectID(),
		HeaderID:     g.ID,
		GroupID:      groupID,
		DraftGroupID: g.DraftGroupID,
		MemberID:     leader,
		StudentName:  "Leader " + leader,
		IsLeader:     true,
		TeamName:     g.TeamName,
		CreatedAt:    now,
	}
	if _, err := f.db.Collection("final_group_members").InsertOne(ctx, m); err != nil {
		f.t.Fatalf("failed to create test final group member: %v", err)
	}
	return g
}
