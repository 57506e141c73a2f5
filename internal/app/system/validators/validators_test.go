package validators_test

import (
	"testing"
	"time"

	"github.com/sparktrack/sparktrack/internal/app/system/validators"
	"github.com/sparktrack/sparktrack/internal/domain/models"
	"github.com/sparktrack/sparktrack/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestEnsureAll(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
}

func TestEnsureAll_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("First EnsureAll failed: %v", err)
	}
	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("Second EnsureAll failed: %v", err)
	}
}

func TestEnsureAll_CreatesCollections(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		t.Fatalf("ListCollectionNames failed: %v", err)
	}
	collMap := make(map[string]bool)
	for _, name := range names {
		collMap[name] = true
	}

	for _, expected := range []string{
		"students",
		"group_drafts",
		"group_invitations",
		"final_groups",
		"final_group_members",
		"formation_events",
	} {
		if !collMap[expected] {
			t.Errorf("expected collection %q to exist", expected)
		}
	}
}

func TestDraftsValidator(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
	coll := db.Collection("group_drafts")
	now := time.Now().UTC()

	tests := []struct {
		name    string
		doc     bson.M
		wantErr bool
	}{
		{
			name: "valid draft",
			doc: bson.M{
				"_id": primitive.NewObjectID(), "group_id": "g-1", "leader_id": "S100",
				"team_name": "Alpha", "status": models.DraftStatusDraft, "created_at": now,
			},
		},
		{
			name: "unknown status",
			doc: bson.M{
				"_id": primitive.NewObjectID(), "group_id": "g-2", "leader_id": "S101",
				"team_name": "Alpha", "status": "PENDING",
			},
			wantErr: true,
		},
		{
			name: "blank leader",
			doc: bson.M{
				"_id": primitive.NewObjectID(), "group_id": "g-3", "leader_id": "   ",
				"team_name": "Alpha", "status": models.DraftStatusDraft,
			},
			wantErr: true,
		},
		{
			name: "missing team name",
			doc: bson.M{
				"_id": primitive.NewObjectID(), "group_id": "g-4", "leader_id": "S102",
				"status": models.DraftStatusDraft,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := coll.InsertOne(ctx, tt.doc)
			if tt.wantErr && err == nil {
				t.Error("expected validation error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestInvitationsValidator(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
	coll := db.Collection("group_invitations")

	valid := bson.M{
		"_id": primitive.NewObjectID(), "request_id": "r-1", "group_id": "g-1",
		"student_id": "S101", "status": models.InvitationStatusPending,
	}
	if _, err := coll.InsertOne(ctx, valid); err != nil {
		t.Errorf("valid invitation rejected: %v", err)
	}

	invalid := bson.M{
		"_id": primitive.NewObjectID(), "request_id": "r-2", "group_id": "g-1",
		"student_id": "S102", "status": "MAYBE",
	}
	if _, err := coll.InsertOne(ctx, invalid); err == nil {
		t.Error("expected validation error for unknown status")
	}
}

func TestFinalGroupsValidator_SeqRange(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
	coll := db.Collection("final_groups")

	doc := func(seq int) bson.M {
		return bson.M{
			"_id": primitive.NewObjectID(), "group_id": "TYCS01", "team_name": "Alpha",
			"leader_id": "S100", "draft_group_id": "g-1", "class_prefix": "TYCS", "seq": seq,
		}
	}
	if _, err := coll.InsertOne(ctx, doc(100)); err == nil {
		t.Error("expected validation error for seq 100")
	}
	if _, err := coll.InsertOne(ctx, doc(1)); err != nil {
		t.Errorf("seq 1 rejected: %v", err)
	}
}
