// internal/app/store/metrics/metricsstore.go
package metricsstore

import (
	"context"

	"github.com/sparktrack/sparktrack/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Counts is the set of totals shown on the formation dashboard.
type Counts struct {
	Students           int64 `json:"students"`
	OpenDrafts         int64 `json:"open_drafts"`
	PendingInvitations int64 `json:"pending_invitations"`
	FinalGroups        int64 `json:"final_groups"`
	GroupedStudents    int64 `json:"grouped_students"`
	UngroupedStudents  int64 `json:"ungrouped_students"`
}

// FetchDashboardCounts returns the high-level formation counts.
// Intentionally tolerant: on error it returns 0 for that counter.
func FetchDashboardCounts(ctx context.Context, db *mongo.Database) Counts {
	var out Counts

	count := func(coll string, filter bson.M) int64 {
		n, err := db.Collection(coll).CountDocuments(ctx, filter)
		if err != nil {
			return 0
		}
		return n
	}

	out.Students = count("students", bson.M{})
	out.OpenDrafts = count("group_drafts", bson.M{"status": models.DraftStatusDraft})
	out.PendingInvitations = count("group_invitations", bson.M{"status": models.InvitationStatusPending})
	out.FinalGroups = count("final_groups", bson.M{})
	out.GroupedStudents = count("final_group_members", bson.M{})

	if out.Students > out.GroupedStudents {
		out.UngroupedStudents = out.Students - out.GroupedStudents
	}

	return out
}
