// internal/app/store/invitations/invitationstore.go
package invitationstore

import (
	"context"
	"errors"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/google/uuid"
	"github.com/sparktrack/sparktrack/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNotFound         = errors.New("invitation not found")
	ErrActiveInvitation = errors.New("student already has an active invitation")
	ErrNotPending       = errors.New("invitation is not pending")
)

// activeStatuses are the statuses a persisted invitation can hold.
var activeStatuses = []string{models.InvitationStatusPending, models.InvitationStatusAccepted}

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("group_invitations")}
}

// InsertMany inserts one PENDING invitation per candidate of groupID, in
// order. A unique-index violation (the student was invited concurrently)
// returns ErrActiveInvitation; rows inserted before the violation remain
// and are the caller's to roll back.
func (s *Store) InsertMany(ctx context.Context, groupID string, candidates []string) ([]models.Invitation, error) {
	if len(candidates) == 0 {
		return []models.Invitation{}, nil
	}

	now := time.Now().UTC()
	invs := make([]models.Invitation, 0, len(candidates))
	docs := make([]any, 0, len(candidates))
	for _, sid := range candidates {
		inv := models.Invitation{
			ID:        primitive.NewObjectID(),
			RequestID: uuid.NewString(),
			GroupID:   groupID,
			StudentID: sid,
			Status:    models.InvitationStatusPending,
			CreatedAt: now,
		}
		invs = append(invs, inv)
		docs = append(docs, inv)
	}

	if _, err := s.c.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true)); err != nil {
		if wafflemongo.IsDup(err) {
			return invs, ErrActiveInvitation
		}
		return invs, err
	}
	return invs, nil
}

func (s *Store) GetByRequestID(ctx context.Context, requestID string) (models.Invitation, error) {
	var inv models.Invitation
	err := s.c.FindOne(ctx, bson.M{"request_id": requestID}).Decode(&inv)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Invitation{}, ErrNotFound
	}
	if err != nil {
		return models.Invitation{}, err
	}
	return inv, nil
}

// ListByGroup returns every invitation of one draft, oldest first.
func (s *Store) ListByGroup(ctx context.Context, groupID string) ([]models.Invitation, error) {
	return s.find(ctx, bson.M{"group_id": groupID})
}

// ListActiveByStudent returns the student's PENDING and ACCEPTED invitations.
func (s *Store) ListActiveByStudent(ctx context.Context, studentID string) ([]models.Invitation, error) {
	return s.find(ctx, bson.M{
		"student_id": studentID,
		"status":     bson.M{"$in": activeStatuses},
	})
}

// ActiveAmong returns which of studentIDs hold a PENDING or ACCEPTED
// invitation anywhere.
func (s *Store) ActiveAmong(ctx context.Context, studentIDs []string) (map[string]bool, error) {
	active := make(map[string]bool, len(studentIDs))
	if len(studentIDs) == 0 {
		return active, nil
	}
	invs, err := s.find(ctx, bson.M{
		"student_id": bson.M{"$in": studentIDs},
		"status":     bson.M{"$in": activeStatuses},
	})
	if err != nil {
		return nil, err
	}
	for _, inv := range invs {
		active[inv.StudentID] = true
	}
	return active, nil
}

// Accept flips a PENDING invitation to ACCEPTED and stamps responded_at.
func (s *Store) Accept(ctx context.Context, requestID string, at time.Time) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"request_id": requestID, "status": models.InvitationStatusPending},
		bson.M{"$set": bson.M{
			"status":       models.InvitationStatusAccepted,
			"responded_at": at.UTC(),
		}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotPending
	}
	return nil
}

// Delete removes one invitation. Returns the number of documents deleted (0 or 1).
func (s *Store) Delete(ctx context.Context, requestID string) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"request_id": requestID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteByGroup removes every invitation of one draft.
func (s *Store) DeleteByGroup(ctx context.Context, groupID string) (int64, error) {
	return s.deleteMany(ctx, bson.M{"group_id": groupID})
}

// DeleteByGroups removes every invitation of the given drafts.
func (s *Store) DeleteByGroups(ctx context.Context, groupIDs []string) (int64, error) {
	if len(groupIDs) == 0 {
		return 0, nil
	}
	return s.deleteMany(ctx, bson.M{"group_id": bson.M{"$in": groupIDs}})
}

// DeleteByRequestIDs removes specific invitations.
func (s *Store) DeleteByRequestIDs(ctx context.Context, requestIDs []string) (int64, error) {
	if len(requestIDs) == 0 {
		return 0, nil
	}
	return s.deleteMany(ctx, bson.M{"request_id": bson.M{"$in": requestIDs}})
}

// GroupIDs returns the distinct draft ids referenced by invitations.
func (s *Store) GroupIDs(ctx context.Context) ([]string, error) {
	raw, err := s.c.Distinct(ctx, "group_id", bson.M{})
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if id, ok := v.(string); ok {
			out = append(out, id)
		}
	}
	return out, nil
}

// StatsByGroup tallies a draft's invitations by status.
func (s *Store) StatsByGroup(ctx context.Context, groupID string) (models.InvitationStats, error) {
	cur, err := s.c.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"group_id": groupID}}},
		{{Key: "$group", Value: bson.M{"_id": "$status", "n": bson.M{"$sum": 1}}}},
	})
	if err != nil {
		return models.InvitationStats{}, err
	}
	defer cur.Close(ctx)

	var stats models.InvitationStats
	for cur.Next(ctx) {
		var row struct {
			Status string `bson:"_id"`
			N      int    `bson:"n"`
		}
		if err := cur.Decode(&row); err != nil {
			return models.InvitationStats{}, err
		}
		stats.Total += row.N
		switch row.Status {
		case models.InvitationStatusPending:
			stats.Pending = row.N
		case models.InvitationStatusAccepted:
			stats.Accepted = row.N
		case models.InvitationStatusRejected:
			stats.Rejected = row.N
		}
	}
	return stats, cur.Err()
}

func (s *Store) find(ctx context.Context, filter bson.M) ([]models.Invitation, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Invitation{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) deleteMany(ctx context.Context, filter bson.M) (int64, error) {
	res, err := s.c.DeleteMany(ctx, filter)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
