// internal/app/store/drafts/draftstore.go
package draftstore

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
	ErrNotFound          = errors.New("draft not found")
	ErrActiveDraftExists = errors.New("leader already has an active draft")
	ErrNotDraft          = errors.New("draft is not in DRAFT status")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("group_drafts")}
}

// Create inserts a new DRAFT row with a fresh opaque group id. The partial
// unique index on leader_id turns a concurrent second draft into
// ErrActiveDraftExists.
func (s *Store) Create(ctx context.Context, d models.Draft) (models.Draft, error) {
	now := time.Now().UTC()
	d.ID = primitive.NewObjectID()
	if d.GroupID == "" {
		d.GroupID = uuid.NewString()
	}
	d.Status = models.DraftStatusDraft
	d.FinalGroupID = nil
	d.CreatedAt = now
	d.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, d); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Draft{}, ErrActiveDraftExists
		}
		return models.Draft{}, err
	}
	return d, nil
}

func (s *Store) GetByGroupID(ctx context.Context, groupID string) (models.Draft, error) {
	var d models.Draft
	err := s.c.FindOne(ctx, bson.M{"group_id": groupID}).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Draft{}, ErrNotFound
	}
	if err != nil {
		return models.Draft{}, err
	}
	return d, nil
}

// ListByLeader returns the leader's drafts with the given status, newest first.
func (s *Store) ListByLeader(ctx context.Context, leaderID, status string) ([]models.Draft, error) {
	filter := bson.M{"leader_id": leaderID}
	if status != "" {
		filter["status"] = status
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Draft{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// HasActiveDraft reports whether leaderID owns a DRAFT-status row.
func (s *Store) HasActiveDraft(ctx context.Context, leaderID string) (bool, error) {
	n, err := s.c.CountDocuments(ctx, bson.M{
		"leader_id": leaderID,
		"status":    models.DraftStatusDraft,
	}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Confirm flips a draft DRAFT→CONFIRMED and records the allocated id.
// The update only matches a DRAFT row; anything else is ErrNotDraft.
func (s *Store) Confirm(ctx context.Context, groupID, finalGroupID string) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"group_id": groupID, "status": models.DraftStatusDraft},
		bson.M{"$set": bson.M{
			"status":         models.DraftStatusConfirmed,
			"final_group_id": finalGroupID,
			"updated_at":     time.Now().UTC(),
		}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotDraft
	}
	return nil
}

// Delete removes a draft. Returns the number of documents deleted (0 or 1).
func (s *Store) Delete(ctx context.Context, groupID string) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"group_id": groupID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// OpenAmong returns which of groupIDs still name a DRAFT-status row.
func (s *Store) OpenAmong(ctx context.Context, groupIDs []string) (map[string]bool, error) {
	open := make(map[string]bool, len(groupIDs))
	if len(groupIDs) == 0 {
		return open, nil
	}
	cur, err := s.c.Find(ctx,
		bson.M{"group_id": bson.M{"$in": groupIDs}, "status": models.DraftStatusDraft},
		options.Find().SetProjection(bson.M{"group_id": 1}),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var row struct {
			GroupID string `bson:"group_id"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		open[row.GroupID] = true
	}
	return open, cur.Err()
}
