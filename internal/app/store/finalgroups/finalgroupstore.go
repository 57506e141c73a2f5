// internal/app/store/finalgroups/finalgroupstore.go
package finalgroupstore

import (
	"context"
	"errors"
	"regexp"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/sparktrack/sparktrack/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNotFound         = errors.New("final group not found")
	ErrGroupIDTaken     = errors.New("final group id already allocated")
	ErrAlreadyFinalized = errors.New("member already belongs to a finalized group")
)

// Store owns the permanent group header and membership collections.
type Store struct {
	groups  *mongo.Collection
	members *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{
		groups:  db.Collection("final_groups"),
		members: db.Collection("final_group_members"),
	}
}

// GroupIDsWithPrefix returns every allocated id of the form prefix + two
// digits.
func (s *Store) GroupIDsWithPrefix(ctx context.Context, prefix string) ([]string, error) {
	pattern := "^" + regexp.QuoteMeta(prefix) + `\d{2}$`
	cur, err := s.groups.Find(ctx,
		bson.M{"group_id": primitive.Regex{Pattern: pattern}},
		options.Find().SetProjection(bson.M{"group_id": 1}),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []string{}
	for cur.Next(ctx) {
		var row struct {
			GroupID string `bson:"group_id"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		out = append(out, row.GroupID)
	}
	return out, cur.Err()
}

// InsertGroup claims an allocated id by inserting its header. A taken id
// returns ErrGroupIDTaken.
func (s *Store) InsertGroup(ctx context.Context, g models.FinalGroup) (models.FinalGroup, error) {
	if g.ID.IsZero() {
		g.ID = primitive.NewObjectID()
	}
	if _, err := s.groups.InsertOne(ctx, g); err != nil {
		if wafflemongo.IsDup(err) {
			return models.FinalGroup{}, ErrGroupIDTaken
		}
		return models.FinalGroup{}, err
	}
	return g, nil
}

// InsertMembers batch-inserts membership rows. A member that is already
// finalized elsewhere returns ErrAlreadyFinalized.
func (s *Store) InsertMembers(ctx context.Context, rows []models.FinalGroupMember) error {
	if len(rows) == 0 {
		return nil
	}
	docs := make([]any, 0, len(rows))
	for i := range rows {
		if rows[i].ID.IsZero() {
			rows[i].ID = primitive.NewObjectID()
		}
		docs = append(docs, rows[i])
	}
	if _, err := s.members.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true)); err != nil {
		if wafflemongo.IsDup(err) {
			return ErrAlreadyFinalized
		}
		return err
	}
	return nil
}

// IsMember reports whether memberID belongs to any finalized group.
func (s *Store) IsMember(ctx context.Context, memberID string) (bool, error) {
	n, err := s.members.CountDocuments(ctx, bson.M{"member_id": memberID}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// FinalizedAmong maps each of memberIDs that is already finalized to its
// group id.
func (s *Store) FinalizedAmong(ctx context.Context, memberIDs []string) (map[string]string, error) {
	out := make(map[string]string, len(memberIDs))
	if len(memberIDs) == 0 {
		return out, nil
	}
	cur, err := s.members.Find(ctx,
		bson.M{"member_id": bson.M{"$in": memberIDs}},
		options.Find().SetProjection(bson.M{"member_id": 1, "group_id": 1}),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var row struct {
			MemberID string `bson:"member_id"`
			GroupID  string `bson:"group_id"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		out[row.MemberID] = row.GroupID
	}
	return out, cur.Err()
}

// Get returns a finalized group and its members, leader first.
func (s *Store) Get(ctx context.Context, groupID string) (models.FinalGroup, []models.FinalGroupMember, error) {
	var g models.FinalGroup
	err := s.groups.FindOne(ctx, bson.M{"group_id": groupID}).Decode(&g)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.FinalGroup{}, nil, ErrNotFound
	}
	if err != nil {
		return models.FinalGroup{}, nil, err
	}

	cur, err := s.members.Find(ctx, bson.M{"group_id": groupID},
		options.Find().SetSort(bson.D{{Key: "is_leader", Value: -1}, {Key: "member_id", Value: 1}}))
	if err != nil {
		return models.FinalGroup{}, nil, err
	}
	defer cur.Close(ctx)

	members := []models.FinalGroupMember{}
	if err := cur.All(ctx, &members); err != nil {
		return models.FinalGroup{}, nil, err
	}
	return g, members, nil
}

// DeleteGroup removes the header headerID and the member rows written with
// it. Rows of any other commit, even for the same group id or draft, are
// left alone.
func (s *Store) DeleteGroup(ctx context.Context, headerID primitive.ObjectID) (int64, error) {
	mres, err := s.members.DeleteMany(ctx, bson.M{"header_id": headerID})
	if err != nil {
		return 0, err
	}
	gres, err := s.groups.DeleteOne(ctx, bson.M{"_id": headerID})
	if err != nil {
		return mres.DeletedCount, err
	}
	return mres.DeletedCount + gres.DeletedCount, nil
}
