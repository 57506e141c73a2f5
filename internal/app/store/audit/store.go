// internal/app/store/audit/store.go
package audit

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Event categories
const (
	CategoryFormation = "formation"
	CategoryDirectory = "directory"
)

// Formation event types
const (
	EventDraftCreated       = "draft_created"
	EventDraftCancelled     = "draft_cancelled"
	EventInvitationsSent    = "invitations_sent"
	EventInvitationAccepted = "invitation_accepted"
	EventInvitationRejected = "invitation_rejected"
	EventGroupConfirmed     = "group_confirmed"
	EventConfirmRefused     = "confirm_refused"
)

// Directory event types
const (
	EventRosterImported = "roster_imported"
)

// Event represents one entry of the append-only formation trail.
type Event struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Timestamp time.Time          `bson:"timestamp" json:"timestamp"`

	// Event classification
	Category  string `bson:"category" json:"category"`
	EventType string `bson:"event_type" json:"event_type"`

	// Subject
	GroupID      string `bson:"group_id,omitempty" json:"group_id,omitempty"`             // draft token
	FinalGroupID string `bson:"final_group_id,omitempty" json:"final_group_id,omitempty"` // allocated id
	StudentID    string `bson:"student_id,omitempty" json:"student_id,omitempty"`         // affected student

	// Who
	ActorID string `bson:"actor_id,omitempty" json:"actor_id,omitempty"`

	// Context
	IP string `bson:"ip,omitempty" json:"ip,omitempty"`

	// Outcome
	Success       bool   `bson:"success" json:"success"`
	FailureReason string `bson:"failure_reason,omitempty" json:"failure_reason,omitempty"`

	Details map[string]string `bson:"details,omitempty" json:"details,omitempty"`
}

// QueryFilter defines filters for querying events.
type QueryFilter struct {
	GroupID   string
	StudentID string
	Category  string
	EventType string
	StartTime *time.Time
	EndTime   *time.Time
	Limit     int64
	Offset    int64
}

// Store manages formation event records.
type Store struct {
	c *mongo.Collection
}

// New creates a new audit Store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("formation_events")}
}

// Log records an event.
func (s *Store) Log(ctx context.Context, event Event) error {
	if event.ID.IsZero() {
		event.ID = primitive.NewObjectID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	_, err := s.c.InsertOne(ctx, event)
	return err
}

// Query retrieves events matching the given filter, newest first.
func (s *Store) Query(ctx context.Context, filter QueryFilter) ([]Event, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(limit).
		SetSkip(filter.Offset)

	cursor, err := s.c.Find(ctx, buildQuery(filter), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	events := []Event{}
	if err := cursor.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// CountByFilter returns the count of events matching the filter.
func (s *Store) CountByFilter(ctx context.Context, filter QueryFilter) (int64, error) {
	return s.c.CountDocuments(ctx, buildQuery(filter))
}

// GetByGroup retrieves recent events for one draft.
func (s *Store) GetByGroup(ctx context.Context, groupID string, limit int64) ([]Event, error) {
	return s.Query(ctx, QueryFilter{GroupID: groupID, Limit: limit})
}

// GetByStudent retrieves recent events that concern one student.
func (s *Store) GetByStudent(ctx context.Context, studentID string, limit int64) ([]Event, error) {
	return s.Query(ctx, QueryFilter{StudentID: studentID, Limit: limit})
}

func buildQuery(filter QueryFilter) bson.M {
	query := bson.M{}
	if filter.GroupID != "" {
		query["group_id"] = filter.GroupID
	}
	if filter.StudentID != "" {
		query["student_id"] = filter.StudentID
	}
	if filter.Category != "" {
		query["category"] = filter.Category
	}
	if filter.EventType != "" {
		query["event_type"] = filter.EventType
	}
	if filter.StartTime != nil || filter.EndTime != nil {
		timeQuery := bson.M{}
		if filter.StartTime != nil {
			timeQuery["$gte"] = *filter.StartTime
		}
		if filter.EndTime != nil {
			timeQuery["$lte"] = *filter.EndTime
		}
		query["timestamp"] = timeQuery
	}
	return query
}
