// internal/domain/models/draft.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Draft statuses.
const (
	DraftStatusDraft     = "DRAFT"
	DraftStatusConfirmed = "CONFIRMED"
	DraftStatusCancelled = "CANCELLED"
)

// Draft is a group in formation, owned by a single leader.
//
// GroupID is an opaque token generated when the draft is created. It lives
// in a different namespace from the allocated FinalGroupID, which is only
// set once the draft is confirmed.
type Draft struct {
	ID           primitive.ObjectID `bson:"_id" json:"-"`
	GroupID      string             `bson:"group_id" json:"group_id"`
	LeaderID     string             `bson:"leader_id" json:"leader_id"`
	TeamName     string             `bson:"team_name" json:"team_name"`
	PreviousPSID *string            `bson:"previous_ps_id,omitempty" json:"previous_ps_id,omitempty"`
	Status       string             `bson:"status" json:"status"`

	FinalGroupID *string `bson:"final_group_id,omitempty" json:"final_group_id,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
