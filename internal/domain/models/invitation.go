// internal/domain/models/invitation.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Invitation statuses. Rejected invitations are deleted rather than stored,
// so InvitationStatusRejected never appears on a persisted row.
const (
	InvitationStatusPending  = "PENDING"
	InvitationStatusAccepted = "ACCEPTED"
	InvitationStatusRejected = "REJECTED"
)

// Invitation is an offer of membership in a Draft.
type Invitation struct {
	ID          primitive.ObjectID `bson:"_id" json:"-"`
	RequestID   string             `bson:"request_id" json:"request_id"`
	GroupID     string             `bson:"group_id" json:"group_id"`
	StudentID   string             `bson:"student_id" json:"student_id"`
	Status      string             `bson:"status" json:"status"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	RespondedAt *time.Time         `bson:"responded_at,omitempty" json:"responded_at,omitempty"`
}

// InvitationStats summarizes the invitations of one draft.
type InvitationStats struct {
	Total    int `json:"total"`
	Pending  int `json:"pending"`
	Accepted int `json:"accepted"`
	Rejected int `json:"rejected"`
}

// Tally computes InvitationStats for a set of invitations.
func Tally(invs []Invitation) InvitationStats {
	var s InvitationStats
	for _, inv := range invs {
		s.Total++
		switch inv.Status {
		case InvitationStatusPending:
			s.Pending++
		case InvitationStatusAccepted:
			s.Accepted++
		case InvitationStatusRejected:
			s.Rejected++
		}
	}
	return s
}
