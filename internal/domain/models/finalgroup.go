// internal/domain/models/finalgroup.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FinalGroup is the header document of a finalized group.
//
// GroupID has the form <ClassPrefix><NN> and is unique across the
// final_groups collection. ClassPrefix and Seq are stored alongside it so
// allocation scans do not need to reparse every id.
type FinalGroup struct {
	ID           primitive.ObjectID `bson:"_id" json:"-"`
	GroupID      string             `bson:"group_id" json:"group_id"`
	TeamName     string             `bson:"team_name" json:"team_name"`
	LeaderID     string             `bson:"leader_id" json:"leader_id"`
	DraftGroupID string             `bson:"draft_group_id" json:"draft_group_id"`
	ClassPrefix  string             `bson:"class_prefix" json:"class_prefix"`
	Seq          int                `bson:"seq" json:"seq"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
}

// FinalGroupMember is one permanent membership row.
//
// Every row of a group shares GroupID and TeamName, and exactly one row has
// IsLeader set. HeaderID is the _id of the header written in the same
// commit. MentorCode and ProblemStatementID are assigned after
// finalization by other parts of the system.
type FinalGroupMember struct {
	ID                 primitive.ObjectID `bson:"_id" json:"-"`
	HeaderID           primitive.ObjectID `bson:"header_id" json:"-"`
	GroupID            string             `bson:"group_id" json:"group_id"`
	DraftGroupID       string             `bson:"draft_group_id" json:"-"`
	MemberID           string             `bson:"member_id" json:"member_id"`
	StudentName        string             `bson:"student_name" json:"student_name"`
	Class              string             `bson:"class" json:"class"`
	Contact            string             `bson:"contact" json:"contact"`
	Email              string             `bson:"email" json:"email"`
	IsLeader           bool               `bson:"is_leader" json:"is_leader"`
	TeamName           string             `bson:"team_name" json:"team_name"`
	MentorCode         *string            `bson:"mentor_code" json:"mentor_code"`
	ProblemStatementID *string            `bson:"problem_statement_id" json:"problem_statement_id"`
	CreatedAt          time.Time          `bson:"created_at" json:"created_at"`
}
