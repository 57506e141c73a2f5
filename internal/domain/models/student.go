// internal/domain/models/student.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Student is a directory record for an enrolled student.
//
// EnrollmentNo is the natural key used everywhere in the formation workflow
// (draft leader, invitation candidate, permanent member). It is stored
// normalized (trimmed, upper-case).
type Student struct {
	ID           primitive.ObjectID `bson:"_id" json:"id"`
	EnrollmentNo string             `bson:"enrollment_no" json:"enrollment_no"`
	FullName     string             `bson:"full_name" json:"full_name"`
	FullNameCI   string             `bson:"full_name_ci" json:"-"`
	Class        string             `bson:"class" json:"class"`
	Contact      string             `bson:"contact" json:"contact"`
	Email        string             `bson:"email" json:"email"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
