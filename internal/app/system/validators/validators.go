// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"strings"

	"github.com/sparktrack/sparktrack/internal/domain/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// EnsureAll creates collections (if missing) and tries to attach JSON-Schema
// validators. On servers that don't support collMod/validators (e.g. some
// DocumentDB versions), we log and skip gracefully.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	ensure := func(coll string, schema bson.M) {
		if _, err := ensureCollection(ctx, db, coll); err != nil {
			problems = append(problems, coll+": "+err.Error())
			return
		}
		if schema == nil {
			return
		}
		if err := setValidator(ctx, db, coll, schema); err != nil {
			if isNoSuchCommand(err) || isNotImplemented(err) {
				zap.L().Info("validator skipped (unsupported)", zap.String("collection", coll))
				return
			}
			problems = append(problems, coll+": "+err.Error())
		}
	}

	ensure("students", studentsSchema())
	ensure("group_drafts", draftsSchema())
	ensure("group_invitations", invitationsSchema())
	ensure("final_groups", finalGroupsSchema())
	ensure("final_group_members", finalGroupMembersSchema())

	// Append-only trail; no validator needed.
	ensure("formation_events", nil)

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* ---------------------- collection helpers & logging ---------------------- */

// collectionExists returns true when <name> already exists.
// Uses ListCollectionNames to avoid "created collection" log when it didn't.
func collectionExists(ctx context.Context, db *mongo.Database, name string) (bool, error) {
	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return false, err
	}
	for _, n := range names {
		if n == name {
			return true, nil
		}
	}
	return false, nil
}

// ensureCollection idempotently makes sure <name> exists.
// Returns created==true only if we actually created it.
func ensureCollection(ctx context.Context, db *mongo.Database, name string) (created bool, err error) {
	exists, listErr := collectionExists(ctx, db, name)
	if listErr == nil && exists {
		zap.L().Info("collection exists", zap.String("collection", name))
		return false, nil
	}
	// If listing failed, fall back to create-and-handle-race.
	if err := db.CreateCollection(ctx, name); err != nil {
		// NamespaceExists / already exists is fine (race or prior run).
		if isNamespaceExistsErr(err) {
			zap.L().Info("collection exists", zap.String("collection", name))
			return false, nil
		}
		zap.L().Warn("createCollection failed", zap.String("collection", name), zap.Error(err))
		return false, err
	}
	zap.L().Info("created collection", zap.String("collection", name))
	return true, nil
}

/* ------------------------------ validators ------------------------------- */

func setValidator(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	var out bson.M
	if err := db.RunCommand(ctx, cmd).Decode(&out); err != nil {
		return err
	}
	zap.L().Info("validator ensured", zap.String("collection", name))
	return nil
}

/* ------------------------- error helpers ------------------------- */

func isNamespaceExistsErr(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 48 || strings.Contains(strings.ToLower(ce.Message), "already exists")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "already exists") || strings.Contains(s, "namespace exists")
}

func isNoSuchCommand(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 59 || strings.Contains(strings.ToLower(ce.Message), "no such command")) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "no such command")
}

func isNotImplemented(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 115 ||
		strings.Contains(strings.ToLower(ce.Message), "not implemented") ||
		strings.Contains(strings.ToLower(ce.Message), "not supported")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "not implemented") || strings.Contains(s, "not supported")
}

/* ------------------------- JSON-Schema docs ---------------------- */

var nonBlank = bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"}

func studentsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"enrollment_no", "full_name", "class"},
			"properties": bson.M{
				"enrollment_no": nonBlank,
				"full_name":     nonBlank,
				"full_name_ci":  bson.M{"bsonType": "string"},
				"class":         nonBlank,
				"contact":       bson.M{"bsonType": "string"},
				"email":         bson.M{"bsonType": "string"},
			},
		},
	}
}

func draftsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"group_id", "leader_id", "team_name", "status"},
			"properties": bson.M{
				"group_id":  nonBlank,
				"leader_id": nonBlank,
				"team_name": bson.M{"bsonType": "string", "minLength": 1, "maxLength": 100},
				"status": bson.M{"enum": bson.A{
					models.DraftStatusDraft,
					models.DraftStatusConfirmed,
					models.DraftStatusCancelled,
				}},
				"previous_ps_id": bson.M{"bsonType": bson.A{"string", "null"}},
				"final_group_id": bson.M{"bsonType": bson.A{"string", "null"}},
			},
		},
	}
}

func invitationsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"request_id", "group_id", "student_id", "status"},
			"properties": bson.M{
				"request_id": nonBlank,
				"group_id":   nonBlank,
				"student_id": nonBlank,
				"status": bson.M{"enum": bson.A{
					models.InvitationStatusPending,
					models.InvitationStatusAccepted,
					models.InvitationStatusRejected,
				}},
				"responded_at": bson.M{"bsonType": bson.A{"date", "null"}},
			},
		},
	}
}

func finalGroupsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"group_id", "team_name", "leader_id", "draft_group_id"},
			"properties": bson.M{
				"group_id":       nonBlank,
				"team_name":      nonBlank,
				"leader_id":      nonBlank,
				"draft_group_id": nonBlank,
				"class_prefix":   bson.M{"bsonType": "string"},
				"seq":            bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 1, "maximum": 99},
			},
		},
	}
}

func finalGroupMembersSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"group_id", "member_id", "is_leader"},
			"properties": bson.M{
				"group_id":             nonBlank,
				"member_id":            nonBlank,
				"header_id":            bson.M{"bsonType": "objectId"},
				"is_leader":            bson.M{"bsonType": "bool"},
				"mentor_code":          bson.M{"bsonType": bson.A{"string", "null"}},
				"problem_statement_id": bson.M{"bsonType": bson.A{"string", "null"}},
			},
		},
	}
}
