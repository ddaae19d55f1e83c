// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// EnsureAll creates collections (if missing) and attaches JSON-Schema
// validators. Servers without collMod/validator support are logged and
// skipped.
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

	ensure("users", usersSchema())
	ensure("usernames", usernamesSchema())
	ensure("conversations", conversationsSchema())
	ensure("messages", messagesSchema())
	ensure("followers", followSchema())
	ensure("following", followSchema())
	ensure("shorts", shortsSchema())
	ensure("posts", postsSchema())
	ensure("comments", commentsSchema())

	// Change streams and transactions need the collections to exist up
	// front; audit events have no validator.
	ensure("audit_events", nil)

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

func usersSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"email", "role", "verification"},
			"properties": bson.M{
				"email":         nonBlank,
				"username":      bson.M{"bsonType": "string", "minLength": 3, "maxLength": 20},
				"username_ci":   bson.M{"bsonType": "string", "minLength": 3, "maxLength": 20},
				"photo_url":     bson.M{"bsonType": bson.A{"string", "null"}},
				"role":          bson.M{"enum": bson.A{"creator", "clan_owner", "user"}},
				"verification":  bson.M{"enum": bson.A{"none", "blue", "gold"}},
				"password_hash": bson.M{"bsonType": bson.A{"string", "null"}},
			},
		},
	}
}

func usernamesSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"_id", "user_id"},
			"properties": bson.M{
				"_id":     bson.M{"bsonType": "string", "minLength": 3},
				"user_id": bson.M{"bsonType": "objectId"},
			},
		},
	}
}

func conversationsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"_id", "participants"},
			"properties": bson.M{
				"_id": bson.M{"bsonType": "string", "pattern": "^[0-9a-f]{24}_[0-9a-f]{24}$"},
				"participants": bson.M{
					"bsonType": "array",
					"minItems": 2,
					"maxItems": 2,
					"items":    bson.M{"bsonType": "objectId"},
				},
				"participant_names":  bson.M{"bsonType": "object"},
				"participant_photos": bson.M{"bsonType": "object"},
				"last_message":       bson.M{"bsonType": "string"},
				"last_message_at":    bson.M{"bsonType": "date"},
			},
		},
	}
}

func messagesSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"conversation_id", "sender_id", "text", "created_at"},
			"properties": bson.M{
				"conversation_id": nonBlank,
				"sender_id":       bson.M{"bsonType": "objectId"},
				"text":            bson.M{"bsonType": "string"},
				"image_url":       bson.M{"bsonType": "string"},
				"video_url":       bson.M{"bsonType": "string"},
				"created_at":      bson.M{"bsonType": "date"},
			},
		},
	}
}

func followSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"_id", "owner_id", "other_id", "created_at"},
			"properties": bson.M{
				"_id":        bson.M{"bsonType": "string", "pattern": "^[0-9a-f]{24}:[0-9a-f]{24}$"},
				"owner_id":   bson.M{"bsonType": "objectId"},
				"other_id":   bson.M{"bsonType": "objectId"},
				"username":   bson.M{"bsonType": "string"},
				"created_at": bson.M{"bsonType": "date"},
			},
		},
	}
}

func shortsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"author_id", "video_url", "liked_by", "created_at"},
			"properties": bson.M{
				"author_id":  bson.M{"bsonType": "objectId"},
				"video_url":  nonBlank,
				"liked_by":   bson.M{"bsonType": "array", "items": bson.M{"bsonType": "objectId"}},
				"created_at": bson.M{"bsonType": "date"},
			},
		},
	}
}

func postsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"author_id", "title", "body", "liked_by", "created_at"},
			"properties": bson.M{
				"author_id":  bson.M{"bsonType": "objectId"},
				"title":      nonBlank,
				"body":       bson.M{"bsonType": "string"},
				"liked_by":   bson.M{"bsonType": "array", "items": bson.M{"bsonType": "objectId"}},
				"created_at": bson.M{"bsonType": "date"},
			},
		},
	}
}

func commentsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"item_kind", "item_id", "author_id", "content", "created_at"},
			"properties": bson.M{
				"item_kind":  bson.M{"enum": bson.A{"short", "post"}},
				"item_id":    bson.M{"bsonType": "objectId"},
				"author_id":  bson.M{"bsonType": "objectId"},
				"content":    nonBlank,
				"created_at": bson.M{"bsonType": "date"},
			},
		},
	}
}
