package docstore

import (
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ParseID converts a hex string to an ObjectID. Malformed ids are reported as
// ErrNotFound: no document can carry them.
func ParseID(hex string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, ErrNotFound
	}
	return id, nil
}

// ContainsAny builds a case-insensitive "contains keyword" filter over fields.
// The keyword is matched literally.
func ContainsAny(keyword string, fields ...string) bson.M {
	pattern := primitive.Regex{Pattern: regexp.QuoteMeta(keyword), Options: "i"}

	or := make(bson.A, 0, len(fields))
	for _, f := range fields {
		or = append(or, bson.M{f: pattern})
	}
	return bson.M{"$or": or}
}

// Newest sorts by created_at descending, then _id for a stable order.
func Newest() bson.D {
	return bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}
}

// Page returns find options for a 1-based page of size perPage, newest first.
func Page(page, perPage int) *options.FindOptions {
	if page < 1 {
		page = 1
	}
	return options.Find().
		SetSort(Newest()).
		SetSkip(int64((page - 1) * perPage)).
		SetLimit(int64(perPage))
}
