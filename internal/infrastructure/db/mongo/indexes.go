package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the indexes every collection relies on. Unique index
// names follow "<field>_unique" so duplicate-key errors can be mapped back
// to the offending field.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	specs := map[string][]mongo.IndexModel{
		collectionUsers: {
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetName("username_unique").SetUnique(true)},
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetName("email_unique").SetUnique(true)},
		},
		collectionTitles: {
			{Keys: bson.D{{Key: "name", Value: 1}}},
			{Keys: bson.D{{Key: "category", Value: 1}}},
			{Keys: bson.D{{Key: "genres", Value: 1}}},
		},
		collectionReviews: {
			{
				Keys:    bson.D{{Key: "title_id", Value: 1}, {Key: "author_id", Value: 1}},
				Options: options.Index().SetName("title_author_unique").SetUnique(true),
			},
			{Keys: bson.D{{Key: "author_id", Value: 1}}},
		},
		collectionComments: {
			{Keys: bson.D{{Key: "review_id", Value: 1}}},
			{Keys: bson.D{{Key: "author_id", Value: 1}}},
		},
		collectionCategories: {
			{Keys: bson.D{{Key: "name", Value: 1}}},
		},
		collectionGenres: {
			{Keys: bson.D{{Key: "name", Value: 1}}},
		},
	}

	for coll, indexes := range specs {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, indexes); err != nil {
			return fmt.Errorf("ensure %s indexes: %w", coll, err)
		}
	}
	return nil
}
