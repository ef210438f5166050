package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Counters hands out monotonically increasing int64 ids per sequence name.
type Counters struct {
	col *mongo.Collection
}

func NewCounters(db *mongo.Database) *Counters {
	return &Counters{col: db.Collection(collectionCounters)}
}

type counterDoc struct {
	Name string `bson:"_id"`
	Seq  int64  `bson:"seq"`
}

// Next atomically increments and returns the sequence.
func (c *Counters) Next(ctx context.Context, name string) (int64, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var doc counterDoc
	err := c.col.FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		opts,
	).Decode(&doc)
	if err != nil {
		return 0, fmt.Errorf("next %s id: %w", name, err)
	}
	return doc.Seq, nil
}

// AtLeast moves the sequence forward to at least seq. Imported rows keep
// their ids, so the counter must not hand them out again.
func (c *Counters) AtLeast(ctx context.Context, name string, seq int64) error {
	_, err := c.col.UpdateOne(ctx,
		bson.M{"_id": name},
		bson.M{"$max": bson.M{"seq": seq}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("advance %s counter: %w", name, err)
	}
	return nil
}
