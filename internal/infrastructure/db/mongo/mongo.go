package mongo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/yamdb/yamdb-api/internal/core/domain"
	"github.com/yamdb/yamdb-api/internal/core/ports"
)

const defaultTimeout = 10 * time.Second

const (
	collectionUsers      = "users"
	collectionCategories = "categories"
	collectionGenres     = "genres"
	collectionTitles     = "titles"
	collectionReviews    = "reviews"
	collectionComments   = "comments"
	collectionCounters   = "counters"
)

// Config captures the minimal settings required to establish a MongoDB connection.
type Config struct {
	URI      string
	Database string
	Timeout  time.Duration
}

// Connect establishes a MongoDB client, verifies connectivity with a ping, and
// returns both the client and the selected database. A default timeout is
// applied when none is provided.
func Connect(ctx context.Context, cfg Config) (*mongo.Client, *mongo.Database, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, nil, fmt.Errorf("mongo connect: %w", err)
	}

	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(connectCtx)
		return nil, nil, fmt.Errorf("mongo ping: %w", err)
	}

	db := client.Database(cfg.Database)
	return client, db, nil
}

// Pinger adapts a client to the readiness probe.
type Pinger struct {
	Client *mongo.Client
}

func (p Pinger) Ping(ctx context.Context) error {
	return p.Client.Ping(ctx, readpref.Primary())
}

// findPage returns Find options for a normalized page with the given sort.
func findPage(page ports.Page, sort interface{}) *options.FindOptions {
	page = page.Normalize()
	return options.Find().
		SetSort(sort).
		SetSkip(int64(page.Offset)).
		SetLimit(int64(page.Limit))
}

// duplicateField names the unique index a duplicate-key error was raised on.
// Index names follow "<field>_unique"; the first candidate is the fallback.
func duplicateField(err error, candidates ...string) string {
	msg := err.Error()
	for _, f := range candidates {
		if strings.Contains(msg, f+"_unique") {
			return f
		}
	}
	if len(candidates) > 0 {
		return candidates[0]
	}
	return ""
}

func asDuplicate(err error, sentinel error, candidates ...string) error {
	if !mongo.IsDuplicateKeyError(err) {
		return err
	}
	return &domain.DuplicateError{Field: duplicateField(err, candidates...), Err: sentinel}
}

func unixToTime(ts int64) time.Time {
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0).UTC()
}

func timeToUnix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}
