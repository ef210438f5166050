package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/yamdb/yamdb-api/internal/core/domain"
	"github.com/yamdb/yamdb-api/internal/core/ports"
)

// ReviewRepository implements ports.ReviewRepository. The unique
// (title_id, author_id) index enforces one review per author and title.
type ReviewRepository struct {
	coll     *mongo.Collection
	counters *Counters
}

func NewReviewRepository(db *mongo.Database, counters *Counters) *ReviewRepository {
	return &ReviewRepository{coll: db.Collection(collectionReviews), counters: counters}
}

type mongoReview struct {
	ID       int64     `bson:"_id"`
	TitleID  int64     `bson:"title_id"`
	AuthorID int64     `bson:"author_id"`
	Author   string    `bson:"author"`
	Text     string    `bson:"text"`
	Score    int       `bson:"score"`
	PubDate  time.Time `bson:"pub_date"`
}

func (m mongoReview) toDomain() *domain.Review {
	return &domain.Review{
		ID:       m.ID,
		TitleID:  m.TitleID,
		AuthorID: m.AuthorID,
		Author:   m.Author,
		Text:     m.Text,
		Score:    m.Score,
		PubDate:  m.PubDate.UTC(),
	}
}

func (r *ReviewRepository) Create(ctx context.Context, review *domain.Review) (*domain.Review, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	id := review.ID
	if id == 0 {
		next, err := r.counters.Next(ctx, collectionReviews)
		if err != nil {
			return nil, err
		}
		id = next
	}

	doc := mongoReview{
		ID:       id,
		TitleID:  review.TitleID,
		AuthorID: review.AuthorID,
		Author:   review.Author,
		Text:     review.Text,
		Score:    review.Score,
		PubDate:  review.PubDate.UTC(),
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrReviewExists
		}
		return nil, fmt.Errorf("insert review: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *ReviewRepository) Find(ctx context.Context, titleID, reviewID int64) (*domain.Review, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc mongoReview
	if err := r.coll.FindOne(ctx, bson.M{"_id": reviewID, "title_id": titleID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrReviewNotFound
		}
		return nil, fmt.Errorf("find review: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *ReviewRepository) List(ctx context.Context, titleID int64, page ports.Page) ([]*domain.Review, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{"title_id": titleID}
	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count reviews: %w", err)
	}

	cur, err := r.coll.Find(ctx, filter, findPage(page, bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, 0, fmt.Errorf("list reviews: %w", err)
	}
	reviews, err := decodeReviews(ctx, cur)
	if err != nil {
		return nil, 0, err
	}
	return reviews, total, nil
}

func (r *ReviewRepository) Update(ctx context.Context, titleID, reviewID int64, patch ports.ReviewPatch) (*domain.Review, error) {
	set := bson.M{}
	if patch.Text != nil {
		set["text"] = *patch.Text
	}
	if patch.Score != nil {
		set["score"] = *patch.Score
	}
	if len(set) == 0 {
		return r.Find(ctx, titleID, reviewID)
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc mongoReview
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": reviewID, "title_id": titleID},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrReviewNotFound
		}
		return nil, fmt.Errorf("update review: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *ReviewRepository) Delete(ctx context.Context, titleID, reviewID int64) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": reviewID, "title_id": titleID})
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrReviewNotFound
	}
	return nil
}

// AverageScore returns the mean score of the title's reviews, or nil when
// the title has none.
func (r *ReviewRepository) AverageScore(ctx context.Context, titleID int64) (*float64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"title_id": titleID}}},
		{{Key: "$group", Value: bson.M{"_id": nil, "avg": bson.M{"$avg": "$score"}}}},
	}
	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("average score: %w", err)
	}
	defer cur.Close(ctx)

	var out []struct {
		Avg float64 `bson:"avg"`
	}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode average score: %w", err)
	}
	if len(out) == 0 {
		return nil, nil
	}
	avg := out[0].Avg
	return &avg, nil
}

func (r *ReviewRepository) IDsByTitle(ctx context.Context, titleID int64) ([]int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.coll.Find(ctx,
		bson.M{"title_id": titleID},
		options.Find().SetProjection(bson.M{"_id": 1}),
	)
	if err != nil {
		return nil, fmt.Errorf("list review ids: %w", err)
	}
	defer cur.Close(ctx)

	var docs []struct {
		ID int64 `bson:"_id"`
	}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode review ids: %w", err)
	}
	ids := make([]int64, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	return ids, nil
}

func (r *ReviewRepository) DeleteByTitle(ctx context.Context, titleID int64) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := r.coll.DeleteMany(ctx, bson.M{"title_id": titleID}); err != nil {
		return fmt.Errorf("delete reviews of title: %w", err)
	}
	return nil
}

func (r *ReviewRepository) ListByAuthor(ctx context.Context, authorID int64) ([]*domain.Review, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.coll.Find(ctx, bson.M{"author_id": authorID})
	if err != nil {
		return nil, fmt.Errorf("list reviews by author: %w", err)
	}
	return decodeReviews(ctx, cur)
}

func (r *ReviewRepository) DeleteByAuthor(ctx context.Context, authorID int64) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := r.coll.DeleteMany(ctx, bson.M{"author_id": authorID}); err != nil {
		return fmt.Errorf("delete reviews by author: %w", err)
	}
	return nil
}

func (r *ReviewRepository) RenameAuthor(ctx context.Context, authorID int64, username string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.coll.UpdateMany(ctx,
		bson.M{"author_id": authorID},
		bson.M{"$set": bson.M{"author": username}},
	)
	if err != nil {
		return fmt.Errorf("rename review author: %w", err)
	}
	return nil
}

func decodeReviews(ctx context.Context, cur *mongo.Cursor) ([]*domain.Review, error) {
	defer cur.Close(ctx)

	var docs []mongoReview
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode reviews: %w", err)
	}
	reviews := make([]*domain.Review, 0, len(docs))
	for _, d := range docs {
		reviews = append(reviews, d.toDomain())
	}
	return reviews, nil
}
