package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/yamdb/yamdb-api/internal/core/domain"
	"github.com/yamdb/yamdb-api/internal/core/ports"
)

// TermRepository stores one slug vocabulary. The slug is the document id.
type TermRepository struct {
	coll     *mongo.Collection
	notFound error
}

func NewCategoryRepository(db *mongo.Database) *TermRepository {
	return &TermRepository{coll: db.Collection(collectionCategories), notFound: domain.ErrCategoryNotFound}
}

func NewGenreRepository(db *mongo.Database) *TermRepository {
	return &TermRepository{coll: db.Collection(collectionGenres), notFound: domain.ErrGenreNotFound}
}

type mongoTerm struct {
	Slug string `bson:"_id"`
	Name string `bson:"name"`
}

func (r *TermRepository) Create(ctx context.Context, term domain.Term) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := r.coll.InsertOne(ctx, mongoTerm{Slug: term.Slug, Name: term.Name}); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return &domain.DuplicateError{Field: "slug", Err: domain.ErrSlugExists}
		}
		return fmt.Errorf("insert %s: %w", r.coll.Name(), err)
	}
	return nil
}

func (r *TermRepository) List(ctx context.Context, page ports.Page) ([]domain.Term, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	total, err := r.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, fmt.Errorf("count %s: %w", r.coll.Name(), err)
	}

	cur, err := r.coll.Find(ctx, bson.M{}, findPage(page, bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, 0, fmt.Errorf("list %s: %w", r.coll.Name(), err)
	}
	terms, err := decodeTerms(ctx, cur)
	if err != nil {
		return nil, 0, err
	}
	return terms, total, nil
}

func (r *TermRepository) FindBySlugs(ctx context.Context, slugs []string) ([]domain.Term, error) {
	if len(slugs) == 0 {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.coll.Find(ctx, bson.M{"_id": bson.M{"$in": slugs}})
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", r.coll.Name(), err)
	}
	return decodeTerms(ctx, cur)
}

func (r *TermRepository) Delete(ctx context.Context, slug string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": slug})
	if err != nil {
		return fmt.Errorf("delete %s: %w", r.coll.Name(), err)
	}
	if res.DeletedCount == 0 {
		return r.notFound
	}
	return nil
}

func decodeTerms(ctx context.Context, cur *mongo.Cursor) ([]domain.Term, error) {
	defer cur.Close(ctx)

	var docs []mongoTerm
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode terms: %w", err)
	}
	terms := make([]domain.Term, 0, len(docs))
	for _, d := range docs {
		terms = append(terms, domain.Term{Name: d.Name, Slug: d.Slug})
	}
	return terms, nil
}
