package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/yamdb/yamdb-api/internal/core/domain"
	"github.com/yamdb/yamdb-api/internal/core/ports"
)

// TitleRepository implements ports.TitleRepository. Genres and category are
// stored as slugs on the title document.
type TitleRepository struct {
	coll     *mongo.Collection
	counters *Counters
}

func NewTitleRepository(db *mongo.Database, counters *Counters) *TitleRepository {
	return &TitleRepository{coll: db.Collection(collectionTitles), counters: counters}
}

type mongoTitle struct {
	ID          int64    `bson:"_id"`
	Name        string   `bson:"name"`
	Year        int      `bson:"year"`
	Description string   `bson:"description,omitempty"`
	Genres      []string `bson:"genres"`
	Category    string   `bson:"category,omitempty"`
	Rating      *float64 `bson:"rating"`
}

func (m mongoTitle) toDomain() *domain.Title {
	genres := m.Genres
	if genres == nil {
		genres = []string{}
	}
	return &domain.Title{
		ID:          m.ID,
		Name:        m.Name,
		Year:        m.Year,
		Description: m.Description,
		Genres:      genres,
		Category:    m.Category,
		Rating:      m.Rating,
	}
}

func (r *TitleRepository) Create(ctx context.Context, title *domain.Title) (*domain.Title, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	id := title.ID
	if id == 0 {
		next, err := r.counters.Next(ctx, collectionTitles)
		if err != nil {
			return nil, err
		}
		id = next
	}

	doc := mongoTitle{
		ID:          id,
		Name:        title.Name,
		Year:        title.Year,
		Description: title.Description,
		Genres:      title.Genres,
		Category:    title.Category,
		Rating:      title.Rating,
	}
	if doc.Genres == nil {
		doc.Genres = []string{}
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("insert title: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *TitleRepository) FindByID(ctx context.Context, id int64) (*domain.Title, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc mongoTitle
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrTitleNotFound
		}
		return nil, fmt.Errorf("find title: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *TitleRepository) List(ctx context.Context, page ports.Page) ([]*domain.Title, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	total, err := r.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, fmt.Errorf("count titles: %w", err)
	}

	cur, err := r.coll.Find(ctx, bson.M{}, findPage(page, bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, 0, fmt.Errorf("list titles: %w", err)
	}
	defer cur.Close(ctx)

	var docs []mongoTitle
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("decode titles: %w", err)
	}
	titles := make([]*domain.Title, 0, len(docs))
	for _, d := range docs {
		titles = append(titles, d.toDomain())
	}
	return titles, total, nil
}

func (r *TitleRepository) Update(ctx context.Context, id int64, patch domain.TitlePatch) (*domain.Title, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	set := bson.M{}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.Year != nil {
		set["year"] = *patch.Year
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.Genres != nil {
		set["genres"] = *patch.Genres
	}
	if patch.Category != nil {
		set["category"] = *patch.Category
	}
	if len(set) == 0 {
		return r.FindByID(ctx, id)
	}

	var doc mongoTitle
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrTitleNotFound
		}
		return nil, fmt.Errorf("update title: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *TitleRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete title: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrTitleNotFound
	}
	return nil
}

// SetRating stores the average score; nil clears it. A title deleted in the
// meantime is ignored.
func (r *TitleRepository) SetRating(ctx context.Context, id int64, rating *float64) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"rating": rating}})
	if err != nil {
		return fmt.Errorf("set rating: %w", err)
	}
	return nil
}

func (r *TitleRepository) ClearCategory(ctx context.Context, slug string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.coll.UpdateMany(ctx,
		bson.M{"category": slug},
		bson.M{"$unset": bson.M{"category": ""}},
	)
	if err != nil {
		return fmt.Errorf("clear category: %w", err)
	}
	return nil
}

func (r *TitleRepository) PullGenre(ctx context.Context, slug string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.coll.UpdateMany(ctx,
		bson.M{"genres": slug},
		bson.M{"$pull": bson.M{"genres": slug}},
	)
	if err != nil {
		return fmt.Errorf("pull genre: %w", err)
	}
	return nil
}
