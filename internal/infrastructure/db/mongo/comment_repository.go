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

// CommentRepository implements ports.CommentRepository.
type CommentRepository struct {
	coll     *mongo.Collection
	counters *Counters
}

func NewCommentRepository(db *mongo.Database, counters *Counters) *CommentRepository {
	return &CommentRepository{coll: db.Collection(collectionComments), counters: counters}
}

type mongoComment struct {
	ID       int64     `bson:"_id"`
	ReviewID int64     `bson:"review_id"`
	AuthorID int64     `bson:"author_id"`
	Author   string    `bson:"author"`
	Text     string    `bson:"text"`
	PubDate  time.Time `bson:"pub_date"`
}

func (m mongoComment) toDomain() *domain.Comment {
	return &domain.Comment{
		ID:       m.ID,
		ReviewID: m.ReviewID,
		AuthorID: m.AuthorID,
		Author:   m.Author,
		Text:     m.Text,
		PubDate:  m.PubDate.UTC(),
	}
}

func (r *CommentRepository) Create(ctx context.Context, comment *domain.Comment) (*domain.Comment, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	id := comment.ID
	if id == 0 {
		next, err := r.counters.Next(ctx, collectionComments)
		if err != nil {
			return nil, err
		}
		id = next
	}

	doc := mongoComment{
		ID:       id,
		ReviewID: comment.ReviewID,
		AuthorID: comment.AuthorID,
		Author:   comment.Author,
		Text:     comment.Text,
		PubDate:  comment.PubDate.UTC(),
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("insert comment: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *CommentRepository) Find(ctx context.Context, reviewID, commentID int64) (*domain.Comment, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc mongoComment
	if err := r.coll.FindOne(ctx, bson.M{"_id": commentID, "review_id": reviewID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrCommentNotFound
		}
		return nil, fmt.Errorf("find comment: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *CommentRepository) List(ctx context.Context, reviewID int64, page ports.Page) ([]*domain.Comment, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{"review_id": reviewID}
	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count comments: %w", err)
	}

	cur, err := r.coll.Find(ctx, filter, findPage(page, bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, 0, fmt.Errorf("list comments: %w", err)
	}
	defer cur.Close(ctx)

	var docs []mongoComment
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("decode comments: %w", err)
	}
	comments := make([]*domain.Comment, 0, len(docs))
	for _, d := range docs {
		comments = append(comments, d.toDomain())
	}
	return comments, total, nil
}

func (r *CommentRepository) Update(ctx context.Context, reviewID, commentID int64, text string) (*domain.Comment, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc mongoComment
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": commentID, "review_id": reviewID},
		bson.M{"$set": bson.M{"text": text}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrCommentNotFound
		}
		return nil, fmt.Errorf("update comment: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *CommentRepository) Delete(ctx context.Context, reviewID, commentID int64) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": commentID, "review_id": reviewID})
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrCommentNotFound
	}
	return nil
}

func (r *CommentRepository) DeleteByReviews(ctx context.Context, reviewIDs []int64) error {
	if len(reviewIDs) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := r.coll.DeleteMany(ctx, bson.M{"review_id": bson.M{"$in": reviewIDs}}); err != nil {
		return fmt.Errorf("delete comments of reviews: %w", err)
	}
	return nil
}

func (r *CommentRepository) DeleteByAuthor(ctx context.Context, authorID int64) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := r.coll.DeleteMany(ctx, bson.M{"author_id": authorID}); err != nil {
		return fmt.Errorf("delete comments by author: %w", err)
	}
	return nil
}

func (r *CommentRepository) RenameAuthor(ctx context.Context, authorID int64, username string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.coll.UpdateMany(ctx,
		bson.M{"author_id": authorID},
		bson.M{"$set": bson.M{"author": username}},
	)
	if err != nil {
		return fmt.Errorf("rename comment author: %w", err)
	}
	return nil
}
