package ports

import (
	"context"

	"github.com/yamdb/yamdb-api/internal/core/domain"
)

// ReviewPatch carries optional review field updates.
type ReviewPatch struct {
	Text  *string
	Score *int
}

// ReviewRepository persists reviews. Lookups are always scoped to a title.
type ReviewRepository interface {
	// Create returns domain.ErrReviewExists when the author already reviewed
	// the title.
	Create(ctx context.Context, review *domain.Review) (*domain.Review, error)
	Find(ctx context.Context, titleID, reviewID int64) (*domain.Review, error)
	List(ctx context.Context, titleID int64, page Page) ([]*domain.Review, int64, error)
	Update(ctx context.Context, titleID, reviewID int64, patch ReviewPatch) (*domain.Review, error)
	Delete(ctx context.Context, titleID, reviewID int64) error

	AverageScore(ctx context.Context, titleID int64) (*float64, error)
	IDsByTitle(ctx context.Context, titleID int64) ([]int64, error)
	DeleteByTitle(ctx context.Context, titleID int64) error
	ListByAuthor(ctx context.Context, authorID int64) ([]*domain.Review, error)
	DeleteByAuthor(ctx context.Context, authorID int64) error
	RenameAuthor(ctx context.Context, authorID int64, username string) error
}

// CommentRepository persists comments. Lookups are always scoped to a review.
type CommentRepository interface {
	Create(ctx context.Context, comment *domain.Comment) (*domain.Comment, error)
	Find(ctx context.Context, reviewID, commentID int64) (*domain.Comment, error)
	List(ctx context.Context, reviewID int64, page Page) ([]*domain.Comment, int64, error)
	Update(ctx context.Context, reviewID, commentID int64, text string) (*domain.Comment, error)
	Delete(ctx context.Context, reviewID, commentID int64) error

	DeleteByReviews(ctx context.Context, reviewIDs []int64) error
	DeleteByAuthor(ctx context.Context, authorID int64) error
	RenameAuthor(ctx context.Context, authorID int64, username string) error
}
