package ports

import (
	"context"

	"github.com/yamdb/yamdb-api/internal/core/domain"
	"github.com/yamdb/yamdb-api/internal/core/policy"
)

// ReviewInput carries review fields. Create requires both.
type ReviewInput struct {
	Text  *string
	Score *int
}

// ReviewService manages reviews and their comments. Every mutation is
// authorized against the caller and the stored author.
type ReviewService interface {
	ListReviews(ctx context.Context, titleID int64, page Page) ([]*domain.Review, int64, error)
	GetReview(ctx context.Context, titleID, reviewID int64) (*domain.Review, error)
	CreateReview(ctx context.Context, caller policy.Caller, titleID int64, input ReviewInput) (*domain.Review, error)
	UpdateReview(ctx context.Context, caller policy.Caller, titleID, reviewID int64, input ReviewInput) (*domain.Review, error)
	DeleteReview(ctx context.Context, caller policy.Caller, titleID, reviewID int64) error

	ListComments(ctx context.Context, titleID, reviewID int64, page Page) ([]*domain.Comment, int64, error)
	GetComment(ctx context.Context, titleID, reviewID, commentID int64) (*domain.Comment, error)
	CreateComment(ctx context.Context, caller policy.Caller, titleID, reviewID int64, text string) (*domain.Comment, error)
	UpdateComment(ctx context.Context, caller policy.Caller, titleID, reviewID, commentID int64, text string) (*domain.Comment, error)
	DeleteComment(ctx context.Context, caller policy.Caller, titleID, reviewID, commentID int64) error
}

// RatingQueue schedules an asynchronous rating refresh for a title.
type RatingQueue interface {
	Enqueue(titleID int64)
}
