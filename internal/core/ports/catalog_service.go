package ports

import (
	"context"

	"github.com/yamdb/yamdb-api/internal/core/domain"
)

// TitleInput carries title fields for create and update. On create every
// required field must be set; on update nil fields are left untouched.
type TitleInput struct {
	Name        *string
	Year        *int
	Description *string
	Genres      *[]string
	Category    *string
}

// TitleDetail is the read view of a title with its terms resolved.
type TitleDetail struct {
	ID          int64
	Name        string
	Year        int
	Description string
	Rating      *float64
	Genres      []domain.Term
	Category    *domain.Term
}

// CatalogService manages categories, genres and titles.
type CatalogService interface {
	ListCategories(ctx context.Context, page Page) ([]domain.Term, int64, error)
	CreateCategory(ctx context.Context, term domain.Term) (*domain.Term, error)
	DeleteCategory(ctx context.Context, slug string) error

	ListGenres(ctx context.Context, page Page) ([]domain.Term, int64, error)
	CreateGenre(ctx context.Context, term domain.Term) (*domain.Term, error)
	DeleteGenre(ctx context.Context, slug string) error

	ListTitles(ctx context.Context, page Page) ([]*TitleDetail, int64, error)
	GetTitle(ctx context.Context, id int64) (*TitleDetail, error)
	CreateTitle(ctx context.Context, input TitleInput) (*TitleDetail, error)
	UpdateTitle(ctx context.Context, id int64, input TitleInput) (*TitleDetail, error)
	DeleteTitle(ctx context.Context, id int64) error

	// RecalculateRating recomputes and stores the average review score.
	RecalculateRating(ctx context.Context, titleID int64) error
}
