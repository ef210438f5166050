package ports

import (
	"context"

	"github.com/yamdb/yamdb-api/internal/core/domain"
)

// TermRepository persists one slug vocabulary (categories or genres).
type TermRepository interface {
	Create(ctx context.Context, term domain.Term) error
	List(ctx context.Context, page Page) ([]domain.Term, int64, error)
	// FindBySlugs returns the terms that exist, in no particular order.
	FindBySlugs(ctx context.Context, slugs []string) ([]domain.Term, error)
	Delete(ctx context.Context, slug string) error
}

// TitleRepository persists titles.
type TitleRepository interface {
	Create(ctx context.Context, title *domain.Title) (*domain.Title, error)
	FindByID(ctx context.Context, id int64) (*domain.Title, error)
	List(ctx context.Context, page Page) ([]*domain.Title, int64, error)
	Update(ctx context.Context, id int64, patch domain.TitlePatch) (*domain.Title, error)
	Delete(ctx context.Context, id int64) error
	SetRating(ctx context.Context, id int64, rating *float64) error

	// ClearCategory and PullGenre detach a deleted term from every title.
	ClearCategory(ctx context.Context, slug string) error
	PullGenre(ctx context.Context, slug string) error
}
