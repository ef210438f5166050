package ports

import (
	"context"
	"time"

	"github.com/yamdb/yamdb-api/internal/core/domain"
)

// UserRepository persists the user directory.
type UserRepository interface {
	// Create assigns an ID and inserts the user. A unique index violation is
	// reported as *domain.DuplicateError naming the field.
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context, page Page) ([]*domain.User, int64, error)
	Update(ctx context.Context, id int64, patch domain.UserPatch) (*domain.User, error)
	Delete(ctx context.Context, id int64) error

	// SetConfirmationCode replaces the stored code hash (last write wins).
	SetConfirmationCode(ctx context.Context, id int64, hash string, issuedAt time.Time) error
	// ConsumeConfirmationCode clears the code only if it still equals hash and
	// returns domain.ErrCodeConsumed otherwise. It also stamps confirmed_at.
	ConsumeConfirmationCode(ctx context.Context, id int64, hash string, at time.Time) error
	// MarkConfirmed stamps confirmed_at once, leaving the code in place.
	MarkConfirmed(ctx context.Context, id int64, at time.Time) error
}
