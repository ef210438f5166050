package ports

import (
	"context"

	"github.com/yamdb/yamdb-api/internal/core/domain"
	"github.com/yamdb/yamdb-api/internal/core/policy"
)

// CreateUserInput is an admin-created account.
type CreateUserInput struct {
	Username  string
	Email     string
	FirstName string
	LastName  string
	Bio       string
	Role      domain.Role // empty means domain.RoleUser
}

// SelfPatch is what a caller may change on their own account. It has no
// role field: privilege changes go through the admin directory path only.
type SelfPatch struct {
	Username  *string
	Email     *string
	FirstName *string
	LastName  *string
	Bio       *string
}

// UserService manages the user directory.
type UserService interface {
	List(ctx context.Context, page Page) ([]*domain.User, int64, error)
	Create(ctx context.Context, input CreateUserInput) (*domain.User, error)
	Get(ctx context.Context, username string) (*domain.User, error)
	Update(ctx context.Context, username string, patch domain.UserPatch) (*domain.User, error)
	Delete(ctx context.Context, username string) error

	// Authenticate resolves the account behind verified token claims.
	Authenticate(ctx context.Context, claims *TokenClaims) (*domain.User, error)
	Me(ctx context.Context, caller policy.Caller) (*domain.User, error)
	UpdateMe(ctx context.Context, caller policy.Caller, patch SelfPatch) (*domain.User, error)
}
