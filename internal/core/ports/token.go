package ports

import (
	"github.com/yamdb/yamdb-api/internal/core/domain"
)

// TokenClaims is the identity asserted by a verified access token.
type TokenClaims struct {
	UserID   int64
	Username string
	TokenID  string
}

// TokenIssuer mints signed access tokens.
type TokenIssuer interface {
	Issue(user *domain.User) (string, error)
}

// TokenVerifier checks signature and expiry of an access token.
type TokenVerifier interface {
	Verify(token string) (*TokenClaims, error)
}
