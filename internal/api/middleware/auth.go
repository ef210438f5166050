package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/yamdb/yamdb-api/internal/api/metrics"
	"github.com/yamdb/yamdb-api/internal/core/domain"
	"github.com/yamdb/yamdb-api/internal/core/policy"
	"github.com/yamdb/yamdb-api/internal/core/ports"
)

const callerKey = "caller"

// UserResolver loads the account behind verified token claims.
type UserResolver interface {
	Authenticate(ctx context.Context, claims *ports.TokenClaims) (*domain.User, error)
}

// Auth resolves the bearer token, when present, into a policy.Caller stored
// on the context. Requests without an Authorization header continue as the
// anonymous caller; a malformed or invalid token is rejected with 401. The
// role always comes from the directory, never from the token.
func Auth(tokens ports.TokenVerifier, users UserResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				c.Set(callerKey, policy.Caller{})
				return next(c)
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
				return domain.ErrInvalidToken
			}

			claims, err := tokens.Verify(parts[1])
			if err != nil {
				return domain.ErrInvalidToken
			}
			user, err := users.Authenticate(c.Request().Context(), claims)
			if err != nil {
				return err
			}

			c.Set(callerKey, policy.Caller{ID: user.ID, Username: user.Username, Role: user.Role})
			return next(c)
		}
	}
}

// CallerFrom returns the caller resolved by Auth, or the anonymous caller.
func CallerFrom(c echo.Context) policy.Caller {
	caller, _ := c.Get(callerKey).(policy.Caller)
	return caller
}

// SetCaller stores caller on the context.
func SetCaller(c echo.Context, caller policy.Caller) {
	c.Set(callerKey, caller)
}

func denialStatus(err error) string {
	if errors.Is(err, domain.ErrAuthenticationRequired) {
		return "401"
	}
	return "403"
}

func recordDenial(kind policy.Kind, err error) {
	metrics.PermissionDenialsTotal.WithLabelValues(string(kind), denialStatus(err)).Inc()
}
