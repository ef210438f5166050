package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/yamdb/yamdb-api/internal/core/policy"
)

// Permit gates a route on the permission evaluator for a resource kind and
// action. Object-level ownership (reviews, comments) is checked by the
// service once the stored author is known.
func Permit(kind policy.Kind, action policy.Action) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if err := policy.Authorize(CallerFrom(c), action, policy.Target{Kind: kind}); err != nil {
				recordDenial(kind, err)
				return err
			}
			return next(c)
		}
	}
}
