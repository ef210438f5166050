package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/yamdb/yamdb-api/internal/api/middleware"
	"github.com/yamdb/yamdb-api/internal/core/domain"
	"github.com/yamdb/yamdb-api/internal/core/policy"
)

var errInvalidPayload = echo.NewHTTPError(http.StatusBadRequest, "invalid payload")

// callerOf returns the identity the Auth middleware resolved for this request.
func callerOf(c echo.Context) policy.Caller {
	return middleware.CallerFrom(c)
}

// pathID parses a numeric path parameter. Anything that is not a positive
// integer cannot name a stored object, so it is reported as not found.
func pathID(c echo.Context, name string, notFound error) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, notFound
	}
	return id, nil
}

// bindAndValidate decodes the request body into req and runs its validate tags.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return errInvalidPayload
	}
	return c.Validate(req)
}

func requireFields(fields map[string]bool) error {
	ve := &domain.ValidationError{}
	for name, present := range fields {
		if !present {
			ve.Add(name, "this field is required")
		}
	}
	return ve.OrNil()
}
