package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/yamdb/yamdb-api/internal/core/domain"
)

// errorResponse is the envelope for every non-validation error.
type errorResponse struct {
	Error string `json:"error"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Renders validation failures as a field map: {"<field>": "<message>"}.
//   - Maps known domain errors to their HTTP status codes.
//   - Logs unexpected errors internally without leaking details to the client.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			_ = c.JSON(http.StatusBadRequest, ve.Fields)
			return
		}
		var dup *domain.DuplicateError
		if errors.As(err, &dup) {
			_ = c.JSON(http.StatusBadRequest, map[string]string{
				dup.Field: fmt.Sprintf("an object with this %s already exists", dup.Field),
			})
			return
		}

		code, msg := resolveError(err, log, c)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, errorResponse{Error: msg})
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string) {
	// Echo's own errors (bind failures, 404/405 from the router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprintf("%v", he.Message)
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, domain.ErrAuthenticationRequired),
		errors.Is(err, domain.ErrInvalidToken):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, domain.ErrPermissionDenied):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, domain.ErrSignupThrottled):
		return http.StatusTooManyRequests, domain.ErrSignupThrottled.Error()
	case errors.Is(err, domain.ErrEmailDelivery):
		return http.StatusServiceUnavailable, domain.ErrEmailDelivery.Error()
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, "internal server error"
}
