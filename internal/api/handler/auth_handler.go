package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/yamdb/yamdb-api/internal/api/metrics"
	"github.com/yamdb/yamdb-api/internal/core/domain"
	"github.com/yamdb/yamdb-api/internal/core/ports"
)

type AuthHandler struct {
	authService ports.AuthService
}

func NewAuthHandler(authService ports.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type signupRequest struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required"`
}

type signupResponse struct {
	Email    string `json:"email"`
	Username string `json:"username"`
}

type tokenRequest struct {
	Username         string `json:"username" validate:"required"`
	ConfirmationCode string `json:"confirmation_code" validate:"required"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

// Signup registers a user and emails a confirmation code. Repeating the
// call with the same username and email re-sends a fresh code.
//
// @Summary      Sign up
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      signupRequest  true  "Username and email"
// @Success      200   {object}  signupResponse
// @Failure      400   {object}  map[string]string
// @Failure      429   {object}  map[string]string
// @Failure      503   {object}  map[string]string
// @Router       /auth/signup/ [post]
func (h *AuthHandler) Signup(c echo.Context) error {
	var req signupRequest
	if err := bindAndValidate(c, &req); err != nil {
		metrics.SignupsTotal.WithLabelValues("rejected").Inc()
		return err
	}

	result, err := h.authService.Signup(c.Request().Context(), req.Username, req.Email)
	if err != nil {
		metrics.SignupsTotal.WithLabelValues(signupOutcome(err)).Inc()
		return err
	}

	outcome := "resent"
	if result.Created {
		outcome = "created"
	}
	metrics.SignupsTotal.WithLabelValues(outcome).Inc()

	return c.JSON(http.StatusOK, signupResponse{Email: result.Email, Username: result.Username})
}

// Token exchanges a confirmation code for an access token.
//
// @Summary      Obtain an access token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      tokenRequest  true  "Username and confirmation code"
// @Success      201   {object}  tokenResponse
// @Failure      400   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /auth/token/ [post]
func (h *AuthHandler) Token(c echo.Context) error {
	var req tokenRequest
	if err := bindAndValidate(c, &req); err != nil {
		metrics.TokensTotal.WithLabelValues("rejected").Inc()
		return err
	}

	token, err := h.authService.GetToken(c.Request().Context(), req.Username, req.ConfirmationCode)
	if err != nil {
		metrics.TokensTotal.WithLabelValues("rejected").Inc()
		return err
	}
	metrics.TokensTotal.WithLabelValues("issued").Inc()

	return c.JSON(http.StatusCreated, tokenResponse{Token: token})
}

func signupOutcome(err error) string {
	switch {
	case domain.IsValidation(err):
		return "rejected"
	case errors.Is(err, domain.ErrSignupThrottled):
		return "throttled"
	default:
		return "error"
	}
}
