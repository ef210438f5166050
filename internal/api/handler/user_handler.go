package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/yamdb/yamdb-api/internal/core/domain"
	"github.com/yamdb/yamdb-api/internal/core/ports"
)

// UserHandler serves the user directory and the caller's own profile.
// Directory routes are admin-gated by the router.
type UserHandler struct {
	service ports.UserService
}

func NewUserHandler(service ports.UserService) *UserHandler {
	return &UserHandler{service: service}
}

type createUserRequest struct {
	Username  string `json:"username" validate:"required,username"`
	Email     string `json:"email" validate:"required,max=254,email"`
	FirstName string `json:"first_name" validate:"max=150"`
	LastName  string `json:"last_name" validate:"max=150"`
	Bio       string `json:"bio"`
	Role      string `json:"role" validate:"omitempty,oneof=user moderator admin"`
}

type updateUserRequest struct {
	Username  *string `json:"username"`
	Email     *string `json:"email"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Bio       *string `json:"bio"`
	Role      *string `json:"role"`
}

// updateMeRequest deliberately has no role: the field is dropped while
// decoding.
type updateMeRequest struct {
	Username  *string `json:"username"`
	Email     *string `json:"email"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Bio       *string `json:"bio"`
}

// List handles GET /api/v1/users/.
//
// @Summary      List users
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        limit   query     int  false  "Page size"
// @Param        offset  query     int  false  "Page offset"
// @Success      200     {object}  pageResponse[domain.User]
// @Failure      401     {object}  map[string]string
// @Failure      403     {object}  map[string]string
// @Router       /users/ [get]
func (h *UserHandler) List(c echo.Context) error {
	page := pageFrom(c)
	users, total, err := h.service.List(c.Request().Context(), page)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, paginate(c, page, total, users))
}

// Create handles POST /api/v1/users/.
//
// @Summary      Create a user
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createUserRequest  true  "User"
// @Success      201   {object}  domain.User
// @Failure      400   {object}  map[string]string
// @Router       /users/ [post]
func (h *UserHandler) Create(c echo.Context) error {
	var req createUserRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.service.Create(c.Request().Context(), ports.CreateUserInput{
		Username:  req.Username,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Bio:       req.Bio,
		Role:      domain.Role(req.Role),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, user)
}

// Get handles GET /api/v1/users/:username/.
//
// @Summary      Get a user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        username  path      string  true  "Username"
// @Success      200       {object}  domain.User
// @Failure      404       {object}  map[string]string
// @Router       /users/{username}/ [get]
func (h *UserHandler) Get(c echo.Context) error {
	user, err := h.service.Get(c.Request().Context(), c.Param("username"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// Update handles PATCH /api/v1/users/:username/, including role changes.
//
// @Summary      Update a user
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        username  path      string             true  "Username"
// @Param        body      body      updateUserRequest  true  "Fields to change"
// @Success      200       {object}  domain.User
// @Failure      400       {object}  map[string]string
// @Failure      404       {object}  map[string]string
// @Router       /users/{username}/ [patch]
func (h *UserHandler) Update(c echo.Context) error {
	var req updateUserRequest
	if err := c.Bind(&req); err != nil {
		return errInvalidPayload
	}

	patch := domain.UserPatch{
		Username:  req.Username,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Bio:       req.Bio,
	}
	if req.Role != nil {
		role := domain.Role(*req.Role)
		patch.Role = &role
	}

	user, err := h.service.Update(c.Request().Context(), c.Param("username"), patch)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// Delete handles DELETE /api/v1/users/:username/.
//
// @Summary      Delete a user
// @Tags         users
// @Security     BearerAuth
// @Param        username  path  string  true  "Username"
// @Success      204
// @Failure      404  {object}  map[string]string
// @Router       /users/{username}/ [delete]
func (h *UserHandler) Delete(c echo.Context) error {
	if err := h.service.Delete(c.Request().Context(), c.Param("username")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Me handles GET /api/v1/users/me/.
//
// @Summary      Get the current user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.User
// @Failure      401  {object}  map[string]string
// @Router       /users/me/ [get]
func (h *UserHandler) Me(c echo.Context) error {
	user, err := h.service.Me(c.Request().Context(), callerOf(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// UpdateMe handles PATCH /api/v1/users/me/. A role in the body is ignored.
//
// @Summary      Update the current user
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      updateMeRequest  true  "Fields to change"
// @Success      200   {object}  domain.User
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /users/me/ [patch]
func (h *UserHandler) UpdateMe(c echo.Context) error {
	var req updateMeRequest
	if err := c.Bind(&req); err != nil {
		return errInvalidPayload
	}

	user, err := h.service.UpdateMe(c.Request().Context(), callerOf(c), ports.SelfPatch{
		Username:  req.Username,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Bio:       req.Bio,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}
