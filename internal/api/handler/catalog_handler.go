package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/yamdb/yamdb-api/internal/core/domain"
	"github.com/yamdb/yamdb-api/internal/core/ports"
)

// CatalogHandler serves categories and genres. Both are name/slug terms
// with the same list/create/delete surface.
type CatalogHandler struct {
	service ports.CatalogService
}

func NewCatalogHandler(service ports.CatalogService) *CatalogHandler {
	return &CatalogHandler{service: service}
}

type termRequest struct {
	Name string `json:"name" validate:"required,max=256"`
	Slug string `json:"slug" validate:"required,slug"`
}

// ListCategories handles GET /api/v1/categories/.
//
// @Summary      List categories
// @Tags         categories
// @Produce      json
// @Param        limit   query     int  false  "Page size"
// @Param        offset  query     int  false  "Page offset"
// @Success      200     {object}  pageResponse[domain.Term]
// @Router       /categories/ [get]
func (h *CatalogHandler) ListCategories(c echo.Context) error {
	page := pageFrom(c)
	terms, total, err := h.service.ListCategories(c.Request().Context(), page)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, paginate(c, page, total, terms))
}

// CreateCategory handles POST /api/v1/categories/.
//
// @Summary      Create a category
// @Tags         categories
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      termRequest  true  "Category"
// @Success      201   {object}  domain.Term
// @Failure      400   {object}  map[string]string
// @Router       /categories/ [post]
func (h *CatalogHandler) CreateCategory(c echo.Context) error {
	var req termRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	term, err := h.service.CreateCategory(c.Request().Context(), domain.Term{Name: req.Name, Slug: req.Slug})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, term)
}

// DeleteCategory handles DELETE /api/v1/categories/:slug/.
//
// @Summary      Delete a category
// @Tags         categories
// @Security     BearerAuth
// @Param        slug  path  string  true  "Category slug"
// @Success      204
// @Failure      404  {object}  map[string]string
// @Router       /categories/{slug}/ [delete]
func (h *CatalogHandler) DeleteCategory(c echo.Context) error {
	if err := h.service.DeleteCategory(c.Request().Context(), c.Param("slug")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// ListGenres handles GET /api/v1/genres/.
//
// @Summary      List genres
// @Tags         genres
// @Produce      json
// @Param        limit   query     int  false  "Page size"
// @Param        offset  query     int  false  "Page offset"
// @Success      200     {object}  pageResponse[domain.Term]
// @Router       /genres/ [get]
func (h *CatalogHandler) ListGenres(c echo.Context) error {
	page := pageFrom(c)
	terms, total, err := h.service.ListGenres(c.Request().Context(), page)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, paginate(c, page, total, terms))
}

// CreateGenre handles POST /api/v1/genres/.
//
// @Summary      Create a genre
// @Tags         genres
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      termRequest  true  "Genre"
// @Success      201   {object}  domain.Term
// @Failure      400   {object}  map[string]string
// @Router       /genres/ [post]
func (h *CatalogHandler) CreateGenre(c echo.Context) error {
	var req termRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	term, err := h.service.CreateGenre(c.Request().Context(), domain.Term{Name: req.Name, Slug: req.Slug})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, term)
}

// DeleteGenre handles DELETE /api/v1/genres/:slug/.
//
// @Summary      Delete a genre
// @Tags         genres
// @Security     BearerAuth
// @Param        slug  path  string  true  "Genre slug"
// @Success      204
// @Failure      404  {object}  map[string]string
// @Router       /genres/{slug}/ [delete]
func (h *CatalogHandler) DeleteGenre(c echo.Context) error {
	if err := h.service.DeleteGenre(c.Request().Context(), c.Param("slug")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
