package handler

import (
	"math"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/yamdb/yamdb-api/internal/core/domain"
	"github.com/yamdb/yamdb-api/internal/core/ports"
)

// TitleHandler serves /api/v1/titles/.
type TitleHandler struct {
	service ports.CatalogService
}

func NewTitleHandler(service ports.CatalogService) *TitleHandler {
	return &TitleHandler{service: service}
}

// titleRequest references terms by slug.
type titleRequest struct {
	Name        *string   `json:"name"`
	Year        *int      `json:"year"`
	Description *string   `json:"description"`
	Genre       *[]string `json:"genre"`
	Category    *string   `json:"category"`
}

// titleResponse embeds the resolved terms. Rating is the rounded average
// score, null until the title is reviewed.
type titleResponse struct {
	ID          int64         `json:"id"`
	Name        string        `json:"name"`
	Year        int           `json:"year"`
	Rating      *int          `json:"rating"`
	Description string        `json:"description"`
	Genre       []domain.Term `json:"genre"`
	Category    *domain.Term  `json:"category"`
}

func toTitleResponse(t *ports.TitleDetail) titleResponse {
	resp := titleResponse{
		ID:          t.ID,
		Name:        t.Name,
		Year:        t.Year,
		Description: t.Description,
		Genre:       t.Genres,
		Category:    t.Category,
	}
	if resp.Genre == nil {
		resp.Genre = []domain.Term{}
	}
	if t.Rating != nil {
		r := int(math.Round(*t.Rating))
		resp.Rating = &r
	}
	return resp
}

func (r titleRequest) input() ports.TitleInput {
	return ports.TitleInput{
		Name:        r.Name,
		Year:        r.Year,
		Description: r.Description,
		Genres:      r.Genre,
		Category:    r.Category,
	}
}

// List handles GET /api/v1/titles/.
//
// @Summary      List titles
// @Tags         titles
// @Produce      json
// @Param        limit   query     int  false  "Page size"
// @Param        offset  query     int  false  "Page offset"
// @Success      200     {object}  pageResponse[titleResponse]
// @Router       /titles/ [get]
func (h *TitleHandler) List(c echo.Context) error {
	page := pageFrom(c)
	titles, total, err := h.service.ListTitles(c.Request().Context(), page)
	if err != nil {
		return err
	}
	results := make([]titleResponse, 0, len(titles))
	for _, t := range titles {
		results = append(results, toTitleResponse(t))
	}
	return c.JSON(http.StatusOK, paginate(c, page, total, results))
}

// Get handles GET /api/v1/titles/:title_id/.
//
// @Summary      Get a title
// @Tags         titles
// @Produce      json
// @Param        title_id  path      int  true  "Title id"
// @Success      200       {object}  titleResponse
// @Failure      404       {object}  map[string]string
// @Router       /titles/{title_id}/ [get]
func (h *TitleHandler) Get(c echo.Context) error {
	id, err := pathID(c, "title_id", domain.ErrTitleNotFound)
	if err != nil {
		return err
	}
	title, err := h.service.GetTitle(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toTitleResponse(title))
}

// Create handles POST /api/v1/titles/.
//
// @Summary      Create a title
// @Tags         titles
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      titleRequest  true  "Title"
// @Success      201   {object}  titleResponse
// @Failure      400   {object}  map[string]string
// @Router       /titles/ [post]
func (h *TitleHandler) Create(c echo.Context) error {
	var req titleRequest
	if err := c.Bind(&req); err != nil {
		return errInvalidPayload
	}
	title, err := h.service.CreateTitle(c.Request().Context(), req.input())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toTitleResponse(title))
}

// Replace handles PUT /api/v1/titles/:title_id/; every required field must
// be present.
//
// @Summary      Replace a title
// @Tags         titles
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        title_id  path      int           true  "Title id"
// @Param        body      body      titleRequest  true  "Title"
// @Success      200       {object}  titleResponse
// @Failure      400       {object}  map[string]string
// @Failure      404       {object}  map[string]string
// @Router       /titles/{title_id}/ [put]
func (h *TitleHandler) Replace(c echo.Context) error {
	return h.update(c, false)
}

// Update handles PATCH /api/v1/titles/:title_id/.
//
// @Summary      Update a title
// @Tags         titles
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        title_id  path      int           true  "Title id"
// @Param        body      body      titleRequest  true  "Fields to change"
// @Success      200       {object}  titleResponse
// @Failure      400       {object}  map[string]string
// @Failure      404       {object}  map[string]string
// @Router       /titles/{title_id}/ [patch]
func (h *TitleHandler) Update(c echo.Context) error {
	return h.update(c, true)
}

func (h *TitleHandler) update(c echo.Context, partial bool) error {
	id, err := pathID(c, "title_id", domain.ErrTitleNotFound)
	if err != nil {
		return err
	}
	var req titleRequest
	if err := c.Bind(&req); err != nil {
		return errInvalidPayload
	}
	if !partial {
		if err := requireFields(map[string]bool{
			"name":     req.Name != nil,
			"year":     req.Year != nil,
			"genre":    req.Genre != nil,
			"category": req.Category != nil,
		}); err != nil {
			return err
		}
	}

	title, err := h.service.UpdateTitle(c.Request().Context(), id, req.input())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toTitleResponse(title))
}

// Delete handles DELETE /api/v1/titles/:title_id/.
//
// @Summary      Delete a title
// @Tags         titles
// @Security     BearerAuth
// @Param        title_id  path  int  true  "Title id"
// @Success      204
// @Failure      404  {object}  map[string]string
// @Router       /titles/{title_id}/ [delete]
func (h *TitleHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "title_id", domain.ErrTitleNotFound)
	if err != nil {
		return err
	}
	if err := h.service.DeleteTitle(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
