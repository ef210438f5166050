package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/yamdb/yamdb-api/internal/core/domain"
	"github.com/yamdb/yamdb-api/internal/core/ports"
)

// ReviewHandler serves reviews under a title and comments under a review.
// Ownership of the stored object is checked by the service.
type ReviewHandler struct {
	service ports.ReviewService
}

func NewReviewHandler(service ports.ReviewService) *ReviewHandler {
	return &ReviewHandler{service: service}
}

type reviewRequest struct {
	Text  *string `json:"text"`
	Score *int    `json:"score"`
}

type reviewResponse struct {
	ID      int64     `json:"id"`
	Text    string    `json:"text"`
	Author  string    `json:"author"`
	Score   int       `json:"score"`
	PubDate time.Time `json:"pub_date"`
}

type commentRequest struct {
	Text *string `json:"text"`
}

type commentResponse struct {
	ID      int64     `json:"id"`
	Text    string    `json:"text"`
	Author  string    `json:"author"`
	PubDate time.Time `json:"pub_date"`
}

func toReviewResponse(r *domain.Review) reviewResponse {
	return reviewResponse{ID: r.ID, Text: r.Text, Author: r.Author, Score: r.Score, PubDate: r.PubDate}
}

func toCommentResponse(cm *domain.Comment) commentResponse {
	return commentResponse{ID: cm.ID, Text: cm.Text, Author: cm.Author, PubDate: cm.PubDate}
}

func reviewPath(c echo.Context) (titleID, reviewID int64, err error) {
	if titleID, err = pathID(c, "title_id", domain.ErrTitleNotFound); err != nil {
		return 0, 0, err
	}
	if reviewID, err = pathID(c, "review_id", domain.ErrReviewNotFound); err != nil {
		return 0, 0, err
	}
	return titleID, reviewID, nil
}

func commentPath(c echo.Context) (titleID, reviewID, commentID int64, err error) {
	if titleID, reviewID, err = reviewPath(c); err != nil {
		return 0, 0, 0, err
	}
	if commentID, err = pathID(c, "comment_id", domain.ErrCommentNotFound); err != nil {
		return 0, 0, 0, err
	}
	return titleID, reviewID, commentID, nil
}

// ListReviews handles GET /api/v1/titles/:title_id/reviews/.
//
// @Summary      List reviews of a title
// @Tags         reviews
// @Produce      json
// @Param        title_id  path      int  true   "Title id"
// @Param        limit     query     int  false  "Page size"
// @Param        offset    query     int  false  "Page offset"
// @Success      200       {object}  pageResponse[reviewResponse]
// @Failure      404       {object}  map[string]string
// @Router       /titles/{title_id}/reviews/ [get]
func (h *ReviewHandler) ListReviews(c echo.Context) error {
	titleID, err := pathID(c, "title_id", domain.ErrTitleNotFound)
	if err != nil {
		return err
	}
	page := pageFrom(c)
	reviews, total, err := h.service.ListReviews(c.Request().Context(), titleID, page)
	if err != nil {
		return err
	}
	results := make([]reviewResponse, 0, len(reviews))
	for _, r := range reviews {
		results = append(results, toReviewResponse(r))
	}
	return c.JSON(http.StatusOK, paginate(c, page, total, results))
}

// GetReview handles GET /api/v1/titles/:title_id/reviews/:review_id/.
//
// @Summary      Get a review
// @Tags         reviews
// @Produce      json
// @Param        title_id   path      int  true  "Title id"
// @Param        review_id  path      int  true  "Review id"
// @Success      200        {object}  reviewResponse
// @Failure      404        {object}  map[string]string
// @Router       /titles/{title_id}/reviews/{review_id}/ [get]
func (h *ReviewHandler) GetReview(c echo.Context) error {
	titleID, reviewID, err := reviewPath(c)
	if err != nil {
		return err
	}
	review, err := h.service.GetReview(c.Request().Context(), titleID, reviewID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toReviewResponse(review))
}

// CreateReview handles POST /api/v1/titles/:title_id/reviews/. The caller
// becomes the author.
//
// @Summary      Review a title
// @Tags         reviews
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        title_id  path      int            true  "Title id"
// @Param        body      body      reviewRequest  true  "Review"
// @Success      201       {object}  reviewResponse
// @Failure      400       {object}  map[string]string
// @Failure      401       {object}  map[string]string
// @Failure      404       {object}  map[string]string
// @Router       /titles/{title_id}/reviews/ [post]
func (h *ReviewHandler) CreateReview(c echo.Context) error {
	titleID, err := pathID(c, "title_id", domain.ErrTitleNotFound)
	if err != nil {
		return err
	}
	var req reviewRequest
	if err := c.Bind(&req); err != nil {
		return errInvalidPayload
	}

	review, err := h.service.CreateReview(c.Request().Context(), callerOf(c), titleID,
		ports.ReviewInput{Text: req.Text, Score: req.Score})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toReviewResponse(review))
}

// ReplaceReview handles PUT /api/v1/titles/:title_id/reviews/:review_id/.
//
// @Summary      Replace a review
// @Tags         reviews
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        title_id   path      int            true  "Title id"
// @Param        review_id  path      int            true  "Review id"
// @Param        body       body      reviewRequest  true  "Review"
// @Success      200        {object}  reviewResponse
// @Failure      400        {object}  map[string]string
// @Failure      403        {object}  map[string]string
// @Failure      404        {object}  map[string]string
// @Router       /titles/{title_id}/reviews/{review_id}/ [put]
func (h *ReviewHandler) ReplaceReview(c echo.Context) error {
	return h.updateReview(c, false)
}

// UpdateReview handles PATCH /api/v1/titles/:title_id/reviews/:review_id/.
//
// @Summary      Update a review
// @Tags         reviews
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        title_id   path      int            true  "Title id"
// @Param        review_id  path      int            true  "Review id"
// @Param        body       body      reviewRequest  true  "Fields to change"
// @Success      200        {object}  reviewResponse
// @Failure      400        {object}  map[string]string
// @Failure      403        {object}  map[string]string
// @Failure      404        {object}  map[string]string
// @Router       /titles/{title_id}/reviews/{review_id}/ [patch]
func (h *ReviewHandler) UpdateReview(c echo.Context) error {
	return h.updateReview(c, true)
}

func (h *ReviewHandler) updateReview(c echo.Context, partial bool) error {
	titleID, reviewID, err := reviewPath(c)
	if err != nil {
		return err
	}
	var req reviewRequest
	if err := c.Bind(&req); err != nil {
		return errInvalidPayload
	}
	if !partial {
		if err := requireFields(map[string]bool{"text": req.Text != nil, "score": req.Score != nil}); err != nil {
			return err
		}
	}

	review, err := h.service.UpdateReview(c.Request().Context(), callerOf(c), titleID, reviewID,
		ports.ReviewInput{Text: req.Text, Score: req.Score})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toReviewResponse(review))
}

// DeleteReview handles DELETE /api/v1/titles/:title_id/reviews/:review_id/.
//
// @Summary      Delete a review
// @Tags         reviews
// @Security     BearerAuth
// @Param        title_id   path  int  true  "Title id"
// @Param        review_id  path  int  true  "Review id"
// @Success      204
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /titles/{title_id}/reviews/{review_id}/ [delete]
func (h *ReviewHandler) DeleteReview(c echo.Context) error {
	titleID, reviewID, err := reviewPath(c)
	if err != nil {
		return err
	}
	if err := h.service.DeleteReview(c.Request().Context(), callerOf(c), titleID, reviewID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// ListComments handles GET .../reviews/:review_id/comments/.
//
// @Summary      List comments on a review
// @Tags         comments
// @Produce      json
// @Param        title_id   path      int  true   "Title id"
// @Param        review_id  path      int  true   "Review id"
// @Param        limit      query     int  false  "Page size"
// @Param        offset     query     int  false  "Page offset"
// @Success      200        {object}  pageResponse[commentResponse]
// @Failure      404        {object}  map[string]string
// @Router       /titles/{title_id}/reviews/{review_id}/comments/ [get]
func (h *ReviewHandler) ListComments(c echo.Context) error {
	titleID, reviewID, err := reviewPath(c)
	if err != nil {
		return err
	}
	page := pageFrom(c)
	comments, total, err := h.service.ListComments(c.Request().Context(), titleID, reviewID, page)
	if err != nil {
		return err
	}
	results := make([]commentResponse, 0, len(comments))
	for _, cm := range comments {
		results = append(results, toCommentResponse(cm))
	}
	return c.JSON(http.StatusOK, paginate(c, page, total, results))
}

// GetComment handles GET .../comments/:comment_id/.
//
// @Summary      Get a comment
// @Tags         comments
// @Produce      json
// @Param        title_id    path      int  true  "Title id"
// @Param        review_id   path      int  true  "Review id"
// @Param        comment_id  path      int  true  "Comment id"
// @Success      200         {object}  commentResponse
// @Failure      404         {object}  map[string]string
// @Router       /titles/{title_id}/reviews/{review_id}/comments/{comment_id}/ [get]
func (h *ReviewHandler) GetComment(c echo.Context) error {
	titleID, reviewID, commentID, err := commentPath(c)
	if err != nil {
		return err
	}
	comment, err := h.service.GetComment(c.Request().Context(), titleID, reviewID, commentID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toCommentResponse(comment))
}

// CreateComment handles POST .../reviews/:review_id/comments/.
//
// @Summary      Comment on a review
// @Tags         comments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        title_id   path      int             true  "Title id"
// @Param        review_id  path      int             true  "Review id"
// @Param        body       body      commentRequest  true  "Comment"
// @Success      201        {object}  commentResponse
// @Failure      400        {object}  map[string]string
// @Failure      401        {object}  map[string]string
// @Failure      404        {object}  map[string]string
// @Router       /titles/{title_id}/reviews/{review_id}/comments/ [post]
func (h *ReviewHandler) CreateComment(c echo.Context) error {
	titleID, reviewID, err := reviewPath(c)
	if err != nil {
		return err
	}
	var req commentRequest
	if err := c.Bind(&req); err != nil {
		return errInvalidPayload
	}

	comment, err := h.service.CreateComment(c.Request().Context(), callerOf(c), titleID, reviewID, deref(req.Text))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toCommentResponse(comment))
}

// ReplaceComment handles PUT .../comments/:comment_id/.
//
// @Summary      Replace a comment
// @Tags         comments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        title_id    path      int             true  "Title id"
// @Param        review_id   path      int             true  "Review id"
// @Param        comment_id  path      int             true  "Comment id"
// @Param        body        body      commentRequest  true  "Comment"
// @Success      200         {object}  commentResponse
// @Failure      400         {object}  map[string]string
// @Failure      403         {object}  map[string]string
// @Failure      404         {object}  map[string]string
// @Router       /titles/{title_id}/reviews/{review_id}/comments/{comment_id}/ [put]
func (h *ReviewHandler) ReplaceComment(c echo.Context) error {
	return h.updateComment(c, false)
}

// UpdateComment handles PATCH .../comments/:comment_id/.
//
// @Summary      Update a comment
// @Tags         comments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        title_id    path      int             true  "Title id"
// @Param        review_id   path      int             true  "Review id"
// @Param        comment_id  path      int             true  "Comment id"
// @Param        body        body      commentRequest  true  "Fields to change"
// @Success      200         {object}  commentResponse
// @Failure      400         {object}  map[string]string
// @Failure      403         {object}  map[string]string
// @Failure      404         {object}  map[string]string
// @Router       /titles/{title_id}/reviews/{review_id}/comments/{comment_id}/ [patch]
func (h *ReviewHandler) UpdateComment(c echo.Context) error {
	return h.updateComment(c, true)
}

func (h *ReviewHandler) updateComment(c echo.Context, partial bool) error {
	titleID, reviewID, commentID, err := commentPath(c)
	if err != nil {
		return err
	}
	var req commentRequest
	if err := c.Bind(&req); err != nil {
		return errInvalidPayload
	}

	ctx := c.Request().Context()
	if req.Text == nil && partial {
		// Nothing to change; still run the update so ownership is enforced.
		current, err := h.service.GetComment(ctx, titleID, reviewID, commentID)
		if err != nil {
			return err
		}
		req.Text = &current.Text
	}

	comment, err := h.service.UpdateComment(ctx, callerOf(c), titleID, reviewID, commentID, deref(req.Text))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toCommentResponse(comment))
}

// DeleteComment handles DELETE .../comments/:comment_id/.
//
// @Summary      Delete a comment
// @Tags         comments
// @Security     BearerAuth
// @Param        title_id    path  int  true  "Title id"
// @Param        review_id   path  int  true  "Review id"
// @Param        comment_id  path  int  true  "Comment id"
// @Success      204
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /titles/{title_id}/reviews/{review_id}/comments/{comment_id}/ [delete]
func (h *ReviewHandler) DeleteComment(c echo.Context) error {
	titleID, reviewID, commentID, err := commentPath(c)
	if err != nil {
		return err
	}
	if err := h.service.DeleteComment(c.Request().Context(), callerOf(c), titleID, reviewID, commentID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
