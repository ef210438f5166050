package handler

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/yamdb/yamdb-api/internal/core/ports"
)

// pageResponse is the limit/offset envelope every list endpoint returns.
type pageResponse[T any] struct {
	Count    int64   `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

// pageFrom reads ?limit= and ?offset=. Malformed values fall back to the
// defaults rather than failing the request.
func pageFrom(c echo.Context) ports.Page {
	var page ports.Page
	if v, err := strconv.Atoi(c.QueryParam("limit")); err == nil {
		page.Limit = v
	}
	if v, err := strconv.Atoi(c.QueryParam("offset")); err == nil {
		page.Offset = v
	}
	return page.Normalize()
}

func paginate[T any](c echo.Context, page ports.Page, total int64, results []T) pageResponse[T] {
	if results == nil {
		results = []T{}
	}
	resp := pageResponse[T]{Count: total, Results: results}
	if int64(page.Offset+page.Limit) < total {
		resp.Next = pageLink(c, page.Limit, page.Offset+page.Limit)
	}
	if page.Offset > 0 {
		resp.Previous = pageLink(c, page.Limit, max(page.Offset-page.Limit, 0))
	}
	return resp
}

func pageLink(c echo.Context, limit, offset int) *string {
	req := c.Request()
	u := *req.URL
	u.Scheme = c.Scheme()
	u.Host = req.Host

	q := u.Query()
	q.Set("limit", strconv.Itoa(limit))
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	} else {
		q.Del("offset")
	}
	u.RawQuery = q.Encode()

	link := u.String()
	return &link
}
