package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/yamdb/yamdb-api/internal/core/domain"
	"github.com/yamdb/yamdb-api/internal/core/ports"
)

// stubCatalog implements the title operations; any other call panics.
type stubCatalog struct {
	ports.CatalogService
	titles  map[int64]*ports.TitleDetail
	updated *ports.TitleInput
}

func (s *stubCatalog) GetTitle(_ context.Context, id int64) (*ports.TitleDetail, error) {
	t, ok := s.titles[id]
	if !ok {
		return nil, domain.ErrTitleNotFound
	}
	return t, nil
}

func (s *stubCatalog) UpdateTitle(_ context.Context, id int64, in ports.TitleInput) (*ports.TitleDetail, error) {
	s.updated = &in
	return s.GetTitle(context.Background(), id)
}

func newStubCatalog() *stubCatalog {
	rating := 7.6
	return &stubCatalog{titles: map[int64]*ports.TitleDetail{
		1: {
			ID:       1,
			Name:     "Dune",
			Year:     1965,
			Rating:   &rating,
			Genres:   []domain.Term{{Name: "Sci-fi", Slug: "sci-fi"}},
			Category: &domain.Term{Name: "Books", Slug: "books"},
		},
		2: {ID: 2, Name: "Unrated", Year: 2001},
	}}
}

func TestTitleHandler_GetRendersReadView(t *testing.T) {
	e := newTestEcho()
	c, rec := jsonContext(e, http.MethodGet, "/api/v1/titles/1/", "")
	c.SetParamNames("title_id")
	c.SetParamValues("1")

	if err := NewTitleHandler(newStubCatalog()).Get(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var body struct {
		Rating   *int          `json:"rating"`
		Genre    []domain.Term `json:"genre"`
		Category *domain.Term  `json:"category"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if body.Rating == nil || *body.Rating != 8 {
		t.Fatalf("expected rounded rating 8, got %v", body.Rating)
	}
	if len(body.Genre) != 1 || body.Genre[0].Slug != "sci-fi" || body.Category.Slug != "books" {
		t.Fatalf("terms not embedded: %+v", body)
	}
}

func TestTitleHandler_UnratedTitleHasNullRating(t *testing.T) {
	e := newTestEcho()
	c, rec := jsonContext(e, http.MethodGet, "/api/v1/titles/2/", "")
	c.SetParamNames("title_id")
	c.SetParamValues("2")

	if err := NewTitleHandler(newStubCatalog()).Get(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if body["rating"] != nil || body["category"] != nil {
		t.Fatalf("expected null rating and category: %v", body)
	}
	if genres, ok := body["genre"].([]any); !ok || len(genres) != 0 {
		t.Fatalf("expected empty genre list: %v", body["genre"])
	}
}

func TestTitleHandler_BadIDIsNotFound(t *testing.T) {
	for _, raw := range []string{"abc", "0", "-4"} {
		e := newTestEcho()
		c, _ := jsonContext(e, http.MethodGet, "/api/v1/titles/x/", "")
		c.SetParamNames("title_id")
		c.SetParamValues(raw)

		if err := NewTitleHandler(newStubCatalog()).Get(c); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("id %q: expected not found, got %v", raw, err)
		}
	}
}

func TestTitleHandler_PutRequiresFullBody(t *testing.T) {
	e := newTestEcho()
	stub := newStubCatalog()
	c, _ := jsonContext(e, http.MethodPut, "/api/v1/titles/1/", `{"name":"Dune Messiah"}`)
	c.SetParamNames("title_id")
	c.SetParamValues("1")

	fields := validationFields(t, NewTitleHandler(stub).Replace(c))
	for _, f := range []string{"year", "genre", "category"} {
		if fields[f] != "this field is required" {
			t.Fatalf("expected %s to be required, got %v", f, fields)
		}
	}
	if stub.updated != nil {
		t.Fatal("service must not be called")
	}
}

func TestTitleHandler_PatchSendsOnlyGivenFields(t *testing.T) {
	e := newTestEcho()
	stub := newStubCatalog()
	c, rec := jsonContext(e, http.MethodPatch, "/api/v1/titles/1/", `{"name":"Dune Messiah"}`)
	c.SetParamNames("title_id")
	c.SetParamValues("1")

	if err := NewTitleHandler(stub).Update(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	in := stub.updated
	if in == nil || in.Name == nil || *in.Name != "Dune Messiah" || in.Year != nil || in.Genres != nil || in.Category != nil {
		t.Fatalf("unexpected input: %+v", in)
	}
}
