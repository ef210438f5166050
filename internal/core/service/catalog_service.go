package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/yamdb/yamdb-api/internal/core/domain"
	"github.com/yamdb/yamdb-api/internal/core/ports"
)

// CatalogService manages categories, genres and titles.
type CatalogService struct {
	categories ports.TermRepository
	genres     ports.TermRepository
	titles     ports.TitleRepository
	reviews    ports.ReviewRepository
	comments   ports.CommentRepository
	log        zerolog.Logger
	now        func() time.Time
}

func NewCatalogService(
	categories ports.TermRepository,
	genres ports.TermRepository,
	titles ports.TitleRepository,
	reviews ports.ReviewRepository,
	comments ports.CommentRepository,
	log zerolog.Logger,
) *CatalogService {
	return &CatalogService{
		categories: categories,
		genres:     genres,
		titles:     titles,
		reviews:    reviews,
		comments:   comments,
		log:        log,
		now:        time.Now,
	}
}

// --- Categories / genres ---

func (s *CatalogService) ListCategories(ctx context.Context, page ports.Page) ([]domain.Term, int64, error) {
	return s.categories.List(ctx, page.Normalize())
}

func (s *CatalogService) CreateCategory(ctx context.Context, term domain.Term) (*domain.Term, error) {
	return createTerm(ctx, s.categories, term)
}

// DeleteCategory removes the category and detaches it from its titles.
func (s *CatalogService) DeleteCategory(ctx context.Context, slug string) error {
	if err := s.categories.Delete(ctx, slug); err != nil {
		return err
	}
	if err := s.titles.ClearCategory(ctx, slug); err != nil {
		return fmt.Errorf("delete category: detach titles: %w", err)
	}
	return nil
}

func (s *CatalogService) ListGenres(ctx context.Context, page ports.Page) ([]domain.Term, int64, error) {
	return s.genres.List(ctx, page.Normalize())
}

func (s *CatalogService) CreateGenre(ctx context.Context, term domain.Term) (*domain.Term, error) {
	return createTerm(ctx, s.genres, term)
}

// DeleteGenre removes the genre and pulls it from every title.
func (s *CatalogService) DeleteGenre(ctx context.Context, slug string) error {
	if err := s.genres.Delete(ctx, slug); err != nil {
		return err
	}
	if err := s.titles.PullGenre(ctx, slug); err != nil {
		return fmt.Errorf("delete genre: detach titles: %w", err)
	}
	return nil
}

func createTerm(ctx context.Context, repo ports.TermRepository, term domain.Term) (*domain.Term, error) {
	term.Name = strings.TrimSpace(term.Name)
	term.Slug = strings.TrimSpace(term.Slug)

	ve := &domain.ValidationError{}
	if msg := validateRequiredText(term.Name, domain.CatalogNameMaxLength); msg != "" {
		ve.Add("name", msg)
	}
	if msg := domain.ValidateSlug(term.Slug); msg != "" {
		ve.Add("slug", msg)
	}
	if err := ve.OrNil(); err != nil {
		return nil, err
	}

	if err := repo.Create(ctx, term); err != nil {
		return nil, err
	}
	return &term, nil
}

// --- Titles ---

func (s *CatalogService) ListTitles(ctx context.Context, page ports.Page) ([]*ports.TitleDetail, int64, error) {
	titles, total, err := s.titles.List(ctx, page.Normalize())
	if err != nil {
		return nil, 0, err
	}
	details, err := s.resolve(ctx, titles...)
	if err != nil {
		return nil, 0, err
	}
	return details, total, nil
}

func (s *CatalogService) GetTitle(ctx context.Context, id int64) (*ports.TitleDetail, error) {
	title, err := s.titles.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	details, err := s.resolve(ctx, title)
	if err != nil {
		return nil, err
	}
	return details[0], nil
}

func (s *CatalogService) CreateTitle(ctx context.Context, in ports.TitleInput) (*ports.TitleDetail, error) {
	ve := &domain.ValidationError{}
	if in.Name == nil {
		ve.Add("name", "this field is required")
	}
	if in.Year == nil {
		ve.Add("year", "this field is required")
	}
	if in.Category == nil {
		ve.Add("category", "this field is required")
	}
	if in.Genres == nil {
		ve.Add("genre", "this field is required")
	}
	if err := s.validateTitle(ctx, ve, &in); err != nil {
		return nil, err
	}

	title := &domain.Title{
		Name:     *in.Name,
		Year:     *in.Year,
		Genres:   *in.Genres,
		Category: *in.Category,
	}
	if in.Description != nil {
		title.Description = *in.Description
	}

	created, err := s.titles.Create(ctx, title)
	if err != nil {
		return nil, err
	}
	s.log.Info().Int64("title_id", created.ID).Str("name", created.Name).Msg("title created")
	return s.GetTitle(ctx, created.ID)
}

func (s *CatalogService) UpdateTitle(ctx context.Context, id int64, in ports.TitleInput) (*ports.TitleDetail, error) {
	if _, err := s.titles.FindByID(ctx, id); err != nil {
		return nil, err
	}
	if err := s.validateTitle(ctx, &domain.ValidationError{}, &in); err != nil {
		return nil, err
	}

	if _, err := s.titles.Update(ctx, id, domain.TitlePatch{
		Name:        in.Name,
		Year:        in.Year,
		Description: in.Description,
		Genres:      in.Genres,
		Category:    in.Category,
	}); err != nil {
		return nil, err
	}
	return s.GetTitle(ctx, id)
}

// DeleteTitle removes the title with its reviews and their comments,
// parents first so that late inserts find their parent gone.
func (s *CatalogService) DeleteTitle(ctx context.Context, id int64) error {
	if err := s.titles.Delete(ctx, id); err != nil {
		return err
	}

	reviewIDs, err := s.reviews.IDsByTitle(ctx, id)
	if err != nil {
		return fmt.Errorf("delete title: list reviews: %w", err)
	}
	if err := s.reviews.DeleteByTitle(ctx, id); err != nil {
		return fmt.Errorf("delete title: reviews: %w", err)
	}
	if err := s.comments.DeleteByReviews(ctx, reviewIDs); err != nil {
		return fmt.Errorf("delete title: comments: %w", err)
	}

	s.log.Info().Int64("title_id", id).Int("reviews", len(reviewIDs)).Msg("title deleted")
	return nil
}

// RecalculateRating stores the current average review score on the title.
func (s *CatalogService) RecalculateRating(ctx context.Context, titleID int64) error {
	avg, err := s.reviews.AverageScore(ctx, titleID)
	if err != nil {
		return fmt.Errorf("recalculate rating: %w", err)
	}
	if err := s.titles.SetRating(ctx, titleID, avg); err != nil {
		return fmt.Errorf("recalculate rating: %w", err)
	}
	return nil
}

// validateTitle checks every provided field and that referenced terms exist.
// Inputs are normalized in place.
func (s *CatalogService) validateTitle(ctx context.Context, ve *domain.ValidationError, in *ports.TitleInput) error {
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		in.Name = &name
		if msg := validateRequiredText(name, domain.CatalogNameMaxLength); msg != "" {
			ve.Add("name", msg)
		}
	}
	if in.Year != nil {
		if msg := domain.ValidateYear(*in.Year, s.now()); msg != "" {
			ve.Add("year", msg)
		}
	}

	if in.Category != nil {
		found, err := s.categories.FindBySlugs(ctx, []string{*in.Category})
		if err != nil {
			return fmt.Errorf("validate title: %w", err)
		}
		if len(found) == 0 {
			ve.Add("category", fmt.Sprintf("object with slug %q does not exist", *in.Category))
		}
	}

	if in.Genres != nil {
		slugs := dedupe(*in.Genres)
		in.Genres = &slugs
		if len(slugs) == 0 {
			ve.Add("genre", "this list may not be empty")
		} else {
			found, err := s.genres.FindBySlugs(ctx, slugs)
			if err != nil {
				return fmt.Errorf("validate title: %w", err)
			}
			known := make(map[string]struct{}, len(found))
			for _, g := range found {
				known[g.Slug] = struct{}{}
			}
			for _, slug := range slugs {
				if _, ok := known[slug]; !ok {
					ve.Add("genre", fmt.Sprintf("object with slug %q does not exist", slug))
					break
				}
			}
		}
	}

	return ve.OrNil()
}

// resolve expands term slugs into full terms with one lookup per vocabulary.
func (s *CatalogService) resolve(ctx context.Context, titles ...*domain.Title) ([]*ports.TitleDetail, error) {
	var genreSlugs, categorySlugs []string
	for _, t := range titles {
		genreSlugs = append(genreSlugs, t.Genres...)
		if t.Category != "" {
			categorySlugs = append(categorySlugs, t.Category)
		}
	}

	genres, err := s.termsBySlug(ctx, s.genres, dedupe(genreSlugs))
	if err != nil {
		return nil, err
	}
	categories, err := s.termsBySlug(ctx, s.categories, dedupe(categorySlugs))
	if err != nil {
		return nil, err
	}

	out := make([]*ports.TitleDetail, len(titles))
	for i, t := range titles {
		d := &ports.TitleDetail{
			ID:          t.ID,
			Name:        t.Name,
			Year:        t.Year,
			Description: t.Description,
			Rating:      t.Rating,
			Genres:      make([]domain.Term, 0, len(t.Genres)),
		}
		for _, slug := range t.Genres {
			if g, ok := genres[slug]; ok {
				d.Genres = append(d.Genres, g)
			}
		}
		if c, ok := categories[t.Category]; ok {
			d.Category = &c
		}
		out[i] = d
	}
	return out, nil
}

func (s *CatalogService) termsBySlug(ctx context.Context, repo ports.TermRepository, slugs []string) (map[string]domain.Term, error) {
	out := make(map[string]domain.Term, len(slugs))
	if len(slugs) == 0 {
		return out, nil
	}
	terms, err := repo.FindBySlugs(ctx, slugs)
	if err != nil {
		return nil, fmt.Errorf("resolve terms: %w", err)
	}
	for _, t := range terms {
		out[t.Slug] = t
	}
	return out, nil
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
