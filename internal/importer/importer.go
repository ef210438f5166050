// Package importer loads the legacy CSV dumps (users, category, genre,
// titles, genre_title, review, comments) into the repositories. Rows keep
// their original ids; the id sequences are advanced past them afterwards.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/yamdb/yamdb-api/internal/core/domain"
	"github.com/yamdb/yamdb-api/internal/core/ports"
)

// Sequence names; they match the id counters the repositories draw from.
const (
	SequenceUsers    = "users"
	SequenceTitles   = "titles"
	SequenceReviews  = "reviews"
	SequenceComments = "comments"
)

// Sequencer moves an id sequence forward.
type Sequencer interface {
	AtLeast(ctx context.Context, name string, seq int64) error
}

// RatingRefresher recomputes the stored rating of one title.
type RatingRefresher interface {
	RecalculateRating(ctx context.Context, titleID int64) error
}

// Stores groups the destinations of an import.
type Stores struct {
	Users      ports.UserRepository
	Categories ports.TermRepository
	Genres     ports.TermRepository
	Titles     ports.TitleRepository
	Reviews    ports.ReviewRepository
	Comments   ports.CommentRepository
	Sequences  Sequencer
	Ratings    RatingRefresher
}

// Report counts inserted and skipped rows per file.
type Report struct {
	Inserted map[string]int
	Skipped  map[string]int
}

func (r *Report) inserted(file string) { r.Inserted[file]++ }
func (r *Report) skipped(file string) { r.Skipped[file]++ }

type Importer struct {
	stores Stores
	log    zerolog.Logger
	now    func() time.Time
}

func New(stores Stores, log zerolog.Logger) *Importer {
	return &Importer{stores: stores, log: log, now: func() time.Time { return time.Now().UTC() }}
}

// state carries id mappings between files.
type state struct {
	usernames   map[int64]string
	categories  map[int64]string
	genres      map[int64]string
	titleGenres map[int64][]string
	titles      map[int64]bool
	reviews     map[int64]bool
	maxID       map[string]int64
}

func (s *state) seen(seq string, id int64) {
	if id > s.maxID[seq] {
		s.maxID[seq] = id
	}
}

// Run imports every known file found in fsys. Missing files are skipped;
// rows that already exist (same username, email or slug, or a repeated
// review) are counted as skipped so a partial import can be resumed.
func (im *Importer) Run(ctx context.Context, fsys fs.FS) (*Report, error) {
	report := &Report{Inserted: map[string]int{}, Skipped: map[string]int{}}
	st := &state{
		usernames:   map[int64]string{},
		categories:  map[int64]string{},
		genres:      map[int64]string{},
		titleGenres: map[int64][]string{},
		titles:      map[int64]bool{},
		reviews:     map[int64]bool{},
		maxID:       map[string]int64{},
	}

	steps := []struct {
		file     string
		required []string
		load     func(context.Context, *state, *Report, []row) error
	}{
		{"users.csv", []string{"id", "username", "email"}, im.loadUsers},
		{"category.csv", []string{"id", "name", "slug"}, im.loadCategories},
		{"genre.csv", []string{"id", "name", "slug"}, im.loadGenres},
		{"genre_title.csv", []string{"title_id", "genre_id"}, im.loadGenreTitles},
		{"titles.csv", []string{"id", "name", "year"}, im.loadTitles},
		{"review.csv", []string{"id", "title_id", "text", "author", "score"}, im.loadReviews},
		{"comments.csv", []string{"id", "review_id", "text", "author"}, im.loadComments},
	}
	for _, step := range steps {
		rows, err := readCSV(fsys, step.file, step.required...)
		if errors.Is(err, fs.ErrNotExist) {
			im.log.Warn().Str("file", step.file).Msg("file not found, skipping")
			continue
		}
		if err != nil {
			return report, err
		}
		if err := step.load(ctx, st, report, rows); err != nil {
			return report, err
		}
		im.log.Info().
			Str("file", step.file).
			Int("inserted", report.Inserted[step.file]).
			Int("skipped", report.Skipped[step.file]).
			Msg("file imported")
	}

	for _, seq := range []string{SequenceUsers, SequenceTitles, SequenceReviews, SequenceComments} {
		if last := st.maxID[seq]; last > 0 {
			if err := im.stores.Sequences.AtLeast(ctx, seq, last); err != nil {
				return report, err
			}
		}
	}

	titleIDs := make([]int64, 0, len(st.titles))
	for id := range st.titles {
		titleIDs = append(titleIDs, id)
	}
	sort.Slice(titleIDs, func(i, j int) bool { return titleIDs[i] < titleIDs[j] })
	for _, id := range titleIDs {
		if err := im.stores.Ratings.RecalculateRating(ctx, id); err != nil {
			return report, fmt.Errorf("recalculate rating of title %d: %w", id, err)
		}
	}
	return report, nil
}

func (im *Importer) loadUsers(ctx context.Context, st *state, report *Report, rows []row) error {
	for _, r := range rows {
		id, err := r.parseInt64("id")
		if err != nil {
			return err
		}
		role := domain.Role(r.str("role"))
		if role == "" {
			role = domain.RoleUser
		}
		if !role.Valid() {
			return r.errorf("unknown role %q", role)
		}

		username := r.str("username")
		st.usernames[id] = username
		st.seen(SequenceUsers, id)

		now := im.now()
		_, err = im.stores.Users.Create(ctx, &domain.User{
			ID:        id,
			Username:  username,
			Email:     domain.NormalizeEmail(r.str("email")),
			FirstName: r.str("first_name"),
			LastName:  r.str("last_name"),
			Bio:       r.str("bio"),
			Role:      role,
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		})
		if err := im.tally(report, r, err); err != nil {
			return err
		}
	}
	return nil
}

func (im *Importer) loadCategories(ctx context.Context, st *state, report *Report, rows []row) error {
	return im.loadTerms(ctx, im.stores.Categories, st.categories, report, rows)
}

func (im *Importer) loadGenres(ctx context.Context, st *state, report *Report, rows []row) error {
	return im.loadTerms(ctx, im.stores.Genres, st.genres, report, rows)
}

func (im *Importer) loadTerms(ctx context.Context, repo ports.TermRepository, slugs map[int64]string, report *Report, rows []row) error {
	for _, r := range rows {
		id, err := r.parseInt64("id")
		if err != nil {
			return err
		}
		term := domain.Term{Name: r.str("name"), Slug: r.str("slug")}
		if msg := domain.ValidateSlug(term.Slug); msg != "" {
			return r.errorf("slug %q: %s", term.Slug, msg)
		}
		slugs[id] = term.Slug

		if err := im.tally(report, r, repo.Create(ctx, term)); err != nil {
			return err
		}
	}
	return nil
}

func (im *Importer) loadGenreTitles(_ context.Context, st *state, report *Report, rows []row) error {
	for _, r := range rows {
		titleID, err := r.parseInt64("title_id")
		if err != nil {
			return err
		}
		genreID, err := r.parseInt64("genre_id")
		if err != nil {
			return err
		}
		slug, ok := st.genres[genreID]
		if !ok {
			return r.errorf("unknown genre id %d", genreID)
		}
		st.titleGenres[titleID] = append(st.titleGenres[titleID], slug)
		report.inserted(r.file)
	}
	return nil
}

func (im *Importer) loadTitles(ctx context.Context, st *state, report *Report, rows []row) error {
	for _, r := range rows {
		id, err := r.parseInt64("id")
		if err != nil {
			return err
		}
		year, err := r.parseInt("year")
		if err != nil {
			return err
		}

		title := &domain.Title{
			ID:          id,
			Name:        r.str("name"),
			Year:        year,
			Description: r.str("description"),
			Genres:      st.titleGenres[id],
		}
		if raw := r.str("category"); raw != "" {
			catID, err := r.parseInt64("category")
			if err != nil {
				return err
			}
			slug, ok := st.categories[catID]
			if !ok {
				return r.errorf("unknown category id %d", catID)
			}
			title.Category = slug
		}
		if title.Genres == nil {
			title.Genres = []string{}
		}

		st.titles[id] = true
		st.seen(SequenceTitles, id)
		if _, err := im.stores.Titles.Create(ctx, title); err != nil {
			return r.errorf("insert title: %v", err)
		}
		report.inserted(r.file)
	}
	return nil
}

func (im *Importer) loadReviews(ctx context.Context, st *state, report *Report, rows []row) error {
	for _, r := range rows {
		id, err := r.parseInt64("id")
		if err != nil {
			return err
		}
		titleID, err := r.parseInt64("title_id")
		if err != nil {
			return err
		}
		if !st.titles[titleID] {
			return r.errorf("unknown title id %d", titleID)
		}
		authorID, username, err := author(st, r)
		if err != nil {
			return err
		}
		score, err := r.parseInt("score")
		if err != nil {
			return err
		}
		if msg := domain.ValidateScore(score); msg != "" {
			return r.errorf("%s", msg)
		}
		pubDate, err := r.parseTime("pub_date")
		if err != nil {
			return err
		}

		st.reviews[id] = true
		st.seen(SequenceReviews, id)
		_, err = im.stores.Reviews.Create(ctx, &domain.Review{
			ID:       id,
			TitleID:  titleID,
			AuthorID: authorID,
			Author:   username,
			Text:     r.str("text"),
			Score:    score,
			PubDate:  pubDate,
		})
		if err := im.tally(report, r, err); err != nil {
			return err
		}
	}
	return nil
}

func (im *Importer) loadComments(ctx context.Context, st *state, report *Report, rows []row) error {
	for _, r := range rows {
		id, err := r.parseInt64("id")
		if err != nil {
			return err
		}
		reviewID, err := r.parseInt64("review_id")
		if err != nil {
			return err
		}
		if !st.reviews[reviewID] {
			return r.errorf("unknown review id %d", reviewID)
		}
		authorID, username, err := author(st, r)
		if err != nil {
			return err
		}
		pubDate, err := r.parseTime("pub_date")
		if err != nil {
			return err
		}

		st.seen(SequenceComments, id)
		if _, err := im.stores.Comments.Create(ctx, &domain.Comment{
			ID:       id,
			ReviewID: reviewID,
			AuthorID: authorID,
			Author:   username,
			Text:     r.str("text"),
			PubDate:  pubDate,
		}); err != nil {
			return r.errorf("insert comment: %v", err)
		}
		report.inserted(r.file)
	}
	return nil
}

func author(st *state, r row) (int64, string, error) {
	id, err := r.parseInt64("author")
	if err != nil {
		return 0, "", err
	}
	username, ok := st.usernames[id]
	if !ok {
		return 0, "", r.errorf("unknown author id %d", id)
	}
	return id, username, nil
}

// tally records the outcome of one insert. Rows that collide with existing
// data are skipped; anything else aborts the import.
func (im *Importer) tally(report *Report, r row, err error) error {
	var dup *domain.DuplicateError
	switch {
	case err == nil:
		report.inserted(r.file)
	case errors.As(err, &dup), errors.Is(err, domain.ErrReviewExists):
		im.log.Debug().Str("file", r.file).Int("line", r.line).Err(err).Msg("row already present")
		report.skipped(r.file)
	default:
		return r.errorf("%v", err)
	}
	return nil
}
