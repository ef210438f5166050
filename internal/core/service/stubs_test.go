package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/yamdb/yamdb-api/internal/core/domain"
	"github.com/yamdb/yamdb-api/internal/core/ports"
)

var discardLogger = zerolog.Nop()

// ---------------------------------------------------------------------------
// Users
// ---------------------------------------------------------------------------

type stubUserRepo struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*domain.User

	createErr error
	deleted   []int64
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[int64]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return nil, r.createErr
	}
	for _, u := range r.users {
		if u.Username == user.Username {
			return nil, &domain.DuplicateError{Field: "username", Err: domain.ErrUserExists}
		}
		if u.Email == user.Email {
			return nil, &domain.DuplicateError{Field: "email", Err: domain.ErrUserExists}
		}
	}
	r.nextID++
	stored := cloneUser(user)
	stored.ID = r.nextID
	r.users[stored.ID] = stored
	return cloneUser(stored), nil
}

func (r *stubUserRepo) FindByID(_ context.Context, id int64) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *stubUserRepo) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) List(_ context.Context, page ports.Page) ([]*domain.User, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := make([]*domain.User, 0, len(r.users))
	for _, u := range r.users {
		all = append(all, cloneUser(u))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Username < all[j].Username })
	return window(all, page), int64(len(all)), nil
}

func (r *stubUserRepo) Update(_ context.Context, id int64, patch domain.UserPatch) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	for _, other := range r.users {
		if other.ID == id {
			continue
		}
		if patch.Username != nil && other.Username == *patch.Username {
			return nil, &domain.DuplicateError{Field: "username", Err: domain.ErrUserExists}
		}
		if patch.Email != nil && other.Email == *patch.Email {
			return nil, &domain.DuplicateError{Field: "email", Err: domain.ErrUserExists}
		}
	}
	if patch.Username != nil {
		u.Username = *patch.Username
	}
	if patch.Email != nil {
		u.Email = *patch.Email
	}
	if patch.FirstName != nil {
		u.FirstName = *patch.FirstName
	}
	if patch.LastName != nil {
		u.LastName = *patch.LastName
	}
	if patch.Bio != nil {
		u.Bio = *patch.Bio
	}
	if patch.Role != nil {
		u.Role = *patch.Role
	}
	return cloneUser(u), nil
}

func (r *stubUserRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return domain.ErrUserNotFound
	}
	delete(r.users, id)
	r.deleted = append(r.deleted, id)
	return nil
}

func (r *stubUserRepo) SetConfirmationCode(_ context.Context, id int64, hash string, issuedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.ConfirmationCodeHash = hash
	u.CodeIssuedAt = issuedAt
	return nil
}

// ConsumeConfirmationCode mirrors the conditional update of the Mongo
// repository: it only succeeds while the stored hash is unchanged.
func (r *stubUserRepo) ConsumeConfirmationCode(_ context.Context, id int64, hash string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	if u.ConfirmationCodeHash != hash {
		return domain.ErrCodeConsumed
	}
	u.ConfirmationCodeHash = ""
	u.ConfirmedAt = &at
	return nil
}

func (r *stubUserRepo) MarkConfirmed(_ context.Context, id int64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.ConfirmedAt = &at
	return nil
}

func (r *stubUserRepo) get(username string) *domain.User {
	u, _ := r.FindByUsername(context.Background(), username)
	return u
}

func (r *stubUserRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users)
}

// ---------------------------------------------------------------------------
// Catalog
// ---------------------------------------------------------------------------

type stubTermRepo struct {
	notFound error
	terms    map[string]domain.Term
}

func newStubTermRepo(notFound error, terms ...domain.Term) *stubTermRepo {
	r := &stubTermRepo{notFound: notFound, terms: make(map[string]domain.Term)}
	for _, t := range terms {
		r.terms[t.Slug] = t
	}
	return r
}

func (r *stubTermRepo) Create(_ context.Context, term domain.Term) error {
	if _, ok := r.terms[term.Slug]; ok {
		return &domain.DuplicateError{Field: "slug", Err: domain.ErrSlugExists}
	}
	r.terms[term.Slug] = term
	return nil
}

func (r *stubTermRepo) List(_ context.Context, page ports.Page) ([]domain.Term, int64, error) {
	all := make([]domain.Term, 0, len(r.terms))
	for _, t := range r.terms {
		all = append(all, t)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Slug < all[j].Slug })
	return window(all, page), int64(len(all)), nil
}

func (r *stubTermRepo) FindBySlugs(_ context.Context, slugs []string) ([]domain.Term, error) {
	var out []domain.Term
	for _, s := range slugs {
		if t, ok := r.terms[s]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *stubTermRepo) Delete(_ context.Context, slug string) error {
	if _, ok := r.terms[slug]; !ok {
		return r.notFound
	}
	delete(r.terms, slug)
	return nil
}

type stubTitleRepo struct {
	nextID int64
	titles map[int64]*domain.Title
}

func newStubTitleRepo() *stubTitleRepo {
	return &stubTitleRepo{titles: make(map[int64]*domain.Title)}
}

func cloneTitle(t *domain.Title) *domain.Title {
	clone := *t
	clone.Genres = append([]string(nil), t.Genres...)
	if t.Rating != nil {
		r := *t.Rating
		clone.Rating = &r
	}
	return &clone
}

func (r *stubTitleRepo) Create(_ context.Context, title *domain.Title) (*domain.Title, error) {
	r.nextID++
	stored := cloneTitle(title)
	stored.ID = r.nextID
	r.titles[stored.ID] = stored
	return cloneTitle(stored), nil
}

func (r *stubTitleRepo) FindByID(_ context.Context, id int64) (*domain.Title, error) {
	t, ok := r.titles[id]
	if !ok {
		return nil, domain.ErrTitleNotFound
	}
	return cloneTitle(t), nil
}

func (r *stubTitleRepo) List(_ context.Context, page ports.Page) ([]*domain.Title, int64, error) {
	all := make([]*domain.Title, 0, len(r.titles))
	for _, t := range r.titles {
		all = append(all, cloneTitle(t))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return window(all, page), int64(len(all)), nil
}

func (r *stubTitleRepo) Update(_ context.Context, id int64, patch domain.TitlePatch) (*domain.Title, error) {
	t, ok := r.titles[id]
	if !ok {
		return nil, domain.ErrTitleNotFound
	}
	if patch.Name != nil {
		t.Name = *patch.Name
	}
	if patch.Year != nil {
		t.Year = *patch.Year
	}
	if patch.Description != nil {
		t.Description = *patch.Description
	}
	if patch.Genres != nil {
		t.Genres = append([]string(nil), (*patch.Genres)...)
	}
	if patch.Category != nil {
		t.Category = *patch.Category
	}
	return cloneTitle(t), nil
}

func (r *stubTitleRepo) Delete(_ context.Context, id int64) error {
	if _, ok := r.titles[id]; !ok {
		return domain.ErrTitleNotFound
	}
	delete(r.titles, id)
	return nil
}

func (r *stubTitleRepo) SetRating(_ context.Context, id int64, rating *float64) error {
	t, ok := r.titles[id]
	if !ok {
		return domain.ErrTitleNotFound
	}
	t.Rating = rating
	return nil
}

func (r *stubTitleRepo) ClearCategory(_ context.Context, slug string) error {
	for _, t := range r.titles {
		if t.Category == slug {
			t.Category = ""
		}
	}
	return nil
}

func (r *stubTitleRepo) PullGenre(_ context.Context, slug string) error {
	for _, t := range r.titles {
		kept := t.Genres[:0]
		for _, g := range t.Genres {
			if g != slug {
				kept = append(kept, g)
			}
		}
		t.Genres = kept
	}
	return nil
}

// ---------------------------------------------------------------------------
// Reviews and comments
// ---------------------------------------------------------------------------

type stubReviewRepo struct {
	nextID  int64
	reviews map[int64]*domain.Review
}

func newStubReviewRepo() *stubReviewRepo {
	return &stubReviewRepo{reviews: make(map[int64]*domain.Review)}
}

func (r *stubReviewRepo) Create(_ context.Context, review *domain.Review) (*domain.Review, error) {
	for _, existing := range r.reviews {
		if existing.TitleID == review.TitleID && existing.AuthorID == review.AuthorID {
			return nil, domain.ErrReviewExists
		}
	}
	r.nextID++
	stored := *review
	stored.ID = r.nextID
	r.reviews[stored.ID] = &stored
	out := stored
	return &out, nil
}

func (r *stubReviewRepo) Find(_ context.Context, titleID, reviewID int64) (*domain.Review, error) {
	rv, ok := r.reviews[reviewID]
	if !ok || rv.TitleID != titleID {
		return nil, domain.ErrReviewNotFound
	}
	out := *rv
	return &out, nil
}

func (r *stubReviewRepo) List(_ context.Context, titleID int64, page ports.Page) ([]*domain.Review, int64, error) {
	var all []*domain.Review
	for _, rv := range r.reviews {
		if rv.TitleID == titleID {
			out := *rv
			all = append(all, &out)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return window(all, page), int64(len(all)), nil
}

func (r *stubReviewRepo) Update(_ context.Context, titleID, reviewID int64, patch ports.ReviewPatch) (*domain.Review, error) {
	rv, ok := r.reviews[reviewID]
	if !ok || rv.TitleID != titleID {
		return nil, domain.ErrReviewNotFound
	}
	if patch.Text != nil {
		rv.Text = *patch.Text
	}
	if patch.Score != nil {
		rv.Score = *patch.Score
	}
	out := *rv
	return &out, nil
}

func (r *stubReviewRepo) Delete(_ context.Context, titleID, reviewID int64) error {
	rv, ok := r.reviews[reviewID]
	if !ok || rv.TitleID != titleID {
		return domain.ErrReviewNotFound
	}
	delete(r.reviews, reviewID)
	return nil
}

func (r *stubReviewRepo) AverageScore(_ context.Context, titleID int64) (*float64, error) {
	var sum, n int
	for _, rv := range r.reviews {
		if rv.TitleID == titleID {
			sum += rv.Score
			n++
		}
	}
	if n == 0 {
		return nil, nil
	}
	avg := float64(sum) / float64(n)
	return &avg, nil
}

func (r *stubReviewRepo) IDsByTitle(_ context.Context, titleID int64) ([]int64, error) {
	var ids []int64
	for id, rv := range r.reviews {
		if rv.TitleID == titleID {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (r *stubReviewRepo) DeleteByTitle(_ context.Context, titleID int64) error {
	for id, rv := range r.reviews {
		if rv.TitleID == titleID {
			delete(r.reviews, id)
		}
	}
	return nil
}

func (r *stubReviewRepo) ListByAuthor(_ context.Context, authorID int64) ([]*domain.Review, error) {
	var out []*domain.Review
	for _, rv := range r.reviews {
		if rv.AuthorID == authorID {
			c := *rv
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *stubReviewRepo) DeleteByAuthor(_ context.Context, authorID int64) error {
	for id, rv := range r.reviews {
		if rv.AuthorID == authorID {
			delete(r.reviews, id)
		}
	}
	return nil
}

func (r *stubReviewRepo) RenameAuthor(_ context.Context, authorID int64, username string) error {
	for _, rv := range r.reviews {
		if rv.AuthorID == authorID {
			rv.Author = username
		}
	}
	return nil
}

type stubCommentRepo struct {
	nextID   int64
	comments map[int64]*domain.Comment
}

func newStubCommentRepo() *stubCommentRepo {
	return &stubCommentRepo{comments: make(map[int64]*domain.Comment)}
}

func (r *stubCommentRepo) Create(_ context.Context, comment *domain.Comment) (*domain.Comment, error) {
	r.nextID++
	stored := *comment
	stored.ID = r.nextID
	r.comments[stored.ID] = &stored
	out := stored
	return &out, nil
}

func (r *stubCommentRepo) Find(_ context.Context, reviewID, commentID int64) (*domain.Comment, error) {
	c, ok := r.comments[commentID]
	if !ok || c.ReviewID != reviewID {
		return nil, domain.ErrCommentNotFound
	}
	out := *c
	return &out, nil
}

func (r *stubCommentRepo) List(_ context.Context, reviewID int64, page ports.Page) ([]*domain.Comment, int64, error) {
	var all []*domain.Comment
	for _, c := range r.comments {
		if c.ReviewID == reviewID {
			out := *c
			all = append(all, &out)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return window(all, page), int64(len(all)), nil
}

func (r *stubCommentRepo) Update(_ context.Context, reviewID, commentID int64, text string) (*domain.Comment, error) {
	c, ok := r.comments[commentID]
	if !ok || c.ReviewID != reviewID {
		return nil, domain.ErrCommentNotFound
	}
	c.Text = text
	out := *c
	return &out, nil
}

func (r *stubCommentRepo) Delete(_ context.Context, reviewID, commentID int64) error {
	c, ok := r.comments[commentID]
	if !ok || c.ReviewID != reviewID {
		return domain.ErrCommentNotFound
	}
	delete(r.comments, commentID)
	return nil
}

func (r *stubCommentRepo) DeleteByReviews(_ context.Context, reviewIDs []int64) error {
	set := make(map[int64]struct{}, len(reviewIDs))
	for _, id := range reviewIDs {
		set[id] = struct{}{}
	}
	for id, c := range r.comments {
		if _, ok := set[c.ReviewID]; ok {
			delete(r.comments, id)
		}
	}
	return nil
}

func (r *stubCommentRepo) DeleteByAuthor(_ context.Context, authorID int64) error {
	for id, c := range r.comments {
		if c.AuthorID == authorID {
			delete(r.comments, id)
		}
	}
	return nil
}

func (r *stubCommentRepo) RenameAuthor(_ context.Context, authorID int64, username string) error {
	for _, c := range r.comments {
		if c.AuthorID == authorID {
			c.Author = username
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Collaborators
// ---------------------------------------------------------------------------

type stubMailer struct {
	mu   sync.Mutex
	sent []ports.Message
	err  error
}

func (m *stubMailer) Send(_ context.Context, msg ports.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *stubMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func (m *stubMailer) last() ports.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sent[len(m.sent)-1]
}

type stubRatingQueue struct {
	mu     sync.Mutex
	queued []int64
}

func (q *stubRatingQueue) Enqueue(titleID int64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.queued = append(q.queued, titleID)
}

func (q *stubRatingQueue) has(titleID int64) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, id := range q.queued {
		if id == titleID {
			return true
		}
	}
	return false
}

type stubThrottle struct {
	held       map[string]bool
	err        error
	releaseLog []string
}

func newStubThrottle() *stubThrottle {
	return &stubThrottle{held: make(map[string]bool)}
}

func (t *stubThrottle) Acquire(_ context.Context, email string) (bool, error) {
	if t.err != nil {
		return false, t.err
	}
	if t.held[email] {
		return false, nil
	}
	t.held[email] = true
	return true, nil
}

func (t *stubThrottle) Release(_ context.Context, email string) error {
	delete(t.held, email)
	t.releaseLog = append(t.releaseLog, email)
	return nil
}

var errStubFailure = errors.New("stub failure")

func window[T any](all []T, page ports.Page) []T {
	page = page.Normalize()
	if page.Offset >= len(all) {
		return []T{}
	}
	end := page.Offset + page.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[page.Offset:end]
}

func ptr[T any](v T) *T { return &v }
