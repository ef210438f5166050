package service

import (
	"context"
	"errors"
	"testing"

	"github.com/yamdb/yamdb-api/internal/core/domain"
	"github.com/yamdb/yamdb-api/internal/core/policy"
	"github.com/yamdb/yamdb-api/internal/core/ports"
)

var (
	reviewAuthor = policy.Caller{ID: 1, Username: "alice", Role: domain.RoleUser}
	reviewOther  = policy.Caller{ID: 2, Username: "bob", Role: domain.RoleUser}
	reviewMod    = policy.Caller{ID: 3, Username: "mod", Role: domain.RoleModerator}
	reviewAdmin  = policy.Caller{ID: 4, Username: "root", Role: domain.RoleAdmin}
)

type reviewFixture struct {
	titles   *stubTitleRepo
	reviews  *stubReviewRepo
	comments *stubCommentRepo
	ratings  *stubRatingQueue
	svc      *ReviewService
	titleID  int64
}

func newReviewFixture(t *testing.T) *reviewFixture {
	t.Helper()
	f := &reviewFixture{
		titles:   newStubTitleRepo(),
		reviews:  newStubReviewRepo(),
		comments: newStubCommentRepo(),
		ratings:  &stubRatingQueue{},
	}
	f.svc = NewReviewService(f.titles, f.reviews, f.comments, f.ratings, discardLogger)

	title, err := f.titles.Create(context.Background(), &domain.Title{Name: "Dune", Year: 1965, Category: "books"})
	if err != nil {
		t.Fatalf("seed title: %v", err)
	}
	f.titleID = title.ID
	return f
}

func (f *reviewFixture) review(t *testing.T, caller policy.Caller, score int) *domain.Review {
	t.Helper()
	r, err := f.svc.CreateReview(context.Background(), caller, f.titleID, ports.ReviewInput{Text: ptr("review"), Score: ptr(score)})
	if err != nil {
		t.Fatalf("CreateReview: %v", err)
	}
	return r
}

func TestReviewService_CreateReview(t *testing.T) {
	f := newReviewFixture(t)

	r := f.review(t, reviewAuthor, 8)
	if r.AuthorID != reviewAuthor.ID || r.Author != "alice" || r.TitleID != f.titleID {
		t.Fatalf("author/title not bound: %+v", r)
	}
	if r.PubDate.IsZero() {
		t.Fatal("pub date not set")
	}
	if !f.ratings.has(f.titleID) {
		t.Fatal("rating refresh not scheduled")
	}
}

func TestReviewService_CreateReview_Rules(t *testing.T) {
	f := newReviewFixture(t)
	ctx := context.Background()
	f.review(t, reviewAuthor, 5)

	_, err := f.svc.CreateReview(ctx, reviewAuthor, f.titleID, ports.ReviewInput{Text: ptr("again"), Score: ptr(6)})
	fieldErr(t, err, "title")

	_, err = f.svc.CreateReview(ctx, policy.Caller{}, f.titleID, ports.ReviewInput{Text: ptr("x"), Score: ptr(6)})
	if !errors.Is(err, domain.ErrAuthenticationRequired) {
		t.Fatalf("expected ErrAuthenticationRequired, got %v", err)
	}

	_, err = f.svc.CreateReview(ctx, reviewOther, 999, ports.ReviewInput{Text: ptr("x"), Score: ptr(6)})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	for _, score := range []int{0, 11} {
		_, err = f.svc.CreateReview(ctx, reviewOther, f.titleID, ports.ReviewInput{Text: ptr("x"), Score: ptr(score)})
		fieldErr(t, err, "score")
	}

	_, err = f.svc.CreateReview(ctx, reviewOther, f.titleID, ports.ReviewInput{})
	fieldErr(t, err, "text")
	fieldErr(t, err, "score")
}

func TestReviewService_UpdateReview_Ownership(t *testing.T) {
	f := newReviewFixture(t)
	ctx := context.Background()
	r := f.review(t, reviewAuthor, 5)

	_, err := f.svc.UpdateReview(ctx, reviewOther, f.titleID, r.ID, ports.ReviewInput{Text: ptr("hijack")})
	if !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
	_, err = f.svc.UpdateReview(ctx, policy.Caller{}, f.titleID, r.ID, ports.ReviewInput{Text: ptr("hijack")})
	if !errors.Is(err, domain.ErrAuthenticationRequired) {
		t.Fatalf("expected ErrAuthenticationRequired, got %v", err)
	}

	for _, caller := range []policy.Caller{reviewAuthor, reviewMod, reviewAdmin} {
		updated, err := f.svc.UpdateReview(ctx, caller, f.titleID, r.ID, ports.ReviewInput{Text: ptr("edited by " + caller.Username)})
		if err != nil {
			t.Fatalf("%s update: %v", caller.Username, err)
		}
		if updated.AuthorID != reviewAuthor.ID {
			t.Fatalf("author changed by %s", caller.Username)
		}
	}
}

func TestReviewService_UpdateReview_ScoreSchedulesRating(t *testing.T) {
	f := newReviewFixture(t)
	ctx := context.Background()
	r := f.review(t, reviewAuthor, 5)
	f.ratings.queued = nil

	if _, err := f.svc.UpdateReview(ctx, reviewAuthor, f.titleID, r.ID, ports.ReviewInput{Text: ptr("text only")}); err != nil {
		t.Fatalf("UpdateReview: %v", err)
	}
	if f.ratings.has(f.titleID) {
		t.Fatal("text edit must not schedule a rating refresh")
	}

	if _, err := f.svc.UpdateReview(ctx, reviewAuthor, f.titleID, r.ID, ports.ReviewInput{Score: ptr(9)}); err != nil {
		t.Fatalf("UpdateReview: %v", err)
	}
	if !f.ratings.has(f.titleID) {
		t.Fatal("score change must schedule a rating refresh")
	}
}

func TestReviewService_ScopedToTitle(t *testing.T) {
	f := newReviewFixture(t)
	ctx := context.Background()
	r := f.review(t, reviewAuthor, 5)

	other, _ := f.titles.Create(ctx, &domain.Title{Name: "Other", Year: 2000})
	if _, err := f.svc.GetReview(ctx, other.ID, r.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("review visible under a foreign title: %v", err)
	}
	if err := f.svc.DeleteReview(ctx, reviewAdmin, other.ID, r.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("review deleted through a foreign title: %v", err)
	}
}

func TestReviewService_DeleteReview_RemovesComments(t *testing.T) {
	f := newReviewFixture(t)
	ctx := context.Background()
	r := f.review(t, reviewAuthor, 5)
	if _, err := f.svc.CreateComment(ctx, reviewOther, f.titleID, r.ID, "nice"); err != nil {
		t.Fatalf("CreateComment: %v", err)
	}

	if err := f.svc.DeleteReview(ctx, reviewOther, f.titleID, r.ID); !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
	if err := f.svc.DeleteReview(ctx, reviewMod, f.titleID, r.ID); err != nil {
		t.Fatalf("moderator delete: %v", err)
	}
	if len(f.reviews.reviews) != 0 || len(f.comments.comments) != 0 {
		t.Fatal("review or comments left behind")
	}
}

func TestReviewService_Comments(t *testing.T) {
	f := newReviewFixture(t)
	ctx := context.Background()
	r := f.review(t, reviewAuthor, 5)

	c, err := f.svc.CreateComment(ctx, reviewOther, f.titleID, r.ID, "  agreed  ")
	if err != nil {
		t.Fatalf("CreateComment: %v", err)
	}
	if c.Text != "agreed" || c.AuthorID != reviewOther.ID || c.ReviewID != r.ID {
		t.Fatalf("unexpected comment: %+v", c)
	}

	if _, err := f.svc.CreateComment(ctx, reviewOther, f.titleID, r.ID, "   "); err == nil {
		t.Fatal("blank comment accepted")
	}
	if _, err := f.svc.CreateComment(ctx, policy.Caller{}, f.titleID, r.ID, "anon"); !errors.Is(err, domain.ErrAuthenticationRequired) {
		t.Fatalf("expected ErrAuthenticationRequired, got %v", err)
	}

	if _, err := f.svc.UpdateComment(ctx, reviewAuthor, f.titleID, r.ID, c.ID, "edit"); !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("review author must not edit another's comment: %v", err)
	}
	if _, err := f.svc.UpdateComment(ctx, reviewOther, f.titleID, r.ID, c.ID, "edited"); err != nil {
		t.Fatalf("owner edit: %v", err)
	}

	comments, total, err := f.svc.ListComments(ctx, f.titleID, r.ID, ports.Page{})
	if err != nil || total != 1 || comments[0].Text != "edited" {
		t.Fatalf("ListComments: total=%d err=%v", total, err)
	}

	if err := f.svc.DeleteComment(ctx, reviewAdmin, f.titleID, r.ID, c.ID); err != nil {
		t.Fatalf("admin delete: %v", err)
	}
	if _, err := f.svc.GetComment(ctx, f.titleID, r.ID, c.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestReviewService_Comments_ScopedToTitle(t *testing.T) {
	f := newReviewFixture(t)
	ctx := context.Background()
	r := f.review(t, reviewAuthor, 5)
	c, _ := f.svc.CreateComment(ctx, reviewOther, f.titleID, r.ID, "hello")

	other, _ := f.titles.Create(ctx, &domain.Title{Name: "Other", Year: 2000})
	if _, err := f.svc.GetComment(ctx, other.ID, r.ID, c.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("comment visible under a foreign title: %v", err)
	}
	if _, _, err := f.svc.ListComments(ctx, other.ID, r.ID, ports.Page{}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("comments listed under a foreign title: %v", err)
	}
}

// hookedComments runs beforeInsert ahead of every insert.
type hookedComments struct {
	*stubCommentRepo
	beforeInsert func()
}

func (h *hookedComments) Create(ctx context.Context, c *domain.Comment) (*domain.Comment, error) {
	h.beforeInsert()
	return h.stubCommentRepo.Create(ctx, c)
}

// hookedReviews runs beforeInsert ahead of every insert.
type hookedReviews struct {
	*stubReviewRepo
	beforeInsert func()
}

func (h *hookedReviews) Create(ctx context.Context, r *domain.Review) (*domain.Review, error) {
	h.beforeInsert()
	return h.stubReviewRepo.Create(ctx, r)
}

func TestReviewService_CreateComment_ReviewDeletedConcurrently(t *testing.T) {
	f := newReviewFixture(t)
	ctx := context.Background()
	r := f.review(t, reviewAuthor, 7)

	// DeleteReview completes between the parent lookup and the insert.
	comments := &hookedComments{stubCommentRepo: f.comments, beforeInsert: func() {
		if err := f.svc.DeleteReview(ctx, reviewAuthor, f.titleID, r.ID); err != nil {
			t.Fatalf("DeleteReview: %v", err)
		}
	}}
	svc := NewReviewService(f.titles, f.reviews, comments, f.ratings, discardLogger)

	if _, err := svc.CreateComment(ctx, reviewOther, f.titleID, r.ID, "late"); !errors.Is(err, domain.ErrReviewNotFound) {
		t.Fatalf("expected ErrReviewNotFound, got %v", err)
	}
	if len(f.comments.comments) != 0 {
		t.Fatalf("orphan comment left behind: %+v", f.comments.comments)
	}
}

func TestReviewService_CreateReview_TitleDeletedConcurrently(t *testing.T) {
	f := newReviewFixture(t)
	ctx := context.Background()

	reviews := &hookedReviews{stubReviewRepo: f.reviews, beforeInsert: func() {
		if err := f.titles.Delete(ctx, f.titleID); err != nil {
			t.Fatalf("delete title: %v", err)
		}
	}}
	svc := NewReviewService(f.titles, reviews, f.comments, f.ratings, discardLogger)

	_, err := svc.CreateReview(ctx, reviewAuthor, f.titleID, ports.ReviewInput{Text: ptr("late"), Score: ptr(5)})
	if !errors.Is(err, domain.ErrTitleNotFound) {
		t.Fatalf("expected ErrTitleNotFound, got %v", err)
	}
	if len(f.reviews.reviews) != 0 {
		t.Fatalf("orphan review left behind: %+v", f.reviews.reviews)
	}
}
