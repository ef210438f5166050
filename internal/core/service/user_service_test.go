package service

import (
	"context"
	"errors"
	"testing"

	"github.com/yamdb/yamdb-api/internal/core/domain"
	"github.com/yamdb/yamdb-api/internal/core/policy"
	"github.com/yamdb/yamdb-api/internal/core/ports"
)

type userFixture struct {
	users    *stubUserRepo
	reviews  *stubReviewRepo
	comments *stubCommentRepo
	ratings  *stubRatingQueue
	svc      *UserService
}

func newUserFixture() *userFixture {
	f := &userFixture{
		users:    newStubUserRepo(),
		reviews:  newStubReviewRepo(),
		comments: newStubCommentRepo(),
		ratings:  &stubRatingQueue{},
	}
	f.svc = NewUserService(f.users, f.reviews, f.comments, f.ratings, discardLogger)
	return f
}

func (f *userFixture) seed(t *testing.T, username string, role domain.Role) *domain.User {
	t.Helper()
	u, err := f.svc.Create(context.Background(), ports.CreateUserInput{
		Username: username,
		Email:    username + "@example.com",
		Role:     role,
	})
	if err != nil {
		t.Fatalf("seed %s: %v", username, err)
	}
	return u
}

func callerOf(u *domain.User) policy.Caller {
	return policy.Caller{ID: u.ID, Username: u.Username, Role: u.Role}
}

func TestUserService_Create(t *testing.T) {
	f := newUserFixture()

	u, err := f.svc.Create(context.Background(), ports.CreateUserInput{
		Username: "alice",
		Email:    "ALICE@example.com",
		Bio:      "hi",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if u.Role != domain.RoleUser {
		t.Fatalf("expected default role user, got %q", u.Role)
	}
	if u.Email != "alice@example.com" {
		t.Fatalf("email not normalized: %q", u.Email)
	}
	if u.HasPendingCode() {
		t.Fatal("admin-created user must not have a code")
	}
}

func TestUserService_Create_Validation(t *testing.T) {
	f := newUserFixture()
	f.seed(t, "alice", domain.RoleUser)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, ports.CreateUserInput{Username: "me", Email: "me@example.com"})
	fieldErr(t, err, "username")

	_, err = f.svc.Create(ctx, ports.CreateUserInput{Username: "bob", Email: "bob@example.com", Role: "root"})
	fieldErr(t, err, "role")

	_, err = f.svc.Create(ctx, ports.CreateUserInput{Username: "alice", Email: "new@example.com"})
	var dup *domain.DuplicateError
	if !errors.As(err, &dup) || dup.Field != "username" {
		t.Fatalf("expected duplicate username, got %v", err)
	}
}

func TestUserService_Update_ChangesRole(t *testing.T) {
	f := newUserFixture()
	f.seed(t, "bob", domain.RoleUser)

	moderator := domain.RoleModerator
	u, err := f.svc.Update(context.Background(), "bob", domain.UserPatch{Role: &moderator})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if u.Role != domain.RoleModerator {
		t.Fatalf("role not changed: %q", u.Role)
	}

	bad := domain.Role("superuser")
	_, err = f.svc.Update(context.Background(), "bob", domain.UserPatch{Role: &bad})
	fieldErr(t, err, "role")
}

func TestUserService_UpdateMe_IgnoresRole(t *testing.T) {
	f := newUserFixture()
	u := f.seed(t, "carol", domain.RoleUser)

	updated, err := f.svc.UpdateMe(context.Background(), callerOf(u), ports.SelfPatch{Bio: ptr("new bio")})
	if err != nil {
		t.Fatalf("UpdateMe: %v", err)
	}
	if updated.Bio != "new bio" || updated.Role != domain.RoleUser {
		t.Fatalf("unexpected user: %+v", updated)
	}
	if f.users.get("carol").Role != domain.RoleUser {
		t.Fatal("self update changed stored role")
	}
}

func TestUserService_UpdateMe_RenamePropagates(t *testing.T) {
	f := newUserFixture()
	u := f.seed(t, "dan", domain.RoleUser)
	ctx := context.Background()

	review, _ := f.reviews.Create(ctx, &domain.Review{TitleID: 1, AuthorID: u.ID, Author: "dan", Score: 5})
	_, _ = f.comments.Create(ctx, &domain.Comment{ReviewID: review.ID, AuthorID: u.ID, Author: "dan"})

	if _, err := f.svc.UpdateMe(ctx, callerOf(u), ports.SelfPatch{Username: ptr("daniel")}); err != nil {
		t.Fatalf("UpdateMe: %v", err)
	}

	r, _ := f.reviews.Find(ctx, 1, review.ID)
	if r.Author != "daniel" {
		t.Fatalf("review author not renamed: %q", r.Author)
	}
	for _, c := range f.comments.comments {
		if c.Author != "daniel" {
			t.Fatalf("comment author not renamed: %q", c.Author)
		}
	}
}

func TestUserService_UpdateMe_DuplicateEmail(t *testing.T) {
	f := newUserFixture()
	f.seed(t, "erin", domain.RoleUser)
	u := f.seed(t, "fred", domain.RoleUser)

	_, err := f.svc.UpdateMe(context.Background(), callerOf(u), ports.SelfPatch{Email: ptr("Erin@example.com")})
	var dup *domain.DuplicateError
	if !errors.As(err, &dup) || dup.Field != "email" {
		t.Fatalf("expected duplicate email, got %v", err)
	}
}

func TestUserService_Delete_Cascades(t *testing.T) {
	f := newUserFixture()
	author := f.seed(t, "gina", domain.RoleUser)
	other := f.seed(t, "hank", domain.RoleUser)
	ctx := context.Background()

	own, _ := f.reviews.Create(ctx, &domain.Review{TitleID: 10, AuthorID: author.ID, Score: 8})
	kept, _ := f.reviews.Create(ctx, &domain.Review{TitleID: 10, AuthorID: other.ID, Score: 4})
	_, _ = f.comments.Create(ctx, &domain.Comment{ReviewID: own.ID, AuthorID: other.ID})
	_, _ = f.comments.Create(ctx, &domain.Comment{ReviewID: kept.ID, AuthorID: author.ID})
	survivor, _ := f.comments.Create(ctx, &domain.Comment{ReviewID: kept.ID, AuthorID: other.ID})

	if err := f.svc.Delete(ctx, "gina"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if f.users.get("gina") != nil {
		t.Fatal("user still present")
	}
	if _, err := f.reviews.Find(ctx, 10, own.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatal("authored review not removed")
	}
	if _, err := f.reviews.Find(ctx, 10, kept.ID); err != nil {
		t.Fatal("unrelated review removed")
	}
	if len(f.comments.comments) != 1 || f.comments.comments[survivor.ID] == nil {
		t.Fatalf("unexpected comments left: %d", len(f.comments.comments))
	}
	if !f.ratings.has(10) {
		t.Fatal("rating refresh not scheduled")
	}
}

func TestUserService_Authenticate(t *testing.T) {
	f := newUserFixture()
	u := f.seed(t, "ivy", domain.RoleUser)
	ctx := context.Background()

	got, err := f.svc.Authenticate(ctx, &ports.TokenClaims{UserID: u.ID, Username: "ivy"})
	if err != nil || got.Username != "ivy" {
		t.Fatalf("Authenticate: %v", err)
	}

	if _, err := f.svc.Authenticate(ctx, &ports.TokenClaims{UserID: 999}); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for missing user, got %v", err)
	}

	f.users.users[u.ID].IsActive = false
	if _, err := f.svc.Authenticate(ctx, &ports.TokenClaims{UserID: u.ID}); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for inactive user, got %v", err)
	}
}

func TestUserService_List_Paginates(t *testing.T) {
	f := newUserFixture()
	for _, name := range []string{"a1", "a2", "a3"} {
		f.seed(t, name, domain.RoleUser)
	}

	users, total, err := f.svc.List(context.Background(), ports.Page{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 3 || len(users) != 1 || users[0].Username != "a3" {
		t.Fatalf("unexpected page: total=%d users=%d", total, len(users))
	}
}
