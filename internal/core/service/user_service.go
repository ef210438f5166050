package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/yamdb/yamdb-api/internal/core/domain"
	"github.com/yamdb/yamdb-api/internal/core/policy"
	"github.com/yamdb/yamdb-api/internal/core/ports"
)

// UserService manages the user directory. Admin gating happens in the HTTP
// layer; this service enforces field constraints and cascades.
type UserService struct {
	users    ports.UserRepository
	reviews  ports.ReviewRepository
	comments ports.CommentRepository
	ratings  ports.RatingQueue
	log      zerolog.Logger
	now      func() time.Time
}

func NewUserService(
	users ports.UserRepository,
	reviews ports.ReviewRepository,
	comments ports.CommentRepository,
	ratings ports.RatingQueue,
	log zerolog.Logger,
) *UserService {
	return &UserService{
		users:    users,
		reviews:  reviews,
		comments: comments,
		ratings:  ratings,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *UserService) List(ctx context.Context, page ports.Page) ([]*domain.User, int64, error) {
	return s.users.List(ctx, page.Normalize())
}

// Create adds an account without a confirmation code; the owner obtains one
// by signing up with the same username and email.
func (s *UserService) Create(ctx context.Context, in ports.CreateUserInput) (*domain.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = domain.NormalizeEmail(in.Email)
	if in.Role == "" {
		in.Role = domain.RoleUser
	}

	ve := validateSignup(in.Username, in.Email)
	validateProfile(ve, &in.FirstName, &in.LastName)
	if !in.Role.Valid() {
		ve.Add("role", fmt.Sprintf("%q is not a valid choice", in.Role))
	}
	if err := ve.OrNil(); err != nil {
		return nil, err
	}

	now := s.now()
	created, err := s.users.Create(ctx, &domain.User{
		Username:  in.Username,
		Email:     in.Email,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Bio:       in.Bio,
		Role:      in.Role,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("username", created.Username).Str("role", string(created.Role)).Msg("user created")
	return created, nil
}

func (s *UserService) Get(ctx context.Context, username string) (*domain.User, error) {
	return s.users.FindByUsername(ctx, username)
}

// Update applies an admin patch, including role changes.
func (s *UserService) Update(ctx context.Context, username string, patch domain.UserPatch) (*domain.User, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, user, patch)
}

// Delete removes the account together with its reviews and comments.
func (s *UserService) Delete(ctx context.Context, username string) error {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return err
	}

	reviews, err := s.reviews.ListByAuthor(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("delete user: list reviews: %w", err)
	}
	reviewIDs := make([]int64, 0, len(reviews))
	titles := make(map[int64]struct{}, len(reviews))
	for _, r := range reviews {
		reviewIDs = append(reviewIDs, r.ID)
		titles[r.TitleID] = struct{}{}
	}

	if err := s.comments.DeleteByReviews(ctx, reviewIDs); err != nil {
		return fmt.Errorf("delete user: comments on reviews: %w", err)
	}
	if err := s.comments.DeleteByAuthor(ctx, user.ID); err != nil {
		return fmt.Errorf("delete user: comments: %w", err)
	}
	if err := s.reviews.DeleteByAuthor(ctx, user.ID); err != nil {
		return fmt.Errorf("delete user: reviews: %w", err)
	}
	if err := s.users.Delete(ctx, user.ID); err != nil {
		return err
	}

	for titleID := range titles {
		s.ratings.Enqueue(titleID)
	}
	s.log.Info().Str("username", user.Username).Int("reviews", len(reviewIDs)).Msg("user deleted")
	return nil
}

// Authenticate resolves verified token claims to an active account. A
// deleted or deactivated account invalidates its outstanding tokens.
func (s *UserService) Authenticate(ctx context.Context, claims *ports.TokenClaims) (*domain.User, error) {
	user, err := s.users.FindByID(ctx, claims.UserID)
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, domain.ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, domain.ErrInvalidToken
	}
	return user, nil
}

func (s *UserService) Me(ctx context.Context, caller policy.Caller) (*domain.User, error) {
	return s.users.FindByID(ctx, caller.ID)
}

// UpdateMe applies a self-service patch. The patch is rebuilt from an
// explicit whitelist so the role can never change through this path.
func (s *UserService) UpdateMe(ctx context.Context, caller policy.Caller, patch ports.SelfPatch) (*domain.User, error) {
	user, err := s.users.FindByID(ctx, caller.ID)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, user, domain.UserPatch{
		Username:  patch.Username,
		Email:     patch.Email,
		FirstName: patch.FirstName,
		LastName:  patch.LastName,
		Bio:       patch.Bio,
	})
}

func (s *UserService) apply(ctx context.Context, user *domain.User, patch domain.UserPatch) (*domain.User, error) {
	ve := &domain.ValidationError{}
	if patch.Username != nil {
		name := strings.TrimSpace(*patch.Username)
		patch.Username = &name
		if msg := domain.ValidateUsername(name); msg != "" {
			ve.Add("username", msg)
		}
	}
	if patch.Email != nil {
		email := domain.NormalizeEmail(*patch.Email)
		patch.Email = &email
		if msg := validateEmail(email); msg != "" {
			ve.Add("email", msg)
		}
	}
	validateProfile(ve, patch.FirstName, patch.LastName)
	if patch.Role != nil && !patch.Role.Valid() {
		ve.Add("role", fmt.Sprintf("%q is not a valid choice", *patch.Role))
	}
	if err := ve.OrNil(); err != nil {
		return nil, err
	}
	if patch.Empty() {
		return user, nil
	}

	updated, err := s.users.Update(ctx, user.ID, patch)
	if err != nil {
		return nil, err
	}

	if updated.Username != user.Username {
		if err := s.reviews.RenameAuthor(ctx, user.ID, updated.Username); err != nil {
			s.log.Error().Err(err).Int64("user_id", user.ID).Msg("failed to rename review author")
		}
		if err := s.comments.RenameAuthor(ctx, user.ID, updated.Username); err != nil {
			s.log.Error().Err(err).Int64("user_id", user.ID).Msg("failed to rename comment author")
		}
	}
	if patch.Role != nil && *patch.Role != user.Role {
		s.log.Info().
			Str("username", updated.Username).
			Str("from", string(user.Role)).
			Str("to", string(updated.Role)).
			Msg("role changed")
	}
	return updated, nil
}

func validateProfile(ve *domain.ValidationError, firstName, lastName *string) {
	if firstName != nil {
		if msg := validateMaxLength(*firstName, domain.NameMaxLength); msg != "" {
			ve.Add("first_name", msg)
		}
	}
	if lastName != nil {
		if msg := validateMaxLength(*lastName, domain.NameMaxLength); msg != "" {
			ve.Add("last_name", msg)
		}
	}
}
