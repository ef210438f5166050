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

// ReviewService manages reviews and comments. Anonymous callers are turned
// away before any lookup; ownership is checked against the stored author.
type ReviewService struct {
	titles   ports.TitleRepository
	reviews  ports.ReviewRepository
	comments ports.CommentRepository
	ratings  ports.RatingQueue
	log      zerolog.Logger
	now      func() time.Time
}

func NewReviewService(
	titles ports.TitleRepository,
	reviews ports.ReviewRepository,
	comments ports.CommentRepository,
	ratings ports.RatingQueue,
	log zerolog.Logger,
) *ReviewService {
	return &ReviewService{
		titles:   titles,
		reviews:  reviews,
		comments: comments,
		ratings:  ratings,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// --- Reviews ---

func (s *ReviewService) ListReviews(ctx context.Context, titleID int64, page ports.Page) ([]*domain.Review, int64, error) {
	if _, err := s.titles.FindByID(ctx, titleID); err != nil {
		return nil, 0, err
	}
	return s.reviews.List(ctx, titleID, page.Normalize())
}

func (s *ReviewService) GetReview(ctx context.Context, titleID, reviewID int64) (*domain.Review, error) {
	return s.reviews.Find(ctx, titleID, reviewID)
}

// CreateReview stores a review authored by caller under titleID. Author and
// title are set in the single insert.
func (s *ReviewService) CreateReview(ctx context.Context, caller policy.Caller, titleID int64, in ports.ReviewInput) (*domain.Review, error) {
	if err := policy.Authorize(caller, policy.ActionCreate, policy.Target{Kind: policy.KindReview}); err != nil {
		return nil, err
	}
	if _, err := s.titles.FindByID(ctx, titleID); err != nil {
		return nil, err
	}

	ve := &domain.ValidationError{}
	if in.Text == nil {
		ve.Add("text", "this field is required")
	}
	if in.Score == nil {
		ve.Add("score", "this field is required")
	}
	validateReview(ve, &in)
	if err := ve.OrNil(); err != nil {
		return nil, err
	}

	created, err := s.reviews.Create(ctx, &domain.Review{
		TitleID:  titleID,
		AuthorID: caller.ID,
		Author:   caller.Username,
		Text:     *in.Text,
		Score:    *in.Score,
		PubDate:  s.now(),
	})
	if errors.Is(err, domain.ErrReviewExists) {
		return nil, domain.NewValidationError("title", "you have already reviewed this title")
	}
	if err != nil {
		return nil, fmt.Errorf("create review: %w", err)
	}
	if _, err := s.titles.FindByID(ctx, titleID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.dropReview(ctx, created)
		}
		return nil, err
	}

	s.ratings.Enqueue(titleID)
	s.log.Info().Int64("title_id", titleID).Int64("review_id", created.ID).Str("author", caller.Username).Msg("review created")
	return created, nil
}

func (s *ReviewService) UpdateReview(ctx context.Context, caller policy.Caller, titleID, reviewID int64, in ports.ReviewInput) (*domain.Review, error) {
	review, err := s.ownedReview(ctx, caller, policy.ActionUpdate, titleID, reviewID)
	if err != nil {
		return nil, err
	}

	ve := &domain.ValidationError{}
	validateReview(ve, &in)
	if err := ve.OrNil(); err != nil {
		return nil, err
	}

	updated, err := s.reviews.Update(ctx, titleID, reviewID, ports.ReviewPatch{Text: in.Text, Score: in.Score})
	if err != nil {
		return nil, err
	}
	if in.Score != nil && *in.Score != review.Score {
		s.ratings.Enqueue(titleID)
	}
	return updated, nil
}

// DeleteReview removes the review and its comments. The review goes first:
// a comment inserted after that is removed by its own creator.
func (s *ReviewService) DeleteReview(ctx context.Context, caller policy.Caller, titleID, reviewID int64) error {
	if _, err := s.ownedReview(ctx, caller, policy.ActionDelete, titleID, reviewID); err != nil {
		return err
	}

	if err := s.reviews.Delete(ctx, titleID, reviewID); err != nil {
		return err
	}
	if err := s.comments.DeleteByReviews(ctx, []int64{reviewID}); err != nil {
		return fmt.Errorf("delete review: comments: %w", err)
	}

	s.ratings.Enqueue(titleID)
	s.log.Info().Int64("title_id", titleID).Int64("review_id", reviewID).Str("by", caller.Username).Msg("review deleted")
	return nil
}

// dropReview undoes an insert whose title was deleted meanwhile.
func (s *ReviewService) dropReview(ctx context.Context, review *domain.Review) {
	if err := s.reviews.Delete(ctx, review.TitleID, review.ID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		s.log.Error().Err(err).Int64("review_id", review.ID).Msg("failed to drop review of deleted title")
	}
	if err := s.comments.DeleteByReviews(ctx, []int64{review.ID}); err != nil {
		s.log.Error().Err(err).Int64("review_id", review.ID).Msg("failed to drop comments of deleted title")
	}
}

func (s *ReviewService) ownedReview(ctx context.Context, caller policy.Caller, action policy.Action, titleID, reviewID int64) (*domain.Review, error) {
	if caller.Anonymous() {
		return nil, domain.ErrAuthenticationRequired
	}
	review, err := s.reviews.Find(ctx, titleID, reviewID)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(caller, action, policy.Target{Kind: policy.KindReview, OwnerID: review.AuthorID}); err != nil {
		return nil, err
	}
	return review, nil
}

func validateReview(ve *domain.ValidationError, in *ports.ReviewInput) {
	if in.Text != nil {
		text := strings.TrimSpace(*in.Text)
		in.Text = &text
		if text == "" {
			ve.Add("text", "this field may not be blank")
		}
	}
	if in.Score != nil {
		if msg := domain.ValidateScore(*in.Score); msg != "" {
			ve.Add("score", msg)
		}
	}
}

// --- Comments ---

func (s *ReviewService) ListComments(ctx context.Context, titleID, reviewID int64, page ports.Page) ([]*domain.Comment, int64, error) {
	if _, err := s.reviews.Find(ctx, titleID, reviewID); err != nil {
		return nil, 0, err
	}
	return s.comments.List(ctx, reviewID, page.Normalize())
}

func (s *ReviewService) GetComment(ctx context.Context, titleID, reviewID, commentID int64) (*domain.Comment, error) {
	if _, err := s.reviews.Find(ctx, titleID, reviewID); err != nil {
		return nil, err
	}
	return s.comments.Find(ctx, reviewID, commentID)
}

// CreateComment stores a comment authored by caller under the review, which
// must belong to titleID.
func (s *ReviewService) CreateComment(ctx context.Context, caller policy.Caller, titleID, reviewID int64, text string) (*domain.Comment, error) {
	if err := policy.Authorize(caller, policy.ActionCreate, policy.Target{Kind: policy.KindComment}); err != nil {
		return nil, err
	}
	if _, err := s.reviews.Find(ctx, titleID, reviewID); err != nil {
		return nil, err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.NewValidationError("text", "this field is required")
	}

	created, err := s.comments.Create(ctx, &domain.Comment{
		ReviewID: reviewID,
		AuthorID: caller.ID,
		Author:   caller.Username,
		Text:     text,
		PubDate:  s.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}

	// The review may have been deleted between the lookup and the insert.
	if _, err := s.reviews.Find(ctx, titleID, reviewID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			if delErr := s.comments.Delete(ctx, reviewID, created.ID); delErr != nil && !errors.Is(delErr, domain.ErrNotFound) {
				s.log.Error().Err(delErr).Int64("comment_id", created.ID).Msg("failed to drop comment of deleted review")
			}
		}
		return nil, err
	}
	return created, nil
}

func (s *ReviewService) UpdateComment(ctx context.Context, caller policy.Caller, titleID, reviewID, commentID int64, text string) (*domain.Comment, error) {
	if _, err := s.ownedComment(ctx, caller, policy.ActionUpdate, titleID, reviewID, commentID); err != nil {
		return nil, err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.NewValidationError("text", "this field may not be blank")
	}
	return s.comments.Update(ctx, reviewID, commentID, text)
}

func (s *ReviewService) DeleteComment(ctx context.Context, caller policy.Caller, titleID, reviewID, commentID int64) error {
	if _, err := s.ownedComment(ctx, caller, policy.ActionDelete, titleID, reviewID, commentID); err != nil {
		return err
	}
	return s.comments.Delete(ctx, reviewID, commentID)
}

func (s *ReviewService) ownedComment(ctx context.Context, caller policy.Caller, action policy.Action, titleID, reviewID, commentID int64) (*domain.Comment, error) {
	if caller.Anonymous() {
		return nil, domain.ErrAuthenticationRequired
	}
	if _, err := s.reviews.Find(ctx, titleID, reviewID); err != nil {
		return nil, err
	}
	comment, err := s.comments.Find(ctx, reviewID, commentID)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(caller, action, policy.Target{Kind: policy.KindComment, OwnerID: comment.AuthorID}); err != nil {
		return nil, err
	}
	return comment, nil
}
