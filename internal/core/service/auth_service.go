package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/yamdb/yamdb-api/internal/core/domain"
	"github.com/yamdb/yamdb-api/internal/core/ports"
)

const confirmationSubject = "Confirmation code for API access"

// SignupThrottle limits how often a confirmation code is sent to one address
// (Redis).
type SignupThrottle interface {
	Acquire(ctx context.Context, email string) (bool, error)
	Release(ctx context.Context, email string) error
}

// AuthOptions tunes the confirmation code lifecycle.
type AuthOptions struct {
	// CodeTTL bounds how long a code may be exchanged. Zero disables expiry.
	CodeTTL time.Duration
	// SingleUseCodes clears the stored code on a successful exchange.
	SingleUseCodes bool
	// HashCost is the bcrypt cost for stored codes.
	HashCost int
}

// AuthService implements passwordless signup and token exchange.
type AuthService struct {
	users    ports.UserRepository
	mailer   ports.Mailer
	tokens   ports.TokenIssuer
	throttle SignupThrottle
	opts     AuthOptions
	log      zerolog.Logger

	now     func() time.Time
	newCode func() string
}

func NewAuthService(
	users ports.UserRepository,
	mailer ports.Mailer,
	tokens ports.TokenIssuer,
	throttle SignupThrottle,
	opts AuthOptions,
	log zerolog.Logger,
) *AuthService {
	if opts.HashCost < bcrypt.MinCost || opts.HashCost > bcrypt.MaxCost {
		opts.HashCost = bcrypt.DefaultCost
	}
	return &AuthService{
		users:    users,
		mailer:   mailer,
		tokens:   tokens,
		throttle: throttle,
		opts:     opts,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
		newCode:  uuid.NewString,
	}
}

// Signup registers a new (username, email) pair or re-sends a code to an
// existing identical pair. Any partial match is rejected without touching
// stored state.
func (s *AuthService) Signup(ctx context.Context, username, email string) (*ports.SignupResult, error) {
	username = strings.TrimSpace(username)
	email = domain.NormalizeEmail(email)

	byName, err := s.findOptional(ctx, s.users.FindByUsername, username)
	if err != nil {
		return nil, err
	}
	byEmail, err := s.findOptional(ctx, s.users.FindByEmail, email)
	if err != nil {
		return nil, err
	}

	switch {
	case byName != nil && byEmail != nil && byName.ID == byEmail.ID:
		return s.resend(ctx, byName)

	case byName == nil && byEmail == nil:
		if err := validateSignup(username, email).OrNil(); err != nil {
			return nil, err
		}
		return s.register(ctx, username, email)

	default:
		ve := validateSignup(username, email)
		if byName != nil {
			ve.Add("username", "a user with that username already exists")
		}
		if byEmail != nil {
			ve.Add("email", "a user with that email already exists")
		}
		return nil, ve
	}
}

func (s *AuthService) register(ctx context.Context, username, email string) (*ports.SignupResult, error) {
	if err := s.acquire(ctx, email); err != nil {
		return nil, err
	}

	code := s.newCode()
	hash, err := s.hashCode(code)
	if err != nil {
		s.release(ctx, email)
		return nil, err
	}

	now := s.now()
	created, err := s.users.Create(ctx, &domain.User{
		Username:             username,
		Email:                email,
		Role:                 domain.RoleUser,
		IsActive:             true,
		ConfirmationCodeHash: hash,
		CodeIssuedAt:         now,
		CreatedAt:            now,
		UpdatedAt:            now,
	})
	if err != nil {
		s.release(ctx, email)
		var dup *domain.DuplicateError
		if errors.As(err, &dup) {
			return nil, domain.NewValidationError(dup.Field, "a user with that "+dup.Field+" already exists")
		}
		return nil, fmt.Errorf("signup: create user: %w", err)
	}

	if err := s.sendCode(ctx, created, code); err != nil {
		s.release(ctx, email)
		if delErr := s.users.Delete(ctx, created.ID); delErr != nil {
			s.log.Error().Err(delErr).Str("username", created.Username).Msg("failed to roll back undeliverable signup")
		}
		return nil, err
	}

	s.log.Info().Str("username", created.Username).Msg("user registered")
	return &ports.SignupResult{Username: created.Username, Email: created.Email, Created: true}, nil
}

func (s *AuthService) resend(ctx context.Context, user *domain.User) (*ports.SignupResult, error) {
	if err := s.acquire(ctx, user.Email); err != nil {
		return nil, err
	}

	code := s.newCode()
	hash, err := s.hashCode(code)
	if err != nil {
		s.release(ctx, user.Email)
		return nil, err
	}
	if err := s.users.SetConfirmationCode(ctx, user.ID, hash, s.now()); err != nil {
		s.release(ctx, user.Email)
		return nil, fmt.Errorf("signup: rotate code: %w", err)
	}

	if err := s.sendCode(ctx, user, code); err != nil {
		s.release(ctx, user.Email)
		return nil, err
	}

	s.log.Info().Str("username", user.Username).Msg("confirmation code re-sent")
	return &ports.SignupResult{Username: user.Username, Email: user.Email}, nil
}

// GetToken exchanges a confirmation code for an access token.
func (s *AuthService) GetToken(ctx context.Context, username, confirmationCode string) (string, error) {
	ve := &domain.ValidationError{}
	if username == "" {
		ve.Add("username", "this field is required")
	}
	if confirmationCode == "" {
		ve.Add("confirmation_code", "this field is required")
	}
	if err := ve.OrNil(); err != nil {
		return "", err
	}

	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return "", err
	}

	now := s.now()
	if !user.HasPendingCode() || user.CodeExpired(now, s.opts.CodeTTL) ||
		bcrypt.CompareHashAndPassword([]byte(user.ConfirmationCodeHash), []byte(confirmationCode)) != nil {
		s.log.Debug().Str("username", username).Msg("confirmation code rejected")
		return "", invalidCode()
	}

	if s.opts.SingleUseCodes {
		if err := s.users.ConsumeConfirmationCode(ctx, user.ID, user.ConfirmationCodeHash, now); err != nil {
			if errors.Is(err, domain.ErrCodeConsumed) {
				return "", invalidCode()
			}
			return "", fmt.Errorf("get token: consume code: %w", err)
		}
	} else if user.ConfirmedAt == nil {
		if err := s.users.MarkConfirmed(ctx, user.ID, now); err != nil {
			s.log.Warn().Err(err).Str("username", username).Msg("failed to stamp confirmation")
		}
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return "", fmt.Errorf("get token: %w", err)
	}
	return token, nil
}

func (s *AuthService) sendCode(ctx context.Context, user *domain.User, code string) error {
	msg := ports.Message{
		To:      user.Email,
		Subject: confirmationSubject,
		Body: fmt.Sprintf("Hello, %s.\n\nYour confirmation code for API access: %s\n",
			user.Username, code),
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.log.Error().Err(err).Str("username", user.Username).Msg("confirmation email failed")
		return fmt.Errorf("%w: %v", domain.ErrEmailDelivery, err)
	}
	return nil
}

func (s *AuthService) hashCode(code string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(code), s.opts.HashCost)
	if err != nil {
		return "", fmt.Errorf("hash confirmation code: %w", err)
	}
	return string(hash), nil
}

// acquire takes the per-address cooldown slot. Throttle store failures are
// logged and do not block signups.
func (s *AuthService) acquire(ctx context.Context, email string) error {
	if s.throttle == nil {
		return nil
	}
	ok, err := s.throttle.Acquire(ctx, email)
	if err != nil {
		s.log.Warn().Err(err).Msg("signup throttle unavailable, continuing")
		return nil
	}
	if !ok {
		return domain.ErrSignupThrottled
	}
	return nil
}

func (s *AuthService) release(ctx context.Context, email string) {
	if s.throttle == nil {
		return
	}
	if err := s.throttle.Release(ctx, email); err != nil {
		s.log.Warn().Err(err).Msg("failed to release signup throttle")
	}
}

func (s *AuthService) findOptional(
	ctx context.Context,
	find func(context.Context, string) (*domain.User, error),
	key string,
) (*domain.User, error) {
	if key == "" {
		return nil, nil
	}
	u, err := find(ctx, key)
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("signup: lookup: %w", err)
	}
	return u, nil
}

func validateSignup(username, email string) *domain.ValidationError {
	ve := &domain.ValidationError{}
	if msg := domain.ValidateUsername(username); msg != "" {
		ve.Add("username", msg)
	}
	if msg := validateEmail(email); msg != "" {
		ve.Add("email", msg)
	}
	return ve
}

func invalidCode() error {
	return domain.NewValidationError("confirmation_code", "invalid confirmation code")
}
