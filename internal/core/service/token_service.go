package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/yamdb/yamdb-api/internal/core/domain"
	"github.com/yamdb/yamdb-api/internal/core/ports"
)

const accessTokenType = "access"

// TokenService mints and verifies HS256 access tokens. Tokens carry identity
// only; privileges are looked up on every request.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenService(secret string, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenService{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue returns a signed token for user. Every call yields a distinct jti,
// so concurrent issuance produces independent tokens for the same identity.
func (s *TokenService) Issue(user *domain.User) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub":        user.Username,
		"uid":        user.ID,
		"jti":        uuid.NewString(),
		"token_type": accessTokenType,
		"iat":        now.Unix(),
		"exp":        now.Add(s.ttl).Unix(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature, algorithm and expiry and extracts the identity.
func (s *TokenService) Verify(token string) (*ports.TokenClaims, error) {
	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		return nil, domain.ErrInvalidToken
	}

	if typ, _ := claims["token_type"].(string); typ != accessTokenType {
		return nil, domain.ErrInvalidToken
	}
	username, _ := claims["sub"].(string)
	uid, _ := claims["uid"].(float64)
	jti, _ := claims["jti"].(string)
	if username == "" || uid <= 0 {
		return nil, domain.ErrInvalidToken
	}

	return &ports.TokenClaims{UserID: int64(uid), Username: username, TokenID: jti}, nil
}
