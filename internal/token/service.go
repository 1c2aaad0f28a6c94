package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bengobox/church-admin/internal/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const bearerPrefix = "Bearer "

// Rejection reasons returned by Authenticate.
const (
	ReasonMissingToken     = "missing token"
	ReasonMalformedToken   = "malformed token"
	ReasonInvalidSignature = "invalid signature"
	ReasonExpired          = "expired"
)

// Claims is the signed payload of a bearer token.
type Claims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// Identity is the actor extracted from a verified token.
type Identity struct {
	UserID    uuid.UUID `json:"userId"`
	Email     string    `json:"email"`
	TokenID   string    `json:"-"`
	IssuedAt  time.Time `json:"iat"`
	ExpiresAt time.Time `json:"exp"`
}

// Verdict is the pass/fail outcome of Authenticate. Exactly one of Identity
// and Reason is set.
type Verdict struct {
	Identity *Identity
	Reason   string
}

// OK reports whether the credential was accepted.
func (v Verdict) OK() bool {
	return v.Identity != nil
}

// Service mints and verifies HS256 bearer tokens with a process-wide secret.
type Service struct {
	secret []byte
	issuer string
	ttl    time.Duration
	parser *jwt.Parser
}

// NewService returns a token service. The secret is copied so later changes
// to cfg have no effect.
func NewService(cfg config.TokenConfig) (*Service, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("token secret missing")
	}
	ttl := cfg.TTL
	if ttl == 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Service{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		ttl:    ttl,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
			jwt.WithIssuedAt(),
		),
	}, nil
}

// Mint issues a signed token for the user valid for the configured TTL.
func (s *Service) Mint(userID uuid.UUID, email string) (string, time.Time, error) {
	now := time.Now().UTC()
	exp := now.Add(s.ttl)
	claims := &Claims{
		UserID: userID.String(),
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign jwt: %w", err)
	}
	return signed, exp, nil
}

// Authenticate inspects an Authorization header value and returns a verdict.
// It performs no I/O and never panics on hostile input.
func (s *Service) Authenticate(header string) Verdict {
	if header == "" || !strings.HasPrefix(header, bearerPrefix) {
		return Verdict{Reason: ReasonMissingToken}
	}
	raw := strings.TrimSpace(header[len(bearerPrefix):])
	if raw == "" {
		return Verdict{Reason: ReasonMissingToken}
	}

	identity, err := s.Verify(raw)
	if err != nil {
		return Verdict{Reason: reasonFor(err)}
	}
	return Verdict{Identity: identity}
}

// Verify parses and validates a raw token string.
func (s *Service) Verify(raw string) (*Identity, error) {
	parsed, err := s.parser.ParseWithClaims(raw, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("parse token: %w", jwt.ErrTokenMalformed)
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("parse token subject: %w", jwt.ErrTokenMalformed)
	}
	identity := &Identity{
		UserID:    userID,
		Email:     claims.Email,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		identity.IssuedAt = claims.IssuedAt.Time
	}
	return identity, nil
}

func reasonFor(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ReasonExpired
	case errors.Is(err, jwt.ErrTokenMalformed),
		errors.Is(err, jwt.ErrTokenRequiredClaimMissing),
		errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
		return ReasonMalformedToken
	default:
		return ReasonInvalidSignature
	}
}
