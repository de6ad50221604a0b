// Package token issues and validates the signed session tokens handed out at
// login. Tokens are HS256 JWTs carrying the username as subject and the
// account kind as role.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/nexus-app/marketplace/internal/pkg/clock"
)

// MinSecretLength is the shortest signing secret accepted, in bytes.
const MinSecretLength = 32

var (
	ErrInvalid       = errors.New("invalid token")
	ErrExpired       = errors.New("token expired")
	ErrMisconfigured = errors.New("token issuer misconfigured")
)

var signingMethod = jwt.SigningMethodHS256

// Config holds the signing material. TTL is used when Issue is called with a
// zero ttl; it must be positive.
type Config struct {
	Secret string
	TTL    time.Duration
}

// Claims is the JWT payload.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Token is a freshly minted session token.
type Token struct {
	Value     string
	ID        string
	ExpiresAt time.Time
}

// Identity is what a valid token proves about its bearer.
type Identity struct {
	Subject   string
	Role      string
	ID        string
	ExpiresAt time.Time
}

// Issuer signs and validates tokens.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	clock  clock.Clock
	parser *jwt.Parser
}

// NewIssuer fails when the secret is missing or short, or the TTL is not
// positive. Callers treat that error as fatal.
func NewIssuer(cfg Config, clk clock.Clock) (*Issuer, error) {
	if len(cfg.Secret) < MinSecretLength {
		return nil, fmt.Errorf("%w: secret must be at least %d bytes", ErrMisconfigured, MinSecretLength)
	}
	if cfg.TTL <= 0 {
		return nil, fmt.Errorf("%w: ttl must be positive, got %s", ErrMisconfigured, cfg.TTL)
	}
	if clk == nil {
		clk = clock.System{}
	}
	return &Issuer{
		secret: []byte(cfg.Secret),
		ttl:    cfg.TTL,
		clock:  clk,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{signingMethod.Alg()}),
			jwt.WithExpirationRequired(),
			jwt.WithTimeFunc(clk.Now),
		),
	}, nil
}

// DefaultTTL is the lifetime applied when Issue receives a zero ttl.
func (i *Issuer) DefaultTTL() time.Duration { return i.ttl }

// Issue mints a token for subject with the given role. A zero ttl selects the
// configured default; a negative ttl is rejected.
func (i *Issuer) Issue(subject, role string, ttl time.Duration) (Token, error) {
	if subject == "" {
		return Token{}, fmt.Errorf("issue token: %w: empty subject", ErrInvalid)
	}
	if ttl == 0 {
		ttl = i.ttl
	}
	if ttl < 0 {
		return Token{}, fmt.Errorf("issue token: %w: negative ttl", ErrMisconfigured)
	}

	now := i.clock.Now().UTC()
	id := uuid.NewString()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ID:        id,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString(i.secret)
	if err != nil {
		return Token{}, fmt.Errorf("issue token: %w", err)
	}
	return Token{Value: signed, ID: id, ExpiresAt: claims.ExpiresAt.Time}, nil
}

// Validate checks signature, algorithm, expiry and subject.
func (i *Issuer) Validate(raw string) (Identity, error) {
	var claims Claims
	_, err := i.parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (interface{}, error) {
		return i.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, ErrExpired
		}
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if claims.Subject == "" {
		return Identity{}, fmt.Errorf("%w: missing subject", ErrInvalid)
	}

	id := Identity{Subject: claims.Subject, Role: claims.Role, ID: claims.ID}
	if claims.ExpiresAt != nil {
		id.ExpiresAt = claims.ExpiresAt.Time.UTC()
	}
	return id, nil
}
