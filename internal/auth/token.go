package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/postboard/postboard/internal/shared"
)

// SigningAlgorithm is the only JWT alg accepted or produced.
const SigningAlgorithm = "HS256"

// DefaultTokenLifetime bounds every access token.
const DefaultTokenLifetime = 30 * time.Minute

// Decode failure reasons. Each is wrapped together with
// shared.ErrInvalidCredentials, so callers that only check for the latter see
// a single error class while logs and metrics can tell them apart.
var (
	ErrTokenMalformed   = errors.New("token malformed")
	ErrTokenAlgorithm   = errors.New("unexpected signing algorithm")
	ErrTokenSignature   = errors.New("token signature invalid")
	ErrTokenExpired     = errors.New("token expired")
	ErrTokenNotYetValid = errors.New("token issued in the future")
)

// TokenCodec issues and decodes HS256 access tokens. The secret is copied at
// construction and never changes afterwards.
type TokenCodec struct {
	secret   []byte
	lifetime time.Duration
	method   *jwt.SigningMethodHMAC
}

// NewTokenCodec builds a codec for secret. lifetime <= 0 selects DefaultTokenLifetime.
func NewTokenCodec(secret []byte, lifetime time.Duration) (*TokenCodec, error) {
	if len(secret) == 0 {
		return nil, errors.New("auth: signing secret must not be empty")
	}
	if lifetime <= 0 {
		lifetime = DefaultTokenLifetime
	}
	key := make([]byte, len(secret))
	copy(key, secret)
	return &TokenCodec{secret: key, lifetime: lifetime, method: jwt.SigningMethodHS256}, nil
}

// Lifetime returns the fixed validity window of issued tokens.
func (c *TokenCodec) Lifetime() time.Duration {
	return c.lifetime
}

// Issue signs a token for subject. Token times have one second resolution,
// so now is truncated before use; the returned expiry is exactly the
// truncated issue time plus the lifetime.
func (c *TokenCodec) Issue(subject string, now time.Time) (string, time.Time, error) {
	if subject == "" {
		return "", time.Time{}, errors.New("auth: token subject must not be empty")
	}
	issuedAt := now.Truncate(time.Second)
	expiresAt := issuedAt.Add(c.lifetime)
	token := jwt.NewWithClaims(c.method, jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		ID:        uuid.NewString(),
	})
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Decode verifies token as of now and returns its subject.
func (c *TokenCodec) Decode(token string, now time.Time) (string, error) {
	claims := &jwt.RegisteredClaims{}
	parser := jwt.NewParser(
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithStrictDecoding(),
	)
	if _, err := parser.ParseWithClaims(token, claims, c.keyFor); err != nil {
		return "", invalidToken(classifyTokenError(err))
	}
	if claims.Subject == "" {
		return "", invalidToken(ErrTokenMalformed)
	}
	return claims.Subject, nil
}

func (c *TokenCodec) keyFor(t *jwt.Token) (any, error) {
	if t.Method == nil || t.Method.Alg() != c.method.Alg() {
		return nil, ErrTokenAlgorithm
	}
	return c.secret, nil
}

func classifyTokenError(err error) error {
	switch {
	case errors.Is(err, ErrTokenAlgorithm), errors.Is(err, jwt.ErrTokenUnverifiable):
		// jwt reports unknown alg values as unverifiable before the key lookup.
		return ErrTokenAlgorithm
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrTokenMalformed
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrTokenSignature
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenUsedBeforeIssued), errors.Is(err, jwt.ErrTokenNotValidYet):
		return ErrTokenNotYetValid
	default:
		return ErrTokenMalformed
	}
}

func invalidToken(reason error) error {
	return fmt.Errorf("%w: %w", shared.ErrInvalidCredentials, reason)
}

// TokenFailureReason returns a short label for a Decode error, for logs and
// metrics only.
func TokenFailureReason(err error) string {
	switch {
	case errors.Is(err, ErrTokenAlgorithm):
		return "algorithm"
	case errors.Is(err, ErrTokenSignature):
		return "signature"
	case errors.Is(err, ErrTokenExpired):
		return "expired"
	case errors.Is(err, ErrTokenNotYetValid):
		return "not_yet_valid"
	case errors.Is(err, ErrTokenMalformed):
		return "malformed"
	default:
		return "unknown"
	}
}
