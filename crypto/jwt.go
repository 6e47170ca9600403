package crypto

import (
	"drawit/domain"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	issuer = "drawit"
	leeway = 5 * time.Second
)

// JWTManager issues HS256 session tokens whose subject is the user id. Every token
// carries its own jti so two tokens minted in the same second differ.
type JWTManager struct {
	key    []byte
	maxAge time.Duration
	parser *jwt.Parser
}

func NewJWTManager(secretKey string, maxAge time.Duration) *JWTManager {
	return &JWTManager{
		key:    []byte(secretKey),
		maxAge: maxAge,
		parser: jwt.NewParser(
			jwt.WithIssuer(issuer),
			jwt.WithExpirationRequired(),
			jwt.WithIssuedAt(),
			jwt.WithLeeway(leeway),
		),
	}
}

func (m *JWTManager) MaxAge() time.Duration { return m.maxAge }

func (m *JWTManager) Generate(userId string, now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   userId,
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.maxAge)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.key)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.UnexpectedTokenGenerationError, err)
	}
	return signed, nil
}

func (m *JWTManager) keyFunc(token *jwt.Token) (any, error) {
	if token.Method != jwt.SigningMethodHS256 {
		return nil, domain.ErrInvalidSigningAlg
	}
	return m.key, nil
}

// Verify returns the subject of a valid token.
func (m *JWTManager) Verify(tokenString string) (string, error) {
	var claims jwt.RegisteredClaims
	if _, err := m.parser.ParseWithClaims(tokenString, &claims, m.keyFunc); err != nil {
		return "", verifyError(err)
	}
	if claims.Subject == "" {
		return "", domain.ErrCorruptedToken
	}
	return claims.Subject, nil
}

func verifyError(err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidSigningAlg):
		return domain.ErrInvalidSigningAlg
	case errors.Is(err, jwt.ErrTokenExpired):
		return domain.ErrExpiredToken
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return domain.ErrInvalidTokenSignature
	case errors.Is(err, jwt.ErrTokenMalformed),
		errors.Is(err, jwt.ErrTokenInvalidIssuer),
		errors.Is(err, jwt.ErrTokenRequiredClaimMissing),
		errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
		return domain.ErrCorruptedToken
	default:
		return fmt.Errorf("%w: %w", domain.UnexpectedTokenVerificationError, err)
	}
}
